package llm

import (
	"fmt"
	"time"
)

// ProviderConfig holds all configuration needed to create a provider.
type ProviderConfig struct {
	Provider        string // "openai" or "none"
	APIKey          string
	BaseURL         string // Override for self-hosted / compatible endpoints
	ChatModel       string
	VisionModel     string
	EmbedModel      string
	TranscribeModel string

	Timeout           time.Duration // Per-request timeout (default: 2 minutes)
	MaxRetries        int           // Max retry attempts (default: 3)
	RetryDelay        time.Duration // Initial retry delay for exponential backoff (default: 1s)
	RequestsPerMinute int           // Provider call cap (0 = unlimited)
}

// ProviderConstructor builds a Provider from config.
type ProviderConstructor func(cfg ProviderConfig) (Provider, error)

// ProviderFactory creates Provider instances from config.
type ProviderFactory struct {
	constructors map[string]ProviderConstructor
}

// NewFactory creates an empty factory; callers register constructors.
func NewFactory() *ProviderFactory {
	return &ProviderFactory{constructors: make(map[string]ProviderConstructor)}
}

// Register adds a provider constructor under the given name.
func (f *ProviderFactory) Register(name string, ctor ProviderConstructor) {
	f.constructors[name] = ctor
}

// Create builds a Provider from config, wrapped with retry and rate-limit
// decorators. Returns nil (no error) when provider is empty or "none",
// allowing model-free operation.
func (f *ProviderFactory) Create(cfg ProviderConfig) (Provider, error) {
	if cfg.Provider == "" || cfg.Provider == "none" {
		return nil, nil
	}

	ctor, ok := f.constructors[cfg.Provider]
	if !ok {
		return nil, fmt.Errorf("unknown provider %q, registered: %v", cfg.Provider, f.names())
	}

	provider, err := ctor(cfg)
	if err != nil {
		return nil, err
	}

	provider = WrapWithRetry(provider, cfg.Timeout, cfg.MaxRetries, cfg.RetryDelay)
	return WithRateLimit(provider, cfg.RequestsPerMinute), nil
}

func (f *ProviderFactory) names() []string {
	var out []string
	for k := range f.constructors {
		out = append(out, k)
	}
	return out
}
