package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Provider ProviderConfig `mapstructure:"provider"`
	Vector   VectorConfig   `mapstructure:"vector"`
	Chunk    ChunkConfig    `mapstructure:"chunk"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
	Server   ServerConfig   `mapstructure:"server"`
	Temporal TemporalConfig `mapstructure:"temporal"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
	Log      LogConfig      `mapstructure:"log"`
}

// ProviderConfig configures the OpenAI-compatible model provider used for
// embeddings, vision perception, transcription and translation.
type ProviderConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	ChatModel       string        `mapstructure:"chat_model"`
	VisionModel     string        `mapstructure:"vision_model"`
	EmbedModel      string        `mapstructure:"embed_model"`
	TranscribeModel string        `mapstructure:"transcribe_model"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`

	// RequestsPerMinute caps provider calls (0 = unlimited).
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

type VectorConfig struct {
	// Backend selects the store implementation: "qdrant" or "embedded".
	Backend   string `mapstructure:"backend"`
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
	Dimension int    `mapstructure:"dimension"`
}

// ChunkProfile is a chunk size / overlap pair, both in characters.
type ChunkProfile struct {
	Size    int `mapstructure:"size"`
	Overlap int `mapstructure:"overlap"`
}

type ChunkConfig struct {
	Document ChunkProfile `mapstructure:"document"`
	Audio    ChunkProfile `mapstructure:"audio"`
	Crawled  ChunkProfile `mapstructure:"crawled"`
	Default  ChunkProfile `mapstructure:"default"`
}

type IngestConfig struct {
	// ImageConcurrency is the worker count for bulk image processing.
	ImageConcurrency int `mapstructure:"image_concurrency"`

	// VolumeThreshold is the mean RMS level above which a video is routed
	// through the audio pipeline instead of frame captioning.
	VolumeThreshold float64 `mapstructure:"volume_threshold"`

	// TempDir holds transient downloads; empty means the OS default.
	TempDir string `mapstructure:"temp_dir"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type TemporalConfig struct {
	Host      string `mapstructure:"host"`
	Namespace string `mapstructure:"namespace"`
	TaskQueue string `mapstructure:"task_queue"`
}

type TracingConfig struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	SampleRate   float64 `mapstructure:"sample_rate"`
	Environment  string  `mapstructure:"environment"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Validate checks configuration for issues and returns warnings.
func (c *Config) Validate() []string {
	var warnings []string

	if c.Provider.APIKey == "" {
		warnings = append(warnings, "provider api_key is empty; perception and embedding calls will fail")
	}
	if c.Vector.Backend != "" && c.Vector.Backend != "qdrant" && c.Vector.Backend != "embedded" {
		warnings = append(warnings, fmt.Sprintf("unknown vector backend %q (expected qdrant or embedded)", c.Vector.Backend))
	}
	if c.Vector.Dimension < 0 {
		warnings = append(warnings, fmt.Sprintf("vector dimension %d is negative", c.Vector.Dimension))
	}
	if c.Ingest.ImageConcurrency < 0 {
		warnings = append(warnings, fmt.Sprintf("image_concurrency %d is negative", c.Ingest.ImageConcurrency))
	}
	for _, p := range []struct {
		name    string
		profile ChunkProfile
	}{
		{"document", c.Chunk.Document},
		{"audio", c.Chunk.Audio},
		{"crawled", c.Chunk.Crawled},
		{"default", c.Chunk.Default},
	} {
		if p.profile.Size > 0 && p.profile.Overlap >= p.profile.Size {
			warnings = append(warnings, fmt.Sprintf("chunk profile %s: overlap %d >= size %d", p.name, p.profile.Overlap, p.profile.Size))
		}
	}

	return warnings
}

// ApplyDefaults fills zero-valued fields with working defaults.
func (c *Config) ApplyDefaults() {
	if c.Provider.ChatModel == "" {
		c.Provider.ChatModel = "gpt-4o-mini"
	}
	if c.Provider.VisionModel == "" {
		c.Provider.VisionModel = "gpt-4o-mini"
	}
	if c.Provider.EmbedModel == "" {
		c.Provider.EmbedModel = "text-embedding-3-small"
	}
	if c.Provider.TranscribeModel == "" {
		c.Provider.TranscribeModel = "whisper-1"
	}
	if c.Provider.Timeout == 0 {
		c.Provider.Timeout = 2 * time.Minute
	}
	if c.Vector.Backend == "" {
		c.Vector.Backend = "embedded"
	}
	if c.Vector.Namespace == "" {
		c.Vector.Namespace = "media"
	}
	if c.Vector.Dimension == 0 {
		c.Vector.Dimension = 1536
	}
	if c.Chunk.Document == (ChunkProfile{}) {
		c.Chunk.Document = ChunkProfile{Size: 1000, Overlap: 200}
	}
	if c.Chunk.Audio == (ChunkProfile{}) {
		c.Chunk.Audio = ChunkProfile{Size: 500, Overlap: 100}
	}
	if c.Chunk.Crawled == (ChunkProfile{}) {
		c.Chunk.Crawled = ChunkProfile{Size: 800, Overlap: 150}
	}
	if c.Chunk.Default == (ChunkProfile{}) {
		c.Chunk.Default = ChunkProfile{Size: 500, Overlap: 100}
	}
	if c.Ingest.ImageConcurrency == 0 {
		c.Ingest.ImageConcurrency = 4
	}
	if c.Ingest.VolumeThreshold == 0 {
		c.Ingest.VolumeThreshold = 30
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 30 * time.Second
	}
	if c.Temporal.TaskQueue == "" {
		c.Temporal.TaskQueue = "medialens-ingest"
	}
}

// Load reads configuration from file and environment.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetEnvPrefix("MEDIALENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	cfg.ApplyDefaults()

	if warnings := cfg.Validate(); len(warnings) > 0 {
		for _, warning := range warnings {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", warning)
		}
	}

	return &cfg, nil
}
