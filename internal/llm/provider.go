package llm

import "context"

// Provider is the interface all model backends must implement.
type Provider interface {
	// Complete sends a prompt and returns a completion.
	Complete(ctx context.Context, prompt *Prompt, opts *RequestOptions) (*Response, error)
	// Embed returns embedding vectors for the given texts, one per input,
	// in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	// Transcribe converts an audio file into text.
	Transcribe(ctx context.Context, audioPath string) (string, error)
	// Name returns the provider identifier (e.g. "openai").
	Name() string
}

// RequestOptions tunes a single completion call. Nil fields keep the
// provider's defaults.
type RequestOptions struct {
	MaxTokens   *int
	Temperature *float64
	TopP        *float64
	StopSeqs    []string
}
