package vector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/medialens/medialens/internal/llm"
)

// ErrEmptyText is returned when an embedding is requested for blank input.
// The check runs before any provider call.
var ErrEmptyText = errors.New("embedding requested for empty text")

// IndexedVector pairs an embedding with the position of its source text in
// the input batch, since failed items are skipped rather than zero-filled.
type IndexedVector struct {
	Index  int
	Vector []float32
}

// Embedder turns text into vectors through an llm.Provider.
type Embedder struct {
	provider llm.Provider
	logger   *slog.Logger
}

// NewEmbedder creates an embedder on top of the given provider.
func NewEmbedder(provider llm.Provider, logger *slog.Logger) *Embedder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Embedder{provider: provider, logger: logger}
}

// EmbedOne embeds a single text.
func (e *Embedder) EmbedOne(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyText
	}
	vecs, err := e.provider.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vecs) != 1 {
		return nil, fmt.Errorf("provider returned %d vectors for 1 text", len(vecs))
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts as one provider call when possible. When the batch
// call fails it falls back to per-item calls so a single bad input cannot
// sink the rest; failed items are logged and skipped.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) []IndexedVector {
	indexed := make([]int, 0, len(texts))
	clean := make([]string, 0, len(texts))
	for i, t := range texts {
		if t == "" {
			e.logger.Warn("skipping empty text in embedding batch", "index", i)
			continue
		}
		indexed = append(indexed, i)
		clean = append(clean, t)
	}
	if len(clean) == 0 {
		return nil
	}

	vecs, err := e.provider.Embed(ctx, clean)
	if err == nil && len(vecs) == len(clean) {
		out := make([]IndexedVector, len(vecs))
		for i, v := range vecs {
			out[i] = IndexedVector{Index: indexed[i], Vector: v}
		}
		return out
	}
	if err != nil {
		e.logger.Warn("batch embedding failed, retrying per item", "count", len(clean), "error", err)
	}

	var out []IndexedVector
	for i, t := range clean {
		v, err := e.EmbedOne(ctx, t)
		if err != nil {
			e.logger.Warn("embedding failed, item skipped", "index", indexed[i], "error", err)
			continue
		}
		out = append(out, IndexedVector{Index: indexed[i], Vector: v})
	}
	return out
}
