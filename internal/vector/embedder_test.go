package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/medialens/medialens/internal/llm"
)

// fakeProvider embeds texts as unit vectors whose direction depends on the
// text length. failBatch makes multi-text calls fail, failTexts makes the
// named texts fail even individually.
type fakeProvider struct {
	failBatch bool
	failTexts map[string]bool
	calls     int
}

func (f *fakeProvider) Complete(_ context.Context, _ *llm.Prompt, _ *llm.RequestOptions) (*llm.Response, error) {
	return &llm.Response{Content: "ok"}, nil
}

func (f *fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.failBatch && len(texts) > 1 {
		return nil, errors.New("500 batch too large")
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if f.failTexts[t] {
			return nil, errors.New("400 bad input")
		}
		out[i] = []float32{float32(len(t)), 1}
	}
	return out, nil
}

func (f *fakeProvider) Transcribe(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (f *fakeProvider) Name() string { return "fake" }

func TestEmbedOne_EmptyText(t *testing.T) {
	p := &fakeProvider{}
	e := NewEmbedder(p, nil)

	_, err := e.EmbedOne(context.Background(), "")
	if !errors.Is(err, ErrEmptyText) {
		t.Fatalf("expected ErrEmptyText, got %v", err)
	}
	if p.calls != 0 {
		t.Errorf("provider called %d times for empty text", p.calls)
	}
}

func TestEmbedBatch_SingleCall(t *testing.T) {
	p := &fakeProvider{}
	e := NewEmbedder(p, nil)

	got := e.EmbedBatch(context.Background(), []string{"aa", "bbb"})
	if len(got) != 2 {
		t.Fatalf("expected 2 vectors, got %d", len(got))
	}
	if p.calls != 1 {
		t.Errorf("expected a single provider call, got %d", p.calls)
	}
	if got[0].Index != 0 || got[1].Index != 1 {
		t.Errorf("unexpected indices: %d, %d", got[0].Index, got[1].Index)
	}
}

func TestEmbedBatch_EmptyItemsSkipped(t *testing.T) {
	e := NewEmbedder(&fakeProvider{}, nil)

	got := e.EmbedBatch(context.Background(), []string{"", "aa", ""})
	if len(got) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(got))
	}
	if got[0].Index != 1 {
		t.Errorf("expected source index 1, got %d", got[0].Index)
	}
}

func TestEmbedBatch_FallsBackPerItem(t *testing.T) {
	p := &fakeProvider{failBatch: true, failTexts: map[string]bool{"bad": true}}
	e := NewEmbedder(p, nil)

	got := e.EmbedBatch(context.Background(), []string{"good", "bad", "fine"})
	if len(got) != 2 {
		t.Fatalf("expected 2 vectors after fallback, got %d", len(got))
	}
	if got[0].Index != 0 || got[1].Index != 2 {
		t.Errorf("unexpected surviving indices: %d, %d", got[0].Index, got[1].Index)
	}
}

func TestEmbedBatch_AllEmpty(t *testing.T) {
	e := NewEmbedder(&fakeProvider{}, nil)
	if got := e.EmbedBatch(context.Background(), []string{"", ""}); got != nil {
		t.Errorf("expected nil for all-empty batch, got %d vectors", len(got))
	}
}
