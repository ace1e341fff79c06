package search

import (
	"context"
	"testing"

	"github.com/medialens/medialens/internal/llm"
	"github.com/medialens/medialens/internal/vector"
)

type constantProvider struct {
	lastEmbedded []string
}

func (c *constantProvider) Complete(_ context.Context, _ *llm.Prompt, _ *llm.RequestOptions) (*llm.Response, error) {
	return &llm.Response{}, nil
}

func (c *constantProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	c.lastEmbedded = texts
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (c *constantProvider) Transcribe(_ context.Context, _ string) (string, error) {
	return "", nil
}

func (c *constantProvider) Name() string { return "constant" }

type fixedStore struct {
	matches    []vector.Match
	lastFilter vector.Filter
	lastTopK   int
}

func (f *fixedStore) Upsert(_ context.Context, _ []vector.Record) error { return nil }

func (f *fixedStore) Query(_ context.Context, _ []float32, topK int, filter vector.Filter) ([]vector.Match, error) {
	f.lastFilter = filter
	f.lastTopK = topK
	return f.matches, nil
}

func (f *fixedStore) Stats(_ context.Context) (*vector.Stats, error) { return &vector.Stats{}, nil }
func (f *fixedStore) Clear(_ context.Context) error                  { return nil }
func (f *fixedStore) Close() error                                   { return nil }

func match(id string, score float32, payload map[string]string) vector.Match {
	return vector.Match{ID: id, Score: score, Payload: payload}
}

func newSearcher(store vector.Store, provider llm.Provider) *Searcher {
	return New(vector.NewEmbedder(provider, nil), store, nil)
}

func TestInferType(t *testing.T) {
	tests := []struct {
		query    string
		wantText string
		wantType string
	}{
		{"강아지 사진", "강아지", "image"},
		{"바닷가 영상", "바닷가", "video"},
		{"강연 음성", "강연", "audio"},
		{"dog photo", "dog", "image"},
		{"beach video", "beach", "video"},
		{"lecture audio", "lecture", "audio"},
		{"그냥 검색어", "그냥 검색어", ""},
		{"사진", "", "image"},
		{"", "", ""},
	}
	for _, tt := range tests {
		gotText, gotType := InferType(tt.query)
		if gotText != tt.wantText || gotType != tt.wantType {
			t.Errorf("InferType(%q) = (%q, %q), want (%q, %q)",
				tt.query, gotText, gotType, tt.wantText, tt.wantType)
		}
	}
}

func TestSearch_TypeFilterAndStrip(t *testing.T) {
	provider := &constantProvider{}
	store := &fixedStore{}
	s := newSearcher(store, provider)

	_, err := s.Search(context.Background(), "강아지 사진", 10, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if store.lastFilter["type"] != "image" {
		t.Errorf("expected image filter, got %v", store.lastFilter)
	}
	if len(provider.lastEmbedded) != 1 || provider.lastEmbedded[0] != "강아지" {
		t.Errorf("keyword not stripped before embedding: %v", provider.lastEmbedded)
	}
}

func TestSearch_DedupKeepsBestScore(t *testing.T) {
	store := &fixedStore{matches: []vector.Match{
		match("a_video_0", 0.6, map[string]string{"file_path": "/clip.mp4", "type": "video"}),
		match("a_video_450", 0.9, map[string]string{"file_path": "/clip.mp4", "type": "video"}),
		match("b_image_caption", 0.7, map[string]string{"file_path": "/cat.jpg", "type": "image"}),
	}}
	s := newSearcher(store, &constantProvider{})

	got, err := s.Search(context.Background(), "query", 10, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 deduplicated results, got %d", len(got))
	}
	if got[0].ID != "a_video_450" || got[0].Score != 0.9 {
		t.Errorf("expected best-scoring duplicate first, got %+v", got[0])
	}
	if got[1].Locator != "/cat.jpg" {
		t.Errorf("unexpected second result: %+v", got[1])
	}
}

func TestSearch_ThresholdWithTagException(t *testing.T) {
	store := &fixedStore{matches: []vector.Match{
		match("hi", 0.8, map[string]string{"file_path": "/a.jpg", "type": "image"}),
		match("lo_tagged", 0.2, map[string]string{"file_path": "/b.jpg", "type": "image", "tags": "dog, park"}),
		match("lo_plain", 0.2, map[string]string{"file_path": "/c.jpg", "type": "image", "tags": "cat"}),
	}}
	s := newSearcher(store, &constantProvider{})

	got, err := s.Search(context.Background(), "dog", 10, 0.5)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected high match plus tag exception, got %d results", len(got))
	}
	if got[0].ID != "hi" || got[1].ID != "lo_tagged" {
		t.Errorf("unexpected ranking: %+v", got)
	}
}

func TestSearch_CapsAtTopK(t *testing.T) {
	var matches []vector.Match
	for i := 0; i < 9; i++ {
		matches = append(matches, match(
			string(rune('a'+i)), float32(9-i)/10,
			map[string]string{"file_path": "/" + string(rune('a'+i)), "type": "image"},
		))
	}
	store := &fixedStore{matches: matches}
	s := newSearcher(store, &constantProvider{})

	got, err := s.Search(context.Background(), "query", 3, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("expected 3 results, got %d", len(got))
	}
	if store.lastTopK != 9 {
		t.Errorf("expected over-fetch of 3x topK, got %d", store.lastTopK)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	s := newSearcher(&fixedStore{}, &constantProvider{})
	got, err := s.Search(context.Background(), "   ", 10, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected empty results for empty query, got %d", len(got))
	}
}

func TestSearch_NoMatches(t *testing.T) {
	s := newSearcher(&fixedStore{}, &constantProvider{})
	got, err := s.Search(context.Background(), "nothing here", 10, 0)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("expected non-nil empty slice, got %v", got)
	}
}
