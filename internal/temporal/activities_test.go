package temporal

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/medialens/medialens/internal/config"
	"github.com/medialens/medialens/internal/llm"
	"github.com/medialens/medialens/internal/perception"
	"github.com/medialens/medialens/internal/pipeline"
	"github.com/medialens/medialens/internal/vector"
)

type fakeProvider struct{}

func (fakeProvider) Complete(_ context.Context, _ *llm.Prompt, _ *llm.RequestOptions) (*llm.Response, error) {
	return &llm.Response{Content: "a description"}, nil
}

func (fakeProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (fakeProvider) Transcribe(_ context.Context, _ string) (string, error) { return "words.", nil }
func (fakeProvider) Name() string                                           { return "fake" }

type fakeStore struct {
	records map[string]vector.Record
}

func (s *fakeStore) Upsert(_ context.Context, records []vector.Record) error {
	for _, r := range records {
		s.records[r.ID] = r
	}
	return nil
}

func (s *fakeStore) Query(_ context.Context, _ []float32, _ int, _ vector.Filter) ([]vector.Match, error) {
	return nil, nil
}

func (s *fakeStore) Stats(_ context.Context) (*vector.Stats, error) {
	return &vector.Stats{Count: uint64(len(s.records))}, nil
}

func (s *fakeStore) Clear(_ context.Context) error { return nil }
func (s *fakeStore) Close() error                  { return nil }

func setupTestDeps(t *testing.T) *fakeStore {
	t.Helper()
	provider := fakeProvider{}
	store := &fakeStore{records: make(map[string]vector.Record)}
	p := pipeline.New(
		perception.New(provider, nil),
		vector.NewEmbedder(provider, nil),
		store,
		nil, nil,
		config.ChunkConfig{},
		config.IngestConfig{},
		nil,
	)
	SetDependencies(&Dependencies{Pipeline: p})
	return store
}

func TestSetDependencies(t *testing.T) {
	setupTestDeps(t)
	if deps == nil || deps.Pipeline == nil {
		t.Fatal("SetDependencies did not set the pipeline")
	}
}

func TestClassifyMediaActivity(t *testing.T) {
	dir := t.TempDir()
	for name, content := range map[string]string{
		"a.jpg": "x",
		"b.mp4": "x",
		"c.mp3": "x",
		"d.txt": "x",
		"e.xyz": "x",
	} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	media, err := ClassifyMediaActivity(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("ClassifyMediaActivity: %v", err)
	}
	if len(media.Images) != 1 || len(media.Videos) != 1 || len(media.Audios) != 1 || len(media.Documents) != 1 {
		t.Errorf("unexpected classification: %+v", media)
	}
	if media.Skipped != 1 {
		t.Errorf("expected 1 skipped, got %d", media.Skipped)
	}
}

func TestIngestMediaActivity(t *testing.T) {
	store := setupTestDeps(t)

	path := filepath.Join(t.TempDir(), "cat.jpg")
	if err := os.WriteFile(path, []byte("jpeg-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	res, err := IngestMediaActivity(context.Background(), IngestItem{Path: path, Type: "image"})
	if err != nil {
		t.Fatalf("IngestMediaActivity: %v", err)
	}
	if res.Type != "image" || res.Vectors == 0 {
		t.Errorf("unexpected result %+v", res)
	}
	if len(store.records) == 0 {
		t.Error("expected vectors stored")
	}
}

func TestIngestMediaActivity_Failure(t *testing.T) {
	setupTestDeps(t)

	_, err := IngestMediaActivity(context.Background(), IngestItem{Path: "/does/not/exist.jpg", Type: "image"})
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestReleaseCacheActivity(t *testing.T) {
	setupTestDeps(t)
	if err := ReleaseCacheActivity(context.Background()); err != nil {
		t.Fatalf("ReleaseCacheActivity: %v", err)
	}
}
