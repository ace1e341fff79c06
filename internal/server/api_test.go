package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/medialens/medialens/internal/config"
	"github.com/medialens/medialens/internal/llm"
	"github.com/medialens/medialens/internal/perception"
	"github.com/medialens/medialens/internal/pipeline"
	"github.com/medialens/medialens/internal/search"
	"github.com/medialens/medialens/internal/vector"
)

type stubProvider struct{}

func (stubProvider) Complete(_ context.Context, _ *llm.Prompt, _ *llm.RequestOptions) (*llm.Response, error) {
	return &llm.Response{Content: "a description"}, nil
}

func (stubProvider) Embed(_ context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i := range out {
		out[i] = []float32{1, 0}
	}
	return out, nil
}

func (stubProvider) Transcribe(_ context.Context, _ string) (string, error) { return "words.", nil }
func (stubProvider) Name() string                                           { return "stub" }

type apiStore struct {
	records map[string]vector.Record
	matches []vector.Match
}

func newAPIStore() *apiStore { return &apiStore{records: make(map[string]vector.Record)} }

func (s *apiStore) Upsert(_ context.Context, records []vector.Record) error {
	for _, r := range records {
		s.records[r.ID] = r
	}
	return nil
}

func (s *apiStore) Query(_ context.Context, _ []float32, _ int, _ vector.Filter) ([]vector.Match, error) {
	return s.matches, nil
}

func (s *apiStore) Stats(_ context.Context) (*vector.Stats, error) {
	return &vector.Stats{Namespace: "media", Count: uint64(len(s.records))}, nil
}

func (s *apiStore) Clear(_ context.Context) error {
	s.records = make(map[string]vector.Record)
	return nil
}

func (s *apiStore) Close() error { return nil }

func newTestServer(t *testing.T, store *apiStore) *httptest.Server {
	t.Helper()
	provider := stubProvider{}
	embedder := vector.NewEmbedder(provider, nil)
	p := pipeline.New(
		perception.New(provider, nil),
		embedder,
		store,
		nil, nil,
		config.ChunkConfig{},
		config.IngestConfig{},
		nil,
	)
	health := NewHealthServer()
	health.SetReady(true)
	api := NewAPI(p, search.New(embedder, store, nil), store, health, nil)
	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postJSON(t *testing.T, url, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func TestProcessMedia_UnknownType(t *testing.T) {
	srv := newTestServer(t, newAPIStore())

	resp := postJSON(t, srv.URL+"/process/media", `{"file_url":"/a.bin","file_type":"hologram"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("expected 422, got %d", resp.StatusCode)
	}
}

func TestProcessMedia_Image(t *testing.T) {
	store := newAPIStore()
	srv := newTestServer(t, store)

	path := filepath.Join(t.TempDir(), "cat.jpg")
	if err := os.WriteFile(path, []byte("jpeg-bytes"), 0o644); err != nil {
		t.Fatal(err)
	}

	resp := postJSON(t, srv.URL+"/process/media",
		`{"file_url":"`+path+`","file_type":"image"}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(store.records) == 0 {
		t.Error("expected vectors stored")
	}

	var body struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Status != "success" {
		t.Errorf("unexpected status %q", body.Status)
	}
}

func TestSearch(t *testing.T) {
	store := newAPIStore()
	store.matches = []vector.Match{
		{ID: "a_image_caption", Score: 0.9, Payload: map[string]string{
			"file_path": "/a.jpg", "type": "image",
		}},
	}
	srv := newTestServer(t, store)

	resp := postJSON(t, srv.URL+"/search", `{"query":"강아지 사진","top_k":5}`)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var body struct {
		Count   int `json:"count"`
		Results []struct {
			ID    string  `json:"id"`
			Score float32 `json:"score"`
		} `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 1 || body.Results[0].ID != "a_image_caption" {
		t.Errorf("unexpected body: %+v", body)
	}
}

func TestReset(t *testing.T) {
	store := newAPIStore()
	store.records["x"] = vector.Record{ID: "x"}
	srv := newTestServer(t, store)

	req, _ := http.NewRequest(http.MethodDelete, srv.URL+"/reset", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if len(store.records) != 0 {
		t.Error("expected store cleared")
	}
}

func TestRootAndProbes(t *testing.T) {
	srv := newTestServer(t, newAPIStore())

	for _, path := range []string{"/", "/health", "/ready", "/live"} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, resp.StatusCode)
		}
	}
}

func TestStats(t *testing.T) {
	store := newAPIStore()
	store.records["x"] = vector.Record{ID: "x"}
	srv := newTestServer(t, store)

	resp, err := http.Get(srv.URL + "/stats")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var stats vector.Stats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		t.Fatal(err)
	}
	if stats.Count != 1 {
		t.Errorf("expected count 1, got %d", stats.Count)
	}
}
