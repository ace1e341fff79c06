package vector

import (
	"context"
	"testing"
)

func newTestStore(t *testing.T) *EmbeddedStore {
	t.Helper()
	s, err := NewEmbedded("test", 2)
	if err != nil {
		t.Fatalf("NewEmbedded: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEmbedded_UpsertAndQuery(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, []Record{
		{ID: "a_image", Vector: []float32{1, 0}, Payload: map[string]string{"type": "image", "file_path": "/a.jpg"}},
		{ID: "b_image", Vector: []float32{0, 1}, Payload: map[string]string{"type": "image", "file_path": "/b.jpg"}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	matches, err := s.Query(ctx, []float32{1, 0}, 2, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "a_image" {
		t.Errorf("expected closest match a_image, got %q", matches[0].ID)
	}
	if matches[0].Score <= matches[1].Score {
		t.Errorf("scores not descending: %f <= %f", matches[0].Score, matches[1].Score)
	}
	if matches[0].Payload["file_path"] != "/a.jpg" {
		t.Errorf("payload lost: %+v", matches[0].Payload)
	}
}

func TestEmbedded_UpsertIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	rec := Record{ID: "a_image", Vector: []float32{1, 0}, Payload: map[string]string{"v": "1"}}
	if err := s.Upsert(ctx, []Record{rec}); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	rec.Payload = map[string]string{"v": "2"}
	if err := s.Upsert(ctx, []Record{rec}); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Count != 1 {
		t.Errorf("expected 1 record after re-upsert, got %d", stats.Count)
	}

	matches, err := s.Query(ctx, []float32{1, 0}, 1, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 1 || matches[0].Payload["v"] != "2" {
		t.Errorf("expected updated payload, got %+v", matches)
	}
}

func TestEmbedded_QueryWithFilter(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, []Record{
		{ID: "a_image", Vector: []float32{1, 0}, Payload: map[string]string{"type": "image"}},
		{ID: "b_video", Vector: []float32{1, 0.1}, Payload: map[string]string{"type": "video"}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	matches, err := s.Query(ctx, []float32{1, 0}, 10, Filter{"type": "video"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 1 || matches[0].ID != "b_video" {
		t.Errorf("filter not applied: %+v", matches)
	}
}

func TestEmbedded_Clear(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	err := s.Upsert(ctx, []Record{
		{ID: "a_image", Vector: []float32{1, 0}},
		{ID: "b_image", Vector: []float32{0, 1}},
	})
	if err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	if err := s.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	stats, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Count != 0 {
		t.Errorf("expected empty store after Clear, got %d", stats.Count)
	}
}
