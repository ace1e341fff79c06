package vector

import (
	"context"
	"fmt"
	"sync"

	"github.com/hupe1980/vecgo"
	"github.com/hupe1980/vecgo/metadata"
)

// EmbeddedStore implements Store on an in-process vecgo flat index with
// cosine distance. It exists for single-node deployments and tests where
// running Qdrant is not worth the setup.
//
// vecgo assigns numeric IDs on insert, so the store keeps a logical-ID map
// to make upserts idempotent.
type EmbeddedStore struct {
	db        *vecgo.Vecgo[string]
	namespace string
	dimension int

	mu  sync.Mutex
	ids map[string]uint64
}

// NewEmbedded builds an empty in-memory store.
func NewEmbedded(namespace string, dimension int) (*EmbeddedStore, error) {
	db, err := vecgo.Flat[string](dimension).Cosine().Build()
	if err != nil {
		return nil, fmt.Errorf("building embedded index: %w", err)
	}
	return &EmbeddedStore{
		db:        db,
		namespace: namespace,
		dimension: dimension,
		ids:       make(map[string]uint64),
	}, nil
}

func (s *EmbeddedStore) Upsert(ctx context.Context, records []Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, rec := range records {
		meta := make(metadata.Metadata, len(rec.Payload)+1)
		meta[recordIDKey] = metadata.String(rec.ID)
		for k, v := range rec.Payload {
			meta[k] = metadata.String(v)
		}
		item := vecgo.VectorWithData[string]{
			Vector:   rec.Vector,
			Data:     rec.ID,
			Metadata: meta,
		}

		if existing, ok := s.ids[rec.ID]; ok {
			if err := s.db.Update(ctx, existing, item); err != nil {
				return fmt.Errorf("updating %s: %w", rec.ID, err)
			}
			continue
		}

		id, err := s.db.Insert(ctx, item)
		if err != nil {
			return fmt.Errorf("inserting %s: %w", rec.ID, err)
		}
		s.ids[rec.ID] = id
	}
	return nil
}

func (s *EmbeddedStore) Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error) {
	q := s.db.Search(vector).KNN(topK)
	if len(filter) > 0 {
		filters := make([]metadata.Filter, 0, len(filter))
		for k, v := range filter {
			filters = append(filters, metadata.Filter{
				Key:      k,
				Operator: metadata.OpEqual,
				Value:    metadata.String(v),
			})
		}
		q = q.WithMetadata(metadata.NewFilterSet(filters...))
	}

	results, err := q.Execute(ctx)
	if err != nil {
		return nil, fmt.Errorf("embedded search: %w", err)
	}

	matches := make([]Match, 0, len(results))
	for _, r := range results {
		payload := make(map[string]string, len(r.Metadata))
		for k, v := range r.Metadata {
			if k == recordIDKey {
				continue
			}
			if sv, ok := v.AsString(); ok {
				payload[k] = sv
			}
		}
		matches = append(matches, Match{
			ID: r.Data,
			// Cosine distance back to similarity.
			Score:   1 - r.Distance,
			Payload: payload,
		})
	}
	return matches, nil
}

func (s *EmbeddedStore) Stats(context.Context) (*Stats, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return &Stats{
		Namespace: s.namespace,
		Count:     uint64(len(s.ids)),
		Dimension: s.dimension,
	}, nil
}

func (s *EmbeddedStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for logical, id := range s.ids {
		if err := s.db.Delete(ctx, id); err != nil {
			return fmt.Errorf("deleting %s: %w", logical, err)
		}
		delete(s.ids, logical)
	}
	return nil
}

func (s *EmbeddedStore) Close() error {
	return s.db.Close()
}
