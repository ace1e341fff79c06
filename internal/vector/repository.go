package vector

import "context"

// Record is an embedded piece of content with its flat payload.
type Record struct {
	ID      string
	Vector  []float32
	Payload map[string]string
}

// Match is a single hit from a similarity query.
type Match struct {
	ID      string
	Score   float32
	Payload map[string]string
}

// Filter restricts a query to records whose payload matches every entry.
// A nil or empty filter matches everything.
type Filter map[string]string

// Stats summarizes a namespace.
type Stats struct {
	Namespace string
	Count     uint64
	Dimension int
}

// Store provides vector persistence and similarity search. Implementations
// must be safe for concurrent use and upserts must be idempotent on ID.
type Store interface {
	// Upsert inserts or replaces records by ID.
	Upsert(ctx context.Context, records []Record) error
	// Query finds the topK most similar records, optionally filtered.
	Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Match, error)
	// Stats reports the record count for the namespace.
	Stats(ctx context.Context) (*Stats, error)
	// Clear removes every record in the namespace.
	Clear(ctx context.Context) error
	// Close releases resources.
	Close() error
}
