package domain

import "context"

// Vector-index collection names. One collection per record kind.
const (
	CollectionObservations = "observations"
	CollectionClimate      = "climate_data"
	CollectionPatterns     = "temporal_patterns"
	CollectionMetadata     = "species_metadata"
)

// Collections lists every collection the service manages.
func Collections() []string {
	return []string{
		CollectionObservations,
		CollectionClimate,
		CollectionPatterns,
		CollectionMetadata,
	}
}

// Embedder converts text into a fixed-length numeric vector. Deterministic
// for identical text and model version.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Point is one record destined for the vector index.
type Point struct {
	ID      uint64
	Vector  []float32
	Payload map[string]any
}

// ScoredRecord is one similarity-search result, ordered by descending score.
type ScoredRecord struct {
	ID      uint64
	Score   float64
	Payload map[string]any
}

// Match is one exact-match condition on a named payload field.
type Match struct {
	Key   string
	Value any
}

// Filter is a conjunction of exact-match conditions, applied by the index
// before ranking and truncation.
type Filter []Match

// VectorIndex is the external vector store. Cosine similarity throughout;
// implementations own persistence and search.
type VectorIndex interface {
	EnsureCollection(ctx context.Context, name string, vectorSize int) error
	DeleteCollection(ctx context.Context, name string) error
	Upsert(ctx context.Context, collection string, points []Point) error
	Query(ctx context.Context, collection string, vector []float32, limit int, filter Filter) ([]ScoredRecord, error)
	Stats(ctx context.Context, collection string) (int, error)
}
