// Package retrieval runs semantic queries against the vector index and
// decodes the stored payloads back into typed records.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/ecosync/phenology/internal/domain"
	"github.com/ecosync/phenology/internal/observability"
)

// DefaultLimit caps result sets when the caller does not specify one.
const DefaultLimit = 200

// Retriever embeds query text and searches a collection.
type Retriever struct {
	embedder domain.Embedder
	index    domain.VectorIndex
	limit    int
	logger   *slog.Logger
	metrics  *observability.Metrics
}

// New creates a Retriever. limit <= 0 falls back to DefaultLimit.
func New(embedder domain.Embedder, index domain.VectorIndex, limit int,
	logger *slog.Logger, metrics *observability.Metrics) *Retriever {
	if limit <= 0 {
		limit = DefaultLimit
	}
	return &Retriever{
		embedder: embedder,
		index:    index,
		limit:    limit,
		logger:   logger,
		metrics:  metrics,
	}
}

// Search embeds the query and returns the raw scored records, ordered by
// descending similarity. limit <= 0 uses the retriever's default.
func (r *Retriever) Search(ctx context.Context, collection, query string, limit int, filter domain.Filter) ([]domain.ScoredRecord, error) {
	if limit <= 0 {
		limit = r.limit
	}

	start := time.Now()
	records, err := r.search(ctx, collection, query, limit, filter)
	r.metrics.RetrievalSeconds.Observe(time.Since(start).Seconds())
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	r.metrics.Retrievals.WithLabelValues(collection, outcome).Inc()
	return records, err
}

func (r *Retriever) search(ctx context.Context, collection, query string, limit int, filter domain.Filter) ([]domain.ScoredRecord, error) {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	records, err := r.index.Query(ctx, collection, vector, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	r.logger.Debug("retrieved records", "collection", collection, "count", len(records))
	return records, nil
}

// Observations searches the observation collection and decodes the hits.
func (r *Retriever) Observations(ctx context.Context, query string, limit int, filter domain.Filter) ([]domain.Observation, error) {
	records, err := r.Search(ctx, domain.CollectionObservations, query, limit, filter)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.Observation](records)
}

// Shifts searches the temporal-patterns collection and decodes the hits.
func (r *Retriever) Shifts(ctx context.Context, query string, limit int, filter domain.Filter) ([]domain.PhenologyShift, error) {
	records, err := r.Search(ctx, domain.CollectionPatterns, query, limit, filter)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.PhenologyShift](records)
}

// Climate searches the climate collection and decodes the hits.
func (r *Retriever) Climate(ctx context.Context, query string, limit int, filter domain.Filter) ([]domain.ClimateSignal, error) {
	records, err := r.Search(ctx, domain.CollectionClimate, query, limit, filter)
	if err != nil {
		return nil, err
	}
	return decodeAll[domain.ClimateSignal](records)
}

// Facts searches the species-metadata collection and returns the stored
// fact sentences.
func (r *Retriever) Facts(ctx context.Context, query string, limit int) ([]string, error) {
	records, err := r.Search(ctx, domain.CollectionMetadata, query, limit, nil)
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(records))
	for _, rec := range records {
		if text, ok := rec.Payload["text"].(string); ok {
			texts = append(texts, text)
		}
	}
	return texts, nil
}

// decodeAll converts generic payload maps back into typed records through
// their JSON field names. A record that does not decode fails the batch;
// payload schema drift should be loud, not silently dropped.
func decodeAll[T any](records []domain.ScoredRecord) ([]T, error) {
	out := make([]T, len(records))
	for i, rec := range records {
		data, err := json.Marshal(rec.Payload)
		if err != nil {
			return nil, fmt.Errorf("re-encode payload %d: %w", rec.ID, err)
		}
		if err := json.Unmarshal(data, &out[i]); err != nil {
			return nil, fmt.Errorf("decode payload %d: %w", rec.ID, err)
		}
	}
	return out, nil
}
