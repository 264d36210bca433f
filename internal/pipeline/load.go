package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ecosync/phenology/internal/domain"
)

// loadPoints embeds each text and upserts the resulting points in batches.
// points and texts are parallel slices.
func (p *Pipeline) loadPoints(ctx context.Context, collection string, points []domain.Point, texts []string) error {
	if len(points) == 0 {
		return nil
	}

	for start := 0; start < len(points); start += p.opts.BatchSize {
		end := min(start+p.opts.BatchSize, len(points))
		batch := points[start:end]

		batchStart := time.Now()
		for i := range batch {
			vector, err := p.embedder.Embed(ctx, texts[start+i])
			if err != nil {
				return fmt.Errorf("embed for %s: %w", collection, err)
			}
			batch[i].Vector = vector
		}
		if err := p.index.Upsert(ctx, collection, batch); err != nil {
			return fmt.Errorf("upsert into %s: %w", collection, err)
		}

		p.metrics.BatchSize.Observe(float64(len(batch)))
		p.metrics.BatchUpsertSeconds.Observe(time.Since(batchStart).Seconds())
		p.metrics.PointsUpserted.WithLabelValues(collection).Add(float64(len(batch)))
	}

	p.logger.Debug("loaded collection", "collection", collection, "points", len(points))
	return nil
}

// toPayload converts a typed record into the generic payload map stored
// alongside its vector, using the record's JSON field names.
func toPayload(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, err
	}
	return payload, nil
}
