// Package qdrant implements domain.VectorIndex against the Qdrant REST API.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/ecosync/phenology/internal/domain"
)

// Client talks to a Qdrant instance over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a Qdrant client for the given base URL.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// EnsureCollection creates the collection with cosine distance if it does
// not already exist.
func (c *Client) EnsureCollection(ctx context.Context, name string, vectorSize int) error {
	exists, err := c.collectionExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	body := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	if err := c.doJSON(ctx, http.MethodPut, c.collectionURL(name), body, nil); err != nil {
		return fmt.Errorf("create collection %s: %w", name, err)
	}
	c.logger.Info("created collection", "collection", name, "vector_size", vectorSize)
	return nil
}

// DeleteCollection removes the collection. Deleting a collection that does
// not exist is not an error.
func (c *Client) DeleteCollection(ctx context.Context, name string) error {
	err := c.doJSON(ctx, http.MethodDelete, c.collectionURL(name), nil, nil)
	if err != nil {
		var statusErr *statusError
		if errors.As(err, &statusErr) && statusErr.code == http.StatusNotFound {
			return nil
		}
		return fmt.Errorf("delete collection %s: %w", name, err)
	}
	return nil
}

// Upsert writes a batch of points. Point ids are deterministic, so
// re-ingesting the same records overwrites the same points.
func (c *Client) Upsert(ctx context.Context, collection string, points []domain.Point) error {
	if len(points) == 0 {
		return nil
	}

	type wirePoint struct {
		ID      uint64         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}
	wire := make([]wirePoint, len(points))
	for i, p := range points {
		wire[i] = wirePoint{ID: p.ID, Vector: p.Vector, Payload: p.Payload}
	}

	u := c.collectionURL(collection) + "/points?wait=true"
	if err := c.doJSON(ctx, http.MethodPut, u, map[string]any{"points": wire}, nil); err != nil {
		return fmt.Errorf("upsert %d points into %s: %w", len(points), collection, err)
	}
	c.logger.Debug("upserted points", "collection", collection, "count", len(points))
	return nil
}

// Query runs a similarity search, optionally narrowed by an exact-match
// conjunctive filter applied before ranking and truncation. Results come
// back ordered by descending score.
func (c *Client) Query(ctx context.Context, collection string, vector []float32, limit int, filter domain.Filter) ([]domain.ScoredRecord, error) {
	body := map[string]any{
		"query":        vector,
		"limit":        limit,
		"with_payload": true,
	}
	if len(filter) > 0 {
		must := make([]map[string]any, len(filter))
		for i, m := range filter {
			must[i] = map[string]any{
				"key":   m.Key,
				"match": map[string]any{"value": m.Value},
			}
		}
		body["filter"] = map[string]any{"must": must}
	}

	var resp struct {
		Result struct {
			Points []struct {
				ID      uint64         `json:"id"`
				Score   float64        `json:"score"`
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	u := c.collectionURL(collection) + "/points/query"
	if err := c.doJSON(ctx, http.MethodPost, u, body, &resp); err != nil {
		return nil, fmt.Errorf("query collection %s: %w", collection, err)
	}

	records := make([]domain.ScoredRecord, len(resp.Result.Points))
	for i, p := range resp.Result.Points {
		records[i] = domain.ScoredRecord{ID: p.ID, Score: p.Score, Payload: p.Payload}
	}
	return records, nil
}

// Stats returns the collection's point count.
func (c *Client) Stats(ctx context.Context, collection string) (int, error) {
	var resp struct {
		Result struct {
			PointsCount int `json:"points_count"`
		} `json:"result"`
	}
	if err := c.doJSON(ctx, http.MethodGet, c.collectionURL(collection), nil, &resp); err != nil {
		return 0, fmt.Errorf("collection stats %s: %w", collection, err)
	}
	return resp.Result.PointsCount, nil
}

func (c *Client) collectionExists(ctx context.Context, name string) (bool, error) {
	err := c.doJSON(ctx, http.MethodGet, c.collectionURL(name), nil, nil)
	if err != nil {
		var statusErr *statusError
		if errors.As(err, &statusErr) && statusErr.code == http.StatusNotFound {
			return false, nil
		}
		return false, fmt.Errorf("check collection %s: %w", name, err)
	}
	return true, nil
}

func (c *Client) collectionURL(name string) string {
	return fmt.Sprintf("%s/collections/%s", c.baseURL, url.PathEscape(name))
}

// doJSON issues a request with an optional JSON body and decodes the
// response into out when non-nil.
func (c *Client) doJSON(ctx context.Context, method, fullURL string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(resp.Body)
		return &statusError{code: resp.StatusCode, body: string(data)}
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// statusError carries a non-success HTTP status so callers can branch on it.
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("qdrant API error: status %d: %s", e.code, e.body)
}
