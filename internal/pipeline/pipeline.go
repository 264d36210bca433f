// Package pipeline orchestrates the ingestion run: read raw files,
// normalize, embed, and load the four vector-index collections, then run
// the mismatch analysis over the known species relationships.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/ecosync/phenology/internal/domain"
	"github.com/ecosync/phenology/internal/ecology"
	"github.com/ecosync/phenology/internal/observability"
)

// RecordSource reads raw observation rows from the data directory.
type RecordSource interface {
	ReadObservations() ([]domain.RawRecord, error)
}

// ClimateSource reads daily climate records from a file.
type ClimateSource interface {
	ReadClimate(path string) ([]domain.DailyClimate, error)
}

// FindingsPublisher delivers mismatch findings to downstream consumers.
// Optional; a nil publisher disables publishing.
type FindingsPublisher interface {
	PublishFindings(ctx context.Context, findings []domain.MismatchFinding) error
}

// Options are the tunables of one ingestion run.
type Options struct {
	BatchSize       int
	VectorSize      int
	ClimateFile     string
	Normalize       domain.NormalizeOptions
	BaselineYears   []int
	CurrentYears    []int
	MinObservations int
	AnalysisYear    int
}

// Pipeline runs the full ingest-and-analyze cycle.
type Pipeline struct {
	records   RecordSource
	climate   ClimateSource
	embedder  domain.Embedder
	index     domain.VectorIndex
	facts     *ecology.Facts
	publisher FindingsPublisher
	opts      Options
	logger    *slog.Logger
	metrics   *observability.Metrics
	ready     atomic.Bool
}

// New creates a Pipeline with the given stages and observability.
func New(records RecordSource, climate ClimateSource, embedder domain.Embedder, index domain.VectorIndex,
	facts *ecology.Facts, publisher FindingsPublisher, opts Options,
	logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		records:   records,
		climate:   climate,
		embedder:  embedder,
		index:     index,
		facts:     facts,
		publisher: publisher,
		opts:      opts,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once the pipeline has completed a run, or an
// error describing why the service is not yet ready.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("ingestion has not completed yet")
	}
	return nil
}

// CollectionCounts reports the point count of every managed collection.
func (p *Pipeline) CollectionCounts(ctx context.Context) (map[string]int, error) {
	counts := make(map[string]int)
	for _, name := range domain.Collections() {
		count, err := p.index.Stats(ctx, name)
		if err != nil {
			return nil, err
		}
		counts[name] = count
	}
	return counts, nil
}

// Run executes one full ingestion and analysis cycle. Point ids are
// deterministic, so re-running over the same inputs overwrites rather
// than duplicates.
func (p *Pipeline) Run(ctx context.Context) error {
	p.metrics.IngestRunning.Set(1)
	defer p.metrics.IngestRunning.Set(0)

	for _, name := range domain.Collections() {
		if err := p.index.EnsureCollection(ctx, name, p.opts.VectorSize); err != nil {
			return fmt.Errorf("ensure collections: %w", err)
		}
	}

	observations, err := p.ingestObservations(ctx)
	if err != nil {
		return err
	}

	signals, err := p.ingestClimate(ctx)
	if err != nil {
		return err
	}

	shifts, err := p.ingestShifts(ctx, observations)
	if err != nil {
		return err
	}

	if err := p.ingestFacts(ctx); err != nil {
		return err
	}

	findings, err := p.analyzeMismatches(ctx, observations, shifts, signals)
	if err != nil {
		return err
	}

	if p.publisher != nil && len(findings) > 0 {
		if err := p.publisher.PublishFindings(ctx, findings); err != nil {
			return fmt.Errorf("publish findings: %w", err)
		}
	}

	p.ready.Store(true)
	p.logger.Info("ingestion complete",
		"observations", len(observations),
		"climate_signals", len(signals),
		"shifts", len(shifts),
		"findings", len(findings),
	)
	return nil
}

// ingestObservations reads, normalizes, embeds, and loads the observation
// collection, and returns the normalized set for the analysis stages.
func (p *Pipeline) ingestObservations(ctx context.Context) ([]domain.Observation, error) {
	raw, err := p.records.ReadObservations()
	if err != nil {
		return nil, fmt.Errorf("read observations: %w", err)
	}
	p.metrics.RecordsRead.Add(float64(len(raw)))

	result, err := domain.Normalize(raw, p.facts.Table(), p.opts.Normalize)
	if err != nil {
		return nil, fmt.Errorf("normalize: %w", err)
	}
	p.metrics.RecordsNormalized.Add(float64(len(result.Observations)))
	p.recordDrops(result.Dropped)
	p.logger.Info("normalized observations",
		"read", len(raw),
		"kept", len(result.Observations),
		"dropped", result.Dropped.Total(),
	)

	points := make([]domain.Point, 0, len(result.Observations))
	for _, obs := range result.Observations {
		payload, err := toPayload(obs)
		if err != nil {
			return nil, fmt.Errorf("observation payload: %w", err)
		}
		points = append(points, domain.Point{
			ID:      domain.ObservationPointID(obs.ID),
			Payload: payload,
		})
	}
	texts := make([]string, len(result.Observations))
	for i, obs := range result.Observations {
		texts[i] = domain.ObservationText(obs)
	}
	if err := p.loadPoints(ctx, domain.CollectionObservations, points, texts); err != nil {
		return nil, err
	}
	return result.Observations, nil
}

// ingestClimate loads monthly climate signals. A blank climate file path
// skips the stage.
func (p *Pipeline) ingestClimate(ctx context.Context) ([]domain.ClimateSignal, error) {
	if p.opts.ClimateFile == "" {
		p.logger.Info("no climate file configured, skipping climate ingestion")
		return nil, nil
	}

	daily, err := p.climate.ReadClimate(p.opts.ClimateFile)
	if err != nil {
		return nil, fmt.Errorf("read climate: %w", err)
	}

	signals, err := domain.ComputeClimateSignals(daily, p.opts.BaselineYears)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientData) {
			p.logger.Warn("climate data insufficient, skipping climate ingestion", "error", err)
			return nil, nil
		}
		return nil, fmt.Errorf("compute climate signals: %w", err)
	}

	points := make([]domain.Point, len(signals))
	texts := make([]string, len(signals))
	for i, sig := range signals {
		payload, err := toPayload(sig)
		if err != nil {
			return nil, fmt.Errorf("climate payload: %w", err)
		}
		points[i] = domain.Point{ID: domain.ClimatePointID(sig.Year, sig.Month), Payload: payload}
		texts[i] = domain.ClimateText(sig)
	}
	if err := p.loadPoints(ctx, domain.CollectionClimate, points, texts); err != nil {
		return nil, err
	}
	return signals, nil
}

// ingestShifts computes the baseline-to-current shift per species and loads
// the temporal-patterns collection. Species without enough observations in
// either period are skipped, never written with fabricated zeros.
func (p *Pipeline) ingestShifts(ctx context.Context, observations []domain.Observation) (map[string]*domain.PhenologyShift, error) {
	bySpecies := make(map[string][]domain.Observation)
	for _, obs := range observations {
		bySpecies[obs.SpeciesKey] = append(bySpecies[obs.SpeciesKey], obs)
	}

	shifts := make(map[string]*domain.PhenologyShift)
	var points []domain.Point
	var texts []string
	for _, sp := range p.facts.Species {
		shift, err := domain.ComputeShift(bySpecies[sp.Key], p.opts.BaselineYears, p.opts.CurrentYears, p.opts.MinObservations)
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientData) {
				p.logger.Warn("shift undefined", "species", sp.Key, "error", err)
				continue
			}
			return nil, fmt.Errorf("compute shift for %s: %w", sp.Key, err)
		}
		shifts[sp.Key] = shift

		payload, err := toPayload(shift)
		if err != nil {
			return nil, fmt.Errorf("shift payload: %w", err)
		}
		points = append(points, domain.Point{ID: domain.ShiftPointID(sp.Key), Payload: payload})
		texts = append(texts, domain.ShiftText(*shift))
	}
	if err := p.loadPoints(ctx, domain.CollectionPatterns, points, texts); err != nil {
		return nil, err
	}
	return shifts, nil
}

// ingestFacts loads the relationship sentences into the species-metadata
// collection so general queries can surface ecological context.
func (p *Pipeline) ingestFacts(ctx context.Context) error {
	points := make([]domain.Point, len(p.facts.Relationships))
	texts := make([]string, len(p.facts.Relationships))
	for i, rel := range p.facts.Relationships {
		payload, err := toPayload(rel)
		if err != nil {
			return fmt.Errorf("relationship payload: %w", err)
		}
		text := rel.Text()
		payload["text"] = text
		points[i] = domain.Point{ID: domain.FactPointID(text), Payload: payload}
		texts[i] = text
	}
	return p.loadPoints(ctx, domain.CollectionMetadata, points, texts)
}

func (p *Pipeline) recordDrops(dropped domain.DropCounts) {
	for reason, count := range map[string]int{
		"missing_date":      dropped.MissingDate,
		"date_out_of_range": dropped.DateOutOfRange,
		"bad_coordinates":   dropped.BadCoordinates,
		"out_of_region":     dropped.OutOfRegion,
		"duplicate":         dropped.Duplicate,
		"unknown_species":   dropped.UnknownSpecies,
	} {
		if count > 0 {
			p.metrics.RecordsDropped.WithLabelValues(reason).Add(float64(count))
		}
	}
}
