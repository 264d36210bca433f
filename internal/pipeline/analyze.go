package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/ecosync/phenology/internal/domain"
)

// analyzeMismatches runs the mismatch detection over every known
// consumer-resource relationship for the analysis year. Pairs without
// observations for both species that year are skipped.
func (p *Pipeline) analyzeMismatches(_ context.Context, observations []domain.Observation,
	shifts map[string]*domain.PhenologyShift, signals []domain.ClimateSignal) ([]domain.MismatchFinding, error) {

	byYearSpecies := make(map[string][]domain.Observation)
	for _, obs := range observations {
		if obs.Year == p.opts.AnalysisYear {
			byYearSpecies[obs.SpeciesKey] = append(byYearSpecies[obs.SpeciesKey], obs)
		}
	}

	climate := strongestAnomaly(signals, p.opts.AnalysisYear)

	var findings []domain.MismatchFinding
	for _, rel := range p.facts.Relationships {
		consumer, ok := p.facts.SpeciesByName(rel.Consumer)
		if !ok {
			return nil, fmt.Errorf("relationship references unknown species %q", rel.Consumer)
		}
		resource, ok := p.facts.SpeciesByName(rel.Resource)
		if !ok {
			return nil, fmt.Errorf("relationship references unknown species %q", rel.Resource)
		}

		finding, err := domain.DetectMismatch(
			byYearSpecies[consumer.Key],
			byYearSpecies[resource.Key],
			domain.MismatchContext{
				ShiftA:  shifts[consumer.Key],
				ShiftB:  shifts[resource.Key],
				Climate: climate,
				Year:    p.opts.AnalysisYear,
			},
		)
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientData) {
				p.logger.Warn("mismatch undefined for pair",
					"consumer", consumer.Key, "resource", resource.Key, "year", p.opts.AnalysisYear)
				continue
			}
			return nil, fmt.Errorf("detect mismatch %s/%s: %w", consumer.Key, resource.Key, err)
		}

		p.logger.Info("mismatch detected",
			"consumer", consumer.Key,
			"resource", resource.Key,
			"gap_days", finding.GapDays,
			"severity", finding.Severity,
		)
		findings = append(findings, finding)
	}
	return findings, nil
}

// strongestAnomaly picks the analysis-year monthly signal with the largest
// absolute temperature anomaly as the climate context for findings. Nil
// when no signal covers the year.
func strongestAnomaly(signals []domain.ClimateSignal, year int) *domain.ClimateSignal {
	var best *domain.ClimateSignal
	for i := range signals {
		if signals[i].Year != year {
			continue
		}
		if best == nil || math.Abs(signals[i].TempAnomaly) > math.Abs(best.TempAnomaly) {
			best = &signals[i]
		}
	}
	return best
}
