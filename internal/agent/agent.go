// Package agent answers free-text questions about the study region's
// phenology. Queries are routed by a fixed keyword table to one of the
// analysis handlers; there is no generative model anywhere in the path, so
// identical questions over identical data give identical answers.
package agent

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"sort"
	"strings"

	"github.com/ecosync/phenology/internal/domain"
	"github.com/ecosync/phenology/internal/ecology"
	"github.com/ecosync/phenology/internal/report"
)

// observationLimit bounds per-species observation fetches during analysis.
const observationLimit = 500

// Searcher is the retrieval surface the agent needs. Implemented by
// retrieval.Retriever.
type Searcher interface {
	Observations(ctx context.Context, query string, limit int, filter domain.Filter) ([]domain.Observation, error)
	Shifts(ctx context.Context, query string, limit int, filter domain.Filter) ([]domain.PhenologyShift, error)
	Climate(ctx context.Context, query string, limit int, filter domain.Filter) ([]domain.ClimateSignal, error)
	Facts(ctx context.Context, query string, limit int) ([]string, error)
}

// Agent routes questions to analysis handlers.
type Agent struct {
	searcher     Searcher
	facts        *ecology.Facts
	analysisYear int
	logger       *slog.Logger
}

// New creates an Agent answering for the given analysis year.
func New(searcher Searcher, facts *ecology.Facts, analysisYear int, logger *slog.Logger) *Agent {
	return &Agent{
		searcher:     searcher,
		facts:        facts,
		analysisYear: analysisYear,
		logger:       logger,
	}
}

// Run reads questions line by line until EOF or a quit command.
func (a *Agent) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintln(out, "Ask about species timing, shifts, climate, or mismatches. Type 'quit' to exit.")
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		query := strings.TrimSpace(scanner.Text())
		if query == "" {
			continue
		}
		switch strings.ToLower(query) {
		case "quit", "exit", "q":
			return nil
		}
		if err := a.Answer(ctx, query, out); err != nil {
			a.logger.Error("answer failed", "query", query, "error", err)
			fmt.Fprintf(out, "Sorry, that failed: %v\n", err)
		}
	}
}

// Answer handles one question and writes the response.
func (a *Agent) Answer(ctx context.Context, query string, out io.Writer) error {
	intent := Classify(query)
	a.logger.Debug("classified query", "intent", intent, "query", query)

	switch intent {
	case IntentHowItWorks:
		return a.howItWorks(out)
	case IntentListSpecies:
		return a.listSpecies(out)
	case IntentOverview:
		return a.overview(ctx, out)
	case IntentExplainFailure, IntentExplainDecline, IntentShowMismatches:
		return a.explainMismatches(ctx, query, out)
	case IntentShowShifts:
		return a.showShifts(ctx, query, out)
	case IntentTiming:
		return a.timing(ctx, query, out)
	case IntentClimate:
		return a.climate(ctx, query, out)
	default:
		return a.generalSearch(ctx, query, out)
	}
}

func (a *Agent) howItWorks(out io.Writer) error {
	fmt.Fprintf(out, `This service detects phenological mismatches between interacting species.

Observations are normalized from citizen-science exports, embedded as text,
and stored in a vector index alongside monthly climate signals and per-species
timing shifts. A shift compares each species' median observation day between
the baseline and current year sets; a mismatch compares the %d median days of
two species that depend on each other. Gaps over 10 days are MODERATE, over
20 days SEVERE. Every answer is computed from stored data with fixed rules.
`, a.analysisYear)
	return nil
}

func (a *Agent) listSpecies(out io.Writer) error {
	fmt.Fprintf(out, "Tracking %d species:\n", len(a.facts.Species))
	for _, sp := range a.facts.Species {
		fmt.Fprintf(out, "  %s (%s, %s, %s)\n", sp.Name, sp.Key, sp.Category, sp.Role)
	}
	fmt.Fprintf(out, "\nKnown relationships:\n")
	for _, rel := range a.facts.Relationships {
		fmt.Fprintf(out, "  %s -> %s (%s)\n", rel.Consumer, rel.Resource, rel.Kind)
	}
	return nil
}

// overview prints a one-line verdict per known relationship.
func (a *Agent) overview(ctx context.Context, out io.Writer) error {
	fmt.Fprintf(out, "Mismatch overview for %d:\n", a.analysisYear)
	for _, rel := range a.facts.Relationships {
		finding, err := a.analyzePair(ctx, rel)
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientData) {
				fmt.Fprintf(out, "  %s -> %s: insufficient data\n", rel.Consumer, rel.Resource)
				continue
			}
			return err
		}
		fmt.Fprintf(out, "  %s -> %s: gap %.0f days (%s)\n",
			rel.Consumer, rel.Resource, math.Abs(finding.GapDays), finding.Severity)
	}
	return nil
}

// explainMismatches renders the full report for every relationship the
// query mentions, or all of them when no species is named.
func (a *Agent) explainMismatches(ctx context.Context, query string, out io.Writer) error {
	relationships := a.relationshipsFor(query)
	if len(relationships) == 0 {
		fmt.Fprintln(out, "No known relationship matches that question.")
		return nil
	}

	for _, rel := range relationships {
		finding, err := a.analyzePair(ctx, rel)
		if err != nil {
			if errors.Is(err, domain.ErrInsufficientData) {
				fmt.Fprintf(out, "Not enough %d observations to analyze %s and %s.\n",
					a.analysisYear, rel.Consumer, rel.Resource)
				continue
			}
			return err
		}
		fmt.Fprintln(out, report.Render(finding, a.facts))
	}
	return nil
}

func (a *Agent) showShifts(ctx context.Context, query string, out io.Writer) error {
	mentioned := a.speciesIn(query)

	var shifts []domain.PhenologyShift
	if len(mentioned) == 0 {
		all, err := a.searcher.Shifts(ctx, query, len(a.facts.Species), nil)
		if err != nil {
			return err
		}
		shifts = all
	} else {
		for _, sp := range mentioned {
			shift, err := a.shiftFor(ctx, sp.Key)
			if err != nil {
				return err
			}
			if shift != nil {
				shifts = append(shifts, *shift)
			}
		}
	}

	if len(shifts) == 0 {
		fmt.Fprintln(out, "No phenology shifts on record for that question.")
		return nil
	}

	sort.Slice(shifts, func(i, j int) bool {
		return math.Abs(shifts[i].ShiftDays) > math.Abs(shifts[j].ShiftDays)
	})
	fmt.Fprintln(out, "Phenology shifts (baseline vs current periods):")
	for _, shift := range shifts {
		fmt.Fprintf(out, "  %s\n", domain.ShiftText(shift))
	}
	return nil
}

// timing summarizes when the mentioned species are active in the analysis
// year: observation count, median day, and dominant season.
func (a *Agent) timing(ctx context.Context, query string, out io.Writer) error {
	mentioned := a.speciesIn(query)
	if len(mentioned) == 0 {
		return a.generalSearch(ctx, query, out)
	}

	for _, sp := range mentioned {
		observations, err := a.searcher.Observations(ctx, query, observationLimit, domain.Filter{
			{Key: "species_key", Value: sp.Key},
			{Key: "year", Value: a.analysisYear},
		})
		if err != nil {
			return err
		}
		if len(observations) == 0 {
			fmt.Fprintf(out, "%s: no %d observations on record.\n", sp.Name, a.analysisYear)
			continue
		}
		median, season := timingSummary(observations)
		fmt.Fprintf(out, "%s in %d: %d observations, median day %.0f, mostly %s season.\n",
			sp.Name, a.analysisYear, len(observations), median, season)
	}
	return nil
}

func (a *Agent) climate(ctx context.Context, query string, out io.Writer) error {
	signals, err := a.searcher.Climate(ctx, query, 12, domain.Filter{
		{Key: "year", Value: a.analysisYear},
	})
	if err != nil {
		return err
	}
	if len(signals) == 0 {
		fmt.Fprintf(out, "No climate signals on record for %d.\n", a.analysisYear)
		return nil
	}

	sort.Slice(signals, func(i, j int) bool { return signals[i].Month < signals[j].Month })
	fmt.Fprintf(out, "Climate signals for %d:\n", a.analysisYear)
	for _, sig := range signals {
		fmt.Fprintf(out, "  %s\n", domain.ClimateText(sig))
	}
	return nil
}

func (a *Agent) generalSearch(ctx context.Context, query string, out io.Writer) error {
	facts, err := a.searcher.Facts(ctx, query, 3)
	if err != nil {
		return err
	}
	observations, err := a.searcher.Observations(ctx, query, 5, nil)
	if err != nil {
		return err
	}

	if len(facts) == 0 && len(observations) == 0 {
		fmt.Fprintln(out, "Nothing on record matches that question.")
		return nil
	}
	for _, fact := range facts {
		fmt.Fprintf(out, "  %s\n", fact)
	}
	if len(observations) > 0 {
		fmt.Fprintln(out, "Closest matching observations:")
		for _, obs := range observations {
			fmt.Fprintf(out, "  %s\n", domain.ObservationText(obs))
		}
	}
	return nil
}

// analyzePair fetches both species' analysis-year observations plus the
// stored shift and climate evidence, then runs the mismatch detection.
func (a *Agent) analyzePair(ctx context.Context, rel ecology.Relationship) (domain.MismatchFinding, error) {
	consumer, ok := a.facts.SpeciesByName(rel.Consumer)
	if !ok {
		return domain.MismatchFinding{}, fmt.Errorf("unknown species %q", rel.Consumer)
	}
	resource, ok := a.facts.SpeciesByName(rel.Resource)
	if !ok {
		return domain.MismatchFinding{}, fmt.Errorf("unknown species %q", rel.Resource)
	}

	consumerObs, err := a.yearObservations(ctx, consumer)
	if err != nil {
		return domain.MismatchFinding{}, err
	}
	resourceObs, err := a.yearObservations(ctx, resource)
	if err != nil {
		return domain.MismatchFinding{}, err
	}

	shiftA, err := a.shiftFor(ctx, consumer.Key)
	if err != nil {
		return domain.MismatchFinding{}, err
	}
	shiftB, err := a.shiftFor(ctx, resource.Key)
	if err != nil {
		return domain.MismatchFinding{}, err
	}

	climate, err := a.strongestAnomaly(ctx)
	if err != nil {
		return domain.MismatchFinding{}, err
	}

	return domain.DetectMismatch(consumerObs, resourceObs, domain.MismatchContext{
		ShiftA:  shiftA,
		ShiftB:  shiftB,
		Climate: climate,
		Year:    a.analysisYear,
	})
}

func (a *Agent) yearObservations(ctx context.Context, sp domain.Species) ([]domain.Observation, error) {
	return a.searcher.Observations(ctx, sp.Name+" observations", observationLimit, domain.Filter{
		{Key: "species_key", Value: sp.Key},
		{Key: "year", Value: a.analysisYear},
	})
}

func (a *Agent) shiftFor(ctx context.Context, speciesKey string) (*domain.PhenologyShift, error) {
	shifts, err := a.searcher.Shifts(ctx, "phenology shift", 1, domain.Filter{
		{Key: "species_key", Value: speciesKey},
	})
	if err != nil {
		return nil, err
	}
	if len(shifts) == 0 {
		return nil, nil
	}
	return &shifts[0], nil
}

// strongestAnomaly picks the analysis-year month with the largest absolute
// temperature anomaly as the climate evidence. Nil when the year has no
// signals.
func (a *Agent) strongestAnomaly(ctx context.Context) (*domain.ClimateSignal, error) {
	signals, err := a.searcher.Climate(ctx, "temperature anomaly", 12, domain.Filter{
		{Key: "year", Value: a.analysisYear},
	})
	if err != nil {
		return nil, err
	}
	var best *domain.ClimateSignal
	for i := range signals {
		if best == nil || math.Abs(signals[i].TempAnomaly) > math.Abs(best.TempAnomaly) {
			best = &signals[i]
		}
	}
	return best, nil
}

// speciesIn returns the species whose display names appear in the query.
func (a *Agent) speciesIn(query string) []domain.Species {
	q := strings.ToLower(query)
	var mentioned []domain.Species
	for _, sp := range a.facts.Species {
		if strings.Contains(q, strings.ToLower(sp.Name)) {
			mentioned = append(mentioned, sp)
		}
	}
	return mentioned
}

// relationshipsFor selects the relationships involving any species the
// query mentions, or every relationship when none is named.
func (a *Agent) relationshipsFor(query string) []ecology.Relationship {
	mentioned := a.speciesIn(query)
	if len(mentioned) == 0 {
		return a.facts.Relationships
	}

	names := make(map[string]bool, len(mentioned))
	for _, sp := range mentioned {
		names[sp.Name] = true
	}
	var selected []ecology.Relationship
	for _, rel := range a.facts.Relationships {
		if names[rel.Consumer] || names[rel.Resource] {
			selected = append(selected, rel)
		}
	}
	return selected
}

func timingSummary(observations []domain.Observation) (float64, domain.Season) {
	days := make([]float64, len(observations))
	seasonCounts := make(map[domain.Season]int)
	for i, obs := range observations {
		days[i] = float64(obs.DayOfYear)
		seasonCounts[obs.Season]++
	}
	sort.Float64s(days)

	mid := len(days) / 2
	median := days[mid]
	if len(days)%2 == 0 {
		median = (days[mid-1] + days[mid]) / 2
	}

	var topSeason domain.Season
	for season, count := range seasonCounts {
		if count > seasonCounts[topSeason] || topSeason == "" {
			topSeason = season
		}
	}
	return median, topSeason
}
