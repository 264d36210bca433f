package domain

import (
	"fmt"
	"math"
	"time"
)

// Severity is the coarse classification of a mismatch magnitude.
type Severity string

const (
	SeverityLow      Severity = "LOW"
	SeverityModerate Severity = "MODERATE"
	SeveritySevere   Severity = "SEVERE"
)

// Rank orders severities LOW < MODERATE < SEVERE.
func (s Severity) Rank() int {
	switch s {
	case SeverityModerate:
		return 1
	case SeveritySevere:
		return 2
	default:
		return 0
	}
}

// GapDirection states which species occurs later in the year.
type GapDirection string

const (
	// GapAfter means the first species occurs after the second.
	GapAfter GapDirection = "after"
	// GapBefore means the first species occurs before the second.
	GapBefore GapDirection = "before"
	// GapNone makes no directional claim (zero gap).
	GapNone GapDirection = "none"
)

// MechanismKind selects the fixed causal-explanation template.
type MechanismKind string

const (
	// MechanismTrophicLag: the resource plant tracks temperature while the
	// photoperiod-constrained consumer or pollinator lags behind.
	MechanismTrophicLag MechanismKind = "trophic_lag"
	// MechanismGeneric covers pairs with no specific template.
	MechanismGeneric MechanismKind = "generic"
)

// Mechanism is a fixed causal-explanation template selected by category
// rules, not inference.
type Mechanism struct {
	Kind      MechanismKind `json:"kind"`
	Narrative string        `json:"narrative"`
}

// MismatchFinding quantifies the temporal gap between two species.
// Findings are derived on demand and never persisted.
type MismatchFinding struct {
	SpeciesA Species `json:"species_a"`
	SpeciesB Species `json:"species_b"`
	Year     int     `json:"year,omitempty"`

	MedianDOYA float64 `json:"species_a_median_doy"`
	MedianDOYB float64 `json:"species_b_median_doy"`
	CountA     int     `json:"species_a_observations"`
	CountB     int     `json:"species_b_observations"`
	GapDays    float64 `json:"gap_days"`

	Severity  Severity     `json:"severity"`
	Direction GapDirection `json:"gap_direction"`
	Mechanism Mechanism    `json:"mechanism"`

	ShiftA            *PhenologyShift `json:"shift_a,omitempty"`
	ShiftB            *PhenologyShift `json:"shift_b,omitempty"`
	DifferentialShift *float64        `json:"differential_shift,omitempty"`
	Climate           *ClimateSignal  `json:"climate,omitempty"`
	DetectedAt        time.Time       `json:"detected_at"`
}

// MismatchContext carries the optional supporting evidence for a detection.
// Nil fields mean the evidence is unavailable, not zero.
type MismatchContext struct {
	ShiftA  *PhenologyShift
	ShiftB  *PhenologyShift
	Climate *ClimateSignal
	Year    int
}

// DetectMismatch computes the temporal gap between two species' observation
// sets and classifies it. The gap is the first species' median day of year
// minus the second's; positive means A occurs after B. Severity uses strict
// thresholds on the absolute gap (>20 SEVERE, >10 MODERATE, else LOW).
// Shifts and climate context are attached as evidence only; climate never
// changes the classification. Fails with ErrInsufficientData when either
// set is empty.
//
// The result is a pure function of its inputs and the fixed rule tables.
func DetectMismatch(speciesA, speciesB []Observation, ctx MismatchContext) (MismatchFinding, error) {
	if len(speciesA) == 0 || len(speciesB) == 0 {
		return MismatchFinding{}, fmt.Errorf("detect mismatch: a=%d b=%d observations: %w",
			len(speciesA), len(speciesB), ErrInsufficientData)
	}

	medianA := median(daysOfYear(speciesA))
	medianB := median(daysOfYear(speciesB))
	gap := medianA - medianB

	finding := MismatchFinding{
		SpeciesA:   speciesA[0].Species(),
		SpeciesB:   speciesB[0].Species(),
		Year:       ctx.Year,
		MedianDOYA: medianA,
		MedianDOYB: medianB,
		CountA:     len(speciesA),
		CountB:     len(speciesB),
		GapDays:    gap,
		Severity:   classifySeverity(gap),
		Direction:  classifyDirection(gap),
		ShiftA:     ctx.ShiftA,
		ShiftB:     ctx.ShiftB,
		Climate:    ctx.Climate,
		DetectedAt: clock.Now(),
	}

	if ctx.ShiftA != nil && ctx.ShiftB != nil {
		diff := math.Abs(ctx.ShiftA.ShiftDays - ctx.ShiftB.ShiftDays)
		finding.DifferentialShift = &diff
	}

	finding.Mechanism = selectMechanism(finding.SpeciesA, finding.SpeciesB)

	return finding, nil
}

// classifySeverity maps the absolute gap to a tier. Boundary values belong
// to the lower tier: exactly 20 is MODERATE, exactly 10 is LOW.
func classifySeverity(gap float64) Severity {
	switch abs := math.Abs(gap); {
	case abs > 20:
		return SeveritySevere
	case abs > 10:
		return SeverityModerate
	default:
		return SeverityLow
	}
}

func classifyDirection(gap float64) GapDirection {
	switch {
	case gap > 0:
		return GapAfter
	case gap < 0:
		return GapBefore
	default:
		return GapNone
	}
}

// selectMechanism is a finite lookup over category pairs. When the second
// species is a resource plant and the first is a consumer or pollinator,
// the temperature-vs-photoperiod template applies; everything else gets the
// generic narrative.
func selectMechanism(a, b Species) Mechanism {
	if b.Category == CategoryPlant && (a.Role == RoleConsumer || a.Role == RolePollinator) {
		return Mechanism{
			Kind: MechanismTrophicLag,
			Narrative: fmt.Sprintf(
				"%s (plant) responds quickly to temperature and shifts its timing; %s (%s) is photoperiod-constrained and responds more slowly, so it misses peak %s availability.",
				b.Name, a.Name, a.Category, b.Name),
		}
	}
	return Mechanism{
		Kind: MechanismGeneric,
		Narrative: fmt.Sprintf(
			"%s and %s are responding to climate cues at different rates, opening a temporal gap between their seasonal activity.",
			a.Name, b.Name),
	}
}

func daysOfYear(observations []Observation) []float64 {
	values := make([]float64, len(observations))
	for i, obs := range observations {
		values[i] = float64(obs.DayOfYear)
	}
	return values
}
