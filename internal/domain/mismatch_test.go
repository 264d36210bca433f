package domain

import (
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func beeObs(dayOfYear int) Observation {
	return Observation{
		SpeciesKey:  "apis_dorsata",
		SpeciesName: "Giant Honey Bee",
		Category:    CategoryBee,
		Role:        RolePollinator,
		Year:        2024,
		DayOfYear:   dayOfYear,
	}
}

func mangoObs(dayOfYear int) Observation {
	return Observation{
		SpeciesKey:  "mangifera_indica",
		SpeciesName: "Mango",
		Category:    CategoryPlant,
		Role:        RoleResource,
		Year:        2024,
		DayOfYear:   dayOfYear,
	}
}

func TestDetectMismatch(t *testing.T) {
	t.Run("boundary gap of 20 days is moderate", func(t *testing.T) {
		a := []Observation{beeObs(100), beeObs(100), beeObs(102)}
		b := []Observation{mangoObs(78), mangoObs(80), mangoObs(80)}

		finding, err := DetectMismatch(a, b, MismatchContext{Year: 2024})
		require.NoError(t, err)

		assert.Equal(t, 100.0, finding.MedianDOYA)
		assert.Equal(t, 80.0, finding.MedianDOYB)
		assert.Equal(t, 20.0, finding.GapDays)
		assert.Equal(t, SeverityModerate, finding.Severity)
		assert.Equal(t, GapAfter, finding.Direction)
	})

	t.Run("empty second set is insufficient data", func(t *testing.T) {
		_, err := DetectMismatch([]Observation{beeObs(100)}, nil, MismatchContext{})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("empty first set is insufficient data", func(t *testing.T) {
		_, err := DetectMismatch(nil, []Observation{mangoObs(80)}, MismatchContext{})
		assert.ErrorIs(t, err, ErrInsufficientData)
	})

	t.Run("negative gap points before", func(t *testing.T) {
		finding, err := DetectMismatch([]Observation{beeObs(60)}, []Observation{mangoObs(90)}, MismatchContext{})
		require.NoError(t, err)
		assert.Equal(t, -30.0, finding.GapDays)
		assert.Equal(t, GapBefore, finding.Direction)
		assert.Equal(t, SeveritySevere, finding.Severity)
	})

	t.Run("zero gap makes no directional claim", func(t *testing.T) {
		finding, err := DetectMismatch([]Observation{beeObs(90)}, []Observation{mangoObs(90)}, MismatchContext{})
		require.NoError(t, err)
		assert.Equal(t, GapNone, finding.Direction)
		assert.Equal(t, SeverityLow, finding.Severity)
	})

	t.Run("differential shift requires both shifts", func(t *testing.T) {
		shiftA := &PhenologyShift{ShiftDays: -2}
		shiftB := &PhenologyShift{ShiftDays: -14.5}

		finding, err := DetectMismatch([]Observation{beeObs(100)}, []Observation{mangoObs(80)},
			MismatchContext{ShiftA: shiftA, ShiftB: shiftB})
		require.NoError(t, err)
		require.NotNil(t, finding.DifferentialShift)
		assert.InDelta(t, 12.5, *finding.DifferentialShift, 1e-9)

		partial, err := DetectMismatch([]Observation{beeObs(100)}, []Observation{mangoObs(80)},
			MismatchContext{ShiftA: shiftA})
		require.NoError(t, err)
		assert.Nil(t, partial.DifferentialShift)
	})

	t.Run("pollinator on plant selects trophic lag mechanism", func(t *testing.T) {
		finding, err := DetectMismatch([]Observation{beeObs(100)}, []Observation{mangoObs(80)}, MismatchContext{})
		require.NoError(t, err)
		assert.Equal(t, MechanismTrophicLag, finding.Mechanism.Kind)
		assert.Contains(t, finding.Mechanism.Narrative, "photoperiod")
	})

	t.Run("plant pair selects generic mechanism", func(t *testing.T) {
		other := mangoObs(100)
		other.SpeciesKey = "ficus_benghalensis"
		other.SpeciesName = "Banyan"

		finding, err := DetectMismatch([]Observation{other}, []Observation{mangoObs(80)}, MismatchContext{})
		require.NoError(t, err)
		assert.Equal(t, MechanismGeneric, finding.Mechanism.Kind)
	})

	t.Run("climate context never changes severity", func(t *testing.T) {
		hot := &ClimateSignal{Year: 2024, Month: 4, TempAnomaly: 3.7}
		with, err := DetectMismatch([]Observation{beeObs(95)}, []Observation{mangoObs(80)},
			MismatchContext{Climate: hot})
		require.NoError(t, err)
		without, err := DetectMismatch([]Observation{beeObs(95)}, []Observation{mangoObs(80)}, MismatchContext{})
		require.NoError(t, err)

		assert.Equal(t, without.Severity, with.Severity)
		assert.Equal(t, hot, with.Climate)
	})

	t.Run("detection timestamp comes from the clock", func(t *testing.T) {
		frozen := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
		SetClock(clockwork.NewFakeClockAt(frozen))
		defer SetClock(nil)

		finding, err := DetectMismatch([]Observation{beeObs(100)}, []Observation{mangoObs(80)}, MismatchContext{})
		require.NoError(t, err)
		assert.Equal(t, frozen, finding.DetectedAt)
	})
}

func TestClassifySeverity(t *testing.T) {
	tests := []struct {
		gap      float64
		expected Severity
	}{
		{0, SeverityLow},
		{9.9, SeverityLow},
		{10, SeverityLow}, // boundary belongs to the lower tier
		{10.1, SeverityModerate},
		{15, SeverityModerate},
		{20, SeverityModerate}, // boundary belongs to the lower tier
		{20.1, SeveritySevere},
		{127, SeveritySevere},
		{-10, SeverityLow},
		{-22, SeveritySevere},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.expected, classifySeverity(tt.gap), "gap %v", tt.gap)
	}
}

func TestSeverityMonotonicity(t *testing.T) {
	// severity(g1) <= severity(g2) for all 0 <= g1 < g2.
	prev := SeverityLow
	for gap := 0.0; gap <= 40; gap += 0.5 {
		current := classifySeverity(gap)
		assert.GreaterOrEqual(t, current.Rank(), prev.Rank(), "gap %v", gap)
		prev = current
	}
}
