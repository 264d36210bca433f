package report

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ecosync/phenology/internal/domain"
	"github.com/ecosync/phenology/internal/ecology"
)

func bee() domain.Species {
	return domain.Species{Key: "apis_dorsata", Name: "Giant Honey Bee", Category: domain.CategoryBee, Role: domain.RolePollinator}
}

func mango() domain.Species {
	return domain.Species{Key: "mangifera_indica", Name: "Mango", Category: domain.CategoryPlant, Role: domain.RoleResource}
}

func testFacts() *ecology.Facts {
	return &ecology.Facts{
		Species: []domain.Species{bee(), mango()},
		Relationships: []ecology.Relationship{
			{
				Consumer: "Giant Honey Bee", ConsumerType: "bee",
				Resource: "Mango", ResourceType: "plant",
				Kind: "pollination",
			},
		},
		ImpactNotes: []ecology.ImpactNote{
			{
				Consumer: "Bee",
				Resource: "Mango",
				Label:    "Agricultural Impact",
				Text:     "Reduced mango pollination success with significant crop loss.",
			},
		},
	}
}

func severeFinding() domain.MismatchFinding {
	diff := 12.5
	return domain.MismatchFinding{
		SpeciesA:   bee(),
		SpeciesB:   mango(),
		Year:       2024,
		MedianDOYA: 128,
		MedianDOYB: 98,
		CountA:     40,
		CountB:     55,
		GapDays:    30,
		Severity:   domain.SeveritySevere,
		Direction:  domain.GapAfter,
		Mechanism: domain.Mechanism{
			Kind:      domain.MechanismTrophicLag,
			Narrative: "Mango (plant) responds quickly to temperature; Giant Honey Bee is photoperiod-constrained.",
		},
		ShiftA: &domain.PhenologyShift{
			SpeciesName: "Giant Honey Bee", BaselineMedianDOY: 101, CurrentMedianDOY: 128,
			ShiftDays: 27, Direction: domain.ShiftLater,
		},
		ShiftB: &domain.PhenologyShift{
			SpeciesName: "Mango", BaselineMedianDOY: 61, CurrentMedianDOY: 98,
			ShiftDays: -14.5, Direction: domain.ShiftEarlier,
		},
		DifferentialShift: &diff,
		Climate: &domain.ClimateSignal{
			Year: 2024, Month: 4, Season: domain.SeasonPreMonsoon,
			TempMean: 31.2, TempAnomaly: 2.1, PrecipitationMM: 12.5,
		},
	}
}

func TestRender_FullFinding(t *testing.T) {
	out := Render(severeFinding(), testFacts())

	assert.Contains(t, out, "SEVERE MISMATCH: Giant Honey Bee activity peaks 30 days after Mango flowering in 2024.")
	assert.Contains(t, out, "Giant Honey Bee depends on Mango for pollination.")
	assert.Contains(t, out, "Current timing (2024):")
	assert.Contains(t, out, "Giant Honey Bee: median day 128 (around May 7)")
	assert.Contains(t, out, "Mango: median day 98 (around April 7)")
	assert.Contains(t, out, "Historical shift:")
	assert.Contains(t, out, "Giant Honey Bee: 27.0 days later (baseline median day 101, now day 128)")
	assert.Contains(t, out, "Mango: 14.5 days earlier (baseline median day 61, now day 98)")
	assert.Contains(t, out, "drifted 12.5 days apart")
	assert.Contains(t, out, "Climate context:")
	assert.Contains(t, out, "2024-04 (pre_monsoon): mean 31.2°C, anomaly +2.10°C, rainfall 12.5mm")
	assert.Contains(t, out, "Likely mechanism:")
	assert.Contains(t, out, "photoperiod-constrained")
	assert.Contains(t, out, "Agricultural Impact:")
	assert.Contains(t, out, "Reduced mango pollination success")
}

func TestRender_MinimalFinding(t *testing.T) {
	finding := domain.MismatchFinding{
		SpeciesA:   bee(),
		SpeciesB:   mango(),
		MedianDOYA: 100,
		MedianDOYB: 95,
		GapDays:    5,
		Severity:   domain.SeverityLow,
		Direction:  domain.GapAfter,
		Mechanism:  domain.Mechanism{Kind: domain.MechanismGeneric, Narrative: "Different climate response rates."},
	}

	out := Render(finding, &ecology.Facts{})

	assert.Contains(t, out, "LOW MISMATCH: Giant Honey Bee activity peaks 5 days after Mango flowering.")
	assert.NotContains(t, out, "depends on", "no dependency line for unknown pairs")
	assert.NotContains(t, out, "Historical shift:", "no shift section without shift evidence")
	assert.NotContains(t, out, "Climate context:")
	assert.NotContains(t, out, "Impact", "no impact note for unmatched pairs")
}

func TestRender_ZeroGap(t *testing.T) {
	finding := domain.MismatchFinding{
		SpeciesA:  bee(),
		SpeciesB:  mango(),
		Year:      2024,
		Severity:  domain.SeverityLow,
		Direction: domain.GapNone,
		Mechanism: domain.Mechanism{Narrative: "n/a"},
	}

	out := Render(finding, &ecology.Facts{})
	assert.Contains(t, out, "Giant Honey Bee activity coincides with Mango flowering in 2024.")
}

func TestRender_BeforeDirection(t *testing.T) {
	finding := severeFinding()
	finding.GapDays = -12
	finding.Direction = domain.GapBefore
	finding.Severity = domain.SeverityModerate

	out := Render(finding, testFacts())
	assert.Contains(t, out, "MODERATE MISMATCH: Giant Honey Bee activity peaks 12 days before Mango flowering in 2024.")
}

func TestApproximateDate(t *testing.T) {
	assert.Equal(t, "January 1", approximateDate(2024, 1))
	assert.Equal(t, "May 7", approximateDate(2024, 128))
	assert.Equal(t, "December 31", approximateDate(2023, 365))
	// Unknown year falls back to a non-leap calendar.
	assert.Equal(t, "March 1", approximateDate(0, 60))
}
