// Package report renders mismatch findings as plain-text explanations.
// Every sentence is assembled from fixed templates over the finding's
// numbers; nothing is inferred at render time.
package report

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ecosync/phenology/internal/domain"
	"github.com/ecosync/phenology/internal/ecology"
)

// Render produces the full explanation for a finding: the mismatch
// statement, the dependency between the pair when it is a known
// relationship, current timing, historical shifts, climate context, the
// causal mechanism, and the impact note when the pair has one.
func Render(finding domain.MismatchFinding, facts *ecology.Facts) string {
	var b strings.Builder

	writeHeadline(&b, finding)
	if rel, ok := facts.RelationshipFor(finding.SpeciesA.Name, finding.SpeciesB.Name); ok {
		fmt.Fprintf(&b, "%s depends on %s for %s.\n", rel.Consumer, rel.Resource, rel.Kind)
	}
	writeTiming(&b, finding)
	writeShifts(&b, finding)
	writeClimate(&b, finding)

	b.WriteString("\nLikely mechanism:\n")
	fmt.Fprintf(&b, "  %s\n", finding.Mechanism.Narrative)

	if note, ok := facts.ImpactNoteFor(finding.SpeciesA.Name, finding.SpeciesB.Name); ok {
		fmt.Fprintf(&b, "\n%s:\n  %s\n", note.Label, note.Text)
	}

	return b.String()
}

func writeHeadline(b *strings.Builder, f domain.MismatchFinding) {
	gap := math.Abs(f.GapDays)
	switch f.Direction {
	case domain.GapNone:
		fmt.Fprintf(b, "%s MISMATCH: %s %s coincides with %s %s",
			f.Severity, f.SpeciesA.Name, activityNoun(f.SpeciesA),
			f.SpeciesB.Name, activityNoun(f.SpeciesB))
	default:
		fmt.Fprintf(b, "%s MISMATCH: %s %s peaks %.0f days %s %s %s",
			f.Severity, f.SpeciesA.Name, activityNoun(f.SpeciesA),
			gap, f.Direction, f.SpeciesB.Name, activityNoun(f.SpeciesB))
	}
	if f.Year > 0 {
		fmt.Fprintf(b, " in %d", f.Year)
	}
	b.WriteString(".\n")
}

func writeTiming(b *strings.Builder, f domain.MismatchFinding) {
	b.WriteString("\nCurrent timing")
	if f.Year > 0 {
		fmt.Fprintf(b, " (%d)", f.Year)
	}
	b.WriteString(":\n")
	fmt.Fprintf(b, "  %s: median day %.0f (around %s)\n",
		f.SpeciesA.Name, f.MedianDOYA, approximateDate(f.Year, f.MedianDOYA))
	fmt.Fprintf(b, "  %s: median day %.0f (around %s)\n",
		f.SpeciesB.Name, f.MedianDOYB, approximateDate(f.Year, f.MedianDOYB))
}

func writeShifts(b *strings.Builder, f domain.MismatchFinding) {
	if f.ShiftA == nil && f.ShiftB == nil {
		return
	}
	b.WriteString("\nHistorical shift:\n")
	for _, shift := range []*domain.PhenologyShift{f.ShiftA, f.ShiftB} {
		if shift == nil {
			continue
		}
		fmt.Fprintf(b, "  %s: %.1f days %s (baseline median day %.0f, now day %.0f)\n",
			shift.SpeciesName, math.Abs(shift.ShiftDays), shift.Direction,
			shift.BaselineMedianDOY, shift.CurrentMedianDOY)
	}
	if f.DifferentialShift != nil {
		fmt.Fprintf(b, "  The two species have drifted %.1f days apart since the baseline period.\n",
			*f.DifferentialShift)
	}
}

func writeClimate(b *strings.Builder, f domain.MismatchFinding) {
	if f.Climate == nil {
		return
	}
	c := f.Climate
	b.WriteString("\nClimate context:\n")
	fmt.Fprintf(b, "  %d-%02d (%s): mean %.1f°C, anomaly %+.2f°C, rainfall %.1fmm\n",
		c.Year, c.Month, c.Season, c.TempMean, c.TempAnomaly, c.PrecipitationMM)
}

// activityNoun names what is peaking: flowering for plants, activity for
// everything else.
func activityNoun(sp domain.Species) string {
	if sp.Category == domain.CategoryPlant {
		return "flowering"
	}
	return "activity"
}

// approximateDate converts a day of year to a readable calendar date. Year
// zero (unknown) uses a non-leap reference year.
func approximateDate(year int, dayOfYear float64) string {
	if year <= 0 {
		year = 2023
	}
	date := time.Date(year, 1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, int(math.Round(dayOfYear))-1)
	return date.Format("January 2")
}
