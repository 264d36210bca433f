package domain

import (
	"fmt"
	"math"
)

// ObservationText is the canonical sentence embedded for an observation.
func ObservationText(o Observation) string {
	place := o.Place
	if place == "" {
		place = "the study region"
	}
	return fmt.Sprintf("%s (%s) observed on %s (day %d of %d) in %s during %s season",
		o.SpeciesName, o.Category, o.ObservedAt.Format("January 2, 2006"),
		o.DayOfYear, o.Year, place, o.Season)
}

// ClimateText is the canonical sentence embedded for a monthly climate signal.
func ClimateText(c ClimateSignal) string {
	return fmt.Sprintf("climate in %d-%02d: temperature %.1f°C (anomaly: %+.2f°C), rainfall %.1fmm, season %s",
		c.Year, c.Month, c.TempMean, c.TempAnomaly, c.PrecipitationMM, c.Season)
}

// ShiftText is the canonical sentence embedded for a phenology shift.
func ShiftText(s PhenologyShift) string {
	return fmt.Sprintf("%s (%s) phenology: baseline median day %.0f, current median day %.0f, shifted %.1f days %s",
		s.SpeciesName, s.Category, s.BaselineMedianDOY, s.CurrentMedianDOY,
		math.Abs(s.ShiftDays), s.Direction)
}
