package domain

import (
	"fmt"
	"sort"
)

// DefaultMinObservations is the minimum per-period observation count for a
// shift to be defined.
const DefaultMinObservations = 10

// ShiftDirection labels the sign of a phenological shift.
type ShiftDirection string

const (
	ShiftEarlier ShiftDirection = "earlier"
	ShiftLater   ShiftDirection = "later"
)

// PhenologyShift is the baseline-to-current change in a species' median
// timing. JSON field names match the vector-index payload schema.
type PhenologyShift struct {
	SpeciesKey        string         `json:"species_key"`
	SpeciesName       string         `json:"species"`
	Category          Category       `json:"species_type"`
	TotalObservations int            `json:"total_observations"`
	BaselineMedianDOY float64        `json:"baseline_median_doy"`
	CurrentMedianDOY  float64        `json:"current_median_doy"`
	ShiftDays         float64        `json:"shift_days"`
	Direction         ShiftDirection `json:"shift_direction"`
}

// ComputeShift partitions observations into baseline and current periods by
// year and returns the change in median day of year. The year sets need not
// be contiguous. If either period holds fewer than minCount observations
// (DefaultMinObservations when minCount <= 0) the shift is undefined and
// ErrInsufficientData is returned — never a fabricated zero.
//
// The result is deterministic: identical input sets yield identical medians
// regardless of input order.
func ComputeShift(observations []Observation, baselineYears, currentYears []int, minCount int) (*PhenologyShift, error) {
	if minCount <= 0 {
		minCount = DefaultMinObservations
	}

	baseline := yearSet(baselineYears)
	current := yearSet(currentYears)

	var baselineDOY, currentDOY []float64
	for _, obs := range observations {
		switch {
		case baseline[obs.Year]:
			baselineDOY = append(baselineDOY, float64(obs.DayOfYear))
		case current[obs.Year]:
			currentDOY = append(currentDOY, float64(obs.DayOfYear))
		}
	}

	if len(baselineDOY) < minCount || len(currentDOY) < minCount {
		return nil, fmt.Errorf("compute shift: baseline=%d current=%d min=%d: %w",
			len(baselineDOY), len(currentDOY), minCount, ErrInsufficientData)
	}

	baselineMedian := median(baselineDOY)
	currentMedian := median(currentDOY)
	shift := currentMedian - baselineMedian

	result := &PhenologyShift{
		TotalObservations: len(observations),
		BaselineMedianDOY: baselineMedian,
		CurrentMedianDOY:  currentMedian,
		ShiftDays:         shift,
		Direction:         ShiftLater,
	}
	if shift < 0 {
		result.Direction = ShiftEarlier
	}
	if len(observations) > 0 {
		sp := observations[0].Species()
		result.SpeciesKey = sp.Key
		result.SpeciesName = sp.Name
		result.Category = sp.Category
	}
	return result, nil
}

// median returns the standard median: the middle value for odd-sized sets,
// the mean of the two middle values for even-sized sets. The input slice is
// not modified.
func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	mid := n / 2
	if n%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func yearSet(years []int) map[int]bool {
	set := make(map[int]bool, len(years))
	for _, y := range years {
		set[y] = true
	}
	return set
}
