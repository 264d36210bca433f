package domain

import (
	"fmt"
	"sort"
	"time"
)

// DailyClimate is one day of raw climate data for the study region.
type DailyClimate struct {
	Date            time.Time
	TempMean        float64
	TempMax         float64
	TempMin         float64
	PrecipitationMM float64
}

// ClimateSignal is a monthly climate summary with the temperature anomaly
// relative to the fixed baseline period. JSON field names match the
// vector-index payload schema.
type ClimateSignal struct {
	Year            int     `json:"year"`
	Month           int     `json:"month"`
	Season          Season  `json:"season"`
	TempMean        float64 `json:"temperature_mean"`
	TempMax         float64 `json:"temperature_max"`
	TempMin         float64 `json:"temperature_min"`
	TempAnomaly     float64 `json:"temperature_anomaly"`
	PrecipitationMM float64 `json:"rainfall_mm"`
}

// ComputeClimateSignals rolls daily climate records up into monthly signals.
//
// The anomaly for each day is its mean temperature minus the baseline-period
// average for the same day of year; days of year absent from the baseline
// contribute a zero anomaly. Monthly signals average the temperatures and
// anomalies and sum precipitation. All anomalies are relative to the SAME
// baseline year set — recomputing with different baseline years invalidates
// previously stored signals.
func ComputeClimateSignals(daily []DailyClimate, baselineYears []int) ([]ClimateSignal, error) {
	if len(daily) == 0 {
		return nil, fmt.Errorf("compute climate signals: no daily records: %w", ErrInsufficientData)
	}

	baseline := yearSet(baselineYears)

	// Baseline mean temperature per day of year.
	sums := make(map[int]float64)
	counts := make(map[int]int)
	for _, d := range daily {
		if !baseline[d.Date.Year()] {
			continue
		}
		doy := d.Date.YearDay()
		sums[doy] += d.TempMean
		counts[doy]++
	}
	if len(counts) == 0 {
		return nil, fmt.Errorf("compute climate signals: no baseline days in %v: %w", baselineYears, ErrInsufficientData)
	}

	type monthKey struct{ year, month int }
	type monthAgg struct {
		tempMean, tempMax, tempMin, anomaly, precip float64
		days                                        int
	}
	months := make(map[monthKey]*monthAgg)

	for _, d := range daily {
		anomaly := 0.0
		if n := counts[d.Date.YearDay()]; n > 0 {
			anomaly = d.TempMean - sums[d.Date.YearDay()]/float64(n)
		}

		key := monthKey{year: d.Date.Year(), month: int(d.Date.Month())}
		agg := months[key]
		if agg == nil {
			agg = &monthAgg{}
			months[key] = agg
		}
		agg.tempMean += d.TempMean
		agg.tempMax += d.TempMax
		agg.tempMin += d.TempMin
		agg.anomaly += anomaly
		agg.precip += d.PrecipitationMM
		agg.days++
	}

	signals := make([]ClimateSignal, 0, len(months))
	for key, agg := range months {
		n := float64(agg.days)
		signals = append(signals, ClimateSignal{
			Year:            key.year,
			Month:           key.month,
			Season:          SeasonForMonth(key.month),
			TempMean:        agg.tempMean / n,
			TempMax:         agg.tempMax / n,
			TempMin:         agg.tempMin / n,
			TempAnomaly:     agg.anomaly / n,
			PrecipitationMM: agg.precip,
		})
	}

	sort.Slice(signals, func(i, j int) bool {
		if signals[i].Year != signals[j].Year {
			return signals[i].Year < signals[j].Year
		}
		return signals[i].Month < signals[j].Month
	})

	return signals, nil
}
