package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// NormalizeOptions controls record validation during normalization.
type NormalizeOptions struct {
	ValidDates DateRange
	Region     RegionBounds

	// SkipUnknownSpecies drops records whose species key is absent from the
	// table instead of failing the whole batch.
	SkipUnknownSpecies bool
}

// DropCounts reports how many records each validation step removed.
type DropCounts struct {
	MissingDate    int
	DateOutOfRange int
	BadCoordinates int
	OutOfRegion    int
	Duplicate      int
	UnknownSpecies int
}

// Total is the number of records dropped across all reasons.
func (d DropCounts) Total() int {
	return d.MissingDate + d.DateOutOfRange + d.BadCoordinates +
		d.OutOfRegion + d.Duplicate + d.UnknownSpecies
}

// NormalizeResult is the output of one normalization pass.
type NormalizeResult struct {
	Observations []Observation
	Dropped      DropCounts
}

// Normalize cleans a batch of raw records into canonical observations.
//
// Records are dropped when the date is missing or unparseable, outside the
// valid range (bounds inclusive), coordinates are missing or outside the
// region rectangle, or the observation id repeats an earlier record. On a
// duplicate id the first occurrence in input order survives. Calendar
// fields (year, month, day, day of year, season) are derived from the
// parsed date, and species metadata is attached from the static table.
//
// An unknown species key fails the batch unless opts.SkipUnknownSpecies is
// set, in which case the record is dropped and counted.
func Normalize(records []RawRecord, table SpeciesTable, opts NormalizeOptions) (NormalizeResult, error) {
	out := make([]Observation, 0, len(records))
	seen := make(map[string]bool, len(records))
	var dropped DropCounts

	for _, rec := range records {
		observedAt, ok := parseObservedDate(rec.ObservedOn)
		if !ok {
			dropped.MissingDate++
			continue
		}
		if !opts.ValidDates.Contains(observedAt) {
			dropped.DateOutOfRange++
			continue
		}

		lat, latOK := parseCoordinate(rec.Latitude)
		lng, lngOK := parseCoordinate(rec.Longitude)
		if !latOK || !lngOK {
			dropped.BadCoordinates++
			continue
		}
		if !opts.Region.Contains(lat, lng) {
			dropped.OutOfRegion++
			continue
		}

		if seen[rec.ID] {
			dropped.Duplicate++
			continue
		}

		sp, found := table[rec.SpeciesKey]
		if !found {
			if opts.SkipUnknownSpecies {
				dropped.UnknownSpecies++
				continue
			}
			return NormalizeResult{}, fmt.Errorf("normalize record %s: %w: %q", rec.ID, ErrUnknownSpecies, rec.SpeciesKey)
		}

		seen[rec.ID] = true
		out = append(out, Observation{
			ID:          rec.ID,
			SpeciesKey:  sp.Key,
			SpeciesName: sp.Name,
			Category:    sp.Category,
			Role:        sp.Role,
			ObservedAt:  observedAt,
			Year:        observedAt.Year(),
			Month:       int(observedAt.Month()),
			Day:         observedAt.Day(),
			DayOfYear:   observedAt.YearDay(),
			Season:      SeasonForMonth(int(observedAt.Month())),
			Latitude:    lat,
			Longitude:   lng,
			Place:       strings.TrimSpace(rec.Place),
			Quality:     strings.TrimSpace(rec.Quality),
		})
	}

	return NormalizeResult{Observations: out, Dropped: dropped}, nil
}

// observedDateLayouts are the date formats seen in raw exports, tried in order.
var observedDateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006/01/02",
}

// parseObservedDate collapses timestamped layouts to their UTC calendar
// date, so range checks and derived fields only deal in whole days.
func parseObservedDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range observedDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), true
		}
	}
	return time.Time{}, false
}

func parseCoordinate(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
