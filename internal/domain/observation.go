package domain

import "time"

// Season is one of the four fixed seasonal categories of the monsoon calendar.
type Season string

const (
	SeasonPreMonsoon  Season = "pre_monsoon"
	SeasonMonsoon     Season = "monsoon"
	SeasonPostMonsoon Season = "post_monsoon"
	SeasonWinter      Season = "winter"
)

// Category is the broad taxon group of a species.
type Category string

const (
	CategoryPlant     Category = "plant"
	CategoryBee       Category = "bee"
	CategoryButterfly Category = "butterfly"
	CategoryBird      Category = "bird"
)

// Role is the functional role a species plays in an interaction.
type Role string

const (
	RoleResource   Role = "resource"
	RoleConsumer   Role = "consumer"
	RolePollinator Role = "pollinator"
)

// Species is static reference data, loaded once at configuration time.
type Species struct {
	Key      string   `yaml:"key" json:"species_key"`
	Name     string   `yaml:"common" json:"species_common"`
	Category Category `yaml:"category" json:"species_type"`
	Role     Role     `yaml:"role" json:"species_role"`
}

// SpeciesTable maps species keys to their static metadata.
type SpeciesTable map[string]Species

// RawRecord is one unparsed row from a raw species CSV export. All fields
// are strings; parsing and validation happen during normalization.
type RawRecord struct {
	ID         string
	SpeciesKey string
	ObservedOn string
	Latitude   string
	Longitude  string
	Place      string
	Quality    string
}

// Observation is the canonical, immutable record produced by normalization.
// JSON field names match the vector-index payload schema.
type Observation struct {
	ID          string    `json:"observation_id"`
	SpeciesKey  string    `json:"species_key"`
	SpeciesName string    `json:"species_common"`
	Category    Category  `json:"species_type"`
	Role        Role      `json:"species_role"`
	ObservedAt  time.Time `json:"observed_date"`
	Year        int       `json:"year"`
	Month       int       `json:"month"`
	Day         int       `json:"day"`
	DayOfYear   int       `json:"day_of_year"`
	Season      Season    `json:"season"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Place       string    `json:"place,omitempty"`
	Quality     string    `json:"quality_grade,omitempty"`
}

// Species returns the observation's denormalized species metadata.
func (o Observation) Species() Species {
	return Species{Key: o.SpeciesKey, Name: o.SpeciesName, Category: o.Category, Role: o.Role}
}

// DateRange is an inclusive observed-date window.
type DateRange struct {
	From time.Time
	To   time.Time
}

// Contains reports whether t falls inside the range, bounds included.
func (r DateRange) Contains(t time.Time) bool {
	return !t.Before(r.From) && !t.After(r.To)
}

// RegionBounds is a four-sided rectangle check on coordinates.
type RegionBounds struct {
	LatMin float64
	LatMax float64
	LngMin float64
	LngMax float64
}

// Contains reports whether the coordinate lies inside the rectangle,
// bounds included.
func (b RegionBounds) Contains(lat, lng float64) bool {
	return lat >= b.LatMin && lat <= b.LatMax && lng >= b.LngMin && lng <= b.LngMax
}

// SeasonForMonth maps a calendar month to its fixed season.
func SeasonForMonth(month int) Season {
	switch {
	case month >= 3 && month <= 5:
		return SeasonPreMonsoon
	case month >= 6 && month <= 9:
		return SeasonMonsoon
	case month == 10 || month == 11:
		return SeasonPostMonsoon
	default:
		return SeasonWinter
	}
}
