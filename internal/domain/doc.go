// Package domain models species-observation and climate records for
// phenological mismatch detection.
//
// # Data Source
//
// Species observations originate from citizen-science CSV exports
// (iNaturalist research-grade downloads), one file per species, with
// columns for observation id, observed date, latitude/longitude, place,
// and quality grade. Climate records come from the NASA POWER daily
// point API for the study region's center coordinate.
//
// # Conventions
//
// Day of year:
//
//	Integer 1-366, the canonical timing unit. Medians over day-of-year
//	values describe a species' characteristic seasonal timing.
//
// Seasons (South Indian monsoon calendar):
//
//	Months  3-5  → pre_monsoon
//	Months  6-9  → monsoon
//	Months 10-11 → post_monsoon
//	Months 12-2  → winter
//	Every month maps to exactly one season.
//
// Baseline vs current:
//
//	Phenological shifts compare the median day of year between a baseline
//	year set and a current year set. Either period with fewer than the
//	minimum observation count makes the shift undefined — never zero.
//
// Temperature anomaly:
//
//	Deviation of a day's mean temperature from the baseline-period average
//	for the same day of year. Anomalies are only comparable while the
//	baseline year set is unchanged; recomputing with a different baseline
//	invalidates previously stored anomalies.
//
// Severity classification:
//
//	Mismatch severity is derived from the absolute temporal gap between
//	two species' median day of year, with strict thresholds:
//
//	  |gap| > 20 days → SEVERE
//	  |gap| > 10 days → MODERATE
//	  otherwise       → LOW
//
//	A gap of exactly 20 days is MODERATE and exactly 10 days is LOW.
//
// # ID Generation
//
// Vector-index point ids are deterministic hashes of the source
// observation id, truncated to a fixed integer id space. Re-ingesting the
// same record therefore overwrites the same point, making ingestion
// idempotent. Climate points use year*100+month. See [ObservationPointID].
package domain
