package domain

import (
	"crypto/sha256"
	"encoding/binary"
)

// pointIDSpace bounds observation point ids to a stable integer range.
const pointIDSpace = 1_000_000_000

// ObservationPointID derives a deterministic vector-index point id from the
// source observation id. Re-ingesting the same record yields the same point
// id, so upserts are idempotent at the storage layer.
func ObservationPointID(observationID string) uint64 {
	return hashPointID(observationID)
}

// ClimatePointID identifies a monthly climate signal as year*100+month.
func ClimatePointID(year, month int) uint64 {
	return uint64(year)*100 + uint64(month)
}

// ShiftPointID identifies a species' phenology-shift record. One record per
// species, overwritten on each analysis run.
func ShiftPointID(speciesKey string) uint64 {
	return hashPointID("shift:" + speciesKey)
}

// FactPointID identifies an ecological fact sentence.
func FactPointID(text string) uint64 {
	return hashPointID("fact:" + text)
}

func hashPointID(s string) uint64 {
	hash := sha256.Sum256([]byte(s))
	return binary.BigEndian.Uint64(hash[:8]) % pointIDSpace
}
