// Package csvsource reads raw species observation exports and daily
// climate data from CSV files on disk.
//
// Observation files live in a data directory, one file per species, named
// <species_key>.csv. Columns are matched by header name so exports with
// reordered or extra columns still load.
package csvsource

import (
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ecosync/phenology/internal/domain"
)

// Source reads observation and climate CSV files.
type Source struct {
	dataDir string
	logger  *slog.Logger
}

// NewSource creates a CSV source rooted at the given data directory.
func NewSource(dataDir string, logger *slog.Logger) *Source {
	return &Source{dataDir: dataDir, logger: logger}
}

// ReadObservations loads every per-species CSV in the data directory. The
// species key comes from the file name; unreadable rows fail the whole
// load so partial ingests never happen silently.
func (s *Source) ReadObservations() ([]domain.RawRecord, error) {
	paths, err := filepath.Glob(filepath.Join(s.dataDir, "*.csv"))
	if err != nil {
		return nil, fmt.Errorf("list observation files: %w", err)
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no observation files in %s", s.dataDir)
	}

	var records []domain.RawRecord
	for _, path := range paths {
		speciesKey := strings.TrimSuffix(filepath.Base(path), ".csv")
		fileRecords, err := readObservationFile(path, speciesKey)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		s.logger.Debug("read observation file", "species", speciesKey, "rows", len(fileRecords))
		records = append(records, fileRecords...)
	}
	return records, nil
}

func readObservationFile(path, speciesKey string) ([]domain.RawRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	cols := columnIndex(header)
	for _, required := range []string{"id", "observed_on", "latitude", "longitude"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var records []domain.RawRecord
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		records = append(records, domain.RawRecord{
			ID:         field(row, cols, "id"),
			SpeciesKey: speciesKey,
			ObservedOn: field(row, cols, "observed_on"),
			Latitude:   field(row, cols, "latitude"),
			Longitude:  field(row, cols, "longitude"),
			Place:      field(row, cols, "place_guess"),
			Quality:    field(row, cols, "quality_grade"),
		})
	}
	return records, nil
}

// ReadClimate loads a daily climate CSV. Dates must be YYYY-MM-DD and the
// numeric columns must parse; a bad row fails the load.
func (s *Source) ReadClimate(path string) ([]domain.DailyClimate, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open climate file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read climate header: %w", err)
	}
	cols := columnIndex(header)
	for _, required := range []string{"date", "temp_mean", "temp_max", "temp_min", "precipitation_mm"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("climate file missing column %q", required)
		}
	}

	var days []domain.DailyClimate
	for line := 2; ; line++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("climate line %d: %w", line, err)
		}

		date, err := time.Parse("2006-01-02", field(row, cols, "date"))
		if err != nil {
			return nil, fmt.Errorf("climate line %d: parse date: %w", line, err)
		}
		day := domain.DailyClimate{Date: date}
		for _, col := range []struct {
			name string
			dst  *float64
		}{
			{"temp_mean", &day.TempMean},
			{"temp_max", &day.TempMax},
			{"temp_min", &day.TempMin},
			{"precipitation_mm", &day.PrecipitationMM},
		} {
			v, err := strconv.ParseFloat(field(row, cols, col.name), 64)
			if err != nil {
				return nil, fmt.Errorf("climate line %d: parse %s: %w", line, col.name, err)
			}
			*col.dst = v
		}
		days = append(days, day)
	}

	s.logger.Debug("read climate file", "path", path, "days", len(days))
	return days, nil
}

func columnIndex(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return cols
}

func field(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
