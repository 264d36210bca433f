package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ecosync/phenology/internal/domain"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Vector index (Qdrant).
	QdrantURL     string
	QdrantTimeout time.Duration
	VectorSize    int

	// Embedding inference server.
	EmbedURL       string
	EmbedTimeout   time.Duration
	EmbedCacheSize int

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Ingestion inputs.
	DataDir     string
	ClimateFile string
	EcologyFile string
	BatchSize   int

	// Study window.
	ValidDates    domain.DateRange
	Region        domain.RegionBounds
	BaselineYears []int
	CurrentYears  []int

	// Analysis.
	MinObservations int
	AnalysisYear    int
	RetrievalLimit  int

	// Optional findings sink.
	KafkaBrokers       []string
	KafkaFindingsTopic string
	KafkaEnabled       bool
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	qdrantTimeout, err := parseDuration("QDRANT_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	embedTimeout, err := parseDuration("EMBED_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	vectorSize, err := parseIntRange("VECTOR_SIZE", 384, 1, 4096)
	if err != nil {
		return nil, err
	}
	batchSize, err := parseIntRange("BATCH_SIZE", 100, 1, 1000)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parseIntRange("EMBED_CACHE_SIZE", 1000, 1, 1_000_000)
	if err != nil {
		return nil, err
	}
	minObservations, err := parseIntRange("MIN_OBSERVATIONS", domain.DefaultMinObservations, 1, 10_000)
	if err != nil {
		return nil, err
	}
	analysisYear, err := parseIntRange("ANALYSIS_YEAR", 2024, 1900, 2200)
	if err != nil {
		return nil, err
	}
	retrievalLimit, err := parseIntRange("RETRIEVAL_LIMIT", 200, 1, 10_000)
	if err != nil {
		return nil, err
	}

	validDates, err := parseDateRange("DATE_FROM", "2019-01-01", "DATE_TO", "2024-12-31")
	if err != nil {
		return nil, err
	}
	region, err := parseRegionBounds()
	if err != nil {
		return nil, err
	}
	baselineYears, err := parseYears("BASELINE_YEARS", "2019,2020")
	if err != nil {
		return nil, err
	}
	currentYears, err := parseYears("CURRENT_YEARS", "2022,2023,2024")
	if err != nil {
		return nil, err
	}

	findingsTopic := os.Getenv("KAFKA_FINDINGS_TOPIC")
	kafkaEnabled := findingsTopic != ""
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	cfg := &Config{
		QdrantURL:     envOrDefault("QDRANT_URL", "http://localhost:6333"),
		QdrantTimeout: qdrantTimeout,
		VectorSize:    vectorSize,

		EmbedURL:       envOrDefault("EMBED_URL", "http://localhost:8081"),
		EmbedTimeout:   embedTimeout,
		EmbedCacheSize: cacheSize,

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DataDir:     envOrDefault("DATA_DIR", "data/raw"),
		ClimateFile: envOrDefault("CLIMATE_FILE", "data/raw/climate_daily.csv"),
		EcologyFile: envOrDefault("ECOLOGY_FILE", "config/ecology.yaml"),
		BatchSize:   batchSize,

		ValidDates:    validDates,
		Region:        region,
		BaselineYears: baselineYears,
		CurrentYears:  currentYears,

		MinObservations: minObservations,
		AnalysisYear:    analysisYear,
		RetrievalLimit:  retrievalLimit,

		KafkaBrokers:       splitAndTrim(envOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaFindingsTopic: findingsTopic,
		KafkaEnabled:       kafkaEnabled,
	}

	if cfg.ValidDates.To.Before(cfg.ValidDates.From) {
		return nil, errors.New("DATE_TO is before DATE_FROM")
	}
	if cfg.Region.LatMax < cfg.Region.LatMin || cfg.Region.LngMax < cfg.Region.LngMin {
		return nil, errors.New("region bounds are inverted")
	}
	if cfg.KafkaEnabled && cfg.KafkaFindingsTopic == "" {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_FINDINGS_TOPIC is not set")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is empty")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseIntRange(key string, fallback, min, max int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("invalid %s: must be an integer in [%d, %d]", key, min, max)
	}
	return n, nil
}

func parseDateRange(fromKey, fromDefault, toKey, toDefault string) (domain.DateRange, error) {
	from, err := time.Parse("2006-01-02", envOrDefault(fromKey, fromDefault))
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("invalid %s", fromKey)
	}
	to, err := time.Parse("2006-01-02", envOrDefault(toKey, toDefault))
	if err != nil {
		return domain.DateRange{}, fmt.Errorf("invalid %s", toKey)
	}
	return domain.DateRange{From: from, To: to}, nil
}

// parseRegionBounds defaults to the Karnataka study rectangle.
func parseRegionBounds() (domain.RegionBounds, error) {
	var bounds domain.RegionBounds
	for _, field := range []struct {
		key      string
		fallback string
		dest     *float64
	}{
		{"REGION_LAT_MIN", "11.5", &bounds.LatMin},
		{"REGION_LAT_MAX", "18.5", &bounds.LatMax},
		{"REGION_LNG_MIN", "74.0", &bounds.LngMin},
		{"REGION_LNG_MAX", "78.5", &bounds.LngMax},
	} {
		v, err := strconv.ParseFloat(envOrDefault(field.key, field.fallback), 64)
		if err != nil {
			return domain.RegionBounds{}, fmt.Errorf("invalid %s", field.key)
		}
		*field.dest = v
	}
	return bounds, nil
}

func parseYears(key, fallback string) ([]int, error) {
	parts := splitAndTrim(envOrDefault(key, fallback))
	if len(parts) == 0 {
		return nil, fmt.Errorf("invalid %s: empty year list", key)
	}
	years := make([]int, 0, len(parts))
	for _, p := range parts {
		y, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %q is not a year", key, p)
		}
		years = append(years, y)
	}
	return years, nil
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
