// Command validate performs end-to-end integrity checks over an ingested
// deployment: source files on disk, collection counts in the vector index,
// spot retrievals, and cross-source consistency between raw rows and
// stored points.
//
// Usage:
//
//	go run ./cmd/validate            # checks files and the live index
//	go run ./cmd/validate -offline   # checks source files only
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/ecosync/phenology/internal/adapter/csvsource"
	"github.com/ecosync/phenology/internal/adapter/embedding"
	"github.com/ecosync/phenology/internal/adapter/qdrant"
	"github.com/ecosync/phenology/internal/config"
	"github.com/ecosync/phenology/internal/domain"
	"github.com/ecosync/phenology/internal/ecology"
	"github.com/ecosync/phenology/internal/observability"
	"github.com/ecosync/phenology/internal/retrieval"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func (p *phase) report() {
	if p.passed() {
		fmt.Printf("PASS  %s\n", p.name)
		return
	}
	fmt.Printf("FAIL  %s\n", p.name)
	for _, e := range p.errors {
		fmt.Printf("      - %s\n", e)
	}
}

func main() {
	offline := flag.Bool("offline", false, "skip the live index checks")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	os.Exit(run(cfg, *offline))
}

func run(cfg *config.Config, offline bool) int {
	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetricsForTesting()

	facts, err := ecology.Load(cfg.EcologyFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "ecology facts: %v\n", err)
		return 1
	}

	phases := []*phase{checkSourceFiles(cfg, facts, logger)}
	if !offline {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()

		index := qdrant.NewClient(cfg.QdrantURL, cfg.QdrantTimeout, logger)
		embedClient := embedding.NewClient(cfg.EmbedURL, cfg.EmbedTimeout, metrics, logger)
		retriever := retrieval.New(embedClient, index, cfg.RetrievalLimit, logger, metrics)

		phases = append(phases,
			checkCollections(ctx, index, cfg, facts),
			checkRetrieval(ctx, retriever, cfg),
		)
	}

	failed := 0
	for _, p := range phases {
		p.report()
		if !p.passed() {
			failed++
		}
	}
	if failed > 0 {
		fmt.Printf("\n%d of %d phases failed\n", failed, len(phases))
		return 1
	}
	fmt.Printf("\nall %d phases passed\n", len(phases))
	return 0
}

// checkSourceFiles verifies the raw inputs load, normalize cleanly, and
// reference only known species.
func checkSourceFiles(cfg *config.Config, facts *ecology.Facts, logger *slog.Logger) *phase {
	p := &phase{name: "source files"}

	source := csvsource.NewSource(cfg.DataDir, logger)
	raw, err := source.ReadObservations()
	if err != nil {
		p.errorf("read observations: %v", err)
		return p
	}
	if len(raw) == 0 {
		p.errorf("no raw observation rows in %s", cfg.DataDir)
		return p
	}

	table := facts.Table()
	unknown := make(map[string]bool)
	for _, rec := range raw {
		if _, ok := table[rec.SpeciesKey]; !ok {
			unknown[rec.SpeciesKey] = true
		}
	}
	for key := range unknown {
		p.errorf("observation file for species %q has no ecology entry", key)
	}

	result, err := domain.Normalize(raw, table, domain.NormalizeOptions{
		ValidDates:         cfg.ValidDates,
		Region:             cfg.Region,
		SkipUnknownSpecies: true,
	})
	if err != nil {
		p.errorf("normalize: %v", err)
		return p
	}
	if len(result.Observations) == 0 {
		p.errorf("normalization kept 0 of %d rows", len(raw))
	}

	if cfg.ClimateFile != "" {
		if _, err := source.ReadClimate(cfg.ClimateFile); err != nil {
			p.errorf("read climate: %v", err)
		}
	}
	return p
}

// checkCollections verifies every collection exists and carries points.
func checkCollections(ctx context.Context, index *qdrant.Client, cfg *config.Config,
	facts *ecology.Facts) *phase {
	p := &phase{name: "index collections"}

	counts := make(map[string]int)
	for _, name := range domain.Collections() {
		count, err := index.Stats(ctx, name)
		if err != nil {
			p.errorf("stats for %s: %v", name, err)
			continue
		}
		counts[name] = count
	}
	if len(p.errors) > 0 {
		return p
	}

	if counts[domain.CollectionObservations] == 0 {
		p.errorf("%s is empty", domain.CollectionObservations)
	}
	if counts[domain.CollectionMetadata] < len(facts.Relationships) {
		p.errorf("%s holds %d points, want at least %d relationships",
			domain.CollectionMetadata, counts[domain.CollectionMetadata], len(facts.Relationships))
	}
	if counts[domain.CollectionPatterns] == 0 {
		p.errorf("%s is empty; no species met the minimum observation count", domain.CollectionPatterns)
	}
	if cfg.ClimateFile != "" && counts[domain.CollectionClimate] == 0 {
		p.errorf("%s is empty despite a configured climate file", domain.CollectionClimate)
	}
	return p
}

// checkRetrieval runs one spot query per typed collection and verifies the
// payloads decode into valid records.
func checkRetrieval(ctx context.Context, retriever *retrieval.Retriever, cfg *config.Config) *phase {
	p := &phase{name: "spot retrieval"}

	observations, err := retriever.Observations(ctx, "species observation", 5, nil)
	if err != nil {
		p.errorf("observations query: %v", err)
	} else if len(observations) == 0 {
		p.errorf("observations query returned no results")
	} else {
		for _, obs := range observations {
			if obs.SpeciesKey == "" || obs.DayOfYear < 1 || obs.DayOfYear > 366 {
				p.errorf("malformed observation payload: id=%s key=%q doy=%d", obs.ID, obs.SpeciesKey, obs.DayOfYear)
			}
			if !cfg.ValidDates.Contains(obs.ObservedAt) {
				p.errorf("observation %s dated %s outside the valid window", obs.ID, obs.ObservedAt.Format("2006-01-02"))
			}
		}
	}

	shifts, err := retriever.Shifts(ctx, "phenology shift", 5, nil)
	if err != nil {
		p.errorf("shifts query: %v", err)
	} else {
		for _, shift := range shifts {
			if shift.SpeciesKey == "" {
				p.errorf("shift payload missing species key")
			}
			if shift.Direction != domain.ShiftEarlier && shift.Direction != domain.ShiftLater {
				p.errorf("shift for %s has direction %q", shift.SpeciesKey, shift.Direction)
			}
		}
	}

	facts, err := retriever.Facts(ctx, "species relationship", 3)
	if err != nil {
		p.errorf("facts query: %v", err)
	} else if len(facts) == 0 {
		p.errorf("facts query returned no results")
	}

	return p
}
