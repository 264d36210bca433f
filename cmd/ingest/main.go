// Command ingest runs one full ingestion-and-analysis cycle: it loads the
// raw observation and climate files, populates the vector index, analyzes
// the known species pairs, and optionally publishes findings to Kafka. The
// operational HTTP endpoints stay up until the process is signalled.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ecosync/phenology/internal/adapter/csvsource"
	"github.com/ecosync/phenology/internal/adapter/embedding"
	httpadapter "github.com/ecosync/phenology/internal/adapter/http"
	kafkaadapter "github.com/ecosync/phenology/internal/adapter/kafka"
	"github.com/ecosync/phenology/internal/adapter/qdrant"
	"github.com/ecosync/phenology/internal/config"
	"github.com/ecosync/phenology/internal/domain"
	"github.com/ecosync/phenology/internal/ecology"
	"github.com/ecosync/phenology/internal/observability"
	"github.com/ecosync/phenology/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	facts, err := ecology.Load(cfg.EcologyFile)
	if err != nil {
		logger.Error("failed to load ecology facts", "error", err)
		os.Exit(1)
	}

	index := qdrant.NewClient(cfg.QdrantURL, cfg.QdrantTimeout, logger)
	embedClient := embedding.NewClient(cfg.EmbedURL, cfg.EmbedTimeout, metrics, logger)
	embedder := embedding.NewCachedEmbedder(embedClient, cfg.EmbedCacheSize, metrics)
	source := csvsource.NewSource(cfg.DataDir, logger)

	// Findings publisher is feature-flagged via KAFKA_ENABLED / KAFKA_FINDINGS_TOPIC.
	var publisher pipeline.FindingsPublisher
	var kafkaWriter *kafkaadapter.Writer
	if cfg.KafkaEnabled {
		kafkaWriter = kafkaadapter.NewWriter(cfg, logger)
		publisher = kafkaWriter
		logger.Info("findings publishing enabled", "topic", cfg.KafkaFindingsTopic)
	} else {
		logger.Info("findings publishing disabled")
	}

	p := pipeline.New(source, source, embedder, index, facts, publisher, pipeline.Options{
		BatchSize:   cfg.BatchSize,
		VectorSize:  cfg.VectorSize,
		ClimateFile: cfg.ClimateFile,
		Normalize: domain.NormalizeOptions{
			ValidDates:         cfg.ValidDates,
			Region:             cfg.Region,
			SkipUnknownSpecies: true,
		},
		BaselineYears:   cfg.BaselineYears,
		CurrentYears:    cfg.CurrentYears,
		MinObservations: cfg.MinObservations,
		AnalysisYear:    cfg.AnalysisYear,
	}, logger, metrics)

	srv := httpadapter.NewServer(cfg.HTTPAddr, p, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	if err := p.Run(ctx); err != nil {
		logger.Error("ingestion failed", "error", err)
		stop()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}
	if kafkaWriter != nil {
		if err := kafkaWriter.Close(); err != nil {
			logger.Error("kafka writer close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
