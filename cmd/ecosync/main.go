// Command ecosync is the interactive question console over an already
// ingested vector index. It answers timing, shift, climate, and mismatch
// questions from stdin until EOF or a quit command.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/ecosync/phenology/internal/adapter/embedding"
	"github.com/ecosync/phenology/internal/adapter/qdrant"
	"github.com/ecosync/phenology/internal/agent"
	"github.com/ecosync/phenology/internal/config"
	"github.com/ecosync/phenology/internal/ecology"
	"github.com/ecosync/phenology/internal/observability"
	"github.com/ecosync/phenology/internal/retrieval"
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
	retriever := retrieval.New(embedder, index, cfg.RetrievalLimit, logger, metrics)

	a := agent.New(retriever, facts, cfg.AnalysisYear, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := a.Run(ctx, os.Stdin, os.Stdout); err != nil {
		logger.Error("session failed", "error", err)
		os.Exit(1)
	}
}
