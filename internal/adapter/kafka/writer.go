// Package kafka publishes mismatch findings to a Kafka topic so downstream
// consumers (dashboards, alerting) can react to new analysis runs. The
// publisher is optional and only wired when findings publishing is enabled.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/ecosync/phenology/internal/config"
	"github.com/ecosync/phenology/internal/domain"
)

// Writer produces mismatch findings to a Kafka topic.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured findings topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaFindingsTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishFindings serializes and publishes findings in a single
// WriteMessages call.
func (w *Writer) PublishFindings(ctx context.Context, findings []domain.MismatchFinding) error {
	if len(findings) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(findings))
	for i := range findings {
		msg, err := serializeToMessage(findings[i])
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish findings: %w", err)
	}
	w.logger.Info("published findings", "count", len(findings))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a finding into a Kafka message. The key is
// the species pair so findings for the same pair land on the same
// partition in order.
func serializeToMessage(finding domain.MismatchFinding) (kafkago.Message, error) {
	data, err := json.Marshal(finding)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize finding: %w", err)
	}
	key := fmt.Sprintf("%s:%s", finding.SpeciesA.Key, finding.SpeciesB.Key)
	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "severity", Value: []byte(finding.Severity)},
			{Key: "detected_at", Value: []byte(finding.DetectedAt.Format(time.RFC3339))},
		},
	}, nil
}
