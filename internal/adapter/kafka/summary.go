// Package kafka publishes per-partition collection summaries to a Kafka
// topic. The sink is optional and advisory: downstream dashboards consume it,
// but a publish failure never fails the run.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/riverwatch/usgs-water-etl/internal/config"
	"github.com/riverwatch/usgs-water-etl/internal/domain"
)

// Publisher writes PartitionSummary records to the summary topic.
type Publisher struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewPublisher creates a Kafka producer for the configured summary topic.
func NewPublisher(cfg *config.Config, logger *slog.Logger) *Publisher {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSummaryTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Publisher{writer: w, logger: logger}
}

// PublishSummary serializes and sends one partition summary.
func (p *Publisher) PublishSummary(ctx context.Context, summary domain.PartitionSummary) error {
	msg, err := serializeSummary(summary)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, msg)
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}

// serializeSummary marshals a PartitionSummary into a Kafka message keyed by
// state, so consumers see summaries for one partition in order.
func serializeSummary(summary domain.PartitionSummary) (kafkago.Message, error) {
	data, err := json.Marshal(summary)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize partition summary: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(summary.State),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "completed_at", Value: []byte(summary.CompletedAt.Format(time.RFC3339))},
		},
	}, nil
}
