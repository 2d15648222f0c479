// Package kafka ingests hazard events from the source topic into the
// sequence catalog. Messages are GeoJSON features; the sequence they
// belong to rides in a header, a property, or failing both, the message
// key.
package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	geojson "github.com/paulmach/go.geojson"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/couchcryptid/hazard-replay/internal/config"
	"github.com/couchcryptid/hazard-replay/internal/domain"
	"github.com/couchcryptid/hazard-replay/internal/observability"
)

// sequenceHeader names the Kafka header carrying the target sequence ID.
const sequenceHeader = "sequence_id"

// Sink receives decoded events. The catalog implements it.
type Sink interface {
	Append(sequenceID string, e domain.Event) error
}

// Consumer reads hazard event messages and appends them to their
// sequences.
type Consumer struct {
	reader  *kafkago.Reader
	sink    Sink
	logger  *slog.Logger
	metrics *observability.Metrics

	running atomic.Bool
}

// NewConsumer creates a consumer for the configured source topic.
func NewConsumer(cfg *config.Config, sink Sink, logger *slog.Logger, metrics *observability.Metrics) *Consumer {
	reader := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:  cfg.KafkaBrokers,
		Topic:    cfg.KafkaSourceTopic,
		GroupID:  cfg.KafkaGroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	return &Consumer{reader: reader, sink: sink, logger: logger, metrics: metrics}
}

// Run consumes until the context is cancelled. Undecodable messages are
// logged, counted, and committed past; they are data-quality failures, not
// retryable ones.
func (c *Consumer) Run(ctx context.Context) error {
	c.running.Store(true)
	defer c.running.Store(false)

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch message: %w", err)
		}

		if err := c.handle(msg); err != nil {
			c.logger.Warn("dropping bad event message",
				"error", err, "topic", msg.Topic,
				"partition", msg.Partition, "offset", msg.Offset)
			c.metrics.ConsumeErrors.Inc()
		} else {
			c.metrics.EventsConsumed.Inc()
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("commit offset: %w", err)
		}
	}
}

func (c *Consumer) handle(msg kafkago.Message) error {
	event, sequenceID, err := decodeMessage(msg)
	if err != nil {
		return err
	}
	if err := c.sink.Append(sequenceID, event); err != nil {
		return fmt.Errorf("append to sequence %q: %w", sequenceID, err)
	}
	c.logger.Debug("event ingested",
		"sequence", sequenceID, "event_id", event.ID, "event_type", event.EventType)
	return nil
}

// CheckReadiness reports whether the consume loop is running.
func (c *Consumer) CheckReadiness(_ context.Context) error {
	if !c.running.Load() {
		return fmt.Errorf("kafka consumer not running")
	}
	return nil
}

// Close releases the underlying reader.
func (c *Consumer) Close() error {
	return c.reader.Close()
}

// decodeMessage parses a GeoJSON feature message and resolves its target
// sequence: header first, then a feature property, then the message key.
func decodeMessage(msg kafkago.Message) (domain.Event, string, error) {
	f, err := geojson.UnmarshalFeature(msg.Value)
	if err != nil {
		return domain.Event{}, "", fmt.Errorf("parse feature: %w", err)
	}
	event, err := domain.FromFeature(f)
	if err != nil {
		return domain.Event{}, "", err
	}

	sequenceID := headerValue(msg, sequenceHeader)
	if sequenceID == "" {
		if s, ok := f.Properties[sequenceHeader].(string); ok {
			sequenceID = s
		}
	}
	if sequenceID == "" {
		sequenceID = string(msg.Key)
	}
	if sequenceID == "" {
		return domain.Event{}, "", fmt.Errorf("message carries no sequence ID")
	}
	return event, sequenceID, nil
}

func headerValue(msg kafkago.Message, key string) string {
	for _, h := range msg.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
