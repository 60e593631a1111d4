package telemetry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

// MessageReader is the subset of *kafka.Reader the relay uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// RelayConfig holds configuration for the telemetry relay.
type RelayConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

// Relay consumes events published by KafkaSink and forwards them to a sink,
// typically the PostgresSink.
type Relay struct {
	reader MessageReader
	sink   Sink
	logger zerolog.Logger
}

// NewRelay creates a relay reading from Kafka.
func NewRelay(cfg RelayConfig, sink Sink, logger zerolog.Logger) *Relay {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6,
		MaxWait:  3 * time.Second,
	})
	return NewRelayWithReader(reader, sink, logger)
}

// NewRelayWithReader creates a relay over an existing reader.
func NewRelayWithReader(reader MessageReader, sink Sink, logger zerolog.Logger) *Relay {
	return &Relay{
		reader: reader,
		sink:   sink,
		logger: logger.With().Str("component", "telemetry_relay").Logger(),
	}
}

// Run forwards messages until ctx is cancelled. Undecodable messages and
// sink failures are logged and skipped.
func (r *Relay) Run(ctx context.Context) error {
	r.logger.Info().Str("sink", r.sink.Name()).Msg("starting telemetry relay")

	for {
		msg, err := r.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				r.logger.Info().Msg("telemetry relay stopped via context cancellation")
				return ctx.Err()
			}
			r.logger.Error().Err(err).Msg("failed to read message from Kafka")
			continue
		}

		var e Event
		if err := json.Unmarshal(msg.Value, &e); err != nil {
			r.logger.Error().Err(err).
				Int("partition", msg.Partition).
				Int64("offset", msg.Offset).
				Msg("failed to unmarshal telemetry event")
			continue
		}

		if err := r.sink.Write(ctx, e); err != nil {
			r.logger.Error().Err(err).
				Str("event_id", e.ID.String()).
				Str("event_component", e.Component).
				Msg("failed to forward telemetry event")
		}
	}
}

// Close closes the Kafka reader.
func (r *Relay) Close() error {
	r.logger.Info().Msg("closing telemetry relay")
	return r.reader.Close()
}
