package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/couchcryptid/cafepick-api/internal/config"
	"github.com/couchcryptid/cafepick-api/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Writer publishes raw cafe records to the ingestion topic. The import
// command uses it as a sink so the pipeline derives and stores them.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a producer for the configured ingestion topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// PublishRaw writes the records of one city in a single WriteMessages call.
// Records keyed by id land on the same partition, keeping updates ordered.
func (w *Writer) PublishRaw(ctx context.Context, city string, raws []domain.RawVenue) error {
	if len(raws) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, 0, len(raws))
	for i := range raws {
		msg, err := serializeToMessage(city, raws[i])
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish %d cafes: %w", len(msgs), err)
	}
	w.logger.Debug("published raw cafes", "city", city, "count", len(msgs))
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a raw record into a message carrying its city.
func serializeToMessage(city string, raw domain.RawVenue) (kafkago.Message, error) {
	data, err := json.Marshal(raw)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize cafe %s: %w", raw.ID, err)
	}
	if raw.City != "" {
		city = raw.City
	}
	return kafkago.Message{
		Key:   []byte(raw.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: domain.HeaderCity, Value: []byte(city)},
		},
	}, nil
}
