package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"ms-moviebooking/internal/config"
	"ms-moviebooking/internal/logger"
	"ms-moviebooking/internal/models"
)

// Producer streams booking and showtime lifecycle events. When disabled
// or in mock mode it logs the event instead of writing to a broker, so
// the service runs without Kafka in development.
type Producer struct {
	writer   *kafka.Writer
	topics   config.TopicConfig
	enabled  bool
	mockMode bool
	logger   *logger.Logger
}

func NewProducer(cfg config.KafkaConfig, log *logger.Logger) *Producer {
	p := &Producer{
		topics:   cfg.Topics,
		enabled:  cfg.Enabled,
		mockMode: cfg.MockMode,
		logger:   log,
	}
	if cfg.Enabled && !cfg.MockMode {
		p.writer = &kafka.Writer{
			Addr:     kafka.TCP(cfg.Brokers...),
			Balancer: &kafka.LeastBytes{},
		}
	}
	return p
}

// PublishBookingCreated streams a booking creation event.
func (p *Producer) PublishBookingCreated(ctx context.Context, booking *models.Booking) error {
	return p.publish(ctx, p.topics.BookingCreated, booking.ID, booking)
}

// PublishBookingCancelled streams a booking cancellation event.
func (p *Producer) PublishBookingCancelled(ctx context.Context, booking *models.Booking) error {
	return p.publish(ctx, p.topics.BookingCancelled, booking.ID, booking)
}

// PublishShowtimeCreated streams a showtime creation event.
func (p *Producer) PublishShowtimeCreated(ctx context.Context, showtime *models.Showtime) error {
	return p.publish(ctx, p.topics.ShowtimeCreated, strconv.FormatInt(showtime.ID, 10), showtime)
}

func (p *Producer) publish(ctx context.Context, topic, key string, payload interface{}) error {
	if !p.enabled {
		return nil
	}

	msgBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event for %s: %w", topic, err)
	}

	if p.mockMode || p.writer == nil {
		if p.logger != nil {
			p.logger.LogKafka("MOCK", topic, string(msgBytes))
		}
		return nil
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: msgBytes,
	})
	if err != nil {
		return fmt.Errorf("publish to %s: %w", topic, err)
	}

	if p.logger != nil {
		p.logger.LogKafka("PUBLISH", topic, "key="+key)
	}
	return nil
}

// Close flushes and closes the underlying writer.
func (p *Producer) Close() error {
	if p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
