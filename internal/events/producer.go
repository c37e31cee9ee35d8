package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

// PointEvent is published whenever a profile's balance moves
type PointEvent struct {
	ProfileID  string    `json:"profile_id"`
	Amount     int64     `json:"amount"`
	Source     string    `json:"source"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Producer publishes point events to Kafka. Publishing is fire-and-forget:
// delivery failures are logged, never surfaced to the request path.
type Producer struct {
	producer sarama.AsyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewProducer connects an async producer to the given brokers
func NewProducer(brokers []string, topic string, logger zerolog.Logger) (*Producer, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Flush.Frequency = 500 * time.Millisecond
	cfg.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to start kafka producer: %w", err)
	}

	p := &Producer{producer: producer, topic: topic, logger: logger}

	go func() {
		for err := range producer.Errors() {
			p.logger.Error().Err(err).Msg("failed to publish point event")
		}
	}()

	logger.Info().Strs("brokers", brokers).Str("topic", topic).Msg("kafka producer connected")
	return p, nil
}

// PublishPointEvent emits a balance movement, keyed by profile so one
// profile's events stay ordered
func (p *Producer) PublishPointEvent(profileID string, amount int64, source string) {
	event := PointEvent{
		ProfileID:  profileID,
		Amount:     amount,
		Source:     source,
		OccurredAt: time.Now().UTC(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.Error().Err(err).Msg("failed to encode point event")
		return
	}

	p.producer.Input() <- &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(profileID),
		Value: sarama.ByteEncoder(payload),
	}
}

// Close flushes buffered messages and shuts the producer down
func (p *Producer) Close() error {
	return p.producer.Close()
}
