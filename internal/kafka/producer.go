package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dfreeman-dev/wheel-ledger/internal/models"
)

// Producer handles publishing events to Kafka
type Producer struct {
	writer *kafka.Writer
	topic  string
}

// NewProducer creates a new Kafka producer
func NewProducer(brokers []string, topic string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.LeastBytes{},
		BatchTimeout: 10 * time.Millisecond,
	}

	return &Producer{
		writer: writer,
		topic:  topic,
	}
}

// PublishMarketDataApplied publishes the result of a reconciliation pass so
// downstream consumers can react to price movement without polling. Passes
// that updated nothing are not published.
func (p *Producer) PublishMarketDataApplied(ctx context.Context, feed string, result models.SnapshotResult) error {
	if len(result.UpdatedSymbols) == 0 {
		return nil
	}
	event := models.MarketDataEvent{
		EventType:      "MARKET_DATA_APPLIED",
		Feed:           feed,
		UpdatedSymbols: result.UpdatedSymbols,
		NetLiq:         result.NetLiq,
		Timestamp:      time.Now(),
	}
	return p.publish(ctx, feed, event)
}

func (p *Producer) publish(ctx context.Context, key string, event any) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(key),
		Value: data,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to kafka: %w", err)
	}

	return nil
}

// Close closes the Kafka producer
func (p *Producer) Close() error {
	return p.writer.Close()
}
