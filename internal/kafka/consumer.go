package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/dfreeman-dev/wheel-ledger/internal/models"
)

// RawTradeArchive defines the audit-archive operations the consumer needs.
type RawTradeArchive interface {
	CreateRawTrade(t *models.RawTrade) error
	RawTradeExistsByOrderID(orderID, source string) (bool, error)
}

// TradeIngestor applies trades to the position ledger.
type TradeIngestor interface {
	Ingest(trades ...models.Trade) int
}

// Consumer handles consuming broker execution events from Kafka. Each event
// is archived verbatim for audit and then applied to the ledger; the ledger
// itself is idempotent by trade ID, so redelivery is harmless even when the
// archive check races.
type Consumer struct {
	reader  *kafka.Reader
	archive RawTradeArchive
	ledger  TradeIngestor
}

// NewConsumer creates a new Kafka consumer for broker execution events.
// archive may be nil when no audit database is configured.
func NewConsumer(brokers []string, topic, groupID string, archive RawTradeArchive, ledger TradeIngestor) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.FirstOffset,
		CommitInterval: time.Second,
	})

	return &Consumer{
		reader:  reader,
		archive: archive,
		ledger:  ledger,
	}
}

// Start begins consuming messages from Kafka
func (c *Consumer) Start(ctx context.Context) error {
	log.Printf("Starting Kafka consumer for topic: %s", c.reader.Config().Topic)

	for {
		select {
		case <-ctx.Done():
			log.Println("Kafka consumer shutting down...")
			return c.reader.Close()
		default:
			msg, err := c.reader.ReadMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil // Context cancelled, normal shutdown
				}
				log.Printf("Error reading message: %v", err)
				continue
			}

			if err := c.processMessage(msg); err != nil {
				log.Printf("Error processing message: %v", err)
				// Continue processing other messages
			}
		}
	}
}

// processMessage handles a single Kafka message
func (c *Consumer) processMessage(msg kafka.Message) error {
	var event models.TradeEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("failed to unmarshal trade event: %w", err)
	}

	if event.EventType != "TRADE_EXECUTED" {
		log.Printf("Ignoring event type: %s", event.EventType)
		return nil
	}

	if c.archive != nil {
		exists, err := c.archive.RawTradeExistsByOrderID(event.Data.OrderID, event.Source)
		if err != nil {
			return fmt.Errorf("failed to check for duplicate trade: %w", err)
		}
		if exists {
			log.Printf("Trade %s from %s already archived, skipping", event.Data.OrderID, event.Source)
			return nil
		}
	}

	trade, rawTrade, err := convertEvent(event)
	if err != nil {
		return fmt.Errorf("failed to convert trade event: %w", err)
	}

	if c.archive != nil {
		if err := c.archive.CreateRawTrade(rawTrade); err != nil {
			return fmt.Errorf("failed to archive raw trade: %w", err)
		}
	}

	applied := c.ledger.Ingest(*trade)
	log.Printf("Ingested trade: %s %s %s @ %s (order_id: %s, applied: %d)",
		trade.Type, trade.Quantity, trade.Symbol, trade.Price, trade.ID, applied)

	return nil
}

// convertEvent maps a TradeEvent to the ledger trade and its audit record.
func convertEvent(event models.TradeEvent) (*models.Trade, *models.RawTrade, error) {
	data := event.Data

	if data.OrderID == "" {
		return nil, nil, fmt.Errorf("trade event missing order_id")
	}

	quantity, err := firstDecimal(data.Quantity, data.Shares, data.CumQty)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid quantity %q: %w", data.Quantity, err)
	}

	price, err := firstDecimal(data.AveragePrice, data.AvgPrice)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid price %q: %w", data.AveragePrice, err)
	}

	totalCost, err := decimal.NewFromString(data.TotalNotional)
	if err != nil {
		// Fall back to quantity * price
		totalCost = quantity.Mul(price)
	}

	fees := decimal.Zero
	if data.Fees != "" {
		fees, _ = decimal.NewFromString(data.Fees)
	}

	side := strings.ToUpper(data.Side)
	switch side {
	case models.TradeTypeBuy, models.TradeTypeSell, models.TradeTypeCoveredCall, models.TradeTypeCashSecuredPut:
	default:
		return nil, nil, fmt.Errorf("invalid trade side: %s", data.Side)
	}

	executedAt := parseExecutedAt(data.ExecutedAt)

	var strike *decimal.Decimal
	if data.Strike != "" {
		if parsed, err := decimal.NewFromString(data.Strike); err == nil && parsed.Sign() > 0 {
			strike = &parsed
		}
	}
	var multiplier *decimal.Decimal
	if data.Multiplier != "" {
		if parsed, err := decimal.NewFromString(data.Multiplier); err == nil && !parsed.IsZero() {
			multiplier = &parsed
		}
	}
	var conID int64
	if data.ConID != "" {
		conID, _ = strconv.ParseInt(data.ConID, 10, 64)
	}

	trade := &models.Trade{
		ID:          data.OrderID,
		Symbol:      data.Symbol,
		Type:        side,
		Quantity:    quantity,
		Price:       price,
		Commission:  fees,
		Date:        executedAt,
		SecType:     strings.ToUpper(data.SecType),
		Right:       strings.ToUpper(data.Right),
		Strike:      strike,
		Expiration:  data.Expiration,
		Multiplier:  multiplier,
		LocalSymbol: data.LocalSymbol,
		ConID:       conID,
	}

	var conIDPtr *int64
	if conID != 0 {
		conIDPtr = &conID
	}
	rawTrade := &models.RawTrade{
		OrderID:    data.OrderID,
		Source:     event.Source,
		Symbol:     data.Symbol,
		Side:       side,
		Quantity:   quantity,
		Price:      price,
		TotalCost:  totalCost,
		Fees:       fees,
		SecType:    strings.ToUpper(data.SecType),
		Right:      strings.ToUpper(data.Right),
		Strike:     strike,
		Expiration: data.Expiration,
		ConID:      conIDPtr,
		ExecutedAt: executedAt,
	}

	return trade, rawTrade, nil
}

// firstDecimal parses the first non-empty candidate. Broker payloads name
// the same figure differently, so each field has fallbacks.
func firstDecimal(candidates ...string) (decimal.Decimal, error) {
	for _, c := range candidates {
		if c == "" {
			continue
		}
		return decimal.NewFromString(c)
	}
	return decimal.Zero, fmt.Errorf("no value present")
}

func parseExecutedAt(value *string) time.Time {
	if value == nil || *value == "" {
		return time.Now()
	}
	if parsed, err := time.Parse(time.RFC3339, *value); err == nil {
		return parsed
	}
	// Try parsing without timezone
	if parsed, err := time.Parse("2006-01-02T15:04:05", *value); err == nil {
		return parsed
	}
	return time.Now()
}

// Close closes the Kafka consumer
func (c *Consumer) Close() error {
	return c.reader.Close()
}
