// Package kafka publishes committed ledger and order activity to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/dos-laredos/dos-laredos/internal/inventory"
	"github.com/dos-laredos/dos-laredos/internal/orders"
)

// Message types carried in the "type" header.
const (
	TypeLedgerEvent       = "ledger.event"
	TypeOrderStatusChange = "order.status_changed"
)

// Writer is the subset of *kafka.Writer the publisher needs.
type Writer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config configures the Kafka writer.
type Config struct {
	Brokers      []string
	Topic        string
	BatchTimeout time.Duration
}

// Publisher implements orders.EventSink on Kafka.
type Publisher struct {
	writer Writer
}

var _ orders.EventSink = (*Publisher)(nil)

// New constructs a Publisher backed by a kafka.Writer.
func New(cfg Config) *Publisher {
	batchTimeout := cfg.BatchTimeout
	if batchTimeout <= 0 {
		batchTimeout = 50 * time.Millisecond
	}
	return NewWithWriter(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: batchTimeout,
		RequiredAcks: kafka.RequireOne,
	})
}

// NewWithWriter wraps an existing writer.
func NewWithWriter(w Writer) *Publisher {
	return &Publisher{writer: w}
}

// LedgerEventsCommitted publishes one message per event keyed by pallet, so a
// pallet's events stay ordered within a partition.
func (p *Publisher) LedgerEventsCommitted(ctx context.Context, events []inventory.Event) error {
	if len(events) == 0 {
		return nil
	}
	msgs := make([]kafka.Message, 0, len(events))
	for _, evt := range events {
		msg, err := message(TypeLedgerEvent, "pallet-"+strconv.FormatInt(evt.PalletID, 10), evt)
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka: publish ledger events: %w", err)
	}
	return nil
}

// OrderStatusChanged publishes an order transition keyed by order.
func (p *Publisher) OrderStatusChanged(ctx context.Context, change orders.StatusChange) error {
	msg, err := message(TypeOrderStatusChange, "order-"+strconv.FormatInt(change.OrderID, 10), change)
	if err != nil {
		return err
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("kafka: publish order %s: %w", change.Number, err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}

func message(kind, key string, body any) (kafka.Message, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("kafka: encode %s: %w", kind, err)
	}
	return kafka.Message{
		Key:     []byte(key),
		Value:   payload,
		Headers: []kafka.Header{{Key: "type", Value: []byte(kind)}},
	}, nil
}
