// Package events publishes order lifecycle events to Kafka for downstream
// consumers (fulfillment, notifications). Publishing is strictly
// fire-and-forget from the order path: failures are logged, never returned.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-faster/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/copiblocks/shop-api/internal/domain/order"
)

// OrderCreatedEvent is the payload emitted after an order is persisted.
type OrderCreatedEvent struct {
	OrderID         string    `json:"order_id"`
	ProductID       string    `json:"product_id"`
	CustomerEmail   string    `json:"customer_email"`
	WalletAddress   string    `json:"wallet_address"`
	Amount          string    `json:"amount"`
	TransactionHash string    `json:"transaction_hash"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// Publisher emits order events via a synchronous Kafka producer.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
	lg       *zap.Logger
}

var _ order.Notifier = (*Publisher)(nil)

// NewPublisher connects a sync producer to the given brokers.
func NewPublisher(brokers []string, topic string, lg *zap.Logger) (*Publisher, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create kafka producer")
	}

	return &Publisher{
		producer: producer,
		topic:    topic,
		lg:       lg,
	}, nil
}

// OrderCreated publishes the event for a freshly persisted order. Implements
// order.Notifier; errors are logged and swallowed so a broker outage cannot
// fail a checkout.
func (p *Publisher) OrderCreated(ctx context.Context, o *order.Order) {
	evt := OrderCreatedEvent{
		OrderID:         o.ID,
		ProductID:       o.Product.ID,
		CustomerEmail:   o.CustomerEmail,
		WalletAddress:   o.WalletAddress,
		Amount:          o.Amount.String(),
		TransactionHash: o.TransactionHash,
		Status:          string(o.Status),
		CreatedAt:       o.CreatedAt,
	}

	payload, err := json.Marshal(evt)
	if err != nil {
		p.lg.Error("marshal order event", zap.Error(err))
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(o.ID),
		Value: sarama.ByteEncoder(payload),
	}

	// Propagate the trace context in message headers so consumers join the
	// request trace.
	carrier := headerCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, &carrier)
	msg.Headers = carrier

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.lg.Error("publish order event",
			zap.String("order_id", o.ID),
			zap.Error(err),
		)
		return
	}

	fields := []zap.Field{
		zap.String("order_id", o.ID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	}
	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		fields = append(fields, zap.String("trace_id", span.SpanContext().TraceID().String()))
	}
	p.lg.Info("order event published", fields...)
}

// Close shuts down the underlying producer.
func (p *Publisher) Close() error {
	return p.producer.Close()
}

// headerCarrier adapts sarama record headers to the otel TextMapCarrier.
type headerCarrier []sarama.RecordHeader

var _ propagation.TextMapCarrier = (*headerCarrier)(nil)

func (c headerCarrier) Get(key string) string {
	for _, h := range c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	*c = append(*c, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, len(c))
	for i, h := range c {
		keys[i] = string(h.Key)
	}
	return keys
}
