// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"time"

	"github.com/IBM/sarama"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/storefront/internal/domain/order"
)

// TypeOrderCreated is the event type written for new orders.
const TypeOrderCreated = "order.created"

// Publisher announces domain events.
type Publisher interface {
	PublishOrderCreated(ctx context.Context, o *order.Order) error
}

// Nop discards every event.
type Nop struct{}

// PublishOrderCreated implements Publisher.
func (Nop) PublishOrderCreated(context.Context, *order.Order) error { return nil }

var _ Publisher = (*Kafka)(nil)

// Kafka publishes events through a synchronous sarama producer.
type Kafka struct {
	producer sarama.SyncProducer
	topic    string
	now      func() time.Time
}

// NewKafka dials brokers and returns a publisher writing to topic. The
// producer is idempotent and waits for all in-sync replicas.
func NewKafka(brokers []string, topic string) (*Kafka, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1

	producer, err := sarama.NewSyncProducer(brokers, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "create kafka producer")
	}
	return NewKafkaWithProducer(producer, topic), nil
}

// NewKafkaWithProducer wraps an existing producer.
func NewKafkaWithProducer(producer sarama.SyncProducer, topic string) *Kafka {
	return &Kafka{producer: producer, topic: topic, now: time.Now}
}

// PublishOrderCreated sends the order keyed by its id, so all events of one
// order land on the same partition.
func (k *Kafka) PublishOrderCreated(ctx context.Context, o *order.Order) error {
	msg := &sarama.ProducerMessage{
		Topic:     k.topic,
		Key:       sarama.StringEncoder(o.ID),
		Value:     sarama.ByteEncoder(EncodeOrderCreated(o, k.now())),
		Timestamp: k.now(),
		Headers: []sarama.RecordHeader{
			{Key: []byte("type"), Value: []byte(TypeOrderCreated)},
		},
	}

	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		return errors.Wrapf(err, "send %s", TypeOrderCreated)
	}

	zctx.From(ctx).Debug("Event published",
		zap.String("type", TypeOrderCreated),
		zap.String("order_id", o.ID),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

// Close flushes and closes the producer.
func (k *Kafka) Close() error {
	if err := k.producer.Close(); err != nil {
		return errors.Wrap(err, "close kafka producer")
	}
	return nil
}

// EncodeOrderCreated renders the event payload.
func EncodeOrderCreated(o *order.Order, at time.Time) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("type")
	e.Str(TypeOrderCreated)
	e.FieldStart("occurred_at")
	e.Str(at.UTC().Format(time.RFC3339Nano))
	e.FieldStart("order_id")
	e.Str(o.ID)
	e.FieldStart("customer_id")
	e.Str(o.CustomerID)
	e.FieldStart("ordered_at")
	e.Str(o.OrderedAt.UTC().Format(time.RFC3339Nano))
	e.FieldStart("total")
	e.Str(o.Total().StringFixed(2))
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("product_id")
		e.Str(it.ProductID)
		e.FieldStart("quantity")
		e.Int(it.Quantity)
		e.FieldStart("price")
		e.Str(it.Price.StringFixed(2))
		e.ObjEnd()
	}
	e.ArrEnd()
	e.ObjEnd()
	return e.Bytes()
}
