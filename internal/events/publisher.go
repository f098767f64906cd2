// Package events publishes domain events to Kafka. Publishing never fails or
// blocks the operation that triggered it: events are queued, written by a
// background goroutine, and write errors are logged and dropped.
package events

import (
	"context"
	"encoding/json"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/kafka-go"
	"github.com/vasiliy-maslov/laptop-store/internal/catalog"
	"github.com/vasiliy-maslov/laptop-store/internal/config"
	"github.com/vasiliy-maslov/laptop-store/internal/order"
	"github.com/vasiliy-maslov/laptop-store/internal/payment"
)

const (
	TypeProductUpserted    = "product.upserted"
	TypeProductRemoved     = "product.removed"
	TypeOrderPlaced        = "order.placed"
	TypeOrderStatusChanged = "order.status_changed"
	TypePaymentConfirmed   = "payment.confirmed"
	TypePaymentFailed      = "payment.failed"
)

const (
	writeTimeout = 5 * time.Second
	// closeTimeout bounds how long Close waits for queued events before
	// abandoning in-flight writes.
	closeTimeout = 10 * time.Second
	queueSize    = 1024
)

// Envelope wraps every published payload.
type Envelope struct {
	EventID    string    `json:"event_id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type productRemoved struct {
	ProductID int64 `json:"product_id"`
}

type orderStatusChanged struct {
	OrderID int64        `json:"order_id"`
	From    order.Status `json:"from"`
	To      order.Status `json:"to"`
}

type paymentFailed struct {
	payment.Transaction
	Reason string `json:"reason"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type outbound struct {
	w         messageWriter
	msg       kafka.Message
	eventType string
	eventID   string
	key       int64
}

// KafkaPublisher feeds the product search index topic and the order events topic.
type KafkaPublisher struct {
	products messageWriter
	orders   messageWriter
	now      func() time.Time

	mu     sync.RWMutex
	closed bool
	queue  chan outbound
	done   chan struct{}

	// ctx is cancelled when Close gives up waiting for the queue to drain.
	ctx    context.Context
	cancel context.CancelFunc
}

var (
	_ catalog.SearchIndexer = (*KafkaPublisher)(nil)
	_ order.Notifier        = (*KafkaPublisher)(nil)
	_ payment.Gateway       = (*KafkaPublisher)(nil)
)

func NewKafkaPublisher(cfg config.KafkaConfig) *KafkaPublisher {
	return newPublisher(newWriter(cfg.Brokers, cfg.ProductTopic), newWriter(cfg.Brokers, cfg.OrderTopic))
}

func newPublisher(products, orders messageWriter) *KafkaPublisher {
	ctx, cancel := context.WithCancel(context.Background())
	p := &KafkaPublisher{
		products: products,
		orders:   orders,
		now:      func() time.Time { return time.Now().UTC() },
		queue:    make(chan outbound, queueSize),
		done:     make(chan struct{}),
		ctx:      ctx,
		cancel:   cancel,
	}
	go p.run()
	return p
}

func (p *KafkaPublisher) run() {
	defer close(p.done)
	for ev := range p.queue {
		p.write(ev)
	}
}

func newWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 10 * time.Millisecond,
		MaxAttempts:  3,
		Transport: &kafka.Transport{
			Dial: (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		},
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...any) {
			log.Error().Str("topic", topic).Msgf("kafka: "+msg, args...)
		}),
	}
}

func (p *KafkaPublisher) IndexProduct(ctx context.Context, product catalog.Product) {
	p.publish(ctx, p.products, product.ID, TypeProductUpserted, product)
}

func (p *KafkaPublisher) RemoveProduct(ctx context.Context, id int64) {
	p.publish(ctx, p.products, id, TypeProductRemoved, productRemoved{ProductID: id})
}

func (p *KafkaPublisher) OrderPlaced(ctx context.Context, o order.Order) {
	p.publish(ctx, p.orders, o.ID, TypeOrderPlaced, o)
}

func (p *KafkaPublisher) OrderStatusChanged(ctx context.Context, o order.Order, from order.Status) {
	p.publish(ctx, p.orders, o.ID, TypeOrderStatusChanged, orderStatusChanged{OrderID: o.ID, From: from, To: o.Status})
}

func (p *KafkaPublisher) PaymentConfirmed(ctx context.Context, t payment.Transaction) {
	p.publish(ctx, p.orders, t.OrderID, TypePaymentConfirmed, t)
}

func (p *KafkaPublisher) PaymentFailed(ctx context.Context, t payment.Transaction, reason string) {
	p.publish(ctx, p.orders, t.OrderID, TypePaymentFailed, paymentFailed{Transaction: t, Reason: reason})
}

// publish encodes the event and queues it. It never waits on the broker; when
// the queue is full or the publisher is closed the event is dropped and logged.
func (p *KafkaPublisher) publish(_ context.Context, w messageWriter, key int64, eventType string, payload any) {
	id, err := uuid.NewV4()
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("events: failed to generate event id")
		return
	}

	body, err := json.Marshal(Envelope{
		EventID:    id.String(),
		Type:       eventType,
		OccurredAt: p.now(),
		Payload:    payload,
	})
	if err != nil {
		log.Error().Err(err).Str("type", eventType).Msg("events: failed to encode event")
		return
	}

	ev := outbound{
		w:         w,
		msg:       kafka.Message{Key: []byte(strconv.FormatInt(key, 10)), Value: body},
		eventType: eventType,
		eventID:   id.String(),
		key:       key,
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		log.Warn().Str("type", eventType).Int64("key", key).Str("event_id", ev.eventID).Msg("events: publisher closed, event dropped")
		return
	}
	select {
	case p.queue <- ev:
	default:
		log.Error().Str("type", eventType).Int64("key", key).Str("event_id", ev.eventID).Msg("events: queue full, event dropped")
	}
}

func (p *KafkaPublisher) write(ev outbound) {
	ctx, cancel := context.WithTimeout(p.ctx, writeTimeout)
	defer cancel()

	if err := ev.w.WriteMessages(ctx, ev.msg); err != nil {
		log.Error().Err(err).Str("type", ev.eventType).Int64("key", ev.key).Str("event_id", ev.eventID).Msg("events: failed to publish event")
		return
	}
	log.Debug().Str("type", ev.eventType).Int64("key", ev.key).Str("event_id", ev.eventID).Msg("events: event published")
}

// Close stops accepting events, waits up to closeTimeout for queued events to
// be written and then closes the writers.
func (p *KafkaPublisher) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.queue)
	p.mu.Unlock()

	timer := time.NewTimer(closeTimeout)
	defer timer.Stop()
	select {
	case <-p.done:
	case <-timer.C:
		log.Warn().Int("pending", len(p.queue)).Msg("events: close timed out, abandoning queued events")
		p.cancel()
		<-p.done
	}
	p.cancel()

	perr := p.products.Close()
	oerr := p.orders.Close()
	if perr != nil {
		return perr
	}
	return oerr
}
