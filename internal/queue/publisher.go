package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// DefaultAuditQueue is the durable queue auth events are published to.
const DefaultAuditQueue = "auth.events"

var (
	// ErrBufferFull is returned by Publish when the worker is behind; the
	// event is dropped so the request path never waits on the broker.
	ErrBufferFull = errors.New("audit buffer full")
	// ErrPublisherClosed is returned by Publish after Close.
	ErrPublisherClosed = errors.New("audit publisher closed")
)

// amqpChannel is the subset of *amqp.Channel the publisher uses.
type amqpChannel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// dialer opens a channel and returns the connection that owns it.
type dialer func(url string) (amqpChannel, io.Closer, error)

func dialAMQP(url string) (amqpChannel, io.Closer, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial broker: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("channel open: %w", err)
	}
	return ch, conn, nil
}

// Publisher sends AuthEvents to RabbitMQ from a single background worker.
// Publish only enqueues; the worker holds one connection, declares the
// queue once per connection and reconnects with backoff after a failure.
type Publisher struct {
	url      string
	queue    string
	dial     dialer
	attempts int
	backoff  time.Duration
	log      logrus.FieldLogger

	mu     sync.Mutex
	closed bool
	events chan AuthEvent
	done   chan struct{}

	ch   amqpChannel
	conn io.Closer
}

// NewPublisher builds a publisher with room for buffer pending events. Call
// Start to run the worker and Close to drain it.
func NewPublisher(url, queue string, buffer int, log logrus.FieldLogger) *Publisher {
	if queue == "" {
		queue = DefaultAuditQueue
	}
	if buffer <= 0 {
		buffer = 256
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Publisher{
		url:      url,
		queue:    queue,
		dial:     dialAMQP,
		attempts: 3,
		backoff:  time.Second,
		log:      log.WithField("component", "audit_publisher"),
		events:   make(chan AuthEvent, buffer),
		done:     make(chan struct{}),
	}
}

// Publish enqueues ev without blocking.
func (p *Publisher) Publish(_ context.Context, ev AuthEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrPublisherClosed
	}
	select {
	case p.events <- ev:
		return nil
	default:
		return ErrBufferFull
	}
}

// Start runs the worker until Close is called.
func (p *Publisher) Start() {
	go p.run()
}

// Close stops accepting events and waits up to the context deadline for
// the worker to flush what is already queued.
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.events)
	}
	p.mu.Unlock()

	select {
	case <-p.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *Publisher) run() {
	defer close(p.done)
	defer p.disconnect()
	for ev := range p.events {
		body, err := json.Marshal(ev)
		if err != nil {
			p.log.WithError(err).WithField("event", ev.Type).Error("marshal event")
			continue
		}
		if err := p.deliver(body); err != nil {
			p.log.WithError(err).WithFields(logrus.Fields{"event": ev.Type, "account_id": ev.AccountID}).Warn("event dropped")
		}
	}
}

// deliver publishes body, reconnecting between attempts.
func (p *Publisher) deliver(body []byte) error {
	var err error
	for attempt := 0; attempt < p.attempts; attempt++ {
		if attempt > 0 {
			time.Sleep(p.backoff * time.Duration(attempt))
		}
		if err = p.connect(); err != nil {
			continue
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
		cancel()
		if err == nil {
			return nil
		}
		p.disconnect()
	}
	return err
}

func (p *Publisher) connect() error {
	if p.ch != nil {
		return nil
	}
	ch, conn, err := p.dial(p.url)
	if err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return fmt.Errorf("queue declare: %w", err)
	}
	p.ch, p.conn = ch, conn
	return nil
}

func (p *Publisher) disconnect() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.ch, p.conn = nil, nil
}
