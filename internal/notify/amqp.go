package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const dialTimeout = 5 * time.Second

// AMQPPublisher sends events to a durable queue named after the event type.
// The connection is dialled lazily and redialled once it closes.
type AMQPPublisher struct {
	url string
	log *zap.Logger

	mu       sync.Mutex
	conn     *amqp.Connection
	declared map[string]bool
}

func NewAMQPPublisher(url string, log *zap.Logger) *AMQPPublisher {
	return &AMQPPublisher{url: url, log: log, declared: make(map[string]bool)}
}

func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("rabbitmq: marshal event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	conn, err := p.connection(ctx)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("rabbitmq: open channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if !p.declared[e.Type] {
		if _, err := ch.QueueDeclare(
			e.Type, // name
			true,   // durable
			false,  // autoDelete
			false,  // exclusive
			false,  // noWait
			nil,    // args
		); err != nil {
			return fmt.Errorf("rabbitmq: declare queue %s: %w", e.Type, err)
		}
		p.declared[e.Type] = true
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         e.Type,
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", e.Type, false, false, pub); err != nil {
		return fmt.Errorf("rabbitmq: publish %s: %w", e.Type, err)
	}
	return nil
}

// connection must be called with p.mu held. The dial is bounded by
// dialTimeout and by the deadline of ctx, whichever comes first.
func (p *AMQPPublisher) connection(ctx context.Context) (*amqp.Connection, error) {
	if p.conn != nil && !p.conn.IsClosed() {
		return p.conn, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	timeout := dialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
		Dial:      amqp.DefaultDial(timeout),
	})
	if err != nil {
		return nil, fmt.Errorf("rabbitmq: dial: %w", err)
	}
	p.log.Info("rabbitmq connected")
	p.conn = conn
	p.declared = make(map[string]bool)
	return conn, nil
}

// Close closes the broker connection if one is open.
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.conn == nil || p.conn.IsClosed() {
		return nil
	}
	return p.conn.Close()
}
