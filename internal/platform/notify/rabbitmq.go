package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	ErrClosed = errors.New("rabbitmq connection is closed")
	ErrNacked = errors.New("publish NACK from broker")
)

// Client publishes JSON messages to one topic exchange and waits for publisher confirms.
type Client struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string

	acks <-chan amqp.Confirmation
	mu   sync.Mutex
}

// Dial connects, declares the durable topic exchange and enables confirms.
func Dial(url, exchange string) (*Client, error) {
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		return nil, fmt.Errorf("rabbitmq: empty exchange name")
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("rabbitmq dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq declare %s: %w", exchange, err)
	}
	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq confirm mode: %w", err)
	}
	acks := ch.NotifyPublish(make(chan amqp.Confirmation, 1))
	return &Client{conn: conn, ch: ch, exchange: exchange, acks: acks}, nil
}

func (c *Client) Ping() error {
	if c.conn == nil || c.conn.IsClosed() {
		return ErrClosed
	}
	return nil
}

// Publish sends body with routing key and blocks until the broker acks it or ctx ends.
// Calls are serialized and each waits for the confirm carrying its own delivery tag.
func (c *Client) Publish(ctx context.Context, key string, body []byte) error {
	if err := c.Ping(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	tag := c.ch.GetNextPublishSeqNo()
	err := c.ch.PublishWithContext(ctx, c.exchange, key, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("rabbitmq publish %s: %w", key, err)
	}
	return awaitConfirm(ctx, c.acks, tag)
}

// awaitConfirm waits for the confirm of delivery tag. Confirms of earlier publishes whose
// caller gave up are discarded.
func awaitConfirm(ctx context.Context, acks <-chan amqp.Confirmation, tag uint64) error {
	for {
		select {
		case conf, ok := <-acks:
			if !ok {
				return ErrClosed
			}
			if conf.DeliveryTag < tag {
				continue
			}
			if conf.Ack {
				return nil
			}
			return ErrNacked
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (c *Client) Close() {
	if c == nil {
		return
	}
	if c.ch != nil {
		_ = c.ch.Close()
	}
	if c.conn != nil {
		_ = c.conn.Close()
	}
}
