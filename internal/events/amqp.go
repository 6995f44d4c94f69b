package events

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/streadway/amqp"
)

// AMQPPublisher publishes events to a topic exchange with routing key
// "<type>.<applicantId>".
type AMQPPublisher struct {
	mu       sync.Mutex
	conn     *amqp.Connection
	exchange string
}

// NewAMQPPublisher dials the broker and declares the exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	if strings.TrimSpace(url) == "" {
		return nil, fmt.Errorf("EVENTS_AMQP_URL is required")
	}
	if exchange == "" {
		exchange = "applicants"
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp declare exchange %s: %w", exchange, err)
	}
	return &AMQPPublisher{conn: conn, exchange: exchange}, nil
}

// Publish sends evt on a short-lived channel.
func (p *AMQPPublisher) Publish(ctx context.Context, evt Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := Encode(evt)
	if err != nil {
		return fmt.Errorf("encode amqp event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("amqp channel: %w", err)
	}
	defer ch.Close()

	return ch.Publish(
		p.exchange,
		RoutingKey(evt),
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
}

// Close releases the broker connection.
func (p *AMQPPublisher) Close() error {
	return p.conn.Close()
}

// RoutingKey returns the topic routing key for evt.
func RoutingKey(evt Event) string {
	return fmt.Sprintf("%s.%s", evt.Type, evt.ApplicantID)
}

var _ Publisher = (*AMQPPublisher)(nil)
