package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/streadway/amqp"
)

// DefaultExchange receives batch progress updates.
const DefaultExchange = "batch_updates"

type amqpChannel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher publishes events to a RabbitMQ topic exchange with routing key "batch.<id>".
type AMQPPublisher struct {
	open     func() (amqpChannel, error)
	exchange string
}

// NewAMQPPublisher opens a channel on conn per publish.
func NewAMQPPublisher(conn *amqp.Connection, exchange string) *AMQPPublisher {
	return newAMQPPublisher(func() (amqpChannel, error) {
		return conn.Channel()
	}, exchange)
}

func newAMQPPublisher(open func() (amqpChannel, error), exchange string) *AMQPPublisher {
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		exchange = DefaultExchange
	}
	return &AMQPPublisher{open: open, exchange: exchange}
}

// DialAMQP connects to url and declares the exchange. The caller closes the connection.
func DialAMQP(url, exchange string) (*AMQPPublisher, *amqp.Connection, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	p := NewAMQPPublisher(conn, exchange)
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	return p, conn, nil
}

func (p *AMQPPublisher) Exchange() string { return p.exchange }

// Publish sends e as JSON. The context is only checked before publishing.
func (p *AMQPPublisher) Publish(ctx context.Context, e Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := Encode(e)
	if err != nil {
		return fmt.Errorf("encode amqp event: %w", err)
	}
	ch, err := p.open()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	err = ch.Publish(
		p.exchange,
		RoutingKey(e.BatchID),
		false,
		false,
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		return fmt.Errorf("amqp publish: %w", err)
	}
	return nil
}

// RoutingKey returns the topic routing key for a batch.
func RoutingKey(batchID string) string {
	return fmt.Sprintf("batch.%s", batchID)
}

var _ Publisher = (*AMQPPublisher)(nil)
