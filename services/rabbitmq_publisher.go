package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// confirmation is the broker's answer to one publishing
type confirmation interface {
	WaitContext(ctx context.Context) (bool, error)
}

// confirmChannel publishes a message and hands back the confirmation of that message only
type confirmChannel interface {
	publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error)
}

type amqpConfirmChannel struct {
	ch *amqp.Channel
}

func (c amqpConfirmChannel) publish(ctx context.Context, exchange, key string, msg amqp.Publishing) (confirmation, error) {
	dc, err := c.ch.PublishWithDeferredConfirmWithContext(ctx, exchange, key, false, false, msg)
	if err != nil {
		return nil, err
	}
	if dc == nil {
		return nil, errors.New("rabbitmq channel is not in confirm mode")
	}
	return dc, nil
}

// RabbitMQPublisher publishes order events to a durable topic exchange.
// The routing key is the event type, e.g. order.cancelled.
type RabbitMQPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	confirms confirmChannel
}

// NewRabbitMQPublisher dials the broker, declares the exchange and enables publisher confirms
func NewRabbitMQPublisher(url, exchange string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	return &RabbitMQPublisher{conn: conn, ch: ch, exchange: exchange, confirms: amqpConfirmChannel{ch: ch}}, nil
}

// Publish sends the event and waits for the broker's confirmation of that publishing.
// A confirmation arriving after the timeout is dropped with its publishing.
func (p *RabbitMQPublisher) Publish(ctx context.Context, event OrderEvent) error {
	msg, err := eventMessage(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	conf, err := p.confirms.publish(ctx, p.exchange, event.Type, msg)
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type, err)
	}

	acked, err := conf.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("no broker confirm for %s: %w", event.Type, err)
	}
	if !acked {
		return fmt.Errorf("broker rejected %s", event.Type)
	}
	return nil
}

// Close closes the channel and the connection
func (p *RabbitMQPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

func eventMessage(event OrderEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("failed to encode %s event: %w", event.Type, err)
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    event.OccurredAt,
		Type:         event.Type,
		MessageId:    event.OrderCode + ":" + event.Type + ":" + event.OccurredAt.UTC().Format(time.RFC3339Nano),
		Body:         body,
	}, nil
}
