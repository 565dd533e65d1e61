package client

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/St1cky1/entraide-service/internal/entity"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
)

// RabbitMQClient публикует события задач в durable-очередь через default exchange
type RabbitMQClient struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

func NewRabbitMQClient(url, queue string) (*RabbitMQClient, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	c := &RabbitMQClient{conn: conn, queue: queue}
	if c.channel, err = conn.Channel(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}
	if _, err := DeclareTaskEventsQueue(c.channel, queue); err != nil {
		_ = c.Close()
		return nil, err
	}
	return c, nil
}

// DeclareTaskEventsQueue идемпотентна, ее зовут и publisher, и history worker
func DeclareTaskEventsQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	const (
		durable    = true
		autoDelete = false
		exclusive  = false
		noWait     = false
	)
	q, err := ch.QueueDeclare(name, durable, autoDelete, exclusive, noWait, nil)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare queue %q: %w", name, err)
	}
	return q, nil
}

func (c *RabbitMQClient) PublishTaskEvent(ctx context.Context, event *entity.TaskEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode task event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.TaskID.String(),
		Type:         string(event.Kind),
		Timestamp:    event.Timestamp,
		Body:         body,
	}
	if err := c.publish(ctx, msg); err != nil {
		return fmt.Errorf("publish task event: %w", err)
	}

	log.Debug().
		Stringer("task_id", event.TaskID).
		Str("kind", string(event.Kind)).
		Msg("task event sent to rabbitmq")
	return nil
}

func (c *RabbitMQClient) publish(ctx context.Context, msg amqp.Publishing) error {
	const mandatory, immediate = false, false
	return c.channel.PublishWithContext(ctx, "", c.queue, mandatory, immediate, msg)
}

func (c *RabbitMQClient) Close() error {
	if c.channel != nil {
		_ = c.channel.Close()
	}
	if c.conn == nil || c.conn.IsClosed() {
		return nil
	}
	return c.conn.Close()
}
