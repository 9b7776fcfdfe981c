package amqp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"spendlog/internal/core"
	"spendlog/internal/log"
)

// Handler processes one change event. Returning an error nacks the message:
// requeued on first delivery, dropped on redelivery.
type Handler func(ctx context.Context, ev core.ChangeEvent) error

// Client publishes change events to a direct exchange and consumes them
// from a durable queue bound with the queue name as routing key.
type Client struct {
	conn         *amqp091.Connection
	channel      *amqp091.Channel
	exchangeName string
	queueName    string
	logger       *log.Logger

	publishMu sync.Mutex
}

func NewClient(url, exchangeName, queueName string, logger *log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.Default()
	}
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	c := &Client{
		conn:         conn,
		channel:      channel,
		exchangeName: exchangeName,
		queueName:    queueName,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}
	if err := c.setup(); err != nil {
		c.Close()
		return nil, fmt.Errorf("setup exchange and queue: %w", err)
	}
	return c, nil
}

func (c *Client) setup() error {
	if err := c.channel.ExchangeDeclare(c.exchangeName, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	if _, err := c.channel.QueueDeclare(c.queueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := c.channel.QueueBind(c.queueName, c.queueName, c.exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// PublishChange sends ev as a persistent message.
func (c *Client) PublishChange(ctx context.Context, ev core.ChangeEvent) error {
	body, err := EncodeChange(ev)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	msgID := uuid.NewString()
	c.publishMu.Lock()
	err = c.channel.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, amqp091.Publishing{
		ContentType:  ContentType,
		DeliveryMode: amqp091.Persistent,
		MessageId:    msgID,
		Timestamp:    ev.OccurredAt,
		Type:         string(ev.Entity) + "." + string(ev.Action),
		Body:         body,
	})
	c.publishMu.Unlock()
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	c.logger.DebugContext(ctx, "Published change event",
		log.FieldMessageID, msgID,
		log.FieldEntity, string(ev.Entity),
		log.FieldAction, string(ev.Action),
		"id", ev.ID)
	return nil
}

// Consume delivers messages to handler until ctx ends or the channel closes.
func (c *Client) Consume(ctx context.Context, handler Handler) error {
	if err := c.channel.Qos(10, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := c.channel.Consume(c.queueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}
	c.logger.InfoContext(ctx, "Started consuming change events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case d, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			handleDelivery(ctx, c.logger, d, handler)
		}
	}
}

// handleDelivery acks on success and drops bodies that cannot be decoded.
// A failed handler gets one redelivery; after that the message is dropped
// and the worker's periodic reconcile repairs the mirror.
func handleDelivery(ctx context.Context, logger *log.Logger, d amqp091.Delivery, handler Handler) {
	ev, err := DecodeChange(d.Body)
	if err != nil {
		logger.ErrorContext(ctx, "Dropping undecodable message", log.FieldMessageID, d.MessageId, "error", err)
		_ = d.Nack(false, false)
		return
	}

	if err := handler(ctx, ev); err != nil {
		requeue := !d.Redelivered
		logger.ErrorContext(ctx, "Failed to handle change event",
			log.FieldEntity, string(ev.Entity),
			log.FieldAction, string(ev.Action),
			"id", ev.ID,
			"requeue", requeue,
			"error", err)
		_ = d.Nack(false, requeue)
		return
	}
	_ = d.Ack(false)
}

func (c *Client) Close() error {
	if c.channel != nil {
		c.channel.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}
