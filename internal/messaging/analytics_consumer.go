package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"moral-torture-machine/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// EventStore persists consumed analytics events.
type EventStore interface {
	Insert(ctx context.Context, event *models.AnalyticsEvent) error
}

// AnalyticsConsumer moves events from the queue into the store.
type AnalyticsConsumer struct {
	conn        *amqp.Connection
	ch          *amqp.Channel
	store       EventStore
	logger      *zap.Logger
	queueName   string
	consumerTag string
	retryDelay  time.Duration
	done        chan error
}

// NewAnalyticsConsumer opens a channel, declares the queue and sets QoS 1.
func NewAnalyticsConsumer(conn *amqp.Connection, queueName string, store EventStore, logger *zap.Logger) (*AnalyticsConsumer, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}
	if store == nil {
		return nil, fmt.Errorf("event store is nil")
	}
	consumerTag := fmt.Sprintf("analytics_consumer_%d", time.Now().UnixNano())
	c := &AnalyticsConsumer{
		conn:        conn,
		store:       store,
		logger:      logger.Named("AnalyticsConsumer").With(zap.String("consumerTag", consumerTag), zap.String("queue", queueName)),
		queueName:   queueName,
		consumerTag: consumerTag,
		retryDelay:  time.Second,
		done:        make(chan error, 1),
	}

	var err error
	if c.ch, err = conn.Channel(); err != nil {
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := declareQueue(c.ch, queueName); err != nil {
		_ = c.ch.Close()
		return nil, err
	}
	if err := c.ch.Qos(1, 0, false); err != nil {
		_ = c.ch.Close()
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}
	return c, nil
}

// StartConsuming blocks until Stop is called, ctx ends or the channel closes.
func (c *AnalyticsConsumer) StartConsuming(ctx context.Context) error {
	deliveries, err := c.ch.Consume(
		c.queueName,
		c.consumerTag,
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return fmt.Errorf("failed to register a consumer: %w", err)
	}
	c.logger.Info("Consumer started")

	go c.handleDeliveries(ctx, deliveries)

	notifyClose := c.ch.NotifyClose(make(chan *amqp.Error, 1))
	select {
	case <-ctx.Done():
		_ = c.Stop()
		return nil
	case err := <-c.done:
		return err
	case amqpErr := <-notifyClose:
		if amqpErr != nil {
			c.logger.Error("RabbitMQ channel closed unexpectedly", zap.Error(amqpErr))
			return amqpErr
		}
		return nil
	}
}

func (c *AnalyticsConsumer) handleDeliveries(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for d := range deliveries {
		c.handle(ctx, d)
	}
	c.logger.Info("Deliveries channel closed")
	select {
	case c.done <- nil:
	default:
	}
}

// Acknowledger is the part of amqp.Delivery the handler needs.
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *AnalyticsConsumer) handle(ctx context.Context, d amqp.Delivery) {
	c.process(ctx, d.Body, d.DeliveryTag, d)
}

// process stores one message. Malformed messages are dropped, store failures are requeued.
func (c *AnalyticsConsumer) process(ctx context.Context, body []byte, tag uint64, ack Acknowledger) {
	log := c.logger.With(zap.Uint64("deliveryTag", tag))

	var event models.AnalyticsEvent
	if err := json.Unmarshal(body, &event); err != nil || event.SessionID == "" || event.ActionType == "" {
		log.Warn("Malformed analytics event, dropping", zap.Error(err))
		if nackErr := ack.Nack(false, false); nackErr != nil {
			log.Error("Failed to nack malformed message", zap.Error(nackErr))
		}
		return
	}

	storeCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	err := c.store.Insert(storeCtx, &event)
	cancel()
	if err != nil {
		log.Error("Failed to store analytics event, requeueing", zap.Error(err))
		if nackErr := ack.Nack(false, true); nackErr != nil {
			log.Error("Failed to nack message", zap.Error(nackErr))
		}
		time.Sleep(c.retryDelay)
		return
	}

	if ackErr := ack.Ack(false); ackErr != nil {
		log.Error("Failed to ack message", zap.Error(ackErr))
	}
}

// Stop cancels the subscription and closes the channel.
func (c *AnalyticsConsumer) Stop() error {
	if c.ch == nil {
		return nil
	}
	if err := c.ch.Cancel(c.consumerTag, false); err != nil {
		c.logger.Error("Failed to cancel consumer", zap.Error(err))
	}
	if err := c.ch.Close(); err != nil && err != amqp.ErrClosed {
		c.logger.Error("Failed to close channel", zap.Error(err))
	}
	select {
	case c.done <- nil:
	default:
	}
	c.logger.Info("Consumer stopped")
	return nil
}
