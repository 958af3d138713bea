package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"moral-torture-machine/internal/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AnalyticsPublisher sends analytics events to the queue.
type AnalyticsPublisher interface {
	Publish(ctx context.Context, event *models.AnalyticsEvent) error
	Close() error
}

type rabbitMQAnalyticsPublisher struct {
	mu        sync.Mutex
	ch        *amqp.Channel
	queueName string
	logger    *zap.Logger
}

var _ AnalyticsPublisher = (*rabbitMQAnalyticsPublisher)(nil)

// NewRabbitMQAnalyticsPublisher opens a channel and declares the durable queue.
func NewRabbitMQAnalyticsPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (AnalyticsPublisher, error) {
	if conn == nil {
		return nil, fmt.Errorf("rabbitmq connection is nil")
	}
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}
	if err := declareQueue(ch, queueName); err != nil {
		_ = ch.Close()
		return nil, err
	}
	logger = logger.Named("AnalyticsPublisher")
	logger.Info("Analytics queue declared", zap.String("queue", queueName))
	return &rabbitMQAnalyticsPublisher{ch: ch, queueName: queueName, logger: logger}, nil
}

func (p *rabbitMQAnalyticsPublisher) Publish(ctx context.Context, event *models.AnalyticsEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal analytics event: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx,
		"",          // default exchange
		p.queueName, // routing key
		false,       // mandatory
		false,       // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		p.logger.Error("Failed to publish analytics event",
			zap.String("action_type", event.ActionType), zap.Error(err))
		return fmt.Errorf("failed to publish analytics event: %w", err)
	}
	p.logger.Debug("Analytics event published", zap.String("action_type", event.ActionType))
	return nil
}

func (p *rabbitMQAnalyticsPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}

// NopAnalyticsPublisher drops events. Used when analytics are disabled.
type NopAnalyticsPublisher struct{}

func (NopAnalyticsPublisher) Publish(context.Context, *models.AnalyticsEvent) error { return nil }
func (NopAnalyticsPublisher) Close() error                                          { return nil }
