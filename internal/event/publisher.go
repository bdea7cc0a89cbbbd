// Package event publishes interview lifecycle events to RabbitMQ.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
	"github.com/yoockh/yoointerview/internal/models"
)

const Exchange = "interview.events"

type Publisher interface {
	PublishInterviewEvent(ctx context.Context, e *models.InterviewEvent) error
	Close() error
}

type EventPublisher struct {
	conn     *amqp091.Connection
	channel  *amqp091.Channel
	exchange string
	enabled  bool
	log      *logrus.Entry
}

// NewEventPublisher connects to RabbitMQ. An empty URI yields a disabled
// publisher that drops every event.
func NewEventPublisher(rabbitURI string, log *logrus.Entry) (*EventPublisher, error) {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	if rabbitURI == "" {
		log.Warn("RABBITMQ_URI is empty, event publishing is disabled")
		return &EventPublisher{exchange: Exchange, log: log}, nil
	}

	conn, err := amqp091.Dial(rabbitURI)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		Exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	log.WithField("exchange", Exchange).Info("event publisher initialized")
	return &EventPublisher{
		conn:     conn,
		channel:  channel,
		exchange: Exchange,
		enabled:  true,
		log:      log,
	}, nil
}

func (p *EventPublisher) PublishInterviewEvent(ctx context.Context, e *models.InterviewEvent) error {
	if !p.enabled {
		p.log.WithField("event_type", e.EventType).Debug("event publishing disabled, skipping")
		return nil
	}
	if e.OccurredAt.IsZero() {
		e.OccurredAt = time.Now().UTC()
	}

	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,          // exchange
		string(e.EventType), // routing key
		false,               // mandatory
		false,               // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    e.OccurredAt,
			Body:         body,
			Headers: amqp091.Table{
				"event_type": string(e.EventType),
				"session_id": e.SessionID,
			},
		},
	)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	p.log.WithFields(logrus.Fields{"event_type": e.EventType, "session_id": e.SessionID}).Info("published event")
	return nil
}

func (p *EventPublisher) Close() error {
	if !p.enabled {
		return nil
	}
	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.log.WithError(err).Warn("error closing RabbitMQ channel")
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil {
			return fmt.Errorf("error closing RabbitMQ connection: %w", err)
		}
	}
	return nil
}

// MockPublisher records events in memory.
type MockPublisher struct {
	mu     sync.Mutex
	Events []models.InterviewEvent
}

func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

func (m *MockPublisher) PublishInterviewEvent(_ context.Context, e *models.InterviewEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = append(m.Events, *e)
	return nil
}

func (m *MockPublisher) Close() error { return nil }

func (m *MockPublisher) GetEvents() []models.InterviewEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.InterviewEvent(nil), m.Events...)
}
