package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

// channel is the slice of *amqp.Channel the publisher needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends replenishment alerts to the events exchange.
type Publisher struct {
	ch       channel
	producer string
	logger   *zap.Logger
	now      func() time.Time
}

type PublisherOptions struct {
	Producer string
	Logger   *zap.Logger
}

func NewPublisher(conn *amqp.Connection, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	return newPublisher(ch, opts), nil
}

func newPublisher(ch channel, opts PublisherOptions) *Publisher {
	producer := opts.Producer
	if producer == "" {
		producer = defaultProducer
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{ch: ch, producer: producer, logger: logger, now: time.Now}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) PublishReplenishment(ctx context.Context, alerts []domain.ReplenishmentAlert) error {
	if len(alerts) == 0 {
		return nil
	}

	ev := newReplenishmentEvent(p.producer, alerts, p.now().UTC())
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", EventTypeReplenishmentNeeded, err)
	}

	if err := p.publishJSON(ctx, ReplenishmentNeededRoutingKey, ev.EventID, body); err != nil {
		return fmt.Errorf("publish %s: %w", EventTypeReplenishmentNeeded, err)
	}
	p.logger.Info("replenishment alerts published",
		zap.String("event_id", ev.EventID),
		zap.Int("count", len(alerts)),
	)
	return nil
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey, messageID string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    messageID,
			Body:         body,
		},
	)
}

func newReplenishmentEvent(producer string, alerts []domain.ReplenishmentAlert, occurredAt time.Time) ReplenishmentEvent {
	return ReplenishmentEvent{
		EventEnvelope: EventEnvelope{
			EventName:    EventTypeReplenishmentNeeded,
			EventVersion: 1,
			EventID:      uuid.NewString(),
			Producer:     producer,
			OccurredAt:   occurredAt,
			Schema:       replenishmentSchema,
		},
		Payload: ReplenishmentPayload{Alerts: alerts},
	}
}
