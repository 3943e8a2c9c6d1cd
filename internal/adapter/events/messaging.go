package events

import (
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

const (
	EventsExchange                = "commerce.events"
	ReplenishmentNeededRoutingKey = "stock.replenishment.v1"
	EventTypeReplenishmentNeeded  = "ReplenishmentNeeded"
	replenishmentSchema           = "commerce.stock.replenishment.v1"
	defaultProducer               = "chat-commerce"
)

type EventEnvelope struct {
	EventName    string    `json:"eventName"`
	EventVersion int       `json:"eventVersion"`
	EventID      string    `json:"eventId"`
	Producer     string    `json:"producer"`
	OccurredAt   time.Time `json:"occurredAt"`
	Schema       string    `json:"schema"`
}

type ReplenishmentPayload struct {
	Alerts []domain.ReplenishmentAlert `json:"alerts"`
}

type ReplenishmentEvent struct {
	EventEnvelope
	Payload ReplenishmentPayload `json:"payload"`
}

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}
