package port

import (
	"context"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

// AlertPublisher forwards replenishment alerts to an operator channel.
type AlertPublisher interface {
	PublishReplenishment(ctx context.Context, alerts []domain.ReplenishmentAlert) error
}

// ContactNotifier delivers contact-form submissions. Fire-and-forget.
type ContactNotifier interface {
	SendContact(ctx context.Context, form domain.ContactForm) error
}
