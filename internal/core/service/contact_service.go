package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/rl1809/chat-commerce/internal/core/domain"
	"github.com/rl1809/chat-commerce/internal/port"
)

// ContactService queues contact-form submissions for background delivery.
// Submit returns once the form is queued; delivery failures are logged by
// the worker and never reach the shopper.
type ContactService struct {
	queue chan domain.ContactForm
}

func NewContactService(queueSize int) *ContactService {
	return &ContactService{
		queue: make(chan domain.ContactForm, queueSize),
	}
}

func (s *ContactService) Submit(ctx context.Context, form domain.ContactForm) error {
	form, err := validateContact(normalizeContact(form))
	if err != nil {
		return err
	}

	select {
	case s.queue <- form:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *ContactService) GetQueue() <-chan domain.ContactForm {
	return s.queue
}

func (s *ContactService) Close() {
	close(s.queue)
}

// Deliver drains the queue into notifier until Close is called.
func Deliver(id int, queue <-chan domain.ContactForm, notifier port.ContactNotifier, logger *zap.Logger) {
	for form := range queue {
		if err := notifier.SendContact(context.Background(), form); err != nil {
			logger.Error("contact delivery failed",
				zap.Int("worker", id),
				zap.String("email", form.Email),
				zap.Error(err),
			)
			continue
		}
		logger.Debug("contact delivered", zap.Int("worker", id), zap.String("subject", form.Subject))
	}
}

func normalizeContact(form domain.ContactForm) domain.ContactForm {
	form.Name = strings.TrimSpace(form.Name)
	form.Email = strings.TrimSpace(form.Email)
	form.Phone = strings.TrimSpace(form.Phone)
	form.Subject = strings.TrimSpace(form.Subject)
	form.Message = strings.TrimSpace(form.Message)
	return form
}

func validateContact(form domain.ContactForm) (domain.ContactForm, error) {
	switch {
	case form.Name == "":
		return form, &domain.ValidationError{Field: "name", Message: "is required"}
	case form.Email == "":
		return form, &domain.ValidationError{Field: "email", Message: "is required"}
	case form.Message == "":
		return form, &domain.ValidationError{Field: "message", Message: "is required"}
	}
	email, err := emailAddress(form.Email)
	if err != nil {
		return form, &domain.ValidationError{Field: "email", Message: "is not a valid address"}
	}
	form.Email = email
	return form, nil
}
