package notify

import (
	"context"

	"go.uber.org/zap"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

// LogNotifier records contact submissions in the log instead of mailing
// them. It stands in for the sales inbox in development.
type LogNotifier struct {
	logger *zap.Logger
	inbox  string
}

func NewLogNotifier(logger *zap.Logger, inbox string) *LogNotifier {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogNotifier{logger: logger, inbox: inbox}
}

func (n *LogNotifier) SendContact(ctx context.Context, form domain.ContactForm) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.Info("contact form received",
		zap.String("to", n.inbox),
		zap.String("name", form.Name),
		zap.String("email", form.Email),
		zap.String("phone", form.Phone),
		zap.String("subject", form.Subject),
		zap.Int("message_length", len(form.Message)),
	)
	n.logger.Info("auto-reply queued", zap.String("to", form.Email))
	return nil
}
