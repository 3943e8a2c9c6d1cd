package port

import (
	"context"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

type LanguageModel interface {
	Converse(ctx context.Context, req domain.AgentRequest) (domain.AgentReply, error)
}
