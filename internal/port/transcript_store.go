package port

import (
	"context"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

// TranscriptStore is an append-only log of conversation turns per session.
type TranscriptStore interface {
	Append(ctx context.Context, sessionID string, turns ...domain.Turn) error
	Load(ctx context.Context, sessionID string) ([]domain.Turn, error)
}
