package storage

import (
	"context"
	"sync"

	"github.com/rl1809/chat-commerce/internal/core/domain"
)

type MemoryTranscript struct {
	mu    sync.RWMutex
	turns map[string][]domain.Turn
}

func NewMemoryTranscript() *MemoryTranscript {
	return &MemoryTranscript{turns: make(map[string][]domain.Turn)}
}

func (m *MemoryTranscript) Append(ctx context.Context, sessionID string, turns ...domain.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.turns[sessionID] = append(m.turns[sessionID], turns...)
	return nil
}

func (m *MemoryTranscript) Load(ctx context.Context, sessionID string) ([]domain.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Turn, len(m.turns[sessionID]))
	copy(out, m.turns[sessionID])
	return out, nil
}
