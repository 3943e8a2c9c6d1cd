package service

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/rl1809/chat-commerce/internal/port"
)

// Session pairs one cart with one agent.
type Session struct {
	ID        string
	Cart      *CartLedger
	Agent     *Agent
	CreatedAt time.Time
}

type SessionManager struct {
	inventory  port.InventoryRepository
	model      port.LanguageModel
	transcript port.TranscriptStore
	logger     *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewSessionManager(inventory port.InventoryRepository, model port.LanguageModel, transcript port.TranscriptStore, logger *zap.Logger) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionManager{
		inventory:  inventory,
		model:      model,
		transcript: transcript,
		logger:     logger,
		sessions:   make(map[string]*Session),
	}
}

func (m *SessionManager) Create() *Session {
	id := uuid.NewString()
	cart := NewCartLedger(m.inventory)
	s := &Session{
		ID:        id,
		Cart:      cart,
		Agent:     NewAgent(id, m.model, m.inventory, cart, m.transcript, m.logger),
		CreatedAt: time.Now(),
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	m.logger.Debug("session created", zap.String("session_id", id))
	return s
}

func (m *SessionManager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	return s, ok
}

func (m *SessionManager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
