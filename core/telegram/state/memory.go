package state

import (
	"fmt"
	"sync"

	"github.com/physhka/runclub-bot/core/logger"
	"log/slog"

	tele "gopkg.in/telebot.v4"
)

type memoryManager struct {
	mu       sync.RWMutex
	sessions map[int64]*Session

	handlersMu sync.RWMutex
	handlers   map[State]tele.HandlerFunc
	fallback   tele.HandlerFunc
}

// NewMemoryManager constructs the process-local in-memory Manager.
// Sessions are small and never shared across processes, so no eviction
// is performed; an abandoned dialogue occupies its entry until the user
// cancels or starts something else.
func NewMemoryManager() Manager {
	return &memoryManager{
		sessions: make(map[int64]*Session),
		handlers: make(map[State]tele.HandlerFunc),
	}
}

// Get returns a copy of the session for a chat, or an idle session if none exists.
func (m *memoryManager) Get(chatID int64) Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if s, ok := m.sessions[chatID]; ok {
		return *s
	}
	return Session{State: StateIdle}
}

// SetState updates the active step for a chat, creating the session if needed.
func (m *memoryManager) SetState(chatID int64, st State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session(chatID).State = st
}

// State returns the current step of a chat, or StateIdle if none exists.
func (m *memoryManager) State(chatID int64) State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[chatID]; ok {
		return s.State
	}
	return StateIdle
}

// SetDraft replaces the draft held by the chat's session.
func (m *memoryManager) SetDraft(chatID int64, draft any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.session(chatID).Draft = draft
}

// Draft returns the draft held by the chat's session, nil when absent.
func (m *memoryManager) Draft(chatID int64) any {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[chatID]; ok {
		return s.Draft
	}
	return nil
}

// Clear removes the session entirely, returning the chat to idle.
func (m *memoryManager) Clear(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}

// InProgress reports whether the chat currently has an active step.
func (m *memoryManager) InProgress(chatID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[chatID]
	return ok && s.State != StateIdle
}

// Register associates a step with its handler. Steps are registered once
// during wiring; a duplicate registration is a programming error.
func (m *memoryManager) Register(st State, h tele.HandlerFunc) error {
	if st == "" || st == StateIdle || h == nil {
		return fmt.Errorf("state: invalid registration for %q", st)
	}
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	if _, exists := m.handlers[st]; exists {
		return fmt.Errorf("state: step already registered: %s", st)
	}
	m.handlers[st] = h
	return nil
}

// SetFallback installs the handler invoked when a session references a
// step no flow declares. The session is cleared first, so the fallback
// always observes an idle chat.
func (m *memoryManager) SetFallback(h tele.HandlerFunc) {
	m.handlersMu.Lock()
	defer m.handlersMu.Unlock()
	m.fallback = h
}

// HandleActive dispatches the update to the handler of the chat's active step.
func (m *memoryManager) HandleActive(c tele.Context) error {
	chatID := c.Sender().ID
	current := m.State(chatID)

	m.handlersMu.RLock()
	handler, ok := m.handlers[current]
	fallback := m.fallback
	m.handlersMu.RUnlock()

	if ok {
		return handler(c)
	}

	// Stale or unknown step: fail open to idle, never crash the session.
	logger.Warn(logger.Background(), "tg", "fsm.stale",
		slog.Int64("user_id", chatID),
		slog.String("state", string(current)),
	)
	m.Clear(chatID)
	if fallback != nil {
		return fallback(c)
	}
	return nil
}

// session returns the stored session for chatID, creating it when missing.
// Callers must hold m.mu.
func (m *memoryManager) session(chatID int64) *Session {
	s, ok := m.sessions[chatID]
	if !ok {
		s = &Session{State: StateIdle}
		m.sessions[chatID] = s
	}
	return s
}
