package memory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avvvet/foodbuddy-agent/internal/agent"
	"github.com/avvvet/foodbuddy-agent/internal/models"
)

type sessionKey struct {
	userID    string
	sessionID string
}

// liveSession is the in-memory orchestration instance of one session. Its
// mutex serializes turns so two requests never append to the log at once.
type liveSession struct {
	mu       sync.Mutex
	agent    *agent.Agent
	lastUsed time.Time
}

// Manager maps (user_id, session_id) to a live Agent and persists every turn
// through the Store.
type Manager struct {
	store Store
	deps  agent.Dependencies

	mu       sync.Mutex
	sessions map[sessionKey]*liveSession

	now   func() time.Time
	newID func() string
}

// NewManager creates a new session manager
func NewManager(store Store, deps agent.Dependencies) *Manager {
	return &Manager{
		store:    store,
		deps:     deps,
		sessions: make(map[sessionKey]*liveSession),
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// Process runs one turn. An empty sessionID starts a new session. Store
// failures abort the turn and are returned.
func (m *Manager) Process(ctx context.Context, userID, message, sessionID string) (string, string, error) {
	if sessionID == "" {
		sessionID = m.newID()
	}
	if err := validatePair(userID, sessionID); err != nil {
		return "", sessionID, err
	}

	live := m.acquire(sessionKey{userID: userID, sessionID: sessionID})
	defer live.mu.Unlock()

	history, err := m.store.GetMessages(ctx, userID, sessionID)
	if err != nil {
		return "", sessionID, fmt.Errorf("failed to load history: %w", err)
	}
	log.Printf("📚 Loaded session %s with %d messages", sessionID, len(history))

	userMsg := m.newMessage(userID, sessionID, models.RoleUser, message)
	if err := m.store.AppendMessage(ctx, userMsg); err != nil {
		return "", sessionID, fmt.Errorf("failed to save user message: %w", err)
	}

	state := agent.NewSessionState(userID, sessionID, append(history, userMsg))
	reply, err := live.agent.Process(ctx, state)
	if err != nil {
		return "", sessionID, fmt.Errorf("failed to process message: %w", err)
	}

	if err := m.store.AppendMessage(ctx, m.newMessage(userID, sessionID, models.RoleAssistant, reply)); err != nil {
		return "", sessionID, fmt.Errorf("failed to save assistant message: %w", err)
	}

	m.touch(live)
	log.Printf("💾 Processed message in session %s (intent=%s, tools=%d)",
		sessionID, state.Intent(), len(state.TurnContext.ToolsUsed()))

	return reply, sessionID, nil
}

// acquire returns the live instance mapped to key with its mutex held. A turn
// that waited on an instance cleared or evicted in the meantime retries
// against the fresh mapping.
func (m *Manager) acquire(key sessionKey) *liveSession {
	for {
		live := m.getOrCreate(key)
		live.mu.Lock()
		if m.isCurrent(key, live) {
			return live
		}
		live.mu.Unlock()
	}
}

func (m *Manager) getOrCreate(key sessionKey) *liveSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	if live, ok := m.sessions[key]; ok {
		live.lastUsed = m.now()
		return live
	}

	live := &liveSession{
		agent:    agent.NewAgent(m.deps),
		lastUsed: m.now(),
	}
	m.sessions[key] = live

	log.Printf("✅ Created session %s for user %s", key.sessionID, key.userID)
	return live
}

func (m *Manager) isCurrent(key sessionKey, live *liveSession) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[key] == live
}

func (m *Manager) touch(live *liveSession) {
	m.mu.Lock()
	live.lastUsed = m.now()
	m.mu.Unlock()
}

func (m *Manager) newMessage(userID, sessionID string, role models.Role, content string) models.ConversationMessage {
	return models.ConversationMessage{
		SessionID: sessionID,
		UserID:    userID,
		Role:      role,
		Content:   content,
		Timestamp: m.now().UTC().Format(time.RFC3339Nano),
	}
}

// ListSessions returns the user's stored session ids.
func (m *Manager) ListSessions(ctx context.Context, userID string) ([]string, error) {
	return m.store.ListSessions(ctx, userID)
}

// History returns a session's stored messages.
func (m *Manager) History(ctx context.Context, userID, sessionID string) ([]models.ConversationMessage, error) {
	return m.store.GetMessages(ctx, userID, sessionID)
}

// ClearSession drops the live instance and the stored log. A turn in flight
// finishes first; clearing a missing session is a no-op.
func (m *Manager) ClearSession(ctx context.Context, userID, sessionID string) error {
	key := sessionKey{userID: userID, sessionID: sessionID}
	live := m.acquire(key)
	defer live.mu.Unlock()

	err := m.store.DeleteSession(ctx, userID, sessionID)
	m.mu.Lock()
	delete(m.sessions, key)
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	log.Printf("🗑️ Cleared session %s", sessionID)
	return nil
}

// ClearUserSessions drops every live instance and stored log of the user,
// waiting for their turns in flight.
func (m *Manager) ClearUserSessions(ctx context.Context, userID string) error {
	m.mu.Lock()
	var keys []sessionKey
	for key := range m.sessions {
		if key.userID == userID {
			keys = append(keys, key)
		}
	}
	m.mu.Unlock()

	// Fixed order so concurrent clears of the same user cannot deadlock.
	sort.Slice(keys, func(i, j int) bool { return keys[i].sessionID < keys[j].sessionID })
	held := make(map[sessionKey]*liveSession, len(keys))
	for _, key := range keys {
		held[key] = m.acquire(key)
	}
	defer func() {
		for _, live := range held {
			live.mu.Unlock()
		}
	}()

	err := m.store.DeleteUserSessions(ctx, userID)
	m.mu.Lock()
	for key := range held {
		delete(m.sessions, key)
	}
	m.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to clear user sessions: %w", err)
	}

	log.Printf("🗑️ Cleared all sessions for user %s", userID)
	return nil
}

// EvictIdle drops live instances unused for longer than maxIdle. History stays
// in the store; the last-search memory of an evicted session is lost. Sessions
// with a turn in flight are skipped.
func (m *Manager) EvictIdle(maxIdle time.Duration) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := m.now().Add(-maxIdle)
	evicted := 0
	for key, live := range m.sessions {
		if !live.lastUsed.Before(cutoff) {
			continue
		}
		if !live.mu.TryLock() {
			continue
		}
		delete(m.sessions, key)
		live.mu.Unlock()
		evicted++
	}

	if evicted > 0 {
		log.Printf("🧹 Evicted %d idle sessions", evicted)
	}
	return evicted
}

// ActiveSessionCount returns the number of live session instances.
func (m *Manager) ActiveSessionCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Close closes the underlying store
func (m *Manager) Close() error {
	return m.store.Close()
}
