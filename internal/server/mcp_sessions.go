package server

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	// DefaultMCPSessionTimeout is how long an idle MCP session stays valid.
	DefaultMCPSessionTimeout = 24 * time.Hour

	mcpSessionCleanupInterval = 10 * time.Minute
)

// MCPSessionManager issues and tracks MCP session ids for the streamable
// HTTP transport. Sessions idle for longer than the timeout are dropped and
// clients must initialize again.
type MCPSessionManager struct {
	mu             sync.Mutex
	sessions       map[string]time.Time
	sessionTimeout time.Duration
	now            func() time.Time
	logger         *slog.Logger

	cleanupTicker *time.Ticker
	cleanupDone   chan struct{}
	stopOnce      sync.Once
}

// NewMCPSessionManager creates a manager and starts its cleanup loop. A
// non-positive timeout selects DefaultMCPSessionTimeout.
func NewMCPSessionManager(timeout time.Duration, logger *slog.Logger) *MCPSessionManager {
	if timeout <= 0 {
		timeout = DefaultMCPSessionTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	m := &MCPSessionManager{
		sessions:       make(map[string]time.Time),
		sessionTimeout: timeout,
		now:            time.Now,
		logger:         logger,
		cleanupTicker:  time.NewTicker(mcpSessionCleanupInterval),
		cleanupDone:    make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Generate returns a new session id.
func (m *MCPSessionManager) Generate() string {
	id := uuid.NewString()
	m.mu.Lock()
	m.sessions[id] = m.now()
	m.mu.Unlock()
	return id
}

// Validate reports unknown or expired sessions as terminated and refreshes
// the idle timer of live ones.
func (m *MCPSessionManager) Validate(sessionID string) (isTerminated bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	last, ok := m.sessions[sessionID]
	if !ok {
		return true, nil
	}
	now := m.now()
	if now.Sub(last) > m.sessionTimeout {
		delete(m.sessions, sessionID)
		return true, nil
	}
	m.sessions[sessionID] = now
	return false, nil
}

// Terminate ends a session at the client's request.
func (m *MCPSessionManager) Terminate(sessionID string) (isNotAllowed bool, err error) {
	m.mu.Lock()
	delete(m.sessions, sessionID)
	m.mu.Unlock()
	return false, nil
}

// Len returns the number of live sessions.
func (m *MCPSessionManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

func (m *MCPSessionManager) expire() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	expired := 0
	for id, last := range m.sessions {
		if now.Sub(last) > m.sessionTimeout {
			delete(m.sessions, id)
			expired++
		}
	}
	return expired
}

func (m *MCPSessionManager) cleanupLoop() {
	for {
		select {
		case <-m.cleanupTicker.C:
			if n := m.expire(); n > 0 {
				m.logger.Info("cleaned up expired mcp sessions", "count", n)
			}
		case <-m.cleanupDone:
			return
		}
	}
}

// Stop ends the cleanup loop. It is safe to call more than once.
func (m *MCPSessionManager) Stop() {
	m.stopOnce.Do(func() {
		m.cleanupTicker.Stop()
		close(m.cleanupDone)
	})
}
