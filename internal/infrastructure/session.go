package infrastructure

import (
	"sync"
	"time"
)

// Session tracks one in-flight operation for a key such as "42:dm".
type Session struct {
	Key       string
	StartedAt time.Time
}

// SessionManager keeps at most one running operation per key inside this
// process. Manual syncs and queue approvals use it to refuse double clicks.
type SessionManager struct {
	sessions map[string]*Session
	mu       sync.Mutex
}

func NewSessionManager() *SessionManager {
	return &SessionManager{
		sessions: make(map[string]*Session),
	}
}

// TryStart marks key as processing. It returns false when key is already busy.
func (sm *SessionManager) TryStart(key string) bool {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, busy := sm.sessions[key]; busy {
		return false
	}
	sm.sessions[key] = &Session{Key: key, StartedAt: time.Now()}
	return true
}

// Finish releases key.
func (sm *SessionManager) Finish(key string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, key)
}

// Active returns a snapshot of running operations.
func (sm *SessionManager) Active() []Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	out := make([]Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		out = append(out, *s)
	}
	return out
}
