package server

import (
	"slices"
	"sync"
)

// ConnManager tracks every open session, logged in or not.
type ConnManager struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}
}

// NewConnManager creates an empty manager.
func NewConnManager() *ConnManager {
	return &ConnManager{sessions: make(map[*Session]struct{})}
}

// Add registers a session.
func (cm *ConnManager) Add(s *Session) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	cm.sessions[s] = struct{}{}
}

// Remove forgets a session.
func (cm *ConnManager) Remove(s *Session) {
	cm.mu.Lock()
	defer cm.mu.Unlock()
	delete(cm.sessions, s)
}

// Count returns the number of open sessions.
func (cm *ConnManager) Count() int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	return len(cm.sessions)
}

// All returns the open sessions, oldest first.
func (cm *ConnManager) All() []*Session {
	cm.mu.RLock()
	out := make([]*Session, 0, len(cm.sessions))
	for s := range cm.sessions {
		out = append(out, s)
	}
	cm.mu.RUnlock()
	slices.SortFunc(out, func(a, b *Session) int {
		return a.Connected.Compare(b.Connected)
	})
	return out
}

// CountByTransport returns the number of open sessions per transport kind.
func (cm *ConnManager) CountByTransport() map[string]int {
	cm.mu.RLock()
	defer cm.mu.RUnlock()
	counts := map[string]int{TransportTCP: 0, TransportWebSocket: 0}
	for s := range cm.sessions {
		counts[s.Transport()]++
	}
	return counts
}
