package terminal

import (
	"sync"
	"time"
)

// SessionInfo is the administrative view of a live terminal session.
type SessionInfo struct {
	ID         string    `json:"id"`
	ServerID   uint      `json:"server_id"`
	ServerName string    `json:"server_name"`
	Username   string    `json:"username"`
	ClientIP   string    `json:"client_ip"`
	StartedAt  time.Time `json:"started_at"`
}

// Registry tracks the terminal sessions currently open in this process.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Add registers a session under its ID.
func (r *Registry) Add(s *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = s
}

// Remove drops a session from the registry. It does not close it.
func (r *Registry) Remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
}

// Get returns the session with the given ID, or nil.
func (r *Registry) Get(id string) *Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sessions[id]
}

// List returns info for every live session, oldest first.
func (r *Registry) List() []SessionInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]SessionInfo, 0, len(r.sessions))
	for _, s := range r.sessions {
		infos = append(infos, s.Info())
	}
	for i := 1; i < len(infos); i++ {
		for j := i; j > 0 && infos[j].StartedAt.Before(infos[j-1].StartedAt); j-- {
			infos[j], infos[j-1] = infos[j-1], infos[j]
		}
	}
	return infos
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Close terminates the session with the given ID. It reports whether a
// session was found.
func (r *Registry) Close(id string) bool {
	s := r.Get(id)
	if s == nil {
		return false
	}
	s.Terminate()
	return true
}
