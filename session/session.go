// Package session keeps per-login state that must survive across requests.
package session

import (
	"sync"
	"time"

	"stationdesk/access"
	"stationdesk/duesoon"
	"stationdesk/models"
)

type entry struct {
	gate     duesoon.Gate
	lastSeen time.Time
}

// Registry maps session ids, minted at login, to their state. It is safe for concurrent use.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*entry
	ttl      time.Duration
}

// NewRegistry creates a registry whose idle sessions are dropped after ttl.
func NewRegistry(ttl time.Duration) *Registry {
	return &Registry{sessions: make(map[string]*entry), ttl: ttl}
}

// Start registers a fresh session with an unfired due-soon gate.
func (r *Registry) Start(id string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[id] = &entry{lastSeen: now}
}

// DueSoon runs the session's due-soon gate. A session the registry does not know,
// for example after a restart, starts with a fresh gate.
func (r *Registry) DueSoon(id string, tasks []models.Task, scope access.Scope, now time.Time, thresholdDays int) ([]models.Task, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		e = &entry{}
		r.sessions[id] = e
	}
	e.lastSeen = now
	return e.gate.Check(tasks, scope, now, thresholdDays)
}

// State reports the due-soon gate state of a session.
func (r *Registry) State(id string) duesoon.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.sessions[id]; ok {
		return e.gate.State
	}
	return duesoon.Pending
}

// Prune drops sessions idle for longer than the ttl and returns how many were removed.
func (r *Registry) Prune(now time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for id, e := range r.sessions {
		if now.Sub(e.lastSeen) > r.ttl {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

// Len returns the number of tracked sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}
