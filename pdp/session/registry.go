// Package session tracks the latest trust context of active sessions so they
// can be re-verified after the initial decision.
package session

import (
	"sort"
	"sync"
	"time"

	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
)

// Session is a copy of a tracked session's state.
type Session struct {
	SessionID string
	UserID    string
	DeviceID  string
	Context   pdp_model.TrustContext
	LastSeen  time.Time
}

// Registry owns the tracked sessions. All access goes through its methods;
// callers only ever receive copies.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Track records ctx as the latest context for its session. Contexts without a
// session id are ignored.
func (r *Registry) Track(ctx pdp_model.TrustContext, seen time.Time) bool {
	sessionID := ctx.SessionID()
	if sessionID == "" {
		return false
	}
	normalized := ctx.Normalize()

	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.sessions[sessionID]
	if ok && normalized.Behavior != nil && existing.Context.Behavior != nil &&
		existing.Context.Behavior.LastValidation.After(normalized.Behavior.LastValidation) {
		// Keep a newer validation stamp written by the verifier.
		normalized.Behavior.LastValidation = existing.Context.Behavior.LastValidation
	}
	r.sessions[sessionID] = &Session{
		SessionID: sessionID,
		UserID:    normalized.UserID(),
		DeviceID:  normalized.DeviceID(),
		Context:   normalized,
		LastSeen:  seen,
	}
	return true
}

// Untrack removes a session, e.g. after the identity provider ends it.
func (r *Registry) Untrack(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.sessions[sessionID]; !ok {
		return false
	}
	delete(r.sessions, sessionID)
	return true
}

// Get returns a copy of the session.
func (r *Registry) Get(sessionID string) (Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return Session{}, false
	}
	return copySession(s), true
}

// Snapshot returns copies of all sessions ordered by session id.
func (r *Registry) Snapshot() []Session {
	r.mu.RLock()
	out := make([]Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, copySession(s))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].SessionID < out[j].SessionID })
	return out
}

// MarkValidated sets behavior.lastValidation for a still-tracked session.
func (r *Registry) MarkValidated(sessionID string, at time.Time) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[sessionID]
	if !ok {
		return false
	}
	behavior := pdp_model.BehaviorContext{}
	if s.Context.Behavior != nil {
		behavior = *s.Context.Behavior
	}
	behavior.LastValidation = at
	s.Context.Behavior = &behavior
	return true
}

// Prune drops sessions not seen since cutoff and returns how many were removed.
func (r *Registry) Prune(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, s := range r.sessions {
		if s.LastSeen.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func copySession(s *Session) Session {
	out := *s
	out.Context = s.Context.Normalize()
	return out
}
