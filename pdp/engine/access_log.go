package engine

import (
	"sync"

	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
)

const defaultAccessLogSize = 100

// AccessLog keeps the most recent decisions per identity. Each identity holds
// at most size entries; the oldest is dropped first.
type AccessLog struct {
	mu      sync.Mutex
	size    int
	entries map[string][]pdp_model.AccessLogEntry
}

func NewAccessLog(size int) *AccessLog {
	if size <= 0 {
		size = defaultAccessLogSize
	}
	return &AccessLog{
		size:    size,
		entries: make(map[string][]pdp_model.AccessLogEntry),
	}
}

func (l *AccessLog) Record(userID string, entry pdp_model.AccessLogEntry) {
	if userID == "" {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	history := append(l.entries[userID], entry)
	if len(history) > l.size {
		history = append([]pdp_model.AccessLogEntry(nil), history[len(history)-l.size:]...)
	}
	l.entries[userID] = history
}

// History returns a copy of the identity's entries, oldest first.
func (l *AccessLog) History(userID string) []pdp_model.AccessLogEntry {
	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[userID]
	out := make([]pdp_model.AccessLogEntry, len(history))
	copy(out, history)
	return out
}
