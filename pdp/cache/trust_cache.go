package cache

import (
	"sync"
	"time"

	pdp_model "github.com/dev-mohitbeniwal/sentinel/pdp/model"
)

// TrustCache holds the last known trust score per (identity, device) with an
// expiry. Writes are last-write-wins. Expired entries are hidden from Get and
// removed lazily on read or in bulk by Sweep.
type TrustCache struct {
	mu      sync.Mutex
	entries map[pdp_model.CacheKey]pdp_model.CacheEntry
	now     func() time.Time
}

func NewTrustCache() *TrustCache {
	return NewTrustCacheWithClock(time.Now)
}

// NewTrustCacheWithClock is NewTrustCache with an injectable clock.
func NewTrustCacheWithClock(now func() time.Time) *TrustCache {
	return &TrustCache{
		entries: make(map[pdp_model.CacheKey]pdp_model.CacheEntry),
		now:     now,
	}
}

// Get returns the cached score while the entry is still valid.
func (c *TrustCache) Get(key pdp_model.CacheKey) (int, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return 0, false
	}
	if entry.Expired(c.now()) {
		delete(c.entries, key)
		return 0, false
	}
	return entry.TrustScore, true
}

// Put stores score for key until now+ttl, replacing any previous entry.
func (c *TrustCache) Put(key pdp_model.CacheKey, score int, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = pdp_model.CacheEntry{
		TrustScore: pdp_model.ClampScore(score),
		Expiry:     c.now().Add(ttl),
	}
}

// Delete drops key regardless of expiry.
func (c *TrustCache) Delete(key pdp_model.CacheKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Sweep removes every expired entry and returns how many were removed.
func (c *TrustCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for key, entry := range c.entries {
		if entry.Expired(now) {
			delete(c.entries, key)
			removed++
		}
	}
	return removed
}

// Len counts entries, including expired ones not yet swept.
func (c *TrustCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Snapshot copies the still-valid entries.
func (c *TrustCache) Snapshot() map[pdp_model.CacheKey]pdp_model.CacheEntry {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	out := make(map[pdp_model.CacheKey]pdp_model.CacheEntry, len(c.entries))
	for key, entry := range c.entries {
		if !entry.Expired(now) {
			out[key] = entry
		}
	}
	return out
}

// Restore loads entries, keeping their original expiry. Expired entries and
// keys already present are skipped, so live writes win over restored state.
func (c *TrustCache) Restore(entries map[pdp_model.CacheKey]pdp_model.CacheEntry) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	restored := 0
	for key, entry := range entries {
		if entry.Expired(now) {
			continue
		}
		if _, exists := c.entries[key]; exists {
			continue
		}
		entry.TrustScore = pdp_model.ClampScore(entry.TrustScore)
		c.entries[key] = entry
		restored++
	}
	return restored
}
