package model

import "time"

// CacheKey identifies a trust cache slot: one identity on one device.
type CacheKey struct {
	IdentityID string `json:"identityId"`
	DeviceID   string `json:"deviceId"`
}

type CacheEntry struct {
	TrustScore int       `json:"trustScore"`
	Expiry     time.Time `json:"expiry"`
}

// Expired reports whether the entry is no longer valid at now.
func (e CacheEntry) Expired(now time.Time) bool {
	return now.After(e.Expiry)
}
