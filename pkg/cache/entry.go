package cache

import (
	"time"
)

// Entry is a cached review page body.
type Entry struct {
	// Data is the raw JSON body returned by the API.
	Data []byte `json:"data"`

	// CachedAt is when the page was stored.
	CachedAt time.Time `json:"cached_at"`

	// Expires is when the entry stops being served.
	Expires time.Time `json:"expires"`
}

// NewEntry wraps a page body with an expiry ttl from now.
func NewEntry(data []byte, ttl time.Duration) *Entry {
	now := time.Now()
	return &Entry{
		Data:     data,
		CachedAt: now,
		Expires:  now.Add(ttl),
	}
}

// IsExpired returns true if the cache entry has expired.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.Expires)
}

// TTL returns the time until expiration.
// Returns 0 if already expired.
func (e *Entry) TTL() time.Duration {
	ttl := time.Until(e.Expires)
	if ttl < 0 {
		return 0
	}
	return ttl
}
