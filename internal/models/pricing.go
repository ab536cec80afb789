package models

import "time"

// PricingCacheEntry is the Postgres-side overflow/audit copy of a cached
// PricingInsights value. The in-process cache in internal/pricing/cache is
// authoritative; this row exists so a restart mid-TTL doesn't silently lose
// an entry that was about to be reused.
type PricingCacheEntry struct {
	Key       string    `json:"key" db:"key"`
	Version   string    `json:"version" db:"version"` // v3 | v4
	Payload   []byte    `json:"payload" db:"payload"`  // JSON-encoded PricingInsights
	ExpiresAt time.Time `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
