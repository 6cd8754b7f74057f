// Package refreshstore persists one record per outstanding refresh token,
// keyed by (userID, tokenID). The record's absence when a cryptographically
// valid refresh token references it is the reuse-detection signal, so
// TakeIfPresent must be atomic: two callers racing on the same key must never
// both observe the record.
package refreshstore

import (
	"context"
	"time"
)

// Record is the server-side state for one outstanding refresh token.
type Record struct {
	Token      string    `json:"token"`                 // The signed refresh token string
	UserAgent  string    `json:"user_agent,omitempty"`  // Device metadata
	IP         string    `json:"ip,omitempty"`          // Network origin
	CreatedAt  time.Time `json:"created_at"`            // When the token was issued
	LastUsedAt time.Time `json:"last_used_at"`          // Last rotation or issue time
}

// Store is the keyed, TTL-backed refresh token store. Implementations must
// make every operation atomic with respect to concurrent callers on the same
// key, and must surface infrastructure faults as ErrStorageUnavailable rather
// than folding them into "not found".
type Store interface {
	// Put inserts or overwrites the record with the given expiry.
	Put(ctx context.Context, userID, tokenID string, record *Record, ttl time.Duration) error

	// TakeIfPresent atomically reads and deletes the record in one step.
	// Returns ErrRecordNotFound when no live record exists.
	TakeIfPresent(ctx context.Context, userID, tokenID string) (*Record, error)

	// DeleteAllForUser removes every record for the user and reports how many
	// were removed. Deleting an empty set is a no-op, not an error.
	DeleteAllForUser(ctx context.Context, userID string) (int, error)

	// Exists probes for a record without consuming it. Diagnostics only:
	// never use it for the security decision, that is a check-then-act race.
	Exists(ctx context.Context, userID, tokenID string) (bool, error)
}
