package session

import (
	"context"
	"time"
)

// Storage keys holding the session state.
const (
	TokenKey = "auth_token"
	UserKey  = "user_data"
)

// Storage is per-browser-session key/value storage. Implementations must be
// safe for concurrent use.
type Storage interface {
	// Get returns the value stored under key and whether it exists.
	Get(ctx context.Context, sessionID, key string) (string, bool, error)
	Set(ctx context.Context, sessionID, key, value string) error
	// Remove deletes keys; removing the last key forgets the session.
	Remove(ctx context.Context, sessionID string, keys ...string) error
	// Sessions lists the ids that currently hold at least one key.
	Sessions(ctx context.Context) ([]string, error)
}

// Toucher is implemented by storages that expire idle sessions. Touch marks
// the session as used now without changing its keys.
type Toucher interface {
	Touch(ctx context.Context, sessionID string) error
}

// Purger is implemented by storages that do not expire entries on their own.
type Purger interface {
	// PurgeStale removes sessions last written or touched before cutoff and returns how many rows went away.
	PurgeStale(ctx context.Context, cutoff time.Time) (int, error)
}
