package models

import (
	"time"

	"github.com/uptrace/bun"
)

// SessionValue is one key of a browser session's server-side storage.
// A session is the set of rows sharing a SessionID.
type SessionValue struct {
	bun.BaseModel `bun:"table:session_values,alias:sv"`

	SessionID string    `bun:"session_id,pk"`
	Key       string    `bun:"item_key,pk"`
	Value     string    `bun:"value,type:text,notnull"`
	UpdatedAt time.Time `bun:"updated_at,notnull"`
}
