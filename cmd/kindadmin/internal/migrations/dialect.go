package migrations

import (
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

const activityIndex = "idx_session_values_activity"

// activityIndexDDL returns the index serving PurgeStale, which groups by
// session_id and compares MAX(updated_at). Postgres keeps session_id as an
// INCLUDE column; SQLite has no INCLUDE, so it becomes the second key.
func activityIndexDDL(db *bun.DB) string {
	if db.Dialect().Name() == dialect.PG {
		return `CREATE INDEX IF NOT EXISTS ` + activityIndex + ` ON session_values (updated_at) INCLUDE (session_id)`
	}
	return `CREATE INDEX IF NOT EXISTS ` + activityIndex + ` ON session_values (updated_at, session_id)`
}
