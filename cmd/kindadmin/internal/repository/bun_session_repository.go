package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/db/models"
	"github.com/uptrace/bun"
)

// BunSessionRepository stores session keys in the session_values table.
// It satisfies session.Storage and session.Purger.
type BunSessionRepository struct {
	db  *bun.DB
	now func() time.Time
}

// NewBunSessionRepository creates a new Bun-based session repository
func NewBunSessionRepository(db *bun.DB) *BunSessionRepository {
	return &BunSessionRepository{db: db, now: time.Now}
}

// Get retrieves one key of a session
func (r *BunSessionRepository) Get(ctx context.Context, sessionID, key string) (string, bool, error) {
	row := new(models.SessionValue)
	err := r.db.NewSelect().
		Model(row).
		Where("session_id = ?", sessionID).
		Where("item_key = ?", key).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("get session value: %w", err)
	}
	return row.Value, true, nil
}

// Set inserts or replaces one key of a session
func (r *BunSessionRepository) Set(ctx context.Context, sessionID, key, value string) error {
	row := &models.SessionValue{
		SessionID: sessionID,
		Key:       key,
		Value:     value,
		UpdatedAt: r.now().UTC(),
	}
	_, err := r.db.NewInsert().
		Model(row).
		On("CONFLICT (session_id, item_key) DO UPDATE").
		Set("value = EXCLUDED.value").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("set session value: %w", err)
	}
	return nil
}

// Remove deletes the given keys of a session
func (r *BunSessionRepository) Remove(ctx context.Context, sessionID string, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	_, err := r.db.NewDelete().
		Model((*models.SessionValue)(nil)).
		Where("session_id = ?", sessionID).
		Where("item_key IN (?)", bun.In(keys)).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("remove session values: %w", err)
	}
	return nil
}

// Touch bumps updated_at on every key of a session so PurgeStale sees it as active
func (r *BunSessionRepository) Touch(ctx context.Context, sessionID string) error {
	_, err := r.db.NewUpdate().
		Model((*models.SessionValue)(nil)).
		Set("updated_at = ?", r.now().UTC()).
		Where("session_id = ?", sessionID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("touch session: %w", err)
	}
	return nil
}

// Sessions lists every session id holding at least one key
func (r *BunSessionRepository) Sessions(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.NewSelect().
		Model((*models.SessionValue)(nil)).
		ColumnExpr("DISTINCT session_id").
		OrderExpr("session_id ASC").
		Scan(ctx, &ids)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return ids, nil
}

// PurgeStale deletes every session whose newest key was written or touched before cutoff.
// Should be run periodically by a cleanup job
func (r *BunSessionRepository) PurgeStale(ctx context.Context, cutoff time.Time) (int, error) {
	stale := r.db.NewSelect().
		Model((*models.SessionValue)(nil)).
		Column("session_id").
		Group("session_id").
		Having("MAX(updated_at) < ?", cutoff.UTC())

	res, err := r.db.NewDelete().
		Model((*models.SessionValue)(nil)).
		Where("session_id IN (?)", stale).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("purge stale sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge stale sessions: %w", err)
	}
	return int(n), nil
}
