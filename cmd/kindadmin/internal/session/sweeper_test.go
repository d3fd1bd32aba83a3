package session

import (
	"context"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// purgingStore records PurgeStale calls on top of a MemoryStore.
type purgingStore struct {
	*MemoryStore
	cutoffs []time.Time
	purged  int
}

func (p *purgingStore) PurgeStale(_ context.Context, cutoff time.Time) (int, error) {
	p.cutoffs = append(p.cutoffs, cutoff)
	return p.purged, nil
}

func TestSweeper_Sweep(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	store := &purgingStore{MemoryStore: NewMemoryStore(10, 0), purged: 4}
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "valid", TokenKey, tokenWithExp(t, now.Add(time.Hour))))
	require.NoError(t, store.Set(ctx, "valid", UserKey, `{"id":"1"}`))
	require.NoError(t, store.Set(ctx, "expired", TokenKey, tokenWithExp(t, now.Add(-time.Hour))))
	require.NoError(t, store.Set(ctx, "expired", UserKey, `{"id":"2"}`))
	require.NoError(t, store.Set(ctx, "partial", TokenKey, tokenWithExp(t, now.Add(time.Hour))))

	logger, _ := logtest.NewNullLogger()
	mgr := NewManager(store, WithLogger(logger), WithClock(func() time.Time { return now }))

	var hooked []SweepResult
	sweeper, err := NewSweeper(mgr, "", logger,
		WithStaleTTL(12*time.Hour),
		WithSweepHook(func(r SweepResult) { hooked = append(hooked, r) }),
	)
	require.NoError(t, err)

	result, err := sweeper.Sweep(ctx)
	require.NoError(t, err)

	assert.Equal(t, SweepResult{Checked: 3, Active: 1, Cleared: 2, Purged: 4}, result)
	assert.Equal(t, []SweepResult{result}, hooked)
	assert.Equal(t, []time.Time{now.Add(-12 * time.Hour)}, store.cutoffs)

	ids, err := store.Sessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"valid"}, ids)
}

func TestSweeper_SkipsPurgeWithoutTTL(t *testing.T) {
	store := &purgingStore{MemoryStore: NewMemoryStore(10, 0)}
	logger, _ := logtest.NewNullLogger()
	sweeper, err := NewSweeper(NewManager(store, WithLogger(logger)), DefaultSweepSchedule, logger)
	require.NoError(t, err)

	_, err = sweeper.Sweep(context.Background())
	require.NoError(t, err)
	assert.Empty(t, store.cutoffs)
}

func TestNewSweeper_InvalidSchedule(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	_, err := NewSweeper(NewManager(NewMemoryStore(1, 0)), "every now and then", logger)
	assert.Error(t, err)
}

func TestSweeper_StartStop(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	sweeper, err := NewSweeper(NewManager(NewMemoryStore(1, 0), WithLogger(logger)), "@every 1h", logger)
	require.NoError(t, err)

	sweeper.Start()
	ctx := sweeper.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
