package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/golang-jwt/jwt/v5"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testUser = sdk.User{ID: "7", Email: "admin@bekind.network", Name: "Admin"}

func tokenWithExp(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "7",
		"exp": exp.Unix(),
	}).SignedString([]byte("session-test-key"))
	require.NoError(t, err)
	return token
}

func newTestManager(store Storage, opts ...ManagerOption) *Manager {
	logger, _ := logtest.NewNullLogger()
	return NewManager(store, append([]ManagerOption{WithLogger(logger)}, opts...)...)
}

// failingStore returns errors from every mutating call.
type failingStore struct {
	*MemoryStore
	removeErr error
}

func (f *failingStore) Remove(ctx context.Context, sessionID string, keys ...string) error {
	return f.removeErr
}

func TestSession_LoginStoresBothKeys(t *testing.T) {
	store := NewMemoryStore(10, 0)
	mgr := newTestManager(store)
	ctx := context.Background()

	sess, err := mgr.Open(ctx, "sid-1")
	require.NoError(t, err)
	assert.False(t, sess.IsAuthenticated())

	token := tokenWithExp(t, time.Now().Add(time.Hour))
	require.NoError(t, sess.Login(ctx, `"`+token+`"`, testUser))

	assert.True(t, sess.IsAuthenticated())
	assert.Equal(t, token, sess.Token())
	user, ok := sess.User()
	require.True(t, ok)
	assert.Equal(t, testUser, user)

	stored, ok, err := store.Get(ctx, "sid-1", TokenKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, token, stored)

	rawUser, ok, err := store.Get(ctx, "sid-1", UserKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.JSONEq(t, `{"id":"7","email":"admin@bekind.network","name":"Admin"}`, rawUser)
}

func TestSession_LoginRejectsInvalidToken(t *testing.T) {
	store := NewMemoryStore(10, 0)
	mgr := newTestManager(store)
	ctx := context.Background()

	for _, token := range []string{"", "a.b", tokenWithExp(t, time.Now().Add(-time.Hour))} {
		sess, err := mgr.Open(ctx, "sid-invalid")
		require.NoError(t, err)

		err = sess.Login(ctx, token, testUser)
		assert.ErrorIs(t, err, ErrInvalidToken)
		assert.False(t, sess.IsAuthenticated())
	}

	ids, err := store.Sessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSession_LogoutClearsBothKeys(t *testing.T) {
	store := NewMemoryStore(10, 0)
	mgr := newTestManager(store)
	ctx := context.Background()

	sess, err := mgr.Open(ctx, "sid-2")
	require.NoError(t, err)
	require.NoError(t, sess.Login(ctx, tokenWithExp(t, time.Now().Add(time.Hour)), testUser))

	require.NoError(t, sess.Logout(ctx))

	assert.False(t, sess.IsAuthenticated())
	assert.Empty(t, sess.Token())
	_, ok := sess.User()
	assert.False(t, ok)

	for _, key := range []string{TokenKey, UserKey} {
		_, ok, err := store.Get(ctx, "sid-2", key)
		require.NoError(t, err)
		assert.False(t, ok, key)
	}

	reopened, err := mgr.Open(ctx, "sid-2")
	require.NoError(t, err)
	assert.False(t, reopened.IsAuthenticated())
}

func TestSession_LogoutResetsStateEvenWhenStorageFails(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(10, 0), removeErr: errors.New("disk full")}
	mgr := newTestManager(store)
	ctx := context.Background()

	sess, err := mgr.Open(ctx, "sid-3")
	require.NoError(t, err)
	require.NoError(t, sess.Login(ctx, tokenWithExp(t, time.Now().Add(time.Hour)), testUser))

	err = sess.Logout(ctx)
	require.Error(t, err)
	assert.False(t, sess.IsAuthenticated())
}

func TestManager_OpenRestores(t *testing.T) {
	now := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	valid := tokenWithExp(t, now.Add(time.Hour))
	expired := tokenWithExp(t, now.Add(-time.Hour))

	tests := []struct {
		name        string
		values      map[string]string
		wantAuth    bool
		wantCleared bool
		wantReason  string
	}{
		{name: "nothing stored", values: nil},
		{name: "valid token and user", values: map[string]string{TokenKey: valid, UserKey: `{"id":"7","email":"a@b.co","name":"A"}`}, wantAuth: true},
		{name: "expired token", values: map[string]string{TokenKey: expired, UserKey: `{"id":"7"}`}, wantCleared: true, wantReason: "expired"},
		{name: "malformed token", values: map[string]string{TokenKey: "garbage", UserKey: `{"id":"7"}`}, wantCleared: true, wantReason: "invalid"},
		{name: "token without user", values: map[string]string{TokenKey: valid}, wantCleared: true, wantReason: "invalid"},
		{name: "user without token", values: map[string]string{UserKey: `{"id":"7"}`}, wantCleared: true, wantReason: "invalid"},
		{name: "corrupt user json", values: map[string]string{TokenKey: valid, UserKey: `{"id":`}, wantCleared: true, wantReason: "invalid"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := NewMemoryStore(10, 0)
			ctx := context.Background()
			for k, v := range tt.values {
				require.NoError(t, store.Set(ctx, "sid", k, v))
			}

			var reasons []string
			mgr := newTestManager(store,
				WithClock(func() time.Time { return now }),
				WithClearHook(func(reason string) { reasons = append(reasons, reason) }),
			)

			sess, err := mgr.Open(ctx, "sid")
			require.NoError(t, err)
			assert.Equal(t, tt.wantAuth, sess.IsAuthenticated())

			if tt.wantCleared {
				assert.Equal(t, []string{tt.wantReason}, reasons)
				assert.Zero(t, store.Len())
			} else {
				assert.Empty(t, reasons)
			}
		})
	}
}

func TestSession_CheckExpiry(t *testing.T) {
	store := NewMemoryStore(10, 0)
	current := time.Now()
	mgr := newTestManager(store, WithClock(func() time.Time { return current }))
	ctx := context.Background()

	sess, err := mgr.Open(ctx, "sid-4")
	require.NoError(t, err)
	require.NoError(t, sess.Login(ctx, tokenWithExp(t, current.Add(10*time.Minute)), testUser))

	loggedOut, err := sess.CheckExpiry(ctx)
	require.NoError(t, err)
	assert.False(t, loggedOut)
	assert.True(t, sess.IsAuthenticated())

	current = current.Add(11 * time.Minute)
	loggedOut, err = sess.CheckExpiry(ctx)
	require.NoError(t, err)
	assert.True(t, loggedOut)
	assert.False(t, sess.IsAuthenticated())
	assert.Zero(t, store.Len())
}

func TestSession_HandleUnauthorized(t *testing.T) {
	store := NewMemoryStore(10, 0)
	var reasons []string
	mgr := newTestManager(store, WithClearHook(func(reason string) { reasons = append(reasons, reason) }))
	ctx, cancel := context.WithCancel(context.Background())

	sess, err := mgr.Open(ctx, "sid-5")
	require.NoError(t, err)
	require.NoError(t, sess.Login(ctx, tokenWithExp(t, time.Now().Add(time.Hour)), testUser))

	cancel()
	sess.HandleUnauthorized(ctx)
	sess.HandleUnauthorized(ctx)

	assert.False(t, sess.IsAuthenticated())
	assert.Zero(t, store.Len())
	assert.Equal(t, []string{"unauthorized"}, reasons)
}

func TestSession_TokenSource(t *testing.T) {
	store := NewMemoryStore(10, 0)
	mgr := newTestManager(store)
	ctx := context.Background()

	sess, err := mgr.Open(ctx, "sid-6")
	require.NoError(t, err)

	_, err = sess.TokenSource().Token()
	assert.True(t, sdk.IsUnauthenticated(err))

	token := tokenWithExp(t, time.Now().Add(time.Hour))
	require.NoError(t, sess.Login(ctx, token, testUser))

	tok, err := sess.TokenSource().Token()
	require.NoError(t, err)
	assert.Equal(t, token, tok.AccessToken)
}

func TestContext(t *testing.T) {
	_, ok := FromContext(context.Background())
	assert.False(t, ok)

	sess := newTestManager(NewMemoryStore(1, 0)).newSession("sid")
	got, ok := FromContext(WithSession(context.Background(), sess))
	require.True(t, ok)
	assert.Same(t, sess, got)
}

func TestManager_OpenKeepsActiveSessionAlive(t *testing.T) {
	store := NewMemoryStore(10, 200*time.Millisecond)
	mgr := newTestManager(store)
	ctx := context.Background()

	sess, err := mgr.Open(ctx, "sid-active")
	require.NoError(t, err)
	require.NoError(t, sess.Login(ctx, tokenWithExp(t, time.Now().Add(time.Hour)), testUser))

	for i := 0; i < 6; i++ {
		time.Sleep(80 * time.Millisecond)
		sess, err = mgr.Open(ctx, "sid-active")
		require.NoError(t, err)
		require.True(t, sess.IsAuthenticated(), "session opened every 80ms logged out after %d opens", i+1)
	}
}

func TestSweep_DoesNotKeepIdleSessionAlive(t *testing.T) {
	store := NewMemoryStore(10, 200*time.Millisecond)
	logger, _ := logtest.NewNullLogger()
	mgr := newTestManager(store)
	ctx := context.Background()

	sess, err := mgr.Open(ctx, "sid-idle")
	require.NoError(t, err)
	require.NoError(t, sess.Login(ctx, tokenWithExp(t, time.Now().Add(time.Hour)), testUser))

	sweeper, err := NewSweeper(mgr, "", logger)
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		if _, err := sweeper.Sweep(ctx); err != nil {
			return false
		}
		return store.Len() == 0
	}, 2*time.Second, 50*time.Millisecond)
}
