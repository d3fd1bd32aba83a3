package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/sirupsen/logrus"
)

// Manager restores sessions from storage.
type Manager struct {
	store   Storage
	logger  logrus.FieldLogger
	now     func() time.Time
	onClear func(reason string)
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithLogger sets the logger handed to every session.
func WithLogger(logger logrus.FieldLogger) ManagerOption {
	return func(m *Manager) {
		m.logger = logger
	}
}

// WithClock overrides the time source used for token validation.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.now = now
	}
}

// WithClearHook is called whenever a session is cleared for a reason other
// than an explicit logout ("invalid", "expired", "unauthorized").
func WithClearHook(fn func(reason string)) ManagerOption {
	return func(m *Manager) {
		m.onClear = fn
	}
}

// NewManager creates a Manager over store.
func NewManager(store Storage, opts ...ManagerOption) *Manager {
	m := &Manager{
		store:  store,
		logger: logrus.StandardLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Storage returns the underlying storage.
func (m *Manager) Storage() Storage {
	return m.store
}

// Open restores session id. The result is authenticated only when a valid
// token and a decodable user are both stored; any other stored state is
// cleared so no partial session survives. An authenticated open counts as
// activity for storages that expire idle sessions.
func (m *Manager) Open(ctx context.Context, id string) (*Session, error) {
	s, _, err := m.restore(ctx, id)
	if err != nil || !s.IsAuthenticated() {
		return s, err
	}
	if toucher, ok := m.store.(Toucher); ok {
		if err := toucher.Touch(ctx, id); err != nil {
			m.logger.WithError(err).WithField("session_id", id).Warn("failed to refresh session activity")
		}
	}
	return s, nil
}

func (m *Manager) newSession(id string) *Session {
	return &Session{
		id:      id,
		store:   m.store,
		logger:  m.logger,
		now:     m.now,
		onClear: m.onClear,
	}
}

// restore returns the session and whether stored state had to be cleared.
func (m *Manager) restore(ctx context.Context, id string) (*Session, bool, error) {
	s := m.newSession(id)

	token, hasToken, err := m.store.Get(ctx, id, TokenKey)
	if err != nil {
		return nil, false, fmt.Errorf("read session token: %w", err)
	}
	rawUser, hasUser, err := m.store.Get(ctx, id, UserKey)
	if err != nil {
		return nil, false, fmt.Errorf("read session user: %w", err)
	}
	if !hasToken && !hasUser {
		return s, false, nil
	}

	var user sdk.User
	userErr := json.Unmarshal([]byte(rawUser), &user)
	validation := sdk.ValidateTokenAt(token, m.now())

	if hasToken && hasUser && userErr == nil && validation.Valid {
		s.token = sdk.CleanToken(token)
		s.user = &user
		s.authenticated = true
		return s, false, nil
	}

	reason := "invalid"
	if validation.HasValidStructure && validation.Expired {
		reason = "expired"
	}
	m.logger.WithFields(logrus.Fields{
		"session_id": id,
		"reason":     reason,
	}).Info("clearing stale session")
	if m.onClear != nil {
		m.onClear(reason)
	}
	if err := m.store.Remove(ctx, id, TokenKey, UserKey); err != nil {
		return nil, true, fmt.Errorf("clear session: %w", err)
	}
	return s, true, nil
}
