package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
)

// ErrInvalidToken is returned by Login when the token fails validation.
var ErrInvalidToken = errors.New("token is invalid or expired")

// Session is the authentication state of one browser session. It is either
// fully authenticated, holding a valid token and a user, or empty.
type Session struct {
	id      string
	store   Storage
	logger  logrus.FieldLogger
	now     func() time.Time
	onClear func(reason string)

	mu            sync.RWMutex
	token         string
	user          *sdk.User
	authenticated bool
}

// ID returns the session id the storage is keyed by.
func (s *Session) ID() string {
	return s.id
}

// IsAuthenticated reports whether the session holds a valid token and user.
func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.authenticated
}

// Token returns the bearer token, or "" when not authenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// User returns the logged-in profile.
func (s *Session) User() (sdk.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return sdk.User{}, false
	}
	return *s.user, true
}

// Login validates token and, if valid, persists both keys.
func (s *Session) Login(ctx context.Context, token string, user sdk.User) error {
	token = sdk.CleanToken(token)
	if !sdk.ValidateTokenAt(token, s.now()).Valid {
		return ErrInvalidToken
	}

	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode user: %w", err)
	}

	if err := s.store.Set(ctx, s.id, TokenKey, token); err != nil {
		return fmt.Errorf("store token: %w", err)
	}
	if err := s.store.Set(ctx, s.id, UserKey, string(raw)); err != nil {
		_ = s.store.Remove(ctx, s.id, TokenKey, UserKey)
		return fmt.Errorf("store user: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.user = &user
	s.authenticated = true
	s.mu.Unlock()

	s.logger.WithFields(logrus.Fields{
		"session_id": s.id,
		"user_id":    user.ID,
	}).Info("session opened")
	return nil
}

// Logout removes both keys and resets the in-memory state. The in-memory
// state is cleared even when storage fails.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.authenticated = false
	s.mu.Unlock()

	if err := s.store.Remove(ctx, s.id, TokenKey, UserKey); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// CheckExpiry logs out a session whose token no longer validates. It reports
// whether the session was logged out.
func (s *Session) CheckExpiry(ctx context.Context) (bool, error) {
	s.mu.RLock()
	token, authenticated := s.token, s.authenticated
	s.mu.RUnlock()

	if !authenticated || sdk.ValidateTokenAt(token, s.now()).Valid {
		return false, nil
	}

	s.logger.WithField("session_id", s.id).Info("session token expired")
	s.cleared("expired")
	return true, s.Logout(ctx)
}

// HandleUnauthorized is the SDK hook for rejected requests: it ends the session.
func (s *Session) HandleUnauthorized(ctx context.Context) {
	if !s.IsAuthenticated() {
		return
	}
	s.logger.WithField("session_id", s.id).Warn("upstream rejected session token, logging out")
	s.cleared("unauthorized")
	if err := s.Logout(context.WithoutCancel(ctx)); err != nil {
		s.logger.WithError(err).Error("failed to clear rejected session")
	}
}

// TokenSource feeds the current token to the SDK, re-validated on every request.
func (s *Session) TokenSource() oauth2.TokenSource {
	return sdk.NewTokenSource(s.Token)
}

func (s *Session) cleared(reason string) {
	if s.onClear != nil {
		s.onClear(reason)
	}
}
