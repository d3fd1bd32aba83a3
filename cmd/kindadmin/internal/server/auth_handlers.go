package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/auth"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/logging"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/notify"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/session"
	"github.com/Dannaccb/be-kind/pkg/forms"
	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/sirupsen/logrus"
)

type loginData struct {
	Email  string
	Errors forms.Errors
}

// handleLoginPage renders the login form. Expired sessions were already
// cleared by the session middleware, and authenticated ones redirected.
func (h *handlers) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	h.render.Render(w, http.StatusOK, "login", h.withData(h.base(w, r, "Iniciar sesión", ""), loginData{}))
}

// handleLogin validates the form, exchanges the credentials for a token and
// opens a session under a fresh id.
func (h *handlers) handleLogin(w http.ResponseWriter, r *http.Request) {
	form, errs := h.forms.ParseLogin(r)
	if errs != nil {
		data := loginData{Email: form.Email, Errors: errs}
		h.render.Render(w, http.StatusUnprocessableEntity, "login", h.withData(h.base(w, r, "Iniciar sesión", ""), data))
		return
	}

	ctx := r.Context()
	current := currentSession(r)
	result, err := h.clients(current).Login(ctx, sdk.LoginInput{Email: form.Email, Password: form.Password})
	if err != nil {
		h.recordLogin(false)
		h.logger.WithError(err).WithField("email", form.Email).Warn("login failed")
		h.loginFailed(w, r, form.Email, statusFor(err), sdk.ErrorMessage(err))
		return
	}

	// Rotate the id so a session cookie planted before login cannot be reused.
	id := auth.NewSessionID()
	sess, err := h.manager.Open(ctx, id)
	if err != nil {
		h.logger.WithError(err).Error("failed to open session")
		h.loginFailed(w, r, form.Email, http.StatusInternalServerError, "No se pudo iniciar la sesión")
		return
	}
	if err := sess.Login(ctx, result.Token, result.User); err != nil {
		h.recordLogin(false)
		status := http.StatusInternalServerError
		msg := "No se pudo iniciar la sesión"
		if errors.Is(err, session.ErrInvalidToken) {
			status, msg = http.StatusBadGateway, sdk.MsgTokenRejected
		}
		h.logger.WithError(err).WithField("token", logging.TokenPrefix(result.Token)).Warn("login token rejected")
		h.loginFailed(w, r, form.Email, status, msg)
		return
	}
	if current != nil {
		if err := current.Logout(ctx); err != nil {
			h.logger.WithError(err).Warn("failed to clear previous session")
		}
	}
	if err := h.cookies.SetSessionID(w, id); err != nil {
		h.logger.WithError(err).Error("failed to set session cookie")
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	h.recordLogin(true)
	h.pushToast(w, r, notify.Success, MsgWelcome)
	http.Redirect(w, r, DashboardPath, http.StatusSeeOther)
}

func (h *handlers) loginFailed(w http.ResponseWriter, r *http.Request, email string, status int, msg string) {
	p := h.base(w, r, "Iniciar sesión", "", errorToast(msg))
	h.render.Render(w, status, "login", h.withData(p, loginData{Email: email}))
}

func (h *handlers) recordLogin(success bool) {
	if h.metrics != nil {
		h.metrics.RecordLogin(success)
	}
}

// handleLogout clears the session and returns to the login page.
func (h *handlers) handleLogout(w http.ResponseWriter, r *http.Request) {
	if sess := currentSession(r); sess != nil {
		if err := sess.Logout(r.Context()); err != nil {
			h.logger.WithError(err).WithField("session_id", sess.ID()).Error("logout failed")
		}
	}
	h.cookies.Clear(w, auth.SessionCookieName)
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

// SessionResponse is returned by GET /api/session.
type SessionResponse struct {
	Authenticated bool      `json:"authenticated"`
	User          *sdk.User `json:"user,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt,omitzero"`
	ExpiresIn     string    `json:"expiresIn,omitempty"`
}

// handleSessionInfo reports the state of the caller's browser session.
func (h *handlers) handleSessionInfo(w http.ResponseWriter, r *http.Request) {
	resp := SessionResponse{}
	if sess := currentSession(r); sess != nil && sess.IsAuthenticated() {
		resp.Authenticated = true
		if user, ok := sess.User(); ok {
			resp.User = &user
		}
		if exp, ok := sdk.TokenExpiration(sess.Token()); ok {
			resp.ExpiresAt = exp.UTC()
		}
		if left, ok := sdk.TimeUntilExpiration(sess.Token(), time.Now()); ok {
			resp.ExpiresIn = left.Round(time.Second).String()
		}
	}
	writeJSON(w, http.StatusOK, resp, h.logger)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"}, nil)
}

func writeJSON(w http.ResponseWriter, status int, v any, logger logrus.FieldLogger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil && logger != nil {
		logger.WithError(err).Warn("failed to encode response")
	}
}

func (h *handlers) withData(p page, data any) page {
	p.Data = data
	return p
}
