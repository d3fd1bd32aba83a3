package middleware

import (
	"net/http"

	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/auth"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/logging"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/session"
	"github.com/sirupsen/logrus"
)

// SessionDependencies groups what the session middleware needs.
type SessionDependencies struct {
	Manager *session.Manager
	Cookies *auth.Cookies
	Logger  logrus.FieldLogger
}

// NewSessionMiddleware restores the browser session named by the signed
// cookie and places it on the request context. Requests without a valid
// cookie get a fresh session id. Restoring clears stored state that is
// partial or whose token expired, so handlers only ever see a fully
// authenticated session or an empty one.
func NewSessionMiddleware(deps SessionDependencies) func(http.Handler) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := deps.Cookies.SessionID(r)
			if !ok {
				id = auth.NewSessionID()
				if err := deps.Cookies.SetSessionID(w, id); err != nil {
					logger.WithError(err).Error("failed to issue session cookie")
					http.Error(w, "Session unavailable", http.StatusInternalServerError)
					return
				}
			}

			sess, err := deps.Manager.Open(r.Context(), id)
			if err != nil {
				logger.WithError(err).WithField("session_id", id).Error("failed to restore session")
				http.Error(w, "Session unavailable", http.StatusInternalServerError)
				return
			}

			if sess.IsAuthenticated() {
				logger.WithFields(logrus.Fields{
					"session_id": id,
					"token":      logging.TokenPrefix(sess.Token()),
				}).Debug("session restored")
			}

			next.ServeHTTP(w, r.WithContext(session.WithSession(r.Context(), sess)))
		})
	}
}

// RequireSession sends unauthenticated requests to loginPath.
func RequireSession(loginPath string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess, ok := session.FromContext(r.Context())
			if !ok || !sess.IsAuthenticated() {
				http.Redirect(w, r, loginPath, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RedirectIfAuthenticated sends authenticated requests to target, used to
// keep logged-in users off the login page.
func RedirectIfAuthenticated(target string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sess, ok := session.FromContext(r.Context()); ok && sess.IsAuthenticated() {
				http.Redirect(w, r, target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
