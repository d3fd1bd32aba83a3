package server

import (
	"net/http"

	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/auth"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/notify"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/services/actions"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/session"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/telemetry"
	"github.com/Dannaccb/be-kind/pkg/forms"
	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Paths of the pages the handlers redirect between.
const (
	LoginPath     = "/login"
	LogoutPath    = "/logout"
	DashboardPath = "/dashboard"
	CreatePath    = "/dashboard/acciones/crear"
)

// Toast copy.
const (
	MsgWelcome       = "¡Bienvenido! Inicio de sesión exitoso"
	MsgActionCreated = "¡Acción creada exitosamente!"
	MsgCreateFailed  = "Error al crear la acción"
)

// handlers holds the collaborators shared by every page.
type handlers struct {
	manager   *session.Manager
	cookies   *auth.Cookies
	flash     *notify.Flasher
	forms     *forms.Validator
	actions   *actions.Service
	clients   ClientFactory
	render    *Renderer
	metrics   *telemetry.Metrics
	logger    logrus.FieldLogger
	pageSizes []int
}

// currentSession returns the session placed by the session middleware.
func currentSession(r *http.Request) *session.Session {
	sess, _ := session.FromContext(r.Context())
	return sess
}

// base fills the layout fields and drains pending toasts.
func (h *handlers) base(w http.ResponseWriter, r *http.Request, title, nav string, now ...notify.Toast) page {
	p := page{Title: title, Nav: nav}
	if sess := currentSession(r); sess != nil {
		if user, ok := sess.User(); ok {
			p.User = &user
		}
	}
	p.Toasts = append(h.flash.Pop(w, r), now...)
	return p
}

func (h *handlers) pushToast(w http.ResponseWriter, r *http.Request, kind notify.Kind, msg string) {
	if err := h.flash.Push(w, r, kind, msg); err != nil {
		h.logger.WithError(err).Warn("failed to queue toast")
	}
}

// sendToLogin is used when the API rejected the session; the SDK hook has
// already cleared it.
func (h *handlers) sendToLogin(w http.ResponseWriter, r *http.Request, err error) {
	h.pushToast(w, r, notify.Error, sdk.ErrorMessage(err))
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

func errorToast(msg string) notify.Toast {
	return notify.Toast{ID: uuid.NewString(), Kind: notify.Error, Message: msg}
}
