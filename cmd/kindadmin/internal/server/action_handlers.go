package server

import (
	"net/http"
	"strconv"

	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/notify"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/services/actions"
	"github.com/Dannaccb/be-kind/pkg/forms"
	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/dustin/go-humanize"
	"github.com/sirupsen/logrus"
)

type pageLink struct {
	Label  string
	URL    string
	Active bool
}

type dashboardData struct {
	View      *actions.View
	Query     actions.Query
	Error     string
	PageSizes []pageLink
	First     string
	Prev      string
	Next      string
	Last      string
	RetryURL  string
}

func dashboardURL(q actions.Query) string {
	if enc := q.Values().Encode(); enc != "" {
		return DashboardPath + "?" + enc
	}
	return DashboardPath
}

// handleDashboard renders one page of actions.
func (h *handlers) handleDashboard(w http.ResponseWriter, r *http.Request) {
	q := actions.ParseQuery(r.URL.Query(), h.pageSizes)
	sess := currentSession(r)

	view, err := h.actions.Dashboard(r.Context(), h.clients(sess), q)
	if err != nil {
		if sdk.IsUnauthenticated(err) {
			h.sendToLogin(w, r, err)
			return
		}
		msg := sdk.ErrorMessage(err)
		if msg == "" {
			msg = actions.MsgLoadFailure
		}
		h.logger.WithError(err).WithFields(logrus.Fields{"page": q.Page, "page_size": q.PageSize}).Warn("failed to load actions")
		data := dashboardData{Query: q, Error: msg, RetryURL: dashboardURL(q), PageSizes: h.sizeLinks(q)}
		h.render.Render(w, statusFor(err), "dashboard", h.withData(h.base(w, r, "Acciones", "home", errorToast(msg)), data))
		return
	}

	data := dashboardData{
		View:      view,
		Query:     q,
		PageSizes: h.sizeLinks(q),
		RetryURL:  dashboardURL(q),
	}
	if view.HasPrev() {
		data.First = dashboardURL(q.WithPage(1))
		data.Prev = dashboardURL(q.WithPage(q.Page - 1))
	}
	if view.HasNext() {
		data.Next = dashboardURL(q.WithPage(q.Page + 1))
		data.Last = dashboardURL(q.WithPage(view.TotalPages))
	}
	h.render.Render(w, http.StatusOK, "dashboard", h.withData(h.base(w, r, "Acciones", "home"), data))
}

func (h *handlers) sizeLinks(q actions.Query) []pageLink {
	links := make([]pageLink, 0, len(h.pageSizes))
	for _, size := range h.pageSizes {
		links = append(links, pageLink{
			Label:  strconv.Itoa(size),
			URL:    dashboardURL(q.WithPageSize(size)),
			Active: size == q.PageSize,
		})
	}
	return links
}

type createData struct {
	Form    forms.ActionForm
	Errors  forms.Errors
	MaxSize string
}

func (h *handlers) renderCreate(w http.ResponseWriter, r *http.Request, status int, data createData, now ...notify.Toast) {
	data.MaxSize = humanize.IBytes(forms.MaxImageBytes)
	h.render.Render(w, status, "create", h.withData(h.base(w, r, "Crear acción", "home", now...), data))
}

// handleCreatePage renders an empty create form.
func (h *handlers) handleCreatePage(w http.ResponseWriter, r *http.Request) {
	h.renderCreate(w, r, http.StatusOK, createData{Form: forms.ActionForm{Status: "active"}})
}

// handleCreate validates the form and image locally, then uploads.
func (h *handlers) handleCreate(w http.ResponseWriter, r *http.Request) {
	form, img, errs := h.forms.ParseAction(w, r)
	if errs != nil {
		var toasts []notify.Toast
		if msg := errs.Get(forms.ImageField); msg != "" {
			toasts = append(toasts, errorToast(msg))
		}
		h.renderCreate(w, r, http.StatusUnprocessableEntity, createData{Form: form, Errors: errs}, toasts...)
		return
	}

	h.logger.WithFields(logrus.Fields{
		"name":         form.Name,
		"image":        img.Filename,
		"content_type": img.ContentType,
		"size":         img.HumanSize(),
	}).Debug("creating action")

	input := form.CreateInput()
	input.File = img.Reader()
	input.FileName = img.Filename
	input.FileContentType = img.ContentType

	_, err := h.clients(currentSession(r)).CreateAction(r.Context(), input)
	if err != nil {
		if sdk.IsUnauthenticated(err) {
			h.sendToLogin(w, r, err)
			return
		}
		msg := sdk.ErrorMessage(err)
		if msg == "" {
			msg = MsgCreateFailed
		}
		h.logger.WithError(err).Warn("create action failed")
		h.renderCreate(w, r, statusFor(err), createData{Form: form}, errorToast(msg))
		return
	}

	h.pushToast(w, r, notify.Success, MsgActionCreated)
	http.Redirect(w, r, DashboardPath, http.StatusSeeOther)
}
