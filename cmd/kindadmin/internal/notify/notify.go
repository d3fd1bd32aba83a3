// Package notify carries toast notifications across a redirect in a signed cookie.
package notify

import (
	"net/http"

	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/auth"
	"github.com/google/uuid"
)

// CookieName holds pending toasts until the next rendered page.
const CookieName = "kindadmin.flash"

const maxPending = 5

// Kind selects the toast styling.
type Kind string

const (
	Success Kind = "success"
	Error   Kind = "error"
	Warning Kind = "warning"
	Info    Kind = "info"
)

// Toast is a transient message shown once.
type Toast struct {
	ID      string `json:"id"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Flasher queues and drains toasts.
type Flasher struct {
	cookies *auth.Cookies
}

// NewFlasher stores toasts with the given cookie codec.
func NewFlasher(cookies *auth.Cookies) *Flasher {
	return &Flasher{cookies: cookies}
}

// Push queues a toast for the next page the browser renders.
func (f *Flasher) Push(w http.ResponseWriter, r *http.Request, kind Kind, message string) error {
	pending := f.read(r)
	pending = append(pending, Toast{ID: uuid.NewString(), Kind: kind, Message: message})
	if len(pending) > maxPending {
		pending = pending[len(pending)-maxPending:]
	}
	return f.cookies.Write(w, CookieName, pending)
}

// Pop returns the queued toasts and clears the cookie.
func (f *Flasher) Pop(w http.ResponseWriter, r *http.Request) []Toast {
	pending := f.read(r)
	if len(pending) > 0 {
		f.cookies.Clear(w, CookieName)
	}
	return pending
}

func (f *Flasher) read(r *http.Request) []Toast {
	var pending []Toast
	if err := f.cookies.Read(r, CookieName, &pending); err != nil {
		return nil
	}
	return pending
}
