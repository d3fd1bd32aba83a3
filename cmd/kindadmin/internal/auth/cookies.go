package auth

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"
)

// SessionCookieName identifies the browser session.
const SessionCookieName = "kindadmin.sid"

// Cookies signs, and optionally encrypts, the cookies set by the admin.
// None of them carry Expires or Max-Age, so they live for the browser session.
type Cookies struct {
	codec  *securecookie.SecureCookie
	secure bool
}

// NewCookies builds the codec. hashKey is required; blockKey may be empty.
func NewCookies(hashKey, blockKey []byte, secure bool) (*Cookies, error) {
	if len(hashKey) == 0 {
		return nil, errors.New("cookie hash key is required")
	}
	switch len(blockKey) {
	case 0, 16, 24, 32:
	default:
		return nil, fmt.Errorf("cookie block key must be 16, 24 or 32 bytes, got %d", len(blockKey))
	}
	if len(blockKey) == 0 {
		blockKey = nil
	}

	codec := securecookie.New(hashKey, blockKey)
	codec.SetSerializer(securecookie.JSONEncoder{})
	return &Cookies{codec: codec, secure: secure}, nil
}

// GenerateKey returns a random key for deployments that did not configure one.
// Cookies signed with it do not survive a restart.
func GenerateKey() []byte {
	return securecookie.GenerateRandomKey(32)
}

// Write encodes value into cookie name.
func (c *Cookies) Write(w http.ResponseWriter, name string, value any) error {
	encoded, err := c.codec.Encode(name, value)
	if err != nil {
		return fmt.Errorf("encode cookie %s: %w", name, err)
	}
	http.SetCookie(w, c.cookie(name, encoded))
	return nil
}

// Read decodes cookie name into dst. A missing cookie returns http.ErrNoCookie.
func (c *Cookies) Read(r *http.Request, name string, dst any) error {
	cookie, err := r.Cookie(name)
	if err != nil {
		return err
	}
	if err := c.codec.Decode(name, cookie.Value, dst); err != nil {
		return fmt.Errorf("decode cookie %s: %w", name, err)
	}
	return nil
}

// Clear expires cookie name.
func (c *Cookies) Clear(w http.ResponseWriter, name string) {
	cookie := c.cookie(name, "")
	cookie.Expires = time.Unix(0, 0)
	cookie.MaxAge = -1
	http.SetCookie(w, cookie)
}

// SessionID returns the verified session id, if the request carries one.
func (c *Cookies) SessionID(r *http.Request) (string, bool) {
	var id string
	if err := c.Read(r, SessionCookieName, &id); err != nil {
		return "", false
	}
	if _, err := uuid.Parse(id); err != nil {
		return "", false
	}
	return id, true
}

// SetSessionID writes the session cookie.
func (c *Cookies) SetSessionID(w http.ResponseWriter, id string) error {
	return c.Write(w, SessionCookieName, id)
}

func (c *Cookies) cookie(name, value string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// NewSessionID returns a random identifier for a new browser session.
func NewSessionID() string {
	return uuid.NewString()
}
