package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/auth"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/notify"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/session"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/telemetry"
	"github.com/Dannaccb/be-kind/pkg/forms"
	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/golang-jwt/jwt/v5"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errUnexpectedCall = errors.New("unexpected call")

type mockAPI struct {
	LoginFunc        func(ctx context.Context, input sdk.LoginInput) (*sdk.LoginResult, error)
	ListActionsFunc  func(ctx context.Context, input sdk.ListActionsInput) (*sdk.ActionPage, error)
	CreateActionFunc func(ctx context.Context, input sdk.CreateActionInput) (*sdk.Action, error)

	sess        *session.Session
	loginCalls  int
	createCalls int
}

func (m *mockAPI) Login(ctx context.Context, input sdk.LoginInput) (*sdk.LoginResult, error) {
	m.loginCalls++
	if m.LoginFunc == nil {
		return nil, errUnexpectedCall
	}
	return m.LoginFunc(ctx, input)
}

func (m *mockAPI) ListActions(ctx context.Context, input sdk.ListActionsInput) (*sdk.ActionPage, error) {
	if m.ListActionsFunc == nil {
		return nil, errUnexpectedCall
	}
	return m.ListActionsFunc(ctx, input)
}

func (m *mockAPI) CreateAction(ctx context.Context, input sdk.CreateActionInput) (*sdk.Action, error) {
	m.createCalls++
	if m.CreateActionFunc == nil {
		return nil, errUnexpectedCall
	}
	return m.CreateActionFunc(ctx, input)
}

type harness struct {
	router  http.Handler
	store   *session.MemoryStore
	manager *session.Manager
	cookies *auth.Cookies
	api     *mockAPI
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	cookies, err := auth.NewCookies([]byte("0123456789abcdef0123456789abcdef"), nil, false)
	require.NoError(t, err)

	h := &harness{
		store:   session.NewMemoryStore(100, 0),
		cookies: cookies,
		api:     &mockAPI{},
	}
	h.manager = session.NewManager(h.store, session.WithLogger(logger))

	router, err := NewRouter(RouterOptions{
		Manager: h.manager,
		Cookies: cookies,
		Clients: func(sess *session.Session) APIClient {
			h.api.sess = sess
			return h.api
		},
		Metrics:     telemetry.New(),
		Logger:      logger,
		CORSOrigins: []string{"http://localhost:5173"},
	})
	require.NoError(t, err)
	h.router = router
	return h
}

func token(t *testing.T, exp time.Time) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "7", "exp": exp.Unix()}).SignedString([]byte("k"))
	require.NoError(t, err)
	return signed
}

var admin = sdk.User{ID: "7", Email: "admin@bekind.network", Name: "Admin"}

// loggedIn stores an authenticated session and returns its cookie.
func (h *harness) loggedIn(t *testing.T) (string, *http.Cookie) {
	t.Helper()
	id := auth.NewSessionID()
	sess, err := h.manager.Open(context.Background(), id)
	require.NoError(t, err)
	require.NoError(t, sess.Login(context.Background(), token(t, time.Now().Add(time.Hour)), admin))

	rec := httptest.NewRecorder()
	require.NoError(t, h.cookies.SetSessionID(rec, id))
	return id, rec.Result().Cookies()[0]
}

func (h *harness) serve(req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	return rec
}

func lastCookie(rec *httptest.ResponseRecorder, name string) *http.Cookie {
	var found *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == name {
			found = c
		}
	}
	return found
}

func loginRequest(email, password string) *http.Request {
	body := url.Values{"email": {email}, "password": {password}}.Encode()
	req := httptest.NewRequest(http.MethodPost, LoginPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestLoginPage(t *testing.T) {
	h := newHarness(t)
	rec := h.serve(httptest.NewRequest(http.MethodGet, LoginPath, nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), AppName)
	assert.Contains(t, rec.Body.String(), `name="email"`)
	assert.NotNil(t, lastCookie(rec, auth.SessionCookieName))
}

func TestLoginPage_RedirectsAuthenticatedUsers(t *testing.T) {
	h := newHarness(t)
	_, cookie := h.loggedIn(t)

	rec := h.serve(httptest.NewRequest(http.MethodGet, LoginPath, nil), cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, DashboardPath, rec.Header().Get("Location"))
}

func TestLogin_ValidationErrorsSkipUpstream(t *testing.T) {
	h := newHarness(t)
	rec := h.serve(loginRequest("admin@bekind", "123"))

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Correo electrónico inválido")
	assert.Contains(t, rec.Body.String(), "La contraseña debe tener al menos 6 caracteres")
	assert.Zero(t, h.api.loginCalls)
}

func TestLogin_Success(t *testing.T) {
	h := newHarness(t)
	valid := token(t, time.Now().Add(time.Hour))
	h.api.LoginFunc = func(_ context.Context, input sdk.LoginInput) (*sdk.LoginResult, error) {
		assert.Equal(t, "admin@bekind.network", input.Email)
		assert.Equal(t, "secret1", input.Password)
		return &sdk.LoginResult{Token: valid, User: admin}, nil
	}

	rec := h.serve(loginRequest("admin@bekind.network", "secret1"))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, DashboardPath, rec.Header().Get("Location"))

	sessionCookie := lastCookie(rec, auth.SessionCookieName)
	require.NotNil(t, sessionCookie)
	flashCookie := lastCookie(rec, notify.CookieName)
	require.NotNil(t, flashCookie)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(sessionCookie)
	id, ok := h.cookies.SessionID(req)
	require.True(t, ok)
	stored, found, err := h.store.Get(context.Background(), id, session.TokenKey)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, valid, stored)

	h.api.ListActionsFunc = func(context.Context, sdk.ListActionsInput) (*sdk.ActionPage, error) {
		return &sdk.ActionPage{}, nil
	}
	rec = h.serve(httptest.NewRequest(http.MethodGet, DashboardPath, nil), sessionCookie, flashCookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), MsgWelcome)
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name       string
		result     *sdk.LoginResult
		err        error
		wantStatus int
		wantBody   string
	}{
		{
			name:       "rejected credentials",
			err:        &sdk.APIError{Kind: sdk.KindHTTP, Status: http.StatusUnauthorized, Message: "Credenciales inválidas"},
			wantStatus: http.StatusUnauthorized,
			wantBody:   "Credenciales inválidas",
		},
		{
			name:       "no token in response",
			err:        sdk.ErrNoToken,
			wantStatus: http.StatusBadGateway,
			wantBody:   "No se recibió token de autenticación",
		},
		{
			name:       "network",
			err:        &sdk.APIError{Kind: sdk.KindNetwork, Message: sdk.MsgNetwork},
			wantStatus: http.StatusBadGateway,
			wantBody:   "No se pudo conectar con el servidor",
		},
		{
			name:       "expired token",
			result:     &sdk.LoginResult{User: admin},
			wantStatus: http.StatusBadGateway,
			wantBody:   sdk.MsgTokenRejected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.api.LoginFunc = func(context.Context, sdk.LoginInput) (*sdk.LoginResult, error) {
				if tt.result != nil {
					tt.result.Token = token(t, time.Now().Add(-time.Hour))
				}
				return tt.result, tt.err
			}

			rec := h.serve(loginRequest("admin@bekind.network", "secret1"))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.wantBody)
			assert.Contains(t, rec.Body.String(), `value="admin@bekind.network"`)
			assert.Nil(t, lastCookie(rec, notify.CookieName))
		})
	}
}

func TestDashboard_RequiresSession(t *testing.T) {
	h := newHarness(t)
	rec := h.serve(httptest.NewRequest(http.MethodGet, DashboardPath, nil))

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))
}

func TestDashboard_RendersActions(t *testing.T) {
	h := newHarness(t)
	_, cookie := h.loggedIn(t)
	h.api.ListActionsFunc = func(_ context.Context, input sdk.ListActionsInput) (*sdk.ActionPage, error) {
		assert.Equal(t, sdk.ListActionsInput{PageNumber: 1, PageSize: 20}, input)
		return &sdk.ActionPage{
			Items: []sdk.Action{
				{ID: "1", Name: "Reciclar", Description: "Separar residuos", Icon: "https://cdn.test/a.png", Status: sdk.StatusActive, CreatedAt: "2025-03-04T10:00:00Z"},
				{ID: "2", Name: "Donar", Icon: "🎁", Status: sdk.StatusInactive},
			},
			TotalCount: 2,
			PageNumber: 1,
			PageSize:   20,
		}, nil
	}

	rec := h.serve(httptest.NewRequest(http.MethodGet, DashboardPath+"?pageSize=20", nil), cookie)
	require.Equal(t, http.StatusOK, rec.Code)

	body := rec.Body.String()
	assert.Contains(t, body, "Reciclar")
	assert.Contains(t, body, `<img src="https://cdn.test/a.png"`)
	assert.Contains(t, body, "🎁")
	assert.Contains(t, body, "Activo")
	assert.Contains(t, body, "Inactivo")
	assert.Contains(t, body, "Sin descripción")
	assert.Contains(t, body, "04/03/2025")
	assert.Contains(t, body, "1 - 2 de 2")
	assert.Contains(t, body, admin.Email)
}

func TestDashboard_EmptyState(t *testing.T) {
	h := newHarness(t)
	_, cookie := h.loggedIn(t)
	h.api.ListActionsFunc = func(context.Context, sdk.ListActionsInput) (*sdk.ActionPage, error) {
		return &sdk.ActionPage{}, nil
	}

	rec := h.serve(httptest.NewRequest(http.MethodGet, DashboardPath, nil), cookie)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No hay acciones disponibles")
	assert.Contains(t, rec.Body.String(), "Crear primera acción")
}

func TestDashboard_UnauthorizedClearsSession(t *testing.T) {
	h := newHarness(t)
	id, cookie := h.loggedIn(t)
	h.api.ListActionsFunc = func(ctx context.Context, _ sdk.ListActionsInput) (*sdk.ActionPage, error) {
		h.api.sess.HandleUnauthorized(ctx)
		return nil, &sdk.APIError{Kind: sdk.KindUnauthenticated, Status: http.StatusUnauthorized, Message: sdk.MsgTokenRejected}
	}

	rec := h.serve(httptest.NewRequest(http.MethodGet, DashboardPath, nil), cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))

	_, found, err := h.store.Get(context.Background(), id, session.TokenKey)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestDashboard_UpstreamErrorOffersRetry(t *testing.T) {
	h := newHarness(t)
	_, cookie := h.loggedIn(t)
	h.api.ListActionsFunc = func(context.Context, sdk.ListActionsInput) (*sdk.ActionPage, error) {
		return nil, &sdk.APIError{Kind: sdk.KindServer, Status: http.StatusInternalServerError, Message: "Error al cargar las acciones"}
	}

	rec := h.serve(httptest.NewRequest(http.MethodGet, DashboardPath+"?page=2", nil), cookie)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
	assert.Contains(t, rec.Body.String(), "Reintentar")
	assert.Contains(t, rec.Body.String(), "Error al cargar las acciones")
}

var pngBytes = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n', 0, 0, 0, 0x0d, 'I', 'H', 'D', 'R'}

func createRequest(t *testing.T, fields map[string]string, filename string, data []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	if filename != "" {
		part, err := mw.CreateFormFile(forms.ImageField, filename)
		require.NoError(t, err)
		_, err = part.Write(data)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, CreatePath, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

var validFields = map[string]string{
	"name":        "Reciclar",
	"description": "Separar residuos en casa",
	"status":      "inactive",
	"color":       "#00AA00",
}

func TestCreate_WithoutImageIsRejectedLocally(t *testing.T) {
	h := newHarness(t)
	_, cookie := h.loggedIn(t)

	rec := h.serve(createRequest(t, validFields, "", nil), cookie)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), forms.MsgImageRequired)
	assert.Contains(t, rec.Body.String(), `value="Reciclar"`)
	assert.Zero(t, h.api.createCalls)
}

func TestCreate_Success(t *testing.T) {
	h := newHarness(t)
	_, cookie := h.loggedIn(t)

	var got sdk.CreateActionInput
	var uploaded []byte
	h.api.CreateActionFunc = func(_ context.Context, input sdk.CreateActionInput) (*sdk.Action, error) {
		got = input
		var err error
		uploaded, err = io.ReadAll(input.File)
		require.NoError(t, err)
		return &sdk.Action{ID: "9", Name: input.Name}, nil
	}

	rec := h.serve(createRequest(t, validFields, "icon.png", pngBytes), cookie)
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, DashboardPath, rec.Header().Get("Location"))
	assert.NotNil(t, lastCookie(rec, notify.CookieName))

	assert.Equal(t, "Reciclar", got.Name)
	assert.Equal(t, sdk.StatusInactive, got.Status)
	assert.Equal(t, "#00AA00", got.Color)
	assert.Equal(t, "icon.png", got.FileName)
	assert.Equal(t, "image/png", got.FileContentType)
	assert.Equal(t, pngBytes, uploaded)
}

func TestCreate_UpstreamFailureKeepsForm(t *testing.T) {
	h := newHarness(t)
	_, cookie := h.loggedIn(t)
	h.api.CreateActionFunc = func(context.Context, sdk.CreateActionInput) (*sdk.Action, error) {
		return nil, &sdk.APIError{Kind: sdk.KindHTTP, Status: http.StatusBadRequest, Message: "Nombre duplicado"}
	}

	rec := h.serve(createRequest(t, validFields, "icon.png", pngBytes), cookie)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Nombre duplicado")
	assert.Contains(t, rec.Body.String(), `value="Reciclar"`)
}

func TestLogout(t *testing.T) {
	h := newHarness(t)
	id, cookie := h.loggedIn(t)

	rec := h.serve(httptest.NewRequest(http.MethodPost, LogoutPath, nil), cookie)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, LoginPath, rec.Header().Get("Location"))

	sessions, err := h.store.Sessions(context.Background())
	require.NoError(t, err)
	assert.NotContains(t, sessions, id)
}

func TestUnknownPathsRedirectToDashboard(t *testing.T) {
	h := newHarness(t)
	for _, path := range []string{"/", "/nope", "/dashboard/impacto"} {
		rec := h.serve(httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		assert.Equal(t, DashboardPath, rec.Header().Get("Location"), path)
	}
}

func TestHealthAndStatic(t *testing.T) {
	h := newHarness(t)

	rec := h.serve(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = h.serve(httptest.NewRequest(http.MethodGet, "/static/app.css", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = h.serve(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSessionInfo(t *testing.T) {
	h := newHarness(t)

	rec := h.serve(httptest.NewRequest(http.MethodGet, "/api/session", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"authenticated":false}`, rec.Body.String())

	_, cookie := h.loggedIn(t)
	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec = h.serve(req, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))

	var resp SessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Authenticated)
	require.NotNil(t, resp.User)
	assert.Equal(t, admin.Email, resp.User.Email)
	assert.False(t, resp.ExpiresAt.IsZero())
	assert.NotEmpty(t, resp.ExpiresIn)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{&sdk.APIError{Kind: sdk.KindUnauthenticated}, http.StatusUnauthorized},
		{&sdk.APIError{Kind: sdk.KindHTTP, Status: http.StatusForbidden}, http.StatusForbidden},
		{&sdk.APIError{Kind: sdk.KindCORS, Status: http.StatusForbidden}, http.StatusBadGateway},
		{&sdk.APIError{Kind: sdk.KindServer, Status: http.StatusServiceUnavailable}, http.StatusBadGateway},
		{sdk.ErrContractViolation, http.StatusBadGateway},
		{sdk.ErrIconRequired, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}

func TestNewRouter_RequiresDependencies(t *testing.T) {
	_, err := NewRouter(RouterOptions{})
	assert.Error(t, err)
}
