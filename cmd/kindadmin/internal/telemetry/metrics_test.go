package telemetry

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/session"
	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMiddleware_LabelsByRoutePattern(t *testing.T) {
	m := New()
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/items/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, id := range []string{"1", "2", "3"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/items/"+id, nil))
	}

	assert.Equal(t, float64(3), testutil.ToFloat64(m.httpRequests.WithLabelValues(http.MethodGet, "/items/{id}", "404")))
	assert.Zero(t, testutil.ToFloat64(m.httpInFlight))
}

func TestObserveUpstream(t *testing.T) {
	m := New()
	m.ObserveUpstream(sdk.OpListActions, 200, nil, 10*time.Millisecond)
	m.ObserveUpstream(sdk.OpListActions, 401, &sdk.APIError{Kind: sdk.KindUnauthenticated}, time.Millisecond)
	m.ObserveUpstream(sdk.OpLogin, 0, errors.New("boom"), time.Millisecond)

	assert.Equal(t, float64(1), testutil.ToFloat64(m.upstreamCalls.WithLabelValues(sdk.OpListActions, "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.upstreamCalls.WithLabelValues(sdk.OpListActions, "unauthenticated")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.upstreamCalls.WithLabelValues(sdk.OpLogin, "error")))
}

func TestSessionHooks(t *testing.T) {
	m := New()
	m.SessionCleared("expired")
	m.SessionCleared("expired")
	m.RecordSweep(session.SweepResult{Checked: 5, Active: 3, Cleared: 2, Purged: 4})
	m.RecordLogin(true)
	m.RecordLogin(false)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.sessionsCleared.WithLabelValues("expired")))
	assert.Equal(t, float64(3), testutil.ToFloat64(m.sessionsActive))
	assert.Equal(t, float64(4), testutil.ToFloat64(m.sessionsPurged))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.logins.WithLabelValues("failure")))
}

func TestHandler_ExposesMetrics(t *testing.T) {
	m := New()
	m.RecordLogin(true)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `kindadmin_auth_logins_total{result="success"} 1`))
}
