package server

import (
	"errors"
	"net/http"

	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/auth"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/logging"
	kindmiddleware "github.com/Dannaccb/be-kind/cmd/kindadmin/internal/middleware"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/notify"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/services/actions"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/session"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/telemetry"
	"github.com/Dannaccb/be-kind/pkg/forms"
	"github.com/Dannaccb/be-kind/pkg/sdk"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/sirupsen/logrus"
)

// RouterOptions controls the construction of the admin router.
// Manager, Cookies and Clients are required; the rest have defaults.
type RouterOptions struct {
	Manager   *session.Manager
	Cookies   *auth.Cookies
	Clients   ClientFactory
	Metrics   *telemetry.Metrics
	Logger    logrus.FieldLogger
	PageSizes []int
	// CORSOrigins may call GET /api/session with credentials.
	CORSOrigins []string
}

// DefaultCORSOptions returns the policy for the session endpoint.
func DefaultCORSOptions(origins []string) cors.Options {
	return cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
}

// NewRouter assembles the admin pages, the JSON endpoints and the static
// assets behind the shared middleware stack.
func NewRouter(opts RouterOptions) (chi.Router, error) {
	if opts.Manager == nil || opts.Cookies == nil || opts.Clients == nil {
		return nil, errors.New("router requires a session manager, cookies and a client factory")
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	pageSizes := opts.PageSizes
	if len(pageSizes) == 0 {
		pageSizes = sdk.PageSizeOptions
	}

	renderer, err := NewRenderer(logger)
	if err != nil {
		return nil, err
	}

	h := &handlers{
		manager:   opts.Manager,
		cookies:   opts.Cookies,
		flash:     notify.NewFlasher(opts.Cookies),
		forms:     forms.NewValidator(),
		actions:   actions.NewService(logger),
		clients:   opts.Clients,
		render:    renderer,
		metrics:   opts.Metrics,
		logger:    logger,
		pageSizes: pageSizes,
	}

	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(logger))
	r.Use(middleware.Recoverer)
	if opts.Metrics != nil {
		r.Use(opts.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", opts.Metrics.Handler())
	}

	r.Get("/health", handleHealth)
	r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.FS(StaticFS()))))

	r.Group(func(r chi.Router) {
		r.Use(kindmiddleware.NewSessionMiddleware(kindmiddleware.SessionDependencies{
			Manager: opts.Manager,
			Cookies: opts.Cookies,
			Logger:  logger,
		}))

		r.Group(func(r chi.Router) {
			// An empty origin list would make cors allow every origin.
			if len(opts.CORSOrigins) > 0 {
				r.Use(cors.Handler(DefaultCORSOptions(opts.CORSOrigins)))
			}
			r.Get("/api/session", h.handleSessionInfo)
			r.Options("/api/session", func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNoContent)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(kindmiddleware.RedirectIfAuthenticated(DashboardPath))
			r.Get(LoginPath, h.handleLoginPage)
			r.Post(LoginPath, h.handleLogin)
		})

		r.Post(LogoutPath, h.handleLogout)

		r.Group(func(r chi.Router) {
			r.Use(kindmiddleware.RequireSession(LoginPath))
			r.Get(DashboardPath, h.handleDashboard)
			r.Get(CreatePath, h.handleCreatePage)
			r.Post(CreatePath, h.handleCreate)
		})
	})

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		http.Redirect(w, req, DashboardPath, http.StatusSeeOther)
	})

	return r, nil
}
