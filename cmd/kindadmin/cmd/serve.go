package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/auth"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/db/bunx"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/repository"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/server"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/session"
	"github.com/Dannaccb/be-kind/cmd/kindadmin/internal/telemetry"
	"github.com/Dannaccb/be-kind/pkg/sdk"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the admin console",
	Long: `Starts the HTTP server with the login, dashboard and create action pages.
When a database URL is configured, run 'kindadmin db migrate' first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cookies, err := newCookies()
		if err != nil {
			return err
		}

		var store session.Storage
		if cfg.DatabaseURL != "" {
			db, err := bunx.NewDB(cfg.DatabaseURL)
			if err != nil {
				return fmt.Errorf("failed to connect to database: %w", err)
			}
			defer closeDB(db)

			store = repository.NewBunSessionRepository(db)
			logger.WithField("database", bunx.DetectDatabaseType(cfg.DatabaseURL)).Info("Sessions stored in database")
		} else {
			store = session.NewMemoryStore(cfg.Session.MaxEntries, cfg.Session.IdleTTL)
			logger.WithField("max_entries", cfg.Session.MaxEntries).Info("Sessions stored in memory")
		}

		var metrics *telemetry.Metrics
		var observer sdk.Observer
		managerOpts := []session.ManagerOption{session.WithLogger(logger)}
		sweeperOpts := []session.SweeperOption{session.WithStaleTTL(cfg.Session.IdleTTL)}
		if cfg.MetricsEnabled {
			metrics = telemetry.New()
			observer = metrics.ObserveUpstream
			managerOpts = append(managerOpts, session.WithClearHook(metrics.SessionCleared))
			sweeperOpts = append(sweeperOpts, session.WithSweepHook(metrics.RecordSweep))
		}

		manager := session.NewManager(store, managerOpts...)

		sweeper, err := session.NewSweeper(manager, cfg.Session.SweepSchedule, logger, sweeperOpts...)
		if err != nil {
			return fmt.Errorf("configure session sweeper: %w", err)
		}
		sweeper.Start()
		defer func() {
			<-sweeper.Stop().Done()
		}()

		r, err := server.NewRouter(server.RouterOptions{
			Manager:     manager,
			Cookies:     cookies,
			Clients:     server.NewSDKClientFactory(cfg.API, logger, observer),
			Metrics:     metrics,
			Logger:      logger,
			PageSizes:   cfg.PageSizes,
			CORSOrigins: cfg.CORSOrigins,
		})
		if err != nil {
			return fmt.Errorf("build router: %w", err)
		}

		srv := &http.Server{
			Addr:         cfg.ServerAddr,
			Handler:      r,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.WithFields(logrus.Fields{
				"addr":       cfg.ServerAddr,
				"public_url": cfg.PublicURL,
				"api":        cfg.API.BaseURL,
			}).Info("Starting server")
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.WithField("signal", sig.String()).Info("Shutting down gracefully")

			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				return fmt.Errorf("graceful shutdown failed: %w", err)
			}

			logger.Info("Server stopped")
			return nil
		}
	},
}

// newCookies builds the cookie codec from the configured keys. Without a
// hash key a random one is generated, which signs out everyone on restart.
func newCookies() (*auth.Cookies, error) {
	hashKey := []byte(cfg.Session.HashKey)
	if len(hashKey) == 0 {
		logger.Warn("KINDADMIN_SESSION_HASH_KEY is not set; generated a random key, sessions will not survive a restart")
		hashKey = auth.GenerateKey()
	}
	cookies, err := auth.NewCookies(hashKey, []byte(cfg.Session.BlockKey), cfg.SecureCookies())
	if err != nil {
		return nil, fmt.Errorf("configure session cookies: %w", err)
	}
	return cookies, nil
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
