package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	adapthttp "glucare/internal/adapter/http"
	"glucare/internal/adapter/memory"
	"glucare/internal/adapter/postgres"
	"glucare/internal/adapter/sqlite"
	"glucare/internal/app"
	"glucare/internal/config"
	"glucare/internal/domain"
	"glucare/internal/logger"
	"glucare/internal/metrics"

	"github.com/spf13/cobra"
)

// HTTP server timeouts.
const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	idleTimeout       = 60 * time.Second
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 30 * time.Second
	purgeInterval     = time.Hour
)

// backend is the persistence selected by store_driver.
type backend struct {
	readings domain.ReadingRepository
	users    domain.UserRepository
	sessions domain.SessionRepository
	close    func() error
}

func openBackend(ctx context.Context, cfg *config.Config) (*backend, error) {
	if err := cfg.ValidateStore(); err != nil {
		return nil, err
	}
	switch cfg.StoreDriver {
	case config.DriverPostgres:
		db, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return &backend{readings: db, users: db, sessions: postgres.NewSessionRepo(db), close: db.Close}, nil
	case config.DriverSQLite:
		db, err := sqlite.Open(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return &backend{readings: db, users: db, sessions: sqlite.NewSessionRepo(db), close: db.Close}, nil
	default:
		db := memory.New()
		return &backend{readings: db, users: db, sessions: db.NewSessionRepo(), close: func() error { return nil }}, nil
	}
}

func newServeCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the web dashboard and JSON API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return o.serve(cmd.Context())
		},
	}
}

func (o *options) serve(ctx context.Context) error {
	if err := logger.Init(); err != nil {
		return err
	}
	if err := logger.SetLevelString(o.cfg.LogLevel); err != nil {
		logger.Get().Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", o.cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}
	log := logger.Named("server")

	loc, err := o.cfg.Location()
	if err != nil {
		return err
	}

	be, err := openBackend(ctx, o.cfg)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := be.close(); err != nil {
			log.Error(ctx, "close store failed", logger.Error(err))
		}
	}()
	log.Info(ctx, "store ready", logger.String("driver", o.cfg.StoreDriver))

	authSvc := app.NewAuthService(be.users, be.sessions, o.cfg.SessionTTL())
	m := metrics.NewManager()

	opts := []adapthttp.Option{
		adapthttp.WithLogger(logger.Named("http")),
		adapthttp.WithMetrics(m),
		adapthttp.WithLocale(o.cfg.Locale, loc),
		adapthttp.WithSessionTTL(o.cfg.SessionTTL()),
		adapthttp.WithStaticDir(o.cfg.StaticDir),
	}
	if o.cfg.SSOEnabled() {
		oidcCfg, err := adapthttp.NewOIDCConfig(ctx, o.cfg.OIDCIssuer, o.cfg.OIDCClientID, o.cfg.OIDCClientSecret, o.cfg.OIDCRedirectURL)
		if err != nil {
			return err
		}
		opts = append(opts, adapthttp.WithOIDC(oidcCfg))
		log.Info(ctx, "single sign-on enabled", logger.String("issuer", o.cfg.OIDCIssuer))
	}
	if o.cfg.TrustForwardAuth {
		proxies, err := o.cfg.TrustedProxyPrefixes()
		if err != nil {
			return err
		}
		opts = append(opts, adapthttp.WithForwardAuth(proxies...))
		log.Info(ctx, "forward auth enabled", logger.Any("trusted_proxies", o.cfg.TrustedProxies))
	}

	h := adapthttp.New(authSvc, app.NewReadingService(be.readings), app.NewChartsService(be.readings), opts...).Handler()

	srv := &http.Server{
		Addr:              o.cfg.Addr,
		Handler:           h,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go purgeSessions(ctx, authSvc, log)

	errCh := make(chan error, 1)
	go func() {
		log.Info(ctx, "starting HTTP server", logger.String("addr", o.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}
	log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	log.Info(ctx, "server stopped")
	return nil
}

// purgeSessions drops expired sessions until ctx is done.
func purgeSessions(ctx context.Context, authSvc *app.AuthService, log logger.Logger) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := authSvc.PurgeExpired(ctx); err != nil {
				log.Warn(ctx, "purge expired sessions failed", logger.Error(err))
			}
		}
	}
}
