package adapthttp

import (
	"net/http"
	"net/netip"
	"time"

	"glucare/internal/app"
	"glucare/internal/dashboard"
	"glucare/internal/logger"
	"glucare/internal/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Server is the driving HTTP adapter that routes requests to application
// services.
type Server struct {
	authSvc  *app.AuthService
	readings *app.ReadingService
	charts   *app.ChartsService

	log        logger.Logger
	metrics    *metrics.Manager
	oidcConfig OIDCConfig
	staticDir  string
	locale     string
	loc        *time.Location
	cookieTTL  time.Duration

	forwardAuth    bool
	trustedProxies []netip.Prefix

	disableAuth bool
	testUser    int64
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request and handler logger.
func WithLogger(l logger.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMetrics records request metrics and serves /metrics from m.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Server) { s.metrics = m }
}

// WithOIDC enables single sign-on.
func WithOIDC(cfg OIDCConfig) Option {
	return func(s *Server) { s.oidcConfig = cfg }
}

// WithStaticDir serves extra assets from dir under /static/.
func WithStaticDir(dir string) Option {
	return func(s *Server) { s.staticDir = dir }
}

// WithLocale sets the display locale and time zone for pages.
func WithLocale(locale string, loc *time.Location) Option {
	return func(s *Server) {
		s.locale = locale
		s.loc = loc
	}
}

// WithSessionTTL sets the session cookie lifetime.
func WithSessionTTL(ttl time.Duration) Option {
	return func(s *Server) { s.cookieTTL = ttl }
}

// WithForwardAuth accepts the Remote-User header from an authenticating
// proxy whose address is in trusted. With no prefixes only loopback peers
// are trusted. Without this option the header is ignored.
func WithForwardAuth(trusted ...netip.Prefix) Option {
	return func(s *Server) {
		s.forwardAuth = true
		if len(trusted) == 0 {
			trusted = []netip.Prefix{
				netip.MustParsePrefix("127.0.0.0/8"),
				netip.MustParsePrefix("::1/128"),
			}
		}
		s.trustedProxies = trusted
	}
}

// New creates a Server wired to the given application services.
func New(authSvc *app.AuthService, readings *app.ReadingService, charts *app.ChartsService, opts ...Option) *Server {
	s := &Server{
		authSvc:   authSvc,
		readings:  readings,
		charts:    charts,
		log:       logger.Nop(),
		locale:    dashboard.DefaultLocale,
		loc:       time.Local,
		cookieTTL: app.DefaultSessionTTL,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// WithoutAuth disables authentication and attributes every request to
// userID. Tests only.
func (s *Server) WithoutAuth(userID int64) *Server {
	s.disableAuth = true
	s.testUser = userID
	return s
}

func (s *Server) formatter() dashboard.Formatter {
	return dashboard.NewFormatter(s.locale, s.loc)
}

// Handler returns the root http.Handler for the application.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	// Peer trust is decided on the socket address, before RealIP rewrites it.
	r.Use(s.markTrustedProxy)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(withNoCache)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string]any{"ok": true})
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/signup", s.handleSignUp)
			r.Post("/login", s.handleLogin)
			r.Post("/logout", s.handleLogout)
			r.Get("/config", s.handleConfig)
			r.Get("/sso/login", s.handleSSOLogin)
			r.Get("/sso/callback", s.handleSSOCallback)
			r.With(s.authMiddleware).Get("/session", s.handleSession)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)
			r.Get("/readings", s.handleReadingsList)
			r.Post("/readings", s.handleReadingsCreate)
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/charts/readings", s.handleChartLayout)
			r.Get("/charts/readings.svg", s.handleChartImage)
			r.Get("/charts/readings.png", s.handleChartImage)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, appPath, http.StatusFound)
	})
	r.Get("/login", s.handleLoginPage)
	r.Post("/login", s.handleLoginForm)
	r.Get("/signup", s.handleSignUpPage)
	r.Post("/signup", s.handleSignUpForm)
	r.Post("/logout", s.handleLogoutForm)
	r.Post("/prefs/theme", s.handleThemeToggle)
	r.Post("/prefs/disclaimer", s.handleDisclaimerAccept)

	r.Get(appPath, s.handleAppPage)
	r.Post(appPath+"/readings", s.handleAppSubmit)

	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	if s.staticDir != "" {
		r.Handle("/static/*", http.StripPrefix("/static/", http.FileServer(http.Dir(s.staticDir))))
	}

	return r
}
