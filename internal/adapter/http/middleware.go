package adapthttp

import (
	"context"
	"net"
	"net/http"
	"net/netip"
	"time"

	"glucare/internal/app"
	"glucare/internal/dashboard"
	"glucare/internal/domain"
	"glucare/internal/logger"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

type contextKey string

const (
	userContextKey  contextKey = "user"
	trustedProxyKey contextKey = "trusted_proxy"
)

const sessionCookie = "session"

// resolveSession maps the request's credentials onto the gate's three
// states. A session store failure leaves the session pending rather than
// signing the user out.
func (s *Server) resolveSession(r *http.Request) dashboard.Session {
	if s.disableAuth {
		return dashboard.PresentSession(&domain.User{ID: s.testUser})
	}

	// Forward auth header first, only from a trusted proxy
	if trusted, _ := r.Context().Value(trustedProxyKey).(bool); trusted {
		if remoteUser := r.Header.Get("Remote-User"); remoteUser != "" {
			user, err := s.authSvc.ValidateForwardAuth(r.Context(), remoteUser)
			if err == nil && user != nil {
				return dashboard.PresentSession(user)
			}
		}
	}

	// Fall back to cookie-based session
	cookie, err := r.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return dashboard.NoSession()
	}

	user, err := s.authSvc.ValidateSession(r.Context(), cookie.Value, r.UserAgent())
	switch {
	case err == nil:
		return dashboard.PresentSession(user)
	case app.IsAuthFailure(err):
		return dashboard.NoSession()
	default:
		s.log.Warn(r.Context(), "session lookup failed", logger.Error(err))
		return dashboard.PendingSession()
	}
}

// markTrustedProxy flags requests whose peer may assert Remote-User.
func (s *Server) markTrustedProxy(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.forwardAuth && s.fromTrustedProxy(r.RemoteAddr) {
			r = r.WithContext(context.WithValue(r.Context(), trustedProxyKey, true))
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) fromTrustedProxy(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		host = remoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	addr = addr.Unmap()
	for _, p := range s.trustedProxies {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// authMiddleware validates session tokens and forward auth headers for the
// JSON API.
func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := s.resolveSession(r)
		switch dashboard.Gate(session, "").Kind {
		case dashboard.DecisionLoading:
			w.Header().Set("Retry-After", "2")
			writeError(w, http.StatusServiceUnavailable, dashboard.ErrSessionUnresolved)
			return
		case dashboard.DecisionRedirect:
			writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "unauthorized"})
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, session.User)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userFromContext(r *http.Request) *domain.User {
	u, _ := r.Context().Value(userContextKey).(*domain.User)
	return u
}

// loggingMiddleware logs every request and records its metrics under the
// matched route pattern.
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		elapsed := time.Since(start)

		endpoint := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				endpoint = pattern
			}
		}

		s.log.Info(r.Context(), "request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", status),
			logger.Int64("duration_ms", elapsed.Milliseconds()),
			logger.String("request_id", middleware.GetReqID(r.Context())),
		)
		s.metrics.RecordHTTPRequest(endpoint, r.Method, status, float64(elapsed.Microseconds())/1000)
	})
}

func withNoCache(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
