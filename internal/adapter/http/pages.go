package adapthttp

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"glucare/internal/app"
	"glucare/internal/dashboard"
	"glucare/internal/domain"
	"glucare/internal/logger"
	"glucare/internal/prefs"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("pages").Funcs(template.FuncMap{
	"coord": func(v float64) string { return strconv.FormatFloat(v, 'f', 2, 64) },
	"pctX":  func(v float64) float64 { return v / dashboard.Width * 100 },
	"pctY":  func(v float64) float64 { return v / dashboard.Height * 100 },
}).ParseFS(templateFS, "templates/*.html"))

const (
	appPath          = "/app"
	themeCookieAge   = 365 * 24 * 60 * 60
	refreshAfterSecs = "2"
)

// marker is one chart point as drawn on the page.
type marker struct {
	Index   int
	X, Y, R float64
	Focused bool
}

type pageData struct {
	Title              string
	Theme              string
	DisclaimerAccepted bool
	SSO                bool
	Error              string

	Name  string
	Email string

	User    *domain.User
	View    dashboard.View
	Markers []marker
	Width   float64
	Height  float64
}

func themeFromRequest(r *http.Request) string {
	if c, err := r.Cookie(prefs.KeyTheme); err == nil && c.Value == prefs.ThemeLight {
		return prefs.ThemeLight
	}
	return prefs.ThemeDark
}

func disclaimerAccepted(r *http.Request) bool {
	c, err := r.Cookie(prefs.KeyDisclaimer)
	return err == nil && c.Value == "true"
}

func (s *Server) basePage(r *http.Request, title string) pageData {
	return pageData{
		Title:              title,
		Theme:              themeFromRequest(r),
		DisclaimerAccepted: disclaimerAccepted(r),
		SSO:                s.oidcConfig.Enabled,
		Width:              dashboard.Width,
		Height:             dashboard.Height,
	}
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data pageData) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Error(r.Context(), "render page failed", logger.String("page", name), logger.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderLoading shows the interstitial while the session cannot be
// resolved. The browser retries on its own.
func (s *Server) renderLoading(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Refresh", refreshAfterSecs)
	data := s.basePage(r, "Glucare")
	data.Error = dashboard.ErrSessionUnresolved.Error()
	s.renderPage(w, r, http.StatusOK, "loading.html", data)
}

func (s *Server) newDashboard() *dashboard.Dashboard {
	return dashboard.New(s.readings,
		dashboard.WithFormatter(s.formatter()),
		dashboard.WithLogger(s.log.Named("dashboard")),
		dashboard.WithMetrics(s.metrics),
	)
}

// mountDashboard resolves the gate for the request. It returns nil when the
// response has already been written.
func (s *Server) mountDashboard(w http.ResponseWriter, r *http.Request) (*dashboard.Dashboard, *domain.User) {
	session := s.resolveSession(r)
	d := s.newDashboard()
	decision := d.Mount(r.Context(), session)
	switch decision.Kind {
	case dashboard.DecisionLoading:
		d.Unmount()
		s.renderLoading(w, r)
		return nil, nil
	case dashboard.DecisionRedirect:
		d.Unmount()
		http.Redirect(w, r, decision.Location, http.StatusSeeOther)
		return nil, nil
	}
	return d, session.User
}

func (s *Server) renderApp(w http.ResponseWriter, r *http.Request, status int, d *dashboard.Dashboard, user *domain.User) {
	view := d.View()
	data := s.basePage(r, "Glucare")
	data.User = user
	data.View = view
	data.Markers = make([]marker, len(view.Chart.Points))
	for i, p := range view.Chart.Points {
		data.Markers[i] = marker{
			Index:   p.Index,
			X:       p.X,
			Y:       p.Y,
			R:       d.Hover().MarkerRadius(p.Index),
			Focused: d.Hover().Emphasized(p.Index),
		}
	}
	s.renderPage(w, r, status, "app.html", data)
}

func (s *Server) handleAppPage(w http.ResponseWriter, r *http.Request) {
	d, user := s.mountDashboard(w, r)
	if d == nil {
		return
	}
	defer d.Unmount()

	q := r.URL.Query()
	if v := q.Get("focus"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			d.Focus(i)
		}
	}
	if q.Get("add") == "1" {
		d.Form().Open()
	}
	s.renderApp(w, r, http.StatusOK, d, user)
}

// handleAppSubmit runs the add-reading dialog for a posted form. On success
// the browser is sent back to the refreshed dashboard; otherwise the dialog
// is rendered again with the draft and the error.
func (s *Server) handleAppSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return
	}
	d, user := s.mountDashboard(w, r)
	if d == nil {
		return
	}
	defer d.Unmount()

	form := d.Form()
	form.Open()
	for _, field := range []string{dashboard.FieldValue, dashboard.FieldDate, dashboard.FieldTime, dashboard.FieldNotes} {
		_ = form.SetField(field, r.PostFormValue(field))
	}

	err := form.Submit(r.Context())
	if err == nil {
		http.Redirect(w, r, appPath, http.StatusSeeOther)
		return
	}

	status := http.StatusInternalServerError
	if dashboard.FieldOf(err) != "" {
		status = http.StatusUnprocessableEntity
	}
	s.renderApp(w, r, status, d, user)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.resolveSession(r).Status == dashboard.SessionPresent {
		http.Redirect(w, r, appPath, http.StatusSeeOther)
		return
	}
	s.renderPage(w, r, http.StatusOK, "login.html", s.basePage(r, "Sign in"))
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	email := r.PostFormValue("email")
	token, err := s.authSvc.Login(r.Context(), email, r.PostFormValue("password"), r.UserAgent(), clientIP(r))
	if err != nil {
		status := authStatus(err)
		data := s.basePage(r, "Sign in")
		data.Email = email
		data.Error = err.Error()
		if status == http.StatusInternalServerError {
			s.log.Error(r.Context(), "login failed", logger.Error(err))
			data.Error = "something went wrong"
		}
		s.renderPage(w, r, status, "login.html", data)
		return
	}
	s.setSessionCookie(w, token)
	http.Redirect(w, r, appPath, http.StatusSeeOther)
}

func (s *Server) handleSignUpPage(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, http.StatusOK, "signup.html", s.basePage(r, "Create account"))
}

func (s *Server) handleSignUpForm(w http.ResponseWriter, r *http.Request) {
	in := app.SignUpInput{
		Name:            r.PostFormValue("name"),
		Email:           r.PostFormValue("email"),
		Password:        r.PostFormValue("password"),
		ConfirmPassword: r.PostFormValue("confirmPassword"),
	}
	token, _, err := s.authSvc.SignUp(r.Context(), in, r.UserAgent(), clientIP(r))
	if err != nil {
		status := authStatus(err)
		data := s.basePage(r, "Create account")
		data.Name = in.Name
		data.Email = in.Email
		data.Error = err.Error()
		if status == http.StatusInternalServerError {
			s.log.Error(r.Context(), "sign up failed", logger.Error(err))
			data.Error = "something went wrong"
		}
		s.renderPage(w, r, status, "signup.html", data)
		return
	}
	s.setSessionCookie(w, token)
	http.Redirect(w, r, appPath, http.StatusSeeOther)
}

func (s *Server) handleLogoutForm(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if err := s.authSvc.Logout(r.Context(), cookie.Value); err != nil {
			s.log.Warn(r.Context(), "logout failed", logger.Error(err))
		}
	}
	clearSessionCookie(w)
	http.Redirect(w, r, dashboard.SignInPath, http.StatusSeeOther)
}

func (s *Server) handleThemeToggle(w http.ResponseWriter, r *http.Request) {
	next := prefs.ThemeLight
	if themeFromRequest(r) == prefs.ThemeLight {
		next = prefs.ThemeDark
	}
	http.SetCookie(w, &http.Cookie{
		Name:     prefs.KeyTheme,
		Value:    next,
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   themeCookieAge,
	})
	http.Redirect(w, r, returnPath(r), http.StatusSeeOther)
}

func (s *Server) handleDisclaimerAccept(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     prefs.KeyDisclaimer,
		Value:    "true",
		Path:     "/",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   themeCookieAge,
	})
	http.Redirect(w, r, returnPath(r), http.StatusSeeOther)
}

// returnPath is the local path posted as "next", or the dashboard.
func returnPath(r *http.Request) string {
	next := r.PostFormValue("next")
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.ContainsAny(next, "\\\r\n\t") {
		return appPath
	}
	u, err := url.Parse(next)
	if err != nil || u.Scheme != "" || u.Host != "" || u.User != nil {
		return appPath
	}
	return next
}
