// Package remote is the glucare API client. It implements the dashboard's
// reading store over HTTP so the CLI drives the same dashboard core as the
// server-rendered pages.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"glucare/internal/app"
	"glucare/internal/dashboard"
	"glucare/internal/domain"
)

// UserAgent is sent on every request. Sessions are bound to it.
const UserAgent = "glucare-cli/1"

const sessionCookie = "session"

// ErrUnauthorized is returned when the server rejects the session.
var ErrUnauthorized = errors.New("not signed in")

// APIError is a non-2xx response.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api: status %d", e.Status)
	}
	return fmt.Sprintf("api: %s (status %d)", e.Message, e.Status)
}

// Client talks to a glucare server.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithToken authenticates requests with a session token.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// New returns a client for baseURL. An empty baseURL is a configuration
// error.
func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, dashboard.ErrConfigurationMissing
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("%w: %v", dashboard.ErrConfigurationMissing, err)
	}
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ dashboard.Store = (*Client)(nil)

// Token returns the session token in use.
func (c *Client) Token() string { return c.token }

// SignUp registers an account and adopts its session.
func (c *Client) SignUp(ctx context.Context, in app.SignUpInput) (*domain.User, error) {
	var out struct {
		Token string       `json:"token"`
		User  *domain.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/signup", in, &out); err != nil {
		return nil, err
	}
	c.token = out.Token
	return out.User, nil
}

// Login opens a session and adopts it.
func (c *Client) Login(ctx context.Context, email, password string) error {
	req := map[string]string{"email": email, "password": password}
	var out struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/auth/login", req, &out); err != nil {
		return err
	}
	c.token = out.Token
	return nil
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.token = ""
	return err
}

// Session resolves the current session. Transport failures and an
// unavailable session store leave it pending.
func (c *Client) Session(ctx context.Context) dashboard.Session {
	if c.token == "" {
		return dashboard.NoSession()
	}
	var out struct {
		User *domain.User `json:"user"`
	}
	err := c.do(ctx, http.MethodGet, "/api/auth/session", nil, &out)
	var apiErr *APIError
	switch {
	case err == nil:
		return dashboard.PresentSession(out.User)
	case errors.Is(err, ErrUnauthorized):
		return dashboard.NoSession()
	case errors.As(err, &apiErr) && apiErr.Status < http.StatusInternalServerError:
		return dashboard.NoSession()
	default:
		return dashboard.PendingSession()
	}
}

// ListReadings returns the session user's readings, newest first. The
// server scopes the list to the session; ownerID only guards against a
// session that changed underneath.
func (c *Client) ListReadings(ctx context.Context, ownerID int64) ([]domain.Reading, error) {
	var out struct {
		Items []domain.Reading `json:"items"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/readings", nil, &out); err != nil {
		return nil, err
	}
	for _, r := range out.Items {
		if r.UserID != ownerID {
			return nil, fmt.Errorf("reading %s belongs to user %d, expected %d", r.ID, r.UserID, ownerID)
		}
	}
	return out.Items, nil
}

// InsertReading stores a reading for the session user.
func (c *Client) InsertReading(ctx context.Context, in domain.NewReading) (*domain.Reading, error) {
	req := struct {
		Value      float64   `json:"value"`
		RecordedAt time.Time `json:"recordedAt"`
		Notes      *string   `json:"notes,omitempty"`
	}{in.Value, in.RecordedAt, in.Notes}

	var out domain.Reading
	if err := c.do(ctx, http.MethodPost, "/api/readings", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: c.token})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode == http.StatusUnauthorized && path != "/api/auth/login" {
		return ErrUnauthorized
	}
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return &APIError{Status: resp.StatusCode, Message: e.Error}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
