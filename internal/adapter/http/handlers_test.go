package adapthttp_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"strings"
	"testing"
	"time"

	adapthttp "glucare/internal/adapter/http"
	"glucare/internal/adapter/memory"
	"glucare/internal/app"
	"glucare/internal/dashboard"
	"glucare/internal/domain"
)

// ---------------------------------------------------------------------------
// Mock repositories (function-fields pattern)
// ---------------------------------------------------------------------------

type mockSessionRepo struct {
	getFn func(ctx context.Context, token string) (*domain.Session, error)
}

func (m *mockSessionRepo) Create(ctx context.Context, userID int64, token, userAgent, ip string, expiresAt time.Time) error {
	return nil
}

func (m *mockSessionRepo) GetByToken(ctx context.Context, token string) (*domain.Session, error) {
	if m.getFn != nil {
		return m.getFn(ctx, token)
	}
	return nil, nil
}

func (m *mockSessionRepo) Delete(ctx context.Context, token string) error {
	return nil
}

func (m *mockSessionRepo) DeleteExpired(ctx context.Context) error {
	return nil
}

// ---------------------------------------------------------------------------
// Test-server helper
// ---------------------------------------------------------------------------

type testEnv struct {
	db *memory.DB
	ts *httptest.Server
}

func newTestServer(t *testing.T, sessions domain.SessionRepository, noAuth bool, opts ...adapthttp.Option) *testEnv {
	t.Helper()

	db := memory.New()
	if sessions == nil {
		sessions = db.NewSessionRepo()
	}

	authSvc := app.NewAuthService(db, sessions, time.Hour)
	opts = append([]adapthttp.Option{adapthttp.WithLocale("en-US", time.UTC)}, opts...)
	srv := adapthttp.New(authSvc, app.NewReadingService(db), app.NewChartsService(db), opts...)
	if noAuth {
		srv = srv.WithoutAuth(1)
	}

	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return &testEnv{db: db, ts: ts}
}

// client does not follow redirects so tests can assert on them.
func client() *http.Client {
	return &http.Client{
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		t.Fatalf("failed to decode response body: %v", err)
	}
	return m
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func postJSON(t *testing.T, target string, payload any, token string) *http.Response {
	t.Helper()
	b, _ := json.Marshal(payload)
	req, err := http.NewRequest(http.MethodPost, target, bytes.NewReader(b))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: token})
	}
	resp, err := client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func get(t *testing.T, target, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, target, nil)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "session", Value: token})
	}
	resp, err := client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func postForm(t *testing.T, target string, form url.Values) *http.Response {
	t.Helper()
	resp, err := client().PostForm(target, form)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	return resp
}

func seed(t *testing.T, db *memory.DB, values ...float64) {
	t.Helper()
	base := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	for i, v := range values {
		_, err := db.AddReading(context.Background(), domain.NewReading{
			Value:      v,
			RecordedAt: base.AddDate(0, 0, i),
			OwnerID:    1,
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

// signUp registers email and returns its session token.
func signUp(t *testing.T, env *testEnv, email string) string {
	t.Helper()
	resp := postJSON(t, env.ts.URL+"/api/auth/signup", map[string]any{
		"name":            "Test",
		"email":           email,
		"password":        "correct-horse",
		"confirmPassword": "correct-horse",
	}, "")
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("signup: expected 201, got %d", resp.StatusCode)
	}
	token, _ := decodeBody(t, resp)["token"].(string)
	if token == "" {
		t.Fatal("signup response missing token")
	}
	return token
}

func TestHealthEndpoint(t *testing.T) {
	env := newTestServer(t, nil, false)

	resp := get(t, env.ts.URL+"/api/health", "")
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["ok"] != true {
		t.Fatalf("expected ok=true, got %v", body["ok"])
	}
}

func TestSignUpThenSession(t *testing.T) {
	env := newTestServer(t, nil, false)

	resp := postJSON(t, env.ts.URL+"/api/auth/signup", map[string]any{
		"name":            "Ana",
		"email":           "Ana@Example.com",
		"password":        "correct-horse",
		"confirmPassword": "correct-horse",
	}, "")
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	token, _ := body["token"].(string)
	if token == "" {
		t.Fatal("response missing token")
	}

	sresp := get(t, env.ts.URL+"/api/auth/session", token)
	defer sresp.Body.Close() //nolint:errcheck
	if sresp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", sresp.StatusCode)
	}
	user, _ := decodeBody(t, sresp)["user"].(map[string]any)
	if user["email"] != "ana@example.com" {
		t.Fatalf("expected normalized email, got %v", user["email"])
	}
	if _, leaked := user["passwordHash"]; leaked {
		t.Fatal("password hash must not be serialized")
	}
}

func TestSignUpValidation(t *testing.T) {
	tests := []struct {
		name       string
		payload    map[string]any
		wantStatus int
	}{
		{
			name:       "missing name",
			payload:    map[string]any{"email": "a@b.co", "password": "12345678", "confirmPassword": "12345678"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "short password",
			payload:    map[string]any{"name": "A", "email": "a@b.co", "password": "123", "confirmPassword": "123"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "mismatch",
			payload:    map[string]any{"name": "A", "email": "a@b.co", "password": "12345678", "confirmPassword": "87654321"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown field",
			payload:    map[string]any{"username": "a"},
			wantStatus: http.StatusBadRequest,
		},
	}

	env := newTestServer(t, nil, false)

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, env.ts.URL+"/api/auth/signup", tc.payload, "")
			defer resp.Body.Close() //nolint:errcheck
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, resp.StatusCode)
			}
		})
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	env := newTestServer(t, nil, false)
	payload := map[string]any{"name": "A", "email": "a@b.co", "password": "12345678", "confirmPassword": "12345678"}

	first := postJSON(t, env.ts.URL+"/api/auth/signup", payload, "")
	first.Body.Close() //nolint:errcheck
	if first.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", first.StatusCode)
	}

	second := postJSON(t, env.ts.URL+"/api/auth/signup", payload, "")
	defer second.Body.Close() //nolint:errcheck
	if second.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", second.StatusCode)
	}
}

func TestLoginInvalidCredentials(t *testing.T) {
	env := newTestServer(t, nil, false)

	resp := postJSON(t, env.ts.URL+"/api/auth/login", map[string]any{"email": "nobody@b.co", "password": "whatever1"}, "")
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["error"] != app.ErrInvalidCredentials.Error() {
		t.Fatalf("unexpected error %v", body["error"])
	}
}

func TestAPIRequiresSession(t *testing.T) {
	env := newTestServer(t, nil, false)

	resp := get(t, env.ts.URL+"/api/readings", "")
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}

	stale := get(t, env.ts.URL+"/api/readings", "not-a-session")
	defer stale.Body.Close() //nolint:errcheck
	if stale.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", stale.StatusCode)
	}
}

func TestAPISessionStoreDownIsPending(t *testing.T) {
	env := newTestServer(t, &mockSessionRepo{
		getFn: func(context.Context, string) (*domain.Session, error) {
			return nil, errors.New("connection refused")
		},
	}, false)

	resp := get(t, env.ts.URL+"/api/readings", "some-token")
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.StatusCode)
	}
	if body := decodeBody(t, resp); body["error"] != dashboard.ErrSessionUnresolved.Error() {
		t.Fatalf("unexpected error %v", body["error"])
	}
}

func TestForwardAuthHeader(t *testing.T) {
	tests := []struct {
		name       string
		opts       []adapthttp.Option
		forwarded  string
		wantStatus int
	}{
		{
			name:       "ignored when forward auth is off",
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "accepted from a loopback proxy",
			opts:       []adapthttp.Option{adapthttp.WithForwardAuth()},
			wantStatus: http.StatusOK,
		},
		{
			name:       "ignored from an untrusted peer",
			opts:       []adapthttp.Option{adapthttp.WithForwardAuth(netip.MustParsePrefix("10.0.0.0/8"))},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "forwarded-for cannot make a peer trusted",
			opts:       []adapthttp.Option{adapthttp.WithForwardAuth(netip.MustParsePrefix("10.0.0.0/8"))},
			forwarded:  "10.1.2.3",
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestServer(t, nil, false, tt.opts...)

			req, _ := http.NewRequest(http.MethodGet, env.ts.URL+"/api/auth/session", nil)
			req.Header.Set("Remote-User", "proxy@example.com")
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			resp, err := client().Do(req)
			if err != nil {
				t.Fatalf("request failed: %v", err)
			}
			defer resp.Body.Close() //nolint:errcheck
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("expected %d, got %d", tt.wantStatus, resp.StatusCode)
			}
		})
	}
}

func TestRemoteUserCannotReadAnotherAccount(t *testing.T) {
	env := newTestServer(t, nil, false)

	token := signUp(t, env, "victim@example.com")
	created := postJSON(t, env.ts.URL+"/api/readings",
		map[string]any{"value": 123, "recordedAt": "2024-03-05T14:30:00Z", "notes": "private"}, token)
	created.Body.Close() //nolint:errcheck
	if created.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", created.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodGet, env.ts.URL+"/api/readings", nil)
	req.Header.Set("Remote-User", "victim@example.com")
	resp, err := client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	if strings.Contains(readBody(t, resp), "private") {
		t.Fatal("reading leaked to a header-only request")
	}
}

func TestReadingsCreate(t *testing.T) {
	tests := []struct {
		name       string
		payload    map[string]any
		wantStatus int
	}{
		{
			name:       "valid",
			payload:    map[string]any{"value": 120, "recordedAt": "2024-03-05T14:30:00Z", "notes": "after lunch"},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "value zero",
			payload:    map[string]any{"value": 0, "recordedAt": "2024-03-05T14:30:00Z"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing timestamp",
			payload:    map[string]any{"value": 120},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "client owner rejected",
			payload:    map[string]any{"value": 120, "recordedAt": "2024-03-05T14:30:00Z", "ownerId": 99},
			wantStatus: http.StatusBadRequest,
		},
	}

	env := newTestServer(t, nil, true)

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			resp := postJSON(t, env.ts.URL+"/api/readings", tc.payload, "")
			defer resp.Body.Close() //nolint:errcheck
			if resp.StatusCode != tc.wantStatus {
				t.Fatalf("expected %d, got %d", tc.wantStatus, resp.StatusCode)
			}
		})
	}

	items, err := env.db.ListReadings(context.Background(), 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 || items[0].UserID != 1 {
		t.Fatalf("expected one reading owned by user 1, got %+v", items)
	}
}

func TestReadingsListUnits(t *testing.T) {
	env := newTestServer(t, nil, true)
	seed(t, env.db, 180.182)

	resp := get(t, env.ts.URL+"/api/readings?unit="+url.QueryEscape(domain.UnitMmolL), "")
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	items, _ := body["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	value := items[0].(map[string]any)["value"].(float64)
	if value < 9.99 || value > 10.01 {
		t.Fatalf("expected ~10 mmol/L, got %v", value)
	}

	bad := get(t, env.ts.URL+"/api/readings?unit=stone", "")
	defer bad.Body.Close() //nolint:errcheck
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", bad.StatusCode)
	}
}

func TestDashboardView(t *testing.T) {
	env := newTestServer(t, nil, true)
	seed(t, env.db, 100, 220, 150)

	resp := get(t, env.ts.URL+"/api/dashboard?focus=1", "")
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var view dashboard.View
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if view.Loading || view.Empty {
		t.Fatalf("unexpected state loading=%v empty=%v", view.Loading, view.Empty)
	}
	if len(view.Items) != 3 || view.Items[0].Value != 150 || view.Items[2].Value != 100 {
		t.Fatalf("expected newest first, got %+v", view.Items)
	}

	wantX := []float64{24, 300, 576}
	wantY := []float64{184, 16, 114}
	for i, p := range view.Chart.Points {
		if math.Abs(p.X-wantX[i]) > 1e-9 || math.Abs(p.Y-wantY[i]) > 1e-9 {
			t.Fatalf("point %d = (%v,%v), want (%v,%v)", i, p.X, p.Y, wantX[i], wantY[i])
		}
	}
	if !view.Chart.ShowRef || math.Abs(view.Chart.RefY-72) > 1e-9 {
		t.Fatalf("expected reference at 72, got show=%v y=%v", view.Chart.ShowRef, view.Chart.RefY)
	}
	if view.Tooltip == nil || view.Tooltip.Value != 220 {
		t.Fatalf("expected tooltip for 220, got %+v", view.Tooltip)
	}
	if !strings.HasPrefix(view.Tooltip.Text, "220 mg/dL · ") {
		t.Fatalf("unexpected tooltip text %q", view.Tooltip.Text)
	}
}

func TestDashboardEmpty(t *testing.T) {
	env := newTestServer(t, nil, true)

	resp := get(t, env.ts.URL+"/api/dashboard", "")
	defer resp.Body.Close() //nolint:errcheck

	var view dashboard.View
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !view.Empty || view.EmptyMessage != dashboard.EmptyMessage {
		t.Fatalf("expected empty state, got %+v", view)
	}
	if len(view.Chart.Points) != 0 || view.Path != "" {
		t.Fatalf("expected no chart, got %+v", view.Chart)
	}
}

func TestChartEndpoints(t *testing.T) {
	env := newTestServer(t, nil, true)

	empty := get(t, env.ts.URL+"/api/charts/readings.svg", "")
	empty.Body.Close() //nolint:errcheck
	if empty.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 for empty chart, got %d", empty.StatusCode)
	}

	seed(t, env.db, 100, 220, 150)

	layout := get(t, env.ts.URL+"/api/charts/readings", "")
	defer layout.Body.Close() //nolint:errcheck
	body := decodeBody(t, layout)
	if body["path"] != "M24.00 184.00 L300.00 16.00 L576.00 114.00" {
		t.Fatalf("unexpected path %v", body["path"])
	}

	svg := get(t, env.ts.URL+"/api/charts/readings.svg?focus=1", "")
	defer svg.Body.Close() //nolint:errcheck
	if svg.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", svg.StatusCode)
	}
	if ct := svg.Header.Get("Content-Type"); ct != "image/svg+xml" {
		t.Fatalf("unexpected content type %q", ct)
	}
	if !strings.Contains(readBody(t, svg), "<svg") {
		t.Fatal("expected svg document")
	}

	png := get(t, env.ts.URL+"/api/charts/readings.png", "")
	defer png.Body.Close() //nolint:errcheck
	if ct := png.Header.Get("Content-Type"); ct != "image/png" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestAppPageRedirectsWithoutSession(t *testing.T) {
	env := newTestServer(t, nil, false)

	resp := get(t, env.ts.URL+"/app", "")
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", resp.StatusCode)
	}
	if loc := resp.Header.Get("Location"); loc != "/login" {
		t.Fatalf("expected redirect to /login, got %q", loc)
	}
}

func TestAppPageInterstitialWhilePending(t *testing.T) {
	env := newTestServer(t, &mockSessionRepo{
		getFn: func(context.Context, string) (*domain.Session, error) {
			return nil, errors.New("timeout")
		},
	}, false)

	resp := get(t, env.ts.URL+"/app", "some-token")
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Refresh") == "" {
		t.Fatal("expected Refresh header on interstitial")
	}
	if strings.Contains(readBody(t, resp), "Add reading") {
		t.Fatal("protected content rendered before the session resolved")
	}
}

func TestAppPageRendersReadings(t *testing.T) {
	env := newTestServer(t, nil, true)
	seed(t, env.db, 100, 220, 150)

	resp := get(t, env.ts.URL+"/app?focus=1", "")
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	html := readBody(t, resp)
	for _, want := range []string{"220 mg/dL", `class="tooltip"`, `stroke-dasharray`, `r="5.00"`} {
		if !strings.Contains(html, want) {
			t.Fatalf("page missing %q", want)
		}
	}
}

func TestAppSubmit(t *testing.T) {
	env := newTestServer(t, nil, true)

	bad := postForm(t, env.ts.URL+"/app/readings", url.Values{
		"value": {"abc"}, "date": {"2024-03-05"}, "time": {"14:30"},
	})
	defer bad.Body.Close() //nolint:errcheck
	if bad.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", bad.StatusCode)
	}
	html := readBody(t, bad)
	if !strings.Contains(html, "enter a valid value") || !strings.Contains(html, `value="abc"`) {
		t.Fatal("expected the dialog to keep the draft and show the error")
	}

	ok := postForm(t, env.ts.URL+"/app/readings", url.Values{
		"value": {"120"}, "date": {"2024-03-05"}, "time": {"14:30"}, "notes": {"after lunch"},
	})
	defer ok.Body.Close() //nolint:errcheck
	if ok.StatusCode != http.StatusSeeOther || ok.Header.Get("Location") != "/app" {
		t.Fatalf("expected 303 to /app, got %d %q", ok.StatusCode, ok.Header.Get("Location"))
	}

	items, _ := env.db.ListReadings(context.Background(), 1)
	if len(items) != 1 || items[0].Value != 120 {
		t.Fatalf("expected one stored reading, got %+v", items)
	}
	want := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	if !items[0].RecordedAt.Equal(want) {
		t.Fatalf("expected %v, got %v", want, items[0].RecordedAt)
	}
}

func TestLoginFormFlow(t *testing.T) {
	env := newTestServer(t, nil, false)

	signup := postForm(t, env.ts.URL+"/signup", url.Values{
		"name": {"Ana"}, "email": {"ana@example.com"}, "password": {"12345678"}, "confirmPassword": {"12345678"},
	})
	signup.Body.Close() //nolint:errcheck
	if signup.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303 after sign up, got %d", signup.StatusCode)
	}

	bad := postForm(t, env.ts.URL+"/login", url.Values{"email": {"ana@example.com"}, "password": {"nope-nope"}})
	defer bad.Body.Close() //nolint:errcheck
	if bad.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", bad.StatusCode)
	}
	if !strings.Contains(readBody(t, bad), app.ErrInvalidCredentials.Error()) {
		t.Fatal("expected the error on the login page")
	}

	good := postForm(t, env.ts.URL+"/login", url.Values{"email": {"ana@example.com"}, "password": {"12345678"}})
	defer good.Body.Close() //nolint:errcheck
	if good.StatusCode != http.StatusSeeOther {
		t.Fatalf("expected 303, got %d", good.StatusCode)
	}
	var token string
	for _, c := range good.Cookies() {
		if c.Name == "session" {
			token = c.Value
		}
	}
	if token == "" {
		t.Fatal("expected a session cookie")
	}

	page := get(t, env.ts.URL+"/app", token)
	defer page.Body.Close() //nolint:errcheck
	if page.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", page.StatusCode)
	}
	if !strings.Contains(readBody(t, page), dashboard.EmptyMessage) {
		t.Fatal("expected the empty state for a new account")
	}
}

func TestThemeToggle(t *testing.T) {
	env := newTestServer(t, nil, true)

	resp := postForm(t, env.ts.URL+"/prefs/theme", url.Values{"next": {"/login"}})
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Fatalf("expected 303 to /login, got %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
	var theme string
	for _, c := range resp.Cookies() {
		if c.Name == "theme" {
			theme = c.Value
		}
	}
	if theme != "light" {
		t.Fatalf("expected light theme after toggling dark, got %q", theme)
	}

	for _, next := range []string{
		"//evil.example",
		`/\evil.example`,
		"/\t/evil.example",
		"https://evil.example/app",
		"app",
	} {
		offsite := postForm(t, env.ts.URL+"/prefs/disclaimer", url.Values{"next": {next}})
		offsite.Body.Close() //nolint:errcheck
		if loc := offsite.Header.Get("Location"); loc != "/app" {
			t.Fatalf("next=%q: expected fallback to /app, got %q", next, loc)
		}
	}

	local := postForm(t, env.ts.URL+"/prefs/disclaimer", url.Values{"next": {"/app?focus=1"}})
	defer local.Body.Close() //nolint:errcheck
	if loc := local.Header.Get("Location"); loc != "/app?focus=1" {
		t.Fatalf("expected local path kept, got %q", loc)
	}
}
