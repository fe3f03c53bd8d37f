package remote_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	adapthttp "glucare/internal/adapter/http"
	"glucare/internal/adapter/memory"
	"glucare/internal/adapter/remote"
	"glucare/internal/app"
	"glucare/internal/dashboard"

	. "github.com/smartystreets/goconvey/convey"
)

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	db := memory.New()
	srv := adapthttp.New(
		app.NewAuthService(db, db.NewSessionRepo(), time.Hour),
		app.NewReadingService(db),
		app.NewChartsService(db),
	)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestNewRequiresBaseURL(t *testing.T) {
	if _, err := remote.New("  "); !errors.Is(err, dashboard.ErrConfigurationMissing) {
		t.Fatalf("expected ErrConfigurationMissing, got %v", err)
	}
}

func TestClientAgainstServer(t *testing.T) {
	Convey("Given a glucare server", t, func() {
		ts := newServer(t)
		ctx := context.Background()
		c, err := remote.New(ts.URL + "/")
		So(err, ShouldBeNil)

		Convey("A client without a token has no session", func() {
			So(c.Session(ctx).Status, ShouldEqual, dashboard.SessionNone)
		})

		Convey("A stale token resolves to no session", func() {
			stale, _ := remote.New(ts.URL, remote.WithToken("stale"))
			So(stale.Session(ctx).Status, ShouldEqual, dashboard.SessionNone)
		})

		Convey("Bad credentials surface the server message", func() {
			err := c.Login(ctx, "nobody@example.com", "12345678")
			var apiErr *remote.APIError
			So(errors.As(err, &apiErr), ShouldBeTrue)
			So(apiErr.Status, ShouldEqual, http.StatusUnauthorized)
			So(apiErr.Message, ShouldEqual, app.ErrInvalidCredentials.Error())
		})

		Convey("After signing up", func() {
			user, err := c.SignUp(ctx, app.SignUpInput{
				Name: "Ana", Email: "ana@example.com", Password: "12345678", ConfirmPassword: "12345678",
			})
			So(err, ShouldBeNil)
			So(c.Token(), ShouldNotBeEmpty)

			session := c.Session(ctx)
			So(session.Status, ShouldEqual, dashboard.SessionPresent)
			So(session.User.ID, ShouldEqual, user.ID)

			Convey("the dashboard core runs over the client", func() {
				d := dashboard.New(c,
					dashboard.WithFormatter(dashboard.NewFormatter("en-US", time.UTC)),
					dashboard.WithClock(func() time.Time { return time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC) }),
				)
				defer d.Unmount()

				So(d.Mount(ctx, session).Kind, ShouldEqual, dashboard.DecisionRender)
				So(d.View().Empty, ShouldBeTrue)

				form := d.Form()
				form.Open()
				So(form.SetField(dashboard.FieldValue, "135"), ShouldBeNil)
				So(form.Submit(ctx), ShouldBeNil)

				v := d.View()
				So(v.Items, ShouldHaveLength, 1)
				So(v.Items[0].ValueText, ShouldEqual, "135 mg/dL")
				So(v.Form.Open, ShouldBeFalse)
			})

			Convey("logging out ends the session", func() {
				So(c.Logout(ctx), ShouldBeNil)
				So(c.Session(ctx).Status, ShouldEqual, dashboard.SessionNone)
			})
		})
	})
}

func TestSessionPendingWhenUnavailable(t *testing.T) {
	Convey("Given a server whose session store is down", t, func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer ts.Close()

		c, _ := remote.New(ts.URL, remote.WithToken("tok"))
		So(c.Session(context.Background()).Status, ShouldEqual, dashboard.SessionPending)
	})

	Convey("Given an unreachable server", t, func() {
		ts := httptest.NewServer(http.NotFoundHandler())
		url := ts.URL
		ts.Close()

		c, _ := remote.New(url, remote.WithToken("tok"))
		So(c.Session(context.Background()).Status, ShouldEqual, dashboard.SessionPending)
	})
}
