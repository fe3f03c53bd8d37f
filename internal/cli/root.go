// Package cli implements the glucare commands: the server and a terminal
// client for the readings dashboard.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"glucare/internal/adapter/remote"
	"glucare/internal/config"
	"glucare/internal/dashboard"
	"glucare/internal/logger"
	"glucare/internal/prefs"

	"github.com/spf13/cobra"
)

// Output formats.
const (
	formatText = "text"
	formatJSON = "json"
)

var (
	errNotSignedIn = errors.New("not signed in, run \"glucare login\" first")
	errPending     = fmt.Errorf("%w, try again in a moment", dashboard.ErrSessionUnresolved)
)

const disclaimerNotice = "Glucare is a logbook, not a medical device. Run \"glucare disclaimer accept\" to hide this notice."

type options struct {
	apiURL    string
	prefsPath string
	format    string

	cfg *config.Config
	log logger.Logger
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:           "glucare",
		Short:         "Glucose readings dashboard",
		Long:          "Glucare records blood glucose readings and charts them. Run \"glucare serve\" for the web dashboard or use the client commands against a running server.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return o.load(cmd)
		},
	}

	cmd.PersistentFlags().StringVar(&o.apiURL, "api", "", "Server URL (default: prefs api_url, then $GLUCARE_API_URL)")
	cmd.PersistentFlags().StringVar(&o.prefsPath, "prefs", "", "Preferences file (default: $GLUCARE_PREFS_PATH or ~/.glucare/prefs.yaml)")
	cmd.PersistentFlags().StringVarP(&o.format, "format", "f", formatText, "Output format: text or json")

	cmd.AddCommand(
		newServeCmd(o),
		newSignUpCmd(o),
		newLoginCmd(o),
		newLogoutCmd(o),
		newReadingsCmd(o),
		newChartCmd(o),
		newThemeCmd(o),
		newDisclaimerCmd(o),
	)
	return cmd
}

// Execute runs the command line.
func Execute(ctx context.Context) error {
	return NewRootCmd().ExecuteContext(ctx)
}

// load reads the configuration. Client commands log warnings and errors to
// stderr so their stdout stays parseable; serve replaces the logger.
func (o *options) load(cmd *cobra.Command) error {
	cfg, err := config.Load(cmd.Context())
	if err != nil {
		return err
	}
	o.cfg = cfg

	level := slog.LevelWarn
	if strings.EqualFold(cfg.LogLevel, "debug") {
		level = slog.LevelDebug
	}
	o.log = logger.New(cmd.ErrOrStderr(), level)

	if o.format != formatText && o.format != formatJSON {
		return fmt.Errorf("unknown format %q", o.format)
	}
	return nil
}

func (o *options) openPrefs() (*prefs.Store, error) {
	path := o.prefsPath
	if path == "" {
		path = o.cfg.PrefsPath
	}
	if path == "" {
		path = prefs.DefaultPath()
	}
	return prefs.Open(path)
}

func (o *options) client(p *prefs.Store) (*remote.Client, error) {
	url := o.apiURL
	if url == "" {
		url = p.APIURL()
	}
	if url == "" {
		url = o.cfg.APIURL
	}
	return remote.New(url, remote.WithToken(p.SessionToken()))
}

func (o *options) formatter() (dashboard.Formatter, error) {
	loc, err := o.cfg.Location()
	if err != nil {
		return nil, err
	}
	return dashboard.NewFormatter(o.cfg.Locale, loc), nil
}

// mount resolves the session against the server and loads the user's
// readings into a dashboard. The caller must Unmount it.
func (o *options) mount(ctx context.Context, stderr io.Writer) (*dashboard.Dashboard, error) {
	p, err := o.openPrefs()
	if err != nil {
		return nil, err
	}
	c, err := o.client(p)
	if err != nil {
		return nil, err
	}
	f, err := o.formatter()
	if err != nil {
		return nil, err
	}
	if !p.DisclaimerAccepted() && o.format == formatText {
		_, _ = fmt.Fprintln(stderr, disclaimerNotice)
	}

	d := dashboard.New(c,
		dashboard.WithFormatter(f),
		dashboard.WithLogger(o.log.Named("dashboard")),
	)
	switch d.Mount(ctx, c.Session(ctx)).Kind {
	case dashboard.DecisionLoading:
		d.Unmount()
		return nil, errPending
	case dashboard.DecisionRedirect:
		d.Unmount()
		return nil, errNotSignedIn
	}
	return d, nil
}
