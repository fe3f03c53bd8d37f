// Package dashboard holds the client-agnostic state of the readings
// dashboard: the session gate, the reading collection sync, chart geometry,
// hover focus and the add-reading form. It is driven by the server-rendered
// pages and by the CLI alike.
package dashboard

import (
	"context"
	"sync"
	"time"

	"glucare/internal/domain"
	"glucare/internal/logger"
	"glucare/internal/metrics"
)

// EmptyMessage is shown when the user has no readings.
const EmptyMessage = "No readings recorded yet. Tap + to add your first!"

// Store is the remote reading store.
type Store interface {
	ListReadings(ctx context.Context, ownerID int64) ([]domain.Reading, error)
	InsertReading(ctx context.Context, in domain.NewReading) (*domain.Reading, error)
}

type settings struct {
	log        logger.Logger
	metrics    *metrics.Manager
	formatter  Formatter
	clock      func() time.Time
	signInPath string
}

// Option configures a Dashboard.
type Option func(*settings)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(s *settings) { s.log = l }
}

// WithMetrics records fetch and submit outcomes on m.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *settings) { s.metrics = m }
}

// WithFormatter sets the locale formatter used for labels and the form's
// default date and time.
func WithFormatter(f Formatter) Option {
	return func(s *settings) { s.formatter = f }
}

// WithClock overrides time.Now.
func WithClock(clock func() time.Time) Option {
	return func(s *settings) { s.clock = clock }
}

// WithSignInPath overrides SignInPath for gate redirects.
func WithSignInPath(path string) Option {
	return func(s *settings) { s.signInPath = path }
}

// Dashboard composes the dashboard components for one mounted view.
type Dashboard struct {
	sync  *Sync
	hover *Hover
	form  *FormController
	fmt   Formatter
	log   logger.Logger

	signInPath string

	mu sync.Mutex
	// hoverVersion is the snapshot version the focus was taken against.
	hoverVersion uint64
}

// New builds a Dashboard over store. A nil store is allowed: fetches and
// submissions then fail with ErrConfigurationMissing.
func New(store Store, opts ...Option) *Dashboard {
	s := settings{
		log:        logger.Nop(),
		clock:      time.Now,
		signInPath: SignInPath,
	}
	for _, opt := range opts {
		opt(&s)
	}
	if s.formatter == nil {
		s.formatter = NewFormatter(DefaultLocale, nil)
	}
	d := &Dashboard{
		hover:      &Hover{},
		fmt:        s.formatter,
		log:        s.log,
		signInPath: s.signInPath,
	}
	d.sync = NewSync(store, s.log.Named("sync"), s.metrics)
	d.form = NewFormController(store, d.sync, d.sync.User, s.clock, s.formatter.Location(), s.log.Named("form"), s.metrics)
	return d
}

// Mount resolves the gate for session and, when it renders, loads the
// session user's readings.
func (d *Dashboard) Mount(ctx context.Context, session Session) Decision {
	decision := Gate(session, d.signInPath)
	if decision.Kind == DecisionRender {
		d.sync.SetUser(ctx, session.User)
	}
	return decision
}

// Unmount tears the view down. Late fetch results are dropped.
func (d *Dashboard) Unmount() {
	d.sync.Teardown()
	d.hover.Leave()
	d.form.Close()
}

// Refresh reloads the readings.
func (d *Dashboard) Refresh(ctx context.Context) bool {
	return d.sync.Refresh(ctx)
}

// Sync exposes the reading collection.
func (d *Dashboard) Sync() *Sync { return d.sync }

// Form exposes the add-reading controller.
func (d *Dashboard) Form() *FormController { return d.form }

// Hover exposes the hover model.
func (d *Dashboard) Hover() *Hover { return d.hover }

// Layout returns the chart layout for the current collection.
func (d *Dashboard) Layout() Layout {
	return ComputeLayout(Chronological(d.sync.Snapshot().Items), d.fmt)
}

// Focus focuses the chart point at index. Out-of-range indexes clear focus.
func (d *Dashboard) Focus(index int) bool {
	snap := d.sync.Snapshot()
	layout := ComputeLayout(Chronological(snap.Items), d.fmt)
	if index < 0 || index >= len(layout.Points) {
		d.Blur()
		return false
	}
	d.focus(layout.Points[index], snap.Version)
	return true
}

// FocusNearest focuses the point horizontally closest to x.
func (d *Dashboard) FocusNearest(x float64) bool {
	snap := d.sync.Snapshot()
	layout := ComputeLayout(Chronological(snap.Items), d.fmt)
	p, ok := Nearest(layout.Points, x)
	if !ok {
		d.Blur()
		return false
	}
	d.focus(p, snap.Version)
	return true
}

func (d *Dashboard) focus(p Point, version uint64) {
	d.mu.Lock()
	d.hoverVersion = version
	d.mu.Unlock()
	d.hover.Enter(p)
}

// Blur clears the chart focus.
func (d *Dashboard) Blur() {
	d.hover.Leave()
}

// ItemView is one reading as listed.
type ItemView struct {
	ID        string  `json:"id"`
	Value     float64 `json:"value"`
	ValueText string  `json:"valueText"`
	Date      string  `json:"date"`
	Time      string  `json:"time"`
	Notes     string  `json:"notes,omitempty"`
}

// FormView is the add-reading dialog as rendered.
type FormView struct {
	Open      bool   `json:"open"`
	State     string `json:"state"`
	Draft     Draft  `json:"draft"`
	CanSubmit bool   `json:"canSubmit"`
	Saving    bool   `json:"saving"`
	Error     string `json:"error,omitempty"`
	Field     string `json:"field,omitempty"`
}

// View is everything needed to render the dashboard.
type View struct {
	Loading      bool       `json:"loading"`
	Error        string     `json:"error,omitempty"`
	Empty        bool       `json:"empty"`
	EmptyMessage string     `json:"emptyMessage,omitempty"`
	Items        []ItemView `json:"items"`
	Chart        Layout     `json:"chart"`
	Path         string     `json:"path"`
	Hover        *Point     `json:"hover,omitempty"`
	Tooltip      *Tooltip   `json:"tooltip,omitempty"`
	GuideX       *float64   `json:"guideX,omitempty"`
	Form         FormView   `json:"form"`
	Version      uint64     `json:"version"`
}

// View renders the current state. The list keeps the store's newest-first
// order; the chart is chronological. A focus taken against an older collection is dropped.
func (d *Dashboard) View() View {
	snap := d.sync.Snapshot()
	layout := ComputeLayout(Chronological(snap.Items), d.fmt)

	v := View{
		Loading: snap.Loading,
		Error:   UserMessage(snap.Err),
		Items:   make([]ItemView, 0, len(snap.Items)),
		Chart:   layout,
		Path:    layout.Path(),
		Version: snap.Version,
	}
	if !snap.Loading && snap.Err == nil && len(snap.Items) == 0 {
		v.Empty = true
		v.EmptyMessage = EmptyMessage
	}

	for _, r := range snap.Items {
		v.Items = append(v.Items, d.itemView(r))
	}

	d.mu.Lock()
	hoverVersion := d.hoverVersion
	d.mu.Unlock()
	if hoverVersion != snap.Version {
		d.hover.Leave()
	}
	if p, ok := d.hover.Target(); ok {
		v.Hover = &p
		if t, ok := d.hover.Tooltip(); ok {
			v.Tooltip = &t
		}
		if x, ok := d.hover.GuideX(); ok {
			v.GuideX = &x
		}
	}

	state, err := d.form.State()
	v.Form = FormView{
		Open:      d.form.IsOpen(),
		State:     state.String(),
		Draft:     d.form.Draft(),
		CanSubmit: d.form.CanSubmit(),
		Saving:    d.form.Saving(),
		Error:     UserMessage(err),
		Field:     FieldOf(err),
	}
	return v
}

func (d *Dashboard) itemView(r domain.Reading) ItemView {
	iv := ItemView{
		ID:        r.ID,
		Value:     r.Value,
		ValueText: formatValue(r.Value) + " mg/dL",
		Date:      d.fmt.Date(r.RecordedAt),
		Time:      d.fmt.Time(r.RecordedAt),
	}
	if r.Notes != nil {
		iv.Notes = *r.Notes
	}
	return iv
}
