package dashboard

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"glucare/internal/domain"
	"glucare/internal/logger"
	"glucare/internal/metrics"
)

// Draft field names accepted by SetField.
const (
	FieldValue = "value"
	FieldDate  = "date"
	FieldTime  = "time"
	FieldNotes = "notes"
)

// Draft input layouts, matching HTML date and time inputs.
const (
	DraftDateLayout = "2006-01-02"
	DraftTimeLayout = "15:04"
)

// FormState is the submission state of the add-reading dialog.
type FormState int

// Form states.
const (
	FormIdle FormState = iota
	FormValidating
	FormSubmitting
	FormSucceeded
	FormFailed
)

func (s FormState) String() string {
	switch s {
	case FormIdle:
		return "idle"
	case FormValidating:
		return "validating"
	case FormSubmitting:
		return "submitting"
	case FormSucceeded:
		return "succeeded"
	case FormFailed:
		return "failed"
	}
	return "unknown"
}

// Draft holds the raw text the user entered.
type Draft struct {
	Value string `json:"value"`
	Date  string `json:"date"`
	Time  string `json:"time"`
	Notes string `json:"notes"`
}

// Refresher reloads the reading collection after a write.
type Refresher interface {
	Refresh(ctx context.Context) bool
}

// FormController validates and submits new readings.
type FormController struct {
	store   Store
	sync    Refresher
	user    func() *domain.User
	clock   func() time.Time
	loc     *time.Location
	log     logger.Logger
	metrics *metrics.Manager

	mu      sync.Mutex
	open    bool
	draft   Draft
	state   FormState
	saving  bool
	saveErr error
}

// NewFormController wires a controller. user supplies the current session
// user (may return nil) and clock the current time.
func NewFormController(store Store, refresher Refresher, user func() *domain.User, clock func() time.Time, loc *time.Location, log logger.Logger, m *metrics.Manager) *FormController {
	if clock == nil {
		clock = time.Now
	}
	if loc == nil {
		loc = time.Local
	}
	if log == nil {
		log = logger.Nop()
	}
	if user == nil {
		user = func() *domain.User { return nil }
	}
	c := &FormController{
		store:   store,
		sync:    refresher,
		user:    user,
		clock:   clock,
		loc:     loc,
		log:     log,
		metrics: m,
	}
	c.draft = c.freshDraft()
	return c
}

func (c *FormController) freshDraft() Draft {
	now := c.clock().In(c.loc)
	return Draft{
		Date: now.Format(DraftDateLayout),
		Time: now.Format(DraftTimeLayout),
	}
}

// Open shows the dialog with a fresh draft. Opening an already open dialog
// keeps the current draft.
func (c *FormController) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.open {
		return
	}
	c.open = true
	c.draft = c.freshDraft()
	c.state = FormIdle
	c.saveErr = nil
}

// Close hides the dialog and discards the draft.
func (c *FormController) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.draft = c.freshDraft()
	c.saveErr = nil
	if !c.saving {
		c.state = FormIdle
	}
}

// IsOpen reports whether the dialog is shown.
func (c *FormController) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

// SetField updates one draft field.
func (c *FormController) SetField(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch name {
	case FieldValue:
		c.draft.Value = value
	case FieldDate:
		c.draft.Date = value
	case FieldTime:
		c.draft.Time = value
	case FieldNotes:
		c.draft.Notes = value
	default:
		return fmt.Errorf("unknown field %q", name)
	}
	return nil
}

// Draft returns the current draft.
func (c *FormController) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// State returns the submission state and the last error, if any.
func (c *FormController) State() (FormState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state, c.saveErr
}

// Saving reports whether a submission is in flight.
func (c *FormController) Saving() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.saving
}

// CanSubmit is false while the value is missing or not positive, or a
// submission is in flight.
func (c *FormController) CanSubmit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.saving {
		return false
	}
	_, err := parseValue(c.draft.Value)
	return err == nil
}

// Submit validates the draft and inserts it. On success the dialog closes,
// the readings are refreshed and the draft is reset. On failure the dialog
// stays open with the draft untouched.
func (c *FormController) Submit(ctx context.Context) error {
	c.mu.Lock()
	if c.saving {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	c.state = FormValidating
	c.saveErr = nil
	draft := c.draft

	payload, err := c.buildPayload(draft)
	if err == nil && c.store == nil {
		err = ErrConfigurationMissing
	}
	if err != nil {
		c.state = FormFailed
		c.saveErr = err
		c.mu.Unlock()
		c.metrics.RecordSubmit(metrics.SubmitInvalid)
		return err
	}
	c.state = FormSubmitting
	c.saving = true
	c.mu.Unlock()

	reading, err := c.store.InsertReading(ctx, payload)
	if err != nil {
		c.log.Warn(ctx, "insert reading failed", logger.Error(err))
		err = fmt.Errorf("%w: %v", ErrWriteFailed, err)
		c.mu.Lock()
		c.state = FormFailed
		c.saveErr = err
		c.saving = false
		c.mu.Unlock()
		c.metrics.RecordSubmit(metrics.SubmitFailed)
		return err
	}
	if reading != nil {
		c.log.Info(ctx, "reading saved", logger.String("id", reading.ID))
	}

	c.mu.Lock()
	c.open = false
	c.mu.Unlock()

	if c.sync != nil {
		c.sync.Refresh(ctx)
	}

	c.mu.Lock()
	c.draft = c.freshDraft()
	c.state = FormSucceeded
	c.saving = false
	c.mu.Unlock()
	c.metrics.RecordSubmit(metrics.SubmitSucceeded)
	return nil
}

func (c *FormController) buildPayload(d Draft) (domain.NewReading, error) {
	value, err := parseValue(d.Value)
	if err != nil {
		return domain.NewReading{}, err
	}
	recordedAt, err := time.ParseInLocation(DraftDateLayout+"T"+DraftTimeLayout,
		strings.TrimSpace(d.Date)+"T"+strings.TrimSpace(d.Time), c.loc)
	if err != nil {
		return domain.NewReading{}, fmt.Errorf("%w: %v", ErrInvalidTimestamp, err)
	}
	in := domain.NewReading{
		Value:      value,
		RecordedAt: recordedAt.UTC(),
	}
	if d.Notes != "" {
		notes := d.Notes
		in.Notes = &notes
	}
	if u := c.user(); u != nil {
		in.OwnerID = u.ID
	}
	return in, nil
}

// parseValue treats an empty, non-numeric, non-finite or non-positive value
// as the same validation failure.
func parseValue(raw string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
		return 0, ErrInvalidValue
	}
	return v, nil
}
