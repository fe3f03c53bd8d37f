package dashboard

import (
	"strconv"
	"time"
)

// Formatter renders instants for display in a given locale and time zone.
type Formatter interface {
	DayMonth(t time.Time) string
	Date(t time.Time) string
	Time(t time.Time) string
	Location() *time.Location
}

type layoutSet struct {
	dayMonth string
	date     string
	clock    string
}

var locales = map[string]layoutSet{
	"pt-BR": {dayMonth: "02/01", date: "02/01/2006", clock: "15:04"},
	"en-US": {dayMonth: "01/02", date: "01/02/2006", clock: "03:04 PM"},
	"en-GB": {dayMonth: "02/01", date: "02/01/2006", clock: "15:04"},
}

// DefaultLocale is used when an unknown locale is requested.
const DefaultLocale = "pt-BR"

type localeFormatter struct {
	layouts layoutSet
	loc     *time.Location
}

// NewFormatter returns a Formatter for locale in loc. Unknown locales fall
// back to DefaultLocale and a nil loc means time.Local.
func NewFormatter(locale string, loc *time.Location) Formatter {
	l, ok := locales[locale]
	if !ok {
		l = locales[DefaultLocale]
	}
	if loc == nil {
		loc = time.Local
	}
	return localeFormatter{layouts: l, loc: loc}
}

func (f localeFormatter) DayMonth(t time.Time) string { return t.In(f.loc).Format(f.layouts.dayMonth) }
func (f localeFormatter) Date(t time.Time) string     { return t.In(f.loc).Format(f.layouts.date) }
func (f localeFormatter) Time(t time.Time) string     { return t.In(f.loc).Format(f.layouts.clock) }
func (f localeFormatter) Location() *time.Location    { return f.loc }

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
