package dashboard

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"glucare/internal/domain"
)

// Logical canvas the chart is laid out on.
const (
	Width  = 600.0
	Height = 200.0
	PadX   = 24.0
	PadY   = 16.0

	// ReferenceValue is the clinical threshold (mg/dL) drawn across the chart.
	ReferenceValue = 180.0
)

// Point is one plotted reading.
type Point struct {
	Index int     `json:"index"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Value float64 `json:"value"`
	Label string  `json:"label"`
}

// Layout is the plot geometry for a chronological series.
type Layout struct {
	Points  []Point `json:"points"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Span    float64 `json:"span"`
	RefY    float64 `json:"refY"`
	ShowRef bool    `json:"showRef"`
}

// Empty reports whether there is nothing to draw.
func (l Layout) Empty() bool { return len(l.Points) == 0 }

// Path returns the SVG path data joining the points in order.
func (l Layout) Path() string {
	var b strings.Builder
	for i, p := range l.Points {
		if i == 0 {
			b.WriteString("M")
		} else {
			b.WriteString(" L")
		}
		b.WriteString(coord(p.X))
		b.WriteByte(' ')
		b.WriteString(coord(p.Y))
	}
	return b.String()
}

func coord(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Chronological returns a copy of items stably sorted by RecordedAt
// ascending. Readings recorded at the same instant keep their relative order.
func Chronological(items []domain.Reading) []domain.Reading {
	out := slices.Clone(items)
	slices.SortStableFunc(out, func(a, b domain.Reading) int {
		return a.RecordedAt.Compare(b.RecordedAt)
	})
	return out
}

// ComputeLayout projects a chronological series onto the Width x Height
// canvas. It is a pure function of the series values, their timestamps
// (labels only) and the canvas constants.
func ComputeLayout(series []domain.Reading, f Formatter) Layout {
	if len(series) == 0 {
		return Layout{Points: []Point{}}
	}
	if f == nil {
		f = NewFormatter(DefaultLocale, nil)
	}

	lo, hi := series[0].Value, series[0].Value
	for _, r := range series[1:] {
		lo = min(lo, r.Value)
		hi = max(hi, r.Value)
	}
	span := hi - lo
	if span == 0 {
		span = 1
	}

	innerW := Width - 2*PadX
	innerH := Height - 2*PadY
	n := len(series)
	project := func(v float64) float64 {
		return PadY + (1-(v-lo)/span)*innerH
	}

	points := make([]Point, n)
	for i, r := range series {
		x := PadX + innerW/2
		if n > 1 {
			x = PadX + float64(i)*innerW/float64(n-1)
		}
		points[i] = Point{
			Index: i,
			X:     x,
			Y:     project(r.Value),
			Value: r.Value,
			Label: f.DayMonth(r.RecordedAt),
		}
	}

	return Layout{
		Points:  points,
		Min:     lo,
		Max:     hi,
		Span:    span,
		RefY:    project(ReferenceValue),
		ShowRef: ReferenceValue >= lo && ReferenceValue <= hi,
	}
}

// Nearest returns the point whose X is closest to x.
func Nearest(points []Point, x float64) (Point, bool) {
	if len(points) == 0 {
		return Point{}, false
	}
	best := points[0]
	for _, p := range points[1:] {
		if math.Abs(p.X-x) < math.Abs(best.X-x) {
			best = p
		}
	}
	return best, true
}
