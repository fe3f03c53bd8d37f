// Package render exports a dashboard chart layout as an image using
// go-chart.
package render

import (
	"errors"
	"fmt"
	"io"

	"glucare/internal/dashboard"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrEmpty is returned when the layout has no points to draw.
var ErrEmpty = errors.New("render: nothing to draw")

// Format selects the image encoding.
type Format string

// Supported formats.
const (
	SVG Format = "svg"
	PNG Format = "png"
)

// ContentType returns the MIME type for f.
func (f Format) ContentType() string {
	if f == PNG {
		return "image/png"
	}
	return "image/svg+xml"
}

// Palette colors.
var (
	lineColor      = drawing.ColorFromHex("0ea5e9")
	focusColor     = drawing.ColorFromHex("f59e0b")
	referenceColor = drawing.ColorFromHex("ef4444")
)

// Options tweak the rendering.
type Options struct {
	// Focus is the index of the emphasized point, or -1.
	Focus int
	Title string
}

// Chart writes the layout to w in the requested format. The y axis spans
// [Min, Min+Span] so a constant series still gets a valid range.
func Chart(w io.Writer, l dashboard.Layout, format Format, opts Options) error {
	if l.Empty() {
		return ErrEmpty
	}

	n := len(l.Points)
	xs := make([]float64, n)
	ys := make([]float64, n)
	ticks := make([]chart.Tick, n)
	for i, p := range l.Points {
		xs[i] = float64(i)
		ys[i] = p.Value
		ticks[i] = chart.Tick{Value: float64(i), Label: p.Label}
	}
	xMax := float64(n - 1)
	if n == 1 {
		// go-chart needs two samples to draw a series.
		xs = []float64{0, 1}
		ys = []float64{ys[0], ys[0]}
		xMax = 1
	}

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "Glucose (mg/dL)",
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: lineColor,
				StrokeWidth: 2,
				DotColor:    lineColor,
				DotWidth:    dashboard.MarkerRadius,
			},
		},
	}
	if opts.Focus >= 0 && opts.Focus < n {
		p := l.Points[opts.Focus]
		series = append(series, chart.ContinuousSeries{
			Name:    "Focus",
			XValues: []float64{float64(opts.Focus), float64(opts.Focus)},
			YValues: []float64{p.Value, p.Value},
			Style: chart.Style{
				StrokeWidth: 0,
				DotColor:    focusColor,
				DotWidth:    dashboard.MarkerRadiusFocused,
			},
		})
	}
	if l.ShowRef {
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("Reference (%g mg/dL)", dashboard.ReferenceValue),
			XValues: []float64{0, xMax},
			YValues: []float64{dashboard.ReferenceValue, dashboard.ReferenceValue},
			Style: chart.Style{
				StrokeColor:     referenceColor,
				StrokeWidth:     1,
				StrokeDashArray: []float64{4, 4},
			},
		})
	}

	ch := chart.Chart{
		Title:      opts.Title,
		Width:      int(dashboard.Width),
		Height:     int(dashboard.Height),
		Background: chart.Style{Padding: chart.Box{Top: int(dashboard.PadY), Left: int(dashboard.PadX), Right: int(dashboard.PadX), Bottom: int(dashboard.PadY)}},
		XAxis: chart.XAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: xMax},
			Ticks: ticks,
		},
		YAxis: chart.YAxis{
			Name:  "mg/dL",
			Range: &chart.ContinuousRange{Min: l.Min, Max: l.Min + l.Span},
		},
		Series: series,
	}

	provider := chart.SVG
	if format == PNG {
		provider = chart.PNG
	}
	if err := ch.Render(provider, w); err != nil {
		return fmt.Errorf("render chart: %w", err)
	}
	return nil
}
