package dashboard

import "sync"

// Tooltip placement and marker sizes.
const (
	// TooltipMargin keeps the tooltip's horizontal anchor this far from
	// either canvas edge.
	TooltipMargin = 60.0
	// TooltipLift raises the tooltip above the focused point.
	TooltipLift = 32.0

	MarkerRadius        = 3.0
	MarkerRadiusFocused = 5.0
)

// Tooltip is the rendered tooltip for the focused point. Left and Top are
// clamped presentation offsets; the point's own X and Y stay exact.
type Tooltip struct {
	Left  float64 `json:"left"`
	Top   float64 `json:"top"`
	Value float64 `json:"value"`
	Label string  `json:"label"`
	Text  string  `json:"text"`
}

// Hover tracks the single chart point under pointer focus. Marker emphasis,
// the guide line and the tooltip are all derived from that one target.
type Hover struct {
	mu     sync.Mutex
	target *Point
}

// Enter focuses p, superseding any previous focus.
func (h *Hover) Enter(p Point) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.target = &p
}

// Leave clears the focus.
func (h *Hover) Leave() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.target = nil
}

// Target returns the focused point.
func (h *Hover) Target() (Point, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.target == nil {
		return Point{}, false
	}
	return *h.target, true
}

// Emphasized reports whether the point at index is focused.
func (h *Hover) Emphasized(index int) bool {
	p, ok := h.Target()
	return ok && p.Index == index
}

// MarkerRadius returns the marker radius for the point at index.
func (h *Hover) MarkerRadius(index int) float64 {
	if h.Emphasized(index) {
		return MarkerRadiusFocused
	}
	return MarkerRadius
}

// GuideX returns the x of the vertical guide line through the focused point.
func (h *Hover) GuideX() (float64, bool) {
	p, ok := h.Target()
	return p.X, ok
}

// Tooltip returns the tooltip for the focused point.
func (h *Hover) Tooltip() (Tooltip, bool) {
	p, ok := h.Target()
	if !ok {
		return Tooltip{}, false
	}
	return Tooltip{
		Left:  min(max(p.X, TooltipMargin), Width-TooltipMargin),
		Top:   max(p.Y-TooltipLift, 0),
		Value: p.Value,
		Label: p.Label,
		Text:  formatValue(p.Value) + " mg/dL · " + p.Label,
	}, true
}
