package taralli

import "time"

// ElementKind classifies a render record.
type ElementKind int

const (
	ElementItem ElementKind = iota
	ElementCrumb
	ElementDepthIndicator
	ElementPage
)

// RenderElement is one projected visual record. The engine emits a flat
// list of these; a platform adapter applies them to whatever presentation
// surface the target provides. The engine never touches a display tree.
type RenderElement struct {
	ID         string
	Kind       ElementKind
	X          float64
	Y          float64
	Scale      float64
	Opacity    float64
	Label      string
	DisplayRef string
	Page       *PageContent // set for ElementPage
	Value      float64      // depth level, set for ElementDepthIndicator
}

// visualState tracks what a transition is doing to an element.
type visualState int

const (
	visualActive visualState = iota
	visualEntering
	visualExiting
	visualCrumb
	visualPage
)

// visual is an element under animation. Between Idle states the engine
// renders from these instead of projecting the index model directly.
type visual struct {
	id    string
	kind  ElementKind
	item  Item
	state visualState
	slot  int // breadcrumb slot, for ElementCrumb

	from  Placement
	to    Placement
	start time.Time
	delay time.Duration
	dur   time.Duration
}

// tween sets up a timed interpolation between two placements.
func (v *visual) tween(from, to Placement, start time.Time, delay, dur time.Duration) {
	v.from = from
	v.to = to
	v.start = start
	v.delay = delay
	v.dur = dur
}

// placementAt returns the interpolated placement at a point in time.
// Before the stagger delay the element holds its starting placement;
// after the duration it holds the final one.
func (v *visual) placementAt(now time.Time) Placement {
	if v.dur <= 0 {
		return v.to
	}
	elapsed := now.Sub(v.start) - v.delay
	if elapsed <= 0 {
		return v.from
	}
	return lerpPlacement(v.from, v.to, float64(elapsed)/float64(v.dur))
}

// settle snaps the element to its final placement.
func (v *visual) settle() {
	v.from = v.to
	v.dur = 0
}

func (v *visual) element(now time.Time) RenderElement {
	pl := v.placementAt(now)
	return RenderElement{
		ID:         v.id,
		Kind:       v.kind,
		X:          pl.X,
		Y:          pl.Y,
		Scale:      pl.Scale,
		Opacity:    pl.Opacity,
		Label:      v.item.Name,
		DisplayRef: v.item.DisplayRef,
		Page:       v.item.Page,
	}
}
