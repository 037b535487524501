package taralli

import (
	"errors"
	"fmt"
	"time"

	"github.com/BrandonKowalski/taralli/pkg/taralli/constants"
	"go.uber.org/atomic"
)

type transitionKind int

const (
	transitionDrillForward transitionKind = iota
	transitionDrillBack
	transitionPageEnter
	transitionPageExit
)

func (k transitionKind) String() string {
	switch k {
	case transitionDrillForward:
		return "drill-forward"
	case transitionDrillBack:
		return "drill-back"
	case transitionPageEnter:
		return "page-enter"
	case transitionPageExit:
		return "page-exit"
	default:
		return "unknown"
	}
}

// transitionPhase is one step of a transition. run performs its mutations
// synchronously and returns the suspension duration before the next phase
// may start; settle snaps everything the phase touched to its final value.
// settle always runs, whether the suspension elapsed or was cancelled.
type transitionPhase struct {
	name   string
	run    func(now time.Time) time.Duration
	settle func()
}

// transition is a single in-flight drill/back/page sequence. At most one
// exists at any time; a new request cancels the current one, which
// fast-forwards every remaining phase so the engine converges to exactly
// one consistent Idle state before the replacement starts.
type transition struct {
	kind      transitionKind
	phases    []transitionPhase
	idx       int
	entered   bool
	phaseEnd  time.Time
	cancelled *atomic.Bool
	failed    error
	abort     func(err error)
	finish    func()
	done      bool
}

func newTransition(kind transitionKind) *transition {
	return &transition{
		kind:      kind,
		cancelled: atomic.NewBool(false),
	}
}

// advance runs phases until it reaches a suspension point that has not
// yet elapsed, or the transition completes or fails. Between suspension
// points everything is synchronous and atomic; the cancellation flag is
// only consulted at those points.
func (t *transition) advance(now time.Time) {
	for !t.done {
		if t.idx >= len(t.phases) {
			t.done = true
			if t.finish != nil {
				t.finish()
			}
			return
		}

		p := t.phases[t.idx]
		if !t.entered {
			d := p.run(now)
			if t.failed != nil {
				t.done = true
				if t.abort != nil {
					t.abort(t.failed)
				}
				return
			}
			t.entered = true
			t.phaseEnd = now.Add(d)
		}

		if !t.cancelled.Load() && now.Before(t.phaseEnd) {
			return
		}

		if p.settle != nil {
			p.settle()
		}
		t.idx++
		t.entered = false
	}
}

// cancel flags the transition and fast-forwards it to completion. All
// pending suspensions resolve immediately and every touched element
// settles on its final value.
func (t *transition) cancel(now time.Time) {
	t.cancelled.Store(true)
	t.advance(now)
}

// preempt cancels any in-flight transition, leaving the engine Idle with
// that transition's effects fully applied (or aborted, for a failed
// child load).
func (e *Engine) preempt() {
	if e.trans == nil {
		return
	}
	t := e.trans
	e.trans = nil
	e.log.Debug("preempting transition", "kind", t.kind.String())
	t.cancel(e.lastTick)
}

// buildTransitionVisuals snapshots the active render set into animatable
// visuals: one per item at its current projected placement, the
// persistent breadcrumb visuals, and the open page surface if any.
func (e *Engine) buildTransitionVisuals() {
	e.visuals = e.visuals[:0]
	cur := e.motion.Current()
	for i, it := range e.items {
		pl := Project(float64(i)-cur, e.arc)
		v := &visual{
			id:    "item:" + it.ID,
			kind:  ElementItem,
			item:  it,
			state: visualActive,
		}
		v.tween(pl, pl, e.lastTick, 0, 0)
		e.visuals = append(e.visuals, v)
	}
	for s, c := range e.crumbs {
		pl := CrumbSlot(s, e.arc)
		c.tween(pl, pl, e.lastTick, 0, 0)
		e.visuals = append(e.visuals, c)
	}
	if e.pageVis != nil {
		e.visuals = append(e.visuals, e.pageVis)
	}
}

func (e *Engine) findVisual(id string) *visual {
	for _, v := range e.visuals {
		if v.id == id {
			return v
		}
	}
	return nil
}

func (e *Engine) removeVisuals(state visualState) {
	kept := e.visuals[:0]
	for _, v := range e.visuals {
		if v.state != state {
			kept = append(kept, v)
		}
	}
	e.visuals = kept
}

// Depth indicator animation. The indicator is a single element whose
// value tracks the stack depth, deepened or lightened over a short tween.
func (e *Engine) animateDepth(to float64, now time.Time) {
	e.depthFrom = e.depthAt(now)
	e.depthTo = to
	e.depthStart = now
	e.depthDur = constants.DefaultIndicatorDuration
}

func (e *Engine) settleDepth() {
	e.depthFrom = e.depthTo
	e.depthDur = 0
}

func (e *Engine) depthAt(now time.Time) float64 {
	if e.depthDur <= 0 {
		return e.depthTo
	}
	t := float64(now.Sub(e.depthStart)) / float64(e.depthDur)
	if t <= 0 {
		return e.depthFrom
	}
	if t >= 1 {
		return e.depthTo
	}
	return e.depthFrom + (e.depthTo-e.depthFrom)*t
}

// beginDrillForward starts the drill-forward sequence for the selected
// container item, or the page-enter variant for a page item. The frame is
// pushed only once the child set resolves, so a failed or empty load
// never leaves a partial stack frame.
func (e *Engine) beginDrillForward(item Item, si int) {
	e.preempt()

	kind := transitionDrillForward
	if item.HasPage() {
		kind = transitionPageEnter
	}
	t := newTransition(kind)
	depth := e.stack.Depth()
	e.buildTransitionVisuals()

	// Shared across phases: the selected item's visual once parked.
	var parked *visual

	t.phases = append(t.phases,
		transitionPhase{
			name: "deepen-indicator",
			run: func(now time.Time) time.Duration {
				e.animateDepth(float64(depth+1), now)
				return constants.DefaultIndicatorDuration
			},
			settle: e.settleDepth,
		},
		transitionPhase{
			name: "shift-crumbs",
			run: func(now time.Time) time.Duration {
				for s, c := range e.crumbs {
					c.tween(c.placementAt(now), CrumbSlot(s+1, e.arc), now, 0, constants.DefaultSlideDuration)
					c.slot = s + 1
				}
				return constants.DefaultSlideDuration
			},
			settle: func() { e.settleCrumbs() },
		},
		transitionPhase{
			name: "park-selected",
			run: func(now time.Time) time.Duration {
				parked = &visual{
					id:    "crumb:" + item.ID,
					kind:  ElementCrumb,
					item:  item,
					state: visualCrumb,
					slot:  0,
				}
				if sv := e.findVisual("item:" + item.ID); sv != nil {
					// Capture wherever the item visually is right now.
					parked.tween(sv.placementAt(now), CrumbSlot(0, e.arc), now, 0, constants.DefaultSlideDuration)
					e.removeVisual(sv.id)
				} else {
					parked.tween(CrumbSlot(0, e.arc), CrumbSlot(0, e.arc), now, 0, 0)
				}
				e.visuals = append(e.visuals, parked)

				for _, v := range e.visuals {
					if v.kind != ElementItem {
						continue
					}
					cur := v.placementAt(now)
					faded := cur
					faded.Opacity = 0
					v.tween(cur, faded, now, 0, constants.DefaultFadeDuration)
					v.state = visualExiting
				}
				return constants.DefaultSlideDuration
			},
			settle: func() {
				parked.settle()
				for _, v := range e.visuals {
					if v.state == visualExiting {
						v.settle()
					}
				}
			},
		},
		transitionPhase{
			name: "purge-siblings",
			run: func(now time.Time) time.Duration {
				e.removeVisuals(visualExiting)
				return 0
			},
		},
	)

	if kind == transitionPageEnter {
		t.phases = append(t.phases, transitionPhase{
			name: "mount-page",
			run: func(now time.Time) time.Duration {
				e.stack.Push(Frame{
					Items:         e.items,
					Raw:           e.raw,
					SelectedIndex: si,
					CurrentIndex:  e.motion.Current(),
					SelectedItem:  item,
					Crumb:         parked.id,
				})
				e.crumbs = append([]*visual{parked}, e.crumbs...)
				e.items = nil
				e.raw = nil
				e.inPage = true

				pv := &visual{
					id:    "page:" + item.ID,
					kind:  ElementPage,
					item:  item,
					state: visualPage,
				}
				full := Placement{X: e.arc.BaseOffset, Y: 0, Scale: 1, Opacity: 1}
				faded := full
				faded.Opacity = 0
				pv.tween(faded, full, now, 0, constants.DefaultFadeDuration)
				e.pageVis = pv
				e.visuals = append(e.visuals, pv)
				return constants.DefaultFadeDuration
			},
			settle: func() { e.pageVis.settle() },
		})
	} else {
		t.phases = append(t.phases, transitionPhase{
			name: "resolve-children",
			run: func(now time.Time) time.Duration {
				raws, err := e.loadChildren(item, depth)
				if err != nil {
					t.failed = NewInfrastructureError("load_children", err)
					return 0
				}
				if len(raws) == 0 {
					t.failed = fmt.Errorf("%w: %s", ErrNoChildren, item.ID)
					return 0
				}

				kids := mapItems(descriptorAt(e.levels, depth+1), raws)
				e.stack.Push(Frame{
					Items:         e.items,
					Raw:           e.raw,
					SelectedIndex: si,
					CurrentIndex:  e.motion.Current(),
					SelectedItem:  item,
					Crumb:         parked.id,
				})
				e.crumbs = append([]*visual{parked}, e.crumbs...)
				e.items = kids
				e.raw = raws
				e.motion.SetBounds(len(kids))
				e.motion.Set(0)

				for i, kid := range kids {
					to := Project(float64(i), e.arc)
					from := to
					from.Opacity = 0
					v := &visual{
						id:    "item:" + kid.ID,
						kind:  ElementItem,
						item:  kid,
						state: visualEntering,
					}
					v.tween(from, to, now, time.Duration(i)*constants.DefaultStaggerDelay, constants.DefaultFadeDuration)
					e.visuals = append(e.visuals, v)
				}
				return constants.DefaultFadeDuration + time.Duration(len(kids)-1)*constants.DefaultStaggerDelay
			},
			settle: func() {
				for _, v := range e.visuals {
					if v.state == visualEntering {
						v.settle()
						v.state = visualActive
					}
				}
			},
		})
	}

	t.finish = func() {
		e.visuals = nil
		e.log.Debug("transition complete", "kind", t.kind.String(), "depth", e.stack.Depth())
		e.fireViewChanged()
	}
	t.abort = func(err error) {
		// Nothing was pushed; unwind the visual bookkeeping and report.
		e.visuals = nil
		for s, c := range e.crumbs {
			c.slot = s
		}
		e.depthTo = float64(e.stack.Depth())
		e.depthFrom = e.depthTo
		e.depthDur = 0
		e.reportTransitionError(err)
	}

	e.trans = t
	e.log.Debug("transition start", "kind", t.kind.String(), "item", item.ID, "depth", depth)
	t.advance(e.lastTick)
	if t.done {
		e.trans = nil
	}
}

// beginDrillBack starts the drill-back sequence, or the page-exit variant
// when a content page is open. The popped frame's items and selection are
// restored verbatim, never recomputed.
func (e *Engine) beginDrillBack() {
	e.preempt()
	if e.stack.IsEmpty() {
		return
	}

	kind := transitionDrillBack
	if e.inPage {
		kind = transitionPageExit
	}
	t := newTransition(kind)
	depth := e.stack.Depth()
	frame := *e.stack.Peek()
	e.buildTransitionVisuals()

	if kind == transitionPageExit {
		t.phases = append(t.phases,
			transitionPhase{
				name: "fade-page",
				run: func(now time.Time) time.Duration {
					if e.pageVis == nil {
						return 0
					}
					cur := e.pageVis.placementAt(now)
					faded := cur
					faded.Opacity = 0
					e.pageVis.tween(cur, faded, now, 0, constants.DefaultFadeDuration)
					return constants.DefaultFadeDuration
				},
			},
			transitionPhase{
				name: "remove-page",
				run: func(now time.Time) time.Duration {
					if e.pageVis != nil {
						e.removeVisual(e.pageVis.id)
						e.pageVis = nil
					}
					e.inPage = false
					return 0
				},
			},
		)
	}

	t.phases = append(t.phases,
		transitionPhase{
			name: "fade-out-items",
			run: func(now time.Time) time.Duration {
				found := false
				for _, v := range e.visuals {
					if v.kind != ElementItem {
						continue
					}
					cur := v.placementAt(now)
					faded := cur
					faded.Opacity = 0
					v.tween(cur, faded, now, 0, constants.DefaultFadeDuration)
					v.state = visualExiting
					found = true
				}
				if !found {
					return 0
				}
				return constants.DefaultFadeDuration
			},
			settle: func() {
				for _, v := range e.visuals {
					if v.state == visualExiting {
						v.settle()
					}
				}
			},
		},
		transitionPhase{
			name: "remove-items",
			run: func(now time.Time) time.Duration {
				e.removeVisuals(visualExiting)
				return 0
			},
		},
		transitionPhase{
			name: "slide-crumb-home",
			run: func(now time.Time) time.Duration {
				if len(e.crumbs) > 0 {
					c0 := e.crumbs[0]
					home := Project(float64(frame.SelectedIndex)-frame.CurrentIndex, e.arc)
					c0.tween(c0.placementAt(now), home, now, 0, constants.DefaultSlideDuration)
				}
				for i, it := range frame.Items {
					if i == frame.SelectedIndex {
						continue
					}
					to := Project(float64(i)-frame.CurrentIndex, e.arc)
					from := to
					from.Opacity = 0
					v := &visual{
						id:    "item:" + it.ID,
						kind:  ElementItem,
						item:  it,
						state: visualEntering,
					}
					v.tween(from, to, now, 0, constants.DefaultSlideDuration)
					e.visuals = append(e.visuals, v)
				}
				return constants.DefaultSlideDuration
			},
			settle: func() {
				for _, v := range e.visuals {
					if v.state == visualEntering {
						v.settle()
						v.state = visualActive
					}
				}
				if len(e.crumbs) > 0 {
					e.crumbs[0].settle()
				}
			},
		},
		transitionPhase{
			name: "shift-crumbs-in",
			run: func(now time.Time) time.Duration {
				for s := 1; s < len(e.crumbs); s++ {
					c := e.crumbs[s]
					c.tween(c.placementAt(now), CrumbSlot(s-1, e.arc), now, 0, constants.DefaultSlideDuration)
					c.slot = s - 1
				}
				if len(e.crumbs) <= 1 {
					return 0
				}
				return constants.DefaultSlideDuration
			},
			settle: func() { e.settleCrumbs() },
		},
		transitionPhase{
			name: "lighten-indicator",
			run: func(now time.Time) time.Duration {
				e.animateDepth(float64(depth-1), now)
				return constants.DefaultIndicatorDuration
			},
			settle: e.settleDepth,
		},
		transitionPhase{
			name: "restore-frame",
			run: func(now time.Time) time.Duration {
				f := e.stack.Pop()
				e.items = f.Items
				e.raw = f.Raw
				e.motion.SetBounds(len(f.Items))
				e.motion.Set(f.CurrentIndex)
				if len(e.crumbs) > 0 {
					e.removeVisual(e.crumbs[0].id)
					e.crumbs = e.crumbs[1:]
				}
				e.inPage = false
				return 0
			},
		},
	)

	t.finish = func() {
		e.visuals = nil
		e.log.Debug("transition complete", "kind", t.kind.String(), "depth", e.stack.Depth())
		e.fireViewChanged()
	}

	e.trans = t
	e.log.Debug("transition start", "kind", t.kind.String(), "depth", depth)
	t.advance(e.lastTick)
	if t.done {
		e.trans = nil
	}
}

func (e *Engine) settleCrumbs() {
	for _, c := range e.crumbs {
		c.settle()
	}
}

func (e *Engine) removeVisual(id string) {
	for i, v := range e.visuals {
		if v.id == id {
			e.visuals = append(e.visuals[:i], e.visuals[i+1:]...)
			return
		}
	}
}

func (e *Engine) reportTransitionError(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, ErrNoChildren) {
		// Empty container: the drill is a no-op, not a failure.
		e.log.Debug("drill-forward no-op", "error", err)
		return
	}
	e.log.Warn("transition aborted", "error", err)
	if e.cfg.OnError != nil {
		e.cfg.OnError(err)
	}
}
