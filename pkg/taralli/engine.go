// Package taralli implements a circular-arc, drill-down navigation engine
// for rotary-driven appliance UIs. The engine owns an arbitrarily deep
// stack of selection levels, smoothly interpolates a fractional selected
// index per level, and orchestrates multi-phase, interruptible transition
// animations when the user drills into a container or page and backs out.
//
// Engines are explicit instances parameterized by an input source and
// effect callbacks; there is no shared package state. The engine is
// single-threaded: one cooperative tick loop drives it, and external
// callers only submit events and read derived projections.
package taralli

import (
	"context"
	"log/slog"
	"time"

	"github.com/BrandonKowalski/taralli/pkg/taralli/constants"
	"github.com/BrandonKowalski/taralli/pkg/taralli/internal"
	"go.uber.org/atomic"
)

// InputSource delivers normalized input events to a running engine.
// Hardware capture, pairing, and debouncing live behind this interface.
type InputSource interface {
	Nav() <-chan NavEvent
	Buttons() <-chan ButtonEvent
}

// Config configures a navigation engine instance.
type Config struct {
	RootData   []any                                    // Inline root level records
	RootLoader func(ctx context.Context) ([]any, error) // Async root loader; used when RootData is nil
	Levels     []LevelDescriptor                        // Per-depth descriptors; the last one repeats for deeper levels

	StorageKey string  // Key the persisted navigation state is saved under
	Storage    Storage // Snapshot store; nil disables persistence

	InputSource InputSource // Event feed consumed by Run; nil when the host calls Handle* directly

	OnCommit           func(item Item, depth int, path []Item, index int) // Selection committed on an actionable item
	OnSelectionChanged func(index int)                                    // Fires once per settled index, rate-limited
	OnViewChanged      func(path []Item)                                  // New active path after a drill or back commits
	OnAck              func()                                             // One-shot acknowledgement pulse on a commit press
	OnError            func(err error)                                    // Loader and storage failures

	Arc              ArcConfig
	Motion           MotionConfig
	SnapshotInterval time.Duration
	Logger           *slog.Logger
}

// Engine is a hierarchical navigation-and-animation engine instance.
// All methods must be called from the same goroutine that drives Tick.
type Engine struct {
	cfg    Config
	arc    ArcConfig
	log    *slog.Logger
	levels []LevelDescriptor

	stack  *Stack
	items  []Item
	raw    []any
	motion *motionController

	trans   *transition
	visuals []*visual
	crumbs  []*visual
	pageVis *visual
	inPage  bool

	depthFrom  float64
	depthTo    float64
	depthStart time.Time
	depthDur   time.Duration

	pending      []NavEvent
	lastTick     time.Time
	lastNotified int
	lastNotify   *atomic.Int64 // unix nanos of the last selectionChanged

	ctx     context.Context
	started bool
	closed  bool
}

// New creates an engine from the given configuration. Start must be
// called before events are submitted.
func New(cfg Config) (*Engine, error) {
	if cfg.RootData == nil && cfg.RootLoader == nil {
		return nil, NewInfrastructureError("configure", errRootRequired)
	}

	arc := cfg.Arc
	if arc == (ArcConfig{}) {
		arc = DefaultArcConfig()
	}
	log := cfg.Logger
	if log == nil {
		log = internal.GetLogger()
	}
	if cfg.SnapshotInterval <= 0 {
		cfg.SnapshotInterval = constants.DefaultSnapshotInterval
	}

	return &Engine{
		cfg:          cfg,
		arc:          arc,
		log:          log,
		levels:       cfg.Levels,
		stack:        NewStack(),
		motion:       newMotionController(cfg.Motion),
		lastNotify:   atomic.NewInt64(0),
		lastNotified: -1,
		lastTick:     time.Now(),
		ctx:          context.Background(),
	}, nil
}

// Start loads the root level and applies any persisted navigation state.
// A snapshot that no longer matches the data truncates silently; only
// root loading itself can fail.
func (e *Engine) Start(ctx context.Context) error {
	if e.closed {
		return ErrEngineClosed
	}
	e.ctx = ctx

	raws := e.cfg.RootData
	if raws == nil {
		loaded, err := e.cfg.RootLoader(ctx)
		if err != nil {
			return NewInfrastructureError("load_root", err)
		}
		raws = loaded
	}
	e.raw = raws
	e.items = mapItems(descriptorAt(e.levels, 0), raws)
	e.motion.SetBounds(len(e.items))
	e.depthTo = 0
	e.depthFrom = 0

	if e.cfg.Storage != nil && e.cfg.StorageKey != "" {
		if err := e.restore(ctx); err != nil {
			// A missing or stale snapshot is a cold start, not a failure.
			e.log.Warn("state restore skipped", "error", err)
		}
	}

	e.started = true
	e.log.Info("engine started", "items", len(e.items), "depth", e.stack.Depth())
	e.fireViewChanged()
	return nil
}

// Tick advances the engine one step of the cooperative loop. While a
// transition is active the motion controller is frozen (not mutated) and
// directional input stays queued; once the machine returns to Idle the
// deferred events are applied.
func (e *Engine) Tick(now time.Time) {
	if e.closed {
		return
	}
	e.lastTick = now

	if e.trans != nil {
		t := e.trans
		t.advance(now)
		if t.done {
			e.trans = nil
			e.drainPending()
		}
		return
	}

	e.motion.Tick(now)
	e.maybeNotifySelection(now)
}

// Run drives the engine until the context is cancelled: a fixed-rate tick
// loop, the configured input source, and periodic state snapshots. It is
// the only continuously running task; everything it touches stays on this
// goroutine.
func (e *Engine) Run(ctx context.Context) error {
	if !e.started {
		if err := e.Start(ctx); err != nil {
			return err
		}
	}

	ticker := time.NewTicker(constants.DefaultTickInterval)
	defer ticker.Stop()
	snapshots := time.NewTicker(e.cfg.SnapshotInterval)
	defer snapshots.Stop()

	var nav <-chan NavEvent
	var buttons <-chan ButtonEvent
	if e.cfg.InputSource != nil {
		nav = e.cfg.InputSource.Nav()
		buttons = e.cfg.InputSource.Buttons()
	}

	for {
		select {
		case <-ctx.Done():
			e.snapshotQuiet()
			return ctx.Err()
		case now := <-ticker.C:
			e.Tick(now)
		case ev, ok := <-nav:
			if !ok {
				nav = nil
				continue
			}
			e.HandleNav(ev)
		case ev, ok := <-buttons:
			if !ok {
				buttons = nil
				continue
			}
			e.HandleButton(ev)
		case <-snapshots.C:
			e.snapshotQuiet()
		}
	}
}

// Close snapshots the navigation state and shuts the engine down.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.preempt()
	err := e.snapshot()
	e.closed = true
	e.log.Info("engine closed", "depth", e.stack.Depth())
	return err
}

// Render returns the projected render records for the current frame.
// While a transition is active the records come from its animated
// visuals; otherwise they are pure projections of the index model.
func (e *Engine) Render() []RenderElement {
	now := e.lastTick
	out := []RenderElement{{
		ID:      "depth-indicator",
		Kind:    ElementDepthIndicator,
		Opacity: 1,
		Value:   e.depthAt(now),
	}}

	if e.trans != nil {
		for _, v := range e.visuals {
			out = append(out, v.element(now))
		}
		return out
	}

	for s, c := range e.crumbs {
		pl := CrumbSlot(s, e.arc)
		out = append(out, RenderElement{
			ID:         c.id,
			Kind:       ElementCrumb,
			X:          pl.X,
			Y:          pl.Y,
			Scale:      pl.Scale,
			Opacity:    pl.Opacity,
			Label:      c.item.Name,
			DisplayRef: c.item.DisplayRef,
		})
	}

	if e.inPage {
		if e.pageVis != nil {
			out = append(out, e.pageVis.element(now))
		}
		return out
	}

	cur := e.motion.Current()
	for i, it := range e.items {
		pl := Project(float64(i)-cur, e.arc)
		out = append(out, RenderElement{
			ID:         "item:" + it.ID,
			Kind:       ElementItem,
			X:          pl.X,
			Y:          pl.Y,
			Scale:      pl.Scale,
			Opacity:    pl.Opacity,
			Label:      it.Name,
			DisplayRef: it.DisplayRef,
		})
	}
	return out
}

// Depth returns the number of ancestor levels; always equal to the
// navigation stack length.
func (e *Engine) Depth() int {
	return e.stack.Depth()
}

// CurrentIndex returns the fractional selected index of the active level.
func (e *Engine) CurrentIndex() float64 {
	return e.motion.Current()
}

// TargetIndex returns the index the selection is converging toward.
func (e *Engine) TargetIndex() float64 {
	return e.motion.Target()
}

// InPageView reports whether a content page is currently open.
func (e *Engine) InPageView() bool {
	return e.inPage
}

// Transitioning reports whether a drill/back sequence is in flight.
func (e *Engine) Transitioning() bool {
	return e.trans != nil
}

// Items returns a copy of the active level's item list.
func (e *Engine) Items() []Item {
	out := make([]Item, len(e.items))
	copy(out, e.items)
	return out
}

// Path returns the selected items of every ancestor level, root first.
func (e *Engine) Path() []Item {
	frames := e.stack.Frames()
	path := make([]Item, len(frames))
	for i, f := range frames {
		path[i] = f.SelectedItem
	}
	return path
}

// selection returns the currently selected item and its settled index.
func (e *Engine) selection() (Item, int, bool) {
	if len(e.items) == 0 {
		return Item{}, 0, false
	}
	idx := e.motion.SettledIndex()
	if idx < 0 || idx >= len(e.items) {
		return Item{}, 0, false
	}
	return e.items[idx], idx, true
}

// loadChildren resolves an item's raw child set: inline lookup when the
// level carries a children key, otherwise the async loader.
func (e *Engine) loadChildren(item Item, depth int) ([]any, error) {
	desc := descriptorAt(e.levels, depth)
	if desc.ChildrenKey != "" {
		return inlineChildren(desc, item), nil
	}
	if desc.Children != nil {
		return desc.Children(e.ctx, item, depth)
	}
	return nil, nil
}

func (e *Engine) drainPending() {
	if len(e.pending) == 0 {
		return
	}
	for _, ev := range e.pending {
		e.motion.Nudge(ev.Direction, ev.Speed, e.lastTick)
	}
	e.pending = e.pending[:0]
}

func (e *Engine) fireViewChanged() {
	if e.cfg.OnViewChanged != nil {
		e.cfg.OnViewChanged(e.Path())
	}
}

// maybeNotifySelection fires selectionChanged once per settled index,
// spaced at least the notify interval apart so external acknowledgement
// feedback is not flooded during fast scrolls.
func (e *Engine) maybeNotifySelection(now time.Time) {
	if e.cfg.OnSelectionChanged == nil {
		return
	}
	settled := e.motion.SettledIndex()
	if settled == e.lastNotified {
		return
	}
	if now.UnixNano()-e.lastNotify.Load() < int64(constants.DefaultNotifyInterval) {
		return
	}
	e.lastNotified = settled
	e.lastNotify.Store(now.UnixNano())
	e.cfg.OnSelectionChanged(settled)
}

func (e *Engine) snapshotQuiet() {
	if err := e.snapshot(); err != nil {
		e.log.Warn("snapshot failed", "error", err)
		if e.cfg.OnError != nil {
			e.cfg.OnError(err)
		}
	}
}
