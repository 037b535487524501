package taralli

import (
	"github.com/BrandonKowalski/taralli/pkg/taralli/constants"
)

// NavEvent is a normalized directional input event: one unit of rotary
// travel along the arc, with the event speed reported by the driver.
type NavEvent struct {
	Direction constants.Direction
	Speed     float64
}

// ButtonEvent is a normalized discrete button press.
type ButtonEvent struct {
	Button constants.VirtualButton
}

// HandleNav routes a directional event to the selection motion
// controller. While a transition is active the event is deferred, not
// dropped; it applies as soon as the machine returns to Idle.
func (e *Engine) HandleNav(ev NavEvent) {
	if e.closed || ev.Direction == constants.DirectionNone {
		return
	}
	if e.trans != nil {
		e.pending = append(e.pending, ev)
		return
	}
	e.motion.Nudge(ev.Direction, ev.Speed, e.lastTick)
}

// HandleButton routes a discrete press to a stack operation. It returns
// true when the engine consumed the event; false hands it back to the
// host shell for its own fallback. Precedence is active-selection
// ownership first: an open page always owns the back intent, drill and
// commit consult the current selection, and everything else falls
// through.
func (e *Engine) HandleButton(ev ButtonEvent) bool {
	if e.closed {
		return false
	}

	switch ev.Button {
	case constants.VirtualButtonLeft:
		return e.handleDrillIntent()
	case constants.VirtualButtonRight:
		return e.handleBackIntent()
	case constants.VirtualButtonSelect:
		return e.handleSelectIntent()
	default:
		return false
	}
}

func (e *Engine) handleDrillIntent() bool {
	if e.inPage {
		return false
	}
	// A new drill preempts whatever is in flight before the selection is
	// evaluated, so it sees the settled post-transition state.
	e.preempt()

	item, si, ok := e.selection()
	if !ok {
		return false
	}
	desc := descriptorAt(e.levels, e.stack.Depth())

	if item.HasPage() {
		e.beginDrillForward(item, si)
		return true
	}
	if !isContainer(desc, item) {
		return false
	}
	if desc.ChildrenKey != "" && len(inlineChildren(desc, item)) == 0 {
		// Empty inline container: drill intent is consumed but nothing
		// happens and no frame is pushed.
		e.log.Debug("drill-forward no-op", "item", item.ID)
		return true
	}
	e.beginDrillForward(item, si)
	return true
}

func (e *Engine) handleBackIntent() bool {
	e.preempt()
	if e.inPage {
		e.beginDrillBack()
		return true
	}
	if e.stack.IsEmpty() {
		return false
	}
	e.beginDrillBack()
	return true
}

func (e *Engine) handleSelectIntent() bool {
	if e.inPage {
		return false
	}
	item, si, ok := e.selection()
	if !ok {
		return false
	}
	desc := descriptorAt(e.levels, e.stack.Depth())
	if item.NotActionable || item.HasPage() || isContainer(desc, item) {
		// Guaranteed no-op: commit never fires for a non-actionable item.
		return false
	}

	if e.cfg.OnAck != nil {
		e.cfg.OnAck()
	}
	if e.cfg.OnCommit != nil {
		e.cfg.OnCommit(item, e.stack.Depth(), e.Path(), si)
	}
	e.log.Info("selection committed", "item", item.ID, "depth", e.stack.Depth(), "index", si)
	return true
}
