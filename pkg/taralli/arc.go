package taralli

import (
	"math"

	"github.com/BrandonKowalski/taralli/pkg/taralli/constants"
)

// ArcConfig holds the tuning values for the arc projection. The same
// config is used by every visual surface (selection arc, breadcrumb
// trail, content lists) so all arc-based presentations stay consistent.
type ArcConfig struct {
	ScaleFloor    float64 // Minimum item scale at the arc edges
	ScaleFactor   float64 // Scale lost per unit of relative distance
	OpacityFloor  float64 // Minimum item opacity at the arc edges
	OpacityFactor float64 // Opacity lost per unit of relative distance
	BaseOffset    float64 // Horizontal position of the centered item
	MaxRadius     float64 // Horizontal reach of the arc curve
	CurveFactor   float64 // Fraction of MaxRadius applied per unit distance
	ItemSize      float64 // Nominal item height at scale 1
	Padding       float64 // Vertical gap between adjacent items
	MaxNearSlots  int     // Breadcrumb slots rendered at full arc placements
	CrumbMinScale float64 // Scale floor for breadcrumb slots beyond the near slots
}

// DefaultArcConfig returns the arc tuning used on the stock appliance
// display (480px tall panel).
func DefaultArcConfig() ArcConfig {
	return ArcConfig{
		ScaleFloor:    0.4,
		ScaleFactor:   0.18,
		OpacityFloor:  0.25,
		OpacityFactor: 0.22,
		BaseOffset:    40,
		MaxRadius:     120,
		CurveFactor:   0.35,
		ItemSize:      96,
		Padding:       12,
		MaxNearSlots:  constants.DefaultMaxNearSlots,
		CrumbMinScale: constants.DefaultCrumbMinScale,
	}
}

// Placement is the 2-D placement of a single visual element.
type Placement struct {
	X       float64
	Y       float64
	Scale   float64
	Opacity float64
}

// Project maps a relative position from the arc center to a placement.
// Pure: identical inputs always produce identical outputs. Scale and
// opacity are non-increasing in |rel|.
func Project(rel float64, cfg ArcConfig) Placement {
	abs := math.Abs(rel)
	scale := math.Max(cfg.ScaleFloor, 1-abs*cfg.ScaleFactor)
	return Placement{
		X:       cfg.BaseOffset + abs*cfg.MaxRadius*cfg.CurveFactor,
		Y:       rel * (cfg.ItemSize*scale + cfg.Padding),
		Scale:   scale,
		Opacity: math.Max(cfg.OpacityFloor, 1-abs*cfg.OpacityFactor),
	}
}

// CrumbSlot returns the placement of a breadcrumb slot. Slot 0 holds the
// most recent ancestor's selected item. Near slots route through Project
// on the negative side of the arc; slots beyond MaxNearSlots decay from
// the last near slot's placement, shrinking and sliding outward per slot.
func CrumbSlot(slot int, cfg ArcConfig) Placement {
	if slot < cfg.MaxNearSlots {
		return Project(-float64(slot+1), cfg)
	}

	last := Project(-float64(cfg.MaxNearSlots), cfg)
	extra := float64(slot - cfg.MaxNearSlots)
	return Placement{
		X:       last.X - extra*constants.CrumbShiftStep,
		Y:       last.Y,
		Scale:   math.Max(cfg.CrumbMinScale, last.Scale-extra*constants.CrumbScaleStep),
		Opacity: math.Max(cfg.OpacityFloor, last.Opacity-extra*constants.CrumbScaleStep),
	}
}

// lerpPlacement interpolates between two placements. t is clamped to [0, 1].
func lerpPlacement(from, to Placement, t float64) Placement {
	if t <= 0 {
		return from
	}
	if t >= 1 {
		return to
	}
	return Placement{
		X:       from.X + (to.X-from.X)*t,
		Y:       from.Y + (to.Y-from.Y)*t,
		Scale:   from.Scale + (to.Scale-from.Scale)*t,
		Opacity: from.Opacity + (to.Opacity-from.Opacity)*t,
	}
}
