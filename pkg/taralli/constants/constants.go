// Package constants defines shared constants, types, and tuning values
// used throughout the taralli navigation engine.
package constants

import (
	"os"
	"time"
)

// Development is the environment variable value for development mode.
const Development = "DEV"

// IsDevMode returns true if running in development mode (ENVIRONMENT=DEV).
func IsDevMode() bool {
	return os.Getenv("ENVIRONMENT") == Development
}

// VirtualButton represents an abstract input button, mapped from physical hardware.
// This abstraction allows taralli to work with different remote configurations.
type VirtualButton int

const (
	VirtualButtonUnassigned VirtualButton = iota
	VirtualButtonLeft
	VirtualButtonRight
	VirtualButtonSelect
)

func (vb VirtualButton) GetName() string {
	switch vb {
	case VirtualButtonUnassigned:
		return "Unassigned"
	case VirtualButtonLeft:
		return "Left"
	case VirtualButtonRight:
		return "Right"
	case VirtualButtonSelect:
		return "Select"
	default:
		return "Unknown"
	}
}

// Direction represents rotary travel along the selection arc.
type Direction int

const (
	DirectionNone Direction = iota
	DirectionForward
	DirectionBack
)

// String returns a string representation of the direction.
func (d Direction) String() string {
	switch d {
	case DirectionForward:
		return "forward"
	case DirectionBack:
		return "back"
	default:
		return ""
	}
}

// Selection motion defaults.
const (
	DefaultSmoothing   = 0.5                    // Fraction of remaining distance covered per tick
	DefaultSnapEpsilon = 0.01                   // Delta below which the index snaps to target
	DefaultStep        = 0.25                   // Target-index change per unit nudge
	DefaultSpeedCap    = 4.0                    // Maximum speed multiplier applied to a nudge
	DefaultQuietPeriod = 1000 * time.Millisecond // Idle time before auto-snap rounds the target
)

// Engine timing defaults.
const (
	DefaultTickInterval     = time.Second / 60       // Cooperative tick loop rate
	DefaultNotifyInterval   = 50 * time.Millisecond  // Minimum spacing between selectionChanged events
	DefaultSnapshotInterval = 10 * time.Second       // Interval between persisted-state snapshots
)

// Transition animation defaults.
const (
	DefaultIndicatorDuration = 120 * time.Millisecond // Depth indicator deepen/lighten
	DefaultSlideDuration     = 220 * time.Millisecond // Breadcrumb park/shift slides
	DefaultFadeDuration      = 180 * time.Millisecond // Item and page fades
	DefaultStaggerDelay      = 30 * time.Millisecond  // Per-item delay when fading a level in
)

// Breadcrumb trail layout.
const (
	DefaultMaxNearSlots  = 3    // Slots rendered at full arc placements
	CrumbScaleStep       = 0.05 // Scale/opacity lost per slot beyond the near slots
	CrumbShiftStep       = 10.0 // Horizontal shift per slot beyond the near slots
	DefaultCrumbMinScale = 0.3  // Scale floor for far breadcrumb slots
)
