package taralli

import (
	"math"
	"time"

	"github.com/BrandonKowalski/taralli/pkg/taralli/constants"
)

// MotionConfig holds the tuning for the selection motion controller.
type MotionConfig struct {
	Smoothing   float64       // Fraction of remaining distance covered per tick
	SnapEpsilon float64       // Delta below which the index snaps exactly to target
	Step        float64       // Target change per unit nudge
	SpeedCap    float64       // Maximum speed multiplier applied to a nudge
	QuietPeriod time.Duration // Idle time before the target rounds to the nearest integer
}

// DefaultMotionConfig returns the stock motion tuning.
func DefaultMotionConfig() MotionConfig {
	return MotionConfig{
		Smoothing:   constants.DefaultSmoothing,
		SnapEpsilon: constants.DefaultSnapEpsilon,
		Step:        constants.DefaultStep,
		SpeedCap:    constants.DefaultSpeedCap,
		QuietPeriod: constants.DefaultQuietPeriod,
	}
}

// motionController advances a fractional current index toward a target
// index every tick and owns the auto-snap timer, so the engine never
// rests between two items. It has no notion of transitions; the engine
// simply stops ticking it while one is active, which freezes the model
// without mutating it.
type motionController struct {
	cfg       MotionConfig
	current   float64
	target    float64
	max       float64
	lastNudge time.Time
	snapped   bool
}

func newMotionController(cfg MotionConfig) *motionController {
	if cfg.Smoothing <= 0 || cfg.Smoothing > 1 {
		cfg.Smoothing = constants.DefaultSmoothing
	}
	if cfg.SnapEpsilon <= 0 {
		cfg.SnapEpsilon = constants.DefaultSnapEpsilon
	}
	if cfg.Step <= 0 {
		cfg.Step = constants.DefaultStep
	}
	if cfg.SpeedCap <= 0 {
		cfg.SpeedCap = constants.DefaultSpeedCap
	}
	if cfg.QuietPeriod <= 0 {
		cfg.QuietPeriod = constants.DefaultQuietPeriod
	}
	return &motionController{cfg: cfg, snapped: true}
}

// SetBounds clamps the controller to a level with n items.
func (m *motionController) SetBounds(n int) {
	m.max = float64(n - 1)
	if m.max < 0 {
		m.max = 0
	}
	m.current = clamp(m.current, 0, m.max)
	m.target = clamp(m.target, 0, m.max)
}

// Set positions current and target on the same index, e.g. when a level
// is entered or restored.
func (m *motionController) Set(idx float64) {
	idx = clamp(idx, 0, m.max)
	m.current = idx
	m.target = idx
	m.snapped = idx == math.Round(idx)
}

// Nudge moves the target by the configured step scaled by a capped speed
// multiplier and resets the snap timer. No-ops silently at either
// boundary.
func (m *motionController) Nudge(dir constants.Direction, speed float64, now time.Time) {
	mult := speed
	if mult < 1 {
		mult = 1
	}
	if mult > m.cfg.SpeedCap {
		mult = m.cfg.SpeedCap
	}

	delta := m.cfg.Step * mult
	switch dir {
	case constants.DirectionForward:
		m.target = clamp(m.target+delta, 0, m.max)
	case constants.DirectionBack:
		m.target = clamp(m.target-delta, 0, m.max)
	default:
		return
	}

	m.lastNudge = now
	m.snapped = false
}

// Tick advances the current index one step toward the target and fires
// the auto-snap once the quiet period elapses. Returns true if the
// current index moved.
func (m *motionController) Tick(now time.Time) bool {
	if !m.snapped && now.Sub(m.lastNudge) >= m.cfg.QuietPeriod {
		m.target = clamp(math.Round(m.target), 0, m.max)
		m.snapped = true
	}

	delta := m.target - m.current
	if delta == 0 {
		return false
	}
	if math.Abs(delta) < m.cfg.SnapEpsilon {
		m.current = m.target
		return true
	}

	m.current += delta * m.cfg.Smoothing
	return true
}

// Current returns the fractional current index.
func (m *motionController) Current() float64 {
	return m.current
}

// Target returns the fractional target index.
func (m *motionController) Target() float64 {
	return m.target
}

// SettledIndex returns the integer index the controller is resting on or
// converging toward.
func (m *motionController) SettledIndex() int {
	return int(clamp(math.Round(m.current), 0, m.max))
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
