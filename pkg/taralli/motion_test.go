package taralli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonKowalski/taralli/pkg/taralli/constants"
)

const tick = 16 * time.Millisecond

func TestMotionConvergesAndSnapsExactly(t *testing.T) {
	m := newMotionController(DefaultMotionConfig())
	m.SetBounds(10)
	now := time.Now()

	m.Nudge(constants.DirectionForward, 8, now) // capped at 4: 0.25*4 = 1.0
	require.Equal(t, 1.0, m.Target())

	for i := 0; i < 30; i++ {
		now = now.Add(tick)
		m.Tick(now)
	}
	assert.Equal(t, 1.0, m.Current(), "smoothing must terminate on the exact target")
}

func TestMotionNudgeClampsAtBoundaries(t *testing.T) {
	m := newMotionController(DefaultMotionConfig())
	m.SetBounds(3) // indices 0..2
	now := time.Now()

	for i := 0; i < 50; i++ {
		m.Nudge(constants.DirectionForward, 4, now)
	}
	assert.Equal(t, 2.0, m.Target())

	for i := 0; i < 50; i++ {
		m.Nudge(constants.DirectionBack, 4, now)
	}
	assert.Equal(t, 0.0, m.Target())

	// Further input at the boundary is a silent no-op.
	m.Nudge(constants.DirectionBack, 1, now)
	assert.Equal(t, 0.0, m.Target())
}

func TestMotionSpeedMultiplierIsCapped(t *testing.T) {
	cfg := DefaultMotionConfig()
	m := newMotionController(cfg)
	m.SetBounds(100)
	now := time.Now()

	m.Nudge(constants.DirectionForward, 1000, now)
	assert.Equal(t, cfg.Step*cfg.SpeedCap, m.Target())

	// Sub-unit speeds still move a full step.
	m2 := newMotionController(cfg)
	m2.SetBounds(100)
	m2.Nudge(constants.DirectionForward, 0.1, now)
	assert.Equal(t, cfg.Step, m2.Target())
}

func TestMotionAutoSnapAfterQuietPeriod(t *testing.T) {
	m := newMotionController(DefaultMotionConfig())
	m.SetBounds(100)
	now := time.Now()

	// Continuous forward input at speed 50 for 2 seconds.
	for elapsed := time.Duration(0); elapsed < 2*time.Second; elapsed += tick {
		m.Nudge(constants.DirectionForward, 50, now)
		now = now.Add(tick)
		m.Tick(now)
	}

	// Then 1.2 seconds idle: the quiet threshold fires and the index
	// settles on the nearest integer.
	for elapsed := time.Duration(0); elapsed < 1200*time.Millisecond; elapsed += tick {
		now = now.Add(tick)
		m.Tick(now)
	}

	cur := m.Current()
	assert.Equal(t, float64(int(cur)), cur, "index must rest on an integer, got %v", cur)
	assert.Equal(t, m.Target(), cur)
}

func TestMotionSetRestoresFractionalIndex(t *testing.T) {
	m := newMotionController(DefaultMotionConfig())
	m.SetBounds(10)

	m.Set(3.6)
	assert.Equal(t, 3.6, m.Current())
	assert.Equal(t, 3.6, m.Target())
	assert.Equal(t, 4, m.SettledIndex())

	// Out-of-range restores clamp.
	m.SetBounds(3)
	assert.Equal(t, 2.0, m.Current())
}

func TestMotionBoundsOnSingleItemLevel(t *testing.T) {
	m := newMotionController(DefaultMotionConfig())
	m.SetBounds(1)
	now := time.Now()

	m.Nudge(constants.DirectionForward, 4, now)
	assert.Equal(t, 0.0, m.Target())
	assert.False(t, m.Tick(now.Add(tick)))
}
