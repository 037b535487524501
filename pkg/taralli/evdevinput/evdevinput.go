// Package evdevinput captures rotary and button input from Linux evdev
// devices and normalizes it into the engine's event shapes. It sits
// entirely outside the engine: the engine only ever sees NavEvent and
// ButtonEvent values on the channels this package feeds.
package evdevinput

import (
	"context"
	"log/slog"
	"time"

	"github.com/holoplot/go-evdev"

	"github.com/BrandonKowalski/taralli/pkg/taralli"
	"github.com/BrandonKowalski/taralli/pkg/taralli/constants"
	"github.com/BrandonKowalski/taralli/pkg/taralli/internal"
)

// Config configures the evdev input source.
type Config struct {
	RotaryDevice string // e.g. /dev/input/event1
	ButtonDevice string // e.g. /dev/input/event2; may equal RotaryDevice
	RotaryCode   evdev.EvCode
	Buttons      map[evdev.EvCode]constants.VirtualButton
	SpeedWindow  time.Duration // rotary interval treated as speed 1; shorter spins scale up
	Logger       *slog.Logger
}

// DefaultButtons maps the stock remote's key codes.
func DefaultButtons() map[evdev.EvCode]constants.VirtualButton {
	return map[evdev.EvCode]constants.VirtualButton{
		evdev.KEY_LEFT:  constants.VirtualButtonLeft,
		evdev.KEY_RIGHT: constants.VirtualButtonRight,
		evdev.KEY_ENTER: constants.VirtualButtonSelect,
	}
}

// Source reads evdev events and implements taralli.InputSource.
type Source struct {
	cfg     Config
	log     *slog.Logger
	nav     chan taralli.NavEvent
	buttons chan taralli.ButtonEvent

	rotary  *evdev.InputDevice
	keypad  *evdev.InputDevice
	lastRel time.Time
}

// New opens the configured devices. Run must be called to start reading.
func New(cfg Config) (*Source, error) {
	if cfg.RotaryCode == 0 {
		cfg.RotaryCode = evdev.REL_X
	}
	if cfg.Buttons == nil {
		cfg.Buttons = DefaultButtons()
	}
	if cfg.SpeedWindow <= 0 {
		cfg.SpeedWindow = 100 * time.Millisecond
	}
	log := cfg.Logger
	if log == nil {
		log = internal.GetLogger()
	}

	s := &Source{
		cfg:     cfg,
		log:     log,
		nav:     make(chan taralli.NavEvent, 64),
		buttons: make(chan taralli.ButtonEvent, 16),
	}

	rotary, err := evdev.Open(cfg.RotaryDevice)
	if err != nil {
		return nil, err
	}
	s.rotary = rotary

	if cfg.ButtonDevice == "" || cfg.ButtonDevice == cfg.RotaryDevice {
		s.keypad = rotary
	} else {
		keypad, err := evdev.Open(cfg.ButtonDevice)
		if err != nil {
			rotary.Close()
			return nil, err
		}
		s.keypad = keypad
	}

	return s, nil
}

// Nav returns the directional event channel.
func (s *Source) Nav() <-chan taralli.NavEvent {
	return s.nav
}

// Buttons returns the discrete press channel.
func (s *Source) Buttons() <-chan taralli.ButtonEvent {
	return s.buttons
}

// Run reads until the context is cancelled. Reading blocks in the
// kernel; cancellation closes the devices to unblock it.
func (s *Source) Run(ctx context.Context) error {
	go func() {
		<-ctx.Done()
		s.rotary.Close()
		if s.keypad != s.rotary {
			s.keypad.Close()
		}
	}()

	if s.keypad != s.rotary {
		go s.readLoop(ctx, s.keypad)
	}
	s.readLoop(ctx, s.rotary)
	return ctx.Err()
}

func (s *Source) readLoop(ctx context.Context, dev *evdev.InputDevice) {
	for {
		ev, err := dev.ReadOne()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Error("evdev read failed", "error", err)
			return
		}
		s.dispatch(ctx, ev)
	}
}

func (s *Source) dispatch(ctx context.Context, ev *evdev.InputEvent) {
	switch ev.Type {
	case evdev.EV_REL:
		if ev.Code != s.cfg.RotaryCode || ev.Value == 0 {
			return
		}
		s.sendNav(ctx, ev.Value)

	case evdev.EV_KEY:
		if ev.Value != 1 { // presses only; ignore release and autorepeat
			return
		}
		vb, ok := s.cfg.Buttons[ev.Code]
		if !ok {
			return
		}
		select {
		case s.buttons <- taralli.ButtonEvent{Button: vb}:
		case <-ctx.Done():
		}
	}
}

// sendNav converts one relative tick into a NavEvent. Speed is derived
// from the spacing between rotary events: a full SpeedWindow between
// ticks is speed 1, faster spins scale proportionally. The engine caps
// the multiplier, so no clamping happens here.
func (s *Source) sendNav(ctx context.Context, value int32) {
	now := time.Now()
	speed := 1.0
	if !s.lastRel.IsZero() {
		if elapsed := now.Sub(s.lastRel); elapsed > 0 && elapsed < s.cfg.SpeedWindow {
			speed = float64(s.cfg.SpeedWindow) / float64(elapsed)
		}
	}
	s.lastRel = now

	dir := constants.DirectionForward
	if value < 0 {
		dir = constants.DirectionBack
		value = -value
	}

	for i := int32(0); i < value; i++ {
		select {
		case s.nav <- taralli.NavEvent{Direction: dir, Speed: speed}:
		case <-ctx.Done():
			return
		default:
			// Drop rather than block the device reader; the motion
			// controller smooths over missing ticks anyway.
			return
		}
	}
}
