// Package sim provides simulated hardware for running capture sources
// on a host: a microsecond clock, an input pin and an input-capture timer.
package sim // import "github.com/sparques/ircapture/internal/sim"

import (
	"sync/atomic"
	"time"

	"github.com/sparques/ircapture"
)

// Clock is a manually advanced ircapture.Clock.
type Clock struct {
	us atomic.Uint32
}

// NewClock returns a clock reading us microseconds.
func NewClock(us uint32) *Clock {
	c := &Clock{}
	c.us.Store(us)
	return c
}

func (c *Clock) Micros() uint32 { return c.us.Load() }

// Advance moves the clock forward by d, wrapping around like hardware.
func (c *Clock) Advance(d time.Duration) {
	c.us.Add(uint32(d / time.Microsecond))
}

// Pin is a settable ircapture.Pin.
type Pin struct {
	level atomic.Bool
}

// NewPin returns a pin at the given level.
func NewPin(level bool) *Pin {
	p := &Pin{}
	p.level.Store(level)
	return p
}

func (p *Pin) Get() bool { return p.level.Load() }
func (p *Pin) Set(v bool) { p.level.Store(v) }

// Feed replays edges on rx: for each edge the clock advances by its
// duration, the pin takes its level and the edge interrupt fires.
func Feed(rx *ircapture.Receiver, clk *Clock, pin *Pin, edges ...ircapture.Edge) {
	for _, e := range edges {
		clk.Advance(e.Duration)
		pin.Set(e.Level)
		rx.HandleEdge()
	}
}

// Timer is an ircapture.CaptureTimer with a counter of Bits bits.
type Timer struct {
	Bits uint

	latched  uint32
	rising   bool
	overflow bool
	resets   int
}

// NewTimer returns a timer with a counter of the given width.
func NewTimer(bits uint) *Timer {
	return &Timer{Bits: bits}
}

func (t *Timer) Captured() uint32 { return t.latched }
func (t *Timer) ResetCounter() { t.resets++ }
func (t *Timer) SetCaptureEdge(rising bool) { t.rising = rising }
func (t *Timer) SetOverflowInterrupt(on bool) { t.overflow = on }

// Rising reports the edge the capture unit is armed for.
func (t *Timer) Rising() bool { return t.rising }

// OverflowEnabled reports whether the overflow interrupt is armed.
func (t *Timer) OverflowEnabled() bool { return t.overflow }

// Resets returns how many times the counter was reset.
func (t *Timer) Resets() int { return t.resets }

// Edge simulates an edge after the counter ran for ticks since its last
// reset. It fires the overflow interrupt first if the counter wrapped
// while the interrupt was armed, then latches the counter and fires the
// capture interrupt.
func (t *Timer) Edge(rx *ircapture.TimerReceiver, ticks uint64) {
	top := uint64(1) << t.Bits
	if ticks >= top && t.overflow {
		rx.HandleOverflow()
	}
	t.latched = uint32(ticks % top)
	rx.HandleCapture()
}

// Idle simulates the line staying quiet for the full counter range.
func (t *Timer) Idle(rx *ircapture.TimerReceiver) {
	if t.overflow {
		rx.HandleOverflow()
	}
}
