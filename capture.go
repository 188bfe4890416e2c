package ircapture

import (
	"math"
	"time"

	"github.com/sparques/ircapture/internal/irq"
)

// CaptureTimer is a hardware timer with an input-capture unit wired to the
// receiver output. Register level configuration belongs to the board
// support code implementing it.
type CaptureTimer interface {
	// Captured returns the counter value latched by the last edge.
	Captured() uint32
	// ResetCounter sets the free-running counter back to zero.
	ResetCounter()
	// SetCaptureEdge arms the capture unit for a rising or falling edge.
	SetCaptureEdge(rising bool)
	// SetOverflowInterrupt enables or disables the counter overflow interrupt.
	SetOverflowInterrupt(enabled bool)
}

// TimerReceiver captures edges with a timer's input-capture unit. The
// hardware timestamps each edge and the counter is reset right after, so
// the captured value is the duration since the previous edge.
//
// The end of a frame is signalled by the counter overflowing before any
// new edge: the line has been idle for the full counter range.
type TimerReceiver struct {
	timer  CaptureTimer
	dec    Decoder
	tick   time.Duration
	rising bool // edge the capture unit is armed for
}

// NewTimerReceiver arms timer for the first edge selected by polarity,
// given the line level read at setup, and returns a receiver reporting to
// dec. tick is the duration of one counter increment.
//
// The caller wires HandleCapture and HandleOverflow to the timer's
// capture and overflow interrupts.
func NewTimerReceiver(timer CaptureTimer, tick time.Duration, polarity Polarity, level bool, dec Decoder) *TimerReceiver {
	rx := &TimerReceiver{
		timer:  timer,
		dec:    dec,
		tick:   tick,
		rising: polarity.Resolve(level),
	}
	timer.SetOverflowInterrupt(false)
	timer.SetCaptureEdge(rx.rising)
	timer.ResetCounter()
	return rx
}

// Tick returns the duration of one counter increment.
func (rx *TimerReceiver) Tick() time.Duration { return rx.tick }

// IdleTimeout returns the idle time after which a counter of the given
// width overflows, i.e. the effective dead time.
func (rx *TimerReceiver) IdleTimeout(bits uint) time.Duration {
	return CounterSpan(rx.tick, bits)
}

// CounterSpan returns the time a counter of the given width takes to wrap
// when it advances once per tick. It saturates at the largest Duration.
func CounterSpan(tick time.Duration, bits uint) time.Duration {
	if tick <= 0 {
		return 0
	}
	if bits >= 63 || tick > math.MaxInt64>>bits {
		return math.MaxInt64
	}
	return tick << bits
}

// HandleCapture is the input-capture interrupt handler.
func (rx *TimerReceiver) HandleCapture() {
	g := irq.Disable()
	defer g.Restore()

	ticks := rx.timer.Captured()
	rx.timer.ResetCounter()

	// the waveform alternates, so the next edge goes the other way.
	level := rx.rising
	rx.rising = !rx.rising
	rx.timer.SetCaptureEdge(rx.rising)
	rx.timer.SetOverflowInterrupt(true)

	rx.dec.EdgeEvent(Edge{Level: level, Duration: time.Duration(ticks) * rx.tick})
}

// HandleOverflow is the counter overflow interrupt handler. It disarms
// itself until the next capture.
func (rx *TimerReceiver) HandleOverflow() {
	g := irq.Disable()
	defer g.Restore()

	rx.timer.SetOverflowInterrupt(false)
	rx.dec.EndOfFrame()
}
