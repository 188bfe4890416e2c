package ircapture

import (
	"log/slog"
	"time"

	"github.com/sparques/ircapture/internal/irq"
)

// Receiver captures edges with software timestamps: it is driven by a
// level-change interrupt and reads a free-running microsecond clock on
// every edge.
//
// A gap longer than the dead time ends the frame in progress; the decoder
// gets EndOfFrame before the edge that follows the gap.
type Receiver struct {
	pin      Pin
	clock    Clock
	dec      Decoder
	deadTime time.Duration
	logger   *slog.Logger

	last uint32 // clock value at the previous edge
	open bool   // edges were reported since the last EndOfFrame
}

// Option configures a Receiver.
type Option func(*Receiver)

// WithDeadTime sets the idle gap that ends a frame.
func WithDeadTime(d time.Duration) Option {
	return func(rx *Receiver) {
		if d > 0 {
			rx.deadTime = d
		}
	}
}

// WithLogger sets the logger used by setup and teardown calls.
// Interrupt handlers never log.
func WithLogger(logger *slog.Logger) Option {
	return func(rx *Receiver) {
		rx.logger = logger
	}
}

// NewReceiver returns a Receiver reading pin and clock and reporting to
// dec. The caller wires HandleEdge to the pin's level-change interrupt.
func NewReceiver(pin Pin, clock Clock, dec Decoder, opts ...Option) *Receiver {
	rx := &Receiver{
		pin:      pin,
		clock:    clock,
		dec:      dec,
		deadTime: DefaultDeadTime,
	}
	for _, opt := range opts {
		opt(rx)
	}
	rx.last = clock.Micros()
	if rx.logger != nil {
		rx.logger.Debug("ir receiver configured",
			"dead_time", rx.deadTime,
			"level", pin.Get(),
		)
	}
	return rx
}

// DeadTime returns the idle gap that ends a frame.
func (rx *Receiver) DeadTime() time.Duration { return rx.deadTime }

// HandleEdge is the level-change interrupt handler.
func (rx *Receiver) HandleEdge() {
	g := irq.Disable()
	defer g.Restore()

	now := rx.clock.Micros()
	// unsigned subtraction absorbs a single wraparound of the clock.
	elapsed := time.Duration(now-rx.last) * time.Microsecond
	rx.last = now

	if rx.open && elapsed > rx.deadTime {
		rx.dec.EndOfFrame()
	}
	rx.open = true
	rx.dec.EdgeEvent(Edge{Level: rx.pin.Get(), Duration: elapsed})
}

// Idle ends the frame in progress if the line has been quiet for longer
// than the dead time, without waiting for the next edge. It reports
// whether a frame was ended.
//
// Call it periodically, from a timer interrupt or the main loop.
func (rx *Receiver) Idle() bool {
	g := irq.Disable()
	defer g.Restore()

	if !rx.open {
		return false
	}
	if time.Duration(rx.clock.Micros()-rx.last)*time.Microsecond <= rx.deadTime {
		return false
	}
	rx.open = false
	rx.dec.EndOfFrame()
	return true
}
