// Package rawbuf implements an ircapture.Decoder that stores the segment
// durations of one frame in a caller-supplied buffer, for inspection or
// offline decoding by foreground code.
//
// The decoder goes through three states:
//
//	Empty -> Filling -> Complete -> (ReadyForNextFrame) -> Empty
//
// The first edge of a frame measures the idle gap before it and is
// dropped. A complete frame is frozen until the consumer calls
// ReadyForNextFrame.
//
// ## Example
//
//	var segments [100]time.Duration
//	raw := rawbuf.New(segments[:])
//	rx := ircapture.NewPinReceiver(machine.GPIO2, raw)
//	rx.Start()
//
//	for {
//		if raw.IsDone() {
//			for _, d := range raw.Segments() {
//				println(d.Microseconds())
//			}
//			raw.ReadyForNextFrame()
//		}
//	}
package rawbuf

import (
	"sync/atomic"
	"time"

	"github.com/sparques/ircapture"
	"github.com/sparques/ircapture/internal/irq"
)

// State is the state of a Decoder.
type State uint8

const (
	Empty State = iota
	Filling
	Complete
)

func (s State) String() string {
	switch s {
	case Empty:
		return "empty"
	case Filling:
		return "filling"
	case Complete:
		return "complete"
	default:
		return "invalid"
	}
}

// Decoder buffers the segments of one frame.
type Decoder struct {
	buf  []time.Duration
	n    int
	done atomic.Bool

	waitFirst  bool // next edge opens a frame and is dropped
	overflows  ircapture.Counter
	inProgress bool
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithInProgressCount makes SegmentCount report the segments stored so far
// while a frame is still being captured. By default it reports 0 until the
// frame is complete.
func WithInProgressCount(v bool) Option {
	return func(d *Decoder) {
		d.inProgress = v
	}
}

// New returns a decoder storing up to len(buf) segments per frame.
func New(buf []time.Duration, opts ...Option) *Decoder {
	d := &Decoder{}
	for _, opt := range opts {
		opt(d)
	}
	d.SetSegmentBuffer(buf)
	return d
}

// SetSegmentBuffer replaces the segment storage and starts over with an
// empty frame. It is safe to call while capture is running.
func (d *Decoder) SetSegmentBuffer(buf []time.Duration) {
	g := irq.Disable()
	defer g.Restore()

	d.buf = buf
	d.reset()
}

// ReadyForNextFrame releases a complete frame and re-arms the decoder.
// The overflow counter is cleared too.
func (d *Decoder) ReadyForNextFrame() {
	g := irq.Disable()
	defer g.Restore()

	d.reset()
}

// reset must run in a critical section: the interrupt side reads all of
// these fields.
func (d *Decoder) reset() {
	d.n = 0
	d.waitFirst = true
	d.overflows = 0
	d.done.Store(false)
}

// EdgeEvent implements ircapture.Decoder.
func (d *Decoder) EdgeEvent(e ircapture.Edge) {
	if d.done.Load() {
		return
	}
	if d.waitFirst {
		d.waitFirst = false
		return
	}
	if d.n >= len(d.buf) {
		d.overflows.Inc()
		return
	}
	d.buf[d.n] = e.Duration
	d.n++
}

// EndOfFrame implements ircapture.Decoder. A frame without segments is
// not reported: the decoder goes back to Empty so that the next edge is
// treated as the start of a frame.
func (d *Decoder) EndOfFrame() {
	if d.done.Load() {
		return
	}
	if d.n == 0 {
		d.waitFirst = true
		return
	}
	d.done.Store(true)
}

// IsDone reports whether a complete frame is waiting to be read.
func (d *Decoder) IsDone() bool {
	return d.done.Load()
}

// State returns the current state of the decoder.
func (d *Decoder) State() State {
	g := irq.Disable()
	defer g.Restore()

	switch {
	case d.done.Load():
		return Complete
	case d.waitFirst:
		return Empty
	default:
		return Filling
	}
}

// SegmentCount returns the number of stored segments. Before the frame is
// complete it returns 0, unless the decoder was built with
// WithInProgressCount(true).
func (d *Decoder) SegmentCount() int {
	g := irq.Disable()
	defer g.Restore()

	if !d.done.Load() && !d.inProgress {
		return 0
	}
	return d.n
}

// Capacity returns the number of segments a frame can hold.
func (d *Decoder) Capacity() int {
	g := irq.Disable()
	defer g.Restore()

	return len(d.buf)
}

// Segments returns the segments of the complete frame, or nil while no
// frame is complete. The slice aliases the segment buffer and is only
// valid until ReadyForNextFrame.
func (d *Decoder) Segments() []time.Duration {
	if !d.done.Load() {
		return nil
	}
	return d.buf[:d.n]
}

// CopySegments copies the segments of the complete frame into dst and
// returns how many were copied. It copies nothing while no frame is
// complete.
func (d *Decoder) CopySegments(dst []time.Duration) int {
	if !d.done.Load() {
		return 0
	}
	return copy(dst, d.buf[:d.n])
}

// SegmentOverflowCount returns how many segments were dropped because the
// buffer was full.
func (d *Decoder) SegmentOverflowCount() uint16 {
	g := irq.Disable()
	defer g.Restore()

	return uint16(d.overflows)
}

// ClearSegmentOverflowCount clears the overflow counter and returns its
// previous value.
func (d *Decoder) ClearSegmentOverflowCount() uint16 {
	g := irq.Disable()
	defer g.Restore()

	return d.overflows.Swap()
}

var _ ircapture.Decoder = (*Decoder)(nil)
