// Package latch assembles captured edges into frames and publishes each
// completed frame to foreground code through a double buffer.
//
// The interrupt side appends edges to an active buffer. When a frame ends
// it is copied to a latched buffer and flagged available; the interrupt
// side carries on with the next frame in the active buffer. The
// foreground polls FrameAvailable and takes the frame with CopyFrame.
//
// At most one frame is pending: a frame completed before the previous one
// was taken replaces it and counts as a frame overrun.
package latch

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/sparques/ircapture"
	"github.com/sparques/ircapture/internal/irq"
)

// ErrNoFrame is returned by CopyFrame when no frame is pending.
var ErrNoFrame = errors.New("latch: no frame available")

// Assembler is an ircapture.Decoder owning the active and latched frame
// buffers.
type Assembler struct {
	active   []ircapture.Edge
	latched  []ircapture.Edge
	deadTime time.Duration

	n    int  // edges of the frame in progress
	open bool // the opening edge of the frame in progress was seen

	latchedN  int
	available atomic.Bool

	overruns  ircapture.Counter
	overflows ircapture.Counter
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithDeadTime makes the assembler end a frame on its own when an edge
// arrives after a gap longer than d. Without it frames end only on
// EndOfFrame.
func WithDeadTime(d time.Duration) Option {
	return func(a *Assembler) {
		a.deadTime = d
	}
}

// New returns an assembler using active for the frame in progress and
// latched for the published frame. Frames hold at most
// min(len(active), len(latched)) edges.
func New(active, latched []ircapture.Edge, opts ...Option) *Assembler {
	a := &Assembler{
		active:  active[:min(len(active), len(latched))],
		latched: latched,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// EdgeEvent implements ircapture.Decoder.
//
// The edge that opens a frame only tells how long the line was idle and
// is not stored. An edge arriving with the active buffer full is dropped
// and counted as a sample overflow.
func (a *Assembler) EdgeEvent(e ircapture.Edge) {
	if a.deadTime > 0 && e.Duration > a.deadTime {
		a.latch()
		a.open = true
		return
	}
	if !a.open {
		a.open = true
		return
	}
	if a.n >= len(a.active) {
		a.overflows.Inc()
		return
	}
	a.active[a.n] = e
	a.n++
}

// EndOfFrame implements ircapture.Decoder.
func (a *Assembler) EndOfFrame() {
	a.latch()
}

// latch publishes the frame in progress, if it holds any edge, and
// starts over. Interrupt context only.
func (a *Assembler) latch() {
	if a.n > 0 {
		a.latchedN = copy(a.latched, a.active[:a.n])
		if a.available.Load() {
			a.overruns.Inc()
		}
		a.available.Store(true)
	}
	a.n = 0
	a.open = false
}

// FrameAvailable reports whether a frame is pending. It needs no critical
// section and is cheap enough to poll.
func (a *Assembler) FrameAvailable() bool {
	return a.available.Load()
}

// FrameLen returns the number of edges of the pending frame, or 0.
func (a *Assembler) FrameLen() int {
	g := irq.Disable()
	defer g.Restore()

	if !a.available.Load() {
		return 0
	}
	return a.latchedN
}

// Capacity returns the maximum number of edges per frame.
func (a *Assembler) Capacity() int { return len(a.active) }

// CopyFrame copies up to len(dst) edges of the pending frame into dst,
// releases the frame and returns the number of edges copied.
// It returns ErrNoFrame, leaving all state untouched, if no frame is
// pending.
func (a *Assembler) CopyFrame(dst []ircapture.Edge) (int, error) {
	if !a.available.Load() {
		return 0, ErrNoFrame
	}

	g := irq.Disable()
	defer g.Restore()

	n := copy(dst, a.latched[:a.latchedN])
	a.available.Store(false)
	return n, nil
}

// Next is like CopyFrame but returns the copied edges as a Frame.
func (a *Assembler) Next(dst []ircapture.Edge) (ircapture.Frame, error) {
	n, err := a.CopyFrame(dst)
	if err != nil {
		return nil, err
	}
	return ircapture.Frame(dst[:n]), nil
}

// FrameOverrunCount returns how many pending frames were replaced before
// being taken.
func (a *Assembler) FrameOverrunCount() uint16 {
	g := irq.Disable()
	defer g.Restore()

	return uint16(a.overruns)
}

// ClearFrameOverrunCount clears the frame overrun counter and returns its
// previous value.
func (a *Assembler) ClearFrameOverrunCount() uint16 {
	g := irq.Disable()
	defer g.Restore()

	return a.overruns.Swap()
}

// SampleOverflowCount returns how many edges were dropped because the
// active buffer was full.
func (a *Assembler) SampleOverflowCount() uint16 {
	g := irq.Disable()
	defer g.Restore()

	return uint16(a.overflows)
}

// ClearSampleOverflowCount clears the sample overflow counter and returns
// its previous value.
func (a *Assembler) ClearSampleOverflowCount() uint16 {
	g := irq.Disable()
	defer g.Restore()

	return a.overflows.Swap()
}

var _ ircapture.Decoder = (*Assembler)(nil)
