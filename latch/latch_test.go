package latch_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/sparques/ircapture"
	"github.com/sparques/ircapture/internal/sim"
	"github.com/sparques/ircapture/latch"
)

func edges(us ...int) []ircapture.Edge {
	out := make([]ircapture.Edge, len(us))
	for i, v := range us {
		out[i] = ircapture.Edge{Level: i%2 == 1, Duration: time.Duration(v) * time.Microsecond}
	}
	return out
}

func feed(a *latch.Assembler, us ...int) {
	for _, e := range edges(us...) {
		a.EdgeEvent(e)
	}
}

func newAssembler(size int, opts ...latch.Option) *latch.Assembler {
	return latch.New(make([]ircapture.Edge, size), make([]ircapture.Edge, size), opts...)
}

func TestDeadTimeLatch(t *testing.T) {
	c := qt.New(t)

	a := newAssembler(100, latch.WithDeadTime(15*time.Millisecond))
	feed(a, 9000, 4500, 560, 1690, 560, 560)
	c.Assert(a.FrameAvailable(), qt.IsFalse)

	// the edge after the gap latches the frame and opens the next one.
	feed(a, 20000)
	c.Assert(a.FrameAvailable(), qt.IsTrue)
	c.Assert(a.FrameLen(), qt.Equals, 5)

	dst := make([]ircapture.Edge, 100)
	f, err := a.Next(dst)
	c.Assert(err, qt.IsNil)
	c.Assert(f.Durations(nil), qt.DeepEquals, ircapture.Frame(edges(9000, 4500, 560, 1690, 560, 560)[1:]).Durations(nil))
	c.Assert(f[0].Level, qt.IsTrue)
	c.Assert(a.FrameAvailable(), qt.IsFalse)
	c.Assert(a.FrameLen(), qt.Equals, 0)

	feed(a, 100, 200)
	a.EndOfFrame()
	n, err := a.CopyFrame(dst)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 2)
}

func TestEndOfFrame(t *testing.T) {
	c := qt.New(t)

	a := newAssembler(10)
	a.EndOfFrame()
	c.Assert(a.FrameAvailable(), qt.IsFalse)

	// without a dead time long gaps are ordinary edges.
	feed(a, 9000, 40000, 560)
	a.EndOfFrame()
	c.Assert(a.FrameLen(), qt.Equals, 2)

	dst := make([]ircapture.Edge, 1)
	n, err := a.CopyFrame(dst)
	c.Assert(err, qt.IsNil)
	c.Assert(n, qt.Equals, 1)
	c.Assert(dst[0].Duration, qt.Equals, 40*time.Millisecond)

	// an opening edge alone is not a frame.
	feed(a, 9000)
	a.EndOfFrame()
	c.Assert(a.FrameAvailable(), qt.IsFalse)
}

func TestNoFrame(t *testing.T) {
	c := qt.New(t)

	a := newAssembler(10)
	feed(a, 9000, 1, 2)

	dst := []ircapture.Edge{{Level: true, Duration: time.Second}}
	n, err := a.CopyFrame(dst)
	c.Assert(errors.Is(err, latch.ErrNoFrame), qt.IsTrue)
	c.Assert(n, qt.Equals, 0)
	c.Assert(dst[0].Duration, qt.Equals, time.Second)

	// the frame in progress was not disturbed.
	a.EndOfFrame()
	c.Assert(a.FrameLen(), qt.Equals, 2)
}

func TestOverrun(t *testing.T) {
	c := qt.New(t)

	a := newAssembler(10)
	feed(a, 9000, 1)
	a.EndOfFrame()
	feed(a, 9000, 2, 3)
	a.EndOfFrame()
	c.Assert(a.FrameOverrunCount(), qt.Equals, uint16(1))

	// the consumer gets the newer frame.
	dst := make([]ircapture.Edge, 10)
	f, err := a.Next(dst)
	c.Assert(err, qt.IsNil)
	c.Assert(f.Durations(nil), qt.DeepEquals, []time.Duration{2 * time.Microsecond, 3 * time.Microsecond})

	c.Assert(a.ClearFrameOverrunCount(), qt.Equals, uint16(1))
	c.Assert(a.ClearFrameOverrunCount(), qt.Equals, uint16(0))

	// no overrun once the frame was taken.
	feed(a, 9000, 4)
	a.EndOfFrame()
	c.Assert(a.FrameOverrunCount(), qt.Equals, uint16(0))
}

func TestOverrunSaturates(t *testing.T) {
	c := qt.New(t)

	a := newAssembler(4)
	for i := 0; i < int(ircapture.CounterMax)+10; i++ {
		feed(a, 9000, 1)
		a.EndOfFrame()
	}
	c.Assert(a.FrameOverrunCount(), qt.Equals, uint16(ircapture.CounterMax))
	c.Assert(a.FrameAvailable(), qt.IsTrue)

	c.Assert(a.ClearFrameOverrunCount(), qt.Equals, uint16(ircapture.CounterMax))
	c.Assert(a.FrameOverrunCount(), qt.Equals, uint16(0))
}

func TestSampleOverflow(t *testing.T) {
	c := qt.New(t)

	a := latch.New(make([]ircapture.Edge, 8), make([]ircapture.Edge, 3))
	c.Assert(a.Capacity(), qt.Equals, 3)

	feed(a, 9000, 1, 2, 3, 4, 5)
	a.EndOfFrame()
	c.Assert(a.SampleOverflowCount(), qt.Equals, uint16(2))

	dst := make([]ircapture.Edge, 8)
	f, err := a.Next(dst)
	c.Assert(err, qt.IsNil)
	c.Assert(f, qt.HasLen, 3)
	c.Assert(f[2].Duration, qt.Equals, 3*time.Microsecond)

	c.Assert(a.ClearSampleOverflowCount(), qt.Equals, uint16(2))
	c.Assert(a.ClearSampleOverflowCount(), qt.Equals, uint16(0))
}

func TestSampleOverflowSaturates(t *testing.T) {
	c := qt.New(t)

	a := newAssembler(0)
	for i := 0; i < int(ircapture.CounterMax)+10; i++ {
		a.EdgeEvent(ircapture.Edge{Duration: time.Microsecond})
	}
	c.Assert(a.SampleOverflowCount(), qt.Equals, uint16(ircapture.CounterMax))
}

func TestReceiverToConsumer(t *testing.T) {
	c := qt.New(t)

	var (
		clk = sim.NewClock(0)
		pin = sim.NewPin(true)
		a   = newAssembler(64)
		rx  = ircapture.NewReceiver(pin, clk, a)
	)

	frames := make(chan []time.Duration)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		defer close(frames)
		dst := make([]ircapture.Edge, 64)
		for i := 0; i < 3; i++ {
			for !a.FrameAvailable() {
				time.Sleep(10 * time.Microsecond)
			}
			f, err := a.Next(dst)
			if err != nil {
				return
			}
			frames <- f.Durations(nil)
		}
	}()

	want := []time.Duration{4500 * time.Microsecond, 560 * time.Microsecond, 1690 * time.Microsecond}
	go func() {
		for i := 0; i < 3; i++ {
			sim.Feed(rx, clk, pin, edges(40000, 4500, 560, 1690)...)
			clk.Advance(20 * time.Millisecond)
			rx.Idle()
			for a.FrameAvailable() {
				time.Sleep(10 * time.Microsecond)
			}
		}
	}()

	n := 0
	for got := range frames {
		c.Assert(got, qt.DeepEquals, want)
		n++
	}
	wg.Wait()
	c.Assert(n, qt.Equals, 3)
	c.Assert(a.FrameOverrunCount(), qt.Equals, uint16(0))
}
