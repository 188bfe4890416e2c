package replay

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/sparques/ircapture"
	"github.com/sparques/ircapture/internal/sim"
	"github.com/sparques/ircapture/latch"
	"github.com/sparques/ircapture/rawbuf"
	"golang.org/x/sync/errgroup"
)

// Mode selects the decoder frames are collected with.
type Mode string

const (
	ModeLatch  Mode = "latch"  // latch.Assembler
	ModeBuffer Mode = "buffer" // rawbuf.Decoder
)

// Source selects the simulated capture source.
type Source string

const (
	SourcePin   Source = "pin"   // ircapture.Receiver
	SourceTimer Source = "timer" // ircapture.TimerReceiver
)

// Options configures a replay.
type Options struct {
	Mode            Mode
	Source          Source
	DeadTime        time.Duration // pin source
	Tick            time.Duration // timer source
	CounterBits     uint          // timer source
	BufferSize      int
	InProgressCount bool

	// Realtime paces edges by their duration and lets the consumer poll,
	// as on hardware: frames may be overrun. Otherwise the replay stops at
	// every completed frame until it has been consumed.
	Realtime bool

	Logger *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = ModeLatch
	}
	if o.Source == "" {
		o.Source = SourcePin
	}
	if o.DeadTime == 0 {
		o.DeadTime = ircapture.DefaultDeadTime
	}
	if o.Tick == 0 {
		o.Tick = 250 * time.Nanosecond
	}
	if o.CounterBits == 0 {
		o.CounterBits = 16
	}
	if o.BufferSize == 0 {
		o.BufferSize = 128
	}
	if o.Logger == nil {
		o.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return o
}

// Frame is a frame collected during a replay.
type Frame struct {
	Seq      int
	Segments []time.Duration
	Edges    ircapture.Frame // latch mode only
}

// Stats summarises a replay.
type Stats struct {
	Edges            int
	Frames           int
	SampleOverflows  uint16
	FrameOverruns    uint16
	SegmentOverflows uint16

	// FillingPeak is the largest SegmentCount the consumer saw while a
	// frame was still being captured. It stays 0 unless InProgressCount
	// is set (buffer mode).
	FillingPeak int
}

// Run feeds edges to a simulated receiver from one goroutine, standing in
// for the interrupt context, and collects frames from another, standing in
// for the foreground loop. sink is called for every frame, from the
// collecting goroutine.
func Run(ctx context.Context, opts Options, edges []ircapture.Edge, sink func(Frame) error) (Stats, error) {
	opts = opts.withDefaults()

	var store frameStore
	switch opts.Mode {
	case ModeLatch:
		store = newLatchStore(opts.BufferSize)
	case ModeBuffer:
		store = newBufferStore(opts.BufferSize, opts.InProgressCount, opts.Logger)
	default:
		return Stats{}, fmt.Errorf("replay: invalid mode %q", opts.Mode)
	}

	drv, err := newDriver(opts, edges, store.decoder())
	if err != nil {
		return Stats{}, err
	}

	var (
		stats = Stats{Edges: len(edges)}
		wake  = make(chan struct{})
		ack   = make(chan struct{})
		emit  = func(f Frame) error {
			stats.Frames++
			f.Seq = stats.Frames
			opts.Logger.Debug("frame", "seq", f.Seq, "segments", len(f.Segments))
			return sink(f)
		}
	)

	grp, ctx := errgroup.WithContext(ctx)

	// interrupt side.
	grp.Go(func() error {
		defer close(wake)
		handoff := func() error {
			if opts.Realtime || !(store.pending() || store.polling()) {
				return nil
			}
			select {
			case wake <- struct{}{}:
			case <-ctx.Done():
				return ctx.Err()
			}
			select {
			case <-ack:
				return nil
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		for _, e := range edges {
			if opts.Realtime {
				select {
				case <-time.After(e.Duration):
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			if drv.quiet(e.Duration) {
				if err := handoff(); err != nil {
					return err
				}
			}
			drv.edge(e)
			if err := handoff(); err != nil {
				return err
			}
		}
		drv.idle()
		return handoff()
	})

	// foreground side.
	grp.Go(func() error {
		var tick <-chan time.Time
		if opts.Realtime {
			t := time.NewTicker(time.Millisecond)
			defer t.Stop()
			tick = t.C
		}
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-tick:
				if err := store.drain(emit); err != nil {
					return err
				}
			case _, ok := <-wake:
				err := store.drain(emit)
				if err != nil || !ok {
					return err
				}
				select {
				case ack <- struct{}{}:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	})

	err = grp.Wait()
	store.stats(&stats)
	if err != nil {
		return stats, fmt.Errorf("replay: %w", err)
	}

	opts.Logger.Info("replay done",
		"edges", stats.Edges,
		"frames", stats.Frames,
		"sample_overflows", stats.SampleOverflows,
		"frame_overruns", stats.FrameOverruns,
		"segment_overflows", stats.SegmentOverflows,
		"filling_peak", stats.FillingPeak,
	)
	return stats, nil
}

type driver interface {
	// quiet lets the line idle for d ahead of the next edge and reports
	// whether that ended a frame.
	quiet(d time.Duration) bool
	edge(ircapture.Edge)
	idle()
}

func newDriver(opts Options, edges []ircapture.Edge, dec ircapture.Decoder) (driver, error) {
	// the line rests at the level the first edge leaves.
	level := true
	if len(edges) > 0 {
		level = !edges[0].Level
	}

	switch opts.Source {
	case SourcePin:
		var (
			clk = sim.NewClock(0)
			pin = sim.NewPin(level)
			rx  = ircapture.NewReceiver(pin, clk, dec,
				ircapture.WithDeadTime(opts.DeadTime),
				ircapture.WithLogger(opts.Logger),
			)
		)
		return &pinDriver{rx: rx, clk: clk, pin: pin}, nil

	case SourceTimer:
		if opts.CounterBits > 32 {
			return nil, fmt.Errorf("replay: invalid counter width %d", opts.CounterBits)
		}
		timer := sim.NewTimer(opts.CounterBits)
		rx := ircapture.NewTimerReceiver(timer, opts.Tick, ircapture.PolarityAuto, level, dec)
		opts.Logger.Debug("timer receiver configured",
			"tick", opts.Tick,
			"idle_timeout", rx.IdleTimeout(opts.CounterBits),
		)
		return &timerDriver{rx: rx, timer: timer}, nil

	default:
		return nil, fmt.Errorf("replay: invalid source %q", opts.Source)
	}
}

type pinDriver struct {
	rx  *ircapture.Receiver
	clk *sim.Clock
	pin *sim.Pin

	waited time.Duration // part of the next edge's duration already elapsed
}

func (d *pinDriver) quiet(dur time.Duration) bool {
	step := d.rx.DeadTime() + time.Microsecond
	if dur < step {
		return false
	}
	d.clk.Advance(step)
	d.waited = step
	return d.rx.Idle()
}

func (d *pinDriver) edge(e ircapture.Edge) {
	e.Duration -= d.waited
	d.waited = 0
	sim.Feed(d.rx, d.clk, d.pin, e)
}

func (d *pinDriver) idle() {
	d.clk.Advance(d.rx.DeadTime() + time.Microsecond)
	d.rx.Idle()
}

type timerDriver struct {
	rx    *ircapture.TimerReceiver
	timer *sim.Timer
}

func (d *timerDriver) quiet(dur time.Duration) bool {
	if !d.timer.OverflowEnabled() || uint64(dur/d.rx.Tick()) < uint64(1)<<d.timer.Bits {
		return false
	}
	d.timer.Idle(d.rx)
	return true
}

func (d *timerDriver) edge(e ircapture.Edge) {
	d.timer.Edge(d.rx, uint64(e.Duration/d.rx.Tick()))
}

func (d *timerDriver) idle() {
	d.timer.Idle(d.rx)
}

type frameStore interface {
	decoder() ircapture.Decoder
	// pending reports whether a frame waits for the foreground.
	pending() bool
	// polling reports whether the foreground also looks at frames still
	// being captured, after every edge.
	polling() bool
	drain(emit func(Frame) error) error
	stats(*Stats)
}

type latchStore struct {
	asm *latch.Assembler
	buf []ircapture.Edge
}

func newLatchStore(size int) *latchStore {
	return &latchStore{
		asm: latch.New(make([]ircapture.Edge, size), make([]ircapture.Edge, size)),
		buf: make([]ircapture.Edge, size),
	}
}

func (s *latchStore) decoder() ircapture.Decoder { return s.asm }
func (s *latchStore) pending() bool { return s.asm.FrameAvailable() }
func (s *latchStore) polling() bool { return false }

func (s *latchStore) drain(emit func(Frame) error) error {
	for s.asm.FrameAvailable() {
		f, err := s.asm.Next(s.buf)
		if err != nil {
			if errors.Is(err, latch.ErrNoFrame) {
				return nil
			}
			return err
		}
		err = emit(Frame{
			Segments: f.Durations(nil),
			Edges:    append(ircapture.Frame(nil), f...),
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *latchStore) stats(st *Stats) {
	st.SampleOverflows = s.asm.SampleOverflowCount()
	st.FrameOverruns = s.asm.FrameOverrunCount()
}

type bufferStore struct {
	dec        *rawbuf.Decoder
	inProgress bool
	overflows  ircapture.Counter
	peak       int
	logger     *slog.Logger
}

func newBufferStore(size int, inProgress bool, logger *slog.Logger) *bufferStore {
	return &bufferStore{
		dec:        rawbuf.New(make([]time.Duration, size), rawbuf.WithInProgressCount(inProgress)),
		inProgress: inProgress,
		logger:     logger,
	}
}

func (s *bufferStore) decoder() ircapture.Decoder { return s.dec }
func (s *bufferStore) pending() bool { return s.dec.IsDone() }
func (s *bufferStore) polling() bool { return s.inProgress }

func (s *bufferStore) drain(emit func(Frame) error) error {
	if !s.dec.IsDone() {
		if n := s.dec.SegmentCount(); n > 0 {
			s.peak = max(s.peak, n)
			s.logger.Debug("frame filling", "segments", n, "state", s.dec.State())
		}
		return nil
	}
	segs := append([]time.Duration(nil), s.dec.Segments()...)
	s.overflows.Add(s.dec.ClearSegmentOverflowCount())
	s.dec.ReadyForNextFrame()
	return emit(Frame{Segments: segs})
}

func (s *bufferStore) stats(st *Stats) {
	st.SegmentOverflows = uint16(s.overflows)
	st.FillingPeak = s.peak
}
