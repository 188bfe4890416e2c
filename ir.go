// Package ircapture captures the timing waveform of an IR receiver from
// interrupt context and splits it into frames for protocol decoders.
//
// A capture source (Receiver for level-change interrupts, TimerReceiver
// for timers with input capture) measures the time between edges and
// hands every Edge to a Decoder. Frames end when the line has been idle
// longer than the dead time, which the source reports with EndOfFrame.
//
// The rawbuf and latch subpackages provide Decoders that store frames
// for foreground code.
package ircapture

import "time"

const (
	// Freq38Khz is the most commonly used frequency for IR remotes
	Freq38Khz = 38000

	// DefaultDeadTime is the idle gap that ends a frame. It is longer than
	// any gap inside a frame of the common remote protocols and shorter
	// than the gap between two button presses.
	DefaultDeadTime = 15 * time.Millisecond
)

// Edge is one transition of the receiver output.
// Level is the line level after the transition and Duration the time
// elapsed since the previous transition.
type Edge struct {
	Level    bool
	Duration time.Duration
}

// TimePair encodes two durations used to encode an on-off or off-on amount of time.
type TimePair [2]time.Duration

// FrameMarshaller defines an interface for marshalling data to slice of TimePairs
type FrameMarshaller interface {
	MarshalFrame() []TimePair
}

// Decoder consumes the edges of a capture source.
//
// Both methods are called from interrupt context: they must not block,
// allocate or call back into foreground APIs of the capture chain.
type Decoder interface {
	// EdgeEvent is called once per captured transition.
	EdgeEvent(Edge)
	// EndOfFrame is called when no more edges are expected for the
	// current frame.
	EndOfFrame()
}

type multiDecoder []Decoder

func (md multiDecoder) EdgeEvent(e Edge) {
	for i := range md {
		md[i].EdgeEvent(e)
	}
}

func (md multiDecoder) EndOfFrame() {
	for i := range md {
		md[i].EndOfFrame()
	}
}

// MultiDecoder accepts a list of Decoders and returns a Decoder that
// forwards every event to each of them, in order. In this way a single
// receiver can feed, e.g., a raw buffer and a protocol decoder.
//
//	raw := rawbuf.New(segments[:])
//	rx := ircapture.NewReceiver(pin, clock, ircapture.MultiDecoder(raw, nec))
func MultiDecoder(decs ...Decoder) Decoder {
	return multiDecoder(decs)
}
