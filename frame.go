package ircapture

import "time"

// Frame is a captured frame, as returned by latch.Assembler.
type Frame []Edge

// Durations appends the edge durations of f to dst.
func (f Frame) Durations(dst []time.Duration) []time.Duration {
	for _, e := range f {
		dst = append(dst, e.Duration)
	}
	return dst
}

// MarshalFrame converts the frame into carrier on-off pairs so that it can
// be sent again with a Transmitter.
//
// Receivers pull their output low while they see the carrier, so an edge
// going high ends a mark and an edge going low ends a space. A frame that
// starts with a space gets a zero-length mark.
func (f Frame) MarshalFrame() []TimePair {
	out := make([]TimePair, 0, len(f)/2+1)
	open := false
	for _, e := range f {
		switch {
		case e.Level:
			out = append(out, TimePair{e.Duration, 0})
			open = true
		case open:
			out[len(out)-1][1] = e.Duration
			open = false
		default:
			out = append(out, TimePair{0, e.Duration})
		}
	}
	return out
}

var _ FrameMarshaller = Frame(nil)
