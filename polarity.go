package ircapture

// Polarity selects which edge direction a capture source arms for first.
type Polarity uint8

const (
	// PolarityAuto arms for the edge leaving the level the line has at
	// setup. Best effort: a line caught mid-transition picks the wrong one.
	PolarityAuto Polarity = iota
	PolarityRising
	PolarityFalling
)

// Resolve returns true when the first edge to capture is rising, given the
// line level read at setup.
func (p Polarity) Resolve(level bool) (rising bool) {
	switch p {
	case PolarityRising:
		return true
	case PolarityFalling:
		return false
	default:
		return !level
	}
}

func (p Polarity) String() string {
	switch p {
	case PolarityAuto:
		return "auto"
	case PolarityRising:
		return "rising"
	case PolarityFalling:
		return "falling"
	default:
		return "invalid"
	}
}
