package ircapture

import "math"

// Counter is a saturating event counter: once at its maximum it stays
// there instead of wrapping to zero.
//
// Counter does no locking; owners update and read it inside their
// critical section.
type Counter uint16

// CounterMax is the value a Counter saturates at.
const CounterMax Counter = math.MaxUint16

// Inc adds one, unless the counter is saturated.
func (c *Counter) Inc() {
	if *c < CounterMax {
		*c++
	}
}

// Add adds n, clamping at CounterMax.
func (c *Counter) Add(n uint16) {
	if uint32(*c)+uint32(n) >= uint32(CounterMax) {
		*c = CounterMax
		return
	}
	*c += Counter(n)
}

// Swap clears the counter and returns its previous value.
func (c *Counter) Swap() uint16 {
	v := *c
	*c = 0
	return uint16(v)
}

// Saturated reports whether the counter stopped counting.
func (c Counter) Saturated() bool { return c == CounterMax }
