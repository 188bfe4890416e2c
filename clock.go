package ircapture

import "time"

// Clock is a free-running microsecond counter. It wraps around at 2^32.
type Clock interface {
	Micros() uint32
}

// Pin reads the current level of the receiver output.
// machine.Pin satisfies it.
type Pin interface {
	Get() bool
}

// SystemClock is a Clock backed by the runtime monotonic clock.
type SystemClock struct {
	epoch time.Time
}

// NewSystemClock returns a Clock counting from now.
func NewSystemClock() *SystemClock {
	return &SystemClock{epoch: time.Now()}
}

func (c *SystemClock) Micros() uint32 {
	return uint32(time.Since(c.epoch) / time.Microsecond)
}
