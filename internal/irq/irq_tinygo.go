//go:build tinygo

package irq

import "runtime/interrupt"

// Guard holds the interrupt state saved by Disable.
type Guard struct {
	state interrupt.State
}

// Disable masks interrupts and returns the state to restore.
func Disable() Guard {
	return Guard{state: interrupt.Disable()}
}

// Restore puts back the interrupt state saved by Disable.
func (g Guard) Restore() {
	interrupt.Restore(g.state)
}
