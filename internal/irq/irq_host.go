//go:build !tinygo

package irq

import "sync"

// one lock for the whole process, like the global interrupt enable bit.
var mu sync.Mutex

// Guard represents a held critical section.
type Guard struct{}

// Disable enters the critical section.
func Disable() Guard {
	mu.Lock()
	return Guard{}
}

// Restore leaves the critical section.
func (Guard) Restore() {
	mu.Unlock()
}
