// Package irq provides the critical section used to share state between
// interrupt handlers and foreground code.
//
// A Guard is obtained with Disable and must be released with Restore on
// every path, usually with defer:
//
//	g := irq.Disable()
//	defer g.Restore()
//
// Under TinyGo this masks interrupts on the running core. On a host build
// it takes a process-wide lock, so code that simulates an interrupt
// handler in a goroutine is serialised against foreground code in the
// same way a real handler is.
//
// Guards do not nest on host builds: code holding a Guard must not call
// anything that takes one.
package irq
