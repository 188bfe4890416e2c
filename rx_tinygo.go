//go:build tinygo

package ircapture

import "machine"

// PinReceiver is a Receiver bound to a GPIO pin's level-change interrupt.
type PinReceiver struct {
	*Receiver
	pin machine.Pin
}

// NewPinReceiver configures pin as an input and returns a receiver for it.
// Call Start to begin capturing.
func NewPinReceiver(pin machine.Pin, dec Decoder, opts ...Option) *PinReceiver {
	// the most common receivers have a pull up pin builtin
	// but in the future, may want to add the option to use PinInputPullup
	pin.Configure(machine.PinConfig{Mode: machine.PinInput})
	return &PinReceiver{
		Receiver: NewReceiver(pin, NewSystemClock(), dec, opts...),
		pin:      pin,
	}
}

// Start sets the interrupt handler and thus starts processing signals.
func (rx *PinReceiver) Start() error {
	if rx.logger != nil {
		rx.logger.Info("ir receiver started", "pin", int(rx.pin), "dead_time", rx.deadTime)
	}
	return rx.pin.SetInterrupt(machine.PinFalling|machine.PinRising, rx.interruptHandler)
}

// Stop disables the interrupt handler.
func (rx *PinReceiver) Stop() error {
	if rx.logger != nil {
		rx.logger.Info("ir receiver stopped", "pin", int(rx.pin))
	}
	return rx.pin.SetInterrupt(machine.PinFalling|machine.PinRising, nil)
}

func (rx *PinReceiver) interruptHandler(machine.Pin) {
	rx.HandleEdge()
}
