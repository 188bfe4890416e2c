//go:build tinygo

package ircapture

import (
	"fmt"
	"machine"
	"time"

	"github.com/sparques/pwm"
)

// Transmitter drives an IR LED with a PWM carrier. It replays captured
// frames, e.g. to check a receiver set up with a loopback LED.
//
// ## Example
//
//	var active, latched [128]ircapture.Edge
//	asm := latch.New(active[:], latched[:])
//	rx := ircapture.NewPinReceiver(machine.GPIO2, asm)
//	rx.Start()
//
//	tx, err := ircapture.NewTransmitter(machine.GPIO3, ircapture.Freq38Khz)
//	if err != nil {
//		println(err.Error())
//		return
//	}
//
//	buf := make([]ircapture.Edge, 128)
//	for {
//		if f, err := asm.Next(buf); err == nil {
//			rx.Stop()
//			tx.Replay(f)
//			rx.Start()
//		}
//	}
type Transmitter struct {
	pin    machine.Pin
	pgroup pwm.Group
	ch     uint8
	duty   uint32
	freq   uint64
}

// NewTransmitter configures pin for a carrier at freq Hz; zero selects
// Freq38Khz.
func NewTransmitter(pin machine.Pin, freq uint64) (*Transmitter, error) {
	if freq == 0 {
		freq = Freq38Khz
	}
	pin.Configure(machine.PinConfig{Mode: machine.PinPWM})
	pgroup := pwm.Get(pin)
	err := pgroup.Configure(machine.PWMConfig{Period: uint64(1e9) / freq})
	if err != nil {
		return nil, fmt.Errorf("ircapture: could not configure PWM for pin %d: %w", pin, err)
	}
	ch, err := pgroup.Channel(pin)
	if err != nil {
		return nil, fmt.Errorf("ircapture: could not get PWM channel for pin %d: %w", pin, err)
	}
	pgroup.Set(ch, 0)
	return &Transmitter{
		pin:    pin,
		pgroup: pgroup,
		ch:     ch,
		duty:   pgroup.Top() / 2,
		freq:   freq,
	}, nil
}

// SendPair emits the carrier for pair[0] then stays dark for pair[1].
func (tx *Transmitter) SendPair(pair TimePair) {
	if pair[0] > 0 {
		tx.pgroup.Set(tx.ch, tx.duty)
		time.Sleep(pair[0])
	}
	tx.pgroup.Set(tx.ch, 0)
	time.Sleep(pair[1])
}

func (tx *Transmitter) SendPairs(pairs ...TimePair) {
	for _, p := range pairs {
		tx.SendPair(p)
	}
}

func (tx *Transmitter) SendFrame(fm FrameMarshaller) {
	tx.SendPairs(fm.MarshalFrame()...)
}

// Replay sends a captured frame again.
func (tx *Transmitter) Replay(f Frame) {
	tx.SendFrame(f)
}
