//go:build rp2040

package main

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ws2812"

	"escdrive/core"
)

var (
	colorIdle     = color.RGBA{R: 0, G: 0, B: 16}
	colorRunning  = color.RGBA{R: 0, G: 32, B: 0}
	colorFailsafe = color.RGBA{R: 48, G: 0, B: 0}
	colorOff      = color.RGBA{}
)

// StatusLED shows the motor loop state on a single WS2812
type StatusLED struct {
	dev  ws2812.Device
	last color.RGBA
	set  bool
}

func NewStatusLED(pin machine.Pin) *StatusLED {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	return &StatusLED{dev: ws2812.New(pin)}
}

// Update picks a color for the loop state; failsafe blinks at 5Hz.
// The LED is only written on change.
func (s *StatusLED) Update(loop *core.MotorLoop) {
	c := colorIdle
	switch {
	case loop.Failsafe():
		c = colorOff
		if (core.GetTime()/100000)%2 == 0 {
			c = colorFailsafe
		}
	case loop.Running():
		c = colorRunning
	}
	if s.set && c == s.last {
		return
	}
	if err := s.dev.WriteColors([]color.RGBA{c}); err != nil {
		return
	}
	s.last = c
	s.set = true
}
