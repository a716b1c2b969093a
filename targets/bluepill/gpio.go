//go:build stm32f103

package main

import (
	"errors"

	"escdrive/core"
)

// Pin IDs number the ports in blocks of 16: PA0 = 0, PB0 = 16, PC0 = 32
const (
	portA = 0
	portB = 16
	portC = 32

	pinCount = 48
)

var errNoPin = errors.New("no such pin")

// F1PinDriver tracks pin ownership and switches pins to timer outputs
type F1PinDriver struct {
	owners [pinCount]core.PinOwner
}

func (d *F1PinDriver) ClaimPin(pin core.PinID, owner core.PinOwner) error {
	if pin >= pinCount {
		return errNoPin
	}
	if d.owners[pin] != core.OwnerFree {
		return core.ErrPinClaimed
	}
	d.owners[pin] = owner
	return nil
}

func (d *F1PinDriver) ReleasePin(pin core.PinID) {
	if pin < pinCount {
		d.owners[pin] = core.OwnerFree
	}
}

// ConfigureAlternate ignores af: on F1 the timer owns the pin once it is
// in alternate mode, and the default mapping needs no AFIO remap
func (d *F1PinDriver) ConfigureAlternate(pin core.PinID, af uint8) error {
	var base uintptr
	switch {
	case pin < portB:
		reg(rccAPB2ENR).SetBits(rccAPB2ENR_IOPAEN | rccAPB2ENR_AFIOEN)
		base = gpioABase
	case pin < portC:
		reg(rccAPB2ENR).SetBits(rccAPB2ENR_IOPBEN | rccAPB2ENR_AFIOEN)
		base = gpioBBase
	case pin < pinCount:
		reg(rccAPB2ENR).SetBits(rccAPB2ENR_IOPCEN | rccAPB2ENR_AFIOEN)
		base = gpioCBase
	default:
		return errNoPin
	}

	n := uint32(pin % 16)
	cr := reg(base + gpioCRL)
	if n >= 8 {
		cr = reg(base + gpioCRH)
		n -= 8
	}
	cr.ReplaceBits(gpioModeAltPushPull, 0xF, uint8(n*4))
	return nil
}
