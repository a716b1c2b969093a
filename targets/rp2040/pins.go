//go:build rp2040

package main

import (
	"errors"
	"machine"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"escdrive/core"
)

const gpioCount = 30

var (
	errNoPin      = errors.New("no such pin")
	errNoPIOBlock = errors.New("no such PIO block")
)

// Motor outputs, indexed by motor. 0..3 run on PIO0, 4..7 on PIO1.
var motorPins = [...]machine.Pin{
	machine.GPIO2, machine.GPIO3, machine.GPIO4, machine.GPIO5,
	machine.GPIO6, machine.GPIO7, machine.GPIO8, machine.GPIO9,
}

// WS2812 status LED, as on RP2040-Zero style boards
const statusLEDPin = machine.GPIO16

// Pins held back from motor use
var reservedPins = [...]struct {
	pin   machine.Pin
	owner core.PinOwner
}{
	{statusLEDPin, core.OwnerLED},
	{machine.UART0_TX_PIN, core.OwnerSerial},
	{machine.UART0_RX_PIN, core.OwnerSerial},
}

// RPPinDriver tracks pin ownership and hands pins to a PIO block
type RPPinDriver struct {
	owners [gpioCount]core.PinOwner
}

func (d *RPPinDriver) ClaimPin(pin core.PinID, owner core.PinOwner) error {
	if pin >= gpioCount {
		return errNoPin
	}
	if d.owners[pin] != core.OwnerFree {
		return core.ErrPinClaimed
	}
	d.owners[pin] = owner
	return nil
}

func (d *RPPinDriver) ReleasePin(pin core.PinID) {
	if pin < gpioCount {
		d.owners[pin] = core.OwnerFree
	}
}

// ConfigureAlternate muxes the pin to PIO0 (af 0) or PIO1 (af 1)
func (d *RPPinDriver) ConfigureAlternate(pin core.PinID, af uint8) error {
	if pin >= gpioCount {
		return errNoPin
	}
	block := rp2pio.PIO0
	switch af {
	case 0:
	case 1:
		block = rp2pio.PIO1
	default:
		return errNoPIOBlock
	}
	machine.Pin(pin).Configure(machine.PinConfig{Mode: block.PinMode()})
	return nil
}
