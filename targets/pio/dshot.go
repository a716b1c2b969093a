//go:build rp2040

package pio

// PIO DShot backend using tinygo-org/pio package
// Each motor gets a state machine; the state machine clock runs at the
// variant's tick rate so one instruction cycle is one DShot tick.

import (
	"errors"
	"machine"
	"runtime/interrupt"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"

	"escdrive/core"
	"escdrive/protocol"
)

// buildDShotProgram creates the frame program using AssemblerV0.
// A frame is pushed as the low 16 bits of a word and shifted out MSB first.
// Every bit lasts 39 cycles: high for 29 (one) or 14 (zero).
//
//	bitloop:  out x, 1            ; low
//	          set pins, 1 [12]    ; high 13
//	          jmp !x zero         ; high 1
//	          set pins, 1 [14]    ; high 15 -> 29
//	          set pins, 0 [7]     ; low 8
//	          jmp !osre bitloop   ; low 1, +1 for the out -> 10
//	zero:     set pins, 0 [22]    ; low 23
//	          jmp !osre bitloop   ; low 1, +1 for the out -> 25
func buildDShotProgram() []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		// .wrap_target
		asm.Pull(false, true).Encode(),                    // 0: pull block
		asm.Out(rp2pio.OutDestNull, 16).Encode(),          // 1: out null, 16
		asm.Out(rp2pio.OutDestX, 1).Encode(),              // 2: bitloop: out x, 1
		asm.Set(rp2pio.SetDestPins, 1).Delay(12).Encode(), // 3
		asm.Jmp(8, rp2pio.JmpXZero).Encode(),              // 4: jmp !x zero
		asm.Set(rp2pio.SetDestPins, 1).Delay(14).Encode(), // 5
		asm.Set(rp2pio.SetDestPins, 0).Delay(7).Encode(),  // 6
		asm.Jmp(2, rp2pio.JmpOSRNotEmpty).Encode(),        // 7: jmp !osre bitloop
		asm.Set(rp2pio.SetDestPins, 0).Delay(22).Encode(), // 8: zero
		asm.Jmp(2, rp2pio.JmpOSRNotEmpty).Encode(),        // 9: jmp !osre bitloop
		// .wrap
	}
}

// Load at offset 0 for correct jump addresses
const dshotPIOOrigin = 0

// Motors 0..3 run on PIO0, 4..7 on PIO1
const statesPerPIO = 4

var errStateMachineBusy = errors.New("PIO state machine in use")

type pioMotor struct {
	sm         rp2pio.StateMachine
	frame      protocol.Frame
	claimed    bool
	configured bool
}

// DShotWriter implements core.MotorWriter and core.MotorConfigurator with
// PIO state machines
type DShotWriter struct {
	pins      []machine.Pin
	pinDriver core.PinDriver

	blocks [2]*rp2pio.PIO
	loaded [2]bool
	offset [2]uint8

	motors [core.MaxSupportedMotors]pioMotor
}

// NewDShotWriter takes the board's motor pins, indexed by motor
func NewDShotWriter(pins []machine.Pin, pinDriver core.PinDriver) *DShotWriter {
	return &DShotWriter{
		pins:      pins,
		pinDriver: pinDriver,
		blocks:    [2]*rp2pio.PIO{rp2pio.PIO0, rp2pio.PIO1},
	}
}

func (w *DShotWriter) ConfigureMotor(index uint8, variant protocol.Variant) error {
	if index >= core.MaxSupportedMotors {
		return &core.ConfigError{Motor: index, Resource: "motor", Err: core.ErrMotorIndex}
	}
	if int(index) >= len(w.pins) {
		return &core.ConfigError{Motor: index, Resource: "board", Err: core.ErrNoResource}
	}
	m := &w.motors[index]
	if m.configured {
		return &core.ConfigError{Motor: index, Resource: "motor", Err: core.ErrMotorConfigured}
	}

	// The state machine and program stay with the motor once taken, so a
	// failed call can be retried. The pin is given back on failure.
	block := index / statesPerPIO
	hw := w.blocks[block]
	if !m.claimed {
		m.sm = hw.StateMachine(index % statesPerPIO)
		if !m.sm.TryClaim() {
			return &core.ConfigError{Motor: index, Resource: "pio", Err: errStateMachineBusy}
		}
		m.claimed = true
	}

	program := buildDShotProgram()
	if !w.loaded[block] {
		offset, err := hw.AddProgram(program, dshotPIOOrigin)
		if err != nil {
			return &core.ConfigError{Motor: index, Resource: "pio", Err: err}
		}
		w.offset[block] = offset
		w.loaded[block] = true
	}
	offset := w.offset[block]

	pin := w.pins[index]
	if err := w.pinDriver.ClaimPin(core.PinID(pin), core.OwnerMotor); err != nil {
		return &core.ConfigError{Motor: index, Resource: "pin", Err: err}
	}
	// alternate function selects the PIO block
	if err := w.pinDriver.ConfigureAlternate(core.PinID(pin), block); err != nil {
		w.pinDriver.ReleasePin(core.PinID(pin))
		return &core.ConfigError{Motor: index, Resource: "pin", Err: err}
	}

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetSetPins(pin, 1)
	// shift left so the frame leaves MSB first; explicit pull
	cfg.SetOutShift(false, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(ClockDivider(machine.CPUFrequency(), variant.TickRate()))

	m.sm.Init(offset, cfg)
	m.sm.SetPindirsConsecutive(pin, 1, true)
	m.sm.SetPinsConsecutive(pin, 1, false)
	m.sm.SetEnabled(true)

	m.frame = protocol.ThrottleFrame(0)
	m.configured = true
	core.DebugPrintln("[PIO] motor " + itoa(int(index)) + " on gpio" + itoa(int(pin)) + " " + variant.String())
	return nil
}

func (w *DShotWriter) WriteMotor(index uint8, throttle uint16) {
	w.WriteFrame(index, protocol.ThrottleFrame(throttle))
}

// WriteFrame stores the frame; it goes out on the next CompleteMotorUpdate
func (w *DShotWriter) WriteFrame(index uint8, f protocol.Frame) {
	if index >= core.MaxSupportedMotors || !w.motors[index].configured {
		return
	}
	w.motors[index].frame = f
}

// CompleteMotorUpdate pushes every motor's frame back to back so all state
// machines start within a few cycles of each other
func (w *DShotWriter) CompleteMotorUpdate() {
	state := interrupt.Disable()
	for i := range w.motors {
		m := &w.motors[i]
		if !m.configured || m.sm.IsTxFIFOFull() {
			continue
		}
		m.sm.TxPut(uint32(m.frame))
	}
	interrupt.Restore(state)
}

func (w *DShotWriter) Configured(index uint8) bool {
	return index < core.MaxSupportedMotors && w.motors[index].configured
}

func (w *DShotWriter) MotorCount() uint8 {
	return uint8(len(w.pins))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [10]byte
	pos := len(buf)
	for n > 0 {
		pos--
		buf[pos] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[pos:])
}
