package core

import "escdrive/protocol"

// MotorWriter is what the command layer and motor loop drive. The timer/DMA
// MotorOutput and the RP2040 PIO writer both implement it.
type MotorWriter interface {
	WriteMotor(index uint8, throttle uint16)
	WriteFrame(index uint8, f protocol.Frame)
	CompleteMotorUpdate()
	Configured(index uint8) bool
	MotorCount() uint8
}

var motorWriter MotorWriter

// SetMotorWriter sets the motor writer implementation
func SetMotorWriter(w MotorWriter) {
	motorWriter = w
}

// MustMotorWriter returns the motor writer or panics if not set
func MustMotorWriter() MotorWriter {
	if motorWriter == nil {
		panic("motor writer not set")
	}
	return motorWriter
}
