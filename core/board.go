package core

import (
	"errors"

	"escdrive/protocol"
)

var ErrNoResource = errors.New("no resource for motor")

// MotorConfigurator sets up a motor by index using board knowledge
type MotorConfigurator interface {
	ConfigureMotor(index uint8, variant protocol.Variant) error
}

// BoardMotors configures a MotorOutput from a board's resource table,
// indexed by motor
type BoardMotors struct {
	Output    *MotorOutput
	Resources []MotorResource
}

func (b *BoardMotors) ConfigureMotor(index uint8, variant protocol.Variant) error {
	if int(index) >= len(b.Resources) {
		return &ConfigError{Motor: index, Resource: "board", Err: ErrNoResource}
	}
	return b.Output.ConfigureMotor(index, b.Resources[index], variant)
}

// ConfigErrorCode maps a configuration failure to its config_error code
func ConfigErrorCode(err error) uint8 {
	switch {
	case errors.Is(err, ErrMotorIndex):
		return protocol.ConfigErrMotorIndex
	case errors.Is(err, ErrMotorConfigured):
		return protocol.ConfigErrAlreadyConfigured
	case errors.Is(err, ErrTimerCapacity):
		return protocol.ConfigErrTimerCapacity
	case errors.Is(err, ErrUnsupportedChannel):
		return protocol.ConfigErrChannel
	case errors.Is(err, ErrPinClaimed):
		return protocol.ConfigErrPinClaimed
	case errors.Is(err, ErrNoResource):
		return protocol.ConfigErrNoResource
	case errors.Is(err, ErrTimerClock):
		return protocol.ConfigErrTimerClock
	}
	return protocol.ConfigErrOther
}
