package core

import (
	"errors"

	"escdrive/protocol"
)

var (
	ErrCommandTable = errors.New("command table out of order")
	ErrArgRange     = errors.New("argument out of range")
)

// MotorHandlers binds the link commands to a motor loop, a writer and the
// board's motor configurator
type MotorHandlers struct {
	loop     *MotorLoop
	motors   MotorConfigurator
	writer   MotorWriter
	registry *CommandRegistry
}

func NewMotorHandlers(loop *MotorLoop, motors MotorConfigurator, writer MotorWriter) *MotorHandlers {
	return &MotorHandlers{loop: loop, motors: motors, writer: writer}
}

// InitMotorCommands registers the motor commands on the global registry
func InitMotorCommands(loop *MotorLoop, motors MotorConfigurator, writer MotorWriter) error {
	return NewMotorHandlers(loop, motors, writer).Register(globalRegistry)
}

// Register adds every command and response in link order. The registry
// must be empty so IDs match the host's table.
func (h *MotorHandlers) Register(r *CommandRegistry) error {
	handlers := map[string]CommandHandler{
		protocol.MsgConfigMotor:   h.handleConfigMotor,
		protocol.MsgConfigLoop:    h.handleConfigLoop,
		protocol.MsgSetThrottle:   h.handleSetThrottle,
		protocol.MsgSendCommand:   h.handleSendCommand,
		protocol.MsgUpdate:        h.handleUpdate,
		protocol.MsgGetStatus:     h.handleGetStatus,
		protocol.MsgEmergencyStop: h.handleEmergencyStop,
	}

	for i, entry := range protocol.MotorCommands {
		var handler CommandHandler
		if !entry.Response {
			handler = handlers[entry.Name]
		}
		if id := r.Register(entry.Name, entry.Format, handler); int(id) != i {
			return ErrCommandTable
		}
	}
	h.registry = r
	return nil
}

func (h *MotorHandlers) handleConfigMotor(data *[]byte) error {
	var motor, variant uint32
	if err := protocol.DecodeArgs(data, &motor, &variant); err != nil {
		return err
	}
	if variant > uint32(protocol.DShot600) {
		return protocol.ErrUnknownVariant
	}

	var err error
	if motor >= MaxSupportedMotors {
		err = ErrMotorIndex
	} else {
		err = h.motors.ConfigureMotor(uint8(motor), protocol.Variant(variant))
	}
	if err != nil {
		DebugPrintln("[DSHOT] config failed: " + err.Error())
		code := ConfigErrorCode(err)
		h.registry.SendResponse(protocol.MsgConfigError, func(output protocol.OutputBuffer) {
			protocol.EncodeVLQUint(output, motor)
			protocol.EncodeVLQUint(output, uint32(code))
		})
		return nil
	}
	DebugPrintln("[DSHOT] motor " + utoa(motor) + " configured " + protocol.Variant(variant).String())
	return nil
}

func (h *MotorHandlers) handleConfigLoop(data *[]byte) error {
	var rate, failsafeMs uint32
	if err := protocol.DecodeArgs(data, &rate, &failsafeMs); err != nil {
		return err
	}

	if err := h.loop.Configure(rate, failsafeMs); err != nil {
		return err
	}
	h.loop.Stop()
	h.loop.Start()
	return nil
}

func (h *MotorHandlers) handleSetThrottle(data *[]byte) error {
	var motor, throttle uint32
	if err := protocol.DecodeArgs(data, &motor, &throttle); err != nil {
		return err
	}
	if motor >= MaxSupportedMotors {
		return ErrMotorIndex
	}
	if throttle > 0xFFFF {
		return ErrArgRange
	}
	h.loop.SetThrottle(uint8(motor), uint16(throttle))
	return nil
}

func (h *MotorHandlers) handleSendCommand(data *[]byte) error {
	var motor, command, repeat uint32
	if err := protocol.DecodeArgs(data, &motor, &command, &repeat); err != nil {
		return err
	}
	if motor >= MaxSupportedMotors {
		return ErrMotorIndex
	}
	if command > uint32(protocol.CmdMax) {
		return protocol.ErrUnknownCommand
	}
	if repeat > 0xFF {
		return ErrArgRange
	}
	h.loop.QueueCommand(uint8(motor), protocol.Command(command), uint8(repeat))
	return nil
}

func (h *MotorHandlers) handleUpdate(data *[]byte) error {
	h.writer.CompleteMotorUpdate()
	return nil
}

func (h *MotorHandlers) handleGetStatus(data *[]byte) error {
	var motor uint32
	if err := protocol.DecodeArgs(data, &motor); err != nil {
		return err
	}

	// an out of range motor reads as unconfigured rather than aliasing
	var value uint16
	var configured bool
	if motor < MaxSupportedMotors {
		value, configured = h.loop.Status(uint8(motor))
	}
	failsafe := h.loop.Failsafe()
	h.registry.SendResponse(protocol.MsgMotorStatus, func(output protocol.OutputBuffer) {
		protocol.EncodeVLQUint(output, motor)
		protocol.EncodeVLQUint(output, uint32(value))
		protocol.EncodeVLQUint(output, boolArg(configured))
		protocol.EncodeVLQUint(output, boolArg(failsafe))
	})
	return nil
}

func (h *MotorHandlers) handleEmergencyStop(data *[]byte) error {
	h.loop.EmergencyStop()
	DebugPrintln("[DSHOT] emergency stop")
	return nil
}

func boolArg(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
