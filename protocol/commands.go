package protocol

// CommandSpec describes one message on the bench link. Responses flow from
// the firmware to the host and have no handler.
type CommandSpec struct {
	Name     string
	Format   string
	Response bool
}

// Command names shared by firmware and host
const (
	MsgMotorStatus   = "dshot_status"
	MsgConfigError   = "config_error"
	MsgConfigMotor   = "config_dshot_motor"
	MsgConfigLoop    = "config_motor_loop"
	MsgSetThrottle   = "set_dshot_throttle"
	MsgSendCommand   = "send_dshot_command"
	MsgUpdate        = "dshot_update"
	MsgGetStatus     = "get_dshot_status"
	MsgEmergencyStop = "emergency_stop"
)

// MotorCommands fixes the link IDs: the firmware registers them in this
// order, so an entry's index is its ID. Append only.
var MotorCommands = []CommandSpec{
	{Name: MsgMotorStatus, Format: "motor=%c value=%hu configured=%c failsafe=%c", Response: true},
	{Name: MsgConfigError, Format: "motor=%c code=%c", Response: true},
	{Name: MsgConfigMotor, Format: "motor=%c variant=%c"},
	{Name: MsgConfigLoop, Format: "rate_hz=%u failsafe_ms=%u"},
	{Name: MsgSetThrottle, Format: "motor=%c throttle=%hu"},
	{Name: MsgSendCommand, Format: "motor=%c command=%c repeat=%c"},
	{Name: MsgUpdate},
	{Name: MsgGetStatus, Format: "motor=%c"},
	{Name: MsgEmergencyStop},
}

// CommandID returns the link ID for a command or response name
func CommandID(name string) (uint16, bool) {
	for i, entry := range MotorCommands {
		if entry.Name == name {
			return uint16(i), true
		}
	}
	return 0, false
}

// Config error codes carried by config_error
const (
	ConfigErrOther uint8 = iota
	ConfigErrMotorIndex
	ConfigErrAlreadyConfigured
	ConfigErrTimerCapacity
	ConfigErrChannel
	ConfigErrPinClaimed
	ConfigErrNoResource
	ConfigErrTimerClock
)
