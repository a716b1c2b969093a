package protocol

// Command is a DShot special command, sent in place of a throttle value
type Command uint8

const (
	CmdMotorStop Command = iota
	CmdBeacon1
	CmdBeacon2
	CmdBeacon3
	CmdBeacon4
	CmdBeacon5
	CmdESCInfo
	CmdSpinDirection1
	CmdSpinDirection2
	Cmd3DModeOff
	Cmd3DModeOn
	CmdSettingsRequest
	CmdSaveSettings
	_
	_
	_
	_
	_
	_
	_
	CmdSpinDirectionNormal
	CmdSpinDirectionReversed
	CmdLED0On // BLHeli32 only
	CmdLED1On
	CmdLED2On
	CmdLED3On
	CmdLED0Off
	CmdLED1Off
	CmdLED2Off
	CmdLED3Off
	CmdAudioStreamModeOnOff // KISS
	CmdSilentModeOnOff      // KISS

	CmdMax Command = ValueMin - 1
)

// Repeat counts ESCs expect before they act on a settings command
const (
	CommandRepeatDefault  = 1
	CommandRepeatSettings = 10
)

var commandNames = map[string]Command{
	"stop":            CmdMotorStop,
	"beacon1":         CmdBeacon1,
	"beacon2":         CmdBeacon2,
	"beacon3":         CmdBeacon3,
	"beacon4":         CmdBeacon4,
	"beacon5":         CmdBeacon5,
	"esc_info":        CmdESCInfo,
	"spin_direction1": CmdSpinDirection1,
	"spin_direction2": CmdSpinDirection2,
	"3d_off":          Cmd3DModeOff,
	"3d_on":           Cmd3DModeOn,
	"save_settings":   CmdSaveSettings,
	"spin_normal":     CmdSpinDirectionNormal,
	"spin_reversed":   CmdSpinDirectionReversed,
	"led0_on":         CmdLED0On,
	"led1_on":         CmdLED1On,
	"led2_on":         CmdLED2On,
	"led3_on":         CmdLED3On,
	"led0_off":        CmdLED0Off,
	"led1_off":        CmdLED1Off,
	"led2_off":        CmdLED2Off,
	"led3_off":        CmdLED3Off,
}

// LookupCommand resolves a command name as typed on the bench CLI
func LookupCommand(name string) (Command, bool) {
	cmd, ok := commandNames[name]
	return cmd, ok
}

// CommandFrame builds the frame for a special command. Flight firmware
// always sets the telemetry bit on commands.
func CommandFrame(cmd Command) Frame {
	return NewFrame(uint16(cmd), true)
}

// Repeat returns how many consecutive frames the ESC needs to see
func (c Command) Repeat() uint8 {
	switch c {
	case CmdSpinDirection1, CmdSpinDirection2, Cmd3DModeOff, Cmd3DModeOn,
		CmdSaveSettings, CmdSpinDirectionNormal, CmdSpinDirectionReversed:
		return CommandRepeatSettings
	}
	return CommandRepeatDefault
}
