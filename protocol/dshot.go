package protocol

import "errors"

// DShot physical layer, expressed in timer ticks.
// A bit lasts BitLengthTicks; the line stays high for Bit1Ticks or Bit0Ticks.
const (
	Bit0Ticks      = 14
	Bit1Ticks      = 29
	BitLengthTicks = 39

	FrameBits = 16 // 11 value bits + telemetry + 4 checksum bits

	// ThrottleDisarm and below encode as value 0
	ThrottleDisarm = 1000

	// ValueMin is the first throttle value; 1..47 are special commands
	ValueMin = 48
	ValueMax = 2047
)

// TickBuffer holds the compare values streamed by DMA for one frame
type TickBuffer [FrameBits]uint8

// Variant selects the DShot bitrate
type Variant uint8

const (
	DShot150 Variant = iota
	DShot300
	DShot600
)

var ErrUnknownVariant = errors.New("unknown DShot variant")

// TickRate returns the timer tick frequency needed for the variant
func (v Variant) TickRate() uint32 {
	switch v {
	case DShot600:
		return 24000000
	case DShot300:
		return 12000000
	default:
		return 6000000
	}
}

// Bitrate returns the nominal bit rate in bits per second
func (v Variant) Bitrate() uint32 {
	switch v {
	case DShot600:
		return 600000
	case DShot300:
		return 300000
	default:
		return 150000
	}
}

func (v Variant) String() string {
	switch v {
	case DShot150:
		return "dshot150"
	case DShot300:
		return "dshot300"
	case DShot600:
		return "dshot600"
	}
	return "unknown"
}

// ParseVariant accepts "dshot150", "dshot300", "dshot600" or the bare rate
func ParseVariant(s string) (Variant, error) {
	switch s {
	case "dshot150", "DSHOT150", "150":
		return DShot150, nil
	case "dshot300", "DSHOT300", "300":
		return DShot300, nil
	case "dshot600", "DSHOT600", "600":
		return DShot600, nil
	}
	return 0, ErrUnknownVariant
}

// ThrottleToValue rescales a 1000..2000 style throttle into DShot space.
// Throttles at or below 1000 disarm. Nothing is clamped: inputs above 2999
// overflow the 11-bit field and wrap once packed into a Frame.
func ThrottleToValue(throttle uint16) uint16 {
	if throttle <= ThrottleDisarm {
		return 0
	}
	return (throttle-ThrottleDisarm)*2 + ValueMin
}

// Frame is a packed DShot frame: value in bits 15..5, telemetry request in
// bit 4 and checksum in bits 3..0.
type Frame uint16

// Checksum returns the nibble-wise XOR of a 12-bit value+telemetry packet
func Checksum(packet uint16) uint8 {
	return uint8((packet ^ (packet >> 4) ^ (packet >> 8)) & 0xF)
}

// NewFrame packs an 11-bit value and the telemetry bit and appends the checksum
func NewFrame(value uint16, telemetry bool) Frame {
	packet := (value & ValueMax) << 1
	if telemetry {
		packet |= 1
	}
	return Frame(packet<<4 | uint16(Checksum(packet)))
}

// ThrottleFrame is the frame sent for a throttle write. Telemetry is never
// requested for throttle updates.
func ThrottleFrame(throttle uint16) Frame {
	return NewFrame(ThrottleToValue(throttle), false)
}

func (f Frame) Value() uint16 {
	return uint16(f) >> 5
}

func (f Frame) Telemetry() bool {
	return uint16(f)&0x10 != 0
}

func (f Frame) Checksum() uint8 {
	return uint8(f & 0xF)
}

// Valid reports whether the checksum matches the packet
func (f Frame) Valid() bool {
	return Checksum(uint16(f)>>4) == f.Checksum()
}

// EncodeTicks expands the frame MSB first into compare values
func EncodeTicks(f Frame, buf *TickBuffer) {
	for i := 0; i < FrameBits; i++ {
		if uint16(f)&(0x8000>>i) != 0 {
			buf[i] = Bit1Ticks
		} else {
			buf[i] = Bit0Ticks
		}
	}
}

// DecodeTicks rebuilds a frame from compare values. Anything closer to
// Bit1Ticks than Bit0Ticks reads as a 1.
func DecodeTicks(buf *TickBuffer) Frame {
	var f uint16
	for i := 0; i < FrameBits; i++ {
		f <<= 1
		if buf[i] > (Bit0Ticks+Bit1Ticks)/2 {
			f |= 1
		}
	}
	return Frame(f)
}
