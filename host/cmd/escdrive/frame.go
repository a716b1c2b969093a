package main

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"escdrive/protocol"
)

// parseFrame reads a throttle number or a special command name
func parseFrame(s string) (protocol.Frame, error) {
	if cmd, ok := protocol.LookupCommand(s); ok {
		return protocol.CommandFrame(cmd), nil
	}
	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, fmt.Errorf("%q: not a throttle or command", s)
	}
	return protocol.ThrottleFrame(uint16(n)), nil
}

// describeFrame renders a frame with its fields, its bits and the pulse
// widths the output would generate for the variant
func describeFrame(f protocol.Frame, v protocol.Variant) string {
	var buf protocol.TickBuffer
	protocol.EncodeTicks(f, &buf)

	tickNs := 1e9 / float64(v.TickRate())
	frameTime := protocol.FrameBits * protocol.BitLengthTicks * time.Second / time.Duration(v.TickRate())

	var sb strings.Builder
	fmt.Fprintf(&sb, "frame   0x%04x %016b\n", uint16(f), uint16(f))
	fmt.Fprintf(&sb, "value   %d telemetry=%t checksum=0x%x valid=%t\n",
		f.Value(), f.Telemetry(), f.Checksum(), f.Valid())
	fmt.Fprintf(&sb, "%-7s %d ticks/s, bit %.0fns (high %.0fns/%.0fns), frame %v\n",
		v, v.TickRate(), protocol.BitLengthTicks*tickNs,
		protocol.Bit1Ticks*tickNs, protocol.Bit0Ticks*tickNs, frameTime)

	ticks := make([]string, len(buf))
	for i, t := range buf {
		ticks[i] = strconv.Itoa(int(t))
	}
	fmt.Fprintf(&sb, "ticks   %s\n", strings.Join(ticks, " "))
	return sb.String()
}
