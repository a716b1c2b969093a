package main

import (
	"strings"
	"testing"

	"escdrive/protocol"
)

func TestParseFrame(t *testing.T) {
	f, err := parseFrame("1500")
	if err != nil {
		t.Fatalf("parseFrame: %v", err)
	}
	if f != 0x830B {
		t.Errorf("throttle 1500 = %#04x, want 0x830b", uint16(f))
	}

	f, err = parseFrame("beacon1")
	if err != nil {
		t.Fatalf("parseFrame: %v", err)
	}
	if f != protocol.CommandFrame(protocol.CmdBeacon1) || !f.Telemetry() {
		t.Errorf("beacon1 = %#04x", uint16(f))
	}

	if _, err := parseFrame("warp"); err == nil {
		t.Error("expected error for unknown name")
	}
}

func TestDescribeFrame(t *testing.T) {
	out := describeFrame(protocol.Frame(0x830B), protocol.DShot600)

	for _, want := range []string{
		"frame   0x830b 1000001100001011",
		"value   1048 telemetry=false checksum=0xb valid=true",
		"bit 1625ns",
		"frame 26µs",
		"ticks   29 14 14 14 14 14 29 29 14 14 14 14 29 14 29 29",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
}

func TestParseCommand(t *testing.T) {
	cmd, err := parseCommand("save_settings")
	if err != nil || cmd != protocol.CmdSaveSettings {
		t.Errorf("save_settings = %d, %v", cmd, err)
	}
	cmd, err = parseCommand("21")
	if err != nil || cmd != protocol.CmdSpinDirectionReversed {
		t.Errorf("21 = %d, %v", cmd, err)
	}
	if _, err := parseCommand("48"); err == nil {
		t.Error("expected error above CmdMax")
	}
	if _, err := parseMotor("8"); err == nil {
		t.Error("expected error for motor 8")
	}
}
