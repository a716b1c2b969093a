package pio

// ClockDivider splits sysHz/tickHz into the state machine's 16.8 fixed
// point divider. Dividers below 1 are clamped to 1.
func ClockDivider(sysHz, tickHz uint32) (whole uint16, frac uint8) {
	if tickHz == 0 || sysHz <= tickHz {
		return 1, 0
	}
	w := sysHz / tickHz
	if w > 0xFFFF {
		return 0xFFFF, 0
	}
	return uint16(w), uint8(uint64(sysHz%tickHz) * 256 / uint64(tickHz))
}
