//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts masks interrupts so DMA completion handlers cannot run
// in the middle of a batch or a scheduler update
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}
