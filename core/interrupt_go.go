//go:build !tinygo

package core

// State stands in for the saved interrupt mask on host builds
type State uintptr

// Host builds have no interrupts to mask. Critical sections nest (the
// scheduler holds one while the motor loop flushes a batch), so this must
// stay a no-op rather than a lock.
func disableInterrupts() State { return 0 }

func restoreInterrupts(State) {}
