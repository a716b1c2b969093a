//go:build tinygo

package core

import "sync/atomic"

// systemTicks is written by the main loop and read from DMA interrupts
var systemTicks uint32

func getSystemTicks() uint32 {
	return atomic.LoadUint32(&systemTicks)
}

func setSystemTicks(ticks uint32) {
	atomic.StoreUint32(&systemTicks, ticks)
}
