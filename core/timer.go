package core

// TimerFreq is the rate of the clock targets feed into SetTime. Both
// targets count microseconds.
const TimerFreq = 1000000

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current system time (for testing/hardware integration)
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// TimerFromUS converts microseconds to timer ticks
func TimerFromUS(us uint32) uint32 {
	return uint32(uint64(us) * TimerFreq / 1000000)
}

// TimerFromMS converts milliseconds to timer ticks
func TimerFromMS(ms uint32) uint32 {
	return uint32(uint64(ms) * TimerFreq / 1000)
}

// TimerToUS converts timer ticks to microseconds
func TimerToUS(ticks uint32) uint32 {
	return uint32(uint64(ticks) * 1000000 / TimerFreq)
}

// ProcessTimers runs every timer that is due. Targets call it from their
// main loop after SetTime.
func ProcessTimers() {
	currentTime = GetTime()
	TimerDispatch()
}
