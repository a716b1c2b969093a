//go:build stm32f103

package main

import (
	"machine"
	"time"

	"escdrive/core"
)

// F1ClockDriver gates peripheral clocks through RCC. The runtime sets up
// 72 MHz with APB1 at half speed; APB1 timers get the x2 multiplier back,
// so every timer counts at the core clock.
type F1ClockDriver struct{}

func (F1ClockDriver) EnableTimerClock(t core.TimerID) {
	switch t {
	case tim1Base:
		reg(rccAPB2ENR).SetBits(rccAPB2ENR_TIM1EN)
	case tim2Base:
		reg(rccAPB1ENR).SetBits(rccAPB1ENR_TIM2EN)
	case tim3Base:
		reg(rccAPB1ENR).SetBits(rccAPB1ENR_TIM3EN)
	case tim4Base:
		reg(rccAPB1ENR).SetBits(rccAPB1ENR_TIM4EN)
	}
}

func (F1ClockDriver) SystemClockHz() uint32 {
	return machine.CPUFrequency()
}

func (F1ClockDriver) TimerClockDivisor(t core.TimerID) uint32 {
	return 1
}

var bootTime time.Time

func InitClock() {
	bootTime = time.Now()
}

// UpdateSystemTime feeds microseconds since boot to the scheduler
func UpdateSystemTime() {
	core.SetTime(uint32(time.Since(bootTime).Microseconds()))
}
