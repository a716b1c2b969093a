//go:build stm32f103

package main

import "escdrive/core"

// F1TimerDriver drives TIM1..TIM4 compare channels for DShot
type F1TimerDriver struct{}

func (F1TimerDriver) Disable(t core.TimerID) {
	reg(uintptr(t) + timCR1).ClearBits(timCR1_CEN)
}

func (F1TimerDriver) Enable(t core.TimerID) {
	reg(uintptr(t) + timCR1).SetBits(timCR1_CEN)
}

func (F1TimerDriver) InitTimeBase(t core.TimerID, tb core.TimeBase) {
	base := uintptr(t)
	// up-counting, edge aligned, no clock division
	reg(base + timCR1).ClearBits(timCR1_DIR | timCR1_CMS | timCR1_CKD)
	reg(base + timARR).Set(uint32(tb.Period))
	reg(base + timPSC).Set(uint32(tb.Prescaler))
	// latch the prescaler now instead of at the first overflow
	reg(base + timEGR).Set(timEGR_UG)
	reg(base + timSR).Set(0)
}

// ccmr returns the mode register and bit shift of a channel
func ccmr(t core.TimerID, ch core.TimerChannel) (uintptr, uint32) {
	n := uint32(ch - core.Channel1)
	addr := uintptr(t) + timCCMR1
	if n >= 2 {
		addr = uintptr(t) + timCCMR2
	}
	return addr, (n % 2) * 8
}

func (F1TimerDriver) InitOutputCompare(t core.TimerID, ch core.TimerChannel) {
	n := uint32(ch - core.Channel1)
	ccer := reg(uintptr(t) + timCCER)
	ccer.ClearBits(timCCER_CCE << (n * 4))

	addr, shift := ccmr(t, ch)
	mode := reg(addr)
	mode.ClearBits((timCCMR_CCS | timCCMR_OCM) << shift)
	mode.SetBits(timCCMR_PWM1 << shift)

	reg(uintptr(t) + timCCR1 + uintptr(n)*4).Set(0)

	// active high, enabled
	ccer.ClearBits(timCCER_CCP << (n * 4))
	ccer.SetBits(timCCER_CCE << (n * 4))
}

func (F1TimerDriver) EnableComparePreload(t core.TimerID, ch core.TimerChannel) {
	addr, shift := ccmr(t, ch)
	reg(addr).SetBits(timCCMR_OCPE << shift)
}

// EnableMainOutput only applies to the advanced timer
func (F1TimerDriver) EnableMainOutput(t core.TimerID) {
	if t == tim1Base {
		reg(tim1Base + timBDTR).SetBits(timBDTR_MOE)
	}
}

func (F1TimerDriver) EnableAutoReloadPreload(t core.TimerID) {
	reg(uintptr(t) + timCR1).SetBits(timCR1_ARPE)
}

func (F1TimerDriver) RegisterBase(t core.TimerID) uintptr {
	return uintptr(t)
}

func (F1TimerDriver) SetCounter(t core.TimerID, v uint32) {
	reg(uintptr(t) + timCNT).Set(v)
}

func (F1TimerDriver) EnableDMARequests(t core.TimerID, sources core.DMASource) {
	reg(uintptr(t) + timDIER).SetBits(uint32(sources))
}
