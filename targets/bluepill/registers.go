//go:build stm32f103

package main

import (
	"runtime/volatile"
	"unsafe"
)

// STM32F103 peripheral memory map
const (
	rccBase  = 0x40021000
	dma1Base = 0x40020000

	gpioABase = 0x40010800
	gpioBBase = 0x40010C00
	gpioCBase = 0x40011000

	tim1Base = 0x40012C00
	tim2Base = 0x40000000
	tim3Base = 0x40000400
	tim4Base = 0x40000800
)

// RCC registers
const (
	rccAHBENR  = rccBase + 0x14
	rccAPB2ENR = rccBase + 0x18
	rccAPB1ENR = rccBase + 0x1C

	rccAHBENR_DMA1EN = 1 << 0

	rccAPB2ENR_AFIOEN = 1 << 0
	rccAPB2ENR_IOPAEN = 1 << 2
	rccAPB2ENR_IOPBEN = 1 << 3
	rccAPB2ENR_IOPCEN = 1 << 4
	rccAPB2ENR_TIM1EN = 1 << 11

	rccAPB1ENR_TIM2EN = 1 << 0
	rccAPB1ENR_TIM3EN = 1 << 1
	rccAPB1ENR_TIM4EN = 1 << 2
)

// General purpose timer register offsets
const (
	timCR1   = 0x00
	timDIER  = 0x0C
	timSR    = 0x10
	timEGR   = 0x14
	timCCMR1 = 0x18
	timCCMR2 = 0x1C
	timCCER  = 0x20
	timCNT   = 0x24
	timPSC   = 0x28
	timARR   = 0x2C
	timCCR1  = 0x34
	timBDTR  = 0x44

	timCR1_CEN  = 1 << 0
	timCR1_DIR  = 1 << 4
	timCR1_CMS  = 3 << 5
	timCR1_ARPE = 1 << 7
	timCR1_CKD  = 3 << 8

	timEGR_UG = 1 << 0

	timBDTR_MOE = 1 << 15

	// per compare channel, within the 8-bit half of CCMRx
	timCCMR_CCS  = 3 << 0
	timCCMR_OCPE = 1 << 3
	timCCMR_OCM  = 7 << 4
	timCCMR_PWM1 = 6 << 4

	// per compare channel, within the 4-bit group of CCER
	timCCER_CCE = 1 << 0
	timCCER_CCP = 1 << 1
)

// DMA1 registers; channel registers repeat every 20 bytes from channel 1
const (
	dmaISR  = dma1Base + 0x00
	dmaIFCR = dma1Base + 0x04

	dmaCCR1   = dma1Base + 0x08
	dmaCNDTR1 = dma1Base + 0x0C
	dmaCPAR1  = dma1Base + 0x10
	dmaCMAR1  = dma1Base + 0x14

	dmaChannelStride = 20
	dmaChannels      = 7

	dmaCCR_EN    = 1 << 0
	dmaCCR_TCIE  = 1 << 1
	dmaCCR_DIR   = 1 << 4
	dmaCCR_CIRC  = 1 << 5
	dmaCCR_PINC  = 1 << 6
	dmaCCR_MINC  = 1 << 7
	dmaCCR_PSIZE = 8  // 2-bit field
	dmaCCR_MSIZE = 10 // 2-bit field
	dmaCCR_PL    = 12 // 2-bit field
)

// GPIO register offsets
const (
	gpioCRL  = 0x00
	gpioCRH  = 0x04
	gpioBSRR = 0x10

	// MODE=11 (50 MHz output), CNF=10 (alternate function push-pull)
	gpioModeAltPushPull = 0xB
)

func reg(addr uintptr) *volatile.Register32 {
	return (*volatile.Register32)(unsafe.Pointer(addr))
}
