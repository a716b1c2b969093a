//go:build stm32f103

package main

import (
	"device/stm32"
	"errors"
	"runtime/interrupt"

	"escdrive/core"
)

var errDMAChannel = errors.New("no such DMA1 channel")

// F1DMADriver drives DMA1 channels 1..7. Stream IDs are channel numbers.
type F1DMADriver struct{}

func NewF1DMADriver() F1DMADriver {
	reg(rccAHBENR).SetBits(rccAHBENR_DMA1EN)
	return F1DMADriver{}
}

func dmaCCR(s core.DMAStreamID) uintptr {
	return dmaCCR1 + uintptr(s-1)*dmaChannelStride
}

// dmaFlags returns the channel's flag nibble shifted into place
func dmaFlags(s core.DMAStreamID, flags uint32) uint32 {
	return flags << (4 * uint32(s-1))
}

const (
	dmaFlagGIF  = 1 << 0
	dmaFlagTCIF = 1 << 1
	dmaFlagAll  = 0xF
)

func (F1DMADriver) Disable(s core.DMAStreamID) {
	reg(dmaCCR(s)).ClearBits(dmaCCR_EN)
}

func (F1DMADriver) Enable(s core.DMAStreamID) {
	reg(dmaCCR(s)).SetBits(dmaCCR_EN)
}

func (F1DMADriver) Reset(s core.DMAStreamID) {
	ccr := dmaCCR(s)
	reg(ccr).Set(0)
	reg(ccr + (dmaCNDTR1 - dmaCCR1)).Set(0)
	reg(ccr + (dmaCPAR1 - dmaCCR1)).Set(0)
	reg(ccr + (dmaCMAR1 - dmaCCR1)).Set(0)
	reg(dmaIFCR).Set(dmaFlags(s, dmaFlagAll))
}

func width(w core.DMAWidth) uint32 {
	return uint32(w) & 3
}

func (F1DMADriver) Init(s core.DMAStreamID, cfg core.DMAConfig) {
	ccr := dmaCCR(s)
	reg(ccr + (dmaCPAR1 - dmaCCR1)).Set(uint32(cfg.PeripheralAddr))
	reg(ccr + (dmaCMAR1 - dmaCCR1)).Set(uint32(cfg.MemoryAddr))
	reg(ccr + (dmaCNDTR1 - dmaCCR1)).Set(uint32(cfg.Count))

	// memory to peripheral; F1 zero-extends byte reads into the half-word
	// compare register
	v := uint32(dmaCCR_DIR)
	if cfg.PeripheralInc {
		v |= dmaCCR_PINC
	}
	if cfg.MemoryInc {
		v |= dmaCCR_MINC
	}
	if cfg.Circular {
		v |= dmaCCR_CIRC
	}
	v |= width(cfg.PeripheralWidth) << dmaCCR_PSIZE
	v |= width(cfg.MemoryWidth) << dmaCCR_MSIZE
	v |= (uint32(cfg.Priority) & 3) << dmaCCR_PL
	reg(ccr).Set(v)
}

func (F1DMADriver) EnableTransferCompleteInterrupt(s core.DMAStreamID) {
	reg(dmaCCR(s)).SetBits(dmaCCR_TCIE)
}

func (F1DMADriver) SetTransferCount(s core.DMAStreamID, n uint16) {
	reg(dmaCCR(s) + (dmaCNDTR1 - dmaCCR1)).Set(uint32(n))
}

func (F1DMADriver) TransferComplete(s core.DMAStreamID) bool {
	return reg(dmaISR).HasBits(dmaFlags(s, dmaFlagTCIF))
}

func (F1DMADriver) ClearTransferComplete(s core.DMAStreamID) {
	reg(dmaIFCR).Set(dmaFlags(s, dmaFlagTCIF|dmaFlagGIF))
}

// dmaHandler is one registered completion callback
type dmaHandler struct {
	fn  func(tag uint8)
	tag uint8
}

var dmaHandlers [dmaChannels + 1]dmaHandler

// dmaInterrupts are created up front; TinyGo needs constant IRQ numbers
var dmaInterrupts [dmaChannels + 1]interrupt.Interrupt

func initDMAInterrupts() {
	dmaInterrupts[1] = interrupt.New(stm32.IRQ_DMA1_Channel1, func(interrupt.Interrupt) { dmaIRQ(1) })
	dmaInterrupts[2] = interrupt.New(stm32.IRQ_DMA1_Channel2, func(interrupt.Interrupt) { dmaIRQ(2) })
	dmaInterrupts[3] = interrupt.New(stm32.IRQ_DMA1_Channel3, func(interrupt.Interrupt) { dmaIRQ(3) })
	dmaInterrupts[4] = interrupt.New(stm32.IRQ_DMA1_Channel4, func(interrupt.Interrupt) { dmaIRQ(4) })
	dmaInterrupts[5] = interrupt.New(stm32.IRQ_DMA1_Channel5, func(interrupt.Interrupt) { dmaIRQ(5) })
	dmaInterrupts[6] = interrupt.New(stm32.IRQ_DMA1_Channel6, func(interrupt.Interrupt) { dmaIRQ(6) })
	dmaInterrupts[7] = interrupt.New(stm32.IRQ_DMA1_Channel7, func(interrupt.Interrupt) { dmaIRQ(7) })
}

func dmaIRQ(ch core.DMAStreamID) {
	h := &dmaHandlers[ch]
	if h.fn != nil {
		h.fn(h.tag)
		return
	}
	// nobody owns the channel; keep the interrupt from retriggering
	reg(dmaIFCR).Set(dmaFlags(ch, dmaFlagAll))
}

// F1IRQDriver routes DMA1 channel interrupts to core handlers
type F1IRQDriver struct{}

func (F1IRQDriver) RegisterDMAHandler(s core.DMAStreamID, priority core.IRQPriority, tag uint8, handler func(tag uint8)) error {
	if s < 1 || s > dmaChannels {
		return errDMAChannel
	}
	dmaHandlers[s] = dmaHandler{fn: handler, tag: tag}

	intr := dmaInterrupts[s]
	// Cortex-M3 implements the top four priority bits
	intr.SetPriority(uint8(priority) << 4)
	intr.Enable()
	return nil
}
