package core

import (
	"errors"
	"fmt"
	"strings"
)

// mockHAL implements every hardware service and records each call
type mockHAL struct {
	trace []string

	sysclk  uint32
	divisor uint32

	pins     map[PinID]PinOwner
	timeBase map[TimerID]TimeBase
	counter  map[TimerID]uint32
	requests map[TimerID]DMASource
	running  map[TimerID]bool

	streams  map[DMAStreamID]DMAConfig
	enabled  map[DMAStreamID]bool
	count    map[DMAStreamID]uint16
	complete map[DMAStreamID]bool

	handlers map[DMAStreamID]func(uint8)
	tags     map[DMAStreamID]uint8
	irqErr   error
}

func newMockHAL() *mockHAL {
	return &mockHAL{
		sysclk:   72000000,
		divisor:  1,
		pins:     make(map[PinID]PinOwner),
		timeBase: make(map[TimerID]TimeBase),
		counter:  make(map[TimerID]uint32),
		requests: make(map[TimerID]DMASource),
		running:  make(map[TimerID]bool),
		streams:  make(map[DMAStreamID]DMAConfig),
		enabled:  make(map[DMAStreamID]bool),
		count:    make(map[DMAStreamID]uint16),
		complete: make(map[DMAStreamID]bool),
		handlers: make(map[DMAStreamID]func(uint8)),
		tags:     make(map[DMAStreamID]uint8),
	}
}

func (h *mockHAL) hardware() Hardware {
	return Hardware{Clock: h, Pins: h, Timer: h, DMA: (*mockDMA)(h), IRQ: h}
}

func (h *mockHAL) record(format string, args ...interface{}) {
	h.trace = append(h.trace, fmt.Sprintf(format, args...))
}

// count of trace entries starting with prefix
func (h *mockHAL) calls(prefix string) int {
	n := 0
	for _, s := range h.trace {
		if strings.HasPrefix(s, prefix) {
			n++
		}
	}
	return n
}

func (h *mockHAL) resetTrace() {
	h.trace = nil
}

// ClockDriver

func (h *mockHAL) EnableTimerClock(t TimerID) { h.record("clock %#x", uintptr(t)) }
func (h *mockHAL) SystemClockHz() uint32      { return h.sysclk }
func (h *mockHAL) TimerClockDivisor(TimerID) uint32 {
	return h.divisor
}

// PinDriver

func (h *mockHAL) ClaimPin(pin PinID, owner PinOwner) error {
	if cur, ok := h.pins[pin]; ok && cur != OwnerFree {
		return ErrPinClaimed
	}
	h.pins[pin] = owner
	h.record("claim %d", pin)
	return nil
}

func (h *mockHAL) ReleasePin(pin PinID) {
	delete(h.pins, pin)
	h.record("release %d", pin)
}

func (h *mockHAL) ConfigureAlternate(pin PinID, af uint8) error {
	h.record("alt %d af=%d", pin, af)
	return nil
}

// TimerDriver

func (h *mockHAL) Disable(t TimerID) {
	h.running[t] = false
	h.record("timer_disable %#x", uintptr(t))
}

func (h *mockHAL) Enable(t TimerID) {
	h.running[t] = true
	h.record("timer_enable %#x", uintptr(t))
}

func (h *mockHAL) InitTimeBase(t TimerID, tb TimeBase) {
	h.timeBase[t] = tb
	h.record("timebase %#x psc=%d arr=%d", uintptr(t), tb.Prescaler, tb.Period)
}

func (h *mockHAL) InitOutputCompare(t TimerID, ch TimerChannel) {
	h.record("oc_init %#x %v", uintptr(t), ch)
}

func (h *mockHAL) EnableComparePreload(t TimerID, ch TimerChannel) {
	h.record("oc_preload %#x %v", uintptr(t), ch)
}

func (h *mockHAL) EnableMainOutput(t TimerID) { h.record("moe %#x", uintptr(t)) }

func (h *mockHAL) EnableAutoReloadPreload(t TimerID) { h.record("arpe %#x", uintptr(t)) }

func (h *mockHAL) RegisterBase(t TimerID) uintptr { return uintptr(t) }

func (h *mockHAL) SetCounter(t TimerID, v uint32) {
	h.counter[t] = v
	h.record("cnt %#x %d", uintptr(t), v)
}

func (h *mockHAL) EnableDMARequests(t TimerID, sources DMASource) {
	h.requests[t] |= sources
	h.record("dier %#x %#x", uintptr(t), uint16(sources))
}

// IRQDriver

func (h *mockHAL) RegisterDMAHandler(s DMAStreamID, priority IRQPriority, tag uint8, handler func(uint8)) error {
	if h.irqErr != nil {
		return h.irqErr
	}
	h.handlers[s] = handler
	h.tags[s] = tag
	h.record("irq %d prio=%d tag=%d", s, priority, tag)
	return nil
}

// fire simulates the DMA interrupt for a stream
func (h *mockHAL) fire(s DMAStreamID) {
	h.handlers[s](h.tags[s])
}

// mockDMA gives the DMA methods their own receiver so they do not collide
// with the timer methods of the same name
type mockDMA mockHAL

func (d *mockDMA) Disable(s DMAStreamID) {
	d.enabled[s] = false
	(*mockHAL)(d).record("dma_disable %d", s)
}

func (d *mockDMA) Enable(s DMAStreamID) {
	d.enabled[s] = true
	(*mockHAL)(d).record("dma_enable %d", s)
}

func (d *mockDMA) Reset(s DMAStreamID) {
	delete(d.streams, s)
	(*mockHAL)(d).record("dma_reset %d", s)
}

func (d *mockDMA) Init(s DMAStreamID, cfg DMAConfig) {
	d.streams[s] = cfg
	(*mockHAL)(d).record("dma_init %d", s)
}

func (d *mockDMA) EnableTransferCompleteInterrupt(s DMAStreamID) {
	(*mockHAL)(d).record("dma_tcie %d", s)
}

func (d *mockDMA) SetTransferCount(s DMAStreamID, n uint16) {
	d.count[s] = n
	(*mockHAL)(d).record("dma_count %d %d", s, n)
}

func (d *mockDMA) TransferComplete(s DMAStreamID) bool {
	return d.complete[s]
}

func (d *mockDMA) ClearTransferComplete(s DMAStreamID) {
	d.complete[s] = false
	(*mockHAL)(d).record("dma_clear %d", s)
}

var errIRQBusy = errors.New("irq busy")
