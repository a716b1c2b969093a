package core

// TimerID identifies a physical timer. Targets use the peripheral base
// address so identities never collide.
type TimerID uintptr

// DMAStreamID identifies a DMA stream or channel on the target
type DMAStreamID uint8

// PinID identifies a hardware pin
type PinID uint16

// DMASource is a bitmask of timer DMA request sources (TIMx_DIER bits)
type DMASource uint16

// IRQPriority is the preemption priority for DMA completion interrupts
type IRQPriority uint8

// PinOwner tags who reserved a pin
type PinOwner uint8

const (
	OwnerFree PinOwner = iota
	OwnerMotor
	OwnerLED
	OwnerSerial
)

// TimeBase is the shared counter setup of a timer
type TimeBase struct {
	Prescaler uint16
	Period    uint16
}

// DMAWidth is the transfer width on one side of a DMA stream
type DMAWidth uint8

const (
	WidthByte DMAWidth = iota
	WidthHalfWord
	WidthWord
)

// DMAPriority is the arbitration priority of a stream
type DMAPriority uint8

const (
	PriorityLow DMAPriority = iota
	PriorityMedium
	PriorityHigh
	PriorityVeryHigh
)

// DMAConfig describes a memory to peripheral stream
type DMAConfig struct {
	PeripheralAddr  uintptr
	MemoryAddr      uintptr
	Count           uint16
	PeripheralInc   bool
	MemoryInc       bool
	PeripheralWidth DMAWidth
	MemoryWidth     DMAWidth
	Circular        bool
	Priority        DMAPriority
}

// ClockDriver is the reset and clock control service
type ClockDriver interface {
	// EnableTimerClock gates the timer's bus clock on
	EnableTimerClock(t TimerID)

	// SystemClockHz returns the core clock
	SystemClockHz() uint32

	// TimerClockDivisor returns how much slower than the core clock the
	// timer's kernel clock runs
	TimerClockDivisor(t TimerID) uint32
}

// PinDriver hands out pins with exclusive ownership
type PinDriver interface {
	// ClaimPin fails with ErrPinClaimed if another owner holds the pin
	ClaimPin(pin PinID, owner PinOwner) error

	// ReleasePin hands a claimed pin back
	ReleasePin(pin PinID)

	// ConfigureAlternate switches the pin to push-pull alternate function
	// output with pull-up
	ConfigureAlternate(pin PinID, af uint8) error
}

// TimerDriver exposes the timer register operations the motor output uses
type TimerDriver interface {
	Disable(t TimerID)
	Enable(t TimerID)

	// InitTimeBase programs prescaler and auto-reload, up-counting, clock
	// division 1
	InitTimeBase(t TimerID, tb TimeBase)

	// InitOutputCompare sets the channel to PWM mode 1, output enabled,
	// active high, pulse 0
	InitOutputCompare(t TimerID, ch TimerChannel)
	EnableComparePreload(t TimerID, ch TimerChannel)

	EnableMainOutput(t TimerID)
	EnableAutoReloadPreload(t TimerID)

	// RegisterBase is the address compare register offsets are added to
	RegisterBase(t TimerID) uintptr

	SetCounter(t TimerID, v uint32)

	// EnableDMARequests sets every source in the mask with one write
	EnableDMARequests(t TimerID, sources DMASource)
}

// DMADriver exposes the DMA stream operations the motor output uses
type DMADriver interface {
	Disable(s DMAStreamID)
	Enable(s DMAStreamID)

	// Reset returns the stream registers to their reset values
	Reset(s DMAStreamID)
	Init(s DMAStreamID, cfg DMAConfig)

	EnableTransferCompleteInterrupt(s DMAStreamID)
	SetTransferCount(s DMAStreamID, n uint16)

	TransferComplete(s DMAStreamID) bool
	ClearTransferComplete(s DMAStreamID)
}

// IRQDriver wires DMA completion interrupts to a handler. The handler
// receives the tag given at registration.
type IRQDriver interface {
	RegisterDMAHandler(s DMAStreamID, priority IRQPriority, tag uint8, handler func(tag uint8)) error
}

// Hardware bundles the services a MotorOutput needs
type Hardware struct {
	Clock ClockDriver
	Pins  PinDriver
	Timer TimerDriver
	DMA   DMADriver
	IRQ   IRQDriver
}
