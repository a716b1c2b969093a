package core

import (
	"errors"
	"unsafe"

	"escdrive/protocol"
)

// MaxSupportedMotors bounds the motor index space
const MaxSupportedMotors = 8

// DMA completion priority used when the resource table leaves it at zero
const DefaultDMAIRQPriority IRQPriority = 2

var (
	ErrMotorIndex         = errors.New("motor index out of range")
	ErrMotorConfigured    = errors.New("motor already configured")
	ErrTimerCapacity      = errors.New("too many motor timers")
	ErrUnsupportedChannel = errors.New("unsupported timer channel")
	ErrPinClaimed         = errors.New("pin already claimed")
	ErrTimerClock         = errors.New("timer clock cannot reach tick rate")
)

// ConfigError reports which motor and which resource failed to configure
type ConfigError struct {
	Motor    uint8
	Resource string
	Err      error
}

func (e *ConfigError) Error() string {
	return "motor " + itoa(int(e.Motor)) + " " + e.Resource + ": " + e.Err.Error()
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// MotorResource is one row of a board's resource table
type MotorResource struct {
	Timer       TimerID
	Channel     TimerChannel
	Pin         PinID
	AltFunc     uint8
	Stream      DMAStreamID
	IRQPriority IRQPriority
}

// MotorChannel is the per-motor state. Buffer is read by DMA, so a
// MotorChannel must not move once configured.
type MotorChannel struct {
	Index   uint8
	Group   uint8
	Channel TimerChannel
	Stream  DMAStreamID
	Source  DMASource
	Buffer  protocol.TickBuffer
	Value   uint16

	configured bool
}

// MotorOutput drives DShot motors through timer compare channels fed by DMA
type MotorOutput struct {
	hw     Hardware
	timers TimerRegistry
	motors [MaxSupportedMotors]MotorChannel
}

func NewMotorOutput(hw Hardware) *MotorOutput {
	return &MotorOutput{hw: hw}
}

// ConfigureMotor binds a motor to its timer channel, pin and DMA stream.
// The first motor on a timer sets up its time base; later ones only add
// their compare channel.
func (o *MotorOutput) ConfigureMotor(index uint8, res MotorResource, variant protocol.Variant) error {
	if index >= MaxSupportedMotors {
		return &ConfigError{Motor: index, Resource: "motor", Err: ErrMotorIndex}
	}
	m := &o.motors[index]
	if m.configured {
		return &ConfigError{Motor: index, Resource: "motor", Err: ErrMotorConfigured}
	}

	info, ok := lookupChannel(res.Channel)
	if !ok {
		return &ConfigError{Motor: index, Resource: "channel", Err: ErrUnsupportedChannel}
	}

	groupIndex, created, err := o.timers.GetOrCreate(res.Timer)
	if err != nil {
		return &ConfigError{Motor: index, Resource: "timer", Err: err}
	}
	group := o.timers.Group(groupIndex)

	// undo releases what a failed call took so the motor can be retried
	undo := func() {
		if created {
			o.timers.dropLast()
		}
	}

	var tb TimeBase
	if created {
		if tb, err = o.timeBase(res.Timer, variant); err != nil {
			undo()
			return &ConfigError{Motor: index, Resource: "timer", Err: err}
		}
	}

	if err := o.hw.Pins.ClaimPin(res.Pin, OwnerMotor); err != nil {
		undo()
		return &ConfigError{Motor: index, Resource: "pin", Err: err}
	}
	undo = func() {
		o.hw.Pins.ReleasePin(res.Pin)
		if created {
			o.timers.dropLast()
		}
	}
	if err := o.hw.Pins.ConfigureAlternate(res.Pin, res.AltFunc); err != nil {
		undo()
		return &ConfigError{Motor: index, Resource: "pin", Err: err}
	}

	timer := o.hw.Timer
	if created {
		group.Variant = variant
		o.hw.Clock.EnableTimerClock(res.Timer)
		timer.Disable(res.Timer)
		timer.InitTimeBase(res.Timer, tb)
	} else if group.Variant != variant {
		DebugPrintln("[DSHOT] motor " + itoa(int(index)) + " shares a " +
			group.Variant.String() + " timer, ignoring " + variant.String())
	}

	timer.InitOutputCompare(res.Timer, res.Channel)
	timer.EnableComparePreload(res.Timer, res.Channel)

	if created {
		timer.EnableMainOutput(res.Timer)
		timer.EnableAutoReloadPreload(res.Timer)
		timer.Enable(res.Timer)
	}

	dma := o.hw.DMA
	dma.Disable(res.Stream)
	dma.Reset(res.Stream)
	dma.Init(res.Stream, DMAConfig{
		PeripheralAddr:  timer.RegisterBase(res.Timer) + info.ccrOffset,
		MemoryAddr:      uintptr(unsafe.Pointer(&m.Buffer[0])),
		Count:           protocol.FrameBits,
		PeripheralInc:   false,
		MemoryInc:       true,
		PeripheralWidth: WidthHalfWord,
		MemoryWidth:     WidthByte,
		Circular:        false,
		Priority:        PriorityHigh,
	})
	timer.EnableDMARequests(res.Timer, info.source)
	dma.EnableTransferCompleteInterrupt(res.Stream)

	priority := res.IRQPriority
	if priority == 0 {
		priority = DefaultDMAIRQPriority
	}
	if err := o.hw.IRQ.RegisterDMAHandler(res.Stream, priority, index, o.HandleTransferComplete); err != nil {
		// the stream stays parked and a timer nobody else uses stops
		dma.Disable(res.Stream)
		if created {
			timer.Disable(res.Timer)
		}
		undo()
		return &ConfigError{Motor: index, Resource: "irq", Err: err}
	}

	group.Sources |= info.source
	*m = MotorChannel{
		Index:      index,
		Group:      groupIndex,
		Channel:    res.Channel,
		Stream:     res.Stream,
		Source:     info.source,
		configured: true,
	}
	return nil
}

// timeBase derives the prescaler for the variant's tick rate from the
// timer's kernel clock. The prescaler register is 16 bits wide.
func (o *MotorOutput) timeBase(t TimerID, variant protocol.Variant) (TimeBase, error) {
	div := o.hw.Clock.TimerClockDivisor(t)
	if div == 0 {
		div = 1
	}
	clock := o.hw.Clock.SystemClockHz() / div
	ratio := clock / variant.TickRate()
	if ratio == 0 || ratio-1 > 0xFFFF {
		return TimeBase{}, ErrTimerClock
	}
	return TimeBase{
		Prescaler: uint16(ratio - 1),
		Period:    protocol.BitLengthTicks,
	}, nil
}

// WriteMotor encodes a throttle into the motor's buffer and arms its DMA
// stream. The frame goes out on the next CompleteMotorUpdate.
func (o *MotorOutput) WriteMotor(index uint8, throttle uint16) {
	o.WriteFrame(index, protocol.ThrottleFrame(throttle))
}

// WriteFrame arms a prebuilt frame, e.g. a special command
func (o *MotorOutput) WriteFrame(index uint8, f protocol.Frame) {
	if index >= MaxSupportedMotors {
		return
	}
	m := &o.motors[index]
	if !m.configured {
		return
	}
	m.Value = f.Value()
	protocol.EncodeTicks(f, &m.Buffer)
	o.hw.DMA.SetTransferCount(m.Stream, protocol.FrameBits)
	o.hw.DMA.Enable(m.Stream)
}

// HandleTransferComplete runs from the DMA interrupt with the motor index
// as tag. It parks the stream until the next write.
func (o *MotorOutput) HandleTransferComplete(tag uint8) {
	if tag >= MaxSupportedMotors || !o.motors[tag].configured {
		return
	}
	stream := o.motors[tag].Stream
	if o.hw.DMA.TransferComplete(stream) {
		o.hw.DMA.Disable(stream)
		o.hw.DMA.ClearTransferComplete(stream)
	}
}

// CompleteMotorUpdate restarts every timer so all armed frames start
// together. Channels on one timer start in lock step.
func (o *MotorOutput) CompleteMotorUpdate() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for i := uint8(0); i < uint8(o.timers.Len()); i++ {
		g := &o.timers.groups[i]
		o.hw.Timer.SetCounter(g.Timer, 0)
		o.hw.Timer.EnableDMARequests(g.Timer, g.Sources)
	}
}

// Configured reports whether a motor has been set up
func (o *MotorOutput) Configured(index uint8) bool {
	return index < MaxSupportedMotors && o.motors[index].configured
}

// MotorCount returns the size of the motor index space
func (o *MotorOutput) MotorCount() uint8 {
	return MaxSupportedMotors
}

// Motor exposes a motor's channel state, or nil
func (o *MotorOutput) Motor(index uint8) *MotorChannel {
	if index >= MaxSupportedMotors || !o.motors[index].configured {
		return nil
	}
	return &o.motors[index]
}

// Timers exposes the timer groups
func (o *MotorOutput) Timers() *TimerRegistry {
	return &o.timers
}
