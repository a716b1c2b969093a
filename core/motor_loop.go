package core

import (
	"errors"

	"escdrive/protocol"
)

// Loop defaults
const (
	DefaultLoopRateHz    = 1000
	DefaultFailsafeMs    = 500
	MaxLoopRateHz        = 8000
	failsafeDisabledTime = 0
)

var ErrLoopRate = errors.New("loop rate out of range")

type motorState struct {
	throttle uint16
	value    uint16
	command  protocol.Command
	repeat   uint8
}

// MotorLoop refreshes every configured motor at a fixed rate from the
// scheduler. Special commands take precedence over throttle until their
// repeat count runs out. Without fresh throttle for the failsafe timeout
// all motors drop to zero.
type MotorLoop struct {
	writer MotorWriter
	timer  Timer

	interval      uint32
	failsafeTicks uint32
	lastThrottle  uint32

	motors [MaxSupportedMotors]motorState

	running  bool
	failsafe bool
}

func NewMotorLoop(w MotorWriter) *MotorLoop {
	l := &MotorLoop{writer: w}
	l.timer.Handler = l.event
	l.interval = TimerFreq / DefaultLoopRateHz
	l.failsafeTicks = TimerFromMS(DefaultFailsafeMs)
	return l
}

// Configure sets the refresh rate and failsafe timeout. Zero picks the
// default rate; a zero timeout disables the failsafe.
func (l *MotorLoop) Configure(rateHz, failsafeMs uint32) error {
	if rateHz == 0 {
		rateHz = DefaultLoopRateHz
	}
	if rateHz > MaxLoopRateHz {
		return ErrLoopRate
	}
	l.interval = TimerFreq / rateHz
	l.failsafeTicks = TimerFromMS(failsafeMs)
	return nil
}

// Start schedules the loop; the failsafe window opens now
func (l *MotorLoop) Start() {
	if l.running {
		return
	}
	now := GetTime()
	l.running = true
	l.failsafe = false
	l.lastThrottle = now
	l.timer.WakeTime = now + l.interval
	ScheduleTimer(&l.timer)
}

// Stop unschedules the loop. Motors keep their last frame.
func (l *MotorLoop) Stop() {
	l.running = false
	CancelTimer(&l.timer)
}

func (l *MotorLoop) Running() bool {
	return l.running
}

// Failsafe reports whether the loop zeroed the motors for lack of throttle
func (l *MotorLoop) Failsafe() bool {
	return l.failsafe
}

// SetThrottle stores and immediately arms a motor's throttle
func (l *MotorLoop) SetThrottle(motor uint8, throttle uint16) {
	if motor >= MaxSupportedMotors {
		return
	}
	l.lastThrottle = GetTime()
	l.failsafe = false

	m := &l.motors[motor]
	m.throttle = throttle
	m.value = protocol.ThrottleToValue(throttle) & protocol.ValueMax
	l.writer.WriteMotor(motor, throttle)
}

// QueueCommand replaces the motor's frames with a special command for
// repeat cycles. Zero repeat uses what the command needs.
func (l *MotorLoop) QueueCommand(motor uint8, cmd protocol.Command, repeat uint8) {
	if motor >= MaxSupportedMotors {
		return
	}
	if repeat == 0 {
		repeat = cmd.Repeat()
	}
	m := &l.motors[motor]
	m.command = cmd
	m.repeat = repeat
}

// Status returns the last DShot value sent to a motor
func (l *MotorLoop) Status(motor uint8) (value uint16, configured bool) {
	if motor >= MaxSupportedMotors {
		return 0, false
	}
	return l.motors[motor].value, l.writer.Configured(motor)
}

// EmergencyStop zeroes every motor, pushes the frames out and stops the loop
func (l *MotorLoop) EmergencyStop() {
	l.Stop()
	for i := uint8(0); i < l.writer.MotorCount() && i < MaxSupportedMotors; i++ {
		l.motors[i] = motorState{}
		if l.writer.Configured(i) {
			l.writer.WriteMotor(i, 0)
		}
	}
	l.writer.CompleteMotorUpdate()
}

// Tick writes one frame to every configured motor and starts the batch
func (l *MotorLoop) Tick() {
	if l.failsafeTicks != failsafeDisabledTime && !l.failsafe &&
		GetTime()-l.lastThrottle > l.failsafeTicks {
		l.failsafe = true
		for i := range l.motors {
			l.motors[i] = motorState{}
		}
		DebugAsync("[LOOP] failsafe: no throttle for " + utoa(TimerToUS(l.failsafeTicks)/1000) + "ms")
	}

	for i := uint8(0); i < l.writer.MotorCount() && i < MaxSupportedMotors; i++ {
		if !l.writer.Configured(i) {
			continue
		}
		m := &l.motors[i]
		if m.repeat > 0 {
			m.repeat--
			m.value = uint16(m.command)
			l.writer.WriteFrame(i, protocol.CommandFrame(m.command))
			continue
		}
		m.value = protocol.ThrottleToValue(m.throttle) & protocol.ValueMax
		l.writer.WriteMotor(i, m.throttle)
	}
	l.writer.CompleteMotorUpdate()
}

func (l *MotorLoop) event(t *Timer) uint8 {
	if !l.running {
		return SF_DONE
	}
	l.Tick()
	t.WakeTime += l.interval
	return SF_RESCHEDULE
}
