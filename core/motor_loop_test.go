package core

import (
	"testing"

	"escdrive/protocol"
)

type writeRecord struct {
	motor uint8
	frame protocol.Frame
}

// fakeWriter records frames instead of driving hardware
type fakeWriter struct {
	configured [MaxSupportedMotors]bool
	writes     []writeRecord
	updates    int
}

func newFakeWriter(motors ...uint8) *fakeWriter {
	w := &fakeWriter{}
	for _, m := range motors {
		w.configured[m] = true
	}
	return w
}

func (w *fakeWriter) WriteMotor(index uint8, throttle uint16) {
	w.WriteFrame(index, protocol.ThrottleFrame(throttle))
}

func (w *fakeWriter) WriteFrame(index uint8, f protocol.Frame) {
	w.writes = append(w.writes, writeRecord{index, f})
}

func (w *fakeWriter) CompleteMotorUpdate()        { w.updates++ }
func (w *fakeWriter) Configured(index uint8) bool { return w.configured[index] }
func (w *fakeWriter) MotorCount() uint8           { return MaxSupportedMotors }

// last returns the most recent frame written to a motor
func (w *fakeWriter) last(motor uint8) (protocol.Frame, bool) {
	for i := len(w.writes) - 1; i >= 0; i-- {
		if w.writes[i].motor == motor {
			return w.writes[i].frame, true
		}
	}
	return 0, false
}

func TestMotorLoopCommandRepeat(t *testing.T) {
	resetTimers()
	defer resetTimers()

	w := newFakeWriter(0, 1)
	l := NewMotorLoop(w)
	l.SetThrottle(0, 1500)
	l.SetThrottle(1, 1200)
	l.QueueCommand(0, protocol.CmdBeacon2, 3)

	beacon := protocol.CommandFrame(protocol.CmdBeacon2)
	for tick := 0; tick < 3; tick++ {
		w.writes = nil
		l.Tick()
		if f, _ := w.last(0); f != beacon {
			t.Errorf("tick %d motor 0 frame %#04x, want beacon", tick, uint16(f))
		}
		if f, _ := w.last(1); f != protocol.ThrottleFrame(1200) {
			t.Errorf("tick %d motor 1 frame %#04x, want throttle", tick, uint16(f))
		}
		if v, _ := l.Status(0); v != uint16(protocol.CmdBeacon2) {
			t.Errorf("tick %d motor 0 status value %d", tick, v)
		}
	}

	w.writes = nil
	l.Tick()
	if f, _ := w.last(0); f != protocol.ThrottleFrame(1500) {
		t.Errorf("motor 0 did not return to throttle, frame %#04x", uint16(f))
	}
	if v, configured := l.Status(0); v != 1048 || !configured {
		t.Errorf("Status(0) = (%d, %v), want (1048, true)", v, configured)
	}
	if _, ok := w.last(2); ok {
		t.Error("unconfigured motor 2 was written")
	}
	if w.updates != 4 {
		t.Errorf("updates = %d, want 4", w.updates)
	}
}

func TestMotorLoopDefaultRepeat(t *testing.T) {
	w := newFakeWriter(0)
	l := NewMotorLoop(w)
	l.QueueCommand(0, protocol.CmdSaveSettings, 0)

	for i := 0; i < protocol.CommandRepeatSettings+1; i++ {
		l.Tick()
	}
	count := 0
	for _, rec := range w.writes {
		if rec.frame == protocol.CommandFrame(protocol.CmdSaveSettings) {
			count++
		}
	}
	if count != protocol.CommandRepeatSettings {
		t.Errorf("save_settings sent %d times, want %d", count, protocol.CommandRepeatSettings)
	}
}

func TestMotorLoopFailsafe(t *testing.T) {
	resetTimers()
	defer resetTimers()

	w := newFakeWriter(0)
	l := NewMotorLoop(w)
	if err := l.Configure(1000, 500); err != nil {
		t.Fatal(err)
	}

	SetTime(0)
	l.Start()
	defer l.Stop()
	l.SetThrottle(0, 1500)

	SetTime(TimerFromMS(400))
	l.Tick()
	if l.Failsafe() {
		t.Fatal("failsafe before timeout")
	}

	SetTime(TimerFromMS(501))
	l.Tick()
	if !l.Failsafe() {
		t.Fatal("no failsafe after timeout")
	}
	if f, _ := w.last(0); f != protocol.ThrottleFrame(0) {
		t.Errorf("failsafe frame %#04x, want disarm", uint16(f))
	}

	l.SetThrottle(0, 1200)
	if l.Failsafe() {
		t.Error("throttle did not clear failsafe")
	}
}

func TestMotorLoopFailsafeDropsCommands(t *testing.T) {
	resetTimers()
	defer resetTimers()

	w := newFakeWriter(0)
	l := NewMotorLoop(w)
	if err := l.Configure(1000, 500); err != nil {
		t.Fatal(err)
	}

	SetTime(0)
	l.SetThrottle(0, 1500)
	l.QueueCommand(0, protocol.CmdBeacon1, 200)

	SetTime(TimerFromMS(501))
	l.Tick()
	if !l.Failsafe() {
		t.Fatal("no failsafe after timeout")
	}
	if f, _ := w.last(0); f != protocol.ThrottleFrame(0) {
		t.Errorf("failsafe frame %#04x, want disarm", uint16(f))
	}
	l.Tick()
	if f, _ := w.last(0); f != protocol.ThrottleFrame(0) {
		t.Errorf("frame after failsafe %#04x, want disarm", uint16(f))
	}
}

func TestMotorLoopFailsafeDisabled(t *testing.T) {
	resetTimers()
	defer resetTimers()

	w := newFakeWriter(0)
	l := NewMotorLoop(w)
	if err := l.Configure(500, 0); err != nil {
		t.Fatal(err)
	}
	SetTime(0)
	l.SetThrottle(0, 1500)
	SetTime(TimerFromMS(60000))
	l.Tick()
	if l.Failsafe() {
		t.Error("failsafe fired while disabled")
	}
}

func TestMotorLoopSchedule(t *testing.T) {
	resetTimers()
	defer resetTimers()

	w := newFakeWriter(0)
	l := NewMotorLoop(w)
	if err := l.Configure(1000, 0); err != nil {
		t.Fatal(err)
	}

	SetTime(0)
	l.Start()

	SetTime(1000)
	ProcessTimers()
	if w.updates != 1 {
		t.Fatalf("updates after 1ms = %d, want 1", w.updates)
	}

	SetTime(3000)
	ProcessTimers()
	if w.updates != 3 {
		t.Fatalf("updates after 3ms = %d, want 3", w.updates)
	}

	l.Stop()
	SetTime(10000)
	ProcessTimers()
	if w.updates != 3 {
		t.Errorf("loop ran after Stop, updates = %d", w.updates)
	}
	if l.Running() {
		t.Error("Running() after Stop")
	}
}

func TestMotorLoopConfigureRate(t *testing.T) {
	l := NewMotorLoop(newFakeWriter())
	if err := l.Configure(MaxLoopRateHz+1, 100); err != ErrLoopRate {
		t.Errorf("Configure above max = %v, want ErrLoopRate", err)
	}
	if err := l.Configure(0, 100); err != nil || l.interval != TimerFreq/DefaultLoopRateHz {
		t.Errorf("Configure(0) = %v, interval %d", err, l.interval)
	}
}

func TestMotorLoopEmergencyStop(t *testing.T) {
	resetTimers()
	defer resetTimers()

	w := newFakeWriter(0, 3)
	l := NewMotorLoop(w)
	SetTime(0)
	l.Start()
	l.SetThrottle(0, 1800)
	l.SetThrottle(3, 1700)
	l.QueueCommand(3, protocol.CmdBeacon1, 5)

	l.EmergencyStop()

	if l.Running() {
		t.Error("loop still running")
	}
	for _, m := range []uint8{0, 3} {
		if f, _ := w.last(m); f != protocol.ThrottleFrame(0) {
			t.Errorf("motor %d frame %#04x, want disarm", m, uint16(f))
		}
	}
	if w.updates != 1 {
		t.Errorf("updates = %d, want 1", w.updates)
	}

	// the queued command was dropped
	w.writes = nil
	l.Tick()
	if f, _ := w.last(3); f != protocol.ThrottleFrame(0) {
		t.Errorf("motor 3 after stop frame %#04x", uint16(f))
	}
}
