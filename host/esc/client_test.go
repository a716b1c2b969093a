package esc

import (
	"errors"
	"io"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"escdrive/config"
	"escdrive/core"
	"escdrive/protocol"
)

// benchWriter stands in for the motor hardware of the fake firmware
type benchWriter struct {
	mu         sync.Mutex
	configured [core.MaxSupportedMotors]bool
	frames     [core.MaxSupportedMotors]protocol.Frame
	updates    int
}

func (w *benchWriter) WriteMotor(index uint8, throttle uint16) {
	w.WriteFrame(index, protocol.ThrottleFrame(throttle))
}

func (w *benchWriter) WriteFrame(index uint8, f protocol.Frame) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if index < core.MaxSupportedMotors {
		w.frames[index] = f
	}
}

func (w *benchWriter) CompleteMotorUpdate() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.updates++
}

func (w *benchWriter) Configured(index uint8) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return index < core.MaxSupportedMotors && w.configured[index]
}

func (w *benchWriter) MotorCount() uint8 { return core.MaxSupportedMotors }

// ConfigureMotor accepts motors 0..2 and rejects 3 as if its pin were taken
func (w *benchWriter) ConfigureMotor(index uint8, variant protocol.Variant) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case index == 3:
		return &core.ConfigError{Motor: index, Resource: "pin", Err: core.ErrPinClaimed}
	case index >= core.MaxSupportedMotors:
		return &core.ConfigError{Motor: index, Resource: "motor", Err: core.ErrMotorIndex}
	case w.configured[index]:
		return &core.ConfigError{Motor: index, Resource: "motor", Err: core.ErrMotorConfigured}
	}
	w.configured[index] = true
	return nil
}

func (w *benchWriter) frame(index uint8) protocol.Frame {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames[index]
}

type benchEnv struct {
	t      *testing.T
	client *Client
	writer *benchWriter
	loop   *core.MotorLoop
	done   chan struct{}
}

// newBenchEnv runs the firmware command layer on one end of a pipe and a
// Client on the other
func newBenchEnv(t *testing.T) *benchEnv {
	hostEnd, fwEnd := net.Pipe()

	env := &benchEnv{t: t, writer: &benchWriter{}, done: make(chan struct{})}
	env.loop = core.NewMotorLoop(env.writer)

	registry := core.NewCommandRegistry()
	require.NoError(t, core.NewMotorHandlers(env.loop, env.writer, env.writer).Register(registry))

	output := protocol.NewScratchOutput()
	link := protocol.NewLink(output, registry.Dispatch)
	core.SetResponseSender(link.SendResponse)

	go func() {
		defer close(env.done)
		input := protocol.NewFifoBuffer(512)
		buf := make([]byte, 64)
		for {
			n, err := fwEnd.Read(buf)
			if err != nil {
				return
			}
			input.Write(buf[:n])
			input.Pop(link.Receive(input.Data()))
			if out := output.Result(); len(out) > 0 {
				if _, err := fwEnd.Write(out); err != nil {
					return
				}
				output.Reset()
			}
		}
	}()

	env.client = NewClient(hostEnd)
	env.client.SetTimeout(time.Second)
	t.Cleanup(func() {
		require.NoError(t, env.client.Close())
		fwEnd.Close()
		<-env.done
		env.loop.Stop()
		core.SetResponseSender(nil)
	})
	return env
}

func TestConfigureMotorAndStatus(t *testing.T) {
	env := newBenchEnv(t)

	require.NoError(t, env.client.ConfigureMotor(0, protocol.DShot600))
	require.True(t, env.writer.Configured(0))

	status, err := env.client.Status(0)
	require.NoError(t, err)
	require.Equal(t, MotorStatus{Motor: 0, Configured: true}, status)

	status, err = env.client.Status(1)
	require.NoError(t, err)
	require.False(t, status.Configured)
}

func TestConfigureMotorRejected(t *testing.T) {
	env := newBenchEnv(t)

	err := env.client.ConfigureMotor(3, protocol.DShot600)
	var cfgErr *ConfigError
	require.True(t, errors.As(err, &cfgErr), "error %v", err)
	require.Equal(t, uint8(3), cfgErr.Motor)
	require.Equal(t, protocol.ConfigErrPinClaimed, cfgErr.Code)
	require.Equal(t, "motor 3: pin already claimed", cfgErr.Error())

	// the link stays usable after a rejected configuration
	require.NoError(t, env.client.ConfigureMotor(1, protocol.DShot300))
	err = env.client.ConfigureMotor(1, protocol.DShot300)
	require.True(t, errors.As(err, &cfgErr))
	require.Equal(t, protocol.ConfigErrAlreadyConfigured, cfgErr.Code)
}

func TestThrottleRoundTrip(t *testing.T) {
	env := newBenchEnv(t)
	require.NoError(t, env.client.ConfigureMotor(1, protocol.DShot600))

	require.NoError(t, env.client.SetThrottle(1, 1500))
	require.Equal(t, protocol.ThrottleFrame(1500), env.writer.frame(1))

	status, err := env.client.Status(1)
	require.NoError(t, err)
	require.Equal(t, uint16(1048), status.Value)

	require.NoError(t, env.client.Update())
	env.writer.mu.Lock()
	require.Equal(t, 1, env.writer.updates)
	env.writer.mu.Unlock()
}

func TestSendCommand(t *testing.T) {
	env := newBenchEnv(t)
	require.NoError(t, env.client.ConfigureMotor(0, protocol.DShot600))

	err := env.client.SendCommand(0, protocol.CmdMax+1, 1)
	require.True(t, errors.Is(err, protocol.ErrUnknownCommand))

	require.NoError(t, env.client.SendCommand(0, protocol.CmdBeacon1, 2))
	env.loop.Tick()
	require.Equal(t, protocol.CommandFrame(protocol.CmdBeacon1), env.writer.frame(0))
}

func TestApplyProfileAndStop(t *testing.T) {
	env := newBenchEnv(t)

	profile, err := config.LoadProfile([]byte(`{"loop_rate_hz":2000,"failsafe_ms":100,"motors":[{"index":0},{"index":2,"variant":"dshot150"}]}`))
	require.NoError(t, err)
	require.NoError(t, env.client.Apply(profile))

	require.True(t, env.writer.Configured(0))
	require.True(t, env.writer.Configured(2))
	require.True(t, env.loop.Running())

	require.NoError(t, env.client.SetThrottle(2, 1700))
	require.NoError(t, env.client.EmergencyStop())
	require.False(t, env.loop.Running())
	require.Equal(t, protocol.ThrottleFrame(0), env.writer.frame(2))
}

func TestApplyProfileStopsOnError(t *testing.T) {
	env := newBenchEnv(t)

	profile := &config.Profile{
		LoopRateHz: 1000,
		Motors:     []config.MotorConfig{{Index: 3, Variant: "dshot600"}, {Index: 0, Variant: "dshot600"}},
	}
	require.Error(t, env.client.Apply(profile))
	require.False(t, env.writer.Configured(0))
	require.False(t, env.loop.Running())
}

func TestAckTimeout(t *testing.T) {
	hostEnd, fwEnd := net.Pipe()
	go io.Copy(io.Discard, fwEnd)

	client := NewClient(hostEnd)
	client.SetTimeout(50 * time.Millisecond)
	defer func() {
		require.NoError(t, client.Close())
		fwEnd.Close()
	}()

	err := client.Update()
	require.True(t, errors.Is(err, protocol.ErrAckTimeout), "error %v", err)
}
