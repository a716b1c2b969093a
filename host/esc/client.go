package esc

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/golang/glog"

	"escdrive/config"
	"escdrive/protocol"
)

const DefaultTimeout = 500 * time.Millisecond

var ErrUnexpectedResponse = errors.New("unexpected response")

// MotorStatus is the decoded dshot_status response
type MotorStatus struct {
	Motor      uint8
	Value      uint16
	Configured bool
	Failsafe   bool
}

// ConfigError is a motor configuration the firmware rejected
type ConfigError struct {
	Motor uint8
	Code  uint8
}

var configErrorNames = map[uint8]string{
	protocol.ConfigErrOther:             "hardware error",
	protocol.ConfigErrMotorIndex:        "motor index out of range",
	protocol.ConfigErrAlreadyConfigured: "already configured",
	protocol.ConfigErrTimerCapacity:     "too many timers",
	protocol.ConfigErrChannel:           "unsupported timer channel",
	protocol.ConfigErrPinClaimed:        "pin already claimed",
	protocol.ConfigErrNoResource:        "no board resource",
	protocol.ConfigErrTimerClock:        "timer clock out of range",
}

func (e *ConfigError) Error() string {
	name, ok := configErrorNames[e.Code]
	if !ok {
		name = fmt.Sprintf("code %d", e.Code)
	}
	return fmt.Sprintf("motor %d: %s", e.Motor, name)
}

// Client drives the bench firmware over a HostLink
type Client struct {
	link    *protocol.HostLink
	timeout time.Duration

	mu sync.Mutex // one request/response exchange at a time
}

func NewClient(port io.ReadWriteCloser) *Client {
	return &Client{
		link:    protocol.NewHostLink(port),
		timeout: DefaultTimeout,
	}
}

// SetTimeout changes how long to wait for acks and responses
func (c *Client) SetTimeout(d time.Duration) {
	c.timeout = d
}

func (c *Client) Close() error {
	return c.link.Close()
}

func (c *Client) send(name string, args ...uint32) error {
	id, ok := protocol.CommandID(name)
	if !ok {
		return fmt.Errorf("%s: %w", name, protocol.ErrUnknownCommand)
	}
	if glog.V(2) {
		glog.Infof("SEND %s %v", name, args)
	}
	err := c.link.SendCommand(id, func(output protocol.OutputBuffer) {
		for _, a := range args {
			protocol.EncodeVLQUint(output, a)
		}
	}, c.timeout)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

// ConfigureMotor asks the firmware to set up a motor and confirms it with
// a status query
func (c *Client) ConfigureMotor(motor uint8, variant protocol.Variant) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.send(protocol.MsgConfigMotor, uint32(motor), uint32(variant)); err != nil {
		return err
	}
	status, err := c.status(motor)
	if err != nil {
		return err
	}
	if !status.Configured {
		return fmt.Errorf("motor %d: not configured after %s", motor, protocol.MsgConfigMotor)
	}
	glog.Infof("motor %d configured for %v", motor, variant)
	return nil
}

// ConfigureLoop sets the firmware refresh rate and failsafe timeout and
// (re)starts the loop
func (c *Client) ConfigureLoop(rateHz, failsafeMs uint32) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send(protocol.MsgConfigLoop, rateHz, failsafeMs)
}

func (c *Client) SetThrottle(motor uint8, throttle uint16) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send(protocol.MsgSetThrottle, uint32(motor), uint32(throttle))
}

// SendCommand queues a special command; zero repeat lets the firmware pick
func (c *Client) SendCommand(motor uint8, cmd protocol.Command, repeat uint8) error {
	if cmd > protocol.CmdMax {
		return fmt.Errorf("command %d: %w", cmd, protocol.ErrUnknownCommand)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send(protocol.MsgSendCommand, uint32(motor), uint32(cmd), uint32(repeat))
}

// Update starts a batch on the firmware, for use without the motor loop
func (c *Client) Update() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.send(protocol.MsgUpdate)
}

func (c *Client) EmergencyStop() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	err := c.send(protocol.MsgEmergencyStop)
	if err == nil {
		glog.Warning("emergency stop sent")
	}
	return err
}

func (c *Client) Status(motor uint8) (MotorStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status(motor)
}

// status queries a motor and reads responses until its dshot_status. A
// config_error for the motor seen on the way is returned instead.
func (c *Client) status(motor uint8) (MotorStatus, error) {
	if err := c.send(protocol.MsgGetStatus, uint32(motor)); err != nil {
		return MotorStatus{}, err
	}

	statusID, _ := protocol.CommandID(protocol.MsgMotorStatus)
	errorID, _ := protocol.CommandID(protocol.MsgConfigError)

	var cfgErr error
	for {
		msg, err := c.link.ReceiveResponse(c.timeout)
		if err != nil {
			return MotorStatus{}, fmt.Errorf("%s: %w", protocol.MsgMotorStatus, err)
		}

		args := msg.Args
		switch msg.CmdID {
		case errorID:
			var m, code uint32
			if err := protocol.DecodeArgs(&args, &m, &code); err != nil {
				return MotorStatus{}, fmt.Errorf("%s: %w", protocol.MsgConfigError, err)
			}
			e := &ConfigError{Motor: uint8(m), Code: uint8(code)}
			glog.Warningf("firmware rejected configuration: %v", e)
			if e.Motor == motor {
				cfgErr = e
			}
		case statusID:
			var m, value, configured, failsafe uint32
			if err := protocol.DecodeArgs(&args, &m, &value, &configured, &failsafe); err != nil {
				return MotorStatus{}, fmt.Errorf("%s: %w", protocol.MsgMotorStatus, err)
			}
			if uint8(m) != motor {
				continue
			}
			if cfgErr != nil {
				return MotorStatus{}, cfgErr
			}
			return MotorStatus{
				Motor:      motor,
				Value:      uint16(value),
				Configured: configured != 0,
				Failsafe:   failsafe != 0,
			}, nil
		default:
			return MotorStatus{}, fmt.Errorf("id %d: %w", msg.CmdID, ErrUnexpectedResponse)
		}
	}
}

// Apply configures every motor of a profile, then the loop
func (c *Client) Apply(profile *config.Profile) error {
	for _, motor := range profile.Motors {
		if err := c.ConfigureMotor(motor.Index, motor.VariantOf()); err != nil {
			return err
		}
	}
	return c.ConfigureLoop(profile.LoopRateHz, profile.FailsafeMs)
}
