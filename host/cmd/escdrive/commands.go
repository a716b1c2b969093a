package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/abiosoft/ishell"

	"escdrive/config"
	"escdrive/protocol"
)

var (
	errNotConnected = errors.New("not connected")
	errUsage        = errors.New("wrong number of arguments")
)

var commands = []*ishell.Cmd{
	{
		Name: "connect",
		Help: "connect [device]: open the serial port",
		Func: connectCmd,
	},
	{
		Name: "profile",
		Help: "profile <file>: load a bench profile and apply it",
		Func: mustBeConnected(profileCmd),
	},
	{
		Name:    "config",
		Aliases: []string{"cfg"},
		Help:    "config <motor> [dshot150|dshot300|dshot600]: configure a motor",
		Func:    mustBeConnected(configCmd),
	},
	{
		Name: "loop",
		Help: "loop <rate_hz> <failsafe_ms>: (re)start the firmware motor loop",
		Func: mustBeConnected(loopCmd),
	},
	{
		Name:    "throttle",
		Aliases: []string{"t"},
		Help:    "throttle <motor> <1000..2000>: set a motor throttle",
		Func:    mustBeConnected(throttleCmd),
	},
	{
		Name: "command",
		Help: "command <motor> <name|number> [repeat]: queue a special command",
		Func: mustBeConnected(commandCmd),
	},
	{
		Name: "update",
		Help: "update: send one batch of frames",
		Func: mustBeConnected(updateCmd),
	},
	{
		Name: "status",
		Help: "status [motor]: show motor state",
		Func: mustBeConnected(statusCmd),
	},
	{
		Name:    "stop",
		Aliases: []string{"estop"},
		Help:    "stop: disarm every motor and stop the loop",
		Func:    mustBeConnected(stopCmd),
	},
	{
		Name: "frame",
		Help: "frame <throttle|command> [variant]: show the frame and pulse timing offline",
		Func: frameCmd,
	},
}

// mustBeConnected wraps a command that needs the firmware link
func mustBeConnected(fn func(c *ishell.Context)) func(c *ishell.Context) {
	return func(c *ishell.Context) {
		if benchFrom(c).client == nil {
			c.Err(errNotConnected)
			return
		}
		fn(c)
	}
}

func connectCmd(c *ishell.Context) {
	b := benchFrom(c)
	if len(c.Args) > 1 {
		c.Err(errUsage)
		return
	}
	if len(c.Args) == 1 {
		b.profile.Device = c.Args[0]
	}
	if err := b.connect(c); err != nil {
		c.Err(err)
		return
	}
	c.Println("connected to " + b.profile.Device)
}

func profileCmd(c *ishell.Context) {
	if len(c.Args) != 1 {
		c.Err(errUsage)
		return
	}
	b := benchFrom(c)
	profile, err := config.LoadProfileFile(c.Args[0])
	if err != nil {
		c.Err(err)
		return
	}
	if err := b.client.Apply(profile); err != nil {
		c.Err(err)
		return
	}
	b.profile.LoopRateHz = profile.LoopRateHz
	b.profile.FailsafeMs = profile.FailsafeMs
	b.profile.Motors = profile.Motors
	c.Printf("applied %d motors, loop %d Hz, failsafe %d ms\n",
		len(profile.Motors), profile.LoopRateHz, profile.FailsafeMs)
}

func configCmd(c *ishell.Context) {
	if len(c.Args) < 1 || len(c.Args) > 2 {
		c.Err(errUsage)
		return
	}
	motor, err := parseMotor(c.Args[0])
	if err != nil {
		c.Err(err)
		return
	}
	variant := protocol.DShot600
	if len(c.Args) == 2 {
		if variant, err = protocol.ParseVariant(c.Args[1]); err != nil {
			c.Err(err)
			return
		}
	}
	if err := benchFrom(c).client.ConfigureMotor(motor, variant); err != nil {
		c.Err(err)
		return
	}
	c.Println("OK")
}

func loopCmd(c *ishell.Context) {
	if len(c.Args) != 2 {
		c.Err(errUsage)
		return
	}
	rate, err := strconv.ParseUint(c.Args[0], 10, 32)
	if err != nil {
		c.Err(err)
		return
	}
	failsafe, err := strconv.ParseUint(c.Args[1], 10, 32)
	if err != nil {
		c.Err(err)
		return
	}
	if err := benchFrom(c).client.ConfigureLoop(uint32(rate), uint32(failsafe)); err != nil {
		c.Err(err)
		return
	}
	c.Println("OK")
}

func throttleCmd(c *ishell.Context) {
	if len(c.Args) != 2 {
		c.Err(errUsage)
		return
	}
	motor, err := parseMotor(c.Args[0])
	if err != nil {
		c.Err(err)
		return
	}
	throttle, err := strconv.ParseUint(c.Args[1], 10, 16)
	if err != nil {
		c.Err(err)
		return
	}
	if err := benchFrom(c).client.SetThrottle(motor, uint16(throttle)); err != nil {
		c.Err(err)
		return
	}
	c.Println("OK")
}

func commandCmd(c *ishell.Context) {
	if len(c.Args) < 2 || len(c.Args) > 3 {
		c.Err(errUsage)
		return
	}
	motor, err := parseMotor(c.Args[0])
	if err != nil {
		c.Err(err)
		return
	}
	cmd, err := parseCommand(c.Args[1])
	if err != nil {
		c.Err(err)
		return
	}
	var repeat uint64
	if len(c.Args) == 3 {
		if repeat, err = strconv.ParseUint(c.Args[2], 10, 8); err != nil {
			c.Err(err)
			return
		}
	}
	if err := benchFrom(c).client.SendCommand(motor, cmd, uint8(repeat)); err != nil {
		c.Err(err)
		return
	}
	c.Println("OK")
}

func updateCmd(c *ishell.Context) {
	if err := benchFrom(c).client.Update(); err != nil {
		c.Err(err)
		return
	}
	c.Println("OK")
}

func statusCmd(c *ishell.Context) {
	b := benchFrom(c)
	var motors []uint8
	if len(c.Args) == 1 {
		motor, err := parseMotor(c.Args[0])
		if err != nil {
			c.Err(err)
			return
		}
		motors = append(motors, motor)
	} else {
		for _, m := range b.profile.Motors {
			motors = append(motors, m.Index)
		}
	}

	for _, motor := range motors {
		status, err := b.client.Status(motor)
		if err != nil {
			c.Err(err)
			return
		}
		c.Printf("motor %d: configured=%t value=%d failsafe=%t\n",
			status.Motor, status.Configured, status.Value, status.Failsafe)
	}
}

func stopCmd(c *ishell.Context) {
	if err := benchFrom(c).client.EmergencyStop(); err != nil {
		c.Err(err)
		return
	}
	c.Println("stopped")
}

func frameCmd(c *ishell.Context) {
	if len(c.Args) < 1 || len(c.Args) > 2 {
		c.Err(errUsage)
		return
	}
	variant := protocol.DShot600
	if len(c.Args) == 2 {
		var err error
		if variant, err = protocol.ParseVariant(c.Args[1]); err != nil {
			c.Err(err)
			return
		}
	}
	f, err := parseFrame(c.Args[0])
	if err != nil {
		c.Err(err)
		return
	}
	c.Print(describeFrame(f, variant))
}

func parseMotor(s string) (uint8, error) {
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil {
		return 0, err
	}
	if n >= config.MaxMotors {
		return 0, fmt.Errorf("motor %d: %w", n, config.ErrMotorIndex)
	}
	return uint8(n), nil
}

// parseCommand accepts a command name or its number
func parseCommand(s string) (protocol.Command, error) {
	if cmd, ok := protocol.LookupCommand(s); ok {
		return cmd, nil
	}
	n, err := strconv.ParseUint(s, 10, 8)
	if err != nil || protocol.Command(n) > protocol.CmdMax {
		return 0, fmt.Errorf("%q: %w", s, protocol.ErrUnknownCommand)
	}
	return protocol.Command(n), nil
}
