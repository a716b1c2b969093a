package main

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/abiosoft/ishell"
	"github.com/golang/glog"

	"escdrive/config"
	"escdrive/host/esc"
	"escdrive/host/serial"
	"escdrive/protocol"
)

var (
	device      = flag.String("device", "", "Serial device path (overrides the profile)")
	baud        = flag.Int("baud", 0, "Baud rate (ignored for USB CDC)")
	profilePath = flag.String("profile", "", "Bench profile to apply after connecting")
	evalOnly    = flag.Bool("e", false, "Run the command given as arguments and exit")
)

const (
	benchKey = "$bench"

	disconnectedPrompt = "[none] > "
)

// bench is the shell state: the active profile and the firmware connection
type bench struct {
	profile *config.Profile
	client  *esc.Client
}

func main() {
	flag.Parse()
	defer glog.Flush()

	b := &bench{profile: config.DefaultProfile()}
	if *profilePath != "" {
		profile, err := config.LoadProfileFile(*profilePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		b.profile = profile
	}
	if *device != "" {
		b.profile.Device = *device
	}
	if *baud != 0 {
		b.profile.Baud = *baud
	}

	shell := ishell.New()
	shell.Set(benchKey, b)
	shell.SetPrompt(disconnectedPrompt)
	for _, cmd := range commands {
		shell.AddCmd(cmd)
	}
	defer b.disconnect()

	if *profilePath != "" {
		if err := b.connect(shell); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		if err := b.client.Apply(b.profile); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	}

	if *evalOnly {
		if flag.NArg() > 0 {
			if err := shell.Process(flag.Args()...); err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}
		return
	}

	shell.Println("escdrive " + protocol.Version + " bench shell, type 'help' for commands")
	shell.Run()
}

func benchFrom(c *ishell.Context) *bench {
	return c.Get(benchKey).(*bench)
}

type promptSetter interface {
	SetPrompt(prompt string)
}

func (b *bench) connect(p promptSetter) error {
	b.disconnect()

	cfg := serial.DefaultConfig(b.profile.Device)
	cfg.Baud = b.profile.Baud
	port, err := serial.Open(cfg)
	if err != nil {
		return err
	}
	if err := port.Flush(); err != nil {
		glog.Warningf("flush %s: %v", cfg.Device, err)
	}
	b.client = esc.NewClient(port)
	glog.Infof("connected to %s at %d baud", cfg.Device, cfg.Baud)
	p.SetPrompt("[" + shortDevice(cfg.Device) + "] > ")
	return nil
}

func (b *bench) disconnect() {
	if b.client == nil {
		return
	}
	// best effort: leave the motors disarmed
	if err := b.client.EmergencyStop(); err != nil {
		glog.Warningf("stop on disconnect: %v", err)
	}
	if err := b.client.Close(); err != nil {
		glog.Warningf("close: %v", err)
	}
	b.client = nil
}

func shortDevice(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}
