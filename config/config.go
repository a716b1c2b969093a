package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"escdrive/protocol"
)

// MaxMotors matches the firmware motor index space
const MaxMotors = 8

var (
	ErrMotorIndex     = errors.New("motor index out of range")
	ErrDuplicateMotor = errors.New("motor listed twice")
)

// MotorConfig selects the DShot variant of one motor
type MotorConfig struct {
	Index   uint8  `json:"index"`
	Variant string `json:"variant"`
}

// Profile describes a bench setup: the serial port, the motor loop and the
// motors to configure
type Profile struct {
	Device     string        `json:"device"`
	Baud       int           `json:"baud"`
	LoopRateHz uint32        `json:"loop_rate_hz"`
	FailsafeMs uint32        `json:"failsafe_ms"`
	Motors     []MotorConfig `json:"motors"`
}

// LoadProfile parses a JSON profile and fills in defaults
func LoadProfile(jsonData []byte) (*Profile, error) {
	var profile Profile

	if err := json.Unmarshal(jsonData, &profile); err != nil {
		return nil, err
	}

	applyDefaults(&profile)

	if err := profile.Validate(); err != nil {
		return nil, err
	}
	return &profile, nil
}

// LoadProfileFile reads and parses a profile from disk
func LoadProfileFile(path string) (*Profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	profile, err := LoadProfile(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return profile, nil
}

// applyDefaults fills in missing configuration values
func applyDefaults(profile *Profile) {
	if profile.Device == "" {
		profile.Device = "/dev/ttyUSB0"
	}
	if profile.Baud == 0 {
		profile.Baud = 250000
	}
	if profile.LoopRateHz == 0 {
		profile.LoopRateHz = 1000
	}
	if profile.FailsafeMs == 0 {
		profile.FailsafeMs = 500
	}

	for i, motor := range profile.Motors {
		if motor.Variant == "" {
			motor.Variant = protocol.DShot600.String()
		}
		profile.Motors[i] = motor
	}
}

// Validate checks motor indexes and variants
func (p *Profile) Validate() error {
	var seen [MaxMotors]bool
	for _, motor := range p.Motors {
		if motor.Index >= MaxMotors {
			return fmt.Errorf("motor %d: %w", motor.Index, ErrMotorIndex)
		}
		if seen[motor.Index] {
			return fmt.Errorf("motor %d: %w", motor.Index, ErrDuplicateMotor)
		}
		seen[motor.Index] = true

		if _, err := protocol.ParseVariant(motor.Variant); err != nil {
			return fmt.Errorf("motor %d variant %q: %w", motor.Index, motor.Variant, err)
		}
	}
	return nil
}

// VariantOf returns the parsed variant; call after Validate
func (m MotorConfig) VariantOf() protocol.Variant {
	v, _ := protocol.ParseVariant(m.Variant)
	return v
}

// DefaultProfile is a quad on DShot600
func DefaultProfile() *Profile {
	profile := &Profile{
		Motors: []MotorConfig{{Index: 0}, {Index: 1}, {Index: 2}, {Index: 3}},
	}
	applyDefaults(profile)
	return profile
}
