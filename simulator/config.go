package simulator

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidConfig is wrapped by Config.Validate errors.
var ErrInvalidConfig = errors.New("invalid simulation config")

// Segment applies a constant current for a number of cycles.
type Segment struct {
	Current float64 `json:"current" yaml:"current"`
	Steps   int     `json:"steps" yaml:"steps"`
}

// Profile is a repeating sequence of segments.
type Profile []Segment

// DefaultProfile alternates 10 minutes at 10 A in each direction with 2
// minute rests.
func DefaultProfile() Profile {
	return Profile{{Current: 10, Steps: 600}, {Current: 0, Steps: 120}, {Current: -10, Steps: 600}, {Current: 0, Steps: 120}}
}

// Len returns the number of cycles in one repetition.
func (p Profile) Len() int {
	n := 0
	for _, s := range p {
		n += s.Steps
	}
	return n
}

// At returns the current requested at cycle k. The profile repeats.
func (p Profile) At(k int) float64 {
	n := p.Len()
	if n == 0 || k < 0 {
		return 0
	}
	k %= n
	for _, s := range p {
		if k < s.Steps {
			return s.Current
		}
		k -= s.Steps
	}
	return 0
}

// Config holds parameters for the simulated packs.
type Config struct {
	Enabled            bool          `json:"enabled"`
	Cadence            time.Duration `json:"cadence"`
	InitialSOC         float64       `json:"initial_soc"`
	InitialTemperature float64       `json:"initial_temperature"`
	SOH                float64       `json:"soh"`
	CurrentNoise       float64       `json:"current_noise"`
	VoltageNoise       float64       `json:"voltage_noise"`
	TemperatureNoise   float64       `json:"temperature_noise"`
	Seed               uint64        `json:"seed"`
	// FollowLimits clamps the requested current to the last published limits.
	FollowLimits bool    `json:"follow_limits"`
	Profile      Profile `json:"profile"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Cadence == 0 {
		c.Cadence = time.Second
	}
	if c.InitialSOC == 0 {
		c.InitialSOC = 0.5
	}
	if c.InitialTemperature == 0 {
		c.InitialTemperature = 25
	}
	if c.SOH == 0 {
		c.SOH = 1
	}
	if len(c.Profile) == 0 {
		c.Profile = DefaultProfile()
	}
}

// Validate checks the simulation parameters.
func (c Config) Validate() error {
	if c.Cadence < 0 {
		return fmt.Errorf("%w: negative cadence", ErrInvalidConfig)
	}
	if c.InitialSOC < 0 || c.InitialSOC > 1 {
		return fmt.Errorf("%w: initial_soc %v outside [0,1]", ErrInvalidConfig, c.InitialSOC)
	}
	if c.SOH < 0 || c.SOH > 1 {
		return fmt.Errorf("%w: soh %v outside [0,1]", ErrInvalidConfig, c.SOH)
	}
	if c.CurrentNoise < 0 || c.VoltageNoise < 0 || c.TemperatureNoise < 0 {
		return fmt.Errorf("%w: noise must not be negative", ErrInvalidConfig)
	}
	for i, s := range c.Profile {
		if s.Steps <= 0 {
			return fmt.Errorf("%w: profile segment %d needs positive steps", ErrInvalidConfig, i)
		}
	}
	return nil
}
