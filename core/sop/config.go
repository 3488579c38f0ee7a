package sop

import (
	"errors"
	"fmt"
	"time"

	"github.com/kilianp07/sop/core/battery"
	"github.com/kilianp07/sop/core/model"
)

// ErrInvalidConfig is wrapped by every Config validation error.
var ErrInvalidConfig = errors.New("invalid sop config")

// SearchMode selects which candidate FindBound reports once the iteration
// budget is spent.
type SearchMode string

const (
	// ModeLast reports the last evaluated candidate.
	ModeLast SearchMode = "last"
	// ModeFeasible reports the last candidate verified feasible.
	ModeFeasible SearchMode = "feasible"
)

// SearchConfig tunes the bounding current search.
type SearchConfig struct {
	MaxIterations int        `json:"max_iterations"`
	Mode          SearchMode `json:"mode"`
	// Tolerance stops the search once the bracket is narrower, 0 disables it.
	Tolerance float64 `json:"tolerance"`
}

// PhaseConfig tunes the moving-average phase detector.
type PhaseConfig struct {
	Window      int     `json:"window"`
	ToDischarge float64 `json:"to_discharge"`
	ToCharge    float64 `json:"to_charge"`
}

// Gains of one error plus backward-difference corrector.
type Gains struct {
	Ke float64 `json:"ke"`
	Kd float64 `json:"kd"`
}

// CorrectionConfig holds the gains of the instantaneous correctors.
type CorrectionConfig struct {
	TCharge    Gains `json:"t_charge"`
	TDischarge Gains `json:"t_discharge"`
	UMax       Gains `json:"u_max"`
	UMin       Gains `json:"u_min"`
}

// TwinConfig controls twin initialisation and synchronisation.
type TwinConfig struct {
	// CoreTemperature seeds the heat source node. Ignored when
	// CoreFromMeasurement is set.
	CoreTemperature     float64 `json:"core_temperature"`
	CoreFromMeasurement bool    `json:"core_from_measurement"`
	// ResyncSOC overwrites the twin SOC with the external estimate every
	// cycle.
	ResyncSOC bool `json:"resync_soc"`
}

// Config is the immutable engine configuration.
type Config struct {
	Battery     battery.Config   `json:"battery"`
	Limits      model.Limits     `json:"limits"`
	Horizon     int              `json:"horizon"`
	Search      SearchConfig     `json:"search"`
	Phase       PhaseConfig      `json:"phase"`
	Correction  CorrectionConfig `json:"correction"`
	Twin        TwinConfig       `json:"twin"`
	CycleBudget time.Duration    `json:"cycle_budget"`
}

// DefaultConfig returns the reference engine configuration.
func DefaultConfig() Config {
	var c Config
	c.SetDefaults()
	return c
}

// SetDefaults fills unset fields.
func (c *Config) SetDefaults() {
	c.Battery.SetDefaults()
	if c.Limits.IsZero() {
		c.Limits = model.DefaultLimits()
	}
	if c.Horizon == 0 {
		c.Horizon = 30
	}
	if c.Search.MaxIterations == 0 {
		c.Search.MaxIterations = 12
	}
	if c.Search.Mode == "" {
		c.Search.Mode = ModeLast
	}
	if c.Phase.Window == 0 {
		c.Phase.Window = 60
	}
	if c.Phase.ToDischarge == 0 {
		c.Phase.ToDischarge = 0.1
	}
	if c.Phase.ToCharge == 0 {
		c.Phase.ToCharge = -1.0
	}
	if c.Correction == (CorrectionConfig{}) {
		c.Correction = CorrectionConfig{
			TCharge:    Gains{Ke: 1, Kd: 5},
			TDischarge: Gains{Ke: -1, Kd: -5},
			UMax:       Gains{Ke: 5, Kd: 5},
			UMin:       Gains{Ke: 5, Kd: 5},
		}
	}
	if c.Twin.CoreTemperature == 0 && !c.Twin.CoreFromMeasurement {
		c.Twin.CoreTemperature = 60
	}
	if c.CycleBudget == 0 {
		c.CycleBudget = time.Second
	}
}

// Validate checks the configuration.
func (c Config) Validate() error {
	if err := c.Battery.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if err := c.Limits.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Horizon < 1 {
		return fmt.Errorf("%w: horizon must be at least 1, got %d", ErrInvalidConfig, c.Horizon)
	}
	if c.Search.MaxIterations < 1 {
		return fmt.Errorf("%w: max_iterations must be at least 1, got %d", ErrInvalidConfig, c.Search.MaxIterations)
	}
	switch c.Search.Mode {
	case ModeLast, ModeFeasible:
	default:
		return fmt.Errorf("%w: unknown search mode %q", ErrInvalidConfig, c.Search.Mode)
	}
	if c.Search.Tolerance < 0 {
		return fmt.Errorf("%w: negative tolerance", ErrInvalidConfig)
	}
	if c.Phase.Window < 1 {
		return fmt.Errorf("%w: phase window must be at least 1", ErrInvalidConfig)
	}
	if c.Phase.ToCharge >= c.Phase.ToDischarge {
		return fmt.Errorf("%w: phase thresholds need to_charge < to_discharge", ErrInvalidConfig)
	}
	if c.CycleBudget < 0 {
		return fmt.Errorf("%w: negative cycle budget", ErrInvalidConfig)
	}
	return nil
}
