package battery

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/sop/core/interp"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("invalid battery config")

// Kappa is the coulombic constant eta/Q of the reference cell, per second.
const Kappa = 2.3003039e-4

// ThermalParams are the coefficients of the Foster network. Node 1 is the
// heat source coupled to ambient, node 2 is the surface.
type ThermalParams struct {
	R1      float64 `json:"r1"`
	C1      float64 `json:"c1"`
	R2      float64 `json:"r2"`
	C2      float64 `json:"c2"`
	Ambient float64 `json:"ambient"`
}

// RCParams are the series resistance and the RC branch of the voltage model.
type RCParams struct {
	R0 float64 `json:"r0"`
	R1 float64 `json:"r1"`
	C1 float64 `json:"c1"`
}

// OCVCurves share one SOC abscissa between the charge and discharge curves.
type OCVCurves struct {
	SOC       []float64 `json:"soc"`
	Charge    []float64 `json:"charge"`
	Discharge []float64 `json:"discharge"`
}

// Config parametrizes a Model.
type Config struct {
	Kappa   float64       `json:"kappa"`
	Step    float64       `json:"dt"`
	Thermal ThermalParams `json:"thermal"`
	RC      RCParams      `json:"rc"`
	OCV     OCVCurves     `json:"ocv"`
}

// DefaultThermal returns the identified thermal coefficients of the
// reference cell.
func DefaultThermal() ThermalParams {
	return ThermalParams{
		R1:      0.206124119186158,
		C1:      50.3138901982787,
		R2:      21.6224372540937,
		C2:      15.8943772584241,
		Ambient: 25,
	}
}

// DefaultRC returns the identified 1-RC coefficients of the reference cell.
func DefaultRC() RCParams {
	return RCParams{R0: 0.0185, R1: 0.0130, C1: 653.6309}
}

// DefaultOCV returns generic LFP open-circuit voltage curves.
func DefaultOCV() OCVCurves {
	return OCVCurves{
		SOC:       []float64{0, 0.05, 0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7, 0.8, 0.9, 0.95, 1},
		Charge:    []float64{2.60, 3.10, 3.22, 3.28, 3.30, 3.31, 3.32, 3.33, 3.34, 3.36, 3.40, 3.45, 3.60},
		Discharge: []float64{2.50, 3.00, 3.15, 3.22, 3.25, 3.27, 3.28, 3.29, 3.30, 3.32, 3.34, 3.38, 3.50},
	}
}

// DefaultConfig returns the reference cell configuration.
func DefaultConfig() Config {
	c := Config{}
	c.SetDefaults()
	return c
}

// SetDefaults fills every unset section with the reference cell values.
func (c *Config) SetDefaults() {
	if c.Kappa == 0 {
		c.Kappa = Kappa
	}
	if c.Step == 0 {
		c.Step = 1
	}
	if c.Thermal == (ThermalParams{}) {
		c.Thermal = DefaultThermal()
	}
	if c.RC == (RCParams{}) {
		c.RC = DefaultRC()
	}
	if len(c.OCV.SOC) == 0 {
		c.OCV = DefaultOCV()
	}
}

// Validate checks coefficient signs and the OCV tables. Zero time constants
// are accepted and handled with a unit gain.
func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"kappa": c.Kappa, "dt": c.Step,
		"thermal.r1": c.Thermal.R1, "thermal.c1": c.Thermal.C1,
		"thermal.r2": c.Thermal.R2, "thermal.c2": c.Thermal.C2,
		"rc.r0": c.RC.R0, "rc.r1": c.RC.R1, "rc.c1": c.RC.C1,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return fmt.Errorf("%w: %s must be a finite non-negative number, got %v", ErrInvalidConfig, name, v)
		}
	}
	if c.Step == 0 {
		return fmt.Errorf("%w: dt must be positive", ErrInvalidConfig)
	}
	if err := (interp.Table{X: c.OCV.SOC, Y: c.OCV.Charge}).Validate(); err != nil {
		return fmt.Errorf("%w: charge ocv: %w", ErrInvalidConfig, err)
	}
	if err := (interp.Table{X: c.OCV.SOC, Y: c.OCV.Discharge}).Validate(); err != nil {
		return fmt.Errorf("%w: discharge ocv: %w", ErrInvalidConfig, err)
	}
	return nil
}
