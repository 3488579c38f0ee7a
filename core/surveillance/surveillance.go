// Package surveillance compares measurements with the thermal and voltage
// models driven by the measured current, and raises an alert when the
// deviation exceeds a threshold. A persistent deviation usually means a
// sensor fault or a drift of the cell parameters.
package surveillance

import (
	"errors"
	"fmt"
	"math"

	"github.com/kilianp07/sop/core/battery"
	"github.com/kilianp07/sop/core/model"
)

// ErrInvalidConfig is wrapped by Config.Validate errors.
var ErrInvalidConfig = errors.New("invalid surveillance config")

// Config holds the alert thresholds. Surveillance runs unless Disabled is set.
type Config struct {
	Disabled             bool    `json:"disabled"`
	TemperatureThreshold float64 `json:"temperature_threshold"`
	VoltageThreshold     float64 `json:"voltage_threshold"`
	CoreTemperature      float64 `json:"core_temperature"`
}

// SetDefaults applies the reference thresholds.
func (c *Config) SetDefaults() {
	if c.TemperatureThreshold == 0 {
		c.TemperatureThreshold = 10
	}
	if c.VoltageThreshold == 0 {
		c.VoltageThreshold = 0.1
	}
	if c.CoreTemperature == 0 {
		c.CoreTemperature = 60
	}
}

// Validate checks the thresholds.
func (c Config) Validate() error {
	if c.TemperatureThreshold <= 0 || c.VoltageThreshold <= 0 {
		return fmt.Errorf("%w: thresholds must be positive", ErrInvalidConfig)
	}
	return nil
}

// Alerts is the surveillance verdict for one sample.
type Alerts struct {
	Temperature          bool    `json:"temperature"`
	Voltage              bool    `json:"voltage"`
	ModelTemperature     float64 `json:"model_temperature"`
	ModelVoltage         float64 `json:"model_voltage"`
	TemperatureDeviation float64 `json:"temperature_deviation"`
	VoltageDeviation     float64 `json:"voltage_deviation"`
}

// Any reports whether at least one alert is raised.
func (a Alerts) Any() bool { return a.Temperature || a.Voltage }

// ThermalMonitor runs the Foster network on the measured current.
type ThermalMonitor struct {
	model     *battery.Model
	threshold float64
	core      float64
	started   bool
	t1, t2    float64
}

// NewThermalMonitor returns a monitor seeding node 1 with core and node 2
// with the first measured temperature.
func NewThermalMonitor(m *battery.Model, threshold, core float64) *ThermalMonitor {
	return &ThermalMonitor{model: m, threshold: threshold, core: core}
}

// Observe advances the model with current and compares node 2 with the
// measured temperature.
func (m *ThermalMonitor) Observe(current, temperature float64) (float64, bool) {
	if !m.started {
		m.t1, m.t2 = m.core, temperature
		m.started = true
	}
	m.t1, m.t2 = m.model.ThermalStep(m.t1, m.t2, current)
	return m.t2, math.Abs(temperature-m.t2) > m.threshold
}

// VoltageMonitor runs the 1-RC model on the measured current and the
// external SOC estimate.
type VoltageMonitor struct {
	model     *battery.Model
	threshold float64
	branch    float64
}

// NewVoltageMonitor returns a monitor with a relaxed RC branch.
func NewVoltageMonitor(m *battery.Model, threshold float64) *VoltageMonitor {
	return &VoltageMonitor{model: m, threshold: threshold}
}

// Observe advances the RC branch and compares the modelled terminal voltage
// with the measured one.
func (m *VoltageMonitor) Observe(current, soc, voltage float64, p model.Polarity) (float64, bool) {
	m.branch = m.model.BranchStep(m.branch, current)
	u := m.model.Terminal(soc, m.branch, current, p)
	return u, math.Abs(voltage-u) > m.threshold
}

// Monitor bundles both monitors for one pack.
type Monitor struct {
	thermal *ThermalMonitor
	voltage *VoltageMonitor
}

// New returns a Monitor for the given model.
func New(m *battery.Model, cfg Config) *Monitor {
	return &Monitor{
		thermal: NewThermalMonitor(m, cfg.TemperatureThreshold, cfg.CoreTemperature),
		voltage: NewVoltageMonitor(m, cfg.VoltageThreshold),
	}
}

// Observe checks one sample. p is the phase reported by the controller.
func (m *Monitor) Observe(in model.CycleInput, p model.Polarity) Alerts {
	var a Alerts
	a.ModelTemperature, a.Temperature = m.thermal.Observe(in.Current, in.Temperature)
	a.ModelVoltage, a.Voltage = m.voltage.Observe(in.Current, in.SOC, in.Voltage, p)
	a.TemperatureDeviation = in.Temperature - a.ModelTemperature
	a.VoltageDeviation = in.Voltage - a.ModelVoltage
	return a
}
