package scenarios

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/sop/core/factory"
	"github.com/kilianp07/sop/core/model"
	"github.com/kilianp07/sop/core/sop"
	"github.com/kilianp07/sop/simulator"
)

// SampleDef is one measurement fed to the controller, repeated Repeat times.
type SampleDef struct {
	Current     float64 `yaml:"current"`
	Voltage     float64 `yaml:"voltage"`
	Temperature float64 `yaml:"temperature"`
	SOC         float64 `yaml:"soc"`
	SOH         float64 `yaml:"soh"`
	Repeat      int     `yaml:"repeat,omitempty"`
}

func (s SampleDef) ToModel() model.CycleInput {
	return model.CycleInput{
		Current:     s.Current,
		Voltage:     s.Voltage,
		Temperature: s.Temperature,
		SOC:         s.SOC,
		SOH:         s.SOH,
	}
}

// PlantDef drives the controller from a simulated pack.
type PlantDef struct {
	InitialSOC   float64             `yaml:"initial_soc"`
	Cycles       int                 `yaml:"cycles"`
	FollowLimits bool                `yaml:"follow_limits"`
	Profile      []simulator.Segment `yaml:"profile"`
}

// Range bounds a value inclusively.
type Range struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

// Expected holds checks on the last output, except LimitsInRange which covers
// every cycle.
type Expected struct {
	Binding        string   `yaml:"binding,omitempty"`
	Outcome        string   `yaml:"outcome,omitempty"`
	Polarity       string   `yaml:"polarity,omitempty"`
	Bound          *float64 `yaml:"bound,omitempty"`
	ChargeLimit    *Range   `yaml:"charge_limit,omitempty"`
	DischargeLimit *Range   `yaml:"discharge_limit,omitempty"`
	LimitsInRange  bool     `yaml:"limits_in_range,omitempty"`
	PhaseChanges   *int     `yaml:"phase_changes,omitempty"`
}

type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description,omitempty"`
	Engine      map[string]any `yaml:"engine,omitempty"`
	Samples     []SampleDef    `yaml:"samples,omitempty"`
	Plant       *PlantDef      `yaml:"plant,omitempty"`
	Expected    Expected       `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	if sc.Name == "" {
		return nil, fmt.Errorf("scenario %s: name is required", path)
	}
	if len(sc.Samples) == 0 && sc.Plant == nil {
		return nil, fmt.Errorf("scenario %s: samples or plant required", sc.Name)
	}
	return &sc, nil
}

// EngineConfig applies the scenario overrides to the default engine
// configuration. Keys follow the engine configuration file layout.
func (sc *Scenario) EngineConfig() (sop.Config, error) {
	cfg := sop.DefaultConfig()
	if len(sc.Engine) > 0 {
		if err := factory.Decode(sc.Engine, &cfg); err != nil {
			return cfg, fmt.Errorf("scenario %s: engine: %w", sc.Name, err)
		}
	}
	cfg.SetDefaults()
	return cfg, cfg.Validate()
}
