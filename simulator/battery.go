package simulator

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/kilianp07/sop/core/battery"
	"github.com/kilianp07/sop/core/model"
)

// Pack is a simulated battery pack. It is safe for concurrent use.
type Pack struct {
	mu      sync.Mutex
	model   *battery.Model
	cfg     Config
	state   battery.State
	current float64
	now     time.Time
	step    time.Duration
	cycles  int
	rng     *rand.Rand
}

// NewPack returns a pack at rest with both thermal nodes at the initial
// temperature. Measurements are time stamped from start.
func NewPack(m *battery.Model, cfg Config, start time.Time) *Pack {
	cfg.SetDefaults()
	soc := clamp01(cfg.InitialSOC)
	return &Pack{
		model: m,
		cfg:   cfg,
		state: battery.State{
			SOC:     soc,
			T1:      cfg.InitialTemperature,
			T2:      cfg.InitialTemperature,
			Voltage: m.OCV(soc, model.Charge),
		},
		now:  start,
		step: time.Duration(m.Config().Step * float64(time.Second)),
		rng:  rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
}

// Apply drives the pack with current for one model step and returns the
// resulting measurement. Positive current discharges the pack.
func (p *Pack) Apply(current float64) model.CycleInput {
	p.mu.Lock()
	defer p.mu.Unlock()
	pol := model.Charge
	if current > 0 {
		pol = model.Discharge
	}
	p.state = p.model.Advance(p.state, current, p.cfg.SOH, pol)
	p.state.SOC = clamp01(p.state.SOC)
	p.current = current
	p.now = p.now.Add(p.step)
	p.cycles++
	return p.measure()
}

// Measure returns a measurement of the current state without stepping.
func (p *Pack) Measure() model.CycleInput {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.measure()
}

func (p *Pack) measure() model.CycleInput {
	return model.CycleInput{
		Time:        p.now,
		Current:     p.current + p.noise(p.cfg.CurrentNoise),
		Voltage:     p.state.Voltage + p.noise(p.cfg.VoltageNoise),
		Temperature: p.state.T2 + p.noise(p.cfg.TemperatureNoise),
		SOC:         p.state.SOC,
		SOH:         p.cfg.SOH,
	}
}

// State returns the true plant state.
func (p *Pack) State() battery.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Cycles returns the number of applied steps.
func (p *Pack) Cycles() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cycles
}

// Next applies the configured profile current for the next cycle, clamped to
// limits when FollowLimits is set.
func (p *Pack) Next(limits *model.CycleOutput) model.CycleInput {
	p.mu.Lock()
	req := p.cfg.Profile.At(p.cycles)
	follow := p.cfg.FollowLimits
	p.mu.Unlock()
	if follow && limits != nil {
		req = Follow(req, *limits)
	}
	return p.Apply(req)
}

// Follow clamps a requested current to the limits of a cycle output.
func Follow(requested float64, out model.CycleOutput) float64 {
	if requested > out.ChargeLimit {
		return out.ChargeLimit
	}
	if requested < out.DischargeLimit {
		return out.DischargeLimit
	}
	return requested
}

// noise draws a zero-mean gaussian sample.
func (p *Pack) noise(sigma float64) float64 {
	if sigma <= 0 {
		return 0
	}
	return sigma * p.rng.NormFloat64()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
