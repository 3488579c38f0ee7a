package sop

import (
	"fmt"
	"time"

	"github.com/kilianp07/sop/core/battery"
	"github.com/kilianp07/sop/core/logger"
	"github.com/kilianp07/sop/core/model"
)

// Controller runs the per-cycle pipeline for one pack: phase detection,
// predictive bound, instantaneous correction and twin advance.
type Controller struct {
	cfg    Config
	model  *battery.Model
	search *Searcher
	corr   Corrector
	phase  *PhaseDetector
	log    logger.Logger

	running   bool
	twin      battery.State
	candidate float64
	prev      model.CycleInput
}

// NewController validates cfg and returns an idle Controller.
func NewController(cfg Config, log logger.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if log == nil {
		return nil, fmt.Errorf("sop controller: nil logger")
	}
	m := battery.NewModel(cfg.Battery)
	return &Controller{
		cfg:    cfg,
		model:  m,
		search: NewSearcher(m, cfg.Limits, cfg.Horizon, cfg.Search),
		corr:   NewCorrector(cfg.Limits, cfg.Correction),
		phase:  NewPhaseDetector(cfg.Phase),
		log:    log,
	}, nil
}

// Step consumes one measurement and returns the cycle result.
func (c *Controller) Step(in model.CycleInput) model.CycleOutput {
	start := time.Now()
	if !c.running {
		c.initialise(in)
	} else if c.cfg.Twin.ResyncSOC {
		c.twin.SOC = in.SOC
	}

	pol, flipped := c.phase.Update(in.Current)
	if flipped {
		c.log.Infof("phase changed to %s (avg %.3f A)", pol, c.phase.Average())
	}

	bound := c.search.FindBound(in.Current, c.twin, pol, in.SOH)
	corr := c.corr.Correct(CorrectionInput{
		Previous:        c.candidate,
		Target:          bound.Current,
		SOC:             in.SOC,
		Voltage:         in.Voltage,
		Temperature:     in.Temperature,
		PrevVoltage:     c.prev.Voltage,
		PrevTemperature: c.prev.Temperature,
		TerminalVoltage: c.twin.Voltage,
	})
	c.candidate = corr.Current
	c.twin = c.model.Advance(c.twin, c.candidate, in.SOH, pol)
	c.prev = in

	out := model.CycleOutput{
		Time:           in.Time,
		ChargePower:    corr.ChargePower,
		DischargePower: corr.DischargePower,
		ChargeLimit:    corr.ChargeLimit,
		DischargeLimit: corr.DischargeLimit,
		Bound:          bound.Current,
		Current:        corr.Current,
		Binding:        corr.Binding,
		Outcome:        bound.Outcome,
		Iterations:     bound.Iterations,
		Polarity:       pol,
		PhaseChanged:   flipped,
	}
	out.Duration = time.Since(start)
	if c.cfg.CycleBudget > 0 && out.Duration > c.cfg.CycleBudget {
		out.OverBudget = true
		c.log.Warnf("cycle took %s, budget %s", out.Duration, c.cfg.CycleBudget)
	}
	return out
}

func (c *Controller) initialise(in model.CycleInput) {
	t1 := c.cfg.Twin.CoreTemperature
	if c.cfg.Twin.CoreFromMeasurement {
		t1 = in.Temperature
	}
	c.twin = battery.State{
		SOC:     in.SOC,
		T1:      t1,
		T2:      in.Temperature,
		Voltage: in.Voltage,
	}
	c.candidate = in.Current
	c.prev = in
	c.running = true
	c.log.Infof("twin initialised: soc=%.3f t1=%.1f t2=%.1f u=%.3f", c.twin.SOC, c.twin.T1, c.twin.T2, c.twin.Voltage)
}

// Snapshot is a value copy of the controller state, safe to hand to other
// goroutines.
type Snapshot struct {
	Running   bool           `json:"running"`
	Twin      battery.State  `json:"twin"`
	Candidate float64        `json:"candidate"`
	Polarity  model.Polarity `json:"polarity"`
	Average   float64        `json:"average_current"`
}

// Snapshot returns the current state by value.
func (c *Controller) Snapshot() Snapshot {
	return Snapshot{
		Running:   c.running,
		Twin:      c.twin,
		Candidate: c.candidate,
		Polarity:  c.phase.Polarity(),
		Average:   c.phase.Average(),
	}
}

// Running reports whether the twin has been initialised.
func (c *Controller) Running() bool { return c.running }

// Twin returns a copy of the twin state.
func (c *Controller) Twin() battery.State { return c.twin }

// Candidate returns the tracked candidate current.
func (c *Controller) Candidate() float64 { return c.candidate }

// Polarity returns the detected phase.
func (c *Controller) Polarity() model.Polarity { return c.phase.Polarity() }

// Model returns the battery model used by the controller.
func (c *Controller) Model() *battery.Model { return c.model }

// Config returns the controller configuration.
func (c *Controller) Config() Config { return c.cfg }

// Reset returns the controller to the idle state.
func (c *Controller) Reset() {
	c.running = false
	c.twin = battery.State{}
	c.candidate = 0
	c.prev = model.CycleInput{}
	c.phase.Reset()
}
