package sop

import (
	"math"

	"github.com/kilianp07/sop/core/model"
)

// CorrectionInput is what the instantaneous layer sees of one cycle. Deltas
// are relative to Previous, the candidate current of the previous cycle.
type CorrectionInput struct {
	Previous        float64
	Target          float64
	SOC             float64
	Voltage         float64
	Temperature     float64
	PrevVoltage     float64
	PrevTemperature float64
	// TerminalVoltage is the twin terminal voltage of the previous cycle.
	TerminalVoltage float64
}

// Correction is the output of the instantaneous layer.
type Correction struct {
	ChargeLimit    float64
	DischargeLimit float64
	ChargePower    float64
	DischargePower float64
	Delta          float64
	Current        float64
	Binding        model.Constraint
}

// Corrector is the reactive limiter acting on measured margins.
type Corrector struct {
	limits model.Limits
	gains  CorrectionConfig
}

// NewCorrector returns a Corrector for the envelope l.
func NewCorrector(l model.Limits, g CorrectionConfig) Corrector {
	return Corrector{limits: l, gains: g}
}

// pd evaluates Ke*e + Kd*de with e = limit - measurement.
func pd(g Gains, limit, measurement, prevMeasurement float64) float64 {
	e := limit - measurement
	de := prevMeasurement - measurement
	return g.Ke*e + g.Kd*de
}

// Correct computes the power limits and the delta applied to the candidate
// current. Charge-side deltas never take the current below zero and
// discharge-side deltas never take it above zero.
func (c Corrector) Correct(in CorrectionInput) Correction {
	l := c.limits
	p := in.Previous

	dIMax := l.IMax - p
	dIMin := l.IMin - p

	socMaxCut := in.SOC >= l.SOCMax
	socMinCut := in.SOC <= l.SOCMin
	dSOCMax, dSOCMin := dIMax, dIMin
	if socMaxCut {
		dSOCMax = -p
	}
	if socMinCut {
		dSOCMin = -p
	}

	dUMax := math.Max(pd(c.gains.UMax, l.UMax, in.Voltage, in.PrevVoltage), -p)
	dTCharge := math.Max(pd(c.gains.TCharge, l.TMax, in.Temperature, in.PrevTemperature), -p)
	dUMin := math.Min(pd(c.gains.UMin, l.UMin, in.Voltage, in.PrevVoltage), -p)
	dTDischarge := math.Min(pd(c.gains.TDischarge, l.TMax, in.Temperature, in.PrevTemperature), -p)

	out := Correction{}
	if !socMaxCut {
		out.ChargeLimit = clamp(p+math.Max(dUMax, dTCharge), 0, l.IMax)
	}
	if !socMinCut {
		out.DischargeLimit = clamp(p+math.Min(dUMin, dTDischarge), l.IMin, 0)
	}
	out.ChargePower = out.ChargeLimit * in.TerminalVoltage
	out.DischargePower = out.DischargeLimit * in.TerminalVoltage

	chain := [...]struct {
		code  model.Constraint
		bound float64
		upper bool
	}{
		{model.ConstraintSOCMax, dSOCMax, true},
		{model.ConstraintUMax, dUMax, true},
		{model.ConstraintTMaxCharge, dTCharge, true},
		{model.ConstraintSOCMin, dSOCMin, false},
		{model.ConstraintUMin, dUMin, false},
		{model.ConstraintTMaxDischarge, dTDischarge, false},
		{model.ConstraintIMax, dIMax, true},
		{model.ConstraintIMin, dIMin, false},
	}
	delta := in.Target - p
	for _, e := range chain {
		var next float64
		if e.upper {
			next = math.Min(delta, e.bound)
		} else {
			next = math.Max(delta, e.bound)
		}
		if next != delta {
			delta = next
			out.Binding = e.code
		}
	}
	out.Delta = delta
	out.Current = p + delta
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}
