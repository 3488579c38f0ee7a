package sop

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kilianp07/sop/core/model"
)

func defaultCorrector() Corrector {
	cfg := DefaultConfig()
	return NewCorrector(cfg.Limits, cfg.Correction)
}

func TestCorrectNothingBinding(t *testing.T) {
	c := defaultCorrector()
	out := c.Correct(CorrectionInput{
		SOC: 0.5, Voltage: 3.3, PrevVoltage: 3.3,
		Temperature: 25, PrevTemperature: 25,
		TerminalVoltage: 3.3,
	})
	assert.Equal(t, model.ConstraintNone, out.Binding)
	assert.Equal(t, 0.0, out.Current)
	assert.Equal(t, 20.0, out.ChargeLimit)
	assert.Equal(t, -20.0, out.DischargeLimit)
	assert.InDelta(t, 66.0, out.ChargePower, 1e-9)
	assert.InDelta(t, -66.0, out.DischargePower, 1e-9)
}

func TestCorrectSOCMaxCutsCharge(t *testing.T) {
	c := defaultCorrector()
	out := c.Correct(CorrectionInput{
		Previous: 5, Target: 10,
		SOC: 0.9, Voltage: 3.4, PrevVoltage: 3.4,
		Temperature: 25, PrevTemperature: 25,
		TerminalVoltage: 3.4,
	})
	assert.Equal(t, 0.0, out.ChargeLimit)
	assert.Equal(t, 0.0, out.ChargePower)
	assert.Equal(t, 0.0, out.Current)
	assert.Equal(t, model.ConstraintSOCMax, out.Binding)
	assert.Less(t, out.DischargeLimit, 0.0, "discharge side stays available")
}

func TestCorrectSOCMinCutsDischarge(t *testing.T) {
	c := defaultCorrector()
	out := c.Correct(CorrectionInput{
		Previous: -5, Target: -10,
		SOC: 0.1, Voltage: 3.1, PrevVoltage: 3.1,
		Temperature: 25, PrevTemperature: 25,
		TerminalVoltage: 3.1,
	})
	assert.Equal(t, 0.0, out.DischargeLimit)
	assert.Equal(t, 0.0, out.Current)
	assert.Equal(t, model.ConstraintSOCMin, out.Binding)
	assert.Greater(t, out.ChargeLimit, 0.0)
}

func TestCorrectVoltageMaxBinds(t *testing.T) {
	c := defaultCorrector()
	out := c.Correct(CorrectionInput{
		Previous: 2, Target: 20,
		SOC: 0.5, Voltage: 3.55, PrevVoltage: 3.55,
		Temperature: 25, PrevTemperature: 25,
		TerminalVoltage: 3.55,
	})
	assert.Equal(t, model.ConstraintUMax, out.Binding)
	assert.InDelta(t, 0.25, out.Delta, 1e-9)
	assert.InDelta(t, 2.25, out.Current, 1e-9)
}

func TestCorrectRateOfChangeTerm(t *testing.T) {
	c := defaultCorrector()
	steady := c.Correct(CorrectionInput{Previous: 2, Target: 20, SOC: 0.5, Voltage: 3.5, PrevVoltage: 3.5, Temperature: 25, PrevTemperature: 25})
	rising := c.Correct(CorrectionInput{Previous: 2, Target: 20, SOC: 0.5, Voltage: 3.5, PrevVoltage: 3.45, Temperature: 25, PrevTemperature: 25})
	// a rising voltage tightens the u_max corrector by Kd*0.05
	assert.InDelta(t, steady.Delta-0.25, rising.Delta, 1e-9)
}

func TestCorrectSaturationKeepsSign(t *testing.T) {
	c := defaultCorrector()
	// far over u_max: the corrector alone may bring the current to zero, not below
	out := c.Correct(CorrectionInput{
		Previous: 4, Target: 4,
		SOC: 0.5, Voltage: 4.5, PrevVoltage: 4.5,
		Temperature: 25, PrevTemperature: 25,
	})
	assert.Equal(t, 0.0, out.Current)
	assert.Equal(t, model.ConstraintUMax, out.Binding)
}

func TestCorrectLoweringUMaxIsMonotonic(t *testing.T) {
	in := CorrectionInput{
		Previous: 2, Target: 20,
		SOC: 0.5, Voltage: 3.3, PrevVoltage: 3.28,
		Temperature: 59.9, PrevTemperature: 59.8,
		TerminalVoltage: 3.3,
	}
	cfg := DefaultConfig()
	prevLimit, prevPower, prevCurrent := 1e9, 1e9, 1e9
	for _, umax := range []float64{3.8, 3.6, 3.5, 3.4, 3.35, 3.3, 3.2, 3.0} {
		l := cfg.Limits
		l.UMax = umax
		out := NewCorrector(l, cfg.Correction).Correct(in)
		if out.ChargeLimit > prevLimit || out.ChargePower > prevPower || out.Current > prevCurrent {
			t.Fatalf("u_max %.2f loosened the result: %+v", umax, out)
		}
		prevLimit, prevPower, prevCurrent = out.ChargeLimit, out.ChargePower, out.Current
	}
	assert.Less(t, prevLimit, 2.0)
}

func TestCorrectLoweringTMaxIsMonotonic(t *testing.T) {
	in := CorrectionInput{
		Previous: 3, Target: 15,
		SOC: 0.5, Voltage: 3.59, PrevVoltage: 3.59,
		Temperature: 40, PrevTemperature: 39.5,
		TerminalVoltage: 3.59,
	}
	cfg := DefaultConfig()
	prev := 1e9
	for _, tmax := range []float64{60, 50, 45, 41, 40, 38} {
		l := cfg.Limits
		l.TMax = tmax
		out := NewCorrector(l, cfg.Correction).Correct(in)
		if out.ChargeLimit > prev {
			t.Fatalf("t_max %.1f raised the charge limit to %v", tmax, out.ChargeLimit)
		}
		prev = out.ChargeLimit
	}
}
