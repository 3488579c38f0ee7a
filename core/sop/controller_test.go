package sop

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/sop/core/battery"
	"github.com/kilianp07/sop/core/model"
	"github.com/kilianp07/sop/infra/logger"
)

func newTestController(t *testing.T, mutate func(*Config)) *Controller {
	t.Helper()
	cfg := DefaultConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	c, err := NewController(cfg, logger.NopLogger{})
	require.NoError(t, err)
	return c
}

func TestControllerRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Horizon = -1
	_, err := NewController(cfg, logger.NopLogger{})
	assert.True(t, errors.Is(err, ErrInvalidConfig))
	_, err = NewController(DefaultConfig(), nil)
	assert.Error(t, err)
}

func TestControllerInitialisesTwinOnFirstSample(t *testing.T) {
	c := newTestController(t, nil)
	require.False(t, c.Running())
	in := model.CycleInput{Current: 0, Voltage: 3.28, Temperature: 25, SOC: 0.5, SOH: 1}
	out := c.Step(in)
	require.True(t, c.Running())

	seed := battery.State{SOC: 0.5, T1: 60, T2: 25, Voltage: 3.28}
	expected := c.Model().Advance(seed, out.Current, 1, out.Polarity)
	assert.Equal(t, expected, c.Twin())
	assert.Equal(t, out.Current, c.Candidate())
}

func TestControllerCoreTemperatureFromMeasurement(t *testing.T) {
	c := newTestController(t, func(cfg *Config) { cfg.Twin.CoreFromMeasurement = true })
	c.Step(model.CycleInput{Voltage: 3.28, Temperature: 31, SOC: 0.5, SOH: 1})
	// zero current: node 1 relaxes from 31 toward ambient
	assert.Less(t, c.Twin().T1, 31.0)
	assert.Greater(t, c.Twin().T1, 25.0)
}

func TestControllerChargeRequestAtMidSOC(t *testing.T) {
	c := newTestController(t, nil)
	limits := c.Config().Limits
	out := c.Step(model.CycleInput{Current: limits.IMax, Voltage: 3.28, Temperature: 25, SOC: 0.5, SOH: 1})

	assert.GreaterOrEqual(t, out.ChargeLimit, 0.0)
	assert.LessOrEqual(t, out.ChargeLimit, limits.IMax)
	assert.GreaterOrEqual(t, out.ChargePower, 0.0)
	assert.Equal(t, model.OutcomeUnconstrained, out.Outcome)
	assert.Equal(t, limits.IMax, out.Bound)
	assert.Equal(t, model.ConstraintNone, out.Binding)
	assert.InDelta(t, limits.IMax*3.28, out.ChargePower, 1e-9)
}

func TestControllerSOCMaxForcesZeroCharge(t *testing.T) {
	c := newTestController(t, nil)
	soc := c.Config().Limits.SOCMax
	in := model.CycleInput{Current: 5, Voltage: 3.4, Temperature: 25, SOC: soc, SOH: 1}
	for i := 0; i < 5; i++ {
		out := c.Step(in)
		assert.Equal(t, 0.0, out.ChargeLimit, "cycle %d", i)
		assert.Equal(t, 0.0, out.ChargePower, "cycle %d", i)
		assert.LessOrEqual(t, out.Current, 0.0, "cycle %d", i)
		assert.Equal(t, model.ConstraintSOCMax, out.Binding, "cycle %d", i)
	}
}

func TestControllerCriticalState(t *testing.T) {
	c := newTestController(t, nil)
	out := c.Step(model.CycleInput{Current: 5, Voltage: 3.0, Temperature: 25, SOC: 0.05, SOH: 1})
	assert.Equal(t, model.OutcomeCritical, out.Outcome)
	assert.Equal(t, 0.0, out.Bound)
	assert.Equal(t, uint8(model.OutcomeCritical)<<4|uint8(out.Binding), out.Code())
}

func TestControllerCandidateTracksBound(t *testing.T) {
	c := newTestController(t, nil)
	in := model.CycleInput{Current: 10, Voltage: 3.28, Temperature: 25, SOC: 0.5, SOH: 1}
	var out model.CycleOutput
	for i := 0; i < 10; i++ {
		out = c.Step(in)
		in.Voltage = c.Twin().Voltage
	}
	assert.InDelta(t, 10.0, out.Current, 1e-9)
	assert.Equal(t, model.Discharge, out.Polarity, "positive current flips the detector")
	assert.Less(t, c.Twin().SOC, 0.5)
}

func TestControllerResyncSOC(t *testing.T) {
	c := newTestController(t, func(cfg *Config) { cfg.Twin.ResyncSOC = true })
	c.Step(model.CycleInput{Current: 0, Voltage: 3.28, Temperature: 25, SOC: 0.5, SOH: 1})
	c.Step(model.CycleInput{Current: 0, Voltage: 3.27, Temperature: 25, SOC: 0.4, SOH: 1})
	assert.InDelta(t, 0.4, c.Twin().SOC, 1e-9)

	plain := newTestController(t, nil)
	plain.Step(model.CycleInput{Current: 0, Voltage: 3.28, Temperature: 25, SOC: 0.5, SOH: 1})
	plain.Step(model.CycleInput{Current: 0, Voltage: 3.27, Temperature: 25, SOC: 0.4, SOH: 1})
	assert.InDelta(t, 0.5, plain.Twin().SOC, 1e-9)
}

func TestControllerBudgetOverrun(t *testing.T) {
	c := newTestController(t, func(cfg *Config) { cfg.CycleBudget = time.Nanosecond })
	out := c.Step(model.CycleInput{Current: -20, Voltage: 3.28, Temperature: 25, SOC: 0.5, SOH: 1})
	assert.True(t, out.OverBudget)
	assert.Greater(t, out.Duration, time.Duration(0))
}

func TestControllerReset(t *testing.T) {
	c := newTestController(t, nil)
	c.Step(model.CycleInput{Current: 3, Voltage: 3.28, Temperature: 25, SOC: 0.5, SOH: 1})
	c.Reset()
	assert.False(t, c.Running())
	assert.Equal(t, battery.State{}, c.Twin())
	assert.Equal(t, model.Charge, c.Polarity())
}

func TestControllerSnapshot(t *testing.T) {
	c := newTestController(t, nil)
	assert.False(t, c.Snapshot().Running)
	out := c.Step(model.CycleInput{Current: 20, Voltage: 3.28, Temperature: 25, SOC: 0.5, SOH: 1})
	snap := c.Snapshot()
	assert.True(t, snap.Running)
	assert.Equal(t, c.Twin(), snap.Twin)
	assert.Equal(t, out.Polarity, snap.Polarity)
	assert.InDelta(t, 20.0/60, snap.Average, 1e-9)

	snap.Twin.SOC = 0
	assert.NotEqual(t, snap.Twin.SOC, c.Twin().SOC)
}
