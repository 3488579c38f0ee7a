package bench

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/sop/core/sop"
	"github.com/kilianp07/sop/infra/logger"
	"github.com/kilianp07/sop/simulator"
)

func TestSummarize(t *testing.T) {
	costs := []float64{0.004, 0.001, 0.002, 0.003}
	rep := Summarize(costs, 10*time.Millisecond)
	assert.Equal(t, 4, rep.Cycles)
	assert.InDelta(t, float64(10*time.Millisecond), float64(rep.Total), 1e3)
	assert.InDelta(t, float64(2500*time.Microsecond), float64(rep.Mean), 1e3)
	assert.InDelta(t, float64(4*time.Millisecond), float64(rep.Max), 1e3)
	assert.InDelta(t, float64(4*time.Millisecond), float64(rep.P99), 1e3)
	assert.InDelta(t, float64(2*time.Millisecond), float64(rep.P50), 1e3)
	assert.InDelta(t, 0.25, rep.Load, 1e-9)
	// input order is preserved
	assert.Equal(t, 0.004, costs[0])
}

func TestSummarizeEmpty(t *testing.T) {
	rep := Summarize(nil, time.Second)
	assert.Zero(t, rep.Cycles)
	assert.Zero(t, rep.Load)
	assert.NotNil(t, rep.Outcomes)
}

func TestRun(t *testing.T) {
	opts := Options{
		Cycles:  50,
		Cadence: time.Second,
		Engine:  sop.DefaultConfig(),
		Plant:   simulator.Config{Profile: simulator.Profile{{Current: 15, Steps: 25}, {Current: -15, Steps: 25}}},
	}
	rep, err := Run(context.Background(), opts, logger.NopLogger{})
	require.NoError(t, err)
	assert.Equal(t, 50, rep.Cycles)
	assert.Greater(t, rep.Max, time.Duration(0))
	assert.LessOrEqual(t, rep.Mean, rep.Max)
	total := 0
	for _, n := range rep.Outcomes {
		total += n
	}
	assert.Equal(t, 50, total)
}

func TestRunRejectsZeroCycles(t *testing.T) {
	_, err := Run(context.Background(), Options{Engine: sop.DefaultConfig()}, logger.NopLogger{})
	assert.True(t, errors.Is(err, ErrNoCycles))
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rep, err := Run(ctx, Options{Cycles: 10, Engine: sop.DefaultConfig()}, logger.NopLogger{})
	require.NoError(t, err)
	assert.Zero(t, rep.Cycles)
}
