// Package bench measures the per-cycle cost of the engine against a simulated
// pack and summarizes it against the control cadence.
package bench

import (
	"context"
	"errors"
	"sort"
	"time"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/sop/core/battery"
	"github.com/kilianp07/sop/core/logger"
	"github.com/kilianp07/sop/core/model"
	"github.com/kilianp07/sop/core/sop"
	"github.com/kilianp07/sop/simulator"
)

// ErrNoCycles is returned when a run is asked for zero cycles.
var ErrNoCycles = errors.New("bench: at least one cycle is required")

// Options configure a run.
type Options struct {
	Cycles  int
	Cadence time.Duration
	Engine  sop.Config
	Plant   simulator.Config
}

// Report summarizes the cycle cost of a run.
type Report struct {
	Cycles     int            `json:"cycles"`
	Cadence    time.Duration  `json:"cadence"`
	Total      time.Duration  `json:"total"`
	Mean       time.Duration  `json:"mean"`
	P50        time.Duration  `json:"p50"`
	P99        time.Duration  `json:"p99"`
	Max        time.Duration  `json:"max"`
	Load       float64        `json:"load"`
	OverBudget int            `json:"over_budget"`
	Outcomes   map[string]int `json:"outcomes"`
	Bindings   map[string]int `json:"bindings"`
}

// Run steps a controller against a simulated pack following the published
// limits and reports the measured cycle costs. It stops early when ctx is
// canceled.
func Run(ctx context.Context, opts Options, log logger.Logger) (Report, error) {
	if opts.Cycles <= 0 {
		return Report{}, ErrNoCycles
	}
	ctrl, err := sop.NewController(opts.Engine, log)
	if err != nil {
		return Report{}, err
	}
	plant := opts.Plant
	plant.FollowLimits = true
	pack := simulator.NewPack(battery.NewModel(opts.Engine.Battery), plant, time.Now())

	costs := make([]float64, 0, opts.Cycles)
	outs := make([]model.CycleOutput, 0, opts.Cycles)
	in := pack.Measure()
	for i := 0; i < opts.Cycles; i++ {
		if ctx.Err() != nil {
			break
		}
		out := ctrl.Step(in)
		costs = append(costs, out.Duration.Seconds())
		outs = append(outs, out)
		in = pack.Next(&out)
	}
	rep := Summarize(costs, opts.Cadence)
	for _, out := range outs {
		rep.Outcomes[out.Outcome.String()]++
		rep.Bindings[out.Binding.String()]++
		if out.OverBudget {
			rep.OverBudget++
		}
	}
	return rep, nil
}

// Summarize computes the statistics of cycle costs given in seconds.
func Summarize(costs []float64, cadence time.Duration) Report {
	rep := Report{
		Cycles:   len(costs),
		Cadence:  cadence,
		Outcomes: map[string]int{},
		Bindings: map[string]int{},
	}
	if len(costs) == 0 {
		return rep
	}
	sorted := append([]float64(nil), costs...)
	sort.Float64s(sorted)
	rep.Total = seconds(floats.Sum(sorted))
	rep.Mean = seconds(stat.Mean(sorted, nil))
	rep.P50 = seconds(stat.Quantile(0.5, stat.Empirical, sorted, nil))
	rep.P99 = seconds(stat.Quantile(0.99, stat.Empirical, sorted, nil))
	rep.Max = seconds(floats.Max(sorted))
	if cadence > 0 {
		rep.Load = stat.Mean(sorted, nil) / cadence.Seconds()
	}
	return rep
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}
