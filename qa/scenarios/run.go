package scenarios

import (
	"fmt"
	"time"

	"github.com/kilianp07/sop/core/battery"
	"github.com/kilianp07/sop/core/model"
	"github.com/kilianp07/sop/core/sop"
	"github.com/kilianp07/sop/infra/logger"
	"github.com/kilianp07/sop/simulator"
)

// Result holds every cycle output of a scenario run.
type Result struct {
	Inputs  []model.CycleInput
	Outputs []model.CycleOutput
	Limits  model.Limits
}

// Last returns the final output.
func (r Result) Last() model.CycleOutput {
	if len(r.Outputs) == 0 {
		return model.CycleOutput{}
	}
	return r.Outputs[len(r.Outputs)-1]
}

// Run feeds the scenario inputs to a fresh controller.
func Run(sc *Scenario, log logger.Logger) (Result, error) {
	if log == nil {
		log = logger.NopLogger{}
	}
	cfg, err := sc.EngineConfig()
	if err != nil {
		return Result{}, err
	}
	ctrl, err := sop.NewController(cfg, log)
	if err != nil {
		return Result{}, err
	}
	res := Result{Limits: cfg.Limits}
	ts := time.Unix(0, 0)
	step := time.Duration(cfg.Battery.Step * float64(time.Second))
	for _, s := range sc.Samples {
		n := max(s.Repeat, 1)
		for i := 0; i < n; i++ {
			in := s.ToModel()
			in.Time = ts
			ts = ts.Add(step)
			res.Inputs = append(res.Inputs, in)
			res.Outputs = append(res.Outputs, ctrl.Step(in))
		}
	}
	if sc.Plant != nil {
		pc := simulator.Config{
			InitialSOC:   sc.Plant.InitialSOC,
			FollowLimits: sc.Plant.FollowLimits,
			Profile:      sc.Plant.Profile,
		}
		pc.SetDefaults()
		if err := pc.Validate(); err != nil {
			return res, fmt.Errorf("scenario %s: plant: %w", sc.Name, err)
		}
		pack := simulator.NewPack(battery.NewModel(cfg.Battery), pc, ts)
		in := pack.Measure()
		var last *model.CycleOutput
		for i := 0; i < sc.Plant.Cycles; i++ {
			if i > 0 {
				in = pack.Next(last)
			}
			out := ctrl.Step(in)
			res.Inputs = append(res.Inputs, in)
			res.Outputs = append(res.Outputs, out)
			last = &out
		}
	}
	return res, nil
}

// Check compares a run with the scenario expectations and returns one
// message per failed check.
//
//gocyclo:ignore
func Check(sc *Scenario, res Result) []string {
	var fails []string
	if len(res.Outputs) == 0 {
		return []string{"no cycle ran"}
	}
	exp := sc.Expected
	last := res.Last()
	if exp.Binding != "" && last.Binding.String() != exp.Binding {
		fails = append(fails, fmt.Sprintf("binding: want %s, got %s", exp.Binding, last.Binding))
	}
	if exp.Outcome != "" && last.Outcome.String() != exp.Outcome {
		fails = append(fails, fmt.Sprintf("outcome: want %s, got %s", exp.Outcome, last.Outcome))
	}
	if exp.Polarity != "" && last.Polarity.String() != exp.Polarity {
		fails = append(fails, fmt.Sprintf("polarity: want %s, got %s", exp.Polarity, last.Polarity))
	}
	if exp.Bound != nil && last.Bound != *exp.Bound {
		fails = append(fails, fmt.Sprintf("bound: want %v, got %v", *exp.Bound, last.Bound))
	}
	if exp.ChargeLimit != nil && !exp.ChargeLimit.Contains(last.ChargeLimit) {
		fails = append(fails, fmt.Sprintf("charge limit %v outside [%v,%v]", last.ChargeLimit, exp.ChargeLimit.Min, exp.ChargeLimit.Max))
	}
	if exp.DischargeLimit != nil && !exp.DischargeLimit.Contains(last.DischargeLimit) {
		fails = append(fails, fmt.Sprintf("discharge limit %v outside [%v,%v]", last.DischargeLimit, exp.DischargeLimit.Min, exp.DischargeLimit.Max))
	}
	if exp.LimitsInRange {
		for i, out := range res.Outputs {
			if out.ChargeLimit < 0 || out.ChargeLimit > res.Limits.IMax {
				fails = append(fails, fmt.Sprintf("cycle %d: charge limit %v outside [0,%v]", i, out.ChargeLimit, res.Limits.IMax))
			}
			if out.DischargeLimit > 0 || out.DischargeLimit < res.Limits.IMin {
				fails = append(fails, fmt.Sprintf("cycle %d: discharge limit %v outside [%v,0]", i, out.DischargeLimit, res.Limits.IMin))
			}
		}
	}
	if exp.PhaseChanges != nil {
		n := 0
		for _, out := range res.Outputs {
			if out.PhaseChanged {
				n++
			}
		}
		if n != *exp.PhaseChanges {
			fails = append(fails, fmt.Sprintf("phase changes: want %d, got %d", *exp.PhaseChanges, n))
		}
	}
	return fails
}
