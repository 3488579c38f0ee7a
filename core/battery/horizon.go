package battery

import (
	"gonum.org/v1/gonum/floats"

	"github.com/kilianp07/sop/core/model"
)

// Excursion is the range covered by every model state over a horizon.
type Excursion struct {
	SOCMin float64 `json:"soc_min"`
	SOCMax float64 `json:"soc_max"`
	T1Min  float64 `json:"t1_min"`
	T1Max  float64 `json:"t1_max"`
	T2Min  float64 `json:"t2_min"`
	T2Max  float64 `json:"t2_max"`
	UMin   float64 `json:"u_min"`
	UMax   float64 `json:"u_max"`
}

// Trajectory holds the predicted states over a horizon. Index 0 is the state
// before the first step. Buffers are sized once and reused by Simulate.
type Trajectory struct {
	SOC    []float64
	T1     []float64
	T2     []float64
	Branch []float64
	U      []float64
}

// NewTrajectory allocates buffers for a horizon of h points, at least one.
func NewTrajectory(h int) *Trajectory {
	if h < 1 {
		h = 1
	}
	return &Trajectory{
		SOC:    make([]float64, h),
		T1:     make([]float64, h),
		T2:     make([]float64, h),
		Branch: make([]float64, h),
		U:      make([]float64, h),
	}
}

// Len returns the horizon length.
func (t *Trajectory) Len() int { return len(t.SOC) }

// Simulate holds current constant over the horizon of tr starting from s and
// returns the excursion of every state. s is not modified.
func (m *Model) Simulate(current float64, s State, p model.Polarity, soh float64, tr *Trajectory) Excursion {
	soh = NormalizeSOH(soh)
	soc, t1, t2, ir := s.SOC, s.T1, s.T2, s.BranchCurrent
	for k := 0; k < tr.Len(); k++ {
		if k > 0 {
			soc = m.SOCStep(soc, current, soh)
			t1, t2 = m.ThermalStep(t1, t2, current)
			ir = m.BranchStep(ir, current)
		}
		tr.SOC[k] = soc
		tr.T1[k] = t1
		tr.T2[k] = t2
		tr.Branch[k] = ir
		tr.U[k] = m.Terminal(soc, ir, current, p)
	}
	return tr.Excursion()
}

// Excursion returns the min and max of each state in the trajectory.
func (t *Trajectory) Excursion() Excursion {
	return Excursion{
		SOCMin: floats.Min(t.SOC),
		SOCMax: floats.Max(t.SOC),
		T1Min:  floats.Min(t.T1),
		T1Max:  floats.Max(t.T1),
		T2Min:  floats.Min(t.T2),
		T2Max:  floats.Max(t.T2),
		UMin:   floats.Min(t.U),
		UMax:   floats.Max(t.U),
	}
}

// Predict is Simulate with a freshly allocated trajectory of h points.
func (m *Model) Predict(current float64, s State, p model.Polarity, soh float64, h int) Excursion {
	return m.Simulate(current, s, p, soh, NewTrajectory(h))
}
