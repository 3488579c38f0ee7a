package battery

import (
	"math"

	"github.com/kilianp07/sop/core/interp"
	"github.com/kilianp07/sop/core/model"
)

// State is the digital twin of the cell: the model states carried from one
// cycle to the next.
type State struct {
	SOC           float64 `json:"soc"`
	T1            float64 `json:"t1"`
	T2            float64 `json:"t2"`
	BranchCurrent float64 `json:"branch_current"`
	Voltage       float64 `json:"voltage"`
}

// Model evaluates the three coupled cell models.
type Model struct {
	cfg Config

	ocv [2]interp.Table

	// Per-step gains dt/(R*C), 1 when the time constant is zero.
	g1, g2, gRC float64
	// alpha and beta of the RC branch recurrence.
	alpha, beta float64
}

// NewModel builds a Model. The configuration is not validated here; call
// Config.Validate at load time.
func NewModel(cfg Config) *Model {
	m := &Model{cfg: cfg}
	m.ocv[model.Charge] = interp.Table{X: cfg.OCV.SOC, Y: cfg.OCV.Charge}
	m.ocv[model.Discharge] = interp.Table{X: cfg.OCV.SOC, Y: cfg.OCV.Discharge}
	m.g1 = gain(cfg.Step, cfg.Thermal.R1*cfg.Thermal.C1)
	m.g2 = gain(cfg.Step, cfg.Thermal.R2*cfg.Thermal.C2)
	m.gRC = gain(cfg.Step, cfg.RC.R1*cfg.RC.C1)
	m.alpha = 1 - m.gRC
	m.beta = m.gRC
	return m
}

// Config returns the configuration the model was built with.
func (m *Model) Config() Config { return m.cfg }

func gain(dt, tau float64) float64 {
	g := dt / tau
	if tau == 0 || math.IsNaN(g) || math.IsInf(g, 0) {
		return 1
	}
	return g
}

// NormalizeSOH maps unusable health estimates to a healthy cell.
func NormalizeSOH(soh float64) float64 {
	if soh <= 0 || math.IsNaN(soh) || math.IsInf(soh, 0) {
		return 1
	}
	return soh
}

// OCV returns the open-circuit voltage at soc on the curve selected by p.
func (m *Model) OCV(soc float64, p model.Polarity) float64 {
	return m.ocv[curve(p)].At(soc)
}

// Terminal returns the terminal voltage for the given SOC, branch current and
// applied current.
func (m *Model) Terminal(soc, branch, current float64, p model.Polarity) float64 {
	return m.OCV(soc, p) - m.cfg.RC.R1*branch - m.cfg.RC.R0*current
}

// SOCStep advances the coulomb counter by one step. soh must be normalized.
func (m *Model) SOCStep(soc, current, soh float64) float64 {
	return soc - m.cfg.Kappa*m.cfg.Step*current/soh
}

// ThermalStep advances both Foster nodes by one step.
func (m *Model) ThermalStep(t1, t2, current float64) (float64, float64) {
	th := m.cfg.Thermal
	n1 := t1 + m.g1*(th.R1*current*current+th.Ambient-t1)
	n2 := t2 + m.g2*(t1-t2)
	return n1, n2
}

// BranchStep advances the RC branch current by one step.
func (m *Model) BranchStep(branch, current float64) float64 {
	return m.alpha*branch + m.beta*current
}

// Advance returns the twin state one step after applying current.
func (m *Model) Advance(s State, current, soh float64, p model.Polarity) State {
	soh = NormalizeSOH(soh)
	next := State{SOC: m.SOCStep(s.SOC, current, soh)}
	next.T1, next.T2 = m.ThermalStep(s.T1, s.T2, current)
	next.BranchCurrent = m.BranchStep(s.BranchCurrent, current)
	next.Voltage = m.Terminal(next.SOC, next.BranchCurrent, current, p)
	return next
}

func curve(p model.Polarity) int {
	if p == model.Discharge {
		return int(model.Discharge)
	}
	return int(model.Charge)
}
