package sop

import (
	"github.com/kilianp07/sop/core/battery"
	"github.com/kilianp07/sop/core/model"
)

// Residual indexes.
const (
	ResidualSOC = iota
	ResidualTemperature
	ResidualVoltage
)

// Residuals are the horizon constraint margins. A positive entry is a
// violation.
type Residuals [3]float64

// Feasible reports whether every constraint is met.
func (r Residuals) Feasible() bool {
	return r[0] <= 0 && r[1] <= 0 && r[2] <= 0
}

// Evaluate computes the residuals of ex for the direction of requested.
func Evaluate(ex battery.Excursion, requested float64, l model.Limits) Residuals {
	if requested > 0 {
		return Residuals{
			l.SOCMin - ex.SOCMin,
			ex.T2Max - l.TMax,
			l.UMin - ex.UMin,
		}
	}
	return Residuals{
		ex.SOCMax - l.SOCMax,
		ex.T2Max - l.TMax,
		ex.UMax - l.UMax,
	}
}
