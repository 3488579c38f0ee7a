package model

import (
	"errors"
	"fmt"
)

// ErrInvalidLimits is returned when the safety envelope is inconsistent.
var ErrInvalidLimits = errors.New("invalid limits")

// Limits is the safety envelope. Current is positive in the charge direction
// and bounded by IMax; the discharge direction is bounded by IMin.
type Limits struct {
	SOCMin float64 `json:"soc_min"`
	SOCMax float64 `json:"soc_max"`
	UMin   float64 `json:"u_min"`
	UMax   float64 `json:"u_max"`
	TMax   float64 `json:"t_max"`
	IMin   float64 `json:"i_min"`
	IMax   float64 `json:"i_max"`
}

// DefaultLimits returns the envelope of a single LFP cell.
func DefaultLimits() Limits {
	return Limits{
		SOCMin: 0.1,
		SOCMax: 0.9,
		UMin:   2.0,
		UMax:   3.6,
		TMax:   60,
		IMin:   -20,
		IMax:   20,
	}
}

// IsZero reports whether no limit has been configured.
func (l Limits) IsZero() bool { return l == Limits{} }

// Validate checks the ordering of every bound pair.
func (l Limits) Validate() error {
	if l.SOCMin >= l.SOCMax {
		return fmt.Errorf("%w: soc_min %.3f >= soc_max %.3f", ErrInvalidLimits, l.SOCMin, l.SOCMax)
	}
	if l.UMin >= l.UMax {
		return fmt.Errorf("%w: u_min %.3f >= u_max %.3f", ErrInvalidLimits, l.UMin, l.UMax)
	}
	if l.IMin > 0 || l.IMax < 0 {
		return fmt.Errorf("%w: current bounds [%.3f, %.3f] must enclose zero", ErrInvalidLimits, l.IMin, l.IMax)
	}
	if l.IMin == l.IMax {
		return fmt.Errorf("%w: empty current range", ErrInvalidLimits)
	}
	return nil
}

// ClampCurrent bounds i to [IMin, IMax].
func (l Limits) ClampCurrent(i float64) float64 {
	if i > l.IMax {
		return l.IMax
	}
	if i < l.IMin {
		return l.IMin
	}
	return i
}
