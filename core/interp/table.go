package interp

import (
	"errors"
	"fmt"
)

// ErrInvalidTable is returned by Validate for tables the lookup functions
// would silently degrade on.
var ErrInvalidTable = errors.New("invalid interpolation table")

// Table is a breakpoint table. X must be strictly increasing and Y must have
// the same length. Lookups never fail: malformed tables degrade to a boundary
// value.
type Table struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// At returns the interpolated ordinate for x.
func (t Table) At(x float64) float64 {
	y, _ := LinearSlope(t.X, t.Y, x)
	return y
}

// AtSlope returns the interpolated ordinate and the local slope dy/dx.
func (t Table) AtSlope(x float64) (float64, float64) {
	return LinearSlope(t.X, t.Y, x)
}

// Len returns the number of usable breakpoints.
func (t Table) Len() int {
	if len(t.X) < len(t.Y) {
		return len(t.X)
	}
	return len(t.Y)
}

// Validate checks that the table has at least two points, matching lengths
// and a strictly increasing abscissa.
func (t Table) Validate() error {
	if len(t.X) != len(t.Y) {
		return fmt.Errorf("%w: %d abscissae for %d ordinates", ErrInvalidTable, len(t.X), len(t.Y))
	}
	if len(t.X) < 2 {
		return fmt.Errorf("%w: need at least 2 points, got %d", ErrInvalidTable, len(t.X))
	}
	for i := 1; i < len(t.X); i++ {
		if t.X[i] <= t.X[i-1] {
			return fmt.Errorf("%w: abscissa not increasing at index %d", ErrInvalidTable, i)
		}
	}
	return nil
}

// Linear interpolates y at x over the breakpoints xs, ys.
func Linear(xs, ys []float64, x float64) float64 {
	y, _ := LinearSlope(xs, ys, x)
	return y
}

// LinearSlope interpolates y at x and returns the slope of the enclosing
// segment. Outside the table the end ordinate is returned with a zero slope.
// A zero-width segment yields its left ordinate.
func LinearSlope(xs, ys []float64, x float64) (float64, float64) {
	n := len(xs)
	if len(ys) < n {
		n = len(ys)
	}
	switch {
	case n == 0:
		return 0, 0
	case n == 1:
		return ys[0], 0
	}
	if x <= xs[0] {
		return ys[0], 0
	}
	if x >= xs[n-1] {
		return ys[n-1], 0
	}
	// Last breakpoint strictly below x, so an exact knot resolves to the
	// segment on its left.
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if xs[mid] < x {
			lo = mid
		} else {
			hi = mid
		}
	}
	span := xs[hi] - xs[lo]
	if span == 0 {
		return ys[lo], 0
	}
	slope := (ys[hi] - ys[lo]) / span
	if x == xs[hi] {
		return ys[hi], slope
	}
	return ys[lo] + slope*(x-xs[lo]), slope
}
