// Package interp provides clamped piecewise-linear lookup tables used by the
// physical battery models, typically open-circuit voltage as a function of
// state of charge.
package interp
