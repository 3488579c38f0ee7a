// Package simulator provides a simulated battery pack plant. It turns an
// applied current profile into noisy measurements with the same physical
// models the engine predicts with, so the engine, the bench harness and the
// scenarios can run without hardware.
package simulator
