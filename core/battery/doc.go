// Package battery implements the physical forecasting models of a cell:
// coulomb counting, a 2-node Foster thermal network and a 1-RC equivalent
// circuit. Model.Simulate holds a candidate current over a horizon and
// reports the excursion of every state; Model.Advance moves the digital twin
// by one step.
//
// A Model is immutable once built and safe for concurrent use. Trajectory
// buffers are not; each caller owns its own.
package battery
