// Package model holds the data exchanged with the state-of-power engine:
// per-cycle measurements, the per-cycle result, the safety envelope and the
// diagnostic enumerations.
package model
