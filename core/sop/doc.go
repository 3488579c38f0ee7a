// Package sop is the predictive state-of-power engine. Each control cycle
// the Controller runs a bounded Illinois search over the battery models to
// find the largest current that keeps the pack inside its envelope for the
// whole horizon, blends it with a reactive priority-ordered limiter, and
// advances its digital twin with the finalized current.
//
// A Controller is not safe for concurrent use. Run one per pack, confined to
// a single goroutine.
package sop
