package sop

import (
	"math"

	"github.com/kilianp07/sop/core/battery"
	"github.com/kilianp07/sop/core/model"
)

// SearchResult is the outcome of one FindBound call.
type SearchResult struct {
	Current    float64       `json:"current"`
	Residuals  Residuals     `json:"residuals"`
	Outcome    model.Outcome `json:"outcome"`
	Iterations int           `json:"iterations"`
}

// Searcher runs the bounding current search. It owns the horizon buffers and
// is therefore not safe for concurrent use.
type Searcher struct {
	model  *battery.Model
	limits model.Limits
	cfg    SearchConfig
	tr     *battery.Trajectory
}

// NewSearcher returns a Searcher simulating horizon points per probe.
func NewSearcher(m *battery.Model, limits model.Limits, horizon int, cfg SearchConfig) *Searcher {
	if cfg.MaxIterations < 1 {
		cfg.MaxIterations = 1
	}
	return &Searcher{model: m, limits: limits, cfg: cfg, tr: battery.NewTrajectory(horizon)}
}

func (s *Searcher) probe(current, requested float64, st battery.State, p model.Polarity, soh float64) Residuals {
	ex := s.model.Simulate(current, st, p, soh, s.tr)
	return Evaluate(ex, requested, s.limits)
}

type endpoint uint8

const (
	retainedNone endpoint = iota
	retainedA
	retainedB
)

// FindBound returns the largest current in the direction of requested that
// keeps every horizon residual non-positive, never exceeding requested in
// magnitude. A positive request is bounded by IMax, any other by IMin.
func (s *Searcher) FindBound(requested float64, st battery.State, p model.Polarity, soh float64) SearchResult {
	a := 0.0
	rA := s.probe(a, requested, st, p, soh)
	if !rA.Feasible() {
		return SearchResult{Current: 0, Residuals: rA, Outcome: model.OutcomeCritical}
	}

	b := s.limits.IMin
	if requested > 0 {
		b = s.limits.IMax
	}
	rB := s.probe(b, requested, st, p, soh)
	if rB.Feasible() {
		return SearchResult{Current: clampToRequest(b, requested), Residuals: rB, Outcome: model.OutcomeUnconstrained}
	}

	res := SearchResult{Outcome: model.OutcomeExhausted}
	feasible, rFeasible := a, rA
	retained := retainedNone
	var c float64
	var rC Residuals
	for it := 0; it < s.cfg.MaxIterations; it++ {
		if it == 0 {
			c = requested
		} else {
			c = a + nextStep(a, b, rA, rB)
		}
		c = s.limits.ClampCurrent(c)
		rC = s.probe(c, requested, st, p, soh)

		if !rC.Feasible() {
			b, rB = c, rC
			if retained == retainedA {
				illinois(&rB, rA, rC)
			}
			retained = retainedA
		} else {
			a, rA = c, rC
			feasible, rFeasible = c, rC
			if retained == retainedB {
				illinois(&rA, rB, rC)
			}
			retained = retainedB
		}
		res.Current, res.Residuals = c, rC
		res.Iterations = it + 1

		if s.cfg.Tolerance > 0 && math.Abs(b-a) < s.cfg.Tolerance {
			res.Outcome = model.OutcomeConverged
			break
		}
	}
	if s.cfg.Mode == ModeFeasible {
		res.Current, res.Residuals = feasible, rFeasible
	}
	res.Current = clampToRequest(res.Current, requested)
	return res
}

// nextStep returns the secant step from a of the most binding constraint.
// Constraints met at both ends and flat secants propose the full bracket.
func nextStep(a, b float64, rA, rB Residuals) float64 {
	width := b - a
	best := width
	for k := range rA {
		step := width
		if rA[k] > 0 || rB[k] > 0 {
			slope := (rB[k] - rA[k]) / width
			if slope != 0 && !math.IsNaN(slope) && !math.IsInf(slope, 0) {
				step = -rA[k] / slope
			}
		}
		if math.Abs(step) < math.Abs(best) {
			best = step
		}
	}
	if math.IsNaN(best) {
		return width
	}
	return best
}

// illinois scales the residuals of the endpoint just replaced when the other
// endpoint was kept twice in a row.
func illinois(r *Residuals, kept, probe Residuals) {
	for k := range r {
		d := kept[k] + probe[k]
		if d == 0 {
			continue
		}
		r[k] *= kept[k] / d
	}
}

func clampToRequest(c, requested float64) float64 {
	if requested > 0 {
		return math.Max(0, math.Min(c, requested))
	}
	return math.Min(0, math.Max(c, requested))
}
