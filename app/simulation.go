package app

import (
	"context"
	"sync"
	"time"

	"github.com/kilianp07/sop/core/battery"
	"github.com/kilianp07/sop/core/model"
	"github.com/kilianp07/sop/core/monitoring"
	"github.com/kilianp07/sop/simulator"
)

// simulation drives in-process packs from the published limits. It is the
// measurement source when no broker feeds the service.
type simulation struct {
	cadence time.Duration
	order   []string
	packs   map[string]*simulator.Pack

	mu     sync.Mutex
	limits map[string]model.CycleOutput
}

func newSimulation(cfg simulator.Config, bc battery.Config, ids []string) (*simulation, error) {
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	m := battery.NewModel(bc)
	now := time.Now()
	s := &simulation{
		cadence: cfg.Cadence,
		order:   ids,
		packs:   make(map[string]*simulator.Pack, len(ids)),
		limits:  make(map[string]model.CycleOutput, len(ids)),
	}
	for i, id := range ids {
		pc := cfg
		if pc.Seed != 0 {
			pc.Seed += uint64(i)
		}
		s.packs[id] = simulator.NewPack(m, pc, now)
	}
	return s, nil
}

// PublishSOP stores the limits the plant follows on its next step.
func (s *simulation) PublishSOP(packID string, out model.CycleOutput) error {
	s.mu.Lock()
	s.limits[packID] = out
	s.mu.Unlock()
	return nil
}

func (s *simulation) step(dispatch func(string, model.CycleInput)) {
	for _, id := range s.order {
		s.mu.Lock()
		out, ok := s.limits[id]
		s.mu.Unlock()
		var lim *model.CycleOutput
		if ok {
			lim = &out
		}
		dispatch(id, s.packs[id].Next(lim))
	}
}

func (s *simulation) run(ctx context.Context, dispatch func(string, model.CycleInput)) {
	defer monitoring.Recover()
	ticker := time.NewTicker(s.cadence)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.step(dispatch)
		}
	}
}
