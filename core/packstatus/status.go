package packstatus

import (
	"sort"
	"sync"
	"time"

	"github.com/kilianp07/sop/core/battery"
	"github.com/kilianp07/sop/core/metrics"
	"github.com/kilianp07/sop/core/model"
	"github.com/kilianp07/sop/core/surveillance"
)

// Status captures the latest known cycle of a pack.
type Status struct {
	PackID     string              `json:"pack_id"`
	RunID      string              `json:"run_id"`
	Updated    time.Time           `json:"updated"`
	Input      model.CycleInput    `json:"input"`
	Output     model.CycleOutput   `json:"output"`
	Twin       battery.State       `json:"twin"`
	Alerts     surveillance.Alerts `json:"alerts"`
	Cycles     int                 `json:"cycles"`
	AlertCount int                 `json:"alert_count"`
}

type Filter struct {
	PackID     string
	Polarity   string
	AlertsOnly bool
}

type Store interface {
	RecordCycle(metrics.CycleEvent) error
	Get(packID string) (Status, bool)
	List(Filter) []Status
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Status
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Status{}}
}

// RecordCycle replaces the status of the event's pack and bumps its counters.
func (s *MemoryStore) RecordCycle(ev metrics.CycleEvent) error {
	s.mu.Lock()
	st := s.data[ev.PackID]
	st.PackID = ev.PackID
	st.RunID = ev.RunID
	st.Updated = ev.Time
	st.Input = ev.Input
	st.Output = ev.Output
	st.Twin = ev.Twin
	st.Alerts = ev.Alerts
	st.Cycles++
	if ev.Alerts.Any() {
		st.AlertCount++
	}
	s.data[ev.PackID] = st
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(packID string) (Status, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.data[packID]
	return st, ok
}

func (s *MemoryStore) List(f Filter) []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Status, 0, len(s.data))
	for _, st := range s.data {
		if f.PackID != "" && st.PackID != f.PackID {
			continue
		}
		if f.Polarity != "" && st.Output.Polarity.String() != f.Polarity {
			continue
		}
		if f.AlertsOnly && !st.Alerts.Any() {
			continue
		}
		res = append(res, st)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].PackID < res[j].PackID })
	return res
}
