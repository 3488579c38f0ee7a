package journal

import (
	"context"
	"time"

	"github.com/kilianp07/sop/core/metrics"
)

// Sink adapts a Store to the metrics sink interface so the journal can be
// attached to the cycle collector next to the other sinks.
type Sink struct {
	Store   Store
	Timeout time.Duration
}

// NewSink wraps store with a default write timeout of 2s.
func NewSink(store Store) *Sink {
	return &Sink{Store: store, Timeout: 2 * time.Second}
}

// RecordCycle appends the event to the store.
func (s *Sink) RecordCycle(ev metrics.CycleEvent) error {
	ctx := context.Background()
	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}
	return s.Store.Append(ctx, FromEvent(ev))
}
