package mqtt

import (
	"context"

	coremetrics "github.com/kilianp07/sop/core/metrics"
	coremon "github.com/kilianp07/sop/core/monitoring"
	"github.com/kilianp07/sop/infra/logger"
	"github.com/kilianp07/sop/internal/eventbus"
)

// StartForwarder publishes the output of every cycle event with pub from its
// own bus subscription, so a slow broker delays only this publisher and never
// the control cycles. The returned channel is closed once the forwarder has
// stopped: when the bus is closed and drained, or when ctx is canceled.
func StartForwarder(ctx context.Context, bus *eventbus.TypedBus[coremetrics.CycleEvent], pub Publisher, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || pub == nil {
		close(done)
		return done
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		defer coremon.Recover()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := pub.PublishSOP(ev.PackID, ev.Output); err != nil {
					log.Errorf("publish sop for %s: %v", ev.PackID, err)
				}
			}
		}
	}()
	return done
}
