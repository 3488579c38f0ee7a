package metrics

import (
	"context"

	coremetrics "github.com/kilianp07/sop/core/metrics"
	"github.com/kilianp07/sop/core/monitoring"
	"github.com/kilianp07/sop/infra/logger"
	"github.com/kilianp07/sop/internal/eventbus"
)

// StartCycleCollector subscribes to the cycle bus and forwards every event to
// the sink. Alerts and phase flips go to sinks implementing the matching
// recorder interface. Sink errors are logged and reported to the monitor.
// The returned channel is closed once the collector has stopped: when the bus
// is closed and drained, or when the context is canceled, after recording the
// events already queued.
func StartCycleCollector(ctx context.Context, bus *eventbus.TypedBus[coremetrics.CycleEvent], sink coremetrics.MetricsSink, log logger.Logger) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
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
		defer monitoring.Recover()
		for {
			select {
			case <-ctx.Done():
				drain(sub, sink, log)
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				recordEvent(sink, ev, log)
			}
		}
	}()
	return done
}

func drain(sub <-chan coremetrics.CycleEvent, sink coremetrics.MetricsSink, log logger.Logger) {
	for {
		select {
		case ev, ok := <-sub:
			if !ok {
				return
			}
			recordEvent(sink, ev, log)
		default:
			return
		}
	}
}

func recordEvent(sink coremetrics.MetricsSink, ev coremetrics.CycleEvent, log logger.Logger) {
	if err := sink.RecordCycle(ev); err != nil {
		reportSinkError(log, "record cycle", ev.PackID, err)
	}
	if ev.Output.PhaseChanged {
		if r, ok := sink.(coremetrics.PhaseChangeRecorder); ok {
			if err := r.RecordPhaseChange(coremetrics.PhaseChangeEvent{PackID: ev.PackID, Polarity: ev.Output.Polarity, Time: ev.Time}); err != nil {
				reportSinkError(log, "record phase change", ev.PackID, err)
			}
		}
	}
	if !ev.Alerts.Any() {
		return
	}
	if r, ok := sink.(coremetrics.AlertRecorder); ok {
		if err := r.RecordAlert(coremetrics.AlertEvent{PackID: ev.PackID, Alerts: ev.Alerts, Time: ev.Time}); err != nil {
			reportSinkError(log, "record alert", ev.PackID, err)
		}
	}
}

func reportSinkError(log logger.Logger, op, packID string, err error) {
	log.Warnf("%s for %s: %v", op, packID, err)
	monitoring.CaptureException(err, map[string]string{"module": "metrics", "op": op, "pack_id": packID})
}
