package app

import (
	"context"
	"fmt"

	"github.com/kilianp07/sop/config"
	coremetrics "github.com/kilianp07/sop/core/metrics"
	"github.com/kilianp07/sop/core/model"
	"github.com/kilianp07/sop/core/monitoring"
	"github.com/kilianp07/sop/core/sop"
	"github.com/kilianp07/sop/core/surveillance"
	"github.com/kilianp07/sop/infra/logger"
	"github.com/kilianp07/sop/internal/eventbus"
)

// inputQueue bounds the samples waiting for a busy controller.
const inputQueue = 4

// packWorker owns the controller of one pack. Only its goroutine touches the
// controller and the surveillance monitor. Results leave through the bus, so
// a cycle never waits on a sink or a broker.
type packWorker struct {
	id    string
	runID string
	ctrl  *sop.Controller
	mon   *surveillance.Monitor
	bus   *eventbus.TypedBus[coremetrics.CycleEvent]
	drops coremetrics.DropRecorder
	log   logger.Logger
	in    chan model.CycleInput
}

func newPackWorker(id, runID string, cfg *config.Config, bus *eventbus.TypedBus[coremetrics.CycleEvent], log logger.Logger) (*packWorker, error) {
	ctrl, err := sop.NewController(cfg.Engine, log)
	if err != nil {
		return nil, fmt.Errorf("controller: %w", err)
	}
	w := &packWorker{
		id:    id,
		runID: runID,
		ctrl:  ctrl,
		bus:   bus,
		log:   log,
		in:    make(chan model.CycleInput, inputQueue),
	}
	if !cfg.Surveillance.Disabled {
		w.mon = surveillance.New(ctrl.Model(), cfg.Surveillance)
	}
	return w, nil
}

func (w *packWorker) run(ctx context.Context) {
	defer monitoring.Recover()
	for {
		select {
		case <-ctx.Done():
			return
		case in := <-w.in:
			w.handle(in)
		}
	}
}

// handle runs one cycle and hands its result to the bus.
func (w *packWorker) handle(in model.CycleInput) model.CycleOutput {
	out := w.ctrl.Step(in)
	var alerts surveillance.Alerts
	if w.mon != nil {
		alerts = w.mon.Observe(in, out.Polarity)
		if alerts.Any() {
			w.log.Warnf("surveillance alert: temperature=%t (%.2f) voltage=%t (%.3f)",
				alerts.Temperature, alerts.TemperatureDeviation, alerts.Voltage, alerts.VoltageDeviation)
		}
	}
	delivered := w.bus.Publish(coremetrics.CycleEvent{
		PackID: w.id,
		RunID:  w.runID,
		Time:   in.Time,
		Input:  in,
		Output: out,
		Twin:   w.ctrl.Twin(),
		Alerts: alerts,
	})
	if !delivered {
		w.log.Warnf("cycle event at %s not delivered to every subscriber", in.Time)
		if w.drops != nil {
			if err := w.drops.RecordDrop(coremetrics.DropEvent{PackID: w.id, Count: 1, Time: in.Time}); err != nil {
				w.log.Errorf("record drop: %v", err)
			}
		}
	}
	return out
}
