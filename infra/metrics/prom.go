package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/sop/core/metrics"
)

// PromSink exposes cycle results as Prometheus metrics labelled by pack.
type PromSink struct {
	chargePower    *prometheus.GaugeVec
	dischargePower *prometheus.GaugeVec
	chargeLimit    *prometheus.GaugeVec
	dischargeLimit *prometheus.GaugeVec
	twinSOC        *prometheus.GaugeVec
	cycles         *prometheus.CounterVec
	overruns       *prometheus.CounterVec
	duration       *prometheus.HistogramVec
	alerts         *prometheus.CounterVec
	phases         *prometheus.CounterVec
	dropped        *prometheus.CounterVec
}

// NewPromSink registers the cycle metrics on the default Prometheus registerer.
// The HTTP endpoint is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	gauge := func(name, help string) *prometheus.GaugeVec {
		g, e := register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{Name: name, Help: help}, []string{"pack"}))
		err = errors.Join(err, e)
		return g
	}
	s.chargePower = gauge("sop_charge_power_watts", "Predicted charge power limit")
	s.dischargePower = gauge("sop_discharge_power_watts", "Predicted discharge power limit")
	s.chargeLimit = gauge("sop_charge_current_amperes", "Corrected charge current limit")
	s.dischargeLimit = gauge("sop_discharge_current_amperes", "Corrected discharge current limit")
	s.twinSOC = gauge("sop_twin_soc_ratio", "State of charge of the digital twin")

	var e error
	s.cycles, e = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sop_cycles_total",
		Help: "Control cycles by binding constraint and search outcome",
	}, []string{"pack", "binding", "outcome"}))
	err = errors.Join(err, e)
	s.overruns, e = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sop_cycle_overruns_total",
		Help: "Control cycles that exceeded the cycle budget",
	}, []string{"pack"}))
	err = errors.Join(err, e)
	s.duration, e = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "sop_cycle_duration_seconds",
		Help:    "Wall time spent computing one control cycle",
		Buckets: prometheus.ExponentialBuckets(1e-5, 4, 10),
	}, []string{"pack"}))
	err = errors.Join(err, e)
	s.alerts, e = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sop_alerts_total",
		Help: "Surveillance alerts raised",
	}, []string{"pack", "kind"}))
	err = errors.Join(err, e)
	s.phases, e = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sop_phase_changes_total",
		Help: "Phase detector flips",
	}, []string{"pack", "polarity"}))
	err = errors.Join(err, e)
	s.dropped, e = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sop_bus_dropped_total",
		Help: "Cycle events lost to a full subscriber queue",
	}, []string{"pack"}))
	err = errors.Join(err, e)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// register adds c to reg, reusing an already registered collector of the same shape.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordCycle updates gauges and counters for one cycle.
func (s *PromSink) RecordCycle(ev coremetrics.CycleEvent) error {
	out := ev.Output
	s.chargePower.WithLabelValues(ev.PackID).Set(out.ChargePower)
	s.dischargePower.WithLabelValues(ev.PackID).Set(out.DischargePower)
	s.chargeLimit.WithLabelValues(ev.PackID).Set(out.ChargeLimit)
	s.dischargeLimit.WithLabelValues(ev.PackID).Set(out.DischargeLimit)
	s.twinSOC.WithLabelValues(ev.PackID).Set(ev.Twin.SOC)
	s.cycles.WithLabelValues(ev.PackID, out.Binding.String(), out.Outcome.String()).Inc()
	s.duration.WithLabelValues(ev.PackID).Observe(out.Duration.Seconds())
	if out.OverBudget {
		s.overruns.WithLabelValues(ev.PackID).Inc()
	}
	return nil
}

// RecordAlert counts raised surveillance alerts by kind.
func (s *PromSink) RecordAlert(ev coremetrics.AlertEvent) error {
	if ev.Alerts.Temperature {
		s.alerts.WithLabelValues(ev.PackID, "temperature").Inc()
	}
	if ev.Alerts.Voltage {
		s.alerts.WithLabelValues(ev.PackID, "voltage").Inc()
	}
	return nil
}

// RecordPhaseChange counts phase detector flips.
func (s *PromSink) RecordPhaseChange(ev coremetrics.PhaseChangeEvent) error {
	s.phases.WithLabelValues(ev.PackID, ev.Polarity.String()).Inc()
	return nil
}

// RecordDrop counts cycle events the bus could not deliver.
func (s *PromSink) RecordDrop(ev coremetrics.DropEvent) error {
	s.dropped.WithLabelValues(ev.PackID).Add(float64(ev.Count))
	return nil
}
