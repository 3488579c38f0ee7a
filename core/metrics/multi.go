package metrics

import "errors"

// MultiSink fans events out to multiple sinks. A failing sink does not keep
// the event from the others.
type MultiSink struct {
	Sinks []MetricsSink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...MetricsSink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordCycle forwards the event to all sinks and joins their errors.
func (m *MultiSink) RecordCycle(ev CycleEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if err := s.RecordCycle(ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// RecordPhaseChange forwards phase flips to sinks implementing PhaseChangeRecorder.
func (m *MultiSink) RecordPhaseChange(ev PhaseChangeEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(PhaseChangeRecorder); ok {
			if err := rec.RecordPhaseChange(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordAlert forwards alerts to sinks implementing AlertRecorder.
func (m *MultiSink) RecordAlert(ev AlertEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(AlertRecorder); ok {
			if err := rec.RecordAlert(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// RecordDrop forwards bus drops to sinks implementing DropRecorder.
func (m *MultiSink) RecordDrop(ev DropEvent) error {
	var errs []error
	for _, s := range m.Sinks {
		if rec, ok := s.(DropRecorder); ok {
			if err := rec.RecordDrop(ev); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
