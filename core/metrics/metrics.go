package metrics

import (
	"time"

	"github.com/kilianp07/sop/core/battery"
	"github.com/kilianp07/sop/core/model"
	"github.com/kilianp07/sop/core/surveillance"
)

// CycleEvent is one completed control cycle of a pack.
type CycleEvent struct {
	PackID string              `json:"pack_id"`
	RunID  string              `json:"run_id"`
	Time   time.Time           `json:"time"`
	Input  model.CycleInput    `json:"input"`
	Output model.CycleOutput   `json:"output"`
	Twin   battery.State       `json:"twin"`
	Alerts surveillance.Alerts `json:"alerts"`
}

// MetricsSink records cycle results.
type MetricsSink interface {
	RecordCycle(ev CycleEvent) error
}

// PhaseChangeEvent is emitted when the phase detector flips.
type PhaseChangeEvent struct {
	PackID   string
	Polarity model.Polarity
	Time     time.Time
}

// PhaseChangeRecorder records phase flips.
type PhaseChangeRecorder interface {
	RecordPhaseChange(ev PhaseChangeEvent) error
}

// AlertEvent is a raised surveillance alert.
type AlertEvent struct {
	PackID string
	Alerts surveillance.Alerts
	Time   time.Time
}

// AlertRecorder records surveillance alerts.
type AlertRecorder interface {
	RecordAlert(ev AlertEvent) error
}

// DropEvent reports cycle events a pack could not hand to every bus subscriber.
type DropEvent struct {
	PackID string
	Count  int
	Time   time.Time
}

// DropRecorder records events lost to full bus queues.
type DropRecorder interface {
	RecordDrop(ev DropEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordCycle(CycleEvent) error             { return nil }
func (NopSink) RecordPhaseChange(PhaseChangeEvent) error { return nil }
func (NopSink) RecordAlert(AlertEvent) error             { return nil }
func (NopSink) RecordDrop(DropEvent) error               { return nil }
