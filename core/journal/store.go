package journal

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/kilianp07/sop/core/battery"
	"github.com/kilianp07/sop/core/metrics"
	"github.com/kilianp07/sop/core/model"
	"github.com/kilianp07/sop/core/surveillance"
)

// Record captures one control cycle of a pack.
type Record struct {
	Time   time.Time           `json:"time"`
	PackID string              `json:"pack_id"`
	RunID  string              `json:"run_id"`
	Input  model.CycleInput    `json:"input"`
	Output model.CycleOutput   `json:"output"`
	Twin   battery.State       `json:"twin"`
	Alerts surveillance.Alerts `json:"alerts"`
}

// FromEvent converts a cycle event into a journal record.
func FromEvent(ev metrics.CycleEvent) Record {
	return Record{
		Time:   ev.Time,
		PackID: ev.PackID,
		RunID:  ev.RunID,
		Input:  ev.Input,
		Output: ev.Output,
		Twin:   ev.Twin,
		Alerts: ev.Alerts,
	}
}

// Query defines filters for retrieving records. Zero values match everything.
type Query struct {
	Start      time.Time
	End        time.Time
	PackID     string
	RunID      string
	Binding    string
	AlertsOnly bool
	Limit      int
}

// Match reports whether r passes every filter of q except Limit.
func (q Query) Match(r Record) bool {
	if !q.Start.IsZero() && r.Time.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && r.Time.After(q.End) {
		return false
	}
	if q.PackID != "" && r.PackID != q.PackID {
		return false
	}
	if q.RunID != "" && r.RunID != q.RunID {
		return false
	}
	if q.Binding != "" && r.Output.Binding.String() != q.Binding {
		return false
	}
	if q.AlertsOnly && !r.Alerts.Any() {
		return false
	}
	return true
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }

// scan decodes JSONL records from r and appends the matching ones to out.
// Undecodable lines are skipped.
func scan(r io.Reader, q Query, out []Record) ([]Record, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		var rec Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			continue
		}
		if q.Match(rec) {
			out = append(out, rec)
		}
	}
	return out, scanner.Err()
}

func limit(recs []Record, n int) []Record {
	if n > 0 && len(recs) > n {
		return recs[:n]
	}
	return recs
}
