// Package export renders journal records and bench reports for operators.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/sop/core/journal"
	"github.com/kilianp07/sop/internal/bench"
)

var recordHeader = []string{
	"time", "pack_id", "run_id",
	"current", "voltage", "temperature", "soc",
	"charge_power", "discharge_power", "charge_limit", "discharge_limit",
	"bound", "candidate", "binding", "outcome", "iterations", "polarity",
	"code", "duration_us", "over_budget", "temperature_alert", "voltage_alert",
}

// WriteJSON writes v to w as indented JSON.
func WriteJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// WriteRecordsCSV writes journal records to w, one row per cycle.
func WriteRecordsCSV(w io.Writer, recs []journal.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(recordHeader); err != nil {
		return err
	}
	for _, r := range recs {
		in, out := r.Input, r.Output
		row := []string{
			r.Time.UTC().Format(time.RFC3339Nano),
			r.PackID,
			r.RunID,
			ff(in.Current), ff(in.Voltage), ff(in.Temperature), ff(in.SOC),
			ff(out.ChargePower), ff(out.DischargePower), ff(out.ChargeLimit), ff(out.DischargeLimit),
			ff(out.Bound), ff(out.Current),
			out.Binding.String(),
			out.Outcome.String(),
			strconv.Itoa(out.Iterations),
			out.Polarity.String(),
			strconv.Itoa(int(out.Code())),
			strconv.FormatInt(out.Duration.Microseconds(), 10),
			strconv.FormatBool(out.OverBudget),
			strconv.FormatBool(r.Alerts.Temperature),
			strconv.FormatBool(r.Alerts.Voltage),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteReportCSV writes a bench report to w as metric,value rows.
func WriteReportCSV(w io.Writer, rep bench.Report) error {
	cw := csv.NewWriter(w)
	rows := [][]string{
		{"metric", "value"},
		{"cycles", strconv.Itoa(rep.Cycles)},
		{"cadence_us", us(rep.Cadence)},
		{"total_us", us(rep.Total)},
		{"mean_us", us(rep.Mean)},
		{"p50_us", us(rep.P50)},
		{"p99_us", us(rep.P99)},
		{"max_us", us(rep.Max)},
		{"load", ff(rep.Load)},
		{"over_budget", strconv.Itoa(rep.OverBudget)},
	}
	if err := cw.WriteAll(rows); err != nil {
		return err
	}
	return cw.Error()
}

func ff(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

func us(d time.Duration) string { return strconv.FormatInt(d.Microseconds(), 10) }
