package metrics

import (
	"context"
	"math"
	"net/http"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/sop/core/metrics"
	"github.com/kilianp07/sop/infra/logger"
)

// InfluxSink writes cycle results to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// cyclePoint builds the line protocol point of a cycle.
func cyclePoint(ev coremetrics.CycleEvent) *write.Point {
	in, out := ev.Input, ev.Output
	p := write.NewPointWithMeasurement("sop_cycle").
		AddTag("pack_id", ev.PackID).
		AddTag("binding", out.Binding.String()).
		AddTag("outcome", out.Outcome.String()).
		AddTag("polarity", out.Polarity.String())
	if ev.RunID != "" {
		p = p.AddTag("run_id", ev.RunID)
	}
	return p.
		AddField("charge_power", round3(out.ChargePower)).
		AddField("discharge_power", round3(out.DischargePower)).
		AddField("charge_limit", round3(out.ChargeLimit)).
		AddField("discharge_limit", round3(out.DischargeLimit)).
		AddField("bound", round3(out.Bound)).
		AddField("candidate", round3(out.Current)).
		AddField("iterations", out.Iterations).
		AddField("code", int(out.Code())).
		AddField("duration_us", out.Duration.Microseconds()).
		AddField("current", round3(in.Current)).
		AddField("voltage", round3(in.Voltage)).
		AddField("temperature", round3(in.Temperature)).
		AddField("soc", round3(in.SOC)).
		AddField("twin_soc", round3(ev.Twin.SOC)).
		AddField("twin_voltage", round3(ev.Twin.Voltage)).
		SetTime(ev.Time)
}

// RecordCycle writes one sop_cycle point.
func (s *InfluxSink) RecordCycle(ev coremetrics.CycleEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, cyclePoint(ev))
}

// RecordAlert writes a surveillance alert.
func (s *InfluxSink) RecordAlert(ev coremetrics.AlertEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("sop_alert").
		AddTag("pack_id", ev.PackID).
		AddField("temperature", ev.Alerts.Temperature).
		AddField("voltage", ev.Alerts.Voltage).
		AddField("temperature_deviation", round3(ev.Alerts.TemperatureDeviation)).
		AddField("voltage_deviation", round3(ev.Alerts.VoltageDeviation)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
