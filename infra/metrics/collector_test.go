package metrics

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/sop/core/metrics"
	"github.com/kilianp07/sop/core/model"
	"github.com/kilianp07/sop/core/monitoring"
	"github.com/kilianp07/sop/core/surveillance"
	"github.com/kilianp07/sop/infra/logger"
	"github.com/kilianp07/sop/internal/eventbus"
)

type countingSink struct {
	mu     sync.Mutex
	cycles []string
	alerts int
	phases int
}

func (s *countingSink) RecordCycle(ev coremetrics.CycleEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cycles = append(s.cycles, ev.PackID)
	return nil
}

func (s *countingSink) RecordAlert(coremetrics.AlertEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts++
	return nil
}

func (s *countingSink) RecordPhaseChange(coremetrics.PhaseChangeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.phases++
	return nil
}

func TestStartCycleCollector(t *testing.T) {
	bus := eventbus.NewTyped[coremetrics.CycleEvent](0)
	sink := &countingSink{}
	done := StartCycleCollector(context.Background(), bus, sink, logger.NopLogger{})

	bus.Publish(coremetrics.CycleEvent{PackID: "a", Output: model.CycleOutput{PhaseChanged: true}})
	bus.Publish(coremetrics.CycleEvent{PackID: "b", Alerts: surveillance.Alerts{Temperature: true}})

	deadline := time.After(2 * time.Second)
	for {
		sink.mu.Lock()
		n := len(sink.cycles)
		sink.mu.Unlock()
		if n == 2 {
			break
		}
		select {
		case <-deadline:
			t.Fatalf("collector recorded %d cycles", n)
		case <-time.After(5 * time.Millisecond):
		}
	}
	bus.Close()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop after bus close")
	}
	if sink.alerts != 1 {
		t.Fatalf("expected 1 alert, got %d", sink.alerts)
	}
	if sink.phases != 1 {
		t.Fatalf("expected 1 phase change, got %d", sink.phases)
	}
	if sink.cycles[0] != "a" || sink.cycles[1] != "b" {
		t.Fatalf("unexpected order %v", sink.cycles)
	}
}

func TestStartCycleCollectorStopsOnCancel(t *testing.T) {
	bus := eventbus.NewTyped[coremetrics.CycleEvent](0)
	ctx, cancel := context.WithCancel(context.Background())
	done := StartCycleCollector(ctx, bus, coremetrics.NopSink{}, nil)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("collector did not stop after cancel")
	}
}

func TestStartCycleCollectorNilBus(t *testing.T) {
	done := StartCycleCollector(context.Background(), nil, coremetrics.NopSink{}, nil)
	if _, ok := <-done; ok {
		t.Fatal("expected closed channel")
	}
}

type slowSink struct {
	countingSink
	delay time.Duration
}

func (s *slowSink) RecordCycle(ev coremetrics.CycleEvent) error {
	time.Sleep(s.delay)
	return s.countingSink.RecordCycle(ev)
}

func (s *slowSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.cycles)
}

func TestStartCycleCollectorSlowSinkKeepsBurst(t *testing.T) {
	const packs = 16
	bus := eventbus.NewTyped[coremetrics.CycleEvent](4 * packs)
	sink := &slowSink{delay: 2 * time.Millisecond}
	done := StartCycleCollector(context.Background(), bus, sink, nil)

	for i := 0; i < packs; i++ {
		require.True(t, bus.Publish(coremetrics.CycleEvent{PackID: fmt.Sprintf("p%d", i)}))
	}
	bus.Close()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not stop after bus close")
	}
	assert.Equal(t, packs, sink.count())
	assert.Zero(t, bus.Dropped())
}

func TestStartCycleCollectorDrainsOnCancel(t *testing.T) {
	bus := eventbus.NewTyped[coremetrics.CycleEvent](32)
	sink := &slowSink{delay: time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	done := StartCycleCollector(ctx, bus, sink, nil)

	for i := 0; i < 10; i++ {
		bus.Publish(coremetrics.CycleEvent{PackID: "p1"})
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("collector did not stop after cancel")
	}
	assert.Equal(t, 10, sink.count())
}

type failingSink struct{}

func (failingSink) RecordCycle(coremetrics.CycleEvent) error { return errors.New("disk full") }
func (failingSink) RecordAlert(coremetrics.AlertEvent) error { return errors.New("disk full") }

type captureMonitor struct {
	monitoring.NopMonitor
	mu   sync.Mutex
	tags []map[string]string
}

func (c *captureMonitor) CaptureException(_ error, tags map[string]string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tags = append(c.tags, tags)
}

func TestStartCycleCollectorReportsSinkErrors(t *testing.T) {
	mon := &captureMonitor{}
	monitoring.Init(mon)
	t.Cleanup(func() { monitoring.Init(monitoring.NopMonitor{}) })

	bus := eventbus.NewTyped[coremetrics.CycleEvent](0)
	done := StartCycleCollector(context.Background(), bus, failingSink{}, logger.NopLogger{})
	bus.Publish(coremetrics.CycleEvent{PackID: "p7", Alerts: surveillance.Alerts{Voltage: true}})
	bus.Close()
	<-done

	mon.mu.Lock()
	defer mon.mu.Unlock()
	require.Len(t, mon.tags, 2)
	assert.Equal(t, "p7", mon.tags[0]["pack_id"])
	assert.Equal(t, "record cycle", mon.tags[0]["op"])
	assert.Equal(t, "record alert", mon.tags[1]["op"])
}
