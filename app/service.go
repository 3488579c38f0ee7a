package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/sop/api"
	"github.com/kilianp07/sop/config"
	"github.com/kilianp07/sop/core/journal"
	coremetrics "github.com/kilianp07/sop/core/metrics"
	"github.com/kilianp07/sop/core/model"
	"github.com/kilianp07/sop/core/monitoring"
	"github.com/kilianp07/sop/core/packstatus"
	"github.com/kilianp07/sop/infra/logger"
	"github.com/kilianp07/sop/infra/metrics"
	inframon "github.com/kilianp07/sop/infra/monitoring"
	"github.com/kilianp07/sop/infra/mqtt"
	"github.com/kilianp07/sop/internal/eventbus"
)

// Option customizes a Service.
type Option func(*Service)

// WithPublisher adds a publisher that receives every cycle output from its own
// bus subscription.
func WithPublisher(p mqtt.Publisher) Option {
	return func(s *Service) { s.pubs = append(s.pubs, p) }
}

// Service runs one controller per configured pack and fans the results out to
// publishers, metrics sinks and the journal.
type Service struct {
	cfg     *config.Config
	log     logger.Logger
	runID   string
	bus     *eventbus.TypedBus[coremetrics.CycleEvent]
	sink    coremetrics.MetricsSink
	store   journal.Store
	status  *packstatus.MemoryStore
	client  *mqtt.PahoClient
	sim     *simulation
	pubs    []mqtt.Publisher
	workers map[string]*packWorker
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	logg := logger.New("service")
	mon, err := inframon.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("monitoring: %w", err)
	}
	monitoring.Init(mon)

	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	store, err := journal.New(cfg.Journal)
	if err != nil {
		return nil, fmt.Errorf("journal: %w", err)
	}
	status := packstatus.NewMemoryStore()
	sinks := []coremetrics.MetricsSink{sink, status}
	if cfg.Journal.Enabled() {
		sinks = append(sinks, journal.NewSink(store))
	}
	sink = coremetrics.NewMultiSink(sinks...)

	s := &Service{
		cfg:     cfg,
		log:     logg,
		runID:   uuid.NewString(),
		bus:     eventbus.NewTyped[coremetrics.CycleEvent](cfg.EventBuffer),
		sink:    sink,
		store:   store,
		status:  status,
		workers: make(map[string]*packWorker, len(cfg.Packs)),
	}
	for _, o := range opts {
		o(s)
	}

	if cfg.Simulation.Enabled {
		s.sim, err = newSimulation(cfg.Simulation, cfg.Engine.Battery, cfg.Packs)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("simulation: %w", err)
		}
		s.pubs = append(s.pubs, s.sim)
	}
	for _, id := range cfg.Packs {
		w, err := newPackWorker(id, s.runID, cfg, s.bus, logger.New("sop."+id))
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("pack %s: %w", id, err)
		}
		s.workers[id] = w
	}

	if cfg.MQTT.Enabled() {
		client, err := mqtt.NewPahoClient(cfg.MQTT, cfg.Packs, s.Dispatch)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		s.client = client
		s.pubs = append(s.pubs, client)
	} else if s.sim == nil {
		logg.Warnf("no mqtt broker and no simulation configured, waiting for in-process samples")
	}
	if rec, ok := s.sink.(coremetrics.DropRecorder); ok {
		for _, w := range s.workers {
			w.drops = rec
		}
	}
	return s, nil
}

// Status returns the latest cycle of every pack.
func (s *Service) Status() packstatus.Store { return s.status }

// RunID identifies this service instance in metrics and the journal.
func (s *Service) RunID() string { return s.runID }

// Dispatch hands a measurement to the worker of a pack. It never blocks: a
// sample is dropped when the worker is still busy with earlier ones.
func (s *Service) Dispatch(packID string, in model.CycleInput) {
	w, ok := s.workers[packID]
	if !ok {
		s.log.Warnf("measurement for unknown pack %s", packID)
		return
	}
	if in.Time.IsZero() {
		in.Time = time.Now()
	}
	select {
	case w.in <- in:
	default:
		s.log.Warnf("pack %s busy, dropping sample at %s", packID, in.Time.Format(time.RFC3339Nano))
	}
}

// Run starts the pack workers and blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	// The collector stops once the bus is closed, after the workers, so the
	// last cycles still reach the journal.
	stopped := []<-chan struct{}{
		metrics.StartCycleCollector(context.WithoutCancel(ctx), s.bus, s.sink, logger.New("collector")),
	}
	for _, p := range s.pubs {
		stopped = append(stopped, mqtt.StartForwarder(ctx, s.bus, p, logger.New("publisher")))
	}
	if addr := s.cfg.Metrics.PrometheusAddr; addr != "" {
		go func() {
			defer monitoring.Recover()
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				s.log.Errorf("prom server: %v", err)
				monitoring.CaptureException(err, map[string]string{"module": "prometheus"})
			}
		}()
	}
	if addr := s.cfg.API.Addr; addr != "" {
		mux := api.NewMux(s.status, s.store, s.cfg.API.Token)
		go func() {
			defer monitoring.Recover()
			if err := api.Serve(ctx, addr, mux); err != nil {
				s.log.Errorf("api server: %v", err)
				monitoring.CaptureException(err, map[string]string{"module": "api"})
			}
		}()
	}

	var wg sync.WaitGroup
	for _, w := range s.workers {
		wg.Add(1)
		go func(w *packWorker) {
			defer wg.Done()
			w.run(ctx)
		}(w)
	}
	if s.sim != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.sim.run(ctx, s.Dispatch)
		}()
	}
	s.log.Infof("service %s running %d pack(s)", s.runID, len(s.workers))
	<-ctx.Done()
	wg.Wait()
	s.bus.Close()
	for _, done := range stopped {
		<-done
	}
	if n := s.bus.Dropped(); n > 0 {
		s.log.Warnf("%d cycle event deliveries dropped by full queues", n)
	}
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.client != nil {
		s.client.Disconnect()
	}
	closeSink(s.sink)
	monitoring.Flush(2 * time.Second)
	return s.store.Close()
}

func closeSink(sink coremetrics.MetricsSink) {
	switch v := sink.(type) {
	case *coremetrics.MultiSink:
		for _, sub := range v.Sinks {
			closeSink(sub)
		}
	case interface{ Close() }:
		v.Close()
	}
}
