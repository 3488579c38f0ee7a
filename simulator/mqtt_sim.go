package simulator

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/sop/core/model"
	"github.com/kilianp07/sop/infra/logger"
	"github.com/kilianp07/sop/infra/mqtt"
)

// NewMQTTClient connects a plain paho client to broker.
func NewMQTTClient(broker, clientID string) (paho.Client, error) {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID(clientID)
	opts.AutoReconnect = true
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return cli, nil
}

// brokerClient is the subset of paho.Client used by the feeder.
type brokerClient interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// Feeder publishes the measurements of simulated packs on their measurement
// topics and, when following limits, listens to the published SOP results.
type Feeder struct {
	cli    brokerClient
	prefix string
	packs  map[string]*Pack
	log    logger.Logger

	mu     sync.Mutex
	limits map[string]model.CycleOutput
}

// NewFeeder returns a feeder for the given packs.
func NewFeeder(cli brokerClient, prefix string, packs map[string]*Pack) *Feeder {
	return &Feeder{
		cli:    cli,
		prefix: prefix,
		packs:  packs,
		log:    logger.New("simulator"),
		limits: make(map[string]model.CycleOutput),
	}
}

// Listen subscribes to the SOP topic of every pack.
func (f *Feeder) Listen() error {
	for id := range f.packs {
		topic := mqtt.SOPTopic(f.prefix, id)
		if token := f.cli.Subscribe(topic, 0, f.onSOP(id)); token.Wait() && token.Error() != nil {
			return fmt.Errorf("subscribe %s: %w", topic, token.Error())
		}
	}
	return nil
}

func (f *Feeder) onSOP(id string) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		var m mqtt.SOPMessage
		if err := json.Unmarshal(msg.Payload(), &m); err != nil {
			f.log.Warnf("decode sop for %s: %v", id, err)
			return
		}
		f.mu.Lock()
		f.limits[id] = model.CycleOutput{ChargeLimit: m.ChargeLimit, DischargeLimit: m.DischargeLimit}
		f.mu.Unlock()
	}
}

// Tick advances every pack by one cycle and publishes the measurements.
func (f *Feeder) Tick() error {
	for id, p := range f.packs {
		f.mu.Lock()
		lim, ok := f.limits[id]
		f.mu.Unlock()
		var in model.CycleInput
		if ok {
			in = p.Next(&lim)
		} else {
			in = p.Next(nil)
		}
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		token := f.cli.Publish(mqtt.MeasurementTopic(f.prefix, id), 0, false, payload)
		if token.Wait() && token.Error() != nil {
			return fmt.Errorf("publish measurement for %s: %w", id, token.Error())
		}
	}
	return nil
}

// Run ticks at cadence until ctx is canceled.
func (f *Feeder) Run(ctx context.Context, cadence time.Duration) error {
	ticker := time.NewTicker(cadence)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := f.Tick(); err != nil {
				f.log.Errorf("tick: %v", err)
			}
		}
	}
}
