package mqtt

import (
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/sop/core/model"
	coremon "github.com/kilianp07/sop/core/monitoring"
	"github.com/kilianp07/sop/infra/logger"
)

// MeasurementHandler receives decoded measurements. It runs on the paho
// callback goroutine and must not block.
type MeasurementHandler func(packID string, in model.CycleInput)

// Publisher sends cycle results of a pack.
type Publisher interface {
	PublishSOP(packID string, out model.CycleOutput) error
}

// SOPMessage is the JSON payload published on the sop topic.
type SOPMessage struct {
	MessageID      string    `json:"message_id"`
	PackID         string    `json:"pack_id"`
	Time           time.Time `json:"time"`
	ChargePower    float64   `json:"charge_power"`
	DischargePower float64   `json:"discharge_power"`
	ChargeLimit    float64   `json:"charge_limit"`
	DischargeLimit float64   `json:"discharge_limit"`
	Binding        string    `json:"binding"`
	Outcome        string    `json:"outcome"`
	Code           uint8     `json:"code"`
	OverBudget     bool      `json:"over_budget"`
}

// NewSOPMessage builds the payload for one cycle output.
func NewSOPMessage(packID string, out model.CycleOutput) SOPMessage {
	return SOPMessage{
		MessageID:      uuid.NewString(),
		PackID:         packID,
		Time:           out.Time,
		ChargePower:    out.ChargePower,
		DischargePower: out.DischargePower,
		ChargeLimit:    out.ChargeLimit,
		DischargeLimit: out.DischargeLimit,
		Binding:        out.Binding.String(),
		Outcome:        out.Outcome.String(),
		Code:           out.Code(),
		OverBudget:     out.OverBudget,
	}
}

type pahoClient interface {
	IsConnected() bool
	Connect() paho.Token
	Disconnect(quiesce uint)
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

// PahoClient subscribes to pack measurements and publishes SOP results.
type PahoClient struct {
	cli     pahoClient
	cfg     Config
	packs   []string
	handler MeasurementHandler
	logger  logger.Logger
	backoff time.Duration
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// NewPahoClient connects to the broker and subscribes to the measurement topic
// of every pack. Subscriptions are renewed on reconnect.
func NewPahoClient(cfg Config, packs []string, handler MeasurementHandler) (*PahoClient, error) {
	cfg.SetDefaults()
	opts, err := NewClientOptions(cfg)
	if err != nil {
		return nil, err
	}

	log := logger.New("mqtt_client")
	pc := &PahoClient{
		cfg:     cfg,
		packs:   packs,
		handler: handler,
		logger:  log,
		backoff: time.Duration(cfg.BackoffMS) * time.Millisecond,
	}

	opts.OnConnect = func(c paho.Client) {
		log.Infof("MQTT connected")
		for _, pack := range pc.packs {
			topic := MeasurementTopic(pc.cfg.TopicPrefix, pack)
			if token := c.Subscribe(topic, pc.cfg.qos("measurement"), pc.onMeasurement); token.Wait() && token.Error() != nil {
				log.Errorf("subscribe %s: %v", topic, token.Error())
			}
		}
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		log.Errorf("connection lost: %v", err)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		log.Warnf("reconnecting to MQTT broker")
	}
	c := newMQTTClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("mqtt connect: %w", token.Error())
	}
	pc.cli = c
	return pc, nil
}

// NewClientOptions builds mqtt client options from Config.
func NewClientOptions(cfg Config) (*paho.ClientOptions, error) {
	opts := paho.NewClientOptions().AddBroker(cfg.Broker).SetClientID(cfg.ClientID)
	opts.AutoReconnect = true
	if cfg.AuthMethod == "username_password" || cfg.AuthMethod == "both" || cfg.AuthMethod == "" {
		if cfg.Username != "" {
			opts.SetUsername(cfg.Username)
		}
		if cfg.Password != "" {
			opts.SetPassword(cfg.Password)
		}
	}
	if cfg.UseTLS {
		tlsCfg, err := cfg.LoadTLSConfig()
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}
	if cfg.LWTTopic != "" {
		opts.SetWill(cfg.LWTTopic, cfg.LWTPayload, cfg.LWTQoS, cfg.LWTRetain)
	}
	return opts, nil
}

func (p *PahoClient) onMeasurement(_ paho.Client, msg paho.Message) {
	pack, ok := PackFromTopic(p.cfg.TopicPrefix, msg.Topic())
	if !ok {
		p.logger.Warnf("unexpected topic %s", msg.Topic())
		return
	}
	var in model.CycleInput
	if err := json.Unmarshal(msg.Payload(), &in); err != nil {
		p.logger.Errorf("failed to decode measurement for %s: %v", pack, err)
		coremon.CaptureException(err, map[string]string{"module": "mqtt", "pack_id": pack})
		return
	}
	if in.Time.IsZero() {
		in.Time = time.Now()
	}
	if p.handler != nil {
		p.handler(pack, in)
	}
}

// PublishSOP publishes the cycle output of a pack, retrying with exponential
// backoff.
func (p *PahoClient) PublishSOP(packID string, out model.CycleOutput) error {
	payload, err := json.Marshal(NewSOPMessage(packID, out))
	if err != nil {
		return err
	}
	topic := SOPTopic(p.cfg.TopicPrefix, packID)
	qos := p.cfg.qos("sop")
	var publishErr error
	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		token := p.cli.Publish(topic, qos, p.cfg.Retain, payload)
		token.Wait()
		publishErr = token.Error()
		if publishErr == nil {
			p.logger.Debugf("published sop to %s", topic)
			return nil
		}
		p.logger.Errorf("publish attempt %d failed: %v", attempt+1, publishErr)
		if attempt < p.cfg.MaxRetries {
			time.Sleep(p.backoff * time.Duration(1<<attempt))
		}
	}
	coremon.CaptureException(publishErr, map[string]string{"module": "mqtt", "pack_id": packID})
	return fmt.Errorf("publish %s: %w", topic, publishErr)
}

// Disconnect gracefully closes the MQTT connection.
func (p *PahoClient) Disconnect() {
	if p.cli != nil && p.cli.IsConnected() {
		p.cli.Disconnect(250)
	}
}
