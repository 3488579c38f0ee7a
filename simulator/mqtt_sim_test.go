package simulator

import (
	"encoding/json"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/sop/core/model"
)

type fakeBroker struct {
	published map[string][]byte
	handlers  map[string]paho.MessageHandler
}

func (f *fakeBroker) Publish(topic string, _ byte, _ bool, payload interface{}) paho.Token {
	f.published[topic] = payload.([]byte)
	return doneToken{}
}

func (f *fakeBroker) Subscribe(topic string, _ byte, cb paho.MessageHandler) paho.Token {
	f.handlers[topic] = cb
	return doneToken{}
}

type doneToken struct{}

func (doneToken) Wait() bool                     { return true }
func (doneToken) WaitTimeout(time.Duration) bool { return true }
func (doneToken) Done() <-chan struct{}          { ch := make(chan struct{}); close(ch); return ch }
func (doneToken) Error() error                   { return nil }

type fakeMessage struct{ p []byte }

func (m fakeMessage) Duplicate() bool   { return false }
func (m fakeMessage) Qos() byte         { return 0 }
func (m fakeMessage) Retained() bool    { return false }
func (m fakeMessage) Topic() string     { return "" }
func (m fakeMessage) MessageID() uint16 { return 0 }
func (m fakeMessage) Payload() []byte   { return m.p }
func (m fakeMessage) Ack()              {}

func TestFeederTickAndFollow(t *testing.T) {
	fb := &fakeBroker{published: map[string][]byte{}, handlers: map[string]paho.MessageHandler{}}
	pack := newPack(Config{FollowLimits: true, Profile: Profile{{Current: 25, Steps: 10}}})
	f := NewFeeder(fb, "sim", map[string]*Pack{"p1": pack})
	require.NoError(t, f.Listen())
	require.Contains(t, fb.handlers, "sim/p1/sop")

	require.NoError(t, f.Tick())
	var in model.CycleInput
	require.NoError(t, json.Unmarshal(fb.published["sim/p1/measurement"], &in))
	require.Equal(t, 25.0, in.Current)

	fb.handlers["sim/p1/sop"](nil, fakeMessage{p: []byte(`{"charge_limit":8,"discharge_limit":-8}`)})
	require.NoError(t, f.Tick())
	require.NoError(t, json.Unmarshal(fb.published["sim/p1/measurement"], &in))
	require.Equal(t, 8.0, in.Current)
}
