package monitoring

import (
	"testing"

	coremon "github.com/kilianp07/sop/core/monitoring"
)

func TestNewSentryMonitorDisabled(t *testing.T) {
	m, err := NewSentryMonitor(coremon.Config{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := m.(coremon.NopMonitor); !ok {
		t.Fatalf("expected NopMonitor, got %T", m)
	}
}

func TestNewSentryMonitorInvalidDSN(t *testing.T) {
	if _, err := NewSentryMonitor(coremon.Config{DSN: "::not a dsn"}); err == nil {
		t.Fatal("expected error for malformed DSN")
	}
}

// A monitor with a syntactically valid DSN captures without a reachable server.
func TestSentryMonitorCapture(t *testing.T) {
	m, err := NewSentryMonitor(coremon.Config{DSN: "https://public@127.0.0.1:1/1", Environment: "test"})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	m.CaptureException(nil, nil)
	m.CaptureException(errTest("boom"), map[string]string{"pack": "p1"})
	m.CapturePanic("x")
	m.Flush(0)
}

type errTest string

func (e errTest) Error() string { return string(e) }
