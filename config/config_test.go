package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/kilianp07/sop/core/sop"
)

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

//nolint:gocyclo
func TestLoad(t *testing.T) {
	path := writeFile(t, "config.yaml", `packs: ["rack1", "rack2"]
engine:
  horizon: 20
  cycle_budget: 250ms
  search:
    mode: feasible
    max_iterations: 8
  limits:
    soc_min: 0.05
    soc_max: 0.95
    u_min: 2.5
    u_max: 3.65
    t_max: 55
    i_min: -50
    i_max: 50
  twin:
    resync_soc: true
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "cli"
  topic_prefix: "site"
metrics:
  sinks:
    - type: "nop"
journal:
  backend: sqlite
  path: /tmp/sop.db
log:
  level: debug
api:
  addr: ":8080"
  token: secret
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	checks := []struct {
		name string
		got  any
		want any
	}{
		{"packs", len(cfg.Packs), 2},
		{"horizon", cfg.Engine.Horizon, 20},
		{"cycle_budget", cfg.Engine.CycleBudget, 250 * time.Millisecond},
		{"search.mode", cfg.Engine.Search.Mode, sop.ModeFeasible},
		{"search.max_iterations", cfg.Engine.Search.MaxIterations, 8},
		{"limits.i_max", cfg.Engine.Limits.IMax, 50.0},
		{"limits.t_max", cfg.Engine.Limits.TMax, 55.0},
		{"twin.resync_soc", cfg.Engine.Twin.ResyncSOC, true},
		{"phase.window default", cfg.Engine.Phase.Window, 60},
		{"battery.dt default", cfg.Engine.Battery.Step, 1.0},
		{"broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"client_id", cfg.MQTT.ClientID, "cli"},
		{"topic_prefix", cfg.MQTT.TopicPrefix, "site"},
		{"metrics_sink", len(cfg.Metrics.Sinks) == 1 && cfg.Metrics.Sinks[0].Type == "nop", true},
		{"journal", cfg.Journal.Backend, "sqlite"},
		{"log", cfg.Log.Level, "debug"},
		{"api.addr", cfg.API.Addr, ":8080"},
		{"api.token", cfg.API.Token, "secret"},
		{"surveillance default", cfg.Surveillance.VoltageThreshold, 0.1},
		{"event_buffer default", cfg.EventBuffer, 64},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Errorf("%s mismatch: %v", c.name, c.got)
		}
	}
}

func TestLoadJSONWithEnvOverride(t *testing.T) {
	path := writeFile(t, "config.json", `{"packs":["p1"],"engine":{"horizon":10}}`)
	t.Setenv("SOP_ENGINE__HORIZON", "42")
	t.Setenv("SOP_LOG__LEVEL", "warn")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if cfg.Engine.Horizon != 42 {
		t.Fatalf("env override not applied: %d", cfg.Engine.Horizon)
	}
	if cfg.Log.Level != "warn" {
		t.Fatalf("log level %q", cfg.Log.Level)
	}
	if cfg.MQTT.Enabled() {
		t.Fatalf("mqtt must stay disabled without a broker")
	}
}

func TestLoadErrors(t *testing.T) {
	if _, err := Load(writeFile(t, "config.toml", "")); err == nil {
		t.Fatal("expected unsupported format error")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected missing file error")
	}
	_, err := Load(writeFile(t, "bad.yaml", "engine:\n  search:\n    mode: bisect\n"))
	if !errors.Is(err, ErrInvalid) || !errors.Is(err, sop.ErrInvalidConfig) {
		t.Fatalf("expected wrapped validation error, got %v", err)
	}
}

func TestValidatePacks(t *testing.T) {
	for _, packs := range [][]string{{"a", "a"}, {"a/b"}, {""}, {"#"}} {
		cfg := Default()
		cfg.Packs = packs
		if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
			t.Fatalf("packs %v: expected ErrInvalid, got %v", packs, err)
		}
	}
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestEnvKey(t *testing.T) {
	if got := envKey("SOP_ENGINE__SEARCH__MODE"); got != "engine.search.mode" {
		t.Fatalf("envKey = %q", got)
	}
}

func TestEventBufferScalesWithPacks(t *testing.T) {
	cfg := &Config{}
	for i := 0; i < 10; i++ {
		cfg.Packs = append(cfg.Packs, fmt.Sprintf("p%d", i))
	}
	cfg.SetDefaults()
	if cfg.EventBuffer != 160 {
		t.Fatalf("expected 160, got %d", cfg.EventBuffer)
	}

	cfg = &Config{EventBuffer: 8}
	cfg.SetDefaults()
	if cfg.EventBuffer != 8 {
		t.Fatalf("explicit buffer overridden: %d", cfg.EventBuffer)
	}

	cfg.EventBuffer = -1
	if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}
