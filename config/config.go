package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/sop/api"
	"github.com/kilianp07/sop/core/journal"
	"github.com/kilianp07/sop/core/metrics"
	"github.com/kilianp07/sop/core/monitoring"
	"github.com/kilianp07/sop/core/sop"
	"github.com/kilianp07/sop/core/surveillance"
	"github.com/kilianp07/sop/infra/mqtt"
	"github.com/kilianp07/sop/internal/eventbus"
	"github.com/kilianp07/sop/simulator"
)

// ErrInvalid is wrapped by every configuration validation error.
var ErrInvalid = errors.New("invalid configuration")

// eventsPerPack sizes the default cycle event queue, so every pack can finish
// several cycles while a subscriber is busy.
const eventsPerPack = 16

// EnvPrefix marks environment overrides, e.g. SOP_ENGINE__HORIZON=40.
const EnvPrefix = "SOP_"

// LogConfig selects the minimum log level.
type LogConfig struct {
	Level string `json:"level"`
}

type Config struct {
	Packs        []string            `json:"packs"`
	Engine       sop.Config          `json:"engine"`
	Surveillance surveillance.Config `json:"surveillance"`
	MQTT         mqtt.Config         `json:"mqtt"`
	Metrics      metrics.Config      `json:"metrics"`
	Journal      journal.Config      `json:"journal"`
	Sentry       monitoring.Config   `json:"sentry"`
	Log          LogConfig           `json:"log"`
	Simulation   simulator.Config    `json:"simulation"`
	API          api.Config          `json:"api"`
	// EventBuffer is the queue length of every cycle event subscriber.
	EventBuffer int `json:"event_buffer"`
}

// Default returns a configuration with one pack and every section defaulted.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults applies the defaults of every section.
func (c *Config) SetDefaults() {
	if len(c.Packs) == 0 {
		c.Packs = []string{"pack1"}
	}
	if c.EventBuffer == 0 {
		c.EventBuffer = max(eventbus.DefaultBuffer, eventsPerPack*len(c.Packs))
	}
	c.Engine.SetDefaults()
	c.Surveillance.SetDefaults()
	if c.MQTT.Enabled() {
		c.MQTT.SetDefaults()
	}
	c.Journal.SetDefaults()
	c.Simulation.SetDefaults()
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

// Validate checks every section.
func (c *Config) Validate() error {
	seen := make(map[string]bool, len(c.Packs))
	for _, p := range c.Packs {
		if p == "" || strings.ContainsAny(p, "/+#") {
			return fmt.Errorf("%w: invalid pack id %q", ErrInvalid, p)
		}
		if seen[p] {
			return fmt.Errorf("%w: duplicate pack id %q", ErrInvalid, p)
		}
		seen[p] = true
	}
	if c.EventBuffer < 0 {
		return fmt.Errorf("%w: event_buffer must not be negative", ErrInvalid)
	}
	checks := []struct {
		name string
		fn   func() error
	}{
		{"engine", c.Engine.Validate},
		{"surveillance", c.Surveillance.Validate},
		{"mqtt", c.MQTT.Validate},
		{"journal", c.Journal.Validate},
		{"simulation", c.Simulation.Validate},
	}
	for _, chk := range checks {
		if err := chk.fn(); err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalid, chk.name, err)
		}
	}
	return nil
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	// Optional environment overrides
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps SOP_ENGINE__SEARCH__MODE to engine.search.mode.
func envKey(s string) string {
	s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
