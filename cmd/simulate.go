package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/sop/core/battery"
	"github.com/kilianp07/sop/infra/logger"
	"github.com/kilianp07/sop/simulator"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Publish simulated pack measurements on the configured broker",
	RunE:  runSimulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	if !cfg.MQTT.Enabled() {
		return fmt.Errorf("mqtt broker is not configured")
	}
	cli, err := simulator.NewMQTTClient(cfg.MQTT.Broker, fmt.Sprintf("sop-sim-%d", time.Now().UnixNano()))
	if err != nil {
		return fmt.Errorf("mqtt client: %w", err)
	}
	defer cli.Disconnect(250)

	m := battery.NewModel(cfg.Engine.Battery)
	packs := make(map[string]*simulator.Pack, len(cfg.Packs))
	for i, id := range cfg.Packs {
		pc := cfg.Simulation
		if pc.Seed != 0 {
			pc.Seed += uint64(i)
		}
		packs[id] = simulator.NewPack(m, pc, time.Now())
	}
	feeder := simulator.NewFeeder(cli, cfg.MQTT.TopicPrefix, packs)
	if cfg.Simulation.FollowLimits {
		if err := feeder.Listen(); err != nil {
			return err
		}
	}
	logger.New("simulate").Infof("simulating %d pack(s) every %s", len(packs), cfg.Simulation.Cadence)
	return feeder.Run(ctx, cfg.Simulation.Cadence)
}
