package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/sop/infra/logger"
	"github.com/kilianp07/sop/internal/bench"
	"github.com/kilianp07/sop/pkg/export"
)

var (
	benchCycles  int
	benchCadence time.Duration
	benchFormat  string
)

var benchCmd = &cobra.Command{
	Use:   "bench",
	Short: "Measure the cycle cost against a simulated pack",
	RunE:  runBench,
}

func init() {
	benchCmd.Flags().IntVarP(&benchCycles, "cycles", "n", 3600, "number of control cycles")
	benchCmd.Flags().DurationVar(&benchCadence, "cadence", 0, "control cadence used for the load figure (default: simulation cadence)")
	benchCmd.Flags().StringVarP(&benchFormat, "format", "f", "text", "output format: text, json or csv")
	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig(cmd, true)
	if err != nil {
		return err
	}
	cadence := benchCadence
	if cadence == 0 {
		cadence = cfg.Simulation.Cadence
	}
	rep, err := bench.Run(ctx, bench.Options{
		Cycles:  benchCycles,
		Cadence: cadence,
		Engine:  cfg.Engine,
		Plant:   cfg.Simulation,
	}, logger.NopLogger{})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	switch benchFormat {
	case "json":
		return export.WriteJSON(out, rep)
	case "csv":
		return export.WriteReportCSV(out, rep)
	case "text":
		_, err := fmt.Fprintf(out, "cycles=%d total=%s mean=%s p50=%s p99=%s max=%s load=%.6f over_budget=%d\n",
			rep.Cycles, rep.Total, rep.Mean, rep.P50, rep.P99, rep.Max, rep.Load, rep.OverBudget)
		return err
	default:
		return fmt.Errorf("unknown format %q", benchFormat)
	}
}
