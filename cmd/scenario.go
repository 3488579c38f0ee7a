package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilianp07/sop/infra/logger"
	"github.com/kilianp07/sop/qa/scenarios"
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario <file>...",
	Short: "Run YAML scenarios against the engine",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runScenarios,
}

func init() {
	rootCmd.AddCommand(scenarioCmd)
}

func runScenarios(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	failed := 0
	for _, path := range args {
		sc, err := scenarios.Load(path)
		if err != nil {
			return err
		}
		res, err := scenarios.Run(sc, logger.NopLogger{})
		if err != nil {
			return fmt.Errorf("%s: %w", sc.Name, err)
		}
		problems := scenarios.Check(sc, res)
		if len(problems) == 0 {
			fmt.Fprintf(out, "PASS %s (%d cycles)\n", sc.Name, len(res.Outputs))
			continue
		}
		failed++
		fmt.Fprintf(out, "FAIL %s\n", sc.Name)
		for _, p := range problems {
			fmt.Fprintf(out, "  %s\n", p)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d scenario(s) failed", failed, len(args))
	}
	return nil
}
