package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/kilianp07/sop/core/journal"
	"github.com/kilianp07/sop/pkg/export"
)

var (
	jqPack       string
	jqRun        string
	jqBinding    string
	jqSince      time.Duration
	jqLimit      int
	jqAlertsOnly bool
	jqFormat     string
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Cycle journal commands",
}

var journalQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Query journaled cycles",
	RunE:  runJournalQuery,
}

func init() {
	f := journalQueryCmd.Flags()
	f.StringVar(&jqPack, "pack", "", "filter by pack id")
	f.StringVar(&jqRun, "run", "", "filter by run id")
	f.StringVar(&jqBinding, "binding", "", "filter by binding constraint, e.g. soc_max")
	f.DurationVar(&jqSince, "since", 0, "only cycles newer than this duration")
	f.IntVar(&jqLimit, "limit", 100, "maximum number of records, 0 for all")
	f.BoolVar(&jqAlertsOnly, "alerts", false, "only cycles with surveillance alerts")
	f.StringVarP(&jqFormat, "format", "f", "json", "output format: json or csv")
	journalCmd.AddCommand(journalQueryCmd)
	rootCmd.AddCommand(journalCmd)
}

func runJournalQuery(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, false)
	if err != nil {
		return err
	}
	if !cfg.Journal.Enabled() {
		return fmt.Errorf("journal backend is disabled")
	}
	store, err := journal.New(cfg.Journal)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	q := journal.Query{
		PackID:     jqPack,
		RunID:      jqRun,
		Binding:    jqBinding,
		AlertsOnly: jqAlertsOnly,
		Limit:      jqLimit,
	}
	if jqSince > 0 {
		q.Start = time.Now().Add(-jqSince)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	recs, err := store.Query(ctx, q)
	if err != nil {
		return fmt.Errorf("query journal: %w", err)
	}

	out := cmd.OutOrStdout()
	switch jqFormat {
	case "json":
		return export.WriteJSON(out, recs)
	case "csv":
		return export.WriteRecordsCSV(out, recs)
	default:
		return fmt.Errorf("unknown format %q", jqFormat)
	}
}
