package cli

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/haruchi-os/haruchi-sync/internal/infra/journal"
)

var (
	historyLimit int
	historyRun   string
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of passes to show")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "show grant outcomes of one run")
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent sync passes",
	Long: `Show the local run history: recent sync passes with their grant and
error counts, or the per-record outcomes of one run with --run.`,
	RunE: runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if !cfg.Journal.Enabled {
		return fmt.Errorf("journal is disabled in the config")
	}

	jn, err := journal.Open(cfg.Journal.Dir)
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer jn.Close()

	if historyRun != "" {
		return printGrants(jn, historyRun)
	}
	return printPasses(jn, historyLimit)
}

func printPasses(jn *journal.DB, limit int) error {
	passes, err := jn.RecentPasses(limit)
	if err != nil {
		return err
	}
	if len(passes) == 0 {
		fmt.Fprintln(os.Stdout, "No sync passes recorded yet.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tRUN\tSOURCES\tGRANTED\tXP\tERRORS")
	for _, p := range passes {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\n",
			p.StartedAt.Local().Format(time.DateTime),
			shortID(p.RunID),
			p.Sources, p.Granted, p.XPGranted,
			p.QueryErrors+p.WriteErrors)
	}
	return w.Flush()
}

func printGrants(jn *journal.DB, runID string) error {
	grants, err := jn.GrantsForRun(runID)
	if err != nil {
		return err
	}
	if len(grants) == 0 {
		fmt.Fprintf(os.Stdout, "No grant outcomes for run %s.\n", runID)
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SOURCE\tSTATUS\tXP\tGRANT KEY\tDETAIL")
	for _, g := range grants {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			g.Source, g.Status, g.XP, g.GrantKey, g.Detail)
	}
	return w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
