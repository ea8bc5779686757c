package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	errs "github.com/rohankatakam/monorel/internal/errors"
	"github.com/rohankatakam/monorel/internal/ledger"
)

var (
	historyProject string
	historyRun     string
	historyStatus  string
	historyLimit   int
	historyLatest  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded releases",
	Long: `List releases recorded in the release ledger, newest first. Requires
ledger.driver and ledger.dsn in the configuration (or DATABASE_URL).

Examples:
  monorel history --project api --limit 5
  monorel history --project api --latest
  monorel history --status failed`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyProject, "project", "", "only this project")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "only this run ID")
	historyCmd.Flags().StringVar(&historyStatus, "status", "", "only this status (released, skipped, failed)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "maximum rows")
	historyCmd.Flags().BoolVar(&historyLatest, "latest", false, "show only the latest real release of --project")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	store, err := openLedger(ctx)
	if err != nil {
		return err
	}
	if store == nil {
		return errs.MissingFieldError("ledger", "driver")
	}
	defer store.Close()

	var rows []ledger.Release
	if historyLatest {
		if historyProject == "" {
			return errs.ValidationError("--latest needs --project")
		}
		r, err := store.Latest(ctx, historyProject)
		if stderrors.Is(err, ledger.ErrNotFound) {
			fmt.Printf("%s has no recorded releases\n", historyProject)
			return nil
		}
		if err != nil {
			return err
		}
		rows = []ledger.Release{*r}
	} else {
		rows, err = store.History(ctx, ledger.Filter{
			Project: historyProject,
			RunID:   historyRun,
			Status:  historyStatus,
			Limit:   historyLimit,
		})
		if err != nil {
			return err
		}
	}

	if len(rows) == 0 {
		fmt.Println("No releases recorded.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "WHEN\tPROJECT\tVERSION\tSTATUS\tTAG\tRUN")
	for _, r := range rows {
		status := r.Status
		if r.DryRun {
			status += " (dry run)"
		}
		ver := r.Version
		if r.Previous != "" && r.Previous != r.Version {
			ver = r.Previous + " → " + r.Version
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Project, ver, status, r.Tag, shortRun(r.RunID))
	}
	return w.Flush()
}

func shortRun(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
