package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/civicsignal/civicsync/internal/model"
	"github.com/civicsignal/civicsync/internal/store"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect ingestion run history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		connector, _ := cmd.Flags().GetString("connector")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		runs, err := st.ListRuns(ctx, store.RunFilter{
			Connector: connector,
			Status:    model.RunStatus(status),
			Limit:     limit,
		})
		if err != nil {
			return eris.Wrap(err, "runs list")
		}

		if len(runs) == 0 {
			fmt.Fprintln(os.Stderr, "No runs found.")
			return nil
		}

		formatRunsList(os.Stdout, runs)
		return nil
	},
}

func formatRunsList(w io.Writer, runs []model.IngestionRun) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN ID\tCONNECTOR\tSTATUS\tSTARTED\tDURATION\tFETCHED\tNEW\tUPDATED\tSKIPPED\tERROR")
	for _, run := range runs {
		duration := "-"
		if run.FinishedAt != nil {
			duration = run.FinishedAt.Sub(run.StartedAt).Round(time.Second).String()
		}
		errMsg := run.Error
		if len(errMsg) > 48 {
			errMsg = errMsg[:45] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			run.ID, run.Connector, run.Status,
			run.StartedAt.Format(time.RFC3339), duration,
			run.Stats.Fetched, run.Stats.NewMeasures, run.Stats.Updated, run.Stats.Skipped,
			errMsg,
		)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	runsCmd.Flags().String("connector", "", "filter by connector name")
	runsCmd.Flags().String("status", "", "filter by status (running, succeeded, failed)")
	runsCmd.Flags().Int("limit", 20, "maximum runs to list")
	rootCmd.AddCommand(runsCmd)
}
