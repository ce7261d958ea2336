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
)

var measuresCmd = &cobra.Command{
	Use:   "measures",
	Short: "Inspect canonical measures",
}

var measuresListCmd = &cobra.Command{
	Use:   "list",
	Short: "List measures in a jurisdiction",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		jurisdiction, _ := cmd.Flags().GetString("jurisdiction")
		if jurisdiction == "" {
			return eris.New("--jurisdiction is required (e.g. us, us/az, us/az/phoenix)")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		measures, err := st.ListMeasuresByJurisdiction(ctx, jurisdiction)
		if err != nil {
			return err
		}
		if len(measures) == 0 {
			fmt.Fprintln(os.Stderr, "No measures found.")
			return nil
		}

		formatMeasuresList(os.Stdout, measures)
		return nil
	},
}

var measuresHistoryCmd = &cobra.Command{
	Use:   "history <measure-id>",
	Short: "Show a measure's status history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		events, err := st.ListStatusEvents(ctx, args[0])
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintln(os.Stderr, "No status history found.")
			return nil
		}

		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "EFFECTIVE\tSTATUS\tSOURCE")
		for _, ev := range events {
			fmt.Fprintf(tw, "%s\t%s\t%s\n",
				ev.EffectiveAt.Format(time.RFC3339), ev.Status, ev.SourceURL)
		}
		return tw.Flush()
	},
}

func formatMeasuresList(w io.Writer, measures []model.Measure) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSOURCE\tEXTERNAL ID\tSTATUS\tTITLE")
	for _, m := range measures {
		title := m.Title
		if len(title) > 60 {
			title = title[:57] + "..."
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", m.ID, m.Source, m.ExternalID, m.Status, title)
	}
	tw.Flush() //nolint:errcheck
}

func init() {
	measuresListCmd.Flags().String("jurisdiction", "", "jurisdiction path")
	measuresCmd.AddCommand(measuresListCmd, measuresHistoryCmd)
	rootCmd.AddCommand(measuresCmd)
}
