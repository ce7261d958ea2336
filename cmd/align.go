package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var alignCmd = &cobra.Command{
	Use:   "align",
	Short: "Alignment recompute operations",
}

var alignRecomputeCmd = &cobra.Command{
	Use:   "recompute <measure-id>",
	Short: "Recompute match results for one measure",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Align.Recompute(ctx, args[0]); err != nil {
			return err
		}
		zap.L().Info("recompute complete", zap.String("measure_id", args[0]))
		return nil
	},
}

var alignDrainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Drain the pending recompute queue",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		drained, err := env.Align.DrainQueue(ctx, cfg.Ingest.MaxConcurrent)
		if err != nil {
			return err
		}
		zap.L().Info("queue drained", zap.Int("measures", drained))
		return nil
	},
}

var alignShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the stored match result for a user and measure",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		userID, _ := cmd.Flags().GetString("user")
		measureID, _ := cmd.Flags().GetString("measure")
		if userID == "" || measureID == "" {
			return eris.New("--user and --measure are required")
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		result, err := st.GetMatchResult(ctx, userID, measureID)
		if err != nil {
			return err
		}
		if result == nil {
			fmt.Fprintln(os.Stderr, "No match result found.")
			return nil
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	alignShowCmd.Flags().String("user", "", "user id")
	alignShowCmd.Flags().String("measure", "", "measure id")
	alignCmd.AddCommand(alignRecomputeCmd, alignDrainCmd, alignShowCmd)
	rootCmd.AddCommand(alignCmd)
}
