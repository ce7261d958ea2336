package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicsignal/civicsync/internal/model"
)

var voteCmd = &cobra.Command{
	Use:   "vote",
	Short: "Record a user's position on a measure",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		userID, _ := cmd.Flags().GetString("user")
		measureID, _ := cmd.Flags().GetString("measure")
		value, _ := cmd.Flags().GetString("value")

		if userID == "" || measureID == "" {
			return eris.New("--user and --measure are required")
		}
		v := model.UserVoteValue(value)
		switch v {
		case model.UserVoteYes, model.UserVoteNo, model.UserVoteSkip:
		default:
			return eris.Errorf("invalid vote value %q (yes, no, skip)", value)
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		m, err := env.Store.GetMeasureByID(ctx, measureID)
		if err != nil {
			return err
		}
		if m == nil {
			return eris.Errorf("measure not found: %s", measureID)
		}

		changed, err := env.Store.UpsertUserVote(ctx, &model.UserVote{
			UserID:    userID,
			MeasureID: measureID,
			Value:     v,
		})
		if err != nil {
			return err
		}
		if changed {
			if err := env.Align.Recompute(ctx, measureID); err != nil {
				return err
			}
		}
		zap.L().Info("vote recorded",
			zap.String("user_id", userID),
			zap.String("measure_id", measureID),
			zap.String("value", value),
			zap.Bool("changed", changed),
		)
		return nil
	},
}

var correctStatusCmd = &cobra.Command{
	Use:   "correct-status <measure-id> <status>",
	Short: "Manually correct a measure's status, bypassing the monotonic guard",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		status := model.MeasureStatus(args[1])
		if _, ok := map[model.MeasureStatus]bool{
			model.StatusUnknown: true, model.StatusIntroduced: true,
			model.StatusInCommittee: true, model.StatusScheduled: true,
			model.StatusPassed: true, model.StatusFailed: true,
			model.StatusTabled: true, model.StatusWithdrawn: true,
		}[status]; !ok {
			return eris.Errorf("invalid status %q", args[1])
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		if err := st.CorrectMeasureStatus(ctx, args[0], status, ""); err != nil {
			return err
		}
		zap.L().Info("status corrected",
			zap.String("measure_id", args[0]),
			zap.String("status", args[1]),
		)
		return nil
	},
}

func init() {
	voteCmd.Flags().String("user", "", "user id")
	voteCmd.Flags().String("measure", "", "measure id")
	voteCmd.Flags().String("value", "yes", "vote value (yes, no, skip)")
	rootCmd.AddCommand(voteCmd, correctStatusCmd)
}
