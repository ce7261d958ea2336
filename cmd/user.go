package main

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var userCmd = &cobra.Command{
	Use:   "user",
	Short: "Manage user representative snapshots",
}

var userSetAddressCmd = &cobra.Command{
	Use:   "set-address <user-id> <address...>",
	Short: "Resolve a user's address to their representatives",
	Long:  "Looks up the divisions covering the address, matches the elected officials to the ones already ingested, and replaces the user's representative snapshot used for alignment scoring.",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		userID := args[0]
		address := strings.Join(args[1:], " ")
		if strings.TrimSpace(address) == "" {
			return eris.New("an address is required")
		}

		env, err := initEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Reps.RefreshUser(ctx, userID, address)
		if err != nil {
			return err
		}
		zap.L().Info("representative snapshot updated",
			zap.String("user_id", userID),
			zap.Int("officials", n),
		)
		return nil
	},
}

func init() {
	userCmd.AddCommand(userSetAddressCmd)
	rootCmd.AddCommand(userCmd)
}
