package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/civicsignal/civicsync/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "civicsync",
	Short: "Legislative data ingestion and alignment engine",
	Long:  "Pulls federal, state, and municipal legislative data into one canonical store and scores how closely elected officials' votes track each user's.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
