package cmd

import (
	"context"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the database schema",
	Run: func(_ *cobra.Command, _ []string) {
		ctx := context.Background()
		config, logger := setup("migrate")

		store, err := newStore(ctx, config, logger)
		if err != nil {
			logger.Fatal("migrating", zap.Error(err))
		}
		defer store.Close()

		logger.Info("schema is up to date", zap.String("driver", config.Database.Driver))
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
