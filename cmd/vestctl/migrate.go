package main

import (
	"context"
	"errors"
	"os"

	"github.com/dimitrije/vesting-api/internal/database"
	"github.com/dimitrije/vesting-api/internal/logging"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	var databaseURL string
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				_ = godotenv.Load()
				databaseURL = os.Getenv("DATABASE_URL")
			}
			if databaseURL == "" {
				return errors.New("no database: set DATABASE_URL or pass --database-url")
			}

			ctx := context.Background()
			db, err := database.New(ctx, databaseURL)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := db.Migrate(ctx); err != nil {
				return err
			}
			logging.L.Info("migrations applied")
			return nil
		},
	}
	cmd.Flags().StringVar(&databaseURL, "database-url", "", "postgres connection string")
	return cmd
}
