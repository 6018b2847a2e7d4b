package main

import (
	"errors"

	"github.com/couchcryptid/cafepick-api/internal/adapter/postgres"
	"github.com/spf13/cobra"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the cafes table in DATABASE_URL.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := loadDeps()
			if err != nil {
				return err
			}
			if rt.cfg.DatabaseURL == "" {
				return errors.New("DATABASE_URL is required")
			}
			store, err := postgres.Open(cmd.Context(), rt.cfg.DatabaseURL, rt.cfg.DBMaxConnections, rt.logger)
			if err != nil {
				return err
			}
			defer store.Close()
			return store.Migrate(cmd.Context())
		},
	}
}
