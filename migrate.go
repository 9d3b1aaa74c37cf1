package main

import (
	"fmt"

	"github.com/amirphl/pn-backup/models"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the default-schema tables (development only)",
		Long: `Creates or updates the five tables of the default (v1) schema with gorm
AutoMigrate. Production stores are owned by the telephony platform; use this
against a local or sqlite database only.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := initializeApplication()
			if err != nil {
				return err
			}
			defer app.Close()

			if err := app.db.WithContext(cmd.Context()).AutoMigrate(models.All()...); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema migrated")
			return nil
		},
	}
}
