package main

import (
	"fmt"
	"io"
	"time"

	businessflow "github.com/amirphl/pn-backup/business_flow"
	"github.com/amirphl/pn-backup/repository"
	"github.com/spf13/cobra"
)

func newOrphansCmd() *cobra.Command {
	var (
		olderThan time.Duration
		notify    bool
	)

	cmd := &cobra.Command{
		Use:   "orphans",
		Short: "List numbers reserved by this job that never got an assignment",
		Long: `Lists physical numbers reserved under RESERVED_BY_TAG at least --older-than ago
with no matching assignment row. These are left behind by failed attach calls or
crashed runs. Nothing is released; confirm on the PBX before freeing a number.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := initializeApplication()
			if err != nil {
				return err
			}
			defer app.Close()

			if !cmd.Flags().Changed("older-than") {
				olderThan = app.cfg.Run.OrphanMinAge
			}

			flow := businessflow.NewReconciliationFlow(
				repository.NewPhysicalNumberRepository(app.db, app.schema),
				app.notifier,
				app.cfg.Run.ReservedByTag,
				app.logger,
			)

			ctx := cmd.Context()
			orphans, err := flow.FindOrphans(ctx, olderThan)
			if err != nil {
				return err
			}
			printOrphans(cmd.OutOrStdout(), businessflow.BuildOrphanReport(app.cfg.Run.ReservedByTag, olderThan, orphans))

			if notify {
				return flow.NotifyOrphans(ctx, olderThan, orphans)
			}
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 24*time.Hour, "minimum reservation age (defaults to ORPHAN_MIN_AGE)")
	cmd.Flags().BoolVar(&notify, "notify", false, "e-mail the report to ADMIN_EMAIL when orphans exist")
	return cmd
}

func printOrphans(out io.Writer, report string) {
	fmt.Fprintln(out, report)
}
