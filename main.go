// Package main is the pn-backup command: one pass of backup physical number assignment per invocation
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "pn-backup",
		Short: "Attach backup physical numbers to newly purchased virtual numbers",
		Long: `Runs one backup assignment pass: for every enabled tenant, each virtual number
purchased today (up to the lookback) gets physical numbers reserved from its
live pilots and attached through the PBX API. Tenants receive a report by e-mail.

Meant to be scheduled externally (cron, systemd timer, Kubernetes CronJob).`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackup(cmd.Context(), cmd.OutOrStdout())
		},
	}

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newOrphansCmd())
	cmd.AddCommand(newMigrateCmd())
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pn-backup %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

// execute maps the command outcome to an exit code; tenant failures inside a run are not errors
func execute(ctx context.Context, cmd *cobra.Command) int {
	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, newRootCmd())
	stop()
	os.Exit(code)
}
