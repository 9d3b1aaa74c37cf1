package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/amirphl/pn-backup/app/services"
	"github.com/amirphl/pn-backup/app/sources"
	businessflow "github.com/amirphl/pn-backup/business_flow"
	"github.com/amirphl/pn-backup/repository"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

func runBackup(ctx context.Context, out io.Writer) error {
	app, err := initializeApplication()
	if err != nil {
		return err
	}
	defer app.Close()

	flow, err := app.newBackupRunFlow(uuid.NewString())
	if err != nil {
		return err
	}

	summary, err := flow.Run(ctx)
	if err != nil {
		app.logger.Error("Backup run failed", zap.Error(err))
		if mailErr := app.notifier.SendAdminError(err); mailErr != nil {
			app.logger.Error("Failed to send admin error email", zap.Error(mailErr))
		}
		return err
	}

	printSummary(out, summary)
	return nil
}

// newBackupRunFlow wires the per-tenant allocation and the run around it
func (a *Application) newBackupRunFlow(runID string) (businessflow.BackupRunFlow, error) {
	cfg := a.cfg
	logger := a.logger.With(zap.String("run_id", runID))

	source, err := sources.NewSourceFromConfig(cfg.Sources)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize input source: %w", err)
	}

	vnRepo := repository.NewVirtualNumberRepository(a.db, a.schema)
	pilotRepo := repository.NewPilotRepository(a.db, a.schema)
	pnRepo := repository.NewPhysicalNumberRepository(a.db, a.schema)
	assignmentRepo := repository.NewAssignmentRepository(a.db, a.schema)

	allocation := businessflow.NewAllocationFlow(
		vnRepo,
		assignmentRepo,
		businessflow.NewPilotLivenessChecker(pilotRepo, a.schema.ActiveStates(), logger),
		businessflow.NewNumberReservationService(pnRepo, cfg.Run.ReservedByTag, a.metrics, logger),
		services.NewAttachClient(cfg.Attach.URL, cfg.Attach.Timeout, cfg.Attach.Headers),
		businessflow.AllocationOptions{
			PNPerPilotPerVN:               cfg.Run.PNPerPilotPerVN,
			StopAfterFirstSuccessfulPilot: cfg.Run.StopAfterFirst,
			RunID:                         runID,
		},
		a.metrics,
		logger,
	)

	var lock businessflow.RunLock
	if a.rc != nil {
		lock = businessflow.NewRedisRunLock(a.rc, cfg.Cache.RedisPrefix, cfg.Cache.RunLockTTL)
	}

	return businessflow.NewBackupRunFlow(
		sources.NewLoader(source, logger),
		allocation,
		a.notifier,
		lock,
		businessflow.BackupRunFlowConfig{
			RunID:          runID,
			Lookback:       cfg.Run.Lookback(),
			PushgatewayURL: cfg.Metrics.PushgatewayURL,
			MetricsJobName: cfg.Metrics.JobName,
		},
		a.metrics,
		a.logger,
	), nil
}

func printSummary(out io.Writer, s *businessflow.RunSummary) {
	if s.Skipped {
		fmt.Fprintf(out, "run %s skipped: another run holds the lock\n", s.RunID)
		return
	}
	fmt.Fprintf(out, "run %s finished in %s\n", s.RunID, s.FinishedAt.Sub(s.StartedAt).Round(time.Millisecond))
	fmt.Fprintf(out, "  tenants:   %d (%d processed, %d without purchases, %d failed)\n",
		s.Tenants, s.TenantsProcessed, s.TenantsNoPurchases, s.TenantErrors)
	fmt.Fprintf(out, "  vns:       %d\n", s.VNs)
	fmt.Fprintf(out, "  assigned:  %d\n", s.Assigned)
	fmt.Fprintf(out, "  warnings:  %d\n", s.Warnings)
	if s.EmailFailures > 0 {
		fmt.Fprintf(out, "  e-mail failures: %d\n", s.EmailFailures)
	}
}
