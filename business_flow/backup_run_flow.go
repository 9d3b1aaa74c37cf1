package businessflow

import (
	"context"
	"time"

	"github.com/amirphl/pn-backup/app/metrics"
	"github.com/amirphl/pn-backup/app/services"
	"github.com/amirphl/pn-backup/models"
	"github.com/amirphl/pn-backup/utils"
	"go.uber.org/zap"
)

// InputLoader supplies the tables that drive a run
type InputLoader interface {
	LoadAccounts(ctx context.Context) ([]models.Tenant, error)
	LoadTenantExceptions(ctx context.Context) (map[string][]string, error)
	LoadRegionPilots(ctx context.Context) (map[string][]string, error)
}

// RunSummary is the outcome of one run
type RunSummary struct {
	RunID      string
	Window     RunWindow
	StartedAt  time.Time
	FinishedAt time.Time
	// Skipped is set when another run held the lock
	Skipped bool

	Tenants            int
	TenantsProcessed   int
	TenantsNoPurchases int
	TenantErrors       int
	VNs                int
	Assigned           int
	Warnings           int
	EmailFailures      int
}

// BackupRunFlowConfig holds run-level settings
type BackupRunFlowConfig struct {
	RunID          string
	Lookback       time.Duration
	PushgatewayURL string
	MetricsJobName string
}

// BackupRunFlow performs one complete pass over all enabled tenants
type BackupRunFlow interface {
	// Run returns an error only when the run could not start; tenant failures are
	// mailed to the admin and counted in the summary.
	Run(ctx context.Context) (*RunSummary, error)
}

type BackupRunFlowImpl struct {
	loader     InputLoader
	allocation AllocationFlow
	notifier   services.NotificationService
	lock       RunLock
	cfg        BackupRunFlowConfig
	metrics    *metrics.RunMetrics
	logger     *zap.Logger
	now        func() time.Time
}

// NewBackupRunFlow wires a run; lock may be nil when no overlap guard is configured
func NewBackupRunFlow(
	loader InputLoader,
	allocation AllocationFlow,
	notifier services.NotificationService,
	lock RunLock,
	cfg BackupRunFlowConfig,
	runMetrics *metrics.RunMetrics,
	logger *zap.Logger,
) BackupRunFlow {
	return &BackupRunFlowImpl{
		loader:     loader,
		allocation: allocation,
		notifier:   notifier,
		lock:       lock,
		cfg:        cfg,
		metrics:    runMetrics,
		logger:     logger.With(zap.String("run_id", cfg.RunID)),
		now:        utils.UTCNow,
	}
}

func (f *BackupRunFlowImpl) Run(ctx context.Context) (summary *RunSummary, err error) {
	defer func() {
		if err != nil {
			err = NewBusinessError("BACKUP_RUN_FAILED", "Backup run failed", err)
		}
	}()

	startedAt := f.now()
	summary = &RunSummary{RunID: f.cfg.RunID, StartedAt: startedAt}

	if f.lock != nil {
		acquired, err := f.lock.Acquire(ctx)
		if err != nil {
			return nil, err
		}
		if !acquired {
			f.logger.Warn("Another run holds the lock, skipping", zap.Error(ErrRunLocked))
			summary.Skipped = true
			summary.FinishedAt = f.now()
			return summary, nil
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := f.lock.Release(releaseCtx); err != nil {
				f.logger.Warn("Failed to release run lock", zap.Error(err))
			}
		}()
	}

	window := ComputeRunWindow(startedAt, f.cfg.Lookback)
	summary.Window = window
	f.logger.Info("Run window", zap.Time("start", window.Start), zap.Time("end", window.End))
	if window.Inverted() {
		f.metrics.Warning(metrics.ReasonWindowInverted)
		f.logger.Warn("Run window is inverted, no purchases will match",
			zap.Duration("lookback", f.cfg.Lookback))
	}

	tenants, err := f.loader.LoadAccounts(ctx)
	if err != nil {
		return nil, NewBusinessError("LOAD_ACCOUNTS_FAILED", "Failed to load accounts", err)
	}
	exceptions, err := f.loader.LoadTenantExceptions(ctx)
	if err != nil {
		return nil, NewBusinessError("LOAD_TENANT_EXCEPTIONS_FAILED", "Failed to load tenant exceptions", err)
	}
	regionPilots, err := f.loader.LoadRegionPilots(ctx)
	if err != nil {
		return nil, NewBusinessError("LOAD_REGION_PILOTS_FAILED", "Failed to load region preferences", err)
	}
	summary.Tenants = len(tenants)
	f.logger.Info("Inputs loaded",
		zap.Int("tenants", len(tenants)),
		zap.Int("tenant_exceptions", len(exceptions)),
		zap.Int("regions", len(regionPilots)))

	for _, tenant := range tenants {
		if err := ctx.Err(); err != nil {
			f.finish(ctx, summary, false)
			return nil, err
		}
		f.processTenant(ctx, tenant, exceptions, regionPilots, window, summary)
	}

	f.finish(ctx, summary, true)
	return summary, nil
}

func (f *BackupRunFlowImpl) processTenant(
	ctx context.Context,
	tenant models.Tenant,
	exceptions map[string][]string,
	regionPilots map[string][]string,
	window RunWindow,
	summary *RunSummary,
) {
	logger := f.logger.With(zap.String("tenant_id", tenant.ID))

	results, err := f.allocation.ProcessTenant(ctx, tenant, exceptions, regionPilots, window)
	if err != nil {
		summary.TenantErrors++
		f.metrics.TenantFailed()
		logger.Error("Tenant processing error", zap.Error(err))
		if mailErr := f.notifier.SendAdminError(err); mailErr != nil {
			summary.EmailFailures++
			logger.Error("Failed to send admin error email", zap.Error(mailErr))
		}
		return
	}

	summary.TenantsProcessed++
	f.metrics.TenantProcessed()
	if results == nil {
		summary.TenantsNoPurchases++
	}
	for _, r := range results {
		summary.VNs++
		summary.Assigned += len(r.Assigned)
		summary.Warnings += len(r.Warnings)
	}

	if err := f.notifier.SendTenantReport(tenant, BuildReportBody(tenant.ID, results)); err != nil {
		summary.EmailFailures++
		logger.Error("Failed to send tenant report", zap.Error(err))
	}
}

func (f *BackupRunFlowImpl) finish(ctx context.Context, summary *RunSummary, completed bool) {
	summary.FinishedAt = f.now()
	f.metrics.ObserveRun(summary.StartedAt, summary.FinishedAt, completed)

	if f.cfg.PushgatewayURL != "" {
		pushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer cancel()
		if err := f.metrics.Push(pushCtx, f.cfg.PushgatewayURL, f.cfg.MetricsJobName); err != nil {
			f.logger.Warn("Failed to push metrics", zap.Error(err))
		}
	}

	f.logger.Info("Run finished",
		zap.Int("tenants", summary.Tenants),
		zap.Int("tenant_errors", summary.TenantErrors),
		zap.Int("vns", summary.VNs),
		zap.Int("assigned", summary.Assigned),
		zap.Int("warnings", summary.Warnings),
		zap.Duration("duration", summary.FinishedAt.Sub(summary.StartedAt)))
}
