package businessflow

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/amirphl/pn-backup/app/metrics"
	"github.com/amirphl/pn-backup/app/services"
	"github.com/amirphl/pn-backup/models"
	"github.com/amirphl/pn-backup/repository"
	"github.com/amirphl/pn-backup/utils"
	"go.uber.org/zap"
	"gorm.io/datatypes"
)

// AssignedPN is a physical number successfully attached to a virtual number
type AssignedPN struct {
	PNID           string
	PN             string
	Pilot          string
	AttachResponse map[string]any
}

// VNResult is the outcome for one purchased virtual number
type VNResult struct {
	VNID     string
	VN       string
	Region   string
	Assigned []AssignedPN
	Warnings []string
}

// AllocationOptions tunes per-VN allocation
type AllocationOptions struct {
	PNPerPilotPerVN int
	// StopAfterFirstSuccessfulPilot ends the pilot loop for a VN once a pilot produced an assignment
	StopAfterFirstSuccessfulPilot bool
	RunID                         string
}

// AllocationFlow processes one tenant's purchases in a run window
type AllocationFlow interface {
	// ProcessTenant returns nil results when the tenant bought nothing in the window.
	// Store failures abort the tenant and are returned.
	ProcessTenant(ctx context.Context, tenant models.Tenant, exceptions map[string][]string, regionPilots map[string][]string, window RunWindow) ([]VNResult, error)
}

type AllocationFlowImpl struct {
	vnRepo         repository.VirtualNumberRepository
	assignmentRepo repository.AssignmentRepository
	liveness       PilotLivenessChecker
	reservation    NumberReservationService
	attach         services.AttachGateway
	opts           AllocationOptions
	metrics        *metrics.RunMetrics
	logger         *zap.Logger
	now            func() time.Time
}

func NewAllocationFlow(
	vnRepo repository.VirtualNumberRepository,
	assignmentRepo repository.AssignmentRepository,
	liveness PilotLivenessChecker,
	reservation NumberReservationService,
	attach services.AttachGateway,
	opts AllocationOptions,
	runMetrics *metrics.RunMetrics,
	logger *zap.Logger,
) AllocationFlow {
	if opts.PNPerPilotPerVN <= 0 {
		opts.PNPerPilotPerVN = utils.DefaultPNPerPilotPerVN
	}
	return &AllocationFlowImpl{
		vnRepo:         vnRepo,
		assignmentRepo: assignmentRepo,
		liveness:       liveness,
		reservation:    reservation,
		attach:         attach,
		opts:           opts,
		metrics:        runMetrics,
		logger:         logger,
		now:            utils.UTCNow,
	}
}

// CandidatePilots picks the pilot list for a VN: the tenant exception if the tenant is listed
// (even with an empty list), else the account row override, else the region default.
// Lists are never merged.
func CandidatePilots(tenant models.Tenant, exceptions map[string][]string, regionPilots map[string][]string, region string) []string {
	if pilots, ok := exceptions[tenant.ID]; ok {
		return pilots
	}
	if tenant.HasPilotOverride() {
		return tenant.AllowedPilots
	}
	return regionPilots[region]
}

func (f *AllocationFlowImpl) ProcessTenant(
	ctx context.Context,
	tenant models.Tenant,
	exceptions map[string][]string,
	regionPilots map[string][]string,
	window RunWindow,
) (results []VNResult, err error) {
	defer func() {
		if err != nil {
			err = NewBusinessErrorf("PROCESS_TENANT_FAILED", "Failed to process tenant %s", err, tenant.ID)
		}
	}()

	if tenant.ID == "" {
		return nil, ErrTenantIDRequired
	}

	logger := f.logger.With(zap.String("tenant_id", tenant.ID))
	logger.Info("Processing tenant")

	purchased, err := f.vnRepo.ListPurchased(ctx, tenant.ID, window.Start, window.End)
	if err != nil {
		return nil, err
	}
	if len(purchased) == 0 {
		logger.Info("No VNs purchased in the window")
		return nil, nil
	}

	results = make([]VNResult, 0, len(purchased))
	for _, vn := range purchased {
		result, err := f.processVN(ctx, logger, tenant, vn, CandidatePilots(tenant, exceptions, regionPilots, vn.Region))
		if err != nil {
			return nil, err
		}
		results = append(results, result)
	}

	return results, nil
}

func (f *AllocationFlowImpl) processVN(ctx context.Context, logger *zap.Logger, tenant models.Tenant, vn *models.VirtualNumber, pilots []string) (VNResult, error) {
	f.metrics.VNProcessed()
	logger = logger.With(zap.String("vn", vn.Number), zap.String("region", vn.Region))
	logger.Info("Processing VN")

	result := VNResult{
		VNID:     vn.ID,
		VN:       vn.Number,
		Region:   vn.Region,
		Assigned: []AssignedPN{},
		Warnings: []string{},
	}

	if len(pilots) == 0 {
		result.warn(f.metrics, metrics.ReasonNoPilots, "No pilots configured for region %s", vn.Region)
		return result, nil
	}

	for _, pilot := range pilots {
		active, err := f.liveness.IsActive(ctx, pilot)
		if err != nil {
			return result, err
		}
		if !active {
			result.warn(f.metrics, metrics.ReasonPilotInactive, "Pilot %s inactive/dead", pilot)
			continue
		}

		reserved, err := f.reservation.Reserve(ctx, pilot, vn.Region, f.opts.PNPerPilotPerVN)
		if err != nil {
			return result, err
		}
		if len(reserved) == 0 {
			result.warn(f.metrics, metrics.ReasonNoPNAvailable, "No PN available for %s", pilot)
			continue
		}

		assignedBefore := len(result.Assigned)
		for _, pn := range reserved {
			f.attachOne(ctx, logger, tenant, vn, pilot, pn, &result)
		}

		if f.opts.StopAfterFirstSuccessfulPilot && len(result.Assigned) > assignedBefore {
			logger.Info("Stopping pilot loop after first successful pilot", zap.String("pilot", pilot))
			break
		}
	}

	return result, nil
}

// attachOne calls the gateway once. A failed attach leaves the number reserved.
func (f *AllocationFlowImpl) attachOne(ctx context.Context, logger *zap.Logger, tenant models.Tenant, vn *models.VirtualNumber, pilot string, pn *models.PhysicalNumber, result *VNResult) {
	logger = logger.With(zap.String("pilot", pilot), zap.String("pn", pn.Number))

	ok, payload := f.attach.Attach(ctx, vn.Number, pn.Number, tenant.ID)
	if !ok {
		f.metrics.AttachFailed(statusCodeOf(payload))
		logger.Warn("Attach call failed", zap.Any("response", payload))
		result.warn(f.metrics, metrics.ReasonAttachFailed, "Failed to assign PN %s: %s", pn.Number, formatPayload(payload))
		return
	}

	f.metrics.PNAssigned()
	result.Assigned = append(result.Assigned, AssignedPN{
		PNID:           pn.ID,
		PN:             pn.Number,
		Pilot:          pilot,
		AttachResponse: payload,
	})
	logger.Info("PN attached")

	assignment := &models.Assignment{
		VNID:       vn.ID,
		PNID:       pn.ID,
		PilotID:    pilot,
		TenantID:   tenant.ID,
		AssignedAt: f.now(),
	}
	if f.opts.RunID != "" {
		assignment.RunID = utils.ToPtr(f.opts.RunID)
	}
	if raw, err := json.Marshal(payload); err == nil {
		assignment.AttachResponse = datatypes.JSON(raw)
	}

	// the attach already happened; a lost row is logged and counted, never surfaced
	if err := f.assignmentRepo.Save(ctx, assignment); err != nil {
		f.metrics.PersistFailed()
		logger.Error("Insert assignment failed", zap.Error(err))
	}
}

func (r *VNResult) warn(m *metrics.RunMetrics, reason, format string, args ...any) {
	m.Warning(reason)
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

func statusCodeOf(payload map[string]any) int {
	if code, ok := payload["status_code"].(int); ok {
		return code
	}
	return 0
}

func formatPayload(payload map[string]any) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Sprintf("%v", payload)
	}
	return string(raw)
}
