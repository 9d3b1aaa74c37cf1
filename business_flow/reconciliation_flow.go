package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/pn-backup/app/services"
	"github.com/amirphl/pn-backup/models"
	"github.com/amirphl/pn-backup/repository"
	"github.com/amirphl/pn-backup/utils"
	"go.uber.org/zap"
)

// ReconciliationFlow reports numbers this job reserved but never assigned.
// It is read-only: releasing a number needs a human to confirm the attach never happened.
type ReconciliationFlow interface {
	FindOrphans(ctx context.Context, minAge time.Duration) ([]*models.PhysicalNumber, error)
	NotifyOrphans(ctx context.Context, minAge time.Duration, orphans []*models.PhysicalNumber) error
}

type ReconciliationFlowImpl struct {
	pnRepo     repository.PhysicalNumberRepository
	notifier   services.NotificationService
	reservedBy string
	logger     *zap.Logger
	now        func() time.Time
}

func NewReconciliationFlow(
	pnRepo repository.PhysicalNumberRepository,
	notifier services.NotificationService,
	reservedBy string,
	logger *zap.Logger,
) ReconciliationFlow {
	return &ReconciliationFlowImpl{
		pnRepo:     pnRepo,
		notifier:   notifier,
		reservedBy: reservedBy,
		logger:     logger,
		now:        utils.UTCNow,
	}
}

// FindOrphans lists numbers reserved by this job at least minAge ago with no assignment row
func (f *ReconciliationFlowImpl) FindOrphans(ctx context.Context, minAge time.Duration) (orphans []*models.PhysicalNumber, err error) {
	defer func() {
		if err != nil {
			err = NewBusinessError("FIND_ORPHANS_FAILED", "Failed to list orphaned reservations", err)
		}
	}()

	cutoff := f.now().Add(-minAge)
	orphans, err = f.pnRepo.ListOrphanedReservations(ctx, f.reservedBy, cutoff)
	if err != nil {
		return nil, err
	}

	f.logger.Info("Orphaned reservations",
		zap.String("reserved_by", f.reservedBy),
		zap.Time("cutoff", cutoff),
		zap.Int("count", len(orphans)))
	return orphans, nil
}

// NotifyOrphans mails the orphan report to the admin; an empty list sends nothing
func (f *ReconciliationFlowImpl) NotifyOrphans(ctx context.Context, minAge time.Duration, orphans []*models.PhysicalNumber) error {
	if len(orphans) == 0 {
		return nil
	}
	body := BuildOrphanReport(f.reservedBy, minAge, orphans)
	return f.notifier.SendAdminReport(utils.OrphanReportSubject, body)
}

// BuildOrphanReport renders orphaned reservations one per line
func BuildOrphanReport(reservedBy string, minAge time.Duration, orphans []*models.PhysicalNumber) string {
	if len(orphans) == 0 {
		return fmt.Sprintf("No orphaned reservations by %s older than %s", reservedBy, minAge)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Reserved by %s more than %s ago without an assignment:\n", reservedBy, minAge)
	for _, pn := range orphans {
		reservedAt := "unknown"
		if pn.ReservedAt != nil {
			reservedAt = pn.ReservedAt.UTC().Format(time.RFC3339)
		}
		fmt.Fprintf(&b, "  - %s (id: %s, Pilot: %s, Region: %s, reserved at %s)\n",
			pn.Number, pn.ID, pn.PilotID, pn.Region, reservedAt)
	}
	fmt.Fprintf(&b, "\nTotal: %d", len(orphans))
	return b.String()
}
