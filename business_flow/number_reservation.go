package businessflow

import (
	"context"
	"time"

	"github.com/amirphl/pn-backup/app/metrics"
	"github.com/amirphl/pn-backup/models"
	"github.com/amirphl/pn-backup/repository"
	"github.com/amirphl/pn-backup/utils"
	"go.uber.org/zap"
)

// NumberReservationService claims pool numbers behind a pilot
type NumberReservationService interface {
	// Reserve returns between 0 and count claimed numbers in candidate order
	Reserve(ctx context.Context, pilotID, region string, count int) ([]*models.PhysicalNumber, error)
}

type NumberReservationServiceImpl struct {
	pnRepo     repository.PhysicalNumberRepository
	reservedBy string
	metrics    *metrics.RunMetrics
	logger     *zap.Logger
	now        func() time.Time
}

func NewNumberReservationService(
	pnRepo repository.PhysicalNumberRepository,
	reservedBy string,
	runMetrics *metrics.RunMetrics,
	logger *zap.Logger,
) NumberReservationService {
	return &NumberReservationServiceImpl{
		pnRepo:     pnRepo,
		reservedBy: reservedBy,
		metrics:    runMetrics,
		logger:     logger,
		now:        utils.UTCNow,
	}
}

// Reserve lists candidates then claims each one with the conditional update.
// A candidate lost to another claimant is skipped, not retried.
func (s *NumberReservationServiceImpl) Reserve(ctx context.Context, pilotID, region string, count int) ([]*models.PhysicalNumber, error) {
	if count <= 0 {
		return []*models.PhysicalNumber{}, nil
	}

	candidates, err := s.pnRepo.ListCandidates(ctx, pilotID, region, count)
	if err != nil {
		return nil, err
	}

	reserved := make([]*models.PhysicalNumber, 0, len(candidates))
	for _, pn := range candidates {
		at := s.now()
		ok, err := s.pnRepo.Reserve(ctx, pn.ID, s.reservedBy, at)
		if err != nil {
			if len(reserved) > 0 {
				s.logger.Error("Reservation aborted, claimed numbers stay reserved",
					zap.String("pilot", pilotID),
					zap.Strings("claimed_pn_ids", pnIDs(reserved)),
					zap.String("failed_pn_id", pn.ID),
					zap.Error(err))
			}
			return reserved, err
		}
		if !ok {
			s.metrics.ReservationRace()
			s.logger.Warn("PN could not be reserved (race)",
				zap.String("pn_id", pn.ID), zap.String("pn", pn.Number), zap.String("pilot", pilotID))
			continue
		}

		pn.ReservedBy = utils.ToPtr(s.reservedBy)
		pn.ReservedAt = utils.ToPtr(at)
		reserved = append(reserved, pn)
	}

	return reserved, nil
}

func pnIDs(numbers []*models.PhysicalNumber) []string {
	ids := make([]string, len(numbers))
	for i, pn := range numbers {
		ids[i] = pn.ID
	}
	return ids
}
