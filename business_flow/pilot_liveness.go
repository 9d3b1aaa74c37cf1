package businessflow

import (
	"context"
	"strings"

	"github.com/amirphl/pn-backup/repository"
	"go.uber.org/zap"
)

// PilotLivenessChecker decides whether a pilot may receive new assignments
type PilotLivenessChecker interface {
	IsActive(ctx context.Context, pilotID string) (bool, error)
}

type PilotLivenessCheckerImpl struct {
	pilotRepo    repository.PilotRepository
	activeStates map[string]struct{}
	logger       *zap.Logger
}

func NewPilotLivenessChecker(pilotRepo repository.PilotRepository, activeStates []string, logger *zap.Logger) PilotLivenessChecker {
	states := make(map[string]struct{}, len(activeStates))
	for _, s := range activeStates {
		states[strings.ToLower(strings.TrimSpace(s))] = struct{}{}
	}
	return &PilotLivenessCheckerImpl{
		pilotRepo:    pilotRepo,
		activeStates: states,
		logger:       logger,
	}
}

// IsActive fails closed: an unknown pilot is inactive. Store errors are returned.
func (c *PilotLivenessCheckerImpl) IsActive(ctx context.Context, pilotID string) (bool, error) {
	pilot, err := c.pilotRepo.ByID(ctx, pilotID)
	if err != nil {
		return false, err
	}
	if pilot == nil {
		c.logger.Warn("Pilot not found in status table, treating as inactive", zap.String("pilot", pilotID))
		return false, nil
	}

	_, ok := c.activeStates[strings.ToLower(strings.TrimSpace(pilot.State))]
	return ok, nil
}
