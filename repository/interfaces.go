package repository

import (
	"context"
	"time"

	"github.com/amirphl/pn-backup/models"
)

type contextKey string

const TxContextKey contextKey = "tx"

// VirtualNumberRepository reads numbers purchased by tenants
type VirtualNumberRepository interface {
	// ListPurchased returns numbers created in [start, end) ordered by creation time then id
	ListPurchased(ctx context.Context, tenantID string, start, end time.Time) ([]*models.VirtualNumber, error)
}

// PilotRepository reads pilot state
type PilotRepository interface {
	// ByID returns nil without error when the pilot does not exist
	ByID(ctx context.Context, pilotID string) (*models.Pilot, error)
}

// PhysicalNumberRepository reads and claims pool numbers
type PhysicalNumberRepository interface {
	ListCandidates(ctx context.Context, pilotID, region string, limit int) ([]*models.PhysicalNumber, error)
	// Reserve flips an available number to reserved; false means another claimant won
	Reserve(ctx context.Context, pnID, reservedBy string, at time.Time) (bool, error)
	ListOrphanedReservations(ctx context.Context, reservedBy string, olderThan time.Time) ([]*models.PhysicalNumber, error)
}

// AssignmentRepository persists successful attach results
type AssignmentRepository interface {
	Save(ctx context.Context, assignment *models.Assignment) error
	ListByTenant(ctx context.Context, tenantID string) ([]*models.Assignment, error)
}
