package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/pn-backup/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// VirtualNumberRepositoryImpl implements VirtualNumberRepository interface
type VirtualNumberRepositoryImpl struct {
	*BaseRepository[models.VirtualNumber]
}

// NewVirtualNumberRepository creates a new virtual number repository
func NewVirtualNumberRepository(db *gorm.DB, schema *Schema) VirtualNumberRepository {
	return &VirtualNumberRepositoryImpl{
		BaseRepository: NewBaseRepository[models.VirtualNumber](db, schema),
	}
}

// ListPurchased retrieves the tenant's numbers purchased in the half-open window [start, end)
func (r *VirtualNumberRepositoryImpl) ListPurchased(ctx context.Context, tenantID string, start, end time.Time) ([]*models.VirtualNumber, error) {
	t := r.Schema.PurchasedNumbers
	created := column(t, "date_created")

	var numbers []*models.VirtualNumber
	err := r.getDB(ctx).
		Table(t.Name).
		Clauses(selectColumns(t, "id", "tenant_id", "vn_number", "region", "date_created")).
		Where(clause.Eq{Column: column(t, "tenant_id"), Value: tenantID}).
		Where(clause.Gte{Column: created, Value: start.UTC()}).
		Where(clause.Lt{Column: created, Value: end.UTC()}).
		Order(clause.OrderByColumn{Column: created}).
		Order(clause.OrderByColumn{Column: column(t, "id")}).
		Find(&numbers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list purchased numbers for tenant %s: %w", tenantID, err)
	}

	return numbers, nil
}
