package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/amirphl/pn-backup/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PilotRepositoryImpl implements PilotRepository interface
type PilotRepositoryImpl struct {
	*BaseRepository[models.Pilot]
}

// NewPilotRepository creates a new pilot repository
func NewPilotRepository(db *gorm.DB, schema *Schema) PilotRepository {
	return &PilotRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Pilot](db, schema),
	}
}

// ByID retrieves a pilot by its identifier
func (r *PilotRepositoryImpl) ByID(ctx context.Context, pilotID string) (*models.Pilot, error) {
	t := r.Schema.PilotStatus

	var pilot models.Pilot
	err := r.getDB(ctx).
		Table(t.Name).
		Clauses(selectColumns(t, "pilot", "status")).
		Where(clause.Eq{Column: column(t, "pilot"), Value: pilotID}).
		Take(&pilot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to find pilot %s: %w", pilotID, err)
	}

	return &pilot, nil
}
