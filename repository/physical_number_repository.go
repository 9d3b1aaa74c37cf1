package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/amirphl/pn-backup/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var physicalNumberColumns = []string{"id", "pn", "pilot", "region", "status", "reserved_by", "reserved_at"}

// PhysicalNumberRepositoryImpl implements PhysicalNumberRepository interface
type PhysicalNumberRepositoryImpl struct {
	*BaseRepository[models.PhysicalNumber]
}

// NewPhysicalNumberRepository creates a new physical number repository
func NewPhysicalNumberRepository(db *gorm.DB, schema *Schema) PhysicalNumberRepository {
	return &PhysicalNumberRepositoryImpl{
		BaseRepository: NewBaseRepository[models.PhysicalNumber](db, schema),
	}
}

// ListCandidates returns up to limit available numbers behind a pilot in a region, ordered by id.
// Listing claims nothing; callers must still Reserve each candidate.
func (r *PhysicalNumberRepositoryImpl) ListCandidates(ctx context.Context, pilotID, region string, limit int) ([]*models.PhysicalNumber, error) {
	if limit <= 0 {
		return nil, nil
	}

	db := r.getDB(ctx)
	t := r.Schema.AvailablePool

	query := db.
		Table(t.Name).
		Clauses(selectColumns(t, physicalNumberColumns...)).
		Where(clause.Eq{Column: column(t, "pilot"), Value: pilotID}).
		Where(clause.Eq{Column: column(t, "region"), Value: region}).
		Where(clause.Eq{Column: column(t, "status"), Value: r.Schema.StateAvailable})

	if r.Schema.ExcludeMappedNumbers {
		m := r.Schema.PilotNumberMap
		mapped := db.Table(m.Name).Clauses(clause.Select{Columns: []clause.Column{column(m, "phone_number")}})
		query = query.Where("? NOT IN (?)", column(t, "pn"), mapped)
	}

	if r.Schema.RequireActivePilot {
		p := r.Schema.PilotStatus
		active := db.
			Table(p.Name).
			Clauses(clause.Select{Columns: []clause.Column{column(p, "pilot")}}).
			Where("LOWER(TRIM(?)) IN ?", column(p, "status"), r.Schema.ActiveStates())
		query = query.Where("? IN (?)", column(t, "pilot"), active)
	}

	var numbers []*models.PhysicalNumber
	err := query.
		Order(clause.OrderByColumn{Column: column(t, "id")}).
		Limit(limit).
		Find(&numbers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list candidates for pilot %s in region %s: %w", pilotID, region, err)
	}

	return numbers, nil
}

// Reserve claims a number with a single conditional update.
// It returns true only when exactly one row moved from available to reserved.
func (r *PhysicalNumberRepositoryImpl) Reserve(ctx context.Context, pnID, reservedBy string, at time.Time) (bool, error) {
	t := r.Schema.AvailablePool

	result := r.getDB(ctx).
		Table(t.Name).
		Where(clause.Eq{Column: column(t, "id"), Value: pnID}).
		Where(clause.Eq{Column: column(t, "status"), Value: r.Schema.StateAvailable}).
		Updates(map[string]any{
			t.Col("status"):      r.Schema.StateReserved,
			t.Col("reserved_by"): reservedBy,
			t.Col("reserved_at"): at.UTC(),
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to reserve number %s: %w", pnID, result.Error)
	}

	return result.RowsAffected == 1, nil
}

// ListOrphanedReservations returns numbers reserved by reservedBy before olderThan
// that never got an assignment row
func (r *PhysicalNumberRepositoryImpl) ListOrphanedReservations(ctx context.Context, reservedBy string, olderThan time.Time) ([]*models.PhysicalNumber, error) {
	db := r.getDB(ctx)
	t := r.Schema.AvailablePool
	a := r.Schema.Assignments

	assigned := db.Table(a.Name).Clauses(clause.Select{Columns: []clause.Column{column(a, "pn_id")}})

	var numbers []*models.PhysicalNumber
	err := db.
		Table(t.Name).
		Clauses(selectColumns(t, physicalNumberColumns...)).
		Where(clause.Eq{Column: column(t, "status"), Value: r.Schema.StateReserved}).
		Where(clause.Eq{Column: column(t, "reserved_by"), Value: reservedBy}).
		Where(clause.Lt{Column: column(t, "reserved_at"), Value: olderThan.UTC()}).
		Where("? NOT IN (?)", column(t, "id"), assigned).
		Order(clause.OrderByColumn{Column: column(t, "reserved_at")}).
		Order(clause.OrderByColumn{Column: column(t, "id")}).
		Find(&numbers).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list orphaned reservations for %s: %w", reservedBy, err)
	}

	return numbers, nil
}
