package repository

import (
	"context"
	"fmt"

	"github.com/amirphl/pn-backup/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AssignmentRepositoryImpl implements AssignmentRepository interface
type AssignmentRepositoryImpl struct {
	*BaseRepository[models.Assignment]
}

// NewAssignmentRepository creates a new assignment repository
func NewAssignmentRepository(db *gorm.DB, schema *Schema) AssignmentRepository {
	return &AssignmentRepositoryImpl{
		BaseRepository: NewBaseRepository[models.Assignment](db, schema),
	}
}

// Save inserts one assignment row; optional columns are written only when the schema enables them
func (r *AssignmentRepositoryImpl) Save(ctx context.Context, assignment *models.Assignment) (err error) {
	t := r.Schema.Assignments

	values := map[string]any{
		t.Col("vn_id"):       assignment.VNID,
		t.Col("pn_id"):       assignment.PNID,
		t.Col("pilot"):       assignment.PilotID,
		t.Col("tenant_id"):   assignment.TenantID,
		t.Col("assigned_at"): assignment.AssignedAt.UTC(),
	}
	if r.Schema.WritesAssignmentColumn(ColumnRunID) && assignment.RunID != nil {
		values[t.Col(ColumnRunID)] = *assignment.RunID
	}
	if r.Schema.WritesAssignmentColumn(ColumnAttachResponse) && len(assignment.AttachResponse) > 0 {
		values[t.Col(ColumnAttachResponse)] = assignment.AttachResponse
	}

	db, shouldCommit, err := r.getDBForWrite(ctx)
	if err != nil {
		return err
	}

	if shouldCommit {
		defer func() {
			if err != nil {
				db.Rollback()
			} else {
				err = db.Commit().Error
			}
		}()
	}

	if err = db.Table(t.Name).Create(values).Error; err != nil {
		return fmt.Errorf("failed to save assignment of %s to %s: %w", assignment.PNID, assignment.VNID, err)
	}

	return nil
}

// ListByTenant returns the tenant's assignments in insertion order
func (r *AssignmentRepositoryImpl) ListByTenant(ctx context.Context, tenantID string) ([]*models.Assignment, error) {
	t := r.Schema.Assignments

	columns := []string{"vn_id", "pn_id", "pilot", "tenant_id", "assigned_at"}
	if r.Schema.WritesAssignmentColumn(ColumnRunID) {
		columns = append(columns, ColumnRunID)
	}
	if r.Schema.WritesAssignmentColumn(ColumnAttachResponse) {
		columns = append(columns, ColumnAttachResponse)
	}

	var assignments []*models.Assignment
	err := r.getDB(ctx).
		Table(t.Name).
		Clauses(selectColumns(t, columns...)).
		Where(clause.Eq{Column: column(t, "tenant_id"), Value: tenantID}).
		Order(clause.OrderByColumn{Column: column(t, "assigned_at")}).
		Order(clause.OrderByColumn{Column: column(t, "pn_id")}).
		Find(&assignments).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments for tenant %s: %w", tenantID, err)
	}

	return assignments, nil
}
