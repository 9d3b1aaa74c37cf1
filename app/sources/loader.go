package sources

import (
	"context"
	"errors"
	"strings"

	"github.com/amirphl/pn-backup/models"
	"github.com/amirphl/pn-backup/utils"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Header aliases accepted across sheet generations
var (
	tenantIDColumns = []string{"account_sid", "tenant_id", "account_id", "tenant"}
	pilotColumns    = []string{"allowed_operators", "allowed_pilots", "pilots"}
	emailColumns    = []string{"email", "contact_email", "email_address"}
	nameColumns     = []string{"tenant_name", "account_name", "name"}
)

var enabledStatuses = map[string]struct{}{
	"yes":     {},
	"active":  {},
	"enabled": {},
}

// Loader turns raw tables into the run's inputs
type Loader struct {
	source    Source
	validator *validator.Validate
	logger    *zap.Logger
}

func NewLoader(source Source, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{
		source:    source,
		validator: validator.New(),
		logger:    logger,
	}
}

func (l *Loader) read(ctx context.Context, category Category) ([]Row, error) {
	rows, err := l.source.ReadTable(ctx, category)
	if errors.Is(err, ErrCategoryNotConfigured) {
		l.logger.Warn("Input table not configured, using empty table",
			zap.String("category", string(category)), zap.Error(err))
		return nil, nil
	}
	return rows, err
}

// LoadAccounts returns enabled tenants in table order.
// Rows without a tenant id or with a malformed e-mail are skipped with a warning.
func (l *Loader) LoadAccounts(ctx context.Context) ([]models.Tenant, error) {
	rows, err := l.read(ctx, CategoryAccounts)
	if err != nil {
		return nil, err
	}

	if len(rows) > 0 && !rows[0].Has("status") {
		l.logger.Warn("Accounts table has no status column, no tenant is enabled")
		return []models.Tenant{}, nil
	}

	tenants := make([]models.Tenant, 0, len(rows))
	seen := make(map[string]struct{}, len(rows))
	for i, row := range rows {
		status := strings.ToLower(strings.TrimSpace(row["status"]))
		if _, ok := enabledStatuses[status]; !ok {
			continue
		}

		tenant := models.Tenant{
			ID:    row.First(tenantIDColumns...),
			Name:  row.First(nameColumns...),
			Email: row.First(emailColumns...),
		}
		if raw := row.First(pilotColumns...); raw != "" {
			tenant.AllowedPilots = append([]string{}, utils.SplitList(raw)...)
		}

		if err := l.validator.Struct(tenant); err != nil {
			l.logger.Warn("Skipping invalid account row",
				zap.Int("row", i+2), zap.String("tenant_id", tenant.ID), zap.Error(err))
			continue
		}
		if _, dup := seen[tenant.ID]; dup {
			l.logger.Warn("Skipping duplicate account row", zap.Int("row", i+2), zap.String("tenant_id", tenant.ID))
			continue
		}
		seen[tenant.ID] = struct{}{}
		tenants = append(tenants, tenant)
	}

	return tenants, nil
}

// LoadTenantExceptions maps tenant id to its exclusive pilot list.
// A listed tenant with no pilots maps to an empty, non-nil list.
func (l *Loader) LoadTenantExceptions(ctx context.Context) (map[string][]string, error) {
	rows, err := l.read(ctx, CategoryTenantExceptions)
	if err != nil {
		return nil, err
	}

	exceptions := make(map[string][]string, len(rows))
	for _, row := range rows {
		tenantID := row.First(tenantIDColumns...)
		if tenantID == "" {
			continue
		}
		exceptions[tenantID] = append([]string{}, utils.SplitList(row.First(pilotColumns...))...)
	}
	return exceptions, nil
}

// LoadRegionPilots maps region to its default pilot list
func (l *Loader) LoadRegionPilots(ctx context.Context) (map[string][]string, error) {
	rows, err := l.read(ctx, CategoryRegionPreferences)
	if err != nil {
		return nil, err
	}

	prefs := make(map[string][]string, len(rows))
	for _, row := range rows {
		region := row.First("region")
		if region == "" {
			continue
		}
		prefs[region] = append([]string{}, utils.SplitList(row.First(pilotColumns...))...)
	}
	return prefs, nil
}
