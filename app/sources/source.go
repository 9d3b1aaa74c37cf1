// Package sources reads the operator-maintained tables that drive a run:
// enabled accounts, per-tenant pilot exceptions and per-region pilot preferences.
package sources

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amirphl/pn-backup/config"
	"github.com/amirphl/pn-backup/utils"
)

// Category names one input table
type Category string

const (
	CategoryAccounts          Category = "accounts"
	CategoryTenantExceptions  Category = "tenant_exceptions"
	CategoryRegionPreferences Category = "region_preferences"
)

// ErrCategoryNotConfigured means no file or sheet is mapped to the category
var ErrCategoryNotConfigured = errors.New("no source configured for category")

// Row is one table row keyed by normalized header
type Row map[string]string

// Source reads a whole table for a category
type Source interface {
	ReadTable(ctx context.Context, category Category) ([]Row, error)
}

// NewSourceFromConfig builds the source selected by SOURCE_KIND
func NewSourceFromConfig(cfg config.SourcesConfig) (Source, error) {
	switch cfg.Kind {
	case config.SourceKindCSV:
		return NewCSVSource(map[Category]string{
			CategoryAccounts:          cfg.CSVAccounts,
			CategoryTenantExceptions:  cfg.CSVTenantExceptions,
			CategoryRegionPreferences: cfg.CSVRegionPreferences,
		}), nil
	case config.SourceKindXLSX:
		return NewWorkbookSource(cfg.Workbook, map[Category]string{
			CategoryAccounts:          cfg.SheetAccounts,
			CategoryTenantExceptions:  cfg.SheetTenantExceptions,
			CategoryRegionPreferences: cfg.SheetRegionPreferences,
		}), nil
	}
	return nil, fmt.Errorf("unsupported source kind %q", cfg.Kind)
}

// rowsToTable turns a header row plus data rows into keyed rows.
// Headers are normalized; blank rows and unnamed columns are dropped.
func rowsToTable(records [][]string) []Row {
	if len(records) == 0 {
		return nil
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		headers[i] = utils.NormalizeKey(h)
	}

	table := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(headers))
		blank := true
		for i, h := range headers {
			if h == "" {
				continue
			}
			var value string
			if i < len(record) {
				value = strings.TrimSpace(record[i])
			}
			if value != "" {
				blank = false
			}
			row[h] = value
		}
		if !blank {
			table = append(table, row)
		}
	}
	return table
}

// First returns the first non-empty value among keys
func (r Row) First(keys ...string) string {
	for _, k := range keys {
		if v := strings.TrimSpace(r[k]); v != "" {
			return v
		}
	}
	return ""
}

// Has reports whether any of keys is a column of the row
func (r Row) Has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := r[k]; ok {
			return true
		}
	}
	return false
}
