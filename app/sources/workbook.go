package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// WorkbookSource reads one sheet per category from an .xlsx workbook
// exported from the operators' shared spreadsheet
type WorkbookSource struct {
	path   string
	sheets map[Category]string
}

func NewWorkbookSource(path string, sheets map[Category]string) *WorkbookSource {
	return &WorkbookSource{path: strings.TrimSpace(path), sheets: sheets}
}

func (s *WorkbookSource) ReadTable(ctx context.Context, category Category) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	sheet := strings.TrimSpace(s.sheets[category])
	if s.path == "" || sheet == "" {
		return nil, fmt.Errorf("%w: %s", ErrCategoryNotConfigured, category)
	}

	f, err := excelize.OpenFile(s.path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", s.path, err)
	}
	defer f.Close()

	idx, err := f.GetSheetIndex(sheet)
	if err != nil {
		return nil, fmt.Errorf("invalid sheet name %q: %w", sheet, err)
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s (sheet %q not in %s)", ErrCategoryNotConfigured, category, sheet, s.path)
	}

	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}

	return rowsToTable(records), nil
}
