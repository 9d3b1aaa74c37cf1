package sources

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// CSVSource reads one CSV file per category
type CSVSource struct {
	paths map[Category]string
}

func NewCSVSource(paths map[Category]string) *CSVSource {
	return &CSVSource{paths: paths}
}

func (s *CSVSource) ReadTable(ctx context.Context, category Category) ([]Row, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	path := strings.TrimSpace(s.paths[category])
	if path == "" {
		return nil, fmt.Errorf("%w: %s", ErrCategoryNotConfigured, category)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s table %s: %w", category, path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s table %s: %w", category, path, err)
	}

	return rowsToTable(records), nil
}
