package repository

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"

	"github.com/amirphl/pn-backup/models"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Logical table names used by schema files and table overrides
const (
	TablePurchasedNumbers = "purchased_numbers"
	TablePilotStatus      = "pilot_status"
	TableAvailablePool    = "available_pool"
	TablePilotNumberMap   = "pilot_number_map"
	TableAssignments      = "assignments"
)

// Optional assignment columns, written only when the schema lists them
const (
	ColumnRunID          = "run_id"
	ColumnAttachResponse = "attach_response"
)

// Schema versions shipped with the binary
const (
	SchemaV1 = "v1"
	SchemaV2 = "v2"
)

var (
	ErrUnknownSchemaVersion = errors.New("unknown schema version")
	ErrInvalidSchema        = errors.New("invalid schema")
)

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

var schemaValidator = newSchemaValidator()

func newSchemaValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("sqlident", func(fl validator.FieldLevel) bool {
		return identPattern.MatchString(fl.Field().String())
	})
	return v
}

// IsIdentifier reports whether value is a plain or schema-qualified SQL identifier
func IsIdentifier(value string) bool {
	return identPattern.MatchString(value)
}

// TableShape maps a logical table onto its physical name and columns.
// Column keys are the model column names; missing keys map to themselves.
type TableShape struct {
	Name    string            `yaml:"name" validate:"required,sqlident"`
	Columns map[string]string `yaml:"columns" validate:"dive,keys,required,endkeys,required,sqlident"`
}

// Col returns the physical column for a logical column
func (t TableShape) Col(logical string) string {
	if c, ok := t.Columns[logical]; ok && c != "" {
		return c
	}
	return logical
}

func (t TableShape) clone() TableShape {
	out := TableShape{Name: t.Name, Columns: make(map[string]string, len(t.Columns))}
	for k, v := range t.Columns {
		out.Columns[k] = v
	}
	return out
}

// Schema is the validated query shape used by the pool store repositories
type Schema struct {
	Version string `yaml:"version" validate:"required"`

	PurchasedNumbers TableShape `yaml:"purchased_numbers"`
	PilotStatus      TableShape `yaml:"pilot_status"`
	AvailablePool    TableShape `yaml:"available_pool"`
	PilotNumberMap   TableShape `yaml:"pilot_number_map"`
	Assignments      TableShape `yaml:"assignments"`

	// ExcludeMappedNumbers skips pool numbers already present in the pilot number map
	ExcludeMappedNumbers bool `yaml:"exclude_mapped_numbers"`
	// RequireActivePilot restricts candidates to pilots in an active state
	RequireActivePilot bool `yaml:"require_active_pilot"`

	AssignmentOptionalColumns []string `yaml:"assignment_optional_columns" validate:"dive,oneof=run_id attach_response"`

	StateAvailable    string   `yaml:"state_available" validate:"required,max=32"`
	StateReserved     string   `yaml:"state_reserved" validate:"required,max=32,nefield=StateAvailable"`
	ActivePilotStates []string `yaml:"active_pilot_states" validate:"min=1,dive,required"`
}

// WritesAssignmentColumn reports whether an optional assignment column is enabled
func (s *Schema) WritesAssignmentColumn(column string) bool {
	for _, c := range s.AssignmentOptionalColumns {
		if c == column {
			return true
		}
	}
	return false
}

// ActiveStates returns the active pilot states trimmed and lower-cased, matching
// how stored pilot states are compared
func (s *Schema) ActiveStates() []string {
	return normalizeStates(s.ActivePilotStates)
}

func normalizeStates(states []string) []string {
	out := make([]string, 0, len(states))
	for _, st := range states {
		if st = strings.ToLower(strings.TrimSpace(st)); st != "" {
			out = append(out, st)
		}
	}
	return out
}

func (s *Schema) table(logical string) *TableShape {
	switch logical {
	case TablePurchasedNumbers:
		return &s.PurchasedNumbers
	case TablePilotStatus:
		return &s.PilotStatus
	case TableAvailablePool:
		return &s.AvailablePool
	case TablePilotNumberMap:
		return &s.PilotNumberMap
	case TableAssignments:
		return &s.Assignments
	}
	return nil
}

func (s *Schema) clone() *Schema {
	out := *s
	out.PurchasedNumbers = s.PurchasedNumbers.clone()
	out.PilotStatus = s.PilotStatus.clone()
	out.AvailablePool = s.AvailablePool.clone()
	out.PilotNumberMap = s.PilotNumberMap.clone()
	out.Assignments = s.Assignments.clone()
	out.AssignmentOptionalColumns = append([]string(nil), s.AssignmentOptionalColumns...)
	out.ActivePilotStates = append([]string(nil), s.ActivePilotStates...)
	return &out
}

func defaultActivePilotStates() []string {
	return []string{"up", "active", "online"}
}

// presetV1 is the shape of the original store: numeric ids and a status column
func presetV1() *Schema {
	return &Schema{
		Version:           SchemaV1,
		PurchasedNumbers:  TableShape{Name: models.VirtualNumber{}.TableName()},
		PilotStatus:       TableShape{Name: models.Pilot{}.TableName()},
		AvailablePool:     TableShape{Name: models.PhysicalNumber{}.TableName()},
		PilotNumberMap:    TableShape{Name: models.PilotNumberMapping{}.TableName()},
		Assignments:       TableShape{Name: models.Assignment{}.TableName()},
		StateAvailable:    models.PhysicalNumberStateAvailable,
		StateReserved:     models.PhysicalNumberStateReserved,
		ActivePilotStates: defaultActivePilotStates(),
	}
}

// presetV2 is the richer shape keyed by sid with a state column and both extra filters
func presetV2() *Schema {
	return &Schema{
		Version: SchemaV2,
		PurchasedNumbers: TableShape{
			Name: models.VirtualNumber{}.TableName(),
			Columns: map[string]string{
				"id":           "sid",
				"tenant_id":    "AccountSid",
				"vn_number":    "PhoneNumber",
				"region":       "Region",
				"date_created": "DateCreated",
			},
		},
		PilotStatus: TableShape{
			Name:    models.Pilot{}.TableName(),
			Columns: map[string]string{"status": "state"},
		},
		AvailablePool: TableShape{
			Name: models.PhysicalNumber{}.TableName(),
			Columns: map[string]string{
				"id":     "sid",
				"pn":     "PhoneNumber",
				"region": "Region",
				"status": "state",
			},
		},
		PilotNumberMap: TableShape{
			Name:    models.PilotNumberMapping{}.TableName(),
			Columns: map[string]string{"phone_number": "PhoneNumber"},
		},
		Assignments:               TableShape{Name: models.Assignment{}.TableName()},
		ExcludeMappedNumbers:      true,
		RequireActivePilot:        true,
		AssignmentOptionalColumns: []string{ColumnRunID, ColumnAttachResponse},
		StateAvailable:            models.PhysicalNumberStateAvailable,
		StateReserved:             models.PhysicalNumberStateReserved,
		ActivePilotStates:         defaultActivePilotStates(),
	}
}

// PresetSchema returns a fresh copy of a built-in schema version
func PresetSchema(version string) (*Schema, error) {
	switch strings.ToLower(strings.TrimSpace(version)) {
	case SchemaV1, "":
		return presetV1(), nil
	case SchemaV2:
		return presetV2(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownSchemaVersion, version)
}

// LoadSchema resolves the query shape: preset, then the optional YAML file, then table overrides.
// The result is validated before it is returned.
func LoadSchema(version, file string, tableOverrides map[string]string) (*Schema, error) {
	base, err := PresetSchema(version)
	if err != nil {
		return nil, err
	}

	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read schema file %s: %w", file, err)
		}
		if base, err = ParseSchema(base, data); err != nil {
			return nil, fmt.Errorf("schema file %s: %w", file, err)
		}
	}

	if err := base.ApplyTableOverrides(tableOverrides); err != nil {
		return nil, err
	}

	if err := base.Validate(); err != nil {
		return nil, err
	}

	return base, nil
}

// ParseSchema decodes YAML on top of a copy of base. A file naming a different
// version starts from that version's preset instead.
func ParseSchema(base *Schema, data []byte) (*Schema, error) {
	var header struct {
		Version string `yaml:"version"`
	}
	if err := yaml.Unmarshal(data, &header); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}

	out := base.clone()
	if header.Version != "" && !strings.EqualFold(header.Version, base.Version) {
		preset, err := PresetSchema(header.Version)
		if err != nil {
			return nil, err
		}
		out = preset
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	out.ActivePilotStates = normalizeStates(out.ActivePilotStates)
	return out, nil
}

// ApplyTableOverrides replaces physical table names keyed by logical table name
func (s *Schema) ApplyTableOverrides(overrides map[string]string) error {
	for logical, name := range overrides {
		t := s.table(logical)
		if t == nil {
			return fmt.Errorf("%w: unknown logical table %q", ErrInvalidSchema, logical)
		}
		t.Name = strings.TrimSpace(name)
	}
	return nil
}

// Validate checks every identifier and state value of the schema
func (s *Schema) Validate() error {
	if err := schemaValidator.Struct(s); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %s (%v)", fe.Namespace(), fe.Tag(), fe.Value()))
			}
			return fmt.Errorf("%w: %s", ErrInvalidSchema, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidSchema, err)
	}
	return nil
}
