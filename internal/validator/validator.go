package validator

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/nialov/kapalo-go/internal/catalog"
	"github.com/nialov/kapalo-go/pkg/models"
	"github.com/sirupsen/logrus"
)

// ViolationKind classifies a schema violation
type ViolationKind int

const (
	// KindMissingColumn marks a catalog column absent from the source table
	KindMissingColumn ViolationKind = iota
	// KindTypeMismatch marks a value whose storage class does not match the catalog
	KindTypeMismatch
	// KindNullViolation marks a NULL in a column the catalog requires
	KindNullViolation
)

// String returns the violation kind name
func (vk ViolationKind) String() string {
	switch vk {
	case KindMissingColumn:
		return "missing column"
	case KindTypeMismatch:
		return "type mismatch"
	case KindNullViolation:
		return "null violation"
	default:
		return "unknown"
	}
}

// Violation describes one schema violation in loaded records. Row is the
// zero-based row index within the table, or -1 for table-level violations.
type Violation struct {
	Table   string
	Row     int
	Column  string
	Kind    ViolationKind
	Message string
}

// Error formats the violation for reporting
func (v Violation) Error() string {
	if v.Row < 0 {
		return fmt.Sprintf("table %s: column %s: %s", v.Table, v.Column, v.Message)
	}
	return fmt.Sprintf("table %s: row %d: column %s: %s", v.Table, v.Row, v.Column, v.Message)
}

// Report collects all violations found in one validation run
type Report struct {
	Violations []Violation
}

// Add appends violations to the report
func (r *Report) Add(violations ...Violation) {
	r.Violations = append(r.Violations, violations...)
}

// HasViolations reports whether any violation was found
func (r *Report) HasViolations() bool {
	return len(r.Violations) > 0
}

// ByTable groups the violations by table name
func (r *Report) ByTable() map[string][]Violation {
	grouped := make(map[string][]Violation)
	for _, violation := range r.Violations {
		grouped[violation.Table] = append(grouped[violation.Table], violation)
	}
	return grouped
}

// Err returns all violations as one error, or nil for a clean report
func (r *Report) Err() error {
	var result *multierror.Error
	for _, violation := range r.Violations {
		result = multierror.Append(result, violation)
	}
	return result.ErrorOrNil()
}

// Validator checks loaded records against the schema catalog
type Validator struct {
	Catalog *catalog.Catalog
	Logger  *logrus.Logger
}

// NewValidator creates a new validator
func NewValidator(cat *catalog.Catalog, logger *logrus.Logger) *Validator {
	return &Validator{
		Catalog: cat,
		Logger:  logger,
	}
}

// Validate checks every collection and returns the combined report.
// Validation never mutates records and never stops at the first finding.
func (v *Validator) Validate(collections []models.RecordCollection) *Report {
	report := &Report{}
	for _, collection := range collections {
		violations := v.ValidateCollection(collection)
		if len(violations) > 0 {
			v.Logger.Warningf("Found %d violations in table %s", len(violations), collection.Table)
		}
		report.Add(violations...)
	}

	v.Logger.Infof("Validated %d tables, %d violations", len(collections), len(report.Violations))
	return report
}

// ValidateCollection checks one table's records against its catalog definition.
// Columns the catalog does not declare are allowed and ignored.
func (v *Validator) ValidateCollection(collection models.RecordCollection) []Violation {
	def, ok := v.Catalog.Lookup(collection.Table)
	if !ok {
		return []Violation{{
			Table:   collection.Table,
			Row:     -1,
			Kind:    KindMissingColumn,
			Message: "table is not in the schema catalog",
		}}
	}

	var violations []Violation

	// Missing columns are a table-level finding. Every row of a SELECT *
	// result carries the same keys, so the first row shows the source columns.
	if len(collection.Rows) > 0 {
		first := collection.Rows[0]
		for _, column := range def.Columns {
			if _, present := first[column.Name]; !present {
				violations = append(violations, Violation{
					Table:   collection.Table,
					Row:     -1,
					Column:  column.Name,
					Kind:    KindMissingColumn,
					Message: "column is missing from the source table",
				})
			}
		}
	}

	for i, row := range collection.Rows {
		for _, column := range def.Columns {
			value, present := row[column.Name]
			if !present {
				continue
			}

			if value == nil {
				if !column.Nullable {
					violations = append(violations, Violation{
						Table:   collection.Table,
						Row:     i,
						Column:  column.Name,
						Kind:    KindNullViolation,
						Message: fmt.Sprintf("column %s must not hold NULL", column.Name),
					})
				}
				continue
			}

			if !acceptableValue(column, value) {
				violations = append(violations, Violation{
					Table:   collection.Table,
					Row:     i,
					Column:  column.Name,
					Kind:    KindTypeMismatch,
					Message: fmt.Sprintf("expected %s, got %s", column.Type, storageName(value)),
				})
			}
		}
	}

	return violations
}

// acceptableValue reports whether a loaded value matches the declared column
// type. SQLite stores integers in REAL columns, so integers are accepted
// there; everything else must match exactly.
func acceptableValue(column models.Column, value interface{}) bool {
	switch column.Type {
	case models.TypeInteger:
		_, ok := value.(int64)
		return ok
	case models.TypeReal:
		switch value.(type) {
		case float64, int64:
			return true
		}
		return false
	case models.TypeText:
		_, ok := value.(string)
		return ok
	case models.TypeBlob, models.TypeGeometry:
		_, ok := value.([]byte)
		return ok
	default:
		return false
	}
}

// storageName names a loaded value's storage class for violation messages
func storageName(value interface{}) string {
	switch value.(type) {
	case int64:
		return "INTEGER"
	case float64:
		return "REAL"
	case string:
		return "TEXT"
	case []byte:
		return "BLOB"
	default:
		return fmt.Sprintf("%T", value)
	}
}
