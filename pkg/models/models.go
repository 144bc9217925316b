package models

// ColumnType is the SQLite storage class expected for a column
type ColumnType int

const (
	TypeText ColumnType = iota
	TypeInteger
	TypeReal
	TypeBlob
	TypeGeometry
)

// String returns the schema name of the storage class
func (t ColumnType) String() string {
	switch t {
	case TypeText:
		return "TEXT"
	case TypeInteger:
		return "INTEGER"
	case TypeReal:
		return "REAL"
	case TypeBlob:
		return "BLOB"
	case TypeGeometry:
		return "GEOMETRY"
	default:
		return "UNKNOWN"
	}
}

// Column represents a database column with its expected type and nullability
type Column struct {
	Name     string
	Type     ColumnType
	Nullable bool
}

// LinkRule represents a child table's reference to its parent table
type LinkRule struct {
	Column       string
	ParentTable  string
	ParentColumn string
}

// TableCategory represents where a table sits in the observation hierarchy
type TableCategory int

const (
	Root TableCategory = iota
	ObservationChild
	MeasurementChild
	RockChild
)

// TableDef represents a table in the schema catalog
type TableDef struct {
	Name     string
	Category TableCategory
	Columns  []Column
	Link     *LinkRule
}

// Column returns the definition of the named column
func (t TableDef) Column(name string) (Column, bool) {
	for _, c := range t.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the column names in catalog order
func (t TableDef) ColumnNames() []string {
	names := make([]string, 0, len(t.Columns))
	for _, c := range t.Columns {
		names = append(names, c.Name)
	}
	return names
}

// Record represents one row as a mapping from column name to value
type Record map[string]interface{}

// RecordCollection represents all rows loaded from one table
type RecordCollection struct {
	Table   string
	Columns []string
	Rows    []Record
}
