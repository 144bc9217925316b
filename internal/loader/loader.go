package loader

import (
	"fmt"
	"unicode/utf8"

	"github.com/sirupsen/logrus"

	"github.com/nialov/kapalo-go/internal/catalog"
	"github.com/nialov/kapalo-go/internal/connector"
	"github.com/nialov/kapalo-go/pkg/models"
)

// LoadError indicates that a source database or one of its tables could
// not be read. It aborts the run.
type LoadError struct {
	Path  string
	Table string
	Err   error
}

func (e *LoadError) Error() string {
	if e.Table != "" {
		return fmt.Sprintf("loading table %s from %s: %v", e.Table, e.Path, e.Err)
	}
	return fmt.Sprintf("loading %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// RecordLoader reads catalog tables from a kapalo database
type RecordLoader struct {
	DB      *connector.DatabaseConnector
	Catalog *catalog.Catalog
	Logger  *logrus.Logger
}

// NewRecordLoader creates a new record loader
func NewRecordLoader(db *connector.DatabaseConnector, cat *catalog.Catalog, logger *logrus.Logger) *RecordLoader {
	return &RecordLoader{
		DB:      db,
		Catalog: cat,
		Logger:  logger,
	}
}

// Load reads all rows of one table. The returned collection mirrors the
// source schema's columns for the table; rows keep unknown columns so the
// validator can see exactly what the source holds.
func (rl *RecordLoader) Load(table string) (models.RecordCollection, error) {
	def, ok := rl.Catalog.Lookup(table)
	if !ok {
		return models.RecordCollection{}, &LoadError{
			Path:  rl.DB.Path,
			Table: table,
			Err:   fmt.Errorf("table is not in the schema catalog"),
		}
	}

	exists, err := rl.DB.TableExists(table)
	if err != nil {
		return models.RecordCollection{}, &LoadError{Path: rl.DB.Path, Table: table, Err: err}
	}
	if !exists {
		return models.RecordCollection{}, &LoadError{
			Path:  rl.DB.Path,
			Table: table,
			Err:   fmt.Errorf("table does not exist in the source database"),
		}
	}

	results, err := rl.DB.ExecuteQuery(fmt.Sprintf("SELECT * FROM %s", table))
	if err != nil {
		return models.RecordCollection{}, &LoadError{Path: rl.DB.Path, Table: table, Err: err}
	}

	rows := make([]models.Record, 0, len(results))
	for _, result := range results {
		rows = append(rows, normalizeRow(result, def))
	}

	rl.Logger.Infof("Loaded %d rows from table %s", len(rows), table)

	return models.RecordCollection{
		Table:   table,
		Columns: def.ColumnNames(),
		Rows:    rows,
	}, nil
}

// LoadAll reads every catalog table in dependency order
func (rl *RecordLoader) LoadAll() ([]models.RecordCollection, error) {
	orderedTables := rl.Catalog.LoadOrder()

	collections := make([]models.RecordCollection, 0, len(orderedTables))
	for _, table := range orderedTables {
		collection, err := rl.Load(table)
		if err != nil {
			return nil, err
		}
		collections = append(collections, collection)
	}
	return collections, nil
}

// normalizeRow resolves driver values against the catalog definition.
// The sqlite driver returns both TEXT and BLOB columns as []byte; TEXT
// columns become strings here while geometry and blob columns stay raw.
// Values that do not match the declared storage class are passed through
// untouched for the validator to report.
func normalizeRow(result map[string]interface{}, def models.TableDef) models.Record {
	record := make(models.Record, len(result))
	for name, value := range result {
		col, known := def.Column(name)
		if !known {
			record[name] = value
			continue
		}

		if value == nil {
			record[name] = nil
			continue
		}

		switch col.Type {
		case models.TypeText:
			if b, ok := value.([]byte); ok && utf8.Valid(b) {
				record[name] = string(b)
				continue
			}
		case models.TypeGeometry, models.TypeBlob:
			// Keep raw bytes
		}
		record[name] = value
	}
	return record
}

// LoadDatabases loads every catalog table from each database file and
// concatenates the per-table collections. Observation ids must be unique
// across all databases.
func LoadDatabases(paths []string, cat *catalog.Catalog, logger *logrus.Logger) ([]models.RecordCollection, error) {
	if len(paths) == 0 {
		return nil, &LoadError{Err: fmt.Errorf("no database paths given")}
	}

	var merged []models.RecordCollection
	for _, path := range paths {
		db := connector.NewDatabaseConnector(path, logger)
		if err := db.Connect(); err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}

		loader := NewRecordLoader(db, cat, logger)
		collections, err := loader.LoadAll()
		db.Disconnect()
		if err != nil {
			return nil, err
		}

		if merged == nil {
			merged = collections
			continue
		}
		merged, err = mergeCollections(merged, collections)
		if err != nil {
			return nil, &LoadError{Path: path, Err: err}
		}
	}

	if err := checkUniqueObservationIDs(merged); err != nil {
		return nil, err
	}

	return merged, nil
}

// mergeCollections concatenates the rows of collections sharing a table name
func mergeCollections(merged, collections []models.RecordCollection) ([]models.RecordCollection, error) {
	byTable := make(map[string]int, len(merged))
	for i, collection := range merged {
		byTable[collection.Table] = i
	}

	for _, collection := range collections {
		idx, ok := byTable[collection.Table]
		if !ok {
			return nil, fmt.Errorf("table %s is missing from earlier databases", collection.Table)
		}
		merged[idx].Rows = append(merged[idx].Rows, collection.Rows...)
	}
	return merged, nil
}

// checkUniqueObservationIDs rejects merged data holding the same OBSID twice
func checkUniqueObservationIDs(collections []models.RecordCollection) error {
	seen := make(map[string]bool)
	var duplicates []string

	for _, collection := range collections {
		if collection.Table != catalog.TableObservations {
			continue
		}
		for _, row := range collection.Rows {
			obsID, ok := row[catalog.ObsID].(string)
			if !ok {
				continue
			}
			if seen[obsID] {
				duplicates = append(duplicates, obsID)
			}
			seen[obsID] = true
		}
	}

	if len(duplicates) != 0 {
		return &LoadError{Err: fmt.Errorf("expected all unique observation ids, non-unique: %v", duplicates)}
	}
	return nil
}
