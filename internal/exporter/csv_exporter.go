package exporter

import (
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/hashicorp/go-multierror"
	"github.com/nialov/kapalo-go/internal/catalog"
	"github.com/nialov/kapalo-go/pkg/models"
	"github.com/sirupsen/logrus"
)

// WriteError represents a failure while writing an export artifact
type WriteError struct {
	Path string
	Err  error
}

// Error returns a description of the write failure
func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s: %v", e.Path, e.Err)
}

// Unwrap returns the underlying error
func (e *WriteError) Unwrap() error {
	return e.Err
}

// CSVExporter writes record collections as CSV files. Columns follow the
// schema catalog order so re-running an export produces identical bytes.
type CSVExporter struct {
	Catalog *catalog.Catalog
	Logger  *logrus.Logger
}

// NewCSVExporter creates a new CSV exporter
func NewCSVExporter(cat *catalog.Catalog, logger *logrus.Logger) *CSVExporter {
	return &CSVExporter{
		Catalog: cat,
		Logger:  logger,
	}
}

// Export writes one record collection to the given path
func (ce *CSVExporter) Export(collection models.RecordCollection, path string) error {
	columns := collection.Columns
	if def, found := ce.Catalog.Lookup(collection.Table); found {
		columns = def.ColumnNames()
	}
	return writeCSV(columns, collection.Rows, path)
}

// ExportAll writes every collection into the directory, one CSV per table
func (ce *CSVExporter) ExportAll(collections []models.RecordCollection, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &WriteError{Path: dir, Err: err}
	}

	var result error
	for _, collection := range collections {
		path := filepath.Join(dir, collection.Table+".csv")
		if err := ce.Export(collection, path); err != nil {
			ce.Logger.Errorf("Failed to export table %s: %s", collection.Table, err)
			result = multierror.Append(result, err)
			continue
		}
		ce.Logger.Infof("Exported %d %s rows to %s", len(collection.Rows), collection.Table, path)
	}
	return result
}

// writeCSV writes rows in the given column order as a UTF-8 CSV file
func writeCSV(columns []string, rows []models.Record, path string) error {
	file, err := os.Create(path)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(columns); err != nil {
		return &WriteError{Path: path, Err: err}
	}

	line := make([]string, len(columns))
	for _, row := range rows {
		for i, column := range columns {
			line[i] = formatValue(row[column])
		}
		if err := w.Write(line); err != nil {
			return &WriteError{Path: path, Err: err}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// formatValue renders a loaded value as a CSV field. Floats use the shortest
// representation that parses back to the same value, blobs are hex encoded.
func formatValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return hex.EncodeToString(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
