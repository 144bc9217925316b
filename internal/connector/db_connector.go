package connector

import (
	"database/sql"
	"fmt"
	"os"
	"strconv"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
)

// DatabaseConnector handles SQLite database access and query execution
type DatabaseConnector struct {
	Path     string
	ReadOnly bool
	DB       *sql.DB
	Logger   *logrus.Logger
}

// NewDatabaseConnector creates a read-only connector for a kapalo database
func NewDatabaseConnector(path string, logger *logrus.Logger) *DatabaseConnector {
	if path == "" {
		path = getEnvOrDefault("KAPALO_SQLITE_PATH", "")
	}

	return &DatabaseConnector{
		Path:     path,
		ReadOnly: true,
		Logger:   logger,
	}
}

// NewWritableConnector creates a connector that may create and write a database
func NewWritableConnector(path string, logger *logrus.Logger) *DatabaseConnector {
	return &DatabaseConnector{
		Path:     path,
		ReadOnly: false,
		Logger:   logger,
	}
}

// Connect opens the SQLite database file
func (dc *DatabaseConnector) Connect() error {
	if dc.Path == "" {
		return fmt.Errorf("database path must be provided either as an argument or as KAPALO_SQLITE_PATH environment variable")
	}

	if dc.ReadOnly {
		if _, err := os.Stat(dc.Path); err != nil {
			dc.Logger.Errorf("Error locating SQLite database: %v", err)
			return fmt.Errorf("locating SQLite database %s: %w", dc.Path, err)
		}
	}

	dsn := fmt.Sprintf("file:%s", dc.Path)
	if dc.ReadOnly {
		dsn += "?mode=ro"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		dc.Logger.Errorf("Error opening SQLite database: %v", err)
		return err
	}

	// Test the connection
	err = db.Ping()
	if err != nil {
		dc.Logger.Errorf("Error pinging SQLite database: %v", err)
		return err
	}

	dc.DB = db
	dc.Logger.Infof("Opened SQLite database: %s", dc.Path)
	return nil
}

// Disconnect closes the database connection
func (dc *DatabaseConnector) Disconnect() {
	if dc.DB != nil {
		err := dc.DB.Close()
		if err != nil {
			dc.Logger.Errorf("Error closing database connection: %v", err)
		} else {
			dc.Logger.Info("SQLite connection closed")
		}
	}
}

// ExecuteQuery executes a SQL query and returns the results.
// Values are kept as the driver returns them: TEXT and BLOB columns both
// arrive as []byte, so no string conversion happens here. Callers resolve
// storage classes against the schema catalog.
func (dc *DatabaseConnector) ExecuteQuery(query string, params ...interface{}) ([]map[string]interface{}, error) {
	if dc.DB == nil {
		if err := dc.Connect(); err != nil {
			return nil, err
		}
	}

	rows, err := dc.DB.Query(query, params...)
	if err != nil {
		dc.Logger.Errorf("Error executing query: %v", err)
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		dc.Logger.Errorf("Error getting columns: %v", err)
		return nil, err
	}

	var results []map[string]interface{}

	for rows.Next() {
		// Create a slice of interface{} to hold the values
		values := make([]interface{}, len(columns))
		// Create a slice of pointers to the values
		valuePtrs := make([]interface{}, len(columns))
		for i := range columns {
			valuePtrs[i] = &values[i]
		}

		// Scan the result into the pointers
		if err := rows.Scan(valuePtrs...); err != nil {
			dc.Logger.Errorf("Error scanning row: %v", err)
			return nil, err
		}

		// Create a map for this row
		row := make(map[string]interface{})
		for i, col := range columns {
			row[col] = values[i]
		}

		results = append(results, row)
	}

	if err := rows.Err(); err != nil {
		dc.Logger.Errorf("Error iterating rows: %v", err)
		return nil, err
	}

	return results, nil
}

// ExecuteStatement executes a SQL statement and returns the number of affected rows
func (dc *DatabaseConnector) ExecuteStatement(query string, params ...interface{}) (int64, error) {
	if dc.DB == nil {
		if err := dc.Connect(); err != nil {
			return 0, err
		}
	}

	result, err := dc.DB.Exec(query, params...)
	if err != nil {
		dc.Logger.Errorf("Error executing statement: %v", err)
		return 0, err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		dc.Logger.Errorf("Error getting affected rows: %v", err)
		return 0, err
	}

	return affected, nil
}

// ExecuteMany executes a SQL statement with multiple parameter sets
func (dc *DatabaseConnector) ExecuteMany(query string, paramsList [][]interface{}) (int64, error) {
	if dc.DB == nil {
		if err := dc.Connect(); err != nil {
			return 0, err
		}
	}

	// Start a transaction
	tx, err := dc.DB.Begin()
	if err != nil {
		dc.Logger.Errorf("Error starting transaction: %v", err)
		return 0, err
	}

	// Prepare the statement
	stmt, err := tx.Prepare(query)
	if err != nil {
		dc.Logger.Errorf("Error preparing statement: %v", err)
		tx.Rollback()
		return 0, err
	}
	defer stmt.Close()

	var totalAffected int64

	// Execute the statement for each set of parameters
	for _, params := range paramsList {
		result, err := stmt.Exec(params...)
		if err != nil {
			dc.Logger.Errorf("Error executing batch statement: %v", err)
			tx.Rollback()
			return 0, err
		}

		affected, err := result.RowsAffected()
		if err != nil {
			dc.Logger.Errorf("Error getting affected rows: %v", err)
			tx.Rollback()
			return 0, err
		}

		totalAffected += affected
	}

	// Commit the transaction
	if err := tx.Commit(); err != nil {
		dc.Logger.Errorf("Error committing transaction: %v", err)
		tx.Rollback()
		return 0, err
	}

	return totalAffected, nil
}

// TableExists reports whether the named table exists in the database
func (dc *DatabaseConnector) TableExists(name string) (bool, error) {
	results, err := dc.ExecuteQuery(
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?", name,
	)
	if err != nil {
		return false, err
	}
	return len(results) > 0, nil
}

// ListTables returns the names of all tables in the database
func (dc *DatabaseConnector) ListTables() ([]string, error) {
	results, err := dc.ExecuteQuery(
		"SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name",
	)
	if err != nil {
		return nil, err
	}

	var tables []string
	for _, row := range results {
		switch name := row["name"].(type) {
		case string:
			tables = append(tables, name)
		case []byte:
			tables = append(tables, string(name))
		}
	}
	return tables, nil
}

// getEnvOrDefault gets an environment variable or returns a default value
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvInt gets an integer value from an environment variable
func GetEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}
