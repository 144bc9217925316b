package utils

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/nialov/kapalo-go/internal/connector"
	"github.com/nialov/kapalo-go/internal/validator"
	"github.com/nialov/kapalo-go/pkg/models"
	"github.com/sirupsen/logrus"
)

// SetupLogging configures the logging system
func SetupLogging(logLevel string) *logrus.Logger {
	// Create a new logger
	logger := logrus.New()

	// Get log level from environment variable or parameter
	levelStr := logLevel
	if levelStr == "" {
		levelStr = os.Getenv("LOG_LEVEL")
		if levelStr == "" {
			levelStr = "info"
		}
	}

	// Parse log level
	level, err := logrus.ParseLevel(levelStr)
	if err != nil {
		level = logrus.InfoLevel
	}

	// Configure logger
	logger.SetLevel(level)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetOutput(os.Stdout)

	logger.Infof("Logging configured with level: %s", level)
	return logger
}

// LoadEnvironmentVariables loads environment variables from a .env file
func LoadEnvironmentVariables(envFile string, logger *logrus.Logger) bool {
	// Check if a sample .env file exists but not the actual .env file
	if _, err := os.Stat(envFile); os.IsNotExist(err) {
		sampleEnvFile := envFile + ".sample"
		if _, err := os.Stat(sampleEnvFile); err == nil {
			logger.Infof("No %s file found, but %s exists. Consider copying %s to %s and updating it.",
				envFile, sampleEnvFile, sampleEnvFile, envFile)
		}
	}

	// Load environment variables from .env file if it exists
	if _, err := os.Stat(envFile); err == nil {
		if err := godotenv.Load(envFile); err != nil {
			logger.Warningf("Error loading %s file: %v", envFile, err)
		} else {
			logger.Infof("Loaded environment variables from %s", envFile)
		}
	} else {
		logger.Infof("No %s file found, using existing environment variables", envFile)
	}

	// Check for the variables the subcommands fall back to
	fallbackVars := []string{"KAPALO_SQLITE_PATH", "KAPALO_OUTPUT_DIR", "KAPALO_BUCKET"}
	var missingVars []string

	for _, v := range fallbackVars {
		if os.Getenv(v) == "" {
			missingVars = append(missingVars, v)
		}
	}

	if len(missingVars) > 0 {
		logger.Debugf("Unset environment variables: %s", strings.Join(missingVars, ", "))
		logger.Debug("These can be provided via command line arguments, environment variables, or a .env file")
	}

	// Log all available KAPALO_* environment variables (for debugging)
	if logger.Level == logrus.DebugLevel {
		for _, env := range os.Environ() {
			if strings.HasPrefix(env, "KAPALO_") {
				parts := strings.SplitN(env, "=", 2)
				if len(parts) == 2 {
					logger.Debugf("%s=%s", parts[0], parts[1])
				}
			}
		}
	}

	return len(missingVars) == 0
}

// PrintSchemaReport prints a detailed report of one validation run
func PrintSchemaReport(collections []models.RecordCollection, report *validator.Report) {
	totalRows := 0
	for _, collection := range collections {
		totalRows += len(collection.Rows)
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("KAPALO SCHEMA VALIDATION REPORT")
	fmt.Println(strings.Repeat("=", 80))

	// Basic statistics
	fmt.Println("\n1. BASIC STATISTICS")
	fmt.Printf("   Tables loaded: %d\n", len(collections))
	fmt.Printf("   Rows loaded: %d\n", totalRows)
	fmt.Printf("   Violations: %d\n", len(report.Violations))

	// Per-table row counts
	fmt.Println("\n2. TABLE CONTENTS")
	for _, collection := range collections {
		fmt.Printf("   %-30s %6d rows\n", collection.Table, len(collection.Rows))
	}

	// Violations grouped by table
	grouped := report.ByTable()
	if len(grouped) > 0 {
		fmt.Println("\n3. VIOLATIONS BY TABLE")

		tables := make([]string, 0, len(grouped))
		for table := range grouped {
			tables = append(tables, table)
		}
		sort.Strings(tables)

		for _, table := range tables {
			violations := grouped[table]
			fmt.Printf("   %s (%d):\n", table, len(violations))
			for _, violation := range violations {
				fmt.Printf("     - %s\n", violation.Error())
			}
		}
	} else {
		fmt.Println("\n3. VIOLATIONS")
		fmt.Println("   None")
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
}

// PrintRunSummary prints a summary of one export or compilation run
func PrintRunSummary(operation string, written []string, totalRows int, failures []string) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Printf("KAPALO %s SUMMARY\n", strings.ToUpper(operation))
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Outputs written: %d\n", len(written))
	fmt.Printf("Total rows: %d\n", totalRows)
	fmt.Printf("Failures: %d\n", len(failures))

	if len(written) > 0 {
		fmt.Println("\nOutputs:")
		for _, path := range written {
			fmt.Printf("  - %s\n", path)
		}
	}

	if len(failures) > 0 {
		fmt.Println("\nFailures:")
		for _, failure := range failures {
			fmt.Printf("  - %s\n", failure)
		}
	}

	fmt.Println(strings.Repeat("=", 50))
}

// VerifyTablePopulation verifies that all tables have at least the minimum number of records
func VerifyTablePopulation(db *connector.DatabaseConnector, tables []string, minRecords int, logger *logrus.Logger) (bool, []string, map[string]int) {
	logger.Infof("Verifying that all tables have at least %d record(s)...", minRecords)

	emptyTables := []string{}
	partiallyPopulatedTables := make(map[string]int)

	for _, table := range tables {
		query := fmt.Sprintf("SELECT COUNT(*) as count FROM %s", table)
		result, err := db.ExecuteQuery(query)
		if err != nil {
			logger.Warningf("Could not verify record count for table: %s", table)
			emptyTables = append(emptyTables, table)
			continue
		}

		if len(result) == 0 {
			logger.Warningf("No result returned for count query on table: %s", table)
			emptyTables = append(emptyTables, table)
			continue
		}

		count, ok := result[0]["count"].(int64)
		if !ok {
			// Try to convert to int64
			countStr := fmt.Sprintf("%v", result[0]["count"])
			countInt, err := strconv.ParseInt(countStr, 10, 64)
			if err != nil {
				logger.Warningf("Could not parse count for table %s: %v", table, err)
				emptyTables = append(emptyTables, table)
				continue
			}
			count = countInt
		}

		if count == 0 {
			logger.Warningf("Table %s has no records", table)
			emptyTables = append(emptyTables, table)
		} else if count < int64(minRecords) {
			logger.Warningf("Table %s has only %d/%d expected records", table, count, minRecords)
			partiallyPopulatedTables[table] = int(count)
		}
	}

	success := len(emptyTables) == 0 && len(partiallyPopulatedTables) == 0

	if success {
		logger.Info("Verification successful: All tables have at least the minimum number of records")
	} else {
		if len(emptyTables) > 0 {
			logger.Errorf("Verification failed: %d tables have no records", len(emptyTables))
		}
		if len(partiallyPopulatedTables) > 0 {
			logger.Errorf("Verification failed: %d tables are partially populated", len(partiallyPopulatedTables))
		}
	}

	return success, emptyTables, partiallyPopulatedTables
}

// PrintVerificationResults prints the results of the table population verification
func PrintVerificationResults(emptyTables []string, partiallyPopulatedTables map[string]int, minRecords int) {
	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println("TABLE POPULATION VERIFICATION RESULTS")
	fmt.Println(strings.Repeat("=", 50))

	if len(emptyTables) == 0 && len(partiallyPopulatedTables) == 0 {
		fmt.Printf("✅ All tables have at least %d record(s)\n", minRecords)
		fmt.Println(strings.Repeat("=", 50))
		return
	}

	if len(emptyTables) > 0 {
		fmt.Printf("❌ %d tables have no records:\n", len(emptyTables))
		for _, table := range emptyTables {
			fmt.Printf("  - %s\n", table)
		}
		fmt.Println()
	}

	if len(partiallyPopulatedTables) > 0 {
		fmt.Printf("⚠️  %d tables are partially populated:\n", len(partiallyPopulatedTables))
		for table, count := range partiallyPopulatedTables {
			fmt.Printf("  - %s: %d/%d records\n", table, count, minRecords)
		}
		fmt.Println()
	}

	fmt.Println(strings.Repeat("=", 50))
}
