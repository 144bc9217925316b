package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nialov/kapalo-go/internal/catalog"
	"github.com/nialov/kapalo-go/internal/connector"
	"github.com/nialov/kapalo-go/internal/exporter"
	"github.com/nialov/kapalo-go/internal/generator"
	"github.com/nialov/kapalo-go/internal/loader"
	"github.com/nialov/kapalo-go/internal/observation"
	"github.com/nialov/kapalo-go/internal/syncer"
	"github.com/nialov/kapalo-go/internal/utils"
	"github.com/nialov/kapalo-go/internal/validator"
	"github.com/nialov/kapalo-go/internal/webmap"
	"github.com/nialov/kapalo-go/pkg/models"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	var (
		sqlitePaths []string
		outputDir   string
		configPath  string
		projects    []string
		imgsDir     string
		destination string
		stylesheet  string
		extension   string
		bucket      string
		prefix      string
		width       int
		records     int
		minRecords  int
		seed        int64
		envFile     string
		logLevel    string
		strict      bool
		overwrite   bool
		verify      bool
		upload      bool
	)

	rootCmd := &cobra.Command{
		Use:   "kapalo",
		Short: "A tool to extract, validate and report kapalo field observation databases",
		Long: `Kapalo Observation Database Toolkit

A Go tool that reads kapalo SQLite observation databases, validates them
against the known schema, exports flattened structure tables and compiles
interactive webmaps with observation markers and outcrop images.`,
	}

	rootCmd.PersistentFlags().StringArrayVarP(&sqlitePaths, "sqlite", "s", nil, "Path to a kapalo SQLite database (repeatable)")
	rootCmd.PersistentFlags().StringVarP(&outputDir, "output", "o", "", "Output directory (default: kapalo-output)")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "kapalo.yaml", "Path to the map config file")
	rootCmd.PersistentFlags().StringSliceVarP(&projects, "projects", "p", nil, "Project names to include (repeatable)")
	rootCmd.PersistentFlags().StringVarP(&envFile, "env-file", "e", ".env", "Path to .env file")
	rootCmd.PersistentFlags().StringVarP(&logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&strict, "strict", false, "Exit with an error on schema violations")

	// loadObservationData runs the shared pipeline front: env, databases,
	// validation, config driven filtering and assembly
	loadObservationData := func(logger *logrus.Logger) ([]models.RecordCollection, []observation.Observation, observation.MapConfig, *catalog.Catalog, error) {
		paths := resolvePaths(sqlitePaths)
		if len(paths) == 0 {
			return nil, nil, observation.MapConfig{}, nil, fmt.Errorf("no database given, use --sqlite or KAPALO_SQLITE_PATH")
		}

		cat := catalog.New(logger)
		collections, err := loader.LoadDatabases(paths, cat, logger)
		if err != nil {
			return nil, nil, observation.MapConfig{}, nil, err
		}

		report := validator.NewValidator(cat, logger).Validate(collections)
		if strict && report.HasViolations() {
			return nil, nil, observation.MapConfig{}, nil, fmt.Errorf("schema validation failed: %d violations", len(report.Violations))
		}

		config, err := observation.ReadMapConfig(configPath, logger)
		if err != nil {
			return nil, nil, observation.MapConfig{}, nil, err
		}

		collections = observation.FilterProjects(collections, mergeProjects(config.Projects, projects), logger)
		collections = observation.FilterBounds(collections, config.Bounds, logger)

		observations, err := observation.AssembleAll(collections, config.AssembleOptions(), logger)
		if err != nil {
			return nil, nil, observation.MapConfig{}, nil, err
		}
		return collections, observations, config, cat, nil
	}

	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Validate kapalo databases against the schema catalog",
		Run: func(cmd *cobra.Command, args []string) {
			logger := utils.SetupLogging(logLevel)
			utils.LoadEnvironmentVariables(envFile, logger)

			paths := resolvePaths(sqlitePaths)
			if len(paths) == 0 {
				logger.Error("No database given, use --sqlite or KAPALO_SQLITE_PATH")
				os.Exit(1)
			}

			cat := catalog.New(logger)
			collections, err := loader.LoadDatabases(paths, cat, logger)
			if err != nil {
				logger.Errorf("Failed to load databases: %v", err)
				os.Exit(1)
			}

			report := validator.NewValidator(cat, logger).Validate(collections)
			utils.PrintSchemaReport(collections, report)

			if strict && report.HasViolations() {
				logger.Errorf("Schema validation failed with %d violations", len(report.Violations))
				os.Exit(1)
			}
		},
	}

	exportCmd := &cobra.Command{
		Use:   "export-observations",
		Short: "Export flattened observation tables as CSV, GeoJSON and Parquet",
		Run: func(cmd *cobra.Command, args []string) {
			logger := utils.SetupLogging(logLevel)
			utils.LoadEnvironmentVariables(envFile, logger)

			collections, observations, _, cat, err := loadObservationData(logger)
			if err != nil {
				logger.Errorf("Failed to prepare observations: %v", err)
				os.Exit(1)
			}

			outputDir = resolveOutput(outputDir)
			var failures []string

			tableDir := filepath.Join(outputDir, "tables")
			if err := exporter.NewCSVExporter(cat, logger).ExportAll(collections, tableDir); err != nil {
				logger.Errorf("Failed to export raw tables: %v", err)
				failures = append(failures, err.Error())
			}

			if err := exporter.NewObservationExporter(logger).ExportAll(observations, outputDir); err != nil {
				logger.Errorf("Failed to export observations: %v", err)
				failures = append(failures, err.Error())
			}

			utils.PrintRunSummary("export", []string{outputDir, tableDir}, len(observations), failures)
			if len(failures) > 0 {
				os.Exit(1)
			}
		},
	}

	webmapCmd := &cobra.Command{
		Use:   "compile-webmap",
		Short: "Compile an interactive webmap from kapalo observations",
		Run: func(cmd *cobra.Command, args []string) {
			logger := utils.SetupLogging(logLevel)
			utils.LoadEnvironmentVariables(envFile, logger)

			_, observations, config, _, err := loadObservationData(logger)
			if err != nil {
				logger.Errorf("Failed to prepare observations: %v", err)
				os.Exit(1)
			}

			// Resize images on demand and link the resized copies
			var images *webmap.ImageIndex
			mapImgsDir := ""
			if imgsDir != "" {
				resizedDir := imgsDir + "_resized"
				resizer := webmap.NewResizer(resolveWidth(width), logger)
				if _, err := resizer.ResizeDir(imgsDir, resizedDir, "jpg", overwrite); err != nil {
					logger.Errorf("Failed to resize images: %v", err)
					os.Exit(1)
				}
				images = webmap.NewImageIndex(resizedDir)
				mapImgsDir = resizedDir
			}

			outputDir = resolveOutput(outputDir)
			if err := os.MkdirAll(outputDir, 0o755); err != nil {
				logger.Errorf("Failed to create output directory: %v", err)
				os.Exit(1)
			}
			outPath := filepath.Join(outputDir, "index.html")

			builder := webmap.NewMapBuilder(config, images, logger)
			placed, skipped, err := builder.Compile(observations, outPath, mapImgsDir, stylesheet)
			if err != nil {
				logger.Errorf("Failed to compile webmap: %v", err)
				os.Exit(1)
			}
			if skipped > 0 {
				logger.Warningf("Skipped %d observations without usable geometry", skipped)
			}

			utils.PrintRunSummary(
				"webmap",
				[]string{outPath, filepath.Join(outputDir, webmap.StylesheetName)},
				placed,
				nil,
			)
		},
	}
	webmapCmd.Flags().StringVar(&imgsDir, "imgs-dir", "", "Directory with outcrop images")
	webmapCmd.Flags().StringVar(&stylesheet, "stylesheet", "", "Custom stylesheet copied next to the map")
	webmapCmd.Flags().IntVar(&width, "width", 0, "Width of resized popup images in pixels (default: 800 or KAPALO_IMAGE_WIDTH)")
	webmapCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Resize images even when a resized copy exists")

	resizeCmd := &cobra.Command{
		Use:   "resize-images",
		Short: "Batch-resize an image directory to a fixed width",
		Run: func(cmd *cobra.Command, args []string) {
			logger := utils.SetupLogging(logLevel)
			utils.LoadEnvironmentVariables(envFile, logger)

			if imgsDir == "" {
				logger.Error("No image directory given, use --imgs-dir")
				os.Exit(1)
			}
			if destination == "" {
				destination = imgsDir + "_resized"
			}

			resizer := webmap.NewResizer(resolveWidth(width), logger)
			count, err := resizer.ResizeDir(imgsDir, destination, extension, overwrite)
			if err != nil {
				logger.Errorf("Failed to resize images: %v", err)
				os.Exit(1)
			}

			utils.PrintRunSummary("resize", []string{destination}, count, nil)
		},
	}
	resizeCmd.Flags().StringVar(&imgsDir, "imgs-dir", "", "Directory with original images")
	resizeCmd.Flags().StringVar(&destination, "destination", "", "Directory for resized images (default: <imgs-dir>_resized)")
	resizeCmd.Flags().StringVar(&extension, "extension", "jpg", "Image file extension to resize")
	resizeCmd.Flags().IntVar(&width, "width", 0, "Width of resized images in pixels (default: 800 or KAPALO_IMAGE_WIDTH)")
	resizeCmd.Flags().BoolVar(&overwrite, "overwrite", false, "Resize images even when a resized copy exists")

	demoCmd := &cobra.Command{
		Use:   "demo-db",
		Short: "Write a deterministic demonstration database",
		Run: func(cmd *cobra.Command, args []string) {
			logger := utils.SetupLogging(logLevel)
			utils.LoadEnvironmentVariables(envFile, logger)

			path := "kapalo-demo.sqlite"
			if paths := resolvePaths(sqlitePaths); len(paths) > 0 {
				path = paths[0]
			}

			cat := catalog.New(logger)
			demoGenerator := generator.NewDemoGenerator(cat, seed, logger)
			if err := demoGenerator.WriteDatabase(path, records); err != nil {
				logger.Errorf("Failed to write demo database: %v", err)
				os.Exit(1)
			}

			if !verify {
				return
			}

			db := connector.NewDatabaseConnector(path, logger)
			if err := db.Connect(); err != nil {
				logger.Errorf("Failed to open demo database: %v", err)
				os.Exit(1)
			}
			defer db.Disconnect()

			success, emptyTables, partiallyPopulated := utils.VerifyTablePopulation(
				db, cat.TableNames(), minRecords, logger,
			)
			utils.PrintVerificationResults(emptyTables, partiallyPopulated, minRecords)
			if !success {
				os.Exit(1)
			}
		},
	}
	demoCmd.Flags().IntVarP(&records, "records", "r", 10, "Number of observations to generate")
	demoCmd.Flags().Int64Var(&seed, "seed", 0, "Seed for deterministic generation")
	demoCmd.Flags().BoolVarP(&verify, "verify", "v", false, "Verify that all tables received records")
	demoCmd.Flags().IntVarP(&minRecords, "min-records", "n", 1, "Minimum number of records each table should have for verification")

	remoteCmd := &cobra.Command{
		Use:   "remote-update",
		Short: "Synchronize databases and images with the remote bucket",
		Run: func(cmd *cobra.Command, args []string) {
			logger := utils.SetupLogging(logLevel)
			utils.LoadEnvironmentVariables(envFile, logger)

			if bucket == "" {
				bucket = os.Getenv("KAPALO_BUCKET")
			}
			if bucket == "" {
				logger.Error("No bucket given, use --bucket or KAPALO_BUCKET")
				os.Exit(1)
			}

			ctx := cmd.Context()
			store, err := syncer.NewGCSStore(ctx, bucket)
			if err != nil {
				logger.Errorf("Failed to connect to bucket %s: %v", bucket, err)
				os.Exit(1)
			}
			defer store.Close()

			if destination == "" {
				destination = "."
			}

			remoteSyncer := syncer.NewSyncer(store, logger)
			var report syncer.SyncReport
			if upload {
				report, err = remoteSyncer.Upload(ctx, resolveOutput(outputDir), prefix)
			} else {
				report, err = remoteSyncer.Download(ctx, prefix, destination)
			}
			if err != nil {
				logger.Errorf("Failed to synchronize with bucket %s: %v", bucket, err)
				os.Exit(1)
			}

			logger.Infof(
				"Remote update done: %d downloaded, %d uploaded, %d skipped",
				report.Downloaded, report.Uploaded, report.Skipped,
			)
		},
	}
	remoteCmd.Flags().StringVar(&bucket, "bucket", "", "Remote bucket name")
	remoteCmd.Flags().StringVar(&prefix, "prefix", "kapalo", "Object prefix inside the bucket")
	remoteCmd.Flags().StringVar(&destination, "destination", "", "Local directory downloads are mirrored into (default: current directory)")
	remoteCmd.Flags().BoolVar(&upload, "upload", false, "Push the output directory instead of downloading")

	rootCmd.AddCommand(checkCmd, exportCmd, webmapCmd, resizeCmd, demoCmd, remoteCmd)

	// Execute
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// resolvePaths falls back to the KAPALO_SQLITE_PATH environment variable
// when no database flag is given
func resolvePaths(paths []string) []string {
	if len(paths) > 0 {
		return paths
	}
	if path := os.Getenv("KAPALO_SQLITE_PATH"); path != "" {
		return []string{path}
	}
	return nil
}

// resolveOutput falls back to the KAPALO_OUTPUT_DIR environment variable
// when no output flag is given
func resolveOutput(output string) string {
	if output != "" {
		return output
	}
	if dir := os.Getenv("KAPALO_OUTPUT_DIR"); dir != "" {
		return dir
	}
	return "kapalo-output"
}

// resolveWidth falls back to the KAPALO_IMAGE_WIDTH environment variable
// when no width flag is given
func resolveWidth(width int) int {
	if width > 0 {
		return width
	}
	return connector.GetEnvInt("KAPALO_IMAGE_WIDTH", 800)
}

// mergeProjects combines configured and flagged project filters without
// duplicates
func mergeProjects(configured, flagged []string) []string {
	merged := append([]string{}, configured...)
	for _, project := range flagged {
		exists := false
		for _, existing := range merged {
			if existing == project {
				exists = true
				break
			}
		}
		if !exists {
			merged = append(merged, project)
		}
	}
	return merged
}
