package exporter

import (
	"bytes"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nialov/kapalo-go/internal/catalog"
	"github.com/nialov/kapalo-go/pkg/models"
	"github.com/sirupsen/logrus"
)

func createTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func observationCollection() models.RecordCollection {
	return models.RecordCollection{
		Table: catalog.TableObservations,
		Rows: []models.Record{
			{
				catalog.GdbID:     "c9426e64-5c08-45b2-b7d5-9bca37e80e54",
				catalog.ObsID:     "OBS1",
				catalog.Project:   "TEST",
				catalog.Observer:  nil,
				catalog.ObsDate:   "2021-07-15 12:00:00",
				catalog.Positsm:   nil,
				catalog.Reliab:    int64(4),
				catalog.Location:  nil,
				catalog.Remarks:   "outcrop, west side",
				catalog.Latitude:  61.5,
				catalog.Longitude: 23.75,
				catalog.Geometry:  []byte{0x47, 0x50},
			},
		},
	}
}

func TestExportWritesCatalogColumnOrder(t *testing.T) {
	logger := createTestLogger()
	exporter := NewCSVExporter(catalog.New(logger), logger)
	path := filepath.Join(t.TempDir(), "Observation.csv")

	if err := exporter.Export(observationCollection(), path); err != nil {
		t.Fatalf("Expected no error exporting, got %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read exported file: %v", err)
	}

	// Check the result
	header := strings.SplitN(string(content), "\n", 2)[0]
	def, _ := catalog.New(logger).Lookup(catalog.TableObservations)
	expected := strings.Join(def.ColumnNames(), ",")
	if header != expected {
		t.Errorf("Expected header %q, got %q", expected, header)
	}
}

func TestExportIsIdempotent(t *testing.T) {
	logger := createTestLogger()
	exporter := NewCSVExporter(catalog.New(logger), logger)
	dir := t.TempDir()
	first := filepath.Join(dir, "first.csv")
	second := filepath.Join(dir, "second.csv")

	if err := exporter.Export(observationCollection(), first); err != nil {
		t.Fatalf("Expected no error exporting, got %v", err)
	}
	if err := exporter.Export(observationCollection(), second); err != nil {
		t.Fatalf("Expected no error exporting, got %v", err)
	}

	firstContent, _ := os.ReadFile(first)
	secondContent, _ := os.ReadFile(second)
	if !bytes.Equal(firstContent, secondContent) {
		t.Error("Expected identical bytes from repeated exports")
	}
}

func TestExportRoundTrip(t *testing.T) {
	logger := createTestLogger()
	exporter := NewCSVExporter(catalog.New(logger), logger)
	path := filepath.Join(t.TempDir(), "Observation.csv")

	collection := observationCollection()
	if err := exporter.Export(collection, path); err != nil {
		t.Fatalf("Expected no error exporting, got %v", err)
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open exported file: %v", err)
	}
	defer file.Close()

	lines, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("Failed to parse exported file: %v", err)
	}

	// Check the result
	if len(lines) != len(collection.Rows)+1 {
		t.Fatalf("Expected %d lines, got %d", len(collection.Rows)+1, len(lines))
	}

	fields := make(map[string]string)
	for i, column := range lines[0] {
		fields[column] = lines[1][i]
	}
	if fields[catalog.ObsID] != "OBS1" {
		t.Errorf("Expected OBSID OBS1, got %q", fields[catalog.ObsID])
	}
	if fields[catalog.Remarks] != "outcrop, west side" {
		t.Errorf("Expected remarks with comma to round trip, got %q", fields[catalog.Remarks])
	}
	if fields[catalog.Latitude] != "61.5" {
		t.Errorf("Expected latitude 61.5, got %q", fields[catalog.Latitude])
	}
	if fields[catalog.Reliab] != "4" {
		t.Errorf("Expected reliability 4, got %q", fields[catalog.Reliab])
	}
	if fields[catalog.Observer] != "" {
		t.Errorf("Expected empty field for NULL, got %q", fields[catalog.Observer])
	}
	if fields[catalog.Geometry] != "4750" {
		t.Errorf("Expected hex encoded geometry blob, got %q", fields[catalog.Geometry])
	}
}

func TestExportUnknownTableUsesCollectionColumns(t *testing.T) {
	logger := createTestLogger()
	exporter := NewCSVExporter(catalog.New(logger), logger)
	path := filepath.Join(t.TempDir(), "extra.csv")

	collection := models.RecordCollection{
		Table:   "Extra_table",
		Columns: []string{"NAME", "VALUE"},
		Rows:    []models.Record{{"NAME": "a", "VALUE": int64(1)}},
	}
	if err := exporter.Export(collection, path); err != nil {
		t.Fatalf("Expected no error exporting, got %v", err)
	}

	content, _ := os.ReadFile(path)
	if !strings.HasPrefix(string(content), "NAME,VALUE\n") {
		t.Errorf("Expected collection column order, got %q", string(content))
	}
}

func TestExportAllWritesEveryTable(t *testing.T) {
	logger := createTestLogger()
	exporter := NewCSVExporter(catalog.New(logger), logger)
	dir := filepath.Join(t.TempDir(), "exports")

	collections := []models.RecordCollection{
		observationCollection(),
		{Table: catalog.TableTectonic, Rows: []models.Record{
			{catalog.GdbID: "TM1", catalog.ObsID: "OBS1", catalog.Remarks: nil},
		}},
	}

	if err := exporter.ExportAll(collections, dir); err != nil {
		t.Fatalf("Expected no error exporting, got %v", err)
	}

	for _, name := range []string{"Observation.csv", "Tectonic_measurement.csv"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("Expected exported file %s: %v", name, err)
		}
	}
}

func TestExportWriteError(t *testing.T) {
	logger := createTestLogger()
	exporter := NewCSVExporter(catalog.New(logger), logger)
	path := filepath.Join(t.TempDir(), "no", "such", "dir", "out.csv")

	err := exporter.Export(observationCollection(), path)
	if err == nil {
		t.Fatal("Expected error writing to missing directory, got nil")
	}

	var writeErr *WriteError
	if !errors.As(err, &writeErr) {
		t.Errorf("Expected a WriteError, got %T", err)
	}
	if writeErr.Path != path {
		t.Errorf("Expected error to carry path %s, got %s", path, writeErr.Path)
	}
}
