package exporter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"
	"github.com/nialov/kapalo-go/internal/catalog"
	"github.com/nialov/kapalo-go/internal/observation"
	"github.com/nialov/kapalo-go/internal/proj"
	"github.com/nialov/kapalo-go/pkg/models"
	"github.com/sirupsen/logrus"
)

// Flattened export types
const (
	PlanarType  = "planars"
	LinearType  = "linears"
	RockObsType = "rock_observations"
	ImageType   = "images"
	SampleType  = "samples"
)

// TypeNames lists the flattened export types in output order
var TypeNames = []string{PlanarType, LinearType, RockObsType, ImageType, SampleType}

// Columns added to every flattened row. Images keep their own remarks
// column, so the observation remarks go into a separate one for them.
const (
	ObsRemarksColumn = "OBS_REMARKS"
	LatitudeColumn   = "latitude"
	LongitudeColumn  = "longitude"
	XColumn          = "x"
	YColumn          = "y"
)

// Flatten joins observation level attributes onto every child record of one
// type. Coordinates are emitted both as WGS84 latitude/longitude and as
// ETRS-TM35FIN x/y. Observations without valid coordinates keep their rows
// with NaN coordinates so nothing silently disappears from the export.
func Flatten(observations []observation.Observation, typeName string) (observation.Table, error) {
	child, err := childTable(typeName)
	if err != nil {
		return observation.Table{}, err
	}

	table := observation.Table{Columns: flattenColumns(typeName)}
	for _, obs := range observations {
		x, y := proj.ToTM35FIN(obs.Latitude, obs.Longitude)
		for _, row := range child(obs).Rows {
			flat := make(models.Record, len(row)+7)
			for key, value := range row {
				flat[key] = value
			}
			flat[catalog.ObsID] = obs.ObsID
			if typeName == ImageType {
				flat[ObsRemarksColumn] = obs.Remarks
			} else {
				flat[catalog.Remarks] = obs.Remarks
			}
			flat[catalog.Project] = obs.Project
			flat[LatitudeColumn] = obs.Latitude
			flat[LongitudeColumn] = obs.Longitude
			flat[XColumn] = x
			flat[YColumn] = y
			table.Rows = append(table.Rows, flat)
		}
	}
	return table, nil
}

// FlattenAll compiles every export type that has records
func FlattenAll(observations []observation.Observation, logger *logrus.Logger) map[string]observation.Table {
	tables := make(map[string]observation.Table, len(TypeNames))
	for _, typeName := range TypeNames {
		table, err := Flatten(observations, typeName)
		if err != nil {
			logger.Errorf("Failed to flatten %s: %s", typeName, err)
			continue
		}
		if table.Empty() {
			logger.Infof("No %s records to export", typeName)
			continue
		}
		logger.Infof("Compiled %d %s rows for export", len(table.Rows), typeName)
		tables[typeName] = table
	}
	return tables
}

// childTable maps an export type to its observation child table
func childTable(typeName string) (func(observation.Observation) observation.Table, error) {
	switch typeName {
	case PlanarType:
		return func(o observation.Observation) observation.Table { return o.Planars }, nil
	case LinearType:
		return func(o observation.Observation) observation.Table { return o.Linears }, nil
	case RockObsType:
		return func(o observation.Observation) observation.Table { return o.RockObservations }, nil
	case ImageType:
		return func(o observation.Observation) observation.Table { return o.Images }, nil
	case SampleType:
		return func(o observation.Observation) observation.Table { return o.Samples }, nil
	}
	return nil, fmt.Errorf("unknown export type: %s", typeName)
}

// flattenColumns returns the output column order for one export type: the
// child columns first, then the joined observation attributes.
func flattenColumns(typeName string) []string {
	var base []string
	switch typeName {
	case PlanarType:
		base = observation.PlanarColumns
	case LinearType:
		base = observation.LinearColumns
	case RockObsType:
		base = observation.RockObsColumns
	case ImageType:
		base = observation.ImageColumns
	case SampleType:
		base = observation.SampleColumns
	}

	columns := make([]string, 0, len(base)+7)
	columns = append(columns, base...)
	columns = append(columns, catalog.ObsID)
	if typeName == ImageType {
		columns = append(columns, ObsRemarksColumn)
	} else if !contains(columns, catalog.Remarks) {
		columns = append(columns, catalog.Remarks)
	}
	columns = append(
		columns, catalog.Project, LatitudeColumn, LongitudeColumn, XColumn, YColumn,
	)
	return columns
}

func contains(values []string, wanted string) bool {
	for _, value := range values {
		if value == wanted {
			return true
		}
	}
	return false
}

// ObservationExporter writes flattened observation datasets as CSV, GeoJSON
// and Parquet files
type ObservationExporter struct {
	Logger *logrus.Logger
}

// NewObservationExporter creates a new observation exporter
func NewObservationExporter(logger *logrus.Logger) *ObservationExporter {
	return &ObservationExporter{Logger: logger}
}

// ExportAll writes every non-empty export type into the directory. Each type
// gets a CSV, a GeoJSON FeatureCollection and a Parquet file named after it.
func (oe *ObservationExporter) ExportAll(observations []observation.Observation, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &WriteError{Path: dir, Err: err}
	}

	tables := FlattenAll(observations, oe.Logger)
	var result error
	for _, typeName := range TypeNames {
		table, present := tables[typeName]
		if !present {
			continue
		}

		if err := writeCSV(table.Columns, table.Rows, filepath.Join(dir, typeName+".csv")); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if err := WriteGeoJSON(table, filepath.Join(dir, typeName+".geojson")); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if err := WriteParquet(table, typeName, filepath.Join(dir, typeName+".parquet")); err != nil {
			result = multierror.Append(result, err)
			continue
		}
		oe.Logger.Infof("Exported %s to %s", typeName, dir)
	}
	return result
}
