package exporter

import (
	"encoding/hex"
	"encoding/json"
	"math"
	"os"

	"github.com/nialov/kapalo-go/internal/observation"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// FeatureCollection converts a flattened table into GeoJSON point features.
// Rows without usable coordinates are left out, they stay in the CSV export.
func FeatureCollection(table observation.Table) *geojson.FeatureCollection {
	collection := geojson.NewFeatureCollection()
	for _, row := range table.Rows {
		lat, latOk := observation.FloatValue(row, LatitudeColumn)
		lon, lonOk := observation.FloatValue(row, LongitudeColumn)
		if !latOk || !lonOk || math.IsNaN(lat) || math.IsNaN(lon) {
			continue
		}

		feature := geojson.NewFeature(orb.Point{lon, lat})
		for _, column := range table.Columns {
			if column == LatitudeColumn || column == LongitudeColumn {
				continue
			}
			feature.Properties[column] = jsonValue(row[column])
		}
		collection.Append(feature)
	}
	return collection
}

// WriteGeoJSON writes the table as a GeoJSON FeatureCollection
func WriteGeoJSON(table observation.Table, path string) error {
	data, err := json.MarshalIndent(FeatureCollection(table), "", "  ")
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// jsonValue converts a loaded value into something JSON can encode
func jsonValue(value interface{}) interface{} {
	switch v := value.(type) {
	case float64:
		if math.IsNaN(v) {
			return nil
		}
		return v
	case []byte:
		return hex.EncodeToString(v)
	default:
		return value
	}
}
