package observation

import (
	"fmt"
	"math"
	"os"

	"github.com/nialov/kapalo-go/internal/catalog"
	"github.com/nialov/kapalo-go/internal/proj"
	"github.com/nialov/kapalo-go/pkg/models"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Coordinate reference systems the bounds filter understands
const (
	EPSGWGS84   = 4326
	EPSGTM35FIN = 3067
)

// Bounds is a rectangular observation filter in the named coordinate
// reference system
type Bounds struct {
	XMin float64 `yaml:"xmin"`
	YMin float64 `yaml:"ymin"`
	XMax float64 `yaml:"xmax"`
	YMax float64 `yaml:"ymax"`
	EPSG int     `yaml:"epsg"`
}

// ExtraDataset is an additional GeoJSON layer added to the webmap
type ExtraDataset struct {
	Path        string   `yaml:"path"`
	Name        string   `yaml:"name"`
	Style       string   `yaml:"style"`
	Color       string   `yaml:"color"`
	PopupFields []string `yaml:"popup_fields"`
}

// MapConfig holds the map compilation and export settings read from the
// kapalo.yaml config file
type MapConfig struct {
	Declination float64           `yaml:"declination"`
	Projects    []string          `yaml:"projects"`
	Rechecks    []string          `yaml:"rechecks"`
	Exceptions  map[string]string `yaml:"exceptions"`
	Bounds      *Bounds           `yaml:"bounds"`
	Extras      []ExtraDataset    `yaml:"extras"`
}

// ReadMapConfig reads kapalo.yaml if it exists. A missing config file is
// not an error, the defaults apply.
func ReadMapConfig(path string, logger *logrus.Logger) (MapConfig, error) {
	config := MapConfig{}

	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			logger.Infof("No map config at %s, using defaults", path)
			return config, nil
		}
		return config, fmt.Errorf("reading map config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parsing map config %s: %w", path, err)
	}

	logger.Infof(
		"Read map config %s: %d projects, %d rechecks, %d exceptions, declination %.1f",
		path, len(config.Projects), len(config.Rechecks), len(config.Exceptions),
		config.Declination,
	)
	return config, nil
}

// IsRecheck reports whether an observation is marked for rechecking
func (mc MapConfig) IsRecheck(obsID string) bool {
	for _, recheck := range mc.Rechecks {
		if recheck == obsID {
			return true
		}
	}
	return false
}

// AssembleOptions returns the assembly options this config implies
func (mc MapConfig) AssembleOptions() AssembleOptions {
	return AssembleOptions{
		Declination: mc.Declination,
		Exceptions:  mc.Exceptions,
	}
}

// FilterProjects returns the collections with the observation table
// filtered to the named projects. An empty project list filters nothing.
func FilterProjects(collections []models.RecordCollection, projects []string, logger *logrus.Logger) []models.RecordCollection {
	if len(projects) == 0 {
		return collections
	}

	wanted := make(map[string]bool, len(projects))
	for _, project := range projects {
		wanted[project] = true
	}

	return filterObservations(collections, func(row models.Record) bool {
		return wanted[StringValue(row, catalog.Project)]
	}, "projects", logger)
}

// FilterBounds returns the collections with the observation table filtered
// to observations inside the bounds. Coordinates are reprojected from
// WGS84 to the bounds coordinate reference system before the comparison.
func FilterBounds(collections []models.RecordCollection, bounds *Bounds, logger *logrus.Logger) []models.RecordCollection {
	if bounds == nil {
		return collections
	}
	if bounds.EPSG != EPSGWGS84 && bounds.EPSG != EPSGTM35FIN {
		logger.Errorf("Unsupported bounds EPSG %d, skipping bounds filter", bounds.EPSG)
		return collections
	}

	return filterObservations(collections, func(row models.Record) bool {
		latitude := floatOrNaN(row, catalog.Latitude)
		longitude := floatOrNaN(row, catalog.Longitude)
		if math.IsNaN(latitude) || math.IsNaN(longitude) {
			return false
		}

		x, y := longitude, latitude
		if bounds.EPSG == EPSGTM35FIN {
			x, y = proj.ToTM35FIN(latitude, longitude)
		}
		return bounds.XMin <= x && x <= bounds.XMax && bounds.YMin <= y && y <= bounds.YMax
	}, "bounds", logger)
}

// filterObservations rebuilds the collection list with observation rows
// passing the keep function. Child tables are left as they are.
func filterObservations(collections []models.RecordCollection, keep func(models.Record) bool, filterName string, logger *logrus.Logger) []models.RecordCollection {
	filtered := make([]models.RecordCollection, len(collections))
	copy(filtered, collections)

	for i, collection := range filtered {
		if collection.Table != catalog.TableObservations {
			continue
		}

		kept := make([]models.Record, 0, len(collection.Rows))
		for _, row := range collection.Rows {
			if keep(row) {
				kept = append(kept, row)
			}
		}

		logger.Infof(
			"Filtered observations to %s: %d of %d kept",
			filterName, len(kept), len(collection.Rows),
		)
		filtered[i] = models.RecordCollection{
			Table:   collection.Table,
			Columns: collection.Columns,
			Rows:    kept,
		}
	}

	return filtered
}
