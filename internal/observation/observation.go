package observation

import (
	"fmt"
	"math"

	"github.com/nialov/kapalo-go/internal/catalog"
	"github.com/nialov/kapalo-go/pkg/models"
	"github.com/sirupsen/logrus"
)

// Column subsets each observation aggregate carries per record type.
// Remarks columns are kept here for the exports and dropped again when
// popup tables are rendered.
var (
	PlanarColumns = []string{
		catalog.Remarks, catalog.Dip, catalog.DipDirection, catalog.StypeText,
		catalog.FolTypeText, catalog.Stype, catalog.HSence, catalog.HSenceText,
	}
	LinearColumns = []string{
		catalog.Remarks, catalog.Direction, catalog.Plunge, catalog.StypeText,
		catalog.Stype,
	}
	ImageColumns      = []string{catalog.PictureID, catalog.Remarks}
	SampleColumns     = []string{catalog.SampleID, catalog.FieldName}
	RockObsColumns    = []string{catalog.Remarks, catalog.FieldName, catalog.RockName}
	TextureColumns    = []string{catalog.St2, catalog.St1}
	MineralColumns    = []string{catalog.MineralText, catalog.GrainSize}
	AlterationColumns = []string{catalog.AlterationText}
)

// Table is an ordered column view over selected records
type Table struct {
	Columns []string
	Rows    []models.Record
}

// Empty reports whether the table holds no rows
func (t Table) Empty() bool {
	return len(t.Rows) == 0
}

// Observation aggregates everything recorded at one outcrop
type Observation struct {
	ObsID            string
	TmGid            string
	Project          string
	Latitude         float64
	Longitude        float64
	Remarks          string
	Geometry         []byte
	Planars          Table
	Linears          Table
	Images           Table
	RockObservations Table
	Samples          Table
	Textures         Table
	Minerals         Table
	Alterations      Table
}

// Groups indexes child records by their grouping key column
type Groups struct {
	Observations []models.Record
	Tectonic     map[string][]models.Record
	Planars      map[string][]models.Record
	Linears      map[string][]models.Record
	Images       map[string][]models.Record
	RockObs      map[string][]models.Record
	Samples      map[string][]models.Record
	Textures     map[string][]models.Record
	Minerals     map[string][]models.Record
	Alterations  map[string][]models.Record
}

// AssembleOptions control how observations are assembled
type AssembleOptions struct {
	// Declination is added to planar dip directions and linear directions
	Declination float64
	// Exceptions corrects wrongly recorded observation ids before child
	// records are looked up
	Exceptions map[string]string
}

// GroupTables indexes all child collections for observation assembly.
// Tectonic measurements group by OBSID, structure measurements by the
// tectonic measurement GDB_ID and rock observation details by ROP_GID.
func GroupTables(collections []models.RecordCollection, logger *logrus.Logger) *Groups {
	groups := &Groups{
		Tectonic:    make(map[string][]models.Record),
		Planars:     make(map[string][]models.Record),
		Linears:     make(map[string][]models.Record),
		Images:      make(map[string][]models.Record),
		RockObs:     make(map[string][]models.Record),
		Samples:     make(map[string][]models.Record),
		Textures:    make(map[string][]models.Record),
		Minerals:    make(map[string][]models.Record),
		Alterations: make(map[string][]models.Record),
	}

	for _, collection := range collections {
		switch collection.Table {
		case catalog.TableObservations:
			groups.Observations = collection.Rows
		case catalog.TableTectonic:
			groupBy(groups.Tectonic, collection.Rows, catalog.ObsID, logger)
		case catalog.TablePlanar:
			groupBy(groups.Planars, collection.Rows, catalog.TmGid, logger)
		case catalog.TableLinear:
			groupBy(groups.Linears, collection.Rows, catalog.TmGid, logger)
		case catalog.TableImages:
			groupBy(groups.Images, collection.Rows, catalog.ObsID, logger)
		case catalog.TableRockObs:
			groupBy(groups.RockObs, collection.Rows, catalog.ObsID, logger)
		case catalog.TableSamples:
			groupBy(groups.Samples, collection.Rows, catalog.ObsID, logger)
		case catalog.TableTextures:
			groupBy(groups.Textures, collection.Rows, catalog.RopGid, logger)
		case catalog.TableMinerals:
			groupBy(groups.Minerals, collection.Rows, catalog.RopGid, logger)
		case catalog.TableAlterations:
			groupBy(groups.Alterations, collection.Rows, catalog.RopGid, logger)
		default:
			logger.Debugf("No grouping for table %s", collection.Table)
		}
	}

	return groups
}

// groupBy indexes records under their key column value, dropping records
// with no usable key
func groupBy(index map[string][]models.Record, rows []models.Record, keyColumn string, logger *logrus.Logger) {
	for _, row := range rows {
		key := StringValue(row, keyColumn)
		if key == "" {
			logger.Debugf("Dropping record with empty %s from grouping", keyColumn)
			continue
		}
		index[key] = append(index[key], row)
	}
}

// AssembleAll assembles one Observation per observation record
func AssembleAll(collections []models.RecordCollection, opts AssembleOptions, logger *logrus.Logger) ([]Observation, error) {
	groups := GroupTables(collections, logger)
	if groups.Observations == nil {
		return nil, fmt.Errorf("no %s table in loaded collections", catalog.TableObservations)
	}

	observations := make([]Observation, 0, len(groups.Observations))
	for _, row := range groups.Observations {
		obs, err := Assemble(row, groups, opts, logger)
		if err != nil {
			logger.Errorf("Skipping observation record: %v", err)
			continue
		}
		observations = append(observations, obs)
	}

	logger.Infof("Assembled %d observations", len(observations))
	return observations, nil
}

// Assemble builds one Observation aggregate from its record and the
// grouped child tables
func Assemble(row models.Record, groups *Groups, opts AssembleOptions, logger *logrus.Logger) (Observation, error) {
	obsID := StringValue(row, catalog.ObsID)
	if obsID == "" {
		return Observation{}, fmt.Errorf("observation record has no %s", catalog.ObsID)
	}

	// An exception corrects the id used to look up child records while the
	// observation keeps its recorded id
	childID := obsID
	if corrected, ok := opts.Exceptions[obsID]; ok {
		logger.Infof("Using corrected id %s for child records of %s", corrected, obsID)
		childID = corrected
	}

	geometry, _ := row[catalog.Geometry].([]byte)

	obs := Observation{
		ObsID:     obsID,
		Project:   StringValue(row, catalog.Project),
		Latitude:  floatOrNaN(row, catalog.Latitude),
		Longitude: floatOrNaN(row, catalog.Longitude),
		Remarks:   StringValue(row, catalog.Remarks),
		Geometry:  geometry,
	}

	obs.TmGid = resolveTmGid(obsID, groups.Tectonic[childID], logger)
	obs.Planars = assemblePlanars(groups.Planars[obs.TmGid], opts.Declination, logger)
	obs.Linears = assembleLinears(groups.Linears[obs.TmGid], opts.Declination, logger)

	obs.Images = subsetTable(groups.Images[childID], ImageColumns)
	obs.Samples = subsetTable(groups.Samples[childID], SampleColumns)

	rockObsRecords := groups.RockObs[childID]
	obs.RockObservations = subsetTable(rockObsRecords, RockObsColumns)

	// Rock observation details hang off the rock observation point ids
	var textures, minerals, alterations []models.Record
	for _, rockObs := range rockObsRecords {
		ropGid := StringValue(rockObs, catalog.GdbID)
		if ropGid == "" {
			continue
		}
		textures = append(textures, groups.Textures[ropGid]...)
		minerals = append(minerals, groups.Minerals[ropGid]...)
		alterations = append(alterations, groups.Alterations[ropGid]...)
	}
	obs.Textures = subsetTable(textures, TextureColumns)
	obs.Minerals = subsetTable(minerals, MineralColumns)
	obs.Alterations = subsetTable(alterations, AlterationColumns)

	return obs, nil
}

// resolveTmGid resolves the tectonic measurement id for an observation.
// The tablet writes one tectonic measurement container per observation,
// so anything but exactly one unique GDB_ID yields no id.
func resolveTmGid(obsID string, tectonics []models.Record, logger *logrus.Logger) string {
	unique := make(map[string]bool)
	for _, record := range tectonics {
		if gdbID := StringValue(record, catalog.GdbID); gdbID != "" {
			unique[gdbID] = true
		}
	}

	if len(unique) == 0 {
		return ""
	}
	if len(unique) > 1 {
		logger.Warningf(
			"Expected one tectonic measurement id for observation %s, got %d",
			obsID, len(unique),
		)
		return ""
	}

	for gdbID := range unique {
		return gdbID
	}
	return ""
}

// assemblePlanars subsets planar structure records, dropping out-of-range
// measurements and correcting dip directions for declination
func assemblePlanars(records []models.Record, declination float64, logger *logrus.Logger) Table {
	table := Table{Columns: PlanarColumns}
	for _, record := range records {
		if !ValidDip(record, catalog.Dip) || !ValidAzimuth(record, catalog.DipDirection) {
			logger.Warningf(
				"Dropping planar structure with out-of-range values: %s=%v %s=%v",
				catalog.Dip, record[catalog.Dip],
				catalog.DipDirection, record[catalog.DipDirection],
			)
			continue
		}

		row := subsetRecord(record, PlanarColumns)
		dipDirection, _ := FloatValue(row, catalog.DipDirection)
		row[catalog.DipDirection] = ApplyDeclination(dipDirection, declination)
		table.Rows = append(table.Rows, row)
	}
	return table
}

// assembleLinears subsets linear structure records, dropping out-of-range
// measurements and correcting directions for declination
func assembleLinears(records []models.Record, declination float64, logger *logrus.Logger) Table {
	table := Table{Columns: LinearColumns}
	for _, record := range records {
		if !ValidAzimuth(record, catalog.Direction) || !ValidDip(record, catalog.Plunge) {
			logger.Warningf(
				"Dropping linear structure with out-of-range values: %s=%v %s=%v",
				catalog.Direction, record[catalog.Direction],
				catalog.Plunge, record[catalog.Plunge],
			)
			continue
		}

		row := subsetRecord(record, LinearColumns)
		direction, _ := FloatValue(row, catalog.Direction)
		row[catalog.Direction] = ApplyDeclination(direction, declination)
		table.Rows = append(table.Rows, row)
	}
	return table
}

// subsetTable copies records down to the wanted columns
func subsetTable(records []models.Record, columns []string) Table {
	table := Table{Columns: columns}
	for _, record := range records {
		table.Rows = append(table.Rows, subsetRecord(record, columns))
	}
	return table
}

// subsetRecord copies one record down to the wanted columns
func subsetRecord(record models.Record, columns []string) models.Record {
	subset := make(models.Record, len(columns))
	for _, column := range columns {
		subset[column] = record[column]
	}
	return subset
}

// floatOrNaN reads a coordinate column, NaN when missing or non-numeric
func floatOrNaN(record models.Record, column string) float64 {
	if value, ok := FloatValue(record, column); ok {
		return value
	}
	return math.NaN()
}
