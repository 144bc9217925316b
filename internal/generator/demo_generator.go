package generator

import (
	"fmt"
	"math/rand"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/jaswdr/faker"
	"github.com/jonboulle/clockwork"
	"github.com/nialov/kapalo-go/internal/catalog"
	"github.com/nialov/kapalo-go/internal/connector"
	"github.com/nialov/kapalo-go/pkg/models"
	"github.com/sirupsen/logrus"
)

// Value pools for the categorical kapalo columns. The texts mirror what
// field geologists record in the tablet application.
var (
	planarTypeTexts = []string{"Foliation", "Joint", "Fault", "Shear zone", "Vein"}
	folTypeTexts    = []string{"S0", "S1", "S2"}
	linearTypeTexts = []string{"Mineral lineation", "Stretching lineation", "Fold axis", "Slickenside lineation"}
	hSenceTexts     = []string{"Dextral", "Sinistral"}
	rockNameTexts   = []string{"Granite", "Granodiorite", "Mica gneiss", "Amphibolite", "Mica schist", "Pegmatite"}
	textureTexts    = []string{"Massive", "Banded", "Foliated", "Porphyritic", "Gneissose"}
	mineralTexts    = []string{"Quartz", "Plagioclase", "K-feldspar", "Biotite", "Muscovite", "Hornblende", "Garnet"}
	alterationTexts = []string{"Fresh", "Weathered", "Sericitized", "Chloritized"}
)

// DemoGenerator generates a demo kapalo database with fake field observations
type DemoGenerator struct {
	Faker   faker.Faker
	Catalog *catalog.Catalog
	Clock   clockwork.Clock
	Rand    *rand.Rand
	Project string
	Logger  *logrus.Logger
}

// NewDemoGenerator creates a new demo data generator. The seed makes the
// generated values reproducible; observation identifiers are always fresh.
func NewDemoGenerator(cat *catalog.Catalog, seed int64, logger *logrus.Logger) *DemoGenerator {
	return &DemoGenerator{
		Faker:   faker.NewWithSeed(rand.NewSource(seed)),
		Catalog: cat,
		Clock:   clockwork.NewRealClock(),
		Rand:    rand.New(rand.NewSource(seed)),
		Project: "KAPALO-DEMO",
		Logger:  logger,
	}
}

// CreateTableSQL renders a CREATE TABLE statement for a table definition
func CreateTableSQL(table models.TableDef) string {
	columnDefs := make([]string, 0, len(table.Columns))
	for _, column := range table.Columns {
		columnDef := fmt.Sprintf("%s %s", column.Name, sqliteType(column.Type))
		if !column.Nullable {
			columnDef += " NOT NULL"
		}
		columnDefs = append(columnDefs, columnDef)
	}

	return fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (%s)",
		table.Name,
		strings.Join(columnDefs, ", "),
	)
}

// sqliteType maps a catalog column type to its SQLite storage class
func sqliteType(columnType models.ColumnType) string {
	switch columnType {
	case models.TypeInteger:
		return "INTEGER"
	case models.TypeReal:
		return "REAL"
	case models.TypeBlob, models.TypeGeometry:
		return "BLOB"
	default:
		return "TEXT"
	}
}

// CreateSchema creates all kapalo tables in the target database
func (dg *DemoGenerator) CreateSchema(db *connector.DatabaseConnector) error {
	for _, table := range dg.Catalog.Tables {
		if _, err := db.ExecuteStatement(CreateTableSQL(table)); err != nil {
			return fmt.Errorf("creating table %s: %w", table.Name, err)
		}
		dg.Logger.Debugf("Created table: %s", table.Name)
	}
	return nil
}

// GenerateDataset generates linked records for all kapalo tables. Children
// are attached to their parents through the same key columns the tablet
// application writes: OBSID for observation children, TM_GID for structure
// measurements and ROP_GID for rock observation details.
func (dg *DemoGenerator) GenerateDataset(numObservations int) map[string][]models.Record {
	dataset := make(map[string][]models.Record)
	for _, table := range dg.Catalog.Tables {
		dataset[table.Name] = []models.Record{}
	}

	pictureCount := 0
	sampleCount := 0

	for i := 0; i < numObservations; i++ {
		obsID := fmt.Sprintf("%s_%03d", dg.Project, i+1)
		lat := 60.5 + dg.Rand.Float64()*8.0
		lon := 21.0 + dg.Rand.Float64()*9.0

		dataset[catalog.TableObservations] = append(dataset[catalog.TableObservations], models.Record{
			catalog.GdbID:     uuid.NewString(),
			catalog.ObsID:     obsID,
			catalog.Project:   dg.Project,
			catalog.Observer:  dg.Faker.Person().Name(),
			catalog.ObsDate:   dg.observationDate(),
			catalog.Positsm:   int64(1),
			catalog.Reliab:    int64(dg.Rand.Intn(5) + 1),
			catalog.Location:  dg.Faker.Address().City(),
			catalog.Remarks:   dg.remarks(),
			catalog.Latitude:  lat,
			catalog.Longitude: lon,
			catalog.Geometry:  nil,
		})

		// The tablet writes one tectonic measurement container per observation
		for t := 0; t < dg.Rand.Intn(2); t++ {
			tmGid := uuid.NewString()
			dataset[catalog.TableTectonic] = append(dataset[catalog.TableTectonic], models.Record{
				catalog.GdbID:   tmGid,
				catalog.ObsID:   obsID,
				catalog.Remarks: "",
			})

			for p := 0; p < dg.Rand.Intn(3); p++ {
				dataset[catalog.TablePlanar] = append(dataset[catalog.TablePlanar], dg.planarRecord(tmGid))
			}
			for l := 0; l < dg.Rand.Intn(2); l++ {
				dataset[catalog.TableLinear] = append(dataset[catalog.TableLinear], dg.linearRecord(tmGid))
			}
		}

		for p := 0; p < dg.Rand.Intn(2); p++ {
			pictureCount++
			dataset[catalog.TableImages] = append(dataset[catalog.TableImages], models.Record{
				catalog.GdbID:     uuid.NewString(),
				catalog.ObsID:     obsID,
				catalog.PictureID: fmt.Sprintf("P_%04d", pictureCount),
				catalog.Remarks:   dg.Faker.Lorem().Sentence(3),
			})
		}

		for s := 0; s < dg.Rand.Intn(2); s++ {
			sampleCount++
			dataset[catalog.TableSamples] = append(dataset[catalog.TableSamples], models.Record{
				catalog.GdbID:     uuid.NewString(),
				catalog.ObsID:     obsID,
				catalog.SampleID:  fmt.Sprintf("S_%04d", sampleCount),
				catalog.FieldName: fmt.Sprintf("%s.%d", obsID, s+1),
				catalog.RockName:  dg.pick(rockNameTexts),
				catalog.Latitude:  lat,
				catalog.Longitude: lon,
				catalog.Geometry:  nil,
			})
		}

		for r := 0; r < dg.Rand.Intn(2); r++ {
			ropGid := uuid.NewString()
			dataset[catalog.TableRockObs] = append(dataset[catalog.TableRockObs], models.Record{
				catalog.GdbID:     ropGid,
				catalog.ObsID:     obsID,
				catalog.RockName:  dg.pick(rockNameTexts),
				catalog.FieldName: fmt.Sprintf("%s.%d", obsID, r+1),
				catalog.Remarks:   dg.remarks(),
			})

			for s := 0; s < dg.Rand.Intn(2); s++ {
				dataset[catalog.TableTextures] = append(dataset[catalog.TableTextures], models.Record{
					catalog.GdbID:  uuid.NewString(),
					catalog.RopGid: ropGid,
					catalog.St1:    dg.pick(textureTexts),
					catalog.St2:    dg.pick(textureTexts),
				})
			}
			for m := 0; m < dg.Rand.Intn(3); m++ {
				mineral := dg.Rand.Intn(len(mineralTexts))
				dataset[catalog.TableMinerals] = append(dataset[catalog.TableMinerals], models.Record{
					catalog.GdbID:       uuid.NewString(),
					catalog.RopGid:      ropGid,
					catalog.Mineral:     int64(mineral + 1),
					catalog.MineralText: mineralTexts[mineral],
					catalog.GrainSize:   dg.round1(dg.Rand.Float64() * 5.0),
				})
			}
			for a := 0; a < dg.Rand.Intn(2); a++ {
				alteration := dg.Rand.Intn(len(alterationTexts))
				dataset[catalog.TableAlterations] = append(dataset[catalog.TableAlterations], models.Record{
					catalog.GdbID:          uuid.NewString(),
					catalog.RopGid:         ropGid,
					catalog.Alteration:     int64(alteration + 1),
					catalog.AlterationText: alterationTexts[alteration],
				})
			}
		}
	}

	return dataset
}

// planarRecord generates a planar structure measurement for a tectonic measurement
func (dg *DemoGenerator) planarRecord(tmGid string) models.Record {
	stype := dg.Rand.Intn(len(planarTypeTexts))
	folType := dg.Rand.Intn(len(folTypeTexts))
	hSence := dg.Rand.Intn(len(hSenceTexts))

	return models.Record{
		catalog.GdbID:        uuid.NewString(),
		catalog.TmGid:        tmGid,
		catalog.Dip:          dg.round1(dg.Rand.Float64() * 90.0),
		catalog.DipDirection: dg.round1(dg.Rand.Float64() * 360.0),
		catalog.Stype:        strconv.Itoa(stype + 1),
		catalog.StypeText:    planarTypeTexts[stype],
		catalog.FolType:      strconv.Itoa(folType + 1),
		catalog.FolTypeText:  folTypeTexts[folType],
		catalog.HSence:       int64(hSence + 1),
		catalog.HSenceText:   hSenceTexts[hSence],
		catalog.Remarks:      "",
	}
}

// linearRecord generates a linear structure measurement for a tectonic measurement
func (dg *DemoGenerator) linearRecord(tmGid string) models.Record {
	stype := dg.Rand.Intn(len(linearTypeTexts))

	return models.Record{
		catalog.GdbID:     uuid.NewString(),
		catalog.TmGid:     tmGid,
		catalog.Direction: dg.round1(dg.Rand.Float64() * 360.0),
		catalog.Plunge:    dg.round1(dg.Rand.Float64() * 90.0),
		catalog.Stype:     strconv.Itoa(stype + 1),
		catalog.StypeText: linearTypeTexts[stype],
		catalog.Remarks:   "",
	}
}

// observationDate generates an observation timestamp within the last field season
func (dg *DemoGenerator) observationDate() string {
	days := dg.Rand.Intn(365)
	return dg.Clock.Now().AddDate(0, 0, -days).Format("2006-01-02 15:04:05")
}

// remarks generates a remarks value that is sometimes empty like real entries
func (dg *DemoGenerator) remarks() string {
	if dg.Rand.Float64() < 0.4 {
		return ""
	}
	return dg.Faker.Lorem().Sentence(6)
}

// pick returns a random value from a value pool
func (dg *DemoGenerator) pick(values []string) string {
	return values[dg.Rand.Intn(len(values))]
}

// round1 rounds to one decimal like the tablet application stores angles
func (dg *DemoGenerator) round1(value float64) float64 {
	return float64(int64(value*10.0)) / 10.0
}

// Populate inserts a generated dataset into the target database. Tables are
// inserted in dependency order so parents exist before their children.
func (dg *DemoGenerator) Populate(db *connector.DatabaseConnector, numObservations int) error {
	dataset := dg.GenerateDataset(numObservations)

	for _, tableName := range dg.Catalog.LoadOrder() {
		table, ok := dg.Catalog.Lookup(tableName)
		if !ok {
			return fmt.Errorf("unknown table in load order: %s", tableName)
		}

		records := dataset[tableName]
		if len(records) == 0 {
			dg.Logger.Debugf("No records generated for table: %s", tableName)
			continue
		}

		columnNames := table.ColumnNames()
		placeholders := make([]string, len(columnNames))
		for i := range placeholders {
			placeholders[i] = "?"
		}

		insertSQL := fmt.Sprintf(
			"INSERT INTO %s (%s) VALUES (%s)",
			table.Name,
			strings.Join(columnNames, ", "),
			strings.Join(placeholders, ", "),
		)

		paramsList := make([][]interface{}, 0, len(records))
		for _, record := range records {
			params := make([]interface{}, 0, len(columnNames))
			for _, columnName := range columnNames {
				params = append(params, record[columnName])
			}
			paramsList = append(paramsList, params)
		}

		inserted, err := db.ExecuteMany(insertSQL, paramsList)
		if err != nil {
			return fmt.Errorf("populating table %s: %w", table.Name, err)
		}
		dg.Logger.Infof("Inserted %d rows into table %s", inserted, table.Name)
	}

	return nil
}

// WriteDatabase creates a demo kapalo database at the given path
func (dg *DemoGenerator) WriteDatabase(path string, numObservations int) error {
	db := connector.NewWritableConnector(path, dg.Logger)
	if err := db.Connect(); err != nil {
		return err
	}
	defer db.Disconnect()

	if err := dg.CreateSchema(db); err != nil {
		return err
	}
	if err := dg.Populate(db, numObservations); err != nil {
		return err
	}

	dg.Logger.Infof("Wrote demo database with %d observations: %s", numObservations, path)
	return nil
}
