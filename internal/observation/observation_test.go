package observation

import (
	"math"
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

func testCollections() []models.RecordCollection {
	return []models.RecordCollection{
		{
			Table: catalog.TableObservations,
			Rows: []models.Record{
				{
					catalog.ObsID:     "OBS1",
					catalog.Project:   "TEST",
					catalog.Latitude:  61.5,
					catalog.Longitude: 23.7,
					catalog.Remarks:   "Outcrop by the road",
				},
				{
					catalog.ObsID:     "OBS2",
					catalog.Project:   "OTHER",
					catalog.Latitude:  65.0,
					catalog.Longitude: 25.5,
					catalog.Remarks:   "",
				},
			},
		},
		{
			Table: catalog.TableTectonic,
			Rows: []models.Record{
				{catalog.GdbID: "TM1", catalog.ObsID: "OBS1"},
			},
		},
		{
			Table: catalog.TablePlanar,
			Rows: []models.Record{
				{
					catalog.TmGid: "TM1", catalog.Dip: 45.0, catalog.DipDirection: 90.0,
					catalog.StypeText: "Foliation", catalog.FolTypeText: "S1",
					catalog.Stype: "1", catalog.HSence: int64(1),
					catalog.HSenceText: "Dextral", catalog.Remarks: "",
				},
				{
					catalog.TmGid: "TM1", catalog.Dip: 75.0, catalog.DipDirection: 200.0,
					catalog.StypeText: "Joint", catalog.FolTypeText: "S2",
					catalog.Stype: "2", catalog.HSence: int64(2),
					catalog.HSenceText: "Sinistral", catalog.Remarks: "",
				},
				{
					catalog.TmGid: "TM1", catalog.Dip: 120.0, catalog.DipDirection: 90.0,
					catalog.StypeText: "Fault", catalog.FolTypeText: "S0",
					catalog.Stype: "3", catalog.HSence: nil,
					catalog.HSenceText: "", catalog.Remarks: "",
				},
			},
		},
		{
			Table: catalog.TableLinear,
			Rows: []models.Record{
				{
					catalog.TmGid: "TM1", catalog.Direction: 10.0, catalog.Plunge: 30.0,
					catalog.StypeText: "Mineral lineation", catalog.Stype: "1",
					catalog.Remarks: "",
				},
			},
		},
		{
			Table: catalog.TableImages,
			Rows: []models.Record{
				{catalog.ObsID: "OBS1", catalog.PictureID: "P_0001", catalog.Remarks: "Overview"},
				{catalog.ObsID: "OBS1", catalog.PictureID: "P_0002", catalog.Remarks: "Detail"},
			},
		},
		{
			Table: catalog.TableSamples,
			Rows: []models.Record{
				{catalog.ObsID: "OBS1", catalog.SampleID: "S_0001", catalog.FieldName: "OBS1.1"},
			},
		},
		{
			Table: catalog.TableRockObs,
			Rows: []models.Record{
				{
					catalog.GdbID: "ROP1", catalog.ObsID: "OBS1",
					catalog.RockName: "Granite", catalog.FieldName: "OBS1.1", catalog.Remarks: "",
				},
			},
		},
		{
			Table: catalog.TableTextures,
			Rows: []models.Record{
				{catalog.RopGid: "ROP1", catalog.St1: "Massive", catalog.St2: "Banded"},
			},
		},
		{
			Table: catalog.TableMinerals,
			Rows: []models.Record{
				{catalog.RopGid: "ROP1", catalog.MineralText: "Quartz", catalog.GrainSize: 1.5},
				{catalog.RopGid: "ROP1", catalog.MineralText: "Biotite", catalog.GrainSize: 0.5},
			},
		},
		{
			Table: catalog.TableAlterations,
			Rows: []models.Record{
				{catalog.RopGid: "ROP1", catalog.AlterationText: "Fresh"},
			},
		},
	}
}

func TestApplyDeclination(t *testing.T) {
	cases := []struct {
		azimuth     float64
		declination float64
		expected    float64
	}{
		{350.0, 20.0, 10.0},
		{10.0, -20.0, 350.0},
		{0.0, 0.0, 0.0},
		{90.0, 10.5, 100.5},
		{400.0, 10.0, 400.0},
		{90.0, 500.0, 90.0},
		{-5.0, 10.0, -5.0},
	}

	for _, c := range cases {
		result := ApplyDeclination(c.azimuth, c.declination)
		if math.Abs(result-c.expected) > 1e-9 {
			t.Errorf(
				"ApplyDeclination(%f, %f) = %f, expected %f",
				c.azimuth, c.declination, result, c.expected,
			)
		}
	}

	if !math.IsNaN(ApplyDeclination(math.NaN(), 10.0)) {
		t.Error("Expected NaN azimuth to stay NaN")
	}
	if ApplyDeclination(90.0, math.NaN()) != 90.0 {
		t.Error("Expected NaN declination to leave azimuth unchanged")
	}
}

func TestValidDip(t *testing.T) {
	cases := []struct {
		value    interface{}
		expected bool
	}{
		{45.0, true},
		{0.0, true},
		{90.0, true},
		{int64(30), true},
		{90.1, false},
		{-0.1, false},
		{"45", false},
		{nil, false},
		{math.NaN(), false},
	}

	for _, c := range cases {
		record := models.Record{catalog.Dip: c.value}
		if ValidDip(record, catalog.Dip) != c.expected {
			t.Errorf("ValidDip(%v) != %v", c.value, c.expected)
		}
	}
}

func TestValidAzimuth(t *testing.T) {
	record := models.Record{catalog.DipDirection: 360.0}
	if !ValidAzimuth(record, catalog.DipDirection) {
		t.Error("Expected 360 to be a valid azimuth")
	}
	record[catalog.DipDirection] = 360.1
	if ValidAzimuth(record, catalog.DipDirection) {
		t.Error("Expected 360.1 to be out of range")
	}
}

func TestGroupTables(t *testing.T) {
	groups := GroupTables(testCollections(), createTestLogger())

	// Check the result
	if len(groups.Observations) != 2 {
		t.Errorf("Expected 2 observation records, got %d", len(groups.Observations))
	}
	if len(groups.Tectonic["OBS1"]) != 1 {
		t.Errorf("Expected 1 tectonic record for OBS1, got %d", len(groups.Tectonic["OBS1"]))
	}
	if len(groups.Planars["TM1"]) != 3 {
		t.Errorf("Expected 3 planar records for TM1, got %d", len(groups.Planars["TM1"]))
	}
	if len(groups.Textures["ROP1"]) != 1 {
		t.Errorf("Expected 1 texture record for ROP1, got %d", len(groups.Textures["ROP1"]))
	}
	if len(groups.Tectonic["OBS2"]) != 0 {
		t.Errorf("Expected no tectonic records for OBS2, got %d", len(groups.Tectonic["OBS2"]))
	}
}

func TestGroupTablesDropsEmptyKeys(t *testing.T) {
	collections := []models.RecordCollection{
		{
			Table: catalog.TableTectonic,
			Rows: []models.Record{
				{catalog.GdbID: "TM1", catalog.ObsID: "OBS1"},
				{catalog.GdbID: "TM2", catalog.ObsID: nil},
			},
		},
	}

	groups := GroupTables(collections, createTestLogger())
	total := 0
	for _, records := range groups.Tectonic {
		total += len(records)
	}
	if total != 1 {
		t.Errorf("Expected records with no key to be dropped, got %d grouped", total)
	}
}

func TestAssemble(t *testing.T) {
	logger := createTestLogger()
	groups := GroupTables(testCollections(), logger)

	obs, err := Assemble(groups.Observations[0], groups, AssembleOptions{Declination: 10.0}, logger)
	if err != nil {
		t.Fatalf("Expected no error assembling observation, got %v", err)
	}

	if obs.ObsID != "OBS1" {
		t.Errorf("Expected observation id OBS1, got %s", obs.ObsID)
	}
	if obs.TmGid != "TM1" {
		t.Errorf("Expected tectonic measurement id TM1, got %s", obs.TmGid)
	}
	if obs.Project != "TEST" {
		t.Errorf("Expected project TEST, got %s", obs.Project)
	}

	// The out-of-range planar is dropped
	if len(obs.Planars.Rows) != 2 {
		t.Fatalf("Expected 2 planar rows, got %d", len(obs.Planars.Rows))
	}

	// Declination shifts dip directions
	first, _ := FloatValue(obs.Planars.Rows[0], catalog.DipDirection)
	second, _ := FloatValue(obs.Planars.Rows[1], catalog.DipDirection)
	if first != 100.0 || second != 210.0 {
		t.Errorf("Expected declination-corrected dip directions 100 and 210, got %f and %f", first, second)
	}

	if len(obs.Linears.Rows) != 1 {
		t.Fatalf("Expected 1 linear row, got %d", len(obs.Linears.Rows))
	}
	direction, _ := FloatValue(obs.Linears.Rows[0], catalog.Direction)
	if direction != 20.0 {
		t.Errorf("Expected declination-corrected direction 20, got %f", direction)
	}

	if len(obs.Images.Rows) != 2 {
		t.Errorf("Expected 2 image rows, got %d", len(obs.Images.Rows))
	}
	if len(obs.Samples.Rows) != 1 {
		t.Errorf("Expected 1 sample row, got %d", len(obs.Samples.Rows))
	}
	if len(obs.RockObservations.Rows) != 1 {
		t.Errorf("Expected 1 rock observation row, got %d", len(obs.RockObservations.Rows))
	}

	// Rock observation details are gathered through the rock observation point id
	if len(obs.Textures.Rows) != 1 {
		t.Errorf("Expected 1 texture row, got %d", len(obs.Textures.Rows))
	}
	if len(obs.Minerals.Rows) != 2 {
		t.Errorf("Expected 2 mineral rows, got %d", len(obs.Minerals.Rows))
	}
	if len(obs.Alterations.Rows) != 1 {
		t.Errorf("Expected 1 alteration row, got %d", len(obs.Alterations.Rows))
	}

	// The subset keeps only the wanted columns
	if _, present := obs.RockObservations.Rows[0][catalog.GdbID]; present {
		t.Error("Expected rock observation subset to drop the point id column")
	}
}

func TestAssembleWithoutChildren(t *testing.T) {
	logger := createTestLogger()
	groups := GroupTables(testCollections(), logger)

	obs, err := Assemble(groups.Observations[1], groups, AssembleOptions{}, logger)
	if err != nil {
		t.Fatalf("Expected no error assembling observation, got %v", err)
	}

	if obs.TmGid != "" {
		t.Errorf("Expected no tectonic measurement id, got %s", obs.TmGid)
	}
	if !obs.Planars.Empty() || !obs.Linears.Empty() || !obs.Images.Empty() {
		t.Error("Expected empty child tables for observation without children")
	}
}

func TestAssembleExceptions(t *testing.T) {
	logger := createTestLogger()
	collections := []models.RecordCollection{
		{
			Table: catalog.TableObservations,
			Rows: []models.Record{
				{catalog.ObsID: "WRONG", catalog.Latitude: 61.0, catalog.Longitude: 24.0},
			},
		},
		{
			Table: catalog.TableTectonic,
			Rows: []models.Record{
				{catalog.GdbID: "TM9", catalog.ObsID: "RIGHT"},
			},
		},
	}
	groups := GroupTables(collections, logger)

	opts := AssembleOptions{Exceptions: map[string]string{"WRONG": "RIGHT"}}
	obs, err := Assemble(groups.Observations[0], groups, opts, logger)
	if err != nil {
		t.Fatalf("Expected no error assembling observation, got %v", err)
	}

	// The recorded id stays while children resolve through the correction
	if obs.ObsID != "WRONG" {
		t.Errorf("Expected observation to keep its recorded id, got %s", obs.ObsID)
	}
	if obs.TmGid != "TM9" {
		t.Errorf("Expected corrected id to resolve tectonic measurement, got %q", obs.TmGid)
	}
}

func TestAssembleMultipleTectonicIDs(t *testing.T) {
	logger := createTestLogger()
	collections := []models.RecordCollection{
		{
			Table: catalog.TableObservations,
			Rows: []models.Record{
				{catalog.ObsID: "OBS1", catalog.Latitude: 61.0, catalog.Longitude: 24.0},
			},
		},
		{
			Table: catalog.TableTectonic,
			Rows: []models.Record{
				{catalog.GdbID: "TM1", catalog.ObsID: "OBS1"},
				{catalog.GdbID: "TM2", catalog.ObsID: "OBS1"},
			},
		},
	}
	groups := GroupTables(collections, logger)

	obs, err := Assemble(groups.Observations[0], groups, AssembleOptions{}, logger)
	if err != nil {
		t.Fatalf("Expected no error assembling observation, got %v", err)
	}
	if obs.TmGid != "" {
		t.Errorf("Expected ambiguous tectonic measurement to resolve to none, got %s", obs.TmGid)
	}
}

func TestAssembleMissingCoordinates(t *testing.T) {
	logger := createTestLogger()
	collections := []models.RecordCollection{
		{
			Table: catalog.TableObservations,
			Rows: []models.Record{
				{catalog.ObsID: "OBS1", catalog.Latitude: nil, catalog.Longitude: nil},
			},
		},
	}
	groups := GroupTables(collections, logger)

	obs, err := Assemble(groups.Observations[0], groups, AssembleOptions{}, logger)
	if err != nil {
		t.Fatalf("Expected no error assembling observation, got %v", err)
	}
	if !math.IsNaN(obs.Latitude) || !math.IsNaN(obs.Longitude) {
		t.Errorf("Expected missing coordinates to become NaN, got %f and %f", obs.Latitude, obs.Longitude)
	}
}

func TestAssembleAll(t *testing.T) {
	observations, err := AssembleAll(testCollections(), AssembleOptions{}, createTestLogger())
	if err != nil {
		t.Fatalf("Expected no error assembling observations, got %v", err)
	}
	if len(observations) != 2 {
		t.Errorf("Expected 2 observations, got %d", len(observations))
	}
}

func TestAssembleAllSkipsRecordsWithoutID(t *testing.T) {
	collections := []models.RecordCollection{
		{
			Table: catalog.TableObservations,
			Rows: []models.Record{
				{catalog.ObsID: "OBS1", catalog.Latitude: 61.0, catalog.Longitude: 24.0},
				{catalog.ObsID: nil, catalog.Latitude: 62.0, catalog.Longitude: 25.0},
			},
		},
	}

	observations, err := AssembleAll(collections, AssembleOptions{}, createTestLogger())
	if err != nil {
		t.Fatalf("Expected no error assembling observations, got %v", err)
	}
	if len(observations) != 1 {
		t.Errorf("Expected the record without an id to be skipped, got %d observations", len(observations))
	}
}

func TestAssembleAllNoObservationTable(t *testing.T) {
	collections := []models.RecordCollection{
		{Table: catalog.TableTectonic},
	}

	_, err := AssembleAll(collections, AssembleOptions{}, createTestLogger())
	if err == nil {
		t.Fatal("Expected error without an observation table, got nil")
	}
}
