package catalog

import (
	"github.com/nialov/kapalo-go/pkg/models"
)

// Table names in kapalo.sqlite
const (
	TableObservations = "Observation"
	TableTectonic     = "Tectonic_measurement"
	TablePlanar       = "BFDS_Planar_structure"
	TableLinear       = "BFDS_Linear_structure"
	TableRockObs      = "Rock_observation_point"
	TableImages       = "Outcrop_picture"
	TableSamples      = "Sample"
	TableTextures     = "BFDS_SaT"
	TableMinerals     = "BFDS_Mineral"
	TableAlterations  = "BFDS_Mineral_alteration"
)

// Column names in kapalo.sqlite tables
const (
	ObsID          = "OBSID"
	GdbID          = "GDB_ID"
	TmGid          = "TM_GID"
	RopGid         = "ROP_GID"
	Dip            = "DIP"
	DipDirection   = "DIRECTION_OF_DIP"
	Direction      = "DIRECTION"
	Plunge         = "PLUNGE"
	PictureID      = "PICTURE_ID"
	Project        = "PROJECT"
	Latitude       = "LAT"
	Longitude      = "LON"
	Remarks        = "REMARKS"
	StypeText      = "STYPE_TEXT"
	FolTypeText    = "FOL_TYPE_TEXT"
	FieldName      = "FIELD_NAME"
	SampleID       = "SAMPLEID"
	FolType        = "F_TYPE"
	Stype          = "STYPE"
	RockName       = "ROCK_NAME"
	St1            = "ST_1"
	St2            = "ST_2"
	HSence         = "H_SENCE"
	HSenceText     = "H_SENCE_TEXT"
	Geometry       = "GEOM"
	Observer       = "OBSERVER"
	ObsDate        = "OBSDATE"
	Positsm        = "POSITSM"
	Reliab         = "RELIAB"
	Location       = "LOCATION"
	Mineral        = "MINERAL"
	MineralText    = "MINERAL_TEXT"
	GrainSize      = "GRAIN_SIZE"
	Alteration     = "ALTERATION"
	AlterationText = "ALTERATION_TEXT"
)

// kapaloTables returns the static schema of a kapalo.sqlite database.
// Parents are listed before children.
func kapaloTables() []models.TableDef {
	return []models.TableDef{
		{
			Name:     TableObservations,
			Category: models.Root,
			Columns: []models.Column{
				{Name: GdbID, Type: models.TypeText},
				{Name: ObsID, Type: models.TypeText},
				{Name: Project, Type: models.TypeText},
				{Name: Observer, Type: models.TypeText, Nullable: true},
				{Name: ObsDate, Type: models.TypeText, Nullable: true},
				{Name: Positsm, Type: models.TypeInteger, Nullable: true},
				{Name: Reliab, Type: models.TypeInteger, Nullable: true},
				{Name: Location, Type: models.TypeText, Nullable: true},
				{Name: Remarks, Type: models.TypeText, Nullable: true},
				{Name: Latitude, Type: models.TypeReal, Nullable: true},
				{Name: Longitude, Type: models.TypeReal, Nullable: true},
				{Name: Geometry, Type: models.TypeGeometry, Nullable: true},
			},
		},
		{
			Name:     TableTectonic,
			Category: models.ObservationChild,
			Link:     &models.LinkRule{Column: ObsID, ParentTable: TableObservations, ParentColumn: ObsID},
			Columns: []models.Column{
				{Name: GdbID, Type: models.TypeText},
				{Name: ObsID, Type: models.TypeText},
				{Name: Remarks, Type: models.TypeText, Nullable: true},
			},
		},
		{
			Name:     TablePlanar,
			Category: models.MeasurementChild,
			Link:     &models.LinkRule{Column: TmGid, ParentTable: TableTectonic, ParentColumn: GdbID},
			Columns: []models.Column{
				{Name: GdbID, Type: models.TypeText},
				{Name: TmGid, Type: models.TypeText},
				{Name: Dip, Type: models.TypeReal},
				{Name: DipDirection, Type: models.TypeReal},
				{Name: Stype, Type: models.TypeText, Nullable: true},
				{Name: StypeText, Type: models.TypeText, Nullable: true},
				{Name: FolType, Type: models.TypeText, Nullable: true},
				{Name: FolTypeText, Type: models.TypeText, Nullable: true},
				{Name: HSence, Type: models.TypeInteger, Nullable: true},
				{Name: HSenceText, Type: models.TypeText, Nullable: true},
				{Name: Remarks, Type: models.TypeText, Nullable: true},
			},
		},
		{
			Name:     TableLinear,
			Category: models.MeasurementChild,
			Link:     &models.LinkRule{Column: TmGid, ParentTable: TableTectonic, ParentColumn: GdbID},
			Columns: []models.Column{
				{Name: GdbID, Type: models.TypeText},
				{Name: TmGid, Type: models.TypeText},
				{Name: Direction, Type: models.TypeReal},
				{Name: Plunge, Type: models.TypeReal},
				{Name: Stype, Type: models.TypeText, Nullable: true},
				{Name: StypeText, Type: models.TypeText, Nullable: true},
				{Name: Remarks, Type: models.TypeText, Nullable: true},
			},
		},
		{
			Name:     TableImages,
			Category: models.ObservationChild,
			Link:     &models.LinkRule{Column: ObsID, ParentTable: TableObservations, ParentColumn: ObsID},
			Columns: []models.Column{
				{Name: GdbID, Type: models.TypeText},
				{Name: ObsID, Type: models.TypeText},
				{Name: PictureID, Type: models.TypeText},
				{Name: Remarks, Type: models.TypeText, Nullable: true},
			},
		},
		{
			Name:     TableSamples,
			Category: models.ObservationChild,
			Link:     &models.LinkRule{Column: ObsID, ParentTable: TableObservations, ParentColumn: ObsID},
			Columns: []models.Column{
				{Name: GdbID, Type: models.TypeText},
				{Name: ObsID, Type: models.TypeText},
				{Name: SampleID, Type: models.TypeText},
				{Name: FieldName, Type: models.TypeText, Nullable: true},
				{Name: RockName, Type: models.TypeText, Nullable: true},
				{Name: Latitude, Type: models.TypeReal, Nullable: true},
				{Name: Longitude, Type: models.TypeReal, Nullable: true},
				{Name: Geometry, Type: models.TypeGeometry, Nullable: true},
			},
		},
		{
			Name:     TableRockObs,
			Category: models.ObservationChild,
			Link:     &models.LinkRule{Column: ObsID, ParentTable: TableObservations, ParentColumn: ObsID},
			Columns: []models.Column{
				{Name: GdbID, Type: models.TypeText},
				{Name: ObsID, Type: models.TypeText},
				{Name: RockName, Type: models.TypeText, Nullable: true},
				{Name: FieldName, Type: models.TypeText, Nullable: true},
				{Name: Remarks, Type: models.TypeText, Nullable: true},
			},
		},
		{
			Name:     TableTextures,
			Category: models.RockChild,
			Link:     &models.LinkRule{Column: RopGid, ParentTable: TableRockObs, ParentColumn: GdbID},
			Columns: []models.Column{
				{Name: GdbID, Type: models.TypeText},
				{Name: RopGid, Type: models.TypeText},
				{Name: St1, Type: models.TypeText, Nullable: true},
				{Name: St2, Type: models.TypeText, Nullable: true},
			},
		},
		{
			Name:     TableMinerals,
			Category: models.RockChild,
			Link:     &models.LinkRule{Column: RopGid, ParentTable: TableRockObs, ParentColumn: GdbID},
			Columns: []models.Column{
				{Name: GdbID, Type: models.TypeText},
				{Name: RopGid, Type: models.TypeText},
				{Name: Mineral, Type: models.TypeInteger, Nullable: true},
				{Name: MineralText, Type: models.TypeText, Nullable: true},
				{Name: GrainSize, Type: models.TypeReal, Nullable: true},
			},
		},
		{
			Name:     TableAlterations,
			Category: models.RockChild,
			Link:     &models.LinkRule{Column: RopGid, ParentTable: TableRockObs, ParentColumn: GdbID},
			Columns: []models.Column{
				{Name: GdbID, Type: models.TypeText},
				{Name: RopGid, Type: models.TypeText},
				{Name: Alteration, Type: models.TypeInteger, Nullable: true},
				{Name: AlterationText, Type: models.TypeText, Nullable: true},
			},
		},
	}
}
