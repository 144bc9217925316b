package exporter

import (
	"fmt"
	"math"
	"os"

	"github.com/nialov/kapalo-go/internal/catalog"
	"github.com/nialov/kapalo-go/internal/observation"
	"github.com/nialov/kapalo-go/pkg/models"
	"github.com/xitongsys/parquet-go/parquet"
	"github.com/xitongsys/parquet-go/writer"
)

// Row schemas for the Parquet renditions, one per export type. Field order
// matches the flattened CSV column order.
type planarParquetRow struct {
	Remarks      string  `parquet:"name=REMARKS,type=BYTE_ARRAY,convertedtype=UTF8"`
	Dip          float64 `parquet:"name=DIP,type=DOUBLE"`
	DipDirection float64 `parquet:"name=DIRECTION_OF_DIP,type=DOUBLE"`
	StypeText    string  `parquet:"name=STYPE_TEXT,type=BYTE_ARRAY,convertedtype=UTF8"`
	FolTypeText  string  `parquet:"name=FOL_TYPE_TEXT,type=BYTE_ARRAY,convertedtype=UTF8"`
	Stype        string  `parquet:"name=STYPE,type=BYTE_ARRAY,convertedtype=UTF8"`
	HSence       int64   `parquet:"name=H_SENCE,type=INT64"`
	HSenceText   string  `parquet:"name=H_SENCE_TEXT,type=BYTE_ARRAY,convertedtype=UTF8"`
	ObsID        string  `parquet:"name=OBSID,type=BYTE_ARRAY,convertedtype=UTF8"`
	Project      string  `parquet:"name=PROJECT,type=BYTE_ARRAY,convertedtype=UTF8"`
	Latitude     float64 `parquet:"name=latitude,type=DOUBLE"`
	Longitude    float64 `parquet:"name=longitude,type=DOUBLE"`
	X            float64 `parquet:"name=x,type=DOUBLE"`
	Y            float64 `parquet:"name=y,type=DOUBLE"`
}

type linearParquetRow struct {
	Remarks   string  `parquet:"name=REMARKS,type=BYTE_ARRAY,convertedtype=UTF8"`
	Direction float64 `parquet:"name=DIRECTION,type=DOUBLE"`
	Plunge    float64 `parquet:"name=PLUNGE,type=DOUBLE"`
	StypeText string  `parquet:"name=STYPE_TEXT,type=BYTE_ARRAY,convertedtype=UTF8"`
	Stype     string  `parquet:"name=STYPE,type=BYTE_ARRAY,convertedtype=UTF8"`
	ObsID     string  `parquet:"name=OBSID,type=BYTE_ARRAY,convertedtype=UTF8"`
	Project   string  `parquet:"name=PROJECT,type=BYTE_ARRAY,convertedtype=UTF8"`
	Latitude  float64 `parquet:"name=latitude,type=DOUBLE"`
	Longitude float64 `parquet:"name=longitude,type=DOUBLE"`
	X         float64 `parquet:"name=x,type=DOUBLE"`
	Y         float64 `parquet:"name=y,type=DOUBLE"`
}

type rockObsParquetRow struct {
	Remarks   string  `parquet:"name=REMARKS,type=BYTE_ARRAY,convertedtype=UTF8"`
	FieldName string  `parquet:"name=FIELD_NAME,type=BYTE_ARRAY,convertedtype=UTF8"`
	RockName  string  `parquet:"name=ROCK_NAME,type=BYTE_ARRAY,convertedtype=UTF8"`
	ObsID     string  `parquet:"name=OBSID,type=BYTE_ARRAY,convertedtype=UTF8"`
	Project   string  `parquet:"name=PROJECT,type=BYTE_ARRAY,convertedtype=UTF8"`
	Latitude  float64 `parquet:"name=latitude,type=DOUBLE"`
	Longitude float64 `parquet:"name=longitude,type=DOUBLE"`
	X         float64 `parquet:"name=x,type=DOUBLE"`
	Y         float64 `parquet:"name=y,type=DOUBLE"`
}

type imageParquetRow struct {
	PictureID  string  `parquet:"name=PICTURE_ID,type=BYTE_ARRAY,convertedtype=UTF8"`
	Remarks    string  `parquet:"name=REMARKS,type=BYTE_ARRAY,convertedtype=UTF8"`
	ObsID      string  `parquet:"name=OBSID,type=BYTE_ARRAY,convertedtype=UTF8"`
	ObsRemarks string  `parquet:"name=OBS_REMARKS,type=BYTE_ARRAY,convertedtype=UTF8"`
	Project    string  `parquet:"name=PROJECT,type=BYTE_ARRAY,convertedtype=UTF8"`
	Latitude   float64 `parquet:"name=latitude,type=DOUBLE"`
	Longitude  float64 `parquet:"name=longitude,type=DOUBLE"`
	X          float64 `parquet:"name=x,type=DOUBLE"`
	Y          float64 `parquet:"name=y,type=DOUBLE"`
}

type sampleParquetRow struct {
	SampleID  string  `parquet:"name=SAMPLEID,type=BYTE_ARRAY,convertedtype=UTF8"`
	FieldName string  `parquet:"name=FIELD_NAME,type=BYTE_ARRAY,convertedtype=UTF8"`
	ObsID     string  `parquet:"name=OBSID,type=BYTE_ARRAY,convertedtype=UTF8"`
	Remarks   string  `parquet:"name=REMARKS,type=BYTE_ARRAY,convertedtype=UTF8"`
	Project   string  `parquet:"name=PROJECT,type=BYTE_ARRAY,convertedtype=UTF8"`
	Latitude  float64 `parquet:"name=latitude,type=DOUBLE"`
	Longitude float64 `parquet:"name=longitude,type=DOUBLE"`
	X         float64 `parquet:"name=x,type=DOUBLE"`
	Y         float64 `parquet:"name=y,type=DOUBLE"`
}

// WriteParquet writes a flattened table as a SNAPPY compressed Parquet file
func WriteParquet(table observation.Table, typeName, path string) error {
	prototype, err := parquetPrototype(typeName)
	if err != nil {
		return err
	}

	file, err := os.Create(path)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	defer file.Close()

	pw, err := writer.NewParquetWriterFromWriter(file, prototype, 4)
	if err != nil {
		return &WriteError{Path: path, Err: err}
	}
	pw.CompressionType = parquet.CompressionCodec_SNAPPY

	for _, row := range table.Rows {
		if err := pw.Write(parquetRow(typeName, row)); err != nil {
			return &WriteError{Path: path, Err: err}
		}
	}
	if err := stopParquetWriter(pw); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	if err := file.Close(); err != nil {
		return &WriteError{Path: path, Err: err}
	}
	return nil
}

// stopParquetWriter finalizes the file, converting library panics to errors
func stopParquetWriter(pw *writer.ParquetWriter) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("parquet writer panic: %v", r)
		}
	}()
	return pw.WriteStop()
}

// parquetPrototype returns the schema prototype for one export type
func parquetPrototype(typeName string) (interface{}, error) {
	switch typeName {
	case PlanarType:
		return new(planarParquetRow), nil
	case LinearType:
		return new(linearParquetRow), nil
	case RockObsType:
		return new(rockObsParquetRow), nil
	case ImageType:
		return new(imageParquetRow), nil
	case SampleType:
		return new(sampleParquetRow), nil
	}
	return nil, fmt.Errorf("unknown export type: %s", typeName)
}

// parquetRow converts a flattened record into the typed row for its schema
func parquetRow(typeName string, row models.Record) interface{} {
	switch typeName {
	case PlanarType:
		return planarParquetRow{
			Remarks:      stringField(row, catalog.Remarks),
			Dip:          floatField(row, catalog.Dip),
			DipDirection: floatField(row, catalog.DipDirection),
			StypeText:    stringField(row, catalog.StypeText),
			FolTypeText:  stringField(row, catalog.FolTypeText),
			Stype:        stringField(row, catalog.Stype),
			HSence:       intField(row, catalog.HSence),
			HSenceText:   stringField(row, catalog.HSenceText),
			ObsID:        stringField(row, catalog.ObsID),
			Project:      stringField(row, catalog.Project),
			Latitude:     floatField(row, LatitudeColumn),
			Longitude:    floatField(row, LongitudeColumn),
			X:            floatField(row, XColumn),
			Y:            floatField(row, YColumn),
		}
	case LinearType:
		return linearParquetRow{
			Remarks:   stringField(row, catalog.Remarks),
			Direction: floatField(row, catalog.Direction),
			Plunge:    floatField(row, catalog.Plunge),
			StypeText: stringField(row, catalog.StypeText),
			Stype:     stringField(row, catalog.Stype),
			ObsID:     stringField(row, catalog.ObsID),
			Project:   stringField(row, catalog.Project),
			Latitude:  floatField(row, LatitudeColumn),
			Longitude: floatField(row, LongitudeColumn),
			X:         floatField(row, XColumn),
			Y:         floatField(row, YColumn),
		}
	case RockObsType:
		return rockObsParquetRow{
			Remarks:   stringField(row, catalog.Remarks),
			FieldName: stringField(row, catalog.FieldName),
			RockName:  stringField(row, catalog.RockName),
			ObsID:     stringField(row, catalog.ObsID),
			Project:   stringField(row, catalog.Project),
			Latitude:  floatField(row, LatitudeColumn),
			Longitude: floatField(row, LongitudeColumn),
			X:         floatField(row, XColumn),
			Y:         floatField(row, YColumn),
		}
	case ImageType:
		return imageParquetRow{
			PictureID:  stringField(row, catalog.PictureID),
			Remarks:    stringField(row, catalog.Remarks),
			ObsID:      stringField(row, catalog.ObsID),
			ObsRemarks: stringField(row, ObsRemarksColumn),
			Project:    stringField(row, catalog.Project),
			Latitude:   floatField(row, LatitudeColumn),
			Longitude:  floatField(row, LongitudeColumn),
			X:          floatField(row, XColumn),
			Y:          floatField(row, YColumn),
		}
	case SampleType:
		return sampleParquetRow{
			SampleID:  stringField(row, catalog.SampleID),
			FieldName: stringField(row, catalog.FieldName),
			ObsID:     stringField(row, catalog.ObsID),
			Remarks:   stringField(row, catalog.Remarks),
			Project:   stringField(row, catalog.Project),
			Latitude:  floatField(row, LatitudeColumn),
			Longitude: floatField(row, LongitudeColumn),
			X:         floatField(row, XColumn),
			Y:         floatField(row, YColumn),
		}
	}
	return nil
}

func stringField(row models.Record, column string) string {
	return observation.StringValue(row, column)
}

func floatField(row models.Record, column string) float64 {
	if value, ok := observation.FloatValue(row, column); ok {
		return value
	}
	return math.NaN()
}

func intField(row models.Record, column string) int64 {
	if value, ok := row[column].(int64); ok {
		return value
	}
	return 0
}
