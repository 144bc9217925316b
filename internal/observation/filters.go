package observation

import (
	"math"

	"github.com/nialov/kapalo-go/pkg/models"
)

// FloatValue reads a numeric column from a record. SQLite stores whole
// numbers in REAL columns as integers, so both arrive here.
func FloatValue(record models.Record, column string) (float64, bool) {
	switch value := record[column].(type) {
	case float64:
		return value, true
	case int64:
		return float64(value), true
	default:
		return 0.0, false
	}
}

// StringValue reads a text column from a record, empty for NULL or
// non-text values
func StringValue(record models.Record, column string) string {
	if value, ok := record[column].(string); ok {
		return value
	}
	return ""
}

// inRange reports whether a record value is a number within [min, max].
// Non-numeric values and NaN are never in range.
func inRange(record models.Record, column string, min, max float64) bool {
	value, ok := FloatValue(record, column)
	if !ok || math.IsNaN(value) {
		return false
	}
	return min <= value && value <= max
}

// ValidDip reports whether a dip or plunge value lies in [0, 90]
func ValidDip(record models.Record, column string) bool {
	return inRange(record, column, 0.0, 90.0)
}

// ValidAzimuth reports whether an azimuth value lies in [0, 360]
func ValidAzimuth(record models.Record, column string) bool {
	return inRange(record, column, 0.0, 360.0)
}

// ApplyDeclination corrects an azimuth for magnetic declination and
// normalizes the result into [0, 360). Invalid input leaves the azimuth
// unchanged: azimuth outside [0, 360], declination outside [-360, 360],
// or either value NaN.
func ApplyDeclination(azimuth, declination float64) float64 {
	if math.IsNaN(azimuth) || math.IsNaN(declination) {
		return azimuth
	}
	if azimuth < 0.0 || azimuth > 360.0 {
		return azimuth
	}
	if declination < -360.0 || declination > 360.0 {
		return azimuth
	}

	result := math.Mod(azimuth+declination, 360.0)
	if result < 0.0 {
		result += 360.0
	}
	return result
}
