package webmap

import (
	"fmt"
	"math"

	"github.com/nialov/kapalo-go/internal/observation"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkb"
)

// GeoPackage geometry blobs start with a fixed header: the "GP" magic,
// a version byte, a flags byte and a 4 byte srs id. The flags envelope
// indicator decides how many envelope bytes sit between header and WKB.
const gpkgHeaderSize = 8

var gpkgEnvelopeSizes = [...]int{0, 32, 48, 48, 64}

// DecodeGeometry reads a point from a GeoPackage geometry blob
func DecodeGeometry(blob []byte) (orb.Point, error) {
	if len(blob) < gpkgHeaderSize || blob[0] != 'G' || blob[1] != 'P' {
		return orb.Point{}, fmt.Errorf("not a GeoPackage geometry blob")
	}

	flags := blob[3]
	envelopeCode := int(flags>>1) & 0x07
	if envelopeCode >= len(gpkgEnvelopeSizes) {
		return orb.Point{}, fmt.Errorf("invalid GeoPackage envelope indicator: %d", envelopeCode)
	}

	offset := gpkgHeaderSize + gpkgEnvelopeSizes[envelopeCode]
	if len(blob) <= offset {
		return orb.Point{}, fmt.Errorf("GeoPackage blob too short for its envelope")
	}

	geometry, err := wkb.Unmarshal(blob[offset:])
	if err != nil {
		return orb.Point{}, fmt.Errorf("decoding wkb: %w", err)
	}
	point, ok := geometry.(orb.Point)
	if !ok {
		return orb.Point{}, fmt.Errorf("expected a point geometry, got %T", geometry)
	}
	return point, nil
}

// MarkerLocation resolves marker coordinates for an observation. A stored
// GeoPackage blob takes precedence, the numeric coordinate columns are the
// fallback for databases without geometry blobs.
func MarkerLocation(obs observation.Observation) (latitude, longitude float64, err error) {
	if len(obs.Geometry) > 0 {
		if point, decodeErr := DecodeGeometry(obs.Geometry); decodeErr == nil {
			return point.Lat(), point.Lon(), nil
		}
	}
	if math.IsNaN(obs.Latitude) || math.IsNaN(obs.Longitude) {
		return 0, 0, &MapBuildError{ObsID: obs.ObsID, Reason: "no valid geometry"}
	}
	return obs.Latitude, obs.Longitude, nil
}
