package proj

import "math"

// ETRS-TM35FIN (EPSG:3067) projection constants. The projection is a
// transverse Mercator on the GRS80 ellipsoid with a single wide zone
// covering all of Finland.
const (
	semiMajorAxis   = 6378137.0
	flattening      = 1.0 / 298.257222101
	centralMeridian = 27.0
	scaleFactor     = 0.9996
	falseEasting    = 500000.0
	falseNorthing   = 0.0
)

// Derived series constants, computed once at startup
var (
	thirdFlattening  = flattening / (2.0 - flattening)
	rectifyingRadius = semiMajorAxis / (1.0 + thirdFlattening) *
		(1.0 + thirdFlattening*thirdFlattening/4.0 +
			math.Pow(thirdFlattening, 4.0)/64.0)
	conformalFactor = 2.0 * math.Sqrt(thirdFlattening) / (1.0 + thirdFlattening)

	alpha = [3]float64{
		thirdFlattening/2.0 - 2.0*math.Pow(thirdFlattening, 2.0)/3.0 + 5.0*math.Pow(thirdFlattening, 3.0)/16.0,
		13.0*math.Pow(thirdFlattening, 2.0)/48.0 - 3.0*math.Pow(thirdFlattening, 3.0)/5.0,
		61.0 * math.Pow(thirdFlattening, 3.0) / 240.0,
	}
	beta = [3]float64{
		thirdFlattening/2.0 - 2.0*math.Pow(thirdFlattening, 2.0)/3.0 + 37.0*math.Pow(thirdFlattening, 3.0)/96.0,
		math.Pow(thirdFlattening, 2.0)/48.0 + math.Pow(thirdFlattening, 3.0)/15.0,
		17.0 * math.Pow(thirdFlattening, 3.0) / 480.0,
	}
	delta = [3]float64{
		2.0*thirdFlattening - 2.0*math.Pow(thirdFlattening, 2.0)/3.0 - 2.0*math.Pow(thirdFlattening, 3.0),
		7.0*math.Pow(thirdFlattening, 2.0)/3.0 - 8.0*math.Pow(thirdFlattening, 3.0)/5.0,
		56.0 * math.Pow(thirdFlattening, 3.0) / 15.0,
	}
)

// ToTM35FIN projects WGS84 coordinates to ETRS-TM35FIN easting and
// northing in meters. Latitude and longitude are in decimal degrees.
func ToTM35FIN(latitude, longitude float64) (x, y float64) {
	phi := latitude * math.Pi / 180.0
	lambdaDiff := (longitude - centralMeridian) * math.Pi / 180.0

	t := math.Sinh(
		math.Atanh(math.Sin(phi)) -
			conformalFactor*math.Atanh(conformalFactor*math.Sin(phi)),
	)
	xiPrime := math.Atan2(t, math.Cos(lambdaDiff))
	etaPrime := math.Atanh(math.Sin(lambdaDiff) / math.Sqrt(1.0+t*t))

	xi := xiPrime
	eta := etaPrime
	for j := 0; j < 3; j++ {
		harmonic := 2.0 * float64(j+1)
		xi += alpha[j] * math.Sin(harmonic*xiPrime) * math.Cosh(harmonic*etaPrime)
		eta += alpha[j] * math.Cos(harmonic*xiPrime) * math.Sinh(harmonic*etaPrime)
	}

	x = falseEasting + scaleFactor*rectifyingRadius*eta
	y = falseNorthing + scaleFactor*rectifyingRadius*xi
	return x, y
}

// FromTM35FIN converts ETRS-TM35FIN easting and northing in meters back
// to WGS84 latitude and longitude in decimal degrees.
func FromTM35FIN(x, y float64) (latitude, longitude float64) {
	xi := (y - falseNorthing) / (scaleFactor * rectifyingRadius)
	eta := (x - falseEasting) / (scaleFactor * rectifyingRadius)

	xiPrime := xi
	etaPrime := eta
	for j := 0; j < 3; j++ {
		harmonic := 2.0 * float64(j+1)
		xiPrime -= beta[j] * math.Sin(harmonic*xi) * math.Cosh(harmonic*eta)
		etaPrime -= beta[j] * math.Cos(harmonic*xi) * math.Sinh(harmonic*eta)
	}

	chi := math.Asin(math.Sin(xiPrime) / math.Cosh(etaPrime))
	phi := chi
	for j := 0; j < 3; j++ {
		harmonic := 2.0 * float64(j+1)
		phi += delta[j] * math.Sin(harmonic*chi)
	}

	latitude = phi * 180.0 / math.Pi
	longitude = centralMeridian + math.Atan2(math.Sinh(etaPrime), math.Cos(xiPrime))*180.0/math.Pi
	return latitude, longitude
}
