package geo

import (
	"math"
	"strconv"

	"github.com/lox/cragweather/internal/models"
)

// EarthRadiusMiles is the mean Earth radius used for all distances.
const EarthRadiusMiles = 3959

// Distance calculates the great-circle distance in miles between two
// coordinates using the haversine formula.
func Distance(a, b models.Coordinate) float64 {
	latA := radians(a.Latitude)
	latB := radians(b.Latitude)
	dLat := latB - latA
	dLon := radians(b.Longitude) - radians(a.Longitude)

	sinLat := math.Sin(dLat / 2)
	sinLon := math.Sin(dLon / 2)
	h := sinLat*sinLat + math.Cos(latA)*math.Cos(latB)*sinLon*sinLon

	c := 2 * math.Asin(math.Sqrt(h))

	return c * EarthRadiusMiles
}

// RoundMiles rounds a distance to 2 decimal places. Formatting gives a
// correctly rounded result for the exact binary value, which multiplying by
// 100 does not.
func RoundMiles(d float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(d, 'f', 2, 64), 64)
	if err != nil {
		return math.Round(d*100) / 100
	}
	return r
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
