package models

import "time"

type Coordinate struct {
	Latitude  float64
	Longitude float64
}

// ClimbingArea is a directory record. Coordinate is nil when the directory
// has no usable latitude/longitude for the area.
type ClimbingArea struct {
	ID         string
	Name       string
	AdminArea  string // state code, e.g. "CO"
	Coordinate *Coordinate
}

type RankedArea struct {
	Distance float64 // miles, rounded to 2 decimals
	Area     ClimbingArea
}

type ForecastDay struct {
	Date              time.Time
	TemperatureHigh   float64 // °F
	TemperatureLow    float64 // °F
	PrecipProbability float64 // 0..1
	WindSpeed         float64 // mph
}

type PlanEntry struct {
	Date      time.Time
	Distance  float64
	AreaName  string
	AdminArea string
}
