package planner

import (
	"time"

	"github.com/lox/cragweather/internal/models"
)

const (
	FlagNotWeekend = "not_weekend"
	FlagTooHot     = "too_hot"
	FlagTooCold    = "too_cold"
	FlagTooWet     = "too_wet"
	FlagTooWindy   = "too_windy"
)

// Criteria are the weather thresholds a day must meet to be climbable.
// All bounds are inclusive and a NaN reading never meets one.
type Criteria struct {
	MaxHighF             float64
	MinLowF              float64
	MaxPrecipProbability float64
	MaxWindMPH           float64
}

func DefaultCriteria() Criteria {
	return Criteria{
		MaxHighF:             82,
		MinLowF:              30,
		MaxPrecipProbability: 0.10,
		MaxWindMPH:           6,
	}
}

// Check returns the reasons day is rejected, or nil if it qualifies.
func (c Criteria) Check(day models.ForecastDay) []string {
	var flags []string

	if !IsWeekend(day.Date) {
		flags = append(flags, FlagNotWeekend)
	}
	if !(day.TemperatureHigh <= c.MaxHighF) {
		flags = append(flags, FlagTooHot)
	}
	if !(day.TemperatureLow >= c.MinLowF) {
		flags = append(flags, FlagTooCold)
	}
	if !(day.PrecipProbability <= c.MaxPrecipProbability) {
		flags = append(flags, FlagTooWet)
	}
	if !(day.WindSpeed <= c.MaxWindMPH) {
		flags = append(flags, FlagTooWindy)
	}

	return flags
}

func (c Criteria) Allows(day models.ForecastDay) bool {
	return len(c.Check(day)) == 0
}

func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
