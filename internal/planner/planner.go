package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/lox/cragweather/internal/models"
)

// DefaultMaxEntries caps the plan. The cap is checked before each area, so
// an area with several good days can push the plan past it.
const DefaultMaxEntries = 5

// ErrGeocode wraps every geocoding failure. It is recoverable: the run stops
// without querying the directory or any forecast.
var ErrGeocode = errors.New("geocode failed")

type Geocoder interface {
	Forward(ctx context.Context, query string) (models.Coordinate, error)
}

type AreaFinder interface {
	Nearby(ctx context.Context, origin models.Coordinate) ([]models.RankedArea, error)
}

type ForecastSource interface {
	Forecast(ctx context.Context, areaID string) ([]models.ForecastDay, error)
}

// Result summarises a completed run.
type Result struct {
	Origin       models.Coordinate
	NearbyAreas  int
	AreasChecked int
	Plan         []models.PlanEntry
}

// Planner runs the geocode, locate, forecast pipeline sequentially.
type Planner struct {
	geocoder   Geocoder
	areas      AreaFinder
	forecasts  ForecastSource
	criteria   Criteria
	maxEntries int
	logger     *slog.Logger
}

func New(geocoder Geocoder, areas AreaFinder, forecasts ForecastSource, logger *slog.Logger) *Planner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Planner{
		geocoder:   geocoder,
		areas:      areas,
		forecasts:  forecasts,
		criteria:   DefaultCriteria(),
		maxEntries: DefaultMaxEntries,
		logger:     logger,
	}
}

func (p *Planner) SetCriteria(c Criteria) {
	p.criteria = c
}

func (p *Planner) SetMaxEntries(n int) {
	if n > 0 {
		p.maxEntries = n
	}
}

// Run plans a weekend around postalCode. Geocoding failures are returned
// wrapped in ErrGeocode; directory and forecast failures abort the run and
// are returned as-is.
func (p *Planner) Run(ctx context.Context, postalCode string) (*Result, error) {
	origin, err := p.geocoder.Forward(ctx, postalCode)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGeocode, err)
	}
	p.logger.Info("geocoded postal code", "postal_code", postalCode, "lat", origin.Latitude, "lon", origin.Longitude)

	ranked, err := p.areas.Nearby(ctx, origin)
	if err != nil {
		return nil, err
	}

	result := &Result{Origin: origin, NearbyAreas: len(ranked)}
	result.Plan, result.AreasChecked, err = p.filter(ctx, ranked)
	if err != nil {
		return nil, err
	}
	return result, nil
}

// Filter walks ranked nearest first and collects the days that meet the
// criteria.
func (p *Planner) Filter(ctx context.Context, ranked []models.RankedArea) ([]models.PlanEntry, error) {
	plan, _, err := p.filter(ctx, ranked)
	return plan, err
}

func (p *Planner) filter(ctx context.Context, ranked []models.RankedArea) ([]models.PlanEntry, int, error) {
	var plan []models.PlanEntry
	checked := 0

	for len(plan) < p.maxEntries && checked < len(ranked) {
		ra := ranked[checked]
		checked++

		days, err := p.forecasts.Forecast(ctx, ra.Area.ID)
		if err != nil {
			return nil, checked, fmt.Errorf("forecast for %s (%s): %w", ra.Area.Name, ra.Area.ID, err)
		}

		// Every good day of this area goes in, even past maxEntries.
		for _, day := range days {
			if flags := p.criteria.Check(day); len(flags) > 0 {
				p.logger.Debug("day rejected", "area", ra.Area.Name, "date", day.Date.Format("2006-01-02"), "flags", flags)
				continue
			}
			plan = append(plan, models.PlanEntry{
				Date:      day.Date,
				Distance:  ra.Distance,
				AreaName:  ra.Area.Name,
				AdminArea: ra.Area.AdminArea,
			})
		}
	}

	p.logger.Info("forecasts checked", "areas", checked, "plan_entries", len(plan))
	return plan, checked, nil
}
