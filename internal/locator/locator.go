package locator

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strconv"

	"github.com/lox/cragweather/internal/geo"
	"github.com/lox/cragweather/internal/models"
)

const (
	// Country is the only directory scope searched.
	Country = "USA"

	DefaultRadiusMiles = 150.0
)

// AreaSource lists climbing areas for a country.
type AreaSource interface {
	Areas(ctx context.Context, country string) ([]models.ClimbingArea, error)
}

// Locator finds climbing areas near a coordinate.
type Locator struct {
	source AreaSource
	radius float64
	logger *slog.Logger
}

func New(source AreaSource, radiusMiles float64, logger *slog.Logger) *Locator {
	if radiusMiles <= 0 {
		radiusMiles = DefaultRadiusMiles
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Locator{source: source, radius: radiusMiles, logger: logger}
}

// Nearby fetches the directory once and returns the areas within the radius
// of origin, nearest first. A directory failure is returned as-is; there are
// no partial results.
func (l *Locator) Nearby(ctx context.Context, origin models.Coordinate) ([]models.RankedArea, error) {
	areas, err := l.source.Areas(ctx, Country)
	if err != nil {
		return nil, fmt.Errorf("list climbing areas: %w", err)
	}

	ranked := Rank(origin, areas, l.radius)
	l.logger.Info("ranked climbing areas", "total", len(areas), "nearby", len(ranked), "radius_miles", l.radius)
	return ranked, nil
}

// Rank returns the areas with known coordinates whose rounded distance from
// origin is at most radius, ordered by distance, then ID, name and admin area.
func Rank(origin models.Coordinate, areas []models.ClimbingArea, radius float64) []models.RankedArea {
	var ranked []models.RankedArea
	for _, area := range areas {
		if area.Coordinate == nil {
			continue
		}

		dist := geo.RoundMiles(geo.Distance(origin, *area.Coordinate))
		if !(dist <= radius) {
			continue
		}
		ranked = append(ranked, models.RankedArea{Distance: dist, Area: area})
	}

	sort.Slice(ranked, func(i, j int) bool {
		return less(ranked[i], ranked[j])
	})
	return ranked
}

func less(a, b models.RankedArea) bool {
	if a.Distance != b.Distance {
		return a.Distance < b.Distance
	}
	if c := compareIDs(a.Area.ID, b.Area.ID); c != 0 {
		return c < 0
	}
	if a.Area.Name != b.Area.Name {
		return a.Area.Name < b.Area.Name
	}
	return a.Area.AdminArea < b.Area.AdminArea
}

// compareIDs orders numeric IDs by value so "9" sorts before "10"; anything
// else falls back to string order.
func compareIDs(a, b string) int {
	ai, errA := strconv.ParseInt(a, 10, 64)
	bi, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		return cmp.Compare(ai, bi)
	}
	return cmp.Compare(a, b)
}
