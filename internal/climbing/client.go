package climbing

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lox/cragweather/internal/httputil"
	"github.com/lox/cragweather/internal/models"
)

// API: https://api.climbingweather.com
// Sample requests:
//
//	https://api.climbingweather.com/country/USA/area
//	https://api.climbingweather.com/area/1234/forecast
const (
	DefaultBaseURL = "https://api.climbingweather.com"

	source = "climbingweather"

	// unknownCoordinate is what the directory reports for areas without a
	// surveyed location.
	unknownCoordinate = "None"
)

// Client talks to the climbing-area directory and forecast endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	loc        *time.Location
	recorder   httputil.Recorder
	logger     *slog.Logger
}

// NewClient creates a client. Forecast dates are interpreted in loc.
func NewClient(baseURL string, httpClient *http.Client, loc *time.Location, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = httputil.NewClient(0)
	}
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		loc:        loc,
		logger:     logger,
	}
}

// SetRecorder configures where fetch results are reported.
func (c *Client) SetRecorder(r httputil.Recorder) {
	c.recorder = r
}

// Areas returns every climbing area the directory lists for country.
func (c *Client) Areas(ctx context.Context, country string) ([]models.ClimbingArea, error) {
	result := c.startFetch("country/area", country)
	body, err := c.get(ctx, fmt.Sprintf("%s/country/%s/area", c.baseURL, url.PathEscape(country)), result)

	var areas []models.ClimbingArea
	if err == nil {
		areas, err = parseAreas(body, result)
	}
	c.finishFetch(result, err)
	if err != nil {
		return nil, fmt.Errorf("fetch areas for %s: %w", country, err)
	}

	c.logger.Debug("fetched climbing areas", "country", country, "count", len(areas), "unlocated", result.ParseErrors)
	return areas, nil
}

// Forecast returns the daily forecast for a climbing area.
func (c *Client) Forecast(ctx context.Context, areaID string) ([]models.ForecastDay, error) {
	result := c.startFetch("area/forecast", areaID)
	body, err := c.get(ctx, fmt.Sprintf("%s/area/%s/forecast", c.baseURL, url.PathEscape(areaID)), result)

	var days []models.ForecastDay
	if err == nil {
		days, err = parseForecast(body, c.loc, result)
	}
	c.finishFetch(result, err)
	if err != nil {
		return nil, fmt.Errorf("fetch forecast for area %s: %w", areaID, err)
	}

	if result.ParseErrors > 0 {
		c.logger.Warn("skipped forecast days", "area", areaID, "count", result.ParseErrors, "first", result.ParseError)
	}
	return days, nil
}

func (c *Client) startFetch(endpoint, subject string) *httputil.FetchResult {
	return &httputil.FetchResult{
		Source:    source,
		Endpoint:  endpoint,
		Subject:   subject,
		StartedAt: time.Now().UTC(),
	}
}

func (c *Client) finishFetch(result *httputil.FetchResult, err error) {
	result.Duration = time.Since(result.StartedAt)
	result.Error = err
	if c.recorder != nil {
		c.recorder.RecordFetch(result)
	}
}

func (c *Client) get(ctx context.Context, rawURL string, result *httputil.FetchResult) ([]byte, error) {
	c.logger.Debug("fetching", "url", rawURL)

	body, err := httputil.Get(ctx, c.httpClient, rawURL, result)
	if err != nil {
		return nil, err
	}
	if result.HTTPStatus != http.StatusOK {
		return nil, fmt.Errorf("status %d: %s", result.HTTPStatus, truncate(string(body), 200))
	}
	return body, nil
}

// parseAreas decodes the directory listing. Areas whose latitude or
// longitude is unknown are kept with a nil Coordinate and counted in
// result.ParseErrors.
func parseAreas(body []byte, result *httputil.FetchResult) ([]models.ClimbingArea, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("decode areas: invalid JSON")
	}
	list := gjson.ParseBytes(body)
	if !list.IsArray() {
		return nil, fmt.Errorf("decode areas: expected array, got %s", list.Type)
	}

	var areas []models.ClimbingArea
	list.ForEach(func(_, v gjson.Result) bool {
		area := models.ClimbingArea{
			ID:        v.Get("areaId").String(),
			Name:      v.Get("name").String(),
			AdminArea: v.Get("adminArea").String(),
		}

		lat, latOK := parseCoordinate(v.Get("latitude"))
		lon, lonOK := parseCoordinate(v.Get("longitude"))
		if latOK && lonOK {
			area.Coordinate = &models.Coordinate{Latitude: lat, Longitude: lon}
		} else {
			if result.ParseErrors == 0 {
				result.ParseError = fmt.Sprintf("area %s has no coordinates", area.ID)
			}
			result.ParseErrors++
		}

		areas = append(areas, area)
		return true
	})

	result.RecordCount = len(areas)
	return areas, nil
}

// parseCoordinate reports false for the "None" sentinel, null and anything
// parseNumber rejects.
func parseCoordinate(v gjson.Result) (float64, bool) {
	if v.Type == gjson.String && strings.TrimSpace(v.Str) == unknownCoordinate {
		return 0, false
	}
	return parseNumber(v)
}

var requiredDayFields = []string{"time", "temperatureHigh", "temperatureLow", "precipProbability", "windSpeed"}

// parseForecast decodes daily.data. Days missing a required field are
// skipped and counted as parse errors.
func parseForecast(body []byte, loc *time.Location, result *httputil.FetchResult) ([]models.ForecastDay, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("decode forecast: invalid JSON")
	}
	data := gjson.GetBytes(body, "daily.data")
	if !data.IsArray() {
		return nil, fmt.Errorf("decode forecast: missing daily.data")
	}

	var days []models.ForecastDay
	var parseErrors []string

	for i, d := range data.Array() {
		fields := make(map[string]float64, len(requiredDayFields))
		var missing string
		for _, name := range requiredDayFields {
			f, ok := parseNumber(d.Get(name))
			if !ok {
				missing = name
				break
			}
			fields[name] = f
		}
		if missing != "" {
			parseErrors = append(parseErrors, fmt.Sprintf("data[%d].%s missing or not numeric", i, missing))
			continue
		}

		days = append(days, models.ForecastDay{
			Date:              time.Unix(int64(fields["time"]), 0).In(loc),
			TemperatureHigh:   fields["temperatureHigh"],
			TemperatureLow:    fields["temperatureLow"],
			PrecipProbability: fields["precipProbability"],
			WindSpeed:         fields["windSpeed"],
		})
	}

	result.RecordCount = len(days)
	if len(parseErrors) > 0 {
		result.ParseErrors = len(parseErrors)
		result.ParseError = fmt.Sprintf("%d parse errors: %v", len(parseErrors), parseErrors[0])
	}
	return days, nil
}

// parseNumber accepts a JSON number or a numeric string. NaN and infinities
// are rejected.
func parseNumber(v gjson.Result) (float64, bool) {
	var f float64
	switch v.Type {
	case gjson.Number:
		f = v.Float()
	case gjson.String:
		var err error
		f, err = strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return 0, false
		}
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
