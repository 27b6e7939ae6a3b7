package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/lox/cragweather/internal/httputil"
)

var (
	APICallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cragweather_api_calls_total",
			Help: "Total external API calls",
		},
		[]string{"source", "endpoint", "status"},
	)

	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "cragweather_api_latency_seconds",
			Help:    "External API call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source", "endpoint"},
	)

	RecordsParsed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cragweather_records_parsed_total",
			Help: "Total records decoded from API responses",
		},
		[]string{"source", "endpoint"},
	)

	ParseErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cragweather_parse_errors_total",
			Help: "Total records skipped while decoding API responses",
		},
		[]string{"source", "endpoint"},
	)

	NearbyAreas = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cragweather_nearby_areas",
			Help: "Climbing areas within the search radius in the last run",
		},
	)

	PlanEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cragweather_plan_entries",
			Help: "Good weekend days found in the last run",
		},
	)
)

// Recorder reports fetches to the package counters.
type Recorder struct{}

func (Recorder) RecordFetch(r *httputil.FetchResult) {
	APICallsTotal.WithLabelValues(r.Source, r.Endpoint, statusLabel(r)).Inc()
	APILatency.WithLabelValues(r.Source, r.Endpoint).Observe(r.Duration.Seconds())
	RecordsParsed.WithLabelValues(r.Source, r.Endpoint).Add(float64(r.RecordCount))
	ParseErrors.WithLabelValues(r.Source, r.Endpoint).Add(float64(r.ParseErrors))
}

func statusLabel(r *httputil.FetchResult) string {
	if r.HTTPStatus == 0 {
		return "error"
	}
	return strconv.Itoa(r.HTTPStatus)
}

// WriteTextfile writes every registered metric to path in the text format
// read by node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
