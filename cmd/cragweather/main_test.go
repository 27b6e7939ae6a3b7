package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alecthomas/kong"

	"github.com/lox/cragweather/internal/prompt"
	"github.com/lox/cragweather/internal/report"
	"github.com/lox/cragweather/internal/store"
)

// Latitudes due south of Boulder (40.00, -105.27) at 150.00 and 151.00 miles.
const (
	lat150 = "37.82915712882992"
	lat151 = "37.81468484302212"
)

// 2026-07-04 12:00 UTC, a Saturday.
var saturdayNoon = time.Date(2026, 7, 4, 12, 0, 0, 0, time.UTC).Unix()

type fakeAPIs struct {
	geocodeBody   string
	geocodeStatus int
	areasBody     string
	areasStatus   int
	forecasts     map[string]string

	mu       sync.Mutex
	requests []string
}

func (f *fakeAPIs) handler(t *testing.T) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.requests = append(f.requests, r.URL.Path)
		f.mu.Unlock()

		switch {
		case r.URL.Path == "/v1/forward":
			if f.geocodeStatus != 0 {
				w.WriteHeader(f.geocodeStatus)
			}
			io.WriteString(w, f.geocodeBody)
		case r.URL.Path == "/country/USA/area":
			if f.areasStatus != 0 {
				w.WriteHeader(f.areasStatus)
			}
			io.WriteString(w, f.areasBody)
		case strings.HasPrefix(r.URL.Path, "/area/"):
			id := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/area/"), "/forecast")
			body, ok := f.forecasts[id]
			if !ok {
				http.NotFound(w, r)
				return
			}
			io.WriteString(w, body)
		default:
			t.Errorf("unexpected request %s", r.URL.Path)
			http.NotFound(w, r)
		}
	})
}

func (f *fakeAPIs) count(prefix string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, p := range f.requests {
		if strings.HasPrefix(p, prefix) {
			n++
		}
	}
	return n
}

func newCLI(srv *httptest.Server) *CLI {
	return &CLI{
		APIKey:      "test-key",
		Radius:      150,
		Limit:       5,
		TZ:          "UTC",
		Timeout:     5 * time.Second,
		GeocodeURL:  srv.URL + "/v1/forward",
		ClimbingURL: srv.URL,
	}
}

func run(t *testing.T, cli *CLI) (string, error) {
	t.Helper()
	var out bytes.Buffer
	err := cli.Run(context.Background(), NewLogger(io.Discard, "debug", "text"), prompt.Static("80302"), &out)
	return out.String(), err
}

const boulder = `{"data":[{"latitude":40.0,"longitude":-105.27,"label":"Boulder, CO, USA"}]}`

func forecastJSON(days ...string) string {
	return `{"daily":{"data":[` + strings.Join(days, ",") + `]}}`
}

func day(ts int64, high, low, precip, wind float64) string {
	return fmt.Sprintf(`{"time":%d,"temperatureHigh":%v,"temperatureLow":%v,"precipProbability":%v,"windSpeed":%v}`, ts, high, low, precip, wind)
}

func TestRun_AreaAtRadiusWithGoodSaturday(t *testing.T) {
	apis := &fakeAPIs{
		geocodeBody: boulder,
		areasBody:   `[{"areaId":1,"name":"Shelf Road","adminArea":"CO","latitude":"` + lat150 + `","longitude":"-105.27"}]`,
		forecasts: map[string]string{
			"1": forecastJSON(
				day(saturdayNoon-86400, 75, 40, 0.05, 3), // Friday
				day(saturdayNoon, 75, 40, 0.05, 3),
				day(saturdayNoon+86400, 90, 40, 0.05, 3), // too hot Sunday
			),
		},
	}
	srv := httptest.NewServer(apis.handler(t))
	defer srv.Close()

	out, err := run(t, newCLI(srv))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := "Shelf Road, CO (distance: 150.0 miles) is good on Jul-04 (Sat)\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
}

func TestRun_AreaPastRadiusNeverQueried(t *testing.T) {
	apis := &fakeAPIs{
		geocodeBody: boulder,
		areasBody:   `[{"areaId":2,"name":"Too Far","adminArea":"CO","latitude":"` + lat151 + `","longitude":"-105.27"}]`,
		forecasts:   map[string]string{"2": forecastJSON(day(saturdayNoon, 75, 40, 0.05, 3))},
	}
	srv := httptest.NewServer(apis.handler(t))
	defer srv.Close()

	out, err := run(t, newCLI(srv))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != report.NoGoodTime+"\n" {
		t.Errorf("output = %q, want %q", out, report.NoGoodTime)
	}
	if n := apis.count("/area/"); n != 0 {
		t.Errorf("forecast requested %d times, want 0", n)
	}
}

func TestRun_GeocodeErrorPayload(t *testing.T) {
	apis := &fakeAPIs{
		geocodeStatus: http.StatusUnauthorized,
		geocodeBody:   `{"error":{"code":"invalid_access_key","message":"You have not supplied a valid API Access Key."}}`,
	}
	srv := httptest.NewServer(apis.handler(t))
	defer srv.Close()

	out, err := run(t, newCLI(srv))
	if err != nil {
		t.Fatalf("geocoding failure should not be fatal: %v", err)
	}

	want := "Error! You have not supplied a valid API Access Key.\n" + report.NoDestinations + "\n"
	if out != want {
		t.Errorf("output = %q, want %q", out, want)
	}
	if n := apis.count("/country/") + apis.count("/area/"); n != 0 {
		t.Errorf("made %d directory/forecast requests after geocoding failed", n)
	}
}

func TestRun_AllAreasUnlocated(t *testing.T) {
	apis := &fakeAPIs{
		geocodeBody: boulder,
		areasBody: `[
			{"areaId":1,"name":"A","adminArea":"CO","latitude":"None","longitude":"None"},
			{"areaId":2,"name":"B","adminArea":"UT","latitude":"None","longitude":"None"}
		]`,
	}
	srv := httptest.NewServer(apis.handler(t))
	defer srv.Close()

	out, err := run(t, newCLI(srv))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out != report.NoGoodTime+"\n" {
		t.Errorf("output = %q, want %q", out, report.NoGoodTime)
	}
	if n := apis.count("/area/"); n != 0 {
		t.Errorf("forecast requested %d times, want 0", n)
	}
}

func TestRun_DirectoryFailureIsFatal(t *testing.T) {
	apis := &fakeAPIs{
		geocodeBody: boulder,
		areasStatus: http.StatusInternalServerError,
		areasBody:   `oops`,
	}
	srv := httptest.NewServer(apis.handler(t))
	defer srv.Close()

	out, err := run(t, newCLI(srv))
	if err == nil || !strings.Contains(err.Error(), "status 500") {
		t.Fatalf("err = %v, want status 500", err)
	}
	if out != "" {
		t.Errorf("expected no report output, got %q", out)
	}
}

func TestRun_ForecastFailureIsFatal(t *testing.T) {
	apis := &fakeAPIs{
		geocodeBody: boulder,
		areasBody:   `[{"areaId":3,"name":"Eldorado Canyon","adminArea":"CO","latitude":"39.9314","longitude":"-105.2839"}]`,
		forecasts:   map[string]string{},
	}
	srv := httptest.NewServer(apis.handler(t))
	defer srv.Close()

	if _, err := run(t, newCLI(srv)); err == nil || !strings.Contains(err.Error(), "Eldorado Canyon") {
		t.Fatalf("err = %v, want forecast failure for Eldorado Canyon", err)
	}
}

func TestRun_RecordsFetchLog(t *testing.T) {
	apis := &fakeAPIs{
		geocodeBody: boulder,
		areasBody:   `[{"areaId":3,"name":"Eldorado Canyon","adminArea":"CO","latitude":"39.9314","longitude":"-105.2839"}]`,
		forecasts:   map[string]string{"3": forecastJSON(day(saturdayNoon, 75, 40, 0.05, 3))},
	}
	srv := httptest.NewServer(apis.handler(t))
	defer srv.Close()

	dir := t.TempDir()
	cli := newCLI(srv)
	cli.DB = filepath.Join(dir, "fetches.db")
	cli.MetricsFile = filepath.Join(dir, "cragweather.prom")

	start := time.Now().Add(-time.Second)
	out, err := run(t, cli)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !strings.Contains(out, "Eldorado Canyon, CO (distance: ") {
		t.Errorf("unexpected output %q", out)
	}

	st, err := store.Open(cli.DB, nil)
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	defer st.Close()

	runs, err := st.FetchRunsSince(start)
	if err != nil {
		t.Fatalf("FetchRunsSince: %v", err)
	}
	var endpoints []string
	for _, r := range runs {
		endpoints = append(endpoints, r.Endpoint)
		if !r.Success {
			t.Errorf("fetch %s recorded as failed: %+v", r.Endpoint, r)
		}
	}
	if got := strings.Join(endpoints, ","); got != "v1/forward,country/area,area/forecast" {
		t.Errorf("recorded endpoints %s", got)
	}
}

func TestCLI_Validate(t *testing.T) {
	tests := []struct {
		name    string
		radius  float64
		limit   int
		wantErr string
	}{
		{name: "defaults", radius: 150, limit: 5},
		{name: "zero radius", radius: 0, limit: 5, wantErr: "--radius"},
		{name: "negative radius", radius: -10, limit: 5, wantErr: "--radius"},
		{name: "zero limit", radius: 150, limit: 0, wantErr: "--limit"},
		{name: "negative limit", radius: 150, limit: -1, wantErr: "--limit"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli := &CLI{Radius: tt.radius, Limit: tt.limit}
			err := cli.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("err = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestParse_RejectsNonPositiveLimit(t *testing.T) {
	var cli CLI
	parser, err := kong.New(&cli, kong.Vars{
		"geocode_url":  "http://geocode.invalid",
		"climbing_url": "http://climbing.invalid",
	})
	if err != nil {
		t.Fatalf("kong.New: %v", err)
	}

	if _, err := parser.Parse([]string{"--positionstack-key", "k", "--limit", "0"}); err == nil || !strings.Contains(err.Error(), "--limit") {
		t.Errorf("err = %v, want --limit rejection", err)
	}
	if _, err := parser.Parse([]string{"--positionstack-key", "k", "--radius", "-1"}); err == nil || !strings.Contains(err.Error(), "--radius") {
		t.Errorf("err = %v, want --radius rejection", err)
	}
}
