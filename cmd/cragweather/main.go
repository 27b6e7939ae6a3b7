package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kong"
	kongdotenv "github.com/titusjaka/kong-dotenv-go"

	"github.com/lox/cragweather/internal/climbing"
	"github.com/lox/cragweather/internal/geocode"
	"github.com/lox/cragweather/internal/httputil"
	"github.com/lox/cragweather/internal/locator"
	"github.com/lox/cragweather/internal/metrics"
	"github.com/lox/cragweather/internal/planner"
	"github.com/lox/cragweather/internal/prompt"
	"github.com/lox/cragweather/internal/report"
	"github.com/lox/cragweather/internal/store"
)

type CLI struct {
	EnvFile kongdotenv.ENVFileConfig `name:"env-file" help:"Load environment variables from this .env file."`

	APIKey string `name:"positionstack-key" env:"POSITIONSTACK_API" required:"" help:"positionstack API access key."`
	Zip    string `name:"zip" help:"Postal code to search from. Prompts when empty."`

	Radius  float64       `default:"150" help:"Search radius in miles. Must be positive."`
	Limit   int           `default:"5" help:"Stop checking forecasts once the plan has this many days. Must be positive."`
	TZ      string        `name:"tz" default:"Local" help:"Time zone used to decide which forecast days are weekends."`
	Timeout time.Duration `default:"30s" help:"HTTP request timeout."`

	DB          string `name:"db" type:"path" help:"SQLite database recording every API fetch."`
	MetricsFile string `name:"metrics-file" type:"path" help:"Write Prometheus metrics to this file on exit."`

	LogLevel  string `default:"warn" enum:"debug,info,warn,error" help:"Log level (${enum})."`
	LogFormat string `default:"text" enum:"text,json" help:"Log format (${enum})."`

	GeocodeURL  string `name:"geocode-url" hidden:"" default:"${geocode_url}"`
	ClimbingURL string `name:"climbing-url" hidden:"" default:"${climbing_url}"`
}

// Validate is called by kong after flags are parsed.
func (c *CLI) Validate() error {
	if !(c.Radius > 0) {
		return fmt.Errorf("--radius must be positive, got %v", c.Radius)
	}
	if c.Limit <= 0 {
		return fmt.Errorf("--limit must be positive, got %d", c.Limit)
	}
	return nil
}

func main() {
	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("cragweather"),
		kong.Description("Find climbing areas near you with good weather this weekend."),
		kong.UsageOnError(),
		kong.Vars{
			"geocode_url":  geocode.DefaultBaseURL,
			"climbing_url": climbing.DefaultBaseURL,
		},
	)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	logger := NewLogger(os.Stderr, cli.LogLevel, cli.LogFormat)
	slog.SetDefault(logger)

	err := cli.Run(ctx, logger, prompt.NewTerminal(os.Stdin, os.Stdout), os.Stdout)
	kctx.FatalIfErrorf(err)
}

// Run executes one lookup, writing the report to out.
func (c *CLI) Run(ctx context.Context, logger *slog.Logger, input prompt.Source, out io.Writer) error {
	loc, err := time.LoadLocation(c.TZ)
	if err != nil {
		logger.Warn("could not load time zone, using local time", "tz", c.TZ, "error", err)
		loc = time.Local
	}

	recorders := httputil.Recorders{metrics.Recorder{}}
	runStart := time.Now()

	if c.DB != "" {
		st, err := store.Open(c.DB, logger)
		if err != nil {
			return fmt.Errorf("open fetch log: %w", err)
		}
		defer func() {
			logFetchSummary(logger, st, runStart)
			st.Close()
		}()
		recorders = append(recorders, st)
	}

	if c.MetricsFile != "" {
		defer func() {
			if err := metrics.WriteTextfile(c.MetricsFile); err != nil {
				logger.Warn("write metrics", "path", c.MetricsFile, "error", err)
			}
		}()
	}

	httpClient := httputil.NewClient(c.Timeout)

	geocoder := geocode.NewClient(c.APIKey, c.GeocodeURL, httpClient, logger)
	geocoder.SetRecorder(recorders)

	directory := climbing.NewClient(c.ClimbingURL, httpClient, loc, logger)
	directory.SetRecorder(recorders)

	p := planner.New(geocoder, locator.New(directory, c.Radius, logger), directory, logger)
	p.SetMaxEntries(c.Limit)

	if c.Zip != "" {
		input = prompt.Static(c.Zip)
	}
	postalCode, err := input.PostalCode(ctx)
	if err != nil {
		return err
	}

	result, err := p.Run(ctx, postalCode)
	if errors.Is(err, planner.ErrGeocode) {
		logger.Info("geocoding failed", "error", err)
		return report.GeocodeFailure(out, err)
	}
	if err != nil {
		return err
	}

	metrics.NearbyAreas.Set(float64(result.NearbyAreas))
	metrics.PlanEntries.Set(float64(len(result.Plan)))

	return report.Plan(out, result.Plan)
}

func logFetchSummary(logger *slog.Logger, st *store.Store, since time.Time) {
	runs, err := st.FetchRunsSince(since)
	if err != nil {
		logger.Warn("read fetch log", "error", err)
		return
	}
	failed := 0
	for _, r := range runs {
		if !r.Success {
			failed++
		}
	}
	logger.Info("fetch log updated", "fetches", len(runs), "failed", failed)
}
