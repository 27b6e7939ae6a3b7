package httputil

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultTimeout = 30 * time.Second
	UserAgent      = "cragweather/1.0"
)

// NewClient returns an HTTP client with the given timeout, or DefaultTimeout
// when timeout is zero.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
	}
}

// FetchResult describes a single API request for metrics and auditing.
type FetchResult struct {
	Source       string // "positionstack", "climbingweather"
	Endpoint     string // "v1/forward", "country/area", "area/forecast"
	Subject      string // area ID or country code the request was about
	StartedAt    time.Time
	Duration     time.Duration
	HTTPStatus   int
	ResponseSize int
	RecordCount  int
	ParseErrors  int
	ParseError   string
	Error        error
}

// Success reports whether the request completed and returned usable data.
func (r *FetchResult) Success() bool {
	return r.Error == nil && r.HTTPStatus >= 200 && r.HTTPStatus < 300
}

// Recorder receives every completed FetchResult.
type Recorder interface {
	RecordFetch(result *FetchResult)
}

// Recorders fans a result out to several recorders.
type Recorders []Recorder

func (rs Recorders) RecordFetch(result *FetchResult) {
	for _, r := range rs {
		if r != nil {
			r.RecordFetch(result)
		}
	}
}

// Get performs a GET request and returns the response body whatever the
// status code, so callers can decode error payloads. The status code and
// size are written to result.
func Get(ctx context.Context, client *http.Client, url string, result *FetchResult) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	result.HTTPStatus = resp.StatusCode

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	result.ResponseSize = len(body)

	return body, nil
}
