package geocode

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/tidwall/gjson"

	"github.com/lox/cragweather/internal/httputil"
	"github.com/lox/cragweather/internal/models"
)

// API Docs: https://positionstack.com/documentation
// Sample request: http://api.positionstack.com/v1/forward?access_key=KEY&query=80302
const (
	DefaultBaseURL = "http://api.positionstack.com/v1/forward"

	source   = "positionstack"
	endpoint = "v1/forward"
)

// ErrNoResults is returned when the service answered but had no match.
var ErrNoResults = errors.New("no location found for query")

// APIError is an error payload reported by positionstack.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("positionstack: status %d: %s (%s)", e.Status, e.Message, e.Code)
	}
	return fmt.Sprintf("positionstack: status %d: %s", e.Status, e.Message)
}

// Client resolves free-form queries such as postal codes to coordinates.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	recorder   httputil.Recorder
	logger     *slog.Logger
}

func NewClient(apiKey, baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = httputil.NewClient(0)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// SetRecorder configures where fetch results are reported.
func (c *Client) SetRecorder(r httputil.Recorder) {
	c.recorder = r
}

// Forward geocodes query with a single request. The first result wins.
func (c *Client) Forward(ctx context.Context, query string) (models.Coordinate, error) {
	result := &httputil.FetchResult{
		Source:    source,
		Endpoint:  endpoint,
		Subject:   query,
		StartedAt: time.Now().UTC(),
	}
	coord, err := c.forward(ctx, query, result)
	result.Duration = time.Since(result.StartedAt)
	result.Error = err
	if c.recorder != nil {
		c.recorder.RecordFetch(result)
	}
	return coord, err
}

func (c *Client) forward(ctx context.Context, query string, result *httputil.FetchResult) (models.Coordinate, error) {
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("parse base URL: %w", err)
	}
	q := u.Query()
	q.Set("access_key", c.apiKey)
	q.Set("query", query)
	u.RawQuery = q.Encode()

	c.logger.Debug("geocoding", "query", query)

	body, err := httputil.Get(ctx, c.httpClient, u.String(), result)
	if err != nil {
		return models.Coordinate{}, fmt.Errorf("fetch geocode: %w", redact(err))
	}

	if apiErr := parseError(result.HTTPStatus, body); apiErr != nil {
		return models.Coordinate{}, apiErr
	}

	return parseForward(body, result)
}

// parseError extracts an error payload. positionstack reports errors with a
// non-2xx status and an {"error": {...}} body; a 2xx body may also carry one.
func parseError(status int, body []byte) *APIError {
	errObj := gjson.GetBytes(body, "error")
	if errObj.Exists() && errObj.IsObject() {
		msg := errObj.Get("message").String()
		if msg == "" {
			msg = http.StatusText(status)
		}
		return &APIError{Status: status, Code: errObj.Get("code").String(), Message: msg}
	}
	if status < 200 || status >= 300 {
		return &APIError{Status: status, Message: http.StatusText(status)}
	}
	return nil
}

func parseForward(body []byte, result *httputil.FetchResult) (models.Coordinate, error) {
	if !gjson.ValidBytes(body) {
		return models.Coordinate{}, fmt.Errorf("decode geocode: invalid JSON")
	}

	// No match comes back as "data": [] or "data": [[]].
	first := gjson.GetBytes(body, "data.0")
	if !first.IsObject() {
		return models.Coordinate{}, ErrNoResults
	}

	lat, lon := first.Get("latitude"), first.Get("longitude")
	if lat.Type != gjson.Number || lon.Type != gjson.Number {
		result.ParseErrors = 1
		result.ParseError = "data.0 missing latitude/longitude"
		return models.Coordinate{}, ErrNoResults
	}
	result.RecordCount = 1

	return models.Coordinate{Latitude: lat.Float(), Longitude: lon.Float()}, nil
}

// redact strips the request URL from transport errors so the access key is
// never printed.
func redact(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
