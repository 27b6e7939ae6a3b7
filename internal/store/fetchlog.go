package store

import (
	"database/sql"
	"time"

	"github.com/lox/cragweather/internal/httputil"
)

// FetchRun is one audited API request.
type FetchRun struct {
	ID                int64
	StartedAt         time.Time
	DurationMS        sql.NullInt64
	Source            string // "positionstack", "climbingweather"
	Endpoint          string // "v1/forward", "country/area", "area/forecast"
	Subject           sql.NullString
	HTTPStatus        sql.NullInt64
	ResponseSizeBytes sql.NullInt64
	RecordsParsed     sql.NullInt64
	ParseErrors       sql.NullInt64
	Success           bool
	ErrorMessage      sql.NullString
}

// NewFetchRun converts a fetch result into its audit row. The geocoding
// subject is the user's postal code and is stored as given.
func NewFetchRun(r *httputil.FetchResult) FetchRun {
	run := FetchRun{
		StartedAt:         r.StartedAt.UTC(),
		DurationMS:        sql.NullInt64{Int64: r.Duration.Milliseconds(), Valid: true},
		Source:            r.Source,
		Endpoint:          r.Endpoint,
		Subject:           sql.NullString{String: r.Subject, Valid: r.Subject != ""},
		HTTPStatus:        sql.NullInt64{Int64: int64(r.HTTPStatus), Valid: r.HTTPStatus > 0},
		ResponseSizeBytes: sql.NullInt64{Int64: int64(r.ResponseSize), Valid: r.ResponseSize > 0},
		RecordsParsed:     sql.NullInt64{Int64: int64(r.RecordCount), Valid: true},
		Success:           r.Success(),
	}
	if r.ParseErrors > 0 {
		run.ParseErrors = sql.NullInt64{Int64: int64(r.ParseErrors), Valid: true}
	}
	switch {
	case r.Error != nil:
		run.ErrorMessage = sql.NullString{String: r.Error.Error(), Valid: true}
	case r.ParseError != "":
		run.ErrorMessage = sql.NullString{String: r.ParseError, Valid: true}
	}
	return run
}

func (s *Store) InsertFetchRun(run *FetchRun) error {
	result, err := s.db.Exec(`
		INSERT INTO fetch_runs (started_at, duration_ms, source, endpoint, subject, http_status,
			response_size_bytes, records_parsed, parse_errors, success, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, run.StartedAt, run.DurationMS, run.Source, run.Endpoint, run.Subject, run.HTTPStatus,
		run.ResponseSizeBytes, run.RecordsParsed, run.ParseErrors, run.Success, run.ErrorMessage)
	if err != nil {
		return err
	}

	run.ID, err = result.LastInsertId()
	return err
}

// RecordFetch implements httputil.Recorder. Audit failures are logged and
// never interrupt the run.
func (s *Store) RecordFetch(r *httputil.FetchResult) {
	run := NewFetchRun(r)
	if err := s.InsertFetchRun(&run); err != nil {
		s.logger.Warn("record fetch run", "source", r.Source, "endpoint", r.Endpoint, "error", err)
	}
}

// FetchRunsSince returns runs started at or after since, oldest first.
func (s *Store) FetchRunsSince(since time.Time) ([]FetchRun, error) {
	rows, err := s.db.Query(`
		SELECT id, started_at, duration_ms, source, endpoint, subject, http_status,
			   response_size_bytes, records_parsed, parse_errors, success, error_message
		FROM fetch_runs
		WHERE started_at >= ?
		ORDER BY started_at, id
	`, since.UTC())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []FetchRun
	for rows.Next() {
		var r FetchRun
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.DurationMS, &r.Source, &r.Endpoint,
			&r.Subject, &r.HTTPStatus, &r.ResponseSizeBytes, &r.RecordsParsed,
			&r.ParseErrors, &r.Success, &r.ErrorMessage); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
