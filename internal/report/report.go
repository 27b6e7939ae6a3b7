package report

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/lox/cragweather/internal/geocode"
	"github.com/lox/cragweather/internal/models"
)

const (
	NoGoodTime     = "It's not a good time to climb outdoors."
	NoDestinations = "Error! Did not get a valid list of climbing destinations."

	dateLayout = "Jan-02 (Mon)"
)

// Plan writes one line per entry, or NoGoodTime when the plan is empty.
func Plan(w io.Writer, plan []models.PlanEntry) error {
	if len(plan) == 0 {
		_, err := fmt.Fprintln(w, NoGoodTime)
		return err
	}

	for _, e := range plan {
		if _, err := fmt.Fprintln(w, Line(e)); err != nil {
			return err
		}
	}
	return nil
}

func Line(e models.PlanEntry) string {
	return fmt.Sprintf("%s, %s (distance: %s miles) is good on %s",
		e.AreaName, e.AdminArea, FormatMiles(e.Distance), e.Date.Format(dateLayout))
}

// FormatMiles prints the shortest representation that round-trips, always
// with a fractional part: 150 -> "150.0", 12.5 -> "12.5".
func FormatMiles(d float64) string {
	s := strconv.FormatFloat(d, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// GeocodeFailure reports a failed geocoding step using the service's own
// message when there is one.
func GeocodeFailure(w io.Writer, err error) error {
	msg := err.Error()
	var apiErr *geocode.APIError
	switch {
	case errors.As(err, &apiErr):
		msg = apiErr.Message
	case errors.Is(err, geocode.ErrNoResults):
		msg = geocode.ErrNoResults.Error()
	}
	msg = strings.TrimSuffix(msg, ".")

	if _, err := fmt.Fprintf(w, "Error! %s.\n", msg); err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, NoDestinations)
	return err
}
