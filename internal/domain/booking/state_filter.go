package booking

import (
	"strings"

	"github.com/gearshare/service-booking/pkg/apperr"
)

// StateFilter selects which bookings a listing query returns. CURRENT, PAST
// and FUTURE classify the reservation window against one clock reading;
// WAITING and REJECTED filter by status.
type StateFilter string

const (
	FilterAll      StateFilter = "ALL"
	FilterCurrent  StateFilter = "CURRENT"
	FilterPast     StateFilter = "PAST"
	FilterFuture   StateFilter = "FUTURE"
	FilterWaiting  StateFilter = "WAITING"
	FilterRejected StateFilter = "REJECTED"
)

// ParseStateFilter converts a case-insensitive string to a StateFilter. An
// empty string means ALL; anything unrecognized is a validation error rather
// than a silent ALL.
func ParseStateFilter(s string) (StateFilter, error) {
	if s == "" {
		return FilterAll, nil
	}
	switch f := StateFilter(strings.ToUpper(s)); f {
	case FilterAll, FilterCurrent, FilterPast, FilterFuture, FilterWaiting, FilterRejected:
		return f, nil
	default:
		return "", apperr.NewValidationError("unknown state: " + s)
	}
}
