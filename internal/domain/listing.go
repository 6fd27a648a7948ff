package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrInvalidSortMode is returned for a sort mode outside the supported set.
	ErrInvalidSortMode = errors.New("invalid sort mode")

	// ErrInvalidTimeWindow is returned for an unknown time window on a sort
	// mode that uses one.
	ErrInvalidTimeWindow = errors.New("invalid time window")

	// ErrInvalidLimit is returned when a listing limit is below 1.
	ErrInvalidLimit = errors.New("invalid limit")
)

// SortMode selects the source-defined ranking of a subreddit listing.
type SortMode string

const (
	SortHot           SortMode = "hot"
	SortNew           SortMode = "new"
	SortTop           SortMode = "top"
	SortControversial SortMode = "controversial"
	SortRising        SortMode = "rising"
)

// SortModes lists every supported sort mode.
var SortModes = []SortMode{SortHot, SortNew, SortTop, SortControversial, SortRising}

// ParseSortMode parses s case-insensitively.
func ParseSortMode(s string) (SortMode, error) {
	mode := SortMode(strings.ToLower(strings.TrimSpace(s)))
	for _, m := range SortModes {
		if m == mode {
			return m, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidSortMode, s)
}

// UsesTimeWindow reports whether the listing for this mode is bounded by a
// time window.
func (m SortMode) UsesTimeWindow() bool {
	return m == SortTop || m == SortControversial
}

// TimeWindow bounds top and controversial listings.
type TimeWindow string

const (
	WindowHour  TimeWindow = "hour"
	WindowDay   TimeWindow = "day"
	WindowWeek  TimeWindow = "week"
	WindowMonth TimeWindow = "month"
	WindowYear  TimeWindow = "year"
	WindowAll   TimeWindow = "all"
)

// DefaultTimeWindow is used when a windowed sort mode is requested without one.
const DefaultTimeWindow = WindowWeek

// TimeWindows lists every supported time window.
var TimeWindows = []TimeWindow{WindowHour, WindowDay, WindowWeek, WindowMonth, WindowYear, WindowAll}

// ParseTimeWindow parses s case-insensitively. An empty string yields
// DefaultTimeWindow.
func ParseTimeWindow(s string) (TimeWindow, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return DefaultTimeWindow, nil
	}
	for _, w := range TimeWindows {
		if string(w) == s {
			return w, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidTimeWindow, s)
}

// ListingQuery is a validated request for a subreddit listing.
type ListingQuery struct {
	Sort  SortMode `json:"sort"`
	Limit int      `json:"limit"`

	// Window is empty unless Sort.UsesTimeWindow().
	Window TimeWindow `json:"time_window,omitempty"`
}

// NewListingQuery validates a listing request. The window argument is only
// parsed for sort modes that use it and is silently dropped otherwise.
func NewListingQuery(sort string, limit int, window string) (ListingQuery, error) {
	mode, err := ParseSortMode(sort)
	if err != nil {
		return ListingQuery{}, err
	}
	if limit < 1 {
		return ListingQuery{}, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}

	q := ListingQuery{Sort: mode, Limit: limit}
	if mode.UsesTimeWindow() {
		w, err := ParseTimeWindow(window)
		if err != nil {
			return ListingQuery{}, err
		}
		q.Window = w
	}
	return q, nil
}
