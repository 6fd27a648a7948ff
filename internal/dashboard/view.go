// Package dashboard renders subreddit analyses as a single HTML page.
package dashboard

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
	"strconv"
	"strings"

	"github.com/blackmichael/reddit-analytics/internal/domain"
)

const (
	DefaultSubreddit = "python"
	DefaultLimit     = 50
	MinLimit         = 10
	MaxLimit         = 100
)

// ErrInvalidView is returned for dashboard controls outside their range.
var ErrInvalidView = errors.New("invalid dashboard view")

// SortModes are the sort modes offered by the dashboard controls.
var SortModes = []domain.SortMode{domain.SortHot, domain.SortNew, domain.SortTop, domain.SortControversial}

// ViewConfig is the state of the dashboard controls.
type ViewConfig struct {
	Subreddit  string            `json:"subreddit"`
	Sort       domain.SortMode   `json:"sort"`
	Limit      int               `json:"limit"`
	TimeWindow domain.TimeWindow `json:"time_window,omitempty"`

	// Sample renders synthetic rows instead of collecting.
	Sample bool `json:"sample,omitempty"`
}

// DefaultViewConfig returns the controls' initial state.
func DefaultViewConfig() ViewConfig {
	return ViewConfig{Subreddit: DefaultSubreddit, Sort: domain.SortHot, Limit: DefaultLimit}
}

// ParseViewConfig reads the controls from a query string. Missing values
// take their defaults.
func ParseViewConfig(q url.Values) (ViewConfig, error) {
	cfg := ViewConfig{
		Subreddit:  q.Get("subreddit"),
		Sort:       domain.SortMode(q.Get("sort")),
		TimeWindow: domain.TimeWindow(q.Get("time")),
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return ViewConfig{}, fmt.Errorf("%w: limit %q is not a number", ErrInvalidView, v)
		}
		cfg.Limit = n
	}
	if v := q.Get("sample"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ViewConfig{}, fmt.Errorf("%w: sample %q is not a boolean", ErrInvalidView, v)
		}
		cfg.Sample = b
	}
	return cfg.Normalize()
}

// Normalize fills defaults and validates the controls. The time window is
// kept only for sort modes that use one.
func (c ViewConfig) Normalize() (ViewConfig, error) {
	c.Subreddit = strings.TrimPrefix(strings.TrimSpace(c.Subreddit), "r/")
	if c.Subreddit == "" {
		c.Subreddit = DefaultSubreddit
	}

	if c.Sort == "" {
		c.Sort = domain.SortHot
	}
	mode, err := domain.ParseSortMode(string(c.Sort))
	if err != nil {
		return ViewConfig{}, err
	}
	if !slices.Contains(SortModes, mode) {
		return ViewConfig{}, fmt.Errorf("%w: %q", domain.ErrInvalidSortMode, c.Sort)
	}
	c.Sort = mode

	if c.Limit == 0 {
		c.Limit = DefaultLimit
	}
	if c.Limit < MinLimit || c.Limit > MaxLimit {
		return ViewConfig{}, fmt.Errorf("%w: limit must be between %d and %d", ErrInvalidView, MinLimit, MaxLimit)
	}

	if mode.UsesTimeWindow() {
		w, err := domain.ParseTimeWindow(string(c.TimeWindow))
		if err != nil {
			return ViewConfig{}, err
		}
		c.TimeWindow = w
	} else {
		c.TimeWindow = ""
	}
	return c, nil
}

// Query returns the listing request the controls describe.
func (c ViewConfig) Query() domain.ListingQuery {
	return domain.ListingQuery{Sort: c.Sort, Limit: c.Limit, Window: c.TimeWindow}
}

// Values encodes the controls as a query string, the inverse of
// ParseViewConfig.
func (c ViewConfig) Values() url.Values {
	v := url.Values{}
	v.Set("subreddit", c.Subreddit)
	v.Set("sort", string(c.Sort))
	v.Set("limit", strconv.Itoa(c.Limit))
	if c.TimeWindow != "" {
		v.Set("time", string(c.TimeWindow))
	}
	if c.Sample {
		v.Set("sample", "true")
	}
	return v
}
