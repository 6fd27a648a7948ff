package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// RateLimitError signals that the content source throttled a request.
// Wait is the delay the source asked for; zero means unspecified.
type RateLimitError struct {
	Wait time.Duration
	Err  error
}

func (e *RateLimitError) Error() string {
	msg := "rate limit exceeded"
	if e.Wait > 0 {
		msg = fmt.Sprintf("rate limit exceeded, retry after %s", e.Wait)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// RetryAfter returns the source-requested wait.
func (e *RateLimitError) RetryAfter() time.Duration {
	return e.Wait
}
