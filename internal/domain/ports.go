package domain

import (
	"context"
	"time"
)

// ContentSource is an authenticated forum-like content source.
type ContentSource interface {
	// ListSubmissions returns at most q.Limit submissions of the subreddit in
	// the order the source ranks them.
	ListSubmissions(ctx context.Context, subreddit string, q ListingQuery) ([]Submission, error)

	// FetchCommentTree returns the comment tree of a submission with every
	// "load more" placeholder already expanded.
	FetchCommentTree(ctx context.Context, submissionID string) (*CommentTree, error)
}

// RunRepository archives collection runs. Each run is stored as its own
// snapshot; runs are never merged.
type RunRepository interface {
	// SaveRun persists a run together with its rows.
	SaveRun(ctx context.Context, run *Run) error

	// GetRun loads a run and its rows. Returns ErrNotFound when missing.
	GetRun(ctx context.Context, id string) (*Run, error)

	// ListRuns returns run summaries ordered by collection time descending.
	ListRuns(ctx context.Context, limit int) ([]RunSummary, error)

	// DeleteOldRuns removes runs collected before now-maxAge. Returns the
	// number of runs deleted.
	DeleteOldRuns(ctx context.Context, maxAge time.Duration) (int64, error)
}
