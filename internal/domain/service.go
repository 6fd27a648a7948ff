package domain

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/blackmichael/reddit-analytics/internal/retry"
)

// RateLimitObserver is notified before the collector waits out a rate limit.
type RateLimitObserver func(operation string, attempt int, wait time.Duration)

type observerKey struct{}

// WithRateLimitObserver returns a context whose collection calls report
// rate-limit waits to fn.
func WithRateLimitObserver(ctx context.Context, fn RateLimitObserver) context.Context {
	return context.WithValue(ctx, observerKey{}, fn)
}

func observerFrom(ctx context.Context) RateLimitObserver {
	fn, _ := ctx.Value(observerKey{}).(RateLimitObserver)
	return fn
}

// CollectorService retrieves submissions and comment trees from a content
// source and normalizes them into flat tables. It holds no state between
// calls; every call builds its tables from scratch.
type CollectorService struct {
	source ContentSource
	policy retry.Policy
	logger *slog.Logger
}

// NewCollectorService creates a CollectorService. A zero policy falls back to
// retry.DefaultPolicy.
func NewCollectorService(source ContentSource, policy retry.Policy, logger *slog.Logger) *CollectorService {
	return &CollectorService{
		source: source,
		policy: policy,
		logger: logger,
	}
}

// CollectSubmissions returns at most q.Limit submissions of the subreddit in
// source order. On a rate limit the whole listing is requested again after
// the source-specified wait. A nil error with an empty slice means the
// source had no matching submissions.
func (s *CollectorService) CollectSubmissions(ctx context.Context, subreddit string, q ListingQuery) ([]Submission, error) {
	if subreddit == "" {
		return nil, fmt.Errorf("collect submissions: subreddit is required")
	}
	if _, err := ParseSortMode(string(q.Sort)); err != nil {
		return nil, err
	}
	if q.Limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, q.Limit)
	}
	if !q.Sort.UsesTimeWindow() {
		q.Window = ""
	}

	s.logger.Info("collecting submissions",
		"subreddit", subreddit,
		"sort", q.Sort,
		"limit", q.Limit,
		"time_window", q.Window,
	)

	start := time.Now()
	rows, err := retry.Do(ctx, s.retryPolicy(ctx, "collect_submissions"), func(ctx context.Context) ([]Submission, error) {
		return s.source.ListSubmissions(ctx, subreddit, q)
	})
	if err != nil {
		s.logger.Error("submission collection failed", "subreddit", subreddit, "error", err)
		return nil, fmt.Errorf("collect submissions from r/%s: %w", subreddit, err)
	}

	table := make([]Submission, 0, min(len(rows), q.Limit))
	for _, row := range rows {
		if len(table) == q.Limit {
			break
		}
		sub, err := NewSubmission(row)
		if err != nil {
			return nil, fmt.Errorf("collect submissions from r/%s: %w", subreddit, err)
		}
		table = append(table, sub)
	}

	s.logger.Info("collected submissions",
		"subreddit", subreddit,
		"rows", len(table),
		"duration", time.Since(start),
	)
	return table, nil
}

// CollectComments returns the fully expanded comment tree of a submission as
// a breadth-first table. When maxDepth is non-nil only comments with depth
// <= *maxDepth are kept; the filter runs after full expansion.
func (s *CollectorService) CollectComments(ctx context.Context, submissionID string, maxDepth *int) ([]Comment, error) {
	if submissionID == "" {
		return nil, fmt.Errorf("collect comments: submission id is required")
	}

	logger := s.logger.With("submission_id", submissionID)
	if maxDepth != nil {
		logger = logger.With("max_depth", *maxDepth)
	}
	logger.Info("collecting comments")

	start := time.Now()
	tree, err := retry.Do(ctx, s.retryPolicy(ctx, "collect_comments"), func(ctx context.Context) (*CommentTree, error) {
		return s.source.FetchCommentTree(ctx, submissionID)
	})
	if err != nil {
		logger.Error("comment collection failed", "error", err)
		return nil, fmt.Errorf("collect comments for %s: %w", submissionID, err)
	}

	flat := tree.Flatten()
	table := make([]Comment, 0, len(flat))
	for _, row := range flat {
		if row.SubmissionID == "" {
			row.SubmissionID = submissionID
		}
		c, err := NewComment(row)
		if err != nil {
			return nil, fmt.Errorf("collect comments for %s: %w", submissionID, err)
		}
		table = append(table, c)
	}
	table = FilterDepth(table, maxDepth)

	logger.Info("collected comments",
		"expanded", len(flat),
		"rows", len(table),
		"duration", time.Since(start),
	)
	return table, nil
}

func (s *CollectorService) retryPolicy(ctx context.Context, operation string) retry.Policy {
	p := s.policy
	observe := observerFrom(ctx)
	p.OnRetry = func(attempt int, wait time.Duration, err error) {
		s.logger.Warn("rate limit exceeded, waiting before retry",
			"operation", operation,
			"attempt", attempt,
			"wait", wait,
			"error", err,
		)
		if observe != nil {
			observe(operation, attempt, wait)
		}
	}
	return p
}

// StartCleanupJob removes archived runs older than maxAge. It runs
// immediately and then at every interval until ctx is cancelled.
func StartCleanupJob(ctx context.Context, runs RunRepository, logger *slog.Logger, interval, maxAge time.Duration) {
	runCleanup(ctx, runs, logger, maxAge)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			runCleanup(ctx, runs, logger, maxAge)
		}
	}
}

func runCleanup(ctx context.Context, runs RunRepository, logger *slog.Logger, maxAge time.Duration) {
	deleted, err := runs.DeleteOldRuns(ctx, maxAge)
	if err != nil {
		logger.Error("run cleanup failed", "error", err)
	} else if deleted > 0 {
		logger.Info("run cleanup complete", "deleted", deleted)
	}
}
