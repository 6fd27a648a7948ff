package domain_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackmichael/reddit-analytics/internal/domain"
	"github.com/blackmichael/reddit-analytics/internal/retry"
)

type fakeSource struct {
	listCalls int
	treeCalls int
	queries   []domain.ListingQuery

	// responses are consumed in order; the last one repeats.
	listResponses []listResponse
	treeResponses []treeResponse
}

type listResponse struct {
	rows []domain.Submission
	err  error
}

type treeResponse struct {
	tree *domain.CommentTree
	err  error
}

func (f *fakeSource) ListSubmissions(_ context.Context, _ string, q domain.ListingQuery) ([]domain.Submission, error) {
	f.queries = append(f.queries, q)
	r := f.listResponses[min(f.listCalls, len(f.listResponses)-1)]
	f.listCalls++
	return r.rows, r.err
}

func (f *fakeSource) FetchCommentTree(_ context.Context, _ string) (*domain.CommentTree, error) {
	r := f.treeResponses[min(f.treeCalls, len(f.treeResponses)-1)]
	f.treeCalls++
	return r.tree, r.err
}

type fakeSleeper struct {
	waits []time.Duration
}

func (s *fakeSleeper) Sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func (s *fakeSleeper) total() time.Duration {
	var t time.Duration
	for _, w := range s.waits {
		t += w
	}
	return t
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newService(src domain.ContentSource, sleeper *fakeSleeper, attempts int) *domain.CollectorService {
	return domain.NewCollectorService(src, retry.Policy{
		MaxAttempts: attempts,
		Sleep:       sleeper.Sleep,
	}, discardLogger())
}

func submissions(ids ...string) []domain.Submission {
	out := make([]domain.Submission, len(ids))
	for i, id := range ids {
		out[i] = domain.Submission{ID: id, Title: "post " + id, UpvoteRatio: 0.9, Author: "alice"}
	}
	return out
}

func TestCollectSubmissions_RetriesOnceAfterRateLimit(t *testing.T) {
	src := &fakeSource{listResponses: []listResponse{
		{rows: submissions("partial"), err: &domain.RateLimitError{Wait: 2 * time.Second}},
		{rows: submissions("a", "b")},
	}}
	sleeper := &fakeSleeper{}
	svc := newService(src, sleeper, 5)

	q, err := domain.NewListingQuery("hot", 10, "")
	require.NoError(t, err)

	rows, err := svc.CollectSubmissions(context.Background(), "golang", q)
	require.NoError(t, err)

	assert.Equal(t, 2, src.listCalls, "exactly one retry")
	assert.Equal(t, []time.Duration{2 * time.Second}, sleeper.waits)
	assert.Equal(t, 2*time.Second, sleeper.total())
	require.Len(t, rows, 2)
	assert.Equal(t, "a", rows[0].ID, "first attempt must be discarded")
	assert.Equal(t, "b", rows[1].ID)
}

func TestCollectSubmissions_RetriesAreBounded(t *testing.T) {
	src := &fakeSource{listResponses: []listResponse{
		{err: &domain.RateLimitError{Wait: time.Second}},
	}}
	sleeper := &fakeSleeper{}
	svc := newService(src, sleeper, 3)

	q, err := domain.NewListingQuery("new", 5, "")
	require.NoError(t, err)

	_, err = svc.CollectSubmissions(context.Background(), "golang", q)
	require.Error(t, err)
	assert.ErrorIs(t, err, retry.ErrRetriesExhausted)

	var rl *domain.RateLimitError
	assert.ErrorAs(t, err, &rl)
	assert.Equal(t, 3, src.listCalls)
	assert.Len(t, sleeper.waits, 2)
}

func TestCollectSubmissions_RequestFailureIsReturned(t *testing.T) {
	cause := errors.New("connection reset")
	src := &fakeSource{listResponses: []listResponse{{err: cause}}}
	sleeper := &fakeSleeper{}
	svc := newService(src, sleeper, 5)

	q, err := domain.NewListingQuery("rising", 5, "")
	require.NoError(t, err)

	rows, err := svc.CollectSubmissions(context.Background(), "golang", q)
	assert.Nil(t, rows)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, 1, src.listCalls, "non rate-limit failures are not retried")
	assert.Empty(t, sleeper.waits)
}

func TestCollectSubmissions_EmptyIsSuccess(t *testing.T) {
	src := &fakeSource{listResponses: []listResponse{{rows: nil}}}
	svc := newService(src, &fakeSleeper{}, 5)

	q, err := domain.NewListingQuery("hot", 5, "")
	require.NoError(t, err)

	rows, err := svc.CollectSubmissions(context.Background(), "empty", q)
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestCollectSubmissions_TruncatesToLimit(t *testing.T) {
	src := &fakeSource{listResponses: []listResponse{{rows: submissions("a", "b", "c", "d")}}}
	svc := newService(src, &fakeSleeper{}, 5)

	for limit := 1; limit <= 4; limit++ {
		q, err := domain.NewListingQuery("hot", limit, "")
		require.NoError(t, err)

		rows, err := svc.CollectSubmissions(context.Background(), "golang", q)
		require.NoError(t, err)
		assert.LessOrEqual(t, len(rows), limit)
		assert.Equal(t, "a", rows[0].ID, "source order is preserved")
	}
}

func TestCollectSubmissions_InvalidSortIsFatal(t *testing.T) {
	src := &fakeSource{listResponses: []listResponse{{rows: submissions("a")}}}
	svc := newService(src, &fakeSleeper{}, 5)

	_, err := svc.CollectSubmissions(context.Background(), "golang", domain.ListingQuery{Sort: "best", Limit: 5})
	assert.ErrorIs(t, err, domain.ErrInvalidSortMode)
	assert.Zero(t, src.listCalls)
}

func TestCollectSubmissions_WindowDroppedForUnwindowedSorts(t *testing.T) {
	src := &fakeSource{listResponses: []listResponse{{rows: submissions("a")}}}
	svc := newService(src, &fakeSleeper{}, 5)

	_, err := svc.CollectSubmissions(context.Background(), "golang",
		domain.ListingQuery{Sort: domain.SortHot, Limit: 5, Window: domain.WindowYear})
	require.NoError(t, err)
	require.Len(t, src.queries, 1)
	assert.Empty(t, src.queries[0].Window)
}

func TestCollectSubmissions_InvalidRecord(t *testing.T) {
	bad := submissions("a")
	bad[0].UpvoteRatio = 1.5
	src := &fakeSource{listResponses: []listResponse{{rows: bad}}}
	svc := newService(src, &fakeSleeper{}, 5)

	q, err := domain.NewListingQuery("hot", 5, "")
	require.NoError(t, err)

	_, err = svc.CollectSubmissions(context.Background(), "golang", q)
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)
}

func TestCollectSubmissions_ObserverSeesWait(t *testing.T) {
	src := &fakeSource{listResponses: []listResponse{
		{err: &domain.RateLimitError{Wait: 3 * time.Second}},
		{rows: submissions("a")},
	}}
	svc := newService(src, &fakeSleeper{}, 5)

	var seen []time.Duration
	ctx := domain.WithRateLimitObserver(context.Background(), func(op string, attempt int, wait time.Duration) {
		assert.Equal(t, "collect_submissions", op)
		assert.Equal(t, 1, attempt)
		seen = append(seen, wait)
	})

	q, err := domain.NewListingQuery("top", 5, "day")
	require.NoError(t, err)

	_, err = svc.CollectSubmissions(ctx, "golang", q)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{3 * time.Second}, seen)
}

func sampleTree() *domain.CommentTree {
	c := func(id, parent string, depth int) domain.Comment {
		return domain.Comment{CommentID: id, SubmissionID: "s1", Body: "body " + id, ParentID: parent, Depth: depth}
	}
	return &domain.CommentTree{
		SubmissionID: "s1",
		Roots: []*domain.CommentNode{
			{
				Comment: c("a", "t3_s1", 0),
				Replies: []*domain.CommentNode{
					{
						Comment: c("a1", "t1_a", 1),
						Replies: []*domain.CommentNode{{Comment: c("a1x", "t1_a1", 2)}},
					},
				},
			},
			{
				Comment: c("b", "t3_s1", 0),
				Replies: []*domain.CommentNode{{Comment: c("b1", "t1_b", 1)}},
			},
		},
	}
}

func TestCollectComments_FlattensBreadthFirst(t *testing.T) {
	src := &fakeSource{treeResponses: []treeResponse{{tree: sampleTree()}}}
	svc := newService(src, &fakeSleeper{}, 5)

	rows, err := svc.CollectComments(context.Background(), "s1", nil)
	require.NoError(t, err)

	ids := make([]string, len(rows))
	for i, r := range rows {
		ids[i] = r.CommentID
		assert.Equal(t, "s1", r.SubmissionID)
	}
	assert.Equal(t, []string{"a", "b", "a1", "b1", "a1x"}, ids)
}

func TestCollectComments_DepthFilterIsMonotonic(t *testing.T) {
	src := &fakeSource{treeResponses: []treeResponse{{tree: sampleTree()}}}
	svc := newService(src, &fakeSleeper{}, 5)

	full, err := svc.CollectComments(context.Background(), "s1", nil)
	require.NoError(t, err)

	var prev []domain.Comment
	for d := 0; d <= 3; d++ {
		depth := d
		rows, err := svc.CollectComments(context.Background(), "s1", &depth)
		require.NoError(t, err)

		for _, r := range rows {
			assert.LessOrEqual(t, r.Depth, d)
			assert.Contains(t, full, r, "filtered rows are unaltered rows of the full table")
		}
		for _, p := range prev {
			assert.Contains(t, rows, p, "depth %d must retain rows kept at depth %d", d, d-1)
		}
		prev = rows
	}
	assert.Len(t, prev, len(full))
}

func TestCollectComments_RetriesWholeTree(t *testing.T) {
	src := &fakeSource{treeResponses: []treeResponse{
		{err: &domain.RateLimitError{Wait: 2 * time.Second}},
		{tree: sampleTree()},
	}}
	sleeper := &fakeSleeper{}
	svc := newService(src, sleeper, 5)

	rows, err := svc.CollectComments(context.Background(), "s1", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 5)
	assert.Equal(t, 2, src.treeCalls)
	assert.Equal(t, 2*time.Second, sleeper.total())
}

func TestCollectComments_FailureIsReturned(t *testing.T) {
	src := &fakeSource{treeResponses: []treeResponse{{err: domain.ErrNotFound}}}
	svc := newService(src, &fakeSleeper{}, 5)

	rows, err := svc.CollectComments(context.Background(), "missing", nil)
	assert.Nil(t, rows)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
