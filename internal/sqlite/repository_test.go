package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackmichael/reddit-analytics/internal/domain"
	"github.com/blackmichael/reddit-analytics/internal/sqlite"
)

func newRepo(t *testing.T) *sqlite.Repository {
	repo, err := sqlite.NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSaveAndGetSubmissionRun(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	at := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	run := &domain.Run{
		ID:          "run-1",
		Kind:        domain.RunSubmissions,
		Target:      "golang",
		Query:       domain.ListingQuery{Sort: domain.SortTop, Limit: 2, Window: domain.WindowMonth},
		CollectedAt: at,
		Submissions: []domain.Submission{
			{ID: "b", Title: "second first", Score: 3, UpvoteRatio: 0.5, NumComments: 1, CreatedUTC: 1700000000.5, Author: "x", URL: "u", Permalink: "p"},
			{ID: "a", Title: "first second", Selftext: "body", Score: -1, UpvoteRatio: 1, Author: "[deleted]"},
		},
	}
	require.NoError(t, repo.SaveRun(ctx, run))

	got, err := repo.GetRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, run.ID, got.ID)
	assert.Equal(t, run.Kind, got.Kind)
	assert.Equal(t, run.Target, got.Target)
	assert.Equal(t, run.Query, got.Query)
	assert.Nil(t, got.MaxDepth)
	assert.True(t, at.Equal(got.CollectedAt))
	assert.Equal(t, run.Submissions, got.Submissions, "rows keep table order")
	assert.Empty(t, got.Comments)
}

func TestSaveAndGetCommentRun(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	depth := 2
	run := &domain.Run{
		ID:          "run-c",
		Kind:        domain.RunComments,
		Target:      "s1",
		MaxDepth:    &depth,
		CollectedAt: time.Now(),
		Comments: []domain.Comment{
			{CommentID: "c1", SubmissionID: "s1", Body: "top", ParentID: "t3_s1"},
			{CommentID: "c2", SubmissionID: "s1", Body: "reply", ParentID: "t1_c1", Depth: 1},
		},
	}
	require.NoError(t, repo.SaveRun(ctx, run))

	got, err := repo.GetRun(ctx, "run-c")
	require.NoError(t, err)
	require.NotNil(t, got.MaxDepth)
	assert.Equal(t, 2, *got.MaxDepth)
	assert.Equal(t, run.Comments, got.Comments)
}

func TestGetRun_NotFound(t *testing.T) {
	repo := newRepo(t)
	_, err := repo.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSaveRun_DuplicateID(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()
	run := &domain.Run{ID: "dup", Kind: domain.RunSubmissions, Target: "go", CollectedAt: time.Now()}
	require.NoError(t, repo.SaveRun(ctx, run))
	assert.Error(t, repo.SaveRun(ctx, run))
}

func TestListRuns_NewestFirst(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, repo.SaveRun(ctx, &domain.Run{
			ID:          id,
			Kind:        domain.RunSubmissions,
			Target:      "golang",
			CollectedAt: base.Add(time.Duration(i) * time.Hour),
			Submissions: make([]domain.Submission, i+1),
		}))
	}

	runs, err := repo.ListRuns(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "new", runs[0].ID)
	assert.Equal(t, 3, runs[0].Rows)
	assert.Equal(t, "mid", runs[1].ID)

	empty, err := newRepo(t).ListRuns(ctx, 10)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestDeleteOldRuns(t *testing.T) {
	repo := newRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.SaveRun(ctx, &domain.Run{
		ID: "stale", Kind: domain.RunComments, Target: "s1",
		CollectedAt: time.Now().Add(-48 * time.Hour),
		Comments:    []domain.Comment{{CommentID: "c", SubmissionID: "s1"}},
	}))
	require.NoError(t, repo.SaveRun(ctx, &domain.Run{
		ID: "fresh", Kind: domain.RunSubmissions, Target: "golang",
		CollectedAt: time.Now(),
		Submissions: []domain.Submission{{ID: "a"}},
	}))

	deleted, err := repo.DeleteOldRuns(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	_, err = repo.GetRun(ctx, "stale")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	fresh, err := repo.GetRun(ctx, "fresh")
	require.NoError(t, err)
	assert.Len(t, fresh.Submissions, 1)
}
