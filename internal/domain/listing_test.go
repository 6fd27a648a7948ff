package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackmichael/reddit-analytics/internal/domain"
)

func TestNewListingQuery_WindowIgnoredForUnwindowedSorts(t *testing.T) {
	for _, sort := range []string{"hot", "new", "rising"} {
		for _, window := range []string{"", "week", "decade", "???"} {
			q, err := domain.NewListingQuery(sort, 10, window)
			require.NoError(t, err, "sort=%s window=%s", sort, window)
			assert.Empty(t, q.Window)
		}
	}
}

func TestNewListingQuery_WindowedSorts(t *testing.T) {
	for _, sort := range []string{"top", "controversial"} {
		q, err := domain.NewListingQuery(sort, 10, "month")
		require.NoError(t, err)
		assert.Equal(t, domain.WindowMonth, q.Window)

		q, err = domain.NewListingQuery(sort, 10, "")
		require.NoError(t, err)
		assert.Equal(t, domain.DefaultTimeWindow, q.Window)

		_, err = domain.NewListingQuery(sort, 10, "decade")
		assert.ErrorIs(t, err, domain.ErrInvalidTimeWindow)
	}
}

func TestNewListingQuery_Invalid(t *testing.T) {
	_, err := domain.NewListingQuery("best", 10, "")
	assert.ErrorIs(t, err, domain.ErrInvalidSortMode)

	_, err = domain.NewListingQuery("hot", 0, "")
	assert.ErrorIs(t, err, domain.ErrInvalidLimit)
}

func TestParseSortMode_CaseInsensitive(t *testing.T) {
	m, err := domain.ParseSortMode(" TOP ")
	require.NoError(t, err)
	assert.Equal(t, domain.SortTop, m)
	assert.True(t, m.UsesTimeWindow())
	assert.False(t, domain.SortRising.UsesTimeWindow())
}

func TestNewSubmission_Validation(t *testing.T) {
	_, err := domain.NewSubmission(domain.Submission{})
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)

	_, err = domain.NewSubmission(domain.Submission{ID: "x", UpvoteRatio: -0.1})
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)

	_, err = domain.NewSubmission(domain.Submission{ID: "x", NumComments: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)

	s, err := domain.NewSubmission(domain.Submission{ID: "x", Score: -4, UpvoteRatio: 0.2})
	require.NoError(t, err)
	assert.Equal(t, -4, s.Score)
	assert.Len(t, s.Row(), len(domain.SubmissionColumns))
}

func TestNewComment_Validation(t *testing.T) {
	_, err := domain.NewComment(domain.Comment{SubmissionID: "s"})
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)

	_, err = domain.NewComment(domain.Comment{CommentID: "c"})
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)

	_, err = domain.NewComment(domain.Comment{CommentID: "c", SubmissionID: "s", Depth: -1})
	assert.ErrorIs(t, err, domain.ErrInvalidRecord)

	c, err := domain.NewComment(domain.Comment{CommentID: "c", SubmissionID: "s", Depth: 2})
	require.NoError(t, err)
	row := c.Row()
	require.Len(t, row, len(domain.CommentColumns))
	assert.Equal(t, "2", row[7])
}

func TestFilterDepth_NilKeepsAll(t *testing.T) {
	rows := []domain.Comment{{CommentID: "a", Depth: 0}, {CommentID: "b", Depth: 4}}
	assert.Equal(t, rows, domain.FilterDepth(rows, nil))

	zero := 0
	assert.Equal(t, rows[:1], domain.FilterDepth(rows, &zero))
	assert.Len(t, rows, 2, "input is not modified")
}

func TestCommentTree_FlattenNil(t *testing.T) {
	var tree *domain.CommentTree
	assert.Empty(t, tree.Flatten())
}
