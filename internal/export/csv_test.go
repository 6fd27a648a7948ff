package export_test

import (
	"bytes"
	"encoding/csv"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackmichael/reddit-analytics/internal/analysis"
	"github.com/blackmichael/reddit-analytics/internal/domain"
	"github.com/blackmichael/reddit-analytics/internal/export"
	"github.com/blackmichael/reddit-analytics/internal/sentiment"
)

func readAll(t *testing.T, b *bytes.Buffer) [][]string {
	records, err := csv.NewReader(b).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteSubmissions(t *testing.T) {
	var buf bytes.Buffer
	err := export.WriteSubmissions(&buf, []domain.Submission{{
		ID:          "abc",
		Title:       `Quoted "title", with comma`,
		Selftext:    "line one\nline two",
		Score:       -3,
		UpvoteRatio: 0.42,
		NumComments: 7,
		CreatedUTC:  1700000000,
		Author:      "[deleted]",
		URL:         "https://example.com",
		Permalink:   "/r/golang/comments/abc/",
	}})
	require.NoError(t, err)

	records := readAll(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, domain.SubmissionColumns, records[0])
	assert.Equal(t, []string{
		"abc", `Quoted "title", with comma`, "line one\nline two", "-3", "0.42", "7",
		"1700000000", "[deleted]", "https://example.com", "/r/golang/comments/abc/",
	}, records[1])
}

func TestWriteComments_EmptyTableHasHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, export.WriteComments(&buf, nil))

	records := readAll(t, &buf)
	require.Len(t, records, 1)
	assert.Equal(t, domain.CommentColumns, records[0])
}

func TestWriteAnalyzedComments(t *testing.T) {
	var buf bytes.Buffer
	err := export.WriteAnalyzedComments(&buf, []analysis.AnalyzedComment{
		{
			Comment:   domain.Comment{CommentID: "c1", SubmissionID: "s1", Body: "nice", ParentID: "t3_s1"},
			Sentiment: sentiment.Positive,
			Scores:    sentiment.Scores{Pos: 1, Compound: 0.42},
			Model:     &sentiment.ModelLabel{Label: "positive", Confidence: 0.99},
		},
		{
			Comment:   domain.Comment{CommentID: "c2", SubmissionID: "s1", ParentID: "t1_c1", Depth: 1},
			Sentiment: sentiment.Neutral,
		},
	})
	require.NoError(t, err)

	records := readAll(t, &buf)
	require.Len(t, records, 3)
	assert.Len(t, records[0], len(domain.CommentColumns)+len(export.SentimentColumns))
	assert.Equal(t, []string{"positive", "0.42", "0", "0", "1", "positive", "0.99"}, records[1][len(domain.CommentColumns):])
	assert.Equal(t, []string{"neutral", "0", "0", "0", "0", "", ""}, records[2][len(domain.CommentColumns):])
}

func TestWriteAnalyzedSubmissions(t *testing.T) {
	var buf bytes.Buffer
	err := export.WriteAnalyzedSubmissions(&buf, []analysis.AnalyzedSubmission{{
		Submission: domain.Submission{ID: "a", Title: "hello"},
		Sentiment:  sentiment.Negative,
		Scores:     sentiment.Scores{Neg: 0.5, Neu: 0.5, Compound: -0.3},
	}})
	require.NoError(t, err)

	records := readAll(t, &buf)
	require.Len(t, records, 2)
	assert.Equal(t, "sentiment", records[0][len(domain.SubmissionColumns)])
	assert.Equal(t, "negative", records[1][len(domain.SubmissionColumns)])
	assert.Equal(t, "-0.3", records[1][len(domain.SubmissionColumns)+1])
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriteSubmissions_WriterError(t *testing.T) {
	err := export.WriteSubmissions(failingWriter{}, []domain.Submission{{ID: "a"}})
	assert.Error(t, err)
}

func TestFilename(t *testing.T) {
	at := time.Date(2024, 3, 1, 10, 15, 0, 0, time.UTC)
	assert.Equal(t, "golang_submissions_20240301_101500.csv", export.Filename("golang_submissions", at))
}
