// Package analysis runs a collection and scores the sentiment of the
// resulting table.
package analysis

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blackmichael/reddit-analytics/internal/domain"
	"github.com/blackmichael/reddit-analytics/internal/sentiment"
)

var (
	// ErrInvalidTextColumn is returned for an unknown text column.
	ErrInvalidTextColumn = errors.New("invalid text column")

	// ErrClassifierUnavailable is returned when transformer labels are
	// requested but no classifier is configured.
	ErrClassifierUnavailable = errors.New("transformer classifier not configured")

	// ErrArchiveDisabled is returned by run lookups when no repository is
	// configured.
	ErrArchiveDisabled = errors.New("run archive not configured")
)

// TextColumn selects the submission text that is scored.
type TextColumn string

const (
	TextTitle         TextColumn = "title"
	TextSelftext      TextColumn = "selftext"
	TextTitleSelftext TextColumn = "title_selftext"
)

// ParseTextColumn parses s. An empty string selects TextTitle.
func ParseTextColumn(s string) (TextColumn, error) {
	switch c := TextColumn(strings.ToLower(strings.TrimSpace(s))); c {
	case "":
		return TextTitle, nil
	case TextTitle, TextSelftext, TextTitleSelftext:
		return c, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidTextColumn, s)
	}
}

// Of returns the column's text for a submission.
func (c TextColumn) Of(s domain.Submission) string {
	switch c {
	case TextSelftext:
		return s.Selftext
	case TextTitleSelftext:
		if s.Selftext == "" {
			return s.Title
		}
		return s.Title + "\n\n" + s.Selftext
	default:
		return s.Title
	}
}

// Request describes one subreddit analysis.
type Request struct {
	Subreddit string
	Query     domain.ListingQuery
	Text      TextColumn

	// Transformer adds a model label to every row.
	Transformer bool
}

// AnalyzedSubmission is a submission row with its derived sentiment columns.
type AnalyzedSubmission struct {
	domain.Submission
	Sentiment         sentiment.Label       `json:"sentiment"`
	SentimentCompound float64               `json:"sentiment_compound"`
	Scores            sentiment.Scores      `json:"scores"`
	Model             *sentiment.ModelLabel `json:"model,omitempty"`
}

// AnalyzedComment is a comment row with its derived sentiment columns.
type AnalyzedComment struct {
	domain.Comment
	Sentiment         sentiment.Label       `json:"sentiment"`
	SentimentCompound float64               `json:"sentiment_compound"`
	Scores            sentiment.Scores      `json:"scores"`
	Model             *sentiment.ModelLabel `json:"model,omitempty"`
}

// SubredditAnalysis is the scored submission table of one collection.
type SubredditAnalysis struct {
	RunID       string               `json:"run_id,omitempty"`
	Subreddit   string               `json:"subreddit"`
	Query       domain.ListingQuery  `json:"query"`
	Text        TextColumn           `json:"text_column"`
	Model       string               `json:"model,omitempty"`
	CollectedAt time.Time            `json:"collected_at"`
	Stats       sentiment.Stats      `json:"stats"`
	Rows        []AnalyzedSubmission `json:"rows"`
}

// CommentAnalysis is the scored comment table of one submission.
type CommentAnalysis struct {
	RunID        string            `json:"run_id,omitempty"`
	SubmissionID string            `json:"submission_id"`
	MaxDepth     *int              `json:"max_depth,omitempty"`
	Model        string            `json:"model,omitempty"`
	CollectedAt  time.Time         `json:"collected_at"`
	Stats        sentiment.Stats   `json:"stats"`
	Rows         []AnalyzedComment `json:"rows"`
}

// Submissions returns the collected records without their scores.
func (a *SubredditAnalysis) Submissions() []domain.Submission {
	out := make([]domain.Submission, len(a.Rows))
	for i, r := range a.Rows {
		out[i] = r.Submission
	}
	return out
}

// Comments returns the collected records without their scores.
func (a *CommentAnalysis) Comments() []domain.Comment {
	out := make([]domain.Comment, len(a.Rows))
	for i, r := range a.Rows {
		out[i] = r.Comment
	}
	return out
}
