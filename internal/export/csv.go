// Package export writes collected tables as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/blackmichael/reddit-analytics/internal/analysis"
	"github.com/blackmichael/reddit-analytics/internal/domain"
	"github.com/blackmichael/reddit-analytics/internal/sentiment"
)

// SentimentColumns are appended to the record columns of analyzed tables.
var SentimentColumns = []string{
	"sentiment", "sentiment_compound", "sentiment_neg", "sentiment_neu", "sentiment_pos",
	"model_label", "model_confidence",
}

// Filename returns a timestamped file name such as
// "golang_submissions_20240301_101500.csv".
func Filename(prefix string, now time.Time) string {
	return fmt.Sprintf("%s_%s.csv", prefix, now.Format("20060102_150405"))
}

// WriteSubmissions writes a submission table with a header row.
func WriteSubmissions(w io.Writer, rows []domain.Submission) error {
	return writeTable(w, domain.SubmissionColumns, len(rows), func(i int) []string {
		return rows[i].Row()
	})
}

// WriteComments writes a comment table with a header row.
func WriteComments(w io.Writer, rows []domain.Comment) error {
	return writeTable(w, domain.CommentColumns, len(rows), func(i int) []string {
		return rows[i].Row()
	})
}

// WriteAnalyzedSubmissions writes submissions followed by their sentiment
// columns.
func WriteAnalyzedSubmissions(w io.Writer, rows []analysis.AnalyzedSubmission) error {
	header := append(append([]string{}, domain.SubmissionColumns...), SentimentColumns...)
	return writeTable(w, header, len(rows), func(i int) []string {
		r := rows[i]
		return append(r.Submission.Row(), sentimentCells(r.Sentiment, r.Scores, r.Model)...)
	})
}

// WriteAnalyzedComments writes comments followed by their sentiment columns.
func WriteAnalyzedComments(w io.Writer, rows []analysis.AnalyzedComment) error {
	header := append(append([]string{}, domain.CommentColumns...), SentimentColumns...)
	return writeTable(w, header, len(rows), func(i int) []string {
		r := rows[i]
		return append(r.Comment.Row(), sentimentCells(r.Sentiment, r.Scores, r.Model)...)
	})
}

func sentimentCells(label sentiment.Label, s sentiment.Scores, model *sentiment.ModelLabel) []string {
	cells := []string{
		string(label),
		formatFloat(s.Compound),
		formatFloat(s.Neg),
		formatFloat(s.Neu),
		formatFloat(s.Pos),
		"",
		"",
	}
	if model != nil {
		cells[5] = model.Label
		cells[6] = formatFloat(model.Confidence)
	}
	return cells
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func writeTable(w io.Writer, header []string, n int, row func(int) []string) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := range n {
		if err := writer.Write(row(i)); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush csv: %w", err)
	}
	return nil
}
