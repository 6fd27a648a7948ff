package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/blackmichael/reddit-analytics/internal/domain"
	"github.com/blackmichael/reddit-analytics/internal/sentiment"
)

// Collector produces submission and comment tables.
type Collector interface {
	CollectSubmissions(ctx context.Context, subreddit string, q domain.ListingQuery) ([]domain.Submission, error)
	CollectComments(ctx context.Context, submissionID string, maxDepth *int) ([]domain.Comment, error)
}

// Classifier labels a batch of texts with a transformer model.
type Classifier interface {
	Classify(ctx context.Context, texts []string) ([]sentiment.ModelLabel, error)
	Model() string
}

// Service collects tables, scores them and optionally archives each run.
type Service struct {
	collector  Collector
	scorer     sentiment.Scorer
	classifier Classifier
	runs       domain.RunRepository
	logger     *slog.Logger

	now   func() time.Time
	newID func() string
}

// NewService creates a Service. classifier and runs may be nil, which
// disables transformer labels and the run archive respectively.
func NewService(collector Collector, scorer sentiment.Scorer, classifier Classifier, runs domain.RunRepository, logger *slog.Logger) *Service {
	return &Service{
		collector:  collector,
		scorer:     scorer,
		classifier: classifier,
		runs:       runs,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		newID:      uuid.NewString,
	}
}

// ClassifierEnabled reports whether transformer labels can be requested.
func (s *Service) ClassifierEnabled() bool {
	return s.classifier != nil
}

// AnalyzeSubreddit collects a submission listing and scores the selected
// text column of every row.
func (s *Service) AnalyzeSubreddit(ctx context.Context, req Request) (*SubredditAnalysis, error) {
	if req.Text == "" {
		req.Text = TextTitle
	}
	if _, err := ParseTextColumn(string(req.Text)); err != nil {
		return nil, err
	}
	if req.Transformer && s.classifier == nil {
		return nil, ErrClassifierUnavailable
	}

	subs, err := s.collector.CollectSubmissions(ctx, req.Subreddit, req.Query)
	if err != nil {
		return nil, err
	}
	collectedAt := s.now()

	scored := sentiment.ScoreRows(s.scorer, subs, req.Text.Of)
	rows := make([]AnalyzedSubmission, len(scored))
	for i, r := range scored {
		rows[i] = AnalyzedSubmission{
			Submission:        r.Row,
			Sentiment:         r.Sentiment,
			SentimentCompound: r.Scores.Compound,
			Scores:            r.Scores,
		}
	}

	out := &SubredditAnalysis{
		Subreddit:   req.Subreddit,
		Query:       req.Query,
		Text:        req.Text,
		CollectedAt: collectedAt,
		Stats:       sentiment.AggregateRows(scored),
		Rows:        rows,
	}

	if req.Transformer {
		texts := make([]string, len(subs))
		for i, sub := range subs {
			texts[i] = req.Text.Of(sub)
		}
		labels, err := s.classifier.Classify(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("analyze r/%s: %w", req.Subreddit, err)
		}
		for i := range out.Rows {
			out.Rows[i].Model = &labels[i]
		}
		out.Model = s.classifier.Model()
	}

	out.RunID = s.archive(ctx, &domain.Run{
		Kind:        domain.RunSubmissions,
		Target:      req.Subreddit,
		Query:       req.Query,
		CollectedAt: collectedAt,
		Submissions: subs,
	})

	s.logger.Info("subreddit analyzed",
		"subreddit", req.Subreddit,
		"rows", len(rows),
		"avg_compound", out.Stats.AvgCompound,
		"run_id", out.RunID,
	)
	return out, nil
}

// AnalyzeComments collects the comment table of a submission and scores
// every comment body.
func (s *Service) AnalyzeComments(ctx context.Context, submissionID string, maxDepth *int, transformer bool) (*CommentAnalysis, error) {
	if transformer && s.classifier == nil {
		return nil, ErrClassifierUnavailable
	}

	comments, err := s.collector.CollectComments(ctx, submissionID, maxDepth)
	if err != nil {
		return nil, err
	}
	collectedAt := s.now()

	scored := sentiment.ScoreRows(s.scorer, comments, func(c domain.Comment) string { return c.Body })
	rows := make([]AnalyzedComment, len(scored))
	for i, r := range scored {
		rows[i] = AnalyzedComment{
			Comment:           r.Row,
			Sentiment:         r.Sentiment,
			SentimentCompound: r.Scores.Compound,
			Scores:            r.Scores,
		}
	}

	out := &CommentAnalysis{
		SubmissionID: submissionID,
		MaxDepth:     maxDepth,
		CollectedAt:  collectedAt,
		Stats:        sentiment.AggregateRows(scored),
		Rows:         rows,
	}

	if transformer {
		texts := make([]string, len(comments))
		for i, c := range comments {
			texts[i] = c.Body
		}
		labels, err := s.classifier.Classify(ctx, texts)
		if err != nil {
			return nil, fmt.Errorf("analyze comments of %s: %w", submissionID, err)
		}
		for i := range out.Rows {
			out.Rows[i].Model = &labels[i]
		}
		out.Model = s.classifier.Model()
	}

	out.RunID = s.archive(ctx, &domain.Run{
		Kind:        domain.RunComments,
		Target:      submissionID,
		MaxDepth:    maxDepth,
		CollectedAt: collectedAt,
		Comments:    comments,
	})

	s.logger.Info("comments analyzed",
		"submission_id", submissionID,
		"rows", len(rows),
		"avg_compound", out.Stats.AvgCompound,
		"run_id", out.RunID,
	)
	return out, nil
}

// archive stores run and returns its id, or "" when the archive is disabled
// or the write failed. A failed write does not fail the analysis.
func (s *Service) archive(ctx context.Context, run *domain.Run) string {
	if s.runs == nil {
		return ""
	}
	run.ID = s.newID()
	if err := s.runs.SaveRun(ctx, run); err != nil {
		s.logger.Error("failed to archive run", "kind", run.Kind, "target", run.Target, "error", err)
		return ""
	}
	return run.ID
}

// ListRuns returns the most recent archived runs.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if s.runs == nil {
		return nil, ErrArchiveDisabled
	}
	runs, err := s.runs.ListRuns(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns an archived run with its rows.
func (s *Service) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	if s.runs == nil {
		return nil, ErrArchiveDisabled
	}
	run, err := s.runs.GetRun(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}
