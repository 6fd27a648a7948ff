package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/blackmichael/reddit-analytics/internal/analysis"
	"github.com/blackmichael/reddit-analytics/internal/config"
	"github.com/blackmichael/reddit-analytics/internal/domain"
	"github.com/blackmichael/reddit-analytics/internal/export"
	"github.com/blackmichael/reddit-analytics/internal/reddit"
	"github.com/blackmichael/reddit-analytics/internal/retry"
	"github.com/blackmichael/reddit-analytics/internal/sentiment"
	"github.com/blackmichael/reddit-analytics/internal/sqlite"
)

const titlePreviewLength = 60

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		subreddit   string
		sort        string
		limit       int
		window      string
		comments    bool
		submission  string
		maxDepth    int
		text        string
		transformer bool
		outDir      string
		verbose     bool
	)

	flag.StringVar(&subreddit, "subreddit", envOrDefault("COLLECT_SUBREDDIT", "python"), "Subreddit to collect (without r/)")
	flag.StringVar(&sort, "sort", "hot", "Sort mode: hot, new, top, controversial or rising")
	flag.IntVar(&limit, "limit", 50, "Maximum number of submissions")
	flag.StringVar(&window, "time", "week", "Time window for top and controversial: hour, day, week, month, year or all")
	flag.BoolVar(&comments, "comments", false, "Also collect the comments of the first submission")
	flag.StringVar(&submission, "submission", "", "Collect only the comments of this submission id")
	flag.IntVar(&maxDepth, "max-depth", -1, "Keep comments up to this depth (-1 keeps all)")
	flag.StringVar(&text, "text", "title", "Scored text column: title, selftext or title_selftext")
	flag.BoolVar(&transformer, "transformer", false, "Add transformer model labels (requires SENTIMENT_MODEL_URL)")
	flag.StringVar(&outDir, "out", "", "Directory to write CSV tables to")
	flag.BoolVar(&verbose, "v", false, "Verbose logging")
	flag.Parse()

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	textColumn, err := analysis.ParseTextColumn(text)
	if err != nil {
		return err
	}
	var depth *int
	if maxDepth >= 0 {
		depth = &maxDepth
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svc, closeFn, err := newAnalysisService(cfg, logger)
	if err != nil {
		return err
	}
	defer closeFn()

	if submission != "" {
		return collectComments(ctx, svc, submission, depth, transformer, outDir)
	}

	query, err := domain.NewListingQuery(sort, limit, window)
	if err != nil {
		return err
	}

	fmt.Printf("Collecting submissions from r/%s (%s, limit %d)...\n", subreddit, query.Sort, query.Limit)
	res, err := svc.AnalyzeSubreddit(ctx, analysis.Request{
		Subreddit:   subreddit,
		Query:       query,
		Text:        textColumn,
		Transformer: transformer,
	})
	if err != nil {
		return err
	}
	fmt.Printf("Collected %d submissions\n", len(res.Rows))

	renderSubmissions(os.Stdout, res)
	renderStats(os.Stdout, "Submission sentiment", res.Stats)

	if outDir != "" {
		err := writeTables(outDir, subreddit+"_submissions",
			func(w io.Writer) error { return export.WriteSubmissions(w, res.Submissions()) },
			func(w io.Writer) error { return export.WriteAnalyzedSubmissions(w, res.Rows) },
		)
		if err != nil {
			return err
		}
	}

	if comments && len(res.Rows) > 0 {
		first := res.Rows[0]
		fmt.Printf("Collecting comments from: %s\n", first.Title)
		return collectComments(ctx, svc, first.ID, depth, transformer, outDir)
	}
	return nil
}

func collectComments(ctx context.Context, svc *analysis.Service, submissionID string, depth *int, transformer bool, outDir string) error {
	res, err := svc.AnalyzeComments(ctx, submissionID, depth, transformer)
	if err != nil {
		return err
	}
	fmt.Printf("Collected %d comments\n", len(res.Rows))
	renderStats(os.Stdout, "Comment sentiment", res.Stats)

	if outDir != "" {
		return writeTables(outDir, submissionID+"_comments",
			func(w io.Writer) error { return export.WriteComments(w, res.Comments()) },
			func(w io.Writer) error { return export.WriteAnalyzedComments(w, res.Rows) },
		)
	}
	return nil
}

func newAnalysisService(cfg *config.Config, logger *slog.Logger) (*analysis.Service, func(), error) {
	client, err := reddit.NewClient(reddit.Credentials{
		ClientID:     cfg.RedditClientID,
		ClientSecret: cfg.RedditClientSecret,
		UserAgent:    cfg.RedditUserAgent,
	}, reddit.Options{
		AuthURL:           cfg.RedditAuthURL,
		APIURL:            cfg.RedditAPIURL,
		RequestsPerMinute: cfg.RequestsPerMinute,
		Logger:            logger,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("create reddit client: %w", err)
	}

	policy := retry.DefaultPolicy()
	policy.MaxAttempts = cfg.MaxAttempts
	collector := domain.NewCollectorService(client, policy, logger)

	scorer, err := sentiment.NewLexiconAnalyzer(cfg.SentimentCacheSize)
	if err != nil {
		return nil, nil, fmt.Errorf("create sentiment analyzer: %w", err)
	}

	var classifier analysis.Classifier
	if cfg.SentimentModelURL != "" {
		c, err := sentiment.NewTransformerClassifier(sentiment.TransformerOptions{
			BaseURL: cfg.SentimentModelURL,
			Model:   cfg.SentimentModel,
			Token:   cfg.SentimentModelToken,
			Logger:  logger,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create transformer classifier: %w", err)
		}
		classifier = c
	}

	var runs domain.RunRepository
	closeFn := func() {}
	if cfg.DatabasePath != "" {
		repo, err := sqlite.NewRepository(cfg.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("create repository: %w", err)
		}
		runs = repo
		closeFn = func() { repo.Close() }
	}

	return analysis.NewService(collector, scorer, classifier, runs, logger), closeFn, nil
}

func renderSubmissions(w io.Writer, res *analysis.SubredditAnalysis) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: titlePreviewLength},
	})

	header := table.Row{"#", "Title", "Score", "Comments", "Upvote Ratio", "Compound", "Sentiment"}
	if res.Model != "" {
		header = append(header, "Model")
	}
	t.AppendHeader(header)

	for i, r := range res.Rows {
		row := table.Row{
			i + 1,
			preview(r.Title, titlePreviewLength),
			r.Score,
			r.NumComments,
			fmt.Sprintf("%.2f", r.UpvoteRatio),
			fmt.Sprintf("%.3f", r.SentimentCompound),
			r.Sentiment,
		}
		if r.Model != nil {
			row = append(row, fmt.Sprintf("%s (%.2f)", r.Model.Label, r.Model.Confidence))
		}
		t.AppendRow(row)
	}

	t.AppendFooter(table.Row{"Total", len(res.Rows), fmt.Sprintf("r/%s %s", res.Subreddit, res.Query.Sort)})
	fmt.Fprintln(w)
	t.Render()
}

func renderStats(w io.Writer, title string, st sentiment.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.SetTitle(title)

	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Items", st.TotalItems},
		{"Positive", fmt.Sprintf("%d (%.1f%%)", st.PositiveCount, st.PositivePct)},
		{"Neutral", fmt.Sprintf("%d (%.1f%%)", st.NeutralCount, st.NeutralPct)},
		{"Negative", fmt.Sprintf("%d (%.1f%%)", st.NegativeCount, st.NegativePct)},
		{"Mean compound", fmt.Sprintf("%.3f", st.AvgCompound)},
		{"Median compound", fmt.Sprintf("%.3f", st.MedianCompound)},
		{"Std compound", fmt.Sprintf("%.3f", st.StdCompound)},
	})
	t.Render()
}

// writeTables writes the collected records and their scored form as two
// files sharing one prefix.
func writeTables(dir, prefix string, raw, scored func(io.Writer) error) error {
	for _, t := range []struct {
		prefix string
		write  func(io.Writer) error
	}{
		{prefix, raw},
		{prefix + "_sentiment", scored},
	} {
		path, err := writeCSV(dir, t.prefix, t.write)
		if err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
	}
	return nil
}

func writeCSV(dir, prefix string, write func(io.Writer) error) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(dir, export.Filename(prefix, time.Now()))

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}
	if err := write(f); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close %s: %w", path, err)
	}
	return path, nil
}

func preview(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
