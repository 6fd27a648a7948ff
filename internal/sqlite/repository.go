package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/blackmichael/reddit-analytics/internal/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	kind         TEXT NOT NULL,
	target       TEXT NOT NULL,
	sort         TEXT NOT NULL DEFAULT '',
	row_limit    INTEGER NOT NULL DEFAULT 0,
	time_window  TEXT NOT NULL DEFAULT '',
	max_depth    INTEGER,
	collected_at INTEGER NOT NULL,
	row_count    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_runs_collected_at ON runs(collected_at);

CREATE TABLE IF NOT EXISTS submissions (
	run_id       TEXT NOT NULL,
	position     INTEGER NOT NULL,
	id           TEXT NOT NULL,
	title        TEXT NOT NULL,
	selftext     TEXT NOT NULL,
	score        INTEGER NOT NULL,
	upvote_ratio REAL NOT NULL,
	num_comments INTEGER NOT NULL,
	created_utc  REAL NOT NULL,
	author       TEXT NOT NULL,
	url          TEXT NOT NULL,
	permalink    TEXT NOT NULL,
	PRIMARY KEY (run_id, position)
);

CREATE TABLE IF NOT EXISTS comments (
	run_id        TEXT NOT NULL,
	position      INTEGER NOT NULL,
	comment_id    TEXT NOT NULL,
	submission_id TEXT NOT NULL,
	body          TEXT NOT NULL,
	score         INTEGER NOT NULL,
	created_utc   REAL NOT NULL,
	author        TEXT NOT NULL,
	parent_id     TEXT NOT NULL,
	depth         INTEGER NOT NULL,
	PRIMARY KEY (run_id, position)
);
`

// Repository implements domain.RunRepository using SQLite. Every run is
// stored as its own snapshot with its rows in table order.
type Repository struct {
	db *sql.DB
}

var _ domain.RunRepository = (*Repository)(nil)

// NewRepository opens the SQLite database at path, creating the schema if
// needed. Use ":memory:" for a throwaway database. The caller should call
// Close when the repository is no longer needed.
func NewRepository(path string) (*Repository, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// An in-memory database lives only as long as its connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}

	return &Repository{db: db}, nil
}

// Close closes the underlying database connection.
func (r *Repository) Close() error {
	return r.db.Close()
}

// SaveRun inserts a run and its rows in one transaction.
func (r *Repository) SaveRun(ctx context.Context, run *domain.Run) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var maxDepth sql.NullInt64
	if run.MaxDepth != nil {
		maxDepth = sql.NullInt64{Int64: int64(*run.MaxDepth), Valid: true}
	}
	summary := run.Summary()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs (id, kind, target, sort, row_limit, time_window, max_depth, collected_at, row_count)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Kind, run.Target,
		run.Query.Sort, run.Query.Limit, run.Query.Window,
		maxDepth, run.CollectedAt.UTC().UnixMilli(), summary.Rows,
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}

	for i, s := range run.Submissions {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO submissions (run_id, position, id, title, selftext, score, upvote_ratio, num_comments, created_utc, author, url, permalink)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, s.ID, s.Title, s.Selftext, s.Score, s.UpvoteRatio, s.NumComments, s.CreatedUTC, s.Author, s.URL, s.Permalink,
		)
		if err != nil {
			return fmt.Errorf("insert submission %s: %w", s.ID, err)
		}
	}

	for i, c := range run.Comments {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO comments (run_id, position, comment_id, submission_id, body, score, created_utc, author, parent_id, depth)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, c.CommentID, c.SubmissionID, c.Body, c.Score, c.CreatedUTC, c.Author, c.ParentID, c.Depth,
		)
		if err != nil {
			return fmt.Errorf("insert comment %s: %w", c.CommentID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetRun loads a run and its rows. Returns domain.ErrNotFound when no run
// has the given id.
func (r *Repository) GetRun(ctx context.Context, id string) (*domain.Run, error) {
	var (
		run         domain.Run
		maxDepth    sql.NullInt64
		collectedAt int64
		rowCount    int
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, kind, target, sort, row_limit, time_window, max_depth, collected_at, row_count
		FROM runs WHERE id = ?`, id,
	).Scan(&run.ID, &run.Kind, &run.Target, &run.Query.Sort, &run.Query.Limit, &run.Query.Window, &maxDepth, &collectedAt, &rowCount)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query run %s: %w", id, err)
	}
	run.CollectedAt = time.UnixMilli(collectedAt).UTC()
	if maxDepth.Valid {
		d := int(maxDepth.Int64)
		run.MaxDepth = &d
	}

	switch run.Kind {
	case domain.RunComments:
		run.Comments, err = r.comments(ctx, id, rowCount)
	default:
		run.Submissions, err = r.submissions(ctx, id, rowCount)
	}
	if err != nil {
		return nil, err
	}
	return &run, nil
}

func (r *Repository) submissions(ctx context.Context, runID string, n int) ([]domain.Submission, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, title, selftext, score, upvote_ratio, num_comments, created_utc, author, url, permalink
		FROM submissions WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query submissions of run %s: %w", runID, err)
	}
	defer rows.Close()

	out := make([]domain.Submission, 0, n)
	for rows.Next() {
		var s domain.Submission
		if err := rows.Scan(&s.ID, &s.Title, &s.Selftext, &s.Score, &s.UpvoteRatio, &s.NumComments, &s.CreatedUTC, &s.Author, &s.URL, &s.Permalink); err != nil {
			return nil, fmt.Errorf("scan submission: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate submissions: %w", err)
	}
	return out, nil
}

func (r *Repository) comments(ctx context.Context, runID string, n int) ([]domain.Comment, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT comment_id, submission_id, body, score, created_utc, author, parent_id, depth
		FROM comments WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query comments of run %s: %w", runID, err)
	}
	defer rows.Close()

	out := make([]domain.Comment, 0, n)
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.CommentID, &c.SubmissionID, &c.Body, &c.Score, &c.CreatedUTC, &c.Author, &c.ParentID, &c.Depth); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return out, nil
}

// ListRuns returns up to limit run summaries, newest first.
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, target, collected_at, row_count
		FROM runs
		ORDER BY collected_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs (limit=%d): %w", limit, err)
	}
	defer rows.Close()

	out := make([]domain.RunSummary, 0)
	for rows.Next() {
		var (
			s           domain.RunSummary
			collectedAt int64
		)
		if err := rows.Scan(&s.ID, &s.Kind, &s.Target, &collectedAt, &s.Rows); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		s.CollectedAt = time.UnixMilli(collectedAt).UTC()
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return out, nil
}

// DeleteOldRuns removes runs collected more than maxAge ago together with
// their rows. Returns the number of runs deleted.
func (r *Repository) DeleteOldRuns(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-maxAge).UnixMilli()

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"submissions", "comments"} {
		_, err := tx.ExecContext(ctx,
			`DELETE FROM `+table+` WHERE run_id IN (SELECT id FROM runs WHERE collected_at < ?)`, cutoff)
		if err != nil {
			return 0, fmt.Errorf("delete expired %s: %w", table, err)
		}
	}

	res, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE collected_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete expired runs: %w", err)
	}
	deleted, _ := res.RowsAffected()

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}
	return deleted, nil
}
