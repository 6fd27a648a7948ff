package domain

import "time"

// RunKind distinguishes submission runs from comment runs.
type RunKind string

const (
	RunSubmissions RunKind = "submissions"
	RunComments    RunKind = "comments"
)

// Run is an archived snapshot of one collection call.
type Run struct {
	ID   string  `json:"id"`
	Kind RunKind `json:"kind"`

	// Target is the subreddit for submission runs and the submission id for
	// comment runs.
	Target string `json:"target"`

	// Query is set for submission runs.
	Query ListingQuery `json:"query"`

	// MaxDepth is set for comment runs collected with a depth bound.
	MaxDepth *int `json:"max_depth,omitempty"`

	CollectedAt time.Time    `json:"collected_at"`
	Submissions []Submission `json:"submissions,omitempty"`
	Comments    []Comment    `json:"comments,omitempty"`
}

// Summary returns the run's listing entry.
func (r *Run) Summary() RunSummary {
	rows := len(r.Submissions)
	if r.Kind == RunComments {
		rows = len(r.Comments)
	}
	return RunSummary{
		ID:          r.ID,
		Kind:        r.Kind,
		Target:      r.Target,
		CollectedAt: r.CollectedAt,
		Rows:        rows,
	}
}

// RunSummary is a run without its rows.
type RunSummary struct {
	ID          string    `json:"id"`
	Kind        RunKind   `json:"kind"`
	Target      string    `json:"target"`
	CollectedAt time.Time `json:"collected_at"`
	Rows        int       `json:"rows"`
}
