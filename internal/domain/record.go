package domain

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrInvalidRecord is returned when a record fails construction-time validation.
var ErrInvalidRecord = errors.New("invalid record")

// SubmissionColumns is the ordered column schema of a submission table.
var SubmissionColumns = []string{
	"id", "title", "selftext", "score", "upvote_ratio", "num_comments",
	"created_utc", "author", "url", "permalink",
}

// CommentColumns is the ordered column schema of a comment table.
var CommentColumns = []string{
	"comment_id", "submission_id", "body", "score", "created_utc",
	"author", "parent_id", "depth",
}

// Submission is a top-level post collected from a subreddit.
type Submission struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Score       int     `json:"score"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Author      string  `json:"author"`
	URL         string  `json:"url"`

	// Permalink is the path relative to the site root.
	Permalink string `json:"permalink"`
}

// NewSubmission validates s and returns it. The id must be non-empty, the
// upvote ratio must lie in [0,1] and the comment count must not be negative.
func NewSubmission(s Submission) (Submission, error) {
	if s.ID == "" {
		return Submission{}, fmt.Errorf("%w: submission id is empty", ErrInvalidRecord)
	}
	if s.UpvoteRatio < 0 || s.UpvoteRatio > 1 {
		return Submission{}, fmt.Errorf("%w: submission %s upvote_ratio %v outside [0,1]", ErrInvalidRecord, s.ID, s.UpvoteRatio)
	}
	if s.NumComments < 0 {
		return Submission{}, fmt.Errorf("%w: submission %s num_comments %d is negative", ErrInvalidRecord, s.ID, s.NumComments)
	}
	return s, nil
}

// Row renders the submission in SubmissionColumns order.
func (s Submission) Row() []string {
	return []string{
		s.ID,
		s.Title,
		s.Selftext,
		strconv.Itoa(s.Score),
		strconv.FormatFloat(s.UpvoteRatio, 'f', -1, 64),
		strconv.Itoa(s.NumComments),
		strconv.FormatFloat(s.CreatedUTC, 'f', -1, 64),
		s.Author,
		s.URL,
		s.Permalink,
	}
}

// Comment is a single reply within a submission's comment tree.
type Comment struct {
	CommentID    string  `json:"comment_id"`
	SubmissionID string  `json:"submission_id"`
	Body         string  `json:"body"`
	Score        int     `json:"score"`
	CreatedUTC   float64 `json:"created_utc"`
	Author       string  `json:"author"`

	// ParentID references either another comment or the submission itself,
	// in the source's fullname form (t1_xxx or t3_xxx).
	ParentID string `json:"parent_id"`

	// Depth is the distance from the submission root; top-level comments
	// have depth 0.
	Depth int `json:"depth"`
}

// NewComment validates c and returns it.
func NewComment(c Comment) (Comment, error) {
	if c.CommentID == "" {
		return Comment{}, fmt.Errorf("%w: comment id is empty", ErrInvalidRecord)
	}
	if c.SubmissionID == "" {
		return Comment{}, fmt.Errorf("%w: comment %s has no submission id", ErrInvalidRecord, c.CommentID)
	}
	if c.Depth < 0 {
		return Comment{}, fmt.Errorf("%w: comment %s depth %d is negative", ErrInvalidRecord, c.CommentID, c.Depth)
	}
	return c, nil
}

// Row renders the comment in CommentColumns order.
func (c Comment) Row() []string {
	return []string{
		c.CommentID,
		c.SubmissionID,
		c.Body,
		strconv.Itoa(c.Score),
		strconv.FormatFloat(c.CreatedUTC, 'f', -1, 64),
		c.Author,
		c.ParentID,
		strconv.Itoa(c.Depth),
	}
}
