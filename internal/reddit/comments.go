package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/blackmichael/reddit-analytics/internal/domain"
)

// moreChildrenBatch is the most ids /api/morechildren accepts per call.
const moreChildrenBatch = 100

// FetchCommentTree loads the comment tree of a submission and expands every
// "load more" placeholder, including "continue this thread" links, before
// returning. Large threads cost one request per placeholder batch.
func (c *Client) FetchCommentTree(ctx context.Context, submissionID string) (*domain.CommentTree, error) {
	submissionID = strings.TrimPrefix(submissionID, prefixLink)

	var pages []listingThing
	if err := c.get(ctx, "/comments/"+url.PathEscape(submissionID), url.Values{"raw_json": {"1"}}, &pages); err != nil {
		return nil, fmt.Errorf("fetch comments of %s: %w", submissionID, err)
	}
	if len(pages) < 2 {
		return nil, fmt.Errorf("fetch comments of %s: expected 2 listings, got %d", submissionID, len(pages))
	}

	b := newTreeBuilder(submissionID)
	if err := b.add(pages[1].Data.Children, prefixLink+submissionID); err != nil {
		return nil, err
	}

	expanded := 0
	for len(b.pending) > 0 {
		more := b.pending[0]
		b.pending = b.pending[1:]

		var err error
		if len(more.Children) == 0 {
			err = c.continueThread(ctx, b, more)
		} else {
			err = c.moreChildren(ctx, b, more)
		}
		if err != nil {
			return nil, fmt.Errorf("expand comments of %s: %w", submissionID, err)
		}
		expanded++
	}

	c.logger.Debug("comment tree expanded",
		"submission_id", submissionID,
		"comments", len(b.nodes),
		"placeholders", expanded,
	)
	return &domain.CommentTree{SubmissionID: submissionID, Roots: b.roots}, nil
}

func (c *Client) moreChildren(ctx context.Context, b *treeBuilder, more moreData) error {
	for start := 0; start < len(more.Children); start += moreChildrenBatch {
		end := min(start+moreChildrenBatch, len(more.Children))

		params := url.Values{}
		params.Set("api_type", "json")
		params.Set("link_id", prefixLink+b.submissionID)
		params.Set("children", strings.Join(more.Children[start:end], ","))
		params.Set("raw_json", "1")

		var resp moreChildrenResponse
		if err := c.get(ctx, "/api/morechildren", params, &resp); err != nil {
			return err
		}
		if len(resp.JSON.Errors) > 0 {
			return fmt.Errorf("morechildren: %v", resp.JSON.Errors)
		}
		if err := b.add(resp.JSON.Data.Things, ""); err != nil {
			return err
		}
	}
	return nil
}

// continueThread resolves a childless placeholder by loading the subtree
// rooted at its parent comment and attaching the parent's replies.
func (c *Client) continueThread(ctx context.Context, b *treeBuilder, more moreData) error {
	parent := strings.TrimPrefix(more.ParentID, prefixComment)
	if parent == "" || !strings.HasPrefix(more.ParentID, prefixComment) {
		return nil
	}

	var pages []listingThing
	path := "/comments/" + url.PathEscape(b.submissionID)
	if err := c.get(ctx, path, url.Values{"comment": {parent}, "raw_json": {"1"}}, &pages); err != nil {
		return err
	}
	if len(pages) < 2 {
		return nil
	}

	for _, child := range pages[1].Data.Children {
		if child.Kind != kindComment {
			continue
		}
		var data commentData
		if err := json.Unmarshal(child.Data, &data); err != nil {
			return fmt.Errorf("unmarshal comment: %w", err)
		}
		if data.ID != parent {
			continue
		}
		replies, err := data.replies()
		if err != nil {
			return fmt.Errorf("unmarshal replies of %s: %w", data.ID, err)
		}
		return b.add(replies, more.ParentID)
	}
	return nil
}

// treeBuilder assembles a comment tree from things arriving in any order.
type treeBuilder struct {
	submissionID string
	roots        []*domain.CommentNode
	nodes        map[string]*domain.CommentNode // keyed by fullname
	pending      []moreData
	seenMore     map[string]struct{}
}

func newTreeBuilder(submissionID string) *treeBuilder {
	return &treeBuilder{
		submissionID: submissionID,
		nodes:        make(map[string]*domain.CommentNode),
		seenMore:     make(map[string]struct{}),
	}
}

// add attaches things under parent. An empty parent means each thing names
// its own parent, as in morechildren responses.
func (b *treeBuilder) add(things []thing, parent string) error {
	for _, t := range things {
		switch t.Kind {
		case kindComment:
			var data commentData
			if err := json.Unmarshal(t.Data, &data); err != nil {
				return fmt.Errorf("unmarshal comment: %w", err)
			}
			name := prefixComment + data.ID
			if _, dup := b.nodes[name]; dup {
				continue
			}

			parentID := data.ParentID
			if parentID == "" {
				parentID = parent
			}
			node := &domain.CommentNode{Comment: domain.Comment{
				CommentID:    data.ID,
				SubmissionID: b.submissionID,
				Body:         data.Body,
				Score:        data.Score,
				CreatedUTC:   data.CreatedUTC,
				Author:       authorName(data.Author),
				ParentID:     parentID,
				Depth:        b.depth(parentID, data.Depth),
			}}
			b.nodes[name] = node
			b.attach(node, parentID)

			replies, err := data.replies()
			if err != nil {
				return fmt.Errorf("unmarshal replies of %s: %w", data.ID, err)
			}
			if err := b.add(replies, name); err != nil {
				return err
			}

		case kindMore:
			var more moreData
			if err := json.Unmarshal(t.Data, &more); err != nil {
				return fmt.Errorf("unmarshal placeholder: %w", err)
			}
			if more.ParentID == "" {
				more.ParentID = parent
			}
			key := more.ParentID + "/" + more.ID + "/" + strings.Join(more.Children, ",")
			if _, seen := b.seenMore[key]; seen {
				continue
			}
			b.seenMore[key] = struct{}{}
			b.pending = append(b.pending, more)
		}
	}
	return nil
}

func (b *treeBuilder) attach(node *domain.CommentNode, parentID string) {
	if p, ok := b.nodes[parentID]; ok {
		p.Replies = append(p.Replies, node)
		return
	}
	b.roots = append(b.roots, node)
}

// depth derives a comment's depth from its parent when the parent is known,
// falling back to the depth the source reported, or 0.
func (b *treeBuilder) depth(parentID string, reported *int) int {
	if strings.HasPrefix(parentID, prefixLink) {
		return 0
	}
	if p, ok := b.nodes[parentID]; ok {
		return p.Comment.Depth + 1
	}
	if reported != nil && *reported >= 0 {
		return *reported
	}
	return 0
}
