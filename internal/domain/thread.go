package domain

// CommentNode is one comment in a fully expanded reply tree.
type CommentNode struct {
	Comment Comment
	Replies []*CommentNode
}

// CommentTree is the expanded reply tree of a single submission. It must not
// contain unresolved "load more" placeholders.
type CommentTree struct {
	SubmissionID string
	Roots        []*CommentNode
}

// Flatten returns every comment in the tree in breadth-first order: all
// top-level comments first, then their replies level by level.
func (t *CommentTree) Flatten() []Comment {
	if t == nil {
		return []Comment{}
	}

	out := make([]Comment, 0, len(t.Roots))
	queue := append([]*CommentNode(nil), t.Roots...)
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n == nil {
			continue
		}
		out = append(out, n.Comment)
		queue = append(queue, n.Replies...)
	}
	return out
}

// FilterDepth returns the comments whose depth is at most maxDepth, keeping
// their relative order. A nil maxDepth returns comments unchanged. The input
// slice is never modified.
func FilterDepth(comments []Comment, maxDepth *int) []Comment {
	if maxDepth == nil {
		return comments
	}
	out := make([]Comment, 0, len(comments))
	for _, c := range comments {
		if c.Depth <= *maxDepth {
			out = append(out, c)
		}
	}
	return out
}
