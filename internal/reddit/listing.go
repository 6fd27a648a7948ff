package reddit

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/blackmichael/reddit-analytics/internal/domain"
)

// MaxPageSize is the largest page Reddit serves for a listing request.
const MaxPageSize = 100

// DeletedAuthor is how a missing or deleted account is rendered.
const DeletedAuthor = "[deleted]"

// ListSubmissions pages through /r/{subreddit}/{sort} until q.Limit
// submissions were read or the listing ends. The time window is only sent
// for sort modes that use one.
func (c *Client) ListSubmissions(ctx context.Context, subreddit string, q domain.ListingQuery) ([]domain.Submission, error) {
	subreddit = strings.TrimPrefix(strings.TrimSpace(subreddit), "r/")
	path := "/r/" + url.PathEscape(subreddit) + "/" + string(q.Sort)

	out := make([]domain.Submission, 0, min(q.Limit, MaxPageSize))
	after := ""
	for len(out) < q.Limit {
		params := url.Values{}
		params.Set("limit", strconv.Itoa(min(MaxPageSize, q.Limit-len(out))))
		params.Set("raw_json", "1")
		if q.Sort.UsesTimeWindow() && q.Window != "" {
			params.Set("t", string(q.Window))
		}
		if after != "" {
			params.Set("after", after)
			params.Set("count", strconv.Itoa(len(out)))
		}

		var page listingThing
		if err := c.get(ctx, path, params, &page); err != nil {
			return nil, fmt.Errorf("list r/%s/%s: %w", subreddit, q.Sort, err)
		}

		for _, child := range page.Data.Children {
			if child.Kind != kindLink {
				continue
			}
			var link linkData
			if err := json.Unmarshal(child.Data, &link); err != nil {
				return nil, fmt.Errorf("unmarshal submission: %w", err)
			}
			out = append(out, submissionFromLink(link))
		}

		c.logger.Debug("listing page read",
			"subreddit", subreddit,
			"sort", q.Sort,
			"page_rows", len(page.Data.Children),
			"total_rows", len(out),
		)

		if page.Data.After == "" || len(page.Data.Children) == 0 {
			break
		}
		after = page.Data.After
	}

	if len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func submissionFromLink(l linkData) domain.Submission {
	return domain.Submission{
		ID:          l.ID,
		Title:       l.Title,
		Selftext:    l.Selftext,
		Score:       l.Score,
		UpvoteRatio: l.UpvoteRatio,
		NumComments: l.NumComments,
		CreatedUTC:  l.CreatedUTC,
		Author:      authorName(l.Author),
		URL:         l.URL,
		Permalink:   l.Permalink,
	}
}

func authorName(name string) string {
	if name == "" {
		return DeletedAuthor
	}
	return name
}
