package reddit

import "encoding/json"

const (
	kindListing = "Listing"
	kindComment = "t1"
	kindLink    = "t3"
	kindMore    = "more"

	prefixComment = "t1_"
	prefixLink    = "t3_"
)

// thing is the generic envelope Reddit wraps every object in.
type thing struct {
	Kind string          `json:"kind"`
	Data json.RawMessage `json:"data"`
}

// listingData is the body of a Listing thing.
type listingData struct {
	After    string  `json:"after"`
	Children []thing `json:"children"`
}

// listingThing is a thing whose data is known to be a listing.
type listingThing struct {
	Kind string      `json:"kind"`
	Data listingData `json:"data"`
}

// linkData is the body of a t3 (submission) thing.
type linkData struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Score       int     `json:"score"`
	UpvoteRatio float64 `json:"upvote_ratio"`
	NumComments int     `json:"num_comments"`
	CreatedUTC  float64 `json:"created_utc"`
	Author      string  `json:"author"`
	URL         string  `json:"url"`
	Permalink   string  `json:"permalink"`
}

// commentData is the body of a t1 (comment) thing. Replies is either an empty
// string or a Listing thing.
type commentData struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	LinkID     string          `json:"link_id"`
	ParentID   string          `json:"parent_id"`
	Body       string          `json:"body"`
	Score      int             `json:"score"`
	CreatedUTC float64         `json:"created_utc"`
	Author     string          `json:"author"`
	Depth      *int            `json:"depth"`
	Replies    json.RawMessage `json:"replies"`
}

// moreData is the body of a "load more comments" placeholder. A placeholder
// without children is a "continue this thread" link.
type moreData struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	ParentID string   `json:"parent_id"`
	Count    int      `json:"count"`
	Depth    int      `json:"depth"`
	Children []string `json:"children"`
}

type moreChildrenResponse struct {
	JSON struct {
		Errors [][]any `json:"errors"`
		Data   struct {
			Things []thing `json:"things"`
		} `json:"data"`
	} `json:"json"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Scope       string `json:"scope"`
	Error       string `json:"error"`
}

// replies decodes the replies field of a comment. Reddit sends "" when a
// comment has no replies.
func (c *commentData) replies() ([]thing, error) {
	if len(c.Replies) == 0 || c.Replies[0] != '{' {
		return nil, nil
	}
	var l listingThing
	if err := json.Unmarshal(c.Replies, &l); err != nil {
		return nil, err
	}
	return l.Data.Children, nil
}
