package reddit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/blackmichael/reddit-analytics/internal/domain"
)

const (
	defaultAuthURL           = "https://www.reddit.com"
	defaultAPIURL            = "https://oauth.reddit.com"
	defaultRequestsPerMinute = 60

	// tokenSlack renews a token this long before it expires.
	tokenSlack = time.Minute
)

// Credentials identify a Reddit script or web application.
type Credentials struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
}

// Options tune a Client. Zero values select the public Reddit endpoints.
type Options struct {
	AuthURL           string
	APIURL            string
	RequestsPerMinute int
	HTTPClient        *http.Client
	Logger            *slog.Logger
}

// APIError is a non-2xx response from Reddit.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("reddit API error (status %d): %s", e.StatusCode, e.Body)
}

// Unwrap maps 404 responses to domain.ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	return nil
}

// Client is an application-only OAuth client for the Reddit API. It
// implements domain.ContentSource.
type Client struct {
	creds      Credentials
	authURL    string
	apiURL     string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger

	mu          sync.Mutex
	accessToken string
	expiresAt   time.Time
}

var _ domain.ContentSource = (*Client)(nil)

// NewClient creates a Reddit client. All three credential strings are
// required; the session itself is established lazily on the first request.
func NewClient(creds Credentials, opts Options) (*Client, error) {
	if creds.ClientID == "" || creds.ClientSecret == "" || creds.UserAgent == "" {
		return nil, fmt.Errorf("reddit client id, secret and user agent are required")
	}

	if opts.AuthURL == "" {
		opts.AuthURL = defaultAuthURL
	}
	if opts.APIURL == "" {
		opts.APIURL = defaultAPIURL
	}
	if opts.RequestsPerMinute <= 0 {
		opts.RequestsPerMinute = defaultRequestsPerMinute
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}

	return &Client{
		creds:      creds,
		authURL:    strings.TrimRight(opts.AuthURL, "/"),
		apiURL:     strings.TrimRight(opts.APIURL, "/"),
		httpClient: opts.HTTPClient,
		limiter:    rate.NewLimiter(rate.Every(time.Minute/time.Duration(opts.RequestsPerMinute)), 1),
		logger:     opts.Logger,
	}, nil
}

// Authenticate obtains an application-only access token. It is called
// automatically when no valid token is cached.
func (c *Client) Authenticate(ctx context.Context) error {
	form := url.Values{}
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL+"/api/v1/access_token", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.SetBasicAuth(c.creds.ClientID, c.creds.ClientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.creds.UserAgent)

	body, err := c.do(req)
	if err != nil {
		return fmt.Errorf("access token: %w", err)
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return fmt.Errorf("unmarshal token: %w", err)
	}
	if tok.AccessToken == "" {
		return fmt.Errorf("access token: empty token (error %q)", tok.Error)
	}

	c.mu.Lock()
	c.accessToken = tok.AccessToken
	c.expiresAt = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	c.mu.Unlock()

	c.logger.Debug("reddit session established", "expires_in", tok.ExpiresIn, "scope", tok.Scope)
	return nil
}

func (c *Client) token(ctx context.Context) (string, error) {
	c.mu.Lock()
	tok, exp := c.accessToken, c.expiresAt
	c.mu.Unlock()

	if tok != "" && time.Now().Add(tokenSlack).Before(exp) {
		return tok, nil
	}
	if err := c.Authenticate(ctx); err != nil {
		return "", err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, nil
}

func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
}

// get performs an authenticated GET against the API host and decodes the
// JSON response into result. A 401 triggers one re-authentication.
func (c *Client) get(ctx context.Context, path string, params url.Values, result any) error {
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("wait for request slot: %w", err)
		}

		tok, err := c.token(ctx)
		if err != nil {
			return err
		}

		u := c.apiURL + path
		if len(params) > 0 {
			u += "?" + params.Encode()
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+tok)
		req.Header.Set("User-Agent", c.creds.UserAgent)

		body, err := c.do(req)
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized && attempt == 0 {
			c.logger.Info("reddit token rejected, re-authenticating")
			c.invalidateToken()
			continue
		}
		if err != nil {
			return err
		}

		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
		return nil
	}
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &domain.RateLimitError{
			Wait: retryAfter(resp.Header),
			Err:  &APIError{StatusCode: resp.StatusCode, Body: string(body)},
		}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}
	return body, nil
}

// retryAfter reads the wait requested by a throttled response: Retry-After
// first, then Reddit's X-Ratelimit-Reset. Zero means the response gave none.
func retryAfter(h http.Header) time.Duration {
	if v := strings.TrimSpace(h.Get("Retry-After")); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
		if at, err := http.ParseTime(v); err == nil {
			if d := time.Until(at); d > 0 {
				return d
			}
		}
	}
	if v := strings.TrimSpace(h.Get("X-Ratelimit-Reset")); v != "" {
		if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
			return time.Duration(secs * float64(time.Second))
		}
	}
	return 0
}
