package likeapi

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/goccy/go-json"
	"go.uber.org/zap"
)

// TenantHeader carries the tenant identifier on every request.
const TenantHeader = "X-Tenant-ID"

const (
	defaultUserAgent  = "likebar/0.1"
	requestTimeout    = 10 * time.Second
	maxResponseBytes  = 1 << 20
	defaultAttempts   = 3
	defaultRetryDelay = 250 * time.Millisecond
	maxRetryDelay     = 2 * time.Second
	maxRetryJitter    = 100 * time.Millisecond
)

// Client talks to the like/comment HTTP API.
type Client struct {
	base       string
	tenant     string
	http       *http.Client
	userAgent  string
	attempts   uint
	retryDelay time.Duration
	logger     *zap.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithTenant attaches the X-Tenant-ID header to every request. Blank ids are ignored.
func WithTenant(id string) Option {
	return func(c *Client) { c.tenant = strings.TrimSpace(id) }
}

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithRetryAttempts bounds the attempts made for idempotent requests.
// Values below one are treated as one.
func WithRetryAttempts(n int) Option {
	return func(c *Client) {
		if n < 1 {
			n = 1
		}
		c.attempts = uint(n)
	}
}

// WithRetryDelay sets the base backoff between idempotent retries.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.retryDelay = d
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewClient builds a Client for the API rooted at baseURL (origin plus an
// optional path prefix).
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	base, err := normalizeBase(baseURL)
	if err != nil {
		return nil, err
	}
	c := &Client{
		base:       base,
		http:       &http.Client{Timeout: requestTimeout},
		userAgent:  defaultUserAgent,
		attempts:   defaultAttempts,
		retryDelay: defaultRetryDelay,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// PageURL returns the URL used to fetch the state of pageKey.
func (c *Client) PageURL(pageKey string) string {
	return c.base + "/api/page/" + url.PathEscape(pageKey)
}

// FetchPageState retrieves the like count and comment list of a page.
func (c *Client) FetchPageState(ctx context.Context, pageKey string) (PageState, error) {
	if c == nil {
		return PageState{}, fmt.Errorf("client is nil")
	}
	var payload pageResponse
	path := "/api/page/" + url.PathEscape(pageKey)
	err := c.withRetry(ctx, "fetch page", func() error {
		payload = pageResponse{}
		return c.roundTrip(ctx, http.MethodGet, path, nil, &payload, true)
	})
	if err != nil {
		return PageState{}, err
	}
	if payload.Error != "" {
		return PageState{}, &APIError{Path: path, Status: http.StatusOK, Message: payload.Error}
	}
	comments := payload.Comments
	if comments == nil {
		comments = []Comment{}
	}
	return PageState{
		Likes:    firstCount(payload.Likes, payload.TotalLikes),
		Comments: comments,
	}, nil
}

// InitPage asks the server to create the page record if it does not exist.
// The call is idempotent and its response body is ignored.
func (c *Client) InitPage(ctx context.Context, pageKey string) error {
	if c == nil {
		return fmt.Errorf("client is nil")
	}
	return c.withRetry(ctx, "init page", func() error {
		return c.roundTrip(ctx, http.MethodPost, "/api/page/init", pageKeyRequest{PageKey: pageKey}, nil, false)
	})
}

// SubmitLike records a like for pageKey. A quota refusal is reported through
// LikeResult.LimitExceeded rather than as an error.
func (c *Client) SubmitLike(ctx context.Context, pageKey string) (LikeResult, error) {
	if c == nil {
		return LikeResult{}, fmt.Errorf("client is nil")
	}
	const path = "/api/like"
	var payload likeResponse
	err := c.roundTrip(ctx, http.MethodPost, path, pageKeyRequest{PageKey: pageKey}, &payload, true)
	if IsLimitMessage(payload.Error) {
		return LikeResult{
			Likes:         firstCount(payload.Likes, payload.TotalLikes),
			LimitExceeded: true,
			Reason:        payload.Error,
		}, nil
	}
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
		return LikeResult{}, err
	}
	if payload.Error != "" {
		return LikeResult{}, &APIError{Path: path, Status: http.StatusOK, Message: payload.Error}
	}
	return LikeResult{Likes: firstCount(payload.Likes, payload.TotalLikes)}, nil
}

// SubmitComment posts a comment. name may be empty; the server may assign one.
func (c *Client) SubmitComment(ctx context.Context, pageKey, name, body string) (CommentResult, error) {
	if c == nil {
		return CommentResult{}, fmt.Errorf("client is nil")
	}
	const path = "/api/comment"
	var payload commentResponse
	req := commentRequest{PageKey: pageKey, Name: name, Comment: body}
	if err := c.roundTrip(ctx, http.MethodPost, path, req, &payload, true); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Message == "" {
			apiErr.Message = payload.Error
		}
		return CommentResult{}, err
	}
	if payload.Error != "" {
		return CommentResult{}, &APIError{Path: path, Status: http.StatusOK, Message: payload.Error}
	}
	return CommentResult{ConfirmedName: strings.TrimSpace(payload.Name)}, nil
}

// withRetry runs fn until it succeeds, fails unrecoverably or runs out of
// attempts. The last error from fn is returned as-is.
func (c *Client) withRetry(ctx context.Context, op string, fn func() error) error {
	var last error
	err := retry.Do(
		func() error {
			last = fn()
			if last != nil && !retryable(ctx, last) {
				return retry.Unrecoverable(last)
			}
			return last
		},
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.MaxJitter(maxRetryJitter),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			c.logger.Debug("retrying request", zap.String("op", op), zap.Uint("attempt", n), zap.Error(err))
		}),
	)
	if err == nil {
		return nil
	}
	if last != nil {
		return last
	}
	return err
}

// retryable reports whether a failed idempotent request is worth repeating:
// transport failures and server errors are, client errors and bad payloads are not.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status >= http.StatusInternalServerError
	}
	var decodeErr *DecodeError
	return !errors.As(err, &decodeErr)
}

// roundTrip sends payload (when non-nil) as JSON and decodes the response into
// dest (when non-nil). The body is decoded before the status is checked so
// callers can read application error messages from failed responses.
func (c *Client) roundTrip(ctx context.Context, method, path string, payload, dest any, requireBody bool) error {
	var body io.Reader = http.NoBody
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.tenant != "" {
		req.Header.Set(TenantHeader, c.tenant)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	failed := resp.StatusCode < 200 || resp.StatusCode >= 300

	if dest != nil {
		trimmed := bytes.TrimSpace(raw)
		switch {
		case len(trimmed) == 0:
			if requireBody && !failed {
				return &DecodeError{Path: path, Err: io.ErrUnexpectedEOF}
			}
		default:
			if err := json.Unmarshal(trimmed, dest); err != nil && !failed {
				return &DecodeError{Path: path, Err: err}
			}
		}
	}
	if failed {
		return &APIError{Path: path, Status: resp.StatusCode}
	}
	return nil
}

func normalizeBase(raw string) (string, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", fmt.Errorf("api base url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "https://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", fmt.Errorf("parse api base url %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("api base url %q has no host", raw)
	}
	u.RawQuery = ""
	u.Fragment = ""
	return strings.TrimRight(u.String(), "/"), nil
}
