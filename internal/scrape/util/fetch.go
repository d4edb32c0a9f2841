package util

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	DefaultUserAgent = "internwatch-engine/1.0 (+https://github.com/internwatch)"
	defaultMaxBytes  = 20 << 20
)

var ErrEmptyBody = errors.New("empty response body")

// HTTPStatusError is returned for non-2xx upstream responses.
type HTTPStatusError struct {
	URL    string
	Status int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status %d", e.URL, e.Status)
}

type FetchResult struct {
	URL         string
	Status      int
	ContentType string
	Body        []byte
}

// Client is the shared outbound HTTP client: bounded by a timeout,
// paced per host and size-capped.
type Client struct {
	HTTP      *http.Client
	Limiter   *HostLimiter
	UserAgent string
	MaxBytes  int64
}

func NewClient(timeout time.Duration, limiter *HostLimiter, userAgent string) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	return &Client{
		HTTP:      &http.Client{Timeout: timeout},
		Limiter:   limiter,
		UserAgent: userAgent,
		MaxBytes:  defaultMaxBytes,
	}
}

func (c *Client) Get(ctx context.Context, rawURL, accept string) (FetchResult, error) {
	res := FetchResult{URL: rawURL}
	if err := c.Limiter.WaitURL(ctx, rawURL); err != nil {
		return res, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return res, err
	}
	req.Header.Set("User-Agent", c.UserAgent)
	if accept != "" {
		req.Header.Set("Accept", accept)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return res, err
	}
	defer resp.Body.Close()

	res.Status = resp.StatusCode
	res.ContentType = resp.Header.Get("Content-Type")
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		return res, &HTTPStatusError{URL: rawURL, Status: resp.StatusCode}
	}

	limit := c.MaxBytes
	if limit <= 0 {
		limit = defaultMaxBytes
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return res, fmt.Errorf("read body: %w", err)
	}
	res.Body = body
	if len(body) == 0 {
		return res, ErrEmptyBody
	}
	return res, nil
}
