package httpclient

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultTimeout applies when a non-positive timeout is given.
	DefaultTimeout = 30 * time.Second

	defaultUserAgent = "mahimeta-go-sdk"
)

// Option customizes the underlying resty client.
type Option func(*resty.Client)

// WithUserAgent overrides the User-Agent sent on every request.
func WithUserAgent(ua string) Option {
	return func(c *resty.Client) {
		if ua != "" {
			c.SetHeader("User-Agent", ua)
		}
	}
}

// WithHeaders adds headers sent on every request. Per-call headers win.
func WithHeaders(headers map[string]string) Option {
	return func(c *resty.Client) {
		if len(headers) > 0 {
			c.SetHeaders(headers)
		}
	}
}

// RestyClient implements Client over resty. One client is meant to be shared
// so its connection pool is reused.
type RestyClient struct {
	client *resty.Client
}

// NewRestyClient builds a Client with the given timeout.
func NewRestyClient(timeout time.Duration, opts ...Option) *RestyClient {
	return &RestyClient{client: newRestyBaseClient(timeout, opts...)}
}

// NewRestyHTTPClient exposes the configured resty.Client for callers that need
// verbs other than GET.
func NewRestyHTTPClient(timeout time.Duration, opts ...Option) *resty.Client {
	return newRestyBaseClient(timeout, opts...)
}

// newRestyBaseClient never retries; callers decide what a failure means.
func newRestyBaseClient(timeout time.Duration, opts ...Option) *resty.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := resty.New().
		SetTimeout(timeout).
		SetRetryCount(0).
		SetHeader("User-Agent", defaultUserAgent)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get issues a GET with query parameters and headers. Non-2xx statuses are
// returned as responses, not errors.
func (r *RestyClient) Get(ctx context.Context, url string, query, headers map[string]string) (Response, error) {
	req := r.client.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetHeaders(headers)

	resp, err := req.Get(url)
	if err != nil {
		return nil, err
	}
	return response{resp}, nil
}

// response satisfies Response through the embedded resty methods.
type response struct {
	*resty.Response
}
