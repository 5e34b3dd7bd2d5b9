package httpclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

const defaultTimeout = 15 * time.Second

// Client is a thin JSON client over resty shared by the provider adapters.
// Request headers are never logged; they may carry credentials.
type Client struct {
	rc     *resty.Client
	name   string
	logger *zap.Logger
}

type Option func(*Client)

// WithTimeout bounds every request made through the client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.rc.SetTimeout(d)
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHeader sets a header sent on every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if value != "" {
			c.rc.SetHeader(key, value)
		}
	}
}

// New creates a client. name identifies the upstream in log lines.
func New(name string, opts ...Option) *Client {
	c := &Client{
		rc:     resty.New().SetTimeout(defaultTimeout).SetHeader("Accept", "application/json"),
		name:   name,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.rc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		host, path := splitURL(resp.Request.URL)
		c.logger.Debug("upstream call",
			zap.String("upstream", c.name),
			zap.String("method", resp.Request.Method),
			zap.String("host", host),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode()),
			zap.Duration("latency", resp.Time()),
		)
		return nil
	})

	return c
}

// Request describes a single outbound JSON call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	// Sets Authorization to "<AuthScheme> <AuthToken>" when non-empty.
	AuthScheme string
	AuthToken  string
	Body       interface{}
}

// Do sends req and decodes a 2xx JSON body into response when it is non nil.
// Non-2xx replies are returned as *UpstreamError.
func (c *Client) Do(ctx context.Context, req Request, response interface{}) error {
	r := c.rc.R().SetContext(ctx).SetHeaders(req.Headers)
	if req.AuthToken != "" {
		scheme := req.AuthScheme
		if scheme == "" {
			scheme = "Bearer"
		}
		r.SetAuthScheme(scheme).SetAuthToken(req.AuthToken)
	}
	if req.Body != nil {
		r.SetHeader("Content-Type", "application/json").SetBody(req.Body)
	}

	method := req.Method
	if method == "" {
		method = resty.MethodGet
	}

	resp, err := r.Execute(method, req.URL)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	if resp.IsError() || resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return &UpstreamError{
			StatusCode: resp.StatusCode(),
			Body:       resp.Body(),
			URL:        req.URL,
		}
	}

	if response != nil {
		if err := json.Unmarshal(resp.Body(), response); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

// GetJSON is Do for a GET request.
func (c *Client) GetJSON(ctx context.Context, rawURL string, headers map[string]string, response interface{}) error {
	return c.Do(ctx, Request{Method: resty.MethodGet, URL: rawURL, Headers: headers}, response)
}

func splitURL(raw string) (string, string) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", ""
	}
	return u.Host, u.Path
}
