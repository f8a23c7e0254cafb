// Package cloud is a minimal authenticated JSON client for the provider's REST API.
package cloud

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"

	"github.com/lucasew/snaprotate/internal/sanitize"
	"github.com/lucasew/snaprotate/internal/version"
)

const DefaultBaseURL = "https://api.digitalocean.com/v2"

const maxErrorBody = 64 << 10

// ErrForeignPageLink is returned when an absolute URL handed to the client
// does not point at the configured API host. The bearer token is never sent
// to another host.
var ErrForeignPageLink = errors.New("link points outside the configured API")

// APIError is returned for any non-2xx response.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.URL, e.StatusCode)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
}

type Client struct {
	http    *http.Client
	baseURL *url.URL
	token   string
	logger  *slog.Logger
}

type Option func(*Client)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient builds a client for baseURL authenticating with token. timeout
// bounds every single request; zero disables it.
func NewClient(baseURL, token string, timeout time.Duration, opts ...Option) (*Client, error) {
	if token == "" {
		return nil, errors.New("api token is required")
	}
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https, got %q", baseURL)
	}

	hc := cleanhttp.DefaultPooledClient()
	hc.Timeout = timeout

	c := &Client{
		http:    hc,
		baseURL: u,
		token:   token,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Do issues an authenticated request. target is either a path relative to
// the base URL ("droplets?page=2") or an absolute URL on the same host, as
// found in pagination links. body, when non-nil, is sent as JSON. When out
// is nil the response body is not parsed at all, which is what delete
// endpoints with empty bodies need.
func (c *Client) Do(ctx context.Context, method, target string, body, out any) error {
	u, err := c.resolve(target)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u.Redacted(), err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.logger.Debug("api request", "method", method, "url", u.Redacted(), "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &APIError{
			Method:     method,
			URL:        u.Redacted(),
			StatusCode: resp.StatusCode,
			Body:       sanitize.Text(strings.TrimSpace(string(data))),
		}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%s %s: empty response body", method, u.Redacted())
		}
		return fmt.Errorf("%s %s: decode response: %w", method, u.Redacted(), err)
	}
	return nil
}

func (c *Client) Get(ctx context.Context, target string, out any) error {
	return c.Do(ctx, http.MethodGet, target, nil, out)
}

func (c *Client) Post(ctx context.Context, target string, body, out any) error {
	return c.Do(ctx, http.MethodPost, target, body, out)
}

func (c *Client) Delete(ctx context.Context, target string) error {
	return c.Do(ctx, http.MethodDelete, target, nil, nil)
}

func (c *Client) resolve(target string) (*url.URL, error) {
	ref, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse target %q: %w", target, err)
	}

	if ref.IsAbs() {
		if !strings.EqualFold(ref.Scheme, c.baseURL.Scheme) || !strings.EqualFold(ref.Host, c.baseURL.Host) {
			return nil, fmt.Errorf("%w: %s", ErrForeignPageLink, ref.Redacted())
		}
		return ref, nil
	}

	u := *c.baseURL
	u.Path = strings.TrimSuffix(c.baseURL.Path, "/") + "/" + strings.TrimPrefix(ref.Path, "/")
	u.RawPath = ""
	u.RawQuery = ref.RawQuery
	return &u, nil
}
