// Package fetch is the shared HTTP layer for government API adapters:
// per-host request pacing, transient-failure retry, and typed status errors.
// The per-provider request budget (fixed window) lives above this layer, in
// the adapters themselves.
package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/cotai/tendersearch/internal/resilience"
)

// UserAgent identifies us to the public APIs, as required by their terms.
const UserAgent = "COTAI/1.0 (Sistema de Automação para Cotações)"

// StatusError is a non-2xx response that was not retried away. RetryAfter
// is populated from the Retry-After header on 429 responses.
type StatusError struct {
	Code       int
	URL        string
	RetryAfter time.Duration
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http %d from %s", e.Code, e.URL)
}

// Options configures a Client.
type Options struct {
	UserAgent string
	Timeout   time.Duration
	Retry     resilience.RetryConfig
	// Pacing holds per-host courtesy limiters. Hosts without an entry get
	// DefaultPacing.
	Pacing map[string]*rate.Limiter
}

// DefaultPacing is the per-host limit applied when no explicit one is set.
func DefaultPacing() *rate.Limiter {
	return rate.NewLimiter(10, 10)
}

// Client wraps net/http with the behavior every adapter needs. It is safe
// for concurrent use.
type Client struct {
	http      *http.Client
	userAgent string
	retry     resilience.RetryConfig
	pacing    map[string]*rate.Limiter
	fallback  *rate.Limiter
}

// NewClient creates a Client with sensible defaults for slow public APIs.
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = UserAgent
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = resilience.DefaultRetryConfig()
	}

	pacing := make(map[string]*rate.Limiter, len(opts.Pacing))
	for host, lim := range opts.Pacing {
		pacing[host] = lim
	}

	return &Client{
		http: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				MaxConnsPerHost:     20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		userAgent: opts.UserAgent,
		retry:     opts.Retry,
		pacing:    pacing,
		fallback:  DefaultPacing(),
	}
}

// Response is a fully-read HTTP response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Get performs a GET with pacing and retry. 5xx and network failures are
// retried; 429 returns a StatusError immediately (the adapter turns it into
// a rate-limit signal), and other non-2xx codes return a StatusError on the
// first attempt.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values, headers http.Header) (*Response, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*Response, error) {
		return c.get(ctx, rawURL, params, headers)
	})
}

// PostForm performs a form-encoded POST with the same pacing, retry, and
// status handling as Get. The legacy portals answer these with HTML.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values) (*Response, error) {
	return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*Response, error) {
		return c.postForm(ctx, rawURL, form)
	})
}

// GetJSON performs Get and decodes the body into out.
func (c *Client) GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error {
	resp, err := c.Get(ctx, rawURL, params, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(resp.Body, out); err != nil {
		return eris.Wrapf(err, "fetch: decode response from %s", rawURL)
	}
	return nil
}

func (c *Client) get(ctx context.Context, rawURL string, params url.Values, headers http.Header) (*Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: parse url %s", rawURL)
	}
	if params != nil {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("Accept", "application/json")
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	return c.roundTrip(ctx, req)
}

func (c *Client) postForm(ctx context.Context, rawURL string, form url.Values) (*Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "fetch: create request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.roundTrip(ctx, req)
}

// roundTrip waits on the host's pacing limiter, executes the request, reads
// the body, and classifies the status: 429 → StatusError with RetryAfter,
// retryable 5xx → TransientError, other non-2xx → StatusError.
func (c *Client) roundTrip(ctx context.Context, req *http.Request) (*Response, error) {
	if err := c.limiterFor(req.URL.Host).Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "fetch: pacing wait")
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(err, 0)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, resilience.NewTransientError(eris.Wrap(err, "fetch: read body"), resp.StatusCode)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &StatusError{
			Code:       resp.StatusCode,
			URL:        req.URL.String(),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	case resilience.IsTransientHTTPStatus(resp.StatusCode):
		return nil, resilience.NewTransientError(
			&StatusError{Code: resp.StatusCode, URL: req.URL.String()}, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, &StatusError{Code: resp.StatusCode, URL: req.URL.String()}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

func (c *Client) limiterFor(host string) *rate.Limiter {
	if lim, ok := c.pacing[host]; ok {
		return lim
	}
	return c.fallback
}

// parseRetryAfter understands the delta-seconds form of Retry-After. The
// HTTP-date form is rare on these APIs and falls back to zero.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}
