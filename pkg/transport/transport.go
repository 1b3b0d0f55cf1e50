// Package transport issues HTTP requests for the Tradernet client in blocking
// and non-blocking mode with a single contract.
package transport

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/coachpo/tradernet/errs"
	"github.com/coachpo/tradernet/lib/async"
	"github.com/coachpo/tradernet/lib/observability"
	"github.com/coachpo/tradernet/lib/telemetry"
	"github.com/coachpo/tradernet/pkg/signing"
)

// DefaultTimeout bounds a request when no timeout is configured.
const DefaultTimeout = 300 * time.Second

const maxErrorBody = 4 << 10

// Request describes a single HTTP call.
type Request struct {
	Method string
	URL    string
	Header http.Header
	// Query is canonicalised with signing.BuildQuery and appended to URL.
	Query map[string]any
	Body  []byte
	// Target labels the call in metrics and logs; defaults to the URL path.
	Target string
}

// Response is a fully read HTTP response with a 2xx status.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Client performs HTTP calls. It is safe for concurrent use.
type Client struct {
	http    *http.Client
	timeout time.Duration
	limiter *rate.Limiter
	pool    *async.Pool
	metrics *telemetry.TransportMetrics
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithHTTPClient uses a copy of hc with the configured timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			clone := *hc
			c.http = &clone
		}
	}
}

// WithRateLimit throttles outgoing requests. A non-positive rps disables throttling.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// WithPool sets the worker pool used by DoAsync. Without a pool every async
// call runs on its own goroutine.
func WithPool(pool *async.Pool) Option {
	return func(c *Client) {
		c.pool = pool
	}
}

// WithMetrics sets the metric recorder.
func WithMetrics(metrics *telemetry.TransportMetrics) Option {
	return func(c *Client) {
		c.metrics = metrics
	}
}

// New constructs a Client.
func New(opts ...Option) *Client {
	c := &Client{
		http:    nil,
		timeout: DefaultTimeout,
		limiter: nil,
		pool:    nil,
		metrics: nil,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.http == nil {
		c.http = new(http.Client)
	}
	c.http.Timeout = c.timeout
	if c.metrics == nil {
		c.metrics = telemetry.NewTransportMetrics()
	}
	return c
}

// Timeout returns the configured per-request timeout.
func (c *Client) Timeout() time.Duration {
	return c.timeout
}

// Pool returns the worker pool backing DoAsync, or nil.
func (c *Client) Pool() *async.Pool {
	return c.pool
}

// Do sends the request and blocks until the response is read. Any non-2xx
// status is returned as a transport error; nothing is retried.
func (c *Client) Do(ctx context.Context, r Request) (*Response, error) {
	const op = "transport.do"
	method := strings.ToUpper(strings.TrimSpace(r.Method))
	if method == "" {
		method = http.MethodGet
	}
	target := r.Target

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errs.New(op, errs.CodeTransport, errs.WithMessage("rate limit wait"), errs.WithCause(err))
		}
	}

	endpoint := r.URL
	if len(r.Query) > 0 {
		sep := "?"
		if strings.Contains(endpoint, "?") {
			sep = "&"
		}
		endpoint += sep + signing.BuildQuery(r.Query)
	}

	var body io.Reader
	if r.Body != nil {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, errs.New(op, errs.CodeTransport, errs.WithMessage("create request"), errs.WithCause(err))
	}
	for key, values := range r.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	if target == "" {
		target = req.URL.Path
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		result := telemetry.ResultNetwork
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			result = telemetry.ResultCanceled
		}
		c.metrics.Record(ctx, method, target, result, 0, time.Since(started))
		return nil, errs.New(op, errs.CodeTransport,
			errs.WithMessage(fmt.Sprintf("%s %s", method, target)), errs.WithCause(err))
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		c.metrics.Record(ctx, method, target, telemetry.ResultHTTPError, resp.StatusCode, time.Since(started))
		return nil, errs.New(op, errs.CodeTransport,
			errs.WithHTTP(resp.StatusCode),
			errs.WithMessage(fmt.Sprintf("%s %s: status %d", method, target, resp.StatusCode)),
			errs.WithRawMessage(string(excerpt)))
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.Record(ctx, method, target, telemetry.ResultNetwork, resp.StatusCode, time.Since(started))
		return nil, errs.New(op, errs.CodeTransport, errs.WithHTTP(resp.StatusCode),
			errs.WithMessage("read body"), errs.WithCause(err))
	}
	elapsed := time.Since(started)
	c.metrics.Record(ctx, method, target, telemetry.ResultOK, resp.StatusCode, elapsed)
	observability.Log().Debug("http request completed",
		observability.Field{Key: "method", Value: method},
		observability.Field{Key: "target", Value: target},
		observability.Field{Key: "status", Value: resp.StatusCode},
		observability.Field{Key: "elapsed", Value: elapsed},
	)
	return &Response{Status: resp.StatusCode, Header: resp.Header.Clone(), Body: payload}, nil
}

// DoAsync starts the request without blocking the caller. The future
// resolves with exactly what Do would have returned.
func (c *Client) DoAsync(ctx context.Context, r Request) *async.Future[*Response] {
	return async.Go(ctx, c.pool, func(taskCtx context.Context) (*Response, error) {
		return c.Do(taskCtx, r)
	})
}
