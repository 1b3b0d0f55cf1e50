// Package core owns the Tradernet credentials and dispatches plain and signed requests.
package core

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/coachpo/tradernet/config"
	"github.com/coachpo/tradernet/errs"
	"github.com/coachpo/tradernet/lib/async"
	"github.com/coachpo/tradernet/lib/observability"
	"github.com/coachpo/tradernet/lib/telemetry"
	"github.com/coachpo/tradernet/pkg/signing"
	"github.com/coachpo/tradernet/pkg/transport"
)

const (
	// Domain is the brokerage API domain.
	Domain = config.Domain
	// SessionTime is the session lifetime in seconds.
	SessionTime = 18000
	// ChunkSize is the batch size used for bulk operations.
	ChunkSize = 7000
	// MaxExportSize is the number of symbols per export call.
	MaxExportSize = 100
	// DefaultVersion is the API version used by the domain layer.
	DefaultVersion = 2
)

// Core signs and dispatches requests. It is read-only after construction and
// safe for concurrent use.
type Core struct {
	creds   config.Credentials
	http    *transport.Client
	baseURL string
	wsURL   string
	now     func() time.Time
	pool    *async.Pool
	ownPool bool
}

// Option configures a Core.
type Option func(*Core)

// WithTransport sets the HTTP transport.
func WithTransport(client *transport.Client) Option {
	return func(c *Core) {
		if client != nil {
			c.http = client
		}
	}
}

// WithBaseURL overrides the REST base URL.
func WithBaseURL(base string) Option {
	return func(c *Core) {
		if base = strings.TrimSuffix(strings.TrimSpace(base), "/"); base != "" {
			c.baseURL = base
		}
	}
}

// WithWebsocketURL overrides the streaming endpoint.
func WithWebsocketURL(ws string) Option {
	return func(c *Core) {
		if ws = strings.TrimSpace(ws); ws != "" {
			c.wsURL = ws
		}
	}
}

// WithClock overrides the time source used for request timestamps.
func WithClock(now func() time.Time) Option {
	return func(c *Core) {
		if now != nil {
			c.now = now
		}
	}
}

// New constructs a Core. Either credential may be empty; signed calls then
// fail with a missing keypair error.
func New(creds config.Credentials, opts ...Option) *Core {
	c := &Core{
		creds:   creds,
		http:    nil,
		baseURL: "https://" + Domain,
		wsURL:   "wss://wss." + Domain,
		now:     time.Now,
		pool:    nil,
		ownPool: false,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	if c.http == nil {
		c.http = transport.New()
	}
	c.pool = c.http.Pool()
	if !creds.Complete() {
		observability.Log().Warn("a keypair was not set; generate one at "+c.baseURL+"/tradernet-api/auth-api",
			observability.Field{Key: "public_set", Value: creds.Public != ""},
			observability.Field{Key: "private_set", Value: creds.Private != ""},
		)
	}
	return c
}

// FromConfig reads the keypair from the [auth] section of an INI file.
func FromConfig(path string, opts ...Option) (*Core, error) {
	creds, err := config.LoadCredentials(path)
	if err != nil {
		return nil, err
	}
	return New(creds, opts...), nil
}

// FromSettings builds a Core together with its transport and worker pool.
// Close releases the pool.
func FromSettings(s config.Settings, opts ...Option) (*Core, error) {
	s = s.Normalize()
	telemetry.SetEnvironment(string(s.Environment))
	if s.LogFormat != "" {
		logger, err := observability.NewLogger(s.LogFormat, s.LogLevel)
		if err != nil {
			return nil, errs.New("core.from_settings", errs.CodeInvalid, errs.WithMessage("log format"), errs.WithCause(err))
		}
		observability.SetLogger(logger)
	}
	pool, err := async.NewPool(s.AsyncWorkers, s.AsyncQueue)
	if err != nil {
		return nil, err
	}
	client := transport.New(
		transport.WithTimeout(s.HTTPTimeout),
		transport.WithRateLimit(s.RateLimit, s.RateBurst),
		transport.WithPool(pool),
	)
	base := []Option{
		WithTransport(client),
		WithBaseURL(s.BaseURL),
		WithWebsocketURL(s.WebsocketURL),
	}
	c := New(s.Credentials, append(base, opts...)...)
	c.ownPool = true
	return c, nil
}

// Close releases resources created by FromSettings.
func (c *Core) Close() {
	if c.ownPool && c.pool != nil {
		c.pool.Close()
	}
}

// BaseURL returns the REST base URL.
func (c *Core) BaseURL() string { return c.baseURL }

// PublicKey returns the configured public key.
func (c *Core) PublicKey() string { return c.creds.Public }

// HasKeypair reports whether signed calls are possible.
func (c *Core) HasKeypair() bool { return c.creds.Complete() }

// Transport returns the underlying HTTP transport.
func (c *Core) Transport() *transport.Client { return c.http }

func (c *Core) timestamp() string {
	return strconv.FormatInt(c.now().Unix(), 10)
}

func (c *Core) checkSigned(op string, version int) error {
	if !c.creds.Complete() {
		return errs.MissingKeypair(op)
	}
	if version != 2 && version != 3 {
		return errs.UnsupportedVersion(op, version)
	}
	return nil
}

// PlainRequest sends an unsigned GET {base}/api?q={"cmd":..,"params":..}.
func (c *Core) PlainRequest(ctx context.Context, cmd string, params map[string]any) (json.RawMessage, error) {
	const op = "core.plain_request"
	req, err := c.plainRequest(op, cmd, params)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return decodeJSON(op, resp.Body)
}

func (c *Core) plainRequest(op, cmd string, params map[string]any) (transport.Request, error) {
	message := map[string]any{"cmd": cmd}
	if params != nil {
		message["params"] = params
	}
	q, err := signing.Stringify(message)
	if err != nil {
		return transport.Request{}, err
	}
	observability.Log().Debug("plain request",
		observability.Field{Key: "cmd", Value: cmd},
		observability.Field{Key: "request_id", Value: uuid.NewString()},
	)
	return transport.Request{
		Method: http.MethodGet,
		URL:    c.baseURL + "/api",
		Query:  map[string]any{"q": string(q)},
		Target: cmd,
	}, nil
}

// AuthorizedRequest sends a signed POST {base}/api/{cmd}. The signature covers
// the JSON body followed by the timestamp. An errMsg in the response is logged
// and the payload is still returned.
func (c *Core) AuthorizedRequest(ctx context.Context, cmd string, params map[string]any, version int) (json.RawMessage, error) {
	const op = "core.authorized_request"
	req, err := c.authorizedRequest(op, cmd, params, version)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(ctx, req)
	if err != nil {
		return nil, err
	}
	return c.checkPayload(op, cmd, resp.Body)
}

func (c *Core) authorizedRequest(op, cmd string, params map[string]any, version int) (transport.Request, error) {
	if err := c.checkSigned(op, version); err != nil {
		return transport.Request{}, err
	}
	if params == nil {
		params = map[string]any{}
	}
	payload, err := signing.Stringify(params)
	if err != nil {
		return transport.Request{}, err
	}
	headers := signing.NewHeaders(c.creds.Public, c.creds.Private, c.timestamp(), string(payload))
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	headers.Apply(h)

	observability.Log().Debug("authorized request",
		observability.Field{Key: "cmd", Value: cmd},
		observability.Field{Key: "version", Value: version},
		observability.Field{Key: "request_id", Value: uuid.NewString()},
	)
	return transport.Request{
		Method: http.MethodPost,
		URL:    c.baseURL + "/api/" + cmd,
		Header: h,
		Body:   payload,
		Target: cmd,
	}, nil
}

func (c *Core) checkPayload(op, cmd string, body []byte) (json.RawMessage, error) {
	raw, err := decodeJSON(op, body)
	if err != nil {
		return nil, err
	}
	var envelope struct {
		ErrMsg json.RawMessage `json:"errMsg"`
	}
	if json.Unmarshal(raw, &envelope) == nil && len(envelope.ErrMsg) > 0 {
		observability.Log().Warn("api returned errMsg",
			observability.Field{Key: "cmd", Value: cmd},
			observability.Field{Key: "errMsg", Value: string(envelope.ErrMsg)},
		)
	}
	return raw, nil
}

// AuthorizedGet sends a signed GET {base}{path}; the signature covers the timestamp only.
func (c *Core) AuthorizedGet(ctx context.Context, path string, query map[string]any, version int) (*transport.Response, error) {
	req, err := c.authorizedGet("core.authorized_get", path, query, version)
	if err != nil {
		return nil, err
	}
	return c.http.Do(ctx, req)
}

func (c *Core) authorizedGet(op, path string, query map[string]any, version int) (transport.Request, error) {
	if err := c.checkSigned(op, version); err != nil {
		return transport.Request{}, err
	}
	h := http.Header{}
	signing.NewHeaders(c.creds.Public, c.creds.Private, c.timestamp(), "").Apply(h)
	return transport.Request{Method: http.MethodGet, URL: c.baseURL + path, Header: h, Query: query}, nil
}

// Get sends an unauthenticated GET {base}{path}.
func (c *Core) Get(ctx context.Context, path string, query map[string]any) (*transport.Response, error) {
	return c.http.Do(ctx, transport.Request{Method: http.MethodGet, URL: c.baseURL + path, Query: query})
}

// WebsocketAuth signs the current timestamp for streaming authentication.
func (c *Core) WebsocketAuth() signing.Headers {
	return signing.NewHeaders(c.creds.Public, c.creds.Private, c.timestamp(), "")
}

// WebsocketURL returns the streaming endpoint with the auth query appended.
func (c *Core) WebsocketURL() (string, error) {
	u, err := url.Parse(c.wsURL)
	if err != nil {
		return "", errs.New("core.websocket_url", errs.CodeInvalid,
			errs.WithMessage("invalid websocket url"), errs.WithCause(err))
	}
	q := u.Query()
	for key, values := range c.WebsocketAuth().Query() {
		q[key] = values
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// ListSecuritySessions returns trading sessions for available securities.
func (c *Core) ListSecuritySessions(ctx context.Context) (json.RawMessage, error) {
	return c.AuthorizedRequest(ctx, "getSecuritySessions", nil, DefaultVersion)
}

func decodeJSON(op string, body []byte) (json.RawMessage, error) {
	if !json.Valid(body) {
		excerpt := body
		if len(excerpt) > 256 {
			excerpt = excerpt[:256]
		}
		return nil, errs.New(op, errs.CodeSerialization,
			errs.WithMessage("response is not valid JSON"), errs.WithRawMessage(string(excerpt)))
	}
	return json.RawMessage(body), nil
}
