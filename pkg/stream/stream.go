// Package stream implements the authenticated websocket subscriptions.
//
// A subscription is pull based: frames are read only while the caller asks
// for the next event, and nothing runs in the background. Dropping a
// subscription is just closing it; no unsubscribe frame is sent.
package stream

import (
	"context"
	"io"
	"iter"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coder/websocket"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/coachpo/tradernet/config"
	"github.com/coachpo/tradernet/errs"
	"github.com/coachpo/tradernet/lib/observability"
	"github.com/coachpo/tradernet/lib/telemetry"
	"github.com/coachpo/tradernet/pkg/core"
	"github.com/coachpo/tradernet/pkg/signing"
)

// DefaultReadLimit caps a single inbound frame.
const DefaultReadLimit = 2 * 1024 * 1024

// Client opens subscriptions using the credentials and endpoint of a core.
type Client struct {
	core      *core.Core
	handshake time.Duration
	readLimit int64
	http      *http.Client
	metrics   *telemetry.StreamMetrics
}

// Option configures a Client.
type Option func(*Client)

// WithHandshakeTimeout bounds the dial and upgrade.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.handshake = d
		}
	}
}

// WithReadLimit sets the largest accepted inbound frame.
func WithReadLimit(n int64) Option {
	return func(c *Client) {
		if n > 0 {
			c.readLimit = n
		}
	}
}

// WithHTTPClient sets the client used for the upgrade request.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

// WithMetrics overrides the stream instruments.
func WithMetrics(m *telemetry.StreamMetrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New builds a streaming client.
func New(c *core.Core, opts ...Option) *Client {
	client := &Client{
		core:      c,
		handshake: config.DefaultHandshakeTimeout,
		readLimit: DefaultReadLimit,
		http:      nil,
		metrics:   telemetry.NewStreamMetrics(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// Subscribe connects, sends every command of topic and returns the open subscription.
func (c *Client) Subscribe(ctx context.Context, topic Topic) (*Subscription, error) {
	if len(topic.Commands) == 0 {
		return nil, errs.Invalid("stream.subscribe", "subscription has no commands")
	}
	endpoint, err := c.core.WebsocketURL()
	if err != nil {
		return nil, err
	}

	dialCtx, cancel := context.WithTimeout(ctx, c.handshake)
	defer cancel()
	conn, _, err := websocket.Dial(dialCtx, endpoint, &websocket.DialOptions{HTTPClient: c.http})
	if err != nil {
		return nil, errs.New("stream.subscribe", errs.CodeStreaming,
			errs.WithMessage("websocket dial failed"), errs.WithCause(err))
	}
	conn.SetReadLimit(c.readLimit)

	for _, cmd := range topic.Commands {
		frame, err := signing.Stringify(cmd)
		if err != nil {
			_ = conn.CloseNow()
			return nil, err
		}
		if err := conn.Write(ctx, websocket.MessageText, frame); err != nil {
			_ = conn.CloseNow()
			return nil, errs.New("stream.subscribe", errs.CodeStreaming,
				errs.WithMessage("send subscription frame"), errs.WithCause(err))
		}
	}

	allow := make(map[string]struct{}, len(topic.Allow))
	for _, tag := range topic.Allow {
		allow[tag] = struct{}{}
	}
	sub := &Subscription{
		id:      uuid.NewString(),
		channel: topic.Channel,
		conn:    conn,
		allow:   allow,
		metrics: c.metrics,
	}
	c.metrics.Session(ctx, topic.Channel, 1)
	observability.Log().Debug("stream subscribed",
		observability.Field{Key: "subscription_id", Value: sub.id},
		observability.Field{Key: "channel", Value: topic.Channel},
		observability.Field{Key: "commands", Value: len(topic.Commands)},
	)
	return sub, nil
}

// Quotes subscribes to quote updates.
func (c *Client) Quotes(ctx context.Context, symbols ...string) (*Subscription, error) {
	return c.Subscribe(ctx, Quotes(symbols...))
}

// MarketDepth subscribes to order book updates.
func (c *Client) MarketDepth(ctx context.Context, symbol string) (*Subscription, error) {
	return c.Subscribe(ctx, MarketDepth(symbol))
}

// Portfolio subscribes to portfolio updates.
func (c *Client) Portfolio(ctx context.Context) (*Subscription, error) {
	return c.Subscribe(ctx, Portfolio())
}

// Orders subscribes to active order updates.
func (c *Client) Orders(ctx context.Context) (*Subscription, error) {
	return c.Subscribe(ctx, Orders())
}

// Markets subscribes to market status updates.
func (c *Client) Markets(ctx context.Context) (*Subscription, error) {
	return c.Subscribe(ctx, Markets())
}

// Event is one inbound frame. Err is set for malformed frames; the
// subscription stays usable after such an event.
type Event struct {
	Tag     string
	Payload json.RawMessage
	Err     error
}

// Subscription is an open websocket with its allow-list. Next must not be
// called concurrently; Close may be called from any goroutine.
type Subscription struct {
	id      string
	channel string
	conn    *websocket.Conn
	allow   map[string]struct{}
	metrics *telemetry.StreamMetrics

	closed atomic.Bool
	once   sync.Once
	err    error
}

// ID returns the subscription's correlation id.
func (s *Subscription) ID() string { return s.id }

// Next blocks until an allowed event or a malformed frame arrives. It returns
// io.EOF once the subscription is closed or the server closed normally, and a
// streaming error when the connection fails. Canceling ctx ends the
// subscription.
func (s *Subscription) Next(ctx context.Context) (Event, error) {
	for {
		if s.err != nil {
			return Event{}, s.err
		}
		if s.closed.Load() {
			return Event{}, io.EOF
		}
		typ, data, err := s.conn.Read(ctx)
		if err != nil {
			s.terminate(ctx, err)
			return Event{}, s.err
		}
		if typ != websocket.MessageText {
			s.metrics.Frame(ctx, s.channel, "", telemetry.ResultMalformed)
			return Event{Err: malformed("unexpected binary frame", nil)}, nil
		}
		tag, payload, err := parseFrame(data)
		if err != nil {
			s.metrics.Frame(ctx, s.channel, "", telemetry.ResultMalformed)
			return Event{Err: err}, nil
		}
		if _, ok := s.allow[tag]; !ok {
			s.metrics.Frame(ctx, s.channel, tag, telemetry.ResultDropped)
			continue
		}
		s.metrics.Frame(ctx, s.channel, tag, telemetry.ResultOK)
		return Event{Tag: tag, Payload: payload}, nil
	}
}

// All ranges over events until the subscription ends. Breaking out of the
// loop closes the subscription. A clean close ends the sequence without an
// error; a connection failure is yielded once as the final item.
func (s *Subscription) All(ctx context.Context) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		defer s.Close()
		for {
			ev, err := s.Next(ctx)
			// Only the bare sentinel marks a clean end; a dropped
			// connection wraps io.EOF inside a streaming error.
			if err == io.EOF {
				return
			}
			if !yield(ev, err) || err != nil {
				return
			}
		}
	}
}

// Close closes the connection. It is safe to call more than once.
func (s *Subscription) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.release(context.Background())
	return s.conn.Close(websocket.StatusNormalClosure, "")
}

func (s *Subscription) terminate(ctx context.Context, err error) {
	defer s.release(context.WithoutCancel(ctx))
	if s.closed.Load() || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
		s.closed.Store(true)
		s.err = io.EOF
		return
	}
	s.err = errs.New("stream.next", errs.CodeStreaming,
		errs.WithMessage("websocket read failed"), errs.WithCause(err))
	observability.Log().Warn("stream terminated",
		observability.Field{Key: "subscription_id", Value: s.id},
		observability.Field{Key: "channel", Value: s.channel},
		observability.Field{Key: "error", Value: err.Error()},
	)
}

func (s *Subscription) release(ctx context.Context) {
	s.once.Do(func() {
		s.metrics.Session(ctx, s.channel, -1)
	})
}

func parseFrame(data []byte) (string, json.RawMessage, error) {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return "", nil, malformed("undecodable frame", err)
	}
	if len(parts) != 2 {
		return "", nil, malformed("expected [tag, payload] frame", nil)
	}
	var tag string
	if err := json.Unmarshal(parts[0], &tag); err != nil {
		return "", nil, malformed("event tag is not a string", err)
	}
	return tag, parts[1], nil
}

func malformed(msg string, cause error) error {
	return errs.New("stream.next", errs.CodeSerialization, errs.WithMessage(msg), errs.WithCause(cause))
}
