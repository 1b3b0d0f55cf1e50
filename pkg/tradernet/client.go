// Package tradernet exposes the typed Tradernet API methods on top of the request core.
package tradernet

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/coachpo/tradernet/config"
	"github.com/coachpo/tradernet/lib/async"
	"github.com/coachpo/tradernet/pkg/core"
	"github.com/coachpo/tradernet/pkg/stream"
)

// Client issues domain requests. Every command uses API version 2.
type Client struct {
	core        *core.Core
	parallelism int
	streamOpts  []stream.Option
}

// Option configures a Client.
type Option func(*Client)

// WithRefbookParallelism bounds concurrent downloads when aggregating refbooks.
func WithRefbookParallelism(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.parallelism = n
		}
	}
}

// WithStreamOptions sets the defaults used by Stream.
func WithStreamOptions(opts ...stream.Option) Option {
	return func(c *Client) {
		c.streamOpts = append(c.streamOpts, opts...)
	}
}

// New wraps an existing core.
func New(c *core.Core, opts ...Option) *Client {
	client := &Client{core: c, parallelism: 4}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client
}

// FromSettings builds the core and the client from settings.
func FromSettings(s config.Settings) (*Client, error) {
	s = s.Normalize()
	c, err := core.FromSettings(s)
	if err != nil {
		return nil, err
	}
	return New(c,
		WithRefbookParallelism(s.RefbookParallelism),
		WithStreamOptions(stream.WithHandshakeTimeout(s.HandshakeTimeout)),
	), nil
}

// FromConfig reads the keypair from an INI file and uses the default endpoints.
func FromConfig(path string, opts ...core.Option) (*Client, error) {
	c, err := core.FromConfig(path, opts...)
	if err != nil {
		return nil, err
	}
	return New(c), nil
}

// Core returns the underlying request core.
func (c *Client) Core() *core.Core {
	return c.core
}

// Stream returns a websocket client sharing this client's credentials and endpoint.
func (c *Client) Stream(opts ...stream.Option) *stream.Client {
	all := append(append([]stream.Option{}, c.streamOpts...), opts...)
	return stream.New(c.core, all...)
}

// Close releases resources owned by the core.
func (c *Client) Close() {
	c.core.Close()
}

func (c *Client) call(ctx context.Context, cmd string, params map[string]any) (json.RawMessage, error) {
	return c.core.AuthorizedRequest(ctx, cmd, params, core.DefaultVersion)
}

// Go runs fn in non-blocking mode on the transport's worker pool.
func Go[T any](ctx context.Context, c *Client, fn func(context.Context, *Client) (T, error)) *async.Future[T] {
	return async.Go(ctx, c.core.Transport().Pool(), func(ctx context.Context) (T, error) {
		return fn(ctx, c)
	})
}
