package core

import (
	"context"

	"github.com/goccy/go-json"

	"github.com/coachpo/tradernet/lib/async"
	"github.com/coachpo/tradernet/pkg/transport"
)

// Async exposes the request core in non-blocking mode. Every call returns a
// future immediately; validation errors resolve the future without I/O.
type Async struct {
	core *Core
	pool *async.Pool
}

// Async returns the non-blocking view of c. A nil pool falls back to the
// transport's pool.
func (c *Core) Async(pool *async.Pool) *Async {
	if pool == nil {
		pool = c.pool
	}
	return &Async{core: c, pool: pool}
}

// PlainRequest is the non-blocking form of Core.PlainRequest.
func (a *Async) PlainRequest(ctx context.Context, cmd string, params map[string]any) *async.Future[json.RawMessage] {
	return async.Go(ctx, a.pool, func(ctx context.Context) (json.RawMessage, error) {
		return a.core.PlainRequest(ctx, cmd, params)
	})
}

// AuthorizedRequest is the non-blocking form of Core.AuthorizedRequest.
func (a *Async) AuthorizedRequest(ctx context.Context, cmd string, params map[string]any, version int) *async.Future[json.RawMessage] {
	return async.Go(ctx, a.pool, func(ctx context.Context) (json.RawMessage, error) {
		return a.core.AuthorizedRequest(ctx, cmd, params, version)
	})
}

// AuthorizedGet is the non-blocking form of Core.AuthorizedGet.
func (a *Async) AuthorizedGet(ctx context.Context, path string, query map[string]any, version int) *async.Future[*transport.Response] {
	return async.Go(ctx, a.pool, func(ctx context.Context) (*transport.Response, error) {
		return a.core.AuthorizedGet(ctx, path, query, version)
	})
}

// Get is the non-blocking form of Core.Get.
func (a *Async) Get(ctx context.Context, path string, query map[string]any) *async.Future[*transport.Response] {
	return async.Go(ctx, a.pool, func(ctx context.Context) (*transport.Response, error) {
		return a.core.Get(ctx, path, query)
	})
}
