// Package querycache is a client-side cache of server reads with optimistic
// mutations.
//
// Concurrent Fetch calls for one key share a single in-flight request.
// Mutate cancels that request, applies a speculative value, runs the server
// write, and then either marks the key stale so the next Fetch re-reads the
// server or restores the snapshot taken before the speculative value.
// Mutations of one key run one at a time, and MutateShared lets a repeated
// request for the same change join the pending one instead of queueing.
package querycache

import (
	"context"
	"errors"
	"sync"
)

// ErrCancelled is returned to Fetch callers whose in-flight request was
// cancelled by Cancel or Mutate.
var ErrCancelled = errors.New("fetch cancelled")

// Fetcher reads the current server value.
type Fetcher[T any] func(ctx context.Context) (T, error)

// Option configures a Cache.
type Option func(*config)

type config struct {
	retries int
}

// WithRetries sets how many times a failed fetch is retried. The default is 1.
func WithRetries(n int) Option {
	return func(c *config) {
		if n >= 0 {
			c.retries = n
		}
	}
}

type call[T any] struct {
	done      chan struct{}
	cancel    context.CancelFunc
	cancelled bool
	value     T
	err       error
}

// shared is a pending MutateShared call that later callers can join.
type shared struct {
	done    chan struct{}
	waiters int
	err     error
}

type entry[T any] struct {
	value    T
	has      bool
	stale    bool
	inflight *call[T]
	mutex    chan struct{}
	pending  map[string]*shared
}

// Cache holds one value of type T per key.
type Cache[T any] struct {
	mu      sync.Mutex
	entries map[string]*entry[T]
	cfg     config
}

// New creates an empty cache.
func New[T any](opts ...Option) *Cache[T] {
	cfg := config{retries: 1}
	for _, o := range opts {
		o(&cfg)
	}
	return &Cache[T]{entries: map[string]*entry[T]{}, cfg: cfg}
}

func (c *Cache[T]) entry(key string) *entry[T] {
	e, ok := c.entries[key]
	if !ok {
		e = &entry[T]{mutex: make(chan struct{}, 1), pending: map[string]*shared{}}
		c.entries[key] = e
	}
	return e
}

// Get returns the cached value, stale or not, without fetching.
func (c *Cache[T]) Get(key string) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.entries[key]
	if !ok || !e.has {
		var zero T
		return zero, false
	}
	return e.value, true
}

// Set stores a fresh value for key.
func (c *Cache[T]) Set(key string, v T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	e := c.entry(key)
	e.value, e.has, e.stale = v, true, false
}

// Invalidate marks key stale. The value stays readable through Get and the
// next Fetch goes to the server.
func (c *Cache[T]) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		e.stale = true
	}
}

// Fetch returns the fresh cached value for key or runs fetch to obtain one.
// A failed fetch is retried before its error is returned. If ctx ends first
// the caller stops waiting but the shared request continues for others.
func (c *Cache[T]) Fetch(ctx context.Context, key string, fetch Fetcher[T]) (T, error) {
	c.mu.Lock()
	e := c.entry(key)
	if e.has && !e.stale {
		v := e.value
		c.mu.Unlock()
		return v, nil
	}

	cl := e.inflight
	if cl == nil {
		fetchCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		cl = &call[T]{done: make(chan struct{}), cancel: cancel}
		e.inflight = cl
		go c.run(fetchCtx, e, cl, fetch)
	}
	c.mu.Unlock()

	select {
	case <-cl.done:
		return cl.value, cl.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func (c *Cache[T]) run(ctx context.Context, e *entry[T], cl *call[T], fetch Fetcher[T]) {
	defer cl.cancel()

	v, err := fetch(ctx)
	for i := 0; err != nil && i < c.cfg.retries && ctx.Err() == nil; i++ {
		v, err = fetch(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if cl.cancelled {
		var zero T
		cl.value, cl.err = zero, ErrCancelled
		close(cl.done)
		return
	}

	if e.inflight == cl {
		e.inflight = nil
	}
	if err == nil {
		e.value, e.has, e.stale = v, true, false
	}
	cl.value, cl.err = v, err
	close(cl.done)
}

// Cancel aborts the in-flight fetch for key, if any.
func (c *Cache[T]) Cancel(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if e, ok := c.entries[key]; ok {
		c.cancelLocked(e)
	}
}

func (c *Cache[T]) cancelLocked(e *entry[T]) {
	if e.inflight == nil {
		return
	}
	e.inflight.cancelled = true
	e.inflight.cancel()
	e.inflight = nil
}

// Mutate applies an optimistic change to key and commits it to the server.
//
// apply receives the current value (and whether one exists) and must return
// a new value without modifying its argument. It runs synchronously, so the
// speculative value is visible through Get while commit is running. On
// success the key is marked stale; on failure the previous value is
// restored and commit's error is returned.
func (c *Cache[T]) Mutate(ctx context.Context, key string, apply func(prev T, ok bool) T, commit func(ctx context.Context) error) error {
	c.mu.Lock()
	e := c.entry(key)
	c.mu.Unlock()

	select {
	case e.mutex <- struct{}{}:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { <-e.mutex }()

	c.mu.Lock()
	c.cancelLocked(e)
	snapshot, snapshotHas, snapshotStale := e.value, e.has, e.stale
	e.value, e.has = apply(e.value, e.has), true
	c.mu.Unlock()

	err := commit(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		e.value, e.has, e.stale = snapshot, snapshotHas, snapshotStale
		return err
	}
	e.stale = true
	return nil
}

// MutateShared is Mutate for a change identified by op. While a call with
// the same key and op is queued or committing, further calls with that op
// do not apply it again: they wait for the pending call and return its
// result. A change requested twice before the first completes therefore
// lands once.
func (c *Cache[T]) MutateShared(ctx context.Context, key, op string, apply func(prev T, ok bool) T, commit func(ctx context.Context) error) error {
	c.mu.Lock()
	e := c.entry(key)
	if sh, ok := e.pending[op]; ok {
		sh.waiters++
		c.mu.Unlock()
		select {
		case <-sh.done:
			return sh.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	sh := &shared{done: make(chan struct{})}
	e.pending[op] = sh
	c.mu.Unlock()

	sh.err = c.Mutate(ctx, key, apply, commit)

	c.mu.Lock()
	delete(e.pending, op)
	c.mu.Unlock()
	close(sh.done)
	return sh.err
}
