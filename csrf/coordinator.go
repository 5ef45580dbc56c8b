// Package csrf acquires and refreshes the CSRF token. Refreshes are
// single-flight: callers arriving while a refresh is running wait for it and
// are released in arrival order once it completes.
package csrf

import (
	"context"
	"sync"
	"time"

	ierrors "github.com/jrsteele09/go-orders-client/internal/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type State int

const (
	Idle State = iota
	Refreshing
)

func (s State) String() string {
	if s == Refreshing {
		return "refreshing"
	}
	return "idle"
}

// TokenStore is the part of session.Store the coordinator writes to.
type TokenStore interface {
	CSRF() (string, bool)
	SetCSRF(token string)
	ClearCSRF()
}

// Fetcher performs the network call to the CSRF bootstrap endpoint.
type Fetcher interface {
	FetchCSRFToken(ctx context.Context) (string, error)
}

type FetcherFunc func(ctx context.Context) (string, error)

func (f FetcherFunc) FetchCSRFToken(ctx context.Context) (string, error) {
	return f(ctx)
}

type result struct {
	token string
	err   error
}

// waiter is a parked caller. The caller closes ack once it has taken its
// result or given up, which lets the next waiter go.
type waiter struct {
	result chan result
	ack    chan struct{}
}

type Coordinator struct {
	mu      sync.Mutex
	state   State
	pending []waiter // FIFO of callers waiting on the in-flight fetch
	fetches int

	store   TokenStore
	fetcher Fetcher
	timeout time.Duration
	logger  zerolog.Logger
}

type Option func(*Coordinator)

// WithTimeout bounds the bootstrap call independently of any caller's context.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		c.timeout = timeout
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Coordinator) {
		c.logger = logger
	}
}

func New(store TokenStore, fetcher Fetcher, options ...Option) *Coordinator {
	c := &Coordinator{
		store:   store,
		fetcher: fetcher,
		timeout: 10 * time.Second,
		logger:  log.Logger.With().Str("component", "csrf").Logger(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Refresh returns a usable CSRF token. When idle with a stored token and
// force is false, the stored token is returned without a network call.
// Otherwise the caller joins the in-flight refresh, starting one if none is
// running. A failed refresh rejects every waiting caller with the same error.
//
// A caller whose ctx ends stops waiting, but the refresh carries on for the
// others and still updates the store.
func (c *Coordinator) Refresh(ctx context.Context, force bool) (string, error) {
	c.mu.Lock()
	if c.state == Idle && !force {
		if token, ok := c.store.CSRF(); ok {
			c.mu.Unlock()
			return token, nil
		}
	}

	w := waiter{result: make(chan result, 1), ack: make(chan struct{})}
	c.pending = append(c.pending, w)
	if c.state == Idle {
		c.state = Refreshing
		c.fetches++
		c.store.ClearCSRF()
		go c.fetch(context.WithoutCancel(ctx))
	}
	c.mu.Unlock()

	defer close(w.ack)
	select {
	case r := <-w.result:
		return r.token, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Invalidate drops the stored token so the next Refresh fetches a new one.
func (c *Coordinator) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store.ClearCSRF()
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Fetches counts bootstrap calls started since construction.
func (c *Coordinator) Fetches() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetches
}

// Waiting counts callers parked on the in-flight refresh.
func (c *Coordinator) Waiting() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *Coordinator) fetch(ctx context.Context) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	c.logger.Debug().Msg("Fetching new CSRF token")
	token, err := c.fetcher.FetchCSRFToken(ctx)
	if err == nil && token == "" {
		err = ierrors.ErrCSRFTokenMissing
	}
	if err != nil {
		err = ierrors.Wrapf(err, "csrf refresh failed")
		c.logger.Err(err).Msg("Failed to refresh CSRF token")
	}

	c.mu.Lock()
	if err == nil {
		c.store.SetCSRF(token)
	}
	c.state = Idle
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	// One waiter at a time, so callers resume in the order they arrived.
	for _, w := range pending {
		w.result <- result{token: token, err: err}
		<-w.ack
	}
}
