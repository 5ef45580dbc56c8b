// Package apiclient talks to the orders backend. It attaches the bearer and
// CSRF headers, classifies failures into *Error, replays a request once when
// the backend rejects its CSRF token, deduplicates cacheable reads and
// publishes the number of requests in flight.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-orders-client/cache"
	"github.com/jrsteele09/go-orders-client/csrf"
	ierrors "github.com/jrsteele09/go-orders-client/internal/errors"
	"github.com/jrsteele09/go-orders-client/notice"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	// DefaultTimeout bounds every request, including a CSRF replay.
	DefaultTimeout = 10 * time.Second

	DefaultCSRFHeader = "X-CSRF-Token"
	CSRFTokenPath     = "/security/csrf-token"

	maxResponseSize = 10 * 1024 * 1024
)

// DefaultExemptPaths never carry the CSRF header: login, the auth endpoints,
// the CSRF bootstrap itself and user creation.
var DefaultExemptPaths = []string{"/token", "/login", "/auth/", CSRFTokenPath, "/usuarios/"}

// TokenStore is what the client needs from session.Store.
type TokenStore interface {
	oauth2.TokenSource
	csrf.TokenStore
	ClearSession()
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	store       TokenStore
	csrf        *csrf.Coordinator
	cache       *cache.Cache[*Response]
	notices     *notice.Bus
	exemptPaths []string
	csrfHeader  string
	timeout     time.Duration
	logger      zerolog.Logger

	pendingMu sync.Mutex // Serialises count updates with their broadcast
	inFlight  atomic.Int64
	pending   *notice.Subject[int]
}

func New(baseURL string, store TokenStore, options ...Option) *Client {
	c := &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		store:       store,
		exemptPaths: DefaultExemptPaths,
		csrfHeader:  DefaultCSRFHeader,
		timeout:     DefaultTimeout,
		logger:      log.Logger.With().Str("component", "apiclient").Logger(),
		pending:     notice.NewSubject[int](),
	}
	for _, opt := range options {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	if c.cache == nil {
		c.cache = cache.New[*Response]()
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	c.csrf = csrf.New(store, c, csrf.WithTimeout(c.timeout), csrf.WithLogger(c.logger))
	return c
}

// CSRF exposes the coordinator, for callers that want to force a refresh.
func (c *Client) CSRF() *csrf.Coordinator {
	return c.csrf
}

// RefreshCSRF discards the stored CSRF token and fetches a new one.
func (c *Client) RefreshCSRF(ctx context.Context) (string, error) {
	return c.csrf.Refresh(ctx, true)
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request sends one logical request. Mutating requests to non-exempt paths
// carry a CSRF token, acquired first when none is stored. A 403 naming the
// CSRF check forces a token refresh and replays the request exactly once.
func (c *Client) Request(ctx context.Context, method, path string, body any, options ...RequestOption) (*Response, error) {
	var opts requestOptions
	for _, opt := range options {
		opt(&opts)
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, ValidationError("invalid request body", err)
		}
	}

	cacheable := method == http.MethodGet && opts.cacheTTL > 0
	var key string
	if cacheable {
		key = cache.Key(path, opts.params)
		if cached, ok := c.cache.Get(key); ok {
			return cached.clone(true), nil
		}
	}

	c.begin()
	defer c.end()

	resp, err := c.send(ctx, method, path, payload, opts)
	if err != nil && isCSRFRejection(err) && c.needsCSRF(method, path, opts) {
		c.logger.Warn().Str("method", method).Str("path", path).Msg("CSRF token rejected, refreshing and replaying once")
		if _, refreshErr := c.csrf.Refresh(ctx, true); refreshErr != nil {
			err = c.csrfFailure(method, path, refreshErr)
		} else {
			resp, err = c.send(ctx, method, path, payload, opts)
			if err != nil && isCSRFRejection(err) {
				rejected := err.(*Error)
				err = &Error{Kind: KindCSRF, Status: rejected.Status, Detail: rejected.Detail, Method: method, Path: path, Err: ierrors.ErrCSRFRejected}
			}
		}
	}
	if err != nil {
		c.report(ctx, path, err)
		return nil, err
	}

	if cacheable {
		c.cache.Set(key, resp.clone(false), opts.cacheTTL)
	}
	return resp, nil
}

func (c *Client) Get(ctx context.Context, path string, options ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodGet, path, nil, options...)
}

func (c *Client) Post(ctx context.Context, path string, body any, options ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodPost, path, body, options...)
}

func (c *Client) Put(ctx context.Context, path string, body any, options ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodPut, path, body, options...)
}

func (c *Client) Delete(ctx context.Context, path string, options ...RequestOption) (*Response, error) {
	return c.Request(ctx, http.MethodDelete, path, nil, options...)
}

// Do sends a request and decodes the JSON response into T.
func Do[T any](ctx context.Context, c *Client, method, path string, body any, options ...RequestOption) (T, error) {
	var out T
	resp, err := c.Request(ctx, method, path, body, options...)
	if err != nil {
		return out, err
	}
	if err := resp.Decode(&out); err != nil {
		return out, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return out, nil
}

// FetchCSRFToken implements csrf.Fetcher against the bootstrap endpoint.
func (c *Client) FetchCSRFToken(ctx context.Context) (string, error) {
	resp, err := c.Request(ctx, http.MethodGet, CSRFTokenPath, nil)
	if err != nil {
		return "", err
	}
	var body struct {
		CSRFToken string `json:"csrf_token"`
	}
	if err := resp.Decode(&body); err != nil {
		return "", err
	}
	return body.CSRFToken, nil
}

// InvalidateCache drops cached reads whose key starts with prefix.
func (c *Client) InvalidateCache(prefix string) int {
	return c.cache.DeleteByPrefix(prefix)
}

func (c *Client) CacheStats() cache.Stats {
	return c.cache.Stats()
}

// Pending is the number of requests currently in flight.
func (c *Client) Pending() int {
	return int(c.inFlight.Load())
}

// OnPendingChange calls fn with the new in-flight count every time it
// changes, for loading indicators. Counts are delivered in the order they
// happened; fn must not issue requests on this client.
func (c *Client) OnPendingChange(fn func(int)) (unsubscribe func()) {
	return c.pending.Subscribe(fn)
}

func (c *Client) begin() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	c.pending.Publish(int(c.inFlight.Add(1)))
}

func (c *Client) end() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	c.pending.Publish(int(c.inFlight.Add(-1)))
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte, opts requestOptions) (*Response, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.newRequest(ctx, method, path, payload, opts)
	if err != nil {
		return nil, err
	}

	if c.needsCSRF(method, path, opts) {
		token, err := c.csrf.Refresh(ctx, false)
		if err != nil {
			return nil, c.csrfFailure(method, path, err)
		}
		req.Header.Set(c.csrfHeader, token)
	}

	started := time.Now()
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(method, path, err)
	}
	defer res.Body.Close()

	data, err := io.ReadAll(io.LimitReader(res.Body, maxResponseSize))
	if err != nil {
		return nil, transportError(method, path, err)
	}

	c.logger.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", res.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("Request completed")

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return nil, httpError(method, path, res.StatusCode, data)
	}
	return &Response{Status: res.StatusCode, Header: res.Header, Body: data}, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, payload []byte, opts requestOptions) (*http.Request, error) {
	target, err := url.Parse(c.baseURL + path)
	if err != nil {
		return nil, ValidationError("invalid request path", err)
	}
	if len(opts.params) > 0 {
		query := target.Query()
		for name, value := range opts.params {
			query.Set(name, fmt.Sprint(value))
		}
		target.RawQuery = query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, ValidationError("invalid request", err)
	}

	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("X-Request-ID", uuid.NewString())
	for name, value := range opts.headers {
		req.Header.Set(name, value)
	}
	if token, err := c.store.Token(); err == nil {
		token.SetAuthHeader(req)
	}
	return req, nil
}

func (c *Client) needsCSRF(method, path string, opts requestOptions) bool {
	if opts.skipCSRF {
		return false
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return !c.isExempt(path)
	default:
		return false
	}
}

func (c *Client) isExempt(path string) bool {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	for _, exempt := range c.exemptPaths {
		if path == exempt {
			return true
		}
		if strings.HasSuffix(exempt, "/") && (path == strings.TrimSuffix(exempt, "/") || strings.HasPrefix(path, exempt)) {
			return true
		}
	}
	return false
}

func (c *Client) csrfFailure(method, path string, err error) *Error {
	var apiErr *Error
	if ierrors.As(err, &apiErr) && apiErr.Kind == KindTimeout {
		return &Error{Kind: KindTimeout, Method: method, Path: path, Err: err}
	}
	if ierrors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Method: method, Path: path, Err: err}
	}
	return &Error{Kind: KindCSRF, Method: method, Path: path, Detail: "csrf token unavailable", Err: err}
}

// report publishes the notice matching a final failure. A 401 outside the
// login endpoints means the backend no longer accepts the session.
func (c *Client) report(ctx context.Context, path string, err error) {
	apiErr, ok := err.(*Error)
	if !ok {
		return
	}

	switch {
	case apiErr.Kind == KindHTTP && apiErr.Status == http.StatusUnauthorized && !isLoginPath(path):
		c.logger.Warn().Str("path", path).Msg("Session rejected by the backend, clearing it")
		c.store.ClearSession()
		c.store.ClearCSRF()
		c.publish(notice.SessionExpired, apiErr)
	case apiErr.Kind == KindHTTP && apiErr.Status == http.StatusForbidden:
		c.publish(notice.AccessDenied, apiErr)
	case apiErr.Kind == KindHTTP && apiErr.Status >= 500:
		c.logger.Error().Str("path", path).Int("status", apiErr.Status).Str("detail", apiErr.Detail).Msg("Server error")
		c.publish(notice.ServerError, apiErr)
	case apiErr.Kind == KindConnection || apiErr.Kind == KindTimeout:
		if ctx.Err() == context.Canceled {
			return
		}
		c.logger.Err(apiErr.Err).Str("path", path).Msg("Backend unreachable")
		c.publish(notice.ConnectionLost, apiErr)
	}
}

func (c *Client) publish(kind notice.Kind, err *Error) {
	if c.notices == nil {
		return
	}
	c.notices.Publish(notice.New(kind, err.UserMessage(), err))
}
