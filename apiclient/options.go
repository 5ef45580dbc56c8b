package apiclient

import (
	"net/http"
	"time"

	"github.com/jrsteele09/go-orders-client/cache"
	"github.com/jrsteele09/go-orders-client/notice"
	"github.com/rs/zerolog"
)

type Option func(*Client)

func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.timeout = timeout
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithCache replaces the default read cache.
func WithCache(readCache *cache.Cache[*Response]) Option {
	return func(c *Client) {
		c.cache = readCache
	}
}

// WithNotices publishes session, permission, server and connectivity notices
// on bus.
func WithNotices(bus *notice.Bus) Option {
	return func(c *Client) {
		c.notices = bus
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithExemptPaths replaces the list of paths that never carry a CSRF header.
// Entries ending in "/" also match every path below them.
func WithExemptPaths(paths ...string) Option {
	return func(c *Client) {
		c.exemptPaths = paths
	}
}

func WithCSRFHeader(name string) Option {
	return func(c *Client) {
		c.csrfHeader = name
	}
}

type requestOptions struct {
	params   map[string]any
	headers  map[string]string
	cacheTTL time.Duration
	skipCSRF bool
}

type RequestOption func(*requestOptions)

// WithParams adds query parameters. They also take part in the cache key.
func WithParams(params map[string]any) RequestOption {
	return func(o *requestOptions) {
		o.params = params
	}
}

func WithHeader(name, value string) RequestOption {
	return func(o *requestOptions) {
		if o.headers == nil {
			o.headers = make(map[string]string)
		}
		o.headers[name] = value
	}
}

// WithCacheTTL serves a GET from the read cache when possible and stores a
// successful response for ttl.
func WithCacheTTL(ttl time.Duration) RequestOption {
	return func(o *requestOptions) {
		o.cacheTTL = ttl
	}
}

func WithoutCSRF() RequestOption {
	return func(o *requestOptions) {
		o.skipCSRF = true
	}
}
