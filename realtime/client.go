// Package realtime keeps the order notification channel open. It reconnects
// with a linear backoff after the backend drops the connection, drops
// duplicate deliveries and dispatches events to registered listeners.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	ierrors "github.com/jrsteele09/go-orders-client/internal/errors"
	"github.com/jrsteele09/go-orders-client/notice"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2"
)

const (
	DefaultPath                 = "/ws"
	DefaultBaseDelay            = 2 * time.Second
	DefaultMaxReconnectAttempts = 5
	DefaultDebounceWindow       = time.Second
	DefaultHandshakeTimeout     = 20 * time.Second
)

type State int

const (
	Disconnected State = iota
	Connecting
	Connected
	Reconnecting
)

func (s State) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Status is a snapshot of the connection.
type Status struct {
	State     State
	Attempts  int // Reconnect attempts made since the last successful connect
	Connected bool
}

// DisplayFunc receives the events that passed the visibility rule.
type DisplayFunc func(Event, Toast)

// ReconnectBackoff is the schedule followed after a remote disconnect: the
// delay before attempt n is base*n, and it stops after maxAttempts attempts.
func ReconnectBackoff(base time.Duration, maxAttempts int) retry.Backoff {
	if maxAttempts < 0 {
		maxAttempts = 0
	}
	var attempt int64
	linear := retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		return base * time.Duration(attempt), false
	})
	return retry.WithMaxRetries(uint64(maxAttempts), linear)
}

type Client struct {
	mu         sync.Mutex
	endpoint   string
	tokens     oauth2.TokenSource
	conn       Conn
	state      State
	attempts   int
	generation uint64
	stopRetry  context.CancelFunc

	dialer      Dialer
	baseDelay   time.Duration
	maxAttempts int
	debounce    time.Duration
	notices     *notice.Bus
	viewer      func() Viewer
	display     DisplayFunc
	sleep       func(ctx context.Context, d time.Duration) error
	nowFunc     func() time.Time
	logger      zerolog.Logger

	listeners *listeners
	recent    *recentSet
}

type Option func(*Client)

func WithDialer(dialer Dialer) Option {
	return func(c *Client) {
		c.dialer = dialer
	}
}

func WithBaseDelay(delay time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = delay
	}
}

func WithMaxReconnectAttempts(attempts int) Option {
	return func(c *Client) {
		c.maxAttempts = attempts
	}
}

func WithDebounceWindow(window time.Duration) Option {
	return func(c *Client) {
		c.debounce = window
	}
}

// WithNotices publishes connected and fatal connectivity notices on bus.
func WithNotices(bus *notice.Bus) Option {
	return func(c *Client) {
		c.notices = bus
	}
}

// WithViewer supplies the user events are filtered for before display.
func WithViewer(viewer func() Viewer) Option {
	return func(c *Client) {
		c.viewer = viewer
	}
}

func WithDisplay(display DisplayFunc) Option {
	return func(c *Client) {
		c.display = display
	}
}

// WithSleep replaces the wait between reconnect attempts.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		c.sleep = sleep
	}
}

func WithNowFunc(now func() time.Time) Option {
	return func(c *Client) {
		c.nowFunc = now
	}
}

func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// New creates a disconnected client for the channel at endpoint, which is
// usually built with WebsocketURL.
func New(endpoint string, tokens oauth2.TokenSource, options ...Option) *Client {
	c := &Client{
		endpoint:    endpoint,
		tokens:      tokens,
		baseDelay:   DefaultBaseDelay,
		maxAttempts: DefaultMaxReconnectAttempts,
		debounce:    DefaultDebounceWindow,
		sleep:       sleepContext,
		nowFunc:     time.Now,
		logger:      log.Logger.With().Str("component", "realtime").Logger(),
	}
	for _, opt := range options {
		opt(c)
	}
	if c.dialer == nil {
		c.dialer = NewWebsocketDialer(DefaultHandshakeTimeout)
	}
	c.listeners = &listeners{logger: c.logger}
	c.recent = newRecentSet(c.debounce, c.nowFunc)
	return c
}

// Connect opens the channel. It does nothing when already connected and
// replaces any half-open or reconnecting handle otherwise.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state == Connected {
		c.mu.Unlock()
		return nil
	}
	c.teardownLocked()
	gen := c.generation

	token, err := c.tokens.Token()
	if err != nil || token.AccessToken == "" {
		c.state = Disconnected
		c.mu.Unlock()
		return ierrors.Wrapf(ierrors.ErrNoSession, "realtime connect")
	}
	c.state = Connecting
	c.mu.Unlock()

	c.logger.Info().Str("endpoint", c.endpoint).Msg("Connecting to realtime channel")
	conn, err := c.dialer.Dial(ctx, c.endpoint, token.AccessToken)
	if err != nil {
		c.mu.Lock()
		if c.generation == gen {
			c.state = Disconnected
		}
		c.mu.Unlock()
		c.logger.Err(err).Msg("Failed to connect to realtime channel")
		return err
	}
	if !c.attach(gen, conn) {
		return ierrors.Wrapf(ierrors.ErrNotConnected, "connect superseded")
	}
	return nil
}

// Disconnect closes the channel, stops reconnecting and forgets the recent
// event identities.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.teardownLocked()
	c.state = Disconnected
	c.attempts = 0
	c.mu.Unlock()
	c.recent.Clear()
	c.logger.Info().Msg("Disconnected from realtime channel")
}

// Emit sends a named event to the backend.
func (c *Client) Emit(ctx context.Context, event string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	conn, state := c.conn, c.state
	c.mu.Unlock()
	if conn == nil || state != Connected {
		return ierrors.Wrapf(ierrors.ErrNotConnected, "emit %s", event)
	}

	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("failed to encode %s data: %w", event, err)
	}
	frame, err := json.Marshal(Frame{Event: event, Data: payload})
	if err != nil {
		return err
	}
	return conn.WriteMessage(frame)
}

// OnEvent registers fn for events of eventType, or for every event when
// eventType is AnyEvent. The returned id removes it again with Off.
func (c *Client) OnEvent(eventType string, fn Listener) string {
	return c.listeners.add(eventType, fn)
}

func (c *Client) Off(id string) bool {
	return c.listeners.remove(id)
}

func (c *Client) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{State: c.state, Attempts: c.attempts, Connected: c.state == Connected}
}

// teardownLocked closes the current handle and invalidates its read loop and
// any reconnect in progress. c.mu must be held.
func (c *Client) teardownLocked() {
	c.generation++
	if c.stopRetry != nil {
		c.stopRetry()
		c.stopRetry = nil
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			c.logger.Debug().Err(err).Msg("Error closing realtime connection")
		}
		c.conn = nil
	}
}

// attach installs conn unless the client moved on since gen.
func (c *Client) attach(gen uint64, conn Conn) bool {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		_ = conn.Close()
		return false
	}
	c.conn = conn
	c.state = Connected
	c.attempts = 0
	c.mu.Unlock()

	c.logger.Info().Msg("Realtime channel connected")
	c.publish(notice.RealtimeConnected, "Conectado ao sistema de notificações", nil)
	go c.readLoop(gen, conn)
	return true
}

func (c *Client) readLoop(gen uint64, conn Conn) {
	for {
		data, err := conn.ReadMessage()
		if err != nil {
			c.dropped(gen, err)
			return
		}
		c.handle(data)
	}
}

func (c *Client) handle(data []byte) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		c.logger.Warn().Err(err).Msg("Ignoring malformed realtime frame")
		return
	}
	if frame.Event == EventConnectionEstablished {
		c.logger.Debug().RawJSON("data", frame.Data).Msg("Realtime connection established")
		return
	}

	event, err := decodeFrame(frame)
	if err != nil {
		c.logger.Warn().Err(err).Str("event", frame.Event).Msg("Ignoring malformed realtime event")
		return
	}
	id := event.Identity()
	if c.recent.Seen(id) {
		c.logger.Debug().Str("identity", id).Msg("Duplicate realtime event dropped")
		return
	}

	c.listeners.dispatch(event)

	if c.display == nil {
		return
	}
	var viewer Viewer
	if c.viewer != nil {
		viewer = c.viewer()
	}
	if !Visible(event, viewer) {
		c.logger.Debug().Str("identity", id).Msg("Realtime event filtered for this user")
		return
	}
	c.display(event, Describe(event))
}

// dropped handles the end of a read loop. Only a loop whose connection is
// still current starts reconnecting; local teardown has already moved on.
func (c *Client) dropped(gen uint64, err error) {
	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	if c.conn != nil {
		_ = c.conn.Close()
		c.conn = nil
	}
	c.state = Reconnecting
	c.attempts = 0
	ctx, cancel := context.WithCancel(context.Background())
	c.stopRetry = cancel
	c.mu.Unlock()

	c.logger.Warn().Err(err).Msg("Realtime channel dropped, reconnecting")
	go c.reconnect(ctx, gen)
}

func (c *Client) reconnect(ctx context.Context, gen uint64) {
	backoff := ReconnectBackoff(c.baseDelay, c.maxAttempts)
	for attempt := 1; ; attempt++ {
		delay, stop := backoff.Next()
		if stop {
			break
		}

		c.mu.Lock()
		if c.generation != gen {
			c.mu.Unlock()
			return
		}
		c.attempts = attempt
		c.mu.Unlock()

		c.logger.Info().Int("attempt", attempt).Int("max", c.maxAttempts).Dur("delay", delay).Msg("Scheduling realtime reconnect")
		if err := c.sleep(ctx, delay); err != nil {
			return
		}

		token, err := c.tokens.Token()
		if err != nil {
			c.logger.Warn().Err(err).Msg("No session to reconnect with")
			continue
		}
		conn, err := c.dialer.Dial(ctx, c.endpoint, token.AccessToken)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			c.logger.Err(err).Int("attempt", attempt).Msg("Realtime reconnect failed")
			continue
		}
		c.attach(gen, conn)
		return
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return
	}
	c.state = Disconnected
	c.stopRetry = nil
	c.mu.Unlock()

	c.logger.Error().Int("attempts", c.maxAttempts).Msg("Maximum realtime reconnect attempts reached")
	c.publish(notice.RealtimeFatal, "Falha na conexão com o sistema de notificações", ierrors.ErrReconnectExhausted)
}

func (c *Client) publish(kind notice.Kind, message string, err error) {
	if c.notices == nil {
		return
	}
	n := notice.New(kind, message, err)
	n.At = c.nowFunc()
	c.notices.Publish(n)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
