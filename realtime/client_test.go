package realtime_test

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	ierrors "github.com/jrsteele09/go-orders-client/internal/errors"
	"github.com/jrsteele09/go-orders-client/notice"
	"github.com/jrsteele09/go-orders-client/realtime"
	"github.com/jrsteele09/go-orders-client/session"
	"github.com/stretchr/testify/require"
)

var errRemoteClosed = errors.New("remote closed the connection")

type fakeConn struct {
	inbound chan []byte
	closed  chan struct{}
	once    sync.Once

	mu      sync.Mutex
	written [][]byte
}

func newFakeConn() *fakeConn {
	return &fakeConn{inbound: make(chan []byte, 16), closed: make(chan struct{})}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case data, ok := <-c.inbound:
		if !ok {
			return nil, errRemoteClosed
		}
		return data, nil
	case <-c.closed:
		return nil, net.ErrClosed
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.written = append(c.written, data)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) send(t *testing.T, event string, data any) {
	t.Helper()
	payload, err := json.Marshal(data)
	require.NoError(t, err)
	frame, err := json.Marshal(realtime.Frame{Event: event, Data: payload})
	require.NoError(t, err)
	c.inbound <- frame
}

// drop simulates the backend closing the channel.
func (c *fakeConn) drop() {
	close(c.inbound)
}

func (c *fakeConn) frames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.written...)
}

type fakeDialer struct {
	mu     sync.Mutex
	dials  int
	tokens []string
	fail   bool
	conns  chan *fakeConn
}

func newFakeDialer() *fakeDialer {
	return &fakeDialer{conns: make(chan *fakeConn, 16)}
}

func (d *fakeDialer) Dial(_ context.Context, _ string, token string) (realtime.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	d.tokens = append(d.tokens, token)
	if d.fail {
		return nil, errors.New("connection refused")
	}
	conn := newFakeConn()
	d.conns <- conn
	return conn, nil
}

func (d *fakeDialer) setFail(fail bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.fail = fail
}

func (d *fakeDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}

type testFixture struct {
	store   *session.Store
	dialer  *fakeDialer
	notices chan notice.Notice
	delays  chan time.Duration
	client  *realtime.Client
}

func setupTestFixture(t *testing.T, options ...realtime.Option) *testFixture {
	t.Helper()
	f := &testFixture{
		store:   session.NewStore(),
		dialer:  newFakeDialer(),
		notices: make(chan notice.Notice, 16),
		delays:  make(chan time.Duration, 16),
	}
	f.store.SetSession(session.Session{AccessToken: "abc", TokenType: "bearer", Role: session.RoleCommon, Sector: "Oficina"})

	bus := notice.NewBus()
	bus.Subscribe(func(n notice.Notice) { f.notices <- n })

	options = append([]realtime.Option{
		realtime.WithDialer(f.dialer),
		realtime.WithNotices(bus),
		realtime.WithBaseDelay(2 * time.Second),
		realtime.WithMaxReconnectAttempts(5),
		realtime.WithSleep(func(ctx context.Context, d time.Duration) error {
			f.delays <- d
			return ctx.Err()
		}),
	}, options...)
	f.client = realtime.New("ws://orders.test/ws", f.store, options...)
	t.Cleanup(f.client.Disconnect)
	return f
}

func (f *testFixture) connect(t *testing.T) *fakeConn {
	t.Helper()
	require.NoError(t, f.client.Connect(context.Background()))
	select {
	case conn := <-f.dialer.conns:
		return conn
	case <-time.After(time.Second):
		t.Fatal("no connection dialed")
		return nil
	}
}

func (f *testFixture) nextNotice(t *testing.T, kind notice.Kind) notice.Notice {
	t.Helper()
	timeout := time.After(2 * time.Second)
	for {
		select {
		case n := <-f.notices:
			if n.Kind == kind {
				return n
			}
		case <-timeout:
			t.Fatalf("no %s notice", kind)
			return notice.Notice{}
		}
	}
}

func notification(eventType string, orderID int, timestamp string) map[string]any {
	return map[string]any{
		"type":      eventType,
		"timestamp": timestamp,
		"data": map[string]any{
			"message": "Pedido atualizado",
			"pedido":  map[string]any{"id": orderID, "setor": "Oficina"},
		},
	}
}

func TestConnect_RequiresSession(t *testing.T) {
	f := setupTestFixture(t)
	f.store.ClearSession()

	err := f.client.Connect(context.Background())
	require.ErrorIs(t, err, ierrors.ErrNoSession)
	require.Equal(t, realtime.Disconnected, f.client.Status().State)
	require.Zero(t, f.dialer.dialCount())
}

func TestConnect_PassesTokenAndIsIdempotent(t *testing.T) {
	f := setupTestFixture(t)
	f.connect(t)
	f.nextNotice(t, notice.RealtimeConnected)

	require.NoError(t, f.client.Connect(context.Background()))
	require.Equal(t, 1, f.dialer.dialCount())
	require.Equal(t, []string{"abc"}, f.dialer.tokens)

	status := f.client.Status()
	require.True(t, status.Connected)
	require.Equal(t, realtime.Connected, status.State)
}

func TestConnect_DialFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.dialer.setFail(true)

	require.Error(t, f.client.Connect(context.Background()))
	require.Equal(t, realtime.Disconnected, f.client.Status().State)
}

func TestEvents_DispatchedInRegistrationOrder(t *testing.T) {
	f := setupTestFixture(t)

	var (
		mu    sync.Mutex
		calls []string
	)
	record := func(name string) realtime.Listener {
		return func(e realtime.Event) {
			mu.Lock()
			defer mu.Unlock()
			calls = append(calls, name+":"+e.Type)
		}
	}
	done := make(chan struct{}, 4)

	f.client.OnEvent(realtime.EventOrderUpdated, record("first"))
	f.client.OnEvent(realtime.EventOrderUpdated, func(realtime.Event) { panic("listener bug") })
	removed := f.client.OnEvent(realtime.EventOrderUpdated, record("removed"))
	f.client.OnEvent(realtime.AnyEvent, record("any"))
	f.client.OnEvent(realtime.EventOrderCreated, record("created"))
	f.client.OnEvent(realtime.AnyEvent, func(realtime.Event) { done <- struct{}{} })
	require.True(t, f.client.Off(removed))
	require.False(t, f.client.Off(removed))

	conn := f.connect(t)
	conn.send(t, realtime.EventNotification, notification(realtime.EventOrderUpdated, 7, "2024-05-01T10:00:00"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("event not dispatched")
	}
	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, []string{"first:pedido_atualizado", "any:pedido_atualizado"}, calls)
}

func TestEvents_DuplicatesWithinWindowDropped(t *testing.T) {
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	var clock sync.Mutex
	f := setupTestFixture(t,
		realtime.WithDebounceWindow(time.Hour),
		realtime.WithNowFunc(func() time.Time {
			clock.Lock()
			defer clock.Unlock()
			return now
		}),
	)

	received := make(chan realtime.Event, 8)
	f.client.OnEvent(realtime.AnyEvent, func(e realtime.Event) { received <- e })

	conn := f.connect(t)
	conn.send(t, realtime.EventNotification, notification(realtime.EventOrderUpdated, 7, "t1"))
	conn.send(t, realtime.EventNotification, notification(realtime.EventOrderUpdated, 7, "t1"))
	conn.send(t, realtime.EventNotification, notification(realtime.EventOrderUpdated, 8, "t1"))

	first := <-received
	require.Equal(t, "pedido_atualizado_7_t1", first.Identity())
	second := <-received
	require.Equal(t, "pedido_atualizado_8_t1", second.Identity())

	// After the window the same identity is delivered again
	clock.Lock()
	now = now.Add(2 * time.Hour)
	clock.Unlock()
	conn.send(t, realtime.EventNotification, notification(realtime.EventOrderUpdated, 7, "t1"))
	third := <-received
	require.Equal(t, "pedido_atualizado_7_t1", third.Identity())

	select {
	case e := <-received:
		t.Fatalf("unexpected event %s", e.Identity())
	case <-time.After(50 * time.Millisecond):
	}
}

func TestDisconnect_ForgetsRecentIdentities(t *testing.T) {
	f := setupTestFixture(t, realtime.WithDebounceWindow(time.Hour))
	received := make(chan realtime.Event, 8)
	f.client.OnEvent(realtime.AnyEvent, func(e realtime.Event) { received <- e })

	conn := f.connect(t)
	conn.send(t, realtime.EventNotification, notification(realtime.EventOrderUpdated, 7, "t1"))
	<-received

	f.client.Disconnect()
	require.Equal(t, realtime.Disconnected, f.client.Status().State)

	conn = f.connect(t)
	conn.send(t, realtime.EventNotification, notification(realtime.EventOrderUpdated, 7, "t1"))
	select {
	case <-received:
	case <-time.After(2 * time.Second):
		t.Fatal("event dropped after disconnect")
	}
}

func TestDisconnect_DoesNotReconnect(t *testing.T) {
	f := setupTestFixture(t)
	f.connect(t)

	f.client.Disconnect()
	time.Sleep(20 * time.Millisecond)
	require.Equal(t, 1, f.dialer.dialCount())
	require.Empty(t, f.delays)
}

func TestReconnect_LinearBackoffUntilExhausted(t *testing.T) {
	f := setupTestFixture(t)
	conn := f.connect(t)

	f.dialer.setFail(true)
	conn.drop()

	fatal := f.nextNotice(t, notice.RealtimeFatal)
	require.ErrorIs(t, fatal.Err, ierrors.ErrReconnectExhausted)

	close(f.delays)
	var delays []time.Duration
	for d := range f.delays {
		delays = append(delays, d)
	}
	require.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second, 6 * time.Second, 8 * time.Second, 10 * time.Second}, delays)
	require.Equal(t, 6, f.dialer.dialCount())

	status := f.client.Status()
	require.Equal(t, realtime.Disconnected, status.State)
	require.Equal(t, 5, status.Attempts)

	// A manual connect is still possible
	f.dialer.setFail(false)
	require.NoError(t, f.client.Connect(context.Background()))
	require.Equal(t, realtime.Connected, f.client.Status().State)
}

func TestReconnect_RecoversAndResetsAttempts(t *testing.T) {
	f := setupTestFixture(t)
	conn := f.connect(t)
	f.nextNotice(t, notice.RealtimeConnected)

	conn.drop()
	f.nextNotice(t, notice.RealtimeConnected)
	require.Equal(t, 2*time.Second, <-f.delays)

	status := f.client.Status()
	require.Equal(t, realtime.Connected, status.State)
	require.Zero(t, status.Attempts)
	require.Equal(t, 2, f.dialer.dialCount())
}

func TestReconnectBackoff_Schedule(t *testing.T) {
	backoff := realtime.ReconnectBackoff(time.Second, 3)
	var delays []time.Duration
	for {
		d, stop := backoff.Next()
		if stop {
			break
		}
		delays = append(delays, d)
	}
	require.Equal(t, []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}, delays)

	_, stop := realtime.ReconnectBackoff(time.Second, 0).Next()
	require.True(t, stop)
}

func TestEmit(t *testing.T) {
	f := setupTestFixture(t)

	err := f.client.Emit(context.Background(), "ping", map[string]string{"a": "b"})
	require.ErrorIs(t, err, ierrors.ErrNotConnected)

	conn := f.connect(t)
	require.NoError(t, f.client.Emit(context.Background(), "ping", map[string]string{"a": "b"}))

	frames := conn.frames()
	require.Len(t, frames, 1)
	require.JSONEq(t, `{"event":"ping","data":{"a":"b"}}`, string(frames[0]))
}

func TestDisplay_FiltersBySector(t *testing.T) {
	shown := make(chan realtime.Toast, 4)
	f := setupTestFixture(t,
		realtime.WithViewer(func() realtime.Viewer { return realtime.Viewer{Role: session.RoleCommon, Sector: "Oficina"} }),
		realtime.WithDisplay(func(_ realtime.Event, toast realtime.Toast) { shown <- toast }),
	)
	dispatched := make(chan struct{}, 4)
	f.client.OnEvent(realtime.AnyEvent, func(realtime.Event) { dispatched <- struct{}{} })

	conn := f.connect(t)
	conn.send(t, realtime.EventOrderCompleted, map[string]any{"id": 3, "setor": "Escritório", "usuario_conclusao": "Bia", "timestamp": "t1"})
	conn.send(t, realtime.EventOrderCompleted, map[string]any{"id": 4, "setor": "Oficina", "usuario_conclusao": "Bia", "timestamp": "t1"})

	<-dispatched
	<-dispatched
	toast := <-shown
	require.Equal(t, "Pedido #4 foi concluído por Bia", toast.Message)
	require.Empty(t, shown)
}

func TestMalformedFramesIgnored(t *testing.T) {
	f := setupTestFixture(t)
	received := make(chan realtime.Event, 4)
	f.client.OnEvent(realtime.AnyEvent, func(e realtime.Event) { received <- e })

	conn := f.connect(t)
	conn.inbound <- []byte("not json")
	conn.send(t, realtime.EventNotification, map[string]any{"data": "no type"})
	conn.send(t, realtime.EventConnectionEstablished, map[string]any{"sid": "x"})
	conn.send(t, realtime.EventOrderCanceled, map[string]any{"id": 9, "timestamp": "t"})

	e := <-received
	require.Equal(t, realtime.EventOrderCanceled, e.Type)
	require.Equal(t, "9", e.OrderID())
	require.Equal(t, realtime.Connected, f.client.Status().State)
}
