package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"klinecache/pkg/binance/binancetest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const waitFor = 2 * time.Second

func nextEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for session event")
		return Event{}
	}
}

func nextConn(t *testing.T, d *binancetest.Dialer) *binancetest.Conn {
	t.Helper()
	select {
	case c := <-d.Conns:
		return c
	case <-time.After(waitFor):
		t.Fatal("timed out waiting for dial")
		return nil
	}
}

// go test -v --run TestSessionLifecycle
func TestSessionLifecycle(t *testing.T) {
	dialer := binancetest.NewDialer()
	events := make(chan Event)
	s := New(1, "BINANCE:ETHUSDT", "1", "ws://stream/ws", dialer, events, nil)

	assert.Equal(t, Idle, s.State())
	assert.Equal(t, "ws://stream/ws/binance:ethusdt@kline_1", s.URL())

	require.NoError(t, s.Open(context.Background()))
	assert.Error(t, s.Open(context.Background()), "open is only valid from idle")

	conn := nextConn(t, dialer)
	assert.Equal(t, s.URL(), conn.URL)

	ev := nextEvent(t, events)
	require.Equal(t, EventOpened, ev.Kind)
	require.True(t, s.Accept(ev))
	assert.Equal(t, Live, s.State())

	conn.Push(`{"k":{}}`)
	ev = nextEvent(t, events)
	require.Equal(t, EventMessage, ev.Kind)
	assert.True(t, s.Accept(ev))
	assert.Equal(t, `{"k":{}}`, string(ev.Data))

	s.Close()
	assert.Equal(t, Closed, s.State())
	assert.True(t, conn.Closed())

	// Late events are rejected once closed.
	assert.False(t, s.Accept(Event{Session: s, Kind: EventMessage}))
	assert.False(t, s.Accept(Event{Session: s, Kind: EventClosed}))

	s.Close() // idempotent
}

// go test -v --run TestSessionTransportClose
func TestSessionTransportClose(t *testing.T) {
	dialer := binancetest.NewDialer()
	events := make(chan Event, 8)
	s := New(2, "BINANCE:BNBUSDT", "3", "ws://stream/ws", dialer, events, nil)
	require.NoError(t, s.Open(context.Background()))

	conn := nextConn(t, dialer)
	require.True(t, s.Accept(nextEvent(t, events)))

	conn.Drop()
	ev := nextEvent(t, events)
	require.Equal(t, EventClosed, ev.Kind)
	assert.True(t, errors.Is(ev.Err, ErrTransportClosed))
	require.True(t, s.Accept(ev))
	assert.Equal(t, Closed, s.State())

	// No reconnect is attempted.
	select {
	case c := <-dialer.Conns:
		t.Fatalf("unexpected redial to %s", c.URL)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Len(t, dialer.URLs(), 1)
}

// go test -v --run TestSessionDialFailure
func TestSessionDialFailure(t *testing.T) {
	dialer := binancetest.NewDialer()
	dialer.FailWith(errors.New("connection refused"))
	events := make(chan Event, 1)
	s := New(3, "X", "1", "ws://stream/ws", dialer, events, nil)
	require.NoError(t, s.Open(context.Background()))

	ev := nextEvent(t, events)
	require.Equal(t, EventClosed, ev.Kind)
	assert.True(t, errors.Is(ev.Err, ErrTransportClosed))
	require.True(t, s.Accept(ev))
	assert.Equal(t, Closed, s.State())
}

// A session that never connects can still be closed promptly.
func TestSessionCloseWhileConnecting(t *testing.T) {
	dialer := binancetest.NewDialer()
	dialer.Block(true)
	events := make(chan Event)
	s := New(4, "X", "1", "ws://stream/ws", dialer, events, nil)
	require.NoError(t, s.Open(context.Background()))
	assert.Equal(t, Connecting, s.State())

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()

	select {
	case <-closed:
	case <-time.After(waitFor):
		t.Fatal("close blocked on a pending dial")
	}
	assert.Equal(t, Closed, s.State())
}

// Close must not deadlock while the reader is waiting to hand over a message.
func TestSessionCloseWithUndeliveredMessage(t *testing.T) {
	dialer := binancetest.NewDialer()
	events := make(chan Event) // nobody reads after the open event
	s := New(5, "X", "1", "ws://stream/ws", dialer, events, nil)
	require.NoError(t, s.Open(context.Background()))

	conn := nextConn(t, dialer)
	require.True(t, s.Accept(nextEvent(t, events)))
	conn.Push(`{"k":{}}`)

	done := make(chan struct{})
	go func() {
		s.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(waitFor):
		t.Fatal("close deadlocked")
	}
}

func TestAcceptForeignEvent(t *testing.T) {
	a := New(6, "A", "1", "ws://x", binancetest.NewDialer(), make(chan Event), nil)
	b := New(7, "B", "1", "ws://x", binancetest.NewDialer(), make(chan Event), nil)
	assert.False(t, a.Accept(Event{Session: b, Kind: EventOpened}))
}

func TestCloseIdle(t *testing.T) {
	s := New(8, "A", "1", "ws://x", binancetest.NewDialer(), make(chan Event), nil)
	s.Close()
	assert.Equal(t, Closed, s.State())
	assert.Error(t, s.Open(context.Background()))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "live", Live.String())
	assert.Equal(t, "state(42)", State(42).String())
}
