package session

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"klinecache/pkg/binance"

	"go.uber.org/zap"
)

// ErrTransportClosed is reported when the connection ends without the owner
// asking for it, or could not be established at all.
var ErrTransportClosed = errors.New("transport closed")

// State of a Session. Transitions only move forward:
// Idle → Connecting → Live → Closing → Closed, with Closing skipped when the
// transport ends the session on its own.
type State int

const (
	Idle State = iota
	Connecting
	Live
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Connecting:
		return "connecting"
	case Live:
		return "live"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// EventKind identifies what a transport event reports.
type EventKind int

const (
	EventOpened EventKind = iota
	EventMessage
	EventClosed
)

// Event is sent from a session's I/O goroutine to its owner. The owner
// passes it back through Accept before acting on it.
type Event struct {
	Session *Session
	Kind    EventKind
	Data    []byte
	Err     error
}

// Session owns at most one stream connection for one (symbol, interval).
// It never reconnects: once Closed it stays Closed.
type Session struct {
	id       uint64
	symbol   string
	interval string
	url      string
	dialer   binance.Dialer
	events   chan<- Event
	logger   *zap.Logger

	mu     sync.Mutex
	state  State
	conn   binance.Conn
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates an Idle session. Transport events are delivered on events.
func New(id uint64, symbol, interval, baseURL string, dialer binance.Dialer,
	events chan<- Event, logger *zap.Logger) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		id:       id,
		symbol:   symbol,
		interval: interval,
		url:      binance.StreamURL(baseURL, symbol, interval),
		dialer:   dialer,
		events:   events,
		logger: logger.With(
			zap.Uint64("session", id),
			zap.String("symbol", symbol),
			zap.String("interval", interval),
		),
		state: Idle,
		done:  make(chan struct{}),
	}
}

func (s *Session) ID() uint64       { return s.id }
func (s *Session) Symbol() string   { return s.symbol }
func (s *Session) Interval() string { return s.interval }
func (s *Session) URL() string      { return s.url }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Open moves Idle → Connecting and starts dialing in the background.
func (s *Session) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != Idle {
		return fmt.Errorf("open session %d: state is %s", s.id, s.state)
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.state = Connecting
	s.logger.Debug("session connecting", zap.String("url", s.url))

	go s.run(ctx)
	return nil
}

// Accept applies the state transition carried by ev and reports whether the
// owner should act on it. Events that arrive after Close, or out of order,
// are rejected.
func (s *Session) Accept(ev Event) bool {
	if ev.Session != s {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch ev.Kind {
	case EventOpened:
		if s.state != Connecting {
			return false
		}
		s.state = Live
		return true
	case EventMessage:
		return s.state == Live
	case EventClosed:
		if s.state != Connecting && s.state != Live {
			return false
		}
		s.state = Closed
		if s.cancel != nil {
			s.cancel()
		}
		if s.conn != nil {
			_ = s.conn.Close()
		}
		return true
	}
	return false
}

// Close tears the session down and waits for its I/O goroutine to exit.
// No event from this session is accepted once Close has begun.
func (s *Session) Close() {
	s.mu.Lock()
	switch s.state {
	case Closed, Closing:
		s.mu.Unlock()
		return
	case Idle:
		s.state = Closed
		s.mu.Unlock()
		return
	}

	s.state = Closing
	s.cancel()
	conn := s.conn
	s.mu.Unlock()

	if conn != nil {
		_ = conn.Close()
	}
	<-s.done

	s.mu.Lock()
	s.state = Closed
	s.mu.Unlock()
	s.logger.Debug("session closed")
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	conn, err := s.dialer.Dial(ctx, s.url)
	if err != nil {
		s.emit(ctx, Event{Session: s, Kind: EventClosed, Err: fmt.Errorf("%w: dial: %v", ErrTransportClosed, err)})
		return
	}

	s.mu.Lock()
	if s.state != Connecting {
		// Closed while dialing.
		s.mu.Unlock()
		_ = conn.Close()
		return
	}
	s.conn = conn
	s.mu.Unlock()

	if !s.emit(ctx, Event{Session: s, Kind: EventOpened}) {
		return
	}

	for {
		msg, err := conn.ReadMessage()
		if err != nil {
			s.emit(ctx, Event{Session: s, Kind: EventClosed, Err: fmt.Errorf("%w: %v", ErrTransportClosed, err)})
			return
		}
		if !s.emit(ctx, Event{Session: s, Kind: EventMessage, Data: msg}) {
			return
		}
	}
}

// emit hands ev to the owner unless the session is being torn down.
func (s *Session) emit(ctx context.Context, ev Event) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}

	select {
	case s.events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
