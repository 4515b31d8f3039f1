// Package controller owns the active kline subscription. Selections and
// transport events are processed one at a time on a single loop goroutine.
package controller

import (
	"context"
	"sync"

	"klinecache/internal/binance/cache"
	"klinecache/internal/binance/rolling"
	"klinecache/internal/binance/session"
	"klinecache/internal/binance/stream"
	"klinecache/internal/diag"
	"klinecache/pkg/binance"

	"go.uber.org/zap"
)

// Update is the buffer exposed for one selection.
type Update struct {
	Symbol   string
	Interval string
	Buffer   rolling.Buffer
}

// Publisher receives every exposed buffer. It runs on the controller loop
// and must not block or call back into Select.
type Publisher func(Update)

type selection struct {
	symbol   string
	interval string
	gen      uint64
}

type Controller struct {
	cache     *cache.Cache
	dialer    binance.Dialer
	streamURL string
	logger    *zap.Logger
	reporter  *diag.Reporter
	publish   Publisher
	handle    stream.MessageHandler

	events chan session.Event
	notify chan struct{}
	stop   chan struct{}
	exited chan struct{}

	stopOnce sync.Once

	// applyMu is held by the loop while a message is decoded, appended and
	// written to the cache, and by Select while it bumps requested. A Select
	// therefore waits at most for the one write already in flight, and no
	// write for a superseded selection starts after Select returns.
	applyMu sync.Mutex

	// mu guards everything below and is never held across I/O.
	mu         sync.Mutex
	running    bool
	pending    []selection
	requested  uint64
	current    *session.Session
	currentGen uint64
	snapshot   Update
	nextID     uint64
}

type Option func(*Controller)

func WithStreamURL(url string) Option {
	return func(c *Controller) { c.streamURL = url }
}

func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// WithReporter sets where transport and decode diagnostics go. It should be
// the same reporter the cache was built with.
func WithReporter(r *diag.Reporter) Option {
	return func(c *Controller) { c.reporter = r }
}

func WithPublisher(p Publisher) Option {
	return func(c *Controller) { c.publish = p }
}

func New(kc *cache.Cache, dialer binance.Dialer, opts ...Option) *Controller {
	c := &Controller{
		cache:     kc,
		dialer:    dialer,
		streamURL: binance.DefaultStreamURL,
		logger:    zap.NewNop(),
		events:    make(chan session.Event, 64),
		notify:    make(chan struct{}, 1),
		stop:      make(chan struct{}),
		exited:    make(chan struct{}),
		snapshot:  Update{Buffer: rolling.Buffer{}},
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.reporter == nil {
		c.reporter = diag.NewReporter(c.logger, nil)
	}
	c.handle = stream.MakeMessageHandler(c.logger, c.cache, c.reporter)
	return c
}

// Select asks for the subscription to move to (symbol, interval). It does not
// wait for the switch. Every call restarts the session, even when nothing
// changed. Messages from the previous session are never applied once Select
// has returned.
func (c *Controller) Select(symbol, interval string) {
	c.applyMu.Lock()
	c.mu.Lock()
	c.requested++
	c.pending = append(c.pending, selection{symbol: symbol, interval: interval, gen: c.requested})
	c.mu.Unlock()
	c.applyMu.Unlock()

	select {
	case c.notify <- struct{}{}:
	default:
	}
}

// Snapshot returns a copy of the currently exposed buffer.
func (c *Controller) Snapshot() Update {
	c.mu.Lock()
	defer c.mu.Unlock()
	u := c.snapshot
	u.Buffer = u.Buffer.Clone()
	return u
}

// State reports the state of the active session, or Idle if there is none.
func (c *Controller) State() session.State {
	c.mu.Lock()
	s := c.current
	c.mu.Unlock()
	if s == nil {
		return session.Idle
	}
	return s.State()
}

// Run processes selections and transport events until ctx is done or Close
// is called. The active session is closed before Run returns.
func (c *Controller) Run(ctx context.Context) error {
	c.mu.Lock()
	c.running = true
	c.mu.Unlock()
	defer close(c.exited)
	defer c.shutdown()

	for {
		if sel, ok := c.nextSelection(); ok {
			c.handleSelect(ctx, sel)
			continue
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-c.stop:
			return nil
		case <-c.notify:
		case ev := <-c.events:
			c.handleEvent(ctx, ev)
		}
	}
}

// Close stops the loop and tears down the active session.
func (c *Controller) Close() {
	c.stopOnce.Do(func() { close(c.stop) })

	c.mu.Lock()
	running := c.running
	c.mu.Unlock()
	if running {
		<-c.exited
		return
	}
	c.shutdown()
}

func (c *Controller) nextSelection() (selection, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.pending) == 0 {
		return selection{}, false
	}
	sel := c.pending[0]
	c.pending = c.pending[1:]
	return sel, true
}

func (c *Controller) handleSelect(ctx context.Context, sel selection) {
	// Step 1: Close the previous session before anything else
	c.mu.Lock()
	prev := c.current
	c.current = nil
	c.mu.Unlock()
	if prev != nil {
		prev.Close()
	}

	// Step 2: Seed from the cache
	buf := c.cache.Load(ctx, sel.symbol, sel.interval)

	// Step 3: Open the new session
	c.nextID++
	s := session.New(c.nextID, sel.symbol, sel.interval, c.streamURL, c.dialer, c.events, c.logger)

	c.mu.Lock()
	c.current = s
	c.currentGen = sel.gen
	c.snapshot = Update{Symbol: sel.symbol, Interval: sel.interval, Buffer: buf}
	c.mu.Unlock()

	if err := s.Open(ctx); err != nil {
		c.logger.Error("failed to open session", zap.Error(err))
	}
	c.logger.Info("subscription selected",
		zap.String("symbol", sel.symbol),
		zap.String("interval", sel.interval),
		zap.Int("cached", len(buf)),
	)

	// Step 4: Expose the cached buffer before any live data
	c.emit(Update{Symbol: sel.symbol, Interval: sel.interval, Buffer: buf.Clone()})
}

func (c *Controller) handleEvent(ctx context.Context, ev session.Event) {
	c.mu.Lock()
	accepted := ev.Session == c.current && ev.Session.Accept(ev)
	c.mu.Unlock()
	if !accepted {
		return
	}
	s := ev.Session

	switch ev.Kind {
	case session.EventOpened:
		c.logger.Info("stream live",
			zap.String("symbol", s.Symbol()),
			zap.String("interval", s.Interval()),
			zap.String("url", s.URL()),
		)

	case session.EventMessage:
		if u, ok := c.apply(ctx, s, ev.Data); ok {
			c.emit(u)
		}

	case session.EventClosed:
		c.reporter.Report(diag.Event{
			Kind:     diag.TransportClosed,
			Symbol:   s.Symbol(),
			Interval: s.Interval(),
			Err:      ev.Err,
		})
	}
}

// apply folds one message into the exposed buffer and persists it. Only the
// cache write runs outside mu, so Snapshot and State never wait on the store.
func (c *Controller) apply(ctx context.Context, s *session.Session, msg []byte) (Update, bool) {
	c.applyMu.Lock()
	defer c.applyMu.Unlock()

	c.mu.Lock()
	superseded := c.requested != c.currentGen
	buf := c.snapshot.Buffer
	c.mu.Unlock()
	if superseded {
		// A newer Select is queued; this session is already superseded.
		return Update{}, false
	}

	next, ok := c.handle(ctx, s.Symbol(), s.Interval(), buf, msg)
	if !ok {
		return Update{}, false
	}

	c.mu.Lock()
	c.snapshot.Buffer = next
	c.mu.Unlock()
	return Update{Symbol: s.Symbol(), Interval: s.Interval(), Buffer: next.Clone()}, true
}

func (c *Controller) emit(u Update) {
	if c.publish != nil {
		c.publish(u)
	}
}

func (c *Controller) shutdown() {
	c.mu.Lock()
	s := c.current
	c.current = nil
	c.mu.Unlock()
	if s != nil {
		s.Close()
	}
}
