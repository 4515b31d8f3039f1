// Package binancetest provides in-process stand-ins for stream connections.
package binancetest

import (
	"context"
	"errors"
	"sync"

	"klinecache/pkg/binance"
)

// ErrServerClosed is returned by ReadMessage after Drop.
var ErrServerClosed = errors.New("binancetest: server closed connection")

// Conn is a fake stream connection fed by the test.
type Conn struct {
	URL string

	msgs      chan []byte
	closed    chan struct{}
	dropped   chan struct{}
	closeOnce sync.Once
	dropOnce  sync.Once
}

func newConn(url string) *Conn {
	return &Conn{
		URL:     url,
		msgs:    make(chan []byte, 64),
		closed:  make(chan struct{}),
		dropped: make(chan struct{}),
	}
}

// Push queues a message for ReadMessage.
func (c *Conn) Push(msg string) {
	c.msgs <- []byte(msg)
}

// Drop simulates the server ending the connection.
func (c *Conn) Drop() {
	c.dropOnce.Do(func() { close(c.dropped) })
}

// Closed reports whether the client closed the connection.
func (c *Conn) Closed() bool {
	select {
	case <-c.closed:
		return true
	default:
		return false
	}
}

func (c *Conn) ReadMessage() ([]byte, error) {
	// Queued messages are delivered before a drop takes effect.
	select {
	case <-c.closed:
		return nil, errClientClosed
	default:
	}

	select {
	case msg := <-c.msgs:
		return msg, nil
	case <-c.closed:
		return nil, errClientClosed
	case <-c.dropped:
		select {
		case msg := <-c.msgs:
			return msg, nil
		default:
			return nil, ErrServerClosed
		}
	}
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

var errClientClosed = errors.New("binancetest: use of closed connection")

// Dialer hands out fake connections and publishes each one on Conns.
type Dialer struct {
	Conns chan *Conn

	mu    sync.Mutex
	err   error
	block bool
	urls  []string
}

func NewDialer() *Dialer {
	return &Dialer{Conns: make(chan *Conn, 16)}
}

// FailWith makes subsequent dials fail with err (nil restores success).
func (d *Dialer) FailWith(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.err = err
}

// Block makes subsequent dials hang until their context is cancelled.
func (d *Dialer) Block(b bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.block = b
}

// URLs returns every URL dialed so far.
func (d *Dialer) URLs() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, len(d.urls))
	copy(out, d.urls)
	return out
}

func (d *Dialer) Dial(ctx context.Context, url string) (binance.Conn, error) {
	d.mu.Lock()
	d.urls = append(d.urls, url)
	err, block := d.err, d.block
	d.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	conn := newConn(url)
	d.Conns <- conn
	return conn, nil
}
