package binance

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// DefaultStreamURL is the public Binance market-stream base.
const DefaultStreamURL = "wss://stream.binance.com:9443/ws"

// Conn is one established stream connection.
type Conn interface {
	// ReadMessage blocks until the next text/binary message arrives or the
	// connection ends.
	ReadMessage() ([]byte, error)
	// Close shuts the connection down. It is safe to call more than once and
	// concurrently with ReadMessage.
	Close() error
}

// Dialer opens stream connections.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// StreamURL derives the kline stream endpoint for a selection:
// <base>/<lower(symbol)>@kline_<interval>.
func StreamURL(base, symbol, interval string) string {
	return strings.TrimRight(base, "/") + "/" + strings.ToLower(symbol) + "@kline_" + interval
}

// WSDialer dials Binance streams over gorilla/websocket. It never
// reconnects on its own.
type WSDialer struct {
	dialer *websocket.Dialer
	logger *zap.Logger
}

// NewWSDialer creates a dialer. A zero handshakeTimeout means no timeout.
func NewWSDialer(handshakeTimeout time.Duration, logger *zap.Logger) *WSDialer {
	d := *websocket.DefaultDialer
	d.HandshakeTimeout = handshakeTimeout
	return &WSDialer{dialer: &d, logger: logger}
}

// Dial establishes the WebSocket connection. No subscription message is
// needed: the stream is selected by the URL path.
func (d *WSDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		fields := []zap.Field{zap.String("url", url), zap.Error(err)}
		if resp != nil {
			fields = append(fields, zap.Int("status", resp.StatusCode))
		}
		d.logger.Error("Failed to connect to WebSocket", fields...)
		return nil, err
	}
	if resp != nil && resp.StatusCode != http.StatusSwitchingProtocols {
		_ = conn.Close()
		return nil, errors.New("unexpected handshake status: " + resp.Status)
	}

	d.logger.Info("WebSocket connected", zap.String("url", url))
	return &WSConn{conn: conn}, nil
}

// WSConn wraps a gorilla connection with an idempotent Close.
type WSConn struct {
	conn      *websocket.Conn
	closeOnce sync.Once
	closeErr  error
}

func (c *WSConn) ReadMessage() ([]byte, error) {
	_, msg, err := c.conn.ReadMessage()
	return msg, err
}

// Close sends a normal-closure frame (best effort) and closes the socket.
func (c *WSConn) Close() error {
	c.closeOnce.Do(func() {
		_ = c.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second),
		)
		c.closeErr = c.conn.Close()
	})
	return c.closeErr
}
