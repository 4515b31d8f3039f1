// Package diag carries non-fatal failures out of the streaming path so that
// callers can observe them without the stream being interrupted.
package diag

import (
	"go.uber.org/zap"
)

// Kind classifies a diagnostic event.
type Kind string

const (
	MalformedMessage Kind = "malformed_message"
	TransportClosed  Kind = "transport_closed"
	CacheReadCorrupt Kind = "cache_read_corrupt"
	CacheWriteFailed Kind = "cache_write_failed"
)

// Event is one recorded failure.
type Event struct {
	Kind     Kind
	Symbol   string
	Interval string
	Err      error
}

// Handler receives diagnostic events. It is invoked synchronously and must not block.
type Handler func(Event)

// Reporter logs every event and forwards it to an optional Handler.
type Reporter struct {
	logger  *zap.Logger
	handler Handler
}

func NewReporter(logger *zap.Logger, h Handler) *Reporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reporter{logger: logger, handler: h}
}

// Report records ev. A nil Reporter is valid and discards events.
func (r *Reporter) Report(ev Event) {
	if r == nil {
		return
	}

	fields := []zap.Field{
		zap.String("kind", string(ev.Kind)),
		zap.String("symbol", ev.Symbol),
		zap.String("interval", ev.Interval),
	}
	if ev.Err != nil {
		fields = append(fields, zap.Error(ev.Err))
	}

	switch ev.Kind {
	case TransportClosed:
		r.logger.Info("websocket closed", fields...)
	default:
		r.logger.Warn("diagnostic event", fields...)
	}

	if r.handler != nil {
		r.handler(ev)
	}
}
