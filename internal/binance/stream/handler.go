package stream

import (
	"context"

	"klinecache/internal/binance/cache"
	"klinecache/internal/binance/rolling"
	"klinecache/internal/diag"

	"go.uber.org/zap"
)

// MessageHandler folds one raw stream message into buf. It returns the new
// buffer and true when a candle was appended, or buf unchanged and false when
// the message was dropped.
type MessageHandler func(ctx context.Context, symbol, interval string, buf rolling.Buffer, msg []byte) (rolling.Buffer, bool)

// MakeMessageHandler returns a MessageHandler that decodes kline messages,
// appends them to the rolling buffer and writes the full buffer to the cache.
func MakeMessageHandler(logger *zap.Logger, c *cache.Cache, reporter *diag.Reporter) MessageHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(ctx context.Context, symbol, interval string, buf rolling.Buffer, msg []byte) (rolling.Buffer, bool) {
		// Step 1: Decode, dropping anything incomplete
		candle, err := Decode(msg)
		if err != nil {
			reporter.Report(diag.Event{
				Kind:     diag.MalformedMessage,
				Symbol:   symbol,
				Interval: interval,
				Err:      err,
			})
			return buf, false
		}

		// Step 2: Append with eviction
		next := rolling.Append(buf, candle)

		// Step 3: Persist the whole buffer before exposing it
		c.Save(ctx, symbol, interval, next)

		logger.Debug("kline appended",
			zap.String("symbol", symbol),
			zap.String("interval", interval),
			zap.Int64("t", candle.T),
			zap.Int("len", len(next)),
		)
		return next, true
	}
}
