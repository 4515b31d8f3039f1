package stream

import (
	"context"
	"errors"
	"testing"

	"klinecache/internal/binance/cache"
	"klinecache/internal/binance/kline"
	"klinecache/internal/binance/rolling"
	"klinecache/internal/diag"
	"klinecache/pkg/storage"
	"klinecache/pkg/storage/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// go test -v --run TestMessageHandler
func TestMessageHandler(t *testing.T) {
	store := memory.NewMemoryStore()
	var events []diag.Event
	reporter := diag.NewReporter(zap.NewNop(), func(ev diag.Event) { events = append(events, ev) })
	c := cache.New(store, reporter, cache.Options{})
	handle := MakeMessageHandler(zap.NewNop(), c, reporter)
	ctx := context.Background()

	t.Run("appends and persists", func(t *testing.T) {
		buf, ok := handle(ctx, "BINANCE:ETHUSDT", "1", rolling.Buffer{}, []byte(sampleMessage))
		require.True(t, ok)
		want := rolling.Buffer{{T: 1000, O: 10.5, H: 11, L: 9.5, C: 10.8}}
		assert.Equal(t, want, buf)

		raw, err := store.Get(ctx, "BINANCE:ETHUSDT")
		require.NoError(t, err)
		assert.Equal(t, want, rolling.Seed(raw))
	})

	t.Run("malformed message is dropped", func(t *testing.T) {
		before := rolling.Buffer{{T: 1, O: 1, H: 1, L: 1, C: 1}}
		buf, ok := handle(ctx, "BINANCE:BNBUSDT", "3", before, []byte(`{"e":"kline"}`))
		assert.False(t, ok)
		assert.Equal(t, before, buf)

		_, err := store.Get(ctx, "BINANCE:BNBUSDT")
		assert.ErrorIs(t, err, storage.ErrNotFound)

		require.Len(t, events, 1)
		assert.Equal(t, diag.MalformedMessage, events[0].Kind)
		assert.Equal(t, "BINANCE:BNBUSDT", events[0].Symbol)
		assert.True(t, errors.Is(events[0].Err, ErrMalformedMessage))
	})

	t.Run("evicts past capacity", func(t *testing.T) {
		full := make(rolling.Buffer, 0, rolling.Capacity)
		for i := 0; i < rolling.Capacity; i++ {
			full = append(full, kline.Candle{T: int64(i), O: 1, H: 1, L: 1, C: 1})
		}
		buf, ok := handle(ctx, "BINANCE:DOTUSDT", "5", full, []byte(sampleMessage))
		require.True(t, ok)
		assert.Len(t, buf, rolling.Capacity)
		assert.Equal(t, int64(1), buf[0].T)
		assert.Equal(t, int64(1000), buf[len(buf)-1].T)
		assert.Equal(t, int64(0), full[0].T, "input buffer untouched")
	})
}

// A failed cache write is reported but the candle still lands in the buffer.
func TestMessageHandlerWriteFailure(t *testing.T) {
	store := memory.NewMemoryStore()
	store.FailPuts(errors.New("disk full"))
	var kinds []diag.Kind
	reporter := diag.NewReporter(nil, func(ev diag.Event) { kinds = append(kinds, ev.Kind) })
	handle := MakeMessageHandler(nil, cache.New(store, reporter, cache.Options{}), reporter)

	buf, ok := handle(context.Background(), "X", "1", nil, []byte(sampleMessage))
	require.True(t, ok)
	assert.Len(t, buf, 1)
	assert.Equal(t, []diag.Kind{diag.CacheWriteFailed}, kinds)
}
