package rolling

import (
	"encoding/json"
	"fmt"

	"klinecache/internal/binance/kline"
)

// Capacity is the maximum number of candles retained per symbol.
const Capacity = 50

// Buffer is an ordered candle history, oldest first.
type Buffer []kline.Candle

// Append returns a new buffer holding buf followed by c, keeping only the
// last Capacity elements. The input buffer is never modified.
func Append(buf Buffer, c kline.Candle) Buffer {
	start := 0
	if len(buf)+1 > Capacity {
		start = len(buf) + 1 - Capacity
	}

	out := make(Buffer, 0, len(buf)-start+1)
	out = append(out, buf[start:]...)
	return append(out, c)
}

// Seed restores a buffer from a persisted snapshot.
// A missing or corrupt snapshot yields an empty buffer.
func Seed(raw []byte) Buffer {
	buf, err := Unmarshal(raw)
	if err != nil {
		return Buffer{}
	}
	return buf
}

// Unmarshal is Seed with the decode error surfaced, so callers can report
// corrupt snapshots. An empty input is not an error.
func Unmarshal(raw []byte) (Buffer, error) {
	if len(raw) == 0 {
		return Buffer{}, nil
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return Buffer{}, err
	}

	// Every element needs all of t, o, h, l and c under their exact keys.
	buf := make(Buffer, 0, len(elems))
	for i, elem := range elems {
		fields, err := kline.ParseFields(elem)
		if err != nil {
			return Buffer{}, fmt.Errorf("candle %d: %w", i, err)
		}
		c, err := fields.Candle()
		if err != nil {
			return Buffer{}, fmt.Errorf("candle %d: %w", i, err)
		}
		buf = append(buf, c)
	}

	if len(buf) > Capacity {
		buf = buf[len(buf)-Capacity:]
	}
	return buf, nil
}

// Marshal serializes the buffer as a JSON array, most recent candle last.
func Marshal(buf Buffer) ([]byte, error) {
	if buf == nil {
		buf = Buffer{}
	}
	return json.Marshal(buf)
}

// Last returns the most recent candle, if any.
func (b Buffer) Last() (kline.Candle, bool) {
	if len(b) == 0 {
		return kline.Candle{}, false
	}
	return b[len(b)-1], true
}

// Clone returns a copy that shares no memory with b.
func (b Buffer) Clone() Buffer {
	out := make(Buffer, len(b))
	copy(out, b)
	return out
}
