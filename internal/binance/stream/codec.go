package stream

import (
	"errors"
	"fmt"

	"klinecache/internal/binance/kline"
)

// ErrMalformedMessage is returned for any stream message that does not carry
// a complete, numeric kline record.
var ErrMalformedMessage = errors.New("malformed kline message")

// keyKline names the nested kline record of a stream event. Matching is
// case-sensitive: "K" is not accepted.
const keyKline = "k"

// Decode parses one raw stream message into a Candle. Either every field is
// present and numeric, or an error wrapping ErrMalformedMessage is returned.
func Decode(raw []byte) (kline.Candle, error) {
	// Step 1: Extract the envelope and the nested kline object
	envelope, err := kline.ParseFields(raw)
	if err != nil {
		return kline.Candle{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	k, ok := envelope[keyKline]
	if !ok {
		return kline.Candle{}, fmt.Errorf("%w: missing kline object", ErrMalformedMessage)
	}
	fields, err := kline.ParseFields(k)
	if err != nil {
		return kline.Candle{}, fmt.Errorf("%w: kline: %v", ErrMalformedMessage, err)
	}

	// Step 2: Pick t, o, h, l, c by exact key and coerce prices
	c, err := fields.Candle()
	if err != nil {
		return kline.Candle{}, fmt.Errorf("%w: %v", ErrMalformedMessage, err)
	}
	return c, nil
}
