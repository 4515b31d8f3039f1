package kline

import (
	"fmt"
	"math"
)

// Candle is a single OHLC bar received from the Binance kline stream.
// The JSON field names match the persisted snapshot format.
type Candle struct {
	T int64   `json:"t"` // Start time of the bucket (in milliseconds since epoch)
	O float64 `json:"o"` // Opening price
	H float64 `json:"h"` // Highest price during the bucket
	L float64 `json:"l"` // Lowest price during the bucket
	C float64 `json:"c"` // Closing (latest) price
}

// Validate reports an error if any price field is NaN or infinite.
func (c Candle) Validate() error {
	for _, f := range []struct {
		name string
		v    float64
	}{
		{"o", c.O}, {"h", c.H}, {"l", c.L}, {"c", c.C},
	} {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("candle field %s is not finite: %v", f.name, f.v)
		}
	}
	return nil
}
