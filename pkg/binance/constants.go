package binance

import (
	"fmt"
	"strings"
)

// SymbolPrefix qualifies exchange pairs in the form used as cache keys.
const SymbolPrefix = "BINANCE:"

// KlineInterval is an interval value as offered to the user.
type KlineInterval string

// KlineIntervalMeta holds the display label for an interval.
type KlineIntervalMeta struct {
	Value string
	Label string
}

const (
	Interval1Min KlineInterval = "1"
	Interval3Min KlineInterval = "3"
	Interval5Min KlineInterval = "5"
)

// Intervals lists the selectable intervals in display order.
var Intervals = []KlineIntervalMeta{
	{Value: string(Interval1Min), Label: "1 Minute"},
	{Value: string(Interval3Min), Label: "3 Minutes"},
	{Value: string(Interval5Min), Label: "5 Minutes"},
}

// Pairs lists the selectable trading pairs in display order.
var Pairs = []string{"ETHUSDT", "BNBUSDT", "DOTUSDT"}

// QualifySymbol turns a bare pair such as "ETHUSDT" into "BINANCE:ETHUSDT".
// Already-qualified symbols are returned unchanged.
func QualifySymbol(pair string) string {
	if strings.HasPrefix(pair, SymbolPrefix) {
		return pair
	}
	return SymbolPrefix + pair
}

// IntervalLabel returns the display label for an interval value, or the value itself.
func IntervalLabel(v string) string {
	for _, m := range Intervals {
		if m.Value == v {
			return m.Label
		}
	}
	return v
}

// ParseKlineInterval checks s against the selectable intervals.
func ParseKlineInterval(s string) (KlineIntervalMeta, error) {
	for _, m := range Intervals {
		if m.Value == s {
			return m, nil
		}
	}
	return KlineIntervalMeta{}, fmt.Errorf("invalid KlineInterval: %s", s)
}
