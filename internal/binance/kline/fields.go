package kline

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Fields is a JSON object split into its members. Lookups are exact:
// Binance sends "t" and "T", "l" and "L" side by side.
type Fields map[string]json.RawMessage

// ParseFields splits raw into its members. raw must be a JSON object.
func ParseFields(raw []byte) (Fields, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return nil, errors.New("not a JSON object")
	}

	var f Fields
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, err
	}
	return f, nil
}

// Candle builds a Candle from the exact keys t, o, h, l and c. Every key must
// be present; prices may be JSON strings or numbers.
func (f Fields) Candle() (Candle, error) {
	var c Candle

	t, ok := f.present("t")
	if !ok {
		return Candle{}, errors.New("missing field t")
	}
	if err := json.Unmarshal(t, &c.T); err != nil {
		return Candle{}, fmt.Errorf("field t: %w", err)
	}

	for _, p := range []struct {
		name string
		dst  *float64
	}{
		{"o", &c.O},
		{"h", &c.H},
		{"l", &c.L},
		{"c", &c.C},
	} {
		raw, ok := f.present(p.name)
		if !ok {
			return Candle{}, fmt.Errorf("missing field %s", p.name)
		}
		v, err := parsePrice(raw)
		if err != nil {
			return Candle{}, fmt.Errorf("field %s: %w", p.name, err)
		}
		*p.dst = v
	}

	if err := c.Validate(); err != nil {
		return Candle{}, err
	}
	return c, nil
}

// present returns the member stored under exactly key, treating null as absent.
func (f Fields) present(key string) (json.RawMessage, bool) {
	raw, ok := f[key]
	if !ok {
		return nil, false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, false
	}
	return raw, true
}

// parsePrice accepts either a JSON string ("10.5") or a JSON number (10.5).
func parsePrice(raw json.RawMessage) (float64, error) {
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		return strconv.ParseFloat(s, 64)
	}

	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return 0, err
	}
	return n.Float64()
}
