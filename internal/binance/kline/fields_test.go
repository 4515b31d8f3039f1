package kline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// go test -v --run TestFieldsCandle
func TestFieldsCandle(t *testing.T) {
	f, err := ParseFields([]byte(`{"T":60999,"t":1000,"L":7,"o":"10.5","h":11,"l":"9.5","c":"10.8"}`))
	require.NoError(t, err)

	c, err := f.Candle()
	require.NoError(t, err)
	assert.Equal(t, Candle{T: 1000, O: 10.5, H: 11, L: 9.5, C: 10.8}, c)
}

func TestFieldsCandleMissingExactKey(t *testing.T) {
	testCases := []struct {
		name string
		raw  string
		want string
	}{
		{name: "close time only", raw: `{"T":1,"o":1,"h":1,"l":1,"c":1}`, want: "missing field t"},
		{name: "trade id for low", raw: `{"t":1,"o":1,"h":1,"L":1,"c":1}`, want: "missing field l"},
		{name: "null open", raw: `{"t":1,"o":null,"h":1,"l":1,"c":1}`, want: "missing field o"},
		{name: "empty", raw: `{}`, want: "missing field t"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f, err := ParseFields([]byte(tc.raw))
			require.NoError(t, err)
			_, err = f.Candle()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}

func TestParseFieldsNotObject(t *testing.T) {
	for _, raw := range []string{``, `null`, `[]`, `"k"`, `{bad`} {
		_, err := ParseFields([]byte(raw))
		assert.Error(t, err, raw)
	}
}
