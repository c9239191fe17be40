package money

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"23.45", 2345},
		{"1.00", 100},
		{"0.04", 4},
		{"23.4", 2340},
		{"23", 2300},
		{"0", 0},
		{"0.00", 0},
		{"49.90", 4990},
		// Beyond two fractional digits: truncated, never rounded.
		{"1.005", 100},
		{"1.009", 100},
		{"65000.12345678", 6500012},
	}
	for _, tc := range cases {
		got, err := Parse(tc.in)
		require.NoError(t, err, "Parse(%q)", tc.in)
		assert.Equal(t, tc.want, got, "Parse(%q)", tc.in)
	}
}

func TestParseInvalid(t *testing.T) {
	for _, in := range []string{
		"", ".", ".45", "23.", "1.2.3", "abc", "12a", "12.x",
		"-1.00", "+1.00", "1,000.00", " 1.00", "1e2",
	} {
		_, err := Parse(in)
		assert.ErrorIs(t, err, ErrInvalidFormat, "Parse(%q)", in)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "23.45", Format(2345))
	assert.Equal(t, "0.04", Format(4))
	assert.Equal(t, "1.00", Format(100))
	assert.Equal(t, "0.00", Format(0))
}

func TestRoundTrip(t *testing.T) {
	values := []int64{0, 1, 9, 10, 99, 100, 101, 2345, 4990, 1<<40 + 7}
	for v := int64(0); v < 10_000; v++ {
		values = append(values, v)
	}
	for _, v := range values {
		got, err := Parse(Format(v))
		require.NoError(t, err, "Format(%d) = %q", v, Format(v))
		assert.Equal(t, v, got)
	}
}
