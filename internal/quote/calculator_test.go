package quote

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSatoshisForFiat(t *testing.T) {
	// $49.90 at $60,000.00 per BTC.
	sats, err := SatoshisForFiat(4990, 6_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(83166), sats)

	// $100.00 at $60,000.00 divides evenly.
	sats, err = SatoshisForFiat(10_000, 6_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(166_666), sats)

	// Division truncates toward zero.
	sats, err = SatoshisForFiat(1, 3_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(33), sats)
}

func TestSatoshisForFiatZeroPrice(t *testing.T) {
	_, err := SatoshisForFiat(4990, 0)
	assert.ErrorIs(t, err, ErrPriceUnavailable)

	_, err = SatoshisForFiat(4990, -1)
	assert.ErrorIs(t, err, ErrPriceUnavailable)
}

func TestSatoshisForFiatLargeAmount(t *testing.T) {
	// A $10B invoice overflows the int64 intermediate product but not the
	// result.
	sats, err := SatoshisForFiat(1_000_000_000_000, 6_000_000)
	require.NoError(t, err)
	assert.Equal(t, int64(16_666_666_666_666), sats)
}

func TestWithSpread(t *testing.T) {
	assert.Equal(t, int64(87324), WithSpread(83166, 50))
	assert.Equal(t, int64(100), WithSpread(100, 0))
	// Truncating division: 99 * 50 / 1000 = 4.95 -> 4.
	assert.Equal(t, int64(103), WithSpread(99, 50))
}

func TestWithSpreadMonotonic(t *testing.T) {
	for _, base := range []int64{0, 1, 99, 100, 83166, 1 << 40} {
		for _, spread := range []int64{0, 1, 10, 50, 999} {
			got := WithSpread(base, spread)
			assert.GreaterOrEqual(t, got, base, "base=%d spread=%d", base, spread)
			if spread == 0 {
				assert.Equal(t, base, got)
			}
		}
	}
}
