// Package quote converts fiat amounts into base-asset amounts at the
// current oracle price, with a protective spread applied on top.
package quote

import (
	"errors"
	"math/big"
)

// SatoshisPerBTC is the subdivision constant of the base asset.
const SatoshisPerBTC = 100_000_000

// SpreadPerMille is the spread applied to every enforced quote, in parts
// per thousand. 50 per mille = 5%.
const SpreadPerMille = 50

// ErrPriceUnavailable is returned when no usable unit price exists.
var ErrPriceUnavailable = errors.New("price unavailable")

// SatoshisForFiat computes how many base-asset units match the given fiat
// amount: floor(fiatMinorUnits * SatoshisPerBTC / unitPrice), where
// unitPrice is fiat minor units per whole base asset. The division
// truncates toward zero, under-quoting slightly; the spread compensates.
func SatoshisForFiat(fiatMinorUnits, unitPrice int64) (int64, error) {
	if unitPrice <= 0 {
		return 0, ErrPriceUnavailable
	}
	// The intermediate product overflows int64 for large invoices, so the
	// multiplication runs over big.Int.
	sats := new(big.Int).Mul(big.NewInt(fiatMinorUnits), big.NewInt(SatoshisPerBTC))
	sats.Quo(sats, big.NewInt(unitPrice))
	if !sats.IsInt64() {
		return 0, ErrPriceUnavailable
	}
	return sats.Int64(), nil
}

// WithSpread adds spreadPerMille parts per thousand on top of the base
// quote, truncating the fraction. The result never drops below base for a
// non-negative spread.
func WithSpread(base, spreadPerMille int64) int64 {
	return base + base*spreadPerMille/1000
}
