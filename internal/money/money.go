// Package money converts between decimal fiat amount strings and integer
// minor units (cents). All arithmetic elsewhere in the gateway runs on the
// integer form; strings exist only at the API boundary.
package money

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrInvalidFormat is returned for amounts that are not plain non-negative
// decimals: signs, exponents, grouping separators and multiple decimal
// points are all rejected.
var ErrInvalidFormat = errors.New("invalid money format")

// Parse converts a decimal string to minor units: "23.45" -> 2345,
// "23.4" -> 2340, "23" -> 2300. Fractional digits beyond the second are
// truncated, not rounded, so "1.005" -> 100.
func Parse(s string) (int64, error) {
	intPart, fracPart, hasFrac := strings.Cut(s, ".")
	if !isDigits(intPart) {
		return 0, ErrInvalidFormat
	}
	units, err := strconv.ParseInt(intPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidFormat, intPart)
	}

	var cents int64
	if hasFrac {
		if !isDigits(fracPart) {
			return 0, ErrInvalidFormat
		}
		if len(fracPart) > 2 {
			fracPart = fracPart[:2]
		}
		cents, err = strconv.ParseInt(fracPart, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidFormat, fracPart)
		}
		if len(fracPart) == 1 {
			cents *= 10
		}
	}

	if units > (1<<63-1-cents)/100 {
		return 0, fmt.Errorf("%w: amount out of range", ErrInvalidFormat)
	}
	return units*100 + cents, nil
}

// Format renders minor units as a decimal string with exactly two
// fractional digits and no grouping: 2345 -> "23.45", 4 -> "0.04".
func Format(minorUnits int64) string {
	return fmt.Sprintf("%d.%02d", minorUnits/100, minorUnits%100)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
