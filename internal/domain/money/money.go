// Package money holds the decimal amount helpers shared by checkout and
// payment flows. Monetary values are carried as shopspring decimals end to
// end; floating point is never used for comparison.
package money

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// DefaultTolerance is the accepted difference between two independently
// sourced amounts, in minor units of the currency. One minor unit covers
// rounding drift between systems that round at different points.
const DefaultTolerance = 1

// zeroMinorUnit lists ISO 4217 currencies without a minor unit.
var zeroMinorUnit = map[string]struct{}{
	"BIF": {}, "CLP": {}, "DJF": {}, "GNF": {}, "ISK": {}, "JPY": {},
	"KMF": {}, "KRW": {}, "PYG": {}, "RWF": {}, "UGX": {}, "VND": {},
	"VUV": {}, "XAF": {}, "XOF": {}, "XPF": {},
}

// MinorUnits returns the number of decimal places for the currency's minor
// unit: 0 for currencies like JPY, 2 otherwise.
func MinorUnits(currency string) int32 {
	if _, ok := zeroMinorUnit[currency]; ok {
		return 0
	}
	return 2
}

// MismatchError reports that two amounts did not reconcile within tolerance.
type MismatchError struct {
	Expected decimal.Decimal
	Received decimal.Decimal
	Currency string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("amount mismatch: expected %s %s, received %s",
		e.Expected.StringFixed(MinorUnits(e.Currency)), e.Currency,
		e.Received.StringFixed(MinorUnits(e.Currency)))
}

// Parse converts a decimal string into an amount. Empty strings are rejected
// so an absent field never silently becomes zero.
func Parse(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Decimal{}, errors.New("empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, errors.Wrap(err, "parse amount")
	}
	return d, nil
}

// Reconcile compares two amounts after normalizing both to the currency's
// minor unit. The difference must be at most tolerance minor units;
// otherwise a *MismatchError is returned. The function is pure.
func Reconcile(expected, received decimal.Decimal, currency string, tolerance int64) error {
	places := MinorUnits(currency)
	shift := decimal.New(1, places)

	expMinor := expected.Round(places).Mul(shift)
	recMinor := received.Round(places).Mul(shift)

	diff := expMinor.Sub(recMinor).Abs()
	if diff.GreaterThan(decimal.NewFromInt(tolerance)) {
		return &MismatchError{Expected: expected, Received: received, Currency: currency}
	}
	return nil
}
