// Package money provides fixed point decimal support for ledger amounts.
// Every amount in the system carries exactly eight fractional digits and
// hashing depends on that canonical form, so all formatting and parsing
// funnels through here.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// Places is the fixed number of fractional digits carried by every amount.
const Places = 8

// Zero is the zero amount.
var Zero = decimal.Zero

// Parse converts a decimal string into an amount. Strings with more than
// eight fractional digits are rejected rather than silently rounded since
// the extra digits would change the transaction hash.
func Parse(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parsing amount %q: %w", value, err)
	}

	if d.Exponent() < -Places {
		return decimal.Decimal{}, fmt.Errorf("amount %q exceeds %d fractional digits", value, Places)
	}

	return d, nil
}

// MustParse converts a decimal string into an amount and panics when the
// string is malformed. For use with hard coded values only.
func MustParse(value string) decimal.Decimal {
	d, err := Parse(value)
	if err != nil {
		panic(err)
	}
	return d
}

// Format renders an amount in the canonical form used for hashing, storage
// and the wire: exactly eight fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Places)
}

// Round truncates an amount to the eight fractional digits the ledger can
// represent, rounding toward zero so derived amounts never exceed their
// source.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.RoundDown(Places)
}
