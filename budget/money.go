package budget

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - Fixed-point amount in minor units (cents)
// =============================================================================

// Money is an amount of currency stored as an integer number of cents.
// Balances never go through float arithmetic, so repeated operations cannot drift.
type Money int64

const (
	// Scale is the number of decimal places a Money value carries.
	Scale = 2

	// MaxAmount bounds a single operation amount: 10,000,000,000,000.00.
	MaxAmount Money = 1_000_000_000_000_000

	// MaxBalance bounds any stored balance so sums stay far from int64 overflow.
	MaxBalance Money = 1_000_000_000_000_000_000
)

// Accepted decimal exponents. Anything outside is refused before rescaling,
// which would otherwise cost time and memory proportional to the exponent.
const (
	minExponent = -30
	maxExponent = 16
)

var (
	maxAmountDecimal = decimal.New(int64(MaxAmount), -Scale)

	errSumOverflow = errors.New("sum of amounts overflows")
)

// Cents builds a Money value from minor units.
func Cents(c int64) Money { return Money(c) }

// Units builds a Money value from whole currency units.
func Units(u int64) Money { return Money(u * 100) }

// ParseMoney parses a decimal string such as "12", "12.5" or "12.34".
// A comma is accepted as the decimal separator. More than two decimal places
// is rejected rather than rounded.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, fmt.Errorf("%w: empty amount", ErrInvalidAmount)
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrInvalidAmount, s)
	}
	return MoneyFromDecimal(d)
}

// MoneyFromDecimal converts a decimal, rejecting values with sub-cent precision
// or a magnitude above MaxAmount.
func MoneyFromDecimal(d decimal.Decimal) (Money, error) {
	if exp := d.Exponent(); exp < minExponent || exp > maxExponent {
		return 0, fmt.Errorf("%w: amount is out of range", ErrInvalidAmount)
	}
	if !d.Equal(d.Truncate(Scale)) {
		return 0, fmt.Errorf("%w: amount has more than %d decimal places", ErrInvalidAmount, Scale)
	}
	if d.Abs().GreaterThan(maxAmountDecimal) {
		return 0, fmt.Errorf("%w: amount exceeds the maximum of %s", ErrInvalidAmount, MaxAmount)
	}
	return Money(d.Shift(Scale).IntPart()), nil
}

// Decimal returns the amount as a decimal in currency units.
func (m Money) Decimal() decimal.Decimal { return decimal.New(int64(m), -Scale) }

// Float64 is for display payloads only.
func (m Money) Float64() float64 {
	f, _ := m.Decimal().Float64()
	return f
}

func (m Money) Cents() int64     { return int64(m) }
func (m Money) IsPositive() bool { return m > 0 }
func (m Money) IsNegative() bool { return m < 0 }
func (m Money) IsZero() bool     { return m == 0 }
func (m Money) String() string   { return m.Decimal().StringFixed(Scale) }

// addChecked adds o to m and fails if the result would pass MaxBalance.
func (m Money) addChecked(o Money) (Money, error) {
	if o > 0 && m > MaxBalance-o {
		return 0, fmt.Errorf("%w: balance would exceed the maximum of %s", ErrInvalidAmount, MaxBalance)
	}
	return m + o, nil
}

// Sum adds up a list of amounts. MaxBalance bounds each balance, not their
// total, so overflow is still possible and is reported.
func Sum(amounts ...Money) (Money, error) {
	var total Money
	for _, a := range amounts {
		if (a > 0 && total > math.MaxInt64-a) || (a < 0 && total < math.MinInt64-a) {
			return 0, errSumOverflow
		}
		total += a
	}
	return total, nil
}
