package budget

import (
	"math"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		in   string
		want Money
	}{
		{"12", Cents(1200)},
		{"12.5", Cents(1250)},
		{"12.34", Cents(1234)},
		{"0.01", Cents(1)},
		{" 7,25 ", Cents(725)},
		{"-3.10", Cents(-310)},
		{"1e2", Cents(10000)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMoney(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMoney_Rejects(t *testing.T) {
	for _, in := range []string{"", "abc", "1.234", "0.001", "10000000000000.01"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseMoney(in)
			assert.ErrorIs(t, err, ErrInvalidAmount)
		})
	}
}

func TestMoneyFromDecimal(t *testing.T) {
	// Summed at runtime: 0.30000000000000004 has sub-cent precision
	a, b := 0.1, 0.2
	m, err := MoneyFromDecimal(decimal.NewFromFloat(a + b))
	assert.ErrorIs(t, err, ErrInvalidAmount)
	assert.Zero(t, m)

	m, err = MoneyFromDecimal(decimal.NewFromFloat(19.99))
	require.NoError(t, err)
	assert.Equal(t, Cents(1999), m)

	m, err = MoneyFromDecimal(decimal.New(5, 1))
	require.NoError(t, err)
	assert.Equal(t, Units(50), m)
}

func TestMoneyFromDecimal_HugeExponentsRejectedCheaply(t *testing.T) {
	for _, in := range []string{"1e1000000", "1e-1000000", "-7e3000000", "1e17"} {
		t.Run(in, func(t *testing.T) {
			d, err := decimal.NewFromString(in)
			require.NoError(t, err)

			start := time.Now()
			_, err = MoneyFromDecimal(d)

			assert.ErrorIs(t, err, ErrInvalidAmount)
			assert.Less(t, len(err.Error()), 100, "error must not echo the value")
			assert.Less(t, time.Since(start), 50*time.Millisecond)
		})
	}

	// The same inputs through the string parser
	_, err := ParseMoney("1e1000000")
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestMoney_StringAndDecimal(t *testing.T) {
	assert.Equal(t, "0.00", Money(0).String())
	assert.Equal(t, "0.05", Cents(5).String())
	assert.Equal(t, "1234.50", Cents(123450).String())
	assert.Equal(t, "-2.00", Units(-2).String())
	assert.True(t, Cents(150).Decimal().Equal(decimal.RequireFromString("1.5")))
	assert.Equal(t, 1.5, Cents(150).Float64())
}

func TestMoney_RepeatedArithmeticDoesNotDrift(t *testing.T) {
	// GIVEN: A dime added a thousand times
	dimes := make([]Money, 1000)
	for i := range dimes {
		dimes[i] = Cents(10)
	}
	total, err := Sum(dimes...)
	require.NoError(t, err)

	// THEN: Exactly 100.00, which float64 summation would miss
	assert.Equal(t, Units(100), total)
}

func TestSum_ReportsOverflow(t *testing.T) {
	total, err := Sum(Units(40), Units(35), Units(25), Cents(-1))
	require.NoError(t, err)
	assert.Equal(t, Cents(9999), total)

	balances := make([]Money, 10)
	for i := range balances {
		balances[i] = MaxBalance
	}
	_, err = Sum(balances...)
	assert.ErrorIs(t, err, errSumOverflow)

	_, err = Sum(math.MinInt64, -1)
	assert.ErrorIs(t, err, errSumOverflow)
}

func TestMoney_AddCheckedBoundsBalances(t *testing.T) {
	got, err := Units(5).addChecked(Units(5))
	require.NoError(t, err)
	assert.Equal(t, Units(10), got)

	_, err = MaxBalance.addChecked(Cents(1))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}
