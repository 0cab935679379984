package money

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRound2HalfAwayFromZero(t *testing.T) {
	assert.Equal(t, "10.13", Round2(decimal.RequireFromString("10.125")).StringFixed(2))
	assert.Equal(t, "0.00", Round2(decimal.RequireFromString("0.004")).StringFixed(2))
}

func TestToMinorUnits(t *testing.T) {
	minor, err := ToMinorUnits(decimal.RequireFromString("12.345"))
	require.NoError(t, err)
	assert.Equal(t, int64(1235), minor)

	_, err = ToMinorUnits(decimal.RequireFromString("-1"))
	require.Error(t, err)
}

func TestFromMinorUnitsRoundTrip(t *testing.T) {
	d := FromMinorUnits(1999)
	assert.True(t, d.Equal(decimal.RequireFromString("19.99")))
}

func TestAccumulationAvoidsFloatDrift(t *testing.T) {
	total := decimal.Zero
	for i := 0; i < 1000; i++ {
		total = total.Add(decimal.RequireFromString("0.10"))
	}
	assert.True(t, total.Equal(decimal.NewFromInt(100)))
}

func TestPercentAndMin(t *testing.T) {
	got := Percent(decimal.NewFromInt(40), decimal.NewFromInt(15))
	assert.True(t, got.Equal(decimal.NewFromInt(6)))
	assert.True(t, Min(decimal.NewFromInt(3), decimal.NewFromInt(2)).Equal(decimal.NewFromInt(2)))
	assert.True(t, NonNegative(decimal.NewFromInt(-3)).IsZero())
}

func TestParseRejectsNegative(t *testing.T) {
	_, err := Parse("-0.01")
	require.Error(t, err)
	d, err := Parse("4.50")
	require.NoError(t, err)
	assert.Equal(t, "4.50", d.StringFixed(2))
}
