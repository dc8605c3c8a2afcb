package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRoundsToScale(t *testing.T) {
	a, err := New(decimal.RequireFromString("12.3456"))
	require.NoError(t, err)
	assert.Equal(t, "12.35", a.String())
}

func TestNewRejectsTooManyDigits(t *testing.T) {
	_, err := New(decimal.RequireFromString("1234567890123456.00"))
	assert.Error(t, err)
}

func TestDivRoundRemainderGoesToCaller(t *testing.T) {
	total := MustNew(decimal.RequireFromString("10.00"))
	part := total.DivRound(3)
	assert.Equal(t, "3.33", part.String())
	sum := part.Mul(3)
	assert.NotEqual(t, total.String(), sum.String())
	remainder := total.Sub(sum)
	assert.Equal(t, "0.01", remainder.String())
}

func TestJSONRoundTrip(t *testing.T) {
	a := MustNew(decimal.RequireFromString("99.90"))
	b, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `"99.90"`, string(b))

	var out Amount
	require.NoError(t, json.Unmarshal(b, &out))
	assert.True(t, a.Equal(out))
}

func TestFromCents(t *testing.T) {
	assert.Equal(t, "1.23", FromCents(123).String())
	assert.Equal(t, "-1.23", FromCents(-123).String())
}
