package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPercentOf(t *testing.T) {
	assert.Equal(t, "-20", PercentOf(Int(-2), Int(10)).String())
	assert.Equal(t, "33.33", PercentOf(Int(1), Int(3)).String())
	assert.True(t, PercentOf(Int(5), Zero()).IsZero())
}

func TestFactors(t *testing.T) {
	assert.Equal(t, "0.9", DiscountFactor(Int(10)).String())
	assert.Equal(t, "1.11", TaxFactor(Int(11)).String())
}

func TestInPercentRange(t *testing.T) {
	assert.True(t, InPercentRange(Zero()))
	assert.True(t, InPercentRange(Int(100)))
	assert.False(t, InPercentRange(Int(101)))
	assert.False(t, InPercentRange(Int(-1)))
}

func TestRoundMoney(t *testing.T) {
	assert.Equal(t, "10.13", RoundMoney(MustMoney("10.125")).String())
	assert.Equal(t, "6", Sum(Int(1), Int(2), Int(3)).String())
	assert.Equal(t, "4", Max(Int(4), Int(-4)).String())
}
