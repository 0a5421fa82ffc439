package orderbook

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComparablePriceBidOrdering(t *testing.T) {
	hi := NewComparablePrice(true, 1250)
	lo := NewComparablePrice(true, 1200)
	mkt := NewComparablePrice(true, MarketOrderPrice)

	assert.True(t, hi.Before(lo))
	assert.False(t, lo.Before(hi))
	assert.True(t, mkt.Before(hi))
	assert.False(t, hi.Before(mkt))
	assert.False(t, mkt.Before(mkt))
	assert.Equal(t, 0, hi.Compare(NewComparablePrice(true, 1250)))
}

func TestComparablePriceAskOrdering(t *testing.T) {
	hi := NewComparablePrice(false, 1250)
	lo := NewComparablePrice(false, 1200)
	mkt := NewComparablePrice(false, MarketOrderPrice)

	assert.True(t, lo.Before(hi))
	assert.False(t, hi.Before(lo))
	assert.True(t, mkt.Before(lo))
	assert.Equal(t, -1, lo.Compare(hi))
	assert.Equal(t, 1, hi.Compare(lo))
}

func TestComparablePriceMatches(t *testing.T) {
	bid := NewComparablePrice(true, 1250)
	assert.True(t, bid.Matches(1250))
	assert.True(t, bid.Matches(1200))
	assert.False(t, bid.Matches(1251))
	assert.True(t, bid.Matches(MarketOrderPrice))

	ask := NewComparablePrice(false, 1250)
	assert.True(t, ask.Matches(1250))
	assert.True(t, ask.Matches(1300))
	assert.False(t, ask.Matches(1249))
	assert.True(t, ask.Matches(MarketOrderPrice))

	assert.True(t, NewComparablePrice(true, MarketOrderPrice).Matches(1))
	assert.True(t, NewComparablePrice(false, MarketOrderPrice).Matches(MarketOrderPrice))
}

func TestParseConditions(t *testing.T) {
	for _, c := range []OrderConditions{NoConditions, AllOrNone, ImmediateOrCancel, FillOrKill} {
		assert.Equal(t, c, ParseConditions(c.String()))
	}
	assert.Equal(t, NoConditions, ParseConditions("gtc"))
	assert.Equal(t, FillOrKill, ParseConditions("aon | ioc"))

	assert.True(t, FillOrKill.AllOrNone())
	assert.True(t, FillOrKill.ImmediateOrCancel())
	assert.False(t, AllOrNone.ImmediateOrCancel())
}
