package coupon

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func d(v float64) decimal.Decimal { return decimal.NewFromFloat(v) }

func date(y int, m time.Month, day int) time.Time {
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func TestCartWiseDiscount(t *testing.T) {
	rule := CartWiseRule{Threshold: d(100), DiscountPercentage: d(10)}

	require.True(t, rule.Discount(d(150)).Equal(d(15)), "got %s", rule.Discount(d(150)))
	require.True(t, rule.Discount(d(99.99)).IsZero())
	// equality at the threshold counts as met
	require.True(t, rule.Discount(d(100)).Equal(d(10)))
}

func TestProductWiseDiscount(t *testing.T) {
	rule := ProductWiseRule{ProductID: 1001, DiscountPercentage: d(15)}

	amount, err := rule.Discount(1001, 2, d(50))
	require.NoError(t, err)
	require.True(t, amount.Equal(d(15)), "got %s", amount)

	amount, err = rule.Discount(2002, 2, d(50))
	require.NoError(t, err)
	require.True(t, amount.IsZero())

	_, err = rule.Discount(0, 2, d(50))
	require.ErrorIs(t, err, ErrMissingProductID)
}

func TestBxGyApplicable(t *testing.T) {
	rule := BxGyRule{
		BuyProducts:     map[int64]int64{201: 2, 202: 1},
		GetProducts:     map[int64]int64{301: 1},
		RepetitionLimit: 2,
	}

	require.True(t, rule.Applicable(map[int64]int64{201: 2, 202: 1}))
	require.False(t, rule.Applicable(map[int64]int64{201: 1, 202: 1}))
	// missing product counts as quantity zero
	require.False(t, rule.Applicable(map[int64]int64{201: 4}))
	require.False(t, rule.Applicable(nil))

	empty := BxGyRule{BuyProducts: map[int64]int64{}, GetProducts: map[int64]int64{301: 1}, RepetitionLimit: 1}
	require.True(t, empty.Applicable(map[int64]int64{}))
}

func TestBxGyApplicableTimes(t *testing.T) {
	rule := BxGyRule{
		BuyProducts:     map[int64]int64{201: 2, 202: 1},
		GetProducts:     map[int64]int64{301: 1},
		RepetitionLimit: 2,
	}

	require.Equal(t, int64(2), rule.ApplicableTimes(map[int64]int64{201: 4, 202: 2, 301: 1}))
	// minimum ratio across buy products wins
	require.Equal(t, int64(1), rule.ApplicableTimes(map[int64]int64{201: 9, 202: 1}))
	// repetition limit caps stock
	require.Equal(t, int64(2), rule.ApplicableTimes(map[int64]int64{201: 100, 202: 100}))
	require.Equal(t, int64(0), rule.ApplicableTimes(map[int64]int64{201: 1, 202: 1}))

	zeroLimit := rule
	zeroLimit.RepetitionLimit = 0
	require.Equal(t, int64(0), zeroLimit.ApplicableTimes(map[int64]int64{201: 100, 202: 100}))
}

func TestBxGyApplicableTimesMonotonic(t *testing.T) {
	rule := BxGyRule{
		BuyProducts:     map[int64]int64{201: 3},
		GetProducts:     map[int64]int64{301: 1},
		RepetitionLimit: 10,
	}
	prev := int64(0)
	for stock := int64(0); stock <= 40; stock++ {
		times := rule.ApplicableTimes(map[int64]int64{201: stock})
		require.GreaterOrEqual(t, times, prev, "stock %d", stock)
		prev = times
	}
}

func TestBxGyDiscount(t *testing.T) {
	rule := BxGyRule{
		BuyProducts:     map[int64]int64{201: 2, 202: 1},
		GetProducts:     map[int64]int64{301: 1},
		RepetitionLimit: 2,
	}
	quantities := map[int64]int64{201: 4, 202: 2, 301: 1}
	prices := map[int64]decimal.Decimal{201: d(25), 202: d(50), 301: d(30)}

	// cheapest buy price (25) x total free qty (1) x times (2)
	require.True(t, rule.Discount(quantities, prices).Equal(d(50)),
		"got %s", rule.Discount(quantities, prices))
}

func TestBxGyDiscountNoPositiveBuyPrice(t *testing.T) {
	rule := BxGyRule{
		BuyProducts:     map[int64]int64{201: 1},
		GetProducts:     map[int64]int64{301: 2},
		RepetitionLimit: 3,
	}
	quantities := map[int64]int64{201: 5, 301: 1}

	require.True(t, rule.Discount(quantities, nil).IsZero())
	require.True(t, rule.Discount(quantities, map[int64]decimal.Decimal{201: decimal.Zero}).IsZero())
	// only the get item is priced; buy items still have no price to seed the estimate
	require.True(t, rule.Discount(quantities, map[int64]decimal.Decimal{301: d(10)}).IsZero())
}

func TestBxGyDiscountEmptyGetProducts(t *testing.T) {
	rule := BxGyRule{
		BuyProducts:     map[int64]int64{201: 1},
		GetProducts:     map[int64]int64{},
		RepetitionLimit: 1,
	}
	quantities := map[int64]int64{201: 1}
	prices := map[int64]decimal.Decimal{201: d(10)}

	require.True(t, rule.Applicable(quantities))
	require.True(t, rule.Discount(quantities, prices).IsZero())
}

func TestExpired(t *testing.T) {
	c := Coupon{ExpirationDate: date(2026, 6, 1)}
	require.False(t, c.Expired(date(2026, 5, 31)))
	// expiry on the same day still counts as valid
	require.False(t, c.Expired(date(2026, 6, 1)))
	require.True(t, c.Expired(date(2026, 6, 2)))
}
