package coupon

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Discount returns cartTotal x pct/100 when the total meets the threshold.
// Equality at the threshold counts as met.
func (r CartWiseRule) Discount(cartTotal Decimal) Decimal {
	if cartTotal.GreaterThanOrEqual(r.Threshold) {
		return cartTotal.Mul(r.DiscountPercentage).Div(hundred)
	}
	return decimal.Zero
}

// Discount returns quantity x price x pct/100 for the coupon's product, zero for
// any other product. A non-positive product id is a contract violation, not a
// zero-discount case.
func (r ProductWiseRule) Discount(productID, quantity int64, price Decimal) (Decimal, error) {
	if productID <= 0 {
		return decimal.Zero, ErrMissingProductID
	}
	if productID != r.ProductID {
		return decimal.Zero, nil
	}
	line := price.Mul(decimal.NewFromInt(quantity))
	return line.Mul(r.DiscountPercentage).Div(hundred), nil
}

// Applicable reports whether the cart holds at least the required quantity of
// every buy product. A missing product counts as quantity zero. An empty buy map
// is vacuously applicable.
func (r BxGyRule) Applicable(quantities map[int64]int64) bool {
	if quantities == nil || r.BuyProducts == nil || r.GetProducts == nil {
		return false
	}
	for productID, required := range r.BuyProducts {
		if quantities[productID] < required {
			return false
		}
	}
	return true
}

// ApplicableTimes returns how many times the offer repeats: the minimum of
// floor(available/required) across buy products, capped by the repetition limit.
func (r BxGyRule) ApplicableTimes(quantities map[int64]int64) int64 {
	if !r.Applicable(quantities) {
		return 0
	}
	times := int64(1<<63 - 1)
	for productID, required := range r.BuyProducts {
		if ratio := quantities[productID] / required; ratio < times {
			times = ratio
		}
	}
	if r.RepetitionLimit < times {
		times = r.RepetitionLimit
	}
	return times
}

// Discount estimates the bundle discount. The price of "get" items is unknown to
// the evaluator, so the cheapest strictly-positive buy-item price stands in:
// cheapest x total free quantity x applicable times. Unpriced or zero-priced buy
// items cannot seed the estimate.
func (r BxGyRule) Discount(quantities map[int64]int64, prices map[int64]Decimal) Decimal {
	if !r.Applicable(quantities) {
		return decimal.Zero
	}
	times := r.ApplicableTimes(quantities)

	var cheapest Decimal
	found := false
	for productID := range r.BuyProducts {
		price, ok := prices[productID]
		if !ok || !price.IsPositive() {
			continue
		}
		if !found || price.LessThan(cheapest) {
			cheapest = price
			found = true
		}
	}
	if !found {
		return decimal.Zero
	}

	var freeQty int64
	for _, qty := range r.GetProducts {
		freeQty += qty
	}
	return cheapest.Mul(decimal.NewFromInt(freeQty)).Mul(decimal.NewFromInt(times))
}
