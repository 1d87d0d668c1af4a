package cart

import "github.com/shopspring/decimal"

// Item represents one cart line submitted for coupon evaluation.
type Item struct {
	ProductID int64           `json:"productId"`
	Quantity  int64           `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

// Cart is an ordered list of line items. It carries no identity beyond its contents.
type Cart struct {
	Items []Item `json:"items"`
}

// Subtotal returns the line total (quantity x unit price).
func (it Item) Subtotal() decimal.Decimal {
	return it.Price.Mul(decimal.NewFromInt(it.Quantity))
}

// TotalValue sums quantity x unit price across all lines.
func (c Cart) TotalValue() decimal.Decimal {
	total := decimal.Zero
	for _, it := range c.Items {
		total = total.Add(it.Subtotal())
	}
	return total
}

// Quantities aggregates per-product quantities. The same product split across
// multiple lines sums.
func (c Cart) Quantities() map[int64]int64 {
	out := make(map[int64]int64, len(c.Items))
	for _, it := range c.Items {
		out[it.ProductID] += it.Quantity
	}
	return out
}

// Prices maps each product to its unit price. When a product appears on more
// than one line the price of the first occurrence wins.
func (c Cart) Prices() map[int64]decimal.Decimal {
	out := make(map[int64]decimal.Decimal, len(c.Items))
	for _, it := range c.Items {
		if _, seen := out[it.ProductID]; !seen {
			out[it.ProductID] = it.Price
		}
	}
	return out
}
