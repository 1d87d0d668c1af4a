package coupon

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Decimal is the monetary value type used throughout coupon evaluation.
type Decimal = decimal.Decimal

// Type discriminates the supported coupon variants.
type Type string

const (
	// TypeCartWise applies a percentage discount once the cart total meets a threshold.
	TypeCartWise Type = "CART_WISE"
	// TypeProductWise applies a percentage discount to one specific product's lines.
	TypeProductWise Type = "PRODUCT_WISE"
	// TypeBxGy unlocks free quantities of "get" products when "buy" quantities are met.
	TypeBxGy Type = "BXGY"
)

var (
	// ErrNotFound is returned when no coupon variant matches the requested identifier.
	ErrNotFound = errors.New("coupon not found")
	// ErrNotApplicable is returned when a coupon exists but cannot discount the cart.
	ErrNotApplicable = errors.New("coupon not applicable")
	// ErrMissingProductID indicates a product-wise evaluation without a product identifier.
	ErrMissingProductID = errors.New("product id is required")
)

// Coupon is the tagged union over the three variants. Variant fields are only
// meaningful for the matching Type; storage keeps them separate per table but all
// identifiers come from one shared sequence.
type Coupon struct {
	ID             int64
	Code           string
	Type           Type
	ExpirationDate time.Time
	IsActive       bool
	Description    string

	CartWise    *CartWiseRule
	ProductWise *ProductWiseRule
	BxGy        *BxGyRule
}

// CartWiseRule holds the cart-wise variant parameters.
type CartWiseRule struct {
	Threshold          Decimal
	DiscountPercentage Decimal
}

// ProductWiseRule holds the product-wise variant parameters.
type ProductWiseRule struct {
	ProductID          int64
	DiscountPercentage Decimal
}

// BxGyRule holds the buy-X-get-Y variant parameters. Maps are productId -> quantity.
type BxGyRule struct {
	BuyProducts     map[int64]int64
	GetProducts     map[int64]int64
	RepetitionLimit int64
}

// Expired reports whether the coupon's expiration date is strictly before the
// provided day. Expiration is date-granular.
func (c Coupon) Expired(now time.Time) bool {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return c.ExpirationDate.Before(today)
}
