package coupon

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-coupons/internal/cart"
)

// Store captures the per-variant persistence operations required by the service.
// Identifiers are assigned by the store from a single sequence shared across the
// three variants, so an id matches at most one of them.
type Store interface {
	Save(ctx context.Context, c Coupon) (Coupon, error)
	FindByID(ctx context.Context, t Type, id int64) (Coupon, error)
	FindAll(ctx context.Context, t Type) ([]Coupon, error)
	FindActive(ctx context.Context, t Type, asOf time.Time) ([]Coupon, error)
}

// variantOrder fixes the scan order for listing and discovery: cart-wise first,
// then product-wise, then BxGy.
var variantOrder = []Type{TypeCartWise, TypeProductWise, TypeBxGy}

// Applicable describes one coupon that can discount the submitted cart.
type Applicable struct {
	CouponID       int64   `json:"couponId"`
	Code           string  `json:"code"`
	Type           Type    `json:"type"`
	Description    string  `json:"description,omitempty"`
	DiscountAmount float64 `json:"discountAmount"`
}

// Summary is the type-discriminated coupon view returned by list and get.
// Fields irrelevant to the variant are omitted.
type Summary struct {
	ID                 int64           `json:"id"`
	Code               string          `json:"code"`
	Type               Type            `json:"type"`
	ExpirationDate     Date            `json:"expirationDate"`
	IsActive           bool            `json:"isActive"`
	Description        string          `json:"description,omitempty"`
	Threshold          *float64        `json:"threshold,omitempty"`
	DiscountPercentage *float64        `json:"discountPercentage,omitempty"`
	ProductID          *int64          `json:"productId,omitempty"`
	BuyProducts        map[int64]int64 `json:"buyProducts,omitempty"`
	GetProducts        map[int64]int64 `json:"getProducts,omitempty"`
	RepetitionLimit    *int64          `json:"repetitionLimit,omitempty"`
}

// AppliedItem echoes one cart line in an application result.
type AppliedItem struct {
	ProductID int64   `json:"productId"`
	Quantity  int64   `json:"quantity"`
	Price     float64 `json:"price"`
}

// ApplicationResult is the outcome of applying one coupon to a cart. Items are
// returned unchanged; the discount is reported separately.
type ApplicationResult struct {
	UpdatedItems      []AppliedItem `json:"updatedItems"`
	OriginalTotal     float64       `json:"originalTotal"`
	DiscountAmount    float64       `json:"discountAmount"`
	FinalTotal        float64       `json:"finalTotal"`
	AppliedCouponCode string        `json:"appliedCouponCode"`
	Message           string        `json:"message"`
}

// Service evaluates coupons against carts and orchestrates persistence.
type Service struct {
	Store Store
	Cache *Cache
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Create persists a new coupon of the given variant. The caller is expected to
// have validated payload constraints; Create enforces the semantic invariants
// that depend on the clock.
func (s *Service) Create(ctx context.Context, c Coupon) (Coupon, error) {
	c.IsActive = true
	saved, err := s.Store.Save(ctx, c)
	if err != nil {
		return Coupon{}, err
	}
	s.Cache.Invalidate(ctx)
	return saved, nil
}

// List returns summaries for every coupon across all variants, cart-wise first.
func (s *Service) List(ctx context.Context) ([]Summary, error) {
	out := make([]Summary, 0)
	for _, t := range variantOrder {
		coupons, err := s.Store.FindAll(ctx, t)
		if err != nil {
			return nil, err
		}
		for _, c := range coupons {
			out = append(out, toSummary(c))
		}
	}
	return out, nil
}

// Get resolves one coupon by identifier across all variants.
func (s *Service) Get(ctx context.Context, id int64) (Summary, error) {
	c, err := s.resolve(ctx, id)
	if err != nil {
		return Summary{}, err
	}
	return toSummary(c), nil
}

// FindApplicable scans the active, non-expired coupon set against the cart and
// returns every coupon that can discount it. Cart-wise and product-wise coupons
// qualify on a positive discount; BxGy coupons qualify on structural
// applicability even when the reported discount is zero.
func (s *Service) FindApplicable(ctx context.Context, c cart.Cart) ([]Applicable, error) {
	now := s.now()
	total := c.TotalValue()
	quantities := c.Quantities()
	prices := c.Prices()

	out := make([]Applicable, 0)
	for _, t := range variantOrder {
		coupons, err := s.findActive(ctx, t, now)
		if err != nil {
			return nil, err
		}
		for _, cp := range coupons {
			switch t {
			case TypeCartWise:
				if amount := cp.CartWise.Discount(total); amount.IsPositive() {
					out = append(out, toApplicable(cp, amount))
				}
			case TypeProductWise:
				amount, err := productWiseCartDiscount(cp, c)
				if err != nil {
					return nil, err
				}
				if amount.IsPositive() {
					out = append(out, toApplicable(cp, amount))
				}
			case TypeBxGy:
				if cp.BxGy.Applicable(quantities) {
					out = append(out, toApplicable(cp, cp.BxGy.Discount(quantities, prices)))
				}
			}
		}
	}
	return out, nil
}

// Apply resolves a coupon by identifier, validates its state, and computes the
// discounted cart total. A computed discount of exactly zero rejects the
// application even when discovery would report the coupon as applicable.
func (s *Service) Apply(ctx context.Context, id int64, c cart.Cart) (ApplicationResult, error) {
	cp, err := s.resolve(ctx, id)
	if err != nil {
		return ApplicationResult{}, err
	}
	if !cp.IsActive || cp.Expired(s.now()) {
		return ApplicationResult{}, fmt.Errorf("%w: coupon is inactive or expired", ErrNotApplicable)
	}

	var amount Decimal
	switch cp.Type {
	case TypeCartWise:
		amount = cp.CartWise.Discount(c.TotalValue())
	case TypeProductWise:
		amount, err = productWiseCartDiscount(cp, c)
		if err != nil {
			return ApplicationResult{}, err
		}
	case TypeBxGy:
		amount = cp.BxGy.Discount(c.Quantities(), c.Prices())
	}
	if amount.IsZero() {
		return ApplicationResult{}, fmt.Errorf("%w: no discount for this cart", ErrNotApplicable)
	}

	original := c.TotalValue()
	final := original.Sub(amount)
	if final.IsNegative() {
		final = decimal.Zero
	}

	items := make([]AppliedItem, 0, len(c.Items))
	for _, it := range c.Items {
		items = append(items, AppliedItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price.InexactFloat64(),
		})
	}
	return ApplicationResult{
		UpdatedItems:      items,
		OriginalTotal:     original.InexactFloat64(),
		DiscountAmount:    amount.InexactFloat64(),
		FinalTotal:        final.InexactFloat64(),
		AppliedCouponCode: cp.Code,
		Message:           "Coupon applied successfully",
	}, nil
}

// resolve tries each variant store in turn; at most one will match.
func (s *Service) resolve(ctx context.Context, id int64) (Coupon, error) {
	for _, t := range variantOrder {
		c, err := s.Store.FindByID(ctx, t, id)
		if err == nil {
			return c, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return Coupon{}, err
		}
	}
	return Coupon{}, ErrNotFound
}

func (s *Service) findActive(ctx context.Context, t Type, asOf time.Time) ([]Coupon, error) {
	if cached, ok := s.Cache.GetActive(ctx, t, asOf); ok {
		return cached, nil
	}
	coupons, err := s.Store.FindActive(ctx, t, asOf)
	if err != nil {
		return nil, err
	}
	s.Cache.SetActive(ctx, t, asOf, coupons)
	return coupons, nil
}

// productWiseCartDiscount sums the coupon's per-line discounts; a cart may carry
// the same product split across multiple lines.
func productWiseCartDiscount(cp Coupon, c cart.Cart) (Decimal, error) {
	total := decimal.Zero
	for _, it := range c.Items {
		amount, err := cp.ProductWise.Discount(it.ProductID, it.Quantity, it.Price)
		if err != nil {
			return decimal.Zero, err
		}
		total = total.Add(amount)
	}
	return total, nil
}

func toApplicable(c Coupon, amount Decimal) Applicable {
	return Applicable{
		CouponID:       c.ID,
		Code:           c.Code,
		Type:           c.Type,
		Description:    c.Description,
		DiscountAmount: amount.InexactFloat64(),
	}
}

func toSummary(c Coupon) Summary {
	s := Summary{
		ID:             c.ID,
		Code:           c.Code,
		Type:           c.Type,
		ExpirationDate: DateOf(c.ExpirationDate),
		IsActive:       c.IsActive,
		Description:    c.Description,
	}
	switch c.Type {
	case TypeCartWise:
		threshold := c.CartWise.Threshold.InexactFloat64()
		pct := c.CartWise.DiscountPercentage.InexactFloat64()
		s.Threshold = &threshold
		s.DiscountPercentage = &pct
	case TypeProductWise:
		pid := c.ProductWise.ProductID
		pct := c.ProductWise.DiscountPercentage.InexactFloat64()
		s.ProductID = &pid
		s.DiscountPercentage = &pct
	case TypeBxGy:
		limit := c.BxGy.RepetitionLimit
		s.RepetitionLimit = &limit
		s.BuyProducts = c.BxGy.BuyProducts
		s.GetProducts = c.BxGy.GetProducts
	}
	return s
}
