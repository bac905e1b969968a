// Package billing holds the pure pricing rules: line totals, coupon
// evaluation, offer evaluation and the subtotal/discount/tax/total rollup.
// Nothing in here touches storage; callers pass in the state they already
// read and apply the results atomically themselves.
package billing

import (
	"errors"
	"time"

	"supermart/backend/internal/domain"
)

// TaxRatePercent is the flat tax applied to the discounted subtotal.
const TaxRatePercent = 5

// PointsPerCurrencyUnit: every full 100 cents of bill total earns one loyalty
// point, and one redeemed point is worth RedeemCentsPerPoint of discount.
const (
	EarnCentsPerPoint   = 100
	RedeemCentsPerPoint = 10
)

var (
	ErrCouponNotFound    = errors.New("coupon not found")
	ErrCouponInactive    = errors.New("coupon inactive")
	ErrCouponExpired     = errors.New("coupon expired or not yet valid")
	ErrCouponExhausted   = errors.New("coupon usage limit reached")
	ErrMinPurchaseNotMet = errors.New("minimum purchase not met")
)

// Line is one priced bill line.
type Line struct {
	ProductID      string
	ProductName    string
	Quantity       int
	UnitPriceCents int64
	DiscountCents  int64
}

func (l Line) TotalCents() int64 {
	total := l.UnitPriceCents*int64(l.Quantity) - l.DiscountCents
	if total < 0 {
		return 0
	}
	return total
}

type Totals struct {
	SubtotalCents int64
	DiscountCents int64
	TaxCents      int64
	TotalCents    int64
}

// ComputeTotals rolls lines plus bill-level discounts into final amounts.
// The combined discount is clamped to the subtotal so totals never go
// negative, and tax is charged on the discounted subtotal.
func ComputeTotals(lines []Line, billDiscountCents, couponCents int64) Totals {
	var subtotal int64
	for _, l := range lines {
		subtotal += l.TotalCents()
	}

	discount := billDiscountCents + couponCents
	if discount < 0 {
		discount = 0
	}
	if discount > subtotal {
		discount = subtotal
	}

	taxable := subtotal - discount
	tax := roundDiv(taxable*TaxRatePercent, 100)

	return Totals{
		SubtotalCents: subtotal,
		DiscountCents: discount,
		TaxCents:      tax,
		TotalCents:    taxable + tax,
	}
}

// EvaluateCoupon checks a coupon against a purchase amount at a point in time
// and returns the discount it grants. It never mutates the coupon; usage
// counting happens inside the store commit.
func EvaluateCoupon(c domain.Coupon, amountCents int64, now time.Time) (int64, error) {
	if !c.Active {
		return 0, ErrCouponInactive
	}
	if now.Before(c.ValidFrom) || now.After(c.ValidTill) {
		return 0, ErrCouponExpired
	}
	if c.MaxUses != nil && c.CurrentUses >= *c.MaxUses {
		return 0, ErrCouponExhausted
	}
	if amountCents < c.MinPurchaseCents {
		return 0, ErrMinPurchaseNotMet
	}

	var discount int64
	switch c.DiscountType {
	case domain.DiscountTypePercentage:
		discount = roundDiv(int64(c.DiscountValue*100)*amountCents, 10000)
	case domain.DiscountTypeFixed:
		discount = int64(c.DiscountValue * 100)
	default:
		return 0, ErrCouponInactive
	}
	if discount > amountCents {
		discount = amountCents
	}
	if discount < 0 {
		discount = 0
	}
	return discount, nil
}

// EvaluateOffers is the automatic-promotion hook. Offers are stored and
// managed through the API but not yet applied at checkout; this returns zero
// until the offer engine lands.
// TODO: apply bogo and category_discount offers to matching lines.
func EvaluateOffers(offers []domain.Offer, lines []Line, now time.Time) int64 {
	return 0
}

// EarnedPoints converts a completed bill total into loyalty points.
func EarnedPoints(totalCents int64) int {
	return int(totalCents / EarnCentsPerPoint)
}

// RedeemDiscountCents converts redeemed points into a discount amount.
func RedeemDiscountCents(points int) int64 {
	return int64(points) * RedeemCentsPerPoint
}

// roundDiv divides with round-half-up, which keeps tax amounts stable for
// display against the figures the register prints.
func roundDiv(n, d int64) int64 {
	return (n + d/2) / d
}
