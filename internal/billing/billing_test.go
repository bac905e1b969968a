package billing

import (
	"errors"
	"testing"
	"time"

	"supermart/backend/internal/domain"
)

func TestComputeTotalsFlatTax(t *testing.T) {
	lines := []Line{
		{ProductID: "p1", Quantity: 2, UnitPriceCents: 5000},
	}

	got := ComputeTotals(lines, 0, 0)
	if got.SubtotalCents != 10000 {
		t.Fatalf("subtotal = %d, want 10000", got.SubtotalCents)
	}
	if got.TaxCents != 500 {
		t.Fatalf("tax = %d, want 500", got.TaxCents)
	}
	if got.TotalCents != 10500 {
		t.Fatalf("total = %d, want 10500", got.TotalCents)
	}
}

func TestComputeTotalsClampsDiscountToSubtotal(t *testing.T) {
	lines := []Line{{ProductID: "p1", Quantity: 1, UnitPriceCents: 3000}}

	got := ComputeTotals(lines, 5000, 0)
	if got.DiscountCents != 3000 {
		t.Fatalf("discount = %d, want clamped 3000", got.DiscountCents)
	}
	if got.TaxCents != 0 || got.TotalCents != 0 {
		t.Fatalf("tax/total = %d/%d, want 0/0", got.TaxCents, got.TotalCents)
	}
}

func TestComputeTotalsLineDiscountNeverNegative(t *testing.T) {
	lines := []Line{{ProductID: "p1", Quantity: 1, UnitPriceCents: 1000, DiscountCents: 2500}}

	got := ComputeTotals(lines, 0, 0)
	if got.SubtotalCents != 0 {
		t.Fatalf("subtotal = %d, want 0 when line discount exceeds price", got.SubtotalCents)
	}
}

func TestComputeTotalsCombinesCouponAndBillDiscount(t *testing.T) {
	lines := []Line{{ProductID: "p1", Quantity: 4, UnitPriceCents: 2500}}

	got := ComputeTotals(lines, 1000, 500)
	if got.SubtotalCents != 10000 {
		t.Fatalf("subtotal = %d, want 10000", got.SubtotalCents)
	}
	if got.DiscountCents != 1500 {
		t.Fatalf("discount = %d, want 1500", got.DiscountCents)
	}
	// tax on 8500 at 5% = 425
	if got.TaxCents != 425 {
		t.Fatalf("tax = %d, want 425", got.TaxCents)
	}
	if got.TotalCents != 8925 {
		t.Fatalf("total = %d, want 8925", got.TotalCents)
	}
}

func testCoupon() domain.Coupon {
	return domain.Coupon{
		ID:               "c1",
		Code:             "SAVE10",
		DiscountType:     domain.DiscountTypePercentage,
		DiscountValue:    10,
		MinPurchaseCents: 50000,
		ValidFrom:        time.Now().Add(-24 * time.Hour),
		ValidTill:        time.Now().Add(24 * time.Hour),
		Active:           true,
	}
}

func TestEvaluateCouponPercentage(t *testing.T) {
	got, err := EvaluateCoupon(testCoupon(), 60000, time.Now())
	if err != nil {
		t.Fatalf("evaluate coupon: %v", err)
	}
	if got != 6000 {
		t.Fatalf("discount = %d, want 6000", got)
	}
}

func TestEvaluateCouponFixedCappedAtAmount(t *testing.T) {
	c := testCoupon()
	c.DiscountType = domain.DiscountTypeFixed
	c.DiscountValue = 700
	c.MinPurchaseCents = 0

	got, err := EvaluateCoupon(c, 50000, time.Now())
	if err != nil {
		t.Fatalf("evaluate coupon: %v", err)
	}
	if got != 50000 {
		t.Fatalf("discount = %d, want capped 50000", got)
	}
}

func TestEvaluateCouponBelowMinPurchase(t *testing.T) {
	_, err := EvaluateCoupon(testCoupon(), 40000, time.Now())
	if !errors.Is(err, ErrMinPurchaseNotMet) {
		t.Fatalf("err = %v, want ErrMinPurchaseNotMet", err)
	}
}

func TestEvaluateCouponInactive(t *testing.T) {
	c := testCoupon()
	c.Active = false
	_, err := EvaluateCoupon(c, 60000, time.Now())
	if !errors.Is(err, ErrCouponInactive) {
		t.Fatalf("err = %v, want ErrCouponInactive", err)
	}
}

func TestEvaluateCouponOutsideValidityWindow(t *testing.T) {
	c := testCoupon()
	_, err := EvaluateCoupon(c, 60000, c.ValidTill.Add(time.Hour))
	if !errors.Is(err, ErrCouponExpired) {
		t.Fatalf("err = %v, want ErrCouponExpired", err)
	}
}

func TestEvaluateCouponExhausted(t *testing.T) {
	c := testCoupon()
	max := 3
	c.MaxUses = &max
	c.CurrentUses = 3
	_, err := EvaluateCoupon(c, 60000, time.Now())
	if !errors.Is(err, ErrCouponExhausted) {
		t.Fatalf("err = %v, want ErrCouponExhausted", err)
	}
}

func TestLoyaltyConversions(t *testing.T) {
	if got := EarnedPoints(10550); got != 105 {
		t.Fatalf("earned points = %d, want 105", got)
	}
	if got := RedeemDiscountCents(50); got != 500 {
		t.Fatalf("redeem discount = %d, want 500", got)
	}
}
