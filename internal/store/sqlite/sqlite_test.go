package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"supermart/backend/internal/billing"
	"supermart/backend/internal/domain"
	"supermart/backend/internal/store"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "register.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSeedAndBarcodeLookup(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	p, err := s.GetProductByBarcode(ctx, "1001")
	if err != nil {
		t.Fatalf("barcode lookup: %v", err)
	}
	if p.Name != "Milk" || p.PriceCents != 5000 {
		t.Fatalf("got %s/%d, want Milk/5000", p.Name, p.PriceCents)
	}

	page, err := s.ListProducts(ctx, store.ProductFilter{})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 10 {
		t.Fatalf("seeded products = %d, want 10", page.Total)
	}

	if _, err := s.GetProductByBarcode(ctx, "9999"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestCreateBillDeductsStockAndLogs(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	milk, err := s.GetProductByBarcode(ctx, "1001")
	if err != nil {
		t.Fatalf("get milk: %v", err)
	}

	bill, err := s.CreateBill(ctx, store.BillDraft{
		Items:       []domain.CartLine{{ProductID: milk.ID, Quantity: 2}},
		PaymentMode: "cash",
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	if bill.SubtotalCents != 10000 || bill.TotalCents != 10500 {
		t.Fatalf("totals = %d/%d, want 10000/10500", bill.SubtotalCents, bill.TotalCents)
	}

	after, err := s.GetProduct(ctx, milk.ID)
	if err != nil {
		t.Fatalf("reread milk: %v", err)
	}
	if after.Quantity != milk.Quantity-2 {
		t.Fatalf("stock = %d, want %d", after.Quantity, milk.Quantity-2)
	}

	logs, err := s.ListInventoryLogs(ctx, milk.ID, 10)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) != 1 || logs[0].Reason != domain.StockReasonSale || logs[0].QuantityChange != -2 {
		t.Fatalf("logs = %+v, want one sale entry of -2", logs)
	}
}

func TestCreateBillRollsBackOnStockFailure(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	milk, _ := s.GetProductByBarcode(ctx, "1001")
	chicken, _ := s.GetProductByBarcode(ctx, "1005")

	_, err := s.CreateBill(ctx, store.BillDraft{
		Items: []domain.CartLine{
			{ProductID: milk.ID, Quantity: 1},
			{ProductID: chicken.ID, Quantity: chicken.Quantity + 1},
		},
		PaymentMode: "cash",
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	after, _ := s.GetProduct(ctx, milk.ID)
	if after.Quantity != milk.Quantity {
		t.Fatalf("milk stock = %d, want rolled back %d", after.Quantity, milk.Quantity)
	}

	page, err := s.ListBills(ctx, store.BillFilter{})
	if err != nil {
		t.Fatalf("list bills: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("bills = %d, want 0 after rollback", page.Total)
	}
}

func TestCouponCapEnforcedAtCommit(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	maxUses := 1
	if _, err := s.CreateCoupon(ctx, domain.Coupon{
		Code:          "ONCE",
		DiscountType:  domain.DiscountTypePercentage,
		DiscountValue: 5,
		MaxUses:       &maxUses,
		ValidFrom:     time.Now().Add(-time.Hour),
		ValidTill:     time.Now().Add(time.Hour),
		Active:        true,
	}); err != nil {
		t.Fatalf("create coupon: %v", err)
	}

	milk, _ := s.GetProductByBarcode(ctx, "1001")
	draft := store.BillDraft{
		Items:       []domain.CartLine{{ProductID: milk.ID, Quantity: 1}},
		PaymentMode: "cash",
		CouponCode:  "ONCE",
	}

	if _, err := s.CreateBill(ctx, draft); err != nil {
		t.Fatalf("first use: %v", err)
	}
	if _, err := s.CreateBill(ctx, draft); !errors.Is(err, billing.ErrCouponExhausted) {
		t.Fatalf("err = %v, want ErrCouponExhausted", err)
	}
}

func TestReturnBillRestocks(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	milk, _ := s.GetProductByBarcode(ctx, "1001")
	bill, err := s.CreateBill(ctx, store.BillDraft{
		Items:       []domain.CartLine{{ProductID: milk.ID, Quantity: 3}},
		PaymentMode: "cash",
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}

	returned, err := s.ReturnBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if returned.Status != domain.BillStatusReturned {
		t.Fatalf("status = %s, want returned", returned.Status)
	}

	after, _ := s.GetProduct(ctx, milk.ID)
	if after.Quantity != milk.Quantity {
		t.Fatalf("stock = %d, want restored %d", after.Quantity, milk.Quantity)
	}

	if _, err := s.ReturnBill(ctx, bill.ID); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("double return err = %v, want ErrInvalidTransition", err)
	}
}

func TestRedeemPointsGuard(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	c, err := s.GetCustomerByMobile(ctx, "9876543210")
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if _, err := s.AddPoints(ctx, c.ID, 20); err != nil {
		t.Fatalf("add points: %v", err)
	}
	if _, err := s.RedeemPoints(ctx, c.ID, 50); !errors.Is(err, store.ErrInsufficientPoints) {
		t.Fatalf("err = %v, want ErrInsufficientPoints", err)
	}
	after, err := s.RedeemPoints(ctx, c.ID, 15)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if after.Points != 5 {
		t.Fatalf("points = %d, want 5", after.Points)
	}
}

func TestDuplicateBillKeepsTotals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	milk, _ := s.GetProductByBarcode(ctx, "1001")
	bill, err := s.CreateBill(ctx, store.BillDraft{
		Items:       []domain.CartLine{{ProductID: milk.ID, Quantity: 2}},
		PaymentMode: "cash",
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	stockAfter, _ := s.GetProduct(ctx, milk.ID)

	dup, err := s.DuplicateBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if dup.TotalCents != bill.TotalCents || len(dup.Items) != len(bill.Items) {
		t.Fatalf("dup = %d/%d items, want %d/%d", dup.TotalCents, len(dup.Items), bill.TotalCents, len(bill.Items))
	}

	again, _ := s.GetProduct(ctx, milk.ID)
	if again.Quantity != stockAfter.Quantity {
		t.Fatalf("duplicate changed stock: %d -> %d", stockAfter.Quantity, again.Quantity)
	}
}
