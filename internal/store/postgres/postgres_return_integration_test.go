package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"supermart/backend/internal/domain"
	"supermart/backend/internal/store"
)

func TestReturnBillRestocksInventory(t *testing.T) {
	databaseURL := os.Getenv("SUPERMART_TEST_DATABASE_URL")
	if databaseURL == "" {
		t.Skip("set SUPERMART_TEST_DATABASE_URL to run postgres integration test")
	}

	ctx := context.Background()
	s, err := New(ctx, databaseURL)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(func() {
		_ = s.Close()
	})

	stamp := time.Now().UnixNano()
	barcode := fmt.Sprintf("IT-RET-%d", stamp)

	p, err := s.CreateProduct(ctx, domain.Product{
		Barcode:    barcode,
		Name:       "Integration Milk",
		Category:   "Dairy",
		PriceCents: 5000,
		Quantity:   10,
	})
	if err != nil {
		t.Fatalf("create product: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM inventory_logs WHERE product_id = $1`, p.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, p.ID)
	})

	bill, err := s.CreateBill(ctx, store.BillDraft{
		Items:       []domain.CartLine{{ProductID: p.ID, Quantity: 4}},
		PaymentMode: "cash",
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	t.Cleanup(func() {
		_, _ = s.db.ExecContext(ctx, `DELETE FROM bill_items WHERE bill_id = $1`, bill.ID)
		_, _ = s.db.ExecContext(ctx, `DELETE FROM bills WHERE id = $1`, bill.ID)
	})

	mid, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("reread product: %v", err)
	}
	if mid.Quantity != 6 {
		t.Fatalf("stock after sale = %d, want 6", mid.Quantity)
	}

	returned, err := s.ReturnBill(ctx, bill.ID)
	if err != nil {
		t.Fatalf("return bill: %v", err)
	}
	if returned.Status != domain.BillStatusReturned {
		t.Fatalf("status = %s, want returned", returned.Status)
	}

	after, err := s.GetProduct(ctx, p.ID)
	if err != nil {
		t.Fatalf("reread product: %v", err)
	}
	if after.Quantity != 10 {
		t.Fatalf("stock after return = %d, want 10", after.Quantity)
	}

	if _, err := s.ReturnBill(ctx, bill.ID); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("double return err = %v, want ErrInvalidTransition", err)
	}
}
