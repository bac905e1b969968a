package memory

import (
	"context"
	"errors"
	"testing"

	"supermart/backend/internal/domain"
	"supermart/backend/internal/store"
)

func TestDuplicateBarcodeRejected(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	_, err := s.CreateProduct(ctx, domain.Product{Barcode: "1001", Name: "Other Milk", PriceCents: 100})
	if !errors.Is(err, store.ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}
}

func TestListProductsFiltersAndPaginates(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	page, err := s.ListProducts(ctx, store.ProductFilter{Category: "dairy"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("dairy products = %d, want 3", page.Total)
	}

	page, err = s.ListProducts(ctx, store.ProductFilter{Search: "mi"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	// Milk and Vegetables Mix both contain "mi".
	if page.Total != 2 {
		t.Fatalf("search hits = %d, want 2", page.Total)
	}

	page, err = s.ListProducts(ctx, store.ProductFilter{Search: "1004"})
	if err != nil {
		t.Fatalf("barcode search: %v", err)
	}
	if page.Total != 1 || page.Products[0].Name != "Rice" {
		t.Fatalf("barcode search = %+v, want Rice", page.Products)
	}

	page, err = s.ListProducts(ctx, store.ProductFilter{Page: 3, PerPage: 4})
	if err != nil {
		t.Fatalf("paginate: %v", err)
	}
	if len(page.Products) != 2 || page.Pages != 3 || page.CurrentPage != 3 {
		t.Fatalf("page = %d items/%d pages/current %d, want 2/3/3", len(page.Products), page.Pages, page.CurrentPage)
	}
}

func TestLowStockFilter(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	page, err := s.ListProducts(ctx, store.ProductFilter{LowStock: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 0 {
		t.Fatalf("low stock = %d, want 0 on fresh seed", page.Total)
	}

	p, err := s.GetProductByBarcode(ctx, "1005")
	if err != nil {
		t.Fatalf("get chicken: %v", err)
	}
	if _, err := s.AdjustStock(ctx, p.ID, -(p.Quantity - 5), domain.StockReasonAdjustment); err != nil {
		t.Fatalf("adjust: %v", err)
	}

	page, err = s.ListProducts(ctx, store.ProductFilter{LowStock: true})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if page.Total != 1 || page.Products[0].Barcode != "1005" {
		t.Fatalf("low stock = %+v, want chicken only", page.Products)
	}
}

func TestCreateBillRejectsOversellAcrossDuplicateLines(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	milk, err := s.GetProductByBarcode(ctx, "1001")
	if err != nil {
		t.Fatalf("get milk: %v", err)
	}

	// Two lines that individually fit the stock but together exceed it.
	half := milk.Quantity/2 + 1
	_, err = s.CreateBill(ctx, store.BillDraft{
		Items: []domain.CartLine{
			{ProductID: milk.ID, Quantity: half},
			{ProductID: milk.ID, Quantity: half},
		},
		PaymentMode: "cash",
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	after, _ := s.GetProduct(ctx, milk.ID)
	if after.Quantity != milk.Quantity {
		t.Fatalf("stock = %d, want untouched %d", after.Quantity, milk.Quantity)
	}

	// Duplicate lines that fit together are still a valid bill.
	bill, err := s.CreateBill(ctx, store.BillDraft{
		Items: []domain.CartLine{
			{ProductID: milk.ID, Quantity: 2},
			{ProductID: milk.ID, Quantity: 1},
		},
		PaymentMode: "cash",
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	if len(bill.Items) != 2 {
		t.Fatalf("items = %d, want 2", len(bill.Items))
	}
	after, _ = s.GetProduct(ctx, milk.ID)
	if after.Quantity != milk.Quantity-3 {
		t.Fatalf("stock = %d, want %d", after.Quantity, milk.Quantity-3)
	}
}

func TestBillLookupByNumber(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	milk, _ := s.GetProductByBarcode(ctx, "1001")
	bill, err := s.CreateBill(ctx, store.BillDraft{
		Items:       []domain.CartLine{{ProductID: milk.ID, Quantity: 1}},
		PaymentMode: "cash",
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}

	got, err := s.GetBillByNumber(ctx, bill.BillNumber)
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.ID != bill.ID {
		t.Fatalf("lookup returned %s, want %s", got.ID, bill.ID)
	}

	if _, err := s.GetBillByNumber(ctx, "BILL-nope"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestGetBillReturnsCopy(t *testing.T) {
	s := NewSeeded()
	ctx := context.Background()

	milk, _ := s.GetProductByBarcode(ctx, "1001")
	bill, err := s.CreateBill(ctx, store.BillDraft{
		Items:       []domain.CartLine{{ProductID: milk.ID, Quantity: 1}},
		PaymentMode: "cash",
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}

	got, _ := s.GetBill(ctx, bill.ID)
	got.Items[0].Quantity = 999
	got.Status = "mangled"

	again, _ := s.GetBill(ctx, bill.ID)
	if again.Items[0].Quantity == 999 || again.Status == "mangled" {
		t.Fatalf("stored bill mutated through returned copy")
	}
}
