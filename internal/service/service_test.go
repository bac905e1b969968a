package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"supermart/backend/internal/billing"
	"supermart/backend/internal/domain"
	"supermart/backend/internal/store"
	"supermart/backend/internal/store/memory"
)

func newTestService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	repo := memory.NewSeeded()
	return New(repo, Options{}), repo
}

func newStrictService(t *testing.T) (*Service, *memory.Store) {
	t.Helper()
	repo := memory.NewSeeded()
	return New(repo, Options{CouponPolicy: domain.CouponPolicyStrict}), repo
}

func productByBarcode(t *testing.T, svc *Service, barcode string) domain.Product {
	t.Helper()
	p, err := svc.GetProductByBarcode(context.Background(), barcode)
	if err != nil {
		t.Fatalf("get product %s: %v", barcode, err)
	}
	return p
}

func firstCustomer(t *testing.T, svc *Service) domain.Customer {
	t.Helper()
	c, err := svc.GetCustomerByMobile(context.Background(), "9876543210")
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	return c
}

func TestCreateBillComputesTotals(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	milk := productByBarcode(t, svc, "1001")

	res, err := svc.CreateBill(ctx, domain.BillCreateRequest{
		Items: []domain.CartLine{{ProductID: milk.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}

	b := res.Bill
	if b.SubtotalCents != 10000 || b.TaxCents != 500 || b.TotalCents != 10500 {
		t.Fatalf("totals = %d/%d/%d, want 10000/500/10500", b.SubtotalCents, b.TaxCents, b.TotalCents)
	}
	if b.Status != domain.BillStatusCompleted {
		t.Fatalf("status = %s, want completed", b.Status)
	}
	if !strings.HasPrefix(b.BillNumber, "BILL-") {
		t.Fatalf("bill number = %s, want BILL- prefix", b.BillNumber)
	}
	if b.PaymentMode != "cash" {
		t.Fatalf("payment mode = %s, want default cash", b.PaymentMode)
	}

	after := productByBarcode(t, svc, "1001")
	if after.Quantity != milk.Quantity-2 {
		t.Fatalf("stock = %d, want %d", after.Quantity, milk.Quantity-2)
	}
}

func TestCreateBillInsufficientStockMutatesNothing(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	milk := productByBarcode(t, svc, "1001")
	chicken := productByBarcode(t, svc, "1005")

	_, err := svc.CreateBill(ctx, domain.BillCreateRequest{
		Items: []domain.CartLine{
			{ProductID: milk.ID, Quantity: 2},
			{ProductID: chicken.ID, Quantity: chicken.Quantity + 1},
		},
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	if got := productByBarcode(t, svc, "1001").Quantity; got != milk.Quantity {
		t.Fatalf("milk stock = %d, want untouched %d", got, milk.Quantity)
	}
	if got := productByBarcode(t, svc, "1005").Quantity; got != chicken.Quantity {
		t.Fatalf("chicken stock = %d, want untouched %d", got, chicken.Quantity)
	}
}

func TestCreateBillUnknownPaymentMode(t *testing.T) {
	svc, _ := newTestService(t)
	milk := productByBarcode(t, svc, "1001")

	_, err := svc.CreateBill(context.Background(), domain.BillCreateRequest{
		Items:       []domain.CartLine{{ProductID: milk.ID, Quantity: 1}},
		PaymentMode: "cheque",
	})
	if !errors.Is(err, store.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestCreateBillAppliesCoupon(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	butter := productByBarcode(t, svc, "1003")

	// 4 x 15000 = 60000, above SAVE10's 50000 minimum.
	res, err := svc.CreateBill(ctx, domain.BillCreateRequest{
		Items:      []domain.CartLine{{ProductID: butter.ID, Quantity: 4}},
		CouponCode: "SAVE10",
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	if res.Warning != "" {
		t.Fatalf("unexpected warning: %s", res.Warning)
	}
	if res.Bill.DiscountCents != 6000 {
		t.Fatalf("discount = %d, want 6000", res.Bill.DiscountCents)
	}
	// tax on 54000 = 2700
	if res.Bill.TotalCents != 56700 {
		t.Fatalf("total = %d, want 56700", res.Bill.TotalCents)
	}

	c, err := svc.GetCouponByCode(ctx, "SAVE10")
	if err != nil {
		t.Fatalf("get coupon: %v", err)
	}
	if c.CurrentUses != 1 {
		t.Fatalf("current uses = %d, want 1", c.CurrentUses)
	}
}

func TestCreateBillLenientCouponBecomesWarning(t *testing.T) {
	svc, _ := newTestService(t)
	milk := productByBarcode(t, svc, "1001")

	// 10000 subtotal is below SAVE10's minimum purchase.
	res, err := svc.CreateBill(context.Background(), domain.BillCreateRequest{
		Items:      []domain.CartLine{{ProductID: milk.ID, Quantity: 2}},
		CouponCode: "SAVE10",
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	if res.Warning == "" {
		t.Fatalf("expected a coupon warning")
	}
	if res.Bill.DiscountCents != 0 {
		t.Fatalf("discount = %d, want 0", res.Bill.DiscountCents)
	}
	if res.Bill.CouponCode != "" {
		t.Fatalf("coupon code = %q, want empty on dropped coupon", res.Bill.CouponCode)
	}
}

func TestCreateBillStrictCouponRejects(t *testing.T) {
	svc, _ := newStrictService(t)
	milk := productByBarcode(t, svc, "1001")

	_, err := svc.CreateBill(context.Background(), domain.BillCreateRequest{
		Items:      []domain.CartLine{{ProductID: milk.ID, Quantity: 2}},
		CouponCode: "SAVE10",
	})
	if !errors.Is(err, billing.ErrMinPurchaseNotMet) {
		t.Fatalf("err = %v, want ErrMinPurchaseNotMet", err)
	}
}

func TestCreateBillCouponUsageCap(t *testing.T) {
	svc, _ := newStrictService(t)
	ctx := context.Background()
	milk := productByBarcode(t, svc, "1001")

	maxUses := 1
	_, err := svc.CreateCoupon(ctx, domain.CouponCreateRequest{
		Code:          "ONCE",
		DiscountType:  domain.DiscountTypePercentage,
		DiscountValue: 5,
		MaxUses:       &maxUses,
		ValidFrom:     time.Now().Add(-time.Hour),
		ValidTill:     time.Now().Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("create coupon: %v", err)
	}

	if _, err := svc.CreateBill(ctx, domain.BillCreateRequest{
		Items:      []domain.CartLine{{ProductID: milk.ID, Quantity: 1}},
		CouponCode: "ONCE",
	}); err != nil {
		t.Fatalf("first use: %v", err)
	}

	_, err = svc.CreateBill(ctx, domain.BillCreateRequest{
		Items:      []domain.CartLine{{ProductID: milk.ID, Quantity: 1}},
		CouponCode: "ONCE",
	})
	if !errors.Is(err, billing.ErrCouponExhausted) {
		t.Fatalf("err = %v, want ErrCouponExhausted", err)
	}
}

func TestHoldResumeTransitions(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	milk := productByBarcode(t, svc, "1001")

	res, err := svc.CreateBill(ctx, domain.BillCreateRequest{
		Items: []domain.CartLine{{ProductID: milk.ID, Quantity: 1}},
		Hold:  true,
	})
	if err != nil {
		t.Fatalf("create hold bill: %v", err)
	}
	if res.Bill.Status != domain.BillStatusHold {
		t.Fatalf("status = %s, want hold", res.Bill.Status)
	}

	b, err := svc.ResumeBill(ctx, res.Bill.ID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if b.Status != domain.BillStatusCompleted {
		t.Fatalf("status = %s, want completed", b.Status)
	}

	if _, err := svc.ResumeBill(ctx, res.Bill.ID); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("resume completed bill err = %v, want ErrInvalidTransition", err)
	}

	if _, err := svc.HoldBill(ctx, res.Bill.ID); err != nil {
		t.Fatalf("hold completed bill: %v", err)
	}
}

func TestReturnRestoresStockOnce(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	milk := productByBarcode(t, svc, "1001")

	res, err := svc.CreateBill(ctx, domain.BillCreateRequest{
		Items: []domain.CartLine{{ProductID: milk.ID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	if got := productByBarcode(t, svc, "1001").Quantity; got != milk.Quantity-3 {
		t.Fatalf("stock after sale = %d, want %d", got, milk.Quantity-3)
	}

	b, err := svc.ReturnBill(ctx, res.Bill.ID)
	if err != nil {
		t.Fatalf("return: %v", err)
	}
	if b.Status != domain.BillStatusReturned {
		t.Fatalf("status = %s, want returned", b.Status)
	}
	if got := productByBarcode(t, svc, "1001").Quantity; got != milk.Quantity {
		t.Fatalf("stock after return = %d, want restored %d", got, milk.Quantity)
	}

	if _, err := svc.ReturnBill(ctx, res.Bill.ID); !errors.Is(err, store.ErrInvalidTransition) {
		t.Fatalf("double return err = %v, want ErrInvalidTransition", err)
	}
	if got := productByBarcode(t, svc, "1001").Quantity; got != milk.Quantity {
		t.Fatalf("stock after double return = %d, want %d", got, milk.Quantity)
	}
}

func TestDuplicateBillDoesNotTouchStock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	milk := productByBarcode(t, svc, "1001")

	res, err := svc.CreateBill(ctx, domain.BillCreateRequest{
		Items: []domain.CartLine{{ProductID: milk.ID, Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}
	stockAfterSale := productByBarcode(t, svc, "1001").Quantity

	dup, err := svc.DuplicateBill(ctx, res.Bill.ID)
	if err != nil {
		t.Fatalf("duplicate: %v", err)
	}
	if !strings.HasPrefix(dup.BillNumber, "DUP-"+res.Bill.BillNumber) {
		t.Fatalf("dup number = %s, want DUP-%s prefix", dup.BillNumber, res.Bill.BillNumber)
	}
	if dup.TotalCents != res.Bill.TotalCents {
		t.Fatalf("dup total = %d, want %d", dup.TotalCents, res.Bill.TotalCents)
	}
	if len(dup.Items) != len(res.Bill.Items) {
		t.Fatalf("dup items = %d, want %d", len(dup.Items), len(res.Bill.Items))
	}
	if got := productByBarcode(t, svc, "1001").Quantity; got != stockAfterSale {
		t.Fatalf("stock = %d, want unchanged %d", got, stockAfterSale)
	}
}

func TestCreateBillBumpsCustomerTotal(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	milk := productByBarcode(t, svc, "1001")
	cust := firstCustomer(t, svc)

	res, err := svc.CreateBill(ctx, domain.BillCreateRequest{
		Items:      []domain.CartLine{{ProductID: milk.ID, Quantity: 2}},
		CustomerID: cust.ID,
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}

	after, err := svc.GetCustomer(ctx, cust.ID)
	if err != nil {
		t.Fatalf("get customer: %v", err)
	}
	if after.TotalPurchasesCents != cust.TotalPurchasesCents+res.Bill.TotalCents {
		t.Fatalf("total purchases = %d, want %d", after.TotalPurchasesCents, cust.TotalPurchasesCents+res.Bill.TotalCents)
	}
}

func TestLoyaltyPoints(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	cust := firstCustomer(t, svc)

	if _, err := svc.AddPoints(ctx, cust.ID, -5); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("negative add err = %v, want ErrValidation", err)
	}
	if _, err := svc.AddPoints(ctx, cust.ID, 50); err != nil {
		t.Fatalf("add points: %v", err)
	}

	res, err := svc.RedeemPoints(ctx, cust.ID, 30)
	if err != nil {
		t.Fatalf("redeem: %v", err)
	}
	if res.DiscountCents != 300 {
		t.Fatalf("discount = %d, want 300", res.DiscountCents)
	}
	if res.RemainingPoints != 20 {
		t.Fatalf("remaining = %d, want 20", res.RemainingPoints)
	}

	if _, err := svc.RedeemPoints(ctx, cust.ID, 100); !errors.Is(err, store.ErrInsufficientPoints) {
		t.Fatalf("over-redeem err = %v, want ErrInsufficientPoints", err)
	}
	if _, err := svc.RedeemPoints(ctx, cust.ID, 0); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("zero redeem err = %v, want ErrValidation", err)
	}
}

func TestValidateCouponDryRun(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	res, err := svc.ValidateCoupon(ctx, "SAVE10", 60000)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if res.DiscountCents != 6000 || res.FinalAmountCents != 54000 {
		t.Fatalf("discount/final = %d/%d, want 6000/54000", res.DiscountCents, res.FinalAmountCents)
	}

	c, err := svc.GetCouponByCode(ctx, "SAVE10")
	if err != nil {
		t.Fatalf("get coupon: %v", err)
	}
	if c.CurrentUses != 0 {
		t.Fatalf("dry run bumped uses to %d", c.CurrentUses)
	}

	if _, err := svc.ValidateCoupon(ctx, "SAVE10", 10000); !errors.Is(err, billing.ErrMinPurchaseNotMet) {
		t.Fatalf("err = %v, want ErrMinPurchaseNotMet", err)
	}
	if _, err := svc.ValidateCoupon(ctx, "NOPE", 60000); !errors.Is(err, billing.ErrCouponNotFound) {
		t.Fatalf("err = %v, want ErrCouponNotFound", err)
	}
}

func TestAdjustStockRejectsNegativeResult(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	milk := productByBarcode(t, svc, "1001")

	if _, err := svc.AdjustStock(ctx, milk.ID, domain.StockAdjustRequest{QuantityChange: -(milk.Quantity + 1)}); !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("err = %v, want ErrInsufficientStock", err)
	}

	res, err := svc.AdjustStock(ctx, milk.ID, domain.StockAdjustRequest{QuantityChange: 25, Reason: domain.StockReasonPurchase})
	if err != nil {
		t.Fatalf("adjust: %v", err)
	}
	if res.NewQuantity != milk.Quantity+25 {
		t.Fatalf("quantity = %d, want %d", res.NewQuantity, milk.Quantity+25)
	}

	logs, err := svc.ListInventoryLogs(ctx, milk.ID, 10)
	if err != nil {
		t.Fatalf("logs: %v", err)
	}
	if len(logs) == 0 || logs[0].Reason != domain.StockReasonPurchase {
		t.Fatalf("expected a purchase log entry, got %+v", logs)
	}
}

func TestDailySummaryAndDashboard(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	milk := productByBarcode(t, svc, "1001")
	bread := productByBarcode(t, svc, "1002")

	for i := 0; i < 2; i++ {
		if _, err := svc.CreateBill(ctx, domain.BillCreateRequest{
			Items: []domain.CartLine{
				{ProductID: milk.ID, Quantity: 2},
				{ProductID: bread.ID, Quantity: 1},
			},
		}); err != nil {
			t.Fatalf("create bill: %v", err)
		}
	}

	sum, err := svc.DailySummary(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if sum.TotalBills != 2 {
		t.Fatalf("total bills = %d, want 2", sum.TotalBills)
	}
	// each bill: subtotal 13000, tax 650, total 13650
	if sum.TotalSalesCents != 27300 {
		t.Fatalf("total sales = %d, want 27300", sum.TotalSalesCents)
	}
	if sum.AverageBillCents != 13650 {
		t.Fatalf("average = %d, want 13650", sum.AverageBillCents)
	}

	stats, err := svc.DashboardStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Today.Transactions != 2 || stats.Today.SalesCents != 27300 {
		t.Fatalf("today = %+v, want 2 transactions / 27300", stats.Today)
	}
	if stats.TotalProducts != 10 || stats.TotalCustomers != 3 {
		t.Fatalf("totals = %d products / %d customers, want 10/3", stats.TotalProducts, stats.TotalCustomers)
	}
	if len(stats.TopProducts) == 0 || stats.TopProducts[0].Name != "Milk" {
		t.Fatalf("top products = %+v, want Milk first", stats.TopProducts)
	}
}

func TestProductValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	if _, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{Name: "No Barcode"}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if _, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{Barcode: "1001", Name: "Dup", PriceCents: 100}); !errors.Is(err, store.ErrDuplicateKey) {
		t.Fatalf("err = %v, want ErrDuplicateKey", err)
	}
	if _, err := svc.CreateProduct(ctx, domain.ProductCreateRequest{Barcode: "2001", Name: "Neg", PriceCents: -1}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}

func TestPurchaseHistoryNewestFirst(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	milk := productByBarcode(t, svc, "1001")
	cust := firstCustomer(t, svc)

	for i := 0; i < 3; i++ {
		if _, err := svc.CreateBill(ctx, domain.BillCreateRequest{
			Items:      []domain.CartLine{{ProductID: milk.ID, Quantity: 1}},
			CustomerID: cust.ID,
		}); err != nil {
			t.Fatalf("create bill: %v", err)
		}
	}

	h, err := svc.PurchaseHistory(ctx, cust.ID)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(h.Purchases) != 3 {
		t.Fatalf("purchases = %d, want 3", len(h.Purchases))
	}
	for i := 1; i < len(h.Purchases); i++ {
		if h.Purchases[i].CreatedAt.After(h.Purchases[i-1].CreatedAt) {
			t.Fatalf("purchases not newest first")
		}
	}
}

func TestRecordPayment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	milk := productByBarcode(t, svc, "1001")

	res, err := svc.CreateBill(ctx, domain.BillCreateRequest{
		Items: []domain.CartLine{{ProductID: milk.ID, Quantity: 1}},
	})
	if err != nil {
		t.Fatalf("create bill: %v", err)
	}

	p, err := svc.RecordPayment(ctx, res.Bill.ID, domain.PaymentRequest{PaymentMode: "upi", ReferenceNumber: "UPI-123"})
	if err != nil {
		t.Fatalf("payment: %v", err)
	}
	if p.AmountCents != res.Bill.TotalCents {
		t.Fatalf("amount = %d, want bill total %d", p.AmountCents, res.Bill.TotalCents)
	}
	if p.Status != domain.PaymentStatusSuccess {
		t.Fatalf("status = %s, want success", p.Status)
	}

	b, err := svc.GetBill(ctx, res.Bill.ID)
	if err != nil {
		t.Fatalf("get bill: %v", err)
	}
	if b.PaymentMode != "upi" {
		t.Fatalf("bill payment mode = %s, want upi", b.PaymentMode)
	}

	if _, err := svc.RecordPayment(ctx, res.Bill.ID, domain.PaymentRequest{PaymentMode: "crypto"}); !errors.Is(err, store.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
}
