package store

import (
	"context"
	"errors"
	"time"

	"supermart/backend/internal/domain"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrValidation         = errors.New("validation failed")
	ErrDuplicateKey       = errors.New("duplicate key")
	ErrInsufficientStock  = errors.New("insufficient stock")
	ErrInsufficientPoints = errors.New("insufficient points")
	ErrInvalidTransition  = errors.New("invalid status transition")
)

// ProductFilter narrows ListProducts. Zero values mean "no filter".
type ProductFilter struct {
	Search   string
	Category string
	LowStock bool
	Page     int
	PerPage  int
}

type ProductPage struct {
	Products    []domain.Product
	Total       int
	Pages       int
	CurrentPage int
}

type BillFilter struct {
	Status     string
	CustomerID string
	DateFrom   time.Time
	DateTo     time.Time
	Page       int
	PerPage    int
}

type BillPage struct {
	Bills       []domain.Bill
	Total       int
	Pages       int
	CurrentPage int
}

// BillDraft is everything CreateBill needs to commit a bill atomically. Prices
// and totals are recomputed inside the commit from current product state; the
// draft carries the cashier's intent, not a price snapshot.
type BillDraft struct {
	Items         []domain.CartLine
	CustomerID    string
	PaymentMode   string
	Hold          bool
	DiscountCents int64
	CouponCode    string
}

// Repository is the persistence contract shared by the memory, sqlite and
// postgres stores. All mutating bill operations are atomic: they either apply
// every side effect (stock, logs, coupon uses, loyalty points) or none.
type Repository interface {
	CreateProduct(ctx context.Context, p domain.Product) (domain.Product, error)
	GetProduct(ctx context.Context, id string) (domain.Product, error)
	GetProductByBarcode(ctx context.Context, barcode string) (domain.Product, error)
	ListProducts(ctx context.Context, f ProductFilter) (ProductPage, error)
	UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error)
	DeleteProduct(ctx context.Context, id string) error
	AdjustStock(ctx context.Context, id string, change int, reason string) (domain.Product, error)
	ListCategories(ctx context.Context) ([]string, error)

	CreateCustomer(ctx context.Context, c domain.Customer) (domain.Customer, error)
	GetCustomer(ctx context.Context, id string) (domain.Customer, error)
	GetCustomerByMobile(ctx context.Context, mobile string) (domain.Customer, error)
	ListCustomers(ctx context.Context, search string) ([]domain.Customer, error)
	UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (domain.Customer, error)
	AddPoints(ctx context.Context, id string, points int) (domain.Customer, error)
	RedeemPoints(ctx context.Context, id string, points int) (domain.Customer, error)
	PurchaseHistory(ctx context.Context, id string) (domain.PurchaseHistory, error)

	CreateBill(ctx context.Context, draft BillDraft) (domain.Bill, error)
	GetBill(ctx context.Context, id string) (domain.Bill, error)
	GetBillByNumber(ctx context.Context, number string) (domain.Bill, error)
	ListBills(ctx context.Context, f BillFilter) (BillPage, error)
	HoldBill(ctx context.Context, id string) (domain.Bill, error)
	ResumeBill(ctx context.Context, id string) (domain.Bill, error)
	ReturnBill(ctx context.Context, id string) (domain.Bill, error)
	DuplicateBill(ctx context.Context, id string) (domain.Bill, error)
	RecordPayment(ctx context.Context, billID string, req domain.PaymentRequest) (domain.Payment, error)
	ListPayments(ctx context.Context, billID string) ([]domain.Payment, error)

	CreateCoupon(ctx context.Context, c domain.Coupon) (domain.Coupon, error)
	GetCouponByCode(ctx context.Context, code string) (domain.Coupon, error)
	ListCoupons(ctx context.Context, activeOnly bool) ([]domain.Coupon, error)
	UpdateCoupon(ctx context.Context, id string, req domain.CouponUpdateRequest) (domain.Coupon, error)
	DeactivateCoupon(ctx context.Context, id string) error

	CreateOffer(ctx context.Context, o domain.Offer) (domain.Offer, error)
	GetOffer(ctx context.Context, id string) (domain.Offer, error)
	ListOffers(ctx context.Context, activeOnly bool) ([]domain.Offer, error)
	UpdateOffer(ctx context.Context, id string, req domain.OfferUpdateRequest) (domain.Offer, error)
	DeactivateOffer(ctx context.Context, id string) error

	ListInventoryLogs(ctx context.Context, productID string, limit int) ([]domain.InventoryLog, error)

	DailySummary(ctx context.Context, day time.Time) (domain.DailySummary, error)
	DashboardStats(ctx context.Context, now time.Time) (domain.DashboardStats, error)
}
