package domain

import "time"

type Product struct {
	ID           string    `json:"id" db:"id"`
	Barcode      string    `json:"barcode" db:"barcode"`
	Name         string    `json:"name" db:"name"`
	Category     string    `json:"category" db:"category"`
	PriceCents   int64     `json:"price_cents" db:"price_cents"`
	Quantity     int       `json:"quantity" db:"quantity"`
	ReorderLevel int       `json:"reorder_level" db:"reorder_level"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

type ProductCreateRequest struct {
	Barcode      string `json:"barcode"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	PriceCents   int64  `json:"price_cents"`
	Quantity     int    `json:"quantity"`
	ReorderLevel int    `json:"reorder_level"`
}

type ProductUpdateRequest struct {
	Name         *string `json:"name,omitempty"`
	Category     *string `json:"category,omitempty"`
	PriceCents   *int64  `json:"price_cents,omitempty"`
	Quantity     *int    `json:"quantity,omitempty"`
	ReorderLevel *int    `json:"reorder_level,omitempty"`
}

type StockAdjustRequest struct {
	QuantityChange int    `json:"quantity_change"`
	Reason         string `json:"reason"`
}

type StockAdjustResult struct {
	ProductID   string `json:"product_id"`
	NewQuantity int    `json:"new_quantity"`
}

type Customer struct {
	ID                  string    `json:"id" db:"id"`
	Mobile              string    `json:"mobile" db:"mobile"`
	Name                string    `json:"name" db:"name"`
	Email               string    `json:"email,omitempty" db:"email"`
	Points              int       `json:"points" db:"points"`
	TotalPurchasesCents int64     `json:"total_purchases_cents" db:"total_purchases_cents"`
	CreatedAt           time.Time `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time `json:"updated_at" db:"updated_at"`
}

type CustomerCreateRequest struct {
	Mobile string `json:"mobile"`
	Name   string `json:"name"`
	Email  string `json:"email,omitempty"`
}

type CustomerUpdateRequest struct {
	Name  *string `json:"name,omitempty"`
	Email *string `json:"email,omitempty"`
}

type PointsRequest struct {
	Points int `json:"points"`
}

type RedeemResult struct {
	CustomerID      string `json:"customer_id"`
	PointsRedeemed  int    `json:"points_redeemed"`
	DiscountCents   int64  `json:"discount_cents"`
	RemainingPoints int    `json:"remaining_points"`
}

type PurchaseRecord struct {
	BillID     string    `json:"bill_id"`
	BillNumber string    `json:"bill_number"`
	TotalCents int64     `json:"total_cents"`
	ItemsCount int       `json:"items_count"`
	CreatedAt  time.Time `json:"created_at"`
}

type PurchaseHistory struct {
	Customer  Customer         `json:"customer"`
	Purchases []PurchaseRecord `json:"purchases"`
}

// CartLine is one requested line at checkout. DiscountCents is the manual
// per-line discount entered by the cashier, applied to the whole line.
type CartLine struct {
	ProductID     string `json:"product_id"`
	Quantity      int    `json:"quantity"`
	DiscountCents int64  `json:"discount_cents"`
}

type BillCreateRequest struct {
	Items         []CartLine `json:"items"`
	CustomerID    string     `json:"customer_id,omitempty"`
	PaymentMode   string     `json:"payment_mode,omitempty"`
	Hold          bool       `json:"hold,omitempty"`
	DiscountCents int64      `json:"discount_cents,omitempty"`
	CouponCode    string     `json:"coupon_code,omitempty"`
}

type BillItem struct {
	ID             string `json:"id" db:"id"`
	BillID         string `json:"bill_id" db:"bill_id"`
	ProductID      string `json:"product_id" db:"product_id"`
	ProductName    string `json:"product_name,omitempty" db:"product_name"`
	Quantity       int    `json:"quantity" db:"quantity"`
	UnitPriceCents int64  `json:"unit_price_cents" db:"unit_price_cents"`
	DiscountCents  int64  `json:"discount_cents" db:"discount_cents"`
	TotalCents     int64  `json:"total_cents" db:"total_cents"`
}

type Bill struct {
	ID            string     `json:"id" db:"id"`
	BillNumber    string     `json:"bill_number" db:"bill_number"`
	CustomerID    string     `json:"customer_id,omitempty" db:"customer_id"`
	SubtotalCents int64      `json:"subtotal_cents" db:"subtotal_cents"`
	DiscountCents int64      `json:"discount_cents" db:"discount_cents"`
	TaxCents      int64      `json:"tax_cents" db:"tax_cents"`
	TotalCents    int64      `json:"total_cents" db:"total_cents"`
	PaymentMode   string     `json:"payment_mode" db:"payment_mode"`
	Status        string     `json:"status" db:"status"`
	CouponCode    string     `json:"coupon_code,omitempty" db:"coupon_code"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
	Items         []BillItem `json:"items,omitempty" db:"-"`
}

// BillCreateResult carries the persisted bill plus a non-fatal warning when a
// supplied coupon was rejected under the lenient coupon policy.
type BillCreateResult struct {
	Bill    Bill   `json:"bill"`
	Warning string `json:"warning,omitempty"`
}

type Coupon struct {
	ID               string    `json:"id" db:"id"`
	Code             string    `json:"code" db:"code"`
	DiscountType     string    `json:"discount_type" db:"discount_type"`
	DiscountValue    float64   `json:"discount_value" db:"discount_value"`
	MinPurchaseCents int64     `json:"min_purchase_cents" db:"min_purchase_cents"`
	MaxUses          *int      `json:"max_uses,omitempty" db:"max_uses"`
	CurrentUses      int       `json:"current_uses" db:"current_uses"`
	ValidFrom        time.Time `json:"valid_from" db:"valid_from"`
	ValidTill        time.Time `json:"valid_till" db:"valid_till"`
	Active           bool      `json:"active" db:"active"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

type CouponCreateRequest struct {
	Code             string    `json:"code"`
	DiscountType     string    `json:"discount_type"`
	DiscountValue    float64   `json:"discount_value"`
	MinPurchaseCents int64     `json:"min_purchase_cents"`
	MaxUses          *int      `json:"max_uses,omitempty"`
	ValidFrom        time.Time `json:"valid_from"`
	ValidTill        time.Time `json:"valid_till"`
	Active           *bool     `json:"active,omitempty"`
}

type CouponUpdateRequest struct {
	DiscountValue    *float64 `json:"discount_value,omitempty"`
	MinPurchaseCents *int64   `json:"min_purchase_cents,omitempty"`
	MaxUses          *int     `json:"max_uses,omitempty"`
	Active           *bool    `json:"active,omitempty"`
}

type CouponValidateRequest struct {
	PurchaseAmountCents int64 `json:"purchase_amount_cents"`
}

type CouponValidation struct {
	Code                string  `json:"code"`
	DiscountType        string  `json:"discount_type"`
	DiscountValue       float64 `json:"discount_value"`
	DiscountCents       int64   `json:"discount_cents"`
	OriginalAmountCents int64   `json:"original_amount_cents"`
	FinalAmountCents    int64   `json:"final_amount_cents"`
}

type Offer struct {
	ID            string    `json:"id" db:"id"`
	Name          string    `json:"name" db:"name"`
	OfferType     string    `json:"offer_type" db:"offer_type"`
	ProductID     string    `json:"product_id,omitempty" db:"product_id"`
	Category      string    `json:"category,omitempty" db:"category"`
	DiscountValue float64   `json:"discount_value" db:"discount_value"`
	MinQuantity   int       `json:"min_quantity" db:"min_quantity"`
	ValidFrom     time.Time `json:"valid_from" db:"valid_from"`
	ValidTill     time.Time `json:"valid_till" db:"valid_till"`
	Active        bool      `json:"active" db:"active"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

type OfferCreateRequest struct {
	Name          string    `json:"name"`
	OfferType     string    `json:"offer_type"`
	ProductID     string    `json:"product_id,omitempty"`
	Category      string    `json:"category,omitempty"`
	DiscountValue float64   `json:"discount_value"`
	MinQuantity   int       `json:"min_quantity"`
	ValidFrom     time.Time `json:"valid_from"`
	ValidTill     time.Time `json:"valid_till"`
	Active        *bool     `json:"active,omitempty"`
}

type OfferUpdateRequest struct {
	Name          *string  `json:"name,omitempty"`
	DiscountValue *float64 `json:"discount_value,omitempty"`
	MinQuantity   *int     `json:"min_quantity,omitempty"`
	Active        *bool    `json:"active,omitempty"`
}

type Payment struct {
	ID              string    `json:"id" db:"id"`
	BillID          string    `json:"bill_id" db:"bill_id"`
	PaymentMode     string    `json:"payment_mode" db:"payment_mode"`
	AmountCents     int64     `json:"amount_cents" db:"amount_cents"`
	ReferenceNumber string    `json:"reference_number,omitempty" db:"reference_number"`
	Status          string    `json:"status" db:"status"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

type PaymentRequest struct {
	PaymentMode     string `json:"payment_mode"`
	ReferenceNumber string `json:"reference_number,omitempty"`
}

type InventoryLog struct {
	ID             string    `json:"id" db:"id"`
	ProductID      string    `json:"product_id" db:"product_id"`
	QuantityChange int       `json:"quantity_change" db:"quantity_change"`
	Reason         string    `json:"reason" db:"reason"`
	BillID         string    `json:"bill_id,omitempty" db:"bill_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

type DailySummary struct {
	Date               string `json:"date"`
	TotalBills         int    `json:"total_bills"`
	TotalSalesCents    int64  `json:"total_sales_cents"`
	TotalDiscountCents int64  `json:"total_discount_cents"`
	TotalItems         int    `json:"total_items"`
	AverageBillCents   int64  `json:"average_bill_cents"`
}

type TopProduct struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

type TodayStats struct {
	SalesCents       int64 `json:"sales_cents"`
	Transactions     int   `json:"transactions"`
	AverageBillCents int64 `json:"average_bill_cents"`
}

type DashboardStats struct {
	Today          TodayStats   `json:"today"`
	TotalProducts  int          `json:"total_products"`
	TotalCustomers int          `json:"total_customers"`
	TopProducts    []TopProduct `json:"top_products"`
}

const (
	BillStatusCompleted = "completed"
	BillStatusHold      = "hold"
	BillStatusReturned  = "returned"
)

const (
	DiscountTypePercentage = "percentage"
	DiscountTypeFixed      = "fixed"
)

const (
	OfferTypeBOGO             = "bogo"
	OfferTypeHappyHour        = "happyhour"
	OfferTypeCategoryDiscount = "category_discount"
)

const (
	StockReasonSale       = "sale"
	StockReasonReturn     = "return"
	StockReasonAdjustment = "adjustment"
	StockReasonPurchase   = "purchase"
)

const PaymentStatusSuccess = "success"

const (
	CouponPolicyLenient = "lenient"
	CouponPolicyStrict  = "strict"
)

func ValidPaymentMode(mode string) bool {
	switch mode {
	case "cash", "card", "upi", "wallet":
		return true
	}
	return false
}

func ValidStockReason(reason string) bool {
	switch reason {
	case StockReasonSale, StockReasonReturn, StockReasonAdjustment, StockReasonPurchase:
		return true
	}
	return false
}
