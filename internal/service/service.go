// Package service orchestrates the register's use cases on top of the
// Repository: request validation, coupon policy, loyalty conversions and the
// dashboard cache. Atomicity lives in the store; policy lives here.
package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"supermart/backend/internal/billing"
	"supermart/backend/internal/cache"
	"supermart/backend/internal/domain"
	"supermart/backend/internal/store"
)

type Service struct {
	repo         store.Repository
	stats        cache.StatsCache
	statsTTL     time.Duration
	couponPolicy string
}

type Options struct {
	Stats        cache.StatsCache
	StatsTTL     time.Duration
	CouponPolicy string
}

func New(repo store.Repository, opts Options) *Service {
	if opts.Stats == nil {
		opts.Stats = cache.NewNoop()
	}
	if opts.StatsTTL <= 0 {
		opts.StatsTTL = 30 * time.Second
	}
	if opts.CouponPolicy == "" {
		opts.CouponPolicy = domain.CouponPolicyLenient
	}
	return &Service{
		repo:         repo,
		stats:        opts.Stats,
		statsTTL:     opts.StatsTTL,
		couponPolicy: opts.CouponPolicy,
	}
}

// --- products ---

func (s *Service) CreateProduct(ctx context.Context, req domain.ProductCreateRequest) (domain.Product, error) {
	req.Barcode = strings.TrimSpace(req.Barcode)
	req.Name = strings.TrimSpace(req.Name)
	if req.Barcode == "" || req.Name == "" {
		return domain.Product{}, fmt.Errorf("%w: barcode and name are required", store.ErrValidation)
	}
	if req.PriceCents < 0 {
		return domain.Product{}, fmt.Errorf("%w: price must not be negative", store.ErrValidation)
	}
	if req.Quantity < 0 {
		return domain.Product{}, fmt.Errorf("%w: quantity must not be negative", store.ErrValidation)
	}
	reorder := req.ReorderLevel
	if reorder <= 0 {
		reorder = 10
	}
	return s.repo.CreateProduct(ctx, domain.Product{
		Barcode:      req.Barcode,
		Name:         req.Name,
		Category:     strings.TrimSpace(req.Category),
		PriceCents:   req.PriceCents,
		Quantity:     req.Quantity,
		ReorderLevel: reorder,
	})
}

func (s *Service) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return s.repo.GetProduct(ctx, id)
}

func (s *Service) GetProductByBarcode(ctx context.Context, barcode string) (domain.Product, error) {
	return s.repo.GetProductByBarcode(ctx, barcode)
}

func (s *Service) ListProducts(ctx context.Context, f store.ProductFilter) (store.ProductPage, error) {
	return s.repo.ListProducts(ctx, f)
}

func (s *Service) UpdateProduct(ctx context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	if req.PriceCents != nil && *req.PriceCents < 0 {
		return domain.Product{}, fmt.Errorf("%w: price must not be negative", store.ErrValidation)
	}
	if req.Quantity != nil && *req.Quantity < 0 {
		return domain.Product{}, fmt.Errorf("%w: quantity must not be negative", store.ErrValidation)
	}
	return s.repo.UpdateProduct(ctx, id, req)
}

func (s *Service) DeleteProduct(ctx context.Context, id string) error {
	return s.repo.DeleteProduct(ctx, id)
}

func (s *Service) AdjustStock(ctx context.Context, id string, req domain.StockAdjustRequest) (domain.StockAdjustResult, error) {
	if req.QuantityChange == 0 {
		return domain.StockAdjustResult{}, fmt.Errorf("%w: quantity_change must not be zero", store.ErrValidation)
	}
	reason := req.Reason
	if reason == "" {
		reason = domain.StockReasonAdjustment
	}
	if !domain.ValidStockReason(reason) {
		return domain.StockAdjustResult{}, fmt.Errorf("%w: unknown reason %q", store.ErrValidation, reason)
	}
	p, err := s.repo.AdjustStock(ctx, id, req.QuantityChange, reason)
	if err != nil {
		return domain.StockAdjustResult{}, err
	}
	log.Printf("[audit] stock adjust product=%s change=%d reason=%s", id, req.QuantityChange, reason)
	return domain.StockAdjustResult{ProductID: p.ID, NewQuantity: p.Quantity}, nil
}

func (s *Service) ListCategories(ctx context.Context) ([]string, error) {
	return s.repo.ListCategories(ctx)
}

func (s *Service) ListInventoryLogs(ctx context.Context, productID string, limit int) ([]domain.InventoryLog, error) {
	return s.repo.ListInventoryLogs(ctx, productID, limit)
}

// --- customers ---

func (s *Service) CreateCustomer(ctx context.Context, req domain.CustomerCreateRequest) (domain.Customer, error) {
	req.Mobile = strings.TrimSpace(req.Mobile)
	req.Name = strings.TrimSpace(req.Name)
	if req.Mobile == "" || req.Name == "" {
		return domain.Customer{}, fmt.Errorf("%w: mobile and name are required", store.ErrValidation)
	}
	return s.repo.CreateCustomer(ctx, domain.Customer{
		Mobile: req.Mobile,
		Name:   req.Name,
		Email:  strings.TrimSpace(req.Email),
	})
}

func (s *Service) GetCustomer(ctx context.Context, id string) (domain.Customer, error) {
	return s.repo.GetCustomer(ctx, id)
}

func (s *Service) GetCustomerByMobile(ctx context.Context, mobile string) (domain.Customer, error) {
	return s.repo.GetCustomerByMobile(ctx, mobile)
}

func (s *Service) ListCustomers(ctx context.Context, search string) ([]domain.Customer, error) {
	return s.repo.ListCustomers(ctx, search)
}

func (s *Service) UpdateCustomer(ctx context.Context, id string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	return s.repo.UpdateCustomer(ctx, id, req)
}

func (s *Service) AddPoints(ctx context.Context, id string, points int) (domain.Customer, error) {
	if points < 0 {
		return domain.Customer{}, fmt.Errorf("%w: points must not be negative", store.ErrValidation)
	}
	return s.repo.AddPoints(ctx, id, points)
}

func (s *Service) RedeemPoints(ctx context.Context, id string, points int) (domain.RedeemResult, error) {
	if points <= 0 {
		return domain.RedeemResult{}, fmt.Errorf("%w: points must be positive", store.ErrValidation)
	}
	c, err := s.repo.RedeemPoints(ctx, id, points)
	if err != nil {
		return domain.RedeemResult{}, err
	}
	log.Printf("[audit] points redeem customer=%s points=%d", id, points)
	return domain.RedeemResult{
		CustomerID:      c.ID,
		PointsRedeemed:  points,
		DiscountCents:   billing.RedeemDiscountCents(points),
		RemainingPoints: c.Points,
	}, nil
}

func (s *Service) PurchaseHistory(ctx context.Context, id string) (domain.PurchaseHistory, error) {
	return s.repo.PurchaseHistory(ctx, id)
}

// --- bills ---

// CreateBill applies the coupon policy before handing the draft to the repo:
// lenient drops a failing coupon and reports it in the warning field, strict
// rejects the bill. The repo re-checks the coupon inside its commit, so a
// coupon exhausted between here and the commit still fails closed.
func (s *Service) CreateBill(ctx context.Context, req domain.BillCreateRequest) (domain.BillCreateResult, error) {
	if len(req.Items) == 0 {
		return domain.BillCreateResult{}, fmt.Errorf("%w: items are required", store.ErrValidation)
	}
	if req.DiscountCents < 0 {
		return domain.BillCreateResult{}, fmt.Errorf("%w: discount must not be negative", store.ErrValidation)
	}
	mode := req.PaymentMode
	if mode == "" {
		mode = "cash"
	}
	if !domain.ValidPaymentMode(mode) {
		return domain.BillCreateResult{}, fmt.Errorf("%w: unknown payment mode %q", store.ErrValidation, mode)
	}

	draft := store.BillDraft{
		Items:         req.Items,
		CustomerID:    req.CustomerID,
		PaymentMode:   mode,
		Hold:          req.Hold,
		DiscountCents: req.DiscountCents,
		CouponCode:    strings.TrimSpace(req.CouponCode),
	}

	var warning string
	if draft.CouponCode != "" {
		if err := s.precheckCoupon(ctx, draft.CouponCode, req.Items); err != nil {
			if s.couponPolicy == domain.CouponPolicyStrict {
				return domain.BillCreateResult{}, err
			}
			warning = fmt.Sprintf("coupon %s not applied: %v", draft.CouponCode, err)
			log.Printf("[service] WARN: %s", warning)
			draft.CouponCode = ""
		}
	}

	bill, err := s.repo.CreateBill(ctx, draft)
	if err != nil {
		return domain.BillCreateResult{}, err
	}
	log.Printf("[audit] bill create number=%s total=%d status=%s", bill.BillNumber, bill.TotalCents, bill.Status)
	s.stats.Invalidate(ctx)
	return domain.BillCreateResult{Bill: bill, Warning: warning}, nil
}

// precheckCoupon evaluates the coupon against an estimated subtotal built
// from current prices. The estimate can drift from the committed subtotal
// under concurrency; the commit-side check is authoritative.
func (s *Service) precheckCoupon(ctx context.Context, code string, items []domain.CartLine) error {
	coupon, err := s.repo.GetCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return billing.ErrCouponNotFound
		}
		return err
	}

	var subtotal int64
	for _, it := range items {
		p, err := s.repo.GetProduct(ctx, it.ProductID)
		if err != nil {
			return err
		}
		line := billing.Line{
			Quantity:       it.Quantity,
			UnitPriceCents: p.PriceCents,
			DiscountCents:  it.DiscountCents,
		}
		subtotal += line.TotalCents()
	}

	_, err = billing.EvaluateCoupon(coupon, subtotal, time.Now().UTC())
	return err
}

func (s *Service) GetBill(ctx context.Context, id string) (domain.Bill, error) {
	return s.repo.GetBill(ctx, id)
}

func (s *Service) GetBillByNumber(ctx context.Context, number string) (domain.Bill, error) {
	return s.repo.GetBillByNumber(ctx, number)
}

func (s *Service) ListBills(ctx context.Context, f store.BillFilter) (store.BillPage, error) {
	return s.repo.ListBills(ctx, f)
}

func (s *Service) HoldBill(ctx context.Context, id string) (domain.Bill, error) {
	b, err := s.repo.HoldBill(ctx, id)
	if err != nil {
		return domain.Bill{}, err
	}
	log.Printf("[audit] bill hold number=%s", b.BillNumber)
	s.stats.Invalidate(ctx)
	return b, nil
}

func (s *Service) ResumeBill(ctx context.Context, id string) (domain.Bill, error) {
	b, err := s.repo.ResumeBill(ctx, id)
	if err != nil {
		return domain.Bill{}, err
	}
	log.Printf("[audit] bill resume number=%s", b.BillNumber)
	s.stats.Invalidate(ctx)
	return b, nil
}

func (s *Service) ReturnBill(ctx context.Context, id string) (domain.Bill, error) {
	b, err := s.repo.ReturnBill(ctx, id)
	if err != nil {
		return domain.Bill{}, err
	}
	log.Printf("[audit] bill return number=%s", b.BillNumber)
	s.stats.Invalidate(ctx)
	return b, nil
}

func (s *Service) DuplicateBill(ctx context.Context, id string) (domain.Bill, error) {
	b, err := s.repo.DuplicateBill(ctx, id)
	if err != nil {
		return domain.Bill{}, err
	}
	log.Printf("[audit] bill duplicate number=%s", b.BillNumber)
	s.stats.Invalidate(ctx)
	return b, nil
}

func (s *Service) RecordPayment(ctx context.Context, billID string, req domain.PaymentRequest) (domain.Payment, error) {
	if req.PaymentMode == "" {
		req.PaymentMode = "cash"
	}
	if !domain.ValidPaymentMode(req.PaymentMode) {
		return domain.Payment{}, fmt.Errorf("%w: unknown payment mode %q", store.ErrValidation, req.PaymentMode)
	}
	p, err := s.repo.RecordPayment(ctx, billID, req)
	if err != nil {
		return domain.Payment{}, err
	}
	log.Printf("[audit] payment bill=%s mode=%s amount=%d", billID, p.PaymentMode, p.AmountCents)
	return p, nil
}

func (s *Service) ListPayments(ctx context.Context, billID string) ([]domain.Payment, error) {
	return s.repo.ListPayments(ctx, billID)
}

// --- coupons and offers ---

func (s *Service) CreateCoupon(ctx context.Context, req domain.CouponCreateRequest) (domain.Coupon, error) {
	req.Code = strings.ToUpper(strings.TrimSpace(req.Code))
	if req.Code == "" {
		return domain.Coupon{}, fmt.Errorf("%w: code is required", store.ErrValidation)
	}
	if req.DiscountType != domain.DiscountTypePercentage && req.DiscountType != domain.DiscountTypeFixed {
		return domain.Coupon{}, fmt.Errorf("%w: discount_type must be percentage or fixed", store.ErrValidation)
	}
	if req.DiscountValue <= 0 {
		return domain.Coupon{}, fmt.Errorf("%w: discount_value must be positive", store.ErrValidation)
	}
	if req.DiscountType == domain.DiscountTypePercentage && req.DiscountValue > 100 {
		return domain.Coupon{}, fmt.Errorf("%w: percentage cannot exceed 100", store.ErrValidation)
	}
	if !req.ValidTill.After(req.ValidFrom) {
		return domain.Coupon{}, fmt.Errorf("%w: valid_till must be after valid_from", store.ErrValidation)
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	return s.repo.CreateCoupon(ctx, domain.Coupon{
		Code:             req.Code,
		DiscountType:     req.DiscountType,
		DiscountValue:    req.DiscountValue,
		MinPurchaseCents: req.MinPurchaseCents,
		MaxUses:          req.MaxUses,
		ValidFrom:        req.ValidFrom,
		ValidTill:        req.ValidTill,
		Active:           active,
	})
}

func (s *Service) GetCouponByCode(ctx context.Context, code string) (domain.Coupon, error) {
	return s.repo.GetCouponByCode(ctx, strings.ToUpper(strings.TrimSpace(code)))
}

func (s *Service) ListCoupons(ctx context.Context, activeOnly bool) ([]domain.Coupon, error) {
	return s.repo.ListCoupons(ctx, activeOnly)
}

func (s *Service) UpdateCoupon(ctx context.Context, id string, req domain.CouponUpdateRequest) (domain.Coupon, error) {
	return s.repo.UpdateCoupon(ctx, id, req)
}

func (s *Service) DeactivateCoupon(ctx context.Context, id string) error {
	return s.repo.DeactivateCoupon(ctx, id)
}

// ValidateCoupon is the dry-run check the register calls before checkout. It
// always reports the exact rejection reason, regardless of the lenient
// checkout policy.
func (s *Service) ValidateCoupon(ctx context.Context, code string, amountCents int64) (domain.CouponValidation, error) {
	coupon, err := s.GetCouponByCode(ctx, code)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return domain.CouponValidation{}, billing.ErrCouponNotFound
		}
		return domain.CouponValidation{}, err
	}
	discount, err := billing.EvaluateCoupon(coupon, amountCents, time.Now().UTC())
	if err != nil {
		return domain.CouponValidation{}, err
	}
	return domain.CouponValidation{
		Code:                coupon.Code,
		DiscountType:        coupon.DiscountType,
		DiscountValue:       coupon.DiscountValue,
		DiscountCents:       discount,
		OriginalAmountCents: amountCents,
		FinalAmountCents:    amountCents - discount,
	}, nil
}

func (s *Service) CreateOffer(ctx context.Context, req domain.OfferCreateRequest) (domain.Offer, error) {
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		return domain.Offer{}, fmt.Errorf("%w: name is required", store.ErrValidation)
	}
	switch req.OfferType {
	case domain.OfferTypeBOGO, domain.OfferTypeHappyHour, domain.OfferTypeCategoryDiscount:
	default:
		return domain.Offer{}, fmt.Errorf("%w: unknown offer_type %q", store.ErrValidation, req.OfferType)
	}
	if !req.ValidTill.After(req.ValidFrom) {
		return domain.Offer{}, fmt.Errorf("%w: valid_till must be after valid_from", store.ErrValidation)
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	minQty := req.MinQuantity
	if minQty <= 0 {
		minQty = 1
	}
	return s.repo.CreateOffer(ctx, domain.Offer{
		Name:          req.Name,
		OfferType:     req.OfferType,
		ProductID:     req.ProductID,
		Category:      req.Category,
		DiscountValue: req.DiscountValue,
		MinQuantity:   minQty,
		ValidFrom:     req.ValidFrom,
		ValidTill:     req.ValidTill,
		Active:        active,
	})
}

func (s *Service) GetOffer(ctx context.Context, id string) (domain.Offer, error) {
	return s.repo.GetOffer(ctx, id)
}

func (s *Service) ListOffers(ctx context.Context, activeOnly bool) ([]domain.Offer, error) {
	return s.repo.ListOffers(ctx, activeOnly)
}

func (s *Service) UpdateOffer(ctx context.Context, id string, req domain.OfferUpdateRequest) (domain.Offer, error) {
	return s.repo.UpdateOffer(ctx, id, req)
}

func (s *Service) DeactivateOffer(ctx context.Context, id string) error {
	return s.repo.DeactivateOffer(ctx, id)
}

// --- reporting ---

func (s *Service) DailySummary(ctx context.Context, day time.Time) (domain.DailySummary, error) {
	return s.repo.DailySummary(ctx, day)
}

func (s *Service) DashboardStats(ctx context.Context) (domain.DashboardStats, error) {
	if stats, ok := s.stats.GetStats(ctx); ok {
		return stats, nil
	}
	stats, err := s.repo.DashboardStats(ctx, time.Now().UTC())
	if err != nil {
		return domain.DashboardStats{}, err
	}
	s.stats.SetStats(ctx, stats, s.statsTTL)
	return stats, nil
}
