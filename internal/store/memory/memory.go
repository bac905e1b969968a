// Package memory implements store.Repository with plain maps behind a single
// RWMutex. It is the default backend for tests and for running the server
// without a database; every multi-step mutation happens under the write lock,
// which makes the bill operations atomic by construction.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"supermart/backend/internal/billing"
	"supermart/backend/internal/domain"
	"supermart/backend/internal/store"
	"supermart/backend/internal/xid"
)

type Store struct {
	mu sync.RWMutex

	products        map[string]*domain.Product
	productsByCode  map[string]string
	customers       map[string]*domain.Customer
	customersByMob  map[string]string
	bills           map[string]*domain.Bill
	billsByNumber   map[string]string
	coupons         map[string]*domain.Coupon
	couponsByCode   map[string]string
	offers          map[string]*domain.Offer
	payments        map[string][]domain.Payment
	inventoryLogs   []domain.InventoryLog
}

func New() *Store {
	return &Store{
		products:       map[string]*domain.Product{},
		productsByCode: map[string]string{},
		customers:      map[string]*domain.Customer{},
		customersByMob: map[string]string{},
		bills:          map[string]*domain.Bill{},
		billsByNumber:  map[string]string{},
		coupons:        map[string]*domain.Coupon{},
		couponsByCode:  map[string]string{},
		offers:         map[string]*domain.Offer{},
		payments:       map[string][]domain.Payment{},
	}
}

// NewSeeded returns a store preloaded with the sample catalog the register
// ships with: ten products, three customers, the SAVE10 coupon and a bread
// BOGO offer.
func NewSeeded() *Store {
	s := New()
	now := time.Now().UTC()

	seedProducts := []domain.Product{
		{Barcode: "1001", Name: "Milk", Category: "Dairy", PriceCents: 5000, Quantity: 100},
		{Barcode: "1002", Name: "Bread", Category: "Bakery", PriceCents: 3000, Quantity: 80},
		{Barcode: "1003", Name: "Butter", Category: "Dairy", PriceCents: 15000, Quantity: 50},
		{Barcode: "1004", Name: "Rice", Category: "Grains", PriceCents: 6000, Quantity: 200},
		{Barcode: "1005", Name: "Chicken", Category: "Meat", PriceCents: 25000, Quantity: 30},
		{Barcode: "1006", Name: "Eggs", Category: "Dairy", PriceCents: 8000, Quantity: 100},
		{Barcode: "1007", Name: "Vegetables Mix", Category: "Vegetables", PriceCents: 4000, Quantity: 150},
		{Barcode: "1008", Name: "Apple", Category: "Fruits", PriceCents: 10000, Quantity: 50},
		{Barcode: "1009", Name: "Banana", Category: "Fruits", PriceCents: 3000, Quantity: 200},
		{Barcode: "1010", Name: "Salt", Category: "Spices", PriceCents: 2000, Quantity: 100},
	}
	for _, p := range seedProducts {
		p.ID = uuid.NewString()
		p.ReorderLevel = 10
		p.CreatedAt = now
		p.UpdatedAt = now
		s.products[p.ID] = clone(p)
		s.productsByCode[p.Barcode] = p.ID
	}

	seedCustomers := []domain.Customer{
		{Mobile: "9876543210", Name: "John Doe", Email: "john@example.com"},
		{Mobile: "9876543211", Name: "Jane Smith", Email: "jane@example.com"},
		{Mobile: "9876543212", Name: "Ram Kumar", Email: "ram@example.com"},
	}
	for _, c := range seedCustomers {
		c.ID = uuid.NewString()
		c.CreatedAt = now
		c.UpdatedAt = now
		s.customers[c.ID] = clone(c)
		s.customersByMob[c.Mobile] = c.ID
	}

	maxUses := 100
	coupon := domain.Coupon{
		ID:               uuid.NewString(),
		Code:             "SAVE10",
		DiscountType:     domain.DiscountTypePercentage,
		DiscountValue:    10,
		MinPurchaseCents: 50000,
		MaxUses:          &maxUses,
		ValidFrom:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidTill:        time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
		Active:           true,
		CreatedAt:        now,
	}
	s.coupons[coupon.ID] = clone(coupon)
	s.couponsByCode[coupon.Code] = coupon.ID

	offer := domain.Offer{
		ID:            uuid.NewString(),
		Name:          "Buy 2 Get 1 Free - Bread",
		OfferType:     domain.OfferTypeBOGO,
		DiscountValue: 50,
		MinQuantity:   2,
		ValidFrom:     time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		ValidTill:     time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC),
		Active:        true,
		CreatedAt:     now,
	}
	s.offers[offer.ID] = clone(offer)

	return s
}

func clone[T any](v T) *T {
	c := v
	return &c
}

func cloneBill(b *domain.Bill) domain.Bill {
	out := *b
	out.Items = append([]domain.BillItem(nil), b.Items...)
	return out
}

// --- products ---

func (s *Store) CreateProduct(_ context.Context, p domain.Product) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.productsByCode[p.Barcode]; exists {
		return domain.Product{}, fmt.Errorf("%w: barcode %s", store.ErrDuplicateKey, p.Barcode)
	}

	now := time.Now().UTC()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	s.products[p.ID] = clone(p)
	s.productsByCode[p.Barcode] = p.ID
	return p, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	return *p, nil
}

func (s *Store) GetProductByBarcode(_ context.Context, barcode string) (domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.productsByCode[barcode]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: barcode %s", store.ErrNotFound, barcode)
	}
	return *s.products[id], nil
}

func (s *Store) ListProducts(_ context.Context, f store.ProductFilter) (store.ProductPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	var matched []domain.Product
	for _, p := range s.products {
		if search != "" &&
			!strings.Contains(strings.ToLower(p.Name), search) &&
			p.Barcode != f.Search {
			continue
		}
		if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
			continue
		}
		if f.LowStock && p.Quantity > p.ReorderLevel {
			continue
		}
		matched = append(matched, *p)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })

	page, perPage := normalizePage(f.Page, f.PerPage)
	total := len(matched)
	start, end := pageBounds(total, page, perPage)
	return store.ProductPage{
		Products:    matched[start:end],
		Total:       total,
		Pages:       totalPages(total, perPage),
		CurrentPage: page,
	}, nil
}

func (s *Store) UpdateProduct(_ context.Context, id string, req domain.ProductUpdateRequest) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Category != nil {
		p.Category = *req.Category
	}
	if req.PriceCents != nil {
		p.PriceCents = *req.PriceCents
	}
	if req.Quantity != nil {
		p.Quantity = *req.Quantity
	}
	if req.ReorderLevel != nil {
		p.ReorderLevel = *req.ReorderLevel
	}
	p.UpdatedAt = time.Now().UTC()
	return *p, nil
}

func (s *Store) DeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	delete(s.productsByCode, p.Barcode)
	delete(s.products, id)
	return nil
}

func (s *Store) AdjustStock(_ context.Context, id string, change int, reason string) (domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return domain.Product{}, fmt.Errorf("%w: product %s", store.ErrNotFound, id)
	}
	if p.Quantity+change < 0 {
		return domain.Product{}, fmt.Errorf("%w: %s has %d, change %d", store.ErrInsufficientStock, p.Name, p.Quantity, change)
	}
	p.Quantity += change
	p.UpdatedAt = time.Now().UTC()
	s.appendLog(id, change, reason, "")
	return *p, nil
}

func (s *Store) ListCategories(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := map[string]bool{}
	var out []string
	for _, p := range s.products {
		if p.Category != "" && !seen[p.Category] {
			seen[p.Category] = true
			out = append(out, p.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

// appendLog must be called with the write lock held.
func (s *Store) appendLog(productID string, change int, reason, billID string) {
	s.inventoryLogs = append(s.inventoryLogs, domain.InventoryLog{
		ID:             uuid.NewString(),
		ProductID:      productID,
		QuantityChange: change,
		Reason:         reason,
		BillID:         billID,
		CreatedAt:      time.Now().UTC(),
	})
}

// --- customers ---

func (s *Store) CreateCustomer(_ context.Context, c domain.Customer) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.customersByMob[c.Mobile]; exists {
		return domain.Customer{}, fmt.Errorf("%w: mobile %s", store.ErrDuplicateKey, c.Mobile)
	}

	now := time.Now().UTC()
	c.ID = uuid.NewString()
	c.CreatedAt = now
	c.UpdatedAt = now
	s.customers[c.ID] = clone(c)
	s.customersByMob[c.Mobile] = c.ID
	return c, nil
}

func (s *Store) GetCustomer(_ context.Context, id string) (domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return domain.Customer{}, fmt.Errorf("%w: customer %s", store.ErrNotFound, id)
	}
	return *c, nil
}

func (s *Store) GetCustomerByMobile(_ context.Context, mobile string) (domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.customersByMob[mobile]
	if !ok {
		return domain.Customer{}, fmt.Errorf("%w: mobile %s", store.ErrNotFound, mobile)
	}
	return *s.customers[id], nil
}

func (s *Store) ListCustomers(_ context.Context, search string) ([]domain.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search = strings.ToLower(strings.TrimSpace(search))
	var out []domain.Customer
	for _, c := range s.customers {
		if search != "" &&
			!strings.Contains(strings.ToLower(c.Name), search) &&
			!strings.Contains(c.Mobile, search) {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateCustomer(_ context.Context, id string, req domain.CustomerUpdateRequest) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		return domain.Customer{}, fmt.Errorf("%w: customer %s", store.ErrNotFound, id)
	}
	if req.Name != nil {
		c.Name = *req.Name
	}
	if req.Email != nil {
		c.Email = *req.Email
	}
	c.UpdatedAt = time.Now().UTC()
	return *c, nil
}

func (s *Store) AddPoints(_ context.Context, id string, points int) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		return domain.Customer{}, fmt.Errorf("%w: customer %s", store.ErrNotFound, id)
	}
	c.Points += points
	c.UpdatedAt = time.Now().UTC()
	return *c, nil
}

func (s *Store) RedeemPoints(_ context.Context, id string, points int) (domain.Customer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.customers[id]
	if !ok {
		return domain.Customer{}, fmt.Errorf("%w: customer %s", store.ErrNotFound, id)
	}
	if c.Points < points {
		return domain.Customer{}, fmt.Errorf("%w: have %d, want %d", store.ErrInsufficientPoints, c.Points, points)
	}
	c.Points -= points
	c.UpdatedAt = time.Now().UTC()
	return *c, nil
}

func (s *Store) PurchaseHistory(_ context.Context, id string) (domain.PurchaseHistory, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.customers[id]
	if !ok {
		return domain.PurchaseHistory{}, fmt.Errorf("%w: customer %s", store.ErrNotFound, id)
	}

	var records []domain.PurchaseRecord
	for _, b := range s.bills {
		if b.CustomerID != id {
			continue
		}
		records = append(records, domain.PurchaseRecord{
			BillID:     b.ID,
			BillNumber: b.BillNumber,
			TotalCents: b.TotalCents,
			ItemsCount: len(b.Items),
			CreatedAt:  b.CreatedAt,
		})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].CreatedAt.After(records[j].CreatedAt) })
	return domain.PurchaseHistory{Customer: *c, Purchases: records}, nil
}

// --- bills ---

// CreateBill validates every line before mutating anything, then applies all
// side effects (stock, logs, coupon usage, customer total) under one lock.
func (s *Store) CreateBill(_ context.Context, draft store.BillDraft) (domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(draft.Items) == 0 {
		return domain.Bill{}, fmt.Errorf("%w: bill needs at least one item", store.ErrValidation)
	}

	now := time.Now().UTC()

	var customer *domain.Customer
	if draft.CustomerID != "" {
		c, ok := s.customers[draft.CustomerID]
		if !ok {
			return domain.Bill{}, fmt.Errorf("%w: customer %s", store.ErrNotFound, draft.CustomerID)
		}
		customer = c
	}

	// Price lines from current product state; nothing mutates until every
	// line has been checked. Quantities are summed per product so a cart
	// that lists the same product on several lines cannot oversell it.
	lines := make([]billing.Line, 0, len(draft.Items))
	requested := make(map[string]int, len(draft.Items))
	for _, it := range draft.Items {
		if it.Quantity <= 0 {
			return domain.Bill{}, fmt.Errorf("%w: quantity must be positive", store.ErrValidation)
		}
		p, ok := s.products[it.ProductID]
		if !ok {
			return domain.Bill{}, fmt.Errorf("%w: product %s", store.ErrNotFound, it.ProductID)
		}
		requested[it.ProductID] += it.Quantity
		if p.Quantity < requested[it.ProductID] {
			return domain.Bill{}, fmt.Errorf("%w: %s has %d, need %d", store.ErrInsufficientStock, p.Name, p.Quantity, requested[it.ProductID])
		}
		lines = append(lines, billing.Line{
			ProductID:      p.ID,
			ProductName:    p.Name,
			Quantity:       it.Quantity,
			UnitPriceCents: p.PriceCents,
			DiscountCents:  it.DiscountCents,
		})
	}

	var subtotal int64
	for _, l := range lines {
		subtotal += l.TotalCents()
	}

	// Re-check the coupon against the committed subtotal; a concurrent bill
	// may have consumed the last use since the caller evaluated it.
	var couponCents int64
	var coupon *domain.Coupon
	if draft.CouponCode != "" {
		cid, ok := s.couponsByCode[draft.CouponCode]
		if !ok {
			return domain.Bill{}, billing.ErrCouponNotFound
		}
		coupon = s.coupons[cid]
		var err error
		couponCents, err = billing.EvaluateCoupon(*coupon, subtotal, now)
		if err != nil {
			return domain.Bill{}, err
		}
	}

	totals := billing.ComputeTotals(lines, draft.DiscountCents, couponCents)

	status := domain.BillStatusCompleted
	if draft.Hold {
		status = domain.BillStatusHold
	}

	bill := domain.Bill{
		ID:            uuid.NewString(),
		BillNumber:    xid.BillNumber(now),
		CustomerID:    draft.CustomerID,
		SubtotalCents: totals.SubtotalCents,
		DiscountCents: totals.DiscountCents,
		TaxCents:      totals.TaxCents,
		TotalCents:    totals.TotalCents,
		PaymentMode:   draft.PaymentMode,
		Status:        status,
		CouponCode:    draft.CouponCode,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	for _, l := range lines {
		bill.Items = append(bill.Items, domain.BillItem{
			ID:             uuid.NewString(),
			BillID:         bill.ID,
			ProductID:      l.ProductID,
			ProductName:    l.ProductName,
			Quantity:       l.Quantity,
			UnitPriceCents: l.UnitPriceCents,
			DiscountCents:  l.DiscountCents,
			TotalCents:     l.TotalCents(),
		})
	}

	// Commit.
	for _, l := range lines {
		p := s.products[l.ProductID]
		p.Quantity -= l.Quantity
		p.UpdatedAt = now
		s.appendLog(l.ProductID, -l.Quantity, domain.StockReasonSale, bill.ID)
	}
	if coupon != nil {
		coupon.CurrentUses++
	}
	if customer != nil && status == domain.BillStatusCompleted {
		customer.TotalPurchasesCents += bill.TotalCents
		customer.UpdatedAt = now
	}
	stored := cloneBill(&bill)
	s.bills[bill.ID] = &stored
	s.billsByNumber[bill.BillNumber] = bill.ID
	return bill, nil
}

func (s *Store) GetBill(_ context.Context, id string) (domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.bills[id]
	if !ok {
		return domain.Bill{}, fmt.Errorf("%w: bill %s", store.ErrNotFound, id)
	}
	return cloneBill(b), nil
}

func (s *Store) GetBillByNumber(_ context.Context, number string) (domain.Bill, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.billsByNumber[number]
	if !ok {
		return domain.Bill{}, fmt.Errorf("%w: bill number %s", store.ErrNotFound, number)
	}
	return cloneBill(s.bills[id]), nil
}

func (s *Store) ListBills(_ context.Context, f store.BillFilter) (store.BillPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []domain.Bill
	for _, b := range s.bills {
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.CustomerID != "" && b.CustomerID != f.CustomerID {
			continue
		}
		if !f.DateFrom.IsZero() && b.CreatedAt.Before(f.DateFrom) {
			continue
		}
		if !f.DateTo.IsZero() && !b.CreatedAt.Before(f.DateTo) {
			continue
		}
		matched = append(matched, cloneBill(b))
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	page, perPage := normalizePage(f.Page, f.PerPage)
	total := len(matched)
	start, end := pageBounds(total, page, perPage)
	return store.BillPage{
		Bills:       matched[start:end],
		Total:       total,
		Pages:       totalPages(total, perPage),
		CurrentPage: page,
	}, nil
}

func (s *Store) HoldBill(_ context.Context, id string) (domain.Bill, error) {
	return s.transition(id, domain.BillStatusHold, domain.BillStatusCompleted)
}

func (s *Store) ResumeBill(_ context.Context, id string) (domain.Bill, error) {
	return s.transition(id, domain.BillStatusCompleted, domain.BillStatusHold)
}

// transition moves a bill to target if its current status is one of from.
func (s *Store) transition(id, target string, from ...string) (domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bills[id]
	if !ok {
		return domain.Bill{}, fmt.Errorf("%w: bill %s", store.ErrNotFound, id)
	}
	allowed := false
	for _, st := range from {
		if b.Status == st {
			allowed = true
			break
		}
	}
	if !allowed {
		return domain.Bill{}, fmt.Errorf("%w: %s -> %s", store.ErrInvalidTransition, b.Status, target)
	}
	b.Status = target
	b.UpdatedAt = time.Now().UTC()
	return cloneBill(b), nil
}

func (s *Store) ReturnBill(_ context.Context, id string) (domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bills[id]
	if !ok {
		return domain.Bill{}, fmt.Errorf("%w: bill %s", store.ErrNotFound, id)
	}
	if b.Status == domain.BillStatusReturned {
		return domain.Bill{}, fmt.Errorf("%w: bill already returned", store.ErrInvalidTransition)
	}

	now := time.Now().UTC()
	for _, it := range b.Items {
		p, ok := s.products[it.ProductID]
		if !ok {
			// Product deleted since the sale; nothing to restock.
			continue
		}
		p.Quantity += it.Quantity
		p.UpdatedAt = now
		s.appendLog(it.ProductID, it.Quantity, domain.StockReasonReturn, b.ID)
	}
	b.Status = domain.BillStatusReturned
	b.UpdatedAt = now
	return cloneBill(b), nil
}

func (s *Store) DuplicateBill(_ context.Context, id string) (domain.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	orig, ok := s.bills[id]
	if !ok {
		return domain.Bill{}, fmt.Errorf("%w: bill %s", store.ErrNotFound, id)
	}

	now := time.Now().UTC()
	dup := cloneBill(orig)
	dup.ID = uuid.NewString()
	dup.BillNumber = xid.DuplicateNumber(orig.BillNumber)
	dup.Status = domain.BillStatusCompleted
	dup.CreatedAt = now
	dup.UpdatedAt = now
	for i := range dup.Items {
		dup.Items[i].ID = uuid.NewString()
		dup.Items[i].BillID = dup.ID
	}

	stored := cloneBill(&dup)
	s.bills[dup.ID] = &stored
	s.billsByNumber[dup.BillNumber] = dup.ID
	return dup, nil
}

func (s *Store) RecordPayment(_ context.Context, billID string, req domain.PaymentRequest) (domain.Payment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bills[billID]
	if !ok {
		return domain.Payment{}, fmt.Errorf("%w: bill %s", store.ErrNotFound, billID)
	}

	now := time.Now().UTC()
	pay := domain.Payment{
		ID:              uuid.NewString(),
		BillID:          billID,
		PaymentMode:     req.PaymentMode,
		AmountCents:     b.TotalCents,
		ReferenceNumber: req.ReferenceNumber,
		Status:          domain.PaymentStatusSuccess,
		CreatedAt:       now,
	}
	s.payments[billID] = append(s.payments[billID], pay)
	b.PaymentMode = req.PaymentMode
	b.UpdatedAt = now
	return pay, nil
}

func (s *Store) ListPayments(_ context.Context, billID string) ([]domain.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.bills[billID]; !ok {
		return nil, fmt.Errorf("%w: bill %s", store.ErrNotFound, billID)
	}
	return append([]domain.Payment(nil), s.payments[billID]...), nil
}

// --- coupons and offers ---

func (s *Store) CreateCoupon(_ context.Context, c domain.Coupon) (domain.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.couponsByCode[c.Code]; exists {
		return domain.Coupon{}, fmt.Errorf("%w: coupon code %s", store.ErrDuplicateKey, c.Code)
	}

	c.ID = uuid.NewString()
	c.CurrentUses = 0
	c.CreatedAt = time.Now().UTC()
	s.coupons[c.ID] = clone(c)
	s.couponsByCode[c.Code] = c.ID
	return c, nil
}

func (s *Store) GetCouponByCode(_ context.Context, code string) (domain.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.couponsByCode[code]
	if !ok {
		return domain.Coupon{}, fmt.Errorf("%w: coupon %s", store.ErrNotFound, code)
	}
	return *s.coupons[id], nil
}

func (s *Store) ListCoupons(_ context.Context, activeOnly bool) ([]domain.Coupon, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Coupon
	for _, c := range s.coupons {
		if activeOnly && !c.Active {
			continue
		}
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) UpdateCoupon(_ context.Context, id string, req domain.CouponUpdateRequest) (domain.Coupon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coupons[id]
	if !ok {
		return domain.Coupon{}, fmt.Errorf("%w: coupon %s", store.ErrNotFound, id)
	}
	if req.DiscountValue != nil {
		c.DiscountValue = *req.DiscountValue
	}
	if req.MinPurchaseCents != nil {
		c.MinPurchaseCents = *req.MinPurchaseCents
	}
	if req.MaxUses != nil {
		c.MaxUses = req.MaxUses
	}
	if req.Active != nil {
		c.Active = *req.Active
	}
	return *c, nil
}

func (s *Store) DeactivateCoupon(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.coupons[id]
	if !ok {
		return fmt.Errorf("%w: coupon %s", store.ErrNotFound, id)
	}
	c.Active = false
	return nil
}

func (s *Store) CreateOffer(_ context.Context, o domain.Offer) (domain.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o.ID = uuid.NewString()
	o.CreatedAt = time.Now().UTC()
	s.offers[o.ID] = clone(o)
	return o, nil
}

func (s *Store) GetOffer(_ context.Context, id string) (domain.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.offers[id]
	if !ok {
		return domain.Offer{}, fmt.Errorf("%w: offer %s", store.ErrNotFound, id)
	}
	return *o, nil
}

func (s *Store) ListOffers(_ context.Context, activeOnly bool) ([]domain.Offer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Offer
	for _, o := range s.offers {
		if activeOnly && !o.Active {
			continue
		}
		out = append(out, *o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) UpdateOffer(_ context.Context, id string, req domain.OfferUpdateRequest) (domain.Offer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.offers[id]
	if !ok {
		return domain.Offer{}, fmt.Errorf("%w: offer %s", store.ErrNotFound, id)
	}
	if req.Name != nil {
		o.Name = *req.Name
	}
	if req.DiscountValue != nil {
		o.DiscountValue = *req.DiscountValue
	}
	if req.MinQuantity != nil {
		o.MinQuantity = *req.MinQuantity
	}
	if req.Active != nil {
		o.Active = *req.Active
	}
	return *o, nil
}

func (s *Store) DeactivateOffer(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.offers[id]
	if !ok {
		return fmt.Errorf("%w: offer %s", store.ErrNotFound, id)
	}
	o.Active = false
	return nil
}

// --- reporting ---

func (s *Store) ListInventoryLogs(_ context.Context, productID string, limit int) ([]domain.InventoryLog, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.InventoryLog
	for i := len(s.inventoryLogs) - 1; i >= 0; i-- {
		l := s.inventoryLogs[i]
		if productID != "" && l.ProductID != productID {
			continue
		}
		out = append(out, l)
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (s *Store) DailySummary(_ context.Context, day time.Time) (domain.DailySummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	y, m, d := day.UTC().Date()
	sum := domain.DailySummary{Date: day.UTC().Format("2006-01-02")}
	for _, b := range s.bills {
		by, bm, bd := b.CreatedAt.UTC().Date()
		if by != y || bm != m || bd != d || b.Status != domain.BillStatusCompleted {
			continue
		}
		sum.TotalBills++
		sum.TotalSalesCents += b.TotalCents
		sum.TotalDiscountCents += b.DiscountCents
		sum.TotalItems += len(b.Items)
	}
	if sum.TotalBills > 0 {
		sum.AverageBillCents = sum.TotalSalesCents / int64(sum.TotalBills)
	}
	return sum, nil
}

func (s *Store) DashboardStats(_ context.Context, now time.Time) (domain.DashboardStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	y, m, d := now.UTC().Date()
	var stats domain.DashboardStats
	soldByProduct := map[string]int{}

	for _, b := range s.bills {
		if b.Status != domain.BillStatusCompleted {
			continue
		}
		for _, it := range b.Items {
			soldByProduct[it.ProductName] += it.Quantity
		}
		by, bm, bd := b.CreatedAt.UTC().Date()
		if by == y && bm == m && bd == d {
			stats.Today.SalesCents += b.TotalCents
			stats.Today.Transactions++
		}
	}
	if stats.Today.Transactions > 0 {
		stats.Today.AverageBillCents = stats.Today.SalesCents / int64(stats.Today.Transactions)
	}
	stats.TotalProducts = len(s.products)
	stats.TotalCustomers = len(s.customers)

	for name, qty := range soldByProduct {
		stats.TopProducts = append(stats.TopProducts, domain.TopProduct{Name: name, Quantity: qty})
	}
	sort.Slice(stats.TopProducts, func(i, j int) bool {
		if stats.TopProducts[i].Quantity != stats.TopProducts[j].Quantity {
			return stats.TopProducts[i].Quantity > stats.TopProducts[j].Quantity
		}
		return stats.TopProducts[i].Name < stats.TopProducts[j].Name
	})
	if len(stats.TopProducts) > 5 {
		stats.TopProducts = stats.TopProducts[:5]
	}
	return stats, nil
}

// --- pagination helpers ---

func normalizePage(page, perPage int) (int, int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 50
	}
	if perPage > 200 {
		perPage = 200
	}
	return page, perPage
}

func pageBounds(total, page, perPage int) (int, int) {
	start := (page - 1) * perPage
	if start > total {
		start = total
	}
	end := start + perPage
	if end > total {
		end = total
	}
	return start, end
}

func totalPages(total, perPage int) int {
	if total == 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}
