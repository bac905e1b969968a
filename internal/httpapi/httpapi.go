// Package httpapi exposes the register's REST surface on a stdlib ServeMux.
// Responses use the envelope the register frontend expects:
// {"success": true, "data": ..., "message": ...} and
// {"success": false, "error": ...} on failure.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"supermart/backend/internal/billing"
	"supermart/backend/internal/domain"
	"supermart/backend/internal/service"
	"supermart/backend/internal/store"
)

const maxBodyBytes = 1 << 20

type Server struct {
	svc           *service.Service
	allowedOrigin string
}

func NewServer(svc *service.Service, allowedOrigin string) *Server {
	return &Server{svc: svc, allowedOrigin: allowedOrigin}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", s.handleHealth)

	mux.HandleFunc("POST /api/products", s.handleCreateProduct)
	mux.HandleFunc("GET /api/products", s.handleListProducts)
	mux.HandleFunc("GET /api/products/search", s.handleSearchProducts)
	mux.HandleFunc("GET /api/products/low-stock", s.handleLowStock)
	mux.HandleFunc("GET /api/products/categories", s.handleCategories)
	mux.HandleFunc("GET /api/products/barcode/{barcode}", s.handleProductByBarcode)
	mux.HandleFunc("GET /api/products/{id}", s.handleGetProduct)
	mux.HandleFunc("PUT /api/products/{id}", s.handleUpdateProduct)
	mux.HandleFunc("DELETE /api/products/{id}", s.handleDeleteProduct)
	mux.HandleFunc("POST /api/products/{id}/adjust-stock", s.handleAdjustStock)
	mux.HandleFunc("GET /api/products/{id}/inventory-logs", s.handleInventoryLogs)

	mux.HandleFunc("POST /api/customers", s.handleCreateCustomer)
	mux.HandleFunc("GET /api/customers", s.handleListCustomers)
	mux.HandleFunc("GET /api/customers/search", s.handleListCustomers)
	mux.HandleFunc("GET /api/customers/mobile/{mobile}", s.handleCustomerByMobile)
	mux.HandleFunc("GET /api/customers/{id}", s.handleGetCustomer)
	mux.HandleFunc("PUT /api/customers/{id}", s.handleUpdateCustomer)
	mux.HandleFunc("GET /api/customers/{id}/purchase-history", s.handlePurchaseHistory)
	mux.HandleFunc("POST /api/customers/{id}/add-points", s.handleAddPoints)
	mux.HandleFunc("POST /api/customers/{id}/redeem-points", s.handleRedeemPoints)

	mux.HandleFunc("POST /api/bills", s.handleCreateBill)
	mux.HandleFunc("GET /api/bills", s.handleListBills)
	mux.HandleFunc("GET /api/bills/hold-list", s.handleHoldList)
	mux.HandleFunc("GET /api/bills/summary/{date}", s.handleDailySummary)
	mux.HandleFunc("GET /api/bills/number/{number}", s.handleBillByNumber)
	mux.HandleFunc("GET /api/bills/{id}", s.handleGetBill)
	mux.HandleFunc("POST /api/bills/{id}/hold", s.handleHoldBill)
	mux.HandleFunc("POST /api/bills/{id}/resume", s.handleResumeBill)
	mux.HandleFunc("POST /api/bills/{id}/return", s.handleReturnBill)
	mux.HandleFunc("POST /api/bills/{id}/duplicate", s.handleDuplicateBill)
	mux.HandleFunc("POST /api/bills/{id}/payment", s.handleRecordPayment)
	mux.HandleFunc("GET /api/bills/{id}/payments", s.handleListPayments)

	mux.HandleFunc("POST /api/discounts/coupons", s.handleCreateCoupon)
	mux.HandleFunc("GET /api/discounts/coupons", s.handleListCoupons)
	mux.HandleFunc("GET /api/discounts/coupons/{code}", s.handleGetCoupon)
	mux.HandleFunc("PUT /api/discounts/coupons/{id}", s.handleUpdateCoupon)
	mux.HandleFunc("DELETE /api/discounts/coupons/{id}", s.handleDeactivateCoupon)
	mux.HandleFunc("POST /api/discounts/validate-coupon/{code}", s.handleValidateCoupon)
	mux.HandleFunc("POST /api/discounts/offers", s.handleCreateOffer)
	mux.HandleFunc("GET /api/discounts/offers", s.handleListOffers)
	mux.HandleFunc("GET /api/discounts/offers/{id}", s.handleGetOffer)
	mux.HandleFunc("PUT /api/discounts/offers/{id}", s.handleUpdateOffer)
	mux.HandleFunc("DELETE /api/discounts/offers/{id}", s.handleDeactivateOffer)

	mux.HandleFunc("GET /api/dashboard/stats", s.handleDashboardStats)

	return s.withMiddleware(mux)
}

func (s *Server) withMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "no-referrer")
		if s.allowedOrigin != "" {
			w.Header().Set("Access-Control-Allow-Origin", s.allowedOrigin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		}
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		next.ServeHTTP(w, r)

		log.Printf("[http] %s %s %s", r.Method, r.URL.Path, time.Since(start).Round(time.Millisecond))
	})
}

// --- envelope helpers ---

type envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`

	Total       *int `json:"total,omitempty"`
	Pages       *int `json:"pages,omitempty"`
	CurrentPage *int `json:"current_page,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, env envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(env); err != nil {
		log.Printf("[http] WARN: encode response: %v", err)
	}
}

func writeData(w http.ResponseWriter, status int, data any, message string) {
	writeJSON(w, status, envelope{Success: true, Data: data, Message: message})
}

func writePage(w http.ResponseWriter, data any, total, pages, current int) {
	writeJSON(w, http.StatusOK, envelope{
		Success:     true,
		Data:        data,
		Total:       &total,
		Pages:       &pages,
		CurrentPage: &current,
	})
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, envelope{Success: false, Error: err.Error()})
	case errors.Is(err, store.ErrValidation),
		errors.Is(err, store.ErrDuplicateKey),
		errors.Is(err, store.ErrInsufficientStock),
		errors.Is(err, store.ErrInsufficientPoints),
		errors.Is(err, store.ErrInvalidTransition),
		errors.Is(err, billing.ErrCouponNotFound),
		errors.Is(err, billing.ErrCouponInactive),
		errors.Is(err, billing.ErrCouponExpired),
		errors.Is(err, billing.ErrCouponExhausted),
		errors.Is(err, billing.ErrMinPurchaseNotMet):
		writeJSON(w, http.StatusBadRequest, envelope{Success: false, Error: err.Error()})
	default:
		log.Printf("[http] ERROR: %v", err)
		writeJSON(w, http.StatusInternalServerError, envelope{Success: false, Error: "internal server error"})
	}
}

func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("%w: invalid request body: %v", store.ErrValidation, err)
	}
	return nil
}

func queryInt(r *http.Request, key, fallback string) int {
	v := r.URL.Query().Get(key)
	if v == "" {
		v = fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

// --- handlers ---

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeData(w, http.StatusOK, map[string]string{"status": "ok"}, "Server is running")
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	p, err := s.svc.CreateProduct(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, p, "Product created")
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.ListProducts(r.Context(), store.ProductFilter{
		Category: r.URL.Query().Get("category"),
		Page:     queryInt(r, "page", "1"),
		PerPage:  queryInt(r, "per_page", "50"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writePage(w, page.Products, page.Total, page.Pages, page.CurrentPage)
}

func (s *Server) handleSearchProducts(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.ListProducts(r.Context(), store.ProductFilter{
		Search:  r.URL.Query().Get("q"),
		Page:    queryInt(r, "page", "1"),
		PerPage: queryInt(r, "per_page", "50"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writePage(w, page.Products, page.Total, page.Pages, page.CurrentPage)
}

func (s *Server) handleLowStock(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.ListProducts(r.Context(), store.ProductFilter{
		LowStock: true,
		Page:     queryInt(r, "page", "1"),
		PerPage:  queryInt(r, "per_page", "50"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writePage(w, page.Products, page.Total, page.Pages, page.CurrentPage)
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.svc.ListCategories(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, cats, "")
}

func (s *Server) handleProductByBarcode(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.GetProductByBarcode(r.Context(), r.PathValue("barcode"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, p, "")
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.GetProduct(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, p, "")
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req domain.ProductUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	p, err := s.svc.UpdateProduct(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, p, "Product updated")
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeleteProduct(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, nil, "Product deleted")
}

func (s *Server) handleAdjustStock(w http.ResponseWriter, r *http.Request) {
	var req domain.StockAdjustRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.svc.AdjustStock(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, res, "Stock adjusted")
}

func (s *Server) handleInventoryLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := s.svc.ListInventoryLogs(r.Context(), r.PathValue("id"), queryInt(r, "limit", "100"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, logs, "")
}

func (s *Server) handleCreateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.svc.CreateCustomer(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, c, "Customer created")
}

func (s *Server) handleListCustomers(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.ListCustomers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, out, "")
}

func (s *Server) handleCustomerByMobile(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.GetCustomerByMobile(r.Context(), r.PathValue("mobile"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, c, "")
}

func (s *Server) handleGetCustomer(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.GetCustomer(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, c, "")
}

func (s *Server) handleUpdateCustomer(w http.ResponseWriter, r *http.Request) {
	var req domain.CustomerUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.svc.UpdateCustomer(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, c, "Customer updated")
}

func (s *Server) handlePurchaseHistory(w http.ResponseWriter, r *http.Request) {
	h, err := s.svc.PurchaseHistory(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, h, "")
}

func (s *Server) handleAddPoints(w http.ResponseWriter, r *http.Request) {
	var req domain.PointsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.svc.AddPoints(r.Context(), r.PathValue("id"), req.Points)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, c, "Points added")
}

func (s *Server) handleRedeemPoints(w http.ResponseWriter, r *http.Request) {
	var req domain.PointsRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.svc.RedeemPoints(r.Context(), r.PathValue("id"), req.Points)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, res, "Points redeemed")
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var req domain.BillCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.svc.CreateBill(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, res, "Bill created")
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.ListBills(r.Context(), store.BillFilter{
		Status:     r.URL.Query().Get("status"),
		CustomerID: r.URL.Query().Get("customer_id"),
		Page:       queryInt(r, "page", "1"),
		PerPage:    queryInt(r, "per_page", "50"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writePage(w, page.Bills, page.Total, page.Pages, page.CurrentPage)
}

func (s *Server) handleHoldList(w http.ResponseWriter, r *http.Request) {
	page, err := s.svc.ListBills(r.Context(), store.BillFilter{
		Status:  domain.BillStatusHold,
		Page:    queryInt(r, "page", "1"),
		PerPage: queryInt(r, "per_page", "50"),
	})
	if err != nil {
		s.writeError(w, err)
		return
	}
	writePage(w, page.Bills, page.Total, page.Pages, page.CurrentPage)
}

func (s *Server) handleDailySummary(w http.ResponseWriter, r *http.Request) {
	day, err := time.Parse("2006-01-02", r.PathValue("date"))
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: date must be YYYY-MM-DD", store.ErrValidation))
		return
	}
	sum, err := s.svc.DailySummary(r.Context(), day)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, sum, "")
}

func (s *Server) handleBillByNumber(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.GetBillByNumber(r.Context(), r.PathValue("number"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, b, "")
}

func (s *Server) handleGetBill(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.GetBill(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, b, "")
}

func (s *Server) handleHoldBill(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.HoldBill(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, b, "Bill held")
}

func (s *Server) handleResumeBill(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.ResumeBill(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, b, "Bill resumed")
}

func (s *Server) handleReturnBill(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.ReturnBill(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, b, "Bill returned")
}

func (s *Server) handleDuplicateBill(w http.ResponseWriter, r *http.Request) {
	b, err := s.svc.DuplicateBill(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, b, "Bill duplicated")
}

func (s *Server) handleRecordPayment(w http.ResponseWriter, r *http.Request) {
	var req domain.PaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	p, err := s.svc.RecordPayment(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, p, "Payment processed")
}

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	out, err := s.svc.ListPayments(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, out, "")
}

func (s *Server) handleCreateCoupon(w http.ResponseWriter, r *http.Request) {
	var req domain.CouponCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.svc.CreateCoupon(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, c, "Coupon created")
}

func (s *Server) handleListCoupons(w http.ResponseWriter, r *http.Request) {
	activeOnly := strings.EqualFold(r.URL.Query().Get("active"), "true")
	out, err := s.svc.ListCoupons(r.Context(), activeOnly)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, out, "")
}

func (s *Server) handleGetCoupon(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.GetCouponByCode(r.Context(), r.PathValue("code"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, c, "")
}

func (s *Server) handleUpdateCoupon(w http.ResponseWriter, r *http.Request) {
	var req domain.CouponUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	c, err := s.svc.UpdateCoupon(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, c, "Coupon updated")
}

func (s *Server) handleDeactivateCoupon(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeactivateCoupon(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, nil, "Coupon deactivated")
}

func (s *Server) handleValidateCoupon(w http.ResponseWriter, r *http.Request) {
	var req domain.CouponValidateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	res, err := s.svc.ValidateCoupon(r.Context(), r.PathValue("code"), req.PurchaseAmountCents)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, res, "Coupon valid")
}

func (s *Server) handleCreateOffer(w http.ResponseWriter, r *http.Request) {
	var req domain.OfferCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	o, err := s.svc.CreateOffer(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusCreated, o, "Offer created")
}

func (s *Server) handleListOffers(w http.ResponseWriter, r *http.Request) {
	activeOnly := strings.EqualFold(r.URL.Query().Get("active"), "true")
	out, err := s.svc.ListOffers(r.Context(), activeOnly)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, out, "")
}

func (s *Server) handleGetOffer(w http.ResponseWriter, r *http.Request) {
	o, err := s.svc.GetOffer(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, o, "")
}

func (s *Server) handleUpdateOffer(w http.ResponseWriter, r *http.Request) {
	var req domain.OfferUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		s.writeError(w, err)
		return
	}
	o, err := s.svc.UpdateOffer(r.Context(), r.PathValue("id"), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, o, "Offer updated")
}

func (s *Server) handleDeactivateOffer(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.DeactivateOffer(r.Context(), r.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, nil, "Offer deactivated")
}

func (s *Server) handleDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.DashboardStats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeData(w, http.StatusOK, stats, "")
}
