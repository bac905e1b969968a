package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"supermart/backend/internal/service"
	"supermart/backend/internal/store/memory"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	svc := service.New(memory.NewSeeded(), service.Options{})
	return NewServer(svc, "http://localhost:3000").Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env map[string]any
	if rec.Body.Len() > 0 {
		if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
			t.Fatalf("decode response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, env
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)
	rec, env := doJSON(t, h, http.MethodGet, "/api/health", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if env["success"] != true {
		t.Fatalf("success = %v, want true", env["success"])
	}
}

func TestListProductsEnvelope(t *testing.T) {
	h := newTestHandler(t)
	rec, env := doJSON(t, h, http.MethodGet, "/api/products", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if env["total"] != float64(10) {
		t.Fatalf("total = %v, want 10", env["total"])
	}
	if env["current_page"] != float64(1) {
		t.Fatalf("current_page = %v, want 1", env["current_page"])
	}
	data, ok := env["data"].([]any)
	if !ok || len(data) != 10 {
		t.Fatalf("data = %v, want 10 products", env["data"])
	}
}

func TestProductPagination(t *testing.T) {
	h := newTestHandler(t)
	rec, env := doJSON(t, h, http.MethodGet, "/api/products?page=2&per_page=3", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if env["pages"] != float64(4) {
		t.Fatalf("pages = %v, want 4", env["pages"])
	}
	data := env["data"].([]any)
	if len(data) != 3 {
		t.Fatalf("page size = %d, want 3", len(data))
	}
}

func TestProductByBarcode(t *testing.T) {
	h := newTestHandler(t)
	rec, env := doJSON(t, h, http.MethodGet, "/api/products/barcode/1001", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	data := env["data"].(map[string]any)
	if data["name"] != "Milk" {
		t.Fatalf("name = %v, want Milk", data["name"])
	}

	rec, env = doJSON(t, h, http.MethodGet, "/api/products/barcode/9999", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if env["success"] != false {
		t.Fatalf("success = %v, want false", env["success"])
	}
}

func TestCreateProductRejectsUnknownFields(t *testing.T) {
	h := newTestHandler(t)
	rec, _ := doJSON(t, h, http.MethodPost, "/api/products", map[string]any{
		"barcode": "2001", "name": "Honey", "price_cents": 9900, "bogus": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCheckoutFlow(t *testing.T) {
	h := newTestHandler(t)

	_, env := doJSON(t, h, http.MethodGet, "/api/products/barcode/1001", nil)
	milkID := env["data"].(map[string]any)["id"].(string)

	rec, env := doJSON(t, h, http.MethodPost, "/api/bills", map[string]any{
		"items": []map[string]any{{"product_id": milkID, "quantity": 2}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %v", rec.Code, env)
	}
	bill := env["data"].(map[string]any)["bill"].(map[string]any)
	if bill["total_cents"] != float64(10500) {
		t.Fatalf("total = %v, want 10500", bill["total_cents"])
	}
	billID := bill["id"].(string)
	number := bill["bill_number"].(string)
	if !strings.HasPrefix(number, "BILL-") {
		t.Fatalf("bill number = %s", number)
	}

	rec, env = doJSON(t, h, http.MethodGet, "/api/bills/"+billID, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get bill status = %d", rec.Code)
	}
	items := env["data"].(map[string]any)["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/api/bills/"+billID+"/payment", map[string]any{
		"payment_mode": "card", "reference_number": "AUTH-42",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("payment status = %d", rec.Code)
	}

	rec, env = doJSON(t, h, http.MethodPost, "/api/bills/"+billID+"/return", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("return status = %d: %v", rec.Code, env)
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/api/bills/"+billID+"/return", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("double return status = %d, want 400", rec.Code)
	}
}

func TestCreateBillUnknownProductIs404(t *testing.T) {
	h := newTestHandler(t)
	rec, _ := doJSON(t, h, http.MethodPost, "/api/bills", map[string]any{
		"items": []map[string]any{{"product_id": "nope", "quantity": 1}},
	})
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCreateBillEmptyItemsIs400(t *testing.T) {
	h := newTestHandler(t)
	rec, _ := doJSON(t, h, http.MethodPost, "/api/bills", map[string]any{"items": []any{}})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHoldList(t *testing.T) {
	h := newTestHandler(t)

	_, env := doJSON(t, h, http.MethodGet, "/api/products/barcode/1002", nil)
	breadID := env["data"].(map[string]any)["id"].(string)

	rec, _ := doJSON(t, h, http.MethodPost, "/api/bills", map[string]any{
		"items": []map[string]any{{"product_id": breadID, "quantity": 1}},
		"hold":  true,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create hold status = %d", rec.Code)
	}

	rec, env = doJSON(t, h, http.MethodGet, "/api/bills/hold-list", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("hold list status = %d", rec.Code)
	}
	if env["total"] != float64(1) {
		t.Fatalf("held bills = %v, want 1", env["total"])
	}
}

func TestValidateCouponEndpoint(t *testing.T) {
	h := newTestHandler(t)

	rec, env := doJSON(t, h, http.MethodPost, "/api/discounts/validate-coupon/SAVE10", map[string]any{
		"purchase_amount_cents": 60000,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %v", rec.Code, env)
	}
	data := env["data"].(map[string]any)
	if data["discount_cents"] != float64(6000) {
		t.Fatalf("discount = %v, want 6000", data["discount_cents"])
	}

	rec, env = doJSON(t, h, http.MethodPost, "/api/discounts/validate-coupon/SAVE10", map[string]any{
		"purchase_amount_cents": 100,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if !strings.Contains(fmt.Sprint(env["error"]), "minimum purchase") {
		t.Fatalf("error = %v, want minimum purchase reason", env["error"])
	}
}

func TestGetOfferByID(t *testing.T) {
	h := newTestHandler(t)

	// The seeded bread BOGO is the only offer on a fresh store.
	_, env := doJSON(t, h, http.MethodGet, "/api/discounts/offers", nil)
	offers := env["data"].([]any)
	if len(offers) != 1 {
		t.Fatalf("offers = %d, want 1", len(offers))
	}
	id := offers[0].(map[string]any)["id"].(string)

	rec, env := doJSON(t, h, http.MethodGet, "/api/discounts/offers/"+id, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := env["data"].(map[string]any)
	if got["id"] != id || got["offer_type"] != "bogo" {
		t.Fatalf("offer = %+v, want seeded bogo %s", got, id)
	}

	rec, _ = doJSON(t, h, http.MethodGet, "/api/discounts/offers/nope", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestRedeemPointsEndpoint(t *testing.T) {
	h := newTestHandler(t)

	_, env := doJSON(t, h, http.MethodGet, "/api/customers/mobile/9876543210", nil)
	custID := env["data"].(map[string]any)["id"].(string)

	rec, _ := doJSON(t, h, http.MethodPost, "/api/customers/"+custID+"/add-points", map[string]any{"points": 40})
	if rec.Code != http.StatusOK {
		t.Fatalf("add points status = %d", rec.Code)
	}

	rec, env = doJSON(t, h, http.MethodPost, "/api/customers/"+custID+"/redeem-points", map[string]any{"points": 10})
	if rec.Code != http.StatusOK {
		t.Fatalf("redeem status = %d", rec.Code)
	}
	data := env["data"].(map[string]any)
	if data["discount_cents"] != float64(100) {
		t.Fatalf("discount = %v, want 100", data["discount_cents"])
	}

	rec, _ = doJSON(t, h, http.MethodPost, "/api/customers/"+custID+"/redeem-points", map[string]any{"points": 1000})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("over-redeem status = %d, want 400", rec.Code)
	}
}

func TestDashboardStatsEndpoint(t *testing.T) {
	h := newTestHandler(t)
	rec, env := doJSON(t, h, http.MethodGet, "/api/dashboard/stats", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	data := env["data"].(map[string]any)
	if data["total_products"] != float64(10) {
		t.Fatalf("total_products = %v, want 10", data["total_products"])
	}
}

func TestSecurityHeadersAndCORS(t *testing.T) {
	h := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Content-Type-Options"); got != "nosniff" {
		t.Fatalf("X-Content-Type-Options = %q", got)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "http://localhost:3000" {
		t.Fatalf("Allow-Origin = %q", got)
	}

	req = httptest.NewRequest(http.MethodOptions, "/api/products", nil)
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", rec.Code)
	}
}

func TestBodySizeCap(t *testing.T) {
	h := newTestHandler(t)
	big := bytes.Repeat([]byte("a"), maxBodyBytes+1)
	body := fmt.Sprintf(`{"barcode": "3001", "name": %q, "price_cents": 100}`, big)
	req := httptest.NewRequest(http.MethodPost, "/api/products", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400 for oversized body", rec.Code)
	}
}
