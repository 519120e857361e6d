package httpapi

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"smartstore/pos/internal/domain"
	"smartstore/pos/internal/sale"
	"smartstore/pos/internal/store/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	t.Setenv("SEED_ADMIN_PASSWORD", "admin123")
	t.Setenv("SEED_CASHIER_PASSWORD", "cashier123")

	repo := memory.NewSeeded()
	svc := sale.New(repo, nil)
	auth := NewAuthManager(testSecret, time.Hour, repo)
	return New(svc, auth, "http://127.0.0.1:3000").Handler()
}

func doJSON(t *testing.T, handler http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, handler http.Handler, username, password string) string {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{
		Username: username,
		Password: password,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: status %d, body %s", username, rec.Code, rec.Body.String())
	}
	var resp domain.LoginResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	if resp.AccessToken == "" {
		t.Fatalf("empty access token")
	}
	return resp.AccessToken
}

func TestHealthz(t *testing.T) {
	handler := newTestHandler(t)
	rec := doJSON(t, handler, http.MethodGet, "/healthz", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d", rec.Code)
	}
}

func TestListProductsRequiresToken(t *testing.T) {
	handler := newTestHandler(t)

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/products", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/products", "not-a-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 with garbage token, got %d", rec.Code)
	}
}

func TestListProductsAsCashier(t *testing.T) {
	handler := newTestHandler(t)
	token := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/products", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Products []domain.Product `json:"products"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Products) != 10 {
		t.Fatalf("expected 10 seeded products, got %d", len(resp.Products))
	}
}

func TestCashierCannotCreateProduct(t *testing.T) {
	handler := newTestHandler(t)
	token := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/products", token, domain.ProductCreateRequest{
		Name:           "Stylo Bleu",
		SellPriceCents: 250,
		Quantity:       5,
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestCheckoutEndToEnd(t *testing.T) {
	handler := newTestHandler(t)
	token := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/checkout", token, domain.CheckoutRequest{
		Lines:        []domain.CheckoutLineRequest{{ProductID: 1, Quantity: 2}},
		PaymentCents: 10000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d, body %s", rec.Code, rec.Body.String())
	}

	var resp domain.CheckoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Ticket.SubtotalCents != 7000 || resp.Ticket.TaxCents != 1330 || resp.Ticket.TotalPriceCents != 8330 {
		t.Fatalf("unexpected totals: %+v", resp.Ticket)
	}
	if resp.ChangeCents != 1670 {
		t.Fatalf("expected change 1670, got %d", resp.ChangeCents)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/products/1", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get product: status %d", rec.Code)
	}
	var productResp struct {
		Product domain.Product `json:"product"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &productResp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if productResp.Product.Quantity != 118 {
		t.Fatalf("expected stock 118 after sale, got %d", productResp.Product.Quantity)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/tickets/"+resp.Ticket.TicketNumber+"/receipt", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("receipt: status %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestCheckoutInsufficientStock(t *testing.T) {
	handler := newTestHandler(t)
	token := login(t, handler, "cashier", "cashier123")

	// Product 10 is seeded with 8 units.
	rec := doJSON(t, handler, http.MethodPost, "/api/v1/checkout", token, domain.CheckoutRequest{
		Lines:        []domain.CheckoutLineRequest{{ProductID: 10, Quantity: 9}},
		PaymentCents: 1000000,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d, body %s", rec.Code, rec.Body.String())
	}
}

func TestBarcodeLookupEndpoint(t *testing.T) {
	handler := newTestHandler(t)
	token := login(t, handler, "cashier", "cashier123")

	rec := doJSON(t, handler, http.MethodGet, "/api/v1/products/barcode/6130000000015", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Product domain.Product `json:"product"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Product.ID != 1 {
		t.Fatalf("expected product 1, got %d", resp.Product.ID)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/products/barcode/9999999999999", token, nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown code, got %d", rec.Code)
	}

	rec = doJSON(t, handler, http.MethodGet, "/api/v1/products/barcode/x!", token, nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed code, got %d", rec.Code)
	}
}

func TestVoidTicketAsAdmin(t *testing.T) {
	handler := newTestHandler(t)
	admin := login(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/checkout", admin, domain.CheckoutRequest{
		Lines:        []domain.CheckoutLineRequest{{ProductID: 1, Quantity: 1}},
		PaymentCents: 10000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: status %d", rec.Code)
	}
	var resp domain.CheckoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/tickets/"+resp.Ticket.TicketNumber+"/void", admin, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("void: status %d, body %s", rec.Code, rec.Body.String())
	}
	var voided struct {
		Ticket domain.Ticket `json:"ticket"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &voided); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if voided.Ticket.Status != domain.TicketStatusVoided {
		t.Fatalf("expected Voided, got %q", voided.Ticket.Status)
	}
}

func TestPutSettingChangesTaxRate(t *testing.T) {
	handler := newTestHandler(t)
	admin := login(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodPut, "/api/v1/settings/tax_rate", admin, map[string]string{"value": "10"})
	if rec.Code != http.StatusOK {
		t.Fatalf("put setting: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodPost, "/api/v1/checkout", admin, domain.CheckoutRequest{
		Lines:        []domain.CheckoutLineRequest{{ProductID: 1, Quantity: 1}},
		PaymentCents: 10000,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("checkout: status %d", rec.Code)
	}
	var resp domain.CheckoutResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Ticket.TaxCents != 350 || resp.Ticket.TotalPriceCents != 3850 {
		t.Fatalf("expected 10%% tax on 3500 (350/3850), got %d/%d", resp.Ticket.TaxCents, resp.Ticket.TotalPriceCents)
	}
}

func TestLoginRateLimit(t *testing.T) {
	handler := newTestHandler(t)

	for i := 0; i < 5; i++ {
		rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{
			Username: "admin",
			Password: fmt.Sprintf("wrong-%d", i),
		})
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i, rec.Code)
		}
	}

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{
		Username: "admin",
		Password: "wrong-again",
	})
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after limit, got %d", rec.Code)
	}
}

func TestCreateCashierEndpoint(t *testing.T) {
	handler := newTestHandler(t)
	admin := login(t, handler, "admin", "admin123")

	rec := doJSON(t, handler, http.MethodPost, "/api/v1/users/cashiers", admin, domain.CashierCreateRequest{
		Username: "karim",
		Password: "secret1",
		FullName: "Karim B",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create cashier: status %d, body %s", rec.Code, rec.Body.String())
	}

	// The new account can log in right away.
	token := login(t, handler, "karim", "secret1")
	rec = doJSON(t, handler, http.MethodGet, "/api/v1/products", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("new cashier list products: status %d", rec.Code)
	}
}

func TestCheckoutRejectsUnknownFields(t *testing.T) {
	handler := newTestHandler(t)
	token := login(t, handler, "cashier", "cashier123")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout", bytes.NewBufferString(`{"bogus":true}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown field, got %d", rec.Code)
	}
}
