package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"pharmapos/m/domain"
	"pharmapos/m/internal/database"
	"pharmapos/m/internal/migrations"
	"pharmapos/m/internal/repository"
	"pharmapos/m/internal/sales"
)

type testServer struct {
	t       *testing.T
	handler *Handler
	router  http.Handler
	repo    *repository.Repository
	admin   string
	cashier string
}

func newTestServer(t *testing.T, opts Options) *testServer {
	t.Helper()
	ctx := context.Background()
	db, err := database.Connect(ctx, database.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, migrations.Run(ctx, db))

	repo := repository.New(db, domain.DefaultLowStockThreshold)
	opts.Secret = "test-secret"
	h := New(repo, sales.NewCoordinator(repo, sales.Options{}), opts)
	s := &testServer{t: t, handler: h, router: h.Router(), repo: repo}
	s.admin = s.userToken("admin@example.com", domain.RoleAdmin)
	s.cashier = s.userToken("cashier@example.com", domain.RoleCashier)
	return s
}

func (s *testServer) userToken(email string, role domain.Role) string {
	s.t.Helper()
	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(s.t, err)
	u := domain.User{Username: strings.Split(email, "@")[0], Email: email, Password: string(hashed), Role: role}
	require.NoError(s.t, s.repo.CreateUser(context.Background(), &u))
	token, err := s.handler.generateToken(&u)
	require.NoError(s.t, err)
	return token
}

func (s *testServer) do(method, path, token string, body any, headers ...string) *httptest.ResponseRecorder {
	s.t.Helper()
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

// stock creates a store, a drug and an inventory row and returns their ids.
func (s *testServer) stock(quantity int) (drugID, storeID int64) {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/stores", s.admin, map[string]any{"name": "Tema Branch"})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	storeID = int64(decode(s.t, rec)["id"].(float64))

	rec = s.do(http.MethodPost, "/drugs", s.admin, map[string]any{"name": "Amoxicillin", "strength": "500mg", "form": "capsule"})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	drugID = int64(decode(s.t, rec)["id"].(float64))

	rec = s.do(http.MethodPost, "/inventory", s.admin, map[string]any{"drugId": drugID, "storeId": storeID, "quantity": quantity, "sellingPrice": 10})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	return drugID, storeID
}

func TestHealthAndMetrics(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_request_total")
}

func TestAuthGuards(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := s.do(http.MethodGet, "/drugs", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/drugs", "not-a-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/drugs", s.cashier, map[string]any{"name": "X", "form": "tablet"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPost, "/auth/register", s.cashier, map[string]any{"username": "u", "email": "u@example.com", "password": "password123", "role": "cashier"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginAndRegister(t *testing.T) {
	s := newTestServer(t, Options{})

	rec := s.do(http.MethodPost, "/auth/register", s.admin, map[string]any{
		"username": "kwame", "email": "Kwame@Example.com", "password": "password123", "role": "manager",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotContains(t, rec.Body.String(), "password123")

	rec = s.do(http.MethodPost, "/auth/register", s.admin, map[string]any{
		"username": "kwame", "email": "kwame@example.com", "password": "password123", "role": "manager",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "kwame@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/auth/login", "", map[string]any{"email": "kwame@example.com", "password": "password123"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	token := decode(t, rec)["token"].(string)

	rec = s.do(http.MethodPost, "/drugs", token, map[string]any{"name": "Metformin", "form": "tablet"})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestSaleFlow(t *testing.T) {
	s := newTestServer(t, Options{})
	drugID, storeID := s.stock(5)

	rec := s.do(http.MethodPost, "/sales", s.cashier, map[string]any{
		"drugId": drugID, "storeId": storeID, "quantity": 3, "discount": 10, "paymentMethod": "cash",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	receipt := decode(t, rec)
	sale := receipt["sale"].(map[string]any)
	assert.Equal(t, 30.0, sale["subtotal"])
	assert.Equal(t, 3.0, sale["discountAmount"])
	assert.Equal(t, 27.0, sale["totalAmount"])
	assert.Equal(t, "completed", sale["status"])
	inventory := receipt["inventory"].(map[string]any)
	assert.Equal(t, 2.0, inventory["quantity"])
	assert.Equal(t, "low_stock", inventory["status"])

	rec = s.do(http.MethodPost, "/sales", s.cashier, map[string]any{
		"drugId": drugID, "storeId": storeID, "quantity": 3, "paymentMethod": "cash",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, fmt.Sprintf("/inventory/%d/%d", drugID, storeID), s.cashier, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2.0, decode(t, rec)["quantity"])

	saleID := int64(sale["id"].(float64))
	rec = s.do(http.MethodPut, fmt.Sprintf("/sales/%d/refund", saleID), s.cashier, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodPut, fmt.Sprintf("/sales/%d/refund", saleID), s.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, 5.0, decode(t, rec)["inventory"].(map[string]any)["quantity"])

	rec = s.do(http.MethodPut, fmt.Sprintf("/sales/%d/refund", saleID), s.admin, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPut, "/sales/9999/cancel", s.admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSaleRequestErrors(t *testing.T) {
	s := newTestServer(t, Options{})
	drugID, storeID := s.stock(5)

	tests := []struct {
		name   string
		body   any
		status int
	}{
		{"malformed json", `{"drugId":`, http.StatusBadRequest},
		{"unknown field", map[string]any{"drugId": drugID, "storeId": storeID, "quantity": 1, "paymentMethod": "cash", "cashierId": 99}, http.StatusBadRequest},
		{"zero quantity", map[string]any{"drugId": drugID, "storeId": storeID, "quantity": 0, "paymentMethod": "cash"}, http.StatusUnprocessableEntity},
		{"bad payment method", map[string]any{"drugId": drugID, "storeId": storeID, "quantity": 1, "paymentMethod": "cheque"}, http.StatusUnprocessableEntity},
		{"unknown store", map[string]any{"drugId": drugID, "storeId": 999, "quantity": 1, "paymentMethod": "cash"}, http.StatusNotFound},
		{"quantity as string", map[string]any{"drugId": drugID, "storeId": storeID, "quantity": "2", "paymentMethod": "cash"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/sales", s.cashier, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestSaleRejectsRetiredDrugAndStore(t *testing.T) {
	s := newTestServer(t, Options{})
	drugID, storeID := s.stock(5)
	body := map[string]any{"drugId": drugID, "storeId": storeID, "quantity": 1, "paymentMethod": "cash"}

	rec := s.do(http.MethodDelete, fmt.Sprintf("/stores/%d", storeID), s.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/sales", s.cashier, body)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code, rec.Body.String())

	rec = s.do(http.MethodDelete, fmt.Sprintf("/drugs/%d", drugID), s.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, "/sales", s.cashier, body)
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, fmt.Sprintf("/inventory/%d/%d", drugID, storeID), s.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(5), decode(t, rec)["quantity"])
}

func TestStatusForCanceledContext(t *testing.T) {
	assert.Equal(t, statusClientClosedRequest, statusFor(fmt.Errorf("begin transaction: %w", context.Canceled)))

	req := httptest.NewRequest(http.MethodPost, "/sales", nil)
	rec := httptest.NewRecorder()
	respondDomainError(rec, req, context.Canceled)
	assert.Equal(t, statusClientClosedRequest, rec.Code)
	assert.Empty(t, rec.Body.String())
}

func TestSaleIdempotencyKey(t *testing.T) {
	s := newTestServer(t, Options{})
	drugID, storeID := s.stock(5)
	body := map[string]any{"drugId": drugID, "storeId": storeID, "quantity": 1, "paymentMethod": "mobile_money"}
	key := "0d7e3c9a-1f2b-4c5d-8e9f-a0b1c2d3e4f5"

	rec := s.do(http.MethodPost, "/sales", s.cashier, body, "Idempotency-Key", key)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	first := decode(t, rec)

	rec = s.do(http.MethodPost, "/sales", s.cashier, body, "Idempotency-Key", key)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	second := decode(t, rec)
	assert.Equal(t, true, second["replayed"])
	assert.Equal(t, first["sale"].(map[string]any)["id"], second["sale"].(map[string]any)["id"])
	assert.Equal(t, 4.0, second["inventory"].(map[string]any)["quantity"])

	rec = s.do(http.MethodPost, "/sales", s.cashier, body, "Idempotency-Key", "not-a-uuid")
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestSaleRateLimit(t *testing.T) {
	s := newTestServer(t, Options{RateLimitRate: 0.001, RateLimitBurst: 1})
	drugID, storeID := s.stock(5)
	body := map[string]any{"drugId": drugID, "storeId": storeID, "quantity": 1, "paymentMethod": "cash"}

	rec := s.do(http.MethodPost, "/sales", s.cashier, body)
	assert.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodPost, "/sales", s.cashier, body)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)

	rec = s.do(http.MethodGet, "/sales", s.cashier, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRestockAndListing(t *testing.T) {
	s := newTestServer(t, Options{})
	drugID, storeID := s.stock(0)

	rec := s.do(http.MethodGet, fmt.Sprintf("/inventory?status=out_of_stock&storeId=%d", storeID), s.cashier, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var items []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &items))
	require.Len(t, items, 1)

	rec = s.do(http.MethodPost, fmt.Sprintf("/inventory/%d/%d/stock", drugID, storeID), s.admin, map[string]any{"delta": 12})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "in_stock", decode(t, rec)["status"])

	rec = s.do(http.MethodPost, fmt.Sprintf("/inventory/%d/%d/stock", drugID, storeID), s.admin, map[string]any{"delta": -20})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, "/inventory?status=bogus", s.cashier, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCustomersAndPrescriptions(t *testing.T) {
	s := newTestServer(t, Options{})
	drugID, storeID := s.stock(5)
	doctor := s.userToken("doctor@example.com", domain.RoleDoctor)

	rec := s.do(http.MethodPost, "/customers", s.cashier, map[string]any{"name": "Abena", "phone": "024 123 4567", "dateOfBirth": "1990-05-01"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	customer := decode(t, rec)
	assert.Equal(t, "0241234567", customer["phone"])
	assert.NotNil(t, customer["age"])
	patientID := int64(customer["id"].(float64))

	rec = s.do(http.MethodPost, "/customers", s.cashier, map[string]any{"name": "Bad", "phone": "12345"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodPost, "/prescriptions", doctor, map[string]any{
		"patientId": patientID, "storeId": storeID,
		"prescribedDate": "2026-01-01T00:00:00Z", "expiryDate": "2099-01-01T00:00:00Z",
		"items": []map[string]any{{"drugId": drugID, "dosage": "1 capsule", "quantity": 14}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	prescription := decode(t, rec)
	assert.Equal(t, "active", prescription["status"])
	prescriptionID := int64(prescription["id"].(float64))

	rec = s.do(http.MethodPut, fmt.Sprintf("/prescriptions/%d/status", prescriptionID), s.cashier, map[string]any{"status": "expired"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(http.MethodPut, fmt.Sprintf("/prescriptions/%d/status", prescriptionID), s.cashier, map[string]any{"status": "completed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "completed", decode(t, rec)["status"])

	rec = s.do(http.MethodPut, fmt.Sprintf("/prescriptions/%d/status", prescriptionID), s.cashier, map[string]any{"status": "cancelled"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/sales", s.cashier, map[string]any{
		"drugId": drugID, "storeId": storeID, "customerId": patientID, "quantity": 1, "paymentMethod": "insurance",
	})
	assert.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestDailyReport(t *testing.T) {
	s := newTestServer(t, Options{})
	drugID, storeID := s.stock(5)

	rec := s.do(http.MethodPost, "/sales", s.cashier, map[string]any{"drugId": drugID, "storeId": storeID, "quantity": 2, "paymentMethod": "card"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodGet, fmt.Sprintf("/reports/sales/daily?storeId=%d", storeID), s.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	report := decode(t, rec)
	assert.Equal(t, 1.0, report["salesCount"])
	assert.Equal(t, 20.0, report["revenue"])

	rec = s.do(http.MethodGet, "/reports/sales?start_date=2026-13-01", s.admin, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
