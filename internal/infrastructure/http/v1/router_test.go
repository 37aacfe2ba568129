package v1

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tillpoint/internal/app/apptest"
	"tillpoint/internal/core/apperror"
	"tillpoint/internal/core/id"
	"tillpoint/internal/core/types"
	"tillpoint/internal/infrastructure/http/v1/dto"
	"tillpoint/internal/infrastructure/http/v1/middleware"
	"tillpoint/pkg/logger"
)

type testServer struct {
	env    *apptest.Env
	router *gin.Engine
}

func newTestServer(t *testing.T, tune func(*apptest.Env, *RouterConfig)) *testServer {
	t.Helper()
	env := apptest.New(t)
	cfg := RouterConfig{
		Services: env.Services,
		Logger:   logger.Nop(),
		Storage:  "memory",
		Clock:    env.Clock.Now,
	}
	if tune != nil {
		tune(env, &cfg)
	}
	return &testServer{env: env, router: NewRouter(cfg)}
}

func (s *testServer) do(t *testing.T, method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func requireError(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	assert.Equal(t, code, decode[dto.ErrorResponse](t, w).Code)
}

// seed creates a product with one batch of qty units selling at 12.50.
func (s *testServer) seed(t *testing.T, qty types.Quantity) (dto.ProductResponse, dto.BatchResponse) {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/v1/products", map[string]any{
		"name":                 "Paracetamol 500mg",
		"category":             "pharmacy/analgesics",
		"barcodes":             []string{id.New().String()},
		"batchTrackingEnabled": true,
		"lowStockThreshold":    10,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	product := decode[dto.ProductResponse](t, w)

	w = s.do(t, http.MethodPost, "/api/v1/products/"+product.ID+"/batches", map[string]any{
		"quantity":     qty,
		"costPrice":    "8.00",
		"sellingPrice": "12.50",
		"mrp":          "15.00",
		"expiryDate":   "2026-04-01",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return product, decode[dto.BatchResponse](t, w)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/health/live", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = s.do(t, http.MethodGet, "/health/ready", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"memory":"healthy"`)
}

func TestTraceHeaders(t *testing.T) {
	s := newTestServer(t, nil)

	w := s.do(t, http.MethodGet, "/health/live", nil, middleware.HeaderRequestID, "req-42")
	assert.Equal(t, "req-42", w.Header().Get(middleware.HeaderRequestID))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t, func(_ *apptest.Env, cfg *RouterConfig) {
		cfg.CORSOrigins = []string{"https://till.example.com"}
	})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sales", nil)
	req.Header.Set("Origin", "https://till.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	req.Header.Set("Access-Control-Request-Headers", middleware.HeaderIdempotencyKey)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://till.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestProductAndBatchEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	product, b := s.seed(t, 10)

	assert.Equal(t, "Paracetamol 500mg", product.Name)
	assert.EqualValues(t, 10, b.Quantity)
	assert.Equal(t, product.ID, b.ProductID)

	w := s.do(t, http.MethodGet, "/api/v1/products/barcode/"+product.Barcodes[0], nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, product.ID, decode[dto.ProductResponse](t, w).ID)

	w = s.do(t, http.MethodGet, "/api/v1/products?category=pharmacy", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[dto.ListResponse[dto.ProductResponse]](t, w).TotalCount)

	w = s.do(t, http.MethodPost, "/api/v1/batches/"+b.ID+"/add-stock", map[string]any{"quantity": 5})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 15, decode[dto.BatchResponse](t, w).Quantity)

	w = s.do(t, http.MethodPost, "/api/v1/batches/"+b.ID+"/adjust", map[string]any{"quantity": -3, "note": "damaged"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.EqualValues(t, 12, decode[dto.BatchResponse](t, w).Quantity)

	w = s.do(t, http.MethodPut, "/api/v1/batches/"+b.ID+"/pricing", map[string]any{
		"costPrice": "8.00", "sellingPrice": "16.00", "mrp": "15.00",
	})
	requireError(t, w, http.StatusUnprocessableEntity, apperror.CodeSellingAboveMrp)

	w = s.do(t, http.MethodPut, "/api/v1/batches/"+b.ID+"/pricing", map[string]any{
		"costPrice": "8.00", "sellingPrice": "13.00", "mrp": "15.00",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.True(t, decode[dto.BatchResponse](t, w).SellingPrice.Equal(apptest.M("13")))

	w = s.do(t, http.MethodGet, "/api/v1/batches/"+b.ID+"/history", nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[struct {
		Items []json.RawMessage `json:"items"`
	}](t, w)
	assert.NotEmpty(t, history.Items)

	w = s.do(t, http.MethodGet, "/api/v1/products/"+product.ID+"/batches", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[struct {
		Items []dto.BatchResponse `json:"items"`
	}](t, w).Items, 1)

	w = s.do(t, http.MethodGet, "/api/v1/products/"+product.ID+"/movements", nil)
	require.Equal(t, http.StatusOK, w.Code)
	// add-stock and adjustment; the opening quantity is not a movement
	assert.Len(t, decode[dto.MovementListResponse](t, w).Items, 2)

	w = s.do(t, http.MethodGet, "/api/v1/products/"+product.ID+"/summary", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestRequestValidation(t *testing.T) {
	s := newTestServer(t, nil)

	tests := []struct {
		name string
		body string
	}{
		{"unknown field", `{"name":"Soap","barcodes":["111"],"batchTrackingEnabled":true,"colour":"red"}`},
		{"missing required field", `{"name":"Soap","barcodes":["111"]}`},
		{"empty barcodes", `{"name":"Soap","barcodes":[],"batchTrackingEnabled":true}`},
		{"malformed json", `{"name":`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, "/api/v1/products", tt.body)
			requireError(t, w, http.StatusBadRequest, apperror.CodeValidation)
		})
	}

	w := s.do(t, http.MethodGet, "/api/v1/batches/not-a-uuid", nil)
	requireError(t, w, http.StatusBadRequest, apperror.CodeValidation)

	w = s.do(t, http.MethodGet, "/api/v1/sales?from=2026-03-10&to=2026-03-01", nil)
	requireError(t, w, http.StatusBadRequest, apperror.CodeValidation)
}

func TestQuantityBounds(t *testing.T) {
	s := newTestServer(t, nil)
	_, b := s.seed(t, 10)

	w := s.do(t, http.MethodPost, "/api/v1/sales", map[string]any{
		"items": []map[string]any{{"batchId": b.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sold := decode[dto.SaleResponse](t, w)

	huge := fmt.Sprint(int64(math.MaxInt64))
	tests := []struct {
		name string
		path string
		body string
	}{
		{"sale line", "/api/v1/sales", `{"items":[{"batchId":"` + b.ID + `","quantity":` + huge + `}]}`},
		{"return line", "/api/v1/sales/" + sold.ID + "/returns", `{"items":[{"saleItemId":"` + sold.Items[0].ID + `","quantity":` + huge + `}]}`},
		{"add stock", "/api/v1/batches/" + b.ID + "/add-stock", `{"quantity":` + huge + `}`},
		{"adjust up", "/api/v1/batches/" + b.ID + "/adjust", `{"quantity":` + huge + `}`},
		{"adjust down", "/api/v1/batches/" + b.ID + "/adjust", `{"quantity":-` + huge + `}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(t, http.MethodPost, tt.path, tt.body)
			requireError(t, w, http.StatusBadRequest, apperror.CodeValidation)
		})
	}
	assert.EqualValues(t, 9, s.env.Quantity(t, id.MustParse(b.ID)))

	w = s.do(t, http.MethodPost, "/api/v1/sales/"+sold.ID+"/returns", map[string]any{
		"items": []map[string]any{{"saleItemId": sold.Items[0].ID, "quantity": 0}},
	})
	requireError(t, w, http.StatusUnprocessableEntity, apperror.CodeOverReturn)
}

type failingBody struct{}

func (failingBody) Read([]byte) (int, error) { return 0, errors.New("connection reset by peer") }

func TestIdempotencyBodyReadError(t *testing.T) {
	s := newTestServer(t, func(env *apptest.Env, cfg *RouterConfig) {
		cfg.Idempotency = env.Store.Idempotency(time.Hour, env.Clock.Now)
	})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/sales", failingBody{})
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(middleware.HeaderIdempotencyKey, "till-1-0009")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	requireError(t, w, http.StatusBadRequest, apperror.CodeValidation)

	// The key was never acquired, so a good retry runs normally.
	_, b := s.seed(t, 5)
	w = s.do(t, http.MethodPost, "/api/v1/sales", map[string]any{
		"items": []map[string]any{{"batchId": b.ID, "quantity": 1}},
	}, middleware.HeaderIdempotencyKey, "till-1-0009")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Empty(t, w.Header().Get("Idempotent-Replayed"))
}

func TestNotFound(t *testing.T) {
	s := newTestServer(t, nil)
	missing := id.New().String()

	requireError(t, s.do(t, http.MethodGet, "/api/v1/products/"+missing, nil), http.StatusNotFound, apperror.CodeProductNotFound)
	requireError(t, s.do(t, http.MethodGet, "/api/v1/batches/"+missing, nil), http.StatusNotFound, apperror.CodeBatchNotFound)
	requireError(t, s.do(t, http.MethodGet, "/api/v1/sales/"+missing, nil), http.StatusNotFound, apperror.CodeSaleNotFound)
	requireError(t, s.do(t, http.MethodGet, "/api/v1/products/"+missing+"/movements", nil), http.StatusNotFound, apperror.CodeProductNotFound)

	w := s.do(t, http.MethodPost, "/api/v1/sales", map[string]any{
		"items": []map[string]any{{"batchId": missing, "quantity": 1}},
	})
	requireError(t, w, http.StatusNotFound, apperror.CodeBatchNotFound)
}

func TestSaleAndReturn(t *testing.T) {
	s := newTestServer(t, nil)
	_, b := s.seed(t, 10)

	w := s.do(t, http.MethodPost, "/api/v1/sales", map[string]any{
		"items": []map[string]any{{"batchId": b.ID, "quantity": 100}},
	})
	requireError(t, w, http.StatusUnprocessableEntity, apperror.CodeInsufficientStock)

	w = s.do(t, http.MethodPost, "/api/v1/sales", map[string]any{
		"items": []map[string]any{{"batchId": b.ID, "quantity": 2}},
	}, middleware.HeaderOperatorID, "cashier-7")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sold := decode[dto.SaleResponse](t, w)
	require.Len(t, sold.Items, 1)
	assert.True(t, sold.Total.Equal(apptest.M("25")), sold.Total.String())
	assert.True(t, sold.GrossProfit.Equal(apptest.M("9")), sold.GrossProfit.String())
	require.NotNil(t, sold.OperatorID)
	assert.Equal(t, "cashier-7", *sold.OperatorID)
	assert.EqualValues(t, 8, s.env.Quantity(t, id.MustParse(b.ID)))

	w = s.do(t, http.MethodPost, "/api/v1/sales", map[string]any{"items": []map[string]any{}})
	requireError(t, w, http.StatusBadRequest, apperror.CodeEmptySale)

	returnPath := "/api/v1/sales/" + sold.ID + "/returns"
	w = s.do(t, http.MethodPost, returnPath, map[string]any{
		"items": []map[string]any{{"saleItemId": sold.Items[0].ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	after := decode[dto.SaleResponse](t, w)
	assert.EqualValues(t, 1, after.Items[0].ReturnedQuantity)
	assert.EqualValues(t, 9, s.env.Quantity(t, id.MustParse(b.ID)))

	w = s.do(t, http.MethodPost, returnPath, map[string]any{
		"items": []map[string]any{{"saleItemId": sold.Items[0].ID, "quantity": 2}},
	})
	requireError(t, w, http.StatusUnprocessableEntity, apperror.CodeOverReturn)

	w = s.do(t, http.MethodGet, returnPath, nil)
	require.Equal(t, http.StatusOK, w.Code)
	returns := decode[struct {
		Items []dto.ReturnResponse `json:"items"`
	}](t, w)
	require.Len(t, returns.Items, 1)
	assert.True(t, returns.Items[0].Amount.Equal(apptest.M("12.5")))

	w = s.do(t, http.MethodGet, "/api/v1/sales?from=2026-03-10&to=2026-03-11", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 1, decode[dto.ListResponse[dto.SaleResponse]](t, w).TotalCount)
}

func TestIdempotentSale(t *testing.T) {
	s := newTestServer(t, func(env *apptest.Env, cfg *RouterConfig) {
		cfg.Idempotency = env.Store.Idempotency(time.Hour, env.Clock.Now)
	})
	_, b := s.seed(t, 10)

	body := map[string]any{"items": []map[string]any{{"batchId": b.ID, "quantity": 3}}}
	first := s.do(t, http.MethodPost, "/api/v1/sales", body, middleware.HeaderIdempotencyKey, "till-1-0001")
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := s.do(t, http.MethodPost, "/api/v1/sales", body, middleware.HeaderIdempotencyKey, "till-1-0001")
	require.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.Equal(t, decode[dto.SaleResponse](t, first).ID, decode[dto.SaleResponse](t, second).ID)
	assert.EqualValues(t, 7, s.env.Quantity(t, id.MustParse(b.ID)))

	other := map[string]any{"items": []map[string]any{{"batchId": b.ID, "quantity": 1}}}
	w := s.do(t, http.MethodPost, "/api/v1/sales", other, middleware.HeaderIdempotencyKey, "till-1-0001")
	requireError(t, w, http.StatusConflict, apperror.CodeIdempotency)

	// A rejected request is replayed too, not re-executed.
	tooMany := map[string]any{"items": []map[string]any{{"batchId": b.ID, "quantity": 50}}}
	w = s.do(t, http.MethodPost, "/api/v1/sales", tooMany, middleware.HeaderIdempotencyKey, "till-1-0002")
	requireError(t, w, http.StatusUnprocessableEntity, apperror.CodeInsufficientStock)
	w = s.do(t, http.MethodPost, "/api/v1/sales", tooMany, middleware.HeaderIdempotencyKey, "till-1-0002")
	requireError(t, w, http.StatusUnprocessableEntity, apperror.CodeInsufficientStock)
	assert.Equal(t, "true", w.Header().Get("Idempotent-Replayed"))
}

func TestRateLimit(t *testing.T) {
	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: 0.001,
		BurstSize:         2,
	})
	s := newTestServer(t, func(_ *apptest.Env, cfg *RouterConfig) {
		cfg.RateLimiter = limiter
	})

	for range 2 {
		w := s.do(t, http.MethodPost, "/api/v1/products", `{}`, middleware.HeaderTerminalID, "till-1")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	}
	w := s.do(t, http.MethodPost, "/api/v1/products", `{}`, middleware.HeaderTerminalID, "till-1")
	requireError(t, w, http.StatusTooManyRequests, apperror.CodeRateLimited)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Other terminals and reads are not throttled.
	w = s.do(t, http.MethodPost, "/api/v1/products", `{}`, middleware.HeaderTerminalID, "till-2")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = s.do(t, http.MethodGet, "/api/v1/products", nil, middleware.HeaderTerminalID, "till-1")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2, limiter.Clients())
}

func TestPromotionEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	product, b := s.seed(t, 10)

	w := s.do(t, http.MethodPost, "/api/v1/promotions", map[string]any{
		"name":      "March deal",
		"startDate": "2026-03-01",
		"endDate":   "2026-03-31",
		"items":     []map[string]any{{"productId": product.ID, "promoPrice": "10.00"}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	promo := decode[dto.PromotionResponse](t, w)
	assert.True(t, promo.IsActive)

	w = s.do(t, http.MethodGet, "/api/v1/promotions/resolve?productId="+product.ID, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resolved := decode[dto.ResolvedPriceResponse](t, w)
	require.NotNil(t, resolved.Promotion)
	assert.True(t, resolved.Promotion.Price.Equal(apptest.M("10")))
	assert.Equal(t, "2026-03-10", resolved.Date.Format(time.DateOnly))

	w = s.do(t, http.MethodGet, "/api/v1/promotions/resolve?productId="+product.ID+"&date=2026-04-15", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[dto.ResolvedPriceResponse](t, w).Promotion)

	w = s.do(t, http.MethodPost, "/api/v1/sales", map[string]any{
		"items": []map[string]any{{"batchId": b.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sold := decode[dto.SaleResponse](t, w)
	assert.True(t, sold.Total.Equal(apptest.M("10")), sold.Total.String())
	require.NotNil(t, sold.Items[0].PromotionID)
	assert.Equal(t, promo.ID, *sold.Items[0].PromotionID)

	w = s.do(t, http.MethodPatch, "/api/v1/promotions/"+promo.ID+"/active", map[string]any{"isActive": false})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.False(t, decode[dto.PromotionResponse](t, w).IsActive)

	w = s.do(t, http.MethodGet, "/api/v1/promotions/resolve?productId="+product.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Nil(t, decode[dto.ResolvedPriceResponse](t, w).Promotion)

	w = s.do(t, http.MethodGet, "/api/v1/promotions?activeOnly=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode[dto.ListResponse[dto.PromotionResponse]](t, w).TotalCount)
}

func TestReportEndpoints(t *testing.T) {
	s := newTestServer(t, nil)
	_, b := s.seed(t, 3)

	w := s.do(t, http.MethodPost, "/api/v1/sales", map[string]any{
		"items": []map[string]any{{"batchId": b.ID, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/reports/low-stock", nil)
	require.Equal(t, http.StatusOK, w.Code)
	low := decode[dto.LowStockResponse](t, w)
	require.Len(t, low.Items, 1)
	assert.EqualValues(t, 2, low.Items[0].TotalQuantity)

	w = s.do(t, http.MethodGet, "/api/v1/reports/expiring?days=30", nil)
	require.Equal(t, http.StatusOK, w.Code)
	expiring := decode[dto.ExpiringResponse](t, w)
	assert.Equal(t, 30, expiring.Days)
	require.Len(t, expiring.Items, 1)
	assert.Equal(t, b.ID, expiring.Items[0].BatchID.String())

	w = s.do(t, http.MethodGet, "/api/v1/reports/valuation", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(t, http.MethodGet, "/api/v1/reports/daily-sales?from=2026-03-10&to=2026-03-11", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	days := decode[dto.DailySalesResponse](t, w)
	require.Len(t, days.Items, 1)
	assert.EqualValues(t, 1, days.Items[0].SalesCount)
	assert.True(t, days.Items[0].Revenue.Equal(apptest.M("12.5")))
}
