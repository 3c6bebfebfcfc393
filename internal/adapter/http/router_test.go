package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/Markko1982/order-manager/configs"
	"github.com/Markko1982/order-manager/internal/adapter/http/middleware"
	"github.com/Markko1982/order-manager/internal/adapter/repo"
	"github.com/Markko1982/order-manager/internal/security"
	"github.com/Markko1982/order-manager/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type apiFixture struct {
	router *gin.Engine
}

func setupAPI(t *testing.T) *apiFixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store, err := repo.Open(context.Background(), "sqlite", ":memory:", repo.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := configs.Defaults()
	cfg.Security.JWTSecret = "test-secret"
	cfg.Security.Issuer = "order-api"
	cfg.Security.Audience = "order-clients"

	deps := usecase.Deps{
		Tx:         store,
		Products:   repo.NewProductRepo(store),
		Orders:     repo.NewOrderRepo(store),
		Categories: repo.NewCategoryRepo(store),
	}
	limits := RequestLimits{MaxItemQuantity: 50, DefaultPageSize: 20, MaxPageSize: 100}

	oh := NewOrderHandler(
		usecase.NewCreateOrder(deps, usecase.DefaultLimits()),
		usecase.NewUpdateOrderStatus(deps),
		usecase.NewDeleteOrder(deps),
		usecase.NewQueryOrders(deps),
		limits,
	)
	ph := NewProductHandler(usecase.NewCatalog(deps), limits)
	th := NewTokenHandler(cfg, security.DefaultClients())
	ch := NewCategoryHandler(usecase.NewCategories(deps))
	return &apiFixture{router: NewRouter(oh, ph, ch, th, middleware.NewAuthz(cfg))}
}

func (f *apiFixture) token(t *testing.T, id, secret string) string {
	t.Helper()
	form := url.Values{"client_id": {id}, "client_secret": {secret}}
	req := httptest.NewRequest(http.MethodPost, "/v1/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var out struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out.AccessToken
}

func (f *apiFixture) do(method, path, token string, body any) *httptest.ResponseRecorder {
	var rd *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		rd = bytes.NewReader(raw)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func (f *apiFixture) product(t *testing.T, admin, name, price string, stock int) int64 {
	t.Helper()
	w := f.do(http.MethodPost, "/v1/products", admin, map[string]any{"name": name, "price": price, "stock": stock})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return int64(decode(t, w)["id"].(float64))
}

func TestToken_InvalidClient(t *testing.T) {
	f := setupAPI(t)
	form := url.Values{"client_id": {"backoffice"}, "client_secret": {"nope"}}
	req := httptest.NewRequest(http.MethodPost, "/v1/token", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthz(t *testing.T) {
	f := setupAPI(t)

	w := f.do(http.MethodGet, "/v1/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = f.do(http.MethodGet, "/v1/orders", "garbage", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	reader := f.token(t, "svc-analytics", "ana-secret")
	w = f.do(http.MethodGet, "/v1/orders", reader, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(http.MethodDelete, "/v1/orders/1", reader, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestCreateAndFetchOrder(t *testing.T) {
	f := setupAPI(t)
	admin := f.token(t, "backoffice", "backoffice-secret")
	a := f.product(t, admin, "Monitor", "250.00", 10)
	b := f.product(t, admin, "Dock", "150.00", 5)

	w := f.do(http.MethodPost, "/v1/orders", admin, map[string]any{
		"items": []map[string]any{{"productId": a, "quantity": 2}, {"productId": b, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "650.00", created["total"])
	assert.Equal(t, "PENDING", created["status"])
	loc := w.Header().Get("Location")
	assert.Regexp(t, `^/v1/orders/\d+$`, loc)

	w = f.do(http.MethodGet, loc, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	got := decode(t, w)
	items := got["items"].([]any)
	require.Len(t, items, 2)
	first := items[0].(map[string]any)
	assert.Equal(t, "Monitor", first["productName"])
	assert.Equal(t, "500.00", first["subtotal"])

	w = f.do(http.MethodGet, "/v1/products/"+jsonID(a), admin, nil)
	assert.Equal(t, float64(8), decode(t, w)["stock"])
}

func TestCreateOrder_Rejections(t *testing.T) {
	f := setupAPI(t)
	admin := f.token(t, "backoffice", "backoffice-secret")
	p := f.product(t, admin, "Laptop", "600.00", 1)

	w := f.do(http.MethodPost, "/v1/orders", admin, map[string]any{"items": []any{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "validation_failed", decode(t, w)["error"])

	w = f.do(http.MethodPost, "/v1/orders", admin, map[string]any{
		"items": []map[string]any{{"productId": p, "quantity": 51}},
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	fields := decode(t, w)["fields"].(map[string]any)
	assert.Equal(t, "must be at most 50", fields["items[0].quantity"])

	w = f.do(http.MethodPost, "/v1/orders", admin, map[string]any{
		"items": []map[string]any{{"productId": p, "quantity": 5}},
	})
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, "insufficient_stock", body["error"])
	assert.Equal(t, "Laptop", body["productName"])

	q := f.product(t, admin, "Server", "1000.01", 3)
	w = f.do(http.MethodPost, "/v1/orders", admin, map[string]any{
		"items": []map[string]any{{"productId": q, "quantity": 1}},
	})
	require.Equal(t, http.StatusConflict, w.Code)
	body = decode(t, w)
	assert.Equal(t, "order_value_exceeded", body["error"])
	assert.Equal(t, "1000.01", body["total"])

	w = f.do(http.MethodPost, "/v1/orders", admin, map[string]any{
		"items": []map[string]any{{"productId": 9999, "quantity": 1}},
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOrderLifecycle(t *testing.T) {
	f := setupAPI(t)
	admin := f.token(t, "backoffice", "backoffice-secret")
	p := f.product(t, admin, "Pen", "1.00", 100)

	var ids []string
	for i := 0; i < 3; i++ {
		w := f.do(http.MethodPost, "/v1/orders", admin, map[string]any{
			"items": []map[string]any{{"productId": p, "quantity": 1}},
		})
		require.Equal(t, http.StatusCreated, w.Code)
		ids = append(ids, jsonID(int64(decode(t, w)["id"].(float64))))
	}

	w := f.do(http.MethodPut, "/v1/orders/"+ids[0]+"/status?status=confirmed", admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = f.do(http.MethodPut, "/v1/orders/"+ids[0]+"/status?status=PENDING", admin, nil)
	require.Equal(t, http.StatusConflict, w.Code)
	body := decode(t, w)
	assert.Equal(t, "invalid_transition", body["error"])
	assert.Equal(t, "CONFIRMED", body["from"])

	w = f.do(http.MethodPut, "/v1/orders/"+ids[0]+"/status?status=LOST", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodPut, "/v1/orders/777/status?status=CANCELLED", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/v1/orders?status=PENDING&page=0&size=1", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.Equal(t, float64(2), page["totalElements"])
	assert.Equal(t, float64(2), page["totalPages"])
	assert.Len(t, page["content"], 1)

	w = f.do(http.MethodGet, "/v1/orders?size=-1", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodDelete, "/v1/orders/"+ids[1], admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(http.MethodGet, "/v1/orders/"+ids[1], admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = f.do(http.MethodDelete, "/v1/orders/"+ids[1], admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = f.do(http.MethodGet, "/v1/orders/abc", admin, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProducts(t *testing.T) {
	f := setupAPI(t)
	admin := f.token(t, "backoffice", "backoffice-secret")
	f.product(t, admin, "Red Mug", "5", 1)
	f.product(t, admin, "Plate", "7.5", 1)

	w := f.do(http.MethodGet, "/v1/products?name=mug", admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode(t, w)
	assert.Equal(t, float64(1), page["totalElements"])
	first := page["content"].([]any)[0].(map[string]any)
	assert.Equal(t, "5.00", first["price"])

	w = f.do(http.MethodPost, "/v1/products", admin, map[string]any{"name": "", "price": "1", "stock": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	clerk := f.token(t, "simulated-client", "simulated-client-secret")
	w = f.do(http.MethodPost, "/v1/products", clerk, map[string]any{"name": "x", "price": "1", "stock": 1})
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestProducts_UpdateAndDelete(t *testing.T) {
	f := setupAPI(t)
	admin := f.token(t, "backoffice", "backoffice-secret")
	p := f.product(t, admin, "Cable", "3.00", 1)

	// drain the stock, then restock through an update
	w := f.do(http.MethodPost, "/v1/orders", admin, map[string]any{
		"items": []map[string]any{{"productId": p, "quantity": 1}},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	orderLoc := w.Header().Get("Location")

	w = f.do(http.MethodPut, "/v1/products/"+jsonID(p), admin, map[string]any{"name": "Cable 2m", "price": "4.50", "stock": 20})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	assert.Equal(t, "Cable 2m", body["name"])
	assert.Equal(t, "4.50", body["price"])
	assert.Equal(t, float64(20), body["stock"])

	w = f.do(http.MethodPut, "/v1/products/"+jsonID(p), admin, map[string]any{"name": "Cable", "price": "1", "stock": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = f.do(http.MethodPut, "/v1/products/999", admin, map[string]any{"name": "x", "price": "1", "stock": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)

	clerk := f.token(t, "simulated-client", "simulated-client-secret")
	w = f.do(http.MethodDelete, "/v1/products/"+jsonID(p), clerk, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodDelete, "/v1/products/"+jsonID(p), admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(http.MethodGet, "/v1/products/"+jsonID(p), admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	// the order keeps its line and price
	w = f.do(http.MethodGet, orderLoc, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	item := decode(t, w)["items"].([]any)[0].(map[string]any)
	assert.Equal(t, "Cable", item["productName"])
	assert.Equal(t, "3.00", item["unitPrice"])
}

func TestCategories(t *testing.T) {
	f := setupAPI(t)
	admin := f.token(t, "backoffice", "backoffice-secret")
	reader := f.token(t, "svc-analytics", "ana-secret")

	w := f.do(http.MethodPost, "/v1/categories", admin, map[string]any{"name": "Peripherals"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	loc := w.Header().Get("Location")
	f.do(http.MethodPost, "/v1/categories", admin, map[string]any{"name": "Cables"})

	w = f.do(http.MethodPost, "/v1/categories", admin, map[string]any{"name": "peripherals"})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "already_exists", decode(t, w)["error"])

	w = f.do(http.MethodPost, "/v1/categories", reader, map[string]any{"name": "Desks"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = f.do(http.MethodGet, "/v1/categories", reader, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 2)
	assert.Equal(t, "Cables", list[0]["name"])

	w = f.do(http.MethodPut, loc, admin, map[string]any{"name": "Input Devices"})
	require.Equal(t, http.StatusOK, w.Code)
	w = f.do(http.MethodGet, loc, reader, nil)
	assert.Equal(t, "Input Devices", decode(t, w)["name"])

	w = f.do(http.MethodPut, loc, admin, map[string]any{"name": " "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = f.do(http.MethodDelete, loc, admin, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = f.do(http.MethodDelete, loc, admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	f := setupAPI(t)

	w := f.do(http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))

	admin := f.token(t, "backoffice", "backoffice-secret")
	p := f.product(t, admin, "Cable", "1.00", 1)
	w = f.do(http.MethodPost, "/v1/orders", admin, map[string]any{
		"items": []map[string]any{{"productId": p, "quantity": 2}},
	})
	require.Equal(t, http.StatusConflict, w.Code)
	f.do(http.MethodGet, "/v1/orders/42", admin, nil)
	f.do(http.MethodGet, "/v1/orders", "", nil)

	w = f.do(http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `order_api_requests_total{method="GET",route="/healthz",status="200"}`)
	assert.Contains(t, body, `order_api_request_errors_total{code="insufficient_stock",route="/v1/orders"}`)
	assert.Contains(t, body, `order_api_request_errors_total{code="not_found",route="/v1/orders/:id"}`)
	assert.Contains(t, body, `order_api_request_errors_total{code="invalid_request",route="/v1/orders"}`)
}

func jsonID(id int64) string {
	raw, _ := json.Marshal(id)
	return string(raw)
}
