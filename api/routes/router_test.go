package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/retailpos-backend/internal/catalog"
	"github.com/angelmondragon/retailpos-backend/internal/checkout"
	"github.com/angelmondragon/retailpos-backend/internal/customers"
	"github.com/angelmondragon/retailpos-backend/internal/inventory"
	"github.com/angelmondragon/retailpos-backend/internal/sales"
	"github.com/angelmondragon/retailpos-backend/pkg/config"
	"github.com/angelmondragon/retailpos-backend/pkg/db/dbtest"
	"github.com/angelmondragon/retailpos-backend/pkg/enums"
	"github.com/angelmondragon/retailpos-backend/pkg/logger"
	"github.com/angelmondragon/retailpos-backend/pkg/metrics"
	"github.com/angelmondragon/retailpos-backend/pkg/outbox"
)

type memoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *memoryStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memoryStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	m.data[key] = fmt.Sprint(value)
	return true, nil
}

func (m *memoryStore) IdempotencyKey(scope, id string) string {
	return "test:" + scope + ":" + id
}

type okPinger struct{}

func (okPinger) Ping(context.Context) error { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	client, conn := dbtest.OpenClient(t)
	logg := logger.Nop()
	reg := prometheus.NewRegistry()
	salesMetrics := metrics.NewSalesMetrics(reg)

	cfg := &config.Config{
		App:       config.AppConfig{Env: "dev"},
		Inventory: config.InventoryConfig{LowStockThreshold: 5},
		Sales:     config.SalesConfig{DefaultPaymentMethod: "cash", IdempotencyTTL: time.Hour},
	}

	productRepo := catalog.NewRepository(conn)
	movementRepo := inventory.NewMovementRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	catalogSvc, err := catalog.NewService(productRepo)
	require.NoError(t, err)
	customerSvc, err := customers.NewService(customers.NewRepository(conn))
	require.NoError(t, err)
	salesSvc, err := sales.NewService(sales.NewRepository(conn))
	require.NoError(t, err)
	inventorySvc, err := inventory.NewService(inventory.ServiceParams{
		TxRunner:  client,
		Products:  productRepo,
		Movements: movementRepo,
		Outbox:    emitter,
		Metrics:   salesMetrics,
		Logger:    logg,
		Config:    cfg.Inventory,
	})
	require.NoError(t, err)
	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		TxRunner:             client,
		Products:             productRepo,
		Movements:            movementRepo,
		Ledger:               salesSvc,
		Customers:            customerSvc,
		Outbox:               emitter,
		Metrics:              salesMetrics,
		Logger:               logg,
		LowStockThreshold:    cfg.Inventory.LowStockThreshold,
		DefaultPaymentMethod: enums.PaymentMethodCash,
	})
	require.NoError(t, err)

	handler := NewRouter(cfg, logg, Dependencies{
		DB:          okPinger{},
		Idempotency: &memoryStore{data: map[string]string{}},
		Gatherer:    reg,
	}, Services{
		Catalog:   catalogSvc,
		Customers: customerSvc,
		Sales:     salesSvc,
		Checkout:  checkoutSvc,
		Inventory: inventorySvc,
	})
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, headers map[string]string) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]any{}
	if resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	}
	return resp.StatusCode, out
}

func data(t *testing.T, body map[string]any) map[string]any {
	t.Helper()
	d, ok := body["data"].(map[string]any)
	require.True(t, ok, "missing data in %v", body)
	return d
}

func errorCode(body map[string]any) string {
	e, _ := body["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestRouterSaleFlow(t *testing.T) {
	srv := newTestServer(t)
	api := srv.URL + "/api/v1"

	status, body := doJSON(t, http.MethodPost, api+"/products", map[string]any{
		"name": "Laptop", "category": "Electronics", "price": "1200.00", "quantity": 6,
	}, nil)
	require.Equal(t, http.StatusCreated, status, body)
	productID := data(t, body)["id"].(string)

	status, body = doJSON(t, http.MethodPost, api+"/customers", map[string]any{
		"name": "John Doe", "email": "john@example.com",
	}, nil)
	require.Equal(t, http.StatusCreated, status, body)
	customerID := data(t, body)["id"].(string)

	status, body = doJSON(t, http.MethodPost, api+"/sales", map[string]any{
		"customerId":    customerID,
		"items":         []map[string]any{{"productId": productID, "quantity": 2}},
		"paymentMethod": "card",
	}, nil)
	require.Equal(t, http.StatusCreated, status, body)
	sale := data(t, body)
	assert.Equal(t, "2400", sale["total"])
	assert.Equal(t, "card", sale["paymentMethod"])
	assert.Equal(t, "John Doe", sale["customerName"])
	saleID := sale["id"].(string)

	status, body = doJSON(t, http.MethodGet, api+"/products/"+productID, nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 4, data(t, body)["quantity"])

	status, body = doJSON(t, http.MethodGet, api+"/customers/"+customerID, nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "2400", data(t, body)["totalPurchases"])
	assert.NotNil(t, data(t, body)["lastPurchase"])

	status, body = doJSON(t, http.MethodGet, api+"/sales/"+saleID, nil, nil)
	require.Equal(t, http.StatusOK, status)
	items := data(t, body)["items"].([]any)
	require.Len(t, items, 1)
	assert.Equal(t, "Laptop", items[0].(map[string]any)["productName"])

	status, body = doJSON(t, http.MethodGet, api+"/inventory/low-stock", nil, nil)
	require.Equal(t, http.StatusOK, status)
	alerts := body["data"].([]any)
	require.Len(t, alerts, 1)
	assert.Equal(t, productID, alerts[0].(map[string]any)["productId"])

	status, body = doJSON(t, http.MethodPost, api+"/sales", map[string]any{
		"items": []map[string]any{{"productId": productID, "quantity": 5}},
	}, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", errorCode(body))

	status, body = doJSON(t, http.MethodPost, api+"/sales", map[string]any{"items": []any{}}, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "EMPTY_BASKET", errorCode(body))

	status, body = doJSON(t, http.MethodGet, api+"/sales", nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, data(t, body)["sales"].([]any), 1)
}

func TestRouterStockAdjustAndMovements(t *testing.T) {
	srv := newTestServer(t)
	api := srv.URL + "/api/v1"

	status, body := doJSON(t, http.MethodPost, api+"/products", map[string]any{
		"name": "Headphones", "price": "250", "quantity": 10,
	}, nil)
	require.Equal(t, http.StatusCreated, status, body)
	productID := data(t, body)["id"].(string)

	status, body = doJSON(t, http.MethodPatch, api+"/products/"+productID+"/stock", map[string]any{
		"quantityChange": 5, "note": "delivery",
	}, nil)
	require.Equal(t, http.StatusOK, status, body)
	assert.EqualValues(t, 15, data(t, body)["quantity"])

	status, body = doJSON(t, http.MethodPatch, api+"/products/"+productID+"/stock", map[string]any{
		"quantityChange": -20,
	}, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "INSUFFICIENT_STOCK", errorCode(body))

	status, body = doJSON(t, http.MethodGet, api+"/products/"+productID+"/movements", nil, nil)
	require.Equal(t, http.StatusOK, status)
	movements := data(t, body)["movements"].([]any)
	require.Len(t, movements, 1)
	assert.EqualValues(t, 5, movements[0].(map[string]any)["delta"])
}

func TestRouterIdempotentSaleReplay(t *testing.T) {
	srv := newTestServer(t)
	api := srv.URL + "/api/v1"

	status, body := doJSON(t, http.MethodPost, api+"/products", map[string]any{
		"name": "Smartphone", "price": "800", "quantity": 30,
	}, nil)
	require.Equal(t, http.StatusCreated, status, body)
	productID := data(t, body)["id"].(string)

	sale := map[string]any{"items": []map[string]any{{"productId": productID, "quantity": 1}}}
	headers := map[string]string{"Idempotency-Key": "till-1-receipt-42"}

	status, first := doJSON(t, http.MethodPost, api+"/sales", sale, headers)
	require.Equal(t, http.StatusCreated, status, first)
	status, second := doJSON(t, http.MethodPost, api+"/sales", sale, headers)
	require.Equal(t, http.StatusCreated, status, second)
	assert.Equal(t, data(t, first)["id"], data(t, second)["id"])

	status, body = doJSON(t, http.MethodGet, api+"/products/"+productID, nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 29, data(t, body)["quantity"])

	status, _ = doJSON(t, http.MethodPost, api+"/sales", sale, nil)
	require.Equal(t, http.StatusCreated, status)
	status, body = doJSON(t, http.MethodGet, api+"/products/"+productID, nil, nil)
	require.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 28, data(t, body)["quantity"])
}

func TestRouterHealthAndMetrics(t *testing.T) {
	srv := newTestServer(t)

	status, _ := doJSON(t, http.MethodGet, srv.URL+"/health/live", nil, nil)
	assert.Equal(t, http.StatusOK, status)
	status, _ = doJSON(t, http.MethodGet, srv.URL+"/health/ready", nil, nil)
	assert.Equal(t, http.StatusOK, status)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRouterUnknownRoute(t *testing.T) {
	srv := newTestServer(t)
	resp, err := http.Get(srv.URL + "/api/v1/orders")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
