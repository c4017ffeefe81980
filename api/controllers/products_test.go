package controllers

import (
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/retailpos-backend/internal/catalog"
	"github.com/angelmondragon/retailpos-backend/pkg/logger"
)

type errorBody struct {
	Error struct {
		Code    string         `json:"code"`
		Message string         `json:"message"`
		Details map[string]any `json:"details"`
	} `json:"error"`
}

func decodeError(t *testing.T, body string) errorBody {
	t.Helper()
	var out errorBody
	require.NoError(t, json.Unmarshal([]byte(body), &out))
	return out
}

func TestCreateProduct(t *testing.T) {
	svc := newStubCatalog()
	body := `{"name":"  Laptop ","description":"High-performance laptop","category":"Electronics","price":"1200.00","quantity":15}`

	rec := serve(CreateProduct(svc, logger.Nop()), newRequest(http.MethodPost, "/api/v1/products", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotNil(t, svc.created)
	assert.Equal(t, "Laptop", svc.created.Name)
	require.NotNil(t, svc.created.Price)
	assert.True(t, svc.created.Price.Equal(decimal.NewFromInt(1200)))
	require.NotNil(t, svc.created.Quantity)
	assert.Equal(t, 15, *svc.created.Quantity)

	var envelope struct {
		Data catalog.ProductDTO `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "Laptop", envelope.Data.Name)
}

func TestCreateProductAcceptsNumericPrice(t *testing.T) {
	svc := newStubCatalog()
	body := `{"name":"Desk Chair","price":349.99,"quantity":20}`

	rec := serve(CreateProduct(svc, logger.Nop()), newRequest(http.MethodPost, "/api/v1/products", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "349.99", svc.created.Price.StringFixed(2))
}

func TestCreateProductRejectsBadBodies(t *testing.T) {
	cases := map[string]string{
		"missing name":  `{"price":"10","quantity":1}`,
		"unknown field": `{"name":"x","price":"10","quantity":1,"sku":"A1"}`,
		"malformed":     `{"name":`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			svc := newStubCatalog()
			rec := serve(CreateProduct(svc, logger.Nop()), newRequest(http.MethodPost, "/api/v1/products", strings.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "VALIDATION_ERROR", decodeError(t, rec.Body.String()).Error.Code)
			assert.Nil(t, svc.created)
		})
	}
}

func TestGetProduct(t *testing.T) {
	id := uuid.New()
	svc := newStubCatalog(catalog.ProductDTO{ID: id, Name: "Headphones", Price: decimal.NewFromInt(250), Quantity: 50})

	t.Run("found", func(t *testing.T) {
		req := withURLParam(newRequest(http.MethodGet, "/api/v1/products/"+id.String(), nil), "productId", id.String())
		rec := serve(GetProduct(svc, logger.Nop()), req)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"name":"Headphones"`)
	})

	t.Run("missing", func(t *testing.T) {
		other := uuid.NewString()
		req := withURLParam(newRequest(http.MethodGet, "/api/v1/products/"+other, nil), "productId", other)
		rec := serve(GetProduct(svc, logger.Nop()), req)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		req := withURLParam(newRequest(http.MethodGet, "/api/v1/products/abc", nil), "productId", "abc")
		rec := serve(GetProduct(svc, logger.Nop()), req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestUpdateProductPassesOnlyProvidedFields(t *testing.T) {
	id := uuid.New()
	svc := newStubCatalog(catalog.ProductDTO{ID: id, Name: "Coffee Maker"})

	req := withURLParam(newRequest(http.MethodPut, "/api/v1/products/"+id.String(), strings.NewReader(`{"name":"Espresso Maker"}`)), "productId", id.String())
	rec := serve(UpdateProduct(svc, logger.Nop()), req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.updated)
	require.NotNil(t, svc.updated.Name)
	assert.Equal(t, "Espresso Maker", *svc.updated.Name)
	assert.Nil(t, svc.updated.Price)
	assert.Nil(t, svc.updated.Quantity)
}

func TestDeleteProduct(t *testing.T) {
	id := uuid.New()
	svc := newStubCatalog(catalog.ProductDTO{ID: id, Name: "Laptop"})

	req := withURLParam(newRequest(http.MethodDelete, "/api/v1/products/"+id.String(), nil), "productId", id.String())
	rec := serve(DeleteProduct(svc, logger.Nop()), req)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(DeleteProduct(svc, logger.Nop()), req)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListProductsNilService(t *testing.T) {
	rec := serve(ListProducts(nil, logger.Nop()), newRequest(http.MethodGet, "/api/v1/products", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
