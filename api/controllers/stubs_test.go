package controllers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailpos-backend/internal/catalog"
	"github.com/angelmondragon/retailpos-backend/internal/checkout"
	"github.com/angelmondragon/retailpos-backend/internal/customers"
	"github.com/angelmondragon/retailpos-backend/internal/inventory"
	"github.com/angelmondragon/retailpos-backend/internal/sales"
	"github.com/angelmondragon/retailpos-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/retailpos-backend/pkg/errors"
	"github.com/angelmondragon/retailpos-backend/pkg/pagination"
)

func withURLParam(req *http.Request, key, value string) *http.Request {
	rc := chi.NewRouteContext()
	rc.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func serve(handler http.HandlerFunc, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func newRequest(method, target string, body io.Reader) *http.Request {
	req := httptest.NewRequest(method, target, body)
	req.Header.Set("Content-Type", "application/json")
	return req
}

type stubCatalog struct {
	products map[uuid.UUID]catalog.ProductDTO
	created  *catalog.CreateProductInput
	updated  *catalog.UpdateProductInput
	err      error
}

func newStubCatalog(products ...catalog.ProductDTO) *stubCatalog {
	s := &stubCatalog{products: map[uuid.UUID]catalog.ProductDTO{}}
	for _, p := range products {
		s.products[p.ID] = p
	}
	return s
}

func (s *stubCatalog) Get(_ context.Context, id uuid.UUID) (*catalog.ProductDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	p, ok := s.products[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return &p, nil
}

func (s *stubCatalog) List(context.Context) ([]catalog.ProductDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make([]catalog.ProductDTO, 0, len(s.products))
	for _, p := range s.products {
		out = append(out, p)
	}
	return out, nil
}

func (s *stubCatalog) Create(_ context.Context, input catalog.CreateProductInput) (*catalog.ProductDTO, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = &input
	dto := catalog.ProductDTO{ID: uuid.New(), Name: input.Name, Category: input.Category}
	if input.Price != nil {
		dto.Price = *input.Price
	}
	if input.Quantity != nil {
		dto.Quantity = *input.Quantity
	}
	return &dto, nil
}

func (s *stubCatalog) Update(ctx context.Context, id uuid.UUID, input catalog.UpdateProductInput) (*catalog.ProductDTO, error) {
	s.updated = &input
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Name != nil {
		p.Name = *input.Name
	}
	return p, nil
}

func (s *stubCatalog) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.products[id]; !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	delete(s.products, id)
	return nil
}

func (s *stubCatalog) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) (*catalog.ProductDTO, error) {
	p, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Quantity += delta
	return p, nil
}

type stubCustomers struct {
	customers map[uuid.UUID]customers.CustomerDTO
	created   *customers.CreateCustomerInput
}

func (s *stubCustomers) Get(_ context.Context, id uuid.UUID) (*customers.CustomerDTO, error) {
	c, ok := s.customers[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return &c, nil
}

func (s *stubCustomers) List(context.Context) ([]customers.CustomerDTO, error) {
	out := make([]customers.CustomerDTO, 0, len(s.customers))
	for _, c := range s.customers {
		out = append(out, c)
	}
	return out, nil
}

func (s *stubCustomers) Create(_ context.Context, input customers.CreateCustomerInput) (*customers.CustomerDTO, error) {
	s.created = &input
	return &customers.CustomerDTO{ID: uuid.New(), Name: input.Name, Email: input.Email, JoinDate: time.Now().UTC()}, nil
}

func (s *stubCustomers) Update(ctx context.Context, id uuid.UUID, input customers.UpdateCustomerInput) (*customers.CustomerDTO, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if input.Phone != nil {
		c.Phone = *input.Phone
	}
	return c, nil
}

func (s *stubCustomers) Delete(_ context.Context, id uuid.UUID) error {
	if _, ok := s.customers[id]; !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	delete(s.customers, id)
	return nil
}

func (s *stubCustomers) RecordPurchase(context.Context, *gorm.DB, uuid.UUID, decimal.Decimal, time.Time) error {
	return nil
}

type stubSales struct {
	sale       *sales.SaleDTO
	listParams *sales.ListParams
	result     *sales.SaleListResult
	err        error
}

func (s *stubSales) Get(_ context.Context, id uuid.UUID) (*sales.SaleDTO, error) {
	if s.sale == nil || s.sale.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
	}
	return s.sale, nil
}

func (s *stubSales) List(_ context.Context, params sales.ListParams) (*sales.SaleListResult, error) {
	s.listParams = &params
	if s.err != nil {
		return nil, s.err
	}
	if s.result == nil {
		return &sales.SaleListResult{Sales: []sales.SaleDTO{}}, nil
	}
	return s.result, nil
}

func (s *stubSales) Append(context.Context, *gorm.DB, sales.AppendInput) (*models.Sale, error) {
	return nil, pkgerrors.New(pkgerrors.CodeInternal, "append not supported in stub")
}

type stubCheckout struct {
	input *checkout.CreateSaleInput
	sale  *sales.SaleDTO
	err   error
}

func (s *stubCheckout) CreateSale(_ context.Context, input checkout.CreateSaleInput) (*sales.SaleDTO, error) {
	s.input = &input
	if s.err != nil {
		return nil, s.err
	}
	return s.sale, nil
}

type stubInventory struct {
	productID uuid.UUID
	delta     int
	note      string
	product   *catalog.ProductDTO
	alerts    []inventory.LowStockAlert
	movements *inventory.MovementListResult
	params    pagination.Params
	err       error
}

func (s *stubInventory) AdjustStock(_ context.Context, productID uuid.UUID, delta int, note string) (*catalog.ProductDTO, error) {
	s.productID, s.delta, s.note = productID, delta, note
	if s.err != nil {
		return nil, s.err
	}
	return s.product, nil
}

func (s *stubInventory) LowStock(context.Context) ([]inventory.LowStockAlert, error) {
	return s.alerts, s.err
}

func (s *stubInventory) Movements(_ context.Context, productID uuid.UUID, params pagination.Params) (*inventory.MovementListResult, error) {
	s.productID = productID
	s.params = params
	if s.err != nil {
		return nil, s.err
	}
	return s.movements, nil
}

func (s *stubInventory) Threshold() int { return 5 }
