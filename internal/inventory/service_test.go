package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailpos-backend/internal/catalog"
	"github.com/angelmondragon/retailpos-backend/pkg/config"
	"github.com/angelmondragon/retailpos-backend/pkg/db/dbtest"
	"github.com/angelmondragon/retailpos-backend/pkg/db/models"
	"github.com/angelmondragon/retailpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailpos-backend/pkg/errors"
	"github.com/angelmondragon/retailpos-backend/pkg/outbox"
	"github.com/angelmondragon/retailpos-backend/pkg/pagination"
)

func newTestService(t *testing.T, cfg config.InventoryConfig) (Service, *gorm.DB) {
	t.Helper()
	client, conn := dbtest.OpenClient(t)
	tick := time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC)
	var mu sync.Mutex
	svc, err := NewService(ServiceParams{
		TxRunner:  client,
		Products:  catalog.NewRepository(conn),
		Movements: NewMovementRepository(conn),
		Outbox:    outbox.NewService(outbox.NewRepository(conn), nil),
		Config:    cfg,
		Now: func() time.Time {
			mu.Lock()
			defer mu.Unlock()
			tick = tick.Add(time.Second)
			return tick
		},
	})
	require.NoError(t, err)
	return svc, conn
}

func createProduct(t *testing.T, conn *gorm.DB, name string, qty int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, Category: "Electronics", Price: decimal.NewFromInt(10), Quantity: qty}
	require.NoError(t, conn.Create(p).Error)
	return p
}

func TestAdjustStockFloorsAtZeroByDefault(t *testing.T) {
	svc, conn := newTestService(t, config.InventoryConfig{LowStockThreshold: 5})
	p := createProduct(t, conn, "Laptop", 2)

	_, err := svc.AdjustStock(context.Background(), p.ID, -3, "")
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeInsufficientStock, typed.Code())
	details := typed.Details().(map[string]any)
	assert.Equal(t, 3, details["requested"])
	assert.Equal(t, 2, details["available"])

	var movements int64
	require.NoError(t, conn.Model(&models.StockMovement{}).Count(&movements).Error)
	assert.Zero(t, movements)

	dto, err := svc.AdjustStock(context.Background(), p.ID, -2, "damaged")
	require.NoError(t, err)
	assert.Equal(t, 0, dto.Quantity)
}

func TestAdjustStockAllowsNegativeWhenConfigured(t *testing.T) {
	svc, conn := newTestService(t, config.InventoryConfig{LowStockThreshold: 5, AllowNegativeAdjust: true})
	p := createProduct(t, conn, "Laptop", 2)

	dto, err := svc.AdjustStock(context.Background(), p.ID, -3, "")
	require.NoError(t, err)
	assert.Equal(t, -1, dto.Quantity)
}

func TestAdjustStockRecordsMovementAndEvents(t *testing.T) {
	svc, conn := newTestService(t, config.InventoryConfig{LowStockThreshold: 5})
	p := createProduct(t, conn, "Headphones", 10)

	dto, err := svc.AdjustStock(context.Background(), p.ID, -6, " recount ")
	require.NoError(t, err)
	assert.Equal(t, 4, dto.Quantity)

	var movement models.StockMovement
	require.NoError(t, conn.First(&movement, "product_id = ?", p.ID).Error)
	assert.Equal(t, -6, movement.Delta)
	assert.Equal(t, 4, movement.QuantityAfter)
	assert.Equal(t, enums.StockMovementManualAdjustment, movement.Reason)
	require.NotNil(t, movement.Note)
	assert.Equal(t, "recount", *movement.Note)

	var types []string
	require.NoError(t, conn.Model(&models.OutboxEvent{}).Order("event_type ASC").Pluck("event_type", &types).Error)
	assert.Equal(t, []string{"low_stock_detected", "stock_adjusted"}, types)
}

func TestAdjustStockValidation(t *testing.T) {
	svc, _ := newTestService(t, config.InventoryConfig{LowStockThreshold: 5})
	_, err := svc.AdjustStock(context.Background(), uuid.New(), 0, "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeValidation))

	_, err = svc.AdjustStock(context.Background(), uuid.New(), 1, "")
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}

func TestLowStockUsesStrictThreshold(t *testing.T) {
	svc, conn := newTestService(t, config.InventoryConfig{LowStockThreshold: 5})
	createProduct(t, conn, "Plenty", 20)
	createProduct(t, conn, "Edge", 5)
	createProduct(t, conn, "Low", 4)
	createProduct(t, conn, "Empty", 0)

	alerts, err := svc.LowStock(context.Background())
	require.NoError(t, err)
	require.Len(t, alerts, 2)
	assert.Equal(t, "Empty", alerts[0].Name)
	assert.Equal(t, "Low", alerts[1].Name)
	assert.Equal(t, 5, alerts[1].Threshold)
	assert.Equal(t, 5, svc.Threshold())
}

func TestLowStockConcurrentCallers(t *testing.T) {
	svc, conn := newTestService(t, config.InventoryConfig{LowStockThreshold: 5})
	createProduct(t, conn, "Low", 1)

	var wg sync.WaitGroup
	results := make([][]LowStockAlert, 6)
	errs := make([]error, 6)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = svc.LowStock(context.Background())
		}(i)
	}
	wg.Wait()
	for i := range results {
		require.NoError(t, errs[i])
		require.Len(t, results[i], 1)
	}
	results[0][0].Name = "mutated"
	assert.Equal(t, "Low", results[1][0].Name)
}

func TestMovementsPaginates(t *testing.T) {
	svc, conn := newTestService(t, config.InventoryConfig{LowStockThreshold: 0})
	p := createProduct(t, conn, "Cable", 100)
	for i := 1; i <= 3; i++ {
		_, err := svc.AdjustStock(context.Background(), p.ID, i, "")
		require.NoError(t, err)
	}

	page, err := svc.Movements(context.Background(), p.ID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Movements, 2)
	assert.Equal(t, 3, page.Movements[0].Delta)
	assert.Equal(t, 106, page.Movements[0].QuantityAfter)
	require.NotEmpty(t, page.NextCursor)

	rest, err := svc.Movements(context.Background(), p.ID, pagination.Params{Limit: 2, Cursor: page.NextCursor})
	require.NoError(t, err)
	require.Len(t, rest.Movements, 1)
	assert.Equal(t, 1, rest.Movements[0].Delta)
	assert.Empty(t, rest.NextCursor)

	_, err = svc.Movements(context.Background(), uuid.New(), pagination.Params{})
	assert.True(t, pkgerrors.Is(err, pkgerrors.CodeNotFound))
}
