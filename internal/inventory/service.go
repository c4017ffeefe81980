package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailpos-backend/internal/catalog"
	"github.com/angelmondragon/retailpos-backend/pkg/config"
	"github.com/angelmondragon/retailpos-backend/pkg/db/models"
	"github.com/angelmondragon/retailpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailpos-backend/pkg/errors"
	"github.com/angelmondragon/retailpos-backend/pkg/logger"
	"github.com/angelmondragon/retailpos-backend/pkg/metrics"
	"github.com/angelmondragon/retailpos-backend/pkg/outbox"
	"github.com/angelmondragon/retailpos-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/retailpos-backend/pkg/pagination"
)

const (
	actorSource       = "inventory"
	lowStockFlightKey = "low-stock"
)

// Service manages manual stock changes and the low-stock view.
type Service interface {
	AdjustStock(ctx context.Context, productID uuid.UUID, delta int, note string) (*catalog.ProductDTO, error)
	LowStock(ctx context.Context) ([]LowStockAlert, error)
	Movements(ctx context.Context, productID uuid.UUID, params pagination.Params) (*MovementListResult, error)
	Threshold() int
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams wires the inventory service.
type ServiceParams struct {
	TxRunner  txRunner
	Products  *catalog.Repository
	Movements *MovementRepository
	Outbox    eventEmitter
	Metrics   *metrics.SalesMetrics
	Logger    *logger.Logger
	Config    config.InventoryConfig
	Now       func() time.Time
}

type service struct {
	tx        txRunner
	products  *catalog.Repository
	movements *MovementRepository
	outbox    eventEmitter
	metrics   *metrics.SalesMetrics
	logg      *logger.Logger
	cfg       config.InventoryConfig
	now       func() time.Time
	flight    singleflight.Group
}

func NewService(params ServiceParams) (Service, error) {
	if params.TxRunner == nil {
		return nil, fmt.Errorf("tx runner required")
	}
	if params.Products == nil {
		return nil, fmt.Errorf("product repository required")
	}
	if params.Movements == nil {
		return nil, fmt.Errorf("movement repository required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	if params.Config.LowStockThreshold < 0 {
		return nil, fmt.Errorf("low stock threshold must not be negative")
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		tx:        params.TxRunner,
		products:  params.Products,
		movements: params.Movements,
		outbox:    params.Outbox,
		metrics:   params.Metrics,
		logg:      params.Logger,
		cfg:       params.Config,
		now:       now,
	}, nil
}

func (s *service) Threshold() int {
	return s.cfg.LowStockThreshold
}

// AdjustStock applies delta atomically and records the movement. Unless negative
// adjustments are allowed, a delta that would take quantity below zero is rejected.
func (s *service) AdjustStock(ctx context.Context, productID uuid.UUID, delta int, note string) (*catalog.ProductDTO, error) {
	if delta == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantityChange must not be zero").
			WithDetails(map[string]string{"quantityChange": "must not be zero"})
	}
	var floor *int
	if !s.cfg.AllowNegativeAdjust {
		zero := 0
		floor = &zero
	}
	note = strings.TrimSpace(note)
	at := s.now()

	var updated *models.Product
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		product, err := s.products.WithTx(tx).Adjust(ctx, productID, delta, floor)
		if err != nil {
			if errors.Is(err, catalog.ErrBelowFloor) {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "adjustment would make stock negative").
					WithDetails(map[string]any{
						"product_id": productID,
						"requested":  -delta,
						"available":  product.Quantity,
					})
			}
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: adjust stock")
		}
		updated = product

		movement := &models.StockMovement{
			ProductID:     productID,
			Delta:         delta,
			QuantityAfter: product.Quantity,
			Reason:        enums.StockMovementManualAdjustment,
			CreatedAt:     at,
		}
		if note != "" {
			movement.Note = &note
		}
		if err := s.movements.WithTx(tx).Insert(ctx, movement); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert stock movement")
		}

		if err := s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventStockAdjusted,
			AggregateType: enums.AggregateProduct,
			AggregateID:   productID,
			Actor:         &outbox.ActorRef{Source: actorSource},
			OccurredAt:    at,
			Data: payloads.StockAdjustedEvent{
				ProductID:     productID,
				Delta:         delta,
				QuantityAfter: product.Quantity,
				Note:          note,
			},
		}); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit stock_adjusted")
		}

		if IsLow(product.Quantity, s.cfg.LowStockThreshold) {
			event := NewLowStockEvent(productID, product.Name, product.Quantity, s.cfg.LowStockThreshold, nil, actorSource, at)
			if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit low_stock_detected")
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.StockAdjusted(delta)
	if s.logg != nil {
		logCtx := s.logg.WithProductID(ctx, productID.String())
		logCtx = s.logg.WithFields(logCtx, map[string]any{"delta": delta, "quantity_after": updated.Quantity})
		s.logg.Info(logCtx, "stock adjusted")
	}
	return catalog.NewProductDTO(updated), nil
}

// LowStock lists products under the threshold. Concurrent callers share one query.
func (s *service) LowStock(ctx context.Context) ([]LowStockAlert, error) {
	result, err, _ := s.flight.Do(lowStockFlightKey, func() (any, error) {
		products, err := s.products.ListBelow(ctx, s.cfg.LowStockThreshold)
		if err != nil {
			return nil, err
		}
		alerts := make([]LowStockAlert, 0, len(products))
		for _, p := range products {
			alerts = append(alerts, LowStockAlert{
				ProductID: p.ID,
				Name:      p.Name,
				Category:  p.Category,
				Quantity:  p.Quantity,
				Threshold: s.cfg.LowStockThreshold,
			})
		}
		return alerts, nil
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list low stock")
	}
	shared := result.([]LowStockAlert)
	out := make([]LowStockAlert, len(shared))
	copy(out, shared)
	return out, nil
}

func (s *service) Movements(ctx context.Context, productID uuid.UUID, params pagination.Params) (*MovementListResult, error) {
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.movements.ListByProduct(ctx, productID, cursor, pagination.LimitWithBuffer(params.Limit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list stock movements")
	}
	page, next := pagination.Trim(rows, params.Limit, func(m models.StockMovement) pagination.Cursor {
		return pagination.Cursor{CreatedAt: m.CreatedAt, ID: m.ID}
	})
	result := &MovementListResult{
		Movements:  make([]MovementDTO, 0, len(page)),
		NextCursor: next,
	}
	for _, m := range page {
		result.Movements = append(result.Movements, newMovementDTO(m))
	}
	return result, nil
}
