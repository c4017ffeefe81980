package checkout

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailpos-backend/internal/catalog"
	"github.com/angelmondragon/retailpos-backend/internal/inventory"
	"github.com/angelmondragon/retailpos-backend/internal/sales"
	"github.com/angelmondragon/retailpos-backend/pkg/db/models"
	"github.com/angelmondragon/retailpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailpos-backend/pkg/errors"
	"github.com/angelmondragon/retailpos-backend/pkg/logger"
	"github.com/angelmondragon/retailpos-backend/pkg/metrics"
	"github.com/angelmondragon/retailpos-backend/pkg/outbox"
	"github.com/angelmondragon/retailpos-backend/pkg/outbox/payloads"
)

const actorSource = "checkout"

// Service records sales.
type Service interface {
	CreateSale(ctx context.Context, input CreateSaleInput) (*sales.SaleDTO, error)
}

// CreateSaleInput is a basket to ring up. A nil CustomerID is a walk-in sale.
type CreateSaleInput struct {
	CustomerID    *uuid.UUID
	Items         []BasketItem
	PaymentMethod string
}

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type ledger interface {
	Append(ctx context.Context, tx *gorm.DB, input sales.AppendInput) (*models.Sale, error)
	Get(ctx context.Context, id uuid.UUID) (*sales.SaleDTO, error)
}

type purchaseRecorder interface {
	RecordPurchase(ctx context.Context, tx *gorm.DB, id uuid.UUID, amount decimal.Decimal, when time.Time) error
}

type eventEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
	EmitIfNotExists(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// ServiceParams wires the checkout service.
type ServiceParams struct {
	TxRunner             txRunner
	Products             *catalog.Repository
	Movements            *inventory.MovementRepository
	Ledger               ledger
	Customers            purchaseRecorder
	Outbox               eventEmitter
	Metrics              *metrics.SalesMetrics
	Logger               *logger.Logger
	LowStockThreshold    int
	DefaultPaymentMethod enums.PaymentMethod
	Now                  func() time.Time
}

type service struct {
	tx                   txRunner
	products             *catalog.Repository
	movements            *inventory.MovementRepository
	ledger               ledger
	customers            purchaseRecorder
	outbox               eventEmitter
	metrics              *metrics.SalesMetrics
	logg                 *logger.Logger
	threshold            int
	defaultPaymentMethod enums.PaymentMethod
	now                  func() time.Time
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
	if params.Ledger == nil {
		return nil, fmt.Errorf("sales ledger required")
	}
	if params.Customers == nil {
		return nil, fmt.Errorf("customer service required")
	}
	if params.Outbox == nil {
		return nil, fmt.Errorf("outbox emitter required")
	}
	defaultMethod := params.DefaultPaymentMethod
	if defaultMethod == "" {
		defaultMethod = enums.PaymentMethodCash
	}
	if !defaultMethod.IsValid() {
		return nil, fmt.Errorf("invalid default payment method %q", defaultMethod)
	}
	now := params.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &service{
		tx:                   params.TxRunner,
		products:             params.Products,
		movements:            params.Movements,
		ledger:               params.Ledger,
		customers:            params.Customers,
		outbox:               params.Outbox,
		metrics:              params.Metrics,
		logg:                 params.Logger,
		threshold:            params.LowStockThreshold,
		defaultPaymentMethod: defaultMethod,
		now:                  now,
	}, nil
}

// CreateSale records the basket as one sale. Every side effect commits or rolls back together.
func (s *service) CreateSale(ctx context.Context, input CreateSaleInput) (*sales.SaleDTO, error) {
	dto, err := s.createSale(ctx, input)
	if err != nil {
		code := pkgerrors.CodeInternal
		if typed := pkgerrors.As(err); typed != nil {
			code = typed.Code()
		}
		s.metrics.SaleRejected(string(code))
		return nil, err
	}
	return dto, nil
}

func (s *service) createSale(ctx context.Context, input CreateSaleInput) (*sales.SaleDTO, error) {
	lines, err := normalizeBasket(input.Items)
	if err != nil {
		return nil, err
	}
	method, err := s.paymentMethod(input.PaymentMethod)
	if err != nil {
		return nil, err
	}

	recordedAt := s.now()
	var sale *models.Sale
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		products := s.products.WithTx(tx)

		loaded, err := products.FindByIDs(ctx, productIDs(lines))
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: load products")
		}
		byID := make(map[uuid.UUID]models.Product, len(loaded))
		for _, p := range loaded {
			byID[p.ID] = p
		}
		for _, line := range lines {
			if _, ok := byID[line.ProductID]; !ok {
				return pkgerrors.New(pkgerrors.CodeUnknownProduct, "product not found").
					WithDetails(map[string]any{"product_id": line.ProductID})
			}
		}

		after := make(map[uuid.UUID]int, len(lines))
		for _, line := range lines {
			ok, err := products.DecrementIfAvailable(ctx, line.ProductID, line.Quantity)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: decrement stock")
			}
			current, err := products.QuantityOf(ctx, line.ProductID)
			if err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: read stock")
			}
			if !ok {
				return pkgerrors.New(pkgerrors.CodeInsufficientStock, "insufficient stock").
					WithDetails(map[string]any{
						"product_id": line.ProductID,
						"requested":  line.Quantity,
						"available":  current,
					})
			}
			after[line.ProductID] = current
		}

		total := decimal.Zero
		appendLines := make([]sales.AppendLine, 0, len(lines))
		for _, line := range lines {
			product := byID[line.ProductID]
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(line.Quantity))))
			appendLines = append(appendLines, sales.AppendLine{
				ProductID:   product.ID,
				ProductName: product.Name,
				Quantity:    line.Quantity,
				Price:       product.Price,
			})
		}

		// The customer row must exist before the sale header references it.
		if input.CustomerID != nil {
			if err := s.customers.RecordPurchase(ctx, tx, *input.CustomerID, total, recordedAt); err != nil {
				if pkgerrors.Is(err, pkgerrors.CodeNotFound) {
					return pkgerrors.New(pkgerrors.CodeUnknownCustomer, "customer not found").
						WithDetails(map[string]any{"customer_id": *input.CustomerID})
				}
				return err
			}
		}

		sale, err = s.ledger.Append(ctx, tx, sales.AppendInput{
			CustomerID:    input.CustomerID,
			PaymentMethod: method,
			RecordedAt:    recordedAt,
			Lines:         appendLines,
		})
		if err != nil {
			return err
		}
		if !sale.Total.Equal(total) {
			return pkgerrors.New(pkgerrors.CodeInternal, "ledger total mismatch").
				WithDetails(map[string]any{"expected": total, "recorded": sale.Total})
		}

		movements := s.movements.WithTx(tx)
		for _, line := range lines {
			if err := movements.Insert(ctx, &models.StockMovement{
				ProductID:     line.ProductID,
				Delta:         -line.Quantity,
				QuantityAfter: after[line.ProductID],
				Reason:        enums.StockMovementSale,
				SaleID:        &sale.ID,
				CreatedAt:     recordedAt,
			}); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert stock movement")
			}
		}

		if err := s.outbox.Emit(ctx, tx, saleRecordedEvent(sale, recordedAt)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit sale_recorded")
		}
		for _, line := range lines {
			qty := after[line.ProductID]
			if !inventory.IsLow(qty, s.threshold) {
				continue
			}
			event := inventory.NewLowStockEvent(line.ProductID, byID[line.ProductID].Name, qty, s.threshold, &sale.ID, actorSource, recordedAt)
			if err := s.outbox.EmitIfNotExists(ctx, tx, event); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit low_stock_detected")
			}
		}
		return nil
	})
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create sale")
	}

	s.metrics.SaleRecorded(sale.Total, totalUnits(lines))
	if s.logg != nil {
		logCtx := s.logg.WithSaleID(ctx, sale.ID.String())
		if input.CustomerID != nil {
			logCtx = s.logg.WithCustomerID(logCtx, input.CustomerID.String())
		}
		logCtx = s.logg.WithFields(logCtx, map[string]any{
			"total":          sale.Total.StringFixed(2),
			"lines":          len(lines),
			"payment_method": method,
		})
		s.logg.Info(logCtx, "sale recorded")
	}

	// The sale is already committed here, so a failed re-read falls back to the recorded row.
	dto, err := s.ledger.Get(ctx, sale.ID)
	if err != nil {
		if s.logg != nil {
			s.logg.Warn(s.logg.WithSaleID(ctx, sale.ID.String()), "sale re-read failed after commit; responding from the recorded row")
		}
		return sales.NewSaleDTO(sale, nil), nil
	}
	return dto, nil
}

func (s *service) paymentMethod(raw string) (enums.PaymentMethod, error) {
	if strings.TrimSpace(raw) == "" {
		return s.defaultPaymentMethod, nil
	}
	method, err := enums.ParsePaymentMethod(raw)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method").
			WithDetails(map[string]string{"paymentMethod": "must be one of cash, card, mobile"})
	}
	return method, nil
}

func saleRecordedEvent(sale *models.Sale, at time.Time) outbox.DomainEvent {
	items := make([]payloads.SaleRecordedLine, 0, len(sale.Items))
	for _, item := range sale.Items {
		items = append(items, payloads.SaleRecordedLine{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
		})
	}
	return outbox.DomainEvent{
		EventType:     enums.EventSaleRecorded,
		AggregateType: enums.AggregateSale,
		AggregateID:   sale.ID,
		Actor:         &outbox.ActorRef{Source: actorSource},
		OccurredAt:    at,
		Data: payloads.SaleRecordedEvent{
			SaleID:        sale.ID,
			CustomerID:    sale.CustomerID,
			Total:         sale.Total,
			PaymentMethod: sale.PaymentMethod,
			Items:         items,
			RecordedAt:    at,
		},
	}
}
