package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailpos-backend/pkg/db/models"
	"github.com/angelmondragon/retailpos-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/retailpos-backend/pkg/errors"
	"github.com/angelmondragon/retailpos-backend/pkg/pagination"
)

// Service exposes the sale ledger. Append is the only write path.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*SaleDTO, error)
	List(ctx context.Context, params ListParams) (*SaleListResult, error)
	Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.Sale, error)
}

// ListParams filters the ledger. From is inclusive and To is exclusive.
type ListParams struct {
	pagination.Params
	From *time.Time
	To   *time.Time
}

// AppendInput is a fully priced sale ready to be written.
type AppendInput struct {
	CustomerID    *uuid.UUID
	PaymentMethod enums.PaymentMethod
	RecordedAt    time.Time
	Lines         []AppendLine
}

// AppendLine carries the name and unit price captured when the sale was rung up.
type AppendLine struct {
	ProductID   uuid.UUID
	ProductName string
	Quantity    int
	Price       decimal.Decimal
}

type service struct {
	repo *Repository
}

func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("sales repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*SaleDTO, error) {
	header, err := s.repo.findHeader(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "sale not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale")
	}
	items, err := s.repo.itemsFor(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sale items")
	}
	dto := newSaleDTO(*header, items[id])
	return &dto, nil
}

func (s *service) List(ctx context.Context, params ListParams) (*SaleListResult, error) {
	if params.From != nil && params.To != nil && !params.From.Before(*params.To) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "from must be before to").
			WithDetails(map[string]any{"from": params.From, "to": params.To})
	}
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}

	headers, err := s.repo.listHeaders(ctx, listFilter{
		From:   params.From,
		To:     params.To,
		Cursor: cursor,
		Limit:  pagination.LimitWithBuffer(params.Limit),
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sales")
	}
	page, next := pagination.Trim(headers, params.Limit, func(row saleRow) pagination.Cursor {
		return pagination.Cursor{CreatedAt: row.CreatedAt, ID: row.ID}
	})

	ids := make([]uuid.UUID, 0, len(page))
	for _, row := range page {
		ids = append(ids, row.ID)
	}
	items, err := s.repo.itemsFor(ctx, ids)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list sale items")
	}

	result := &SaleListResult{
		Sales:      make([]SaleDTO, 0, len(page)),
		NextCursor: next,
	}
	for _, row := range page {
		result.Sales = append(result.Sales, newSaleDTO(row, items[row.ID]))
	}
	return result, nil
}

// Append writes the header and every line inside tx. The total is the exact sum of the line totals.
func (s *service) Append(ctx context.Context, tx *gorm.DB, input AppendInput) (*models.Sale, error) {
	if tx == nil {
		return nil, fmt.Errorf("transaction required")
	}
	if len(input.Lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyBasket, "sale has no lines")
	}
	if !input.PaymentMethod.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment method").
			WithDetails(map[string]any{"paymentMethod": input.PaymentMethod})
	}
	recordedAt := input.RecordedAt
	if recordedAt.IsZero() {
		recordedAt = time.Now().UTC()
	}

	sale := &models.Sale{
		CustomerID:    input.CustomerID,
		PaymentMethod: input.PaymentMethod,
		CreatedAt:     recordedAt,
		Total:         decimal.Zero,
		Items:         make([]models.SaleItem, 0, len(input.Lines)),
	}
	for i, line := range input.Lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "quantity must be positive").
				WithDetails(map[string]any{"productId": line.ProductID, "quantity": line.Quantity})
		}
		lineTotal := line.Price.Mul(decimal.NewFromInt(int64(line.Quantity)))
		sale.Total = sale.Total.Add(lineTotal)
		sale.Items = append(sale.Items, models.SaleItem{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Position:    i,
			Quantity:    line.Quantity,
			Price:       line.Price,
			LineTotal:   lineTotal,
		})
	}

	if err := s.repo.WithTx(tx).Insert(ctx, sale); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert sale")
	}
	return sale, nil
}
