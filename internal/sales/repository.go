package sales

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailpos-backend/pkg/db/models"
	"github.com/angelmondragon/retailpos-backend/pkg/enums"
	"github.com/angelmondragon/retailpos-backend/pkg/pagination"
)

// Repository reads and appends ledger rows.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// saleRow is a sale header joined with the customer's display name.
type saleRow struct {
	ID            uuid.UUID
	CustomerID    *uuid.UUID
	CustomerName  *string
	Total         decimal.Decimal
	PaymentMethod enums.PaymentMethod
	CreatedAt     time.Time
}

// itemRow is a sale line joined with the product's current name.
type itemRow struct {
	ID          uuid.UUID
	SaleID      uuid.UUID
	ProductID   uuid.UUID
	ProductName string
	CurrentName *string
	Position    int
	Quantity    int
	Price       decimal.Decimal
	LineTotal   decimal.Decimal
}

// listFilter narrows List; zero values mean unbounded.
type listFilter struct {
	From   *time.Time
	To     *time.Time
	Cursor *pagination.Cursor
	Limit  int
}

// Insert writes the header and its items. Callers pass a transaction-bound repository.
func (r *Repository) Insert(ctx context.Context, sale *models.Sale) error {
	return r.db.WithContext(ctx).Create(sale).Error
}

func (r *Repository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Table("sales AS s").
		Select("s.id, s.customer_id, c.name AS customer_name, s.total, s.payment_method, s.created_at").
		Joins("LEFT JOIN customers c ON c.id = s.customer_id")
}

func (r *Repository) findHeader(ctx context.Context, id uuid.UUID) (*saleRow, error) {
	var rows []saleRow
	if err := r.baseQuery(ctx).Where("s.id = ?", id).Limit(1).Scan(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return &rows[0], nil
}

// listHeaders returns headers newest first, fetching at most filter.Limit rows.
func (r *Repository) listHeaders(ctx context.Context, filter listFilter) ([]saleRow, error) {
	query := r.baseQuery(ctx)
	if filter.From != nil {
		query = query.Where("s.created_at >= ?", filter.From.UTC())
	}
	if filter.To != nil {
		query = query.Where("s.created_at < ?", filter.To.UTC())
	}
	if filter.Cursor != nil {
		query = query.Where(
			"(s.created_at < ?) OR (s.created_at = ? AND s.id < ?)",
			filter.Cursor.CreatedAt, filter.Cursor.CreatedAt, filter.Cursor.ID,
		)
	}
	var rows []saleRow
	if err := query.
		Order("s.created_at DESC").
		Order("s.id DESC").
		Limit(filter.Limit).
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// itemsFor loads the lines of every sale in ids keyed by sale id, in basket order.
func (r *Repository) itemsFor(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID][]itemRow, error) {
	out := make(map[uuid.UUID][]itemRow, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []itemRow
	if err := r.db.WithContext(ctx).
		Table("sale_items AS si").
		Select("si.id, si.sale_id, si.product_id, si.product_name, p.name AS current_name, si.position, si.quantity, si.price, si.line_total").
		Joins("LEFT JOIN products p ON p.id = si.product_id").
		Where("si.sale_id IN ?", ids).
		Order("si.position ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		out[row.SaleID] = append(out[row.SaleID], row)
	}
	return out, nil
}
