package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailpos-backend/pkg/db/models"
)

// ErrBelowFloor is returned by Adjust when the delta would take quantity under the requested floor.
var ErrBelowFloor = errors.New("quantity would fall below floor")

// Repository owns product persistence.
type Repository struct {
	db *gorm.DB
}

// NewRepository builds a repository tied to the provided GORM DB.
func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{db: tx}
}

// FindByID loads a single product.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	if err := r.db.WithContext(ctx).First(&product, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

// FindByIDs loads every product in ids. Missing ids are simply absent from the result.
func (r *Repository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]models.Product, error) {
	if len(ids) == 0 {
		return []models.Product{}, nil
	}
	var products []models.Product
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// List returns the whole catalog ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).
		Order("name ASC").
		Order("id ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Create inserts a new product row.
func (r *Repository) Create(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Update persists every column of an already loaded product.
func (r *Repository) Update(ctx context.Context, product *models.Product) (*models.Product, error) {
	if err := r.db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

// Delete removes the product and reports whether a row existed.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Product{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// DecrementIfAvailable subtracts qty only when at least qty units are on hand.
// It reports false when the row is missing or short on stock.
func (r *Repository) DecrementIfAvailable(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND quantity >= ?", id, qty).
		UpdateColumns(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Adjust applies quantity = quantity + delta in one statement and returns the updated row.
// A non-nil floor makes the update conditional on the result staying at or above it.
func (r *Repository) Adjust(ctx context.Context, id uuid.UUID, delta int, floor *int) (*models.Product, error) {
	query := r.db.WithContext(ctx).Model(&models.Product{}).Where("id = ?", id)
	if floor != nil {
		query = query.Where("quantity + ? >= ?", delta, *floor)
	}
	res := query.UpdateColumns(map[string]any{
		"quantity":   gorm.Expr("quantity + ?", delta),
		"updated_at": time.Now().UTC(),
	})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		product, err := r.FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		if floor != nil {
			return product, ErrBelowFloor
		}
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, id)
}

// QuantityOf reads the current on-hand quantity.
func (r *Repository) QuantityOf(ctx context.Context, id uuid.UUID) (int, error) {
	var quantities []int
	if err := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Pluck("quantity", &quantities).Error; err != nil {
		return 0, err
	}
	if len(quantities) == 0 {
		return 0, gorm.ErrRecordNotFound
	}
	return quantities[0], nil
}

// ListBelow returns products whose quantity is strictly under threshold, lowest first.
func (r *Repository) ListBelow(ctx context.Context, threshold int) ([]models.Product, error) {
	var products []models.Product
	if err := r.db.WithContext(ctx).
		Where("quantity < ?", threshold).
		Order("quantity ASC").
		Order("name ASC").
		Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Count returns how many products exist.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Product{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
