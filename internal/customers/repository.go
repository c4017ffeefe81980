package customers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/angelmondragon/retailpos-backend/pkg/db/models"
)

// Repository owns customer persistence.
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

func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).First(&customer, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// List returns every customer ordered by name.
func (r *Repository) List(ctx context.Context) ([]models.Customer, error) {
	var customers []models.Customer
	if err := r.db.WithContext(ctx).
		Order("name ASC").
		Order("id ASC").
		Find(&customers).Error; err != nil {
		return nil, err
	}
	return customers, nil
}

func (r *Repository) Create(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	if err := r.db.WithContext(ctx).Create(customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

func (r *Repository) Update(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	if err := r.db.WithContext(ctx).Save(customer).Error; err != nil {
		return nil, err
	}
	return customer, nil
}

// Delete removes the customer and reports whether a row existed.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	res := r.db.WithContext(ctx).Delete(&models.Customer{}, "id = ?", id)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// RecordPurchase adds amount to the running total and stamps last_purchase.
// The sum is computed in decimal rather than in SQL: sqlite would add the
// numeric column as a REAL. On postgres the row is locked FOR UPDATE so
// concurrent purchases for one customer serialize. It reports false when no
// customer has the id.
func (r *Repository) RecordPurchase(ctx context.Context, id uuid.UUID, amount decimal.Decimal, when time.Time) (bool, error) {
	found := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		query := tx
		if tx.Dialector.Name() == "postgres" {
			query = query.Clauses(clause.Locking{Strength: "UPDATE"})
		}
		var customer models.Customer
		if err := query.Select("id", "total_purchases").First(&customer, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return err
		}
		found = true
		return tx.Model(&models.Customer{}).
			Where("id = ?", id).
			UpdateColumns(map[string]any{
				"total_purchases": customer.TotalPurchases.Add(amount),
				"last_purchase":   when,
				"updated_at":      when,
			}).Error
	})
	if err != nil {
		return false, err
	}
	return found, nil
}

// Count returns how many customers exist.
func (r *Repository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Customer{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}
