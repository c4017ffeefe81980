package inventory

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailpos-backend/pkg/db/models"
	"github.com/angelmondragon/retailpos-backend/pkg/pagination"
)

// MovementRepository appends and reads the stock audit trail.
type MovementRepository struct {
	db *gorm.DB
}

func NewMovementRepository(db *gorm.DB) *MovementRepository {
	return &MovementRepository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *MovementRepository) WithTx(tx *gorm.DB) *MovementRepository {
	return &MovementRepository{db: tx}
}

func (r *MovementRepository) Insert(ctx context.Context, movement *models.StockMovement) error {
	return r.db.WithContext(ctx).Create(movement).Error
}

// ListByProduct returns movements newest first, fetching at most limit rows after cursor.
func (r *MovementRepository) ListByProduct(ctx context.Context, productID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.StockMovement, error) {
	query := r.db.WithContext(ctx).Where("product_id = ?", productID)
	if cursor != nil {
		query = query.Where(
			"(created_at < ?) OR (created_at = ? AND id < ?)",
			cursor.CreatedAt, cursor.CreatedAt, cursor.ID,
		)
	}
	var rows []models.StockMovement
	if err := query.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
