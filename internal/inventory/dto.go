package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/retailpos-backend/pkg/db/models"
	"github.com/angelmondragon/retailpos-backend/pkg/enums"
)

// LowStockAlert flags a product whose quantity is under the configured threshold.
type LowStockAlert struct {
	ProductID uuid.UUID `json:"productId"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Quantity  int       `json:"quantity"`
	Threshold int       `json:"threshold"`
}

type MovementDTO struct {
	ID            uuid.UUID                 `json:"id"`
	ProductID     uuid.UUID                 `json:"productId"`
	Delta         int                       `json:"delta"`
	QuantityAfter int                       `json:"quantityAfter"`
	Reason        enums.StockMovementReason `json:"reason"`
	SaleID        *uuid.UUID                `json:"saleId,omitempty"`
	Note          *string                   `json:"note,omitempty"`
	CreatedAt     time.Time                 `json:"createdAt"`
}

type MovementListResult struct {
	Movements  []MovementDTO `json:"movements"`
	NextCursor string        `json:"nextCursor,omitempty"`
}

func newMovementDTO(m models.StockMovement) MovementDTO {
	return MovementDTO{
		ID:            m.ID,
		ProductID:     m.ProductID,
		Delta:         m.Delta,
		QuantityAfter: m.QuantityAfter,
		Reason:        m.Reason,
		SaleID:        m.SaleID,
		Note:          m.Note,
		CreatedAt:     m.CreatedAt,
	}
}
