package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailpos-backend/pkg/enums"
)

// StockMovement is an append-only audit row written for every quantity change.
type StockMovement struct {
	ID            uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	ProductID     uuid.UUID                 `gorm:"column:product_id;type:uuid;not null;index"`
	Delta         int                       `gorm:"column:delta;not null"`
	QuantityAfter int                       `gorm:"column:quantity_after;not null"`
	Reason        enums.StockMovementReason `gorm:"column:reason;not null"`
	SaleID        *uuid.UUID                `gorm:"column:sale_id;type:uuid;index"`
	Note          *string                   `gorm:"column:note"`
	CreatedAt     time.Time                 `gorm:"column:created_at;autoCreateTime;index"`
}

func (m *StockMovement) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
