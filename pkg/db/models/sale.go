package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailpos-backend/pkg/enums"
)

// Sale is an immutable ledger header. CustomerID is nil for walk-in sales.
type Sale struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	CustomerID    *uuid.UUID          `gorm:"column:customer_id;type:uuid;index"`
	Total         decimal.Decimal     `gorm:"column:total;type:numeric(12,2);not null"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;not null"`
	CreatedAt     time.Time           `gorm:"column:created_at;not null;index"`
	Items         []SaleItem          `gorm:"foreignKey:SaleID;constraint:OnDelete:CASCADE"`
}

func (s *Sale) BeforeCreate(*gorm.DB) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	return nil
}

// SaleItem is one basket line with the unit price and product name captured at sale time.
type SaleItem struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	SaleID      uuid.UUID       `gorm:"column:sale_id;type:uuid;not null;index"`
	ProductID   uuid.UUID       `gorm:"column:product_id;type:uuid;not null;index"`
	ProductName string          `gorm:"column:product_name;not null"`
	Position    int             `gorm:"column:position;not null"`
	Quantity    int             `gorm:"column:quantity;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	LineTotal   decimal.Decimal `gorm:"column:line_total;type:numeric(12,2);not null"`
}

func (i *SaleItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
