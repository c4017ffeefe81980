package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Customer tracks contact details and the running purchase aggregate.
type Customer struct {
	ID             uuid.UUID       `gorm:"column:id;type:uuid;primaryKey"`
	Name           string          `gorm:"column:name;not null;index"`
	Email          string          `gorm:"column:email"`
	Phone          string          `gorm:"column:phone"`
	Address        string          `gorm:"column:address"`
	TotalPurchases decimal.Decimal `gorm:"column:total_purchases;type:numeric(12,2);not null"`
	LastPurchase   *time.Time      `gorm:"column:last_purchase"`
	JoinedAt       time.Time       `gorm:"column:joined_at;not null"`
	UpdatedAt      time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

func (c *Customer) BeforeCreate(*gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
