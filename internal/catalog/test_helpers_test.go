package catalog

import (
	"testing"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailpos-backend/pkg/db/models"
)

func mustCreateProduct(t *testing.T, conn *gorm.DB, name string, price string, qty int) *models.Product {
	t.Helper()
	product := &models.Product{
		Name:     name,
		Category: "Electronics",
		Price:    decimal.RequireFromString(price),
		Quantity: qty,
	}
	if err := conn.Create(product).Error; err != nil {
		t.Fatalf("create product: %v", err)
	}
	return product
}

func intPtr(v int) *int { return &v }

func decPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}

func strPtr(v string) *string { return &v }
