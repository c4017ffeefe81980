// Package seed loads the sample catalog and customer list into an empty database.
package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailpos-backend/pkg/db/models"
	"github.com/angelmondragon/retailpos-backend/pkg/enums"
	"github.com/angelmondragon/retailpos-backend/pkg/logger"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type sampleProduct struct {
	name        string
	description string
	category    string
	price       string
	quantity    int
}

type sampleCustomer struct {
	name    string
	email   string
	phone   string
	address string
}

var sampleProducts = []sampleProduct{
	{"Laptop", "High-performance laptop", "Electronics", "1200", 15},
	{"Smartphone", "Latest smartphone", "Electronics", "800", 30},
	{"Headphones", "Noise-cancelling headphones", "Electronics", "250", 50},
	{"Desk Chair", "Ergonomic office chair", "Furniture", "350", 20},
	{"Coffee Maker", "Automatic coffee machine", "Appliances", "150", 25},
}

var sampleCustomers = []sampleCustomer{
	{"John Doe", "john@example.com", "123-456-7890", "123 Main St"},
	{"Jane Smith", "jane@example.com", "098-765-4321", "456 Oak Ave"},
	{"Bob Johnson", "bob@example.com", "555-123-4567", "789 Pine Rd"},
}

// Result reports how many rows each table received.
type Result struct {
	Products  int
	Customers int
}

// Run inserts the sample rows for every table that is still empty.
// Tables that already hold data are left alone.
func Run(ctx context.Context, runner txRunner, logg *logger.Logger, now time.Time) (Result, error) {
	var result Result
	err := runner.WithTx(ctx, func(tx *gorm.DB) error {
		db := tx.WithContext(ctx)

		var productCount int64
		if err := db.Model(&models.Product{}).Count(&productCount).Error; err != nil {
			return fmt.Errorf("count products: %w", err)
		}
		if productCount == 0 {
			for _, sample := range sampleProducts {
				product := &models.Product{
					Name:        sample.name,
					Description: sample.description,
					Category:    sample.category,
					Price:       decimal.RequireFromString(sample.price),
					Quantity:    sample.quantity,
				}
				if err := db.Create(product).Error; err != nil {
					return fmt.Errorf("insert product %s: %w", sample.name, err)
				}
				movement := &models.StockMovement{
					ProductID:     product.ID,
					Delta:         sample.quantity,
					QuantityAfter: sample.quantity,
					Reason:        enums.StockMovementSeed,
					CreatedAt:     now,
				}
				if err := db.Create(movement).Error; err != nil {
					return fmt.Errorf("insert seed movement: %w", err)
				}
				result.Products++
			}
		}

		var customerCount int64
		if err := db.Model(&models.Customer{}).Count(&customerCount).Error; err != nil {
			return fmt.Errorf("count customers: %w", err)
		}
		if customerCount == 0 {
			for _, sample := range sampleCustomers {
				customer := &models.Customer{
					Name:           sample.name,
					Email:          sample.email,
					Phone:          sample.phone,
					Address:        sample.address,
					TotalPurchases: decimal.Zero,
					JoinedAt:       now,
				}
				if err := db.Create(customer).Error; err != nil {
					return fmt.Errorf("insert customer %s: %w", sample.name, err)
				}
				result.Customers++
			}
		}
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	if logg != nil {
		logCtx := logg.WithFields(ctx, map[string]any{
			"products":  result.Products,
			"customers": result.Customers,
		})
		logg.Info(logCtx, "sample data seeded")
	}
	return result, nil
}
