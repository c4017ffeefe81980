package payloads

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/retailpos-backend/pkg/enums"
)

// SaleRecordedLine is one basket line as it was charged.
type SaleRecordedLine struct {
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
}

// SaleRecordedEvent is emitted once per committed sale.
type SaleRecordedEvent struct {
	SaleID        uuid.UUID           `json:"saleId"`
	CustomerID    *uuid.UUID          `json:"customerId,omitempty"`
	Total         decimal.Decimal     `json:"total"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	Items         []SaleRecordedLine  `json:"items"`
	RecordedAt    time.Time           `json:"recordedAt"`
}

// StockAdjustedEvent reports a manual quantity change.
type StockAdjustedEvent struct {
	ProductID     uuid.UUID `json:"productId"`
	Delta         int       `json:"delta"`
	QuantityAfter int       `json:"quantityAfter"`
	Note          string    `json:"note,omitempty"`
}

// LowStockDetectedEvent fires when a product quantity falls below the threshold.
type LowStockDetectedEvent struct {
	ProductID   uuid.UUID  `json:"productId"`
	ProductName string     `json:"productName"`
	Quantity    int        `json:"quantity"`
	Threshold   int        `json:"threshold"`
	SaleID      *uuid.UUID `json:"saleId,omitempty"`
}
