package inventory

import (
	"time"

	"github.com/google/uuid"

	"github.com/angelmondragon/retailpos-backend/pkg/enums"
	"github.com/angelmondragon/retailpos-backend/pkg/outbox"
	"github.com/angelmondragon/retailpos-backend/pkg/outbox/payloads"
)

// NewLowStockEvent builds the low_stock_detected event for a product that fell under threshold.
func NewLowStockEvent(productID uuid.UUID, name string, quantity, threshold int, saleID *uuid.UUID, source string, at time.Time) outbox.DomainEvent {
	return outbox.DomainEvent{
		EventType:     enums.EventLowStockDetected,
		AggregateType: enums.AggregateProduct,
		AggregateID:   productID,
		Actor:         &outbox.ActorRef{Source: source},
		OccurredAt:    at,
		Data: payloads.LowStockDetectedEvent{
			ProductID:   productID,
			ProductName: name,
			Quantity:    quantity,
			Threshold:   threshold,
			SaleID:      saleID,
		},
	}
}

// IsLow reports whether quantity is under the low-stock threshold.
func IsLow(quantity, threshold int) bool {
	return quantity < threshold
}
