package enums

import "fmt"

// OutboxAggregateType names the aggregate an outbox event describes.
type OutboxAggregateType string

const (
	AggregateSale    OutboxAggregateType = "sale"
	AggregateProduct OutboxAggregateType = "product"
)

var validAggregateTypes = []OutboxAggregateType{
	AggregateSale,
	AggregateProduct,
}

// IsValid reports whether the value is a known aggregate type.
func (a OutboxAggregateType) IsValid() bool {
	for _, candidate := range validAggregateTypes {
		if candidate == a {
			return true
		}
	}
	return false
}

// ParseOutboxAggregateType converts raw input into OutboxAggregateType.
func ParseOutboxAggregateType(value string) (OutboxAggregateType, error) {
	for _, candidate := range validAggregateTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid aggregate type %q", value)
}

// OutboxEventType enumerates domain events written to the outbox.
type OutboxEventType string

const (
	EventSaleRecorded     OutboxEventType = "sale_recorded"
	EventStockAdjusted    OutboxEventType = "stock_adjusted"
	EventLowStockDetected OutboxEventType = "low_stock_detected"
)

var validOutboxEventTypes = []OutboxEventType{
	EventSaleRecorded,
	EventStockAdjusted,
	EventLowStockDetected,
}

// IsValid reports whether the value is a known event type.
func (e OutboxEventType) IsValid() bool {
	for _, candidate := range validOutboxEventTypes {
		if candidate == e {
			return true
		}
	}
	return false
}

// ParseOutboxEventType converts raw input into OutboxEventType.
func ParseOutboxEventType(value string) (OutboxEventType, error) {
	for _, candidate := range validOutboxEventTypes {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid event type %q", value)
}
