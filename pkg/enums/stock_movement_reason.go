package enums

import "fmt"

// StockMovementReason explains why a product quantity changed.
type StockMovementReason string

const (
	StockMovementSale             StockMovementReason = "sale"
	StockMovementManualAdjustment StockMovementReason = "manual_adjustment"
	StockMovementSeed             StockMovementReason = "seed"
)

var validStockMovementReasons = []StockMovementReason{
	StockMovementSale,
	StockMovementManualAdjustment,
	StockMovementSeed,
}

func (r StockMovementReason) String() string {
	return string(r)
}

func (r StockMovementReason) IsValid() bool {
	for _, candidate := range validStockMovementReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

func ParseStockMovementReason(value string) (StockMovementReason, error) {
	for _, candidate := range validStockMovementReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock movement reason %q", value)
}
