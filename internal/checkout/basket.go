package checkout

import (
	"strconv"

	"github.com/google/uuid"

	pkgerrors "github.com/angelmondragon/retailpos-backend/pkg/errors"
)

// maxProductQuantity caps the merged demand for one product in a single sale.
const maxProductQuantity = 1_000_000

// BasketItem is one requested product/quantity pair.
type BasketItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// basketLine is the per-product demand after duplicate lines are merged.
type basketLine struct {
	ProductID uuid.UUID
	Quantity  int
}

// normalizeBasket validates the raw items and merges repeated products,
// keeping the order in which each product first appeared.
func normalizeBasket(items []BasketItem) ([]basketLine, error) {
	if len(items) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeEmptyBasket, "sale must have at least one item")
	}

	details := map[string]string{}
	for i, item := range items {
		field := "items[" + strconv.Itoa(i) + "]"
		if item.ProductID == uuid.Nil {
			details[field+".productId"] = "is required"
		}
		switch {
		case item.Quantity <= 0:
			details[field+".quantity"] = "must be at least 1"
		case item.Quantity > maxProductQuantity:
			details[field+".quantity"] = "must be at most " + strconv.Itoa(maxProductQuantity)
		}
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid basket").WithDetails(details)
	}

	index := make(map[uuid.UUID]int, len(items))
	lines := make([]basketLine, 0, len(items))
	for i, item := range items {
		if pos, ok := index[item.ProductID]; ok {
			// Both operands are within the cap, so the comparison cannot overflow.
			if lines[pos].Quantity > maxProductQuantity-item.Quantity {
				return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid basket").WithDetails(map[string]string{
					"items[" + strconv.Itoa(i) + "].quantity": "total for this product must be at most " + strconv.Itoa(maxProductQuantity),
				})
			}
			lines[pos].Quantity += item.Quantity
			continue
		}
		index[item.ProductID] = len(lines)
		lines = append(lines, basketLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return lines, nil
}

func productIDs(lines []basketLine) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ProductID)
	}
	return ids
}

func totalUnits(lines []basketLine) int {
	units := 0
	for _, line := range lines {
		units += line.Quantity
	}
	return units
}
