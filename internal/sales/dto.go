package sales

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/retailpos-backend/pkg/db/models"
	"github.com/angelmondragon/retailpos-backend/pkg/enums"
)

// SaleDTO is a ledger entry with its lines and display names.
type SaleDTO struct {
	ID            uuid.UUID           `json:"id"`
	CustomerID    *uuid.UUID          `json:"customerId"`
	CustomerName  *string             `json:"customerName"`
	Total         decimal.Decimal     `json:"total"`
	PaymentMethod enums.PaymentMethod `json:"paymentMethod"`
	Date          time.Time           `json:"date"`
	Items         []SaleItemDTO       `json:"items"`
}

type SaleItemDTO struct {
	ProductID   uuid.UUID       `json:"productId"`
	ProductName string          `json:"productName"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	LineTotal   decimal.Decimal `json:"lineTotal"`
}

// SaleListResult is one page of the ledger.
type SaleListResult struct {
	Sales      []SaleDTO `json:"sales"`
	NextCursor string    `json:"nextCursor,omitempty"`
}

func newSaleDTO(header saleRow, items []itemRow) SaleDTO {
	dto := SaleDTO{
		ID:            header.ID,
		CustomerID:    header.CustomerID,
		CustomerName:  header.CustomerName,
		Total:         header.Total,
		PaymentMethod: header.PaymentMethod,
		Date:          header.CreatedAt,
		Items:         make([]SaleItemDTO, 0, len(items)),
	}
	for _, item := range items {
		name := item.ProductName
		if item.CurrentName != nil && *item.CurrentName != "" {
			name = *item.CurrentName
		}
		dto.Items = append(dto.Items, SaleItemDTO{
			ProductID:   item.ProductID,
			ProductName: name,
			Quantity:    item.Quantity,
			Price:       item.Price,
			LineTotal:   item.LineTotal,
		})
	}
	return dto
}

// NewSaleDTO renders a just-written sale from its in-memory row, using the
// snapshot product names and the given customer name.
func NewSaleDTO(sale *models.Sale, customerName *string) *SaleDTO {
	if sale == nil {
		return nil
	}
	dto := &SaleDTO{
		ID:            sale.ID,
		CustomerID:    sale.CustomerID,
		CustomerName:  customerName,
		Total:         sale.Total,
		PaymentMethod: sale.PaymentMethod,
		Date:          sale.CreatedAt,
		Items:         make([]SaleItemDTO, 0, len(sale.Items)),
	}
	for _, item := range sale.Items {
		dto.Items = append(dto.Items, SaleItemDTO{
			ProductID:   item.ProductID,
			ProductName: item.ProductName,
			Quantity:    item.Quantity,
			Price:       item.Price,
			LineTotal:   item.LineTotal,
		})
	}
	return dto
}
