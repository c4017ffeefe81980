package customers

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/retailpos-backend/pkg/db/models"
)

// CustomerDTO is the customer payload returned to clients.
type CustomerDTO struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Phone          string          `json:"phone"`
	Address        string          `json:"address"`
	TotalPurchases decimal.Decimal `json:"totalPurchases"`
	LastPurchase   *time.Time      `json:"lastPurchase"`
	JoinDate       time.Time       `json:"joinDate"`
}

func NewCustomerDTO(customer *models.Customer) *CustomerDTO {
	if customer == nil {
		return nil
	}
	return &CustomerDTO{
		ID:             customer.ID,
		Name:           customer.Name,
		Email:          customer.Email,
		Phone:          customer.Phone,
		Address:        customer.Address,
		TotalPurchases: customer.TotalPurchases,
		LastPurchase:   customer.LastPurchase,
		JoinDate:       customer.JoinedAt,
	}
}
