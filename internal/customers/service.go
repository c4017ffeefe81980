package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailpos-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/retailpos-backend/pkg/errors"
)

// Service exposes customer management and the purchase aggregate.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*CustomerDTO, error)
	List(ctx context.Context) ([]CustomerDTO, error)
	Create(ctx context.Context, input CreateCustomerInput) (*CustomerDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateCustomerInput) (*CustomerDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	RecordPurchase(ctx context.Context, tx *gorm.DB, id uuid.UUID, amount decimal.Decimal, when time.Time) error
}

type CreateCustomerInput struct {
	Name    string
	Email   string
	Phone   string
	Address string
}

// UpdateCustomerInput holds optional mutation values; nil fields are left untouched.
type UpdateCustomerInput struct {
	Name    *string
	Email   *string
	Phone   *string
	Address *string
}

var emailValidator = validator.New()

type service struct {
	repo *Repository
	now  func() time.Time
}

// NewService constructs a customer service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("customer repository required")
	}
	return &service{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*CustomerDTO, error) {
	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return NewCustomerDTO(customer), nil
}

func (s *service) List(ctx context.Context) ([]CustomerDTO, error) {
	rows, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list customers")
	}
	out := make([]CustomerDTO, 0, len(rows))
	for i := range rows {
		out = append(out, *NewCustomerDTO(&rows[i]))
	}
	return out, nil
}

func (s *service) Create(ctx context.Context, input CreateCustomerInput) (*CustomerDTO, error) {
	name := strings.TrimSpace(input.Name)
	email := strings.TrimSpace(input.Email)
	details := map[string]string{}
	if name == "" {
		details["name"] = "is required"
	}
	if msg := checkEmail(email); msg != "" {
		details["email"] = msg
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid customer").WithDetails(details)
	}

	customer := &models.Customer{
		Name:           name,
		Email:          email,
		Phone:          strings.TrimSpace(input.Phone),
		Address:        strings.TrimSpace(input.Address),
		TotalPurchases: decimal.Zero,
		JoinedAt:       s.now(),
	}
	created, err := s.repo.Create(ctx, customer)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert customer")
	}
	return NewCustomerDTO(created), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateCustomerInput) (*CustomerDTO, error) {
	details := map[string]string{}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		details["name"] = "must not be empty"
	}
	if input.Email != nil {
		if msg := checkEmail(strings.TrimSpace(*input.Email)); msg != "" {
			details["email"] = msg
		}
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid customer update").WithDetails(details)
	}

	customer, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	if input.Name != nil {
		customer.Name = strings.TrimSpace(*input.Name)
	}
	if input.Email != nil {
		customer.Email = strings.TrimSpace(*input.Email)
	}
	if input.Phone != nil {
		customer.Phone = strings.TrimSpace(*input.Phone)
	}
	if input.Address != nil {
		customer.Address = strings.TrimSpace(*input.Address)
	}
	updated, err := s.repo.Update(ctx, customer)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update customer")
	}
	return NewCustomerDTO(updated), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete customer")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return nil
}

// RecordPurchase updates the purchase aggregate inside tx, or directly when tx is nil.
func (s *service) RecordPurchase(ctx context.Context, tx *gorm.DB, id uuid.UUID, amount decimal.Decimal, when time.Time) error {
	repo := s.repo
	if tx != nil {
		repo = repo.WithTx(tx)
	}
	found, err := repo.RecordPurchase(ctx, id, amount, when)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: record purchase")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return nil
}

func checkEmail(email string) string {
	if email == "" {
		return ""
	}
	if err := emailValidator.Var(email, "email"); err != nil {
		return "must be a valid email"
	}
	return ""
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "customer not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load customer")
}
