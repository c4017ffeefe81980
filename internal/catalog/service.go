package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/retailpos-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/retailpos-backend/pkg/errors"
)

// Service exposes catalog management operations.
type Service interface {
	Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error)
	List(ctx context.Context) ([]ProductDTO, error)
	Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error)
	Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error)
	Delete(ctx context.Context, id uuid.UUID) error
	AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) (*ProductDTO, error)
}

// CreateProductInput holds the payload to create a product. Price and Quantity are required.
type CreateProductInput struct {
	Name        string
	Description string
	Category    string
	Price       *decimal.Decimal
	Quantity    *int
}

// UpdateProductInput holds optional mutation values; nil fields are left untouched.
type UpdateProductInput struct {
	Name        *string
	Description *string
	Category    *string
	Price       *decimal.Decimal
	Quantity    *int
}

type service struct {
	repo *Repository
}

// NewService constructs a catalog service.
func NewService(repo *Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("catalog repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProductDTO, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return NewProductDTO(product), nil
}

func (s *service) List(ctx context.Context) ([]ProductDTO, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return newProductDTOs(products), nil
}

func (s *service) Create(ctx context.Context, input CreateProductInput) (*ProductDTO, error) {
	name := strings.TrimSpace(input.Name)
	details := map[string]string{}
	if name == "" {
		details["name"] = "is required"
	}
	if input.Price == nil {
		details["price"] = "is required"
	} else if input.Price.IsNegative() {
		details["price"] = "must be at least 0"
	}
	if input.Quantity == nil {
		details["quantity"] = "is required"
	} else if *input.Quantity < 0 {
		details["quantity"] = "must be at least 0"
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name, price, and quantity are required").WithDetails(details)
	}

	product := &models.Product{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		Category:    strings.TrimSpace(input.Category),
		Price:       input.Price.Round(2),
		Quantity:    *input.Quantity,
	}
	created, err := s.repo.Create(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: insert product")
	}
	return NewProductDTO(created), nil
}

func (s *service) Update(ctx context.Context, id uuid.UUID, input UpdateProductInput) (*ProductDTO, error) {
	details := map[string]string{}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		details["name"] = "must not be empty"
	}
	if input.Price != nil && input.Price.IsNegative() {
		details["price"] = "must be at least 0"
	}
	if input.Quantity != nil && *input.Quantity < 0 {
		details["quantity"] = "must be at least 0"
	}
	if len(details) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid product update").WithDetails(details)
	}

	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, mapLoadError(err)
	}
	applyUpdate(product, input)
	updated, err := s.repo.Update(ctx, product)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: update product")
	}
	return NewProductDTO(updated), nil
}

func (s *service) Delete(ctx context.Context, id uuid.UUID) error {
	found, err := s.repo.Delete(ctx, id)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "db: delete product")
	}
	if !found {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return nil
}

// AdjustQuantity applies delta without a floor.
func (s *service) AdjustQuantity(ctx context.Context, id uuid.UUID, delta int) (*ProductDTO, error) {
	product, err := s.repo.Adjust(ctx, id, delta, nil)
	if err != nil {
		return nil, mapLoadError(err)
	}
	return NewProductDTO(product), nil
}

func applyUpdate(product *models.Product, input UpdateProductInput) {
	if input.Name != nil {
		product.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		product.Description = strings.TrimSpace(*input.Description)
	}
	if input.Category != nil {
		product.Category = strings.TrimSpace(*input.Category)
	}
	if input.Price != nil {
		product.Price = input.Price.Round(2)
	}
	if input.Quantity != nil {
		product.Quantity = *input.Quantity
	}
}

func mapLoadError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load product")
}
