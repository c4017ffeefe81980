package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/retailpos-backend/api/responses"
	"github.com/angelmondragon/retailpos-backend/api/validators"
	"github.com/angelmondragon/retailpos-backend/internal/checkout"
	"github.com/angelmondragon/retailpos-backend/internal/sales"
	pkgerrors "github.com/angelmondragon/retailpos-backend/pkg/errors"
	"github.com/angelmondragon/retailpos-backend/pkg/logger"
	"github.com/angelmondragon/retailpos-backend/pkg/pagination"
	"github.com/angelmondragon/retailpos-backend/pkg/types"
)

const saleIDParam = "saleId"

type createSaleRequest struct {
	CustomerID    types.NullableUUID `json:"customerId"`
	Items         []saleItemRequest  `json:"items"`
	PaymentMethod string             `json:"paymentMethod"`
}

type saleItemRequest struct {
	ProductID uuid.UUID `json:"productId"`
	Quantity  int       `json:"quantity"`
}

func (r createSaleRequest) toInput() checkout.CreateSaleInput {
	items := make([]checkout.BasketItem, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, checkout.BasketItem{ProductID: item.ProductID, Quantity: item.Quantity})
	}
	return checkout.CreateSaleInput{
		CustomerID:    r.CustomerID.Ptr(),
		Items:         items,
		PaymentMethod: strings.TrimSpace(r.PaymentMethod),
	}
}

// CreateSale rings up a basket. Basket rules (empty, unknown products, stock) are
// enforced by the checkout service so the HTTP layer only decodes.
func CreateSale(svc checkout.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}
		var payload createSaleRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sale, err := svc.CreateSale(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, sale)
	}
}

func GetSale(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}
		id, err := validators.ParseUUIDParam(r, saleIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		sale, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, sale)
	}
}

func ListSales(svc sales.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "sales service unavailable"))
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		from, err := validators.ParseQueryTime(r, "from")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		to, err := validators.ParseQueryRangeEnd(r, "to")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.List(r.Context(), sales.ListParams{
			Params: pagination.Params{
				Limit:  limit,
				Cursor: strings.TrimSpace(r.URL.Query().Get("cursor")),
			},
			From: from,
			To:   to,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
