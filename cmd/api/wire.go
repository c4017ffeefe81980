package main

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/retailpos-backend/api/routes"
	"github.com/angelmondragon/retailpos-backend/internal/catalog"
	"github.com/angelmondragon/retailpos-backend/internal/checkout"
	"github.com/angelmondragon/retailpos-backend/internal/customers"
	"github.com/angelmondragon/retailpos-backend/internal/inventory"
	"github.com/angelmondragon/retailpos-backend/internal/sales"
	"github.com/angelmondragon/retailpos-backend/pkg/config"
	"github.com/angelmondragon/retailpos-backend/pkg/db"
	"github.com/angelmondragon/retailpos-backend/pkg/enums"
	"github.com/angelmondragon/retailpos-backend/pkg/logger"
	"github.com/angelmondragon/retailpos-backend/pkg/metrics"
	"github.com/angelmondragon/retailpos-backend/pkg/outbox"
)

func buildServices(cfg *config.Config, logg *logger.Logger, dbClient *db.Client, reg prometheus.Registerer) (routes.Services, error) {
	conn := dbClient.DB()
	salesMetrics := metrics.NewSalesMetrics(reg)

	productRepo := catalog.NewRepository(conn)
	movementRepo := inventory.NewMovementRepository(conn)
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)

	paymentMethod, err := enums.ParsePaymentMethod(cfg.Sales.DefaultPaymentMethod)
	if err != nil {
		return routes.Services{}, fmt.Errorf("default payment method: %w", err)
	}

	catalogSvc, err := catalog.NewService(productRepo)
	if err != nil {
		return routes.Services{}, fmt.Errorf("catalog service: %w", err)
	}
	customerSvc, err := customers.NewService(customers.NewRepository(conn))
	if err != nil {
		return routes.Services{}, fmt.Errorf("customer service: %w", err)
	}
	salesSvc, err := sales.NewService(sales.NewRepository(conn))
	if err != nil {
		return routes.Services{}, fmt.Errorf("sales service: %w", err)
	}
	inventorySvc, err := inventory.NewService(inventory.ServiceParams{
		TxRunner:  dbClient,
		Products:  productRepo,
		Movements: movementRepo,
		Outbox:    emitter,
		Metrics:   salesMetrics,
		Logger:    logg,
		Config:    cfg.Inventory,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("inventory service: %w", err)
	}
	checkoutSvc, err := checkout.NewService(checkout.ServiceParams{
		TxRunner:             dbClient,
		Products:             productRepo,
		Movements:            movementRepo,
		Ledger:               salesSvc,
		Customers:            customerSvc,
		Outbox:               emitter,
		Metrics:              salesMetrics,
		Logger:               logg,
		LowStockThreshold:    cfg.Inventory.LowStockThreshold,
		DefaultPaymentMethod: paymentMethod,
	})
	if err != nil {
		return routes.Services{}, fmt.Errorf("checkout service: %w", err)
	}

	return routes.Services{
		Catalog:   catalogSvc,
		Customers: customerSvc,
		Sales:     salesSvc,
		Checkout:  checkoutSvc,
		Inventory: inventorySvc,
	}, nil
}
