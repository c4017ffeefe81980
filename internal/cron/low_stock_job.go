package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/retailpos-backend/internal/inventory"
	"github.com/angelmondragon/retailpos-backend/pkg/logger"
	"github.com/angelmondragon/retailpos-backend/pkg/metrics"
)

type lowStockReader interface {
	LowStock(ctx context.Context) ([]inventory.LowStockAlert, error)
}

type LowStockJobParams struct {
	Logger    *logger.Logger
	Inventory lowStockReader
	Metrics   *metrics.SalesMetrics
}

// NewLowStockJob logs every product under the low-stock threshold and exports the count.
func NewLowStockJob(params LowStockJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Inventory == nil {
		return nil, fmt.Errorf("inventory service required")
	}
	return &lowStockJob{
		logg:      params.Logger,
		inventory: params.Inventory,
		metrics:   params.Metrics,
	}, nil
}

type lowStockJob struct {
	logg      *logger.Logger
	inventory lowStockReader
	metrics   *metrics.SalesMetrics
}

func (j *lowStockJob) Name() string { return "low-stock" }

func (j *lowStockJob) Run(ctx context.Context) error {
	alerts, err := j.inventory.LowStock(ctx)
	if err != nil {
		return fmt.Errorf("low stock scan: %w", err)
	}
	j.metrics.SetLowStock(len(alerts))
	for _, alert := range alerts {
		alertCtx := j.logg.WithProductID(ctx, alert.ProductID.String())
		alertCtx = j.logg.WithFields(alertCtx, map[string]any{
			"product_name": alert.Name,
			"quantity":     alert.Quantity,
			"threshold":    alert.Threshold,
		})
		j.logg.Warn(alertCtx, "product below low-stock threshold")
	}
	j.logg.Info(j.logg.WithField(ctx, "low_stock_count", len(alerts)), "low stock scan complete")
	return nil
}
