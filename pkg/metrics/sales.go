package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
)

// Sale outcomes used as the "outcome" label.
const (
	OutcomeRecorded = "recorded"
	OutcomeRejected = "rejected"
)

// SalesMetrics tracks the checkout pipeline and stock levels.
type SalesMetrics struct {
	sales       *prometheus.CounterVec
	saleTotal   prometheus.Histogram
	saleItems   prometheus.Histogram
	adjustments *prometheus.CounterVec
	lowStock    prometheus.Gauge
}

// NewSalesMetrics registers the sales metrics on reg. A nil registerer yields a no-op recorder.
func NewSalesMetrics(reg prometheus.Registerer) *SalesMetrics {
	if reg == nil {
		return &SalesMetrics{}
	}
	m := &SalesMetrics{
		sales: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retailpos_sales_total",
			Help: "Sale attempts by outcome and error code.",
		}, []string{"outcome", "code"}),
		saleTotal: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "retailpos_sale_amount",
			Help:    "Recorded sale totals in currency units.",
			Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000},
		}),
		saleItems: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "retailpos_sale_units",
			Help:    "Units sold per recorded sale.",
			Buckets: prometheus.LinearBuckets(1, 2, 8),
		}),
		adjustments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "retailpos_stock_adjustments_total",
			Help: "Manual stock adjustments by direction.",
		}, []string{"direction"}),
		lowStock: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "retailpos_low_stock_products",
			Help: "Products below the low-stock threshold on the last scan.",
		}),
	}
	reg.MustRegister(m.sales, m.saleTotal, m.saleItems, m.adjustments, m.lowStock)
	return m
}

// SaleRecorded counts a committed sale and observes its size.
func (m *SalesMetrics) SaleRecorded(total decimal.Decimal, units int) {
	if m == nil || m.sales == nil {
		return
	}
	m.sales.WithLabelValues(OutcomeRecorded, "ok").Inc()
	amount, _ := total.Float64()
	m.saleTotal.Observe(amount)
	m.saleItems.Observe(float64(units))
}

// SaleRejected counts a sale that was rolled back with the given error code.
func (m *SalesMetrics) SaleRejected(code string) {
	if m == nil || m.sales == nil {
		return
	}
	m.sales.WithLabelValues(OutcomeRejected, normalizeLabel(code)).Inc()
}

// StockAdjusted counts a manual adjustment by sign of delta.
func (m *SalesMetrics) StockAdjusted(delta int) {
	if m == nil || m.adjustments == nil {
		return
	}
	direction := "increase"
	if delta < 0 {
		direction = "decrease"
	}
	m.adjustments.WithLabelValues(direction).Inc()
}

// SetLowStock publishes the size of the latest low-stock scan.
func (m *SalesMetrics) SetLowStock(count int) {
	if m == nil || m.lowStock == nil {
		return
	}
	m.lowStock.Set(float64(count))
}
