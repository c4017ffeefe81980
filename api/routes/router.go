package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/retailpos-backend/api/controllers"
	"github.com/angelmondragon/retailpos-backend/api/middleware"
	"github.com/angelmondragon/retailpos-backend/internal/catalog"
	"github.com/angelmondragon/retailpos-backend/internal/checkout"
	"github.com/angelmondragon/retailpos-backend/internal/customers"
	"github.com/angelmondragon/retailpos-backend/internal/inventory"
	"github.com/angelmondragon/retailpos-backend/internal/sales"
	"github.com/angelmondragon/retailpos-backend/pkg/config"
	"github.com/angelmondragon/retailpos-backend/pkg/logger"
	"github.com/angelmondragon/retailpos-backend/pkg/redis"
)

// Services bundles the domain services exposed over HTTP.
type Services struct {
	Catalog   catalog.Service
	Customers customers.Service
	Sales     sales.Service
	Checkout  checkout.Service
	Inventory inventory.Service
}

// Dependencies carries the infrastructure the router needs besides the services.
// Idempotency and Redis are nil when redis is not configured.
type Dependencies struct {
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency redis.IdempotencyStore
	Gatherer    prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, deps Dependencies, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.App.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg,
			controllers.ReadinessCheck{Name: "db", Pinger: deps.DB},
			controllers.ReadinessCheck{Name: "redis", Pinger: deps.Redis},
		))
	})

	gatherer := deps.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Idempotency(deps.Idempotency, cfg.Sales.IdempotencyTTL, logg))

		r.Route("/products", func(r chi.Router) {
			r.Get("/", controllers.ListProducts(svc.Catalog, logg))
			r.Post("/", controllers.CreateProduct(svc.Catalog, logg))
			r.Route("/{productId}", func(r chi.Router) {
				r.Get("/", controllers.GetProduct(svc.Catalog, logg))
				r.Put("/", controllers.UpdateProduct(svc.Catalog, logg))
				r.Delete("/", controllers.DeleteProduct(svc.Catalog, logg))
				r.Patch("/stock", controllers.AdjustStock(svc.Inventory, logg))
				r.Get("/movements", controllers.ProductMovements(svc.Inventory, logg))
			})
		})

		r.Get("/inventory/low-stock", controllers.LowStock(svc.Inventory, logg))

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", controllers.ListCustomers(svc.Customers, logg))
			r.Post("/", controllers.CreateCustomer(svc.Customers, logg))
			r.Get("/{customerId}", controllers.GetCustomer(svc.Customers, logg))
			r.Put("/{customerId}", controllers.UpdateCustomer(svc.Customers, logg))
			r.Delete("/{customerId}", controllers.DeleteCustomer(svc.Customers, logg))
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", controllers.ListSales(svc.Sales, logg))
			r.Post("/", controllers.CreateSale(svc.Checkout, logg))
			r.Get("/{saleId}", controllers.GetSale(svc.Sales, logg))
		})
	})

	return r
}
