package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/storyprint-backend/api/controllers"
	printordercontrollers "github.com/angelmondragon/storyprint-backend/api/controllers/printorders"
	"github.com/angelmondragon/storyprint-backend/api/middleware"
	"github.com/angelmondragon/storyprint-backend/internal/printorders"
	products "github.com/angelmondragon/storyprint-backend/internal/products"
	"github.com/angelmondragon/storyprint-backend/pkg/config"
	"github.com/angelmondragon/storyprint-backend/pkg/enums"
	"github.com/angelmondragon/storyprint-backend/pkg/logger"
	"github.com/angelmondragon/storyprint-backend/pkg/metrics"
	"github.com/angelmondragon/storyprint-backend/pkg/redis"
)

// Deps carries everything the HTTP surface needs.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	DB          controllers.Pinger
	Redis       controllers.Pinger
	Idempotency redis.IdempotencyStore
	PrintOrders printorders.Service
	Products    products.Service
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.App.CORSOrigins),
		middleware.Logging(logg),
		middleware.Metrics(d.HTTPMetrics),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, d.DB, d.Redis))
	})

	gatherer := d.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	r.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.ActorRoleParent, logg))
		r.Use(middleware.Idempotency(d.Idempotency, logg))

		r.Get("/print-products", controllers.PrintProducts(d.Products, logg))
		r.Route("/print-orders", func(r chi.Router) {
			r.Get("/", printordercontrollers.ParentList(d.PrintOrders, logg))
			r.Post("/", printordercontrollers.ParentCreate(d.PrintOrders, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Use(middleware.OrderScope(logg))
				r.Get("/", printordercontrollers.ParentDetail(d.PrintOrders, logg))
				r.Post("/pay", printordercontrollers.ParentPay(d.PrintOrders, logg))
			})
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RequireRole(enums.ActorRoleAdmin, logg))
		r.Use(middleware.Idempotency(d.Idempotency, logg))

		r.Route("/print-orders", func(r chi.Router) {
			r.Get("/", printordercontrollers.AdminList(d.PrintOrders, logg))
			r.Route("/{orderId}", func(r chi.Router) {
				r.Use(middleware.OrderScope(logg))
				r.Get("/", printordercontrollers.AdminDetail(d.PrintOrders, logg))
				r.Post("/approve", printordercontrollers.AdminApprove(d.PrintOrders, logg))
				r.Post("/submit", printordercontrollers.AdminSubmit(d.PrintOrders, logg))
				r.Post("/confirm", printordercontrollers.AdminConfirm(d.PrintOrders, logg))
				r.Post("/cancel", printordercontrollers.AdminCancel(d.PrintOrders, logg))
				r.Post("/refresh-status", printordercontrollers.AdminRefreshStatus(d.PrintOrders, logg))
				r.Post("/validate", printordercontrollers.AdminRevalidate(d.PrintOrders, logg))
			})
		})
	})

	return r
}
