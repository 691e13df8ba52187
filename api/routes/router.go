package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/serialstock/api/controllers"
	"github.com/angelmondragon/serialstock/api/middleware"
	"github.com/angelmondragon/serialstock/internal/allocation"
	"github.com/angelmondragon/serialstock/internal/audit"
	"github.com/angelmondragon/serialstock/internal/availability"
	"github.com/angelmondragon/serialstock/internal/correlation"
	"github.com/angelmondragon/serialstock/pkg/config"
	"github.com/angelmondragon/serialstock/pkg/logger"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP controllers.Pinger,
	redisP controllers.Pinger,
	metricsHandler http.Handler,
	allocationService allocation.Service,
	correlationService correlation.Service,
	availabilityService availability.Service,
	auditService audit.Service,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisP))
	})
	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Actor(cfg.JWT, logg))

		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", controllers.CreateReservation(allocationService, logg))
			r.Get("/{correlationID}", controllers.GetReservation(correlationService, logg))
			r.Delete("/{correlationID}", controllers.ReleaseReservation(correlationService, logg))
			r.Delete("/{correlationID}/variants/{variantID}", controllers.ReleaseReservationVariant(correlationService, logg))
		})

		r.Route("/units", func(r chi.Router) {
			r.Post("/release", controllers.ReleaseUnits(allocationService, logg))
			r.Post("/import", controllers.ImportUnits(allocationService, logg))
			r.Post("/generate", controllers.GenerateUnits(allocationService, logg))
			r.Post("/{unitID}/return", controllers.UnitLifecycle(allocationService, controllers.LifecycleReturn, logg))
			r.Post("/{unitID}/refund", controllers.UnitLifecycle(allocationService, controllers.LifecycleRefund, logg))
			r.Post("/{unitID}/damage", controllers.UnitLifecycle(allocationService, controllers.LifecycleDamage, logg))
			r.Post("/{unitID}/unavailable", controllers.UnitLifecycle(allocationService, controllers.LifecycleUnavailable, logg))
		})

		r.Post("/sales/confirm", controllers.ConfirmSale(allocationService, logg))
		r.Get("/variants/{variantID}/availability", controllers.VariantAvailability(availabilityService, logg))
		r.Get("/audit", controllers.AuditHistory(auditService, logg))
	})

	return r
}
