// Package router wires the HTTP surface: customer and admin order
// routes behind JWT auth, provider webhooks behind CIDR allowlists.
package router

import (
	"net/http"

	"gemstore/internal/config"
	"gemstore/internal/handler"
	"gemstore/internal/middleware"
	"gemstore/internal/model"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// New builds the application router.
func New(
	cfg *config.Config,
	orders *handler.OrderHandler,
	deliveries *handler.DeliveryHandler,
	webhooks *handler.WebhookHandler,
	logger zerolog.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api", func(r chi.Router) {
		// Authenticated storefront and back-office surface.
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(cfg.Auth.JWTSigningKey, logger))

			r.Route("/orders", func(r chi.Router) {
				r.Post("/", orders.Create)
				r.Get("/", orders.List)

				r.With(middleware.RequireAdmin).Get("/admin", orders.ListAll)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", orders.GetByID)
					r.Get("/pay", orders.Pay)
					r.Get("/cancel", orders.Cancel)

					r.Group(func(r chi.Router) {
						r.Use(middleware.RequireAdmin)
						r.Patch("/status", orders.UpdateStatus)
						r.Delete("/", orders.Delete)
						r.Post("/restore", orders.Restore)
					})
				})
			})

			r.Post("/delivery/{type}/quote", deliveries.Quote)
		})

		// Provider callbacks: no JWT, the published source ranges are
		// the only authentication the providers offer.
		r.Route("/integrations", func(r chi.Router) {
			r.With(middleware.IPAllowlist(cfg.Acquiring.AllowedCIDRs, logger)).
				Post("/acquiring/webhook", webhooks.Acquiring)

			r.Group(func(r chi.Router) {
				r.Use(middleware.IPAllowlist(cfg.Delivery.LockerAllowedCIDRs, logger))
				r.Post("/locker-network/webhook", webhooks.Delivery(model.DeliveryTypeLocker))
				r.Get("/locker-network", deliveries.LockerAction)
				r.Post("/locker-network", deliveries.LockerAction)
			})

			r.With(middleware.IPAllowlist(cfg.Delivery.PlatformAllowedCIDRs, logger)).
				Post("/platform-delivery/webhook", webhooks.Delivery(model.DeliveryTypePlatform))
			r.With(middleware.IPAllowlist(cfg.Delivery.PostalAllowedCIDRs, logger)).
				Post("/postal/webhook", webhooks.Delivery(model.DeliveryTypePostal))
		})
	})

	return r
}
