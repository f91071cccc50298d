package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/listing-marketplace/internal/listing"
	"github.com/frahmantamala/listing-marketplace/internal/payment"
	"github.com/frahmantamala/listing-marketplace/internal/report"
	"github.com/frahmantamala/listing-marketplace/internal/transport/middleware"
	"github.com/frahmantamala/listing-marketplace/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

type Handlers struct {
	Listing        *listing.Handler
	Payment        *payment.Handler
	Webhook        *payment.WebhookHandler
	Report         *report.Handler
	ReportLimiter  *middleware.RateLimiter
	OpenAPI        *swagger.Document
	Media          http.Handler
	Readiness      map[string]Check
	AllowedOrigins string
}

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, h Handlers, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)
	for name, check := range h.Readiness {
		healthHandler.WithCheck(name, check)
	}

	router.Use(middleware.CORS(h.AllowedOrigins))
	router.Use(chiMiddleware.RealIP)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RequestID)
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.Recover(logger))

	if h.OpenAPI != nil {
		router.Get("/openapi.yml", h.OpenAPI.ServeHTTP)
		router.Handle("/swagger/*", swagger.Handler())
	}
	if h.Media != nil {
		router.Handle("/media/*", http.StripPrefix("/media", h.Media))
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if h.Webhook != nil {
			r.Post("/payment/webhook", h.Webhook.HandleGatewayEvent)
		}
		if h.Payment != nil {
			r.Get("/payment/return", h.Payment.Return)
		}

		if h.Listing != nil {
			r.Get("/catalog", h.Listing.GetCatalog)
			r.Get("/listings", h.Listing.ListListings)
			r.Get("/listings/{id}", h.Listing.GetListing)

			r.Route("/wizard", func(wr chi.Router) {
				wr.Use(middleware.SellerContext)
				wr.Get("/", h.Listing.ListSellerListings)
				wr.Post("/step1", h.Listing.SaveBasics)
				wr.Get("/{id}", h.Listing.GetDraft)
				wr.Put("/{id}/step2", h.Listing.SaveDetails)
				wr.Post("/{id}/step3", h.Listing.SavePhotos)
				wr.Put("/{id}/step4", h.Listing.SavePricing)
				wr.Post("/{id}/submit", h.Listing.Submit)
			})
		}

		if h.Report != nil {
			r.Route("/reports", func(rr chi.Router) {
				if h.ReportLimiter != nil {
					rr.With(h.ReportLimiter.Limit).Post("/", h.Report.CreateReport)
				} else {
					rr.Post("/", h.Report.CreateReport)
				}
				rr.Get("/", h.Report.ListReports)
				rr.Patch("/{id}/status", h.Report.UpdateStatus)
			})
		}

		// operator endpoints; expected to be reachable only from the internal network
		r.Route("/admin", func(ar chi.Router) {
			if h.Listing != nil {
				ar.Post("/sweep", h.Listing.Sweep)
			}
			if h.Payment != nil {
				ar.Post("/repair", h.Payment.Repair)
			}
		})
	})
}
