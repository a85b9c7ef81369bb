package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/frahmantamala/film-payments/internal/countries"
	"github.com/frahmantamala/film-payments/internal/currency"
	"github.com/frahmantamala/film-payments/internal/payment"
	"github.com/frahmantamala/film-payments/internal/transport/middleware"
	"github.com/frahmantamala/film-payments/internal/transport/swagger"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, countriesHandler *countries.Handler, currencyHandler *currency.Handler, paymentHandler *payment.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.CORS)
	router.Use(chiMiddleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))

	// Serve OpenAPI spec at root (outside API prefix)
	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		http.ServeFile(w, r, "./api/openapi.yml")
	})
	// Swagger UI route at root
	router.Handle("/swagger/*", swagger.Handler())

	// Mount API under /api/v1 to match OpenAPI basePath
	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		if countriesHandler != nil {
			r.Get("/countries", countriesHandler.List)
		}

		if currencyHandler != nil {
			r.Get("/exchange-rate", currencyHandler.GetRate)
		}

		if paymentHandler != nil {
			r.Route("/payments", func(pr chi.Router) {
				pr.Post("/intent", paymentHandler.CreateIntent)
				pr.Post("/confirm", paymentHandler.ConfirmPayment)
				pr.Post("/paypal/order", paymentHandler.CreatePayPalOrder)
				pr.Post("/apple-pay", paymentHandler.ProcessApplePay)
				pr.Post("/apple-pay/validate", paymentHandler.ValidateApplePayMerchant)
				pr.Post("/apple-pay/stripe", paymentHandler.ProcessApplePayStripe)
			})
		}
	})
}
