/**
 * @description
 * This file sets up the HTTP router for the open banking service. It defines
 * the tool dispatch endpoint, read-only resource endpoints, and applies any
 * necessary middleware, such as for authentication.
 *
 * @dependencies
 * - net/http: Standard Go library for HTTP functionality.
 * - github.com/go-chi/chi/v5: A lightweight and idiomatic router for Go.
 */

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes creates and returns the router for the open banking service.
func Routes(h *ToolHandlers, registry *ToolRegistry, internalAPIKey string) http.Handler {
	r := chi.NewRouter()

	// Add standard middleware for logging, panic recovery, and timeouts.
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("healthy"))
	})

	// Group routes that require the internal API key.
	r.Group(func(r chi.Router) {
		r.Use(InternalAPIKeyMiddleware(internalAPIKey))

		// Tool surface
		r.Get("/tools", registry.ListToolsHandler)
		r.Post("/tools/{name}", registry.DispatchHandler)

		// Read-only resource endpoints
		r.Get("/resources/accounts", h.ListAccountsResource)
		r.Get("/resources/accounts/{id}", h.GetAccountResource)
		r.Get("/resources/accounts/{id}/balance", h.GetAccountBalanceResource)
		r.Get("/resources/beneficiaries", h.ListBeneficiariesResource)
		r.Get("/resources/payments", h.ListPaymentsResource)
		r.Get("/resources/payments/{id}", h.GetPaymentResource)
	})

	return r
}
