// Package api assembles the HTTP router.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/kiranshivaraju/elasticbot/docs"
	"github.com/kiranshivaraju/elasticbot/internal/api/handler"
	mw "github.com/kiranshivaraju/elasticbot/internal/api/middleware"
	"github.com/kiranshivaraju/elasticbot/internal/api/response"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Rate limit scopes.
const (
	ScopeCalculate = "calculate"
	ScopeInterpret = "interpret"
)

// Limits are the hourly request allowances per requester.
type Limits struct {
	CalculatePerHour int
	InterpretPerHour int
}

// Dependencies holds all handler and middleware dependencies for the router.
type Dependencies struct {
	Fingerprint *mw.Fingerprint
	RateLimit   *mw.RateLimit
	Limits      Limits

	Elasticity       *handler.Elasticity
	MarketData       *handler.MarketData
	InterpretHandler http.HandlerFunc
	HealthHandler    http.HandlerFunc
}

// NewRouter builds the Chi router with middleware stack and all routes.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(mw.Logger)
	r.Use(mw.Recovery)

	r.Get("/swagger/*", httpSwagger.Handler(
		httpSwagger.URL("/swagger/doc.json"),
	))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", orNotImplemented(deps.HealthHandler))
		r.Post("/simulator/scenario/", handler.Scenario)

		if m := deps.MarketData; m != nil {
			r.Route("/market-data", func(r chi.Router) {
				r.Get("/", m.List)
				r.Get("/latest/", m.Latest)
				r.Get("/{id}/", m.Get)
			})
		}

		r.Group(func(r chi.Router) {
			if deps.Fingerprint != nil {
				r.Use(deps.Fingerprint.Identify)
			}

			if e := deps.Elasticity; e != nil {
				r.Route("/elasticity", func(r chi.Router) {
					r.Get("/", e.List)
					r.With(limit(deps.RateLimit, ScopeCalculate, deps.Limits.CalculatePerHour)).
						Post("/calculate/", e.Calculate)
					r.Get("/recent/", e.Recent)
					r.Get("/{id}/", e.Get)
					r.Get("/{id}/status/", e.Status)
				})
			}

			r.With(limit(deps.RateLimit, ScopeInterpret, deps.Limits.InterpretPerHour)).
				Post("/interpret/generate/", orNotImplemented(deps.InterpretHandler))
		})
	})

	return r
}

func limit(rl *mw.RateLimit, scope string, perHour int) func(http.Handler) http.Handler {
	if rl == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return rl.Limit(scope, perHour)
}

// orNotImplemented returns the handler if non-nil, or a 501 placeholder.
func orNotImplemented(h http.HandlerFunc) http.HandlerFunc {
	if h != nil {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotImplemented, "NOT_IMPLEMENTED", "Endpoint not yet implemented", nil)
	}
}
