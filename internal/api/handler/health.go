package handler

import (
	"context"
	"net/http"

	"github.com/kiranshivaraju/elasticbot/internal/api/response"
)

// Pinger is anything whose connectivity the health check reports.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status   string            `json:"status" example:"ok"`
	Services map[string]string `json:"services"`
}

// NewHealthHandler checks every named dependency. A nil Pinger is skipped,
// which is how the broker is left out when async dispatch is off.
//
//	@Summary	Health check
//	@Tags		health
//	@Produce	json
//	@Success	200	{object}	response.Envelope{data=HealthResponse}
//	@Failure	503	{object}	response.ErrorEnvelope
//	@Router		/health [get]
func NewHealthHandler(deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := make(map[string]string, len(deps))
		degraded := false
		for name, p := range deps {
			if p == nil {
				continue
			}
			checks[name] = "ok"
			if err := p.Ping(r.Context()); err != nil {
				checks[name] = "degraded"
				degraded = true
			}
		}

		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}
		response.JSON(w, HealthResponse{Status: "ok", Services: checks})
	}
}
