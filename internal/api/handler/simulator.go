package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/kiranshivaraju/elasticbot/internal/api/response"
	"github.com/kiranshivaraju/elasticbot/internal/engine"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

// Upper bounds on scenario inputs.
const (
	maxScenarioPrice    = 10_000
	maxScenarioQuantity = 10_000_000_000
)

// ScenarioRequest is the body of POST /simulator/scenario/. Values may be
// JSON numbers or numeric strings.
type ScenarioRequest struct {
	PriceInitial    json.Number `json:"price_initial" swaggertype:"string" example:"7.00"`
	PriceFinal      json.Number `json:"price_final" swaggertype:"string" example:"7.20"`
	QuantityInitial json.Number `json:"quantity_initial" swaggertype:"string" example:"125000"`
	QuantityFinal   json.Number `json:"quantity_final" swaggertype:"string" example:"118000"`
}

func (req ScenarioRequest) scenario() (models.Scenario, map[string]string) {
	details := map[string]string{}
	field := func(name string, raw json.Number, lo, hi float64, lowInclusive bool) float64 {
		if raw == "" {
			details[name] = "This field is required."
			return 0
		}
		v, err := raw.Float64()
		if err != nil {
			details[name] = "A valid number is required."
			return 0
		}
		if v < lo || (!lowInclusive && v == lo) || v >= hi {
			if lowInclusive {
				details[name] = fmt.Sprintf("Must be at least %g and below %g.", lo, hi)
			} else {
				details[name] = fmt.Sprintf("Must be greater than %g and below %g.", lo, hi)
			}
		}
		return v
	}
	s := models.Scenario{
		PriceInitial:    field("price_initial", req.PriceInitial, 0, maxScenarioPrice, false),
		PriceFinal:      field("price_final", req.PriceFinal, 0, maxScenarioPrice, false),
		QuantityInitial: field("quantity_initial", req.QuantityInitial, 0, maxScenarioQuantity, true),
		QuantityFinal:   field("quantity_final", req.QuantityFinal, 0, maxScenarioQuantity, true),
	}
	return s, details
}

// Scenario godoc
//
//	@Summary		Simulate an elasticity scenario
//	@Description	Midpoint elasticity for a hypothetical price and quantity change. Stored market data is not used.
//	@Tags			simulator
//	@Accept			json
//	@Produce		json
//	@Param			request	body		ScenarioRequest	true	"Scenario"
//	@Success		200		{object}	response.Envelope{data=models.ScenarioResult}
//	@Failure		400		{object}	response.ErrorEnvelope
//	@Router			/simulator/scenario/ [post]
func Scenario(w http.ResponseWriter, r *http.Request) {
	var req ScenarioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}
	s, details := req.scenario()
	if len(details) > 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", details)
		return
	}

	res, err := engine.Simulate(s)
	if errors.Is(err, engine.ErrInvalidInput) {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", engine.Message(err), nil)
		return
	}
	if err != nil {
		slog.Error("scenario simulation failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
		return
	}

	slog.Info("scenario simulated",
		"elasticity", res.Elasticity,
		"classification", res.Classification,
		"is_reliable", res.IsReliable,
	)
	response.JSON(w, res)
}
