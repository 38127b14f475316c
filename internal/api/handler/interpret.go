package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/elasticbot/internal/ai"
	"github.com/kiranshivaraju/elasticbot/internal/api/response"
	"github.com/kiranshivaraju/elasticbot/internal/store"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

// Interpreter defines the interface the handler depends on.
type Interpreter interface {
	Interpret(ctx context.Context, id uuid.UUID) (*models.Interpretation, error)
}

// InterpretRequest is the body of POST /interpret/generate/.
type InterpretRequest struct {
	CalculationID string `json:"calculation_id" example:"550e8400-e29b-41d4-a716-446655440000"`
}

// NewInterpretHandler returns an http.HandlerFunc for POST /api/v1/interpret/generate/.
//
//	@Summary		Generate an AI interpretation
//	@Description	Narrative Spanish interpretation of a COMPLETED calculation. Results are cached for 24 hours.
//	@Tags			interpretation
//	@Accept			json
//	@Produce		json
//	@Param			request	body		InterpretRequest	true	"Calculation to interpret"
//	@Success		200		{object}	response.Envelope{data=models.Interpretation}
//	@Failure		400		{object}	response.ErrorEnvelope
//	@Failure		404		{object}	response.ErrorEnvelope
//	@Failure		429		{object}	response.ErrorEnvelope
//	@Failure		502		{object}	response.ErrorEnvelope
//	@Failure		504		{object}	response.ErrorEnvelope
//	@Router			/interpret/generate/ [post]
func NewInterpretHandler(svc Interpreter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req InterpretRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}
		if req.CalculationID == "" {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request",
				map[string]string{"calculation_id": "This field is required."})
			return
		}
		id, err := uuid.Parse(req.CalculationID)
		if err != nil {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request",
				map[string]string{"calculation_id": "Must be a valid UUID."})
			return
		}

		result, err := svc.Interpret(r.Context(), id)
		if err != nil {
			switch {
			case errors.Is(err, store.ErrNotFound):
				response.Error(w, http.StatusNotFound, "NOT_FOUND", "Calculation not found", nil)
			case errors.Is(err, ai.ErrNotCompleted):
				response.Error(w, http.StatusBadRequest, "NOT_COMPLETED", "Calculation not complete", err.Error())
			case errors.Is(err, ai.ErrInferenceTimeout):
				response.Error(w, http.StatusGatewayTimeout, "AI_INFERENCE_TIMEOUT",
					"AI interpretation took too long and was cancelled", nil)
			case errors.Is(err, ai.ErrProviderUnavailable), errors.Is(err, ai.ErrInvalidResponse):
				response.Error(w, http.StatusBadGateway, "AI_PROVIDER_UNAVAILABLE",
					"The AI provider is not available", nil)
			default:
				response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
					"An unexpected error occurred", nil)
			}
			return
		}

		response.JSON(w, result)
	}
}
