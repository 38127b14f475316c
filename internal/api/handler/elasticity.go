// Package handler implements the HTTP endpoints. Handlers decode requests,
// call a service and map its errors to response envelopes.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	mw "github.com/kiranshivaraju/elasticbot/internal/api/middleware"
	"github.com/kiranshivaraju/elasticbot/internal/api/response"
	"github.com/kiranshivaraju/elasticbot/internal/dispatch"
	"github.com/kiranshivaraju/elasticbot/internal/elasticity"
	"github.com/kiranshivaraju/elasticbot/internal/store"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

// CalculationService is what the elasticity endpoints need from
// elasticity.Service.
type CalculationService interface {
	Submit(ctx context.Context, req elasticity.CalculateRequest, fingerprint string) (*models.Calculation, dispatch.Mode, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Calculation, error)
	Status(ctx context.Context, id uuid.UUID) (*models.CalculationStatus, error)
	ListRecent(ctx context.Context, fingerprint string) ([]*models.Calculation, error)
	List(ctx context.Context, filter store.CalculationFilter) ([]*models.Calculation, int, store.CalculationFilter, error)
}

// Elasticity serves the /elasticity endpoints.
type Elasticity struct {
	svc CalculationService
}

func NewElasticity(svc CalculationService) *Elasticity {
	return &Elasticity{svc: svc}
}

// RecentResponse is the body of GET /elasticity/recent/.
type RecentResponse struct {
	Count   int                   `json:"count"`
	Results []*models.Calculation `json:"results"`
}

// Calculate godoc
//
//	@Summary		Submit an elasticity calculation
//	@Description	Creates a calculation job. With async dispatch the PENDING job is returned with 202 and must be polled; with sync dispatch the finished job is returned with 200.
//	@Tags			elasticity
//	@Accept			json
//	@Produce		json
//	@Param			request	body		elasticity.CalculateRequest	true	"Calculation parameters"
//	@Success		200		{object}	response.Envelope{data=models.Calculation}
//	@Success		202		{object}	response.Envelope{data=models.Calculation}
//	@Failure		400		{object}	response.ErrorEnvelope
//	@Failure		429		{object}	response.ErrorEnvelope
//	@Failure		500		{object}	response.ErrorEnvelope
//	@Router			/elasticity/calculate/ [post]
func (h *Elasticity) Calculate(w http.ResponseWriter, r *http.Request) {
	var req elasticity.CalculateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
		return
	}

	fp, _ := mw.GetFingerprint(r)
	calc, mode, err := h.svc.Submit(r.Context(), req, fp)
	if err != nil {
		if ve, ok := elasticity.IsValidation(err); ok {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request", ve.Fields)
			return
		}
		slog.Error("submit calculation failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Could not process calculation", nil)
		return
	}

	if mode == dispatch.ModeSync {
		response.JSON(w, calc)
		return
	}
	response.Accepted(w, calc)
}

// Get godoc
//
//	@Summary	Get a calculation
//	@Tags		elasticity
//	@Produce	json
//	@Param		id	path		string	true	"Calculation ID"	format(uuid)
//	@Success	200	{object}	response.Envelope{data=models.Calculation}
//	@Failure	404	{object}	response.ErrorEnvelope
//	@Router		/elasticity/{id}/ [get]
func (h *Elasticity) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := calculationID(w, r)
	if !ok {
		return
	}
	calc, err := h.svc.Get(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	response.JSON(w, calc)
}

// Status godoc
//
//	@Summary		Poll a calculation
//	@Description	Lightweight status projection. Poll every 2 seconds until is_complete, then fetch the full record.
//	@Tags			elasticity
//	@Produce		json
//	@Param			id	path		string	true	"Calculation ID"	format(uuid)
//	@Success		200	{object}	response.Envelope{data=models.CalculationStatus}
//	@Failure		404	{object}	response.ErrorEnvelope
//	@Router			/elasticity/{id}/status/ [get]
func (h *Elasticity) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := calculationID(w, r)
	if !ok {
		return
	}
	st, err := h.svc.Status(r.Context(), id)
	if err != nil {
		writeLookupError(w, err)
		return
	}
	response.JSON(w, st)
}

// Recent godoc
//
//	@Summary	List the caller's recent calculations
//	@Tags		elasticity
//	@Produce	json
//	@Success	200	{object}	response.Envelope{data=RecentResponse}
//	@Router		/elasticity/recent/ [get]
func (h *Elasticity) Recent(w http.ResponseWriter, r *http.Request) {
	fp, _ := mw.GetFingerprint(r)
	calcs, err := h.svc.ListRecent(r.Context(), fp)
	if err != nil {
		slog.Error("list recent calculations failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
		return
	}
	response.JSON(w, RecentResponse{Count: len(calcs), Results: calcs})
}

// List godoc
//
//	@Summary	List all calculations
//	@Tags		elasticity
//	@Produce	json
//	@Param		page	query		int		false	"Page number"	default(1)
//	@Param		limit	query		int		false	"Page size"		default(20)	maximum(100)
//	@Param		status	query		string	false	"Filter by status"	Enums(PENDING, PROCESSING, COMPLETED, FAILED)
//	@Success	200		{object}	response.CollectionEnvelope{data=[]models.Calculation}
//	@Failure	400		{object}	response.ErrorEnvelope
//	@Router		/elasticity/ [get]
func (h *Elasticity) List(w http.ResponseWriter, r *http.Request) {
	page, limit, details := pagination(r)
	filter := store.CalculationFilter{Status: r.URL.Query().Get("status"), Page: page, Limit: limit}
	if len(details) > 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters", details)
		return
	}

	calcs, total, applied, err := h.svc.List(r.Context(), filter)
	if err != nil {
		if ve, ok := elasticity.IsValidation(err); ok {
			response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters", ve.Fields)
			return
		}
		slog.Error("list calculations failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
		return
	}
	response.Collection(w, calcs, response.NewPaginationMeta(applied.Page, applied.Limit, total))
}

func calculationID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		// Unparseable ids cannot name a calculation.
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Calculation not found", nil)
		return uuid.Nil, false
	}
	return id, true
}

func writeLookupError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Calculation not found", nil)
		return
	}
	slog.Error("load calculation failed", "error", err)
	response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
}
