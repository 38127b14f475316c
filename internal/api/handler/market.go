package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/kiranshivaraju/elasticbot/internal/api/response"
	"github.com/kiranshivaraju/elasticbot/internal/market"
	"github.com/kiranshivaraju/elasticbot/internal/store"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

// SnapshotReader is what the market data endpoints need from market.Reader.
type SnapshotReader interface {
	List(ctx context.Context, page, limit int) ([]*models.MarketSnapshot, int, store.SnapshotFilter, error)
	Get(ctx context.Context, id uuid.UUID) (*models.MarketSnapshot, error)
	Latest(ctx context.Context) (*models.MarketSnapshot, error)
}

// MarketData serves the read-only /market-data endpoints.
type MarketData struct {
	reader SnapshotReader
}

func NewMarketData(r SnapshotReader) *MarketData {
	return &MarketData{reader: r}
}

// Snapshot is a market snapshot as the API returns it.
type Snapshot struct {
	*models.MarketSnapshot
	IsHighQuality bool `json:"is_high_quality"`
}

func snapshotView(s *models.MarketSnapshot) Snapshot {
	return Snapshot{MarketSnapshot: s, IsHighQuality: market.IsHighQuality(s)}
}

// List godoc
//
//	@Summary		List market snapshots
//	@Description	USDT/BOB P2P snapshots, newest first. Only snapshots with a data quality score of at least 0.7 are returned.
//	@Tags			market-data
//	@Produce		json
//	@Param			page	query		int	false	"Page number"	default(1)
//	@Param			limit	query		int	false	"Page size"		default(20)	maximum(100)
//	@Success		200		{object}	response.CollectionEnvelope{data=[]Snapshot}
//	@Failure		400		{object}	response.ErrorEnvelope
//	@Router			/market-data/ [get]
func (h *MarketData) List(w http.ResponseWriter, r *http.Request) {
	page, limit, details := pagination(r)
	if len(details) > 0 {
		response.Error(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid query parameters", details)
		return
	}

	snaps, total, applied, err := h.reader.List(r.Context(), page, limit)
	if err != nil {
		slog.Error("list market snapshots failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
		return
	}
	views := make([]Snapshot, 0, len(snaps))
	for _, s := range snaps {
		views = append(views, snapshotView(s))
	}
	response.Collection(w, views, response.NewPaginationMeta(applied.Page, applied.Limit, total))
}

// Latest godoc
//
//	@Summary		Get the latest market snapshot
//	@Description	Most recent high quality USDT/BOB snapshot.
//	@Tags			market-data
//	@Produce		json
//	@Success		200	{object}	response.Envelope{data=Snapshot}
//	@Failure		404	{object}	response.ErrorEnvelope
//	@Router			/market-data/latest/ [get]
func (h *MarketData) Latest(w http.ResponseWriter, r *http.Request) {
	snap, err := h.reader.Latest(r.Context())
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "No market data available",
			map[string]string{"detail": "Please wait for data collection to complete"})
		return
	}
	if err != nil {
		slog.Error("load latest market snapshot failed", "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
		return
	}
	response.JSON(w, snapshotView(snap))
}

// Get godoc
//
//	@Summary	Get a market snapshot
//	@Tags		market-data
//	@Produce	json
//	@Param		id	path		string	true	"Snapshot ID"	format(uuid)
//	@Success	200	{object}	response.Envelope{data=Snapshot}
//	@Failure	404	{object}	response.ErrorEnvelope
//	@Router		/market-data/{id}/ [get]
func (h *MarketData) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Snapshot not found", nil)
		return
	}
	snap, err := h.reader.Get(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Snapshot not found", nil)
		return
	}
	if err != nil {
		slog.Error("load market snapshot failed", "snapshot_id", id, "error", err)
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An unexpected error occurred", nil)
		return
	}
	response.JSON(w, snapshotView(snap))
}

// pagination reads the page and limit query parameters. Zero means unset.
func pagination(r *http.Request) (page, limit int, details map[string]string) {
	details = map[string]string{}
	q := r.URL.Query()
	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			details["page"] = "A valid positive integer is required."
		}
		page = n
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			details["limit"] = "A valid positive integer is required."
		}
		limit = n
	}
	return page, limit, details
}
