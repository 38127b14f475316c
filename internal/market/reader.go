package market

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/elasticbot/internal/store"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

// HighQualityThreshold is the lowest data quality score the read API serves.
const HighQualityThreshold = 0.7

// IsHighQuality reports whether s is visible through the read API.
func IsHighQuality(s *models.MarketSnapshot) bool {
	return s.DataQualityScore >= HighQualityThreshold
}

// SnapshotStore is the read side of store.MarketStore.
type SnapshotStore interface {
	PageSnapshots(ctx context.Context, filter store.SnapshotFilter) ([]*models.MarketSnapshot, int, error)
	GetSnapshot(ctx context.Context, id uuid.UUID) (*models.MarketSnapshot, error)
}

// Reader serves stored snapshots, hiding anything below HighQualityThreshold.
type Reader struct {
	store SnapshotStore
}

func NewReader(s SnapshotStore) *Reader {
	return &Reader{store: s}
}

// List returns one page of snapshots, newest first, with the applied
// pagination and the total count.
func (r *Reader) List(ctx context.Context, page, limit int) ([]*models.MarketSnapshot, int, store.SnapshotFilter, error) {
	filter := store.SnapshotFilter{MinQuality: HighQualityThreshold, Page: page, Limit: limit}.Normalize()
	snaps, total, err := r.store.PageSnapshots(ctx, filter)
	if err != nil {
		return nil, 0, filter, fmt.Errorf("list snapshots: %w", err)
	}
	return snaps, total, filter, nil
}

// Get returns one snapshot. Low quality snapshots are reported as
// store.ErrNotFound.
func (r *Reader) Get(ctx context.Context, id uuid.UUID) (*models.MarketSnapshot, error) {
	snap, err := r.store.GetSnapshot(ctx, id)
	if err != nil {
		return nil, err
	}
	if !IsHighQuality(snap) {
		return nil, store.ErrNotFound
	}
	return snap, nil
}

// Latest returns the newest high quality snapshot, or store.ErrNotFound.
func (r *Reader) Latest(ctx context.Context) (*models.MarketSnapshot, error) {
	snaps, _, _, err := r.List(ctx, 1, 1)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, store.ErrNotFound
	}
	return snaps[0], nil
}
