package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/elasticbot/pkg/models"
)

// PostgresStore implements the Store interface using pgx/v5.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Calculations ---

const calculationColumns = `id, method, window_size, start_date, end_date, status, result, error_message,
	metadata, requester_fingerprint, created_at, started_at, completed_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCalculation(row rowScanner) (*models.Calculation, error) {
	var c models.Calculation
	err := row.Scan(&c.ID, &c.Method, &c.Window, &c.StartDate, &c.EndDate, &c.Status, &c.Result,
		&c.ErrorMessage, &c.Metadata, &c.RequesterFingerprint, &c.CreatedAt, &c.StartedAt, &c.CompletedAt)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) CreateCalculation(ctx context.Context, calc *models.Calculation) error {
	if calc.Status != models.StatusPending {
		return fmt.Errorf("create calculation: new calculations must be %s, got %s", models.StatusPending, calc.Status)
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO calculations (id, method, window_size, start_date, end_date, status, metadata, requester_fingerprint, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		calc.ID, calc.Method, calc.Window, calc.StartDate, calc.EndDate, calc.Status,
		calc.Metadata, calc.RequesterFingerprint, calc.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("create calculation: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetCalculation(ctx context.Context, id uuid.UUID) (*models.Calculation, error) {
	c, err := scanCalculation(s.pool.QueryRow(ctx,
		`SELECT `+calculationColumns+` FROM calculations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get calculation: %w", err)
	}
	return c, nil
}

func (s *PostgresStore) UpdateCalculationStatus(ctx context.Context, id uuid.UUID, status string, opts ...CalculationUpdateOption) error {
	result, errMsg, meta := ApplyUpdateOptions(opts...)
	if err := CheckOutcome(status, result, errMsg); err != nil {
		return fmt.Errorf("update calculation status: %w", err)
	}

	prev := PreviousStatuses(status)
	if len(prev) == 0 {
		return fmt.Errorf("%w: no status moves to %s", ErrInvalidTransition, status)
	}

	now := time.Now().UTC()
	query := `UPDATE calculations SET status = $2`
	args := []any{id, status}
	argIdx := 3

	if status == models.StatusProcessing {
		query += fmt.Sprintf(", started_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if status == models.StatusCompleted || status == models.StatusFailed {
		query += fmt.Sprintf(", completed_at = $%d", argIdx)
		args = append(args, now)
		argIdx++
	}
	if result != nil {
		query += fmt.Sprintf(", result = $%d", argIdx)
		args = append(args, result)
		argIdx++
	}
	if errMsg != nil {
		query += fmt.Sprintf(", error_message = $%d", argIdx)
		args = append(args, *errMsg)
		argIdx++
	}
	if meta != nil {
		query += fmt.Sprintf(", metadata = metadata || $%d::jsonb", argIdx)
		args = append(args, *meta)
		argIdx++
	}

	// The status guard makes the transition atomic: of two concurrent
	// deliveries only one sees a row to update.
	query += fmt.Sprintf(" WHERE id = $1 AND status = ANY($%d)", argIdx)
	args = append(args, prev)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update calculation status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}

	var current string
	err = s.pool.QueryRow(ctx, `SELECT status FROM calculations WHERE id = $1`, id).Scan(&current)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("get calculation status: %w", err)
	}
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, status)
}

func (s *PostgresStore) ListRecentCalculations(ctx context.Context, fingerprint string, since time.Time) ([]*models.Calculation, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+calculationColumns+` FROM calculations
		 WHERE requester_fingerprint = $1 AND created_at >= $2
		 ORDER BY created_at DESC, id`, fingerprint, since)
	if err != nil {
		return nil, fmt.Errorf("list recent calculations: %w", err)
	}
	defer rows.Close()

	calcs := []*models.Calculation{}
	for rows.Next() {
		c, err := scanCalculation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan calculation: %w", err)
		}
		calcs = append(calcs, c)
	}
	return calcs, rows.Err()
}

func (s *PostgresStore) ListCalculations(ctx context.Context, filter CalculationFilter) ([]*models.Calculation, int, error) {
	filter = filter.Normalize()

	where := "TRUE"
	args := []any{}
	argIdx := 1
	if filter.Status != "" {
		where = fmt.Sprintf("status = $%d", argIdx)
		args = append(args, filter.Status)
		argIdx++
	}

	var total int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM calculations WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count calculations: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	dataQuery := fmt.Sprintf(
		`SELECT %s FROM calculations WHERE %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		calculationColumns, where, argIdx, argIdx+1)
	args = append(args, filter.Limit, offset)

	rows, err := s.pool.Query(ctx, dataQuery, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list calculations: %w", err)
	}
	defer rows.Close()

	calcs := []*models.Calculation{}
	for rows.Next() {
		c, err := scanCalculation(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan calculation: %w", err)
		}
		calcs = append(calcs, c)
	}
	return calcs, total, rows.Err()
}

func (s *PostgresStore) FailStaleCalculations(ctx context.Context, startedBefore time.Time, message string) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE calculations SET status = $1, error_message = $2, completed_at = $3
		 WHERE status = $4 AND started_at < $5`,
		models.StatusFailed, message, time.Now().UTC(), models.StatusProcessing, startedBefore)
	if err != nil {
		return 0, fmt.Errorf("fail stale calculations: %w", err)
	}
	return tag.RowsAffected(), nil
}

// --- Market data ---

func (s *PostgresStore) InsertSnapshot(ctx context.Context, snap *models.MarketSnapshot) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO market_snapshots (id, timestamp, average_sell_price, average_buy_price, total_volume,
		   spread_percentage, num_active_traders, data_quality_score, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		snap.ID, snap.Timestamp, snap.AverageSellPrice, snap.AverageBuyPrice, snap.TotalVolume,
		snap.SpreadPercentage, snap.NumActiveTraders, snap.DataQualityScore, snap.CreatedAt)
	if err != nil {
		if isDuplicateKeyError(err) {
			return ErrDuplicateKey
		}
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}

const snapshotColumns = `id, timestamp, average_sell_price, average_buy_price, total_volume, spread_percentage,
  num_active_traders, data_quality_score, created_at`

func scanSnapshot(row rowScanner) (*models.MarketSnapshot, error) {
	var m models.MarketSnapshot
	if err := row.Scan(&m.ID, &m.Timestamp, &m.AverageSellPrice, &m.AverageBuyPrice, &m.TotalVolume,
		&m.SpreadPercentage, &m.NumActiveTraders, &m.DataQualityScore, &m.CreatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}

func (s *PostgresStore) PageSnapshots(ctx context.Context, filter SnapshotFilter) ([]*models.MarketSnapshot, int, error) {
	filter = filter.Normalize()

	var total int
	if err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM market_snapshots WHERE data_quality_score >= $1`, filter.MinQuality).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count snapshots: %w", err)
	}

	rows, err := s.pool.Query(ctx,
		`SELECT `+snapshotColumns+` FROM market_snapshots
		 WHERE data_quality_score >= $1
		 ORDER BY timestamp DESC, id LIMIT $2 OFFSET $3`,
		filter.MinQuality, filter.Limit, (filter.Page-1)*filter.Limit)
	if err != nil {
		return nil, 0, fmt.Errorf("page snapshots: %w", err)
	}
	defer rows.Close()

	snaps := []*models.MarketSnapshot{}
	for rows.Next() {
		m, err := scanSnapshot(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, m)
	}
	return snaps, total, rows.Err()
}

func (s *PostgresStore) GetSnapshot(ctx context.Context, id uuid.UUID) (*models.MarketSnapshot, error) {
	m, err := scanSnapshot(s.pool.QueryRow(ctx,
		`SELECT `+snapshotColumns+` FROM market_snapshots WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) ListSnapshots(ctx context.Context, start, end time.Time, minQuality float64) ([]*models.MarketSnapshot, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+snapshotColumns+` FROM market_snapshots
		 WHERE timestamp >= $1 AND timestamp <= $2 AND data_quality_score >= $3
		 ORDER BY timestamp`, start, end, minQuality)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var snaps []*models.MarketSnapshot
	for rows.Next() {
		m, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snaps = append(snaps, m)
	}
	return snaps, rows.Err()
}

func (s *PostgresStore) LatestSnapshotAt(ctx context.Context) (time.Time, error) {
	var ts *time.Time
	if err := s.pool.QueryRow(ctx, `SELECT MAX(timestamp) FROM market_snapshots`).Scan(&ts); err != nil {
		return time.Time{}, fmt.Errorf("latest snapshot: %w", err)
	}
	if ts == nil {
		return time.Time{}, ErrNotFound
	}
	return *ts, nil
}

func (s *PostgresStore) DeleteSnapshotsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM market_snapshots WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("delete snapshots: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) UpsertExchangeRate(ctx context.Context, rate *models.ExchangeRate) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO exchange_rates (date, sell, buy, source, updated_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (date) DO UPDATE SET
		   sell = EXCLUDED.sell,
		   buy = EXCLUDED.buy,
		   source = EXCLUDED.source,
		   updated_at = EXCLUDED.updated_at`,
		rate.Date, rate.Sell, rate.Buy, rate.Source, rate.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert exchange rate: %w", err)
	}
	return nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" // unique_violation
	}
	return false
}

var _ Store = (*PostgresStore)(nil)
