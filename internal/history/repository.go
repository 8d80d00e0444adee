// Package history records the outcome of every planning cycle so
// operators can audit what the keeper did and why it skipped.
package history

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that the requested cycle record was not found.
var ErrNotFound = errors.New("cycle not found")

// Record is one planning cycle: the observed price and position, the
// planner's terminal state, and the validator's verdict on the proposal
// when one was produced.
type Record struct {
	ID              uuid.UUID `json:"id"`
	RunAt           time.Time `json:"runAt"`
	PriceRaw        int64     `json:"priceRaw"`
	PriceScale      int64     `json:"priceScale"`
	MessageSequence int64     `json:"messageSequence"`
	BaseSats        int64     `json:"baseSats"`
	TokenUnits      int64     `json:"tokenUnits"`
	Outcome         string    `json:"outcome"`
	TokenDelta      int64     `json:"tokenDelta"`
	Accepted        bool      `json:"accepted"`
	RejectReason    string    `json:"rejectReason,omitempty"`
	ImbalanceBefore int64     `json:"imbalanceBefore"`
	ImbalanceAfter  int64     `json:"imbalanceAfter"`
	// TxID is set when an assembler broadcast the transition.
	TxID      string    `json:"txid,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Repository defines persistent storage for cycle records.
type Repository interface {
	Save(ctx context.Context, rec Record) error
	Latest(ctx context.Context) (Record, error)
	GetByID(ctx context.Context, id uuid.UUID) (Record, error)
	List(ctx context.Context, limit int) ([]Record, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL cycle repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

const recordColumns = `id, run_at, price_raw, price_scale, message_sequence,
	base_sats, token_units, outcome, token_delta, accepted, reject_reason,
	imbalance_before, imbalance_after, txid, created_at`

func (r *PgRepository) Save(ctx context.Context, rec Record) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO rebalance_cycles (id, run_at, price_raw, price_scale, message_sequence,
			base_sats, token_units, outcome, token_delta, accepted, reject_reason,
			imbalance_before, imbalance_after, txid)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID, rec.RunAt, rec.PriceRaw, rec.PriceScale, rec.MessageSequence,
		rec.BaseSats, rec.TokenUnits, rec.Outcome, rec.TokenDelta, rec.Accepted,
		rec.RejectReason, rec.ImbalanceBefore, rec.ImbalanceAfter, rec.TxID)
	if err != nil {
		return fmt.Errorf("saving cycle %s: %w", rec.ID, err)
	}
	return nil
}

func (r *PgRepository) Latest(ctx context.Context) (Record, error) {
	rec, err := r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM rebalance_cycles ORDER BY run_at DESC LIMIT 1`))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("getting latest cycle: %w", err)
	}
	return rec, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id uuid.UUID) (Record, error) {
	rec, err := r.scanOne(r.pool.QueryRow(ctx,
		`SELECT `+recordColumns+` FROM rebalance_cycles WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrNotFound
		}
		return Record{}, fmt.Errorf("getting cycle %s: %w", id, err)
	}
	return rec, nil
}

func (r *PgRepository) List(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := r.pool.Query(ctx,
		`SELECT `+recordColumns+` FROM rebalance_cycles ORDER BY run_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing cycles: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := r.scanOne(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning cycle: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating cycles: %w", err)
	}
	return records, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PgRepository) scanOne(row rowScanner) (Record, error) {
	var rec Record
	err := row.Scan(&rec.ID, &rec.RunAt, &rec.PriceRaw, &rec.PriceScale, &rec.MessageSequence,
		&rec.BaseSats, &rec.TokenUnits, &rec.Outcome, &rec.TokenDelta, &rec.Accepted,
		&rec.RejectReason, &rec.ImbalanceBefore, &rec.ImbalanceAfter, &rec.TxID, &rec.CreatedAt)
	return rec, err
}
