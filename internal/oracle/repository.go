package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoQuotes indicates that no quote has been archived yet.
var ErrNoQuotes = errors.New("no archived quotes")

// ArchivedQuote is a quote as stored in the archive, with the time it
// was fetched from the relay.
type ArchivedQuote struct {
	Quote
	FetchedAt time.Time `json:"fetchedAt"`
}

// Repository defines persistent storage for fetched quotes.
type Repository interface {
	Save(ctx context.Context, q Quote, fetchedAt time.Time) error
	Latest(ctx context.Context) (ArchivedQuote, error)
	List(ctx context.Context, limit int) ([]ArchivedQuote, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL quote archive.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Save(ctx context.Context, q Quote, fetchedAt time.Time) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO oracle_quotes (message_sequence, data_sequence, quote_timestamp, price_raw, price_scale, fetched_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (message_sequence) DO NOTHING`,
		int64(q.MessageSequence), int64(q.DataSequence), int64(q.Timestamp),
		int64(q.PriceRaw), q.PriceScale, fetchedAt)
	if err != nil {
		return fmt.Errorf("archiving quote %d: %w", q.MessageSequence, err)
	}
	return nil
}

func (r *PgRepository) Latest(ctx context.Context) (ArchivedQuote, error) {
	var (
		a                                       ArchivedQuote
		msgSeq, dataSeq, quoteTimestamp, priceRaw int64
	)
	err := r.pool.QueryRow(ctx,
		`SELECT message_sequence, data_sequence, quote_timestamp, price_raw, price_scale, fetched_at
		 FROM oracle_quotes
		 ORDER BY message_sequence DESC
		 LIMIT 1`).Scan(&msgSeq, &dataSeq, &quoteTimestamp, &priceRaw, &a.PriceScale, &a.FetchedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ArchivedQuote{}, ErrNoQuotes
		}
		return ArchivedQuote{}, fmt.Errorf("getting latest quote: %w", err)
	}
	a.MessageSequence = uint32(msgSeq)
	a.DataSequence = uint32(dataSeq)
	a.Timestamp = uint32(quoteTimestamp)
	a.PriceRaw = uint32(priceRaw)
	return a, nil
}

func (r *PgRepository) List(ctx context.Context, limit int) ([]ArchivedQuote, error) {
	if limit <= 0 {
		limit = 100
	}

	rows, err := r.pool.Query(ctx,
		`SELECT message_sequence, data_sequence, quote_timestamp, price_raw, price_scale, fetched_at
		 FROM oracle_quotes
		 ORDER BY message_sequence DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing quotes: %w", err)
	}
	defer rows.Close()

	var quotes []ArchivedQuote
	for rows.Next() {
		var (
			a                                       ArchivedQuote
			msgSeq, dataSeq, quoteTimestamp, priceRaw int64
		)
		if err := rows.Scan(&msgSeq, &dataSeq, &quoteTimestamp, &priceRaw, &a.PriceScale, &a.FetchedAt); err != nil {
			return nil, fmt.Errorf("scanning quote: %w", err)
		}
		a.MessageSequence = uint32(msgSeq)
		a.DataSequence = uint32(dataSeq)
		a.Timestamp = uint32(quoteTimestamp)
		a.PriceRaw = uint32(priceRaw)
		quotes = append(quotes, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating quotes: %w", err)
	}
	return quotes, nil
}
