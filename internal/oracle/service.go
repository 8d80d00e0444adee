package oracle

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrStaleQuote indicates that the freshest available quote is older
// than the configured staleness threshold. Planning must not proceed
// on a stale price; there is no fallback.
var ErrStaleQuote = errors.New("oracle quote is stale")

// Source fetches the latest quote from the relay.
type Source interface {
	LatestQuote(ctx context.Context) (Quote, error)
}

// Service fetches quotes from the relay, archives them, and serves the
// freshest quote to the planner and the API.
type Service struct {
	source         Source
	repo           Repository
	staleThreshold time.Duration
	cache          quoteCache
}

// NewService creates an oracle quote service.
func NewService(source Source, repo Repository, staleThreshold time.Duration) *Service {
	return &Service{
		source:         source,
		repo:           repo,
		staleThreshold: staleThreshold,
	}
}

// FetchAndStoreQuotes pulls the latest publication from the relay and
// archives it. Implements the quote worker's fetcher interface.
func (s *Service) FetchAndStoreQuotes(ctx context.Context) error {
	q, err := s.source.LatestQuote(ctx)
	if err != nil {
		return fmt.Errorf("fetching quote: %w", err)
	}

	now := time.Now().UTC()
	if err := s.repo.Save(ctx, q, now); err != nil {
		return err
	}
	s.cache.put(q, now)
	return nil
}

// ArchiveQuote stores a quote that arrived outside the poll loop, such
// as a websocket push, and makes it visible to FreshQuote.
func (s *Service) ArchiveQuote(ctx context.Context, q Quote) error {
	now := time.Now().UTC()
	if err := s.repo.Save(ctx, q, now); err != nil {
		return err
	}
	s.cache.put(q, now)
	return nil
}

// FreshQuote returns a quote young enough to plan against: the cached
// quote if recent, otherwise a live fetch. A quote whose own timestamp
// is older than the staleness threshold is rejected with ErrStaleQuote.
func (s *Service) FreshQuote(ctx context.Context) (Quote, error) {
	q, ok := s.cache.get(s.staleThreshold)
	if !ok {
		fetched, err := s.source.LatestQuote(ctx)
		if err != nil {
			return Quote{}, fmt.Errorf("fetching quote: %w", err)
		}
		q = fetched
		s.cache.put(q, time.Now().UTC())
	}

	if age := time.Since(q.Time()); age > s.staleThreshold {
		return Quote{}, fmt.Errorf("%w: published %s ago", ErrStaleQuote, age.Round(time.Second))
	}
	return q, nil
}

// LatestArchived returns the most recently archived quote.
func (s *Service) LatestArchived(ctx context.Context) (ArchivedQuote, error) {
	return s.repo.Latest(ctx)
}

// ListArchived returns up to limit archived quotes, newest first.
func (s *Service) ListArchived(ctx context.Context, limit int) ([]ArchivedQuote, error) {
	return s.repo.List(ctx, limit)
}
