package oracle

import (
	"context"
	"errors"
	"testing"
	"time"
)

type mockSource struct {
	quote Quote
	err   error
	calls int
}

func (m *mockSource) LatestQuote(_ context.Context) (Quote, error) {
	m.calls++
	return m.quote, m.err
}

type mockRepo struct {
	saved  []Quote
	latest ArchivedQuote
	err    error
}

func (m *mockRepo) Save(_ context.Context, q Quote, _ time.Time) error {
	m.saved = append(m.saved, q)
	return m.err
}

func (m *mockRepo) Latest(_ context.Context) (ArchivedQuote, error) {
	if m.err != nil {
		return ArchivedQuote{}, m.err
	}
	return m.latest, nil
}

func (m *mockRepo) List(_ context.Context, limit int) ([]ArchivedQuote, error) {
	return []ArchivedQuote{m.latest}, nil
}

func freshQuote(t *testing.T) Quote {
	t.Helper()
	q, err := NewQuote(time.Now().Unix(), 10, 9, 47622, DefaultPriceScale)
	if err != nil {
		t.Fatalf("NewQuote() error = %v", err)
	}
	return q
}

func TestFetchAndStoreQuotes(t *testing.T) {
	source := &mockSource{quote: freshQuote(t)}
	repo := &mockRepo{}
	svc := NewService(source, repo, time.Hour)

	if err := svc.FetchAndStoreQuotes(context.Background()); err != nil {
		t.Fatalf("FetchAndStoreQuotes() error = %v", err)
	}
	if len(repo.saved) != 1 {
		t.Fatalf("saved %d quotes, want 1", len(repo.saved))
	}
	if repo.saved[0].PriceRaw != 47622 {
		t.Errorf("saved PriceRaw = %d, want 47622", repo.saved[0].PriceRaw)
	}
}

func TestFreshQuoteUsesCacheAfterFetch(t *testing.T) {
	source := &mockSource{quote: freshQuote(t)}
	svc := NewService(source, &mockRepo{}, time.Hour)

	if err := svc.FetchAndStoreQuotes(context.Background()); err != nil {
		t.Fatalf("FetchAndStoreQuotes() error = %v", err)
	}
	if _, err := svc.FreshQuote(context.Background()); err != nil {
		t.Fatalf("FreshQuote() error = %v", err)
	}
	if source.calls != 1 {
		t.Errorf("source calls = %d, want 1 (second read served from cache)", source.calls)
	}
}

func TestFreshQuoteRejectsStale(t *testing.T) {
	old, err := NewQuote(time.Now().Add(-3*time.Hour).Unix(), 1, 1, 47622, DefaultPriceScale)
	if err != nil {
		t.Fatalf("NewQuote() error = %v", err)
	}
	source := &mockSource{quote: old}
	svc := NewService(source, &mockRepo{}, time.Hour)

	_, err = svc.FreshQuote(context.Background())
	if !errors.Is(err, ErrStaleQuote) {
		t.Errorf("FreshQuote() error = %v, want ErrStaleQuote", err)
	}
}

func TestFreshQuotePropagatesSourceError(t *testing.T) {
	source := &mockSource{err: errors.New("relay unreachable")}
	svc := NewService(source, &mockRepo{}, time.Hour)

	if _, err := svc.FreshQuote(context.Background()); err == nil {
		t.Error("FreshQuote() expected error, got nil")
	}
}
