package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cashpeg/pegvault/internal/history"
)

type mockQuoteFetcher struct {
	callCount atomic.Int32
}

func (m *mockQuoteFetcher) FetchAndStoreQuotes(_ context.Context) error {
	m.callCount.Add(1)
	return nil
}

func TestQuoteWorkerRunsAndShutdown(t *testing.T) {
	mock := &mockQuoteFetcher{}
	w := NewQuoteWorker(mock, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := mock.callCount.Load(); got < 1 {
		t.Errorf("call count = %d, want >= 1", got)
	}
}

type mockRunner struct {
	callCount atomic.Int32
	err       error
}

func (m *mockRunner) RunCycle(_ context.Context) (history.Record, error) {
	m.callCount.Add(1)
	return history.Record{}, m.err
}

func TestRebalanceWorkerRunsAndShutdown(t *testing.T) {
	mock := &mockRunner{}
	w := NewRebalanceWorker(mock, 50*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := mock.callCount.Load(); got < 1 {
		t.Errorf("call count = %d, want >= 1", got)
	}
}

func TestRebalanceWorkerSurvivesCycleErrors(t *testing.T) {
	mock := &mockRunner{err: ErrNoAuthority}
	w := NewRebalanceWorker(mock, 30*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	// Errors are logged, not fatal: the loop keeps ticking.
	if got := mock.callCount.Load(); got < 2 {
		t.Errorf("call count = %d, want >= 2", got)
	}
}
