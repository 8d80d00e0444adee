package export

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/cashpeg/pegvault/internal/history"
)

type mockCycles struct {
	records   []history.Record
	lastLimit int
}

func (m *mockCycles) Save(_ context.Context, rec history.Record) error {
	m.records = append(m.records, rec)
	return nil
}

func (m *mockCycles) Latest(_ context.Context) (history.Record, error) {
	if len(m.records) == 0 {
		return history.Record{}, history.ErrNotFound
	}
	return m.records[0], nil
}

func (m *mockCycles) GetByID(_ context.Context, id uuid.UUID) (history.Record, error) {
	for _, r := range m.records {
		if r.ID == id {
			return r, nil
		}
	}
	return history.Record{}, history.ErrNotFound
}

func (m *mockCycles) List(_ context.Context, limit int) ([]history.Record, error) {
	m.lastLimit = limit
	if limit > len(m.records) {
		limit = len(m.records)
	}
	return m.records[:limit], nil
}

type recordingWriter struct {
	rows []Row
}

func (w *recordingWriter) Write(_ context.Context, rows []Row) error {
	w.rows = rows
	return nil
}

func TestExport(t *testing.T) {
	cycles := &mockCycles{records: []history.Record{
		{
			ID:              uuid.New(),
			RunAt:           time.Date(2026, 2, 24, 12, 30, 0, 0, time.UTC),
			PriceRaw:        47622,
			PriceScale:      100,
			MessageSequence: 1409799,
			BaseSats:        100_000_000,
			TokenUnits:      200,
			Outcome:         "found",
			TokenDelta:      50,
			Accepted:        true,
			ImbalanceBefore: 100,
			ImbalanceAfter:  50,
		},
	}}
	writer := &recordingWriter{}

	svc := NewService(cycles, writer, 0)
	if err := svc.Export(context.Background()); err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	if cycles.lastLimit != DefaultExportLimit {
		t.Errorf("limit = %d, want %d", cycles.lastLimit, DefaultExportLimit)
	}
	if len(writer.rows) != 1 {
		t.Fatalf("got %d rows, want 1", len(writer.rows))
	}

	row := writer.rows[0]
	if row.RunAt != "24.02.2026 12:30:00" {
		t.Errorf("RunAt = %q", row.RunAt)
	}
	if row.Price.String() != "476.22" {
		t.Errorf("Price = %s, want 476.22", row.Price)
	}
	if row.BaseCoins.String() != "1" {
		t.Errorf("BaseCoins = %s, want 1", row.BaseCoins)
	}
	if row.TokenDelta != 50 {
		t.Errorf("TokenDelta = %d, want 50", row.TokenDelta)
	}
}

func TestRowValuesMatchesHeader(t *testing.T) {
	values := rowValues(Row{})
	if len(values) != len(cycleHeader) {
		t.Errorf("row has %d values, header has %d columns", len(values), len(cycleHeader))
	}
}

func TestXLSXWriter(t *testing.T) {
	path := t.TempDir() + "/cycles.xlsx"
	w := NewXLSXWriter(path)

	rows := []Row{rowFromRecord(history.Record{
		RunAt:      time.Now().UTC(),
		PriceRaw:   10_000,
		PriceScale: 100,
		BaseSats:   50_000_000,
		TokenUnits: 100,
		Outcome:    "no action needed",
	})}

	if err := w.Write(context.Background(), rows); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
}
