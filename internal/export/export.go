// Package export renders recorded rebalance cycles for operators: as
// an xlsx workbook for offline review and as rows in a shared Google
// spreadsheet used for monitoring.
package export

import (
	"context"
	"fmt"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/cashpeg/pegvault/internal/domain"
	"github.com/cashpeg/pegvault/internal/history"
)

// DefaultExportLimit caps how many cycles a single export pulls.
const DefaultExportLimit = 500

// Row is one rebalance cycle prepared for spreadsheet output. Raw
// integer quantities are converted to human units here so every writer
// renders the same values.
type Row struct {
	RunAt           string
	Price           decimal.Decimal
	MessageSequence int64
	BaseCoins       decimal.Decimal
	TokenUnits      int64
	Outcome         string
	TokenDelta      int64
	Accepted        bool
	RejectReason    string
	ImbalanceBefore int64
	ImbalanceAfter  int64
	TxID            string
}

// RowWriter writes cycle rows to a spreadsheet destination.
type RowWriter interface {
	Write(ctx context.Context, rows []Row) error
}

// Service reads cycle history and delegates rendering to a RowWriter.
type Service struct {
	cycles history.Repository
	writer RowWriter
	limit  int
}

// NewService creates a new export Service. A non-positive limit falls
// back to DefaultExportLimit.
func NewService(cycles history.Repository, writer RowWriter, limit int) *Service {
	if limit <= 0 {
		limit = DefaultExportLimit
	}
	return &Service{cycles: cycles, writer: writer, limit: limit}
}

// Export loads the most recent cycles and writes them out.
func (s *Service) Export(ctx context.Context) error {
	records, err := s.cycles.List(ctx, s.limit)
	if err != nil {
		return fmt.Errorf("listing cycles for export: %w", err)
	}

	rows := lo.Map(records, func(rec history.Record, _ int) Row {
		return rowFromRecord(rec)
	})

	return s.writer.Write(ctx, rows)
}

func rowFromRecord(rec history.Record) Row {
	scale := rec.PriceScale
	if scale <= 0 {
		scale = 1
	}
	return Row{
		RunAt:           rec.RunAt.UTC().Format("02.01.2006 15:04:05"),
		Price:           decimal.NewFromInt(rec.PriceRaw).Div(decimal.NewFromInt(scale)),
		MessageSequence: rec.MessageSequence,
		BaseCoins:       decimal.NewFromInt(rec.BaseSats).Div(decimal.NewFromInt(domain.SatsPerCoin)),
		TokenUnits:      rec.TokenUnits,
		Outcome:         rec.Outcome,
		TokenDelta:      rec.TokenDelta,
		Accepted:        rec.Accepted,
		RejectReason:    rec.RejectReason,
		ImbalanceBefore: rec.ImbalanceBefore,
		ImbalanceAfter:  rec.ImbalanceAfter,
		TxID:            rec.TxID,
	}
}

// cycleHeader is the column layout shared by the xlsx and Sheets writers.
var cycleHeader = []any{
	"Run At", "Price", "Msg Seq", "Base Coins", "Token Units",
	"Outcome", "Token Delta", "Accepted", "Reject Reason",
	"D Before", "D After", "TxID",
}

func rowValues(row Row) []any {
	return []any{
		row.RunAt,
		toFloat(row.Price),
		row.MessageSequence,
		toFloat(row.BaseCoins),
		row.TokenUnits,
		row.Outcome,
		row.TokenDelta,
		row.Accepted,
		row.RejectReason,
		row.ImbalanceBefore,
		row.ImbalanceAfter,
		row.TxID,
	}
}

func toFloat(d decimal.Decimal) float64 {
	f, _ := d.Float64()
	return f
}
