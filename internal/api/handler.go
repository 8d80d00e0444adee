package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/cashpeg/pegvault/internal/domain"
	"github.com/cashpeg/pegvault/internal/history"
	"github.com/cashpeg/pegvault/internal/oracle"
	"github.com/cashpeg/pegvault/internal/policy"
	"github.com/cashpeg/pegvault/internal/worker"
)

// PositionSource reads the vault's current state.
type PositionSource interface {
	Position(ctx context.Context) (domain.PositionState, []policy.Entry, error)
}

// QuoteSource serves archived oracle quotes.
type QuoteSource interface {
	LatestArchived(ctx context.Context) (oracle.ArchivedQuote, error)
}

// Handler provides the keeper's HTTP endpoints.
type Handler struct {
	positions PositionSource
	quotes    QuoteSource
	cycles    history.Repository
	runner    worker.Runner
	policy    policy.Policy
}

// NewHandler creates a new API handler.
func NewHandler(positions PositionSource, quotes QuoteSource, cycles history.Repository, runner worker.Runner, pol policy.Policy) *Handler {
	return &Handler{
		positions: positions,
		quotes:    quotes,
		cycles:    cycles,
		runner:    runner,
		policy:    pol,
	}
}

// positionResponse is the GET /api/v1/position payload: the raw state
// plus its valuation at the latest archived price.
type positionResponse struct {
	domain.PositionState
	BaseCoins  string `json:"baseCoins"`
	PriceRaw   int64  `json:"priceRaw"`
	HumanPrice string `json:"humanPrice"`
	BaseValue  int64  `json:"baseValue"`
	Imbalance  int64  `json:"imbalance"`
}

// GetPosition handles GET /api/v1/position.
func (h *Handler) GetPosition(w http.ResponseWriter, r *http.Request) {
	state, _, err := h.positions.Position(r.Context())
	if err != nil {
		slog.Error("failed to read position", "error", err)
		writeError(w, http.StatusBadGateway, "indexer unavailable")
		return
	}

	resp := positionResponse{
		PositionState: state,
		BaseCoins:     domain.FormatCoins(state.BaseSats),
	}

	if quote, err := h.quotes.LatestArchived(r.Context()); err == nil {
		priceRaw := int64(quote.PriceRaw)
		resp.PriceRaw = priceRaw
		resp.HumanPrice = quote.HumanPrice()
		resp.BaseValue = h.policy.ValueOf(state.BaseSats, priceRaw)
		resp.Imbalance = h.policy.Imbalance(state.BaseSats, state.TokenUnits, priceRaw)
	} else if !errors.Is(err, oracle.ErrNoQuotes) {
		slog.Error("failed to read latest quote", "error", err)
	}

	writeJSON(w, http.StatusOK, resp)
}

// GetLatestQuote handles GET /api/v1/quote/latest.
func (h *Handler) GetLatestQuote(w http.ResponseWriter, r *http.Request) {
	quote, err := h.quotes.LatestArchived(r.Context())
	if err != nil {
		if errors.Is(err, oracle.ErrNoQuotes) {
			writeError(w, http.StatusNotFound, "no quotes archived yet")
			return
		}
		slog.Error("failed to get latest quote", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, quote)
}

// ListCycles handles GET /api/v1/cycles.
func (h *Handler) ListCycles(w http.ResponseWriter, r *http.Request) {
	const maxLimit = 500
	limit := 50
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, err := strconv.Atoi(l); err == nil && n > 0 {
			limit = min(n, maxLimit)
		}
	}

	records, err := h.cycles.List(r.Context(), limit)
	if err != nil {
		slog.Error("failed to list cycles", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// GetLatestCycle handles GET /api/v1/cycles/latest.
func (h *Handler) GetLatestCycle(w http.ResponseWriter, r *http.Request) {
	rec, err := h.cycles.Latest(r.Context())
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, "no cycles recorded yet")
			return
		}
		slog.Error("failed to get latest cycle", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetCycleByID handles GET /api/v1/cycles/{id}.
func (h *Handler) GetCycleByID(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cycle id")
		return
	}

	rec, err := h.cycles.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			writeError(w, http.StatusNotFound, "cycle not found")
			return
		}
		slog.Error("failed to get cycle", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// TriggerRebalance handles POST /api/v1/rebalance.
func (h *Handler) TriggerRebalance(w http.ResponseWriter, r *http.Request) {
	rec, err := h.runner.RunCycle(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, worker.ErrNoAuthority):
			writeError(w, http.StatusConflict, "keeper does not hold the authority token")
		case errors.Is(err, oracle.ErrStaleQuote):
			writeError(w, http.StatusServiceUnavailable, "oracle quote is stale")
		default:
			slog.Error("failed to run cycle", "error", err)
			writeError(w, http.StatusInternalServerError, "failed to run cycle")
		}
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		slog.Error("failed to marshal JSON response", "error", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		slog.Warn("failed to write HTTP response body", "error", err)
		return
	}
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
