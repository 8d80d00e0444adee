// Package worker runs the keeper's periodic jobs: archiving oracle
// quotes and executing planning cycles.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cashpeg/pegvault/internal/domain"
	"github.com/cashpeg/pegvault/internal/history"
	"github.com/cashpeg/pegvault/internal/oracle"
	"github.com/cashpeg/pegvault/internal/planner"
	"github.com/cashpeg/pegvault/internal/policy"
)

// ErrNoAuthority indicates that the keeper address does not hold the
// policy's authority token, so no transition can be triggered. This is
// an input-validation failure, checked before the planner runs.
var ErrNoAuthority = errors.New("keeper does not hold the authority token")

// dustSats is the minimum base amount attached to a token-carrying
// payout output.
const dustSats = 546

// QuoteProvider supplies a quote fresh enough to plan against.
type QuoteProvider interface {
	FreshQuote(ctx context.Context) (oracle.Quote, error)
}

// PositionProvider reads the vault's state and the keeper's authority
// evidence from the ledger.
type PositionProvider interface {
	Position(ctx context.Context) (domain.PositionState, []policy.Entry, error)
	Authority(ctx context.Context, keeperAddress string) (policy.Entry, bool, error)
}

// TransactionAssembler turns an accepted transition into a broadcast
// transaction. Fee, dust and change handling live behind it; a stale
// input (another keeper won the race) surfaces as an error here.
type TransactionAssembler interface {
	Assemble(ctx context.Context, inputs, outputs []policy.Entry) (txid string, err error)
}

// DryRunAssembler logs the transition instead of broadcasting it. It is
// the default assembler.
type DryRunAssembler struct{}

func (DryRunAssembler) Assemble(_ context.Context, inputs, outputs []policy.Entry) (string, error) {
	slog.Info("dry run: transition not broadcast", "inputs", len(inputs), "outputs", len(outputs))
	return "", nil
}

// CycleRunner executes one planning cycle: fetch a fresh quote, read
// the position, plan, double-check the proposal against the validator,
// record the result, and hand accepted proposals to the assembler.
type CycleRunner struct {
	quotes     QuoteProvider
	positions  PositionProvider
	planner    *planner.Planner
	policy     policy.Policy
	keeperAddr string
	payoutAddr string
	repo       history.Repository
	assembler  TransactionAssembler
}

// NewCycleRunner creates a cycle runner. A nil assembler defaults to a
// dry run.
func NewCycleRunner(
	quotes QuoteProvider,
	positions PositionProvider,
	pl *planner.Planner,
	pol policy.Policy,
	keeperAddr, payoutAddr string,
	repo history.Repository,
	assembler TransactionAssembler,
) *CycleRunner {
	if assembler == nil {
		assembler = DryRunAssembler{}
	}
	return &CycleRunner{
		quotes:     quotes,
		positions:  positions,
		planner:    pl,
		policy:     pol,
		keeperAddr: keeperAddr,
		payoutAddr: payoutAddr,
		repo:       repo,
		assembler:  assembler,
	}
}

// RunCycle executes one cycle and records it. Planner terminals are
// ordinary results; only resource faults (quote, indexer, storage,
// missing authority) come back as errors.
func (r *CycleRunner) RunCycle(ctx context.Context) (history.Record, error) {
	quote, err := r.quotes.FreshQuote(ctx)
	if err != nil {
		return history.Record{}, fmt.Errorf("getting quote: %w", err)
	}

	state, vaultEntries, err := r.positions.Position(ctx)
	if err != nil {
		return history.Record{}, fmt.Errorf("reading position: %w", err)
	}

	authority, ok, err := r.positions.Authority(ctx, r.keeperAddr)
	if err != nil {
		return history.Record{}, fmt.Errorf("checking authority: %w", err)
	}
	if !ok {
		return history.Record{}, ErrNoAuthority
	}

	priceRaw := int64(quote.PriceRaw)
	outcome := r.planner.Plan(state.BaseSats, state.TokenUnits, priceRaw)

	rec := history.Record{
		ID:              uuid.New(),
		RunAt:           time.Now().UTC(),
		PriceRaw:        priceRaw,
		PriceScale:      quote.PriceScale,
		MessageSequence: int64(quote.MessageSequence),
		BaseSats:        state.BaseSats,
		TokenUnits:      state.TokenUnits,
		Outcome:         outcome.Kind.String(),
		TokenDelta:      outcome.TokenDelta,
		ImbalanceBefore: outcome.ImbalanceBefore,
		ImbalanceAfter:  outcome.ImbalanceAfter,
	}

	if outcome.Kind == planner.Found {
		inputs, outputs := r.buildTransition(state, vaultEntries, authority, outcome.TokenDelta)

		verdict := r.policy.Validate(inputs, outputs, priceRaw)
		rec.Accepted = verdict.Accepted
		if !verdict.Accepted {
			rec.RejectReason = verdict.Reason.String()
			slog.Error("planner proposal rejected by validator",
				"reason", verdict.Reason.String(),
				"imbalanceBefore", verdict.ImbalanceBefore,
				"imbalanceAfter", verdict.ImbalanceAfter)
		} else if !r.policy.Conserved(inputs, outputs) {
			// Should be impossible for transitions built here; refuse
			// to hand a token-burning transition to the assembler.
			rec.Accepted = false
			rec.RejectReason = "token conservation violated"
			slog.Error("assembled transition does not conserve tokens")
		} else {
			txid, err := r.assembler.Assemble(ctx, inputs, outputs)
			if err != nil {
				return history.Record{}, fmt.Errorf("assembling transition: %w", err)
			}
			rec.TxID = txid
			slog.Info("rebalance transition handed off",
				"tokenDelta", outcome.TokenDelta,
				"imbalanceBefore", outcome.ImbalanceBefore,
				"imbalanceAfter", outcome.ImbalanceAfter,
				"txid", txid)
		}
	} else {
		slog.Info("planning cycle finished without a transition",
			"outcome", outcome.Kind.String(),
			"baseValue", outcome.BaseValue,
			"tokenUnits", state.TokenUnits)
	}

	if err := r.repo.Save(ctx, rec); err != nil {
		return history.Record{}, fmt.Errorf("recording cycle: %w", err)
	}
	return rec, nil
}

// buildTransition lays out the canonical rebalance shape: the vault's
// entries (position UTXO first) plus the keeper's authority input; the
// vault's new position, the pass-through authority, and the payout
// output carrying the withdrawn tokens.
func (r *CycleRunner) buildTransition(
	state domain.PositionState,
	vaultEntries []policy.Entry,
	authority policy.Entry,
	tokenDelta int64,
) (inputs, outputs []policy.Entry) {
	inputs = append(inputs, vaultEntries...)
	inputs = append(inputs, authority)

	newTokens := state.TokenUnits - tokenDelta
	outputs = []policy.Entry{
		policy.TokenEntry(r.policy.VaultOwner, state.BaseSats, r.policy.TokenCategory, newTokens),
		policy.AuthorityEntry(authority.Owner, authority.BaseSats, authority.Category, authority.Commitment),
		policy.TokenEntry(r.payoutAddr, dustSats, r.policy.TokenCategory, tokenDelta),
	}
	return inputs, outputs
}
