// Package planner computes rebalance proposals off-chain. It reuses the
// validator's arithmetic so that any proposal it emits is one the
// on-chain rule will accept.
package planner

import (
	"github.com/cashpeg/pegvault/internal/domain"
	"github.com/cashpeg/pegvault/internal/policy"
)

// OutcomeKind tags the planner's terminal state for one run. Every kind
// is an ordinary result: a skipped cycle is not a failure.
type OutcomeKind int

const (
	// NoActionNeeded: the position is already in balance.
	NoActionNeeded OutcomeKind = iota
	// SkippedWrongDirection: balancing would require adding tokens to
	// the position, which this withdrawal-only planner does not do.
	SkippedWrongDirection
	// NoImprovingStep: the shrink search exhausted its steps without
	// finding an improving withdrawal.
	NoImprovingStep
	// Found: TokenDelta tokens should be withdrawn from the position.
	Found
)

func (k OutcomeKind) String() string {
	switch k {
	case NoActionNeeded:
		return "no action needed"
	case SkippedWrongDirection:
		return "skipped: would need to add tokens"
	case NoImprovingStep:
		return "no improving step"
	case Found:
		return "found"
	default:
		return "unknown"
	}
}

// Outcome is the planner's tagged result.
type Outcome struct {
	Kind OutcomeKind `json:"kind"`
	// TokenDelta is the withdrawal amount; set only when Kind == Found.
	TokenDelta int64 `json:"tokenDelta,omitempty"`
	// BaseValue is the base holding's value in quote units at the
	// supplied price.
	BaseValue       int64 `json:"baseValue"`
	ImbalanceBefore int64 `json:"imbalanceBefore"`
	// ImbalanceAfter is meaningful only when Kind == Found.
	ImbalanceAfter int64 `json:"imbalanceAfter,omitempty"`
}

// Proposal converts a Found outcome into a transition proposal. The
// second return is false for every other kind.
func (o Outcome) Proposal(oldTokens int64) (domain.TransitionProposal, bool) {
	if o.Kind != Found {
		return domain.TransitionProposal{}, false
	}
	return domain.TransitionProposal{
		NewTokenUnits: oldTokens - o.TokenDelta,
		TokenDelta:    o.TokenDelta,
	}, true
}

// Planner proposes token withdrawals that shrink the position's
// imbalance under a given policy.
type Planner struct {
	policy policy.Policy
}

// New creates a planner bound to one policy.
func New(p policy.Policy) *Planner {
	return &Planner{policy: p}
}

// Plan computes a withdrawal for the current position at the given raw
// price. The search starts at half the imbalance gap and halves the
// step until an improving withdrawal appears, so it terminates in at
// most ~32 iterations for 32-bit amounts. It takes the first improving
// step, not the optimal one.
func (pl *Planner) Plan(oldBase, oldTokens, priceRaw int64) Outcome {
	baseValue := pl.policy.ValueOf(oldBase, priceRaw)
	before := domain.AbsDiff(baseValue, oldTokens)

	out := Outcome{
		BaseValue:       baseValue,
		ImbalanceBefore: before,
	}

	if before == 0 {
		out.Kind = NoActionNeeded
		return out
	}

	if baseValue >= oldTokens {
		out.Kind = SkippedWrongDirection
		return out
	}

	gap := oldTokens - baseValue
	step := max(int64(1), gap/2)

	for {
		candidate := oldTokens - step
		after := domain.AbsDiff(baseValue, candidate)
		if after < before {
			out.Kind = Found
			out.TokenDelta = step
			out.ImbalanceAfter = after
			return out
		}
		if step <= 1 {
			break
		}
		step = max(int64(1), step/2)
	}

	out.Kind = NoImprovingStep
	return out
}
