package policy

import "github.com/cashpeg/pegvault/internal/domain"

// RejectReason enumerates why a transition was refused. Rejections are
// ordinary predicate outcomes, not errors.
type RejectReason int

const (
	RejectNone RejectReason = iota
	RejectInvalidPrice
	RejectNoAuthority
	RejectImbalanceWorsened
)

func (r RejectReason) String() string {
	switch r {
	case RejectNone:
		return "none"
	case RejectInvalidPrice:
		return "invalid price"
	case RejectNoAuthority:
		return "no authority token"
	case RejectImbalanceWorsened:
		return "imbalance worsened"
	default:
		return "unknown"
	}
}

// Verdict is the validator's decision for one proposed transition,
// with the imbalance on both sides for observability.
type Verdict struct {
	Accepted        bool         `json:"accepted"`
	Reason          RejectReason `json:"reason"`
	ImbalanceBefore int64        `json:"imbalanceBefore"`
	ImbalanceAfter  int64        `json:"imbalanceAfter"`
}

// ValueOf converts a satoshi amount to quote units at the given raw
// price. The two-step base division followed by the price multiply and
// scale division, truncating at every step, is part of the consensus
// rule; do not reorder.
func (p Policy) ValueOf(baseSats, priceRaw int64) int64 {
	return baseSats / p.BaseScale / p.BaseScale * priceRaw / p.PriceScale
}

// Imbalance is the absolute distance between the base holding's value
// in quote units and the token balance.
func (p Policy) Imbalance(baseSats, tokenUnits, priceRaw int64) int64 {
	return domain.AbsDiff(p.ValueOf(baseSats, priceRaw), tokenUnits)
}

// Validate decides whether the proposed transition is legal. It is
// pure: same inputs, same verdict, no side effects. Checks run in a
// fixed order and short-circuit on the first failure.
func (p Policy) Validate(inputs, outputs []Entry, priceRaw int64) Verdict {
	if priceRaw <= 0 {
		return Verdict{Reason: RejectInvalidPrice}
	}

	if !p.hasAuthority(inputs) {
		return Verdict{Reason: RejectNoAuthority}
	}

	oldBase, oldTokens := p.OldState(inputs)
	newBase, newTokens := p.NewState(outputs)

	before := p.Imbalance(oldBase, oldTokens, priceRaw)
	after := p.Imbalance(newBase, newTokens, priceRaw)

	if after > before {
		return Verdict{
			Reason:          RejectImbalanceWorsened,
			ImbalanceBefore: before,
			ImbalanceAfter:  after,
		}
	}

	return Verdict{
		Accepted:        true,
		ImbalanceBefore: before,
		ImbalanceAfter:  after,
	}
}

// hasAuthority scans the inputs for the configured authority NFT. The
// amount must be exactly zero: a fungible balance under the authority
// category is not a marker.
func (p Policy) hasAuthority(inputs []Entry) bool {
	for _, in := range inputs {
		if in.Kind != AuthorityToken {
			continue
		}
		if in.Category == p.AuthorityCategory &&
			in.TokenAmount == 0 &&
			in.Commitment == p.AuthorityCommitment {
			return true
		}
	}
	return false
}

// OldState derives the position state from transition inputs. Base
// amounts sum over every vault-owned input; the token balance is read
// from the first vault-owned input only. A second vault-owned token
// input is NOT summed: the deployed rule assumes a single position
// UTXO and this implementation preserves that exactly.
func (p Policy) OldState(inputs []Entry) (baseSats, tokenUnits int64) {
	first := true
	for _, in := range inputs {
		if in.Owner != p.VaultOwner {
			continue
		}
		baseSats += in.BaseSats
		if first {
			if in.Kind == FungibleToken && in.Category == p.TokenCategory {
				tokenUnits = in.TokenAmount
			}
			first = false
		}
	}
	return baseSats, tokenUnits
}

// NewState derives the position state from transition outputs. Base
// amounts sum over every vault-owned output; the token balance is read
// from the first vault-owned output carrying a non-zero amount of the
// policy's category. No such output means a full token exit, which is
// legal.
func (p Policy) NewState(outputs []Entry) (baseSats, tokenUnits int64) {
	found := false
	for _, out := range outputs {
		if out.Owner != p.VaultOwner {
			continue
		}
		baseSats += out.BaseSats
		if !found && out.Kind == FungibleToken && out.Category == p.TokenCategory && out.TokenAmount != 0 {
			tokenUnits = out.TokenAmount
			found = true
		}
	}
	return baseSats, tokenUnits
}

// Conserved reports whether the fungible total for the policy's token
// category is identical across inputs and outputs. The ledger VM's own
// token accounting is the enforcing layer; the rebalance worker uses
// this as a pre-broadcast sanity check on assembled transitions.
func (p Policy) Conserved(inputs, outputs []Entry) bool {
	var in, out int64
	for _, e := range inputs {
		if e.Kind == FungibleToken && e.Category == p.TokenCategory {
			in += e.TokenAmount
		}
	}
	for _, e := range outputs {
		if e.Kind == FungibleToken && e.Category == p.TokenCategory {
			out += e.TokenAmount
		}
	}
	return in == out
}
