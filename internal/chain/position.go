package chain

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/samber/lo"

	"github.com/cashpeg/pegvault/internal/domain"
	"github.com/cashpeg/pegvault/internal/policy"
)

// UTXOSource abstracts the indexer for testing.
type UTXOSource interface {
	UTXOs(ctx context.Context, address string) ([]UTXO, error)
}

// PositionReader derives the vault's position state and the keeper's
// authority evidence from indexer data, using the validator's own
// aggregation so the planner sees exactly what the on-chain rule will.
type PositionReader struct {
	source UTXOSource
	policy policy.Policy
}

// NewPositionReader creates a position reader bound to one policy.
func NewPositionReader(source UTXOSource, p policy.Policy) *PositionReader {
	return &PositionReader{source: source, policy: p}
}

// Entries fetches an address's UTXOs as transition entries.
func (r *PositionReader) Entries(ctx context.Context, address string) ([]policy.Entry, error) {
	utxos, err := r.source.UTXOs(ctx, address)
	if err != nil {
		return nil, fmt.Errorf("fetching UTXOs for %s: %w", address, err)
	}

	entries := make([]policy.Entry, 0, len(utxos))
	for _, u := range utxos {
		e, err := entryFromUTXO(address, u)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// Position reads the vault's current state. The returned entries are
// ordered with the position UTXO (the one carrying the policy's token
// category) first; the transaction assembler must preserve that order
// because the on-chain rule reads the token balance from the first
// vault-owned input.
func (r *PositionReader) Position(ctx context.Context) (domain.PositionState, []policy.Entry, error) {
	entries, err := r.Entries(ctx, r.policy.VaultOwner)
	if err != nil {
		return domain.PositionState{}, nil, err
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return r.isPosition(entries[i]) && !r.isPosition(entries[j])
	})

	baseSats, tokenUnits := r.policy.OldState(entries)
	state := domain.PositionState{
		BaseSats:   baseSats,
		TokenUnits: tokenUnits,
		Category:   r.policy.TokenCategory,
	}
	return state, entries, nil
}

// Authority returns the keeper's authority entry if the address holds
// the policy's authority NFT.
func (r *PositionReader) Authority(ctx context.Context, keeperAddress string) (policy.Entry, bool, error) {
	entries, err := r.Entries(ctx, keeperAddress)
	if err != nil {
		return policy.Entry{}, false, err
	}

	match, found := lo.Find(entries, func(e policy.Entry) bool {
		return e.Kind == policy.AuthorityToken &&
			e.Category == r.policy.AuthorityCategory &&
			e.TokenAmount == 0 &&
			e.Commitment == r.policy.AuthorityCommitment
	})
	return match, found, nil
}

func (r *PositionReader) isPosition(e policy.Entry) bool {
	return e.Kind == policy.FungibleToken && e.Category == r.policy.TokenCategory
}

// entryFromUTXO maps an indexer UTXO onto the closed entry variant. A
// UTXO carrying an NFT is an authority-shaped entry regardless of any
// fungible amount riding along; the validator decides whether it is
// the right authority.
func entryFromUTXO(owner string, u UTXO) (policy.Entry, error) {
	if u.Token == nil {
		return policy.BaseEntry(owner, u.Satoshis), nil
	}

	amount := int64(0)
	if u.Token.Amount != "" {
		parsed, err := strconv.ParseInt(u.Token.Amount, 10, 64)
		if err != nil {
			return policy.Entry{}, fmt.Errorf("parsing token amount %q on %s:%d: %w", u.Token.Amount, u.TxID, u.Vout, err)
		}
		amount = parsed
	}

	category := domain.Category(u.Token.Category)
	if u.Token.NFT != nil {
		e := policy.AuthorityEntry(owner, u.Satoshis, category, domain.Commitment(u.Token.NFT.Commitment))
		e.TokenAmount = amount
		return e, nil
	}
	return policy.TokenEntry(owner, u.Satoshis, category, amount), nil
}
