// Package policy implements the vault's value-balancing rule: a pure
// predicate over a proposed transition's inputs and outputs. The ledger
// VM evaluates the same rule on-chain; this implementation must match
// it bit for bit, so all arithmetic is integer with truncating division
// in a fixed order.
package policy

import (
	"github.com/cashpeg/pegvault/internal/domain"
)

// Reference policy scales. BaseSats / BaseScale / BaseScale yields whole
// coins; priceRaw / PriceScale yields quote units. Changing either
// changes validator semantics and requires a new policy version.
const (
	DefaultBaseScale  = 10_000
	DefaultPriceScale = 100
)

// EntryKind tags the token payload carried by a transition entry.
// Modeling the three shapes as a closed variant keeps optional-field
// checks out of the validator loop.
type EntryKind int

const (
	// BaseOnly carries base currency and no token.
	BaseOnly EntryKind = iota
	// FungibleToken carries a fungible token amount of some category.
	FungibleToken
	// AuthorityToken carries a zero-amount NFT whose commitment gates
	// the right to trigger a transition.
	AuthorityToken
)

// Entry is one transition input or output: a base-currency amount in
// satoshis plus an optional token payload.
type Entry struct {
	Kind EntryKind
	// Owner is the entry's locking identity. Entries owned by the vault
	// participate in state aggregation; all others are pass-through.
	Owner       string
	BaseSats    int64
	Category    domain.Category
	TokenAmount int64
	Commitment  domain.Commitment
}

// BaseEntry builds a token-free entry.
func BaseEntry(owner string, sats int64) Entry {
	return Entry{Kind: BaseOnly, Owner: owner, BaseSats: sats}
}

// TokenEntry builds an entry carrying a fungible token amount.
func TokenEntry(owner string, sats int64, category domain.Category, amount int64) Entry {
	return Entry{Kind: FungibleToken, Owner: owner, BaseSats: sats, Category: category, TokenAmount: amount}
}

// AuthorityEntry builds an entry carrying an authority NFT. Authority
// tokens are pure markers: their fungible amount is always zero.
func AuthorityEntry(owner string, sats int64, category domain.Category, commitment domain.Commitment) Entry {
	return Entry{Kind: AuthorityToken, Owner: owner, BaseSats: sats, Category: category, Commitment: commitment}
}

// Policy holds the immutable parameters of one vault deployment.
type Policy struct {
	// TokenCategory is the fungible token the vault balances against
	// its base-currency value.
	TokenCategory domain.Category
	// AuthorityCategory and AuthorityCommitment identify the NFT that
	// authorizes transitions.
	AuthorityCategory   domain.Category
	AuthorityCommitment domain.Commitment
	// VaultOwner is the vault's own locking identity.
	VaultOwner string
	BaseScale  int64
	PriceScale int64
}

// New returns a Policy with the reference scales filled in where the
// caller left them zero.
func New(tokenCategory, authorityCategory domain.Category, authorityCommitment domain.Commitment, vaultOwner string) Policy {
	return Policy{
		TokenCategory:       tokenCategory,
		AuthorityCategory:   authorityCategory,
		AuthorityCommitment: authorityCommitment,
		VaultOwner:          vaultOwner,
		BaseScale:           DefaultBaseScale,
		PriceScale:          DefaultPriceScale,
	}
}
