package domain

// PositionState is the vault's committed state at a point in time:
// the base-currency holding and the fungible token balance it manages.
// It is derived fresh from the ledger per cycle, never persisted on its own.
type PositionState struct {
	BaseSats   int64    `json:"baseSats"`
	TokenUnits int64    `json:"tokenUnits"`
	Category   Category `json:"category"`
}

// TransitionProposal is a candidate new position produced by the planner:
// the token balance the vault should end up with and the amount routed out.
type TransitionProposal struct {
	NewTokenUnits int64 `json:"newTokenUnits"`
	TokenDelta    int64 `json:"tokenDelta"`
}
