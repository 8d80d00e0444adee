package planner

import (
	"strings"
	"testing"

	"github.com/cashpeg/pegvault/internal/domain"
	"github.com/cashpeg/pegvault/internal/policy"
)

func testPlanner() *Planner {
	p := policy.New(
		domain.Category(strings.Repeat("aa", 32)),
		domain.Category(strings.Repeat("bb", 32)),
		"c0ffee",
		"bitcoincash:qvault",
	)
	return New(p)
}

func TestPlanNoActionNeeded(t *testing.T) {
	pl := testPlanner()

	// 1 coin at 100.00 is worth exactly the 100-token balance.
	out := pl.Plan(100_000_000, 100, 10_000)
	if out.Kind != NoActionNeeded {
		t.Fatalf("Kind = %s, want NoActionNeeded", out.Kind)
	}
	if out.BaseValue != 100 {
		t.Errorf("BaseValue = %d, want 100", out.BaseValue)
	}
	if out.ImbalanceBefore != 0 {
		t.Errorf("ImbalanceBefore = %d, want 0", out.ImbalanceBefore)
	}
}

func TestPlanSkipsWhenTokensWouldBeAdded(t *testing.T) {
	pl := testPlanner()

	// Base value 100 exceeds the 40-token balance: balancing would mean
	// depositing tokens, which the withdrawal-only planner skips.
	out := pl.Plan(100_000_000, 40, 10_000)
	if out.Kind != SkippedWrongDirection {
		t.Fatalf("Kind = %s, want SkippedWrongDirection", out.Kind)
	}
	if out.TokenDelta != 0 {
		t.Errorf("TokenDelta = %d, want 0", out.TokenDelta)
	}
}

func TestPlanFindsWithdrawal(t *testing.T) {
	pl := testPlanner()

	out := pl.Plan(100_000_000, 200, 10_000)
	if out.Kind != Found {
		t.Fatalf("Kind = %s, want Found", out.Kind)
	}
	// gap = 100, first step = 50, candidate = 150, D 100 -> 50.
	if out.TokenDelta != 50 {
		t.Errorf("TokenDelta = %d, want 50", out.TokenDelta)
	}
	if out.ImbalanceAfter >= out.ImbalanceBefore {
		t.Errorf("imbalance %d -> %d, want strict improvement", out.ImbalanceBefore, out.ImbalanceAfter)
	}
}

func TestPlanMinimalGap(t *testing.T) {
	pl := testPlanner()

	// gap = 1: step clamps to 1 and withdrawing a single token balances
	// the position exactly.
	out := pl.Plan(100_000_000, 101, 10_000)
	if out.Kind != Found {
		t.Fatalf("Kind = %s, want Found", out.Kind)
	}
	if out.TokenDelta != 1 {
		t.Errorf("TokenDelta = %d, want 1", out.TokenDelta)
	}
	if out.ImbalanceAfter != 0 {
		t.Errorf("ImbalanceAfter = %d, want 0", out.ImbalanceAfter)
	}
}

func TestPlanFoundAlwaysPassesValidator(t *testing.T) {
	pl := testPlanner()
	p := pl.policy

	tests := []struct {
		name               string
		oldBase, oldTokens int64
		priceRaw           int64
	}{
		{"reference", 100_000_000, 200, 10_000},
		{"large gap", 100_000_000, 1_000_000, 10_000},
		{"oracle price", 250_000_000, 5_000, 47622},
		{"tiny gap", 100_000_000, 102, 10_000},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := pl.Plan(tt.oldBase, tt.oldTokens, tt.priceRaw)
			if out.Kind != Found {
				t.Fatalf("Kind = %s, want Found", out.Kind)
			}

			proposal, ok := out.Proposal(tt.oldTokens)
			if !ok {
				t.Fatal("Proposal() ok = false for a Found outcome")
			}

			before := p.Imbalance(tt.oldBase, tt.oldTokens, tt.priceRaw)
			after := p.Imbalance(tt.oldBase, proposal.NewTokenUnits, tt.priceRaw)
			if after >= before {
				t.Errorf("imbalance %d -> %d, want strict improvement", before, after)
			}
		})
	}
}

func TestPlanOutcomeProposal(t *testing.T) {
	pl := testPlanner()

	out := pl.Plan(100_000_000, 200, 10_000)
	proposal, ok := out.Proposal(200)
	if !ok {
		t.Fatal("Proposal() ok = false")
	}
	if proposal.NewTokenUnits != 150 || proposal.TokenDelta != 50 {
		t.Errorf("proposal = %+v, want NewTokenUnits=150 TokenDelta=50", proposal)
	}

	skipped := pl.Plan(100_000_000, 100, 10_000)
	if _, ok := skipped.Proposal(100); ok {
		t.Error("Proposal() ok = true for a NoActionNeeded outcome")
	}
}
