package council

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLedgerModels() []ModelConfig {
	return []ModelConfig{
		{ID: "mistral_7b_instruct", Category: CategoryGeneral, CentsPerToken: 0.001},
		{ID: "gpt_large", Category: CategoryGeneral, CentsPerToken: 0.03},
		{ID: "math_tiny", Category: CategoryMath, CentsPerToken: 0.002},
		{ID: "math_large", Category: CategoryMath, CentsPerToken: 0.02},
	}
}

func TestDebitAccumulates(t *testing.T) {
	l := NewCostLedger(testLedgerModels(), BudgetConfig{MaxDollars: 5})

	cost := l.Debit("gpt_large", 100, "req-1")
	assert.InDelta(t, 3.0, cost, 1e-9) // 100 tokens * 0.03 c/tok

	l.Debit("mistral_7b_instruct", 100, "req-2")

	st := l.Status()
	assert.InDelta(t, 0.031, st.RollingCostDollars, 1e-9)
	assert.InDelta(t, 5.0, st.MaxBudgetDollars, 1e-9)
	assert.InDelta(t, 5.0-0.031, st.RemainingDollars, 1e-9)
	assert.Equal(t, 24, st.WindowHours)
}

func TestDebitUnknownModelUsesDefaultPrice(t *testing.T) {
	l := NewCostLedger(testLedgerModels(), BudgetConfig{})

	cost := l.Debit("never-configured", 10, "req-1")
	assert.InDelta(t, 10*DefaultPriceCents, cost, 1e-9)
}

func TestPruneWindowBoundary(t *testing.T) {
	l := NewCostLedger(testLedgerModels(), BudgetConfig{WindowHours: 24})

	t0 := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return t0 }
	l.Debit("gpt_large", 100, "req-1")

	// An entry exactly one window old is still counted.
	l.now = func() time.Time { return t0.Add(24 * time.Hour) }
	l.Prune()
	assert.InDelta(t, 0.03, l.Status().RollingCostDollars, 1e-9)

	// One second past the window it is gone.
	l.now = func() time.Time { return t0.Add(24*time.Hour + time.Second) }
	l.Prune()
	assert.InDelta(t, 0, l.Status().RollingCostDollars, 1e-9)
	assert.Empty(t, l.entries)
}

func TestPruneAmortizedOnDebit(t *testing.T) {
	l := NewCostLedger(testLedgerModels(), BudgetConfig{WindowHours: 24})

	t0 := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	l.now = func() time.Time { return t0 }
	for i := 0; i < pruneInterval-1; i++ {
		l.Debit("mistral_7b_instruct", 10, fmt.Sprintf("req-%d", i))
	}
	require.Len(t, l.entries, pruneInterval-1)

	// The interval-th debit lands two days later and triggers the prune,
	// leaving only itself in the window.
	l.now = func() time.Time { return t0.Add(48 * time.Hour) }
	l.Debit("mistral_7b_instruct", 10, "req-last")

	assert.Len(t, l.entries, 1)
	assert.InDelta(t, 10*0.001, l.rollingCents, 1e-9)
}

func TestIsBudgetExceeded(t *testing.T) {
	l := NewCostLedger(testLedgerModels(), BudgetConfig{MaxDollars: 0.05})

	assert.False(t, l.IsBudgetExceeded())

	l.Debit("gpt_large", 200, "req-1") // 6 cents
	assert.True(t, l.IsBudgetExceeded())
}

func TestHardCap(t *testing.T) {
	soft := NewCostLedger(testLedgerModels(), BudgetConfig{MaxDollars: 0.01})
	soft.Debit("gpt_large", 1000, "req-1")
	assert.False(t, soft.IsHardCapExceeded(), "zero hard cap disables the check")

	hard := NewCostLedger(testLedgerModels(), BudgetConfig{MaxDollars: 0.01, HardCapDollars: 0.05})
	hard.Debit("gpt_large", 1000, "req-1") // 30 cents
	assert.True(t, hard.IsHardCapExceeded())
}

func TestDowngradeRoute(t *testing.T) {
	l := NewCostLedger(testLedgerModels(), BudgetConfig{})

	route := Route{"gpt_large", "math_large"}
	got := l.DowngradeRoute(route)

	require.Len(t, got, len(route))
	assert.Equal(t, Route{"mistral_7b_instruct", "math_tiny"}, got)

	// Already-cheapest heads stay put.
	assert.Equal(t, Route{"mistral_7b_instruct"}, l.DowngradeRoute(Route{"mistral_7b_instruct"}))

	// Unknown heads fall back to the cheapest general model.
	assert.Equal(t, Route{"mistral_7b_instruct"}, l.DowngradeRoute(Route{"mystery"}))
}

func TestDowngradeRoute_StrictlyCheaperWhenAvailable(t *testing.T) {
	models := []ModelConfig{
		{ID: "tinyllama_1b", Category: CategoryGeneral, CentsPerToken: 0.0005},
		{ID: "mistral_7b_instruct", Category: CategoryGeneral, CentsPerToken: 0.001},
	}
	l := NewCostLedger(models, BudgetConfig{})

	original := Route{"mistral_7b_instruct"}
	got := l.DowngradeRoute(original)

	require.Len(t, got, len(original))
	assert.Equal(t, Route{"tinyllama_1b"}, got)
	assert.Less(t, l.PriceFor(got[0]), l.PriceFor(original[0]))
}

func TestDowngradePreservesSpend(t *testing.T) {
	l := NewCostLedger(testLedgerModels(), BudgetConfig{})
	l.Debit("gpt_large", 100, "req-1")

	before := l.Status().RollingCostDollars
	l.DowngradeRoute(Route{"gpt_large"})
	assert.Equal(t, before, l.Status().RollingCostDollars)
}

func TestCostByModel(t *testing.T) {
	l := NewCostLedger(testLedgerModels(), BudgetConfig{})
	l.Debit("gpt_large", 100, "req-1")
	l.Debit("gpt_large", 100, "req-2")
	l.Debit("math_tiny", 50, "req-3")

	by := l.CostByModel()
	assert.InDelta(t, 0.06, by["gpt_large"], 1e-9)
	assert.InDelta(t, 0.001, by["math_tiny"], 1e-9)
}

func TestReset(t *testing.T) {
	l := NewCostLedger(testLedgerModels(), BudgetConfig{})
	l.Debit("gpt_large", 100, "req-1")

	l.Reset()
	assert.Zero(t, l.Status().RollingCostDollars)
	assert.Empty(t, l.CostByModel())
}
