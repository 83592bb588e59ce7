package council

import (
	"sync"
	"time"
)

// DefaultPriceCents is charged per token for models missing from the
// pricing table. Conservative middle-of-the-range default rather than
// an error: billing must never fail a turn.
const DefaultPriceCents = 0.10

// pruneInterval is how many debits may pass between prunes of expired
// entries. Pruning recomputes the running total exactly once.
const pruneInterval = 100

// CostEntry records spend for a single model call. Append-only.
type CostEntry struct {
	Model     ModelID
	Tokens    int
	CostCents float64
	Timestamp time.Time
	RequestID string
}

// BudgetStatus is a snapshot of the rolling budget.
type BudgetStatus struct {
	RollingCostDollars float64 `json:"rolling_cost_dollars"`
	MaxBudgetDollars   float64 `json:"max_budget_dollars"`
	UtilizationPercent float64 `json:"utilization_percent"`
	RemainingDollars   float64 `json:"remaining_dollars"`
	WindowHours        int     `json:"window_hours"`
}

type modelPrice struct {
	centsPerToken float64
	category      Category
}

// CostLedger tracks spend per model call inside a rolling window and
// rewrites routes to cheaper heads when the budget runs hot. All state
// is guarded by a single mutex: debits from parallel sessions must
// never under- or over-count.
type CostLedger struct {
	mu sync.Mutex

	pricing map[ModelID]modelPrice
	// byCategory holds model ids sorted cheapest-first per category.
	byCategory map[Category][]ModelID

	maxBudgetDollars float64
	hardCapDollars   float64
	window           time.Duration

	entries          []CostEntry
	rollingCents     float64
	debitsSincePrune int

	now func() time.Time
}

// NewCostLedger builds a ledger from the configured model table and
// budget settings.
func NewCostLedger(models []ModelConfig, budget BudgetConfig) *CostLedger {
	l := &CostLedger{
		pricing:          make(map[ModelID]modelPrice, len(models)),
		byCategory:       make(map[Category][]ModelID),
		maxBudgetDollars: budget.MaxDollars,
		hardCapDollars:   budget.HardCapDollars,
		window:           budget.Window(),
		now:              time.Now,
	}
	if l.window <= 0 {
		l.window = DefaultWindowHours * time.Hour
	}
	if l.maxBudgetDollars <= 0 {
		l.maxBudgetDollars = DefaultMaxBudgetDollars
	}

	for _, m := range models {
		price := m.CentsPerToken
		if price <= 0 {
			price = DefaultPriceCents
		}
		cat := m.Category
		if cat == "" {
			cat = CategoryGeneral
		}
		l.pricing[m.ID] = modelPrice{centsPerToken: price, category: cat}
		l.insertByPrice(cat, m.ID)
	}
	return l
}

// insertByPrice keeps byCategory sorted cheapest-first, stable on ties.
func (l *CostLedger) insertByPrice(cat Category, id ModelID) {
	ids := l.byCategory[cat]
	price := l.pricing[id].centsPerToken
	pos := len(ids)
	for i, other := range ids {
		if l.pricing[other].centsPerToken > price {
			pos = i
			break
		}
	}
	ids = append(ids, "")
	copy(ids[pos+1:], ids[pos:])
	ids[pos] = id
	l.byCategory[cat] = ids
}

// PriceFor returns the per-token price in cents for a model. Unknown
// models get the conservative default.
func (l *CostLedger) PriceFor(model ModelID) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.pricing[model]; ok {
		return p.centsPerToken
	}
	return DefaultPriceCents
}

// Debit records the cost of a model call and returns it in cents.
// Pruning of expired entries is amortized: checked every pruneInterval
// debits rather than on every call.
func (l *CostLedger) Debit(model ModelID, tokens int, requestID string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()

	price := DefaultPriceCents
	if p, ok := l.pricing[model]; ok {
		price = p.centsPerToken
	}
	costCents := price * float64(tokens)

	l.entries = append(l.entries, CostEntry{
		Model:     model,
		Tokens:    tokens,
		CostCents: costCents,
		Timestamp: l.now(),
		RequestID: requestID,
	})
	l.rollingCents += costCents

	l.debitsSincePrune++
	if l.debitsSincePrune >= pruneInterval {
		l.pruneLocked()
	}

	return costCents
}

// Prune drops entries older than the rolling window and recomputes the
// running total exactly.
func (l *CostLedger) Prune() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked()
}

func (l *CostLedger) pruneLocked() {
	l.debitsSincePrune = 0
	cutoff := l.now().Add(-l.window)

	kept := l.entries[:0]
	for _, e := range l.entries {
		if !e.Timestamp.Before(cutoff) {
			kept = append(kept, e)
		}
	}
	if len(kept) == len(l.entries) {
		return
	}
	l.entries = kept

	total := 0.0
	for _, e := range l.entries {
		total += e.CostCents
	}
	l.rollingCents = total
}

// IsBudgetExceeded reports whether rolling spend has passed the soft
// budget. The governor is advisory: traffic keeps flowing on cheaper
// heads.
func (l *CostLedger) IsBudgetExceeded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked()
	return l.rollingCents/100.0 > l.maxBudgetDollars
}

// IsHardCapExceeded reports whether an absolute ceiling is configured
// and breached. New requests must then fail fast.
func (l *CostLedger) IsHardCapExceeded() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hardCapDollars <= 0 {
		return false
	}
	l.pruneLocked()
	return l.rollingCents/100.0 > l.hardCapDollars
}

// Status returns a snapshot of the rolling budget.
func (l *CostLedger) Status() BudgetStatus {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked()

	dollars := l.rollingCents / 100.0
	return BudgetStatus{
		RollingCostDollars: dollars,
		MaxBudgetDollars:   l.maxBudgetDollars,
		UtilizationPercent: dollars / l.maxBudgetDollars * 100,
		RemainingDollars:   l.maxBudgetDollars - dollars,
		WindowHours:        int(l.window / time.Hour),
	}
}

// CostByModel returns the in-window spend per model, in dollars.
func (l *CostLedger) CostByModel() map[ModelID]float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.pruneLocked()

	out := make(map[ModelID]float64)
	for _, e := range l.entries {
		out[e.Model] += e.CostCents / 100.0
	}
	return out
}

// DowngradeRoute maps each model in the route to the cheapest
// configured head of the same category. Length and order are preserved
// and a category is never dropped, so the caller's intent survives the
// downgrade. Pure with respect to spend state.
func (l *CostLedger) DowngradeRoute(route Route) Route {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make(Route, len(route))
	for i, m := range route {
		cat := CategoryGeneral
		if p, ok := l.pricing[m]; ok {
			cat = p.category
		}
		if ids := l.byCategory[cat]; len(ids) > 0 {
			out[i] = ids[0]
		} else if ids := l.byCategory[CategoryGeneral]; len(ids) > 0 {
			out[i] = ids[0]
		} else {
			out[i] = m
		}
	}
	return out
}

// Reset clears all spend state. Intended for tests and operator resets.
func (l *CostLedger) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = nil
	l.rollingCents = 0
	l.debitsSincePrune = 0
}
