package council

import (
	"context"

	"github.com/google/uuid"
)

// Router is the externally callable entry point. It consults the cost
// ledger before handing a route to the cascade, substituting cheaper
// same-category heads when spend runs hot.
type Router struct {
	cfg        Config
	backends   *BackendSet
	ledger     *CostLedger
	store      DigestStore
	engine     *Engine
	orch       *Orchestrator
	classifier *Classifier
	meter      Meter
}

// Option configures a Router.
type Option func(*Router)

// WithLedger sets the cost ledger.
func WithLedger(l *CostLedger) Option {
	return func(r *Router) { r.ledger = l }
}

// WithStore sets the context digest store.
func WithStore(s DigestStore) Option {
	return func(r *Router) { r.store = s }
}

// WithMeter sets the meter.
func WithMeter(m Meter) Option {
	return func(r *Router) { r.meter = m }
}

// WithEngine sets a custom voting engine.
func WithEngine(e *Engine) Option {
	return func(r *Router) { r.engine = e }
}

// New creates a Router with the given config and backends. A default
// ledger and noop meter are used unless overridden; without WithStore
// the cascade runs context-free.
func New(cfg Config, backends []Backend, opts ...Option) (*Router, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(backends) == 0 {
		return nil, ErrBackendUnavailable
	}

	r := &Router{
		cfg:      cfg,
		backends: NewBackendSet(backends...),
	}
	for _, opt := range opts {
		opt(r)
	}

	// Apply defaults after options.
	if r.ledger == nil {
		r.ledger = NewCostLedger(cfg.Models, cfg.Budget)
	}
	if r.meter == nil {
		r.meter = noopMeter{}
	}

	r.classifier = NewClassifier(cfg.Cascade)
	if r.engine == nil {
		r.engine = NewEngine(r.backends, r.classifier, cfg.Cascade.VoteDeadline())
	}
	r.orch = NewOrchestrator(cfg, r.engine, r.ledger, r.store, r.classifier, r.meter)

	return r, nil
}

// Turn routes one user turn through budget check and cascade.
func (r *Router) Turn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	if r.ledger.IsHardCapExceeded() {
		return TurnResult{}, ErrBudgetHardCap
	}

	if len(req.Route) == 0 {
		req.Route = r.cfg.DefaultRoute()
	}
	if r.ledger.IsBudgetExceeded() {
		downgraded := r.ledger.DowngradeRoute(req.Route)
		r.meter.OnBudget(BudgetEvent{
			Original:   req.Route,
			Downgraded: downgraded,
			Status:     r.ledger.Status(),
		})
		req.Route = downgraded
	}

	return r.orch.Turn(ctx, req)
}

// Vote fans a prompt out to the given heads directly, bypassing the
// cascade. Every invoked head is debited. Returns ErrNoCandidates when
// no head produced a usable answer.
func (r *Router) Vote(ctx context.Context, prompt string, candidates []ModelID, topK int) (VoteResult, error) {
	if r.ledger.IsHardCapExceeded() {
		return VoteResult{}, ErrBudgetHardCap
	}

	requestID := uuid.New().String()
	res, err := r.engine.Vote(ctx, prompt, candidates, topK, r.cfg.Cascade.VoteDeadline())

	for _, c := range res.Invoked {
		if c.TokensUsed > 0 {
			r.ledger.Debit(c.Model, c.TokensUsed, requestID)
		}
	}
	r.meter.OnVote(VoteEvent{
		Winner:     res.Winner.Model,
		Confidence: res.Winner.Confidence,
		Stats:      res.Stats,
		Err:        err,
	})
	return res, err
}

// BudgetStatus reports the rolling budget snapshot.
func (r *Router) BudgetStatus() BudgetStatus {
	return r.ledger.Status()
}

// CostByModel reports in-window spend per model, in dollars.
func (r *Router) CostByModel() map[ModelID]float64 {
	return r.ledger.CostByModel()
}

// Ledger exposes the cost ledger for operational tooling.
func (r *Router) Ledger() *CostLedger {
	return r.ledger
}
