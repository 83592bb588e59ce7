package council

import "time"

// Meter observes routing events for monitoring/logging. The core never
// logs directly; implementations decide what to do with events.
type Meter interface {
	// OnTurn is called once per finalized turn.
	OnTurn(event TurnEvent)

	// OnVote is called after each voting round.
	OnVote(event VoteEvent)

	// OnBudget is called when the governor rewrites a route.
	OnBudget(event BudgetEvent)

	// OnStub is called when a stub answer escapes filtering. These are
	// the events operators alert on.
	OnStub(event StubEvent)
}

// TurnEvent describes a finalized turn.
type TurnEvent struct {
	TurnID    string
	SessionID string
	Model     ModelID
	Escalated bool
	Shortcut  bool

	Confidence float64
	CostCents  float64
	Duration   time.Duration
}

// VoteEvent describes the outcome of a voting round.
type VoteEvent struct {
	Winner     ModelID
	Confidence float64
	Stats      VotingStats
	Err        error
}

// BudgetEvent describes a route downgrade.
type BudgetEvent struct {
	Original   Route
	Downgraded Route
	Status     BudgetStatus
}

// StubEvent describes a degenerate answer caught by the escape check.
type StubEvent struct {
	TurnID    string
	SessionID string
	Model     ModelID
	Marker    string
}

// noopMeter is the default meter.
type noopMeter struct{}

func (noopMeter) OnTurn(TurnEvent)     {}
func (noopMeter) OnVote(VoteEvent)     {}
func (noopMeter) OnBudget(BudgetEvent) {}
func (noopMeter) OnStub(StubEvent)     {}
