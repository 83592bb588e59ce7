package meter

import "github.com/democratizeAI/council"

// NoopMeter is a meter that does nothing.
type NoopMeter struct{}

var _ council.Meter = (*NoopMeter)(nil)

func (NoopMeter) OnTurn(council.TurnEvent)     {}
func (NoopMeter) OnVote(council.VoteEvent)     {}
func (NoopMeter) OnBudget(council.BudgetEvent) {}
func (NoopMeter) OnStub(council.StubEvent)     {}
