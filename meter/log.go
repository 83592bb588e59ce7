// Package meter provides Meter implementations for the council router.
package meter

import (
	"log/slog"

	"github.com/democratizeAI/council"
)

// LogMeter logs routing events using slog.
type LogMeter struct {
	Logger *slog.Logger
}

var _ council.Meter = (*LogMeter)(nil)

// NewLogMeter creates a LogMeter with the given logger.
// If logger is nil, slog.Default() is used.
func NewLogMeter(logger *slog.Logger) *LogMeter {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMeter{Logger: logger}
}

func (m *LogMeter) OnTurn(e council.TurnEvent) {
	m.Logger.Info("turn",
		"turn_id", e.TurnID,
		"session", e.SessionID,
		"model", e.Model,
		"escalated", e.Escalated,
		"shortcut", e.Shortcut,
		"confidence", e.Confidence,
		"cost_cents", e.CostCents,
		"duration_ms", e.Duration.Milliseconds(),
	)
}

func (m *LogMeter) OnVote(e council.VoteEvent) {
	if e.Err != nil {
		m.Logger.Warn("vote_failed",
			"heads", e.Stats.TotalHeads,
			"successful", e.Stats.SuccessfulResponses,
			"voting_ms", e.Stats.VotingTime.Milliseconds(),
			"error", e.Err,
		)
		return
	}
	m.Logger.Info("vote",
		"winner", e.Winner,
		"confidence", e.Confidence,
		"heads", e.Stats.TotalHeads,
		"successful", e.Stats.SuccessfulResponses,
		"voting_ms", e.Stats.VotingTime.Milliseconds(),
	)
}

func (m *LogMeter) OnBudget(e council.BudgetEvent) {
	m.Logger.Warn("budget_downgrade",
		"original", e.Original,
		"downgraded", e.Downgraded,
		"rolling_dollars", e.Status.RollingCostDollars,
		"utilization_pct", e.Status.UtilizationPercent,
	)
}

func (m *LogMeter) OnStub(e council.StubEvent) {
	m.Logger.Error("stub_escaped",
		"turn_id", e.TurnID,
		"session", e.SessionID,
		"model", e.Model,
		"marker", e.Marker,
	)
}
