package council

import "time"

// ModelID identifies a configured model head.
type ModelID string

// Category groups model heads by the kind of prompt they serve.
// Route downgrades must stay within the original category.
type Category string

const (
	CategoryMath    Category = "math"
	CategoryCode    Category = "code"
	CategorySafety  Category = "safety"
	CategoryGeneral Category = "general"
)

// Route is an ordered list of model heads a caller wants to try.
// The entry matching the configured first speaker is consulted
// synchronously; the rest form the specialist pool for escalation.
type Route []ModelID

// Contains reports whether the route includes the given model.
func (r Route) Contains(m ModelID) bool {
	for _, id := range r {
		if id == m {
			return true
		}
	}
	return false
}

// TurnRequest is one inbound user turn.
type TurnRequest struct {
	SessionID string `json:"session_id"`
	Prompt    string `json:"prompt"`
	Route     Route  `json:"route,omitempty"`
}

// TurnResult is the finalized outcome of a turn. Once returned it is
// immutable; the only in-flight mutation is the bubble overwrite during
// escalation, which happens before finalization.
type TurnResult struct {
	TurnID      string           `json:"turn_id"`
	SessionID   string           `json:"session_id"`
	Text        string           `json:"text"`
	ModelUsed   ModelID          `json:"model_used"`
	Confidence  float64          `json:"confidence"`
	CostCents   float64          `json:"cost_cents"`
	Escalated   bool             `json:"escalated"`
	StubEscaped bool             `json:"stub_escaped,omitempty"`
	Latency     LatencyBreakdown `json:"latency"`
}

// LatencyBreakdown splits turn latency by phase.
type LatencyBreakdown struct {
	FirstSpeaker time.Duration `json:"first_speaker"`
	Voting       time.Duration `json:"voting"`
	Total        time.Duration `json:"total"`
}

// CandidateResponse is one head's answer produced during a vote or by
// the first-speaker call. Candidates order by confidence descending,
// ties broken by lower response time.
type CandidateResponse struct {
	Model        ModelID       `json:"model"`
	Text         string        `json:"text"`
	LogProb      float64       `json:"log_probability"`
	QualityScore float64       `json:"quality_score"`
	Confidence   float64       `json:"confidence"`
	ResponseTime time.Duration `json:"response_time"`
	TokensUsed   int           `json:"tokens_used"`

	// Err is set when the head failed or was cancelled. A failed
	// candidate always carries confidence 0 and never wins.
	Err error `json:"-"`
}

// Better reports whether c should rank ahead of other.
func (c CandidateResponse) Better(other CandidateResponse) bool {
	if c.Confidence != other.Confidence {
		return c.Confidence > other.Confidence
	}
	return c.ResponseTime < other.ResponseTime
}

// VoteResult is the outcome of one voting round.
type VoteResult struct {
	Winner CandidateResponse   `json:"winner"`
	Ranked []CandidateResponse `json:"ranked"`
	Stats  VotingStats         `json:"voting_stats"`

	// Invoked lists every head that was dispatched, in dispatch order,
	// including failures. The ledger debits from this list.
	Invoked []CandidateResponse `json:"-"`
}

// VotingStats summarizes a voting round.
type VotingStats struct {
	TotalHeads          int           `json:"total_heads"`
	SuccessfulResponses int           `json:"successful_responses"`
	VotingTime          time.Duration `json:"voting_time"`
	TopK                int           `json:"top_k"`
}
