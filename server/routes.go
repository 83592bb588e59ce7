package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/democratizeAI/council"
)

func registerRoutes(engine *gin.Engine, router *council.Router) {
	engine.POST("/orchestrate", handleOrchestrate(router))
	engine.POST("/vote", handleVote(router))
	engine.GET("/budget", handleBudget(router))
	engine.GET("/health", handleHealth())
}

type orchestrateRequest struct {
	Prompt    string   `json:"prompt" binding:"required"`
	SessionID string   `json:"session_id"`
	Route     []string `json:"route"`
}

type orchestrateResponse struct {
	Text        string  `json:"text"`
	ModelUsed   string  `json:"model_used"`
	Confidence  float64 `json:"confidence"`
	LatencyMS   int64   `json:"latency_ms"`
	CostCents   float64 `json:"cost_cents"`
	Escalated   bool    `json:"escalated"`
	SessionID   string  `json:"session_id,omitempty"`
	StubEscaped bool    `json:"stub_escaped,omitempty"`
}

func handleOrchestrate(router *council.Router) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req orchestrateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "prompt is required"})
			return
		}

		route := make(council.Route, len(req.Route))
		for i, m := range req.Route {
			route[i] = council.ModelID(m)
		}

		res, err := router.Turn(c.Request.Context(), council.TurnRequest{
			SessionID: req.SessionID,
			Prompt:    req.Prompt,
			Route:     route,
		})
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, orchestrateResponse{
			Text:        res.Text,
			ModelUsed:   string(res.ModelUsed),
			Confidence:  res.Confidence,
			LatencyMS:   res.Latency.Total.Milliseconds(),
			CostCents:   res.CostCents,
			Escalated:   res.Escalated,
			SessionID:   res.SessionID,
			StubEscaped: res.StubEscaped,
		})
	}
}

type voteRequest struct {
	Prompt     string   `json:"prompt" binding:"required"`
	Candidates []string `json:"candidates" binding:"required"`
	TopK       int      `json:"top_k"`
}

type candidateJSON struct {
	Model          string  `json:"model"`
	Confidence     float64 `json:"confidence"`
	LogProbability float64 `json:"log_probability"`
	QualityScore   float64 `json:"quality_score"`
	ResponseTimeMS int64   `json:"response_time_ms"`
}

type voteResponse struct {
	Text          string          `json:"text"`
	Winner        candidateJSON   `json:"winner"`
	AllCandidates []candidateJSON `json:"all_candidates"`
	VotingStats   votingStatsJSON `json:"voting_stats"`
}

type votingStatsJSON struct {
	TotalHeads          int   `json:"total_heads"`
	SuccessfulResponses int   `json:"successful_responses"`
	VotingTimeMS        int64 `json:"voting_time_ms"`
	TopK                int   `json:"top_k"`
}

func handleVote(router *council.Router) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req voteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "prompt and candidates are required"})
			return
		}

		candidates := make([]council.ModelID, len(req.Candidates))
		for i, m := range req.Candidates {
			candidates[i] = council.ModelID(m)
		}

		res, err := router.Vote(c.Request.Context(), req.Prompt, candidates, req.TopK)
		if err != nil {
			c.JSON(statusFor(err), gin.H{"error": err.Error()})
			return
		}

		all := make([]candidateJSON, len(res.Ranked))
		for i, cand := range res.Ranked {
			all[i] = toCandidateJSON(cand)
		}

		c.JSON(http.StatusOK, voteResponse{
			Text:          res.Winner.Text,
			Winner:        toCandidateJSON(res.Winner),
			AllCandidates: all,
			VotingStats: votingStatsJSON{
				TotalHeads:          res.Stats.TotalHeads,
				SuccessfulResponses: res.Stats.SuccessfulResponses,
				VotingTimeMS:        res.Stats.VotingTime.Milliseconds(),
				TopK:                res.Stats.TopK,
			},
		})
	}
}

func toCandidateJSON(c council.CandidateResponse) candidateJSON {
	return candidateJSON{
		Model:          string(c.Model),
		Confidence:     c.Confidence,
		LogProbability: c.LogProb,
		QualityScore:   c.QualityScore,
		ResponseTimeMS: c.ResponseTime.Milliseconds(),
	}
}

func handleBudget(router *council.Router) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"budget_status": router.BudgetStatus(),
			"cost_by_model": router.CostByModel(),
		})
	}
}

func handleHealth() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// statusFor maps the error taxonomy to HTTP statuses: hard voting
// failure is a 500, budget hard cap a 503, first-speaker loss a 502.
func statusFor(err error) int {
	switch {
	case errors.Is(err, council.ErrNoCandidates):
		return http.StatusInternalServerError
	case errors.Is(err, council.ErrBudgetHardCap):
		return http.StatusServiceUnavailable
	case errors.Is(err, council.ErrFirstSpeakerDown):
		return http.StatusBadGateway
	case errors.Is(err, council.ErrInvalidRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
