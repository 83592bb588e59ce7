package council

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"
)

const defaultMaxTokens = 256

// Engine is the confidence-weighted voting engine. It fans a prompt out
// to candidate heads in parallel and picks a winner under a latency
// ceiling. Stragglers past the deadline are cut off, so end-to-end
// voting latency tracks the fastest heads, not the slowest.
type Engine struct {
	backends   *BackendSet
	classifier *Classifier
	deadline   time.Duration
	maxTokens  int
}

// NewEngine creates a voting engine. deadline bounds each round when
// the caller does not pass one explicitly.
func NewEngine(backends *BackendSet, classifier *Classifier, deadline time.Duration) *Engine {
	if deadline <= 0 {
		deadline = DefaultVoteDeadline
	}
	return &Engine{
		backends:   backends,
		classifier: classifier,
		deadline:   deadline,
		maxTokens:  defaultMaxTokens,
	}
}

// Vote dispatches one backend call per candidate concurrently, each
// bounded by the deadline, and returns the ranked outcome. A candidate
// that fails or times out is recorded with confidence 0 and excluded
// from ranking; it is not retried. ErrNoCandidates is returned only
// when every candidate failed or was filtered out.
func (e *Engine) Vote(ctx context.Context, prompt string, candidates []ModelID, topK int, deadline time.Duration) (VoteResult, error) {
	start := time.Now()
	if topK <= 0 {
		topK = 1
	}
	if deadline <= 0 {
		deadline = e.deadline
	}
	stats := VotingStats{TotalHeads: len(candidates), TopK: topK}
	if len(candidates) == 0 {
		stats.VotingTime = time.Since(start)
		return VoteResult{Stats: stats}, ErrNoCandidates
	}

	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	// Wait-all with a shared deadline: every sub-call is independently
	// cancelled by ctx, so joining all of them cannot outlive it.
	results := make([]CandidateResponse, len(candidates))
	var wg sync.WaitGroup
	for i, model := range candidates {
		wg.Add(1)
		go func(i int, model ModelID) {
			defer wg.Done()
			results[i] = e.call(ctx, model, prompt)
		}(i, model)
	}
	wg.Wait()

	ranked := make([]CandidateResponse, 0, len(results))
	for _, c := range results {
		if c.Err != nil {
			continue
		}
		stats.SuccessfulResponses++
		if c.Confidence <= 0 {
			continue
		}
		ranked = append(ranked, c)
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Better(ranked[j]) })
	if len(ranked) > topK {
		ranked = ranked[:topK]
	}

	stats.VotingTime = time.Since(start)
	if len(ranked) == 0 {
		return VoteResult{Stats: stats, Invoked: results}, ErrNoCandidates
	}
	return VoteResult{Winner: ranked[0], Ranked: ranked, Stats: stats, Invoked: results}, nil
}

// call runs a single head and scores its response. Failures come back
// as confidence-0 candidates carrying whatever token usage is known,
// so cancelled-but-billable calls can still be debited.
func (e *Engine) call(ctx context.Context, model ModelID, prompt string) CandidateResponse {
	start := time.Now()

	b, ok := e.backends.For(model)
	if !ok {
		return CandidateResponse{Model: model, Err: ErrModelNotFound}
	}

	resp, err := b.Generate(ctx, GenRequest{Model: model, Prompt: prompt, MaxTokens: e.maxTokens})
	elapsed := time.Since(start)

	if err != nil {
		tokens := resp.TokensUsed
		if tokens == 0 && resp.Text != "" {
			tokens = EstimateTokens(resp.Text)
		}
		return CandidateResponse{
			Model:        model,
			Err:          err,
			ResponseTime: elapsed,
			TokensUsed:   tokens,
		}
	}

	return e.score(model, resp, elapsed)
}

// score normalizes a raw response into a ranked candidate. Confidence
// is the head's self-reported CONF marker when present, otherwise the
// quality heuristic; degenerate responses are forced to 0 regardless.
func (e *Engine) score(model ModelID, resp GenResponse, elapsed time.Duration) CandidateResponse {
	text := CleanResponse(resp.Text)
	quality := scoreQuality(text)

	conf, ok := ExtractConfidence(resp.Text)
	if !ok {
		conf = quality
	}
	if e.classifier.ClassifyResponse(text).IsStub() {
		conf = 0
	}

	tokens := resp.TokensUsed
	if tokens == 0 {
		tokens = EstimateTokens(text)
	}

	return CandidateResponse{
		Model:        model,
		Text:         text,
		QualityScore: quality,
		LogProb:      math.Log(math.Max(quality, 1e-9)),
		Confidence:   conf,
		ResponseTime: elapsed,
		TokensUsed:   tokens,
	}
}

// scoreQuality is a cheap length-based heuristic standing in for a real
// log-probability when the head does not self-report confidence.
func scoreQuality(text string) float64 {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	if words < 4 {
		return 0.3
	}
	score := 0.5
	bonus := float64(words) * 0.005
	if bonus > 0.2 {
		bonus = 0.2
	}
	score += bonus
	if words > 300 {
		// runaway generation penalty
		score -= 0.1
	}
	return score
}
