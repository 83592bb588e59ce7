package council

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

// turnPhase tags the explicit per-turn state machine. The bubble
// overwrite rule is a single comparison guarded by phaseEscalating,
// not an implicit reassignment.
type turnPhase int

const (
	phaseDraft turnPhase = iota
	phaseEscalating
	phaseFinal
)

// turnState carries the current best answer (the "bubble") and every
// head invoked so far, in invocation order, for billing at finalize.
type turnState struct {
	phase   turnPhase
	best    CandidateResponse
	invoked []CandidateResponse
}

// ShortcutModel is reported as model_used for turns answered by the
// greeting shortcut, which bypasses all model calls.
const ShortcutModel ModelID = "greeting-shortcut"

// Orchestrator owns the per-turn state machine: it guarantees a fast
// first answer from the mandatory first speaker and lets slower
// specialists overwrite it before the caller sees the final result.
type Orchestrator struct {
	cfg        Config
	engine     *Engine
	ledger     *CostLedger
	store      DigestStore
	classifier *Classifier
	meter      Meter
}

// NewOrchestrator wires the cascade together.
func NewOrchestrator(cfg Config, engine *Engine, ledger *CostLedger, store DigestStore, classifier *Classifier, meter Meter) *Orchestrator {
	if meter == nil {
		meter = noopMeter{}
	}
	return &Orchestrator{
		cfg:        cfg,
		engine:     engine,
		ledger:     ledger,
		store:      store,
		classifier: classifier,
		meter:      meter,
	}
}

// Turn runs one request through the cascade. Backend failures degrade
// to confidence-0 candidates; the only turn-fatal condition is the
// first speaker being unreachable.
func (o *Orchestrator) Turn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	start := time.Now()
	turnID := uuid.New().String()

	route := req.Route
	if len(route) == 0 {
		route = o.cfg.DefaultRoute()
	}

	// GreetingShortcut: terminal, bypasses all model calls. Exists
	// purely for latency.
	if o.classifier.IsGreetingPrompt(req.Prompt) {
		res := TurnResult{
			TurnID:     turnID,
			SessionID:  req.SessionID,
			Text:       o.cfg.Cascade.CannedGreeting,
			ModelUsed:  ShortcutModel,
			Confidence: 1.0,
			Latency:    LatencyBreakdown{Total: time.Since(start)},
		}
		o.meter.OnTurn(TurnEvent{
			TurnID:     turnID,
			SessionID:  req.SessionID,
			Model:      ShortcutModel,
			Shortcut:   true,
			Confidence: 1.0,
			Duration:   res.Latency.Total,
		})
		return res, nil
	}

	// Session context, read up front. A miss or slow read degrades to
	// empty context.
	digest := o.readDigest(ctx, req.SessionID)

	// FirstSpeaker: mandatory, synchronous, on the critical path. This
	// is the single point the design cannot recover from.
	fsStart := time.Now()
	draft := o.engine.call(ctx, o.cfg.Cascade.FirstSpeaker, req.Prompt)
	fsLatency := time.Since(fsStart)
	if draft.Err != nil {
		return TurnResult{}, &TurnError{
			Err:       ErrFirstSpeakerDown,
			SessionID: req.SessionID,
			Model:     o.cfg.Cascade.FirstSpeaker,
			Phase:     "first-speaker",
		}
	}
	// engine.call has already run the greeting filter: a templated
	// draft carries confidence 0 here no matter what the head reported.

	state := turnState{phase: phaseDraft, best: draft, invoked: []CandidateResponse{draft}}

	// ConfidenceGate: escalate only when the draft is weak and the
	// route actually carries a specialist for the detected intent.
	intent := DetectIntent(req.Prompt)
	specialists := o.specialistsFor(route, intent)

	var voteLatency time.Duration
	escalated := false
	if draft.Confidence < o.cfg.Cascade.EscalationThreshold && len(specialists) > 0 {
		state.phase = phaseEscalating

		enriched := buildSpecialistPrompt(digest, draft.Text, req.Prompt)
		voteStart := time.Now()
		vote, err := o.engine.Vote(ctx, enriched, specialists, o.cfg.Cascade.TopK, o.cfg.Cascade.VoteDeadline())
		voteLatency = time.Since(voteStart)

		state.invoked = append(state.invoked, vote.Invoked...)
		o.meter.OnVote(VoteEvent{
			Winner:     vote.Winner.Model,
			Confidence: vote.Winner.Confidence,
			Stats:      vote.Stats,
			Err:        err,
		})

		// OverwriteDecision: the bubble is replaced only by a strictly
		// better specialist. A failed vote leaves the draft standing.
		if err == nil && vote.Winner.Confidence > state.best.Confidence {
			state.best = vote.Winner
			escalated = true
		}
	}

	// EscapeCheck: the chosen text must not still match the stub
	// filter. When it does, surface the generic fallback and report.
	text := state.best.Text
	confidence := state.best.Confidence
	stubEscaped := false
	if cls := o.classifier.ClassifyResponse(text); cls.IsStub() {
		stubEscaped = true
		text = o.cfg.Cascade.FallbackText
		confidence = 0
		o.meter.OnStub(StubEvent{
			TurnID:    turnID,
			SessionID: req.SessionID,
			Model:     state.best.Model,
			Marker:    cls.Marker,
		})
	}

	state.phase = phaseFinal

	// Finalize: persist the digest (failures swallowed), then debit
	// every invoked head exactly once, in invocation order. Cancelled
	// calls are billed with whatever partial token count is known.
	o.writeDigest(ctx, req.SessionID, req.Prompt, text)

	costCents := 0.0
	for _, c := range state.invoked {
		if c.TokensUsed <= 0 {
			continue
		}
		costCents += o.ledger.Debit(c.Model, c.TokensUsed, turnID)
	}

	res := TurnResult{
		TurnID:      turnID,
		SessionID:   req.SessionID,
		Text:        text,
		ModelUsed:   state.best.Model,
		Confidence:  confidence,
		CostCents:   costCents,
		Escalated:   escalated,
		StubEscaped: stubEscaped,
		Latency: LatencyBreakdown{
			FirstSpeaker: fsLatency,
			Voting:       voteLatency,
			Total:        time.Since(start),
		},
	}
	o.meter.OnTurn(TurnEvent{
		TurnID:     turnID,
		SessionID:  req.SessionID,
		Model:      res.ModelUsed,
		Escalated:  escalated,
		Confidence: confidence,
		CostCents:  costCents,
		Duration:   res.Latency.Total,
	})
	return res, nil
}

// specialistsFor returns the specialist subset of the route: everything
// but the first speaker. Returns nil when the detected intent has no
// matching specialist, which closes the confidence gate.
func (o *Orchestrator) specialistsFor(route Route, intent Category) []ModelID {
	var out []ModelID
	hasIntent := false
	for _, m := range route {
		if m == o.cfg.Cascade.FirstSpeaker {
			continue
		}
		out = append(out, m)
		if o.cfg.CategoryOf(m) == intent {
			hasIntent = true
		}
	}
	if !hasIntent && intent != CategoryGeneral {
		return nil
	}
	return out
}

// buildSpecialistPrompt enriches the user prompt with the session
// digest and the first speaker's tentative answer, so specialists
// refine rather than start over.
func buildSpecialistPrompt(digest, draft, prompt string) string {
	var b strings.Builder
	if digest != "" {
		b.WriteString(digest)
		b.WriteString("\n\n")
	}
	b.WriteString("DRAFT_FROM_AGENT0: ")
	b.WriteString(draft)
	b.WriteString("\n\nUSER: ")
	b.WriteString(prompt)
	return b.String()
}

// readDigest fetches the session digest under a bounded timeout.
// Misses, errors and timeouts all degrade to empty context.
func (o *Orchestrator) readDigest(ctx context.Context, sessionID string) string {
	if o.store == nil || sessionID == "" {
		return ""
	}
	rctx, cancel := context.WithTimeout(ctx, o.storeTimeout())
	defer cancel()

	text, found, err := o.store.ReadDigest(rctx, sessionID)
	if err != nil || !found {
		return ""
	}
	return text
}

// writeDigest records the turn digest. Write failures are swallowed;
// they never fail the turn.
func (o *Orchestrator) writeDigest(ctx context.Context, sessionID, prompt, answer string) {
	if o.store == nil || sessionID == "" {
		return
	}
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.storeTimeout())
	defer cancel()

	_ = o.store.WriteDigest(wctx, sessionID, SummarizeDigest(prompt, answer))
}

func (o *Orchestrator) storeTimeout() time.Duration {
	if t := o.cfg.Store.ReadTimeout(); t > 0 {
		return t
	}
	return DefaultReadTimeout
}
