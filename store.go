package council

import (
	"context"
	"strings"
)

// DigestStore persists a compact digest of each finalized turn, keyed
// by session. Entries expire by TTL; a missing digest degrades to
// empty context, never to a turn failure.
type DigestStore interface {
	// WriteDigest records the digest for a session, replacing any
	// previous one (last writer wins).
	WriteDigest(ctx context.Context, sessionID, text string) error

	// ReadDigest returns the current digest for a session. found is
	// false when the session has no live digest.
	ReadDigest(ctx context.Context, sessionID string) (text string, found bool, err error)
}

// digestWordBudget caps digest size. Roughly the 40-token summaries the
// specialists are primed with.
const digestWordBudget = 40

// SummarizeDigest reduces a turn to a short digest: the user prompt and
// the surfaced answer, truncated at a word budget. Keeping the prompt
// is what lets a later turn recall facts the user stated rather than
// only facts the model repeated.
func SummarizeDigest(prompt, answer string) string {
	text := "USER: " + strings.TrimSpace(prompt) + " ANSWER: " + strings.TrimSpace(answer)
	words := strings.Fields(text)
	if len(words) <= digestWordBudget {
		return strings.Join(words, " ")
	}
	return strings.Join(words[:digestWordBudget], " ")
}
