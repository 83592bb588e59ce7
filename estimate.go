package council

// EstimateTokens provides a rough token count estimate for a prompt or
// partial completion. Used as the billable fallback when a cancelled
// call did not report usage. Approximation: ~4 chars per token plus a
// small request overhead.
func EstimateTokens(text string) int {
	total := len(text) / 4
	total += 3
	return total
}
