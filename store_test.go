package council_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/democratizeAI/council"
)

func TestSummarizeDigest(t *testing.T) {
	got := council.SummarizeDigest("My favorite color is turquoise.", "Noted, I will remember that.")
	assert.Equal(t, "USER: My favorite color is turquoise. ANSWER: Noted, I will remember that.", got)
}

func TestSummarizeDigest_WordBudget(t *testing.T) {
	long := strings.Repeat("elaboration ", 100)
	got := council.SummarizeDigest("My favorite color is turquoise.", long)

	assert.Len(t, strings.Fields(got), 40)
	// The prompt sits at the front, so user-stated facts survive the cut.
	assert.Contains(t, got, "turquoise")
}
