package council

import (
	"regexp"
	"strconv"
	"strings"
)

// ResponseClass is the verdict of the greeting/template filter. It is
// produced by a pure function shared by the cascade's greeting filter
// and its final escape check, so the two call sites cannot drift.
type ResponseClass struct {
	IsGreeting bool
	IsTemplate bool
	Marker     string
}

// IsStub reports whether the response is a degenerate answer that must
// never win a comparison.
func (c ResponseClass) IsStub() bool {
	return c.IsGreeting || c.IsTemplate
}

// Classifier detects degenerate responses and greeting prompts using
// the configured phrase lists.
type Classifier struct {
	greetings  map[string]bool
	markerRE   *regexp.Regexp
	rawMarkers []string
	minLength  int
}

var greetingOpenRE = regexp.MustCompile(`^(hi|hello|hey|greetings|yo|sup)\b[!,. ]*`)

// NewClassifier builds a classifier from cascade configuration.
func NewClassifier(cfg CascadeConfig) *Classifier {
	c := &Classifier{
		greetings: make(map[string]bool, len(cfg.Greetings)),
		minLength: cfg.MinAnswerLength,
	}
	for _, g := range cfg.Greetings {
		c.greetings[strings.ToLower(g)] = true
	}

	// Word-only markers match on word boundaries so "todo" does not
	// flag "today"; markers with punctuation use plain substring match.
	var wordMarkers []string
	for _, m := range cfg.StubMarkers {
		m = strings.ToLower(m)
		if isWordOnly(m) {
			wordMarkers = append(wordMarkers, regexp.QuoteMeta(m))
		} else {
			c.rawMarkers = append(c.rawMarkers, m)
		}
	}
	if len(wordMarkers) > 0 {
		c.markerRE = regexp.MustCompile(`\b(` + strings.Join(wordMarkers, "|") + `)\b`)
	}
	return c
}

func isWordOnly(s string) bool {
	for _, r := range s {
		if !(r == ' ' || r == '_' || r >= 'a' && r <= 'z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

// ClassifyResponse inspects a response for greeting or template
// degeneration. Pure and idempotent: classifying the same text twice
// yields the same verdict.
func (c *Classifier) ClassifyResponse(text string) ResponseClass {
	lower := strings.ToLower(strings.TrimSpace(text))

	if c.markerRE != nil {
		if m := c.markerRE.FindString(lower); m != "" {
			return ResponseClass{IsTemplate: true, Marker: m}
		}
	}
	for _, m := range c.rawMarkers {
		if strings.Contains(lower, m) {
			return ResponseClass{IsTemplate: true, Marker: m}
		}
	}

	if lower == "" {
		return ResponseClass{IsTemplate: true, Marker: "empty"}
	}
	if c.greetings[lower] {
		return ResponseClass{IsGreeting: true}
	}
	if greetingOpenRE.MatchString(lower) && len(lower) < c.minLength {
		return ResponseClass{IsGreeting: true}
	}
	return ResponseClass{}
}

// IsGreetingPrompt reports whether a prompt should take the greeting
// shortcut. Matches the configured phrase list plus very short inputs.
func (c *Classifier) IsGreetingPrompt(prompt string) bool {
	p := strings.ToLower(strings.TrimSpace(prompt))
	if p == "" {
		return false
	}
	return c.greetings[p] || len(p) <= 3 && greetingOpenRE.MatchString(p)
}

var mathExprRE = regexp.MustCompile(`\b\d+\s*[-+*/^%]\s*\d+\b`)

// DetectIntent categorizes a prompt with keyword heuristics. Drives
// both the confidence gate (which specialists can help) and the
// category-preserving route downgrade.
func DetectIntent(prompt string) Category {
	p := strings.ToLower(prompt)

	if mathExprRE.MatchString(p) ||
		containsAny(p, "calculate", "equation", "integral", "derivative", "sqrt", "arithmetic", "math") {
		return CategoryMath
	}

	if containsAny(p, "code", "function", "python", "javascript", "compile",
		"def ", "import ", "class ", "bug", "refactor", "algorithm") {
		return CategoryCode
	}

	if containsAny(p, "is it safe", "dangerous", "harmful", "toxic",
		"poison", "weapon", "explosive", "self-harm") {
		return CategorySafety
	}

	return CategoryGeneral
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

var (
	confRE      = regexp.MustCompile(`CONF=([0-1]?\.\d+)`)
	confStripRE = regexp.MustCompile(`\s*CONF=[0-1]?\.\d+`)
	flagRE      = regexp.MustCompile(`\s*FLAG_[A-Z_]+`)
)

// ExtractConfidence parses a self-reported CONF=0.xx marker from a
// head's raw output. Returns ok=false when no marker is present.
func ExtractConfidence(text string) (float64, bool) {
	m := confRE.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v, true
}

// CleanResponse strips CONF and FLAG markers from a head's raw output
// before it is shown to the user.
func CleanResponse(text string) string {
	cleaned := confStripRE.ReplaceAllString(text, "")
	cleaned = flagRE.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}
