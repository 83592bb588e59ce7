package council

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level router configuration.
type Config struct {
	Models  []ModelConfig `yaml:"models"`
	Cascade CascadeConfig `yaml:"cascade"`
	Budget  BudgetConfig  `yaml:"budget"`
	Store   StoreConfig   `yaml:"store"`
	Server  ServerConfig  `yaml:"server"`
}

// ModelConfig configures a single model head.
type ModelConfig struct {
	ID            ModelID  `yaml:"id"`
	Endpoint      string   `yaml:"endpoint"`
	Category      Category `yaml:"category"`
	CentsPerToken float64  `yaml:"cents_per_token"`
	APIKey        string   `yaml:"api_key"`
}

// CascadeConfig tunes the per-turn state machine. The greeting and stub
// phrase lists and the escalation threshold are deployment knobs, not
// constants; the defaults below match the values exercised by tests.
type CascadeConfig struct {
	FirstSpeaker        ModelID  `yaml:"first_speaker"`
	EscalationThreshold float64  `yaml:"escalation_threshold"`
	TopK                int      `yaml:"top_k"`
	VoteDeadlineMS      int      `yaml:"vote_deadline_ms"`
	Greetings           []string `yaml:"greetings"`
	StubMarkers         []string `yaml:"stub_markers"`
	MinAnswerLength     int      `yaml:"min_answer_length"`
	CannedGreeting      string   `yaml:"canned_greeting"`
	FallbackText        string   `yaml:"fallback_text"`
}

// VoteDeadline returns the voting deadline as a duration.
func (c CascadeConfig) VoteDeadline() time.Duration {
	return time.Duration(c.VoteDeadlineMS) * time.Millisecond
}

// BudgetConfig tunes the cost ledger. HardCapDollars of 0 disables the
// hard cap; the soft budget only downgrades routes.
type BudgetConfig struct {
	MaxDollars     float64 `yaml:"max_dollars"`
	HardCapDollars float64 `yaml:"hard_cap_dollars"`
	WindowHours    int     `yaml:"window_hours"`
}

// Window returns the rolling window as a duration.
func (c BudgetConfig) Window() time.Duration {
	return time.Duration(c.WindowHours) * time.Hour
}

// StoreConfig tunes the context digest store.
type StoreConfig struct {
	TTLHours      int `yaml:"ttl_hours"`
	ReadTimeoutMS int `yaml:"read_timeout_ms"`
}

// TTL returns the digest lifetime as a duration.
func (c StoreConfig) TTL() time.Duration {
	return time.Duration(c.TTLHours) * time.Hour
}

// ReadTimeout bounds how long a digest read may block.
func (c StoreConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutMS) * time.Millisecond
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr           string  `yaml:"addr"`
	RateLimitRPS   float64 `yaml:"rate_limit_rps"`
	RateLimitBurst int     `yaml:"rate_limit_burst"`
}

// Defaults mirroring the original deployment.
const (
	DefaultEscalationThreshold = 0.80
	DefaultTopK                = 2
	DefaultVoteDeadline        = 8 * time.Second
	DefaultWindowHours         = 24
	DefaultMaxBudgetDollars    = 5.0
	DefaultTTLHours            = 24
	DefaultReadTimeout         = 250 * time.Millisecond
	DefaultMinAnswerLength     = 12
)

// DefaultGreetings are prompts served by the greeting shortcut.
func DefaultGreetings() []string {
	return []string{
		"hi", "hello", "hey", "hi!", "hello!", "hey!",
		"good morning", "good afternoon", "good evening",
		"how are you", "how are you?", "whats up", "what's up",
		"sup", "yo", "greetings",
	}
}

// DefaultStubMarkers flag degenerate template output. A response
// containing any of these is forced to confidence 0.
func DefaultStubMarkers() []string {
	return []string{
		"template", "todo", "custom_function", "placeholder",
		"not implemented", "coming soon", "under construction",
		"example response", "mock response", "dummy text", "lorem ipsum",
		"def stub()", "fixme:", "notimplementederror",
	}
}

const (
	defaultCannedGreeting = "Hello! How can I help you today?"
	defaultFallbackText   = "I wasn't able to produce a useful answer for that. Could you rephrase?"
)

// LoadConfig reads and parses a YAML config file.
// Environment variables in the format ${VAR} are expanded before parsing.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("council: read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return Config{}, fmt.Errorf("council: parse config: %w", err)
	}

	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// ApplyDefaults fills unset fields with production defaults.
func (c *Config) ApplyDefaults() {
	if c.Cascade.EscalationThreshold == 0 {
		c.Cascade.EscalationThreshold = DefaultEscalationThreshold
	}
	if c.Cascade.TopK == 0 {
		c.Cascade.TopK = DefaultTopK
	}
	if c.Cascade.VoteDeadlineMS == 0 {
		c.Cascade.VoteDeadlineMS = int(DefaultVoteDeadline / time.Millisecond)
	}
	if len(c.Cascade.Greetings) == 0 {
		c.Cascade.Greetings = DefaultGreetings()
	}
	if len(c.Cascade.StubMarkers) == 0 {
		c.Cascade.StubMarkers = DefaultStubMarkers()
	}
	if c.Cascade.MinAnswerLength == 0 {
		c.Cascade.MinAnswerLength = DefaultMinAnswerLength
	}
	if c.Cascade.CannedGreeting == "" {
		c.Cascade.CannedGreeting = defaultCannedGreeting
	}
	if c.Cascade.FallbackText == "" {
		c.Cascade.FallbackText = defaultFallbackText
	}
	if c.Budget.WindowHours == 0 {
		c.Budget.WindowHours = DefaultWindowHours
	}
	if c.Budget.MaxDollars == 0 {
		c.Budget.MaxDollars = DefaultMaxBudgetDollars
	}
	if c.Store.TTLHours == 0 {
		c.Store.TTLHours = DefaultTTLHours
	}
	if c.Store.ReadTimeoutMS == 0 {
		c.Store.ReadTimeoutMS = int(DefaultReadTimeout / time.Millisecond)
	}
}

// Validate checks the config for required fields and consistency.
func (c Config) Validate() error {
	if len(c.Models) == 0 {
		return fmt.Errorf("council: config: at least one model is required")
	}

	ids := make(map[ModelID]bool, len(c.Models))
	for i, m := range c.Models {
		if m.ID == "" {
			return fmt.Errorf("council: config: models[%d]: id is required", i)
		}
		if ids[m.ID] {
			return fmt.Errorf("council: config: duplicate model id %q", m.ID)
		}
		ids[m.ID] = true

		switch m.Category {
		case CategoryMath, CategoryCode, CategorySafety, CategoryGeneral:
		case "":
			return fmt.Errorf("council: config: models[%d] (%s): category is required", i, m.ID)
		default:
			return fmt.Errorf("council: config: models[%d] (%s): invalid category %q", i, m.ID, m.Category)
		}
	}

	if c.Cascade.FirstSpeaker == "" {
		return fmt.Errorf("council: config: cascade.first_speaker is required")
	}
	if !ids[c.Cascade.FirstSpeaker] {
		return fmt.Errorf("council: config: cascade.first_speaker %q is not a configured model", c.Cascade.FirstSpeaker)
	}
	if t := c.Cascade.EscalationThreshold; t < 0 || t > 1 {
		return fmt.Errorf("council: config: cascade.escalation_threshold %v out of range [0,1]", t)
	}

	return nil
}

// CategoryOf returns the configured category of a model.
// Unknown models fall back to the general category.
func (c Config) CategoryOf(m ModelID) Category {
	for _, mc := range c.Models {
		if mc.ID == m {
			return mc.Category
		}
	}
	return CategoryGeneral
}

// DefaultRoute is used when a request carries no explicit route: the
// first speaker followed by every other configured head.
func (c Config) DefaultRoute() Route {
	route := Route{c.Cascade.FirstSpeaker}
	for _, m := range c.Models {
		if m.ID != c.Cascade.FirstSpeaker {
			route = append(route, m.ID)
		}
	}
	return route
}
