package council_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/democratizeAI/council"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "council.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("TEST_COUNCIL_KEY", "sk-test-123")

	path := writeConfigFile(t, `
models:
  - id: agent0_tiny
    endpoint: http://localhost:8000/v1
    category: general
    cents_per_token: 0.001
    api_key: ${TEST_COUNCIL_KEY}
  - id: math_head
    endpoint: http://localhost:8001/v1
    category: math
    cents_per_token: 0.01
cascade:
  first_speaker: agent0_tiny
  escalation_threshold: 0.75
budget:
  max_dollars: 2.5
  hard_cap_dollars: 10
server:
  addr: ":9090"
`)

	cfg, err := council.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "sk-test-123", cfg.Models[0].APIKey)
	assert.Equal(t, council.ModelID("agent0_tiny"), cfg.Cascade.FirstSpeaker)
	assert.Equal(t, 0.75, cfg.Cascade.EscalationThreshold)
	assert.Equal(t, 2.5, cfg.Budget.MaxDollars)
	assert.Equal(t, ":9090", cfg.Server.Addr)

	// Unset fields pick up defaults.
	assert.Equal(t, council.DefaultTopK, cfg.Cascade.TopK)
	assert.Equal(t, council.DefaultVoteDeadline, cfg.Cascade.VoteDeadline())
	assert.Equal(t, council.DefaultWindowHours, cfg.Budget.WindowHours)
	assert.Equal(t, 24*time.Hour, cfg.Store.TTL())
	assert.NotEmpty(t, cfg.Cascade.Greetings)
	assert.NotEmpty(t, cfg.Cascade.StubMarkers)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	_, err := council.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	base := func() council.Config {
		cfg := council.Config{
			Models: []council.ModelConfig{
				{ID: "agent0_tiny", Category: council.CategoryGeneral},
			},
			Cascade: council.CascadeConfig{FirstSpeaker: "agent0_tiny"},
		}
		cfg.ApplyDefaults()
		return cfg
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("no models", func(t *testing.T) {
		cfg := base()
		cfg.Models = nil
		assert.Error(t, cfg.Validate())
	})

	t.Run("duplicate model id", func(t *testing.T) {
		cfg := base()
		cfg.Models = append(cfg.Models, cfg.Models[0])
		assert.Error(t, cfg.Validate())
	})

	t.Run("invalid category", func(t *testing.T) {
		cfg := base()
		cfg.Models[0].Category = "poetry"
		assert.Error(t, cfg.Validate())
	})

	t.Run("unknown first speaker", func(t *testing.T) {
		cfg := base()
		cfg.Cascade.FirstSpeaker = "ghost"
		assert.Error(t, cfg.Validate())
	})

	t.Run("threshold out of range", func(t *testing.T) {
		cfg := base()
		cfg.Cascade.EscalationThreshold = 1.5
		assert.Error(t, cfg.Validate())
	})
}

func TestDefaultRoute(t *testing.T) {
	cfg := council.Config{
		Models: []council.ModelConfig{
			{ID: "math_head", Category: council.CategoryMath},
			{ID: "agent0_tiny", Category: council.CategoryGeneral},
			{ID: "helper_head", Category: council.CategoryGeneral},
		},
		Cascade: council.CascadeConfig{FirstSpeaker: "agent0_tiny"},
	}

	route := cfg.DefaultRoute()
	require.NotEmpty(t, route)
	assert.Equal(t, council.ModelID("agent0_tiny"), route[0], "first speaker leads the default route")
	assert.Equal(t, council.Route{"agent0_tiny", "math_head", "helper_head"}, route)
}

func TestCategoryOf(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, council.CategoryMath, cfg.CategoryOf("math_head"))
	assert.Equal(t, council.CategoryGeneral, cfg.CategoryOf("unknown"))
}
