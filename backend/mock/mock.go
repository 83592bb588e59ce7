// Package mock provides a scripted council Backend for testing.
package mock

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/democratizeAI/council"
)

// Backend is a mock model backend for testing. Responses can be
// scripted per model head.
type Backend struct {
	name      string
	models    []council.ModelID
	responses map[council.ModelID]string
	defText   string
	latency   time.Duration
	failAfter int
	callCount atomic.Int64
	staticErr error
	tokens    int
	genFunc   func(council.GenRequest) (council.GenResponse, error)
}

var _ council.Backend = (*Backend)(nil)

// Option configures a mock Backend.
type Option func(*Backend)

// New creates a mock backend with the given options.
func New(opts ...Option) *Backend {
	b := &Backend{
		name:      "mock",
		models:    []council.ModelID{"mock-model"},
		responses: make(map[council.ModelID]string),
		defText:   "Hello from mock backend, here is a complete answer.",
		tokens:    30,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// WithName sets the backend name.
func WithName(name string) Option {
	return func(b *Backend) { b.name = name }
}

// WithModels sets the heads this backend serves.
func WithModels(models ...council.ModelID) Option {
	return func(b *Backend) { b.models = models }
}

// WithResponse scripts the response text for one head.
func WithResponse(model council.ModelID, text string) Option {
	return func(b *Backend) { b.responses[model] = text }
}

// WithDefaultText sets the text returned for unscripted heads.
func WithDefaultText(text string) Option {
	return func(b *Backend) { b.defText = text }
}

// WithLatency adds simulated latency to each call.
func WithLatency(d time.Duration) Option {
	return func(b *Backend) { b.latency = d }
}

// WithFailAfter makes the backend fail after N successful calls.
func WithFailAfter(n int) Option {
	return func(b *Backend) { b.failAfter = n }
}

// WithError makes the backend always return this error.
func WithError(err error) Option {
	return func(b *Backend) { b.staticErr = err }
}

// WithTokens sets the token usage reported by the mock.
func WithTokens(n int) Option {
	return func(b *Backend) { b.tokens = n }
}

// WithGenerateFunc sets a custom generate function.
func WithGenerateFunc(fn func(council.GenRequest) (council.GenResponse, error)) Option {
	return func(b *Backend) { b.genFunc = fn }
}

func (b *Backend) Name() string { return b.name }

func (b *Backend) ServesModel(model council.ModelID) bool {
	for _, m := range b.models {
		if m == model {
			return true
		}
	}
	return false
}

// Calls returns how many times Generate ran.
func (b *Backend) Calls() int {
	return int(b.callCount.Load())
}

func (b *Backend) Generate(ctx context.Context, req council.GenRequest) (council.GenResponse, error) {
	if b.latency > 0 {
		select {
		case <-time.After(b.latency):
		case <-ctx.Done():
			return council.GenResponse{}, ctx.Err()
		}
	}

	count := b.callCount.Add(1)

	if b.staticErr != nil {
		return council.GenResponse{}, b.staticErr
	}
	if b.failAfter > 0 && int(count) > b.failAfter {
		return council.GenResponse{}, council.ErrBackendUnavailable
	}
	if b.genFunc != nil {
		return b.genFunc(req)
	}

	text, ok := b.responses[req.Model]
	if !ok {
		text = b.defText
	}
	return council.GenResponse{Text: text, TokensUsed: b.tokens}, nil
}
