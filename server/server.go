// Package server exposes the council router over HTTP.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/democratizeAI/council"
)

// Opts holds configuration for the API server.
type Opts struct {
	Router *council.Router
	Addr   string
	// RateLimitRPS caps per-client request rate; 0 disables limiting.
	RateLimitRPS   float64
	RateLimitBurst int
	Out            io.Writer
}

// Start launches the API server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts Opts) error {
	if opts.Router == nil {
		return fmt.Errorf("server: router is required")
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}

	engine := NewEngine(opts)

	srv := &http.Server{
		Addr:    opts.Addr,
		Handler: engine,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "council API listening on %s\n", opts.Addr)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// NewEngine builds the gin engine with all routes registered. Split out
// from Start so tests can drive it with httptest.
func NewEngine(opts Opts) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())
	if opts.RateLimitRPS > 0 {
		engine.Use(RateLimit(opts.RateLimitRPS, opts.RateLimitBurst))
	}

	registerRoutes(engine, opts.Router)
	return engine
}
