// councild serves the council router over HTTP.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/democratizeAI/council"
	"github.com/democratizeAI/council/backend/openaicompat"
	"github.com/democratizeAI/council/meter"
	"github.com/democratizeAI/council/server"
	"github.com/democratizeAI/council/store"
)

func main() {
	configPath := flag.String("config", "council.yaml", "path to config file")
	addr := flag.String("addr", "", "listen address (overrides config)")
	flag.Parse()

	if err := run(*configPath, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "councild: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, addr string) error {
	cfg, err := council.LoadConfig(configPath)
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	router, err := council.New(cfg, buildBackends(cfg),
		council.WithStore(store.NewMemory(cfg.Store.TTL())),
		council.WithMeter(meter.NewLogMeter(logger)),
	)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.Start(ctx, server.Opts{
		Router:         router,
		Addr:           addr,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
		Out:            os.Stdout,
	})
}

// buildBackends groups configured models by endpoint so one adapter
// serves all heads hosted by the same inference server.
func buildBackends(cfg council.Config) []council.Backend {
	type group struct {
		apiKey string
		models []council.ModelID
	}
	groups := make(map[string]*group)
	var order []string

	for _, m := range cfg.Models {
		g, ok := groups[m.Endpoint]
		if !ok {
			g = &group{apiKey: m.APIKey}
			groups[m.Endpoint] = g
			order = append(order, m.Endpoint)
		}
		g.models = append(g.models, m.ID)
	}

	backends := make([]council.Backend, 0, len(order))
	for i, endpoint := range order {
		g := groups[endpoint]
		backends = append(backends, openaicompat.New(
			fmt.Sprintf("backend-%d", i),
			endpoint,
			openaicompat.WithModels(g.models...),
			openaicompat.WithAPIKey(g.apiKey),
		))
	}
	return backends
}
