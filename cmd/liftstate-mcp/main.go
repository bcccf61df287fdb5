// Command liftstate-mcp serves the analytics engine over the Model Context
// Protocol on stdio. In remote mode it proxies a running LiftState server
// over its REST API; in local mode it opens the database and ledger directly.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/claude/liftstate/internal/analytics"
	"github.com/claude/liftstate/internal/config"
	"github.com/claude/liftstate/internal/ledger"
	"github.com/claude/liftstate/internal/logcache"
	"github.com/claude/liftstate/internal/mcp"
	"github.com/claude/liftstate/internal/storage"
	mcpserver "github.com/mark3labs/mcp-go/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	remoteURL := flag.String("url", "", "base URL of a running LiftState server (remote mode)")
	apiKey := flag.String("api-key", os.Getenv("LIFTSTATE_API_KEY"), "API key for write tools in remote mode")
	configPath := flag.String("config", "config.yaml", "path to config file (local mode)")
	flag.Parse()

	// MCP owns stdout; logs go to stderr.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))

	var eng mcp.Engine
	if *remoteURL != "" {
		eng = mcp.NewHTTPClient(*remoteURL, *apiKey)
		log.Info("remote mode", "url", *remoteURL)
	} else {
		svc, cleanup, err := localEngine(*configPath, log)
		if err != nil {
			log.Error("local mode setup failed", "error", err)
			os.Exit(1)
		}
		defer cleanup()
		eng = svc
		log.Info("local mode", "config", *configPath)
	}

	srv := mcp.New(eng, Version, log)
	if err := mcpserver.ServeStdio(srv); err != nil {
		log.Error("stdio server error", "error", err)
		os.Exit(1)
	}
}

func localEngine(configPath string, log *slog.Logger) (*analytics.Service, func(), error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()
	db, err := storage.New(ctx, cfg.Database.DSN())
	if err != nil {
		return nil, nil, fmt.Errorf("connecting database: %w", err)
	}

	led, err := ledger.Open(cfg.Ledger.Dir)
	if err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("opening ledger: %w", err)
	}

	cache := logcache.New(cfg.Cache.TTL())
	svc := analytics.New(db, led, cache, cfg.Analytics, cfg.Cache.MaxRows, log)

	cleanup := func() {
		led.Close()
		db.Close()
	}
	return svc, cleanup, nil
}
