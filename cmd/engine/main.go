package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thisisjab/rulezilla/config"
	"github.com/thisisjab/rulezilla/engine"
)

func main() {
	// Create a context that can be cancelled
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfgPath := flag.String("config", "./.config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		panic(err)
	}

	logger, err := cfg.ParseLogger()
	if err != nil {
		panic(fmt.Errorf("cannot parse logger config: %w", err))
	}

	// Setup signal handling to catch Ctrl+C (SIGINT) or Terminate (SIGTERM)
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received signal. shutting down.", "signal", sig)
		cancel()
	}()

	ruleStore, err := cfg.OpenRuleStore(ctx)
	if err != nil {
		logger.Error("rule store error.", "error", err)
		os.Exit(1)
	}
	defer ruleStore.Close()

	m := cfg.NewMetrics()
	if m != nil && cfg.Metrics.Addr != "" {
		go func() {
			logger.Info("serving metrics", "addr", cfg.Metrics.Addr)
			if err := m.Serve(ctx, cfg.Metrics.Addr); err != nil {
				logger.Error("metrics server error.", "error", err)
			}
		}()
	}

	engineCfg, verdictStorage, err := cfg.ParseEngine(ctx, logger, ruleStore, m)
	if err != nil {
		logger.Error("cannot parse engine config", "error", err)
		os.Exit(1)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
		defer closeCancel()

		if err := verdictStorage.Close(closeCtx); err != nil {
			logger.Error("cannot close verdict storage", "error", err)
		}
	}()

	// Create engine
	e, err := engine.New(*engineCfg, logger)
	if err != nil {
		logger.Error("engine error.", "error", err)
		return
	}

	// Run engine
	if err := e.Run(ctx); err != nil && ctx.Err() == nil {
		logger.Error("engine error.", "error", err)
		return
	}

	logger.Info("engine stopped.")
}
