// Package main provides the main entry point for the notification relay
// server. All startup and teardown sequencing lives in the lifecycle
// orchestrator; main only loads configuration and hands over control.
package main

import (
	"context"
	"os"

	"notifyapp/internal/config"
	"notifyapp/internal/lifecycle"
	"notifyapp/internal/observability"
)

func main() {
	ctx := context.Background()
	logger := observability.Fallback()

	cfg, err := config.NewConfig()
	if err != nil {
		logger.Error(ctx, "Failed to load configuration", err)
		os.Exit(1)
	}

	orch := lifecycle.New(cfg)
	defer orch.Recover()

	if err := orch.Start(ctx); err != nil {
		// initializer failures exit inside Start; a duplicate start
		// cannot happen here, so this only guards future call sites
		return
	}

	orch.Wait()
}
