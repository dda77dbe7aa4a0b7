// Golix Bridge - HTTP command relay with a single-slot reply mailbox
// License: MIT

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/golix/golix-bridge/pkg/autoupdate"
	"github.com/golix/golix-bridge/pkg/cmdstore"
	"github.com/golix/golix-bridge/pkg/config"
	"github.com/golix/golix-bridge/pkg/deploy"
	"github.com/golix/golix-bridge/pkg/dispatch"
	"github.com/golix/golix-bridge/pkg/gateway"
	"github.com/golix/golix-bridge/pkg/github"
	"github.com/golix/golix-bridge/pkg/logger"
	"github.com/golix/golix-bridge/pkg/mailbox"
	"github.com/golix/golix-bridge/pkg/market"
	"github.com/golix/golix-bridge/pkg/news"
	"github.com/golix/golix-bridge/pkg/providers"
	"github.com/golix/golix-bridge/pkg/ratelimit"
	"github.com/golix/golix-bridge/pkg/sentiment"
	"github.com/golix/golix-bridge/pkg/websearch"
)

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the bridge HTTP server",
		RunE:  runServe,
	}
	cmd.Flags().StringP("config", "c", "config.json", "Path to config file")
	cmd.Flags().BoolP("debug", "d", false, "Enable debug logging")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Flags().GetString("config")
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		logger.SetLevel(logger.DEBUG)
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	// A missing mandatory credential is the one fatal startup condition.
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	responder, err := providers.CreateResponder(cfg)
	if err != nil {
		return fmt.Errorf("creating responder: %w", err)
	}

	outbox := mailbox.New()

	deps := gateway.Deps{
		Dispatcher: dispatch.NewDispatcher(responder, outbox),
		Outbox:     outbox,
		Market:     market.NewService(cfg.Market.CoinGeckoAPIKey),
		Search:     websearch.NewBraveClient(cfg.Search.BraveAPIKey, cfg.Search.MaxResults),
		News:       news.NewAggregator(cfg.News.Feeds, cfg.News.MaxItems),
		Sentiment:  sentiment.NewClient(),
		Limiter: ratelimit.NewLimiter(ratelimit.Config{
			Enabled:           cfg.RateLimits.Enabled,
			RequestsPerMinute: cfg.RateLimits.RequestsPerMinute,
		}),
	}

	if cfg.CommandStore.DatabaseURL != "" {
		deps.Store = cmdstore.NewFirebaseStore(cfg.CommandStore.DatabaseURL, cfg.CommandStore.Secret)
		logger.InfoC("main", "command store enabled")
	}

	if cfg.AutoUpdate.Enabled {
		host := github.NewClient(
			cfg.AutoUpdate.GitHub.Token,
			cfg.AutoUpdate.GitHub.Repo,
			cfg.AutoUpdate.GitHub.Branch,
		)
		deployer := deploy.NewRenderClient(
			cfg.AutoUpdate.Render.APIKey,
			cfg.AutoUpdate.Render.ServiceID,
		)
		deps.Pipeline = autoupdate.NewPipeline(host, deployer, cfg.AutoUpdate.GitHub.FilePath)
		logger.InfoCF("main", "auto-update enabled", map[string]any{
			"repo": cfg.AutoUpdate.GitHub.Repo,
			"file": cfg.AutoUpdate.GitHub.FilePath,
		})
	}

	gateway.SetVersion(formatVersion())
	server := gateway.NewServer(cfg, deps)
	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}

	fmt.Printf("✓ Bridge started on %s:%d\n", cfg.Gateway.Host, cfg.Gateway.Port)
	fmt.Println("Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	fmt.Println("\nShutting down...")
	logger.InfoC("main", "Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Stop(ctx); err != nil {
		logger.ErrorCF("main", "Shutdown error", map[string]any{"error": err.Error()})
	}

	logger.InfoC("main", "Shutdown complete")
	return nil
}
