package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fanmarket/config"
	"fanmarket/core"
	"fanmarket/gateway"
	"fanmarket/gateway/middleware"
	"fanmarket/observability/logging"
	"fanmarket/storage/journal"
)

func main() {
	configPath := flag.String("config", "fanmarket.toml", "path to the daemon config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logging.Setup("fanmarketd", "", logging.ParseLevel("info")).Error("load config", "err", err)
		os.Exit(1)
	}
	logger := logging.Setup("fanmarketd", cfg.Environment, logging.ParseLevel(cfg.LogLevel))

	outcomes, err := journal.Open(cfg.JournalPath, logger)
	if err != nil {
		logger.Error("open outcome journal", "err", err)
		os.Exit(1)
	}
	defer outcomes.Close()

	node, err := core.NewNode(core.Config{
		Owner:   cfg.Owner(),
		Emitter: outcomes,
		Pauses:  cfg.Pauses(),
	})
	if err != nil {
		logger.Error("assemble node", "err", err)
		os.Exit(1)
	}

	server := gateway.NewServer(node, gateway.Config{
		Auth: middleware.AuthConfig{
			Enabled:    cfg.Gateway.AuthEnabled,
			HMACSecret: cfg.Gateway.AuthSecret,
			Issuer:     cfg.Gateway.AuthIssuer,
			Audience:   cfg.Gateway.AuthAudience,
		},
		Observability: middleware.ObservabilityConfig{
			ServiceName: "fanmarketd",
			Enabled:     cfg.Gateway.MetricsEnabled,
			LogRequests: cfg.Gateway.LogRequests,
		},
		AllowedOrigins: cfg.Gateway.AllowedOrigins,
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.Gateway.ListenAddress,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("gateway listening", "addr", cfg.Gateway.ListenAddress)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("gateway serve", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("gateway shutdown", "err", err)
	}
	logger.Info("fanmarketd stopped")
}
