package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aiworld/gateway/db"
	"github.com/aiworld/gateway/internal/api"
	"github.com/aiworld/gateway/internal/chat"
	"github.com/aiworld/gateway/internal/config"
	"github.com/aiworld/gateway/internal/database"
	"github.com/aiworld/gateway/internal/log"
	"github.com/aiworld/gateway/internal/model"
	"github.com/aiworld/gateway/internal/store"
	"github.com/aiworld/gateway/internal/tools"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP gateway server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	return cmd
}

func runServe(parent context.Context, addrOverride string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	addr := cfg.Addr
	if addrOverride != "" {
		addr = addrOverride
	}

	logger := log.New(log.Config{
		Level: log.ParseLevel(cfg.LogLevel),
		JSON:  cfg.LogJSON,
	})
	logger.Info("starting aiworld gateway", "version", Version)

	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("applying migrations: %w", err)
	}

	pool, err := database.Connect(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer pool.Close()

	st := store.New(pool, logger)
	secrets := config.NewSecrets()
	factory := model.NewFactory(logger)

	registry, err := tools.NewDefaultRegistry()
	if err != nil {
		return fmt.Errorf("building tool registry: %w", err)
	}

	chatSvc := chat.New(st, factory, secrets, logger)

	server, err := api.NewServer(api.ServerConfig{
		Logger:      logger,
		Store:       st,
		Chat:        chatSvc,
		Models:      factory,
		Secrets:     secrets,
		Tools:       registry,
		Pool:        pool,
		CORSOrigins: cfg.CORSOrigins,
		Version:     Version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}

	logger.Info("HTTP server ready",
		"addr", addr,
		"api", "/api/v1/*",
		"health", "/health, /ready",
	)

	if err := server.Run(ctx, addr); err != nil {
		return fmt.Errorf("HTTP server: %w", err)
	}
	return nil
}
