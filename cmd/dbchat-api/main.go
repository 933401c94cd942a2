package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dbchat/dbchat/internal/agent"
	"github.com/dbchat/dbchat/internal/api"
	"github.com/dbchat/dbchat/internal/api/uistatic"
	"github.com/dbchat/dbchat/internal/auth"
	"github.com/dbchat/dbchat/internal/chat"
	"github.com/dbchat/dbchat/internal/config"
	"github.com/dbchat/dbchat/internal/database"
	"github.com/dbchat/dbchat/internal/nl2sql"
	"github.com/dbchat/dbchat/internal/observability"
	"github.com/dbchat/dbchat/internal/schema"
	"github.com/dbchat/dbchat/internal/sqltool"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("dbchat-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	if cfg.Database.URL == "" {
		logger.Error("database tools are not available: DBCHAT_DATABASE_URL (or DATABASE_URL) is not set")
		os.Exit(1)
	}
	driver, _, err := database.ResolveDriver(cfg.Database.URL)
	if err != nil {
		logger.Error("database tools are not available", slog.Any("error", err))
		os.Exit(1)
	}
	db, err := database.Open(context.Background(), database.Config{
		URL:             cfg.Database.URL,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	})
	if err != nil {
		logger.Error("database tools are not available", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	dialect := database.Dialect(driver)
	introspector := schema.NewIntrospector(db, database.SchemaName(driver, cfg.Database.Schema), logger)
	executor := sqltool.NewExecutor(db, sqltool.Options{
		ReadOnly: cfg.SQL.ReadOnly,
		MaxRows:  cfg.SQL.MaxResultRows,
		Logger:   logger,
	})
	registry := agent.NewRegistry(introspector, executor, cfg.SQL.SchemaSampleRows, logger)

	// The model client is built on the first question so a missing API key
	// only fails chat turns, not startup.
	runner := agent.NewLazy(registry.Names(), func() (*agent.Agent, error) {
		llm, err := agent.NewClient(cfg.AI, agent.SystemPrompt(dialect))
		if err != nil {
			return nil, err
		}
		return agent.New(agent.Config{
			Logger:    logger,
			LLM:       llm,
			Tools:     registry,
			MaxRounds: cfg.AI.MaxRounds,
		})
	})

	store := chat.NewStore(cfg.Chat.SessionTTL)
	defer store.Close()

	deps := api.Dependencies{
		Logger:            logger,
		Chat:              chat.NewService(store, runner, logger),
		Schema:            introspector,
		Dialect:           dialect,
		Translator:        nl2sql.New(cfg.AI),
		UI:                uistatic.Handler(),
		Readiness:         api.CombineReadinessChecks(api.PingDatabase(db)),
		DependencyTimeout: time.Second,
	}
	if cfg.Auth.Required {
		validator, err := auth.NewStaticAPIKeyValidator(cfg.Auth.StaticKeys)
		if err != nil {
			logger.Error("failed to parse static auth keys", slog.Any("error", err))
			os.Exit(1)
		}
		if validator.Len() == 0 {
			logger.Warn("auth is required but no static keys are configured; every protected request will be rejected")
		}
		deps.AuthMiddleware = auth.Middleware(logger, validator)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("driver", driver),
			slog.String("schema", introspector.SchemaName()),
			slog.String("ai_provider", cfg.AI.Provider),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
