package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dbchat/dbchat/internal/config"
	"github.com/dbchat/dbchat/internal/database"
	"github.com/dbchat/dbchat/internal/demo/seed"
	"github.com/dbchat/dbchat/internal/migrations"
	"github.com/dbchat/dbchat/internal/observability"
)

func main() {
	migrate := flag.Bool("migrate", true, "apply pending schema migrations before seeding")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.LoadFromEnv("dbchat-seed")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg, os.Stdout)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	driver, _, err := database.ResolveDriver(cfg.Database.URL)
	if err != nil {
		logger.Error("invalid database url", slog.Any("error", err))
		os.Exit(1)
	}
	db, err := database.Open(ctx, database.Config{URL: cfg.Database.URL, MaxOpenConns: 1})
	if err != nil {
		logger.Error("failed to open database", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if *migrate {
		runner, err := migrations.NewRunner(driver)
		if err != nil {
			logger.Error("failed to load migrations", slog.Any("error", err))
			os.Exit(1)
		}
		applied, err := runner.Up(ctx, db, 0)
		if err != nil {
			logger.Error("failed to apply migrations", slog.Any("error", err))
			os.Exit(1)
		}
		logger.Info("migrations applied", slog.Int("count", applied))
	}

	summary, err := seed.Seed(ctx, db)
	if err != nil {
		logger.Error("failed to seed demo data", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("demo data seeded",
		slog.Int("users", summary.Users),
		slog.Int("products", summary.Products),
		slog.Int("orders", summary.Orders),
		slog.Int("order_items", summary.OrderItems),
	)
}
