package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/logx"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/joho/godotenv"
)

// setupdb applies the schema and loads the demo catalog.
func main() {
	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logx.New(cfg.ServiceName+"-setupdb", cfg.LogLevel)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Error("db connect", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.Migrate(ctx, db); err != nil {
		log.Error("migrate", "err", err)
		os.Exit(1)
	}
	log.Info("schema applied")

	repo := &catalog.PostgresRepository{DB: db}
	n, err := catalog.Seed(ctx, repo, repo)
	if err != nil {
		log.Error("seed", "err", err)
		os.Exit(1)
	}
	log.Info("catalog seeded", "products_created", n, "categories", len(catalog.DemoCategories()))
}
