package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ariefcatur/go-storefront/internal/cart"
	"github.com/ariefcatur/go-storefront/internal/catalog"
	"github.com/ariefcatur/go-storefront/internal/checkout"
	"github.com/ariefcatur/go-storefront/internal/config"
	"github.com/ariefcatur/go-storefront/internal/httpx"
	kafkax "github.com/ariefcatur/go-storefront/internal/kafka"
	"github.com/ariefcatur/go-storefront/internal/logx"
	"github.com/ariefcatur/go-storefront/internal/metrics"
	"github.com/ariefcatur/go-storefront/internal/orders"
	"github.com/ariefcatur/go-storefront/internal/postgres"
	"github.com/ariefcatur/go-storefront/internal/redisx"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config", "err", err)
		os.Exit(1)
	}
	log := logx.New(cfg.ServiceName, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Stores
	products, orderRepo, closeDB, err := openStores(ctx, cfg, log)
	if err != nil {
		log.Error("store init", "backend", cfg.StoreBackend, "err", err)
		os.Exit(1)
	}
	defer closeDB()

	// Redis
	rdb := redisx.New(cfg.RedisAddr)
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("redis unreachable at startup", "addr", cfg.RedisAddr, "err", err)
	}
	carts := &cart.RedisStore{Redis: rdb, TTL: cfg.CartTTL}

	// Kafka producer
	prod := kafkax.NewProducer(cfg.KafkaBrokers, 1024, log)
	prod.Start()

	m := metrics.New()
	methods := checkout.DefaultMethods()
	svc := &orders.Service{
		Orders:   orderRepo,
		Products: products,
		Carts:    carts,
		Methods:  methods,
		Calc:     checkout.NewCalculator(cfg.TaxRate),
		Redis:    rdb,
		Events:   prod,
		Metrics:  m,
		Log:      log,
		Name:     cfg.ServiceName,
	}

	router := httpx.NewRouter(log, m)
	(&httpx.CatalogHandler{Products: products, Methods: methods, Log: log}).Register(router)
	(&httpx.CartHandler{Carts: carts, Products: products, Orders: svc, Log: log}).Register(router)
	(&httpx.OrdersHandler{Service: svc, Carts: carts, Log: log}).Register(router)

	// HTTP server
	srv := &http.Server{Addr: cfg.HTTPAddr, Handler: router}

	// graceful shutdown
	go func() {
		log.Info("http listening", "addr", cfg.HTTPAddr, "backend", cfg.StoreBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("listen", "err", err)
			cancel()
		}
	}()

	// wait signal
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sig:
	case <-ctx.Done():
	}
	log.Info("shutting down")

	ctx2, cancel2 := context.WithTimeout(context.Background(), cfg.Shutdown)
	defer cancel2()
	if err := srv.Shutdown(ctx2); err != nil {
		// handler yang masih jalan dapat ErrProducerClosed, bukan panic
		log.Warn("http shutdown incomplete", "err", err)
	}
	prod.Close()      // tutup inbox -> flush & close writer
	prod.WaitClosed() // drain
}

// openStores picks the catalog and order stores for STORE_BACKEND.
func openStores(ctx context.Context, cfg config.Config, log *slog.Logger) (catalog.Repository, orders.Repository, func(), error) {
	if cfg.StoreBackend == config.BackendMemory {
		stock := catalog.NewMemoryRepository()
		n, err := catalog.Seed(ctx, stock, stock)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("memory backend seeded", "products", n)
		return stock, orders.NewMemoryRepository(stock), func() {}, nil
	}

	db, err := postgres.Connect(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, nil, err
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, nil, err
	}
	return &catalog.PostgresRepository{DB: db}, &orders.PostgresRepository{DB: db}, db.Close, nil
}
