package main

// GET /cart - Show the session's cart
// POST /cart - Add a product, creating the cart if needed
// POST /cart/add_item - Add a product to the session's cart
// PATCH /cart/{product_id} - Set a product's quantity
// DELETE /cart/{product_id} - Remove a product from the cart
// POST /products - Create a product
// GET /products/list - List all products

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"shopping-cart/config"
	"shopping-cart/events"
	"shopping-cart/handler"
	"shopping-cart/logger"
	"shopping-cart/service"
	"shopping-cart/session"
	"shopping-cart/store"
	"shopping-cart/sweeper"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg := config.Load()
	log := logger.New(logger.Options{
		Service:   "shopping-cart",
		Env:       cfg.AppEnv,
		Level:     cfg.LogLevel,
		AddSource: true,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Store ---
	st, err := openStore(cfg, log)
	if err != nil {
		log.Error("store setup failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer st.Close()

	// --- Session bindings ---
	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer rdb.Close()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("redis connection failed", slog.String("addr", cfg.RedisAddr), slog.Any("err", err))
		os.Exit(1)
	}
	binder := session.NewRedisBinder(rdb, cfg.SessionTTL)

	// --- Events ---
	var pub events.Publisher = events.Nop{}
	if len(cfg.KafkaBrokers) > 0 {
		pub = events.NewKafkaPublisher(cfg.KafkaTopic, cfg.KafkaBrokers...)
		log.Info("publishing cart events", slog.String("topic", cfg.KafkaTopic))
	}
	defer pub.Close()

	// --- Service + Handlers ---
	svc := service.NewService(st, binder)
	r := mux.NewRouter()
	handler.NewHandler(svc, log).RegisterRoutes(r)

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	sw := sweeper.New(st, pub, sweeper.Config{
		Interval:     cfg.SweepInterval,
		AbandonAfter: cfg.AbandonAfter,
		RetainFor:    cfg.RetainFor,
	}, log.With("component", "sweeper"))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("http server starting", slog.String("addr", cfg.HTTPAddr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sw.Run(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Error("server stopped with error", slog.Any("err", err))
	}
	log.Info("bye")
}

func openStore(cfg config.Config, log *slog.Logger) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		log.Warn("DATABASE_URL not set, carts are kept in memory")
		return store.NewMemoryStore(), nil
	}
	pg, err := store.NewPostgresStore(cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	if err := store.RunMigrations(pg.DB); err != nil {
		_ = pg.Close()
		return nil, err
	}
	log.Info("database migrations applied")
	return pg, nil
}
