package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/iyhunko/barcode-pricing/internal/cache"
	"github.com/iyhunko/barcode-pricing/internal/config"
	httpAPI "github.com/iyhunko/barcode-pricing/internal/http"
	"github.com/iyhunko/barcode-pricing/internal/logger"
	"github.com/iyhunko/barcode-pricing/internal/metrics"
	"github.com/iyhunko/barcode-pricing/internal/pricing"
	"github.com/iyhunko/barcode-pricing/internal/repository"
	"github.com/iyhunko/barcode-pricing/internal/repository/memory"
	reposql "github.com/iyhunko/barcode-pricing/internal/repository/sql"
	"github.com/iyhunko/barcode-pricing/internal/service"
	sqspkg "github.com/iyhunko/barcode-pricing/internal/sqs"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	conf, err := config.LoadFromEnv()
	handleErr("loading config", err)

	logger.InitJSONLogger(conf.DebugMode)
	if !conf.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, conf)
	handleErr("opening product store", err)
	defer closeStore()

	engine, err := pricing.NewEngine(store, conf.DefaultExchangeRate)
	handleErr("creating pricing engine", err)
	metrics.CurrentExchangeRate.Set(conf.DefaultExchangeRate.InexactFloat64())

	productService := service.NewProductService(store, engine)

	httpServer := &http.Server{
		Addr:              ":" + conf.HTTPServer.Port,
		Handler:           httpAPI.InitRouter(gin.New(), productService),
		ReadHeaderTimeout: 5 * time.Second,
	}
	metricsServer := metrics.NewServer(conf)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("HTTP server starting", slog.String("addr", httpServer.Addr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listening to HTTP requests: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		if err := metrics.ListenAndServe(metricsServer); err != nil {
			return fmt.Errorf("listening to metrics requests: %w", err)
		}
		return nil
	})

	if conf.AWS.SQSQueueURL != "" {
		sqsClient, err := sqspkg.NewClient(ctx, conf.AWS)
		handleErr("creating SQS client", err)

		outboxWorker := service.NewOutboxWorker(store.Events(), sqspkg.NewPublisher(sqsClient, conf.AWS.SQSQueueURL), conf.Outbox.Interval)
		g.Go(func() error {
			outboxWorker.Start(gctx)
			return nil
		})
	} else {
		slog.Warn("SQS queue is not configured, outbox events stay pending")
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down gracefully")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return errors.Join(httpServer.Shutdown(shutdownCtx), metricsServer.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		slog.Error("product service stopped with error", slog.Any("err", err))
		os.Exit(1)
	}
}

// openStore builds the configured product store, optionally fronted by the barcode cache.
func openStore(ctx context.Context, conf *config.Config) (repository.Store, func(), error) {
	var store repository.Store
	closeStore := func() {}

	switch conf.StoreDriver {
	case config.StoreDriverMemory:
		slog.Warn("using the in-memory product store, data is lost on restart")
		store = memory.NewStore()
	default:
		db, err := reposql.StartDB(ctx, conf.Database)
		if err != nil {
			return nil, nil, err
		}
		store = reposql.NewStore(db)
		closeStore = func() {
			if err := db.Close(); err != nil {
				slog.Error("failed to close database", slog.Any("err", err))
			}
		}
	}

	if conf.Redis.Addr == "" {
		return store, closeStore, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     conf.Redis.Addr,
		Password: conf.Redis.Password,
		DB:       conf.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		closeStore()
		return nil, nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	slog.Info("barcode cache enabled", slog.String("addr", conf.Redis.Addr), slog.Duration("ttl", conf.Redis.TTL))

	return cache.NewStore(store, client, conf.Redis.TTL), func() {
		if err := client.Close(); err != nil {
			slog.Error("failed to close redis client", slog.Any("err", err))
		}
		closeStore()
	}, nil
}

func handleErr(msg string, err error) {
	if err != nil {
		slog.Error("error while "+msg, slog.Any("err", err))
		os.Exit(1)
	}
}
