package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/coinfolio/coinfolio-go/internal/api"
	"github.com/coinfolio/coinfolio-go/internal/api/handlers"
	"github.com/coinfolio/coinfolio-go/internal/cache"
	"github.com/coinfolio/coinfolio-go/internal/config"
	"github.com/coinfolio/coinfolio-go/internal/database"
	"github.com/coinfolio/coinfolio-go/internal/marketdata"
	"github.com/coinfolio/coinfolio-go/internal/queue"
	"github.com/coinfolio/coinfolio-go/internal/ratelimit"
	"github.com/coinfolio/coinfolio-go/internal/scheduler"
	"github.com/coinfolio/coinfolio-go/internal/services"
)

func main() {
	// .env is optional; real deployments configure via environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, redisClient, err := connectStores(ctx, cfg)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to backing stores")
	}
	defer db.Close()
	defer redisClient.Close()

	producer := queue.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.ClientID)
	defer func() {
		if err := producer.Close(); err != nil {
			logrus.WithError(err).Error("Failed to close producer")
		}
	}()

	// Repositories.
	assetRepo := database.NewAssetRepository(db.Pool)
	exchangeRepo := database.NewExchangeRepository(db.Pool)
	tickerRepo := database.NewTickerRepository(db.Pool)
	walletRepo := database.NewWalletRepository(db.Pool)
	settingsRepo := database.NewSettingsRepository(db.Pool)

	// Shared components.
	assetTickerCache := cache.NewTickerCache(redisClient.Client, cache.NamespaceAssets)
	currencyTickerCache := cache.NewTickerCache(redisClient.Client, cache.NamespaceCurrencies)
	limiter := ratelimit.NewFixedWindowLimiter(
		redisClient.Client,
		cfg.RateLimit.Key,
		cfg.RateLimit.Max,
		time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
		mustDuration(cfg.RateLimit.PollInterval),
	)
	marketClient := marketdata.NewClient(&cfg.MarketAPI)

	// Ingestion handlers and valuation pipeline.
	assetIngestion := services.NewAssetIngestionService(marketClient, limiter, assetRepo, producer)
	exchangeIngestion := services.NewExchangeIngestionService(marketClient, limiter, exchangeRepo, producer)
	assetTickerIngestion := services.NewAssetTickerIngestionService(marketClient, limiter, assetRepo, tickerRepo, assetTickerCache, producer)
	currencyTickerIngestion := services.NewCurrencyTickerIngestionService(marketClient, limiter, assetRepo, tickerRepo, currencyTickerCache, producer)
	valuationEngine := services.NewValuationEngine(walletRepo, assetTickerCache)
	valuationTrigger := services.NewValuationTrigger(walletRepo, producer, cfg.Valuation.WalletBatchSize)

	consumer := queue.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID)
	consumer.Register(queue.TopicAssetData, assetIngestion.Handle)
	consumer.Register(queue.TopicExchangeData, exchangeIngestion.Handle)
	consumer.Register(queue.TopicAssetTickerData, assetTickerIngestion.Handle)
	consumer.Register(queue.TopicCurrencyTickerData, currencyTickerIngestion.Handle)
	consumer.Register(queue.TopicComputeWalletBalance, valuationEngine.Handle)
	consumer.Register(queue.TopicAssetTickersUpserted, valuationTrigger.HandleAssetTickersUpserted)
	consumer.Register(queue.TopicCurrencyTickerUpserted, valuationTrigger.HandleCurrencyTickerUpserted)
	consumer.Start(ctx)

	var wg sync.WaitGroup

	// One distributed scheduler per configured job type.
	schedulers, err := buildSchedulers(cfg, redisClient, settingsRepo, producer)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to build schedulers")
	}
	for _, sched := range schedulers {
		sched := sched
		wg.Add(1)
		go func() {
			defer wg.Done()
			sched.Run(ctx)
		}()
	}

	cleanup := services.NewCleanupService(
		tickerRepo,
		time.Duration(cfg.Cleanup.TickerRetentionHours)*time.Hour,
		time.Duration(cfg.Cleanup.CleanupIntervalMinutes)*time.Minute,
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		cleanup.Run(ctx)
	}()

	monitor := services.NewPerformanceMonitor(mustDuration(cfg.Monitoring.Interval))
	wg.Add(1)
	go func() {
		defer wg.Done()
		monitor.Run(ctx)
	}()

	// Operational HTTP surface.
	if cfg.Environment != "development" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := api.SetupRouter(handlers.NewHealthHandler(db, redisClient))
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logrus.WithError(err).Error("HTTP server failed")
		}
	}()

	logrus.WithField("port", cfg.Server.Port).Info("Worker started")

	<-ctx.Done()
	logrus.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logrus.WithError(err).Error("HTTP server shutdown failed")
	}

	consumer.Wait()
	wg.Wait()
	logrus.Info("Worker stopped")
}

// buildSchedulers creates one scheduler per configured job type. Job types
// without a registered preparer are rejected so a typo in configuration is
// caught at startup.
func buildSchedulers(cfg *config.Config, redisClient *database.RedisClient, settingsRepo *database.SettingsRepository, producer *queue.Producer) ([]*scheduler.Scheduler, error) {
	checkInterval := mustDuration(cfg.Scheduler.CheckInterval)
	lockTTL := mustDuration(cfg.Scheduler.LockTTL)

	// One owner id per process instance; every job type's lock is claimed
	// with the same owner.
	lock := scheduler.NewDistributedLock(redisClient.Client, uuid.NewString(), lockTTL)

	preparers := map[string]scheduler.MessagePreparer{
		"asset_data":           services.NewAssetDataPreparer(settingsRepo, cfg.Collection.BatchSize),
		"asset_ticker_data":    services.NewAssetTickerDataPreparer(settingsRepo, cfg.Collection.BatchSize),
		"exchange_data":        services.NewExchangeDataPreparer(settingsRepo, cfg.Collection.BatchSize),
		"currency_ticker_data": services.NewCurrencyTickerDataPreparer(settingsRepo),
	}

	var schedulers []*scheduler.Scheduler
	for jobType, jobCfg := range cfg.Scheduler.Jobs {
		preparer, ok := preparers[jobType]
		if !ok {
			return nil, fmt.Errorf("no message preparer registered for job type %q", jobType)
		}
		sched, err := scheduler.New(jobType, jobCfg.Cron, checkInterval, lock, redisClient.Client, preparer, producer)
		if err != nil {
			return nil, err
		}
		schedulers = append(schedulers, sched)
	}
	return schedulers, nil
}

// connectStores connects to PostgreSQL and Redis with exponential backoff so
// the worker survives the stores coming up after it.
func connectStores(ctx context.Context, cfg *config.Config) (*database.PostgresDB, *database.RedisClient, error) {
	var db *database.PostgresDB
	connectDB := func() error {
		var err error
		db, err = database.NewPostgresConnection(cfg.Database)
		return err
	}
	if err := backoff.Retry(connectDB, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		return nil, nil, fmt.Errorf("postgres: %w", err)
	}

	var redisClient *database.RedisClient
	connectRedis := func() error {
		var err error
		redisClient, err = database.NewRedisConnection(cfg.Redis)
		return err
	}
	if err := backoff.Retry(connectRedis, backoff.WithContext(backoff.NewExponentialBackOff(), ctx)); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("redis: %w", err)
	}

	return db, redisClient, nil
}

func setupLogging(cfg *config.Config) {
	level, err := logrus.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetOutput(os.Stdout)
	if cfg.Environment != "development" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		logrus.WithError(err).WithField("value", s).Fatal("Invalid duration in configuration")
	}
	return d
}
