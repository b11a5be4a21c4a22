package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/api-sage/bridge-ledger/src/internal/adapter/events/kafka"
	"github.com/api-sage/bridge-ledger/src/internal/adapter/http/controller"
	"github.com/api-sage/bridge-ledger/src/internal/adapter/http/middleware"
	"github.com/api-sage/bridge-ledger/src/internal/adapter/http/router"
	"github.com/api-sage/bridge-ledger/src/internal/adapter/locks"
	"github.com/api-sage/bridge-ledger/src/internal/adapter/rates"
	mongorepo "github.com/api-sage/bridge-ledger/src/internal/adapter/repository/mongo"
	"github.com/api-sage/bridge-ledger/src/internal/adapter/repository/postgres"
	"github.com/api-sage/bridge-ledger/src/internal/adapter/repository/repo_interfaces"
	"github.com/api-sage/bridge-ledger/src/internal/config"
	"github.com/api-sage/bridge-ledger/src/internal/domain"
	"github.com/api-sage/bridge-ledger/src/internal/logger"
	"github.com/api-sage/bridge-ledger/src/internal/usecase/services"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	ledgerRepo, eventRepo, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}
	defer closeStore()

	redisClient, err := locks.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPassword)
	if err != nil {
		log.Fatalf("connect redis: %v", err)
	}
	defer redisClient.Close()

	locker := locks.NewRedisLocker(redisClient, cfg.LockWaitLogInterval)
	coordinator := locks.NewCoordinator(locker, cfg.LockTTL, cfg.LockWaitTimeout)

	publisher := kafka.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic)
	defer publisher.Close()

	// TODO: swap the env-configured static source for the live feed adapter
	// once its endpoint config lands.
	quotes := rates.NewProvider(staticSource(cfg))

	conversionService := services.NewConversionService(services.ConversionConfig{
		FeePercent:                cfg.FeePercent,
		FlatFeeSats:               cfg.FlatFeeSats,
		NotificationFeeSats:       cfg.NotificationFeeSats,
		NotificationThresholdSats: cfg.NotificationThresholdSats,
		MinimalReceiptMsats:       cfg.MinimalReceiptMsats,
	})
	balanceService := services.NewBalanceService(ledgerRepo)
	pipelineService := services.NewPipelineService(
		ledgerRepo,
		eventRepo,
		coordinator,
		quotes,
		conversionService,
		balanceService,
		publisher,
		services.PipelineConfig{
			RetryBaseDelay:      cfg.RetryBaseDelay,
			RetryMaxAttempts:    cfg.RetryMaxAttempts,
			CustomerLimitSats:   cfg.CustomerLimitSats,
			CustomerLimitWindow: cfg.CustomerLimitWindow,
		},
	)

	reportRecoveryCandidates(ctx, pipelineService)

	authMiddleware := middleware.BasicAuth(cfg.ChannelID, cfg.ChannelKey)
	mux := router.New(
		controller.NewBalanceController(balanceService),
		controller.NewConversionController(conversionService, quotes),
		controller.NewRateController(quotes),
		controller.NewHealthController(),
		authMiddleware,
	)

	server := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server listening", logger.Fields{"addr": cfg.ServerAddr})
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", err, nil)
	}
	logger.Info("server stopped", nil)
}

func openStore(ctx context.Context, cfg config.Config) (repo_interfaces.LedgerRepository, repo_interfaces.EventRepository, func(), error) {
	switch cfg.StoreBackend {
	case "mongo":
		client, err := mongorepo.Connect(ctx, cfg.MongoURI)
		if err != nil {
			return nil, nil, nil, err
		}
		ledgerRepo := mongorepo.NewLedgerRepository(client, cfg.MongoDatabase)
		eventRepo := mongorepo.NewEventRepository(client, cfg.MongoDatabase)
		if err := ledgerRepo.Migrate(ctx); err != nil {
			return nil, nil, nil, err
		}
		if err := eventRepo.Migrate(ctx); err != nil {
			return nil, nil, nil, err
		}
		closeStore := func() {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(disconnectCtx)
		}
		return ledgerRepo, eventRepo, closeStore, nil

	default:
		if err := postgres.RunMigrations(ctx, cfg.DatabaseDSN, cfg.MigrationsDir); err != nil {
			return nil, nil, nil, err
		}
		db, err := postgres.Open(ctx, cfg.DatabaseDSN)
		if err != nil {
			return nil, nil, nil, err
		}
		closeStore := func() { _ = db.Close() }
		return postgres.NewLedgerRepository(db), postgres.NewEventRepository(db), closeStore, nil
	}
}

func staticSource(cfg config.Config) rates.StaticSource {
	tokenA, err := decimal.NewFromString(cfg.RateTokenAUSD)
	if err != nil {
		log.Fatalf("RATE_TOKENA_USD: %v", err)
	}
	tokenB, err := decimal.NewFromString(cfg.RateTokenBUSD)
	if err != nil {
		log.Fatalf("RATE_TOKENB_USD: %v", err)
	}
	btc, err := decimal.NewFromString(cfg.RateBTCUSD)
	if err != nil {
		log.Fatalf("RATE_BTC_USD: %v", err)
	}

	return rates.StaticSource{Quote: domain.Quote{
		TokenAUSD:          tokenA,
		TokenBUSD:          tokenB,
		SettlementAssetUSD: btc,
		TokenATokenBRate:   tokenA.Div(tokenB),
		FetchTime:          time.Now().UTC(),
		Source:             cfg.RateSource,
	}}
}

// reportRecoveryCandidates surfaces events that were received but never
// stamped as processed; a previous run died mid-pipeline on them.
func reportRecoveryCandidates(ctx context.Context, pipeline *services.PipelineService) {
	ids, err := pipeline.UnprocessedEventIDs(ctx, time.Now().Add(-time.Minute))
	if err != nil {
		logger.Error("unprocessed event scan failed", err, nil)
		return
	}
	if len(ids) > 0 {
		logger.Info("events awaiting reprocessing from a previous run", logger.Fields{
			"count":    len(ids),
			"eventIDs": ids,
		})
	}
}
