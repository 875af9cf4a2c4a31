// Package main is the entry point for the treasury API. It wires the RPC
// gateway, the sqlite caches, the upstream indexer clients and the HTTP
// server, starts the background jobs and waits for a shutdown signal.
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alitto/pond/v2"

	"github.com/nearvault/treasury-api/internal/clients/nearblocks"
	"github.com/nearvault/treasury-api/internal/clients/pikespeak"
	"github.com/nearvault/treasury-api/internal/clients/priceoracle"
	"github.com/nearvault/treasury-api/internal/clients/reffinance"
	"github.com/nearvault/treasury-api/internal/config"
	"github.com/nearvault/treasury-api/internal/database"
	"github.com/nearvault/treasury-api/internal/modules/history"
	historyhandlers "github.com/nearvault/treasury-api/internal/modules/history/handlers"
	"github.com/nearvault/treasury-api/internal/modules/price"
	pricehandlers "github.com/nearvault/treasury-api/internal/modules/price/handlers"
	"github.com/nearvault/treasury-api/internal/modules/swap"
	swaphandlers "github.com/nearvault/treasury-api/internal/modules/swap/handlers"
	"github.com/nearvault/treasury-api/internal/modules/tokens"
	tokenshandlers "github.com/nearvault/treasury-api/internal/modules/tokens/handlers"
	"github.com/nearvault/treasury-api/internal/modules/transfers"
	transfershandlers "github.com/nearvault/treasury-api/internal/modules/transfers/handlers"
	"github.com/nearvault/treasury-api/internal/nearrpc"
	"github.com/nearvault/treasury-api/internal/reliability"
	"github.com/nearvault/treasury-api/internal/rpccache"
	"github.com/nearvault/treasury-api/internal/scheduler"
	"github.com/nearvault/treasury-api/internal/server"
	"github.com/nearvault/treasury-api/pkg/logger"
)

const (
	// Sampling runs kept per account/token/period before pruning.
	historyKeepRuns = 3

	// Cached RPC responses older than this are refetchable and get dropped.
	rpcResponseMaxAge = 7 * 24 * time.Hour

	balanceWorkerCount = 16
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})
	logger.SetGlobalLogger(log)

	log.Info().
		Int("port", cfg.Port).
		Str("data_dir", cfg.DataDir).
		Bool("dev_mode", cfg.DevMode).
		Msg("Starting treasury API")

	// Databases. The cache DB holds refetchable RPC responses, the history DB
	// holds computed balance series that are expensive to rebuild.
	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	historyDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "history.db"),
		Profile: database.ProfileStandard,
		Name:    "history",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open history database")
	}
	defer historyDB.Close()

	if err := cacheDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate cache database")
	}
	if err := historyDB.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate history database")
	}

	// RPC gateway with the durable response cache behind it.
	rpcStore := rpccache.NewRepository(cacheDB.Conn())
	gateway := nearrpc.New(nearrpc.Config{
		FastnearAPIKey: cfg.FastnearAPIKey,
		Store:          rpcStore,
		Log:            log,
	})

	// Upstream indexer clients.
	nearblocksClient := nearblocks.NewClient(cfg.NearblocksAPIKey, log)
	pikespeakClient := pikespeak.NewClient(cfg.PikespeakAPIKey, log)
	refClient := reffinance.NewClient(log)
	oracleClient := priceoracle.NewClient(log)

	workers := pond.NewPool(balanceWorkerCount)
	defer workers.StopAndWait()

	// Services.
	historyRepo := history.NewRepository(historyDB.Conn(), log)
	staking := history.NewStakingAggregator(gateway, nearblocksClient, workers, log)
	historyService := history.NewService(gateway, historyRepo, staking, workers, log)
	tokensService := tokens.NewService(gateway, nearblocksClient, oracleClient, refClient, log)
	swapService := swap.NewService(gateway, refClient, tokensService, log)
	transfersService := transfers.NewService(pikespeakClient, log)
	priceService := price.NewService(oracleClient, log)

	// Background jobs.
	sched := scheduler.New(log)
	if err := sched.AddJob("@every 45s", &scheduler.PriceRefreshJob{Refresher: priceService, Log: log}); err != nil {
		log.Fatal().Err(err).Msg("Failed to register price refresh job")
	}
	if err := sched.AddJob("@daily", &scheduler.HistoryPruneJob{Store: historyRepo, Keep: historyKeepRuns, Log: log}); err != nil {
		log.Fatal().Err(err).Msg("Failed to register history prune job")
	}
	if err := sched.AddJob("@daily", &scheduler.ResponsePruneJob{Store: rpcStore, MaxAge: rpcResponseMaxAge, Log: log}); err != nil {
		log.Fatal().Err(err).Msg("Failed to register response prune job")
	}
	if cfg.BackupConfigured() {
		backups := reliability.NewService(reliability.Config{
			Endpoint:  cfg.BackupEndpoint,
			Bucket:    cfg.BackupBucket,
			AccessKey: cfg.BackupAccessKey,
			SecretKey: cfg.BackupSecretKey,
		}, cfg.DataDir, log)
		if err := sched.AddJob("@daily", &scheduler.BackupJob{Backups: backups, Log: log}); err != nil {
			log.Fatal().Err(err).Msg("Failed to register backup job")
		}
	} else {
		log.Info().Msg("Offsite backups disabled, S3 settings incomplete")
	}
	sched.Start()
	defer sched.Stop()

	srv := server.New(server.Config{
		Log:       log,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		DataDir:   cfg.DataDir,
		CacheDB:   cacheDB,
		HistoryDB: historyDB,
		Scheduler: sched,
		History:   historyhandlers.NewHandler(historyService, log),
		Tokens:    tokenshandlers.NewHandler(tokensService, log),
		Swap:      swaphandlers.NewHandler(swapService, log),
		Transfers: transfershandlers.NewHandler(transfersService, log),
		Price:     pricehandlers.NewHandler(priceService, log),
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- srv.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		log.Fatal().Err(err).Msg("HTTP server failed")
	case sig := <-quit:
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server shutdown failed")
	}

	log.Info().Msg("Shutdown complete")
}
