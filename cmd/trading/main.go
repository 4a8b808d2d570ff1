package main

import (
	"context"
	"fmt"
	"math/big"
	"os"

	"github.com/coinvex/trading"
	"github.com/coinvex/trading/api"
	"github.com/coinvex/trading/binance"
	"github.com/coinvex/trading/breaker"
	"github.com/coinvex/trading/daemon"
	"github.com/coinvex/trading/inmem"
	"github.com/coinvex/trading/logrus"
	"github.com/coinvex/trading/paper"
	"github.com/coinvex/trading/postgres"
	"github.com/coinvex/trading/ratelimit"
	"github.com/coinvex/trading/risk"
	"github.com/coinvex/trading/techan"
	"github.com/coinvex/trading/uuid"
)

func main() {
	ctx, cancelCtx := context.WithCancel(context.Background())
	defer cancelCtx()

	config, err := readConfig()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "could not read config: [%v]", err)
		os.Exit(1)
	}

	logger := logrus.ConfigureStandardLogger(
		config.Logging.Format,
		config.Logging.Level,
	)

	idService := &uuid.IDService{}

	archive, err := resolveArchive(ctx, logger, config, idService)
	if err != nil {
		logger.Fatalf("could not resolve archive: [%v]", err)
	}

	credentialRepository := inmem.NewCredentialRepository()

	var credentialID trading.ID
	if len(config.Binance.ApiKey) > 0 {
		credentialID = idService.NewID()

		credentialRepository.SaveCredentials(&trading.Credentials{
			ID:        credentialID,
			Exchange:  binance.Name,
			ApiKey:    config.Binance.ApiKey,
			SecretKey: config.Binance.SecretKey,
		})
	}

	paperConfig := &paper.Config{
		SeedAmount:  big.NewFloat(config.Paper.SeedAmount),
		QuoteAssets: parseAssets(config.Paper.QuoteAssets),
	}

	metricsSink := inmem.NewMetricsSink()

	sessionController := trading.NewSessionController(
		logger,
		credentialRepository,
		map[string]trading.ExchangeConnector{
			binance.Name: binance.NewConnector(logger),
		},
		func(live trading.ExchangeService) trading.ExchangeService {
			return paper.NewEngine(logger, live, idService, paperConfig)
		},
		archive,
		metricsSink,
	)

	riskEngine := risk.NewEngine(
		idService,
		config.Risk.InitialEquity,
		&risk.Limits{
			MaxPositionSize:    config.Risk.MaxPositionSize,
			MaxDailyLoss:       config.Risk.MaxDailyLoss,
			MaxDrawdown:        config.Risk.MaxDrawdown,
			MaxOpenPositions:   config.Risk.MaxOpenPositions,
			MinRiskRewardRatio: config.Risk.MinRiskRewardRatio,
		},
	)

	limiter := ratelimit.NewLimiter(metricsSink)
	breakers := breaker.NewRegistry(breaker.DefaultConfig())

	if config.Worker.Enabled {
		if err := runWorkers(
			ctx,
			logger,
			config,
			credentialID,
			sessionController,
			limiter,
			riskEngine,
			breakers,
		); err != nil {
			logger.Fatalf("could not run workers: [%v]", err)
		}
	}

	serverTier, err := ratelimit.ParseTier(config.Server.Tier)
	if err != nil {
		logger.Fatalf("could not parse server tier: [%v]", err)
	}

	server := api.NewServer(
		logger,
		sessionController,
		idService,
		riskEngine,
		limiter,
		breakers,
		serverTier,
	)

	if err := server.Run(&api.Config{Port: config.Server.Port}); err != nil {
		logger.Fatalf("could not run api server: [%v]", err)
	}
}

// resolveArchive picks the history store: postgres when configured,
// otherwise the in-memory fallback.
func resolveArchive(
	ctx context.Context,
	logger trading.Logger,
	config *Config,
	idService trading.IDService,
) (trading.Archive, error) {
	if !config.Database.Enabled {
		logger.Infof("database disabled; using in-memory archive")
		return inmem.NewArchive(), nil
	}

	postgresConfig := &postgres.Config{
		Address:      config.Database.Address,
		User:         config.Database.User,
		Password:     config.Database.Password,
		Name:         config.Database.Name,
		SSLMode:      config.Database.SSLMode,
		MigrationDir: config.Database.MigrationDir,
	}

	if err := postgres.RunMigration(logger, postgresConfig); err != nil {
		return nil, fmt.Errorf(
			"could not run postgres migration: [%v]",
			err,
		)
	}

	client, err := postgres.NewClient(ctx, postgresConfig)
	if err != nil {
		return nil, fmt.Errorf(
			"could not create postgres client: [%v]",
			err,
		)
	}

	return postgres.NewArchive(client, idService), nil
}

// runWorkers connects the configured exchange account and activates
// one strategy worker per configured pair, trading in paper mode.
func runWorkers(
	ctx context.Context,
	logger trading.Logger,
	config *Config,
	credentialID trading.ID,
	sessionController *trading.SessionController,
	limiter *ratelimit.Limiter,
	riskEngine *risk.Engine,
	breakers *breaker.Registry,
) error {
	if credentialID == nil {
		return fmt.Errorf("workers require exchange credentials")
	}

	if _, err := sessionController.ConnectExchange(
		ctx,
		config.Worker.UserID,
		credentialID,
	); err != nil {
		return fmt.Errorf("could not connect exchange: [%v]", err)
	}

	tier, err := ratelimit.ParseTier(config.Worker.Tier)
	if err != nil {
		return err
	}

	sizingMethod, err := risk.ParseSizingMethod(config.Worker.SizingMethod)
	if err != nil {
		return err
	}

	marketService, err := binance.NewExchangeService(
		ctx,
		logger,
		config.Binance.ApiKey,
		config.Binance.SecretKey,
	)
	if err != nil {
		return fmt.Errorf("could not create binance handle: [%v]", err)
	}

	workerController := daemon.NewWorkerController(
		logger,
		config.Worker.UserID,
		marketService.ExchangeName(),
		tier,
		&daemon.StrategyConfig{
			SizingMethod: sizingMethod,
			RiskPercent:  config.Worker.RiskPercent,
			OrderAmount:  config.Worker.OrderAmount,
		},
		marketService,
		sessionController,
		func(windowSize int) trading.CandleRepository {
			return inmem.NewCandleRepository(windowSize)
		},
		func(
			logger trading.Logger,
			pair trading.Pair,
			candleKey string,
			repository trading.CandleRepository,
		) trading.SignalGenerator {
			return techan.NewSignalGenerator(
				logger,
				pair,
				candleKey,
				repository,
			)
		},
		limiter,
		riskEngine,
		breakers,
	)

	for _, value := range config.Worker.Pairs {
		pair, err := trading.ParsePair(value)
		if err != nil {
			return err
		}

		workerController.ActivateWorker(ctx, pair)
	}

	return nil
}

func parseAssets(values []string) []trading.Asset {
	assets := make([]trading.Asset, len(values))
	for index, value := range values {
		assets[index] = trading.Asset(value)
	}

	return assets
}
