package daemon

import (
	"context"
	"errors"
	"math"
	"math/big"
	"strconv"
	"sync"
	"time"

	"github.com/coinvex/trading"
	"github.com/coinvex/trading/breaker"
	"github.com/coinvex/trading/ratelimit"
	"github.com/coinvex/trading/risk"
)

const (
	workerTick           = 5 * time.Second
	workerRestartBackoff = 10 * time.Second

	volatilityLookback = 20
)

type CandleRepositoryFactoryFn func(windowSize int) trading.CandleRepository

type SignalGeneratorFactoryFn func(
	logger trading.Logger,
	pair trading.Pair,
	candleKey string,
	repository trading.CandleRepository,
) trading.SignalGenerator

type orderService interface {
	CreateOrder(
		ctx context.Context,
		userID string,
		request *trading.OrderRequest,
	) (*trading.Order, error)
}

// StrategyConfig selects the sizing behavior of all workers spawned by
// one controller.
type StrategyConfig struct {
	SizingMethod risk.SizingMethod
	RiskPercent  float64
	OrderAmount  float64
}

// WorkerController spawns and supervises one strategy worker per pair.
// A failed worker is restarted with a backoff; deactivation happens
// through the controller context.
type WorkerController struct {
	logger        trading.Logger
	userID        string
	exchangeName  string
	tier          ratelimit.Tier
	strategy      *StrategyConfig
	marketService trading.ExchangeMarketService
	orders        orderService

	candleRepositoryFactory CandleRepositoryFactoryFn
	signalGeneratorFactory  SignalGeneratorFactoryFn

	limiter    *ratelimit.Limiter
	riskEngine *risk.Engine
	breakers   *breaker.Registry

	workersMutex sync.Mutex
	workers      map[trading.PairSymbol]bool
}

func NewWorkerController(
	logger trading.Logger,
	userID string,
	exchangeName string,
	tier ratelimit.Tier,
	strategy *StrategyConfig,
	marketService trading.ExchangeMarketService,
	orders orderService,
	candleRepositoryFactory CandleRepositoryFactoryFn,
	signalGeneratorFactory SignalGeneratorFactoryFn,
	limiter *ratelimit.Limiter,
	riskEngine *risk.Engine,
	breakers *breaker.Registry,
) *WorkerController {
	return &WorkerController{
		logger:                  logger,
		userID:                  userID,
		exchangeName:            exchangeName,
		tier:                    tier,
		strategy:                strategy,
		marketService:           marketService,
		orders:                  orders,
		candleRepositoryFactory: candleRepositoryFactory,
		signalGeneratorFactory:  signalGeneratorFactory,
		limiter:                 limiter,
		riskEngine:              riskEngine,
		breakers:                breakers,
		workers:                 make(map[trading.PairSymbol]bool),
	}
}

func (wc *WorkerController) ActivateWorker(
	ctx context.Context,
	pair trading.Pair,
) {
	wc.workersMutex.Lock()
	defer wc.workersMutex.Unlock()

	workerLogger := wc.logger.WithFields(
		map[string]interface{}{
			"exchange": wc.exchangeName,
			"pair":     pair.String(),
			"interval": trading.CandleInterval,
		},
	)

	if _, exists := wc.workers[pair.Symbol()]; exists {
		workerLogger.Warningf("worker is already active")
		return
	}

	workerLogger.Infof("activating worker")

	wc.workers[pair.Symbol()] = true

	go func() {
		defer func() {
			wc.workersMutex.Lock()
			defer wc.workersMutex.Unlock()

			workerLogger.Infof("deactivating worker")

			delete(wc.workers, pair.Symbol())
		}()

		for {
			if ctx.Err() != nil {
				return
			}

			wc.runWorker(ctx, workerLogger, pair)

			time.Sleep(workerRestartBackoff)
		}
	}()
}

func (wc *WorkerController) ActiveWorkers() int {
	wc.workersMutex.Lock()
	defer wc.workersMutex.Unlock()

	return len(wc.workers)
}

func (wc *WorkerController) runWorker(
	ctx context.Context,
	workerLogger trading.Logger,
	pair trading.Pair,
) {
	workerLogger.Infof("running worker")
	defer workerLogger.Infof("terminating worker")

	workerCtx, cancelWorkerCtx := context.WithCancel(ctx)
	defer cancelWorkerCtx()

	now := time.Now()

	filter := &trading.CandleFilter{
		Pair:      pair,
		Interval:  trading.CandleInterval,
		StartTime: now.Add(-trading.CandleWindowSize * time.Minute),
		EndTime:   now,
	}

	candleRepository := wc.candleRepositoryFactory(trading.CandleWindowSize)

	candleMonitor := RunCandleMonitor(
		workerCtx,
		workerLogger,
		wc.marketService,
		filter,
		candleRepository,
	)

	worker := runWorker(
		workerCtx,
		workerLogger,
		wc.userID,
		pair,
		wc.tier,
		wc.strategy,
		wc.signalGeneratorFactory(
			workerLogger,
			pair,
			CandleKey(filter),
			candleRepository,
		),
		candleRepository,
		CandleKey(filter),
		wc.orders,
		wc.limiter,
		wc.riskEngine,
		wc.breakers.Breaker(wc.exchangeName),
	)

	for {
		select {
		case err := <-candleMonitor.ErrChan():
			workerLogger.Errorf("candle monitor error: [%v]", err)
			return
		case err := <-worker.ErrChan():
			workerLogger.Errorf("worker error: [%v]", err)
			return
		case <-workerCtx.Done():
			workerLogger.Infof("worker context is done")
			return
		}
	}
}

type worker struct {
	logger           trading.Logger
	userID           string
	pair             trading.Pair
	tier             ratelimit.Tier
	strategy         *StrategyConfig
	signalGenerator  trading.SignalGenerator
	candleRepository trading.CandleRepository
	candleKey        string
	orders           orderService
	limiter          *ratelimit.Limiter
	riskEngine       *risk.Engine
	orderBreaker     *breaker.Breaker
	errChan          chan error
}

func runWorker(
	ctx context.Context,
	logger trading.Logger,
	userID string,
	pair trading.Pair,
	tier ratelimit.Tier,
	strategy *StrategyConfig,
	signalGenerator trading.SignalGenerator,
	candleRepository trading.CandleRepository,
	candleKey string,
	orders orderService,
	limiter *ratelimit.Limiter,
	riskEngine *risk.Engine,
	orderBreaker *breaker.Breaker,
) *worker {
	w := &worker{
		logger:           logger,
		userID:           userID,
		pair:             pair,
		tier:             tier,
		strategy:         strategy,
		signalGenerator:  signalGenerator,
		candleRepository: candleRepository,
		candleKey:        candleKey,
		orders:           orders,
		limiter:          limiter,
		riskEngine:       riskEngine,
		orderBreaker:     orderBreaker,
		errChan:          make(chan error, 1),
	}

	go w.loop(ctx)

	return w
}

func (w *worker) ErrChan() <-chan error {
	return w.errChan
}

func (w *worker) loop(ctx context.Context) {
	ticker := time.NewTicker(workerTick)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if signal, exists := w.signalGenerator.Poll(); exists {
				w.logger.Infof("received signal [%v]", signal)

				if err := w.processSignal(ctx, signal); err != nil {
					w.errChan <- err
					return
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

func (w *worker) processSignal(
	ctx context.Context,
	signal *trading.Signal,
) error {
	limits := ratelimit.LimitsForTier(w.tier)

	result := w.limiter.CheckLimit(
		w.userID,
		"orders",
		limits.OrdersPerMinute,
		time.Minute,
	)
	if !result.Allowed {
		w.logger.Warningf(
			"order budget exhausted; retry after [%v]",
			result.RetryAfter,
		)
		return nil
	}

	entry, _ := signal.EntryTarget.Float64()
	stopLoss, _ := signal.StopLossTarget.Float64()
	takeProfit, _ := signal.TakeProfitTarget.Float64()

	currentVolatility, averageVolatility := w.volatility()

	notional, err := w.riskEngine.CalculatePosition(
		w.strategy.SizingMethod,
		w.strategy.RiskPercent,
		w.strategy.OrderAmount,
		currentVolatility,
		averageVolatility,
	)
	if err != nil {
		return err
	}

	size := notional / entry

	verdict := w.riskEngine.CheckTradeRisk(
		w.pair,
		signal.Side,
		size,
		entry,
		stopLoss,
		takeProfit,
	)

	for _, warning := range verdict.Warnings {
		w.logger.Warningf("trade risk warning: [%v]", warning)
	}

	if !verdict.Allowed {
		w.logger.Infof("trade rejected: [%v]", verdict.Reason)
		return nil
	}

	if verdict.AdjustedSize > 0 {
		size = verdict.AdjustedSize
	}

	request := &trading.OrderRequest{
		Pair: w.pair,
		Side: signal.Side,
		Type: trading.TypeMarket,
		Size: big.NewFloat(size),
	}

	orderResult, err := w.orderBreaker.Execute(
		ctx,
		func(callCtx context.Context) (interface{}, error) {
			return w.orders.CreateOrder(callCtx, w.userID, request)
		},
	)
	if err != nil {
		var breakerError *trading.CircuitBreakerError
		if errors.As(err, &breakerError) {
			w.logger.Warningf("order suppressed: [%v]", err)
			return nil
		}

		var balanceError *trading.InsufficientBalanceError
		if errors.As(err, &balanceError) {
			w.logger.Warningf("order rejected: [%v]", err)
			return nil
		}

		return err
	}

	order := orderResult.(*trading.Order)

	w.logger.Infof("created order [%v]", order)

	w.riskEngine.OpenPosition(
		w.pair,
		signal.Side,
		size,
		entry,
		stopLoss,
		takeProfit,
	)

	return nil
}

// volatility derives the sample deviation of simple close-to-close
// returns over the short lookback and over the whole candle window.
func (w *worker) volatility() (float64, float64) {
	candles := w.candleRepository.Candles(w.candleKey)

	closes := make([]float64, 0, len(candles))
	for _, candle := range candles {
		value, err := strconv.ParseFloat(candle.ClosePrice, 64)
		if err != nil {
			continue
		}

		closes = append(closes, value)
	}

	average := deviationOfReturns(closes)

	if len(closes) > volatilityLookback {
		closes = closes[len(closes)-volatilityLookback:]
	}

	return deviationOfReturns(closes), average
}

func deviationOfReturns(closes []float64) float64 {
	if len(closes) < 2 {
		return 0
	}

	returns := make([]float64, 0, len(closes)-1)
	for index := 1; index < len(closes); index++ {
		if closes[index-1] == 0 {
			continue
		}

		returns = append(
			returns,
			(closes[index]-closes[index-1])/closes[index-1],
		)
	}

	if len(returns) < 2 {
		return 0
	}

	var sum float64
	for _, value := range returns {
		sum += value
	}
	mean := sum / float64(len(returns))

	var squares float64
	for _, value := range returns {
		squares += (value - mean) * (value - mean)
	}

	return math.Sqrt(squares / float64(len(returns)-1))
}
