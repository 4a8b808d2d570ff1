package daemon

import (
	"context"
	"fmt"
	"math/big"
	"testing"
	"time"

	"github.com/coinvex/trading"
	"github.com/coinvex/trading/breaker"
	"github.com/coinvex/trading/inmem"
	"github.com/coinvex/trading/ratelimit"
	"github.com/coinvex/trading/risk"
)

func TestCandleKey(t *testing.T) {
	filter := &trading.CandleFilter{
		Pair:     trading.Pair{Base: "BTC", Quote: "USDT"},
		Interval: "1m",
	}

	expectedKey := "BTCUSDT-1m"
	actualKey := CandleKey(filter)

	if actualKey != expectedKey {
		t.Errorf(
			"unexpected key\nexpected: [%v]\nactual:   [%v]",
			expectedKey,
			actualKey,
		)
	}
}

func TestProcessSignal(t *testing.T) {
	orders := &fakeOrderService{}
	worker := newTestWorker(orders)

	err := worker.processSignal(context.Background(), testSignal())
	if err != nil {
		t.Fatal(err)
	}

	if len(orders.requests) != 1 {
		t.Fatalf(
			"unexpected requests count\nexpected: [%v]\nactual:   [%v]",
			1,
			len(orders.requests),
		)
	}

	request := orders.requests[0]

	if request.Side != trading.SideBuy {
		t.Errorf(
			"unexpected order side\nexpected: [%v]\nactual:   [%v]",
			trading.SideBuy,
			request.Side,
		)
	}

	if request.Type != trading.TypeMarket {
		t.Errorf(
			"unexpected order type\nexpected: [%v]\nactual:   [%v]",
			trading.TypeMarket,
			request.Type,
		)
	}

	// 2% of the 100000 seed at an entry of 20000.
	expectedSize := big.NewFloat(0.1)
	if request.Size.Cmp(expectedSize) != 0 {
		t.Errorf(
			"unexpected order size\nexpected: [%v]\nactual:   [%v]",
			expectedSize,
			request.Size,
		)
	}

	positions := worker.riskEngine.Positions()
	if len(positions) != 1 {
		t.Fatalf(
			"unexpected positions count\nexpected: [%v]\nactual:   [%v]",
			1,
			len(positions),
		)
	}
}

func TestProcessSignalRejectedByRiskCheck(t *testing.T) {
	orders := &fakeOrderService{}
	worker := newTestWorker(orders)

	signal := testSignal()
	signal.StopLossTarget = big.NewFloat(0)

	err := worker.processSignal(context.Background(), signal)
	if err != nil {
		t.Fatal(err)
	}

	if len(orders.requests) != 0 {
		t.Errorf(
			"unexpected requests count\nexpected: [%v]\nactual:   [%v]",
			0,
			len(orders.requests),
		)
	}
}

func TestProcessSignalExhaustedOrderBudget(t *testing.T) {
	orders := &fakeOrderService{}
	worker := newTestWorker(orders)

	limits := ratelimit.LimitsForTier(worker.tier)
	for i := 0; i < limits.OrdersPerMinute; i++ {
		worker.limiter.CheckLimit(
			worker.userID,
			"orders",
			limits.OrdersPerMinute,
			time.Minute,
		)
	}

	err := worker.processSignal(context.Background(), testSignal())
	if err != nil {
		t.Fatal(err)
	}

	if len(orders.requests) != 0 {
		t.Errorf(
			"unexpected requests count\nexpected: [%v]\nactual:   [%v]",
			0,
			len(orders.requests),
		)
	}
}

func TestProcessSignalExecutionError(t *testing.T) {
	expectedError := fmt.Errorf("venue rejected the request")

	orders := &fakeOrderService{err: expectedError}
	worker := newTestWorker(orders)

	err := worker.processSignal(context.Background(), testSignal())
	if err != expectedError {
		t.Errorf(
			"unexpected error\nexpected: [%v]\nactual:   [%v]",
			expectedError,
			err,
		)
	}
}

func TestWorkerErrChan(t *testing.T) {
	ctx, cancelCtx := context.WithCancel(context.Background())
	cancelCtx()

	orders := &fakeOrderService{}
	repository := inmem.NewCandleRepository(trading.CandleWindowSize)

	worker := runWorker(
		ctx,
		&noopLogger{},
		"user-1",
		trading.Pair{Base: "BTC", Quote: "USDT"},
		ratelimit.TierFree,
		&StrategyConfig{
			SizingMethod: risk.FixedPercentage,
			RiskPercent:  0.02,
		},
		&fakeSignalGenerator{},
		repository,
		"BTCUSDT-1m",
		orders,
		ratelimit.NewLimiter(inmem.NewMetricsSink()),
		risk.NewEngine(&fakeIDService{}, 100000, nil),
		breaker.NewBreaker("binance", breaker.DefaultConfig()),
	)

	expectedError := fmt.Errorf("signal processing failure")
	worker.errChan <- expectedError

	select {
	case err := <-worker.ErrChan():
		if err != expectedError {
			t.Errorf(
				"unexpected error\nexpected: [%v]\nactual:   [%v]",
				expectedError,
				err,
			)
		}
	case <-time.After(time.Second):
		t.Fatalf("expected an error on the worker error channel")
	}
}

func newTestWorker(orders *fakeOrderService) *worker {
	return &worker{
		logger: &noopLogger{},
		userID: "user-1",
		pair:   trading.Pair{Base: "BTC", Quote: "USDT"},
		tier:   ratelimit.TierFree,
		strategy: &StrategyConfig{
			SizingMethod: risk.FixedPercentage,
			RiskPercent:  0.02,
		},
		signalGenerator:  &fakeSignalGenerator{},
		candleRepository: inmem.NewCandleRepository(trading.CandleWindowSize),
		candleKey:        "BTCUSDT-1m",
		orders:           orders,
		limiter:          ratelimit.NewLimiter(inmem.NewMetricsSink()),
		riskEngine:       risk.NewEngine(&fakeIDService{}, 100000, nil),
		orderBreaker:     breaker.NewBreaker("binance", breaker.DefaultConfig()),
		errChan:          make(chan error, 1),
	}
}

func testSignal() *trading.Signal {
	return &trading.Signal{
		Pair:             trading.Pair{Base: "BTC", Quote: "USDT"},
		Side:             trading.SideBuy,
		EntryTarget:      big.NewFloat(20000),
		TakeProfitTarget: big.NewFloat(21000),
		StopLossTarget:   big.NewFloat(19500),
	}
}

type fakeOrderService struct {
	requests []*trading.OrderRequest
	err      error
}

func (fos *fakeOrderService) CreateOrder(
	ctx context.Context,
	userID string,
	request *trading.OrderRequest,
) (*trading.Order, error) {
	if fos.err != nil {
		return nil, fos.err
	}

	fos.requests = append(fos.requests, request)

	return &trading.Order{
		ID:   fakeID("order-1"),
		Pair: request.Pair,
		Side: request.Side,
		Type: request.Type,
		Size: request.Size,
	}, nil
}

type fakeSignalGenerator struct{}

func (fsg *fakeSignalGenerator) Poll() (*trading.Signal, bool) {
	return nil, false
}

type fakeID string

func (fi fakeID) String() string {
	return string(fi)
}

type fakeIDService struct {
	counter int
}

func (fis *fakeIDService) NewID() trading.ID {
	fis.counter++
	return fakeID(fmt.Sprintf("id-%v", fis.counter))
}

func (fis *fakeIDService) NewIDFromString(id string) (trading.ID, error) {
	return fakeID(id), nil
}

type noopLogger struct{}

func (nl *noopLogger) Debugf(format string, args ...interface{})   {}
func (nl *noopLogger) Infof(format string, args ...interface{})    {}
func (nl *noopLogger) Warningf(format string, args ...interface{}) {}
func (nl *noopLogger) Errorf(format string, args ...interface{})   {}
func (nl *noopLogger) Fatalf(format string, args ...interface{})   {}

func (nl *noopLogger) WithField(
	key string,
	value interface{},
) trading.Logger {
	return nl
}

func (nl *noopLogger) WithFields(
	fields map[string]interface{},
) trading.Logger {
	return nl
}
