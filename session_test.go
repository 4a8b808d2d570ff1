package trading

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"
	"time"
)

func TestSessionController_ConnectExchange(t *testing.T) {
	controller, services := newTestController(t)

	state, err := controller.ConnectExchange(
		context.Background(),
		"user",
		testID("credential"),
	)
	if err != nil {
		t.Fatal(err)
	}

	if !state.IsConnected || !state.CanTrade {
		t.Errorf("expected a connected, tradeable session")
	}

	// Every session starts in paper mode.
	if state.Mode != ModePaper {
		t.Errorf(
			"unexpected mode\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			ModePaper,
			state.Mode,
		)
	}

	if _, err := controller.CreateOrder(
		context.Background(),
		"user",
		&OrderRequest{},
	); err != nil {
		t.Fatal(err)
	}

	if services.paper.createOrderCalls != 1 {
		t.Errorf("expected order to route to the paper engine")
	}

	if services.live.createOrderCalls != 0 {
		t.Errorf("expected no order on the live service")
	}
}

func TestSessionController_ConnectExchange_BadCredentials(t *testing.T) {
	controller, services := newTestController(t)
	services.live.testConnectionErr = fmt.Errorf("invalid api key")

	_, err := controller.ConnectExchange(
		context.Background(),
		"user",
		testID("credential"),
	)

	var connectionError *ConnectionError
	if !errors.As(err, &connectionError) {
		t.Fatalf("expected connection error, got [%v]", err)
	}

	if controller.SessionState("user").IsConnected {
		t.Errorf("expected no session after a failed verification")
	}
}

func TestSessionController_ConnectExchange_UnsupportedExchange(t *testing.T) {
	controller, _ := newTestController(t)

	_, err := controller.ConnectExchange(
		context.Background(),
		"user",
		testID("other-venue"),
	)

	var connectionError *ConnectionError
	if !errors.As(err, &connectionError) {
		t.Fatalf("expected connection error, got [%v]", err)
	}
}

func TestSessionController_SwitchMode_RequiresAcknowledgment(t *testing.T) {
	controller, _ := newTestController(t)

	if _, err := controller.ConnectExchange(
		context.Background(),
		"user",
		testID("credential"),
	); err != nil {
		t.Fatal(err)
	}

	err := controller.SwitchMode("user", ModeLive, false)
	if err == nil {
		t.Fatalf("expected unacknowledged live switch to fail")
	}

	// A failed switch leaves the session untouched.
	if controller.SessionState("user").Mode != ModePaper {
		t.Errorf("expected session to stay in paper mode")
	}
}

func TestSessionController_SwitchMode_Live(t *testing.T) {
	controller, services := newTestController(t)

	if _, err := controller.ConnectExchange(
		context.Background(),
		"user",
		testID("credential"),
	); err != nil {
		t.Fatal(err)
	}

	if err := controller.SwitchMode("user", ModeLive, true); err != nil {
		t.Fatal(err)
	}

	if controller.SessionState("user").Mode != ModeLive {
		t.Fatalf("expected session in live mode")
	}

	if _, err := controller.CreateOrder(
		context.Background(),
		"user",
		&OrderRequest{},
	); err != nil {
		t.Fatal(err)
	}

	if services.live.createOrderCalls != 1 {
		t.Errorf("expected order to route to the live service")
	}

	// Switching back to paper needs no acknowledgment.
	if err := controller.SwitchMode("user", ModePaper, false); err != nil {
		t.Fatal(err)
	}
}

func TestSessionController_SwitchMode_NoSession(t *testing.T) {
	controller, _ := newTestController(t)

	err := controller.SwitchMode("user", ModePaper, false)

	var noSessionError *NoSessionError
	if !errors.As(err, &noSessionError) {
		t.Fatalf("expected no session error, got [%v]", err)
	}
}

func TestSessionController_Operations_NoSession(t *testing.T) {
	controller, _ := newTestController(t)

	_, err := controller.Balances(context.Background(), "user")

	var noSessionError *NoSessionError
	if !errors.As(err, &noSessionError) {
		t.Fatalf("expected no session error, got [%v]", err)
	}
}

func TestSessionController_DisconnectExchange(t *testing.T) {
	controller, services := newTestController(t)

	if _, err := controller.ConnectExchange(
		context.Background(),
		"user",
		testID("credential"),
	); err != nil {
		t.Fatal(err)
	}

	// A failing venue-side disconnect is logged, not propagated.
	services.live.disconnectErr = fmt.Errorf("connection reset")

	if err := controller.DisconnectExchange(
		context.Background(),
		"user",
	); err != nil {
		t.Fatal(err)
	}

	if controller.SessionState("user").IsConnected {
		t.Errorf("expected session to be destroyed")
	}

	err := controller.DisconnectExchange(context.Background(), "user")

	var noSessionError *NoSessionError
	if !errors.As(err, &noSessionError) {
		t.Fatalf("expected no session error, got [%v]", err)
	}
}

func TestSessionController_FlushHistory(t *testing.T) {
	controller, services := newTestController(t)

	pair := Pair{Base: "BTC", Quote: "USDT"}

	services.paper.orderHistory = []*Order{
		{ID: testID("order-1"), Pair: pair},
	}
	services.paper.tradeHistory = []*Trade{
		{ID: testID("trade-1"), OrderID: testID("order-1"), Pair: pair},
	}

	if _, err := controller.ConnectExchange(
		context.Background(),
		"user",
		testID("credential"),
	); err != nil {
		t.Fatal(err)
	}

	if err := controller.FlushHistory(
		context.Background(),
		"user",
		pair,
	); err != nil {
		t.Fatal(err)
	}

	if len(services.archive.orders) != 1 {
		t.Errorf(
			"unexpected archived orders count\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			1,
			len(services.archive.orders),
		)
	}

	if len(services.archive.trades) != 1 {
		t.Errorf(
			"unexpected archived trades count\n"+
				"expected: [%v]\n"+
				"actual:   [%v]",
			1,
			len(services.archive.trades),
		)
	}
}

func TestSessionController_Metrics(t *testing.T) {
	controller, services := newTestController(t)

	if _, err := controller.ConnectExchange(
		context.Background(),
		"user",
		testID("credential"),
	); err != nil {
		t.Fatal(err)
	}

	if _, err := controller.CreateOrder(
		context.Background(),
		"user",
		&OrderRequest{},
	); err != nil {
		t.Fatal(err)
	}

	if err := controller.SwitchMode("user", ModeLive, true); err != nil {
		t.Fatal(err)
	}

	if err := controller.DisconnectExchange(
		context.Background(),
		"user",
	); err != nil {
		t.Fatal(err)
	}

	expectedCounts := map[string]int64{
		"sessions.connected":     1,
		"orders.created":         1,
		"sessions.mode_switches": 1,
		"sessions.disconnected":  1,
	}

	for name, expectedCount := range expectedCounts {
		actualCount := services.metrics.counts[name]
		if actualCount != expectedCount {
			t.Errorf(
				"unexpected [%v] count\n"+
					"expected: [%v]\n"+
					"actual:   [%v]",
				name,
				expectedCount,
				actualCount,
			)
		}
	}

	if services.metrics.timings["orders.create_latency"] != 1 {
		t.Errorf("expected one order latency measurement")
	}
}

type testServices struct {
	live    *stubService
	paper   *stubService
	archive *stubArchive
	metrics *recordingMetricsSink
}

func newTestController(t *testing.T) (*SessionController, *testServices) {
	services := &testServices{
		live:    &stubService{name: "live"},
		paper:   &stubService{name: "paper"},
		archive: &stubArchive{},
		metrics: &recordingMetricsSink{},
	}

	credentials := &stubCredentialRepository{
		credentials: map[string]*Credentials{
			"credential": {
				ID:       testID("credential"),
				Exchange: "stub",
			},
			"other-venue": {
				ID:       testID("other-venue"),
				Exchange: "unknown",
			},
		},
	}

	controller := NewSessionController(
		&discardLogger{},
		credentials,
		map[string]ExchangeConnector{
			"stub": &stubConnector{service: services.live},
		},
		func(live ExchangeService) ExchangeService {
			return services.paper
		},
		services.archive,
		services.metrics,
	)

	return controller, services
}

type recordingMetricsSink struct {
	counts  map[string]int64
	timings map[string]int
}

func (rms *recordingMetricsSink) Count(
	name string,
	delta int64,
	tags map[string]string,
) {
	if rms.counts == nil {
		rms.counts = make(map[string]int64)
	}

	rms.counts[name] += delta
}

func (rms *recordingMetricsSink) Gauge(
	name string,
	value float64,
	tags map[string]string,
) {
}

func (rms *recordingMetricsSink) Timing(
	name string,
	duration time.Duration,
	tags map[string]string,
) {
	if rms.timings == nil {
		rms.timings = make(map[string]int)
	}

	rms.timings[name]++
}

type testID string

func (ti testID) String() string {
	return string(ti)
}

type stubCredentialRepository struct {
	credentials map[string]*Credentials
}

func (scr *stubCredentialRepository) Credentials(
	id ID,
) (*Credentials, error) {
	credentials, exists := scr.credentials[id.String()]
	if !exists {
		return nil, fmt.Errorf("unknown credentials: [%v]", id)
	}

	return credentials, nil
}

type stubConnector struct {
	service *stubService
}

func (sc *stubConnector) Connect(
	ctx context.Context,
	credentials *Credentials,
) (ExchangeService, error) {
	return sc.service, nil
}

type stubArchive struct {
	orders []*Order
	trades []*Trade
}

func (sa *stubArchive) ArchiveOrder(userID string, order *Order) error {
	sa.orders = append(sa.orders, order)
	return nil
}

func (sa *stubArchive) ArchiveTrade(userID string, trade *Trade) error {
	sa.trades = append(sa.trades, trade)
	return nil
}

type stubService struct {
	name              string
	createOrderCalls  int
	testConnectionErr error
	disconnectErr     error
	orderHistory      []*Order
	tradeHistory      []*Trade
}

func (ss *stubService) ExchangeName() string {
	return ss.name
}

func (ss *stubService) TestConnection(ctx context.Context) error {
	return ss.testConnectionErr
}

func (ss *stubService) Disconnect(ctx context.Context) error {
	return ss.disconnectErr
}

func (ss *stubService) Ticker(
	ctx context.Context,
	pair Pair,
) (*Ticker, error) {
	return &Ticker{Pair: pair, Price: big.NewFloat(1)}, nil
}

func (ss *stubService) Tickers(
	ctx context.Context,
	pairs []Pair,
) ([]*Ticker, error) {
	return nil, nil
}

func (ss *stubService) OrderBook(
	ctx context.Context,
	pair Pair,
	depth int,
) (*OrderBook, error) {
	return &OrderBook{Pair: pair}, nil
}

func (ss *stubService) TradingPairs(ctx context.Context) ([]*PairInfo, error) {
	return nil, nil
}

func (ss *stubService) Candles(
	ctx context.Context,
	filter *CandleFilter,
) ([]*Candle, error) {
	return nil, nil
}

func (ss *stubService) CandlesTicker(
	ctx context.Context,
	filter *CandleFilter,
) (<-chan *CandleTick, <-chan error) {
	return make(chan *CandleTick), make(chan error)
}

func (ss *stubService) Balances(ctx context.Context) (Balances, error) {
	return make(Balances), nil
}

func (ss *stubService) Balance(
	ctx context.Context,
	asset Asset,
) (*Balance, error) {
	return NewBalance(asset, big.NewFloat(0), big.NewFloat(0)), nil
}

func (ss *stubService) CreateOrder(
	ctx context.Context,
	request *OrderRequest,
) (*Order, error) {
	ss.createOrderCalls++

	return &Order{
		ID:     testID(fmt.Sprintf("%v-%v", ss.name, ss.createOrderCalls)),
		Status: StatusFilled,
		Time:   time.Now(),
	}, nil
}

func (ss *stubService) CancelOrder(
	ctx context.Context,
	pair Pair,
	orderID ID,
) (bool, error) {
	return false, nil
}

func (ss *stubService) Order(
	ctx context.Context,
	pair Pair,
	orderID ID,
) (*Order, error) {
	return nil, fmt.Errorf("unknown order: [%v]", orderID)
}

func (ss *stubService) OpenOrders(
	ctx context.Context,
	pair Pair,
) ([]*Order, error) {
	return nil, nil
}

func (ss *stubService) OrderHistory(
	ctx context.Context,
	pair Pair,
) ([]*Order, error) {
	return ss.orderHistory, nil
}

func (ss *stubService) Positions(ctx context.Context) ([]*Position, error) {
	return nil, nil
}

func (ss *stubService) Trades(
	ctx context.Context,
	pair Pair,
) ([]*Trade, error) {
	return ss.tradeHistory, nil
}

type discardLogger struct{}

func (dl *discardLogger) Debugf(format string, args ...interface{})   {}
func (dl *discardLogger) Infof(format string, args ...interface{})    {}
func (dl *discardLogger) Warningf(format string, args ...interface{}) {}
func (dl *discardLogger) Errorf(format string, args ...interface{})   {}
func (dl *discardLogger) Fatalf(format string, args ...interface{})   {}

func (dl *discardLogger) WithField(key string, value interface{}) Logger {
	return dl
}

func (dl *discardLogger) WithFields(fields map[string]interface{}) Logger {
	return dl
}
