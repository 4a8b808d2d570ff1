package trading

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type Mode int

const (
	ModePaper Mode = iota
	ModeLive
)

func ParseMode(value string) (Mode, error) {
	switch value {
	case "PAPER":
		return ModePaper, nil
	case "LIVE":
		return ModeLive, nil
	}

	return -1, fmt.Errorf("unknown trading mode: [%v]", value)
}

func (m Mode) String() string {
	switch m {
	case ModePaper:
		return "PAPER"
	case ModeLive:
		return "LIVE"
	default:
		panic("unknown trading mode")
	}
}

// PaperEngineFactoryFn builds the paper execution engine decorating a
// live exchange service. Injected by the composition root.
type PaperEngineFactoryFn func(live ExchangeService) ExchangeService

// Session is the per-user singleton holding both execution adapters
// and the currently selected mode. Sessions live from a successful
// credential verification until an explicit disconnect.
type Session struct {
	UserID       string
	ExchangeID   string
	ExchangeName string
	Mode         Mode
	CreationTime time.Time

	live  ExchangeService
	paper ExchangeService
}

func (s *Session) activeService() ExchangeService {
	if s.Mode == ModeLive {
		return s.live
	}

	return s.paper
}

// SessionState is the session summary exposed to the outer layers.
// CanTrade is the single predicate callers must check before allowing
// any order.
type SessionState struct {
	Mode         Mode
	ExchangeID   string
	ExchangeName string
	IsConnected  bool
	CanTrade     bool
}

// SessionController owns the per-user selection between the live
// exchange adapter and the paper engine wrapping it. Every user starts
// in paper mode and must acknowledge the switch to live explicitly.
type SessionController struct {
	logger               Logger
	credentialRepository CredentialRepository
	connectors           map[string]ExchangeConnector
	paperEngineFactory   PaperEngineFactoryFn
	archive              Archive
	metrics              MetricsSink

	sessionsMutex sync.Mutex
	sessions      map[string]*Session
}

func NewSessionController(
	logger Logger,
	credentialRepository CredentialRepository,
	connectors map[string]ExchangeConnector,
	paperEngineFactory PaperEngineFactoryFn,
	archive Archive,
	metrics MetricsSink,
) *SessionController {
	return &SessionController{
		logger:               logger,
		credentialRepository: credentialRepository,
		connectors:           connectors,
		paperEngineFactory:   paperEngineFactory,
		archive:              archive,
		metrics:              metrics,
		sessions:             make(map[string]*Session),
	}
}

// ConnectExchange resolves the stored credentials, verifies them
// against the venue and creates the user's session in paper mode.
func (sc *SessionController) ConnectExchange(
	ctx context.Context,
	userID string,
	credentialID ID,
) (*SessionState, error) {
	credentials, err := sc.credentialRepository.Credentials(credentialID)
	if err != nil {
		return nil, fmt.Errorf("could not resolve credentials: [%v]", err)
	}

	connector, exists := sc.connectors[credentials.Exchange]
	if !exists {
		return nil, &ConnectionError{
			Exchange: credentials.Exchange,
			Cause: fmt.Errorf(
				"unsupported exchange: [%v]",
				credentials.Exchange,
			),
		}
	}

	connectionTags := map[string]string{"exchange": credentials.Exchange}

	live, err := connector.Connect(ctx, credentials)
	if err != nil {
		sc.metrics.Count("sessions.connect_failures", 1, connectionTags)
		return nil, &ConnectionError{
			Exchange: credentials.Exchange,
			Cause:    err,
		}
	}

	if err := live.TestConnection(ctx); err != nil {
		sc.metrics.Count("sessions.connect_failures", 1, connectionTags)
		return nil, &ConnectionError{
			Exchange: credentials.Exchange,
			Cause:    err,
		}
	}

	session := &Session{
		UserID:       userID,
		ExchangeID:   credentialID.String(),
		ExchangeName: live.ExchangeName(),
		Mode:         ModePaper,
		CreationTime: time.Now(),
		live:         live,
		paper:        sc.paperEngineFactory(live),
	}

	sc.sessionsMutex.Lock()
	sc.sessions[userID] = session
	sc.sessionsMutex.Unlock()

	sc.metrics.Count("sessions.connected", 1, connectionTags)

	sc.logger.WithFields(map[string]interface{}{
		"userID":   userID,
		"exchange": session.ExchangeName,
	}).Infof("trading session created in [%v] mode", session.Mode)

	return sc.SessionState(userID), nil
}

// SwitchMode toggles between paper and live execution. Switching to
// live requires an explicit acknowledgment; the switch itself is a
// pure state change and moves no balances.
func (sc *SessionController) SwitchMode(
	userID string,
	mode Mode,
	acknowledged bool,
) error {
	if mode == ModeLive && !acknowledged {
		return fmt.Errorf(
			"switching to live mode requires explicit acknowledgment",
		)
	}

	sc.sessionsMutex.Lock()
	defer sc.sessionsMutex.Unlock()

	session, exists := sc.sessions[userID]
	if !exists {
		return &NoSessionError{UserID: userID}
	}

	session.Mode = mode

	sc.metrics.Count(
		"sessions.mode_switches",
		1,
		map[string]string{"mode": mode.String()},
	)

	sc.logger.WithField("userID", userID).
		Infof("trading mode switched to [%v]", mode)

	return nil
}

func (sc *SessionController) SessionState(userID string) *SessionState {
	sc.sessionsMutex.Lock()
	defer sc.sessionsMutex.Unlock()

	session, exists := sc.sessions[userID]
	if !exists {
		return &SessionState{
			Mode:        ModePaper,
			IsConnected: false,
			CanTrade:    false,
		}
	}

	return &SessionState{
		Mode:         session.Mode,
		ExchangeID:   session.ExchangeID,
		ExchangeName: session.ExchangeName,
		IsConnected:  true,
		CanTrade:     true,
	}
}

// DisconnectExchange tears the session down. Venue-side disconnect
// failures are logged but not fatal.
func (sc *SessionController) DisconnectExchange(
	ctx context.Context,
	userID string,
) error {
	sc.sessionsMutex.Lock()
	session, exists := sc.sessions[userID]
	delete(sc.sessions, userID)
	sc.sessionsMutex.Unlock()

	if !exists {
		return &NoSessionError{UserID: userID}
	}

	if err := session.live.Disconnect(ctx); err != nil {
		sc.logger.WithField("userID", userID).Warningf(
			"could not disconnect exchange cleanly: [%v]",
			err,
		)
	}

	sc.metrics.Count(
		"sessions.disconnected",
		1,
		map[string]string{"exchange": session.ExchangeName},
	)

	sc.logger.WithField("userID", userID).Infof("trading session destroyed")

	return nil
}

// FlushHistory archives the active adapter's order and trade history
// for the given pair through the external store port. Ledgers are
// ephemeral otherwise.
func (sc *SessionController) FlushHistory(
	ctx context.Context,
	userID string,
	pair Pair,
) error {
	service, err := sc.service(userID)
	if err != nil {
		return err
	}

	orders, err := service.OrderHistory(ctx, pair)
	if err != nil {
		return fmt.Errorf("could not get order history: [%v]", err)
	}

	for _, order := range orders {
		if err := sc.archive.ArchiveOrder(userID, order); err != nil {
			return fmt.Errorf(
				"could not archive order [%v]: [%v]",
				order.ID,
				err,
			)
		}
	}

	trades, err := service.Trades(ctx, pair)
	if err != nil {
		return fmt.Errorf("could not get trades: [%v]", err)
	}

	for _, trade := range trades {
		if err := sc.archive.ArchiveTrade(userID, trade); err != nil {
			return fmt.Errorf(
				"could not archive trade [%v]: [%v]",
				trade.ID,
				err,
			)
		}
	}

	return nil
}

func (sc *SessionController) service(userID string) (ExchangeService, error) {
	sc.sessionsMutex.Lock()
	defer sc.sessionsMutex.Unlock()

	session, exists := sc.sessions[userID]
	if !exists {
		return nil, &NoSessionError{UserID: userID}
	}

	return session.activeService(), nil
}

// Market-data, account, trading and portfolio operations below are
// pure delegation to whichever adapter matches the session's mode.

func (sc *SessionController) Ticker(
	ctx context.Context,
	userID string,
	pair Pair,
) (*Ticker, error) {
	service, err := sc.service(userID)
	if err != nil {
		return nil, err
	}

	return service.Ticker(ctx, pair)
}

func (sc *SessionController) Tickers(
	ctx context.Context,
	userID string,
	pairs []Pair,
) ([]*Ticker, error) {
	service, err := sc.service(userID)
	if err != nil {
		return nil, err
	}

	return service.Tickers(ctx, pairs)
}

func (sc *SessionController) OrderBook(
	ctx context.Context,
	userID string,
	pair Pair,
	depth int,
) (*OrderBook, error) {
	service, err := sc.service(userID)
	if err != nil {
		return nil, err
	}

	return service.OrderBook(ctx, pair, depth)
}

func (sc *SessionController) TradingPairs(
	ctx context.Context,
	userID string,
) ([]*PairInfo, error) {
	service, err := sc.service(userID)
	if err != nil {
		return nil, err
	}

	return service.TradingPairs(ctx)
}

func (sc *SessionController) Balances(
	ctx context.Context,
	userID string,
) (Balances, error) {
	service, err := sc.service(userID)
	if err != nil {
		return nil, err
	}

	return service.Balances(ctx)
}

func (sc *SessionController) Balance(
	ctx context.Context,
	userID string,
	asset Asset,
) (*Balance, error) {
	service, err := sc.service(userID)
	if err != nil {
		return nil, err
	}

	return service.Balance(ctx, asset)
}

func (sc *SessionController) CreateOrder(
	ctx context.Context,
	userID string,
	request *OrderRequest,
) (*Order, error) {
	service, err := sc.service(userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()

	order, err := service.CreateOrder(ctx, request)

	tags := map[string]string{"pair": request.Pair.String()}
	sc.metrics.Timing("orders.create_latency", time.Since(start), tags)

	if err != nil {
		sc.metrics.Count("orders.failures", 1, tags)
		return nil, err
	}

	sc.metrics.Count("orders.created", 1, tags)

	return order, nil
}

func (sc *SessionController) CancelOrder(
	ctx context.Context,
	userID string,
	pair Pair,
	orderID ID,
) (bool, error) {
	service, err := sc.service(userID)
	if err != nil {
		return false, err
	}

	return service.CancelOrder(ctx, pair, orderID)
}

func (sc *SessionController) Order(
	ctx context.Context,
	userID string,
	pair Pair,
	orderID ID,
) (*Order, error) {
	service, err := sc.service(userID)
	if err != nil {
		return nil, err
	}

	return service.Order(ctx, pair, orderID)
}

func (sc *SessionController) OpenOrders(
	ctx context.Context,
	userID string,
	pair Pair,
) ([]*Order, error) {
	service, err := sc.service(userID)
	if err != nil {
		return nil, err
	}

	return service.OpenOrders(ctx, pair)
}

func (sc *SessionController) OrderHistory(
	ctx context.Context,
	userID string,
	pair Pair,
) ([]*Order, error) {
	service, err := sc.service(userID)
	if err != nil {
		return nil, err
	}

	return service.OrderHistory(ctx, pair)
}

func (sc *SessionController) Positions(
	ctx context.Context,
	userID string,
) ([]*Position, error) {
	service, err := sc.service(userID)
	if err != nil {
		return nil, err
	}

	return service.Positions(ctx)
}

func (sc *SessionController) Trades(
	ctx context.Context,
	userID string,
	pair Pair,
) ([]*Trade, error) {
	service, err := sc.service(userID)
	if err != nil {
		return nil, err
	}

	return service.Trades(ctx, pair)
}
