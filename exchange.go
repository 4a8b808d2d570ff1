package trading

import (
	"context"
	"math/big"
)

// Credentials identify one user's account on one venue. They are
// handed to the core already decrypted by the external credential
// store and must never be logged.
type Credentials struct {
	ID         ID
	Exchange   string
	ApiKey     string
	SecretKey  string
	Passphrase string
}

// CredentialRepository is the port to the external credential store.
type CredentialRepository interface {
	Credentials(id ID) (*Credentials, error)
}

// ExchangeConnector constructs a venue-specific ExchangeService for
// the given credentials. Construction alone does not validate the
// credentials; TestConnection does.
type ExchangeConnector interface {
	Connect(ctx context.Context, credentials *Credentials) (ExchangeService, error)
}

// ExchangeService is the uniform contract every venue adapter and the
// paper execution engine implement. All operations are network calls
// (or delegations to one) and may fail with an ExchangeError.
type ExchangeService interface {
	ExchangeMarketService
	ExchangeAccountService
	ExchangeOrderService
	ExchangePortfolioService

	ExchangeName() string

	// TestConnection must succeed before a trading session is
	// created. It is the sole gate preventing trading with bad
	// credentials.
	TestConnection(ctx context.Context) error

	Disconnect(ctx context.Context) error
}

type ExchangeMarketService interface {
	Ticker(ctx context.Context, pair Pair) (*Ticker, error)

	Tickers(ctx context.Context, pairs []Pair) ([]*Ticker, error)

	OrderBook(ctx context.Context, pair Pair, depth int) (*OrderBook, error)

	TradingPairs(ctx context.Context) ([]*PairInfo, error)

	Candles(ctx context.Context, filter *CandleFilter) ([]*Candle, error)

	CandlesTicker(
		ctx context.Context,
		filter *CandleFilter,
	) (<-chan *CandleTick, <-chan error)
}

type ExchangeAccountService interface {
	Balances(ctx context.Context) (Balances, error)

	Balance(ctx context.Context, asset Asset) (*Balance, error)
}

type ExchangeOrderService interface {
	CreateOrder(ctx context.Context, request *OrderRequest) (*Order, error)

	CancelOrder(ctx context.Context, pair Pair, orderID ID) (bool, error)

	Order(ctx context.Context, pair Pair, orderID ID) (*Order, error)

	OpenOrders(ctx context.Context, pair Pair) ([]*Order, error)

	OrderHistory(ctx context.Context, pair Pair) ([]*Order, error)
}

type ExchangePortfolioService interface {
	Positions(ctx context.Context) ([]*Position, error)

	Trades(ctx context.Context, pair Pair) ([]*Trade, error)
}

// Archive is the port to the external persistence layer used when a
// session's ephemeral ledger is explicitly flushed.
type Archive interface {
	ArchiveOrder(userID string, order *Order) error

	ArchiveTrade(userID string, trade *Trade) error
}

// Signal is a proposed entry produced by a signal generator.
type Signal struct {
	Pair             Pair
	Side             OrderSide
	EntryTarget      *big.Float
	TakeProfitTarget *big.Float
	StopLossTarget   *big.Float
}

func (s *Signal) String() string {
	return s.Pair.String() + " (" + s.Side.String() + "), entry " +
		s.EntryTarget.Text('f', 2) +
		", tp: " + s.TakeProfitTarget.Text('f', 2) +
		", sl: " + s.StopLossTarget.Text('f', 2)
}

type SignalGenerator interface {
	Poll() (*Signal, bool)
}
