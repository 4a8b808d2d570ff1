// Package paper implements the simulated execution engine. The engine
// decorates a real exchange service: market data is pure delegation so
// simulated fills always happen against real prices, while account and
// trading state are entirely local and ephemeral.
package paper

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/coinvex/trading"
)

// Flat fee applied to the notional of every simulated market fill.
// Real venues have asymmetric maker/taker fees; the flat rate is a
// deliberate simplification of the simulation.
const feeRate = 0.001

// Positions whose size falls below this value are removed.
const sizeEpsilon = 1e-8

type Config struct {
	// SeedAmount is credited to every configured quote asset on
	// engine creation and on every reset.
	SeedAmount  *big.Float
	QuoteAssets []trading.Asset
}

func DefaultConfig() *Config {
	return &Config{
		SeedAmount:  big.NewFloat(100000),
		QuoteAssets: []trading.Asset{"USDT"},
	}
}

type position struct {
	pair       trading.Pair
	size       *big.Float
	entryPrice *big.Float
	updateTime time.Time
}

// Engine simulates order fills, balances and positions for one user's
// session. All fill bookkeeping runs under a single mutex: the balance
// check and the balance mutation must not interleave between two
// concurrent orders.
type Engine struct {
	logger    trading.Logger
	live      trading.ExchangeService
	idService trading.IDService
	config    *Config

	stateMutex sync.Mutex
	balances   trading.Balances
	orders     []*trading.Order
	ordersByID map[string]*trading.Order
	trades     []*trading.Trade
	positions  map[trading.PairSymbol]*position
}

func NewEngine(
	logger trading.Logger,
	live trading.ExchangeService,
	idService trading.IDService,
	config *Config,
) *Engine {
	engine := &Engine{
		logger:    logger,
		live:      live,
		idService: idService,
		config:    config,
	}

	engine.seed()

	return engine
}

func (e *Engine) seed() {
	e.balances = make(trading.Balances)
	for _, asset := range e.config.QuoteAssets {
		e.balances[asset] = trading.NewBalance(
			asset,
			new(big.Float).Copy(e.config.SeedAmount),
			big.NewFloat(0),
		)
	}

	e.orders = make([]*trading.Order, 0)
	e.ordersByID = make(map[string]*trading.Order)
	e.trades = make([]*trading.Trade, 0)
	e.positions = make(map[trading.PairSymbol]*position)
}

// Reset restores the seed balances and clears all orders, trades and
// positions.
func (e *Engine) Reset() {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	e.seed()

	e.logger.Infof("paper engine state has been reset")
}

func (e *Engine) ExchangeName() string {
	return e.live.ExchangeName()
}

func (e *Engine) TestConnection(ctx context.Context) error {
	return e.live.TestConnection(ctx)
}

func (e *Engine) Disconnect(ctx context.Context) error {
	return e.live.Disconnect(ctx)
}

// CreateOrder executes market orders synchronously against the
// current real price. Limit, stop-loss and take-profit orders are
// accepted and stored as open but are not autonomously matched; this
// is a documented limitation, not a bug.
func (e *Engine) CreateOrder(
	ctx context.Context,
	request *trading.OrderRequest,
) (*trading.Order, error) {
	if request.Size == nil || request.Size.Sign() <= 0 {
		return nil, fmt.Errorf(
			"order size must be positive: [%v]",
			request.Size,
		)
	}

	price := request.Price
	if price == nil {
		ticker, err := e.live.Ticker(ctx, request.Pair)
		if err != nil {
			return nil, fmt.Errorf(
				"could not fetch ticker for pair [%v]: [%v]",
				request.Pair,
				err,
			)
		}

		price = ticker.Price
	}

	now := time.Now()

	order := &trading.Order{
		ID:         e.idService.NewID(),
		Pair:       request.Pair,
		Side:       request.Side,
		Type:       request.Type,
		Status:     trading.StatusPending,
		Size:       new(big.Float).Copy(request.Size),
		FilledSize: big.NewFloat(0),
		Price:      new(big.Float).Copy(price),
		StopPrice:  request.StopPrice,
		Fee:        big.NewFloat(0),
		Time:       now,
		UpdateTime: now,
	}

	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	e.orders = append(e.orders, order)
	e.ordersByID[order.ID.String()] = order

	if order.Type != trading.TypeMarket {
		order.Status = trading.StatusOpen
		return order, nil
	}

	if err := e.fillMarketOrder(order, price); err != nil {
		order.Status = trading.StatusRejected
		order.UpdateTime = time.Now()
		return nil, err
	}

	e.logger.Debugf("filled paper order [%v]", order)

	return order, nil
}

func (e *Engine) fillMarketOrder(
	order *trading.Order,
	price *big.Float,
) error {
	notional := new(big.Float).Mul(order.Size, price)
	fee := new(big.Float).Mul(notional, big.NewFloat(feeRate))

	base := e.balanceOf(order.Pair.Base)
	quote := e.balanceOf(order.Pair.Quote)

	switch order.Side {
	case trading.SideBuy:
		required := new(big.Float).Add(notional, fee)

		if quote.Available.Cmp(required) < 0 {
			return &trading.InsufficientBalanceError{
				Asset:     order.Pair.Quote,
				Required:  required,
				Available: new(big.Float).Copy(quote.Available),
			}
		}

		quote.Available.Sub(quote.Available, required)
		base.Available.Add(base.Available, order.Size)

		e.increasePosition(order.Pair, order.Size, price)
	case trading.SideSell:
		if base.Available.Cmp(order.Size) < 0 {
			return &trading.InsufficientBalanceError{
				Asset:     order.Pair.Base,
				Required:  new(big.Float).Copy(order.Size),
				Available: new(big.Float).Copy(base.Available),
			}
		}

		base.Available.Sub(base.Available, order.Size)
		quote.Available.Add(
			quote.Available,
			new(big.Float).Sub(notional, fee),
		)

		e.reducePosition(order.Pair, order.Size)
	}

	order.Status = trading.StatusFilled
	order.FilledSize = new(big.Float).Copy(order.Size)
	order.Fee = fee
	order.UpdateTime = time.Now()

	trade := &trading.Trade{
		ID:      e.idService.NewID(),
		OrderID: order.ID,
		Pair:    order.Pair,
		Side:    order.Side,
		Size:    new(big.Float).Copy(order.Size),
		Price:   new(big.Float).Copy(price),
		Fee:     fee,
		Time:    order.UpdateTime,
	}

	e.trades = append(e.trades, trade)

	return nil
}

func (e *Engine) balanceOf(asset trading.Asset) *trading.Balance {
	balance, exists := e.balances[asset]
	if !exists {
		balance = trading.NewBalance(
			asset,
			big.NewFloat(0),
			big.NewFloat(0),
		)
		e.balances[asset] = balance
	}

	return balance
}

func (e *Engine) increasePosition(
	pair trading.Pair,
	size, price *big.Float,
) {
	existing, exists := e.positions[pair.Symbol()]
	if !exists {
		e.positions[pair.Symbol()] = &position{
			pair:       pair,
			size:       new(big.Float).Copy(size),
			entryPrice: new(big.Float).Copy(price),
			updateTime: time.Now(),
		}
		return
	}

	// Weighted-average cost basis over the previous position and the
	// new fill.
	previousCost := new(big.Float).Mul(existing.entryPrice, existing.size)
	fillCost := new(big.Float).Mul(price, size)

	newSize := new(big.Float).Add(existing.size, size)

	existing.entryPrice = new(big.Float).Quo(
		new(big.Float).Add(previousCost, fillCost),
		newSize,
	)
	existing.size = newSize
	existing.updateTime = time.Now()
}

func (e *Engine) reducePosition(pair trading.Pair, size *big.Float) {
	existing, exists := e.positions[pair.Symbol()]
	if !exists {
		return
	}

	// Closing part of a position reduces the cost basis
	// proportionally, so the entry price stays unchanged.
	existing.size = new(big.Float).Sub(existing.size, size)
	existing.updateTime = time.Now()

	if existing.size.Cmp(big.NewFloat(sizeEpsilon)) < 0 {
		delete(e.positions, pair.Symbol())
	}
}

// CancelOrder transitions pending and open orders to cancelled and
// reports whether the cancellation happened.
func (e *Engine) CancelOrder(
	ctx context.Context,
	pair trading.Pair,
	orderID trading.ID,
) (bool, error) {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	order, exists := e.ordersByID[orderID.String()]
	if !exists {
		return false, fmt.Errorf("unknown order: [%v]", orderID)
	}

	if order.Status.IsTerminal() {
		return false, nil
	}

	order.Status = trading.StatusCancelled
	order.UpdateTime = time.Now()

	return true, nil
}

func (e *Engine) Order(
	ctx context.Context,
	pair trading.Pair,
	orderID trading.ID,
) (*trading.Order, error) {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	order, exists := e.ordersByID[orderID.String()]
	if !exists {
		return nil, fmt.Errorf("unknown order: [%v]", orderID)
	}

	return order, nil
}

func (e *Engine) OpenOrders(
	ctx context.Context,
	pair trading.Pair,
) ([]*trading.Order, error) {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	orders := make([]*trading.Order, 0)
	for _, order := range e.orders {
		if order.Status.IsTerminal() {
			continue
		}

		if pair != (trading.Pair{}) && order.Pair != pair {
			continue
		}

		orders = append(orders, order)
	}

	return orders, nil
}

// OrderHistory returns the session's append-only order record. The
// zero pair matches all pairs.
func (e *Engine) OrderHistory(
	ctx context.Context,
	pair trading.Pair,
) ([]*trading.Order, error) {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	orders := make([]*trading.Order, 0)
	for _, order := range e.orders {
		if pair != (trading.Pair{}) && order.Pair != pair {
			continue
		}

		orders = append(orders, order)
	}

	return orders, nil
}

func (e *Engine) Balances(ctx context.Context) (trading.Balances, error) {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	balances := make(trading.Balances)
	for asset, balance := range e.balances {
		balances[asset] = balance.Copy()
	}

	return balances, nil
}

func (e *Engine) Balance(
	ctx context.Context,
	asset trading.Asset,
) (*trading.Balance, error) {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	return e.balanceOf(asset).Copy(), nil
}

// Positions re-fetches the current price of every held pair through
// the wrapped exchange to compute unrealized P&L.
func (e *Engine) Positions(ctx context.Context) ([]*trading.Position, error) {
	e.stateMutex.Lock()
	snapshot := make([]*position, 0, len(e.positions))
	for _, p := range e.positions {
		snapshot = append(snapshot, &position{
			pair:       p.pair,
			size:       new(big.Float).Copy(p.size),
			entryPrice: new(big.Float).Copy(p.entryPrice),
			updateTime: p.updateTime,
		})
	}
	e.stateMutex.Unlock()

	positions := make([]*trading.Position, 0, len(snapshot))

	for _, p := range snapshot {
		ticker, err := e.live.Ticker(ctx, p.pair)
		if err != nil {
			return nil, fmt.Errorf(
				"could not fetch ticker for pair [%v]: [%v]",
				p.pair,
				err,
			)
		}

		pnl := new(big.Float).Mul(
			new(big.Float).Sub(ticker.Price, p.entryPrice),
			p.size,
		)

		pnlPercent := new(big.Float).Quo(
			new(big.Float).Sub(ticker.Price, p.entryPrice),
			p.entryPrice,
		)
		pnlPercent.Mul(pnlPercent, big.NewFloat(100))

		positions = append(positions, &trading.Position{
			Pair:                 p.pair,
			Size:                 p.size,
			EntryPrice:           p.entryPrice,
			CurrentPrice:         ticker.Price,
			UnrealizedPnl:        pnl,
			UnrealizedPnlPercent: pnlPercent,
			UpdateTime:           p.updateTime,
		})
	}

	return positions, nil
}

func (e *Engine) Trades(
	ctx context.Context,
	pair trading.Pair,
) ([]*trading.Trade, error) {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	trades := make([]*trading.Trade, 0)
	for _, trade := range e.trades {
		if pair != (trading.Pair{}) && trade.Pair != pair {
			continue
		}

		trades = append(trades, trade)
	}

	return trades, nil
}

// Market-data operations are pure delegation: paper trading must
// reflect real prices.

func (e *Engine) Ticker(
	ctx context.Context,
	pair trading.Pair,
) (*trading.Ticker, error) {
	return e.live.Ticker(ctx, pair)
}

func (e *Engine) Tickers(
	ctx context.Context,
	pairs []trading.Pair,
) ([]*trading.Ticker, error) {
	return e.live.Tickers(ctx, pairs)
}

func (e *Engine) OrderBook(
	ctx context.Context,
	pair trading.Pair,
	depth int,
) (*trading.OrderBook, error) {
	return e.live.OrderBook(ctx, pair, depth)
}

func (e *Engine) TradingPairs(
	ctx context.Context,
) ([]*trading.PairInfo, error) {
	return e.live.TradingPairs(ctx)
}

func (e *Engine) Candles(
	ctx context.Context,
	filter *trading.CandleFilter,
) ([]*trading.Candle, error) {
	return e.live.Candles(ctx, filter)
}

func (e *Engine) CandlesTicker(
	ctx context.Context,
	filter *trading.CandleFilter,
) (<-chan *trading.CandleTick, <-chan error) {
	return e.live.CandlesTicker(ctx, filter)
}
