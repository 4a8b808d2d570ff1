// Package risk implements the quantitative risk engine: pre-trade
// verdicts, position sizing and portfolio risk metrics. The engine is
// independent of any exchange; it operates on the equity history and
// the positions it is told about.
package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/coinvex/trading"
)

type EquityPoint struct {
	Value float64
	Time  time.Time
}

// Position is the risk engine's own view of an open position. It is
// tracked independently of the execution adapters so that the pre-trade
// gate works the same in paper and live mode.
type Position struct {
	ID            trading.ID
	Pair          trading.Pair
	Side          trading.OrderSide
	Size          float64
	EntryPrice    float64
	CurrentPrice  float64
	StopLoss      float64
	TakeProfit    float64
	UnrealizedPnl float64
	OpenTime      time.Time
}

// ClosedTrade is the realized outcome of a closed position.
type ClosedTrade struct {
	Pair       trading.Pair
	Side       trading.OrderSide
	Size       float64
	EntryPrice float64
	ExitPrice  float64
	Pnl        float64
	OpenTime   time.Time
	CloseTime  time.Time
}

// Verdict is the structured outcome of the pre-trade gate. A rejected
// trade is a normal control-flow outcome, not an error; the reason is
// always specific enough for the caller to correct the trade.
type Verdict struct {
	Allowed  bool
	Reason   string
	Warnings []string

	// AdjustedSize is non-zero when the proposed size was clamped to
	// the position size limit.
	AdjustedSize float64
}

type Engine struct {
	idService trading.IDService

	stateMutex    sync.Mutex
	limits        *Limits
	initialEquity float64
	equity        float64
	equityCurve   []*EquityPoint
	positions     map[string]*Position
	trades        []*ClosedTrade

	riskFreeRate float64
	nowFn        func() time.Time
}

func NewEngine(
	idService trading.IDService,
	initialEquity float64,
	limits *Limits,
) *Engine {
	if limits == nil {
		limits = DefaultLimits()
	}

	now := time.Now()

	return &Engine{
		idService:     idService,
		limits:        limits,
		initialEquity: initialEquity,
		equity:        initialEquity,
		equityCurve: []*EquityPoint{
			{Value: initialEquity, Time: now},
		},
		positions:    make(map[string]*Position),
		trades:       make([]*ClosedTrade, 0),
		riskFreeRate: 0.02,
		nowFn:        time.Now,
	}
}

func (e *Engine) Limits() *Limits {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	limits := *e.limits
	return &limits
}

// UpdateLimits replaces the thresholds as a whole; last write wins.
func (e *Engine) UpdateLimits(limits *Limits) {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	e.limits = limits
}

// CheckTradeRisk evaluates the proposed trade against all configured
// limits, in order, and returns the first hard failure or the
// accumulated warnings.
func (e *Engine) CheckTradeRisk(
	pair trading.Pair,
	side trading.OrderSide,
	size float64,
	entry float64,
	stopLoss float64,
	takeProfit float64,
) *Verdict {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	verdict := &Verdict{Allowed: true, Warnings: make([]string, 0)}

	if len(e.positions) >= e.limits.MaxOpenPositions {
		return &Verdict{
			Allowed: false,
			Reason: fmt.Sprintf(
				"open position limit of [%v] reached",
				e.limits.MaxOpenPositions,
			),
		}
	}

	notional := size * entry
	if e.equity > 0 && notional/e.equity > e.limits.MaxPositionSize {
		adjustedSize := e.limits.MaxPositionSize * e.equity / entry
		verdict.AdjustedSize = adjustedSize
		verdict.Warnings = append(
			verdict.Warnings,
			fmt.Sprintf(
				"position size exceeds [%v] of equity; "+
					"size adjusted to [%v]",
				e.limits.MaxPositionSize,
				adjustedSize,
			),
		)
	}

	risk := entry - stopLoss
	if risk < 0 {
		risk = -risk
	}
	if risk == 0 {
		return &Verdict{
			Allowed: false,
			Reason:  "stop loss must differ from the entry price",
		}
	}

	reward := takeProfit - entry
	if reward < 0 {
		reward = -reward
	}

	riskReward := reward / risk
	if riskReward < e.limits.MinRiskRewardRatio {
		return &Verdict{
			Allowed: false,
			Reason: fmt.Sprintf(
				"risk/reward ratio [%.2f] is below the minimum of [%v]",
				riskReward,
				e.limits.MinRiskRewardRatio,
			),
		}
	}

	drawdown := CalculateDrawdown(e.equityValues())
	if drawdown.Current >= e.limits.MaxDrawdown {
		return &Verdict{
			Allowed: false,
			Reason: fmt.Sprintf(
				"current drawdown [%.2f] has reached the maximum of [%v]",
				drawdown.Current,
				e.limits.MaxDrawdown,
			),
		}
	}

	if e.initialEquity > 0 {
		dailyLoss := e.dailyPnl() / e.initialEquity
		if dailyLoss <= -e.limits.MaxDailyLoss {
			return &Verdict{
				Allowed: false,
				Reason: fmt.Sprintf(
					"daily loss limit of [%v] reached",
					e.limits.MaxDailyLoss,
				),
			}
		}
	}

	for _, position := range e.positions {
		if position.Pair == pair {
			verdict.Warnings = append(
				verdict.Warnings,
				fmt.Sprintf(
					"a position in [%v] is already open",
					pair,
				),
			)
			break
		}
	}

	return verdict
}

// CalculatePosition sizes the next position using the engine's current
// equity and historical trade statistics.
func (e *Engine) CalculatePosition(
	method SizingMethod,
	riskPercent float64,
	amount float64,
	currentVolatility float64,
	averageVolatility float64,
) (float64, error) {
	e.stateMutex.Lock()
	stats := e.tradeStats()
	params := &SizingParams{
		Equity:            e.equity,
		RiskPercent:       riskPercent,
		Amount:            amount,
		WinRate:           stats.winRate,
		AverageWin:        stats.averageWin,
		AverageLoss:       stats.averageLoss,
		CurrentVolatility: currentVolatility,
		AverageVolatility: averageVolatility,
	}
	e.stateMutex.Unlock()

	return CalculatePosition(method, params)
}

func (e *Engine) OpenPosition(
	pair trading.Pair,
	side trading.OrderSide,
	size float64,
	entryPrice float64,
	stopLoss float64,
	takeProfit float64,
) *Position {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	position := &Position{
		ID:           e.idService.NewID(),
		Pair:         pair,
		Side:         side,
		Size:         size,
		EntryPrice:   entryPrice,
		CurrentPrice: entryPrice,
		StopLoss:     stopLoss,
		TakeProfit:   takeProfit,
		OpenTime:     e.nowFn(),
	}

	e.positions[position.ID.String()] = position

	return position
}

func (e *Engine) UpdatePosition(id trading.ID, price float64) error {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	position, exists := e.positions[id.String()]
	if !exists {
		return fmt.Errorf("unknown position: [%v]", id)
	}

	position.CurrentPrice = price
	position.UnrealizedPnl = e.positionPnl(position, price)

	return nil
}

// ClosePosition realizes the position's P&L, records the trade,
// appends the new equity to the curve and removes the position.
func (e *Engine) ClosePosition(
	id trading.ID,
	exitPrice float64,
) (*ClosedTrade, error) {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	position, exists := e.positions[id.String()]
	if !exists {
		return nil, fmt.Errorf("unknown position: [%v]", id)
	}

	now := e.nowFn()

	trade := &ClosedTrade{
		Pair:       position.Pair,
		Side:       position.Side,
		Size:       position.Size,
		EntryPrice: position.EntryPrice,
		ExitPrice:  exitPrice,
		Pnl:        e.positionPnl(position, exitPrice),
		OpenTime:   position.OpenTime,
		CloseTime:  now,
	}

	e.trades = append(e.trades, trade)
	e.equity += trade.Pnl
	e.equityCurve = append(e.equityCurve, &EquityPoint{
		Value: e.equity,
		Time:  now,
	})

	delete(e.positions, id.String())

	return trade, nil
}

func (e *Engine) positionPnl(position *Position, price float64) float64 {
	if position.Side == trading.SideSell {
		return (position.EntryPrice - price) * position.Size
	}

	return (price - position.EntryPrice) * position.Size
}

func (e *Engine) Positions() []*Position {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	positions := make([]*Position, 0, len(e.positions))
	for _, position := range e.positions {
		snapshot := *position
		positions = append(positions, &snapshot)
	}

	return positions
}

func (e *Engine) EquityCurve() []*EquityPoint {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	curve := make([]*EquityPoint, len(e.equityCurve))
	copy(curve, e.equityCurve)

	return curve
}

func (e *Engine) Metrics() *Metrics {
	e.stateMutex.Lock()
	defer e.stateMutex.Unlock()

	unrealized := 0.0
	for _, position := range e.positions {
		unrealized += position.UnrealizedPnl
	}

	drawdown := CalculateDrawdown(e.equityValues())
	returns := returnsOf(e.equityValues())
	stats := e.tradeStats()

	return &Metrics{
		UnrealizedPnl:            unrealized,
		RealizedPnl:              e.equity - e.initialEquity,
		DailyPnl:                 e.dailyPnl(),
		MaxDrawdown:              drawdown.Max,
		CurrentDrawdown:          drawdown.Current,
		ValueAtRisk95:            ValueAtRisk(returns, 0.95),
		ConditionalValueAtRisk95: ConditionalValueAtRisk(returns, 0.95),
		SharpeRatio:              SharpeRatio(returns, e.riskFreeRate),
		SortinoRatio:             SortinoRatio(returns, e.riskFreeRate),
		WinRate:                  stats.winRate,
		AverageWin:               stats.averageWin,
		AverageLoss:              stats.averageLoss,
		ProfitFactor:             stats.profitFactor,
		Expectancy:               stats.expectancy,
		OpenPositions:            len(e.positions),
		TotalTrades:              len(e.trades),
	}
}

func (e *Engine) equityValues() []float64 {
	values := make([]float64, len(e.equityCurve))
	for i, point := range e.equityCurve {
		values[i] = point.Value
	}

	return values
}

func (e *Engine) dailyPnl() float64 {
	now := e.nowFn()
	midnight := time.Date(
		now.Year(), now.Month(), now.Day(),
		0, 0, 0, 0,
		now.Location(),
	)

	pnl := 0.0
	for _, trade := range e.trades {
		if trade.CloseTime.Before(midnight) {
			continue
		}

		pnl += trade.Pnl
	}

	return pnl
}

type tradeStats struct {
	winRate      float64
	averageWin   float64
	averageLoss  float64
	profitFactor float64
	expectancy   float64
}

func (e *Engine) tradeStats() *tradeStats {
	stats := &tradeStats{}

	if len(e.trades) == 0 {
		return stats
	}

	wins, losses := 0, 0
	totalWins, totalLosses := 0.0, 0.0

	for _, trade := range e.trades {
		if trade.Pnl > 0 {
			wins++
			totalWins += trade.Pnl
		} else if trade.Pnl < 0 {
			losses++
			totalLosses += -trade.Pnl
		}
	}

	stats.winRate = float64(wins) / float64(len(e.trades))

	if wins > 0 {
		stats.averageWin = totalWins / float64(wins)
	}
	if losses > 0 {
		stats.averageLoss = totalLosses / float64(losses)
	}

	if totalLosses > 0 {
		stats.profitFactor = totalWins / totalLosses
	}

	stats.expectancy = stats.winRate*stats.averageWin -
		(1-stats.winRate)*stats.averageLoss

	return stats
}
