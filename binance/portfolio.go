package binance

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/coinvex/trading"
)

// Positions derives spot holdings from non-zero base-asset balances.
// Spot accounts have no native position object, so the entry price is
// unknown venue-side and reported as the current price with zero
// unrealized P&L.
func (es *ExchangeService) Positions(
	ctx context.Context,
) ([]*trading.Position, error) {
	balances, err := es.Balances(ctx)
	if err != nil {
		return nil, err
	}

	positions := make([]*trading.Position, 0)

	for asset, balance := range balances {
		pair := trading.Pair{Base: asset, Quote: "USDT"}

		if _, ok := es.findSymbolInfo(es.nativeSymbol(pair)); !ok {
			continue
		}

		total := balance.Total()
		if total.Sign() == 0 {
			continue
		}

		ticker, err := es.Ticker(ctx, pair)
		if err != nil {
			return nil, fmt.Errorf(
				"could not fetch ticker for pair [%v]: [%v]",
				pair,
				err,
			)
		}

		positions = append(positions, &trading.Position{
			Pair:                 pair,
			Size:                 total,
			EntryPrice:           ticker.Price,
			CurrentPrice:         ticker.Price,
			UnrealizedPnl:        big.NewFloat(0),
			UnrealizedPnlPercent: big.NewFloat(0),
			UpdateTime:           time.Now(),
		})
	}

	return positions, nil
}

func (es *ExchangeService) Trades(
	ctx context.Context,
	pair trading.Pair,
) ([]*trading.Trade, error) {
	requestCtx, cancelRequestCtx := context.WithTimeout(ctx, requestTimeout)
	defer cancelRequestCtx()

	nativeTrades, err := es.client.NewListTradesService().
		Symbol(es.nativeSymbol(pair)).
		Do(requestCtx)
	if err != nil {
		return nil, newExchangeError(err)
	}

	trades := make([]*trading.Trade, 0, len(nativeTrades))

	for _, nativeTrade := range nativeTrades {
		size, err := parseFloat(nativeTrade.Quantity)
		if err != nil {
			return nil, fmt.Errorf(
				"could not parse trade quantity: [%v]",
				err,
			)
		}

		price, err := parseFloat(nativeTrade.Price)
		if err != nil {
			return nil, fmt.Errorf("could not parse trade price: [%v]", err)
		}

		fee, err := parseFloat(nativeTrade.Commission)
		if err != nil {
			return nil, fmt.Errorf(
				"could not parse trade commission: [%v]",
				err,
			)
		}

		side := trading.SideSell
		if nativeTrade.IsBuyer {
			side = trading.SideBuy
		}

		trades = append(trades, &trading.Trade{
			ID:      nativeID(fmt.Sprintf("%d", nativeTrade.ID)),
			OrderID: nativeID(fmt.Sprintf("%d", nativeTrade.OrderID)),
			Pair:    pair,
			Side:    side,
			Size:    size,
			Price:   price,
			Fee:     fee,
			Time:    parseMilliseconds(nativeTrade.Time),
		})
	}

	return trades, nil
}
