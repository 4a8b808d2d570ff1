package binance

import (
	"context"
	"fmt"
	"math/big"

	"github.com/coinvex/trading"
)

func (es *ExchangeService) Balances(
	ctx context.Context,
) (trading.Balances, error) {
	requestCtx, cancelRequestCtx := context.WithTimeout(ctx, requestTimeout)
	defer cancelRequestCtx()

	account, err := es.client.NewGetAccountService().Do(requestCtx)
	if err != nil {
		return nil, newExchangeError(err)
	}

	balances := make(trading.Balances)

	for _, balance := range account.Balances {
		available, err := parseFloat(balance.Free)
		if err != nil {
			return nil, fmt.Errorf(
				"could not parse free balance for asset [%v]: [%v]",
				balance.Asset,
				err,
			)
		}

		locked, err := parseFloat(balance.Locked)
		if err != nil {
			return nil, fmt.Errorf(
				"could not parse locked balance for asset [%v]: [%v]",
				balance.Asset,
				err,
			)
		}

		if available.Sign() == 0 && locked.Sign() == 0 {
			continue
		}

		balances[trading.Asset(balance.Asset)] = trading.NewBalance(
			trading.Asset(balance.Asset),
			available,
			locked,
		)
	}

	return balances, nil
}

func (es *ExchangeService) Balance(
	ctx context.Context,
	asset trading.Asset,
) (*trading.Balance, error) {
	balances, err := es.Balances(ctx)
	if err != nil {
		return nil, err
	}

	balance, exists := balances[asset]
	if !exists {
		return trading.NewBalance(
			asset,
			big.NewFloat(0),
			big.NewFloat(0),
		), nil
	}

	return balance, nil
}
