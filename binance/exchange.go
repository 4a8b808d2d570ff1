// Package binance adapts the Binance spot API to the uniform exchange
// service contract.
package binance

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/adshao/go-binance"
	"github.com/coinvex/trading"
)

// Name identifies this venue in connector registries and credentials.
const Name = "binance"

const requestTimeout = 1 * time.Minute

// Connector builds exchange services from decrypted credentials.
type Connector struct {
	logger trading.Logger
}

func NewConnector(logger trading.Logger) *Connector {
	return &Connector{logger: logger}
}

func (c *Connector) Connect(
	ctx context.Context,
	credentials *trading.Credentials,
) (trading.ExchangeService, error) {
	return NewExchangeService(
		ctx,
		c.logger,
		credentials.ApiKey,
		credentials.SecretKey,
	)
}

type ExchangeService struct {
	logger       trading.Logger
	client       *binance.Client
	exchangeInfo *binance.ExchangeInfo
}

func NewExchangeService(
	ctx context.Context,
	logger trading.Logger,
	apiKey, secretKey string,
) (*ExchangeService, error) {
	client := binance.NewClient(apiKey, secretKey)

	requestCtx, cancelRequestCtx := context.WithTimeout(ctx, requestTimeout)
	defer cancelRequestCtx()

	exchangeInfo, err := client.NewExchangeInfoService().Do(requestCtx)
	if err != nil {
		return nil, newExchangeError(err)
	}

	return &ExchangeService{
		logger:       logger,
		client:       client,
		exchangeInfo: exchangeInfo,
	}, nil
}

func (es *ExchangeService) ExchangeName() string {
	return Name
}

// TestConnection issues an authenticated account request; it fails for
// invalid or revoked credentials.
func (es *ExchangeService) TestConnection(ctx context.Context) error {
	requestCtx, cancelRequestCtx := context.WithTimeout(ctx, requestTimeout)
	defer cancelRequestCtx()

	account, err := es.client.NewGetAccountService().Do(requestCtx)
	if err != nil {
		return newExchangeError(err)
	}

	if !account.CanTrade {
		return &trading.ExchangeError{
			Exchange: Name,
			Message:  "account is not allowed to trade",
		}
	}

	return nil
}

func (es *ExchangeService) Disconnect(ctx context.Context) error {
	// The underlying client is connectionless HTTP; nothing to tear
	// down venue-side.
	return nil
}

// nativeSymbol maps the canonical pair to the venue identifier. The
// mapping must be total and reversible for every advertised pair.
func (es *ExchangeService) nativeSymbol(pair trading.Pair) string {
	return string(pair.Symbol())
}

func (es *ExchangeService) pairOf(nativeSymbol string) (trading.Pair, error) {
	symbolInfo, ok := es.findSymbolInfo(nativeSymbol)
	if !ok {
		return trading.Pair{}, fmt.Errorf(
			"unknown native symbol: [%v]",
			nativeSymbol,
		)
	}

	return trading.Pair{
		Base:  trading.Asset(symbolInfo.BaseAsset),
		Quote: trading.Asset(symbolInfo.QuoteAsset),
	}, nil
}

func (es *ExchangeService) findSymbolInfo(
	symbol string,
) (*binance.Symbol, bool) {
	for index := range es.exchangeInfo.Symbols {
		if es.exchangeInfo.Symbols[index].Symbol == symbol {
			return &es.exchangeInfo.Symbols[index], true
		}
	}

	return nil, false
}

func newExchangeError(err error) *trading.ExchangeError {
	return &trading.ExchangeError{
		Exchange: Name,
		Message:  err.Error(),
	}
}

func parseFloat(value string) (*big.Float, error) {
	number, ok := new(big.Float).SetString(value)
	if !ok {
		return nil, fmt.Errorf("could not parse number: [%v]", value)
	}

	return number, nil
}

func parseMilliseconds(milliseconds int64) time.Time {
	return time.Unix(0, milliseconds*int64(time.Millisecond))
}

type nativeID string

func (ni nativeID) String() string {
	return string(ni)
}
