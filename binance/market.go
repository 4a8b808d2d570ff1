package binance

import (
	"context"
	"fmt"
	"time"

	"github.com/adshao/go-binance"
	"github.com/coinvex/trading"
)

func (es *ExchangeService) Ticker(
	ctx context.Context,
	pair trading.Pair,
) (*trading.Ticker, error) {
	requestCtx, cancelRequestCtx := context.WithTimeout(ctx, requestTimeout)
	defer cancelRequestCtx()

	stats, err := es.client.NewListPriceChangeStatsService().
		Symbol(es.nativeSymbol(pair)).
		Do(requestCtx)
	if err != nil {
		return nil, newExchangeError(err)
	}

	if len(stats) == 0 {
		return nil, &trading.ExchangeError{
			Exchange: Name,
			Message: fmt.Sprintf(
				"no ticker for symbol [%v]",
				es.nativeSymbol(pair),
			),
		}
	}

	return es.parseTicker(pair, stats[0])
}

func (es *ExchangeService) Tickers(
	ctx context.Context,
	pairs []trading.Pair,
) ([]*trading.Ticker, error) {
	requestCtx, cancelRequestCtx := context.WithTimeout(ctx, requestTimeout)
	defer cancelRequestCtx()

	stats, err := es.client.NewListPriceChangeStatsService().Do(requestCtx)
	if err != nil {
		return nil, newExchangeError(err)
	}

	statsBySymbol := make(map[string]*binance.PriceChangeStats)
	for _, stat := range stats {
		statsBySymbol[stat.Symbol] = stat
	}

	tickers := make([]*trading.Ticker, 0, len(pairs))

	for _, pair := range pairs {
		stat, exists := statsBySymbol[es.nativeSymbol(pair)]
		if !exists {
			return nil, &trading.ExchangeError{
				Exchange: Name,
				Message: fmt.Sprintf(
					"no ticker for symbol [%v]",
					es.nativeSymbol(pair),
				),
			}
		}

		ticker, err := es.parseTicker(pair, stat)
		if err != nil {
			return nil, err
		}

		tickers = append(tickers, ticker)
	}

	return tickers, nil
}

func (es *ExchangeService) parseTicker(
	pair trading.Pair,
	stats *binance.PriceChangeStats,
) (*trading.Ticker, error) {
	price, err := parseFloat(stats.LastPrice)
	if err != nil {
		return nil, fmt.Errorf("could not parse last price: [%v]", err)
	}

	bidPrice, err := parseFloat(stats.BidPrice)
	if err != nil {
		return nil, fmt.Errorf("could not parse bid price: [%v]", err)
	}

	askPrice, err := parseFloat(stats.AskPrice)
	if err != nil {
		return nil, fmt.Errorf("could not parse ask price: [%v]", err)
	}

	highPrice, err := parseFloat(stats.HighPrice)
	if err != nil {
		return nil, fmt.Errorf("could not parse high price: [%v]", err)
	}

	lowPrice, err := parseFloat(stats.LowPrice)
	if err != nil {
		return nil, fmt.Errorf("could not parse low price: [%v]", err)
	}

	volume, err := parseFloat(stats.Volume)
	if err != nil {
		return nil, fmt.Errorf("could not parse volume: [%v]", err)
	}

	priceChange, err := parseFloat(stats.PriceChangePercent)
	if err != nil {
		return nil, fmt.Errorf("could not parse price change: [%v]", err)
	}

	return &trading.Ticker{
		Pair:         pair,
		Price:        price,
		BidPrice:     bidPrice,
		AskPrice:     askPrice,
		HighPrice24h: highPrice,
		LowPrice24h:  lowPrice,
		Volume24h:    volume,
		PriceChange:  priceChange,
		Time:         parseMilliseconds(stats.CloseTime),
	}, nil
}

func (es *ExchangeService) OrderBook(
	ctx context.Context,
	pair trading.Pair,
	depth int,
) (*trading.OrderBook, error) {
	requestCtx, cancelRequestCtx := context.WithTimeout(ctx, requestTimeout)
	defer cancelRequestCtx()

	response, err := es.client.NewDepthService().
		Symbol(es.nativeSymbol(pair)).
		Limit(depth).
		Do(requestCtx)
	if err != nil {
		return nil, newExchangeError(err)
	}

	bids := make([]*trading.OrderBookLevel, 0, len(response.Bids))
	for _, bid := range response.Bids {
		level, err := parseOrderBookLevel(bid.Price, bid.Quantity)
		if err != nil {
			return nil, fmt.Errorf("could not parse bid level: [%v]", err)
		}

		bids = append(bids, level)
	}

	asks := make([]*trading.OrderBookLevel, 0, len(response.Asks))
	for _, ask := range response.Asks {
		level, err := parseOrderBookLevel(ask.Price, ask.Quantity)
		if err != nil {
			return nil, fmt.Errorf("could not parse ask level: [%v]", err)
		}

		asks = append(asks, level)
	}

	return &trading.OrderBook{
		Pair: pair,
		Bids: bids,
		Asks: asks,
		Time: time.Now(),
	}, nil
}

func parseOrderBookLevel(
	price, quantity string,
) (*trading.OrderBookLevel, error) {
	parsedPrice, err := parseFloat(price)
	if err != nil {
		return nil, err
	}

	parsedQuantity, err := parseFloat(quantity)
	if err != nil {
		return nil, err
	}

	return &trading.OrderBookLevel{
		Price: parsedPrice,
		Size:  parsedQuantity,
	}, nil
}

func (es *ExchangeService) TradingPairs(
	ctx context.Context,
) ([]*trading.PairInfo, error) {
	pairs := make([]*trading.PairInfo, 0, len(es.exchangeInfo.Symbols))

	for index := range es.exchangeInfo.Symbols {
		symbolInfo := &es.exchangeInfo.Symbols[index]

		if symbolInfo.Status != "TRADING" {
			continue
		}

		pairs = append(pairs, &trading.PairInfo{
			Pair: trading.Pair{
				Base:  trading.Asset(symbolInfo.BaseAsset),
				Quote: trading.Asset(symbolInfo.QuoteAsset),
			},
			NativeSymbol:   symbolInfo.Symbol,
			BasePrecision:  symbolInfo.BaseAssetPrecision,
			QuotePrecision: symbolInfo.QuotePrecision,
		})
	}

	return pairs, nil
}

func (es *ExchangeService) Candles(
	ctx context.Context,
	filter *trading.CandleFilter,
) ([]*trading.Candle, error) {
	requestCtx, cancelRequestCtx := context.WithTimeout(ctx, requestTimeout)
	defer cancelRequestCtx()

	klines, err := es.client.NewKlinesService().
		Symbol(es.nativeSymbol(filter.Pair)).
		Interval(filter.Interval).
		StartTime(filter.StartTime.UnixNano() / 1e6).
		EndTime(filter.EndTime.UnixNano() / 1e6).
		Limit(1000).
		Do(requestCtx)
	if err != nil {
		return nil, newExchangeError(err)
	}

	candles := make([]*trading.Candle, len(klines))
	for index := range candles {
		kline := klines[index]

		candles[index] = &trading.Candle{
			OpenTime:   parseMilliseconds(kline.OpenTime),
			CloseTime:  parseMilliseconds(kline.CloseTime),
			OpenPrice:  kline.Open,
			ClosePrice: kline.Close,
			MaxPrice:   kline.High,
			MinPrice:   kline.Low,
			Volume:     kline.Volume,
			TradeCount: uint(kline.TradeNum),
		}
	}

	return candles, nil
}

func (es *ExchangeService) CandlesTicker(
	ctx context.Context,
	filter *trading.CandleFilter,
) (<-chan *trading.CandleTick, <-chan error) {
	tickChan := make(chan *trading.CandleTick)
	errChan := make(chan error, 1)

	eventChan := make(chan *binance.WsKlineEvent)

	eventHandler := func(event *binance.WsKlineEvent) {
		eventChan <- event
	}

	errorHandler := func(err error) {
		errChan <- newExchangeError(err)
	}

	doneChan, stopChan, err := binance.WsKlineServe(
		es.nativeSymbol(filter.Pair),
		filter.Interval,
		eventHandler,
		errorHandler,
	)
	if err != nil {
		errChan <- newExchangeError(err)
		return tickChan, errChan
	}

	go func() {
		es.logger.Debugf(
			"starting candles ticker for symbol [%v]",
			es.nativeSymbol(filter.Pair),
		)
		defer es.logger.Debugf(
			"terminating candles ticker for symbol [%v]",
			es.nativeSymbol(filter.Pair),
		)

	eventLoop:
		for {
			select {
			case event := <-eventChan:
				tickChan <- parseKlineEvent(event)
			case <-doneChan:
				errChan <- fmt.Errorf(
					"candles ticker connection has been terminated",
				)
				break eventLoop
			case <-ctx.Done():
				break eventLoop
			}
		}

		close(stopChan) // stop the websocket connection if not done yet
		close(tickChan) // notify clients about ticker termination
	}()

	return tickChan, errChan
}

func parseKlineEvent(event *binance.WsKlineEvent) *trading.CandleTick {
	return &trading.CandleTick{
		Candle: &trading.Candle{
			OpenTime:   parseMilliseconds(event.Kline.StartTime),
			CloseTime:  parseMilliseconds(event.Kline.EndTime),
			OpenPrice:  event.Kline.Open,
			ClosePrice: event.Kline.Close,
			MaxPrice:   event.Kline.High,
			MinPrice:   event.Kline.Low,
			Volume:     event.Kline.Volume,
			TradeCount: uint(event.Kline.TradeNum),
		},
		TickTime: parseMilliseconds(event.Time),
	}
}
