// Package daemon runs the long-lived background routines: candle
// monitoring and per-pair strategy workers driving a trading session.
package daemon

import (
	"context"
	"fmt"
	"time"

	"github.com/coinvex/trading"
)

const candleTickTimeout = 30 * time.Second

type CandleMonitor struct {
	logger     trading.Logger
	exchange   trading.ExchangeMarketService
	filter     *trading.CandleFilter
	repository trading.CandleRepository
	errChan    chan error
}

func RunCandleMonitor(
	ctx context.Context,
	logger trading.Logger,
	exchange trading.ExchangeMarketService,
	filter *trading.CandleFilter,
	repository trading.CandleRepository,
) *CandleMonitor {
	monitor := &CandleMonitor{
		logger:     logger,
		exchange:   exchange,
		filter:     filter,
		repository: repository,
		errChan:    make(chan error, 1),
	}

	go monitor.loop(ctx)

	return monitor
}

// CandleKey is the repository key under which a monitor stores the
// candles matching the given filter.
func CandleKey(filter *trading.CandleFilter) string {
	return string(filter.Pair.Symbol()) + "-" + filter.Interval
}

func (cm *CandleMonitor) loop(ctx context.Context) {
	key := CandleKey(cm.filter)

	candles, err := cm.exchange.Candles(ctx, cm.filter)
	if err != nil {
		cm.errChan <- fmt.Errorf("could not get candles: [%v]", err)
		return
	}

	cm.logger.Debugf("fetched [%v] historical candles", len(candles))

	cm.repository.SaveCandles(key, candles...)

	tickTimeoutTimer := time.NewTimer(candleTickTimeout)
	ticker, tickerErrorChannel := cm.exchange.CandlesTicker(ctx, cm.filter)

	for {
		select {
		case tick := <-ticker:
			cm.logger.Debugf("received candle tick [%v]", tick)

			cm.repository.SaveCandles(key, tick.Candle)

			if !tickTimeoutTimer.Stop() {
				<-tickTimeoutTimer.C
			}
			tickTimeoutTimer.Reset(candleTickTimeout)
		case <-tickTimeoutTimer.C:
			cm.errChan <- fmt.Errorf("tick timeout expiration")
			return
		case err := <-tickerErrorChannel:
			cm.errChan <- fmt.Errorf("ticker error: [%v]", err)
			return
		case <-ctx.Done():
			return
		}
	}
}

func (cm *CandleMonitor) ErrChan() <-chan error {
	return cm.errChan
}
