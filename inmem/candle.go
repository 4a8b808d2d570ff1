package inmem

import (
	"sync"

	"github.com/coinvex/trading"
)

// CandleRepository keeps a sliding window of candles per key.
type CandleRepository struct {
	candlesMutex sync.RWMutex
	candles      map[string][]*trading.Candle

	windowSize int
}

func NewCandleRepository(windowSize int) *CandleRepository {
	return &CandleRepository{
		candles:    make(map[string][]*trading.Candle),
		windowSize: windowSize,
	}
}

func (cr *CandleRepository) SaveCandles(
	key string,
	candles ...*trading.Candle,
) {
	cr.candlesMutex.Lock()
	defer cr.candlesMutex.Unlock()

	window := cr.candles[key]

	for _, candle := range candles {
		var lastCandle *trading.Candle
		if len(window) > 0 {
			lastCandle = window[len(window)-1]
		}

		if lastCandle != nil && lastCandle.Equal(candle) {
			lastCandle.OpenPrice = candle.OpenPrice
			lastCandle.ClosePrice = candle.ClosePrice
			lastCandle.MaxPrice = candle.MaxPrice
			lastCandle.MinPrice = candle.MinPrice
			lastCandle.Volume = candle.Volume
			lastCandle.TradeCount = candle.TradeCount
		} else {
			window = append(window, candle)

			// remove oldest candle if window size has been exceeded
			if len(window) > cr.windowSize {
				index := 0
				copy(window[index:], window[index+1:])
				window[len(window)-1] = nil
				window = window[:len(window)-1]
			}
		}
	}

	cr.candles[key] = window
}

func (cr *CandleRepository) Candles(key string) []*trading.Candle {
	cr.candlesMutex.RLock()
	defer cr.candlesMutex.RUnlock()

	snapshot := make([]*trading.Candle, len(cr.candles[key]))
	copy(snapshot, cr.candles[key])

	return snapshot
}

func (cr *CandleRepository) DeleteCandles(key string) {
	cr.candlesMutex.Lock()
	defer cr.candlesMutex.Unlock()

	delete(cr.candles, key)
}
