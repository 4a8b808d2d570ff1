package trading

import (
	"fmt"
	"math/big"
	"time"
)

// Ticker is a point-in-time market snapshot for one pair. Tickers are
// transient and re-fetched on every query; they must never be cached
// beyond a single call.
type Ticker struct {
	Pair          Pair
	Price         *big.Float
	BidPrice      *big.Float
	AskPrice      *big.Float
	HighPrice24h  *big.Float
	LowPrice24h   *big.Float
	Volume24h     *big.Float
	PriceChange   *big.Float
	Time          time.Time
}

func (t *Ticker) String() string {
	return fmt.Sprintf(
		"%v @ %v",
		t.Pair.String(),
		t.Price.Text('f', 8),
	)
}

type OrderBookLevel struct {
	Price *big.Float
	Size  *big.Float
}

type OrderBook struct {
	Pair Pair
	Bids []*OrderBookLevel
	Asks []*OrderBookLevel
	Time time.Time
}

// PairInfo describes one pair advertised by a venue. NativeSymbol is
// the venue-side identifier the adapter maps the canonical pair to.
type PairInfo struct {
	Pair           Pair
	NativeSymbol   string
	BasePrecision  int
	QuotePrecision int
}
