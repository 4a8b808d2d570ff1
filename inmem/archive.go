package inmem

import (
	"sync"

	"github.com/coinvex/trading"
)

// Archive keeps flushed order and trade history in memory.
type Archive struct {
	archiveMutex sync.Mutex
	orders       map[string][]*trading.Order
	trades       map[string][]*trading.Trade
}

func NewArchive() *Archive {
	return &Archive{
		orders: make(map[string][]*trading.Order),
		trades: make(map[string][]*trading.Trade),
	}
}

func (a *Archive) ArchiveOrder(userID string, order *trading.Order) error {
	a.archiveMutex.Lock()
	defer a.archiveMutex.Unlock()

	a.orders[userID] = append(a.orders[userID], order)

	return nil
}

func (a *Archive) ArchiveTrade(userID string, trade *trading.Trade) error {
	a.archiveMutex.Lock()
	defer a.archiveMutex.Unlock()

	a.trades[userID] = append(a.trades[userID], trade)

	return nil
}

func (a *Archive) Orders(userID string) []*trading.Order {
	a.archiveMutex.Lock()
	defer a.archiveMutex.Unlock()

	snapshot := make([]*trading.Order, len(a.orders[userID]))
	copy(snapshot, a.orders[userID])

	return snapshot
}

func (a *Archive) Trades(userID string) []*trading.Trade {
	a.archiveMutex.Lock()
	defer a.archiveMutex.Unlock()

	snapshot := make([]*trading.Trade, len(a.trades[userID]))
	copy(snapshot, a.trades[userID])

	return snapshot
}
