package trading

import "math/big"

// Balance describes the funds held in a single asset. The invariant
// maintained by every balance owner is that both components are
// non-negative and Total is always their exact sum.
type Balance struct {
	Asset     Asset
	Available *big.Float
	Locked    *big.Float
}

func NewBalance(asset Asset, available, locked *big.Float) *Balance {
	return &Balance{
		Asset:     asset,
		Available: available,
		Locked:    locked,
	}
}

func (b *Balance) Total() *big.Float {
	return new(big.Float).Add(b.Available, b.Locked)
}

func (b *Balance) Copy() *Balance {
	return &Balance{
		Asset:     b.Asset,
		Available: new(big.Float).Copy(b.Available),
		Locked:    new(big.Float).Copy(b.Locked),
	}
}

type Balances map[Asset]*Balance

func (bm Balances) BalanceOf(asset Asset) *Balance {
	if balance, exists := bm[asset]; exists {
		return balance
	}

	return NewBalance(asset, big.NewFloat(0), big.NewFloat(0))
}
