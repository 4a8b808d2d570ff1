package trading

import (
	"fmt"
	"math/big"
	"time"
)

// Position is the per-pair aggregate of fills. EntryPrice is the
// weighted-average cost basis, recomputed on every fill; Size equals
// the sum of signed fill sizes.
type Position struct {
	Pair                 Pair
	Size                 *big.Float
	EntryPrice           *big.Float
	CurrentPrice         *big.Float
	UnrealizedPnl        *big.Float
	UnrealizedPnlPercent *big.Float
	UpdateTime           time.Time
}

func (p *Position) String() string {
	return fmt.Sprintf(
		"%v, size: %v, entry: %v",
		p.Pair.String(),
		p.Size.Text('f', 8),
		p.EntryPrice.Text('f', 8),
	)
}
