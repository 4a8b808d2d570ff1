package trading

import (
	"fmt"
	"math/big"
	"time"
)

// Trade is an immutable fill record derived from a filled order.
type Trade struct {
	ID      ID
	OrderID ID
	Pair    Pair
	Side    OrderSide
	Size    *big.Float
	Price   *big.Float
	Fee     *big.Float
	Time    time.Time
}

func (t *Trade) String() string {
	return fmt.Sprintf(
		"%v %v, size: %v, price: %v",
		t.Pair.String(),
		t.Side,
		t.Size.Text('f', 8),
		t.Price.Text('f', 8),
	)
}
