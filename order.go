package trading

import (
	"fmt"
	"math/big"
	"time"
)

type OrderSide int

const (
	SideBuy OrderSide = iota
	SideSell
)

func ParseOrderSide(value string) (OrderSide, error) {
	switch value {
	case "BUY":
		return SideBuy, nil
	case "SELL":
		return SideSell, nil
	}

	return -1, fmt.Errorf("unknown order side: [%v]", value)
}

func (os OrderSide) String() string {
	switch os {
	case SideBuy:
		return "BUY"
	case SideSell:
		return "SELL"
	default:
		panic("unknown order side")
	}
}

type OrderType int

const (
	TypeMarket OrderType = iota
	TypeLimit
	TypeStopLoss
	TypeTakeProfit
)

func ParseOrderType(value string) (OrderType, error) {
	switch value {
	case "MARKET":
		return TypeMarket, nil
	case "LIMIT":
		return TypeLimit, nil
	case "STOP_LOSS":
		return TypeStopLoss, nil
	case "TAKE_PROFIT":
		return TypeTakeProfit, nil
	}

	return -1, fmt.Errorf("unknown order type: [%v]", value)
}

func (ot OrderType) String() string {
	switch ot {
	case TypeMarket:
		return "MARKET"
	case TypeLimit:
		return "LIMIT"
	case TypeStopLoss:
		return "STOP_LOSS"
	case TypeTakeProfit:
		return "TAKE_PROFIT"
	default:
		panic("unknown order type")
	}
}

type OrderStatus int

const (
	StatusPending OrderStatus = iota
	StatusOpen
	StatusFilled
	StatusCancelled
	StatusRejected
)

func ParseOrderStatus(value string) (OrderStatus, error) {
	switch value {
	case "PENDING":
		return StatusPending, nil
	case "OPEN":
		return StatusOpen, nil
	case "FILLED":
		return StatusFilled, nil
	case "CANCELLED":
		return StatusCancelled, nil
	case "REJECTED":
		return StatusRejected, nil
	}

	return -1, fmt.Errorf("unknown order status: [%v]", value)
}

func (os OrderStatus) String() string {
	switch os {
	case StatusPending:
		return "PENDING"
	case StatusOpen:
		return "OPEN"
	case StatusFilled:
		return "FILLED"
	case StatusCancelled:
		return "CANCELLED"
	case StatusRejected:
		return "REJECTED"
	default:
		panic("unknown order status")
	}
}

// IsTerminal returns true for statuses an order can never leave.
func (os OrderStatus) IsTerminal() bool {
	return os == StatusFilled || os == StatusCancelled || os == StatusRejected
}

// OrderRequest is the caller's side of order creation. Price is
// required for limit orders and optional otherwise; StopPrice applies
// to stop-loss and take-profit orders only.
type OrderRequest struct {
	Pair      Pair
	Side      OrderSide
	Type      OrderType
	Size      *big.Float
	Price     *big.Float
	StopPrice *big.Float
}

// Order is created by an execution call and mutated only by the engine
// that owns it. Engines keep orders as append-only history; orders are
// never deleted within a session.
type Order struct {
	ID         ID
	Pair       Pair
	Side       OrderSide
	Type       OrderType
	Status     OrderStatus
	Size       *big.Float
	FilledSize *big.Float
	Price      *big.Float
	StopPrice  *big.Float
	Fee        *big.Float
	Time       time.Time
	UpdateTime time.Time
}

func (o *Order) String() string {
	return fmt.Sprintf(
		"%v %v %v %v, size: %v, status: %v",
		o.Pair.String(),
		o.Type,
		o.Side,
		o.ID,
		o.Size.Text('f', 8),
		o.Status,
	)
}
