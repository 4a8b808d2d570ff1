package binance

import (
	"context"
	"fmt"
	"math/big"

	"github.com/adshao/go-binance"
	"github.com/coinvex/trading"
	"github.com/google/uuid"
)

func (es *ExchangeService) CreateOrder(
	ctx context.Context,
	request *trading.OrderRequest,
) (*trading.Order, error) {
	requestCtx, cancelRequestCtx := context.WithTimeout(ctx, requestTimeout)
	defer cancelRequestCtx()

	symbol := es.nativeSymbol(request.Pair)
	symbolInfo, ok := es.findSymbolInfo(symbol)
	if !ok {
		return nil, fmt.Errorf("could not find info for symbol: [%v]", symbol)
	}

	clientOrderID := uuid.New().String()

	service := es.client.NewCreateOrderService().
		Symbol(symbol).
		Side(binance.SideType(request.Side.String())).
		NewClientOrderID(clientOrderID).
		Quantity(request.Size.Text('f', symbolInfo.BaseAssetPrecision))

	switch request.Type {
	case trading.TypeMarket:
		service.Type(binance.OrderTypeMarket)
	case trading.TypeLimit:
		if request.Price == nil {
			return nil, fmt.Errorf("limit order requires a price")
		}

		service.Type(binance.OrderTypeLimit).
			TimeInForce(binance.TimeInForceTypeGTC).
			Price(request.Price.Text('f', symbolInfo.QuotePrecision))
	case trading.TypeStopLoss:
		if request.StopPrice == nil {
			return nil, fmt.Errorf("stop-loss order requires a stop price")
		}

		service.Type(binance.OrderTypeStopLoss).
			StopPrice(request.StopPrice.Text('f', symbolInfo.QuotePrecision))
	case trading.TypeTakeProfit:
		if request.StopPrice == nil {
			return nil, fmt.Errorf("take-profit order requires a stop price")
		}

		service.Type(binance.OrderTypeTakeProfit).
			StopPrice(request.StopPrice.Text('f', symbolInfo.QuotePrecision))
	}

	response, err := service.Do(requestCtx)
	if err != nil {
		return nil, newExchangeError(err)
	}

	price := request.Price
	if len(response.Price) > 0 && response.Price != "0.00000000" {
		price, err = parseFloat(response.Price)
		if err != nil {
			return nil, fmt.Errorf("could not parse order price: [%v]", err)
		}
	}

	filledSize, err := parseFloat(response.ExecutedQuantity)
	if err != nil {
		return nil, fmt.Errorf(
			"could not parse executed quantity: [%v]",
			err,
		)
	}

	transactTime := parseMilliseconds(response.TransactTime)

	return &trading.Order{
		ID:         nativeID(response.ClientOrderID),
		Pair:       request.Pair,
		Side:       request.Side,
		Type:       request.Type,
		Status:     parseOrderStatus(response.Status),
		Size:       new(big.Float).Copy(request.Size),
		FilledSize: filledSize,
		Price:      price,
		StopPrice:  request.StopPrice,
		Fee:        big.NewFloat(0),
		Time:       transactTime,
		UpdateTime: transactTime,
	}, nil
}

func (es *ExchangeService) CancelOrder(
	ctx context.Context,
	pair trading.Pair,
	orderID trading.ID,
) (bool, error) {
	requestCtx, cancelRequestCtx := context.WithTimeout(ctx, requestTimeout)
	defer cancelRequestCtx()

	_, err := es.client.NewCancelOrderService().
		Symbol(es.nativeSymbol(pair)).
		OrigClientOrderID(orderID.String()).
		Do(requestCtx)
	if err != nil {
		return false, newExchangeError(err)
	}

	return true, nil
}

func (es *ExchangeService) Order(
	ctx context.Context,
	pair trading.Pair,
	orderID trading.ID,
) (*trading.Order, error) {
	requestCtx, cancelRequestCtx := context.WithTimeout(ctx, requestTimeout)
	defer cancelRequestCtx()

	response, err := es.client.NewGetOrderService().
		Symbol(es.nativeSymbol(pair)).
		OrigClientOrderID(orderID.String()).
		Do(requestCtx)
	if err != nil {
		return nil, newExchangeError(err)
	}

	return es.parseOrder(pair, response)
}

func (es *ExchangeService) OpenOrders(
	ctx context.Context,
	pair trading.Pair,
) ([]*trading.Order, error) {
	requestCtx, cancelRequestCtx := context.WithTimeout(ctx, requestTimeout)
	defer cancelRequestCtx()

	response, err := es.client.NewListOpenOrdersService().
		Symbol(es.nativeSymbol(pair)).
		Do(requestCtx)
	if err != nil {
		return nil, newExchangeError(err)
	}

	return es.parseOrders(pair, response)
}

func (es *ExchangeService) OrderHistory(
	ctx context.Context,
	pair trading.Pair,
) ([]*trading.Order, error) {
	requestCtx, cancelRequestCtx := context.WithTimeout(ctx, requestTimeout)
	defer cancelRequestCtx()

	response, err := es.client.NewListOrdersService().
		Symbol(es.nativeSymbol(pair)).
		Do(requestCtx)
	if err != nil {
		return nil, newExchangeError(err)
	}

	return es.parseOrders(pair, response)
}

func (es *ExchangeService) parseOrders(
	pair trading.Pair,
	nativeOrders []*binance.Order,
) ([]*trading.Order, error) {
	orders := make([]*trading.Order, 0, len(nativeOrders))

	for _, nativeOrder := range nativeOrders {
		order, err := es.parseOrder(pair, nativeOrder)
		if err != nil {
			return nil, err
		}

		orders = append(orders, order)
	}

	return orders, nil
}

func (es *ExchangeService) parseOrder(
	pair trading.Pair,
	nativeOrder *binance.Order,
) (*trading.Order, error) {
	size, err := parseFloat(nativeOrder.OrigQuantity)
	if err != nil {
		return nil, fmt.Errorf("could not parse order size: [%v]", err)
	}

	filledSize, err := parseFloat(nativeOrder.ExecutedQuantity)
	if err != nil {
		return nil, fmt.Errorf(
			"could not parse executed quantity: [%v]",
			err,
		)
	}

	price, err := parseFloat(nativeOrder.Price)
	if err != nil {
		return nil, fmt.Errorf("could not parse order price: [%v]", err)
	}

	var stopPrice *big.Float
	if len(nativeOrder.StopPrice) > 0 {
		stopPrice, err = parseFloat(nativeOrder.StopPrice)
		if err != nil {
			return nil, fmt.Errorf("could not parse stop price: [%v]", err)
		}
	}

	orderType, err := parseOrderType(nativeOrder.Type)
	if err != nil {
		return nil, err
	}

	side, err := trading.ParseOrderSide(string(nativeOrder.Side))
	if err != nil {
		return nil, err
	}

	return &trading.Order{
		ID:         nativeID(nativeOrder.ClientOrderID),
		Pair:       pair,
		Side:       side,
		Type:       orderType,
		Status:     parseOrderStatus(nativeOrder.Status),
		Size:       size,
		FilledSize: filledSize,
		Price:      price,
		StopPrice:  stopPrice,
		Fee:        big.NewFloat(0),
		Time:       parseMilliseconds(nativeOrder.Time),
		UpdateTime: parseMilliseconds(nativeOrder.UpdateTime),
	}, nil
}

func parseOrderType(value binance.OrderType) (trading.OrderType, error) {
	switch value {
	case binance.OrderTypeMarket:
		return trading.TypeMarket, nil
	case binance.OrderTypeLimit:
		return trading.TypeLimit, nil
	case binance.OrderTypeStopLoss, binance.OrderTypeStopLossLimit:
		return trading.TypeStopLoss, nil
	case binance.OrderTypeTakeProfit, binance.OrderTypeTakeProfitLimit:
		return trading.TypeTakeProfit, nil
	}

	return -1, fmt.Errorf("unknown native order type: [%v]", value)
}

func parseOrderStatus(value binance.OrderStatusType) trading.OrderStatus {
	switch value {
	case binance.OrderStatusTypeNew,
		binance.OrderStatusTypePartiallyFilled,
		binance.OrderStatusTypePendingCancel:
		return trading.StatusOpen
	case binance.OrderStatusTypeFilled:
		return trading.StatusFilled
	case binance.OrderStatusTypeCanceled,
		binance.OrderStatusTypeExpired:
		return trading.StatusCancelled
	case binance.OrderStatusTypeRejected:
		return trading.StatusRejected
	default:
		return trading.StatusPending
	}
}
