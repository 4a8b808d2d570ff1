package postgres

import (
	"fmt"
	"time"

	"github.com/coinvex/trading"
	"github.com/jackc/pgtype"
)

// Archive persists flushed session history. Rows are insert-only;
// a flushed order or trade is never updated afterwards.
type Archive struct {
	client    *Client
	idService trading.IDService
}

func NewArchive(client *Client, idService trading.IDService) *Archive {
	return &Archive{client, idService}
}

func (a *Archive) ArchiveOrder(userID string, order *trading.Order) error {
	query := `INSERT INTO archived_order
    	(id, user_id, pair, side, type, status, size, filled_size,
    	 price, stop_price, fee, time, update_time)
    	VALUES (:id, :user_id, :pair, :side, :type, :status, :size,
    	 :filled_size, :price, :stop_price, :fee, :time, :update_time)
    	ON CONFLICT (id) DO NOTHING`

	row, err := new(orderRow).wrap(userID, order)
	if err != nil {
		return fmt.Errorf(
			"could not convert order [%v] to pg row: [%v]",
			order.ID,
			err,
		)
	}

	_, err = a.client.instance().NamedExec(query, row)
	if err != nil {
		return fmt.Errorf(
			"could not execute command for order [%v]: [%v]",
			order.ID,
			err,
		)
	}

	return nil
}

func (a *Archive) ArchiveTrade(userID string, trade *trading.Trade) error {
	query := `INSERT INTO archived_trade
    	(id, user_id, order_id, pair, side, size, price, fee, time)
    	VALUES (:id, :user_id, :order_id, :pair, :side, :size, :price,
    	 :fee, :time)
    	ON CONFLICT (id) DO NOTHING`

	row, err := new(tradeRow).wrap(userID, trade)
	if err != nil {
		return fmt.Errorf(
			"could not convert trade [%v] to pg row: [%v]",
			trade.ID,
			err,
		)
	}

	_, err = a.client.instance().NamedExec(query, row)
	if err != nil {
		return fmt.Errorf(
			"could not execute command for trade [%v]: [%v]",
			trade.ID,
			err,
		)
	}

	return nil
}

func (a *Archive) Orders(userID string) ([]*trading.Order, error) {
	query := `SELECT id, user_id, pair, side, type, status, size,
    	filled_size, price, stop_price, fee, time, update_time
    	FROM archived_order WHERE user_id = $1 ORDER BY time`

	var rows []orderRow
	err := a.client.instance().Select(&rows, query, userID)
	if err != nil {
		return nil, fmt.Errorf(
			"could not execute query for user [%v]: [%v]",
			userID,
			err,
		)
	}

	orders := make([]*trading.Order, len(rows))
	for index := range rows {
		order, err := rows[index].unwrap(a.idService)
		if err != nil {
			return nil, fmt.Errorf(
				"could not convert pg row to order: [%v]",
				err,
			)
		}

		orders[index] = order
	}

	return orders, nil
}

func (a *Archive) Trades(userID string) ([]*trading.Trade, error) {
	query := `SELECT id, user_id, order_id, pair, side, size, price,
    	fee, time FROM archived_trade WHERE user_id = $1 ORDER BY time`

	var rows []tradeRow
	err := a.client.instance().Select(&rows, query, userID)
	if err != nil {
		return nil, fmt.Errorf(
			"could not execute query for user [%v]: [%v]",
			userID,
			err,
		)
	}

	trades := make([]*trading.Trade, len(rows))
	for index := range rows {
		trade, err := rows[index].unwrap(a.idService)
		if err != nil {
			return nil, fmt.Errorf(
				"could not convert pg row to trade: [%v]",
				err,
			)
		}

		trades[index] = trade
	}

	return trades, nil
}

type orderRow struct {
	ID         string
	UserID     string `db:"user_id"`
	Pair       string
	Side       string
	Type       string
	Status     string
	Size       pgtype.Numeric
	FilledSize pgtype.Numeric `db:"filled_size"`
	Price      pgtype.Numeric
	StopPrice  pgtype.Numeric `db:"stop_price"`
	Fee        pgtype.Numeric
	Time       time.Time
	UpdateTime time.Time `db:"update_time"`
}

func (or *orderRow) wrap(
	userID string,
	order *trading.Order,
) (*orderRow, error) {
	size, err := floatToNumeric(order.Size)
	if err != nil {
		return nil, err
	}

	filledSize, err := floatToNumeric(order.FilledSize)
	if err != nil {
		return nil, err
	}

	price, err := floatToNumeric(order.Price)
	if err != nil {
		return nil, err
	}

	stopPrice, err := floatToNumeric(order.StopPrice)
	if err != nil {
		return nil, err
	}

	fee, err := floatToNumeric(order.Fee)
	if err != nil {
		return nil, err
	}

	or.ID = order.ID.String()
	or.UserID = userID
	or.Pair = order.Pair.String()
	or.Side = order.Side.String()
	or.Type = order.Type.String()
	or.Status = order.Status.String()
	or.Size = size
	or.FilledSize = filledSize
	or.Price = price
	or.StopPrice = stopPrice
	or.Fee = fee
	or.Time = order.Time
	or.UpdateTime = order.UpdateTime

	return or, nil
}

func (or *orderRow) unwrap(
	idService trading.IDService,
) (*trading.Order, error) {
	ID, err := idService.NewIDFromString(or.ID)
	if err != nil {
		return nil, err
	}

	pair, err := trading.ParsePair(or.Pair)
	if err != nil {
		return nil, err
	}

	side, err := trading.ParseOrderSide(or.Side)
	if err != nil {
		return nil, err
	}

	orderType, err := trading.ParseOrderType(or.Type)
	if err != nil {
		return nil, err
	}

	status, err := trading.ParseOrderStatus(or.Status)
	if err != nil {
		return nil, err
	}

	size, err := numericToFloat(or.Size)
	if err != nil {
		return nil, err
	}

	filledSize, err := numericToFloat(or.FilledSize)
	if err != nil {
		return nil, err
	}

	price, err := numericToFloat(or.Price)
	if err != nil {
		return nil, err
	}

	stopPrice, err := numericToFloat(or.StopPrice)
	if err != nil {
		return nil, err
	}

	fee, err := numericToFloat(or.Fee)
	if err != nil {
		return nil, err
	}

	return &trading.Order{
		ID:         ID,
		Pair:       pair,
		Side:       side,
		Type:       orderType,
		Status:     status,
		Size:       size,
		FilledSize: filledSize,
		Price:      price,
		StopPrice:  stopPrice,
		Fee:        fee,
		Time:       or.Time,
		UpdateTime: or.UpdateTime,
	}, nil
}

type tradeRow struct {
	ID      string
	UserID  string `db:"user_id"`
	OrderID string `db:"order_id"`
	Pair    string
	Side    string
	Size    pgtype.Numeric
	Price   pgtype.Numeric
	Fee     pgtype.Numeric
	Time    time.Time
}

func (tr *tradeRow) wrap(
	userID string,
	trade *trading.Trade,
) (*tradeRow, error) {
	size, err := floatToNumeric(trade.Size)
	if err != nil {
		return nil, err
	}

	price, err := floatToNumeric(trade.Price)
	if err != nil {
		return nil, err
	}

	fee, err := floatToNumeric(trade.Fee)
	if err != nil {
		return nil, err
	}

	tr.ID = trade.ID.String()
	tr.UserID = userID
	tr.OrderID = trade.OrderID.String()
	tr.Pair = trade.Pair.String()
	tr.Side = trade.Side.String()
	tr.Size = size
	tr.Price = price
	tr.Fee = fee
	tr.Time = trade.Time

	return tr, nil
}

func (tr *tradeRow) unwrap(
	idService trading.IDService,
) (*trading.Trade, error) {
	ID, err := idService.NewIDFromString(tr.ID)
	if err != nil {
		return nil, err
	}

	orderID, err := idService.NewIDFromString(tr.OrderID)
	if err != nil {
		return nil, err
	}

	pair, err := trading.ParsePair(tr.Pair)
	if err != nil {
		return nil, err
	}

	side, err := trading.ParseOrderSide(tr.Side)
	if err != nil {
		return nil, err
	}

	size, err := numericToFloat(tr.Size)
	if err != nil {
		return nil, err
	}

	price, err := numericToFloat(tr.Price)
	if err != nil {
		return nil, err
	}

	fee, err := numericToFloat(tr.Fee)
	if err != nil {
		return nil, err
	}

	return &trading.Trade{
		ID:      ID,
		OrderID: orderID,
		Pair:    pair,
		Side:    side,
		Size:    size,
		Price:   price,
		Fee:     fee,
		Time:    tr.Time,
	}, nil
}
