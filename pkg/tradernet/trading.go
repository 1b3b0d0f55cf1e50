package tradernet

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/coachpo/tradernet/errs"
	"github.com/coachpo/tradernet/lib/observability"
)

// Duration names accepted by Trade.
const (
	DurationDay = "day"
	DurationExt = "ext"
	DurationGTC = "gtc"
	DurationIOC = "ioc"
)

// Order describes a trade request. Quantity is signed: positive buys, negative sells.
// A zero Price places a market order.
type Order struct {
	Symbol        string
	Quantity      int64
	Price         float64
	Duration      string
	UseMargin     bool
	CustomOrderID *int64
}

func durationCode(d string) (int, bool) {
	switch strings.ToLower(d) {
	case DurationDay:
		return 1, true
	case DurationExt:
		return 2, true
	case DurationGTC:
		return 3, true
	}
	return 0, false
}

func actionID(quantity int64, margin bool) int {
	switch {
	case quantity > 0 && !margin:
		return 1
	case quantity > 0:
		return 2
	case !margin:
		return 3
	default:
		return 4
	}
}

func finitePrice(op string, price float64) error {
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return errs.Invalid(op, "Invalid price")
	}
	return nil
}

func tradeParams(o Order) (map[string]any, error) {
	const op = "tradernet.trade"
	if o.Quantity == 0 {
		return nil, errs.Invalid(op, "Zero quantity")
	}
	code, ok := durationCode(o.Duration)
	if !ok {
		return nil, errs.Invalid(op, "Unknown duration "+o.Duration)
	}
	if err := finitePrice(op, o.Price); err != nil {
		return nil, err
	}
	orderType := 1
	if o.Price != 0 {
		orderType = 2
	}
	qty := o.Quantity
	if qty < 0 {
		qty = -qty
	}
	params := map[string]any{
		"instr_name":    o.Symbol,
		"action_id":     actionID(o.Quantity, o.UseMargin),
		"order_type_id": orderType,
		"qty":           qty,
		"limit_price":   o.Price,
		"expiration_id": code,
	}
	if o.CustomOrderID != nil {
		params["user_order_id"] = *o.CustomOrderID
	}
	return params, nil
}

// Trade places an order. The ioc duration is emulated: a day order is placed
// and then cancelled; a failed cancel is logged and does not fail the trade.
func (c *Client) Trade(ctx context.Context, o Order) (json.RawMessage, error) {
	if strings.EqualFold(o.Duration, DurationIOC) {
		day := o
		day.Duration = DurationDay
		placed, err := c.Trade(ctx, day)
		if err != nil {
			return nil, err
		}
		if id, ok := orderID(placed); ok {
			if _, err := c.Cancel(ctx, id); err != nil {
				observability.Log().Warn("ioc cancel failed",
					observability.Field{Key: "order_id", Value: id},
					observability.Field{Key: "symbol", Value: o.Symbol},
					observability.Field{Key: "error", Value: err.Error()},
				)
			}
		}
		return placed, nil
	}

	params, err := tradeParams(o)
	if err != nil {
		return nil, err
	}
	return c.call(ctx, "putTradeOrder", params)
}

func orderID(raw json.RawMessage) (int64, bool) {
	var resp struct {
		OrderID json.RawMessage `json:"order_id"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil || len(resp.OrderID) == 0 {
		return 0, false
	}
	id, err := strconv.ParseInt(string(resp.OrderID), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Buy places a buy order. Quantity must be positive.
func (c *Client) Buy(ctx context.Context, o Order) (json.RawMessage, error) {
	if o.Quantity <= 0 {
		return nil, errs.Invalid("tradernet.buy", "Quantity must be positive")
	}
	return c.Trade(ctx, o)
}

// Sell places a sell order. Quantity must be positive and is negated.
func (c *Client) Sell(ctx context.Context, o Order) (json.RawMessage, error) {
	if o.Quantity <= 0 {
		return nil, errs.Invalid("tradernet.sell", "Quantity must be positive")
	}
	o.Quantity = -o.Quantity
	return c.Trade(ctx, o)
}

// Stop sets a stop loss on an open position.
func (c *Client) Stop(ctx context.Context, symbol string, price float64) (json.RawMessage, error) {
	if err := finitePrice("tradernet.stop", price); err != nil {
		return nil, err
	}
	return c.call(ctx, "putStopLoss", map[string]any{"instr_name": symbol, "stop_loss": price})
}

// TrailingStop sets a trailing stop loss in percent.
func (c *Client) TrailingStop(ctx context.Context, symbol string, percent int64) (json.RawMessage, error) {
	return c.call(ctx, "putStopLoss", map[string]any{
		"instr_name":                symbol,
		"stop_loss_percent":         percent,
		"stoploss_trailing_percent": percent,
	})
}

// TakeProfit sets a take profit level.
func (c *Client) TakeProfit(ctx context.Context, symbol string, price float64) (json.RawMessage, error) {
	if err := finitePrice("tradernet.take_profit", price); err != nil {
		return nil, err
	}
	return c.call(ctx, "putStopLoss", map[string]any{"instr_name": symbol, "take_profit": price})
}

// Cancel cancels an active order.
func (c *Client) Cancel(ctx context.Context, orderID int64) (json.RawMessage, error) {
	return c.call(ctx, "delTradeOrder", map[string]any{"order_id": orderID})
}

// CancelAll cancels every active order one at a time. All cancels are
// attempted; their failures are joined into the returned error.
func (c *Client) CancelAll(ctx context.Context) ([]json.RawMessage, error) {
	placed, err := c.GetPlaced(ctx, true)
	if err != nil {
		return nil, fmt.Errorf("cancel all: %w", err)
	}
	ids := activeOrderIDs(placed)
	results := make([]json.RawMessage, 0, len(ids))
	failures := make([]error, 0)
	for _, id := range ids {
		res, err := c.Cancel(ctx, id)
		if err != nil {
			failures = append(failures, fmt.Errorf("order %d: %w", id, err))
			continue
		}
		results = append(results, res)
	}
	return results, observability.AggregateErrors("cancel all", len(ids), failures)
}

func activeOrderIDs(raw json.RawMessage) []int64 {
	var placed struct {
		Result struct {
			Orders struct {
				Order json.RawMessage `json:"order"`
			} `json:"orders"`
		} `json:"result"`
	}
	if err := json.Unmarshal(raw, &placed); err != nil {
		return nil
	}
	var orders []struct {
		ID json.RawMessage `json:"id"`
	}
	if err := json.Unmarshal(placed.Result.Orders.Order, &orders); err != nil {
		return nil
	}
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		if id, err := strconv.ParseInt(string(o.ID), 10, 64); err == nil {
			ids = append(ids, id)
		}
	}
	return ids
}

// GetPlaced lists orders, optionally only the active ones.
func (c *Client) GetPlaced(ctx context.Context, active bool) (json.RawMessage, error) {
	return c.call(ctx, "getNotifyOrderJson", map[string]any{"active_only": boolInt(active)})
}

// GetHistorical lists orders placed in the period.
func (c *Client) GetHistorical(ctx context.Context, from, till time.Time) (json.RawMessage, error) {
	return c.call(ctx, "getOrdersHistory", map[string]any{
		"from": from.Format(isoSeconds),
		"till": till.Format(isoSeconds),
	})
}

const isoSeconds = "2006-01-02T15:04:05"

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
