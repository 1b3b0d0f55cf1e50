package tradernet

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/shopspring/decimal"

	"github.com/coachpo/tradernet/errs"
	"github.com/coachpo/tradernet/pkg/opq"
)

// UserInfo returns the account profile.
func (c *Client) UserInfo(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, "GetAllUserTexInfo", nil)
}

// GetUserDataRaw returns the account snapshot as received.
func (c *Client) GetUserDataRaw(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, "getOPQ", nil)
}

// GetUserData returns the account snapshot decoded by the tolerant decoder.
func (c *Client) GetUserData(ctx context.Context) (*opq.Response, error) {
	raw, err := c.GetUserDataRaw(ctx)
	if err != nil {
		return nil, err
	}
	resp, err := opq.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("user data: %w", err)
	}
	return resp, nil
}

// AccountSummary returns positions and balances.
func (c *Client) AccountSummary(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, "getPositionJson", nil)
}

// TradesQuery selects trades for GetTradesHistory. Zero optional values are omitted.
type TradesQuery struct {
	Start    time.Time
	End      time.Time
	TradeID  int64
	Limit    int64
	Symbol   string
	Currency string
}

// GetTradesHistory lists executed trades.
func (c *Client) GetTradesHistory(ctx context.Context, q TradesQuery) (json.RawMessage, error) {
	params := map[string]any{
		"beginDate": q.Start.Format(time.DateOnly),
		"endDate":   q.End.Format(time.DateOnly),
	}
	if q.TradeID != 0 {
		params["tradeId"] = q.TradeID
	}
	if q.Limit != 0 {
		params["max"] = q.Limit
	}
	if q.Symbol != "" {
		params["nt_ticker"] = q.Symbol
	}
	if q.Currency != "" {
		params["curr"] = q.Currency
	}
	return c.call(ctx, "getTradesHistory", params)
}

// RequestsQuery selects client requests for GetRequestsHistory. Nil pointers are omitted.
type RequestsQuery struct {
	DocID  *int64
	ExecID *int64
	Start  time.Time
	End    time.Time
	Limit  *int64
	Offset *int64
	Status *int64
}

// GetRequestsHistory lists client requests.
func (c *Client) GetRequestsHistory(ctx context.Context, q RequestsQuery) (json.RawMessage, error) {
	params := map[string]any{
		"date_from": q.Start.Format(isoSeconds),
		"date_to":   q.End.Format(isoSeconds),
	}
	setOpt(params, "cpsDocId", q.DocID)
	setOpt(params, "id", q.ExecID)
	setOpt(params, "limit", q.Limit)
	setOpt(params, "offset", q.Offset)
	setOpt(params, "cps_status", q.Status)
	return c.call(ctx, "getClientCpsHistory", params)
}

func setOpt(params map[string]any, key string, v *int64) {
	if v != nil {
		params[key] = *v
	}
}

// GetOrderFiles lists files attached to a request. internalID wins over
// orderID; at least one must be set.
func (c *Client) GetOrderFiles(ctx context.Context, orderID, internalID *int64) (json.RawMessage, error) {
	params := map[string]any{}
	switch {
	case internalID != nil:
		params["internal_id"] = *internalID
	case orderID != nil:
		params["id"] = *orderID
	default:
		return nil, errs.Invalid("tradernet.get_order_files", "Either order_id or internal_id must be specified")
	}
	return c.call(ctx, "getCpsFiles", params)
}

// BrokerReportQuery selects a broker report. A zero Period means 23:59:59.
type BrokerReportQuery struct {
	Start     time.Time
	End       time.Time
	Period    time.Time
	BlockType string
}

// GetBrokerReport returns a broker report in JSON format.
func (c *Client) GetBrokerReport(ctx context.Context, q BrokerReportQuery) (json.RawMessage, error) {
	period := "23:59:59"
	if !q.Period.IsZero() {
		period = q.Period.Format(time.TimeOnly)
	}
	params := map[string]any{
		"date_start":  q.Start.Format(time.DateOnly),
		"date_end":    q.End.Format(time.DateOnly),
		"time_period": period,
		"format":      "json",
	}
	if q.BlockType != "" {
		params["type"] = q.BlockType
	}
	return c.call(ctx, "getBrokerReport", params)
}

// GetTariffsList lists available tariffs.
func (c *Client) GetTariffsList(ctx context.Context) (json.RawMessage, error) {
	return c.call(ctx, "GetListTariffs", nil)
}

// NewUserRequest carries registration data.
type NewUserRequest struct {
	Login       string
	Reception   string
	Phone       string
	Lastname    string
	Firstname   string
	Password    string
	UTMCampaign string
	TariffID    *int64
}

// NewUser registers a new user. The call is unsigned.
func (c *Client) NewUser(ctx context.Context, r NewUserRequest) (json.RawMessage, error) {
	params := map[string]any{
		"login":     r.Login,
		"pwd":       r.Password,
		"reception": r.Reception,
		"phone":     r.Phone,
		"lastname":  r.Lastname,
		"firstname": r.Firstname,
	}
	setOpt(params, "tariff_id", r.TariffID)
	if r.UTMCampaign != "" {
		params["utm_campaign"] = r.UTMCampaign
	}
	return c.core.PlainRequest(ctx, "registerNewUser", params)
}

// CheckMissingFields reports profile fields still required for a step.
func (c *Client) CheckMissingFields(ctx context.Context, step int64, office string) (json.RawMessage, error) {
	return c.call(ctx, "checkStep", map[string]any{"step": step, "office": office})
}

// GetProfileFields lists profile fields for the office.
func (c *Client) GetProfileFields(ctx context.Context, reception int64) (json.RawMessage, error) {
	return c.call(ctx, "getProfileFields", map[string]any{"reception": reception})
}

// GetPriceAlerts lists price alerts, optionally for one symbol.
func (c *Client) GetPriceAlerts(ctx context.Context, symbol string) (json.RawMessage, error) {
	var params map[string]any
	if symbol != "" {
		params = map[string]any{"ticker": symbol}
	}
	return c.call(ctx, "getAlertsList", params)
}

// PriceAlert describes a new alert. Empty strings take the server defaults
// crossing, ltp and email.
type PriceAlert struct {
	Symbol      string
	Prices      []decimal.Decimal
	TriggerType string
	QuoteType   string
	SendTo      string
	Frequency   int64
	Expire      int64
}

// AddPriceAlert creates a price alert. Prices are sent as decimal strings.
func (c *Client) AddPriceAlert(ctx context.Context, a PriceAlert) (json.RawMessage, error) {
	if len(a.Prices) == 0 {
		return nil, errs.Invalid("tradernet.add_price_alert", "At least one price is required")
	}
	prices := make([]string, len(a.Prices))
	for i, p := range a.Prices {
		prices[i] = p.String()
	}
	return c.call(ctx, "addPriceAlert", map[string]any{
		"ticker":            a.Symbol,
		"price":             prices,
		"trigger_type":      orDefault(a.TriggerType, "crossing"),
		"quote_type":        orDefault(a.QuoteType, "ltp"),
		"notification_type": orDefault(a.SendTo, "email"),
		"alert_period":      a.Frequency,
		"expire":            a.Expire,
	})
}

// DeletePriceAlert removes an alert.
func (c *Client) DeletePriceAlert(ctx context.Context, alertID int64) (json.RawMessage, error) {
	return c.call(ctx, "addPriceAlert", map[string]any{"id": alertID, "del": true})
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
