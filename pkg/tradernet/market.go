package tradernet

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/coachpo/tradernet/errs"
	"github.com/coachpo/tradernet/pkg/core"
)

// GetQuotes returns quotes for the symbols.
func (c *Client) GetQuotes(ctx context.Context, symbols []string) (json.RawMessage, error) {
	return c.call(ctx, "getStockQuotesJson", map[string]any{"tickers": strings.Join(symbols, ",")})
}

// GetCandles returns OHLC history between start and end.
func (c *Client) GetCandles(ctx context.Context, symbol string, start, end time.Time, timeframe time.Duration) (json.RawMessage, error) {
	return c.call(ctx, "getHloc", map[string]any{
		"id":           symbol,
		"count":        -1,
		"timeframe":    int64(timeframe / time.Minute),
		"date_from":    start.Format(candleDate),
		"date_to":      end.Format(candleDate),
		"intervalMode": "OpenRay",
	})
}

const candleDate = "02.01.2006 15:04"

// GetMarketStatus returns the market status; an empty mode is omitted.
func (c *Client) GetMarketStatus(ctx context.Context, market, mode string) (json.RawMessage, error) {
	params := map[string]any{"market": market}
	if mode != "" {
		params["mode"] = mode
	}
	return c.call(ctx, "getMarketStatus", params)
}

// SecurityInfo returns security details.
func (c *Client) SecurityInfo(ctx context.Context, symbol string, sup bool) (json.RawMessage, error) {
	return c.call(ctx, "getSecurityInfo", map[string]any{"ticker": symbol, "sup": sup})
}

// GetOptions lists options on the underlying at the exchange.
func (c *Client) GetOptions(ctx context.Context, underlying, exchange string) (json.RawMessage, error) {
	return c.call(ctx, "getOptionsByMkt", map[string]any{"underlying": underlying, "mkt": exchange})
}

// FindSymbol searches tickers, optionally restricted to an exchange.
func (c *Client) FindSymbol(ctx context.Context, symbol, exchange string) (json.RawMessage, error) {
	text := symbol
	if exchange != "" {
		text = symbol + "@" + exchange
	}
	return c.core.PlainRequest(ctx, "tickerFinder", map[string]any{"text": text})
}

// GetNews searches news. Empty symbol and storyID are omitted.
func (c *Client) GetNews(ctx context.Context, query, symbol, storyID string, limit int64) (json.RawMessage, error) {
	params := map[string]any{"searchFor": query, "limit": limit}
	if symbol != "" {
		params["ticker"] = symbol
	}
	if storyID != "" {
		params["storyId"] = storyID
	}
	return c.call(ctx, "getNews", params)
}

// GetMostTraded returns the top securities list.
func (c *Client) GetMostTraded(ctx context.Context, instrumentType, exchange string, gainers bool, limit int64) (json.RawMessage, error) {
	return c.core.PlainRequest(ctx, "getTopSecurities", map[string]any{
		"type":     instrumentType,
		"exchange": exchange,
		"gainers":  boolInt(gainers),
		"limit":    limit,
	})
}

// Symbol returns stock data for the ticker in the given language.
func (c *Client) Symbol(ctx context.Context, ticker, lang string) (json.RawMessage, error) {
	return c.call(ctx, "getStockData", map[string]any{"ticker": ticker, "lang": lang})
}

// Symbols returns the ready list, optionally for one exchange.
func (c *Client) Symbols(ctx context.Context, exchange string) (json.RawMessage, error) {
	var params map[string]any
	if exchange != "" {
		params = map[string]any{"mkt": strings.ToLower(exchange)}
	}
	return c.call(ctx, "getReadyList", params)
}

// CorporateActions lists planned corporate actions for the office.
func (c *Client) CorporateActions(ctx context.Context, reception int64) (json.RawMessage, error) {
	return c.call(ctx, "getPlannedCorpActions", map[string]any{"reception": reception})
}

// ExportSecurities downloads security records in batches of core.MaxExportSize
// symbols. Results keep the request order. Empty fields request the server default.
func (c *Client) ExportSecurities(ctx context.Context, symbols, fields []string) ([]json.RawMessage, error) {
	const op = "tradernet.export_securities"
	results := make([]json.RawMessage, 0, len(symbols))
	for start := 0; start < len(symbols); start += core.MaxExportSize {
		end := min(start+core.MaxExportSize, len(symbols))
		query := map[string]any{"tickers": strings.Join(symbols[start:end], " ")}
		if len(fields) > 0 {
			query["params"] = strings.Join(fields, " ")
		}
		resp, err := c.core.Get(ctx, "/securities/export", query)
		if err != nil {
			return nil, fmt.Errorf("export chunk %d: %w", start/core.MaxExportSize, err)
		}
		var chunk []json.RawMessage
		if err := json.Unmarshal(resp.Body, &chunk); err != nil {
			return nil, errs.New(op, errs.CodeSerialization,
				errs.WithMessage("export response is not a list"), errs.WithCause(err))
		}
		results = append(results, chunk...)
	}
	return results, nil
}
