package tradernet

import (
	"context"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// DefaultTimeframe is the candle width used when none is given.
const DefaultTimeframe = 24 * time.Hour

// Exchange timestamps are shifted to Moscow time.
const seriesOffset = 3 * time.Hour

// Series holds parsed candles for one symbol.
type Series struct {
	Symbol     string
	Timeframe  time.Duration
	Timestamps []time.Time
	// Candles rows are high, low, open, close as sent by getHloc.
	Candles [][4]float64
	Volumes []int64
}

// SymbolSeries downloads and parses candles for symbol.
func (c *Client) SymbolSeries(ctx context.Context, symbol string, start, end time.Time, timeframe time.Duration) (*Series, error) {
	if timeframe <= 0 {
		timeframe = DefaultTimeframe
	}
	raw, err := c.GetCandles(ctx, symbol, start, end, timeframe)
	if err != nil {
		return nil, err
	}
	s := ParseSeries(symbol, raw)
	s.Timeframe = timeframe
	return s, nil
}

// ParseSeries extracts xSeries, hloc and vl for symbol from a getHloc
// response. Entries of the wrong shape are skipped.
func ParseSeries(symbol string, raw json.RawMessage) *Series {
	s := &Series{Symbol: symbol, Timeframe: DefaultTimeframe}
	var resp struct {
		XSeries map[string]json.RawMessage `json:"xSeries"`
		Hloc    map[string]json.RawMessage `json:"hloc"`
		Vl      map[string]json.RawMessage `json:"vl"`
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return s
	}

	for _, item := range rawList(resp.XSeries[symbol]) {
		if sec, err := strconv.ParseInt(string(item), 10, 64); err == nil {
			s.Timestamps = append(s.Timestamps, time.Unix(sec, 0).UTC().Add(seriesOffset))
		}
	}
	for _, item := range rawList(resp.Hloc[symbol]) {
		var row []json.RawMessage
		if json.Unmarshal(item, &row) != nil || len(row) < 4 {
			continue
		}
		var candle [4]float64
		ok := true
		for i := range candle {
			f, err := strconv.ParseFloat(string(row[i]), 64)
			if err != nil {
				ok = false
				break
			}
			candle[i] = f
		}
		if ok {
			s.Candles = append(s.Candles, candle)
		}
	}
	for _, item := range rawList(resp.Vl[symbol]) {
		if v, err := strconv.ParseInt(string(item), 10, 64); err == nil {
			s.Volumes = append(s.Volumes, v)
		}
	}
	return s
}

func rawList(raw json.RawMessage) []json.RawMessage {
	var items []json.RawMessage
	if len(raw) == 0 || json.Unmarshal(raw, &items) != nil {
		return nil
	}
	return items
}
