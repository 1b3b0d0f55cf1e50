package opq

import (
	"math"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coachpo/tradernet/errs"
	"github.com/coachpo/tradernet/lib/observability"
)

type warnRecorder struct {
	mu    sync.Mutex
	warns []string
}

func (r *warnRecorder) Debug(string, ...observability.Field) {}
func (r *warnRecorder) Info(string, ...observability.Field)  {}
func (r *warnRecorder) Error(string, ...observability.Field) {}
func (r *warnRecorder) Warn(msg string, _ ...observability.Field) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.warns = append(r.warns, msg)
}

func (r *warnRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.warns)
}

func captureWarnings(t *testing.T) *warnRecorder {
	t.Helper()
	rec := &warnRecorder{}
	observability.SetLogger(rec)
	t.Cleanup(func() { observability.SetLogger(nil) })
	return rec
}

func TestDecodeFixture(t *testing.T) {
	data, err := os.ReadFile("testdata/get_user_data.json")
	require.NoError(t, err)

	resp, err := Decode(data)
	require.NoError(t, err)

	o := resp.OPQ
	require.Equal(t, "000000", o.BriefName)
	require.Equal(t, "USD", o.HomeCurrency)
	require.Len(t, o.Quotes.Q, 1)
	id, ok := o.UserInfo.ID.Get()
	require.True(t, ok)
	require.Equal(t, int64(100000000), id)
	require.Len(t, o.UserOptions.GridPortfolio, 3)

	q := o.Quotes.Q[0]
	bid, ok := q.BestBidPrice.Get()
	require.True(t, ok)
	require.InDelta(t, 172.4, bid, 1e-9)
	require.False(t, q.BestAskFlag.Valid)
	require.Equal(t, int64(1), q.Type.Value)
	require.Equal(t, "0", q.BaseContractCode.Value)

	pos, ok := o.Position("AAPL.US")
	require.True(t, ok)
	require.Equal(t, Int(10), pos.Quantity)
	require.Equal(t, int64(10000000), pos.InstrumentID.Value)

	usd, ok := o.Balance("USD")
	require.True(t, ok)
	require.InDelta(t, 1523.37, float64(usd.Amount), 1e-9)
	require.Equal(t, Float(0), usd.ForecastOut)

	require.Equal(t, []string{"AAPL.US", "TSLA.US"}, o.UserLists.StockLists.Default)
	require.Contains(t, o.UserLists.StockLists.Others, "tech")

	market := o.Markets.Markets.M[0]
	require.Equal(t, Int(-300), market.DT)
	require.Equal(t, "0", market.Pre.Value)
	require.Equal(t, Text("20240116"), market.Dates[0].To)

	require.Equal(t, "1", o.NoOrderGrowls.Value)
	require.Equal(t, "840", o.UserInfo.Country.Value)
	require.NotNil(t, o.UserInfo.Details)
	require.Equal(t, Int(1700000000), o.UserInfo.Details.LastShownDateMessage["promo"])
	require.Equal(t, "123456", o.UserInfo.Details.TelegramID.Value)
	require.Equal(t, "40817", *o.UserInfo.Details.FFinBankRequisites.Response.Accounts[0].Number)

	// active arrives as 1.0
	require.Len(t, resp.Anomalies, 1)
	require.Equal(t, "OPQ.active", resp.Anomalies[0].Path)
	require.False(t, resp.Anomalies[0].Truncated)
}

func TestRevCoercion(t *testing.T) {
	cases := []struct {
		raw     string
		want    Int
		anomaly bool
	}{
		{raw: `""`, want: 0},
		{raw: `1.0`, want: 1, anomaly: true},
		{raw: `"1"`, want: 1},
		{raw: `1`, want: 1},
	}
	for _, tc := range cases {
		t.Run(tc.raw, func(t *testing.T) {
			rec := captureWarnings(t)
			resp, err := Decode([]byte(`{"OPQ":{"rev":` + tc.raw + `}}`))
			require.NoError(t, err)
			require.Equal(t, tc.want, resp.OPQ.Rev)
			if tc.anomaly {
				require.Len(t, resp.Anomalies, 1)
				require.Equal(t, "OPQ.rev", resp.Anomalies[0].Path)
				require.Equal(t, 1, rec.count())
			} else {
				require.Empty(t, resp.Anomalies)
				require.Zero(t, rec.count())
			}
		})
	}
}

func TestIntCoercionEdges(t *testing.T) {
	cases := map[string]Int{
		`null`:    0,
		`true`:    1,
		`false`:   0,
		`" 42 "`:  42,
		`"2.9"`:   2,
		`-3.7`:    -3,
		`"   "`:   0,
		`9007199`: 9007199,
	}
	for raw, want := range cases {
		var got Int
		require.NoError(t, got.UnmarshalJSON([]byte(raw)), raw)
		require.Equal(t, want, got, raw)
	}

	var top Int
	require.NoError(t, top.UnmarshalJSON([]byte(`9223372036854775807`)))
	require.Equal(t, Int(math.MaxInt64), top)

	var bad Int
	for _, raw := range []string{`1e20`, `"99999999999999999999"`, `-1e30`} {
		err := bad.UnmarshalJSON([]byte(raw))
		require.True(t, errs.Is(err, errs.CodeDecode), raw)
		require.ErrorContains(t, err, "integer out of range", raw)
	}
	require.True(t, errs.Is(bad.UnmarshalJSON([]byte(`"abc"`)), errs.CodeDecode))
	require.True(t, errs.Is(bad.UnmarshalJSON([]byte(`[1]`)), errs.CodeDecode))
}

func TestOutOfRangeIntegerFailsWithPath(t *testing.T) {
	resp, err := Decode([]byte(`{"OPQ":{"rev":1e20}}`))
	require.Nil(t, resp)
	e, ok := err.(*errs.E)
	require.True(t, ok)
	require.Equal(t, "OPQ.rev", e.Path)
}

func TestOptionalCoercion(t *testing.T) {
	var f OptFloat
	require.NoError(t, f.UnmarshalJSON([]byte(`""`)))
	require.False(t, f.Valid)
	require.NoError(t, f.UnmarshalJSON([]byte(`"2.5"`)))
	require.True(t, f.Valid)
	require.InDelta(t, 2.5, f.Value, 1e-9)

	var i OptInt
	require.NoError(t, i.UnmarshalJSON([]byte(`null`)))
	require.False(t, i.Valid)
	require.NoError(t, i.UnmarshalJSON([]byte(`""`)))
	require.True(t, i.Valid)
	require.Zero(t, i.Value)

	var s OptText
	require.NoError(t, s.UnmarshalJSON([]byte(`12.50`)))
	require.Equal(t, "12.50", s.Value)
	require.Error(t, s.UnmarshalJSON([]byte(`{}`)))
}

func TestStockListShapesAreEquivalent(t *testing.T) {
	shapes := []string{
		`{"default":["AAPL.US","TSLA.US"]}`,
		`[{"default":["AAPL.US","TSLA.US"]}]`,
		`["AAPL.US","TSLA.US"]`,
	}
	for _, shape := range shapes {
		resp, err := Decode([]byte(`{"OPQ":{"userLists":{"userStockLists":` + shape + `}}}`))
		require.NoError(t, err, shape)
		require.Equal(t, []string{"AAPL.US", "TSLA.US"}, resp.OPQ.UserLists.StockLists.Default, shape)
	}

	for _, empty := range []string{`null`, `[]`} {
		resp, err := Decode([]byte(`{"OPQ":{"userLists":{"userStockLists":` + empty + `}}}`))
		require.NoError(t, err)
		require.Empty(t, resp.OPQ.UserLists.StockLists.Default)
	}

	_, err := Decode([]byte(`{"OPQ":{"userLists":{"userStockLists":5}}}`))
	require.True(t, errs.Is(err, errs.CodeDecode))
}

func TestDecodeErrorCarriesFieldPath(t *testing.T) {
	payload := `{"OPQ":{"ps":{"loaded":true,"pos":[{"q":1},{"q":"2"},{"q":"many"}]}}}`
	_, err := Decode([]byte(payload))
	require.Error(t, err)

	e, ok := err.(*errs.E)
	require.True(t, ok)
	require.Equal(t, errs.CodeDecode, e.Code)
	require.Equal(t, "OPQ.ps.pos[2].q", e.Path)
}

func TestDecodeRejectsMalformedInput(t *testing.T) {
	_, err := Decode([]byte(`{"OPQ":`))
	require.True(t, errs.Is(err, errs.CodeSerialization))

	_, err = Decode([]byte(`{"other":{}}`))
	require.True(t, errs.Is(err, errs.CodeDecode))
}

func TestDecodeOPQ(t *testing.T) {
	o, anomalies, err := DecodeOPQ([]byte(`{"brief_nm":"1","rev":"2.5"}`))
	require.NoError(t, err)
	require.Equal(t, "1", o.BriefName)
	require.Equal(t, Int(2), o.Rev)
	require.Len(t, anomalies, 1)
	require.True(t, anomalies[0].Truncated)
}

func TestSpacedFieldNames(t *testing.T) {
	resp, err := Decode([]byte(`{"OPQ":{"userInfo":{"details":{"Date register":"2020-01-01","utm_campaign - to Real":7}}}}`))
	require.NoError(t, err)
	d := resp.OPQ.UserInfo.Details
	require.NotNil(t, d)
	require.Equal(t, "2020-01-01", *d.DateRegister)
	require.Equal(t, "7", d.UTMCampaignReal.Value)
}
