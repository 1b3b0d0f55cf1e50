package tradernet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/coachpo/tradernet/errs"
	"github.com/coachpo/tradernet/pkg/opq"
)

func TestGetUserDataDecodesSnapshot(t *testing.T) {
	api := newFakeAPI()
	api.handle("getOPQ", func(map[string]any) (int, string) {
		return 200, `{"OPQ":{"rev":"7","brief_nm":"000000","homeCurrency":"USD",
			"ps":{"loaded":true,"pos":[{"i":"AAPL.US","q":"10"}]},
			"userLists":{"userStockLists":["AAPL.US"]}}}`
	})
	c := newTestClient(t, api)

	resp, err := c.GetUserData(context.Background())
	require.NoError(t, err)
	require.Equal(t, opq.Int(7), resp.OPQ.Rev)
	pos, ok := resp.OPQ.Position("AAPL.US")
	require.True(t, ok)
	require.Equal(t, opq.Int(10), pos.Quantity)
	require.Equal(t, []string{"AAPL.US"}, resp.OPQ.UserLists.StockLists.Default)
}

func TestGetUserDataPropagatesPath(t *testing.T) {
	api := newFakeAPI()
	api.handle("getOPQ", func(map[string]any) (int, string) {
		return 200, `{"OPQ":{"ps":{"acc":[{"s":"n/a"}]}}}`
	})
	c := newTestClient(t, api)

	_, err := c.GetUserData(context.Background())
	require.True(t, errs.Is(err, errs.CodeDecode))
	require.ErrorContains(t, err, `path="OPQ.ps.acc[0].s"`)
}

func TestStreamSharesCore(t *testing.T) {
	c := newTestClient(t, newFakeAPI())
	require.NotNil(t, c.Stream())
}
