package stockapi_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/jrsteele09/stockscope-client/credstore/storefake"
	"github.com/jrsteele09/stockscope-client/internal/apifake"
	errs "github.com/jrsteele09/stockscope-client/internal/errors"
	"github.com/jrsteele09/stockscope-client/internal/utils"
	"github.com/jrsteele09/stockscope-client/session"
	"github.com/jrsteele09/stockscope-client/stockapi"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	api     *apifake.Server
	manager *session.Manager
	client  *stockapi.Client
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	api := apifake.New(t, apifake.WithUser("alice", "alice@example.com", "password123"))
	m, err := session.New(api.URL(), session.NewBearerStrategy(storefake.NewFakeStore()), session.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	_, err = m.Login(context.Background(), "alice", "password123")
	require.NoError(t, err)

	c, err := stockapi.NewClient(m, stockapi.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return &testFixture{api: api, manager: m, client: c}
}

func TestNewClient(t *testing.T) {
	_, err := stockapi.NewClient(nil)
	require.Error(t, err)
}

func TestStocks(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	t.Run("search", func(t *testing.T) {
		results, err := f.client.Search(ctx, "apple", 5)
		require.NoError(t, err)
		require.Len(t, results, 1)
		require.Equal(t, "AAPL", results[0].Symbol)

		_, err = f.client.Search(ctx, "  ", 5)
		require.ErrorIs(t, err, session.ErrValidation)
	})

	t.Run("quote", func(t *testing.T) {
		q, err := f.client.Quote(ctx, "aapl")
		require.NoError(t, err)
		require.Equal(t, "AAPL", q.Symbol)
		require.Positive(t, q.Price)
		require.Positive(t, q.Volume)
	})

	t.Run("unknown symbol is not found", func(t *testing.T) {
		_, err := f.client.Quote(ctx, "ZZZZ")
		var apiErr *stockapi.APIError
		require.ErrorAs(t, err, &apiErr)
		require.Equal(t, http.StatusNotFound, apiErr.Status)
		require.Equal(t, "Stock not found", apiErr.Message)
		require.ErrorIs(t, err, errs.ErrNotFound)
	})

	t.Run("historical", func(t *testing.T) {
		h, err := f.client.Historical(ctx, "MSFT", "1mo", "1d")
		require.NoError(t, err)
		require.Equal(t, "MSFT", h.Symbol)
		require.Len(t, h.Data, 5)
	})

	t.Run("info and indicators", func(t *testing.T) {
		info, err := f.client.Info(ctx, "NVDA")
		require.NoError(t, err)
		require.Equal(t, "Semiconductors", info.Industry)

		ind, err := f.client.Indicators(ctx, "TSLA")
		require.NoError(t, err)
		require.Equal(t, "bearish", ind.Indicators.Trend)
		require.NotNil(t, ind.Indicators.RSI14)
	})

	t.Run("list filters by market", func(t *testing.T) {
		page, err := f.client.ListStocks(ctx, stockapi.ListOptions{Market: "IN"})
		require.NoError(t, err)
		require.Equal(t, 1, page.Total)
		require.Equal(t, "INR", page.Stocks[0].Currency)
		require.NotNil(t, page.Stocks[0].Quote)
	})

	t.Run("server errors are transient", func(t *testing.T) {
		f.api.Fail("/api/stocks/AAPL/quote", http.StatusInternalServerError, 1)
		_, err := f.client.Quote(ctx, "AAPL")
		require.ErrorIs(t, err, session.ErrTransient)
	})
}

func TestMarket(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	indices, err := f.client.Indices(ctx)
	require.NoError(t, err)
	require.Len(t, indices, 3)

	movers, err := f.client.Movers(ctx, "US", 2)
	require.NoError(t, err)
	require.Len(t, movers.Gainers, 2)
	require.Equal(t, "NVDA", movers.Gainers[0].Symbol)
	require.Len(t, movers.Losers, 2)
	require.Equal(t, "TSLA", movers.Losers[0].Symbol)

	overview, err := f.client.Overview(ctx)
	require.NoError(t, err)
	require.Len(t, overview.Indices, 3)
	require.Len(t, overview.MostActive, 5)
	require.Equal(t, "TSLA", overview.MostActive[0].Symbol)
}

func TestPortfolios(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	_, err := f.client.CreatePortfolio(ctx, stockapi.NewPortfolio{Name: " "})
	require.ErrorIs(t, err, session.ErrValidation)

	p, err := f.client.CreatePortfolio(ctx, stockapi.NewPortfolio{Name: "Growth", Description: "long term"})
	require.NoError(t, err)
	require.Equal(t, "Growth", p.Name)
	require.Equal(t, "USD", p.Currency)

	res, err := f.client.AddPosition(ctx, p.ID, stockapi.PositionInput{Symbol: "aapl", Quantity: 10, Price: 150, Fees: 1})
	require.NoError(t, err)
	require.Equal(t, 10.0, res.Position.Quantity)
	require.Equal(t, "BUY", res.Transaction.Type)
	require.Equal(t, 1501.0, res.Transaction.TotalAmount)

	_, err = f.client.AddPosition(ctx, p.ID, stockapi.PositionInput{Symbol: "AAPL", Quantity: 10, Price: 170})
	require.NoError(t, err)

	got, err := f.client.Portfolio(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Positions, 1)
	require.Equal(t, 160.0, got.Positions[0].AveragePrice)
	require.Equal(t, 1, got.Stats.PositionCount)

	list, err := f.client.Portfolios(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Stats)

	txs, err := f.client.Transactions(ctx, p.ID, 1, 1)
	require.NoError(t, err)
	require.Equal(t, 2, txs.Total)
	require.Equal(t, 2, txs.Pages)
	require.Len(t, txs.Transactions, 1)
	require.Equal(t, 170.0, txs.Transactions[0].Price)

	_, err = f.client.AddPosition(ctx, p.ID, stockapi.PositionInput{Symbol: "AAPL", Quantity: 0, Price: 1})
	require.ErrorIs(t, err, session.ErrValidation)

	require.NoError(t, f.client.DeletePortfolio(ctx, p.ID))
	_, err = f.client.Portfolio(ctx, p.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestWatchlists(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)

	wl, err := f.client.CreateWatchlist(ctx, stockapi.NewWatchlist{Name: "Tech"})
	require.NoError(t, err)

	item, err := f.client.AddWatchlistItem(ctx, wl.ID, stockapi.WatchlistItemInput{
		Symbol:          "msft",
		AlertPriceAbove: utils.Ptr(450.0),
	})
	require.NoError(t, err)
	require.Equal(t, "MSFT", item.Stock.Symbol)
	require.Equal(t, 450.0, utils.Value(item.AlertPriceAbove))
	require.Nil(t, item.AlertPriceBelow)

	_, err = f.client.AddWatchlistItem(ctx, wl.ID, stockapi.WatchlistItemInput{Symbol: "MSFT"})
	require.ErrorIs(t, err, errs.ErrConflict)

	got, err := f.client.Watchlist(ctx, wl.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 1)

	lists, err := f.client.Watchlists(ctx)
	require.NoError(t, err)
	require.Len(t, lists, 1)
	require.Equal(t, 1, lists[0].ItemCount)

	require.NoError(t, f.client.RemoveWatchlistItem(ctx, wl.ID, item.ID))
	err = f.client.RemoveWatchlistItem(ctx, wl.ID, item.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, f.client.DeleteWatchlist(ctx, wl.ID))
	lists, err = f.client.Watchlists(ctx)
	require.NoError(t, err)
	require.Empty(t, lists)
}

func TestProtectedRoutesSurviveTokenExpiry(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	f.api.RevokeAccessTokens()

	_, err := f.client.Portfolios(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, f.api.RefreshCalls())

	f.api.RevokeAccessTokens()
	f.api.RevokeRefreshTokens()
	_, err = f.client.Watchlists(ctx)
	require.ErrorIs(t, err, session.ErrSessionExpired)
	require.False(t, f.manager.IsAuthenticated())
}
