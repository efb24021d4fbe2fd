package stockapi

import (
	"context"
	"net/http"
	"net/url"
)

func (c *Client) Indices(ctx context.Context) ([]Quote, error) {
	var out struct {
		Indices []Quote `json:"indices"`
	}
	if err := c.do(ctx, "Indices", http.MethodGet, "/api/market/indices", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Indices, nil
}

// Movers returns the top gainers and losers of a market ("US" when empty).
func (c *Client) Movers(ctx context.Context, market string, limit int) (*Movers, error) {
	q := url.Values{}
	setString(q, "market", market)
	setInt(q, "limit", limit)

	var out Movers
	if err := c.do(ctx, "Movers", http.MethodGet, "/api/market/movers", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Overview(ctx context.Context) (*MarketOverview, error) {
	var out MarketOverview
	if err := c.do(ctx, "Overview", http.MethodGet, "/api/market/overview", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
