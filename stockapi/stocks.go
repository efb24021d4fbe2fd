package stockapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/stockscope-client/session"
)

// Search finds stocks by symbol or name. limit <= 0 uses the API default.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, &session.ValidationError{Field: "q", Message: "Query parameter required"}
	}
	q := url.Values{"q": {query}}
	setInt(q, "limit", limit)

	var out struct {
		Results []SearchResult `json:"results"`
	}
	if err := c.do(ctx, "Search", http.MethodGet, "/api/stocks/search", q, nil, &out); err != nil {
		return nil, err
	}
	return out.Results, nil
}

func (c *Client) Quote(ctx context.Context, symbol string) (*Quote, error) {
	path, err := symbolPath("/api/stocks/%s/quote", symbol)
	if err != nil {
		return nil, err
	}
	var out Quote
	if err := c.do(ctx, "Quote", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Historical returns OHLCV bars. Empty period and interval use the API defaults (1y, 1d).
func (c *Client) Historical(ctx context.Context, symbol, period, interval string) (*History, error) {
	path, err := symbolPath("/api/stocks/%s/historical", symbol)
	if err != nil {
		return nil, err
	}
	q := url.Values{}
	setString(q, "period", period)
	setString(q, "interval", interval)

	var out History
	if err := c.do(ctx, "Historical", http.MethodGet, path, q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Info(ctx context.Context, symbol string) (*CompanyInfo, error) {
	path, err := symbolPath("/api/stocks/%s/info", symbol)
	if err != nil {
		return nil, err
	}
	var out CompanyInfo
	if err := c.do(ctx, "Info", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Indicators(ctx context.Context, symbol string) (*Indicators, error) {
	path, err := symbolPath("/api/stocks/%s/indicators", symbol)
	if err != nil {
		return nil, err
	}
	var out Indicators
	if err := c.do(ctx, "Indicators", http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListStocks(ctx context.Context, opts ListOptions) (*StockPage, error) {
	q := url.Values{}
	setInt(q, "page", opts.Page)
	setInt(q, "per_page", opts.PerPage)
	setString(q, "market", opts.Market)
	setString(q, "exchange", opts.Exchange)

	var out StockPage
	if err := c.do(ctx, "ListStocks", http.MethodGet, "/api/stocks/list", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
