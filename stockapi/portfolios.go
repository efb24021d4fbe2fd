package stockapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/stockscope-client/session"
)

const portfolioRoot = "/api/portfolio/"

func portfolioPath(id int64, suffix string) string {
	return fmt.Sprintf("%s%d%s", portfolioRoot, id, suffix)
}

// Portfolios lists the signed in user's portfolios with their stats.
func (c *Client) Portfolios(ctx context.Context) ([]Portfolio, error) {
	var out struct {
		Portfolios []Portfolio `json:"portfolios"`
	}
	if err := c.do(ctx, "Portfolios", http.MethodGet, portfolioRoot, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Portfolios, nil
}

func (c *Client) CreatePortfolio(ctx context.Context, in NewPortfolio) (*Portfolio, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, &session.ValidationError{Field: "name", Message: "Portfolio name required"}
	}
	var out struct {
		Portfolio Portfolio `json:"portfolio"`
	}
	if err := c.do(ctx, "CreatePortfolio", http.MethodPost, portfolioRoot, nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Portfolio, nil
}

// Portfolio returns one portfolio with positions and stats.
func (c *Client) Portfolio(ctx context.Context, id int64) (*Portfolio, error) {
	var out struct {
		Portfolio Portfolio `json:"portfolio"`
	}
	if err := c.do(ctx, "Portfolio", http.MethodGet, portfolioPath(id, ""), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Portfolio, nil
}

func (c *Client) AddPosition(ctx context.Context, portfolioID int64, in PositionInput) (*PositionResult, error) {
	in.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
	switch {
	case in.Symbol == "":
		return nil, &session.ValidationError{Field: "symbol", Message: "Stock symbol required"}
	case in.Quantity <= 0:
		return nil, &session.ValidationError{Field: "quantity", Message: "Quantity must be positive"}
	case in.Price < 0:
		return nil, &session.ValidationError{Field: "price", Message: "Price cannot be negative"}
	}
	var out PositionResult
	if err := c.do(ctx, "AddPosition", http.MethodPost, portfolioPath(portfolioID, "/positions"), nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Transactions pages through a portfolio's transactions, newest first.
func (c *Client) Transactions(ctx context.Context, portfolioID int64, page, perPage int) (*TransactionPage, error) {
	q := url.Values{}
	setInt(q, "page", page)
	setInt(q, "per_page", perPage)

	var out TransactionPage
	if err := c.do(ctx, "Transactions", http.MethodGet, portfolioPath(portfolioID, "/transactions"), q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeletePortfolio(ctx context.Context, id int64) error {
	return c.do(ctx, "DeletePortfolio", http.MethodDelete, portfolioPath(id, ""), nil, nil, nil)
}
