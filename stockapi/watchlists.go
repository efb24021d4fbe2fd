package stockapi

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/stockscope-client/session"
)

const watchlistRoot = "/api/watchlist/"

func watchlistPath(id int64, suffix string) string {
	return fmt.Sprintf("%s%d%s", watchlistRoot, id, suffix)
}

func (c *Client) Watchlists(ctx context.Context) ([]Watchlist, error) {
	var out struct {
		Watchlists []Watchlist `json:"watchlists"`
	}
	if err := c.do(ctx, "Watchlists", http.MethodGet, watchlistRoot, nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Watchlists, nil
}

func (c *Client) CreateWatchlist(ctx context.Context, in NewWatchlist) (*Watchlist, error) {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return nil, &session.ValidationError{Field: "name", Message: "Watchlist name required"}
	}
	var out struct {
		Watchlist Watchlist `json:"watchlist"`
	}
	if err := c.do(ctx, "CreateWatchlist", http.MethodPost, watchlistRoot, nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Watchlist, nil
}

// Watchlist returns one watchlist with its items.
func (c *Client) Watchlist(ctx context.Context, id int64) (*Watchlist, error) {
	var out struct {
		Watchlist Watchlist `json:"watchlist"`
	}
	if err := c.do(ctx, "Watchlist", http.MethodGet, watchlistPath(id, ""), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out.Watchlist, nil
}

// AddWatchlistItem adds a symbol. Adding a symbol twice is an APIError wrapping ErrConflict.
func (c *Client) AddWatchlistItem(ctx context.Context, watchlistID int64, in WatchlistItemInput) (*WatchlistItem, error) {
	in.Symbol = strings.ToUpper(strings.TrimSpace(in.Symbol))
	if in.Symbol == "" {
		return nil, &session.ValidationError{Field: "symbol", Message: "Stock symbol required"}
	}
	var out struct {
		Item WatchlistItem `json:"item"`
	}
	if err := c.do(ctx, "AddWatchlistItem", http.MethodPost, watchlistPath(watchlistID, "/items"), nil, in, &out); err != nil {
		return nil, err
	}
	return &out.Item, nil
}

func (c *Client) RemoveWatchlistItem(ctx context.Context, watchlistID, itemID int64) error {
	return c.do(ctx, "RemoveWatchlistItem", http.MethodDelete, watchlistPath(watchlistID, fmt.Sprintf("/items/%d", itemID)), nil, nil, nil)
}

func (c *Client) DeleteWatchlist(ctx context.Context, id int64) error {
	return c.do(ctx, "DeleteWatchlist", http.MethodDelete, watchlistPath(id, ""), nil, nil, nil)
}
