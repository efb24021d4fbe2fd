package stockapi

// Quote is a price snapshot for a stock or an index.
type Quote struct {
	Symbol        string  `json:"symbol" yaml:"symbol"`
	Name          string  `json:"name,omitempty" yaml:"name,omitempty"`
	Price         float64 `json:"price" yaml:"price"`
	Change        float64 `json:"change" yaml:"change"`
	ChangePercent float64 `json:"change_percent" yaml:"change_percent"`
	Open          float64 `json:"open,omitempty" yaml:"open,omitempty"`
	High          float64 `json:"high,omitempty" yaml:"high,omitempty"`
	Low           float64 `json:"low,omitempty" yaml:"low,omitempty"`
	PreviousClose float64 `json:"previous_close,omitempty" yaml:"previous_close,omitempty"`
	Volume        int64   `json:"volume,omitempty" yaml:"volume,omitempty"`
}

type SearchResult struct {
	Symbol   string `json:"symbol" yaml:"symbol"`
	Name     string `json:"name" yaml:"name"`
	Exchange string `json:"exchange,omitempty" yaml:"exchange,omitempty"`
	Type     string `json:"type,omitempty" yaml:"type,omitempty"`
}

type PricePoint struct {
	Date     string  `json:"date" yaml:"date"`
	Open     float64 `json:"open" yaml:"open"`
	High     float64 `json:"high" yaml:"high"`
	Low      float64 `json:"low" yaml:"low"`
	Close    float64 `json:"close" yaml:"close"`
	AdjClose float64 `json:"adj_close,omitempty" yaml:"adj_close,omitempty"`
	Volume   int64   `json:"volume" yaml:"volume"`
}

type History struct {
	Symbol string       `json:"symbol" yaml:"symbol"`
	Data   []PricePoint `json:"data" yaml:"data"`
}

type CompanyInfo struct {
	Symbol      string `json:"symbol" yaml:"symbol"`
	Name        string `json:"name" yaml:"name"`
	Exchange    string `json:"exchange,omitempty" yaml:"exchange,omitempty"`
	Sector      string `json:"sector,omitempty" yaml:"sector,omitempty"`
	Industry    string `json:"industry,omitempty" yaml:"industry,omitempty"`
	MarketCap   int64  `json:"market_cap,omitempty" yaml:"market_cap,omitempty"`
	Currency    string `json:"currency,omitempty" yaml:"currency,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Website     string `json:"website,omitempty" yaml:"website,omitempty"`
}

// IndicatorSet holds the technical indicators; any may be absent when history is short.
type IndicatorSet struct {
	SMA20         *float64 `json:"sma_20,omitempty" yaml:"sma_20,omitempty"`
	SMA50         *float64 `json:"sma_50,omitempty" yaml:"sma_50,omitempty"`
	SMA200        *float64 `json:"sma_200,omitempty" yaml:"sma_200,omitempty"`
	EMA12         *float64 `json:"ema_12,omitempty" yaml:"ema_12,omitempty"`
	EMA26         *float64 `json:"ema_26,omitempty" yaml:"ema_26,omitempty"`
	RSI14         *float64 `json:"rsi_14,omitempty" yaml:"rsi_14,omitempty"`
	MACD          *float64 `json:"macd,omitempty" yaml:"macd,omitempty"`
	MACDSignal    *float64 `json:"signal,omitempty" yaml:"signal,omitempty"`
	MACDHistogram *float64 `json:"histogram,omitempty" yaml:"histogram,omitempty"`
	BBUpper       *float64 `json:"bb_upper,omitempty" yaml:"bb_upper,omitempty"`
	BBMiddle      *float64 `json:"bb_middle,omitempty" yaml:"bb_middle,omitempty"`
	BBLower       *float64 `json:"bb_lower,omitempty" yaml:"bb_lower,omitempty"`
	ATR14         *float64 `json:"atr_14,omitempty" yaml:"atr_14,omitempty"`
	Trend         string   `json:"trend,omitempty" yaml:"trend,omitempty"`
}

type Indicators struct {
	Symbol     string       `json:"symbol" yaml:"symbol"`
	Indicators IndicatorSet `json:"indicators" yaml:"indicators"`
}

// StockQuote is the abbreviated quote embedded in a Stock.
type StockQuote struct {
	Price         float64 `json:"price" yaml:"price"`
	Change        float64 `json:"change" yaml:"change"`
	ChangePercent float64 `json:"change_percent" yaml:"change_percent"`
	Volume        int64   `json:"volume,omitempty" yaml:"volume,omitempty"`
	UpdatedAt     string  `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

type Stock struct {
	ID        int64       `json:"id" yaml:"id"`
	Symbol    string      `json:"symbol" yaml:"symbol"`
	Name      string      `json:"name" yaml:"name"`
	Exchange  string      `json:"exchange,omitempty" yaml:"exchange,omitempty"`
	Market    string      `json:"market,omitempty" yaml:"market,omitempty"`
	Sector    string      `json:"sector,omitempty" yaml:"sector,omitempty"`
	Industry  string      `json:"industry,omitempty" yaml:"industry,omitempty"`
	MarketCap int64       `json:"market_cap,omitempty" yaml:"market_cap,omitempty"`
	Currency  string      `json:"currency,omitempty" yaml:"currency,omitempty"`
	Quote     *StockQuote `json:"quote,omitempty" yaml:"quote,omitempty"`
}

// ListOptions filters and pages the stock listing. Zero values use the API defaults.
type ListOptions struct {
	Page     int
	PerPage  int
	Market   string
	Exchange string
}

type StockPage struct {
	Stocks  []Stock `json:"stocks" yaml:"stocks"`
	Total   int     `json:"total" yaml:"total"`
	Page    int     `json:"page" yaml:"page"`
	PerPage int     `json:"per_page" yaml:"per_page"`
	Pages   int     `json:"pages" yaml:"pages"`
}

type Movers struct {
	Gainers []Quote `json:"gainers" yaml:"gainers"`
	Losers  []Quote `json:"losers" yaml:"losers"`
}

type MarketOverview struct {
	Indices    []Quote `json:"indices" yaml:"indices"`
	Gainers    []Quote `json:"gainers" yaml:"gainers"`
	Losers     []Quote `json:"losers" yaml:"losers"`
	MostActive []Quote `json:"most_active" yaml:"most_active"`
}

type PortfolioStats struct {
	TotalValue           float64 `json:"total_value" yaml:"total_value"`
	TotalCost            float64 `json:"total_cost" yaml:"total_cost"`
	TotalGainLoss        float64 `json:"total_gain_loss" yaml:"total_gain_loss"`
	TotalGainLossPercent float64 `json:"total_gain_loss_percent" yaml:"total_gain_loss_percent"`
	PositionCount        int     `json:"position_count" yaml:"position_count"`
}

type Position struct {
	ID              int64    `json:"id" yaml:"id"`
	PortfolioID     int64    `json:"portfolio_id" yaml:"portfolio_id"`
	Stock           *Stock   `json:"stock,omitempty" yaml:"stock,omitempty"`
	Quantity        float64  `json:"quantity" yaml:"quantity"`
	AveragePrice    float64  `json:"average_price" yaml:"average_price"`
	TotalCost       float64  `json:"total_cost" yaml:"total_cost"`
	CurrentValue    *float64 `json:"current_value,omitempty" yaml:"current_value,omitempty"`
	GainLoss        *float64 `json:"gain_loss,omitempty" yaml:"gain_loss,omitempty"`
	GainLossPercent *float64 `json:"gain_loss_percent,omitempty" yaml:"gain_loss_percent,omitempty"`
	CreatedAt       string   `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

type Portfolio struct {
	ID          int64           `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	IsDefault   bool            `json:"is_default" yaml:"is_default"`
	Currency    string          `json:"currency" yaml:"currency"`
	CreatedAt   string          `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt   string          `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	Positions   []Position      `json:"positions,omitempty" yaml:"positions,omitempty"`
	Stats       *PortfolioStats `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// NewPortfolio is the create request. An empty Currency means USD.
type NewPortfolio struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Currency    string `json:"currency,omitempty"`
}

// PositionInput records a purchase. TransactionDate is RFC 3339; empty means now.
type PositionInput struct {
	Symbol          string  `json:"symbol"`
	Quantity        float64 `json:"quantity"`
	Price           float64 `json:"price"`
	Fees            float64 `json:"fees,omitempty"`
	Notes           string  `json:"notes,omitempty"`
	TransactionDate string  `json:"transaction_date,omitempty"`
}

type Transaction struct {
	ID              int64   `json:"id" yaml:"id"`
	PortfolioID     int64   `json:"portfolio_id" yaml:"portfolio_id"`
	Stock           *Stock  `json:"stock,omitempty" yaml:"stock,omitempty"`
	Type            string  `json:"transaction_type" yaml:"transaction_type"`
	Quantity        float64 `json:"quantity" yaml:"quantity"`
	Price           float64 `json:"price" yaml:"price"`
	Fees            float64 `json:"fees" yaml:"fees"`
	TotalAmount     float64 `json:"total_amount" yaml:"total_amount"`
	Notes           string  `json:"notes,omitempty" yaml:"notes,omitempty"`
	TransactionDate string  `json:"transaction_date,omitempty" yaml:"transaction_date,omitempty"`
}

// PositionResult is the position after a purchase together with the recorded transaction.
type PositionResult struct {
	Position    Position    `json:"position" yaml:"position"`
	Transaction Transaction `json:"transaction" yaml:"transaction"`
}

type TransactionPage struct {
	Transactions []Transaction `json:"transactions" yaml:"transactions"`
	Total        int           `json:"total" yaml:"total"`
	Page         int           `json:"page" yaml:"page"`
	PerPage      int           `json:"per_page" yaml:"per_page"`
	Pages        int           `json:"pages" yaml:"pages"`
}

type WatchlistItem struct {
	ID              int64    `json:"id" yaml:"id"`
	WatchlistID     int64    `json:"watchlist_id" yaml:"watchlist_id"`
	Stock           *Stock   `json:"stock,omitempty" yaml:"stock,omitempty"`
	Notes           string   `json:"notes,omitempty" yaml:"notes,omitempty"`
	AlertPriceAbove *float64 `json:"alert_price_above,omitempty" yaml:"alert_price_above,omitempty"`
	AlertPriceBelow *float64 `json:"alert_price_below,omitempty" yaml:"alert_price_below,omitempty"`
	AddedAt         string   `json:"added_at,omitempty" yaml:"added_at,omitempty"`
}

type Watchlist struct {
	ID          int64           `json:"id" yaml:"id"`
	Name        string          `json:"name" yaml:"name"`
	Description string          `json:"description,omitempty" yaml:"description,omitempty"`
	IsDefault   bool            `json:"is_default" yaml:"is_default"`
	ItemCount   int             `json:"item_count" yaml:"item_count"`
	CreatedAt   string          `json:"created_at,omitempty" yaml:"created_at,omitempty"`
	UpdatedAt   string          `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
	Items       []WatchlistItem `json:"items,omitempty" yaml:"items,omitempty"`
}

type NewWatchlist struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
}

type WatchlistItemInput struct {
	Symbol          string   `json:"symbol"`
	Notes           string   `json:"notes,omitempty"`
	AlertPriceAbove *float64 `json:"alert_price_above,omitempty"`
	AlertPriceBelow *float64 `json:"alert_price_below,omitempty"`
}
