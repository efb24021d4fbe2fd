package apifake

import (
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

type quoteJSON struct {
	Symbol        string  `json:"symbol"`
	Name          string  `json:"name"`
	Price         float64 `json:"price"`
	Change        float64 `json:"change"`
	ChangePercent float64 `json:"change_percent"`
	Open          float64 `json:"open"`
	High          float64 `json:"high"`
	Low           float64 `json:"low"`
	PreviousClose float64 `json:"previous_close"`
	Volume        int64   `json:"volume"`
}

type listing struct {
	ID       int64
	Symbol   string
	Name     string
	Exchange string
	Market   string
	Sector   string
	Industry string
	Cap      int64
	Price    float64
	Change   float64
	Volume   int64
}

var catalog = []listing{
	{1, "AAPL", "Apple Inc.", "NASDAQ", "US", "Technology", "Consumer Electronics", 2_900_000_000_000, 189.5, 2.1, 52_000_000},
	{2, "MSFT", "Microsoft Corporation", "NASDAQ", "US", "Technology", "Software", 3_100_000_000_000, 415.2, -1.8, 21_000_000},
	{3, "NVDA", "NVIDIA Corporation", "NASDAQ", "US", "Technology", "Semiconductors", 2_200_000_000_000, 880.1, 24.3, 43_000_000},
	{4, "TSLA", "Tesla, Inc.", "NASDAQ", "US", "Consumer Cyclical", "Auto Manufacturers", 560_000_000_000, 175.4, -6.2, 98_000_000},
	{5, "JPM", "JPMorgan Chase & Co.", "NYSE", "US", "Financial Services", "Banks", 540_000_000_000, 196.7, 0.4, 9_000_000},
	{6, "RELIANCE.NS", "Reliance Industries", "NSE", "IN", "Energy", "Oil & Gas", 240_000_000_000, 2950.0, 12.5, 6_000_000},
}

var indices = []listing{
	{101, "^GSPC", "S&P 500", "INDEX", "US", "", "", 0, 5200.3, 21.4, 0},
	{102, "^IXIC", "NASDAQ Composite", "INDEX", "US", "", "", 0, 16300.8, 98.2, 0},
	{103, "^DJI", "Dow Jones Industrial Average", "INDEX", "US", "", "", 0, 39100.2, -45.7, 0},
}

func (l listing) quote() quoteJSON {
	prev := l.Price - l.Change
	return quoteJSON{
		Symbol:        l.Symbol,
		Name:          l.Name,
		Price:         l.Price,
		Change:        l.Change,
		ChangePercent: round2(l.Change / prev * 100),
		Open:          prev,
		High:          math.Max(prev, l.Price) * 1.01,
		Low:           math.Min(prev, l.Price) * 0.99,
		PreviousClose: prev,
		Volume:        l.Volume,
	}
}

func (l listing) stockJSON() map[string]any {
	q := l.quote()
	return map[string]any{
		"id":         l.ID,
		"symbol":     l.Symbol,
		"name":       l.Name,
		"exchange":   l.Exchange,
		"market":     l.Market,
		"sector":     l.Sector,
		"industry":   l.Industry,
		"market_cap": l.Cap,
		"currency":   currencyFor(l.Market),
		"quote": map[string]any{
			"price":          q.Price,
			"change":         q.Change,
			"change_percent": q.ChangePercent,
			"volume":         q.Volume,
		},
	}
}

func currencyFor(market string) string {
	if market == "IN" {
		return "INR"
	}
	return "USD"
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func lookup(symbol string) (listing, bool) {
	for _, l := range catalog {
		if strings.EqualFold(l.Symbol, symbol) {
			return l, true
		}
	}
	return listing{}, false
}

func intParam(r *http.Request, name string, def, ceiling int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(name))
	if err != nil || v <= 0 {
		v = def
	}
	if ceiling > 0 && v > ceiling {
		v = ceiling
	}
	return v
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		writeError(w, http.StatusBadRequest, "Query parameter required")
		return
	}
	limit := intParam(r, "limit", 10, 50)
	results := []map[string]string{}
	for _, l := range catalog {
		if len(results) == limit {
			break
		}
		if strings.Contains(strings.ToLower(l.Symbol), strings.ToLower(q)) || strings.Contains(strings.ToLower(l.Name), strings.ToLower(q)) {
			results = append(results, map[string]string{"symbol": l.Symbol, "name": l.Name, "exchange": l.Exchange, "type": "EQUITY"})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleQuote(w http.ResponseWriter, r *http.Request) {
	l, ok := lookup(r.PathValue("symbol"))
	if !ok {
		writeError(w, http.StatusNotFound, "Stock not found")
		return
	}
	writeJSON(w, http.StatusOK, l.quote())
}

func (s *Server) handleHistorical(w http.ResponseWriter, r *http.Request) {
	l, ok := lookup(r.PathValue("symbol"))
	if !ok {
		writeError(w, http.StatusNotFound, "No data found")
		return
	}
	start := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	data := make([]map[string]any, 0, 5)
	for i := 0; i < 5; i++ {
		price := l.Price - float64(4-i)
		data = append(data, map[string]any{
			"date":      start.AddDate(0, 0, i).Format("2006-01-02"),
			"open":      price - 0.5,
			"high":      price + 1,
			"low":       price - 1,
			"close":     price,
			"adj_close": price,
			"volume":    l.Volume,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"symbol": l.Symbol, "data": data})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	l, ok := lookup(r.PathValue("symbol"))
	if !ok {
		writeError(w, http.StatusNotFound, "Company info not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol":      l.Symbol,
		"name":        l.Name,
		"exchange":    l.Exchange,
		"sector":      l.Sector,
		"industry":    l.Industry,
		"market_cap":  l.Cap,
		"currency":    currencyFor(l.Market),
		"description": l.Name + " is listed on " + l.Exchange + ".",
	})
}

func (s *Server) handleIndicators(w http.ResponseWriter, r *http.Request) {
	l, ok := lookup(r.PathValue("symbol"))
	if !ok {
		writeError(w, http.StatusNotFound, "Insufficient data for analysis")
		return
	}
	trend := "bullish"
	if l.Change < 0 {
		trend = "bearish"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"symbol": l.Symbol,
		"indicators": map[string]any{
			"sma_20":    round2(l.Price * 0.98),
			"sma_50":    round2(l.Price * 0.95),
			"sma_200":   round2(l.Price * 0.9),
			"ema_12":    round2(l.Price * 0.99),
			"ema_26":    round2(l.Price * 0.97),
			"rsi_14":    55.2,
			"macd":      1.2,
			"signal":    0.8,
			"histogram": 0.4,
			"bb_upper":  round2(l.Price * 1.05),
			"bb_middle": round2(l.Price),
			"bb_lower":  round2(l.Price * 0.95),
			"atr_14":    round2(l.Price * 0.02),
			"trend":     trend,
		},
	})
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	page := intParam(r, "page", 1, 0)
	perPage := intParam(r, "per_page", 50, 100)
	market := r.URL.Query().Get("market")
	exchange := r.URL.Query().Get("exchange")

	var matched []map[string]any
	for _, l := range catalog {
		if market != "" && !strings.EqualFold(l.Market, market) {
			continue
		}
		if exchange != "" && !strings.EqualFold(l.Exchange, exchange) {
			continue
		}
		matched = append(matched, l.stockJSON())
	}
	total := len(matched)
	from := min((page-1)*perPage, total)
	to := min(from+perPage, total)
	writeJSON(w, http.StatusOK, map[string]any{
		"stocks":   matched[from:to],
		"total":    total,
		"page":     page,
		"per_page": perPage,
		"pages":    (total + perPage - 1) / perPage,
	})
}

func quotes(ls []listing) []quoteJSON {
	out := make([]quoteJSON, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.quote())
	}
	return out
}

// movers splits the market's listings into gainers and losers, strongest first.
func movers(market string, limit int) (gainers, losers []quoteJSON) {
	var ls []listing
	for _, l := range catalog {
		if strings.EqualFold(l.Market, market) {
			ls = append(ls, l)
		}
	}
	all := quotes(ls)
	sort.Slice(all, func(i, j int) bool { return all[i].ChangePercent > all[j].ChangePercent })
	gainers, losers = []quoteJSON{}, []quoteJSON{}
	for _, q := range all {
		if q.Change >= 0 && len(gainers) < limit {
			gainers = append(gainers, q)
		}
	}
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].Change < 0 && len(losers) < limit {
			losers = append(losers, all[i])
		}
	}
	return gainers, losers
}

func (s *Server) handleIndices(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"indices": quotes(indices)})
}

func (s *Server) handleMovers(w http.ResponseWriter, r *http.Request) {
	market := r.URL.Query().Get("market")
	if market == "" {
		market = "US"
	}
	gainers, losers := movers(market, intParam(r, "limit", 10, 50))
	writeJSON(w, http.StatusOK, map[string]any{"gainers": gainers, "losers": losers})
}

func (s *Server) handleOverview(w http.ResponseWriter, _ *http.Request) {
	gainers, losers := movers("US", 5)
	active := quotes(catalog)
	sort.Slice(active, func(i, j int) bool { return active[i].Volume > active[j].Volume })
	writeJSON(w, http.StatusOK, map[string]any{
		"indices":     quotes(indices),
		"gainers":     gainers,
		"losers":      losers,
		"most_active": active[:5],
	})
}
