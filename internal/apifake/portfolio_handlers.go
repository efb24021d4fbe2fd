package apifake

import (
	"encoding/json"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

type position struct {
	ID           int64
	Symbol       string
	Quantity     float64
	AveragePrice float64
	CreatedAt    time.Time
}

type transaction struct {
	ID       int64
	Symbol   string
	Type     string
	Quantity float64
	Price    float64
	Fees     float64
	Notes    string
	Date     time.Time
}

type portfolio struct {
	ID           int64
	Owner        int64
	Name         string
	Description  string
	Currency     string
	CreatedAt    time.Time
	Positions    []*position
	Transactions []*transaction
}

type watchItem struct {
	ID         int64
	Symbol     string
	Notes      string
	AlertAbove *float64
	AlertBelow *float64
	AddedAt    time.Time
}

type watchlist struct {
	ID          int64
	Owner       int64
	Name        string
	Description string
	CreatedAt   time.Time
	Items       []*watchItem
}

func stamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

func (p *portfolio) toJSON(withPositions, withStats bool) map[string]any {
	out := map[string]any{
		"id":          p.ID,
		"user_id":     p.Owner,
		"name":        p.Name,
		"description": p.Description,
		"is_default":  false,
		"currency":    p.Currency,
		"created_at":  stamp(p.CreatedAt),
		"updated_at":  stamp(p.CreatedAt),
	}
	if withPositions {
		positions := make([]map[string]any, 0, len(p.Positions))
		for _, pos := range p.Positions {
			positions = append(positions, pos.toJSON(p.ID))
		}
		out["positions"] = positions
	}
	if withStats {
		var value, cost float64
		for _, pos := range p.Positions {
			l, _ := lookup(pos.Symbol)
			value += pos.Quantity * l.Price
			cost += pos.Quantity * pos.AveragePrice
		}
		pct := 0.0
		if cost > 0 {
			pct = (value - cost) / cost * 100
		}
		out["stats"] = map[string]any{
			"total_value":             round2(value),
			"total_cost":              round2(cost),
			"total_gain_loss":         round2(value - cost),
			"total_gain_loss_percent": round2(pct),
			"position_count":          len(p.Positions),
		}
	}
	return out
}

func (pos *position) toJSON(portfolioID int64) map[string]any {
	l, _ := lookup(pos.Symbol)
	cost := pos.Quantity * pos.AveragePrice
	value := pos.Quantity * l.Price
	pct := 0.0
	if cost > 0 {
		pct = (value - cost) / cost * 100
	}
	return map[string]any{
		"id":                pos.ID,
		"portfolio_id":      portfolioID,
		"stock":             l.stockJSON(),
		"quantity":          pos.Quantity,
		"average_price":     pos.AveragePrice,
		"total_cost":        round2(cost),
		"current_value":     round2(value),
		"gain_loss":         round2(value - cost),
		"gain_loss_percent": round2(pct),
		"created_at":        stamp(pos.CreatedAt),
	}
}

func (t *transaction) toJSON(portfolioID int64) map[string]any {
	l, _ := lookup(t.Symbol)
	stock := l.stockJSON()
	delete(stock, "quote")
	return map[string]any{
		"id":               t.ID,
		"portfolio_id":     portfolioID,
		"stock":            stock,
		"transaction_type": t.Type,
		"quantity":         t.Quantity,
		"price":            t.Price,
		"fees":             t.Fees,
		"total_amount":     round2(t.Quantity*t.Price + t.Fees),
		"notes":            t.Notes,
		"transaction_date": stamp(t.Date),
		"created_at":       stamp(t.Date),
	}
}

func (wl *watchlist) toJSON(withItems bool) map[string]any {
	out := map[string]any{
		"id":          wl.ID,
		"user_id":     wl.Owner,
		"name":        wl.Name,
		"description": wl.Description,
		"is_default":  false,
		"item_count":  len(wl.Items),
		"created_at":  stamp(wl.CreatedAt),
		"updated_at":  stamp(wl.CreatedAt),
	}
	if withItems {
		items := make([]map[string]any, 0, len(wl.Items))
		for _, it := range wl.Items {
			items = append(items, it.toJSON(wl.ID))
		}
		out["items"] = items
	}
	return out
}

func (it *watchItem) toJSON(watchlistID int64) map[string]any {
	l, _ := lookup(it.Symbol)
	return map[string]any{
		"id":                it.ID,
		"watchlist_id":      watchlistID,
		"stock":             l.stockJSON(),
		"notes":             it.Notes,
		"alert_price_above": it.AlertAbove,
		"alert_price_below": it.AlertBelow,
		"added_at":          stamp(it.AddedAt),
	}
}

func (s *Server) nextIDLocked() int64 {
	s.nextRecordID++
	return s.nextRecordID
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue(name), 10, 64)
	return id, err == nil
}

// ownedPortfolioLocked returns the portfolio only when acct owns it.
func (s *Server) ownedPortfolioLocked(r *http.Request, acct *account) *portfolio {
	id, ok := pathID(r, "id")
	if !ok {
		return nil
	}
	p, ok := s.portfolios[id]
	if !ok || p.Owner != acct.ID {
		return nil
	}
	return p
}

func (s *Server) ownedWatchlistLocked(r *http.Request, acct *account) *watchlist {
	id, ok := pathID(r, "id")
	if !ok {
		return nil
	}
	wl, ok := s.watchlists[id]
	if !ok || wl.Owner != acct.ID {
		return nil
	}
	return wl
}

func (s *Server) handleListPortfolios(w http.ResponseWriter, _ *http.Request, acct *account) {
	s.lock.Lock()
	out := []map[string]any{}
	for _, p := range s.sortedPortfoliosLocked(acct) {
		out = append(out, p.toJSON(false, true))
	}
	s.lock.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"portfolios": out})
}

func (s *Server) sortedPortfoliosLocked(acct *account) []*portfolio {
	var out []*portfolio
	for _, p := range s.portfolios {
		if p.Owner == acct.ID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Server) handleCreatePortfolio(w http.ResponseWriter, r *http.Request, acct *account) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		Currency    string `json:"currency"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Portfolio name required")
		return
	}
	if req.Currency == "" {
		req.Currency = "USD"
	}

	s.lock.Lock()
	p := &portfolio{
		ID:          s.nextIDLocked(),
		Owner:       acct.ID,
		Name:        req.Name,
		Description: req.Description,
		Currency:    req.Currency,
		CreatedAt:   time.Now(),
	}
	s.portfolios[p.ID] = p
	body := p.toJSON(false, false)
	s.lock.Unlock()

	writeJSON(w, http.StatusCreated, map[string]any{"message": "Portfolio created", "portfolio": body})
}

func (s *Server) handleGetPortfolio(w http.ResponseWriter, r *http.Request, acct *account) {
	s.lock.Lock()
	defer s.lock.Unlock()
	p := s.ownedPortfolioLocked(r, acct)
	if p == nil {
		writeError(w, http.StatusNotFound, "Portfolio not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"portfolio": p.toJSON(true, true)})
}

func (s *Server) handleDeletePortfolio(w http.ResponseWriter, r *http.Request, acct *account) {
	s.lock.Lock()
	defer s.lock.Unlock()
	p := s.ownedPortfolioLocked(r, acct)
	if p == nil {
		writeError(w, http.StatusNotFound, "Portfolio not found")
		return
	}
	delete(s.portfolios, p.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Portfolio deleted"})
}

func (s *Server) handleAddPosition(w http.ResponseWriter, r *http.Request, acct *account) {
	var req struct {
		Symbol          string   `json:"symbol"`
		Quantity        *float64 `json:"quantity"`
		Price           *float64 `json:"price"`
		Fees            float64  `json:"fees"`
		Notes           string   `json:"notes"`
		TransactionDate string   `json:"transaction_date"`
	}
	decodeErr := json.NewDecoder(r.Body).Decode(&req)

	s.lock.Lock()
	defer s.lock.Unlock()
	p := s.ownedPortfolioLocked(r, acct)
	if p == nil {
		writeError(w, http.StatusNotFound, "Portfolio not found")
		return
	}
	if decodeErr != nil || req.Symbol == "" || req.Quantity == nil || req.Price == nil {
		writeError(w, http.StatusBadRequest, "Missing required fields")
		return
	}
	l, ok := lookup(req.Symbol)
	if !ok {
		writeError(w, http.StatusNotFound, "Stock not found")
		return
	}

	date := time.Now()
	if req.TransactionDate != "" {
		if parsed, err := time.Parse(time.RFC3339, req.TransactionDate); err == nil {
			date = parsed
		}
	}
	tx := &transaction{
		ID:       s.nextIDLocked(),
		Symbol:   l.Symbol,
		Type:     "BUY",
		Quantity: *req.Quantity,
		Price:    *req.Price,
		Fees:     req.Fees,
		Notes:    req.Notes,
		Date:     date,
	}
	p.Transactions = append(p.Transactions, tx)

	var pos *position
	for _, existing := range p.Positions {
		if existing.Symbol == l.Symbol {
			pos = existing
		}
	}
	if pos == nil {
		pos = &position{ID: s.nextIDLocked(), Symbol: l.Symbol, CreatedAt: date}
		p.Positions = append(p.Positions, pos)
	}
	totalQty := pos.Quantity + tx.Quantity
	if totalQty > 0 {
		pos.AveragePrice = math.Round((pos.Quantity*pos.AveragePrice+tx.Quantity*tx.Price)/totalQty*10000) / 10000
	}
	pos.Quantity = totalQty

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "Position added",
		"position":    pos.toJSON(p.ID),
		"transaction": tx.toJSON(p.ID),
	})
}

func (s *Server) handleTransactions(w http.ResponseWriter, r *http.Request, acct *account) {
	s.lock.Lock()
	defer s.lock.Unlock()
	p := s.ownedPortfolioLocked(r, acct)
	if p == nil {
		writeError(w, http.StatusNotFound, "Portfolio not found")
		return
	}
	page := intParam(r, "page", 1, 0)
	perPage := intParam(r, "per_page", 50, 100)

	txs := make([]map[string]any, 0, len(p.Transactions))
	for i := len(p.Transactions) - 1; i >= 0; i-- {
		txs = append(txs, p.Transactions[i].toJSON(p.ID))
	}
	total := len(txs)
	from := min((page-1)*perPage, total)
	to := min(from+perPage, total)
	writeJSON(w, http.StatusOK, map[string]any{
		"transactions": txs[from:to],
		"total":        total,
		"page":         page,
		"per_page":     perPage,
		"pages":        (total + perPage - 1) / perPage,
	})
}

func (s *Server) handleListWatchlists(w http.ResponseWriter, _ *http.Request, acct *account) {
	s.lock.Lock()
	var owned []*watchlist
	for _, wl := range s.watchlists {
		if wl.Owner == acct.ID {
			owned = append(owned, wl)
		}
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].ID < owned[j].ID })
	out := []map[string]any{}
	for _, wl := range owned {
		out = append(out, wl.toJSON(false))
	}
	s.lock.Unlock()
	writeJSON(w, http.StatusOK, map[string]any{"watchlists": out})
}

func (s *Server) handleCreateWatchlist(w http.ResponseWriter, r *http.Request, acct *account) {
	var req struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "Watchlist name required")
		return
	}
	s.lock.Lock()
	wl := &watchlist{
		ID:          s.nextIDLocked(),
		Owner:       acct.ID,
		Name:        req.Name,
		Description: req.Description,
		CreatedAt:   time.Now(),
	}
	s.watchlists[wl.ID] = wl
	body := wl.toJSON(false)
	s.lock.Unlock()
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Watchlist created", "watchlist": body})
}

func (s *Server) handleGetWatchlist(w http.ResponseWriter, r *http.Request, acct *account) {
	s.lock.Lock()
	defer s.lock.Unlock()
	wl := s.ownedWatchlistLocked(r, acct)
	if wl == nil {
		writeError(w, http.StatusNotFound, "Watchlist not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"watchlist": wl.toJSON(true)})
}

func (s *Server) handleDeleteWatchlist(w http.ResponseWriter, r *http.Request, acct *account) {
	s.lock.Lock()
	defer s.lock.Unlock()
	wl := s.ownedWatchlistLocked(r, acct)
	if wl == nil {
		writeError(w, http.StatusNotFound, "Watchlist not found")
		return
	}
	delete(s.watchlists, wl.ID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Watchlist deleted"})
}

func (s *Server) handleAddWatchlistItem(w http.ResponseWriter, r *http.Request, acct *account) {
	var req struct {
		Symbol     string   `json:"symbol"`
		Notes      string   `json:"notes"`
		AlertAbove *float64 `json:"alert_price_above"`
		AlertBelow *float64 `json:"alert_price_below"`
	}
	decodeErr := json.NewDecoder(r.Body).Decode(&req)

	s.lock.Lock()
	defer s.lock.Unlock()
	wl := s.ownedWatchlistLocked(r, acct)
	if wl == nil {
		writeError(w, http.StatusNotFound, "Watchlist not found")
		return
	}
	if decodeErr != nil || req.Symbol == "" {
		writeError(w, http.StatusBadRequest, "Stock symbol required")
		return
	}
	l, ok := lookup(req.Symbol)
	if !ok {
		writeError(w, http.StatusNotFound, "Stock not found")
		return
	}
	for _, it := range wl.Items {
		if it.Symbol == l.Symbol {
			writeError(w, http.StatusConflict, "Stock already in watchlist")
			return
		}
	}
	it := &watchItem{
		ID:         s.nextIDLocked(),
		Symbol:     l.Symbol,
		Notes:      req.Notes,
		AlertAbove: req.AlertAbove,
		AlertBelow: req.AlertBelow,
		AddedAt:    time.Now(),
	}
	wl.Items = append(wl.Items, it)
	writeJSON(w, http.StatusCreated, map[string]any{"message": "Stock added to watchlist", "item": it.toJSON(wl.ID)})
}

func (s *Server) handleRemoveWatchlistItem(w http.ResponseWriter, r *http.Request, acct *account) {
	s.lock.Lock()
	defer s.lock.Unlock()
	wl := s.ownedWatchlistLocked(r, acct)
	if wl == nil {
		writeError(w, http.StatusNotFound, "Watchlist not found")
		return
	}
	itemID, ok := pathID(r, "item")
	if !ok {
		writeError(w, http.StatusNotFound, "Item not found")
		return
	}
	for i, it := range wl.Items {
		if it.ID == itemID {
			wl.Items = append(wl.Items[:i], wl.Items[i+1:]...)
			writeJSON(w, http.StatusOK, map[string]string{"message": "Stock removed from watchlist"})
			return
		}
	}
	writeError(w, http.StatusNotFound, "Item not found")
}
