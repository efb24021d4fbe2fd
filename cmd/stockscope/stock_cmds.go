package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/stockscope-client/stockapi"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (a *app) quoteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quote SYMBOL...",
		Short: "Show current quotes",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			quotes := make([]stockapi.Quote, len(args))
			g, ctx := errgroup.WithContext(cmd.Context())
			for i, symbol := range args {
				g.Go(func() error {
					q, err := a.api.Quote(ctx, symbol)
					if err != nil {
						return err
					}
					quotes[i] = *q
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}
			return a.render(quotes, func(w io.Writer) { quoteTable(w, quotes) })
		},
	}
}

func quoteTable(w io.Writer, quotes []stockapi.Quote) {
	row(w, "SYMBOL", "NAME", "PRICE", "CHANGE", "CHANGE %", "VOLUME")
	for _, q := range quotes {
		row(w, q.Symbol, orDash(q.Name), money(q.Price), money(q.Change), percent(q.ChangePercent), q.Volume)
	}
}

func (a *app) searchCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Search stocks by symbol or name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			results, err := a.api.Search(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			return a.render(results, func(w io.Writer) {
				row(w, "SYMBOL", "NAME", "EXCHANGE", "TYPE")
				for _, r := range results {
					row(w, r.Symbol, r.Name, orDash(r.Exchange), orDash(r.Type))
				}
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Maximum number of results")
	return cmd
}

func (a *app) historyCmd() *cobra.Command {
	var period, interval string
	cmd := &cobra.Command{
		Use:   "history SYMBOL",
		Short: "Show historical prices",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := a.api.Historical(cmd.Context(), args[0], period, interval)
			if err != nil {
				return err
			}
			return a.render(history, func(w io.Writer) {
				row(w, "DATE", "OPEN", "HIGH", "LOW", "CLOSE", "VOLUME")
				for _, p := range history.Data {
					row(w, p.Date, money(p.Open), money(p.High), money(p.Low), money(p.Close), p.Volume)
				}
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", "1mo", "History period, e.g. 5d, 1mo, 1y")
	cmd.Flags().StringVar(&interval, "interval", "1d", "Bar interval, e.g. 1d, 1wk")
	return cmd
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info SYMBOL",
		Short: "Show company information",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := a.api.Info(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return a.render(info, func(w io.Writer) {
				row(w, "SYMBOL", info.Symbol)
				row(w, "NAME", info.Name)
				row(w, "EXCHANGE", orDash(info.Exchange))
				row(w, "SECTOR", orDash(info.Sector))
				row(w, "INDUSTRY", orDash(info.Industry))
				row(w, "MARKET CAP", info.MarketCap)
				row(w, "CURRENCY", orDash(info.Currency))
				row(w, "WEBSITE", orDash(info.Website))
			})
		},
	}
}

func (a *app) indicatorsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "indicators SYMBOL",
		Short: "Show technical indicators",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ind, err := a.api.Indicators(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			s := ind.Indicators
			return a.render(ind, func(w io.Writer) {
				row(w, "SMA 20", optional(s.SMA20))
				row(w, "SMA 50", optional(s.SMA50))
				row(w, "SMA 200", optional(s.SMA200))
				row(w, "EMA 12", optional(s.EMA12))
				row(w, "EMA 26", optional(s.EMA26))
				row(w, "RSI 14", optional(s.RSI14))
				row(w, "MACD", optional(s.MACD))
				row(w, "SIGNAL", optional(s.MACDSignal))
				row(w, "HISTOGRAM", optional(s.MACDHistogram))
				row(w, "BOLLINGER", fmt.Sprintf("%s / %s / %s", optional(s.BBLower), optional(s.BBMiddle), optional(s.BBUpper)))
				row(w, "ATR 14", optional(s.ATR14))
				row(w, "TREND", orDash(s.Trend))
			})
		},
	}
}

func (a *app) stocksCmd() *cobra.Command {
	var opts stockapi.ListOptions
	cmd := &cobra.Command{
		Use:   "stocks",
		Short: "List tracked stocks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			page, err := a.api.ListStocks(cmd.Context(), opts)
			if err != nil {
				return err
			}
			return a.render(page, func(w io.Writer) {
				row(w, "SYMBOL", "NAME", "EXCHANGE", "SECTOR", "PRICE", "CHANGE %")
				for _, s := range page.Stocks {
					price, change := "-", "-"
					if s.Quote != nil {
						price, change = money(s.Quote.Price), percent(s.Quote.ChangePercent)
					}
					row(w, s.Symbol, s.Name, orDash(s.Exchange), orDash(s.Sector), price, change)
				}
				fmt.Fprintf(w, "\nPage %d of %d (%d stocks)\n", page.Page, page.Pages, page.Total)
			})
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&opts.Page, "page", 1, "Page number")
	flags.IntVar(&opts.PerPage, "per-page", 20, "Stocks per page")
	flags.StringVar(&opts.Market, "market", "", "Filter by market, US or IN")
	flags.StringVar(&opts.Exchange, "exchange", "", "Filter by exchange")
	return cmd
}

func (a *app) marketCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "market",
		Short: "Market indices, movers and overview",
	}

	var market string
	var limit int
	movers := &cobra.Command{
		Use:   "movers",
		Short: "Show the top gainers and losers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := a.api.Movers(cmd.Context(), market, limit)
			if err != nil {
				return err
			}
			return a.render(m, func(w io.Writer) {
				fmt.Fprintln(w, "GAINERS")
				quoteTable(w, m.Gainers)
				fmt.Fprintln(w, "\nLOSERS")
				quoteTable(w, m.Losers)
			})
		},
	}
	movers.Flags().StringVar(&market, "market", "US", "Market, US or IN")
	movers.Flags().IntVar(&limit, "limit", 5, "Entries per list")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "indices",
			Short: "Show the major indices",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				indices, err := a.api.Indices(cmd.Context())
				if err != nil {
					return err
				}
				return a.render(indices, func(w io.Writer) { quoteTable(w, indices) })
			},
		},
		movers,
		&cobra.Command{
			Use:   "overview",
			Short: "Show indices, movers and the most active stocks",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				o, err := a.api.Overview(cmd.Context())
				if err != nil {
					return err
				}
				return a.render(o, func(w io.Writer) { overviewTable(w, o) })
			},
		},
	)
	return cmd
}

func overviewTable(w io.Writer, o *stockapi.MarketOverview) {
	sections := []struct {
		title  string
		quotes []stockapi.Quote
	}{
		{"INDICES", o.Indices},
		{"GAINERS", o.Gainers},
		{"LOSERS", o.Losers},
		{"MOST ACTIVE", o.MostActive},
	}
	for i, s := range sections {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, s.title)
		quoteTable(w, s.quotes)
	}
}
