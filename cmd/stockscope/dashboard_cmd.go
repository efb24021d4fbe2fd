package main

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/jrsteele09/stockscope-client/dashboard"
	"github.com/jrsteele09/stockscope-client/stockapi"
	"github.com/spf13/cobra"
)

type dashboardView struct {
	Market     *stockapi.MarketOverview `json:"market,omitempty" yaml:"market,omitempty"`
	Portfolios []stockapi.Portfolio     `json:"portfolios,omitempty" yaml:"portfolios,omitempty"`
	Watchlists []stockapi.Watchlist     `json:"watchlists,omitempty" yaml:"watchlists,omitempty"`
	Warnings   map[string]string        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

func (a *app) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show the market overview with your portfolios and watchlists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			loader, err := dashboard.NewLoader(a.api,
				dashboard.WithAuthCheck(a.manager.IsAuthenticated),
				dashboard.WithLogger(a.logger),
			)
			if err != nil {
				return err
			}
			d, err := loader.Load(cmd.Context())
			if err != nil {
				return err
			}

			view := dashboardView{Market: d.Market, Portfolios: d.Portfolios, Watchlists: d.Watchlists}
			if d.Degraded() {
				view.Warnings = make(map[string]string, len(d.Warnings))
				for _, w := range d.Warnings {
					view.Warnings[w.Widget] = w.Err.Error()
				}
			}
			return a.render(view, func(w io.Writer) { dashboardTable(w, view) })
		},
	}
}

func dashboardTable(w io.Writer, view dashboardView) {
	if view.Market != nil {
		overviewTable(w, view.Market)
	}
	if len(view.Portfolios) > 0 {
		fmt.Fprintln(w, "\nPORTFOLIOS")
		row(w, "ID", "NAME", "VALUE", "GAIN/LOSS")
		for _, p := range view.Portfolios {
			value, gain := "-", "-"
			if p.Stats != nil {
				value, gain = money(p.Stats.TotalValue), percent(p.Stats.TotalGainLossPercent)
			}
			row(w, p.ID, p.Name, value, gain)
		}
	}
	if len(view.Watchlists) > 0 {
		fmt.Fprintln(w, "\nWATCHLISTS")
		row(w, "ID", "NAME", "ITEMS")
		for _, wl := range view.Watchlists {
			row(w, wl.ID, wl.Name, wl.ItemCount)
		}
	}
	for _, widget := range slices.Sorted(maps.Keys(view.Warnings)) {
		fmt.Fprintf(w, "\n! %s unavailable: %s\n", widget, view.Warnings[widget])
	}
}
