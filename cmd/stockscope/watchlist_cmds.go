package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/jrsteele09/stockscope-client/internal/utils"
	"github.com/jrsteele09/stockscope-client/stockapi"
	"github.com/spf13/cobra"
)

func (a *app) watchlistsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "watchlists",
		Aliases: []string{"watchlist", "wl"},
		Short:   "Manage watchlists",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.listWatchlists(cmd)
		},
	}

	var description string
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a watchlist",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			wl, err := a.api.CreateWatchlist(cmd.Context(), stockapi.NewWatchlist{
				Name:        strings.Join(args, " "),
				Description: description,
			})
			if err != nil {
				return err
			}
			return a.render(wl, func(w io.Writer) {
				fmt.Fprintf(w, "Created watchlist %d: %s\n", wl.ID, wl.Name)
			})
		},
	}
	create.Flags().StringVar(&description, "description", "", "Watchlist description")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List watchlists",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.listWatchlists(cmd)
			},
		},
		create,
		&cobra.Command{
			Use:   "show ID",
			Short: "Show a watchlist with its items",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID("watchlist_id", args[0])
				if err != nil {
					return err
				}
				wl, err := a.api.Watchlist(cmd.Context(), id)
				if err != nil {
					return err
				}
				return a.render(wl, func(w io.Writer) { watchlistTable(w, wl) })
			},
		},
		a.addWatchlistItemCmd(),
		&cobra.Command{
			Use:   "remove ID ITEM_ID",
			Short: "Remove an item from a watchlist",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID("watchlist_id", args[0])
				if err != nil {
					return err
				}
				itemID, err := parseID("item_id", args[1])
				if err != nil {
					return err
				}
				if err := a.api.RemoveWatchlistItem(cmd.Context(), id, itemID); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Removed item %d from watchlist %d\n", itemID, id)
				return nil
			},
		},
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete a watchlist",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID("watchlist_id", args[0])
				if err != nil {
					return err
				}
				if err := a.api.DeleteWatchlist(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Deleted watchlist %d\n", id)
				return nil
			},
		},
	)
	return cmd
}

func (a *app) listWatchlists(cmd *cobra.Command) error {
	watchlists, err := a.api.Watchlists(cmd.Context())
	if err != nil {
		return err
	}
	return a.render(watchlists, func(w io.Writer) {
		row(w, "ID", "NAME", "ITEMS", "DESCRIPTION")
		for _, wl := range watchlists {
			name := wl.Name
			if wl.IsDefault {
				name += " *"
			}
			row(w, wl.ID, name, wl.ItemCount, orDash(wl.Description))
		}
	})
}

func watchlistTable(w io.Writer, wl *stockapi.Watchlist) {
	fmt.Fprintln(w, wl.Name)
	fmt.Fprintln(w)
	row(w, "ITEM", "SYMBOL", "PRICE", "CHANGE %", "ALERT ABOVE", "ALERT BELOW", "NOTES")
	for _, item := range wl.Items {
		symbol, price, change := "-", "-", "-"
		if item.Stock != nil {
			symbol = item.Stock.Symbol
			if item.Stock.Quote != nil {
				price, change = money(item.Stock.Quote.Price), percent(item.Stock.Quote.ChangePercent)
			}
		}
		row(w, item.ID, symbol, price, change, optional(item.AlertPriceAbove), optional(item.AlertPriceBelow), orDash(item.Notes))
	}
}

func (a *app) addWatchlistItemCmd() *cobra.Command {
	var notes string
	var above, below float64
	cmd := &cobra.Command{
		Use:   "add ID SYMBOL",
		Short: "Add a stock to a watchlist",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("watchlist_id", args[0])
			if err != nil {
				return err
			}
			in := stockapi.WatchlistItemInput{
				Symbol:          args[1],
				Notes:           notes,
				AlertPriceAbove: utils.PtrIf(cmd.Flags().Changed("alert-above"), above),
				AlertPriceBelow: utils.PtrIf(cmd.Flags().Changed("alert-below"), below),
			}
			item, err := a.api.AddWatchlistItem(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			return a.render(item, func(w io.Writer) {
				fmt.Fprintf(w, "Added %s to watchlist %d as item %d\n", strings.ToUpper(in.Symbol), id, item.ID)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&notes, "notes", "", "Notes")
	flags.Float64Var(&above, "alert-above", 0, "Alert when the price rises above this")
	flags.Float64Var(&below, "alert-below", 0, "Alert when the price falls below this")
	return cmd
}
