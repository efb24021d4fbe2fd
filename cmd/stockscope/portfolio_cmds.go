package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jrsteele09/stockscope-client/session"
	"github.com/jrsteele09/stockscope-client/stockapi"
	"github.com/spf13/cobra"
)

func parseID(field, arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, &session.ValidationError{Field: field, Message: fmt.Sprintf("%q is not a valid %s", arg, strings.ReplaceAll(field, "_", " "))}
	}
	return id, nil
}

func (a *app) portfoliosCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "portfolios",
		Aliases: []string{"portfolio", "pf"},
		Short:   "Manage portfolios",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.listPortfolios(cmd)
		},
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List portfolios",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.listPortfolios(cmd)
			},
		},
		a.createPortfolioCmd(),
		&cobra.Command{
			Use:   "show ID",
			Short: "Show a portfolio with its positions",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID("portfolio_id", args[0])
				if err != nil {
					return err
				}
				p, err := a.api.Portfolio(cmd.Context(), id)
				if err != nil {
					return err
				}
				return a.render(p, func(w io.Writer) { portfolioTable(w, p) })
			},
		},
		a.addPositionCmd(),
		a.transactionsCmd(),
		&cobra.Command{
			Use:   "delete ID",
			Short: "Delete a portfolio",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID("portfolio_id", args[0])
				if err != nil {
					return err
				}
				if err := a.api.DeletePortfolio(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Deleted portfolio %d\n", id)
				return nil
			},
		},
	)
	return cmd
}

func (a *app) listPortfolios(cmd *cobra.Command) error {
	portfolios, err := a.api.Portfolios(cmd.Context())
	if err != nil {
		return err
	}
	return a.render(portfolios, func(w io.Writer) {
		row(w, "ID", "NAME", "CURRENCY", "POSITIONS", "VALUE", "GAIN/LOSS")
		for _, p := range portfolios {
			positions, value, gain := 0, "-", "-"
			if p.Stats != nil {
				positions = p.Stats.PositionCount
				value = money(p.Stats.TotalValue)
				gain = fmt.Sprintf("%s (%s)", money(p.Stats.TotalGainLoss), percent(p.Stats.TotalGainLossPercent))
			}
			name := p.Name
			if p.IsDefault {
				name += " *"
			}
			row(w, p.ID, name, p.Currency, positions, value, gain)
		}
	})
}

func portfolioTable(w io.Writer, p *stockapi.Portfolio) {
	fmt.Fprintf(w, "%s (%s)\n", p.Name, p.Currency)
	if p.Description != "" {
		fmt.Fprintln(w, p.Description)
	}
	fmt.Fprintln(w)
	row(w, "ID", "SYMBOL", "QUANTITY", "AVG PRICE", "COST", "VALUE", "GAIN/LOSS")
	for _, pos := range p.Positions {
		symbol := "-"
		if pos.Stock != nil {
			symbol = pos.Stock.Symbol
		}
		row(w, pos.ID, symbol, pos.Quantity, money(pos.AveragePrice), money(pos.TotalCost), optional(pos.CurrentValue), optional(pos.GainLoss))
	}
	if p.Stats != nil {
		fmt.Fprintf(w, "\nTotal value %s, cost %s, gain/loss %s (%s)\n",
			money(p.Stats.TotalValue), money(p.Stats.TotalCost), money(p.Stats.TotalGainLoss), percent(p.Stats.TotalGainLossPercent))
	}
}

func (a *app) createPortfolioCmd() *cobra.Command {
	var in stockapi.NewPortfolio
	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a portfolio",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in.Name = strings.Join(args, " ")
			p, err := a.api.CreatePortfolio(cmd.Context(), in)
			if err != nil {
				return err
			}
			return a.render(p, func(w io.Writer) {
				fmt.Fprintf(w, "Created portfolio %d: %s\n", p.ID, p.Name)
			})
		},
	}
	cmd.Flags().StringVar(&in.Description, "description", "", "Portfolio description")
	cmd.Flags().StringVar(&in.Currency, "currency", "USD", "Portfolio currency")
	return cmd
}

func (a *app) addPositionCmd() *cobra.Command {
	var in stockapi.PositionInput
	cmd := &cobra.Command{
		Use:   "add-position ID SYMBOL",
		Short: "Record a purchase in a portfolio",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("portfolio_id", args[0])
			if err != nil {
				return err
			}
			in.Symbol = args[1]
			res, err := a.api.AddPosition(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			return a.render(res, func(w io.Writer) {
				fmt.Fprintf(w, "Bought %v %s at %s, now holding %v at an average of %s\n",
					res.Transaction.Quantity, strings.ToUpper(in.Symbol), money(res.Transaction.Price),
					res.Position.Quantity, money(res.Position.AveragePrice))
			})
		},
	}
	flags := cmd.Flags()
	flags.Float64Var(&in.Quantity, "quantity", 0, "Number of shares")
	flags.Float64Var(&in.Price, "price", 0, "Price per share")
	flags.Float64Var(&in.Fees, "fees", 0, "Transaction fees")
	flags.StringVar(&in.Notes, "notes", "", "Notes")
	flags.StringVar(&in.TransactionDate, "date", "", "Transaction date in RFC 3339, defaults to now")
	_ = cmd.MarkFlagRequired("quantity")
	_ = cmd.MarkFlagRequired("price")
	return cmd
}

func (a *app) transactionsCmd() *cobra.Command {
	var page, perPage int
	cmd := &cobra.Command{
		Use:   "transactions ID",
		Short: "List a portfolio's transactions, newest first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("portfolio_id", args[0])
			if err != nil {
				return err
			}
			txs, err := a.api.Transactions(cmd.Context(), id, page, perPage)
			if err != nil {
				return err
			}
			return a.render(txs, func(w io.Writer) {
				row(w, "ID", "DATE", "TYPE", "SYMBOL", "QUANTITY", "PRICE", "TOTAL")
				for _, t := range txs.Transactions {
					symbol := "-"
					if t.Stock != nil {
						symbol = t.Stock.Symbol
					}
					row(w, t.ID, orDash(t.TransactionDate), t.Type, symbol, t.Quantity, money(t.Price), money(t.TotalAmount))
				}
				fmt.Fprintf(w, "\nPage %d of %d (%d transactions)\n", txs.Page, txs.Pages, txs.Total)
			})
		},
	}
	cmd.Flags().IntVar(&page, "page", 1, "Page number")
	cmd.Flags().IntVar(&perPage, "per-page", 20, "Transactions per page")
	return cmd
}
