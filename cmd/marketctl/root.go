package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"CryptoLens_MarketData/internal/marketdata"
	"CryptoLens_MarketData/internal/models"

	"github.com/spf13/cobra"
)

// opener builds the facade a command runs against and returns its cleanup
type opener func(ctx context.Context) (marketdata.Service, func() error, error)

type cli struct {
	open     opener
	out      io.Writer
	timeout  time.Duration
	currency string
}

func newRootCmd(open opener, out io.Writer) *cobra.Command {
	c := &cli{open: open, out: out}

	root := &cobra.Command{
		Use:          "marketctl",
		Short:        "Query cryptocurrency market data through the cached, rate-limited client",
		SilenceUsage: true,
	}
	root.SetOut(out)
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", 2*time.Minute, "overall deadline for the command")
	root.PersistentFlags().StringVar(&c.currency, "currency", "", "quote currency (default usd)")

	root.AddCommand(
		c.listingsCmd(),
		c.historyCmd(),
		c.detailsCmd(),
		c.searchCmd(),
		c.lookupCmd(),
	)
	return root
}

// run opens the facade, calls fn and prints its result as indented JSON
func (c *cli) run(cmd *cobra.Command, fn func(ctx context.Context, market marketdata.Service) (interface{}, error)) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	market, closeFn, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = closeFn() }()

	result, err := fn(ctx, market)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(c.out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func (c *cli) listingsCmd() *cobra.Command {
	var query models.ListingsQuery

	cmd := &cobra.Command{
		Use:   "listings",
		Short: "Top coins by market cap",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, market marketdata.Service) (interface{}, error) {
				query.Currency = c.currency
				return market.TopListings(ctx, query)
			})
		},
	}
	cmd.Flags().IntVar(&query.Limit, "limit", marketdata.DefaultListingLimit, "number of coins per page")
	cmd.Flags().IntVar(&query.Page, "page", 1, "page number")
	cmd.Flags().BoolVar(&query.Sparkline, "sparkline", false, "include 7d sparkline prices")
	cmd.Flags().StringSliceVar(&query.IDs, "ids", nil, "restrict to these coin ids")
	return cmd
}

func (c *cli) historyCmd() *cobra.Command {
	var days int

	cmd := &cobra.Command{
		Use:   "history <coin-id>",
		Short: "Price samples over the last days",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, market marketdata.Service) (interface{}, error) {
				return market.PriceHistory(ctx, args[0], days, c.currency)
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", marketdata.DefaultHistoryDays, "number of days of history")
	return cmd
}

func (c *cli) detailsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "details <coin-id>",
		Short: "Detail document of a coin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, market marketdata.Service) (interface{}, error) {
				return market.CoinDetails(ctx, args[0], c.currency)
			})
		},
	}
}

func (c *cli) searchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Free-text coin search",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, func(ctx context.Context, market marketdata.Service) (interface{}, error) {
				return market.Search(ctx, strings.Join(args, " "))
			})
		},
	}
}

func (c *cli) lookupCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "lookup [symbol...]",
		Short: "Resolve coins by symbol, or one coin by --name",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && name == "" {
				return fmt.Errorf("give at least one symbol or --name")
			}
			return c.run(cmd, func(ctx context.Context, market marketdata.Service) (interface{}, error) {
				if len(args) <= 1 {
					symbol := ""
					if len(args) == 1 {
						symbol = args[0]
					}
					return market.LookupCoin(ctx, symbol, name, c.currency)
				}
				return market.LookupCoins(ctx, args, c.currency)
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "coin name to fall back to")
	return cmd
}
