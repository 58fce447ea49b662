package cli

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rugscope/market-analyzer/internal/analysis"
	"github.com/rugscope/market-analyzer/internal/ledger"
	"github.com/rugscope/market-analyzer/internal/model"
	"github.com/rugscope/market-analyzer/internal/report"
	"github.com/rugscope/market-analyzer/internal/symbol"
)

func newReportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report SYMBOL|URL",
		Short: "Analyze a coin",
		Long: `Fetch market and holder data for a coin and print its trend, security,
activity and profitability scores together with your position.
Example: rugscope report MOON
         rugscope report https://rugplay.com/coin/MOON`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sym, err := symbolArg(args[0])
			if err != nil {
				return err
			}
			limit, _ := cmd.Flags().GetInt("holders")

			market, holders, err := app.Source.FetchBoth(cmd.Context(), sym, limit)
			if err != nil {
				return err
			}
			entry, _, err := app.Ledger.Entry(cmd.Context(), sym)
			if err != nil {
				return err
			}
			rep := report.Build(sym, market, holders, entry, app.now())

			if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
				return printJSON(cmd.OutOrStdout(), rep)
			}
			printReport(cmd.OutOrStdout(), rep)
			return nil
		},
	}
	cmd.Flags().Bool("json", false, "Print the report as JSON")
	cmd.Flags().Int("holders", 0, "Number of holders to fetch (0 = configured default)")
	return cmd
}

func newSearchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "search QUERY",
		Short: "Search coins by name or symbol",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			coins, err := app.Source.SearchMarkets(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(coins) == 0 {
				fmt.Fprintln(out, "No coins found.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SYMBOL\tNAME\tPRICE\t24H\tMARKET CAP")
			for _, c := range coins {
				fmt.Fprintf(tw, "%s\t%s\t$%s\t%+.2f%%\t$%s\n",
					c.Symbol, c.Name, analysis.FormatPrice(c.CurrentPrice),
					c.ChangePercent24h(), analysis.FormatNumber(c.MarketCap))
			}
			return tw.Flush()
		},
	}
}

// symbolArg accepts a bare symbol or a coin page URL.
func symbolArg(arg string) (string, error) {
	if strings.Contains(arg, "/") {
		return symbol.FromURL(arg)
	}
	return symbol.Normalize(arg)
}

func printReport(w io.Writer, rep model.Report) {
	m := rep.Market
	fmt.Fprintf(w, "%s (%s)  $%s  %+.2f%% 24h\n", rep.Name, rep.Symbol,
		analysis.FormatPrice(m.CurrentPrice), rep.ChangePct24h)
	fmt.Fprintf(w, "Market cap $%s  Volume $%s  Holders %d\n\n",
		analysis.FormatNumber(m.MarketCap), analysis.FormatNumber(m.Volume24h), rep.HolderCount)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Trend\t%s\t%s\n", rep.Trend.Trend, rep.Trend.Message)
	fmt.Fprintf(tw, "Security\t%s\t%.0f/100\n", rep.Security.Level, rep.Security.Score)
	fmt.Fprintf(tw, "Activity\t%s\t%.0f/100\n", rep.Activity.Level, rep.Activity.Score)
	fmt.Fprintf(tw, "Profitability\t%s\t%.0f/100\n", rep.Profitability.Level, rep.Profitability.Score)
	tw.Flush()

	if rep.Security.Recommendation != "" {
		fmt.Fprintf(w, "\n%s\n", rep.Security.Recommendation)
	}
	for _, f := range rep.Security.Factors {
		fmt.Fprintf(w, "  [%s] %s\n", f.Severity, f.Message)
	}

	pos := rep.Position
	if pos.Quantity.IsPositive() {
		fmt.Fprintf(w, "\nPosition: %s @ $%s  value $%s  P&L $%s (%+.2f%%)\n",
			pos.Quantity.String(), pos.AvgPrice.StringFixed(6),
			pos.CurrentValue.StringFixed(2), pos.ProfitLoss.StringFixed(2), pos.ProfitLossPct)
	} else if rep.TransactionCnt > 0 {
		fmt.Fprintf(w, "\nPosition: closed (%d transactions)\n", rep.TransactionCnt)
	}
}

// printHoldings renders the ledger overview.
func printHoldings(w io.Writer, ov ledger.Overview) error {
	fmt.Fprintf(w, "Assets tracked: %d  Total cost basis: $%s\n", ov.AssetsTracked, ov.TotalCostBasis.StringFixed(2))
	if len(ov.Positions) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SYMBOL\tQUANTITY\tAVG PRICE\tCOST BASIS\tTXS")
	for _, p := range ov.Positions {
		fmt.Fprintf(tw, "%s\t%s\t$%s\t$%s\t%d\n",
			p.Symbol, p.Quantity.String(), p.AvgPrice.StringFixed(6), p.CostBasis.StringFixed(2), p.TxCount)
	}
	return tw.Flush()
}
