package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/rugscope/market-analyzer/internal/ledger"
)

func newTxCmd(app *App) *cobra.Command {
	txCmd := &cobra.Command{
		Use:   "tx",
		Short: "Record, list and remove ledger transactions",
	}

	add := &cobra.Command{
		Use:   "add SYMBOL QUANTITY PRICE",
		Short: "Record a trade (negative quantity = sell)",
		Long: `Record a trade at a per-unit price.
Example: rugscope tx add MOON 1000 0.0042
         rugscope tx add MOON --date 2025-03-01 -- -250 0.0061`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid quantity %q", args[1])
			}
			price, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("invalid price %q", args[2])
			}
			ds, _ := cmd.Flags().GetString("date")
			date, err := parseDate(ds)
			if err != nil {
				return err
			}

			tx, err := app.Ledger.AddTransaction(cmd.Context(), args[0], qty, price, date)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s %s %s @ %s (id %s)\n",
				tx.Type, tx.Quantity.String(), strings.ToUpper(args[0]), tx.Price.String(), tx.ID)
			return nil
		},
	}
	add.Flags().String("date", "", "Trade date, YYYY-MM-DD or RFC 3339 (default now)")

	rm := &cobra.Command{
		Use:   "rm SYMBOL ID",
		Short: "Remove a transaction",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := app.Ledger.DeleteTransaction(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("transaction %s not found for %s", args[1], strings.ToUpper(args[0]))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[1])
			return nil
		},
	}

	ls := &cobra.Command{
		Use:   "ls [SYMBOL]",
		Short: "List transactions, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sym := ""
			if len(args) == 1 {
				sym = args[0]
			}
			page, _ := cmd.Flags().GetInt("page")
			perPage, _ := cmd.Flags().GetInt("per-page")

			p, err := app.Ledger.TransactionsPage(cmd.Context(), sym, page, perPage)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if p.Total == 0 {
				fmt.Fprintln(out, "No transactions.")
				return nil
			}
			tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "DATE\tSYMBOL\tTYPE\tQUANTITY\tPRICE\tTOTAL\tID")
			for _, it := range p.Items {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					it.Date.Format("2006-01-02 15:04"), it.Symbol, it.Type,
					it.Quantity.String(), it.Price.String(),
					it.Quantity.Mul(it.Price).StringFixed(2), it.ID)
			}
			tw.Flush()
			fmt.Fprintf(out, "Page %d of %d (%d transactions)\n", p.Page, p.TotalPages, p.Total)
			return nil
		},
	}
	ls.Flags().Int("page", 1, "Page number")
	ls.Flags().Int("per-page", ledger.DefaultPerPage, "Transactions per page")

	txCmd.AddCommand(add, rm, ls)
	return txCmd
}

func newHoldingsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "holdings [SYMBOL]",
		Short: "Show holdings and cost basis",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				ov, err := app.Ledger.Overview(cmd.Context())
				if err != nil {
					return err
				}
				return printHoldings(out, ov)
			}

			entry, found, err := app.Ledger.Entry(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintf(out, "No transactions for %s.\n", strings.ToUpper(args[0]))
				return nil
			}
			h := ledger.ComputeHoldings(entry.Transactions)
			fmt.Fprintf(out, "%s: %s @ $%s (cost basis $%s, %d transactions)\n",
				strings.ToUpper(args[0]), h.Quantity.String(), h.AvgPrice.StringFixed(6),
				h.CostBasis().StringFixed(2), len(entry.Transactions))
			if entry.Notes != "" {
				fmt.Fprintf(out, "Notes: %s\n", entry.Notes)
			}
			return nil
		},
	}
}

func newNotesCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "notes SYMBOL TEXT...",
		Short: "Set the notes for a ledger entry",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Ledger.SetNotes(cmd.Context(), args[0], strings.Join(args[1:], " "))
		},
	}
}

func newExportCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := app.Ledger.ExportJSON(cmd.Context())
			if err != nil {
				return err
			}
			path, _ := cmd.Flags().GetString("out")
			if path == "" {
				_, err := cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			}
			if err := os.WriteFile(path, data, 0o600); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", path)
			return nil
		},
	}
	cmd.Flags().StringP("out", "o", "", "Write to file instead of stdout")
	return cmd
}

func newImportCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "import FILE",
		Short: "Replace the ledger with an exported JSON file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				data []byte
				err  error
			)
			if args[0] == "-" {
				data, err = io.ReadAll(cmd.InOrStdin())
			} else {
				data, err = os.ReadFile(args[0])
			}
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}
			if err := app.Ledger.ImportJSON(cmd.Context(), data); err != nil {
				return err
			}
			syms, err := app.Ledger.Symbols(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %d symbols\n", len(syms))
			return nil
		},
	}
}

func newClearCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every ledger entry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return fmt.Errorf("refusing to clear the ledger without --yes")
			}
			if err := app.Ledger.ClearAll(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Ledger cleared.")
			return nil
		},
	}
	cmd.Flags().Bool("yes", false, "Confirm deletion")
	return cmd
}

func newLoginCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login [API_KEY]",
		Short: "Store the market data API key (read from stdin when omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key := ""
			if len(args) == 1 {
				key = args[0]
			} else {
				fmt.Fprint(cmd.ErrOrStderr(), "API key: ")
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && err != io.EOF {
					return err
				}
				key = line
			}
			key = strings.TrimSpace(key)
			if key == "" {
				return fmt.Errorf("API key cannot be empty")
			}
			if err := app.Creds.SetAPIKey(cmd.Context(), key); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "API key saved.")
			return nil
		},
	}
}
