// Package cli implements the rugscope command-line client: reports,
// search and the personal ledger, sharing the server's storage and
// data-source stack.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/rugscope/market-analyzer/internal/config"
	"github.com/rugscope/market-analyzer/internal/datasource"
	"github.com/rugscope/market-analyzer/internal/ledger"
	"github.com/rugscope/market-analyzer/internal/model"
	"github.com/rugscope/market-analyzer/internal/store"
)

// Source is the market data the CLI reads. *datasource.Client satisfies it.
type Source interface {
	FetchBoth(ctx context.Context, sym string, limit int) (model.MarketSnapshot, *model.HolderSnapshot, error)
	SearchMarkets(ctx context.Context, query string) ([]model.MarketSnapshot, error)
}

// App carries the collaborators every command uses.
type App struct {
	Ledger *ledger.Ledger
	Source Source
	Creds  *store.CredentialStore
	Now    func() time.Time

	closers []func()
}

// Close releases store connections.
func (a *App) Close() {
	for _, fn := range a.closers {
		fn()
	}
}

// NewRootCmd builds the command tree wired to the configured backends.
func NewRootCmd() *cobra.Command {
	app := &App{}
	root := newRootCmd(app)
	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		debug, _ := cmd.Flags().GetBool("debug")
		return app.open(cmd.Context(), debug)
	}
	root.PersistentPostRun = func(*cobra.Command, []string) { app.Close() }
	return root
}

// open loads configuration and connects the store. Without a database or
// Redis the ledger lives in a file under the user's home directory.
func (a *App) open(ctx context.Context, debug bool) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	level := cfg.LogLevel
	if debug {
		level = slog.LevelDebug
	} else if level < slog.LevelWarn {
		level = slog.LevelWarn
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	file := cfg.StoreFile
	if file == "" && cfg.DatabaseURL == "" && cfg.RedisURL == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("locate home directory: %w", err)
		}
		file = filepath.Join(home, ".rugscope", "store.json")
	}

	kv, closeFn, err := store.Open(ctx, store.Backend{
		DatabaseURL: cfg.DatabaseURL,
		RedisURL:    cfg.RedisURL,
		CacheTTL:    cfg.RedisCacheTTL,
		File:        file,
	})
	if err != nil {
		return err
	}
	a.closers = append(a.closers, closeFn)

	a.Creds = store.NewCredentialStore(kv)
	a.Ledger = ledger.New(kv, nil)
	a.Source = datasource.New(a.Creds, cfg.DataSourceOptions())
	a.Now = time.Now
	return nil
}

// newRootCmd builds the command tree around app. Tests fill app directly.
func newRootCmd(app *App) *cobra.Command {
	root := &cobra.Command{
		Use:   "rugscope",
		Short: "rugscope - risk and trend analysis for community coins",
		Long: `rugscope scores a coin's security, activity, trend and profitability from
live market data and keeps a personal ledger of your trades.`,
		SilenceUsage: true,
	}

	root.AddCommand(newReportCmd(app))
	root.AddCommand(newSearchCmd(app))
	root.AddCommand(newTxCmd(app))
	root.AddCommand(newHoldingsCmd(app))
	root.AddCommand(newNotesCmd(app))
	root.AddCommand(newExportCmd(app))
	root.AddCommand(newImportCmd(app))
	root.AddCommand(newClearCmd(app))
	root.AddCommand(newLoginCmd(app))

	root.PersistentFlags().Bool("debug", false, "Enable debug logging")
	return root
}

func (a *App) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

// printJSON writes v indented to w.
func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// parseDate accepts YYYY-MM-DD or RFC 3339. Empty means now.
func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD or RFC 3339)", s)
	}
	return t, nil
}
