// Package datasource is the HTTP client for the upstream market data API.
// Every call reads the bearer token from the credential store, waits on a
// rate limiter and runs inside a circuit breaker.
package datasource

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/rugscope/market-analyzer/internal/metrics"
	"github.com/rugscope/market-analyzer/internal/model"
	"github.com/rugscope/market-analyzer/internal/symbol"
)

const (
	DefaultBaseURL     = "https://rugplay.com/api/v1"
	DefaultTimeout     = 15 * time.Second
	DefaultHolderLimit = 100
)

// Credentials supplies the API key. store.CredentialStore satisfies it.
type Credentials interface {
	APIKey(ctx context.Context) (string, error)
}

// Options configures a Client. Zero values select the defaults.
type Options struct {
	BaseURL         string
	Timeout         time.Duration
	RatePerSecond   float64 // <= 0 disables rate limiting
	Burst           int
	HolderLimit     int
	BreakerFailures uint32        // consecutive failures before the breaker opens
	BreakerCooldown time.Duration // time spent open before probing again
}

// Client talks to the market data API.
type Client struct {
	http        *resty.Client
	creds       Credentials
	limiter     *rate.Limiter
	breaker     *gobreaker.CircuitBreaker
	holderLimit int
}

// New creates a client reading its API key from creds.
func New(creds Credentials, opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HolderLimit <= 0 {
		opts.HolderLimit = DefaultHolderLimit
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = 5
	}
	if opts.BreakerCooldown <= 0 {
		opts.BreakerCooldown = 30 * time.Second
	}

	limit := rate.Inf
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
	}
	burst := opts.Burst
	if burst <= 0 {
		burst = 1
	}

	hc := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetHeader("Accept", "application/json")

	const breakerName = "market-api"
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    breakerName,
		Timeout: opts.BreakerCooldown,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= opts.BreakerFailures
		},
		IsSuccessful: func(err error) bool {
			// A rejected key or an abandoned request says nothing about upstream health.
			return err == nil ||
				errors.Is(err, ErrUnauthorized) ||
				errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			slog.Warn("circuit breaker state changed", "name", name, "from", from.String(), "to", to.String())
			metrics.BreakerState.WithLabelValues(name).Set(float64(to))
		},
	})
	metrics.BreakerState.WithLabelValues(breakerName).Set(float64(gobreaker.StateClosed))

	return &Client{
		http:        hc,
		creds:       creds,
		limiter:     rate.NewLimiter(limit, burst),
		breaker:     cb,
		holderLimit: opts.HolderLimit,
	}
}

// --- Wire types ---

type coinResponse struct {
	Coin    model.MarketSnapshot `json:"coin"`
	Candles []model.Candle       `json:"candlestickData"`
}

type marketResponse struct {
	Coins []model.MarketSnapshot `json:"coins"`
}

// --- Endpoints ---

// GetMarketSnapshot fetches GET /coin/{symbol}.
func (c *Client) GetMarketSnapshot(ctx context.Context, sym string) (model.MarketSnapshot, error) {
	sym, err := symbol.Normalize(sym)
	if err != nil {
		return model.MarketSnapshot{}, err
	}
	var resp coinResponse
	if err := c.get(ctx, "coin", "/coin/"+sym, nil, &resp); err != nil {
		return model.MarketSnapshot{}, err
	}
	snap := resp.Coin
	if snap.Symbol == "" {
		snap.Symbol = sym
	}
	if len(resp.Candles) > 0 {
		snap.Candles = resp.Candles
	}
	return snap, nil
}

// GetHolderSnapshot fetches GET /holders/{symbol}?limit=N. limit <= 0 uses
// the client's configured holder limit.
func (c *Client) GetHolderSnapshot(ctx context.Context, sym string, limit int) (*model.HolderSnapshot, error) {
	sym, err := symbol.Normalize(sym)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = c.holderLimit
	}
	var resp model.HolderSnapshot
	q := map[string]string{"limit": strconv.Itoa(limit)}
	if err := c.get(ctx, "holders", "/holders/"+sym, q, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SearchMarkets fetches GET /market?search=q.
func (c *Client) SearchMarkets(ctx context.Context, query string) ([]model.MarketSnapshot, error) {
	var resp marketResponse
	if err := c.get(ctx, "market", "/market", map[string]string{"search": query}, &resp); err != nil {
		return nil, err
	}
	if resp.Coins == nil {
		resp.Coins = []model.MarketSnapshot{}
	}
	return resp.Coins, nil
}

// FetchBoth runs the market and holder requests concurrently and waits for
// both. The first error cancels the other request.
func (c *Client) FetchBoth(ctx context.Context, sym string, limit int) (model.MarketSnapshot, *model.HolderSnapshot, error) {
	var (
		market  model.MarketSnapshot
		holders *model.HolderSnapshot
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		market, err = c.GetMarketSnapshot(gctx, sym)
		return err
	})
	g.Go(func() error {
		var err error
		holders, err = c.GetHolderSnapshot(gctx, sym, limit)
		return err
	})
	if err := g.Wait(); err != nil {
		return model.MarketSnapshot{}, nil, err
	}
	return market, holders, nil
}

// get performs one authenticated GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, endpoint, path string, query map[string]string, out any) error {
	key, err := c.creds.APIKey(ctx)
	if err != nil {
		return fmt.Errorf("read api key: %w", err)
	}
	if key == "" {
		return ErrMissingCredential
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return &RequestError{Endpoint: endpoint, Err: err}
	}

	start := time.Now()
	body, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.http.R().
			SetContext(ctx).
			SetAuthToken(key).
			SetQueryParams(query).
			Get(path)
		if err != nil {
			return nil, &RequestError{Endpoint: endpoint, Err: err}
		}
		switch code := resp.StatusCode(); {
		case code == http.StatusUnauthorized || code == http.StatusForbidden:
			return nil, ErrUnauthorized
		case code < 200 || code > 299:
			return nil, &RequestError{Endpoint: endpoint, StatusCode: code, Status: resp.Status()}
		}
		return resp.Body(), nil
	})
	metrics.UpstreamLatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	metrics.UpstreamRequests.WithLabelValues(endpoint, outcome(err)).Inc()

	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return &RequestError{Endpoint: endpoint, Err: err}
		}
		if !errors.Is(err, ErrUnauthorized) {
			slog.Warn("upstream request failed", "endpoint", endpoint, "path", path, "err", err)
		}
		return err
	}

	if err := json.Unmarshal(body.([]byte), out); err != nil {
		return &RequestError{Endpoint: endpoint, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return "rejected"
	default:
		return "error"
	}
}
