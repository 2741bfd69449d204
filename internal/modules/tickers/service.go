package tickers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/Guizzs26/tradebook/internal/modules/pkg/clock"
	ctxlogger "github.com/Guizzs26/tradebook/internal/modules/pkg/logger/context"
)

// refreshPageSize is how many rows RefreshAll loads and writes back per round
const refreshPageSize = 100

// strikeTolerance absorbs float noise when matching a requested strike
const strikeTolerance = 1e-6

// HistoryQuery is the input of History. Zero dates default to the last year
type HistoryQuery struct {
	Symbol    string
	From      time.Time
	To        time.Time
	Frequency string
}

// RefreshReport summarizes one RefreshAll run
type RefreshReport struct {
	TickersUpdated int `json:"tickers_updated"`
	TickersFailed  int `json:"tickers_failed"`
	OptionsUpdated int `json:"options_updated"`
	OptionsFailed  int `json:"options_failed"`
}

// Service answers quote lookups from the database first and the provider second
type Service struct {
	repo     Repository
	provider MarketDataProvider
	cache    Cache
	cacheTTL time.Duration
	clock    clock.Clock
}

func NewService(repo Repository, provider MarketDataProvider, cache Cache, cacheTTL time.Duration, clk clock.Clock) *Service {
	if cache == nil {
		cache = NopCache{}
	}
	return &Service{
		repo:     repo,
		provider: provider,
		cache:    cache,
		cacheTTL: cacheTTL,
		clock:    clk,
	}
}

// GetClosedPrice returns the stored close of symbol, fetching and storing it on a miss
func (s *Service) GetClosedPrice(ctx context.Context, symbol string) (*Ticker, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, ErrTickerNotFound
	}

	t, err := s.repo.FindTicker(ctx, symbol)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrTickerNotFound) {
		return nil, fmt.Errorf("find ticker %s: %w", symbol, err)
	}

	latest, err := s.provider.LatestClose(ctx, symbol)
	if err != nil {
		return nil, err
	}

	t = &Ticker{
		Symbol:      symbol,
		ClosedPrice: latest.Close,
		ClosedDate:  truncateDay(latest.Date),
	}
	if err := s.repo.UpsertTicker(ctx, t); err != nil {
		return nil, fmt.Errorf("store ticker %s: %w", symbol, err)
	}

	ctxlogger.GetLogger(ctx).Info("ticker fetched from provider", slog.String("ticker", symbol))
	return t, nil
}

// GetOption returns the stored contract matching q, looking it up in the
// provider's chain for q's expiry on a miss
func (s *Service) GetOption(ctx context.Context, q OptionQuery) (*Option, error) {
	q.Ticker = NormalizeSymbol(q.Ticker)
	q.ExpireDate = truncateDay(q.ExpireDate)
	if !q.Type.IsValid() {
		return nil, ErrOptionNotFound
	}

	// options reference their underlying, so it has to be known first
	if _, err := s.GetClosedPrice(ctx, q.Ticker); err != nil {
		return nil, err
	}

	o, err := s.repo.FindOption(ctx, q)
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, ErrOptionNotFound) {
		return nil, fmt.Errorf("find option: %w", err)
	}

	chain, err := s.provider.OptionChain(ctx, q.Ticker, q.ExpireDate)
	if err != nil {
		if errors.Is(err, ErrTickerNotFound) {
			return nil, ErrOptionNotFound
		}
		return nil, err
	}

	contract, ok := findStrike(chain.Side(q.Type), q.StrikePrice)
	if !ok {
		return nil, ErrOptionNotFound
	}

	o = &Option{
		ID:          contract.ContractSymbol,
		Type:        q.Type,
		Ticker:      q.Ticker,
		StrikePrice: contract.Strike,
		Bid:         contract.Bid,
		Ask:         contract.Ask,
		ExpireDate:  q.ExpireDate,
		Volume:      contract.Volume,
		IV:          contract.ImpliedVolatility,
		ITM:         contract.InTheMoney,
	}
	if err := s.repo.UpsertOption(ctx, o); err != nil {
		return nil, fmt.Errorf("store option %s: %w", o.ID, err)
	}
	return o, nil
}

// History returns resampled closes, newest first. Results are cached; cache
// failures are logged and the provider is used instead
func (s *Service) History(ctx context.Context, q HistoryQuery) ([]PricePoint, error) {
	log := ctxlogger.GetLogger(ctx)

	freq, err := ParseFrequency(q.Frequency)
	if err != nil {
		return nil, err
	}

	symbol := NormalizeSymbol(q.Symbol)
	if symbol == "" {
		return nil, ErrTickerNotFound
	}

	to := q.To
	if to.IsZero() {
		to = s.clock.Now()
	}
	from := q.From
	if from.IsZero() {
		from = to.AddDate(-1, 0, 0)
	}
	from, to = truncateDay(from), truncateDay(to)
	if from.After(to) {
		return nil, ErrDateRange
	}

	key := historyCacheKey(symbol, from, to, freq)
	if cached, found, err := s.cache.Get(ctx, key); err != nil {
		log.Warn("price history cache unavailable", slog.String("key", key), slog.String("error", err.Error()))
	} else if found {
		var points []PricePoint
		if err := json.Unmarshal(cached, &points); err == nil {
			return points, nil
		}
		log.Warn("discarding unreadable cache entry", slog.String("key", key))
	}

	closes, err := s.provider.DailyCloses(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}
	if len(closes) == 0 {
		return nil, ErrTickerNotFound
	}

	points := resample(closes, freq)

	if payload, err := json.Marshal(points); err == nil {
		if err := s.cache.SetNX(ctx, key, payload, s.cacheTTL); err != nil {
			log.Warn("failed to cache price history", slog.String("key", key), slog.String("error", err.Error()))
		}
	}

	return points, nil
}

// Metrics formats the provider summary and adds the put/call volume ratio
// across every listed expiration
func (s *Service) Metrics(ctx context.Context, symbol string) (*Metrics, error) {
	symbol = NormalizeSymbol(symbol)
	if symbol == "" {
		return nil, ErrTickerNotFound
	}

	summary, err := s.provider.Summary(ctx, symbol)
	if err != nil {
		return nil, err
	}

	expirations, err := s.provider.Expirations(ctx, symbol)
	if err != nil && !errors.Is(err, ErrTickerNotFound) {
		return nil, err
	}

	chains := make([]*OptionChain, 0, len(expirations))
	for _, exp := range expirations {
		chain, err := s.provider.OptionChain(ctx, symbol, exp)
		if err != nil {
			return nil, err
		}
		chains = append(chains, chain)
	}

	m := toMetrics(summary, putCallRatio(chains))
	if m.Symbol == "" {
		m.Symbol = symbol
	}
	return &m, nil
}

// RefreshAll re-prices every stored ticker and option, page by page.
// A symbol the provider cannot price is logged and skipped
func (s *Service) RefreshAll(ctx context.Context) (*RefreshReport, error) {
	report := &RefreshReport{}

	if err := s.refreshTickers(ctx, report); err != nil {
		return report, err
	}
	if err := s.refreshOptions(ctx, report); err != nil {
		return report, err
	}

	ctxlogger.GetLogger(ctx).Info("market data refreshed",
		slog.Int("tickers_updated", report.TickersUpdated),
		slog.Int("tickers_failed", report.TickersFailed),
		slog.Int("options_updated", report.OptionsUpdated),
		slog.Int("options_failed", report.OptionsFailed),
	)
	return report, nil
}

func (s *Service) refreshTickers(ctx context.Context, report *RefreshReport) error {
	log := ctxlogger.GetLogger(ctx)

	for offset := 0; ; offset += refreshPageSize {
		page, err := s.repo.ListTickers(ctx, refreshPageSize, offset)
		if err != nil {
			return fmt.Errorf("list tickers: %w", err)
		}
		if len(page) == 0 {
			return nil
		}

		updated := make([]Ticker, 0, len(page))
		for _, t := range page {
			latest, err := s.provider.LatestClose(ctx, t.Symbol)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				log.Warn("skipping ticker refresh", slog.String("ticker", t.Symbol), slog.String("error", err.Error()))
				report.TickersFailed++
				continue
			}
			t.ClosedPrice = latest.Close
			t.ClosedDate = truncateDay(latest.Date)
			updated = append(updated, t)
		}

		if err := s.repo.SaveTickers(ctx, updated); err != nil {
			return fmt.Errorf("save tickers: %w", err)
		}
		report.TickersUpdated += len(updated)

		if len(page) < refreshPageSize {
			return nil
		}
	}
}

func (s *Service) refreshOptions(ctx context.Context, report *RefreshReport) error {
	log := ctxlogger.GetLogger(ctx)

	type chainKey struct {
		symbol string
		expiry string
	}

	for offset := 0; ; offset += refreshPageSize {
		page, err := s.repo.ListOptions(ctx, refreshPageSize, offset)
		if err != nil {
			return fmt.Errorf("list options: %w", err)
		}
		if len(page) == 0 {
			return nil
		}

		chains := make(map[chainKey]*OptionChain)
		updated := make([]Option, 0, len(page))
		for _, o := range page {
			k := chainKey{o.Ticker, o.ExpireDate.Format(DateLayout)}
			chain, ok := chains[k]
			if !ok {
				chain, err = s.provider.OptionChain(ctx, o.Ticker, o.ExpireDate)
				if err != nil {
					if ctx.Err() != nil {
						return ctx.Err()
					}
					log.Warn("skipping option refresh", slog.String("option_id", o.ID), slog.String("error", err.Error()))
					report.OptionsFailed++
					continue
				}
				chains[k] = chain
			}

			contract, found := findContract(chain.Side(o.Type), o.ID)
			if !found {
				log.Warn("option no longer listed", slog.String("option_id", o.ID))
				report.OptionsFailed++
				continue
			}

			o.Bid = contract.Bid
			o.Ask = contract.Ask
			o.Volume = contract.Volume
			o.IV = contract.ImpliedVolatility
			o.ITM = contract.InTheMoney
			updated = append(updated, o)
		}

		if err := s.repo.SaveOptions(ctx, updated); err != nil {
			return fmt.Errorf("save options: %w", err)
		}
		report.OptionsUpdated += len(updated)

		if len(page) < refreshPageSize {
			return nil
		}
	}
}

func findStrike(contracts []OptionContract, strike float64) (OptionContract, bool) {
	for _, c := range contracts {
		if math.Abs(c.Strike-strike) < strikeTolerance {
			return c, true
		}
	}
	return OptionContract{}, false
}

func findContract(contracts []OptionContract, symbol string) (OptionContract, bool) {
	for _, c := range contracts {
		if c.ContractSymbol == symbol {
			return c, true
		}
	}
	return OptionContract{}, false
}
