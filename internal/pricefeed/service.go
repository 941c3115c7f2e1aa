// Package pricefeed refreshes underlying prices from an outbound quote
// provider and records the daily close history. Lookups run on a small
// bounded worker pool and go through an optional redis cache so repeated
// refreshes stay cheap.
package pricefeed

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"structured-notes-tracker/internal/domain"
	"structured-notes-tracker/internal/observability"
	"structured-notes-tracker/internal/storage"
)

// Service drives a price refresh over every ticker the portfolio holds.
type Service struct {
	underlyings storage.UnderlyingStore
	closes      storage.CloseHistoryStore
	quotes      QuoteClient
	cache       *QuoteCache
	metrics     *observability.Metrics
	logger      *zap.SugaredLogger
	workers     int
	now         func() time.Time
}

// Options for creating a Service.
type Options struct {
	UnderlyingStore storage.UnderlyingStore
	Quotes          QuoteClient

	// CloseHistoryStore is optional; nil skips history recording.
	CloseHistoryStore storage.CloseHistoryStore
	// Cache is optional; nil disables the quote cache.
	Cache *QuoteCache
	// Metrics is optional; nil disables instrumentation.
	Metrics *observability.Metrics
	// Logger is optional; nil means silent.
	Logger *zap.Logger
	// Workers bounds concurrent provider lookups; defaults to 5.
	Workers int
	// Now is optional and exists for tests; defaults to time.Now.
	Now func() time.Time
}

// NewService creates a new price refresh service.
func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = 5
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		underlyings: opts.UnderlyingStore,
		closes:      opts.CloseHistoryStore,
		quotes:      opts.Quotes,
		cache:       opts.Cache,
		metrics:     opts.Metrics,
		logger:      logger.Sugar(),
		workers:     workers,
		now:         now,
	}
}

// UpdateResult contains counts from one price refresh.
type UpdateResult struct {
	TickersFetched int
	RowsUpdated    int
	Failed         []string // tickers that could not be priced
}

// UpdateAll fetches a price for every distinct ticker and writes it onto
// each matching underlying row. Several stored tickers can map to the
// same quote symbol ("AMZN UQ", "AMZN UW"); the symbol is fetched once.
// A failed lookup skips that ticker and leaves the previous close alone.
func (s *Service) UpdateAll(ctx context.Context) (*UpdateResult, error) {
	raw, err := s.underlyings.DistinctTickers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	if s.metrics != nil {
		s.metrics.TickersTracked.Set(float64(len(raw)))
	}

	result := &UpdateResult{}

	// Group stored tickers by their cleaned quote symbol.
	bySymbol := make(map[string][]string)
	for _, ticker := range raw {
		symbol, ok := CleanTicker(ticker)
		if !ok {
			result.Failed = append(result.Failed, ticker)
			s.countFetchError("unparseable_ticker")
			continue
		}
		bySymbol[symbol] = append(bySymbol[symbol], ticker)
	}

	prices := s.fetchAll(ctx, bySymbol)

	symbols := make([]string, 0, len(bySymbol))
	for symbol := range bySymbol {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	observedAt := s.now()
	var closePoints []*domain.ClosePoint

	for _, symbol := range symbols {
		price, ok := prices[symbol]
		if !ok {
			result.Failed = append(result.Failed, bySymbol[symbol]...)
			continue
		}
		result.TickersFetched++

		for _, ticker := range bySymbol[symbol] {
			updated, err := s.underlyings.UpdateLastClose(ctx, ticker, price, observedAt)
			if err != nil {
				result.Failed = append(result.Failed, ticker)
				s.logger.Errorw("update last close failed", "ticker", ticker, "error", err)
				continue
			}
			result.RowsUpdated += updated
		}

		closePoints = append(closePoints, &domain.ClosePoint{
			Ticker:     symbol,
			ObservedAt: domain.Day(observedAt),
			Price:      price,
		})
	}

	if s.closes != nil && len(closePoints) > 0 {
		err := s.closes.InsertBulk(ctx, closePoints)
		switch {
		case errors.Is(err, storage.ErrDuplicateKey):
			// Same-day rerun; history already has today's closes.
		case err != nil:
			s.logger.Errorw("close history insert failed", "error", err)
		default:
			if s.metrics != nil {
				s.metrics.ClosesRecorded.Add(float64(len(closePoints)))
			}
		}
	}

	s.logger.Infow("price refresh complete",
		"symbols", result.TickersFetched,
		"rows_updated", result.RowsUpdated,
		"failed", len(result.Failed))

	return result, nil
}

// fetchAll resolves a price per symbol on the bounded worker pool.
func (s *Service) fetchAll(ctx context.Context, bySymbol map[string][]string) map[string]float64 {
	var mu sync.Mutex
	prices := make(map[string]float64, len(bySymbol))

	jobs := make(chan string)
	var wg sync.WaitGroup

	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for symbol := range jobs {
				price, err := s.fetchOne(ctx, symbol)
				if err != nil {
					s.countFetchError("provider")
					s.logger.Warnw("quote lookup failed", "symbol", symbol, "error", err)
					continue
				}
				mu.Lock()
				prices[symbol] = price
				mu.Unlock()
			}
		}()
	}

	for symbol := range bySymbol {
		select {
		case jobs <- symbol:
		case <-ctx.Done():
		}
	}
	close(jobs)
	wg.Wait()

	return prices
}

// fetchOne resolves one symbol, cache first.
func (s *Service) fetchOne(ctx context.Context, symbol string) (float64, error) {
	if s.cache != nil {
		price, hit, err := s.cache.Get(ctx, symbol)
		if err != nil {
			s.logger.Warnw("quote cache read failed", "symbol", symbol, "error", err)
		} else if hit {
			if s.metrics != nil {
				s.metrics.PriceCacheHits.Inc()
			}
			return price, nil
		} else if s.metrics != nil {
			s.metrics.PriceCacheMisses.Inc()
		}
	}

	started := s.now()
	price, err := s.quotes.Quote(ctx, symbol)
	if s.metrics != nil {
		s.metrics.PriceFetchLatency.Observe(time.Since(started).Seconds())
	}
	if err != nil {
		return 0, err
	}
	if price <= 0 {
		return 0, fmt.Errorf("quote for %s: non-positive price %v", symbol, price)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, symbol, price); err != nil {
			s.logger.Warnw("quote cache write failed", "symbol", symbol, "error", err)
		}
	}
	return price, nil
}

func (s *Service) countFetchError(reason string) {
	if s.metrics != nil {
		s.metrics.PriceFetchErrors.WithLabelValues(reason).Inc()
	}
}
