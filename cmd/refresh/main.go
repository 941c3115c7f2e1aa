// Command refresh runs one full portfolio refresh and prints a report:
// fetch prices, roll date-driven statuses, evaluate barriers, render the
// portfolio snapshot to stdout.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"structured-notes-tracker/internal/config"
	"structured-notes-tracker/internal/orchestrator"
	"structured-notes-tracker/internal/pricefeed"
	"structured-notes-tracker/internal/reporting"
	"structured-notes-tracker/internal/storage"
	"structured-notes-tracker/internal/storage/clickhouse"
	"structured-notes-tracker/internal/storage/memory"
	"structured-notes-tracker/internal/storage/migrations"
	"structured-notes-tracker/internal/storage/postgres"
)

func main() {
	var (
		format     = flag.String("format", "markdown", "report output format: markdown or csv")
		skipPrices = flag.Bool("skip-prices", false, "skip the price fetch and refresh against stored closes")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *format, *skipPrices); err != nil {
		logger.Sugar().Errorw("refresh failed", "error", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger, format string, skipPrices bool) error {
	sugar := logger.Sugar()

	stores, cleanup, err := createStores(ctx, cfg, sugar)
	if err != nil {
		return fmt.Errorf("create stores: %w", err)
	}
	defer cleanup()

	if !skipPrices {
		feed := pricefeed.NewService(pricefeed.Options{
			UnderlyingStore:   stores.underlyings,
			Quotes:            pricefeed.NewYahooClient(cfg.QuoteBaseURL),
			CloseHistoryStore: stores.closes,
			Cache:             newQuoteCache(cfg),
			Logger:            logger,
			Workers:           cfg.QuoteWorkers,
		})
		prices, err := feed.UpdateAll(ctx)
		if err != nil {
			return fmt.Errorf("update prices: %w", err)
		}
		sugar.Infow("prices updated",
			"symbols", prices.TickersFetched,
			"rows", prices.RowsUpdated,
			"failed", len(prices.Failed))
	}

	orch := orchestrator.New(orchestrator.Options{
		NoteStore:       stores.notes,
		UnderlyingStore: stores.underlyings,
		Logger:          logger,
	})

	updated, failures, err := orch.RefreshStatuses(ctx)
	if err != nil {
		return fmt.Errorf("refresh statuses: %w", err)
	}
	sugar.Infow("statuses rolled", "updated", updated, "failures", len(failures))

	result, err := orch.RefreshAll(ctx)
	if err != nil {
		return fmt.Errorf("refresh barriers: %w", err)
	}
	for _, ev := range result.Events {
		sugar.Infow("lifecycle event",
			"note_id", ev.NoteID, "kind", ev.Kind, "ticker", ev.Ticker, "reason", ev.Reason)
	}

	report, err := reporting.NewGenerator(stores.notes, stores.underlyings).Generate(ctx)
	if err != nil {
		return fmt.Errorf("generate report: %w", err)
	}

	switch format {
	case "csv":
		fmt.Print(reporting.RenderCSV(report.Notes))
	case "markdown":
		fmt.Print(reporting.RenderMarkdown(report))
	default:
		return fmt.Errorf("unknown format %q", format)
	}
	return nil
}

type appStores struct {
	notes       storage.NoteStore
	underlyings storage.UnderlyingStore
	closes      storage.CloseHistoryStore // nil when no clickhouse DSN is set
}

// createStores wires the storage backends from config. An empty postgres
// DSN selects the in-memory stores for local runs; clickhouse close
// history is attached only when its DSN is set.
func createStores(ctx context.Context, cfg *config.Config, sugar *zap.SugaredLogger) (*appStores, func(), error) {
	if cfg.PostgresDSN == "" {
		sugar.Infow("using in-memory stores")
		return &appStores{
			notes:       memory.NewNoteStore(),
			underlyings: memory.NewUnderlyingStore(),
			closes:      memory.NewCloseHistoryStore(),
		}, func() {}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}

	stores := &appStores{
		notes:       postgres.NewNoteStore(pool),
		underlyings: postgres.NewUnderlyingStore(pool),
	}
	cleanup := func() { pool.Close() }

	if cfg.ClickhouseDSN != "" {
		conn, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickhouseDSN)
		if err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
		}
		stores.closes = clickhouse.NewCloseHistoryStore(conn)
		cleanup = func() {
			if err := conn.Close(); err != nil {
				sugar.Warnw("clickhouse close failed", "error", err)
			}
			pool.Close()
		}
	}

	return stores, cleanup, nil
}

func newQuoteCache(cfg *config.Config) *pricefeed.QuoteCache {
	if cfg.RedisAddr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	return pricefeed.NewQuoteCache(client, cfg.QuoteCacheTTL)
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("parse log level %q: %w", level, err)
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
