// Command server runs the portfolio tracker as a long-lived service: a
// scheduler refreshing prices and barrier states on an interval, plus an
// HTTP surface for note intake, reports, health and prometheus metrics.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"structured-notes-tracker/internal/config"
	"structured-notes-tracker/internal/intake"
	"structured-notes-tracker/internal/observability"
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

	if err := run(cfg, logger); err != nil {
		logger.Sugar().Errorw("server exited", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	sugar := logger.Sugar()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	stores, cleanup, err := createStores(ctx, cfg, sugar)
	if err != nil {
		return fmt.Errorf("create stores: %w", err)
	}
	defer cleanup()

	metrics := observability.NewMetrics(cfg.MetricsNamespace)

	app := &application{
		logger:  sugar,
		metrics: metrics,
		feed: pricefeed.NewService(pricefeed.Options{
			UnderlyingStore:   stores.underlyings,
			Quotes:            pricefeed.NewYahooClient(cfg.QuoteBaseURL),
			CloseHistoryStore: stores.closes,
			Cache:             newQuoteCache(cfg),
			Metrics:           metrics,
			Logger:            logger,
			Workers:           cfg.QuoteWorkers,
		}),
		orch: orchestrator.New(orchestrator.Options{
			NoteStore:       stores.notes,
			UnderlyingStore: stores.underlyings,
			Metrics:         metrics,
			Logger:          logger,
		}),
		intake: intake.NewService(intake.Options{
			NoteStore:       stores.notes,
			UnderlyingStore: stores.underlyings,
			Metrics:         metrics,
			Logger:          logger,
		}),
		reports: reporting.NewGenerator(stores.notes, stores.underlyings),
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		app.runScheduler(ctx, cfg.RefreshInterval)
	}()

	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           app.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		sugar.Infow("http server listening", "addr", cfg.ListenAddr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		sugar.Infow("shutdown signal received")
	case err := <-errCh:
		stop()
		wg.Wait()
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("http shutdown failed", "error", err)
	}

	wg.Wait()
	return nil
}

// application holds the wired services behind the scheduler and handlers.
type application struct {
	logger  *zap.SugaredLogger
	metrics *observability.Metrics
	feed    *pricefeed.Service
	orch    *orchestrator.Orchestrator
	intake  *intake.Service
	reports *reporting.Generator

	mu         sync.Mutex
	refreshing bool
	lastRun    time.Time
	lastResult *orchestrator.RefreshResult
}

// runScheduler refreshes once at startup and then on every tick until the
// context is cancelled.
func (a *application) runScheduler(ctx context.Context, interval time.Duration) {
	a.refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.refresh(ctx)
		}
	}
}

// refresh runs one prices → statuses → barriers pass. Overlapping runs
// are skipped rather than queued.
func (a *application) refresh(ctx context.Context) {
	a.mu.Lock()
	if a.refreshing {
		a.mu.Unlock()
		a.logger.Warnw("refresh already running, skipping")
		return
	}
	a.refreshing = true
	a.mu.Unlock()

	defer func() {
		a.mu.Lock()
		a.refreshing = false
		a.mu.Unlock()
	}()

	if _, err := a.feed.UpdateAll(ctx); err != nil {
		a.logger.Errorw("price refresh failed", "error", err)
		return
	}
	if _, failures, err := a.orch.RefreshStatuses(ctx); err != nil {
		a.logger.Errorw("status refresh failed", "error", err)
		return
	} else if len(failures) > 0 {
		a.logger.Warnw("status refresh had failures", "failures", failures)
	}

	result, err := a.orch.RefreshAll(ctx)
	if err != nil {
		a.logger.Errorw("barrier refresh failed", "error", err)
		return
	}

	a.mu.Lock()
	a.lastRun = time.Now().UTC()
	a.lastResult = result
	a.mu.Unlock()
}

func (a *application) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", a.handleHealth)
	mux.HandleFunc("/status", a.handleStatus)
	mux.HandleFunc("/notes", a.handleCreateNote)
	mux.HandleFunc("/report", a.handleReport)
	mux.Handle("/metrics", observability.Handler())
	return mux
}

func (a *application) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (a *application) handleStatus(w http.ResponseWriter, _ *http.Request) {
	a.mu.Lock()
	status := map[string]any{
		"refreshing": a.refreshing,
		"last_run":   a.lastRun,
	}
	if a.lastResult != nil {
		status["notes_processed"] = a.lastResult.NotesProcessed
		status["knock_outs"] = a.lastResult.KnockOuts
		status["knock_ins"] = a.lastResult.KnockIns
		status["conversions"] = a.lastResult.Conversions
		status["failures"] = len(a.lastResult.Failures)
	}
	a.mu.Unlock()

	writeJSON(w, http.StatusOK, status)
}

func (a *application) handleCreateNote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var input intake.NoteInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": fmt.Sprintf("decode body: %v", err)})
		return
	}

	result, err := a.intake.CreateNote(r.Context(), &input)
	if err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, storage.ErrInvalidInput) {
			code = http.StatusBadRequest
		}
		writeJSON(w, code, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"note_id":  result.Note.NoteID,
		"status":   result.Note.Status,
		"warnings": result.Warnings,
	})
}

func (a *application) handleReport(w http.ResponseWriter, r *http.Request) {
	report, err := a.reports.Generate(r.Context())
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if r.URL.Query().Get("format") == "csv" {
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, reporting.RenderCSV(report.Notes))
		return
	}
	w.Header().Set("Content-Type", "text/markdown")
	fmt.Fprint(w, reporting.RenderMarkdown(report))
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
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
