// Package app wires configuration, storage, the model and the workflow into
// runnable commands.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"time"

	"meal-shopper/internal/api"
	"meal-shopper/internal/config"
	"meal-shopper/internal/database"
	"meal-shopper/internal/llm"
	"meal-shopper/internal/logx"
	"meal-shopper/internal/metrics"
	"meal-shopper/internal/planner"
	"meal-shopper/internal/scraper"
	"meal-shopper/internal/session"
	"meal-shopper/internal/telegram"
	"meal-shopper/internal/workflow"
)

// App holds the application's dependencies.
type App struct {
	cfg          *config.Config
	db           *database.DB
	metricsStore *metrics.Store
	collectors   *metrics.Collectors
	sessions     session.Store
	mealPlanner  *planner.Planner
	controller   *workflow.Controller
	server       *api.Server

	closers []func() error
}

// New builds the App with the text generator selected by the configuration.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	textGen, closer, err := llm.NewTextGenerator(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create text generator: %w", err)
	}
	a, err := NewWithGenerator(ctx, cfg, textGen)
	if err != nil {
		_ = closer.Close()
		return nil, err
	}
	a.closers = append(a.closers, closer.Close)
	return a, nil
}

// NewWithGenerator builds the App around an existing text generator.
func NewWithGenerator(ctx context.Context, cfg *config.Config, textGen llm.TextGenerator) (*App, error) {
	a := &App{cfg: cfg}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.db = db
	a.closers = append(a.closers, db.Close)
	a.metricsStore = metrics.NewStore(db.SQL)

	sessions, err := a.newSessionStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.sessions = sessions

	a.collectors = metrics.NewCollectors(a.activeSessions, knownStores(cfg.StoreProfilesPath))
	a.mealPlanner = planner.NewPlanner(textGen, cfg.DefaultPlanDays)
	a.controller = workflow.NewController(sessions, a.mealPlanner,
		workflow.WithGenerationTimeout(cfg.GenerationTimeout),
		workflow.WithUsageRecorder(a.metricsStore),
		workflow.WithObserver(a.collectors),
	)
	a.server = api.NewServer(a.controller, api.Options{
		CORSOrigins: cfg.CORSOrigins,
		MaxPlanDays: cfg.MaxPlanDays,
		Collectors:  a.collectors,
		Usage:       a.metricsStore,
		DataPath:    filepath.Dir(cfg.DatabasePath),
	})
	return a, nil
}

func (a *App) newSessionStore(ctx context.Context) (session.Store, error) {
	switch a.cfg.SessionBackend {
	case config.SessionBackendRedis:
		client, err := session.NewRedisClient(ctx, a.cfg.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		logx.Info().Dur("ttl", a.cfg.SessionTTL).Msg("using redis session store")
		return session.NewRedisStore(client, a.cfg.SessionTTL), nil
	default:
		return session.NewMemoryStore(), nil
	}
}

func (a *App) activeSessions() float64 {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	n, err := a.sessions.Count(ctx)
	if err != nil {
		logx.Warn().Err(err).Msg("failed to count sessions")
		return 0
	}
	return float64(n)
}

// knownStores lists the store ids of the price worker's profiles. Without a
// readable profile file every store is reported as "other" in metrics.
func knownStores(path string) []string {
	if path == "" {
		return nil
	}
	profiles, err := scraper.LoadProfiles(path)
	if err != nil {
		logx.Warn().Err(err).Str("path", path).Msg("store profiles unavailable, recommendation metrics use a single store label")
		return nil
	}
	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	return ids
}

// Handler returns the HTTP handler of the API.
func (a *App) Handler() http.Handler {
	return a.server.Handler()
}

// Controller exposes the workflow controller.
func (a *App) Controller() *workflow.Controller {
	return a.controller
}

// Serve runs the HTTP server until ctx is cancelled, then shuts it down
// gracefully. The Telegram bot is mounted when a token is configured.
func (a *App) Serve(ctx context.Context) error {
	var bot *telegram.Bot
	if a.cfg.TelegramBotToken != "" {
		b, err := telegram.NewBot(a.cfg, a.controller, a.metricsStore)
		if err != nil {
			return fmt.Errorf("failed to initialize telegram bot: %w", err)
		}
		a.server.Handle("POST "+telegram.WebhookPath, b)
		bot = b
	}

	srv := &http.Server{
		Addr:              ":" + a.cfg.Port,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("port", a.cfg.Port).Str("env", string(a.cfg.Environment)).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logx.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	if bot != nil {
		bot.Wait()
	}
	logx.Info().Msg("server exited")
	return nil
}

// GenerateMealPlan creates a one-off meal plan and prints it to w.
func (a *App) GenerateMealPlan(ctx context.Context, preferences string, days *int, w io.Writer) error {
	if a.cfg.GenerationTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.cfg.GenerationTimeout)
		defer cancel()
	}

	plan, meta, err := a.mealPlanner.Generate(ctx, preferences, days)
	if recErr := a.metricsStore.RecordMeta(context.WithoutCancel(ctx), meta); recErr != nil {
		logx.Warn().Err(recErr).Msg("failed to record llm usage")
	}
	if err != nil {
		return fmt.Errorf("failed to generate plan: %w", err)
	}

	printPlan(w, plan)
	return nil
}

func printPlan(w io.Writer, plan planner.Plan) {
	fmt.Fprintln(w, "=== MEAL PLAN ===")
	for i, m := range plan.Meals {
		fmt.Fprintf(w, "%d. %s\n", i+1, m.Title)
		if m.Description != "" {
			fmt.Fprintf(w, "   %s\n", m.Description)
		}
		for j, step := range m.Recipe {
			fmt.Fprintf(w, "   %d) %s\n", j+1, step)
		}
	}

	fmt.Fprintln(w, "\n=== SHOPPING LIST ===")
	for _, item := range plan.ShoppingList {
		fmt.Fprintf(w, "- %s\n", item)
	}
}

// CleanupMetrics removes usage records older than days.
func (a *App) CleanupMetrics(ctx context.Context, days int) (int64, error) {
	return a.metricsStore.Cleanup(ctx, days)
}

// Close releases all resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
