// Package workflow drives sessions from a generated meal plan to a store
// recommendation. It is the only component that writes to the session store.
package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meal-shopper/internal/logx"
	"meal-shopper/internal/planner"
	"meal-shopper/internal/pricing"
	"meal-shopper/internal/session"
	"meal-shopper/internal/shared"
)

// ErrSessionNotFound is returned for ids that do not name a live session.
var ErrSessionNotFound = session.ErrNotFound

// ErrGenerationFailed wraps every failure of the meal plan generator.
var ErrGenerationFailed = errors.New("meal plan generation failed")

// UsageRecorder receives token usage of model calls. It is satisfied by
// metrics.Store.
type UsageRecorder interface {
	RecordMeta(ctx context.Context, meta shared.AgentMeta) error
}

// Observer is notified about workflow outcomes. It is satisfied by
// metrics.Collectors.
type Observer interface {
	SessionCreated()
	GenerationFailed()
	PriceReport(outcome string)
	Recommended(store string)
	TokensUsed(agent string, prompt, completion int)
}

// Created is the result of a successful Create.
type Created struct {
	SessionID string
	MealPlan  planner.Plan
	Message   string
}

// Controller orchestrates session transitions.
type Controller struct {
	store             session.Store
	generator         planner.Generator
	generationTimeout time.Duration
	usage             UsageRecorder
	observer          Observer
	now               func() time.Time
}

// Option customizes a Controller.
type Option func(*Controller)

// WithGenerationTimeout bounds each call to the plan generator.
func WithGenerationTimeout(d time.Duration) Option {
	return func(c *Controller) { c.generationTimeout = d }
}

// WithUsageRecorder persists token usage of every generation.
func WithUsageRecorder(r UsageRecorder) Option {
	return func(c *Controller) { c.usage = r }
}

// WithObserver reports workflow outcomes, e.g. to Prometheus.
func WithObserver(o Observer) Option {
	return func(c *Controller) { c.observer = o }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates a Controller.
func NewController(store session.Store, generator planner.Generator, opts ...Option) *Controller {
	c := &Controller{
		store:     store,
		generator: generator,
		observer:  nopObserver{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Create generates a meal plan for the preferences and stores it in a new
// session. days is optional.
func (c *Controller) Create(ctx context.Context, preferences string, days *int) (Created, error) {
	genCtx := ctx
	if c.generationTimeout > 0 {
		var cancel context.CancelFunc
		genCtx, cancel = context.WithTimeout(ctx, c.generationTimeout)
		defer cancel()
	}

	plan, meta, err := c.generator.Generate(genCtx, preferences, days)
	c.recordUsage(ctx, meta)
	if err != nil {
		c.observer.GenerationFailed()
		logx.Error().Err(err).Str("preferences", preferences).Msg("meal plan generation failed")
		return Created{}, fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}

	s := session.New(preferences, plan, c.now())
	if err := c.store.Put(ctx, s); err != nil {
		return Created{}, fmt.Errorf("failed to store session: %w", err)
	}
	c.observer.SessionCreated()

	logx.Info().
		Str("session_id", s.ID).
		Int("meals", len(s.MealPlan.Meals)).
		Int("items", len(s.ShoppingList)).
		Msg("session created")

	return Created{
		SessionID: s.ID,
		MealPlan:  s.MealPlan,
		Message:   fmt.Sprintf("Meal plan with %d meals ready. Waiting for price data.", len(s.MealPlan.Meals)),
	}, nil
}

// ReportPrices aggregates the observations, decides on a store and commits
// the report and the decision in one store update. Nothing is written when
// the decision cannot be made.
func (c *Controller) ReportPrices(ctx context.Context, id string, prices []pricing.Observation) (*pricing.Decision, error) {
	var decision *pricing.Decision

	err := c.store.Update(ctx, id, func(s *session.Session) error {
		d, err := pricing.Decide(pricing.Aggregate(prices))
		if err != nil {
			return err
		}
		now := c.now()
		if err := s.Advance(session.StatusPricesReceived, now); err != nil {
			return err
		}
		s.PriceReport = &session.PriceReport{
			Prices:     append([]pricing.Observation(nil), prices...),
			ReceivedAt: now,
		}
		if err := s.Advance(session.StatusDecisionMade, now); err != nil {
			return err
		}
		s.Decision = d
		decision = d
		return nil
	})
	if err != nil {
		c.observer.PriceReport(outcome(err))
		if !errors.Is(err, session.ErrNotFound) {
			logx.Warn().Err(err).Str("session_id", id).Msg("price report rejected")
		}
		return nil, err
	}

	c.observer.PriceReport("decided")
	c.observer.Recommended(decision.RecommendedStore)
	logx.Info().
		Str("session_id", id).
		Str("store", decision.RecommendedStore).
		Str("total", decision.TotalCost.StringFixed(2)).
		Str("savings", decision.TotalSavings.StringFixed(2)).
		Msg("shopping decision made")

	return decision.Clone(), nil
}

// Inspect returns a copy of the session.
func (c *Controller) Inspect(ctx context.Context, id string) (*session.Session, error) {
	return c.store.Get(ctx, id)
}

// Delete removes the session.
func (c *Controller) Delete(ctx context.Context, id string) error {
	if err := c.store.Delete(ctx, id); err != nil {
		return err
	}
	logx.Info().Str("session_id", id).Msg("session deleted")
	return nil
}

// ActiveSessions reports how many sessions the store holds.
func (c *Controller) ActiveSessions(ctx context.Context) (int, error) {
	return c.store.Count(ctx)
}

func (c *Controller) recordUsage(ctx context.Context, meta shared.AgentMeta) {
	if meta.Empty() {
		return
	}
	c.observer.TokensUsed(meta.AgentName, meta.Usage.PromptTokens, meta.Usage.CompletionTokens)
	if c.usage == nil {
		return
	}
	// Usage is bookkeeping; losing a row must not fail the request.
	if err := c.usage.RecordMeta(context.WithoutCancel(ctx), meta); err != nil {
		logx.Warn().Err(err).Str("agent", meta.AgentName).Msg("failed to record llm usage")
	}
}

func outcome(err error) string {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return "not_found"
	case errors.Is(err, pricing.ErrNoStoresAvailable):
		return "no_stores"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "error"
}

type nopObserver struct{}

func (nopObserver) SessionCreated() {}
func (nopObserver) GenerationFailed() {}
func (nopObserver) PriceReport(string) {}
func (nopObserver) Recommended(string) {}
func (nopObserver) TokensUsed(string, int, int) {}
