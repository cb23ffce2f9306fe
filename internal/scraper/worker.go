package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"meal-shopper/internal/logx"
	"meal-shopper/internal/pricing"
	"meal-shopper/internal/shopping"
)

// Searcher finds products for a query in one store.
type Searcher interface {
	Search(ctx context.Context, p Profile, query string) ([]Product, error)
}

// API is the part of the meal-shopper API the worker uses.
type API interface {
	GetSession(ctx context.Context, id string) (*SessionView, error)
	ReportPrices(ctx context.Context, id string, prices []pricing.Observation) (*pricing.Decision, error)
}

// Worker collects prices for a session's shopping list in every configured
// store and submits them as one price report.
type Worker struct {
	searcher Searcher
	api      API
	profiles []Profile
	// delay is the pause between two searches in the same store.
	delay       time.Duration
	concurrency int
}

// NewWorker creates a Worker. Stores are queried in parallel, items within a
// store one after another.
func NewWorker(searcher Searcher, api API, profiles []Profile, delay time.Duration) *Worker {
	return &Worker{
		searcher:    searcher,
		api:         api,
		profiles:    profiles,
		delay:       delay,
		concurrency: 4,
	}
}

// Run prices the shopping list of the session and reports the result.
func (w *Worker) Run(ctx context.Context, sessionID string) (*pricing.Decision, error) {
	s, err := w.api.GetSession(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load session %s: %w", sessionID, err)
	}
	if len(s.ShoppingList) == 0 {
		return nil, fmt.Errorf("session %s has an empty shopping list", sessionID)
	}

	prices, err := w.Collect(ctx, s.ShoppingList)
	if err != nil {
		return nil, err
	}

	logx.Info().Str("session_id", sessionID).Int("observations", len(prices)).Msg("submitting price report")
	return w.api.ReportPrices(ctx, sessionID, prices)
}

// Collect searches every item in every store. Items a store does not carry,
// or whose search failed, are reported as unavailable. The result is ordered
// by store profile and then by shopping list position.
func (w *Worker) Collect(ctx context.Context, items []string) ([]pricing.Observation, error) {
	perStore := make([][]pricing.Observation, len(w.profiles))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	blocked := make([]bool, len(w.profiles))

	for i, p := range w.profiles {
		g.Go(func() error {
			obs, err := w.collectStore(ctx, p, items)
			if errors.Is(err, ErrBlocked) {
				blocked[i] = true
				return nil
			}
			perStore[i] = obs
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []pricing.Observation
	for i, obs := range perStore {
		if blocked[i] {
			logx.Warn().Str("store", w.profiles[i].ID).Msg("store blocked the scraper, leaving it out of the report")
			continue
		}
		out = append(out, obs...)
	}
	return out, nil
}

func (w *Worker) collectStore(ctx context.Context, p Profile, items []string) ([]pricing.Observation, error) {
	out := make([]pricing.Observation, 0, len(items))
	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i > 0 && w.delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(w.delay):
			}
		}

		query := shopping.ParseIngredient(item).Name
		products, err := w.searcher.Search(ctx, p, query)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if errors.Is(err, ErrBlocked) {
				return nil, err
			}
			logx.Warn().Err(err).Str("store", p.ID).Str("item", item).Msg("search failed, marking item unavailable")
		}

		best, ok := BestValue(products)
		if !ok {
			out = append(out, pricing.Observation{Ingredient: item, Store: p.ID, Available: false})
			continue
		}
		out = append(out, pricing.Observation{
			Ingredient: item,
			Store:      p.ID,
			Price:      best.Price,
			UnitPrice:  best.UnitPrice,
			Unit:       best.Unit,
			URL:        best.URL,
			Available:  true,
		})
		logx.Debug().Str("store", p.ID).Str("item", item).Str("product", best.Name).Str("price", best.Price.String()).Msg("best value found")
	}
	return out, nil
}
